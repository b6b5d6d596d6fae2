// pfq controls the packet fan-out group daemon.
package main

import (
	"context"
	"os"

	"github.com/alecthomas/kong"

	"github.com/frobware/go-pfq/cmd/pfq/cli"
)

func main() {
	var c cli.CLI
	ctx := context.Background()
	kctx := kong.Parse(&c, append(cli.KongOptions(), kong.BindTo(ctx, (*context.Context)(nil)))...)
	c.Out = os.Stdout
	kctx.FatalIfErrorf(kctx.Run(&c))
}
