package cli

import (
	"context"
	"fmt"
)

// FunctionsCmd lists the function factory.
type FunctionsCmd struct {
	OutputFlags
}

// Run executes the functions command.
func (c *FunctionsCmd) Run(cli *CLI, ctx context.Context) error {
	b, err := cli.Client()
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	defer b.Close()

	fns, err := b.ListFunctions(ctx)
	if err != nil {
		return err
	}
	if len(fns) == 0 {
		return cli.PrintOut("No functions registered\n")
	}
	output, err := FormatFunctions(fns, &c.OutputFlags)
	if err != nil {
		return err
	}
	return cli.PrintOut(output)
}
