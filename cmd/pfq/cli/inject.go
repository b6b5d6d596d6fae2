package cli

import (
	"context"
	"fmt"
	"os"
)

// InjectCmd runs a frame through the receive path as if it arrived on
// a device queue.
type InjectCmd struct {
	OutputFlags
	Device Index  `arg:"" name:"device" help:"Interface index."`
	Queue  Index  `arg:"" name:"queue" help:"Hardware queue."`
	Frame  string `arg:"" optional:"" name:"frame" help:"Frame bytes in hex, starting at the Ethernet header."`
	File   string `name:"file" short:"f" help:"Read the raw frame from this file instead." type:"existingfile"`
}

// Run executes the inject command.
func (c *InjectCmd) Run(cli *CLI, ctx context.Context) error {
	frame, err := c.frame()
	if err != nil {
		return err
	}

	b, err := cli.Client()
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	defer b.Close()

	ds, err := b.Inject(ctx, int(c.Device), int(c.Queue), frame)
	if err != nil {
		return err
	}
	output, err := FormatDeliveries(ds, &c.OutputFlags)
	if err != nil {
		return err
	}
	return cli.PrintOut(output)
}

func (c *InjectCmd) frame() ([]byte, error) {
	switch {
	case c.File != "" && c.Frame != "":
		return nil, fmt.Errorf("give the frame as hex or --file, not both")
	case c.File != "":
		b, err := os.ReadFile(c.File)
		if err != nil {
			return nil, fmt.Errorf("read frame: %w", err)
		}
		return b, nil
	default:
		return ParseFrame(c.Frame)
	}
}
