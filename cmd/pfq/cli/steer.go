package cli

import (
	"context"
	"fmt"

	"github.com/frobware/go-pfq"
)

// SteerCmd sets or clears a group's steering function.
type SteerCmd struct {
	GID      pfq.GroupID `arg:"" name:"gid" help:"Group id."`
	Function string      `arg:"" optional:"" name:"function" help:"Registered function name. Omit to clear."`
}

// Run executes the steer command.
func (c *SteerCmd) Run(cli *CLI, ctx context.Context) error {
	b, err := cli.Client()
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	defer b.Close()

	if err := b.SetSteering(ctx, c.GID, c.Function); err != nil {
		return err
	}
	if c.Function == "" {
		return cli.PrintOutf("group %d steering cleared\n", c.GID)
	}
	return cli.PrintOutf("group %d steering %s\n", c.GID, c.Function)
}

// BindingArgs addresses a device queue of a group.
type BindingArgs struct {
	GID    pfq.GroupID `arg:"" name:"gid" help:"Group id."`
	Device Index       `arg:"" name:"device" help:"Interface index, or any."`
	Queue  Index       `arg:"" optional:"" name:"queue" help:"Hardware queue, or any." default:"any"`
}

// BindCmd routes a device queue to a group.
type BindCmd struct {
	BindingArgs
}

// Run executes the bind command.
func (c *BindCmd) Run(cli *CLI, ctx context.Context) error {
	b, err := cli.Client()
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	defer b.Close()

	if err := b.Bind(ctx, c.GID, int(c.Device), int(c.Queue)); err != nil {
		return err
	}
	return cli.PrintOutf("group %d bound to device %s queue %s\n", c.GID, c.Device, c.Queue)
}

// UnbindCmd stops routing a device queue to a group.
type UnbindCmd struct {
	BindingArgs
}

// Run executes the unbind command.
func (c *UnbindCmd) Run(cli *CLI, ctx context.Context) error {
	b, err := cli.Client()
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	defer b.Close()

	if err := b.Unbind(ctx, c.GID, int(c.Device), int(c.Queue)); err != nil {
		return err
	}
	return cli.PrintOutf("group %d unbound from device %s queue %s\n", c.GID, c.Device, c.Queue)
}
