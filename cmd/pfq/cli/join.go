package cli

import (
	"context"
	"fmt"

	"github.com/frobware/go-pfq"
)

// JoinCmd joins a socket to a group on behalf of this process.
type JoinCmd struct {
	MembershipFlags
	GID    pfq.GroupID  `arg:"" name:"gid" help:"Group id."`
	Socket pfq.SocketID `arg:"" name:"socket" help:"Socket id."`
}

// Run executes the join command.
func (c *JoinCmd) Run(cli *CLI, ctx context.Context) error {
	b, err := cli.Client()
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	defer b.Close()

	if err := b.Join(ctx, c.GID, c.Socket, c.Classes, c.Policy); err != nil {
		return err
	}
	return cli.PrintOutf("socket %d joined group %d\n", c.Socket, c.GID)
}

// JoinFreeCmd joins a socket to the lowest unused group.
type JoinFreeCmd struct {
	MembershipFlags
	Socket pfq.SocketID `arg:"" name:"socket" help:"Socket id."`
}

// Run executes the join-free command.
func (c *JoinFreeCmd) Run(cli *CLI, ctx context.Context) error {
	b, err := cli.Client()
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	defer b.Close()

	gid, err := b.JoinFree(ctx, c.Socket, c.Classes, c.Policy)
	if err != nil {
		return err
	}
	return cli.PrintOutf("socket %d joined group %d\n", c.Socket, gid)
}

// LeaveCmd removes a socket from a group.
type LeaveCmd struct {
	GID    pfq.GroupID  `arg:"" name:"gid" help:"Group id."`
	Socket pfq.SocketID `arg:"" name:"socket" help:"Socket id."`
}

// Run executes the leave command.
func (c *LeaveCmd) Run(cli *CLI, ctx context.Context) error {
	b, err := cli.Client()
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	defer b.Close()

	if err := b.Leave(ctx, c.GID, c.Socket); err != nil {
		return err
	}
	return cli.PrintOutf("socket %d left group %d\n", c.Socket, c.GID)
}

// LeaveAllCmd removes a socket from every group.
type LeaveAllCmd struct {
	Socket pfq.SocketID `arg:"" name:"socket" help:"Socket id."`
}

// Run executes the leave-all command.
func (c *LeaveAllCmd) Run(cli *CLI, ctx context.Context) error {
	b, err := cli.Client()
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	defer b.Close()

	if err := b.LeaveAll(ctx, c.Socket); err != nil {
		return err
	}
	return cli.PrintOutf("socket %d left all groups\n", c.Socket)
}
