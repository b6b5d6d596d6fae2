package cli

import (
	"context"
	"fmt"

	"github.com/frobware/go-pfq"
)

// GroupsCmd lists active groups. With --socket-id it prints the
// groups that socket belongs to; with --gid it describes one group.
type GroupsCmd struct {
	OutputFlags
	GID      *pfq.GroupID  `name:"gid" help:"Describe only this group."`
	SocketID *pfq.SocketID `name:"socket-id" help:"Show the groups this socket belongs to."`
}

// Run executes the groups command.
func (c *GroupsCmd) Run(cli *CLI, ctx context.Context) error {
	b, err := cli.Client()
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	defer b.Close()

	if c.SocketID != nil {
		m, err := b.Groups(ctx, *c.SocketID)
		if err != nil {
			return err
		}
		return cli.PrintOutf("%s\n", formatGroups(m))
	}

	infos, err := b.ListGroups(ctx)
	if err != nil {
		return err
	}

	if c.GID != nil {
		for _, info := range infos {
			if info.GID == *c.GID {
				output, err := FormatGroupDetail(info, &c.OutputFlags)
				if err != nil {
					return err
				}
				return cli.PrintOut(output)
			}
		}
		return pfq.ErrGroupNotFound{GID: *c.GID}
	}

	if len(infos) == 0 {
		return cli.PrintOut("No active groups\n")
	}
	output, err := FormatGroups(infos, &c.OutputFlags)
	if err != nil {
		return err
	}
	return cli.PrintOut(output)
}

// MaskCmd prints the union of a group's class masks.
type MaskCmd struct {
	GID pfq.GroupID `arg:"" name:"gid" help:"Group id."`
}

// Run executes the mask command.
func (c *MaskCmd) Run(cli *CLI, ctx context.Context) error {
	b, err := cli.Client()
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	defer b.Close()

	m, err := b.GroupMask(ctx, c.GID)
	if err != nil {
		return err
	}
	return cli.PrintOutf("%s\n", formatSockets(m))
}

// StatsCmd prints a group's counters.
type StatsCmd struct {
	OutputFlags
	GID pfq.GroupID `arg:"" name:"gid" help:"Group id."`
}

// Run executes the stats command.
func (c *StatsCmd) Run(cli *CLI, ctx context.Context) error {
	b, err := cli.Client()
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	defer b.Close()

	st, err := b.Stats(ctx, c.GID)
	if err != nil {
		return err
	}
	output, err := FormatStats(c.GID, st, &c.OutputFlags)
	if err != nil {
		return err
	}
	return cli.PrintOut(output)
}

// HistoryCmd prints recorded samples of a group.
type HistoryCmd struct {
	OutputFlags
	GID   pfq.GroupID `arg:"" name:"gid" help:"Group id."`
	Limit int         `name:"limit" short:"n" help:"Maximum number of samples; 0 for all." default:"20"`
}

// Run executes the history command.
func (c *HistoryCmd) Run(cli *CLI, ctx context.Context) error {
	b, err := cli.Client()
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	defer b.Close()

	samples, err := b.History(ctx, c.GID, c.Limit)
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		return cli.PrintOut("No samples recorded\n")
	}
	output, err := FormatHistory(samples, &c.OutputFlags)
	if err != nil {
		return err
	}
	return cli.PrintOut(output)
}
