// Package cli implements the pfq command line.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"reflect"

	"github.com/alecthomas/kong"

	"github.com/frobware/go-pfq"
	"github.com/frobware/go-pfq/client"
	"github.com/frobware/go-pfq/config"
	"github.com/frobware/go-pfq/logging"
)

// CLI is the root command structure for pfq.
type CLI struct {
	Config string `name:"config" help:"Config file path." default:"${default_config_path}"`
	Log    string `name:"log" help:"Log spec (e.g., 'info,group=debug')." env:"PFQ_LOG"`
	Socket string `name:"socket" short:"s" help:"Control socket path. Defaults to the socket of the configured runtime directory."`

	Serve     ServeCmd     `cmd:"" help:"Start the pfq daemon."`
	Functions FunctionsCmd `cmd:"" help:"List registered packet functions."`
	Join      JoinCmd      `cmd:"" help:"Join a socket to a group."`
	JoinFree  JoinFreeCmd  `cmd:"" name:"join-free" help:"Join a socket to the lowest unused group."`
	Leave     LeaveCmd     `cmd:"" help:"Remove a socket from a group."`
	LeaveAll  LeaveAllCmd  `cmd:"" name:"leave-all" help:"Remove a socket from every group."`
	Groups    GroupsCmd    `cmd:"" help:"List active groups, or the groups of one socket."`
	Mask      MaskCmd      `cmd:"" help:"Show the sockets of a group."`
	Stats     StatsCmd     `cmd:"" help:"Show the counters of a group."`
	History   HistoryCmd   `cmd:"" help:"Show recorded counters of a group."`
	Steer     SteerCmd     `cmd:"" help:"Set or clear the steering function of a group."`
	Bind      BindCmd      `cmd:"" help:"Route a device queue to a group."`
	Unbind    UnbindCmd    `cmd:"" help:"Stop routing a device queue to a group."`
	Inject    InjectCmd    `cmd:"" help:"Run a frame through the receive path."`

	// Out receives command output. Defaults to os.Stdout.
	Out io.Writer `kong:"-"`
}

// KongOptions returns the Kong configuration options for the CLI.
func KongOptions() []kong.Option {
	return []kong.Option{
		kong.Name("pfq"),
		kong.Description("Packet fan-out groups with pluggable steering functions."),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.TypeMapper(reflect.TypeOf(pfq.Policy(0)), policyMapper()),
		kong.TypeMapper(reflect.TypeOf(pfq.ClassMask(0)), classMaskMapper()),
		kong.TypeMapper(reflect.TypeOf(Index(0)), indexMapper()),
		kong.Vars{
			"default_config_path": config.DefaultConfigPath,
		},
	}
}

// LoadConfig loads the configuration from the config file path.
func (c *CLI) LoadConfig() (config.Config, error) {
	return config.Load(c.Config)
}

// Logger creates a logger for CLI commands.
// CLI commands default to WARN level for quieter output.
// Use LoggerFromConfig for the daemon.
func (c *CLI) Logger() (*slog.Logger, error) {
	cfg, err := c.LoadConfig()
	if err != nil {
		return nil, err
	}
	spec := c.Log
	if spec == "" {
		spec = "warn"
	}
	return c.newLogger(cfg, spec, os.Stderr)
}

// LoggerFromConfig creates a logger using config file settings.
// Output goes to stdout for daemon log collection.
func (c *CLI) LoggerFromConfig(cfg config.Config) (*slog.Logger, error) {
	return c.newLogger(cfg, c.Log, os.Stdout)
}

func (c *CLI) newLogger(cfg config.Config, spec string, out io.Writer) (*slog.Logger, error) {
	format, err := logging.ParseFormat(cfg.Logging.Format)
	if err != nil {
		return nil, err
	}
	return logging.New(logging.Options{
		CLISpec:    spec,
		ConfigSpec: cfg.Logging.ToSpec(),
		Format:     format,
		Output:     out,
	})
}

// SocketPath returns --socket, or the socket of the configured runtime
// directory.
func (c *CLI) SocketPath() (string, error) {
	if c.Socket != "" {
		return c.Socket, nil
	}
	cfg, err := c.LoadConfig()
	if err != nil {
		return "", err
	}
	return cfg.SocketPath(), nil
}

// Client connects to the daemon. The returned client must be closed
// when no longer needed.
func (c *CLI) Client() (client.Client, error) {
	logger, err := c.Logger()
	if err != nil {
		return nil, err
	}
	sock, err := c.SocketPath()
	if err != nil {
		return nil, err
	}
	return client.Dial(sock, client.WithLogger(logger))
}

// PrintOut writes s to the command output.
func (c *CLI) PrintOut(s string) error {
	_, err := io.WriteString(c.out(), s)
	return err
}

// PrintOutf formats to the command output.
func (c *CLI) PrintOutf(format string, args ...any) error {
	_, err := fmt.Fprintf(c.out(), format, args...)
	return err
}

func (c *CLI) out() io.Writer {
	if c.Out == nil {
		return os.Stdout
	}
	return c.Out
}
