package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/frobware/go-pfq/server"
)

// ServeCmd starts the daemon.
type ServeCmd struct {
	RuntimeDir string `name:"runtime-dir" help:"Runtime directory. Overrides server.runtime_dir."`
	PinPath    string `name:"pin-path" help:"Pin the device map as a BPF map at this bpffs path. Overrides devmap.pin_path."`
}

// Run executes the serve command.
func (c *ServeCmd) Run(cli *CLI, ctx context.Context) error {
	cfg, err := cli.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if c.RuntimeDir != "" {
		cfg.Server.RuntimeDir = c.RuntimeDir
	}
	if cli.Socket != "" {
		cfg.Server.Socket = cli.Socket
	}
	if c.PinPath != "" {
		cfg.DevMap.PinPath = c.PinPath
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, err := cli.LoggerFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	// Create context that cancels on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return server.Run(ctx, server.RunConfig{Config: cfg, Logger: logger})
}
