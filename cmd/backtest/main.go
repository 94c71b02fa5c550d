// Command backtest simulates the CE/PE straddle over stored LTP series.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"straddle-lab/internal/config"
	"straddle-lab/internal/logger"
)

func main() {
	cmd := &cli.Command{
		Name:  "backtest",
		Usage: "Simulate the CE/PE straddle strategy over stored LTP series",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML run file (defaults apply when empty)",
				Sources: cli.EnvVars("STRADDLE_CONFIG"),
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level: debug, info, warn, error (overrides the run file)",
			},
		},
		Commands: []*cli.Command{
			runCommand(),
			reportCommand(),
			migrateCommand(),
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "backtest: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads --config, or the defaults when it is not set, and applies
// the global flag overrides.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg := config.Default()
	if path := cmd.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if cmd.IsSet("log-level") {
		cfg.LogLevel = cmd.String("log-level")
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*logger.Logger, error) {
	log, err := logger.NewLogger(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return log.Named("backtest"), nil
}
