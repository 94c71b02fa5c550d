package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"straddle-lab/internal/config"
	"straddle-lab/internal/reporting"
	"straddle-lab/internal/storage/backends"
)

func reportCommand() *cli.Command {
	return &cli.Command{
		Name:  "report",
		Usage: "Render stored cycles of a previous run or trading date",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "run-id",
				Usage: "Run id printed by a persisted run",
			},
			&cli.TimestampFlag{
				Name:    "date",
				Aliases: []string{"d"},
				Usage:   "Trading date in `YYYY-MM-DD` format",
				Config:  dateFlagConfig,
			},
			&cli.StringFlag{
				Name:    "underlying",
				Aliases: []string{"u"},
				Usage:   "Index the cycles belong to (overrides the run file)",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Report format: json, csv, markdown (overrides the run file)",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write the report to this file instead of stdout",
			},
		},
		Action: reportAction,
	}
}

func reportAction(ctx context.Context, cmd *cli.Command) error {
	runID := cmd.String("run-id")
	date := cmd.Timestamp("date")
	if (runID == "") == date.IsZero() {
		return fmt.Errorf("exactly one of --run-id or --date is required")
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	applyRunOverrides(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Storage.PostgresDSN == "" {
		return fmt.Errorf("report reads persisted cycles and needs storage.postgres_dsn")
	}
	if cfg.Storage.Backend == config.BackendMemory {
		cfg.Storage.Backend = config.BackendPostgres
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	stores, err := backends.Open(ctx, cfg.Storage, nil, loc, log)
	if err != nil {
		return err
	}
	defer stores.Close()

	gen := reporting.NewGenerator(stores.Cycles, loc)
	var report *reporting.Report
	if runID != "" {
		report, err = gen.ForRun(ctx, runID)
	} else {
		report, err = gen.ForDate(ctx, cfg.Underlying, date)
	}
	if err != nil {
		return err
	}
	return writeReport(cfg.Output, report)
}
