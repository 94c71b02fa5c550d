package main

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"straddle-lab/internal/config"
	"straddle-lab/internal/instrument"
	"straddle-lab/internal/observability"
	"straddle-lab/internal/orchestrator"
	"straddle-lab/internal/reporting"
	"straddle-lab/internal/series"
	"straddle-lab/internal/storage/backends"
	"straddle-lab/internal/strategy"
)

var dateFlagConfig = cli.TimestampConfig{Layouts: []string{"2006-01-02"}}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Simulate one trading day, or every weekday in a range",
		Flags: []cli.Flag{
			&cli.TimestampFlag{
				Name:    "date",
				Aliases: []string{"d"},
				Usage:   "Trading date in `YYYY-MM-DD` format",
				Config:  dateFlagConfig,
			},
			&cli.TimestampFlag{
				Name:   "from",
				Usage:  "First trading date of a range in `YYYY-MM-DD` format",
				Config: dateFlagConfig,
			},
			&cli.TimestampFlag{
				Name:   "to",
				Usage:  "Last trading date of a range in `YYYY-MM-DD` format (inclusive)",
				Config: dateFlagConfig,
			},
			&cli.StringFlag{
				Name:    "underlying",
				Aliases: []string{"u"},
				Usage:   "Index to trade, e.g. BANKNIFTY (overrides the run file)",
			},
			&cli.StringFlag{
				Name:  "backend",
				Usage: "LTP backend: memory, postgres, clickhouse, duckdb (overrides the run file)",
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
			&cli.BoolFlag{
				Name:  "persist",
				Usage: "Store simulated cycles in the cycle store",
			},
			&cli.BoolFlag{
				Name:  "no-re-entry",
				Usage: "Disable re-entry after a cycle closes",
			},
		},
		Action: runAction,
	}
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	applyRunOverrides(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	dates, err := tradingDates(cmd.Timestamp("date"), cmd.Timestamp("from"), cmd.Timestamp("to"))
	if err != nil {
		return err
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
	sessionStart, sessionEnd, err := cfg.SessionOffsets()
	if err != nil {
		return err
	}
	engine, err := strategy.FromConfig(cfg.Strategy)
	if err != nil {
		return err
	}

	stores, err := backends.Open(ctx, cfg.Storage, cfg.Instruments, loc, log)
	if err != nil {
		return err
	}
	defer stores.Close()

	metrics := observability.NewMetrics(prometheus.NewRegistry(), "")

	opts := orchestrator.Options{
		Provider: series.NewStoreProvider(stores.Ltp, series.Options{
			Location: loc,
			Backend:  stores.Backend,
			Metrics:  metrics,
			Logger:   log,
		}),
		Resolver:     instrument.NewStoreResolver(stores.Instruments, log),
		Engine:       engine,
		Underlying:   cfg.Underlying,
		Location:     loc,
		SessionStart: sessionStart,
		SessionEnd:   sessionEnd,
		FetchRetries: cfg.Session.FetchRetries,
		RetryBackoff: cfg.Session.RetryBackoff,
		Metrics:      metrics,
		Logger:       log,
	}
	if cfg.Output.Persist {
		opts.CycleStore = stores.Cycles
	}
	orch, err := orchestrator.New(opts)
	if err != nil {
		return err
	}

	started := time.Now()
	batch, err := orch.RunDays(ctx, dates)
	if err != nil {
		return err
	}
	log.Info("backtest finished",
		zap.Int("days", len(batch.Days)),
		zap.Int("skipped", len(batch.Skipped)),
		zap.Duration("elapsed", time.Since(started)),
	)

	report := reporting.NewGenerator(stores.Cycles, loc).FromRuns(cfg.Underlying, engine.Params(), batch.Days, batch.Skipped)
	return writeReport(cfg.Output, report)
}

func applyRunOverrides(cmd *cli.Command, cfg *config.Config) {
	if cmd.IsSet("underlying") {
		cfg.Underlying = cmd.String("underlying")
	}
	if cmd.IsSet("backend") {
		cfg.Storage.Backend = cmd.String("backend")
	}
	if cmd.IsSet("format") {
		cfg.Output.Format = cmd.String("format")
	}
	if cmd.IsSet("output") {
		cfg.Output.Path = cmd.String("output")
	}
	if cmd.IsSet("persist") {
		cfg.Output.Persist = cmd.Bool("persist")
	}
	if cmd.Bool("no-re-entry") {
		disabled := false
		cfg.Strategy.ReEntryEnabled = &disabled
	}
}

// tradingDates expands --date or --from/--to into weekdays, oldest first.
func tradingDates(date, from, to time.Time) ([]time.Time, error) {
	switch {
	case !date.IsZero() && (!from.IsZero() || !to.IsZero()):
		return nil, fmt.Errorf("--date cannot be combined with --from/--to")
	case !date.IsZero():
		return []time.Time{date}, nil
	case from.IsZero() || to.IsZero():
		return nil, fmt.Errorf("either --date or both --from and --to are required")
	case to.Before(from):
		return nil, fmt.Errorf("--to %s is before --from %s", to.Format(time.DateOnly), from.Format(time.DateOnly))
	}

	var dates []time.Time
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		dates = append(dates, d)
	}
	if len(dates) == 0 {
		return nil, fmt.Errorf("no weekdays between %s and %s", from.Format(time.DateOnly), to.Format(time.DateOnly))
	}
	return dates, nil
}
