// Package backends opens the stores selected in the run file.
package backends

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"straddle-lab/internal/config"
	"straddle-lab/internal/logger"
	"straddle-lab/internal/storage"
	chstore "straddle-lab/internal/storage/clickhouse"
	"straddle-lab/internal/storage/duckdb"
	"straddle-lab/internal/storage/memory"
	pgstore "straddle-lab/internal/storage/postgres"
)

// Stores bundles the stores of one backend selection.
type Stores struct {
	// Backend is the LTP backend name, used as a metrics label.
	Backend     string
	Ltp         storage.LtpStore
	Instruments storage.InstrumentStore
	Cycles      storage.CycleStore

	closers []func() error
}

// Open connects the configured backend. LTP series come from cfg.Backend.
// Instruments and cycles live in Postgres when a DSN is configured and in
// memory otherwise. seed is inserted into the instrument store; entries that
// already exist are kept.
func Open(ctx context.Context, cfg config.Storage, seed []config.InstrumentConfig, loc *time.Location, log *logger.Logger) (*Stores, error) {
	if log == nil {
		log = logger.NewNop()
	}
	log = log.Named("storage")

	s := &Stores{Backend: cfg.Backend}
	ok := false
	defer func() {
		if !ok {
			s.Close()
		}
	}()

	var pool *pgstore.Pool
	if cfg.PostgresDSN != "" && cfg.Backend != config.BackendMemory {
		p, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		s.closers = append(s.closers, func() error { p.Close(); return nil })
		pool = p
	}

	switch cfg.Backend {
	case config.BackendMemory:
		s.Ltp = memory.NewLtpStore()
	case config.BackendPostgres:
		if pool == nil {
			return nil, fmt.Errorf("%w: postgres backend needs postgres_dsn", storage.ErrInvalidInput)
		}
		s.Ltp = pgstore.NewLtpStore(pool)
	case config.BackendClickhouse:
		conn, err := chstore.NewConn(ctx, cfg.ClickhouseDSN)
		if err != nil {
			return nil, fmt.Errorf("connect to clickhouse: %w", err)
		}
		s.closers = append(s.closers, conn.Close)
		s.Ltp = chstore.NewLtpStore(conn)
	case config.BackendDuckDB:
		store, err := duckdb.Open(ctx, cfg.ParquetPath, log)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, store.Close)
		s.Ltp = store
	default:
		return nil, fmt.Errorf("%w: unknown storage backend %q", storage.ErrInvalidInput, cfg.Backend)
	}

	if pool != nil {
		s.Instruments = pgstore.NewInstrumentStore(pool)
		s.Cycles = pgstore.NewCycleStore(pool)
	} else {
		s.Instruments = memory.NewInstrumentStore()
		s.Cycles = memory.NewCycleStore()
	}

	seeded, err := Seed(ctx, s.Instruments, seed, loc)
	if err != nil {
		return nil, err
	}

	log.Info("stores opened",
		zap.String("backend", cfg.Backend),
		zap.Bool("postgres", pool != nil),
		zap.Int("seeded_instruments", seeded),
	)
	ok = true
	return s, nil
}

// Seed inserts instruments, skipping those already stored.
// It returns how many were inserted.
func Seed(ctx context.Context, store storage.InstrumentStore, seed []config.InstrumentConfig, loc *time.Location) (int, error) {
	inserted := 0
	for _, ic := range seed {
		inst, err := ic.Instrument(loc)
		if err != nil {
			return inserted, fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
		}
		err = store.Insert(ctx, inst)
		switch {
		case err == nil:
			inserted++
		case errors.Is(err, storage.ErrDuplicateKey):
		default:
			return inserted, fmt.Errorf("seed instrument %s: %w", ic.ID, err)
		}
	}
	return inserted, nil
}

// Close releases every connection in reverse opening order.
func (s *Stores) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
