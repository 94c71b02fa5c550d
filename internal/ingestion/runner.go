package ingestion

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"straddle-lab/internal/domain"
	"straddle-lab/internal/logger"
	"straddle-lab/internal/observability"
	"straddle-lab/internal/storage"
)

// ErrSourceClosed is returned when the tick source stops on its own.
var ErrSourceClosed = errors.New("tick source closed")

// Drop reasons reported to metrics.
const (
	DropStale     = "stale"
	DropInvalid   = "invalid"
	DropOverflow  = "overflow"
	DropDuplicate = "duplicate"
)

// Runner buffers ticks from a TickSource and writes them in batches.
// Per instrument only ticks strictly newer than the last accepted one are kept,
// so replays after a reconnect never reach the store.
type Runner struct {
	source        TickSource
	writer        storage.LtpWriter
	batchSize     int
	flushInterval time.Duration
	maxPending    int
	metrics       *observability.Metrics
	logger        *logger.Logger

	pending  []*domain.Tick
	lastSeen map[string]time.Time

	received atomic.Int64
	stored   atomic.Int64
	dropped  atomic.Int64
}

// RunnerOptions contains configuration for creating a Runner.
type RunnerOptions struct {
	Source        TickSource
	Writer        storage.LtpWriter
	BatchSize     int           // Default: 500 - flush once this many ticks are pending
	FlushInterval time.Duration // Default: 1s - force flush buffered ticks periodically
	MaxPending    int           // Default: 100000 - drop the oldest ticks beyond this after failed writes
	Metrics       *observability.Metrics
	Logger        *logger.Logger
}

// NewRunner creates a new ingestion runner.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.Source == nil || opts.Writer == nil {
		return nil, fmt.Errorf("ingestion runner: source and writer are required")
	}

	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = 500
	}

	flushInterval := opts.FlushInterval
	if flushInterval <= 0 {
		flushInterval = 1 * time.Second
	}

	maxPending := opts.MaxPending
	if maxPending <= 0 {
		maxPending = 100000
	}
	if maxPending < batchSize {
		maxPending = batchSize
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewNop()
	}

	return &Runner{
		source:        opts.Source,
		writer:        opts.Writer,
		batchSize:     batchSize,
		flushInterval: flushInterval,
		maxPending:    maxPending,
		metrics:       opts.Metrics,
		logger:        log.Named("ingestion"),
		lastSeen:      make(map[string]time.Time),
	}, nil
}

// Run consumes ticks until ctx is cancelled or the source closes.
// Pending ticks are flushed before returning.
func (r *Runner) Run(ctx context.Context) error {
	ticks, err := r.source.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	flushTicker := time.NewTicker(r.flushInterval)
	defer flushTicker.Stop()

	r.logger.Info("runner started",
		zap.Int("batch_size", r.batchSize),
		zap.Duration("flush_interval", r.flushInterval),
	)

	for {
		select {
		case <-ctx.Done():
			r.shutdownFlush(ctx)
			r.logger.Info("runner stopping", zap.Int64("stored", r.stored.Load()))
			return ctx.Err()

		case tick, ok := <-ticks:
			if !ok {
				r.shutdownFlush(ctx)
				return ErrSourceClosed
			}
			r.accept(tick)
			if len(r.pending) >= r.batchSize {
				r.flush(ctx)
			}

		case <-flushTicker.C:
			r.flush(ctx)
		}
	}
}

// accept buffers a tick unless it is invalid or not newer than the last
// accepted tick of its instrument.
func (r *Runner) accept(t *domain.Tick) {
	r.received.Add(1)

	if t == nil || t.InstrumentID == "" || t.Time.IsZero() || !t.Price.IsPositive() {
		r.drop(DropInvalid, 1)
		return
	}
	if last, ok := r.lastSeen[t.InstrumentID]; ok && !t.Time.After(last) {
		r.drop(DropStale, 1)
		return
	}

	r.lastSeen[t.InstrumentID] = t.Time
	r.pending = append(r.pending, t)

	if over := len(r.pending) - r.maxPending; over > 0 {
		r.pending = r.pending[over:]
		r.drop(DropOverflow, over)
	}
	r.metrics.SetTickBufferSize(len(r.pending))
}

// flush writes pending ticks in deterministic order. A failed batch stays
// pending and is retried on the next flush.
func (r *Runner) flush(ctx context.Context) {
	if len(r.pending) == 0 {
		return
	}

	batch := r.pending
	SortTicks(batch)

	err := r.writer.InsertBulk(ctx, batch)
	switch {
	case err == nil:
		r.stored.Add(int64(len(batch)))
		r.metrics.RecordTicksStored(len(batch))
		r.pending = nil
	case errors.Is(err, storage.ErrDuplicateKey):
		// batches are atomic; retry per tick to skip only the duplicates
		r.pending = r.insertEach(ctx, batch)
	default:
		r.metrics.RecordIngestionError("store")
		r.logger.Error("flush failed", zap.Int("ticks", len(batch)), zap.Error(err))
	}
	r.metrics.SetTickBufferSize(len(r.pending))
}

// insertEach writes ticks one at a time, dropping those already stored.
// It returns the ticks that failed for other reasons.
func (r *Runner) insertEach(ctx context.Context, batch []*domain.Tick) []*domain.Tick {
	var failed []*domain.Tick
	stored, dups := 0, 0
	for i, t := range batch {
		err := r.writer.InsertBulk(ctx, []*domain.Tick{t})
		switch {
		case err == nil:
			stored++
		case errors.Is(err, storage.ErrDuplicateKey):
			dups++
		default:
			r.metrics.RecordIngestionError("store")
			r.logger.Error("tick insert failed", zap.String("instrument", t.InstrumentID), zap.Error(err))
			return append(failed, batch[i:]...)
		}
	}
	r.stored.Add(int64(stored))
	r.metrics.RecordTicksStored(stored)
	if dups > 0 {
		r.drop(DropDuplicate, dups)
		r.logger.Warn("duplicate ticks skipped", zap.Int("duplicates", dups), zap.Int("stored", stored))
	}
	return failed
}

// shutdownFlush flushes on a context detached from ctx cancellation.
func (r *Runner) shutdownFlush(ctx context.Context) {
	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	r.flush(flushCtx)
}

func (r *Runner) drop(reason string, n int) {
	r.dropped.Add(int64(n))
	r.metrics.RecordTicksDropped(reason, n)
}

// RunnerStats contains runner counters.
type RunnerStats struct {
	Received int64
	Stored   int64
	Dropped  int64
}

// Stats returns current runner statistics. Safe to call while Run is active.
func (r *Runner) Stats() RunnerStats {
	return RunnerStats{
		Received: r.received.Load(),
		Stored:   r.stored.Load(),
		Dropped:  r.dropped.Load(),
	}
}
