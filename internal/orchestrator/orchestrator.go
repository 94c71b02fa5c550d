// Package orchestrator runs the straddle engine for trading days.
// It coordinates: reference price → ATM strike → instruments → series → engine → persistence
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"straddle-lab/internal/domain"
	"straddle-lab/internal/instrument"
	"straddle-lab/internal/logger"
	"straddle-lab/internal/observability"
	"straddle-lab/internal/series"
	"straddle-lab/internal/storage"
	"straddle-lab/internal/strategy"
)

// Orchestrator errors
var (
	ErrNoSeriesData   = errors.New("no series data")
	ErrInvalidOptions = errors.New("invalid orchestrator options")
)

// Session defaults (exchange local time).
const (
	DefaultSessionStart = 9*time.Hour + 25*time.Minute
	DefaultSessionEnd   = 15*time.Hour + 15*time.Minute
	DefaultLocation     = "Asia/Kolkata"
	DefaultRetryBackoff = 500 * time.Millisecond
)

// Orchestrator coordinates a single-day straddle run.
type Orchestrator struct {
	provider   series.Provider
	resolver   instrument.Resolver
	engine     *strategy.Engine
	cycleStore storage.CycleStore

	underlying   string
	loc          *time.Location
	sessionStart time.Duration
	sessionEnd   time.Duration

	fetchRetries int
	retryBackoff time.Duration

	metrics *observability.Metrics
	logger  *logger.Logger
	newID   func() uuid.UUID
}

// Options for creating Orchestrator.
type Options struct {
	// Required
	Provider   series.Provider
	Resolver   instrument.Resolver
	Engine     *strategy.Engine
	Underlying string

	// Optional; nil disables persistence
	CycleStore storage.CycleStore

	// Session window; zero values fall back to 09:25-15:15 Asia/Kolkata
	Location     *time.Location
	SessionStart time.Duration
	SessionEnd   time.Duration

	// Provider retries on transient errors; ErrNoDataFound is never retried
	FetchRetries int
	RetryBackoff time.Duration

	Metrics *observability.Metrics
	Logger  *logger.Logger

	// NewRunID overrides run id generation (tests)
	NewRunID func() uuid.UUID
}

// New creates a new Orchestrator.
func New(opts Options) (*Orchestrator, error) {
	if opts.Provider == nil || opts.Resolver == nil || opts.Engine == nil {
		return nil, fmt.Errorf("%w: provider, resolver and engine are required", ErrInvalidOptions)
	}
	if opts.Underlying == "" {
		return nil, fmt.Errorf("%w: underlying is required", ErrInvalidOptions)
	}
	if opts.FetchRetries < 0 {
		return nil, fmt.Errorf("%w: fetch retries must be >= 0", ErrInvalidOptions)
	}
	if opts.Location == nil {
		loc, err := time.LoadLocation(DefaultLocation)
		if err != nil {
			loc = time.FixedZone("IST", 5*3600+30*60)
		}
		opts.Location = loc
	}
	if opts.SessionStart == 0 {
		opts.SessionStart = DefaultSessionStart
	}
	if opts.SessionEnd == 0 {
		opts.SessionEnd = DefaultSessionEnd
	}
	if opts.SessionEnd <= opts.SessionStart {
		return nil, fmt.Errorf("%w: session end %s is not after start %s", ErrInvalidOptions,
			domain.FormatTimeOfDay(opts.SessionEnd), domain.FormatTimeOfDay(opts.SessionStart))
	}
	if opts.RetryBackoff == 0 {
		opts.RetryBackoff = DefaultRetryBackoff
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNop()
	}
	if opts.NewRunID == nil {
		opts.NewRunID = uuid.New
	}

	return &Orchestrator{
		provider:     opts.Provider,
		resolver:     opts.Resolver,
		engine:       opts.Engine,
		cycleStore:   opts.CycleStore,
		underlying:   opts.Underlying,
		loc:          opts.Location,
		sessionStart: opts.SessionStart,
		sessionEnd:   opts.SessionEnd,
		fetchRetries: opts.FetchRetries,
		retryBackoff: opts.RetryBackoff,
		metrics:      opts.Metrics,
		logger:       opts.Logger.Named("orchestrator").With(zap.String("underlying", opts.Underlying)),
		newID:        opts.NewRunID,
	}, nil
}

// RunResult contains the outcome of one trading day.
type RunResult struct {
	RunID          uuid.UUID
	Underlying     string
	TradingDate    time.Time // midnight in the market location
	SessionStart   time.Time
	SessionEnd     time.Time
	ReferencePrice decimal.Decimal
	Strike         decimal.Decimal
	CE             domain.Instrument
	PE             domain.Instrument
	Cycles         []*domain.Cycle
	Records        []*domain.CycleRecord
	Persisted      bool
}

// CombinedPnlPercent sums the combined PnL of every cycle.
func (r *RunResult) CombinedPnlPercent() decimal.Decimal {
	total := decimal.Zero
	for _, c := range r.Cycles {
		total = total.Add(c.CombinedPnlPercent)
	}
	return total
}

// RunDay executes the strategy for one trading day. The calendar date of
// tradingDate, read in its own location, names the day.
// Phases:
//  1. Reference price of the underlying at session start
//  2. ATM strike and CE/PE resolution
//  3. Load both series for the session window
//  4. Simulate
//  5. Persist (optional)
func (o *Orchestrator) RunDay(ctx context.Context, tradingDate time.Time) (result *RunResult, err error) {
	started := time.Now()
	defer func() {
		status := observability.StatusOK
		if err != nil {
			status = observability.StatusError
		}
		o.metrics.RecordRun(o.underlying, status, time.Since(started))
	}()

	start := domain.AtTimeOfDay(tradingDate, o.sessionStart, o.loc)
	end := domain.AtTimeOfDay(tradingDate, o.sessionEnd, o.loc)

	result = &RunResult{
		RunID:        o.newID(),
		Underlying:   o.underlying,
		TradingDate:  domain.AtTimeOfDay(tradingDate, 0, o.loc),
		SessionStart: start,
		SessionEnd:   end,
	}
	log := o.logger.With(
		zap.String("run_id", result.RunID.String()),
		zap.String("trading_date", result.TradingDate.Format(time.DateOnly)),
	)

	// Phase 1: Reference price
	ref, err := withRetry(ctx, o, "reference price", func(ctx context.Context) (decimal.Decimal, error) {
		return o.provider.GetReferencePrice(ctx, o.underlying, start)
	})
	if err != nil {
		return nil, fmt.Errorf("phase 1 (reference price at %s): %w", start.Format(time.RFC3339), err)
	}
	result.ReferencePrice = ref

	// Phase 2: Strike and instruments
	strike, err := instrument.AtmStrike(o.underlying, ref)
	if err != nil {
		return nil, fmt.Errorf("phase 2 (atm strike): %w", err)
	}
	result.Strike = strike

	ce, err := o.resolver.ResolveOption(ctx, o.underlying, strike, domain.LegTypeCE, result.TradingDate)
	if err != nil {
		return nil, fmt.Errorf("phase 2 (resolve CE %s): %w", strike, err)
	}
	pe, err := o.resolver.ResolveOption(ctx, o.underlying, strike, domain.LegTypePE, result.TradingDate)
	if err != nil {
		return nil, fmt.Errorf("phase 2 (resolve PE %s): %w", strike, err)
	}
	result.CE, result.PE = ce, pe
	log.Info("instruments resolved",
		zap.String("reference_price", ref.String()),
		zap.String("strike", strike.String()),
		zap.String("ce", ce.ID),
		zap.String("pe", pe.ID),
	)

	// Phase 3: Series
	var cePoints, pePoints []domain.PricePoint
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		cePoints, err = o.loadSeries(gctx, ce, start, end)
		return err
	})
	g.Go(func() error {
		var err error
		pePoints, err = o.loadSeries(gctx, pe, start, end)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("phase 3 (load series): %w", err)
	}

	ceSeries := strategy.LegSeries{Instrument: ce.Label(), Strike: strike, Points: cePoints}
	peSeries := strategy.LegSeries{Instrument: pe.Label(), Strike: strike, Points: pePoints}

	// Phase 4: Simulation
	cycles, err := o.simulate(ceSeries, peSeries)
	if err != nil {
		if errors.Is(err, strategy.ErrInsufficientData) {
			return nil, fmt.Errorf("%w: %s/%s in [%s, %s]: %w", ErrNoSeriesData, ce.ID, pe.ID,
				start.Format(time.RFC3339), end.Format(time.RFC3339), err)
		}
		return nil, fmt.Errorf("phase 4 (simulate %s/%s in [%s, %s]): %w", ce.ID, pe.ID,
			start.Format(time.RFC3339), end.Format(time.RFC3339), err)
	}
	result.Cycles = cycles

	runID := result.RunID.String()
	result.Records = make([]*domain.CycleRecord, 0, len(cycles))
	for _, c := range cycles {
		result.Records = append(result.Records, domain.NewCycleRecord(runID, o.underlying, ce.ID, pe.ID, c))
		o.metrics.RecordCycle(o.underlying, c)
	}

	// Phase 5: Persistence
	if o.cycleStore != nil && len(result.Records) > 0 {
		err := o.cycleStore.InsertBulk(ctx, result.Records)
		switch {
		case err == nil:
			result.Persisted = true
		case errors.Is(err, storage.ErrDuplicateKey):
			// cycle ids hash the params and entries; this day ran with the same params before
			log.Info("cycles already persisted", zap.Int("cycles", len(result.Records)))
		default:
			return nil, fmt.Errorf("phase 5 (persist %d cycles): %w", len(result.Records), err)
		}
	}

	log.Info("run completed",
		zap.Int("cycles", len(cycles)),
		zap.String("combined_pnl_percent", result.CombinedPnlPercent().StringFixed(2)),
		zap.Bool("persisted", result.Persisted),
		zap.Duration("elapsed", time.Since(started)),
	)
	return result, nil
}

// loadSeries fetches one leg's points for the window.
func (o *Orchestrator) loadSeries(ctx context.Context, inst domain.Instrument, start, end time.Time) ([]domain.PricePoint, error) {
	points, err := withRetry(ctx, o, "series "+inst.ID, func(ctx context.Context) ([]domain.PricePoint, error) {
		return o.provider.GetSeries(ctx, inst.ID, start, end)
	})
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", inst.LegType, inst.ID, err)
	}
	return points, nil
}

// simulate runs the engine once both legs are known to share the minute grid.
func (o *Orchestrator) simulate(ce, pe strategy.LegSeries) ([]*domain.Cycle, error) {
	if len(ce.Points) > 0 && len(pe.Points) > 0 {
		if err := checkMinuteGrid(ce.Points, pe.Points); err != nil {
			return nil, err
		}
	}
	return o.engine.Simulate(ce, pe)
}

// checkMinuteGrid reports the first grid time at which one leg has a sample
// and the other has none. PE samples after the last CE sample are ignored.
func checkMinuteGrid(ce, pe []domain.PricePoint) error {
	for i, c := range ce {
		if i >= len(pe) {
			return fmt.Errorf("%w: no PE sample at %s", strategy.ErrMisalignedSeries, c.Time.Format("15:04"))
		}
		p := pe[i]
		switch {
		case p.Time.After(c.Time):
			return fmt.Errorf("%w: no PE sample at %s", strategy.ErrMisalignedSeries, c.Time.Format("15:04"))
		case p.Time.Before(c.Time):
			return fmt.Errorf("%w: no CE sample at %s", strategy.ErrMisalignedSeries, p.Time.Format("15:04"))
		}
	}
	return nil
}

// withRetry calls fn up to 1+fetchRetries times. Lookups that found nothing
// and context errors are returned immediately.
func withRetry[T any](ctx context.Context, o *Orchestrator, what string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error
	for attempt := 0; attempt <= o.fetchRetries; attempt++ {
		if attempt > 0 {
			o.logger.Warn("retrying fetch",
				zap.String("what", what),
				zap.Int("attempt", attempt),
				zap.Error(lastErr),
			)
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(o.retryBackoff * time.Duration(attempt)):
			}
		}

		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		if !retryable(err) {
			return zero, err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, fmt.Errorf("%s: %w (last error: %v)", what, ctxErr, err)
		}
		lastErr = err
	}
	return zero, fmt.Errorf("%s: giving up after %d attempts: %w", what, o.fetchRetries+1, lastErr)
}

func retryable(err error) bool {
	return !errors.Is(err, series.ErrNoDataFound) &&
		!errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded)
}

// BatchResult contains results from a multi-day run.
type BatchResult struct {
	Days    []*RunResult
	Skipped []string // days without data, with the reason
}

// RunDays runs each trading date in order. Days without index data, without
// a listed contract, without series data or with a leg missing minutes are
// skipped and reported; any other error aborts the batch.
func (o *Orchestrator) RunDays(ctx context.Context, dates []time.Time) (*BatchResult, error) {
	result := &BatchResult{}
	for _, d := range dates {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		day, err := o.RunDay(ctx, d)
		if err != nil {
			if skippable(err) {
				result.Skipped = append(result.Skipped, fmt.Sprintf("%s: %v", d.Format(time.DateOnly), err))
				o.logger.Info("day skipped", zap.String("trading_date", d.Format(time.DateOnly)), zap.Error(err))
				continue
			}
			return result, fmt.Errorf("run %s: %w", d.Format(time.DateOnly), err)
		}
		result.Days = append(result.Days, day)
	}
	return result, nil
}

func skippable(err error) bool {
	return errors.Is(err, ErrNoSeriesData) ||
		errors.Is(err, strategy.ErrMisalignedSeries) ||
		errors.Is(err, series.ErrNoDataFound) ||
		errors.Is(err, instrument.ErrNotFound)
}
