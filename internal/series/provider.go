// Package series loads minute LTP series for the simulation engine.
package series

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"straddle-lab/internal/domain"
	"straddle-lab/internal/logger"
	"straddle-lab/internal/observability"
	"straddle-lab/internal/storage"
)

// ErrNoDataFound is returned for an unknown instrument or a missing reference price.
var ErrNoDataFound = errors.New("no data found")

// Provider supplies price series and reference prices.
type Provider interface {
	// GetSeries returns the minute series of instrumentID within [start, end],
	// ascending by time and stamped on the grid that starts at start.
	// An unknown instrument yields ErrNoDataFound; a known one with no samples in range
	// yields an empty slice and nil error.
	GetSeries(ctx context.Context, instrumentID string, start, end time.Time) ([]domain.PricePoint, error)

	// GetReferencePrice returns the latest index price of underlying at or before at.
	// Yields ErrNoDataFound if there is none.
	GetReferencePrice(ctx context.Context, underlying string, at time.Time) (decimal.Decimal, error)
}

// Options configures a StoreProvider.
type Options struct {
	Location *time.Location // timestamps are converted to this zone; nil keeps the store's
	Interval time.Duration  // resampling grid step; zero means DefaultInterval
	Backend  string         // metrics label, e.g. "postgres"
	Metrics  *observability.Metrics
	Logger   *logger.Logger
}

// StoreProvider implements Provider over any storage.LtpReader.
type StoreProvider struct {
	reader   storage.LtpReader
	loc      *time.Location
	interval time.Duration
	backend  string
	metrics  *observability.Metrics
	logger   *logger.Logger
}

// Compile-time interface check.
var _ Provider = (*StoreProvider)(nil)

// NewStoreProvider creates a StoreProvider.
func NewStoreProvider(reader storage.LtpReader, opts Options) *StoreProvider {
	if opts.Backend == "" {
		opts.Backend = "unknown"
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNop()
	}
	return &StoreProvider{
		reader:   reader,
		loc:      opts.Location,
		interval: opts.Interval,
		backend:  opts.Backend,
		metrics:  opts.Metrics,
		logger:   opts.Logger.Named("series"),
	}
}

// GetSeries implements Provider. Ticks are read from one interval before
// start so the first grid time can be filled, then resampled.
func (p *StoreProvider) GetSeries(ctx context.Context, instrumentID string, start, end time.Time) ([]domain.PricePoint, error) {
	began := time.Now()
	ticks, err := p.reader.GetByTimeRange(ctx, instrumentID, start.Add(-p.interval), end)
	p.metrics.RecordStoreQuery(p.backend, "get_series", time.Since(began), ignoreNotFound(err))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: instrument %s", ErrNoDataFound, instrumentID)
		}
		return nil, fmt.Errorf("load series %s: %w", instrumentID, err)
	}

	points := Resample(ticks, start, end, p.interval)
	if p.loc != nil {
		points = domain.InLocation(points, p.loc)
	}

	p.logger.Debug("Loaded series",
		zap.String("instrument", instrumentID),
		zap.Time("start", start),
		zap.Time("end", end),
		zap.Int("ticks", len(ticks)),
		zap.Int("points", len(points)))

	return points, nil
}

// GetReferencePrice implements Provider.
func (p *StoreProvider) GetReferencePrice(ctx context.Context, underlying string, at time.Time) (decimal.Decimal, error) {
	began := time.Now()
	point, err := p.reader.GetIndexAt(ctx, underlying, at)
	p.metrics.RecordStoreQuery(p.backend, "get_index_at", time.Since(began), ignoreNotFound(err))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return decimal.Zero, fmt.Errorf("%w: %s index price at or before %s",
				ErrNoDataFound, underlying, at.Format(time.RFC3339))
		}
		return decimal.Zero, fmt.Errorf("load %s index price: %w", underlying, err)
	}

	p.logger.Debug("Loaded reference price",
		zap.String("underlying", underlying),
		zap.Time("at", at),
		zap.Time("sample_time", point.Time),
		zap.String("price", point.Price.String()))

	return point.Price, nil
}

func ignoreNotFound(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	return err
}
