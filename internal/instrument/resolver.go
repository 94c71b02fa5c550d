// Package instrument maps a strike and leg type to a concrete option contract.
package instrument

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"straddle-lab/internal/domain"
	"straddle-lab/internal/logger"
	"straddle-lab/internal/storage"
)

// Resolution errors
var (
	ErrNotFound          = errors.New("instrument not found")
	ErrUnknownUnderlying = errors.New("unknown underlying")
	ErrInvalidLegType    = errors.New("invalid leg type")
	ErrInvalidPrice      = errors.New("invalid price")
)

// Resolver finds the option contract for a strike and leg type.
type Resolver interface {
	// ResolveOption returns the nearest-expiry contract on underlying with the given
	// strike and leg type that is still live on tradingDate. Returns ErrNotFound if none.
	ResolveOption(ctx context.Context, underlying string, strike decimal.Decimal, legType domain.LegType, tradingDate time.Time) (domain.Instrument, error)
}

// StoreResolver implements Resolver over storage.InstrumentStore.
type StoreResolver struct {
	store  storage.InstrumentStore
	logger *logger.Logger
}

// Compile-time interface check.
var _ Resolver = (*StoreResolver)(nil)

// NewStoreResolver creates a StoreResolver. A nil log discards output.
func NewStoreResolver(store storage.InstrumentStore, log *logger.Logger) *StoreResolver {
	if log == nil {
		log = logger.NewNop()
	}
	return &StoreResolver{store: store, logger: log.Named("instrument")}
}

// ResolveOption implements Resolver.
func (r *StoreResolver) ResolveOption(ctx context.Context, underlying string, strike decimal.Decimal, legType domain.LegType, tradingDate time.Time) (domain.Instrument, error) {
	if !legType.Valid() {
		return domain.Instrument{}, fmt.Errorf("%w: %q", ErrInvalidLegType, legType)
	}
	underlying = strings.ToUpper(underlying)

	y, m, d := tradingDate.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	candidates, err := r.store.FindOptions(ctx, underlying, strike, legType, day)
	if err != nil {
		return domain.Instrument{}, fmt.Errorf("find %s %s %s options: %w", underlying, strike, legType, err)
	}
	if len(candidates) == 0 {
		return domain.Instrument{}, fmt.Errorf("%w: %s %s %s live on %s",
			ErrNotFound, underlying, strike, legType, day.Format(time.DateOnly))
	}

	inst := *candidates[0]
	r.logger.Debug("Resolved option",
		zap.String("underlying", underlying),
		zap.String("strike", strike.String()),
		zap.String("leg", string(legType)),
		zap.String("instrument", inst.ID),
		zap.Time("expiry", inst.Expiry))

	return inst, nil
}
