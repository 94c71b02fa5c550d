package storage

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"straddle-lab/internal/domain"
)

// LtpReader reads stored last-traded-price samples.
type LtpReader interface {
	// GetByTimeRange retrieves samples for an instrument within [start, end] (inclusive),
	// ordered by time ASC. Returns ErrNotFound if the instrument has never been recorded;
	// a known instrument without samples in range yields an empty slice.
	GetByTimeRange(ctx context.Context, instrumentID string, start, end time.Time) ([]domain.PricePoint, error)

	// GetIndexAt retrieves the latest index sample for underlying at or before at.
	// Returns ErrNotFound if there is none.
	GetIndexAt(ctx context.Context, underlying string, at time.Time) (domain.PricePoint, error)
}

// LtpWriter appends last-traded-price samples.
type LtpWriter interface {
	// InsertBulk adds ticks atomically. Fails entire batch on duplicate (instrument_id, time).
	InsertBulk(ctx context.Context, ticks []*domain.Tick) error
}

// LtpStore is a readable and writable LTP backend.
type LtpStore interface {
	LtpReader
	LtpWriter
}

// InstrumentStore provides access to the instruments table.
type InstrumentStore interface {
	// Insert adds a new instrument. Returns ErrDuplicateKey if the id exists.
	Insert(ctx context.Context, inst *domain.Instrument) error

	// GetByID retrieves an instrument by id. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.Instrument, error)

	// FindOptions retrieves option contracts on underlying with the given strike and leg type
	// expiring on or after the given date, ordered by expiry ASC.
	FindOptions(ctx context.Context, underlying string, strike decimal.Decimal, legType domain.LegType, expiryOnOrAfter time.Time) ([]*domain.Instrument, error)
}

// CycleStore provides access to cycle_records storage.
type CycleStore interface {
	// InsertBulk adds multiple records atomically. Fails entire batch on any duplicate cycle id.
	InsertBulk(ctx context.Context, records []*domain.CycleRecord) error

	// GetByRunID retrieves all records of a run, ordered by sequence ASC.
	GetByRunID(ctx context.Context, runID string) ([]*domain.CycleRecord, error)

	// GetByTradingDate retrieves all records for an underlying on a trading date,
	// ordered by entry time ASC.
	GetByTradingDate(ctx context.Context, underlying string, tradingDate time.Time) ([]*domain.CycleRecord, error)
}
