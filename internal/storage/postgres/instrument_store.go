package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"straddle-lab/internal/domain"
	"straddle-lab/internal/storage"
)

// InstrumentStore implements storage.InstrumentStore using PostgreSQL.
type InstrumentStore struct {
	pool *Pool
}

// NewInstrumentStore creates a new InstrumentStore.
func NewInstrumentStore(pool *Pool) *InstrumentStore {
	return &InstrumentStore{pool: pool}
}

// Compile-time interface check.
var _ storage.InstrumentStore = (*InstrumentStore)(nil)

const instrumentColumns = `
	instrument_id, underlying, kind, leg_type, strike::text, expiry, trading_symbol
`

// Insert adds a new instrument. Returns ErrDuplicateKey if the id exists.
func (s *InstrumentStore) Insert(ctx context.Context, inst *domain.Instrument) error {
	if inst == nil || inst.ID == "" || inst.Underlying == "" {
		return storage.ErrInvalidInput
	}

	var (
		legType *string
		strike  *string
		expiry  *time.Time
	)
	if inst.Kind == domain.InstrumentKindOption {
		lt := string(inst.LegType)
		st := inst.Strike.String()
		ex := inst.Expiry
		legType, strike, expiry = &lt, &st, &ex
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO instruments (
			instrument_id, underlying, kind, leg_type, strike, expiry, trading_symbol
		) VALUES ($1, $2, $3, $4, $5::numeric, $6, $7)
	`, inst.ID, inst.Underlying, string(inst.Kind), legType, strike, expiry, inst.TradingSymbol)
	return storeError("insert instrument", err)
}

// GetByID retrieves an instrument by id. Returns ErrNotFound if not exists.
func (s *InstrumentStore) GetByID(ctx context.Context, id string) (*domain.Instrument, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+instrumentColumns+` FROM instruments WHERE instrument_id = $1`, id)
	inst, err := scanInstrument(row)
	if err != nil {
		return nil, storeError("get instrument "+id, err)
	}
	return inst, nil
}

// FindOptions retrieves matching option contracts expiring on or after the given date, expiry ASC.
func (s *InstrumentStore) FindOptions(ctx context.Context, underlying string, strike decimal.Decimal, legType domain.LegType, expiryOnOrAfter time.Time) ([]*domain.Instrument, error) {
	y, m, d := expiryOnOrAfter.Date()
	rows, err := s.pool.Query(ctx, `
		SELECT `+instrumentColumns+`
		FROM instruments
		WHERE kind = 'option'
		  AND underlying = $1
		  AND strike = $2::numeric
		  AND leg_type = $3
		  AND expiry >= $4
		ORDER BY expiry ASC, instrument_id ASC
	`, underlying, strike.String(), string(legType), time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
	if err != nil {
		return nil, fmt.Errorf("query options: %w", err)
	}
	defer rows.Close()

	var result []*domain.Instrument
	for rows.Next() {
		inst, err := scanInstrument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan instrument row: %w", err)
		}
		result = append(result, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate instrument rows: %w", err)
	}
	return result, nil
}

func scanInstrument(row pgx.Row) (*domain.Instrument, error) {
	var (
		inst    domain.Instrument
		kind    string
		legType *string
		strike  *string
		expiry  *time.Time
	)
	if err := row.Scan(&inst.ID, &inst.Underlying, &kind, &legType, &strike, &expiry, &inst.TradingSymbol); err != nil {
		return nil, err
	}
	inst.Kind = domain.InstrumentKind(kind)
	if legType != nil {
		inst.LegType = domain.LegType(*legType)
	}
	if expiry != nil {
		inst.Expiry = *expiry
	}
	var err error
	if inst.Strike, err = nullableDecimalFromText(strike); err != nil {
		return nil, err
	}
	return &inst, nil
}
