package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"straddle-lab/internal/domain"
	"straddle-lab/internal/storage"
)

// CycleStore implements storage.CycleStore using PostgreSQL.
type CycleStore struct {
	pool *Pool
}

// NewCycleStore creates a new CycleStore.
func NewCycleStore(pool *Pool) *CycleStore {
	return &CycleStore{pool: pool}
}

// Compile-time interface check.
var _ storage.CycleStore = (*CycleStore)(nil)

const cycleColumns = `
	cycle_id, run_id, underlying, sequence,
	trading_date, strike::text, ce_instrument_id, pe_instrument_id, entry_time,
	ce_entry_price::text, ce_exit_time, ce_exit_price::text, ce_exit_reason, ce_pnl_percent::text,
	pe_entry_price::text, pe_exit_time, pe_exit_price::text, pe_exit_reason, pe_pnl_percent::text,
	combined_pnl_percent::text, re_entered
`

// InsertBulk adds multiple records atomically. Fails entire batch on any duplicate.
func (s *CycleStore) InsertBulk(ctx context.Context, records []*domain.CycleRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO cycle_records (
			cycle_id, run_id, underlying, sequence,
			trading_date, strike, ce_instrument_id, pe_instrument_id, entry_time,
			ce_entry_price, ce_exit_time, ce_exit_price, ce_exit_reason, ce_pnl_percent,
			pe_entry_price, pe_exit_time, pe_exit_price, pe_exit_reason, pe_pnl_percent,
			combined_pnl_percent, re_entered
		) VALUES (
			$1, $2, $3, $4,
			$5, $6::numeric, $7, $8, $9,
			$10::numeric, $11, $12::numeric, $13, $14::numeric,
			$15::numeric, $16, $17::numeric, $18, $19::numeric,
			$20::numeric, $21
		)
	`

	for _, r := range records {
		if r == nil || r.CycleID == "" || r.RunID == "" {
			return storage.ErrInvalidInput
		}
		_, err := tx.Exec(ctx, query,
			r.CycleID, r.RunID, r.Underlying, r.Sequence,
			dateOnly(r.TradingDate), r.Strike.String(), r.CEInstrumentID, r.PEInstrumentID, r.EntryTime,
			r.CEEntryPrice.String(), r.CEExitTime, r.CEExitPrice.String(), string(r.CEExitReason), r.CEPnlPercent.String(),
			r.PEEntryPrice.String(), r.PEExitTime, r.PEExitPrice.String(), string(r.PEExitReason), r.PEPnlPercent.String(),
			r.CombinedPnlPercent.String(), r.ReEntered,
		)
		if err != nil {
			return storeError("insert cycle record", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByRunID retrieves all records of a run, ordered by sequence ASC.
func (s *CycleStore) GetByRunID(ctx context.Context, runID string) ([]*domain.CycleRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+cycleColumns+`
		FROM cycle_records
		WHERE run_id = $1
		ORDER BY sequence ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query cycles by run id: %w", err)
	}
	defer rows.Close()

	return scanCycleRecords(rows)
}

// GetByTradingDate retrieves all records for an underlying on a trading date, entry time ASC.
func (s *CycleStore) GetByTradingDate(ctx context.Context, underlying string, tradingDate time.Time) ([]*domain.CycleRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+cycleColumns+`
		FROM cycle_records
		WHERE underlying = $1 AND trading_date = $2
		ORDER BY entry_time ASC, cycle_id ASC
	`, underlying, dateOnly(tradingDate))
	if err != nil {
		return nil, fmt.Errorf("query cycles by trading date: %w", err)
	}
	defer rows.Close()

	return scanCycleRecords(rows)
}

// dateOnly strips the clock, keeping the calendar date of t in its own location.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func scanCycleRecords(rows pgx.Rows) ([]*domain.CycleRecord, error) {
	var result []*domain.CycleRecord
	for rows.Next() {
		var (
			r                                       domain.CycleRecord
			strike, ceReason, peReason              string
			ceEntry, ceExit, cePnl, peEntry, peExit string
			pePnl, combined                         string
		)
		err := rows.Scan(
			&r.CycleID, &r.RunID, &r.Underlying, &r.Sequence,
			&r.TradingDate, &strike, &r.CEInstrumentID, &r.PEInstrumentID, &r.EntryTime,
			&ceEntry, &r.CEExitTime, &ceExit, &ceReason, &cePnl,
			&peEntry, &r.PEExitTime, &peExit, &peReason, &pePnl,
			&combined, &r.ReEntered,
		)
		if err != nil {
			return nil, fmt.Errorf("scan cycle record row: %w", err)
		}
		r.CEExitReason = domain.ExitReason(ceReason)
		r.PEExitReason = domain.ExitReason(peReason)

		if err := parseDecimals(
			decimalField{&r.Strike, strike},
			decimalField{&r.CEEntryPrice, ceEntry},
			decimalField{&r.CEExitPrice, ceExit},
			decimalField{&r.CEPnlPercent, cePnl},
			decimalField{&r.PEEntryPrice, peEntry},
			decimalField{&r.PEExitPrice, peExit},
			decimalField{&r.PEPnlPercent, pePnl},
			decimalField{&r.CombinedPnlPercent, combined},
		); err != nil {
			return nil, err
		}
		result = append(result, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cycle record rows: %w", err)
	}
	return result, nil
}
