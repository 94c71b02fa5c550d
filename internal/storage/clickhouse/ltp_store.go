package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/shopspring/decimal"

	"straddle-lab/internal/domain"
	"straddle-lab/internal/storage"
)

// LtpStore implements storage.LtpStore using ClickHouse.
type LtpStore struct {
	conn *Conn
}

// NewLtpStore creates a new LtpStore.
func NewLtpStore(conn *Conn) *LtpStore {
	return &LtpStore{conn: conn}
}

// Compile-time interface check.
var _ storage.LtpStore = (*LtpStore)(nil)

// InsertBulk adds ticks. Fails entire batch on duplicate (instrument_id, ts).
// MergeTree does not enforce uniqueness, so duplicates are checked before sending.
func (s *LtpStore) InsertBulk(ctx context.Context, ticks []*domain.Tick) error {
	if len(ticks) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	type key struct {
		instrumentID string
		ms           int64
	}
	seen := make(map[key]struct{}, len(ticks))
	for _, t := range ticks {
		if t == nil || t.InstrumentID == "" || t.Time.IsZero() {
			return storage.ErrInvalidInput
		}
		k := key{t.InstrumentID, t.Time.UnixMilli()}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	// Check for duplicates against existing rows
	for _, t := range ticks {
		exists, err := s.exists(ctx, t.InstrumentID, t.Time)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO ltp_ticks (instrument_id, underlying, kind, ts, price)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, t := range ticks {
		err = batch.Append(t.InstrumentID, t.Underlying, string(t.Kind), t.Time.UTC(), t.Price)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByTimeRange retrieves samples for an instrument within [start, end] (inclusive).
func (s *LtpStore) GetByTimeRange(ctx context.Context, instrumentID string, start, end time.Time) ([]domain.PricePoint, error) {
	known, err := s.known(ctx, instrumentID)
	if err != nil {
		return nil, fmt.Errorf("check instrument: %w", err)
	}
	if !known {
		return nil, storage.ErrNotFound
	}

	query := `
		SELECT ts, price
		FROM ltp_ticks
		WHERE instrument_id = ? AND ts >= ? AND ts <= ?
		ORDER BY ts ASC
	`

	rows, err := s.conn.Query(ctx, query, instrumentID, start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanPricePoints(rows)
}

// GetIndexAt retrieves the latest index sample for underlying at or before at.
func (s *LtpStore) GetIndexAt(ctx context.Context, underlying string, at time.Time) (domain.PricePoint, error) {
	query := `
		SELECT ts, price
		FROM ltp_ticks
		WHERE underlying = ? AND kind = ? AND ts <= ?
		ORDER BY ts DESC
		LIMIT 1
	`

	rows, err := s.conn.Query(ctx, query, underlying, string(domain.InstrumentKindIndex), at.UTC())
	if err != nil {
		return domain.PricePoint{}, fmt.Errorf("query index at: %w", err)
	}
	defer rows.Close()

	points, err := scanPricePoints(rows)
	if err != nil {
		return domain.PricePoint{}, err
	}
	if len(points) == 0 {
		return domain.PricePoint{}, storage.ErrNotFound
	}
	return points[0], nil
}

// exists checks if a tick with the given key exists.
func (s *LtpStore) exists(ctx context.Context, instrumentID string, t time.Time) (bool, error) {
	query := `
		SELECT count(*) FROM ltp_ticks
		WHERE instrument_id = ? AND ts = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, instrumentID, t.UTC()).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// known reports whether any tick was ever recorded for the instrument.
func (s *LtpStore) known(ctx context.Context, instrumentID string) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx,
		`SELECT count(*) FROM ltp_ticks WHERE instrument_id = ?`, instrumentID,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// scanPricePoints scans (ts, price) rows.
func scanPricePoints(rows driver.Rows) ([]domain.PricePoint, error) {
	points := []domain.PricePoint{}

	for rows.Next() {
		var (
			ts    time.Time
			price decimal.Decimal
		)
		if err := rows.Scan(&ts, &price); err != nil {
			return nil, fmt.Errorf("scan ltp row: %w", err)
		}
		points = append(points, domain.PricePoint{Time: ts, Price: price})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ltp rows: %w", err)
	}

	return points, nil
}
