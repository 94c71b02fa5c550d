// Package duckdb serves LTP history from parquet exports through an embedded DuckDB.
package duckdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"straddle-lab/internal/domain"
	"straddle-lab/internal/logger"
	"straddle-lab/internal/storage"
)

// LtpStore is a read-only storage.LtpStore over a parquet file (or glob) with columns
// instrument_id, underlying, kind, ts, price.
type LtpStore struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

// Compile-time interface check.
var _ storage.LtpStore = (*LtpStore)(nil)

// Open starts an in-memory DuckDB and exposes parquetPath as the ltp_ticks view.
func Open(ctx context.Context, parquetPath string, log *logger.Logger) (*LtpStore, error) {
	if strings.ContainsRune(parquetPath, '\'') {
		return nil, fmt.Errorf("%w: parquet path contains a quote", storage.ErrInvalidInput)
	}

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	// CREATE VIEW is not expressible with squirrel.
	query := fmt.Sprintf(`
		CREATE VIEW ltp_ticks AS
		SELECT * FROM read_parquet('%s')
	`, parquetPath)
	if _, err := db.ExecContext(ctx, query); err != nil {
		db.Close()
		return nil, fmt.Errorf("create ltp_ticks view over %s: %w", parquetPath, err)
	}

	log.Debug("Opened parquet LTP store", zap.String("path", parquetPath))

	return &LtpStore{
		db:     db,
		logger: log,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}, nil
}

// Close releases the DuckDB handle.
func (s *LtpStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// InsertBulk always fails: parquet exports are immutable.
func (s *LtpStore) InsertBulk(_ context.Context, _ []*domain.Tick) error {
	return storage.ErrReadOnly
}

// GetByTimeRange retrieves samples for an instrument within [start, end] (inclusive).
func (s *LtpStore) GetByTimeRange(ctx context.Context, instrumentID string, start, end time.Time) ([]domain.PricePoint, error) {
	known, err := s.known(ctx, instrumentID)
	if err != nil {
		return nil, err
	}
	if !known {
		return nil, storage.ErrNotFound
	}

	query, args, err := s.sq.
		Select("ts", "CAST(price AS VARCHAR)").
		From("ltp_ticks").
		Where(squirrel.And{
			squirrel.Eq{"instrument_id": instrumentID},
			squirrel.GtOrEq{"ts": start.UTC()},
			squirrel.LtOrEq{"ts": end.UTC()},
		}).
		OrderBy("ts ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query ltp by time range: %w", err)
	}
	defer rows.Close()

	return scanPricePoints(rows)
}

// GetIndexAt retrieves the latest index sample for underlying at or before at.
func (s *LtpStore) GetIndexAt(ctx context.Context, underlying string, at time.Time) (domain.PricePoint, error) {
	query, args, err := s.sq.
		Select("ts", "CAST(price AS VARCHAR)").
		From("ltp_ticks").
		Where(squirrel.And{
			squirrel.Eq{"underlying": underlying},
			squirrel.Eq{"kind": string(domain.InstrumentKindIndex)},
			squirrel.LtOrEq{"ts": at.UTC()},
		}).
		OrderBy("ts DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return domain.PricePoint{}, fmt.Errorf("failed to build query: %w", err)
	}

	var (
		ts    time.Time
		price string
	)
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&ts, &price)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.PricePoint{}, storage.ErrNotFound
		}
		return domain.PricePoint{}, fmt.Errorf("query index ltp: %w", err)
	}

	d, err := decimal.NewFromString(price)
	if err != nil {
		return domain.PricePoint{}, fmt.Errorf("parse price %q: %w", price, err)
	}
	return domain.PricePoint{Time: ts, Price: d}, nil
}

// Instruments lists the distinct instrument ids in the export.
func (s *LtpStore) Instruments(ctx context.Context) ([]string, error) {
	query, args, err := s.sq.
		Select("DISTINCT instrument_id").
		From("ltp_ticks").
		OrderBy("instrument_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query instruments: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan instrument: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *LtpStore) known(ctx context.Context, instrumentID string) (bool, error) {
	query, args, err := s.sq.
		Select("COUNT(*)").
		From("ltp_ticks").
		Where(squirrel.Eq{"instrument_id": instrumentID}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build query: %w", err)
	}

	var count int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return false, fmt.Errorf("count instrument rows: %w", err)
	}
	return count > 0, nil
}

func scanPricePoints(rows *sql.Rows) ([]domain.PricePoint, error) {
	points := []domain.PricePoint{}
	for rows.Next() {
		var (
			ts    time.Time
			price string
		)
		if err := rows.Scan(&ts, &price); err != nil {
			return nil, fmt.Errorf("scan ltp row: %w", err)
		}
		d, err := decimal.NewFromString(price)
		if err != nil {
			return nil, fmt.Errorf("parse price %q: %w", price, err)
		}
		points = append(points, domain.PricePoint{Time: ts, Price: d})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ltp rows: %w", err)
	}
	return points, nil
}
