package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"straddle-lab/internal/domain"
	"straddle-lab/internal/storage"
)

// LtpStore implements storage.LtpStore over the topics and ltp_data tables.
type LtpStore struct {
	pool *Pool
}

// NewLtpStore creates a new LtpStore.
func NewLtpStore(pool *Pool) *LtpStore {
	return &LtpStore{pool: pool}
}

// Compile-time interface check.
var _ storage.LtpStore = (*LtpStore)(nil)

// InsertBulk adds ticks atomically, creating topics on first sight.
// Fails entire batch on duplicate (topic, received_at).
func (s *LtpStore) InsertBulk(ctx context.Context, ticks []*domain.Tick) error {
	if len(ticks) == 0 {
		return nil
	}

	type key struct {
		instrumentID string
		at           int64
	}
	seen := make(map[key]struct{}, len(ticks))
	for _, t := range ticks {
		if t == nil || t.InstrumentID == "" || t.Time.IsZero() {
			return storage.ErrInvalidInput
		}
		k := key{t.InstrumentID, t.Time.UnixMicro()}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	topicIDs := make(map[string]int64)
	for _, t := range ticks {
		topicID, ok := topicIDs[t.InstrumentID]
		if !ok {
			topicID, err = upsertTopic(ctx, tx, t)
			if err != nil {
				return err
			}
			topicIDs[t.InstrumentID] = topicID
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO ltp_data (topic_id, received_at, ltp)
			VALUES ($1, $2, $3::numeric)
		`, topicID, t.Time, t.Price.String())
		if err != nil {
			return storeError("insert ltp", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// upsertTopic returns the topic_id for the tick's instrument, creating the row if needed.
func upsertTopic(ctx context.Context, tx pgx.Tx, t *domain.Tick) (int64, error) {
	var indexName *string
	if t.Kind == domain.InstrumentKindIndex {
		indexName = &t.Underlying
	}

	var topicID int64
	err := tx.QueryRow(ctx, `
		INSERT INTO topics (topic_name, underlying, kind, index_name)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (topic_name) DO UPDATE SET topic_name = EXCLUDED.topic_name
		RETURNING topic_id
	`, t.InstrumentID, t.Underlying, string(t.Kind), indexName).Scan(&topicID)
	if err != nil {
		return 0, fmt.Errorf("upsert topic %s: %w", t.InstrumentID, err)
	}
	return topicID, nil
}

// GetByTimeRange retrieves samples for an instrument within [start, end] (inclusive).
func (s *LtpStore) GetByTimeRange(ctx context.Context, instrumentID string, start, end time.Time) ([]domain.PricePoint, error) {
	var topicID int64
	err := s.pool.QueryRow(ctx, `SELECT topic_id FROM topics WHERE topic_name = $1`, instrumentID).Scan(&topicID)
	if err != nil {
		return nil, storeError("get topic "+instrumentID, err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT received_at, ltp::text
		FROM ltp_data
		WHERE topic_id = $1 AND received_at BETWEEN $2 AND $3
		ORDER BY received_at ASC
	`, topicID, start, end)
	if err != nil {
		return nil, fmt.Errorf("query ltp by time range: %w", err)
	}
	defer rows.Close()

	return scanPricePoints(rows)
}

// GetIndexAt retrieves the latest index sample for underlying at or before at.
func (s *LtpStore) GetIndexAt(ctx context.Context, underlying string, at time.Time) (domain.PricePoint, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT l.received_at, l.ltp::text
		FROM ltp_data l
		JOIN topics t ON t.topic_id = l.topic_id
		WHERE t.kind = 'index' AND t.index_name = $1 AND l.received_at <= $2
		ORDER BY l.received_at DESC
		LIMIT 1
	`, underlying, at)
	if err != nil {
		return domain.PricePoint{}, fmt.Errorf("query index ltp: %w", err)
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

// scanPricePoints scans (received_at, ltp::text) rows.
func scanPricePoints(rows pgx.Rows) ([]domain.PricePoint, error) {
	points := []domain.PricePoint{}
	for rows.Next() {
		var (
			at  time.Time
			ltp string
		)
		if err := rows.Scan(&at, &ltp); err != nil {
			return nil, fmt.Errorf("scan ltp row: %w", err)
		}
		price, err := decimalFromText(ltp)
		if err != nil {
			return nil, err
		}
		points = append(points, domain.PricePoint{Time: at, Price: price})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ltp rows: %w", err)
	}
	return points, nil
}
