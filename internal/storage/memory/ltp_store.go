package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"straddle-lab/internal/domain"
	"straddle-lab/internal/lookup"
	"straddle-lab/internal/storage"
)

// instrumentSeries is the stored series of one instrument.
type instrumentSeries struct {
	underlying string
	kind       domain.InstrumentKind
	points     []domain.PricePoint // ascending by time
}

// LtpStore is an in-memory implementation of storage.LtpStore.
type LtpStore struct {
	mu     sync.RWMutex
	series map[string]*instrumentSeries // keyed by instrument_id
	keys   map[string]struct{}          // (instrument_id, unix_nano)
}

// NewLtpStore creates a new in-memory LTP store.
func NewLtpStore() *LtpStore {
	return &LtpStore{
		series: make(map[string]*instrumentSeries),
		keys:   make(map[string]struct{}),
	}
}

// tickKey generates a unique key for a tick.
func tickKey(instrumentID string, t time.Time) string {
	return fmt.Sprintf("%s|%d", instrumentID, t.UnixNano())
}

// InsertBulk adds ticks atomically. Fails entire batch on duplicate.
func (s *LtpStore) InsertBulk(_ context.Context, ticks []*domain.Tick) error {
	if len(ticks) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Track keys in this batch to detect intra-batch duplicates
	batchKeys := make(map[string]struct{}, len(ticks))

	// First pass: validate and check for duplicates (existing + intra-batch)
	for _, t := range ticks {
		if t == nil || t.InstrumentID == "" || t.Time.IsZero() {
			return storage.ErrInvalidInput
		}
		key := tickKey(t.InstrumentID, t.Time)
		if _, exists := s.keys[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	// Second pass: insert all
	touched := make(map[string]*instrumentSeries)
	for _, t := range ticks {
		ser, ok := s.series[t.InstrumentID]
		if !ok {
			ser = &instrumentSeries{underlying: t.Underlying, kind: t.Kind}
			s.series[t.InstrumentID] = ser
		}
		ser.points = append(ser.points, t.Point())
		s.keys[tickKey(t.InstrumentID, t.Time)] = struct{}{}
		touched[t.InstrumentID] = ser
	}
	for _, ser := range touched {
		sort.SliceStable(ser.points, func(i, j int) bool {
			return ser.points[i].Time.Before(ser.points[j].Time)
		})
	}

	return nil
}

// GetByTimeRange retrieves samples for an instrument within [start, end] (inclusive).
func (s *LtpStore) GetByTimeRange(_ context.Context, instrumentID string, start, end time.Time) ([]domain.PricePoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ser, ok := s.series[instrumentID]
	if !ok {
		return nil, storage.ErrNotFound
	}

	window := lookup.Window(ser.points, start, end)
	result := make([]domain.PricePoint, len(window))
	copy(result, window)
	return result, nil
}

// GetIndexAt retrieves the latest index sample for underlying at or before at.
func (s *LtpStore) GetIndexAt(_ context.Context, underlying string, at time.Time) (domain.PricePoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		best  domain.PricePoint
		found bool
	)
	for _, ser := range s.series {
		if ser.kind != domain.InstrumentKindIndex || ser.underlying != underlying {
			continue
		}
		p, err := lookup.PriceAt(at, ser.points)
		if err != nil {
			continue
		}
		if !found || p.Time.After(best.Time) {
			best, found = p, true
		}
	}
	if !found {
		return domain.PricePoint{}, storage.ErrNotFound
	}
	return best, nil
}

var _ storage.LtpStore = (*LtpStore)(nil)
