package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"straddle-lab/internal/domain"
	"straddle-lab/internal/storage"
)

// CycleStore is an in-memory implementation of storage.CycleStore.
type CycleStore struct {
	mu   sync.RWMutex
	data map[string]*domain.CycleRecord // keyed by cycle_id
}

// NewCycleStore creates a new in-memory cycle store.
func NewCycleStore() *CycleStore {
	return &CycleStore{
		data: make(map[string]*domain.CycleRecord),
	}
}

// InsertBulk adds multiple records atomically. Fails entire batch on any duplicate.
func (s *CycleStore) InsertBulk(_ context.Context, records []*domain.CycleRecord) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(records))
	for _, r := range records {
		if r == nil || r.CycleID == "" || r.RunID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[r.CycleID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[r.CycleID]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[r.CycleID] = struct{}{}
	}

	for _, r := range records {
		recCopy := *r
		s.data[r.CycleID] = &recCopy
	}
	return nil
}

// GetByRunID retrieves all records of a run, ordered by sequence ASC.
func (s *CycleStore) GetByRunID(_ context.Context, runID string) ([]*domain.CycleRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.CycleRecord
	for _, r := range s.data {
		if r.RunID == runID {
			recCopy := *r
			result = append(result, &recCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Sequence < result[j].Sequence
	})
	return result, nil
}

// GetByTradingDate retrieves all records for an underlying on a trading date, entry time ASC.
func (s *CycleStore) GetByTradingDate(_ context.Context, underlying string, tradingDate time.Time) ([]*domain.CycleRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	y, m, d := tradingDate.Date()
	var result []*domain.CycleRecord
	for _, r := range s.data {
		ry, rm, rd := r.TradingDate.Date()
		if r.Underlying == underlying && ry == y && rm == m && rd == d {
			recCopy := *r
			result = append(result, &recCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].EntryTime.Equal(result[j].EntryTime) {
			return result[i].EntryTime.Before(result[j].EntryTime)
		}
		return result[i].CycleID < result[j].CycleID
	})
	return result, nil
}

var _ storage.CycleStore = (*CycleStore)(nil)
