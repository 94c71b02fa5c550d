package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"straddle-lab/internal/domain"
	"straddle-lab/internal/storage"
)

// InstrumentStore is an in-memory implementation of storage.InstrumentStore.
type InstrumentStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Instrument // keyed by id
}

// NewInstrumentStore creates a new in-memory instrument store.
func NewInstrumentStore() *InstrumentStore {
	return &InstrumentStore{
		data: make(map[string]*domain.Instrument),
	}
}

// Insert adds a new instrument. Returns ErrDuplicateKey if the id exists.
func (s *InstrumentStore) Insert(_ context.Context, inst *domain.Instrument) error {
	if inst == nil || inst.ID == "" || inst.Underlying == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[inst.ID]; exists {
		return storage.ErrDuplicateKey
	}

	instCopy := *inst
	s.data[inst.ID] = &instCopy
	return nil
}

// GetByID retrieves an instrument by id. Returns ErrNotFound if not exists.
func (s *InstrumentStore) GetByID(_ context.Context, id string) (*domain.Instrument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inst, ok := s.data[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	instCopy := *inst
	return &instCopy, nil
}

// FindOptions retrieves matching option contracts expiring on or after the given date, expiry ASC.
func (s *InstrumentStore) FindOptions(_ context.Context, underlying string, strike decimal.Decimal, legType domain.LegType, expiryOnOrAfter time.Time) ([]*domain.Instrument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Instrument
	for _, inst := range s.data {
		if inst.Kind != domain.InstrumentKindOption ||
			inst.Underlying != underlying ||
			inst.LegType != legType ||
			!inst.Strike.Equal(strike) ||
			inst.Expiry.Before(expiryOnOrAfter) {
			continue
		}
		instCopy := *inst
		result = append(result, &instCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].Expiry.Equal(result[j].Expiry) {
			return result[i].Expiry.Before(result[j].Expiry)
		}
		return result[i].ID < result[j].ID
	})

	return result, nil
}

var _ storage.InstrumentStore = (*InstrumentStore)(nil)
