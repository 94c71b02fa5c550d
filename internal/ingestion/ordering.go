package ingestion

import (
	"errors"
	"sort"

	"straddle-lab/internal/domain"
)

// ErrInvalidOrdering is returned when ticks are not properly ordered.
var ErrInvalidOrdering = errors.New("ticks are not in deterministic order")

// SortTicks orders ticks by (time ASC, instrument_id ASC).
func SortTicks(ticks []*domain.Tick) {
	sort.SliceStable(ticks, func(i, j int) bool {
		return compareTicks(ticks[i], ticks[j]) < 0
	})
}

// ValidateTickOrdering checks if ticks are strictly ordered.
// Returns ErrInvalidOrdering if not.
func ValidateTickOrdering(ticks []*domain.Tick) error {
	for i := 1; i < len(ticks); i++ {
		if compareTicks(ticks[i-1], ticks[i]) >= 0 {
			return ErrInvalidOrdering
		}
	}
	return nil
}

// compareTicks returns:
//   - negative if a < b
//   - zero if a == b
//   - positive if a > b
func compareTicks(a, b *domain.Tick) int {
	if c := a.Time.Compare(b.Time); c != 0 {
		return c
	}
	switch {
	case a.InstrumentID < b.InstrumentID:
		return -1
	case a.InstrumentID > b.InstrumentID:
		return 1
	}
	return 0
}
