package lookup

import (
	"errors"
	"sort"
	"time"

	"straddle-lab/internal/domain"
)

// ErrNoPriceData is returned when no sample satisfies a lookup.
var ErrNoPriceData = errors.New("no price data available")

// PriceAt returns the latest sample at or before target.
// points must be in ascending time order.
// Returns ErrNoPriceData if the slice is empty or every sample is after target.
func PriceAt(target time.Time, points []domain.PricePoint) (domain.PricePoint, error) {
	// First index strictly after target.
	i := sort.Search(len(points), func(i int) bool {
		return points[i].Time.After(target)
	})
	if i == 0 {
		return domain.PricePoint{}, ErrNoPriceData
	}
	return points[i-1], nil
}

// Window returns the sub-slice of points with start <= Time <= end.
// points must be in ascending time order. The result shares the backing array.
func Window(points []domain.PricePoint, start, end time.Time) []domain.PricePoint {
	lo := sort.Search(len(points), func(i int) bool {
		return !points[i].Time.Before(start)
	})
	hi := sort.Search(len(points), func(i int) bool {
		return points[i].Time.After(end)
	})
	if lo >= hi {
		return nil
	}
	return points[lo:hi]
}
