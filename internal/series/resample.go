package series

import (
	"time"

	"straddle-lab/internal/domain"
	"straddle-lab/internal/lookup"
)

// DefaultInterval is the grid step of series handed to the engine.
const DefaultInterval = time.Minute

// Resample snaps ascending ticks onto the grid start, start+step, ... <= end.
// Each grid time takes the price of the last tick at or before it, provided
// that tick is less than one step old. Grid times without such a tick are
// left out, so a quiet minute stays a gap.
func Resample(points []domain.PricePoint, start, end time.Time, step time.Duration) []domain.PricePoint {
	if step <= 0 || len(points) == 0 || end.Before(start) {
		return []domain.PricePoint{}
	}

	out := make([]domain.PricePoint, 0, int(end.Sub(start)/step)+1)
	for g := start; !g.After(end); g = g.Add(step) {
		p, err := lookup.PriceAt(g, points)
		if err != nil || !p.Time.After(g.Add(-step)) {
			continue
		}
		out = append(out, domain.PricePoint{Time: g, Price: p.Price})
	}
	return out
}
