package series

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"straddle-lab/internal/domain"
)

func tick(offset time.Duration, price int64) domain.PricePoint {
	return domain.PricePoint{Time: base.Add(offset), Price: decimal.NewFromInt(price)}
}

func TestResample(t *testing.T) {
	tests := []struct {
		name      string
		points    []domain.PricePoint
		end       time.Duration
		wantTimes []time.Duration
		wantPrice []int64
	}{
		{
			name:      "already on the grid",
			points:    []domain.PricePoint{tick(0, 100), tick(time.Minute, 101), tick(2*time.Minute, 102)},
			end:       2 * time.Minute,
			wantTimes: []time.Duration{0, time.Minute, 2 * time.Minute},
			wantPrice: []int64{100, 101, 102},
		},
		{
			name: "last tick of the minute wins",
			points: []domain.PricePoint{
				tick(-20*time.Second, 99),
				tick(10*time.Second, 100), tick(40*time.Second, 103), tick(59*time.Second+999*time.Millisecond, 104),
				tick(time.Minute+30*time.Second, 106),
			},
			end:       2 * time.Minute,
			wantTimes: []time.Duration{0, time.Minute, 2 * time.Minute},
			wantPrice: []int64{99, 104, 106},
		},
		{
			name:      "quiet minute stays a gap",
			points:    []domain.PricePoint{tick(0, 100), tick(2*time.Minute, 102)},
			end:       2 * time.Minute,
			wantTimes: []time.Duration{0, 2 * time.Minute},
			wantPrice: []int64{100, 102},
		},
		{
			name:      "tick exactly one step old is stale",
			points:    []domain.PricePoint{tick(-time.Minute, 100)},
			end:       0,
			wantTimes: []time.Duration{},
			wantPrice: []int64{},
		},
		{
			name:      "trailing grid without ticks is dropped",
			points:    []domain.PricePoint{tick(0, 100)},
			end:       10 * time.Minute,
			wantTimes: []time.Duration{0},
			wantPrice: []int64{100},
		},
		{
			name:      "no ticks",
			points:    nil,
			end:       10 * time.Minute,
			wantTimes: []time.Duration{},
			wantPrice: []int64{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resample(tt.points, base, base.Add(tt.end), time.Minute)
			require.NotNil(t, got)
			require.Len(t, got, len(tt.wantTimes))
			for i := range got {
				assert.True(t, got[i].Time.Equal(base.Add(tt.wantTimes[i])), "point %d at %s", i, got[i].Time)
				assert.True(t, got[i].Price.Equal(decimal.NewFromInt(tt.wantPrice[i])), "point %d price %s", i, got[i].Price)
			}
		})
	}
}

func TestResample_InvalidWindow(t *testing.T) {
	points := []domain.PricePoint{tick(0, 100)}
	assert.Empty(t, Resample(points, base, base.Add(-time.Minute), time.Minute))
	assert.Empty(t, Resample(points, base, base.Add(time.Minute), 0))
}
