package lookup

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"straddle-lab/internal/domain"
)

var base = time.Date(2024, 3, 14, 9, 25, 0, 0, time.UTC)

func minute(n int) time.Time {
	return base.Add(time.Duration(n) * time.Minute)
}

func points(prices ...int64) []domain.PricePoint {
	out := make([]domain.PricePoint, len(prices))
	for i, p := range prices {
		out[i] = domain.PricePoint{Time: minute(i), Price: decimal.NewFromInt(p)}
	}
	return out
}

func TestPriceAt_EmptySlice(t *testing.T) {
	_, err := PriceAt(base, nil)
	if !errors.Is(err, ErrNoPriceData) {
		t.Errorf("expected ErrNoPriceData, got %v", err)
	}
}

func TestPriceAt_ExactMatch(t *testing.T) {
	p, err := PriceAt(minute(1), points(100, 200, 300))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.Price.Equal(decimal.NewFromInt(200)) {
		t.Errorf("expected 200, got %s", p.Price)
	}
}

func TestPriceAt_BeforeTarget(t *testing.T) {
	// 30s after the second sample still resolves to it.
	p, err := PriceAt(minute(1).Add(30*time.Second), points(100, 200, 300))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.Time.Equal(minute(1)) {
		t.Errorf("expected sample at %v, got %v", minute(1), p.Time)
	}
}

func TestPriceAt_BeforeFirst(t *testing.T) {
	_, err := PriceAt(minute(-1), points(100, 200))
	if !errors.Is(err, ErrNoPriceData) {
		t.Errorf("expected ErrNoPriceData, got %v", err)
	}
}

func TestPriceAt_AfterLast(t *testing.T) {
	p, err := PriceAt(minute(60), points(100, 200, 300))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.Price.Equal(decimal.NewFromInt(300)) {
		t.Errorf("expected 300, got %s", p.Price)
	}
}

func TestWindow(t *testing.T) {
	pts := points(1, 2, 3, 4, 5)

	tests := []struct {
		name       string
		start, end time.Time
		want       int
	}{
		{"all", minute(0), minute(4), 5},
		{"inclusive bounds", minute(1), minute(3), 3},
		{"between samples", minute(1).Add(time.Second), minute(3).Add(-time.Second), 1},
		{"before series", minute(-10), minute(-1), 0},
		{"after series", minute(5), minute(10), 0},
		{"inverted", minute(3), minute(1), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Window(pts, tt.start, tt.end)
			if len(got) != tt.want {
				t.Errorf("expected %d points, got %d", tt.want, len(got))
			}
		})
	}
}
