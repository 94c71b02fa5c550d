package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PricePoint is a single last-traded-price sample.
// Within one series Time is non-decreasing; the engine relies on that but does not check it.
type PricePoint struct {
	Time  time.Time       // sample timestamp
	Price decimal.Decimal // last traded price
}

// Tick is a stored LTP sample together with the instrument it belongs to.
// Corresponds to the ltp_data/topics tables in PostgreSQL and ltp_ticks in ClickHouse.
type Tick struct {
	InstrumentID string          // topic name, e.g. "NSE_FO|46923"
	Underlying   string          // index name, e.g. "BANKNIFTY"
	Kind         InstrumentKind  // index | option
	Time         time.Time       // received_at
	Price        decimal.Decimal // ltp
}

// Point returns the tick as a PricePoint.
func (t *Tick) Point() PricePoint {
	return PricePoint{Time: t.Time, Price: t.Price}
}

// InLocation returns a copy of the series with every timestamp converted to loc.
func InLocation(points []PricePoint, loc *time.Location) []PricePoint {
	out := make([]PricePoint, len(points))
	for i, p := range points {
		out[i] = PricePoint{Time: p.Time.In(loc), Price: p.Price}
	}
	return out
}
