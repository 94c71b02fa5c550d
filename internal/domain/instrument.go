package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// InstrumentKind distinguishes index feeds from option contracts.
type InstrumentKind string

// Instrument kinds.
const (
	InstrumentKindIndex  InstrumentKind = "index"
	InstrumentKindOption InstrumentKind = "option"
)

// LegType is the option right of a leg.
type LegType string

// Leg types.
const (
	LegTypeCE LegType = "CE"
	LegTypePE LegType = "PE"
)

// Valid reports whether t is CE or PE.
func (t LegType) Valid() bool {
	return t == LegTypeCE || t == LegTypePE
}

// Instrument describes a tradable feed: an index or a single option contract.
// Corresponds to the instruments table in PostgreSQL.
type Instrument struct {
	ID            string          // topic name, e.g. "NSE_FO|46923"
	Underlying    string          // e.g. "BANKNIFTY"
	Kind          InstrumentKind  // index | option
	LegType       LegType         // CE | PE, empty for indices
	Strike        decimal.Decimal // zero for indices
	Expiry        time.Time       // expiry date, zero for indices
	TradingSymbol string          // exchange symbol, e.g. "BANKNIFTY24JAN48000CE"
}

// Label returns the human readable name used on trade legs.
func (i *Instrument) Label() string {
	if i.TradingSymbol != "" {
		return i.TradingSymbol
	}
	return i.ID
}
