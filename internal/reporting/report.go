package reporting

import (
	"time"

	"github.com/shopspring/decimal"
)

// Report is the rendered outcome of one or more day runs.
type Report struct {
	// Metadata
	GeneratedAt time.Time `json:"generated_at"`
	Underlying  string    `json:"underlying"`

	// Parameters the engine ran with (empty when loaded from storage)
	Params []ParamRow `json:"params,omitempty"`

	// One row per run, sorted by trading date
	Days []DayRow `json:"days"`

	// Closed cycles, sorted by trading date then sequence
	Cycles []CycleRow `json:"cycles"`

	// Days that produced no run, with the reason
	Skipped []string `json:"skipped,omitempty"`
}

// ParamRow is one named engine parameter.
type ParamRow struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// DayRow summarizes a single day run.
type DayRow struct {
	RunID              string          `json:"run_id"`
	TradingDate        string          `json:"trading_date"`              // YYYY-MM-DD
	ReferencePrice     string          `json:"reference_price,omitempty"` // empty when loaded from storage
	Strike             decimal.Decimal `json:"strike"`
	CEInstrument       string          `json:"ce_instrument"`
	PEInstrument       string          `json:"pe_instrument"`
	Cycles             int             `json:"cycles"`
	CombinedPnlPercent decimal.Decimal `json:"combined_pnl_percent"`
}

// CycleRow is one closed cycle with per-leg attribution.
type CycleRow struct {
	RunID              string          `json:"run_id"`
	CycleID            string          `json:"cycle_id"`
	TradingDate        string          `json:"trading_date"`
	Sequence           int             `json:"sequence"`
	Strike             decimal.Decimal `json:"strike"`
	EntryTime          time.Time       `json:"entry_time"`
	CE                 LegRow          `json:"ce"`
	PE                 LegRow          `json:"pe"`
	CombinedPnlPercent decimal.Decimal `json:"combined_pnl_percent"`
	ReEntered          bool            `json:"re_entered"`
}

// LegRow is the exit attribution of one leg.
type LegRow struct {
	Instrument string          `json:"instrument"`
	EntryPrice decimal.Decimal `json:"entry_price"`
	ExitTime   time.Time       `json:"exit_time"`
	ExitPrice  decimal.Decimal `json:"exit_price"`
	ExitReason string          `json:"exit_reason"`
	PnlPercent decimal.Decimal `json:"pnl_percent"`
}
