package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CycleRecord is a closed cycle flattened for persistence.
// Corresponds to cycle_records table in PostgreSQL.
type CycleRecord struct {
	CycleID    string // PRIMARY KEY
	RunID      string // orchestrator run identifier
	Underlying string
	Sequence   int

	TradingDate    time.Time
	Strike         decimal.Decimal
	CEInstrumentID string
	PEInstrumentID string
	EntryTime      time.Time

	CEEntryPrice decimal.Decimal
	CEExitTime   time.Time
	CEExitPrice  decimal.Decimal
	CEExitReason ExitReason
	CEPnlPercent decimal.Decimal

	PEEntryPrice decimal.Decimal
	PEExitTime   time.Time
	PEExitPrice  decimal.Decimal
	PEExitReason ExitReason
	PEPnlPercent decimal.Decimal

	CombinedPnlPercent decimal.Decimal
	ReEntered          bool
}

// NewCycleRecord flattens a closed cycle.
func NewCycleRecord(runID, underlying, ceInstrumentID, peInstrumentID string, c *Cycle) *CycleRecord {
	return &CycleRecord{
		CycleID:    c.ID,
		RunID:      runID,
		Underlying: underlying,
		Sequence:   c.Sequence,

		TradingDate:    c.CE.TradingDate,
		Strike:         c.CE.StrikePrice,
		CEInstrumentID: ceInstrumentID,
		PEInstrumentID: peInstrumentID,
		EntryTime:      c.EntryTime(),

		CEEntryPrice: c.CE.EntryPrice,
		CEExitTime:   c.CE.ExitTime(),
		CEExitPrice:  c.CE.ExitPrice(),
		CEExitReason: c.CE.ExitReason(),
		CEPnlPercent: c.CE.PnlPercent(),

		PEEntryPrice: c.PE.EntryPrice,
		PEExitTime:   c.PE.ExitTime(),
		PEExitPrice:  c.PE.ExitPrice(),
		PEExitReason: c.PE.ExitReason(),
		PEPnlPercent: c.PE.PnlPercent(),

		CombinedPnlPercent: c.CombinedPnlPercent,
		ReEntered:          c.ReEntered,
	}
}
