package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CycleStatus is the lifecycle state of a cycle.
type CycleStatus string

// Cycle status constants
const (
	CycleStatusOpen   CycleStatus = "OPEN"
	CycleStatusClosed CycleStatus = "CLOSED"
)

// Cycle is one CE+PE pairing from a single entry until both legs are closed.
type Cycle struct {
	ID       string // deterministic hash, see idhash.ComputeCycleID
	Sequence int    // 0-based position within the run

	CE Leg
	PE Leg

	CombinedPnlPercent decimal.Decimal // CE.PnlPercent + PE.PnlPercent, set on close
	Status             CycleStatus
	ReEntered          bool // closed before the re-entry cutoff and a new cycle follows

	EntryIndex int // series index of the entry sample
	ExitIndex  int // series index at which the cycle closed
}

// NewCycle opens a cycle with both legs open.
func NewCycle(id string, sequence int, ce, pe Leg, entryIndex int) *Cycle {
	return &Cycle{
		ID:                 id,
		Sequence:           sequence,
		CE:                 ce,
		PE:                 pe,
		CombinedPnlPercent: decimal.Zero,
		Status:             CycleStatusOpen,
		EntryIndex:         entryIndex,
		ExitIndex:          entryIndex,
	}
}

// Leg returns the leg of the given type.
func (c *Cycle) Leg(t LegType) *Leg {
	if t == LegTypePE {
		return &c.PE
	}
	return &c.CE
}

// BothClosed reports whether both legs have exited.
func (c *Cycle) BothClosed() bool {
	return !c.CE.IsOpen() && !c.PE.IsOpen()
}

// Close marks the cycle closed at index and computes the combined PnL.
// It returns false when a leg is still open or the cycle was already closed.
func (c *Cycle) Close(index int) bool {
	if c.Status == CycleStatusClosed || !c.BothClosed() {
		return false
	}
	c.CombinedPnlPercent = c.CE.PnlPercent().Add(c.PE.PnlPercent())
	c.Status = CycleStatusClosed
	c.ExitIndex = index
	return true
}

// EntryTime returns the shared entry time of both legs.
func (c *Cycle) EntryTime() time.Time {
	return c.CE.EntryTime
}

// ExitTime returns the later of the two leg exits, or the zero time while open.
func (c *Cycle) ExitTime() time.Time {
	if !c.BothClosed() {
		return time.Time{}
	}
	ce, pe := c.CE.ExitTime(), c.PE.ExitTime()
	if pe.After(ce) {
		return pe
	}
	return ce
}
