package domain

import (
	"errors"
	"time"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
)

// ExitReason records which rule closed a leg.
type ExitReason string

// Exit reason codes
const (
	ExitReasonStopLoss     ExitReason = "StopLoss"
	ExitReasonTarget       ExitReason = "Target"
	ExitReasonTimeExpiry   ExitReason = "TimeExpiry"
	ExitReasonCombinedExit ExitReason = "CombinedExit"
)

// ErrLegClosed is returned when closing a leg that already has an exit.
var ErrLegClosed = errors.New("leg already closed")

var hundred = decimal.NewFromInt(100)

// LegExit is the terminal state of a leg.
type LegExit struct {
	Time       time.Time
	Price      decimal.Decimal
	Reason     ExitReason
	PnlPercent decimal.Decimal // (Price - entry) / entry * 100
}

// Leg is one option leg of a cycle.
// Exit is None while the leg is open and Some once it has been closed.
type Leg struct {
	InstrumentLabel string
	TradingDate     time.Time // midnight of the trading day
	EntryTime       time.Time
	StrikePrice     decimal.Decimal
	LegType         LegType
	EntryPrice      decimal.Decimal
	Exit            optional.Option[LegExit]
}

// NewLeg opens a leg at entryTime.
func NewLeg(label string, legType LegType, strike decimal.Decimal, entryTime time.Time, entryPrice decimal.Decimal) Leg {
	y, m, d := entryTime.Date()
	return Leg{
		InstrumentLabel: label,
		TradingDate:     time.Date(y, m, d, 0, 0, 0, 0, entryTime.Location()),
		EntryTime:       entryTime,
		StrikePrice:     strike,
		LegType:         legType,
		EntryPrice:      entryPrice,
		Exit:            optional.None[LegExit](),
	}
}

// IsOpen reports whether the leg has no exit yet.
func (l *Leg) IsOpen() bool {
	return l.Exit.IsNone()
}

// Close records the exit. A leg can be closed exactly once.
func (l *Leg) Close(at time.Time, price decimal.Decimal, reason ExitReason) error {
	if !l.IsOpen() {
		return ErrLegClosed
	}
	l.Exit = optional.Some(LegExit{
		Time:       at,
		Price:      price,
		Reason:     reason,
		PnlPercent: PnlPercent(l.EntryPrice, price),
	})
	return nil
}

// ExitTime returns the exit time, or the zero time while open.
func (l *Leg) ExitTime() time.Time {
	if l.IsOpen() {
		return time.Time{}
	}
	return l.Exit.Unwrap().Time
}

// ExitPrice returns the exit price, or zero while open.
func (l *Leg) ExitPrice() decimal.Decimal {
	if l.IsOpen() {
		return decimal.Zero
	}
	return l.Exit.Unwrap().Price
}

// ExitReason returns the exit reason, or "" while open.
func (l *Leg) ExitReason() ExitReason {
	if l.IsOpen() {
		return ""
	}
	return l.Exit.Unwrap().Reason
}

// PnlPercent returns the realized percentage change, or zero while open.
func (l *Leg) PnlPercent() decimal.Decimal {
	if l.IsOpen() {
		return decimal.Zero
	}
	return l.Exit.Unwrap().PnlPercent
}

// PnlPercent computes (exit - entry) / entry * 100.
// entry must be non-zero.
func PnlPercent(entry, exit decimal.Decimal) decimal.Decimal {
	return exit.Sub(entry).Div(entry).Mul(hundred)
}
