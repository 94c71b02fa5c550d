package strategy

import (
	"fmt"
	"iter"
	"time"

	"github.com/shopspring/decimal"

	"straddle-lab/internal/domain"
	"straddle-lab/internal/idhash"
)

// Engine simulates CE+PE cycles over paired minute series.
// An Engine holds no per-run state and is safe for concurrent use.
type Engine struct {
	params      Params
	fingerprint string

	legStop    decimal.Decimal
	targetMult decimal.Decimal
	stopMult   decimal.Decimal
}

// NewEngine validates params and builds an Engine.
func NewEngine(params Params) (*Engine, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		params:      params,
		fingerprint: params.Fingerprint(),
		legStop:     decimal.NewFromFloat(params.LegStopLossFraction),
		targetMult:  decimal.NewFromFloat(params.CombinedTargetMultiple),
		stopMult:    decimal.NewFromFloat(params.CombinedStopLossMultiple),
	}, nil
}

// Params returns the engine parameters.
func (e *Engine) Params() Params {
	return e.params
}

// Simulate runs every cycle and returns them in order.
// On error no cycles are returned.
func (e *Engine) Simulate(ce, pe LegSeries) ([]*domain.Cycle, error) {
	var cycles []*domain.Cycle
	for c, err := range e.Cycles(ce, pe) {
		if err != nil {
			return nil, err
		}
		cycles = append(cycles, c)
	}
	return cycles, nil
}

// Cycles lazily yields closed cycles in order. The sequence stops after
// the first error, which is yielded with a nil cycle.
func (e *Engine) Cycles(ce, pe LegSeries) iter.Seq2[*domain.Cycle, error] {
	return func(yield func(*domain.Cycle, error) bool) {
		if len(ce.Points) == 0 || len(pe.Points) == 0 {
			yield(nil, fmt.Errorf("%w: ce %s has %d points, pe %s has %d points",
				ErrInsufficientData, ce.Instrument, len(ce.Points), pe.Instrument, len(pe.Points)))
			return
		}

		entry := 0
		for seq := 0; ; seq++ {
			cycle, err := e.runCycle(ce, pe, entry, seq)
			if err != nil {
				yield(nil, err)
				return
			}

			next := cycle.ExitIndex + 1
			cycle.ReEntered = e.shouldReEnter(cycle, next, len(ce.Points))
			if !yield(cycle, nil) || !cycle.ReEntered {
				return
			}
			entry = next
		}
	}
}

func (e *Engine) shouldReEnter(c *domain.Cycle, next, n int) bool {
	if !e.params.ReEntryEnabled || next >= n {
		return false
	}
	if e.params.MaxReEntries > 0 && c.Sequence >= e.params.MaxReEntries {
		return false
	}
	return domain.TimeOfDayOf(c.ExitTime()) < e.params.ReEntryCutoff
}

// runCycle opens a cycle at index entry and walks forward until both legs are closed.
func (e *Engine) runCycle(ce, pe LegSeries, entry, seq int) (*domain.Cycle, error) {
	last := len(ce.Points) - 1

	cePoint := ce.Points[entry]
	pePoint, err := e.peAt(ce, pe, entry)
	if err != nil {
		return nil, err
	}
	if !cePoint.Price.IsPositive() {
		return nil, fmt.Errorf("%w: %s at %s: %s", ErrNonPositivePrice,
			ce.Instrument, cePoint.Time.Format("15:04"), cePoint.Price)
	}
	if !pePoint.Price.IsPositive() {
		return nil, fmt.Errorf("%w: %s at %s: %s", ErrNonPositivePrice,
			pe.Instrument, pePoint.Time.Format("15:04"), pePoint.Price)
	}

	id := idhash.ComputeCycleID(e.fingerprint, ce.Instrument, pe.Instrument, cePoint.Time.UnixMilli(), seq)
	cycle := domain.NewCycle(id, seq,
		domain.NewLeg(ce.Instrument, domain.LegTypeCE, ce.Strike, cePoint.Time, cePoint.Price),
		domain.NewLeg(pe.Instrument, domain.LegTypePE, pe.Strike, cePoint.Time, pePoint.Price),
		entry,
	)

	ceStop := cePoint.Price.Mul(e.legStop)
	peStop := pePoint.Price.Mul(e.legStop)
	entrySum := cePoint.Price.Add(pePoint.Price)
	target := entrySum.Mul(e.targetMult)
	combinedStop := entrySum.Mul(e.stopMult)

	for i := entry + 1; i <= last; i++ {
		c := ce.Points[i]
		p, err := e.peAt(ce, pe, i)
		if err != nil {
			return nil, err
		}

		// Individual stop-loss, CE first.
		if cycle.CE.IsOpen() && c.Price.LessThanOrEqual(ceStop) {
			closeLeg(&cycle.CE, c.Time, c.Price, domain.ExitReasonStopLoss)
		}
		if cycle.PE.IsOpen() && p.Price.LessThanOrEqual(peStop) {
			closeLeg(&cycle.PE, c.Time, p.Price, domain.ExitReasonStopLoss)
		}

		// Combined rules apply only while both legs are still held.
		if cycle.CE.IsOpen() && cycle.PE.IsOpen() {
			sum := c.Price.Add(p.Price)
			switch {
			case sum.GreaterThanOrEqual(target):
				closeLeg(&cycle.CE, c.Time, c.Price, domain.ExitReasonTarget)
				closeLeg(&cycle.PE, c.Time, p.Price, domain.ExitReasonTarget)
			case sum.LessThanOrEqual(combinedStop):
				closeLeg(&cycle.CE, c.Time, c.Price, domain.ExitReasonCombinedExit)
				closeLeg(&cycle.PE, c.Time, p.Price, domain.ExitReasonCombinedExit)
			}
		}

		if i == last {
			if cycle.CE.IsOpen() {
				closeLeg(&cycle.CE, c.Time, c.Price, domain.ExitReasonTimeExpiry)
			}
			if cycle.PE.IsOpen() {
				closeLeg(&cycle.PE, c.Time, p.Price, domain.ExitReasonTimeExpiry)
			}
		}

		if cycle.Close(i) {
			return cycle, nil
		}
	}

	// Entry on the final sample: nothing to walk.
	closeLeg(&cycle.CE, cePoint.Time, cePoint.Price, domain.ExitReasonTimeExpiry)
	closeLeg(&cycle.PE, cePoint.Time, pePoint.Price, domain.ExitReasonTimeExpiry)
	cycle.Close(entry)
	return cycle, nil
}

// peAt returns the PE sample paired with CE index i.
func (e *Engine) peAt(ce, pe LegSeries, i int) (domain.PricePoint, error) {
	if i >= len(pe.Points) {
		return domain.PricePoint{}, fmt.Errorf("%w: %s has no sample at index %d (ce %s %s, pe window %s)",
			ErrMisalignedSeries, pe.Instrument, i, ce.Instrument, ce.window(), pe.window())
	}
	c, p := ce.Points[i], pe.Points[i]
	skew := c.Time.Sub(p.Time)
	if skew < 0 {
		skew = -skew
	}
	if skew > e.params.AlignmentTolerance {
		return domain.PricePoint{}, fmt.Errorf("%w: index %d ce %s at %s, pe %s at %s",
			ErrMisalignedSeries, i, ce.Instrument, c.Time.Format("15:04:05"),
			pe.Instrument, p.Time.Format("15:04:05"))
	}
	return p, nil
}

// closeLeg closes an open leg. Callers check IsOpen first, so a failure
// means the exit walk is broken.
func closeLeg(l *domain.Leg, at time.Time, price decimal.Decimal, reason domain.ExitReason) {
	if err := l.Close(at, price, reason); err != nil {
		panic(fmt.Sprintf("close %s leg %s with %s at %s: %v",
			l.LegType, l.InstrumentLabel, reason, at.Format("15:04"), err))
	}
}
