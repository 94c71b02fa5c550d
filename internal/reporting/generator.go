package reporting

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"straddle-lab/internal/domain"
	"straddle-lab/internal/orchestrator"
	"straddle-lab/internal/storage"
	"straddle-lab/internal/strategy"
)

// Generator produces reports from run results or stored cycle records.
type Generator struct {
	cycleStore storage.CycleStore
	loc        *time.Location
	now        func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator. cycleStore may be nil when
// reports are only built from in-memory run results. Timestamps are rendered
// in loc (UTC when nil).
func NewGenerator(cycleStore storage.CycleStore, loc *time.Location) *Generator {
	if loc == nil {
		loc = time.UTC
	}
	return &Generator{
		cycleStore: cycleStore,
		loc:        loc,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// FromRuns builds a report from finished runs.
func (g *Generator) FromRuns(underlying string, params strategy.Params, runs []*orchestrator.RunResult, skipped []string) *Report {
	r := &Report{
		GeneratedAt: g.now(),
		Underlying:  underlying,
		Params:      paramRows(params),
		Days:        []DayRow{},
		Cycles:      []CycleRow{},
		Skipped:     skipped,
	}

	for _, run := range runs {
		day := g.dayRow(run.Records)
		day.RunID = run.RunID.String()
		day.TradingDate = run.TradingDate.In(g.loc).Format(time.DateOnly)
		day.ReferencePrice = run.ReferencePrice.String()
		day.Strike = run.Strike
		day.CEInstrument = run.CE.ID
		day.PEInstrument = run.PE.ID
		r.Days = append(r.Days, day)

		for _, rec := range run.Records {
			r.Cycles = append(r.Cycles, g.cycleRow(rec))
		}
	}

	sortReport(r)
	return r
}

// ForRun builds a report from the stored records of one run.
func (g *Generator) ForRun(ctx context.Context, runID string) (*Report, error) {
	if g.cycleStore == nil {
		return nil, fmt.Errorf("report for run %s: no cycle store configured", runID)
	}
	records, err := g.cycleStore.GetByRunID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", runID, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("load run %s: %w", runID, storage.ErrNotFound)
	}
	return g.fromRecords(records[0].Underlying, records), nil
}

// ForDate builds a report from every stored run of underlying on tradingDate.
func (g *Generator) ForDate(ctx context.Context, underlying string, tradingDate time.Time) (*Report, error) {
	if g.cycleStore == nil {
		return nil, fmt.Errorf("report for %s: no cycle store configured", tradingDate.Format(time.DateOnly))
	}
	records, err := g.cycleStore.GetByTradingDate(ctx, underlying, tradingDate)
	if err != nil {
		return nil, fmt.Errorf("load %s %s: %w", underlying, tradingDate.Format(time.DateOnly), err)
	}
	return g.fromRecords(underlying, records), nil
}

// fromRecords groups stored records by run.
func (g *Generator) fromRecords(underlying string, records []*domain.CycleRecord) *Report {
	r := &Report{
		GeneratedAt: g.now(),
		Underlying:  underlying,
		Days:        []DayRow{},
		Cycles:      []CycleRow{},
	}

	byRun := make(map[string][]*domain.CycleRecord)
	var order []string
	for _, rec := range records {
		if _, ok := byRun[rec.RunID]; !ok {
			order = append(order, rec.RunID)
		}
		byRun[rec.RunID] = append(byRun[rec.RunID], rec)
	}

	for _, runID := range order {
		recs := byRun[runID]
		day := g.dayRow(recs)
		first := recs[0]
		day.RunID = runID
		day.TradingDate = first.TradingDate.Format(time.DateOnly)
		day.Strike = first.Strike
		day.CEInstrument = first.CEInstrumentID
		day.PEInstrument = first.PEInstrumentID
		r.Days = append(r.Days, day)

		for _, rec := range recs {
			r.Cycles = append(r.Cycles, g.cycleRow(rec))
		}
	}

	sortReport(r)
	return r
}

// dayRow counts cycles and sums their combined PnL.
func (g *Generator) dayRow(records []*domain.CycleRecord) DayRow {
	total := decimal.Zero
	for _, rec := range records {
		total = total.Add(rec.CombinedPnlPercent)
	}
	return DayRow{Cycles: len(records), CombinedPnlPercent: total}
}

func (g *Generator) cycleRow(rec *domain.CycleRecord) CycleRow {
	return CycleRow{
		RunID:       rec.RunID,
		CycleID:     rec.CycleID,
		TradingDate: rec.TradingDate.Format(time.DateOnly),
		Sequence:    rec.Sequence,
		Strike:      rec.Strike,
		EntryTime:   rec.EntryTime.In(g.loc),
		CE: LegRow{
			Instrument: rec.CEInstrumentID,
			EntryPrice: rec.CEEntryPrice,
			ExitTime:   rec.CEExitTime.In(g.loc),
			ExitPrice:  rec.CEExitPrice,
			ExitReason: string(rec.CEExitReason),
			PnlPercent: rec.CEPnlPercent,
		},
		PE: LegRow{
			Instrument: rec.PEInstrumentID,
			EntryPrice: rec.PEEntryPrice,
			ExitTime:   rec.PEExitTime.In(g.loc),
			ExitPrice:  rec.PEExitPrice,
			ExitReason: string(rec.PEExitReason),
			PnlPercent: rec.PEPnlPercent,
		},
		CombinedPnlPercent: rec.CombinedPnlPercent,
		ReEntered:          rec.ReEntered,
	}
}

// sortReport orders days by (trading_date, run_id) and cycles by (trading_date, run_id, sequence).
func sortReport(r *Report) {
	sort.SliceStable(r.Days, func(i, j int) bool {
		if r.Days[i].TradingDate != r.Days[j].TradingDate {
			return r.Days[i].TradingDate < r.Days[j].TradingDate
		}
		return r.Days[i].RunID < r.Days[j].RunID
	})
	sort.SliceStable(r.Cycles, func(i, j int) bool {
		a, b := r.Cycles[i], r.Cycles[j]
		if a.TradingDate != b.TradingDate {
			return a.TradingDate < b.TradingDate
		}
		if a.RunID != b.RunID {
			return a.RunID < b.RunID
		}
		return a.Sequence < b.Sequence
	})
}

func paramRows(p strategy.Params) []ParamRow {
	return []ParamRow{
		{Name: "leg_stop_loss_fraction", Value: strconv.FormatFloat(p.LegStopLossFraction, 'f', -1, 64)},
		{Name: "combined_target_multiple", Value: strconv.FormatFloat(p.CombinedTargetMultiple, 'f', -1, 64)},
		{Name: "combined_stop_loss_multiple", Value: strconv.FormatFloat(p.CombinedStopLossMultiple, 'f', -1, 64)},
		{Name: "re_entry_enabled", Value: strconv.FormatBool(p.ReEntryEnabled)},
		{Name: "re_entry_cutoff", Value: domain.FormatTimeOfDay(p.ReEntryCutoff)},
		{Name: "max_re_entries", Value: strconv.Itoa(p.MaxReEntries)},
		{Name: "alignment_tolerance", Value: p.AlignmentTolerance.String()},
	}
}
