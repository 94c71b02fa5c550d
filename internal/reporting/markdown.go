package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString(fmt.Sprintf("# Straddle Report: %s\n\n", r.Underlying))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Days: %d | Cycles: %d\n\n", len(r.Days), len(r.Cycles)))

	// Parameters
	if len(r.Params) > 0 {
		sb.WriteString("## Parameters\n\n")
		sb.WriteString("| Parameter | Value |\n")
		sb.WriteString("|-----------|-------|\n")
		for _, p := range r.Params {
			sb.WriteString(fmt.Sprintf("| %s | %s |\n", p.Name, p.Value))
		}
		sb.WriteString("\n")
	}

	// Days
	sb.WriteString("## Days\n\n")
	if len(r.Days) > 0 {
		sb.WriteString("| Date | Run | Reference | Strike | CE | PE | Cycles | Combined PnL % |\n")
		sb.WriteString("|------|-----|-----------|--------|----|----|--------|----------------|\n")
		for _, d := range r.Days {
			ref := d.ReferencePrice
			if ref == "" {
				ref = "-"
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s | %s | %d | %s |\n",
				d.TradingDate, shortID(d.RunID), ref, d.Strike, d.CEInstrument, d.PEInstrument,
				d.Cycles, d.CombinedPnlPercent.StringFixed(2)))
		}
	} else {
		sb.WriteString("No runs available.\n")
	}
	sb.WriteString("\n")

	// Cycles
	sb.WriteString("## Cycles\n\n")
	if len(r.Cycles) > 0 {
		sb.WriteString("| Date | # | Entry | CE Entry | CE Exit | CE Reason | CE % | PE Entry | PE Exit | PE Reason | PE % | Combined % | Re-entered |\n")
		sb.WriteString("|------|---|-------|----------|---------|-----------|------|----------|---------|-----------|------|------------|------------|\n")
		for _, c := range r.Cycles {
			sb.WriteString(fmt.Sprintf("| %s | %d | %s | %s | %s @ %s | %s | %s | %s | %s @ %s | %s | %s | %s | %s |\n",
				c.TradingDate, c.Sequence, formatClock(c.EntryTime),
				c.CE.EntryPrice, c.CE.ExitPrice, formatClock(c.CE.ExitTime), c.CE.ExitReason, c.CE.PnlPercent.StringFixed(2),
				c.PE.EntryPrice, c.PE.ExitPrice, formatClock(c.PE.ExitTime), c.PE.ExitReason, c.PE.PnlPercent.StringFixed(2),
				c.CombinedPnlPercent.StringFixed(2), yesNo(c.ReEntered)))
		}
	} else {
		sb.WriteString("No cycles available.\n")
	}
	sb.WriteString("\n")

	// Skipped days
	if len(r.Skipped) > 0 {
		sb.WriteString("## Skipped\n\n")
		for _, s := range r.Skipped {
			sb.WriteString(fmt.Sprintf("- %s\n", s))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// formatClock renders the time of day of t.
func formatClock(t time.Time) string {
	return t.Format("15:04")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
