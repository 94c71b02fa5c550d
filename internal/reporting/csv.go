package reporting

import (
	"bytes"
	"encoding/csv"
	"strconv"
)

const csvTimeLayout = "2006-01-02 15:04:05"

var csvHeader = []string{
	"run_id", "cycle_id", "trading_date", "sequence", "strike", "entry_time",
	"ce_instrument", "ce_entry_price", "ce_exit_time", "ce_exit_price", "ce_exit_reason", "ce_pnl_percent",
	"pe_instrument", "pe_entry_price", "pe_exit_time", "pe_exit_price", "pe_exit_reason", "pe_pnl_percent",
	"combined_pnl_percent", "re_entered",
}

// RenderCSV renders cycle rows as CSV, one row per cycle.
func RenderCSV(cycles []CycleRow) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return "", err
	}
	for _, c := range cycles {
		row := []string{
			c.RunID,
			c.CycleID,
			c.TradingDate,
			strconv.Itoa(c.Sequence),
			c.Strike.String(),
			c.EntryTime.Format(csvTimeLayout),
		}
		row = append(row, legColumns(c.CE)...)
		row = append(row, legColumns(c.PE)...)
		row = append(row, c.CombinedPnlPercent.StringFixed(4), strconv.FormatBool(c.ReEntered))
		if err := w.Write(row); err != nil {
			return "", err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func legColumns(l LegRow) []string {
	return []string{
		l.Instrument,
		l.EntryPrice.String(),
		l.ExitTime.Format(csvTimeLayout),
		l.ExitPrice.String(),
		l.ExitReason,
		l.PnlPercent.StringFixed(4),
	}
}
