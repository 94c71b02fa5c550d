package main

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"straddle-lab/internal/config"
	"straddle-lab/internal/reporting"
)

func date(s string) time.Time {
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestTradingDates(t *testing.T) {
	tests := []struct {
		name           string
		date, from, to time.Time
		want           []string
		wantErr        bool
	}{
		{name: "single date", date: date("2024-03-14"), want: []string{"2024-03-14"}},
		{name: "range skips weekend", from: date("2024-03-14"), to: date("2024-03-19"),
			want: []string{"2024-03-14", "2024-03-15", "2024-03-18", "2024-03-19"}},
		{name: "one day range", from: date("2024-03-14"), to: date("2024-03-14"), want: []string{"2024-03-14"}},
		{name: "weekend only", from: date("2024-03-16"), to: date("2024-03-17"), wantErr: true},
		{name: "reversed", from: date("2024-03-15"), to: date("2024-03-14"), wantErr: true},
		{name: "nothing", wantErr: true},
		{name: "from without to", from: date("2024-03-14"), wantErr: true},
		{name: "date and range", date: date("2024-03-14"), from: date("2024-03-14"), to: date("2024-03-15"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tradingDates(tt.date, tt.from, tt.to)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			var days []string
			for _, d := range got {
				days = append(days, d.Format(time.DateOnly))
			}
			assert.Equal(t, tt.want, days)
		})
	}
}

func TestRender(t *testing.T) {
	report := &reporting.Report{Underlying: "BANKNIFTY"}

	md, err := render(config.FormatMarkdown, report)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(md), "# Straddle Report: BANKNIFTY"))

	js, err := render(config.FormatJSON, report)
	require.NoError(t, err)
	assert.Contains(t, string(js), `"underlying": "BANKNIFTY"`)

	csv, err := render(config.FormatCSV, report)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(csv), "run_id,"))

	_, err = render("xml", report)
	require.Error(t, err)
}
