package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"straddle-lab/internal/domain"
)

const fullConfig = `
underlying: NIFTY
timezone: Asia/Kolkata
log_level: debug
session:
  start: "09:20"
  end: "15:10"
  fetch_retries: 5
  retry_backoff: 250ms
strategy:
  leg_stop_loss_fraction: 0.7
  re_entry_cutoff: "13:30"
  max_re_entries: 2
storage:
  backend: clickhouse
  clickhouse_dsn: clickhouse://localhost:9000/ltp
  postgres_dsn: postgres://localhost:5432/ltp
output:
  format: csv
  persist: true
ingest:
  endpoint: ws://localhost:8080/feed
  subscriptions:
    - instrument: "NSE_INDEX|Nifty 50"
      underlying: NIFTY
      kind: index
  batch_size: 100
  flush_interval: 2s
  max_pending: 1000
instruments:
  - id: "NSE_FO|40001"
    underlying: NIFTY
    leg_type: CE
    strike: "22100"
    expiry: "2024-03-14"
`

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	start, end, err := cfg.SessionOffsets()
	require.NoError(t, err)
	assert.Equal(t, 9*time.Hour+25*time.Minute, start)
	assert.Equal(t, 15*time.Hour+15*time.Minute, end)
}

func TestParse_Full(t *testing.T) {
	cfg, err := Parse([]byte(fullConfig))
	require.NoError(t, err)

	assert.Equal(t, "NIFTY", cfg.Underlying)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 5, cfg.Session.FetchRetries)
	assert.Equal(t, 250*time.Millisecond, cfg.Session.RetryBackoff)
	assert.Equal(t, BackendClickhouse, cfg.Storage.Backend)
	assert.Equal(t, FormatCSV, cfg.Output.Format)
	assert.True(t, cfg.Output.Persist)

	require.NotNil(t, cfg.Strategy.LegStopLossFraction)
	assert.Equal(t, 0.7, *cfg.Strategy.LegStopLossFraction)
	assert.Nil(t, cfg.Strategy.CombinedTargetMultiple)

	require.Len(t, cfg.Ingest.Subscriptions, 1)
	assert.Equal(t, domain.InstrumentKindIndex, cfg.Ingest.Subscriptions[0].Kind)
	assert.Equal(t, 2*time.Second, cfg.Ingest.FlushInterval)

	require.Len(t, cfg.Instruments, 1)
	loc, err := cfg.Location()
	require.NoError(t, err)
	inst, err := cfg.Instruments[0].Instrument(loc)
	require.NoError(t, err)
	assert.Equal(t, domain.LegTypeCE, inst.LegType)
	assert.True(t, inst.Strike.Equal(decimal.NewFromInt(22100)))
	assert.Equal(t, time.Date(2024, 3, 14, 0, 0, 0, 0, loc), inst.Expiry)
}

func TestParse_PartialKeepsDefaults(t *testing.T) {
	cfg, err := Parse([]byte("underlying: FINNIFTY\n"))
	require.NoError(t, err)

	assert.Equal(t, "FINNIFTY", cfg.Underlying)
	assert.Equal(t, "09:25", cfg.Session.Start)
	assert.Equal(t, BackendMemory, cfg.Storage.Backend)
	assert.Equal(t, 500, cfg.Ingest.BatchSize)
}

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown key", "underlyng: NIFTY\n"},
		{"bad backend", "storage:\n  backend: sqlite\n"},
		{"postgres without dsn", "storage:\n  backend: postgres\n"},
		{"duckdb without path", "storage:\n  backend: duckdb\n"},
		{"bad format", "output:\n  format: xml\n"},
		{"bad timezone", "timezone: Mars/Olympus\n"},
		{"bad session time", "session:\n  start: \"9h\"\n"},
		{"session reversed", "session:\n  start: \"15:15\"\n  end: \"09:25\"\n"},
		{"zero retries", "session:\n  fetch_retries: 0\n"},
		{"bad stop loss", "strategy:\n  leg_stop_loss_fraction: 1.5\n"},
		{"target below stop", "strategy:\n  combined_target_multiple: 0.8\n"},
		{"bad cutoff", "strategy:\n  re_entry_cutoff: \"2pm\"\n"},
		{"bad subscription kind", "ingest:\n  subscriptions:\n    - instrument: X\n      underlying: NIFTY\n      kind: future\n"},
		{"pending below batch", "ingest:\n  batch_size: 100\n  max_pending: 10\n"},
		{"bad instrument leg", "instruments:\n  - id: X\n    underlying: NIFTY\n    leg_type: FUT\n    strike: \"1\"\n    expiry: \"2024-03-14\"\n"},
		{"bad instrument expiry", "instruments:\n  - id: X\n    underlying: NIFTY\n    leg_type: CE\n    strike: \"1\"\n    expiry: \"14/03/2024\"\n"},
		{"malformed yaml", "session: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fullConfig), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "NIFTY", cfg.Underlying)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
