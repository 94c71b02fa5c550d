// Package config loads the YAML run file shared by the backtest and ingest commands.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
	_ "time/tzdata" // market zones resolve on hosts without zoneinfo

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"straddle-lab/internal/domain"
	"straddle-lab/internal/ingestion"
	"straddle-lab/internal/strategy"
)

// ErrInvalidConfig is returned by Validate and Load for unusable settings.
var ErrInvalidConfig = errors.New("invalid config")

// Storage backends.
const (
	BackendMemory     = "memory"
	BackendPostgres   = "postgres"
	BackendClickhouse = "clickhouse"
	BackendDuckDB     = "duckdb"
)

// Output formats.
const (
	FormatJSON     = "json"
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
)

// Config is the full run file.
type Config struct {
	Underlying string `yaml:"underlying" validate:"required"`
	Timezone   string `yaml:"timezone" validate:"required"`
	LogLevel   string `yaml:"log_level" validate:"oneof=debug info warn error"`

	Session     Session               `yaml:"session"`
	Strategy    domain.StrategyConfig `yaml:"strategy"`
	Storage     Storage               `yaml:"storage"`
	Output      Output                `yaml:"output"`
	Ingest      Ingest                `yaml:"ingest"`
	Instruments []InstrumentConfig    `yaml:"instruments" validate:"dive"`
}

// Session is the intraday trading window, as "HH:MM" in Timezone.
type Session struct {
	Start        string        `yaml:"start" validate:"required"`
	End          string        `yaml:"end" validate:"required"`
	FetchRetries int           `yaml:"fetch_retries" validate:"gte=1,lte=10"`
	RetryBackoff time.Duration `yaml:"retry_backoff" validate:"gte=0"`
}

// Storage selects where LTP series, instruments and cycle results live.
// The clickhouse and duckdb backends only hold LTP series; instruments and
// cycles then come from PostgresDSN when set and from memory otherwise.
type Storage struct {
	Backend       string `yaml:"backend" validate:"oneof=memory postgres clickhouse duckdb"`
	PostgresDSN   string `yaml:"postgres_dsn" validate:"required_if=Backend postgres"`
	ClickhouseDSN string `yaml:"clickhouse_dsn" validate:"required_if=Backend clickhouse"`
	ParquetPath   string `yaml:"parquet_path" validate:"required_if=Backend duckdb"`
}

// Output controls report rendering.
type Output struct {
	Format  string `yaml:"format" validate:"oneof=json csv markdown"`
	Path    string `yaml:"path"` // empty writes to stdout
	Persist bool   `yaml:"persist"`
}

// Ingest configures cmd/ingest.
type Ingest struct {
	Endpoint      string                   `yaml:"endpoint" validate:"omitempty,url"`
	Subscriptions []ingestion.Subscription `yaml:"subscriptions" validate:"dive"`
	BatchSize     int                      `yaml:"batch_size" validate:"gte=1"`
	FlushInterval time.Duration            `yaml:"flush_interval" validate:"gt=0"`
	MaxPending    int                      `yaml:"max_pending" validate:"gtefield=BatchSize"`
	MetricsAddr   string                   `yaml:"metrics_addr"`
}

// InstrumentConfig seeds the in-memory instrument store when no Postgres
// instrument table is configured.
type InstrumentConfig struct {
	ID            string `yaml:"id" validate:"required"`
	Underlying    string `yaml:"underlying" validate:"required"`
	LegType       string `yaml:"leg_type" validate:"oneof=CE PE"`
	Strike        string `yaml:"strike" validate:"required,number"`
	Expiry        string `yaml:"expiry" validate:"required,datetime=2006-01-02"`
	TradingSymbol string `yaml:"trading_symbol"`
}

// Default returns the stock BANKNIFTY configuration on in-memory storage.
func Default() *Config {
	return &Config{
		Underlying: "BANKNIFTY",
		Timezone:   "Asia/Kolkata",
		LogLevel:   "info",
		Session: Session{
			Start:        "09:25",
			End:          "15:15",
			FetchRetries: 3,
			RetryBackoff: 500 * time.Millisecond,
		},
		Storage: Storage{Backend: BackendMemory},
		Output:  Output{Format: FormatMarkdown},
		Ingest: Ingest{
			BatchSize:     500,
			FlushInterval: time.Second,
			MaxPending:    100000,
			MetricsAddr:   ":9090",
		},
	}
}

// Load reads path over Default and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over Default and validates the result.
// Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := decodeStrict(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks struct tags, then the values tags cannot express:
// the time zone, the session window and the strategy overrides.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if _, err := c.Location(); err != nil {
		return fmt.Errorf("%w: timezone %q: %v", ErrInvalidConfig, c.Timezone, err)
	}

	start, end, err := c.SessionOffsets()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if start >= end {
		return fmt.Errorf("%w: session start %s is not before end %s", ErrInvalidConfig, c.Session.Start, c.Session.End)
	}

	params, err := strategy.ParamsFromConfig(c.Strategy)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := params.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Location loads the configured market time zone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// SessionOffsets returns the session bounds as offsets from midnight.
func (c *Config) SessionOffsets() (start, end time.Duration, err error) {
	start, err = domain.ParseTimeOfDay(c.Session.Start)
	if err != nil {
		return 0, 0, fmt.Errorf("session start: %w", err)
	}
	end, err = domain.ParseTimeOfDay(c.Session.End)
	if err != nil {
		return 0, 0, fmt.Errorf("session end: %w", err)
	}
	return start, end, nil
}

// Instrument converts a seed entry to a domain instrument expiring in loc.
func (ic InstrumentConfig) Instrument(loc *time.Location) (*domain.Instrument, error) {
	strike, err := decimal.NewFromString(ic.Strike)
	if err != nil {
		return nil, fmt.Errorf("instrument %s: strike: %w", ic.ID, err)
	}
	expiry, err := time.ParseInLocation("2006-01-02", ic.Expiry, loc)
	if err != nil {
		return nil, fmt.Errorf("instrument %s: expiry: %w", ic.ID, err)
	}
	return &domain.Instrument{
		ID:            ic.ID,
		Underlying:    ic.Underlying,
		Kind:          domain.InstrumentKindOption,
		LegType:       domain.LegType(ic.LegType),
		Strike:        strike,
		Expiry:        expiry,
		TradingSymbol: ic.TradingSymbol,
	}, nil
}

func decodeStrict(data []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		// an empty file keeps the defaults
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	return nil
}
