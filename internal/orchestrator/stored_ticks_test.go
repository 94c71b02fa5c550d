package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"straddle-lab/internal/domain"
	"straddle-lab/internal/instrument"
	"straddle-lab/internal/series"
	"straddle-lab/internal/storage/memory"
	"straddle-lab/internal/strategy"
)

// legFeed describes the ticks recorded for one leg over the first ten minutes
// of the session. Every tick is priced from the minute it is resampled into,
// base + slope × minute, so the expected minute series is known up front.
type legFeed struct {
	instrumentID string
	every        time.Duration
	offset       time.Duration // first tick at session open - 1m + offset
	base, slope  int64
	silent       func(offset time.Duration) bool // drops ticks at these session offsets
}

func (f legFeed) ticks() []*domain.Tick {
	var out []*domain.Tick
	for at := -time.Minute + f.offset; at <= 10*time.Minute; at += f.every {
		if f.silent != nil && f.silent(at) {
			continue
		}
		// grid minute that owns a tick at this offset: (m-1, m]
		minute := int64((at + time.Minute - time.Nanosecond) / time.Minute)
		out = append(out, &domain.Tick{
			InstrumentID: f.instrumentID,
			Underlying:   "BANKNIFTY",
			Kind:         domain.InstrumentKindOption,
			Time:         sessionStart.Add(at),
			Price:        decimal.NewFromInt(f.base + f.slope*minute),
		})
	}
	return out
}

func newStoredTicksOrchestrator(t *testing.T, ce, pe legFeed) *Orchestrator {
	t.Helper()
	ctx := context.Background()

	ltp := memory.NewLtpStore()
	require.NoError(t, ltp.InsertBulk(ctx, []*domain.Tick{{
		InstrumentID: "NSE_INDEX|Nifty Bank",
		Underlying:   "BANKNIFTY",
		Kind:         domain.InstrumentKindIndex,
		Time:         sessionStart.Add(-10 * time.Second),
		Price:        decimal.NewFromInt(48040),
	}}))
	require.NoError(t, ltp.InsertBulk(ctx, ce.ticks()))
	require.NoError(t, ltp.InsertBulk(ctx, pe.ticks()))

	instruments := memory.NewInstrumentStore()
	for _, inst := range []domain.Instrument{ceInstrument, peInstrument} {
		inst.Expiry = time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)
		require.NoError(t, instruments.Insert(ctx, &inst))
	}

	engine, err := strategy.NewEngine(strategy.DefaultParams())
	require.NoError(t, err)

	o, err := New(Options{
		Provider:   series.NewStoreProvider(ltp, series.Options{Location: ist, Backend: "memory"}),
		Resolver:   instrument.NewStoreResolver(instruments, nil),
		Engine:     engine,
		Underlying: "BANKNIFTY",
		Location:   ist,
		NewRunID:   func() uuid.UUID { return fixedRunID },
	})
	require.NoError(t, err)
	return o
}

func TestRunDay_FromStoredTicks(t *testing.T) {
	peGap := func(at time.Duration) bool { return at > 3*time.Minute && at <= 4*time.Minute }

	tests := []struct {
		name    string
		ce, pe  legFeed
		wantErr string // empty for a successful run
	}{
		{
			name: "ce every 10s, pe every 30s",
			ce:   legFeed{instrumentID: ceInstrument.ID, every: 10 * time.Second, base: 100, slope: 3},
			pe:   legFeed{instrumentID: peInstrument.ID, every: 30 * time.Second, base: 100, slope: 2},
		},
		{
			name: "millisecond ticks off the minute",
			ce:   legFeed{instrumentID: ceInstrument.ID, every: 7*time.Second + 130*time.Millisecond, offset: 250 * time.Millisecond, base: 100, slope: 3},
			pe:   legFeed{instrumentID: peInstrument.ID, every: 23*time.Second + 910*time.Millisecond, offset: 4 * time.Second, base: 100, slope: 2},
		},
		{
			name:    "pe silent for a minute",
			ce:      legFeed{instrumentID: ceInstrument.ID, every: 10 * time.Second, base: 100, slope: 3},
			pe:      legFeed{instrumentID: peInstrument.ID, every: 30 * time.Second, base: 100, slope: 2, silent: peGap},
			wantErr: "no PE sample at 09:29",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := newStoredTicksOrchestrator(t, tt.ce, tt.pe)

			result, err := o.RunDay(context.Background(), day)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.ErrorIs(t, err, strategy.ErrMisalignedSeries)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)

			// sum reaches 1.25 × 200 at minute 10: 130 + 120
			require.Len(t, result.Cycles, 1)
			c := result.Cycles[0]
			assert.True(t, c.EntryTime().Equal(sessionStart))
			assert.Equal(t, domain.ExitReasonTarget, c.CE.ExitReason())
			assert.Equal(t, domain.ExitReasonTarget, c.PE.ExitReason())
			assert.True(t, c.ExitTime().Equal(sessionStart.Add(10*time.Minute)), "exit at %s", c.ExitTime())
			assert.True(t, c.CE.EntryPrice.Equal(decimal.NewFromInt(100)))
			assert.True(t, c.CE.ExitPrice().Equal(decimal.NewFromInt(130)))
			assert.True(t, c.PE.ExitPrice().Equal(decimal.NewFromInt(120)))
			assert.False(t, c.ReEntered)
		})
	}
}

func TestRunDays_SkipsDayWithSilentLeg(t *testing.T) {
	o := newStoredTicksOrchestrator(t,
		legFeed{instrumentID: ceInstrument.ID, every: 10 * time.Second, base: 100, slope: 3},
		legFeed{instrumentID: peInstrument.ID, every: 30 * time.Second, base: 100, slope: 2,
			silent: func(at time.Duration) bool { return at > 5*time.Minute && at <= 6*time.Minute }},
	)

	result, err := o.RunDays(context.Background(), []time.Time{day})
	require.NoError(t, err)
	assert.Empty(t, result.Days)
	require.Len(t, result.Skipped, 1)
	assert.Contains(t, result.Skipped[0], "2024-03-14")
	assert.Contains(t, result.Skipped[0], "no PE sample at 09:31")
}
