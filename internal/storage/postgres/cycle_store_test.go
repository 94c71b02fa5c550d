package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"straddle-lab/internal/domain"
	"straddle-lab/internal/storage"
)

func makeCycleRecord(id string, seq int, entry time.Time) *domain.CycleRecord {
	return &domain.CycleRecord{
		CycleID:            id,
		RunID:              "run-1",
		Underlying:         "BANKNIFTY",
		Sequence:           seq,
		TradingDate:        time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC),
		Strike:             decimal.NewFromInt(47000),
		CEInstrumentID:     "NSE_FO|1",
		PEInstrumentID:     "NSE_FO|2",
		EntryTime:          entry,
		CEEntryPrice:       decimal.NewFromInt(100),
		CEExitTime:         entry.Add(5 * time.Minute),
		CEExitPrice:        decimal.NewFromInt(130),
		CEExitReason:       domain.ExitReasonTarget,
		CEPnlPercent:       decimal.NewFromInt(30),
		PEEntryPrice:       decimal.NewFromInt(100),
		PEExitTime:         entry.Add(5 * time.Minute),
		PEExitPrice:        decimal.NewFromInt(125),
		PEExitReason:       domain.ExitReasonTarget,
		PEPnlPercent:       decimal.NewFromInt(25),
		CombinedPnlPercent: decimal.NewFromInt(55),
		ReEntered:          seq == 0,
	}
}

func TestCycleStore_InsertBulkAndGet(t *testing.T) {
	pool := newTestPool(t)

	store := NewCycleStore(pool)
	ctx := context.Background()

	records := []*domain.CycleRecord{
		makeCycleRecord("c2", 1, base.Add(10*time.Minute)),
		makeCycleRecord("c1", 0, base),
	}
	require.NoError(t, store.InsertBulk(ctx, records))

	got, err := store.GetByRunID(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "c1", got[0].CycleID)
	assert.Equal(t, domain.ExitReasonTarget, got[0].CEExitReason)
	assert.True(t, got[0].CombinedPnlPercent.Equal(decimal.NewFromInt(55)))
	assert.True(t, got[0].ReEntered)
	assert.True(t, got[0].EntryTime.Equal(base))

	got, err = store.GetByTradingDate(ctx, "BANKNIFTY", time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Len(t, got, 2)

	err = store.InsertBulk(ctx, []*domain.CycleRecord{makeCycleRecord("c1", 5, base)})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}
