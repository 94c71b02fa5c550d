package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"straddle-lab/internal/domain"
)

func ptr[T any](v T) *T { return &v }

func TestFromConfig_Defaults(t *testing.T) {
	e, err := FromConfig(domain.StrategyConfig{})
	require.NoError(t, err)
	assert.Equal(t, DefaultParams(), e.Params())
}

func TestFromConfig_Overrides(t *testing.T) {
	cfg := domain.StrategyConfig{
		LegStopLossFraction:      ptr(0.6),
		CombinedTargetMultiple:   ptr(1.5),
		CombinedStopLossMultiple: ptr(0.8),
		ReEntryEnabled:           ptr(false),
		ReEntryCutoff:            ptr("13:30"),
		MaxReEntries:             ptr(3),
		AlignmentTolerance:       ptr("30s"),
	}

	e, err := FromConfig(cfg)
	require.NoError(t, err)

	p := e.Params()
	assert.Equal(t, 0.6, p.LegStopLossFraction)
	assert.Equal(t, 1.5, p.CombinedTargetMultiple)
	assert.Equal(t, 0.8, p.CombinedStopLossMultiple)
	assert.False(t, p.ReEntryEnabled)
	assert.Equal(t, 13*time.Hour+30*time.Minute, p.ReEntryCutoff)
	assert.Equal(t, 3, p.MaxReEntries)
	assert.Equal(t, 30*time.Second, p.AlignmentTolerance)
}

func TestFromConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		cfg  domain.StrategyConfig
	}{
		{"bad cutoff", domain.StrategyConfig{ReEntryCutoff: ptr("2pm")}},
		{"bad tolerance", domain.StrategyConfig{AlignmentTolerance: ptr("soon")}},
		{"stop fraction out of range", domain.StrategyConfig{LegStopLossFraction: ptr(1.2)}},
		{"target not above stop", domain.StrategyConfig{CombinedTargetMultiple: ptr(0.9)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromConfig(tt.cfg)
			assert.ErrorIs(t, err, ErrInvalidParameters)
		})
	}
}
