package strategy

import (
	"fmt"
	"time"

	"straddle-lab/internal/domain"
)

// FromConfig builds an Engine from DefaultParams with cfg overrides applied.
// Malformed or out-of-range values are reported as ErrInvalidParameters.
func FromConfig(cfg domain.StrategyConfig) (*Engine, error) {
	params, err := ParamsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	return NewEngine(params)
}

// ParamsFromConfig merges cfg onto DefaultParams without validating ranges.
func ParamsFromConfig(cfg domain.StrategyConfig) (Params, error) {
	p := DefaultParams()

	if cfg.LegStopLossFraction != nil {
		p.LegStopLossFraction = *cfg.LegStopLossFraction
	}
	if cfg.CombinedTargetMultiple != nil {
		p.CombinedTargetMultiple = *cfg.CombinedTargetMultiple
	}
	if cfg.CombinedStopLossMultiple != nil {
		p.CombinedStopLossMultiple = *cfg.CombinedStopLossMultiple
	}
	if cfg.ReEntryEnabled != nil {
		p.ReEntryEnabled = *cfg.ReEntryEnabled
	}
	if cfg.ReEntryCutoff != nil {
		tod, err := domain.ParseTimeOfDay(*cfg.ReEntryCutoff)
		if err != nil {
			return Params{}, fmt.Errorf("%w: re_entry_cutoff: %v", ErrInvalidParameters, err)
		}
		p.ReEntryCutoff = tod
	}
	if cfg.MaxReEntries != nil {
		p.MaxReEntries = *cfg.MaxReEntries
	}
	if cfg.AlignmentTolerance != nil {
		d, err := time.ParseDuration(*cfg.AlignmentTolerance)
		if err != nil {
			return Params{}, fmt.Errorf("%w: alignment_tolerance: %v", ErrInvalidParameters, err)
		}
		p.AlignmentTolerance = d
	}

	return p, nil
}
