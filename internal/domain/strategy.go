package domain

// StrategyConfig holds optional overrides of the straddle exit rules,
// as read from a run file. Nil fields keep the engine defaults.
type StrategyConfig struct {
	LegStopLossFraction      *float64 `yaml:"leg_stop_loss_fraction"`
	CombinedTargetMultiple   *float64 `yaml:"combined_target_multiple"`
	CombinedStopLossMultiple *float64 `yaml:"combined_stop_loss_multiple"`

	ReEntryEnabled *bool   `yaml:"re_entry_enabled"`
	ReEntryCutoff  *string `yaml:"re_entry_cutoff"` // "HH:MM"
	MaxReEntries   *int    `yaml:"max_re_entries"`

	AlignmentTolerance *string `yaml:"alignment_tolerance"` // Go duration, e.g. "1m"
}
