package strategy

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"straddle-lab/internal/domain"
)

// Engine errors
var (
	ErrInsufficientData  = errors.New("insufficient data")
	ErrMisalignedSeries  = errors.New("misaligned CE/PE series")
	ErrInvalidParameters = errors.New("invalid strategy parameters")
	ErrNonPositivePrice  = errors.New("non-positive entry price")
)

// Params configures the straddle exit rules.
type Params struct {
	// LegStopLossFraction closes a leg once its price is at or below entry × fraction.
	LegStopLossFraction float64 `validate:"gt=0,lte=1"`
	// CombinedTargetMultiple closes both legs once ce+pe ≥ (ceEntry+peEntry) × multiple.
	CombinedTargetMultiple float64 `validate:"gt=0,gtfield=CombinedStopLossMultiple"`
	// CombinedStopLossMultiple closes both legs once ce+pe ≤ (ceEntry+peEntry) × multiple.
	CombinedStopLossMultiple float64 `validate:"gt=0"`

	// ReEntryCutoff is the time of day before which a closed cycle may be followed by a new one.
	ReEntryCutoff  time.Duration `validate:"gte=0,lt=24h"`
	ReEntryEnabled bool
	// MaxReEntries caps the number of re-entries per run. Zero means unlimited.
	MaxReEntries int `validate:"gte=0"`

	// AlignmentTolerance is the largest allowed gap between CE and PE timestamps at one index.
	AlignmentTolerance time.Duration `validate:"gte=0"`
}

// DefaultParams returns the stock straddle rules.
func DefaultParams() Params {
	return Params{
		LegStopLossFraction:      0.75,
		CombinedTargetMultiple:   1.25,
		CombinedStopLossMultiple: 0.90,
		ReEntryCutoff:            14 * time.Hour,
		ReEntryEnabled:           true,
		MaxReEntries:             0,
		AlignmentTolerance:       time.Minute,
	}
}

// Validate checks parameter ranges.
func (p Params) Validate() error {
	if err := validator.New().Struct(p); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParameters, err)
	}
	return nil
}

// Fingerprint renders every parameter in a fixed order. Equal params give
// equal fingerprints; it is folded into cycle ids.
func (p Params) Fingerprint() string {
	return fmt.Sprintf("sl=%v|tgt=%v|csl=%v|cutoff=%s|reentry=%t|max=%d|align=%s",
		p.LegStopLossFraction,
		p.CombinedTargetMultiple,
		p.CombinedStopLossMultiple,
		p.ReEntryCutoff,
		p.ReEntryEnabled,
		p.MaxReEntries,
		p.AlignmentTolerance,
	)
}

// LegSeries is the price series of one leg together with its identity.
type LegSeries struct {
	Instrument string
	Strike     decimal.Decimal
	Points     []domain.PricePoint
}

// window renders the covered time range for error context.
func (s LegSeries) window() string {
	if len(s.Points) == 0 {
		return "[empty]"
	}
	return fmt.Sprintf("[%s, %s]",
		s.Points[0].Time.Format(time.RFC3339),
		s.Points[len(s.Points)-1].Time.Format(time.RFC3339))
}
