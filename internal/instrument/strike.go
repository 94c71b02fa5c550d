package instrument

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// strikeSteps is the listed strike interval per underlying.
var strikeSteps = map[string]int64{
	"BANKNIFTY":  100,
	"NIFTY":      50,
	"FINNIFTY":   50,
	"MIDCPNIFTY": 25,
	"SENSEX":     100,
	"BANKEX":     100,
}

// StrikeStep returns the strike interval of underlying.
func StrikeStep(underlying string) (decimal.Decimal, error) {
	step, ok := strikeSteps[strings.ToUpper(underlying)]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrUnknownUnderlying, underlying)
	}
	return decimal.NewFromInt(step), nil
}

// AtmStrike rounds price to the nearest listed strike of underlying. Halves round up.
func AtmStrike(underlying string, price decimal.Decimal) (decimal.Decimal, error) {
	step, err := StrikeStep(underlying)
	if err != nil {
		return decimal.Zero, err
	}
	if !price.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: reference price %s", ErrInvalidPrice, price)
	}
	return price.Div(step).Round(0).Mul(step), nil
}
