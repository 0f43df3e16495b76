package strategy

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/yourusername/orb-scanner/internal/models"
)

// OptionSuggestion is the nearest-strike option trade for a signal
type OptionSuggestion struct {
	Strike float64
	Action string
}

// RoundToStrike rounds price to the nearest multiple of step, ties to even
func RoundToStrike(price, step float64) float64 {
	if step <= 0 {
		return price
	}
	s := decimal.NewFromFloat(step)
	strike := decimal.NewFromFloat(price).Div(s).RoundBank(0).Mul(s)
	f, _ := strike.Float64()
	return f
}

// DisplaySymbol strips the exchange suffix, e.g. RELIANCE.NS becomes RELIANCE
func DisplaySymbol(symbol string) string {
	if i := strings.LastIndex(symbol, "."); i > 0 {
		return symbol[:i]
	}
	return symbol
}

// SuggestOption maps BUY to a call and SELL to a put near the rounded strike
func SuggestOption(symbol string, direction models.Direction, price, step float64) OptionSuggestion {
	strike := RoundToStrike(price, step)
	kind := "CALL"
	if direction == models.DirectionSell {
		kind = "PUT"
	}
	return OptionSuggestion{
		Strike: strike,
		Action: fmt.Sprintf("BUY %s %s near %s strike", DisplaySymbol(symbol), kind, decimal.NewFromFloat(strike).String()),
	}
}
