package service

import (
	"fmt"
	"math"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/orb-scanner/internal/models"
)

// BarValidator screens provider bars before they reach the range builder
type BarValidator struct {
	logger logrus.FieldLogger
}

// NewBarValidator creates a new bar validator
func NewBarValidator(logger logrus.FieldLogger) *BarValidator {
	return &BarValidator{logger: logger}
}

// ValidateBar returns the reasons a bar is unusable, or nil
func (v *BarValidator) ValidateBar(bar models.Bar) []string {
	var errors []string

	if bar.Time.IsZero() {
		errors = append(errors, "timestamp is required")
	}
	for name, price := range map[string]float64{"open": bar.Open, "high": bar.High, "low": bar.Low, "close": bar.Close} {
		if math.IsNaN(price) || math.IsInf(price, 0) {
			errors = append(errors, fmt.Sprintf("%s is not a finite number", name))
		} else if price <= 0 {
			errors = append(errors, fmt.Sprintf("%s must be positive, got %v", name, price))
		}
	}
	if bar.High < bar.Low {
		errors = append(errors, fmt.Sprintf("high %v below low %v", bar.High, bar.Low))
	}
	if bar.Volume < 0 {
		errors = append(errors, "volume cannot be negative")
	}

	sort.Strings(errors)
	return errors
}

// Sanitize drops unusable bars, keeps the last bar per timestamp and
// returns the rest in time order along with the number dropped.
func (v *BarValidator) Sanitize(symbol string, bars []models.Bar) ([]models.Bar, int) {
	byTime := make(map[int64]models.Bar, len(bars))
	dropped := 0
	for _, bar := range bars {
		if problems := v.ValidateBar(bar); len(problems) > 0 {
			dropped++
			if v.logger != nil {
				v.logger.WithFields(logrus.Fields{
					"symbol": symbol,
					"time":   bar.Time,
				}).Debugf("Dropping bar: %v", problems)
			}
			continue
		}
		if _, dup := byTime[bar.Time.UnixNano()]; dup {
			dropped++
		}
		byTime[bar.Time.UnixNano()] = bar
	}

	out := make([]models.Bar, 0, len(byTime))
	for _, bar := range byTime {
		out = append(out, bar)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out, dropped
}
