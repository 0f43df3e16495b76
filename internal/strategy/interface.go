package strategy

import (
	"time"

	"github.com/yourusername/orb-scanner/internal/models"
)

// Strategy turns an opening range snapshot plus an observed price into an optional signal
type Strategy interface {
	Name() string
	Evaluate(snapshot models.RangeSnapshot, price float64, at time.Time) (models.Signal, bool)
	GetParameters() map[string]interface{}
}

// Metadata describes a strategy for logging and reports
type Metadata struct {
	Name       string                 `json:"name"`
	Version    string                 `json:"version"`
	Parameters map[string]interface{} `json:"parameters"`
}

// Describe captures the metadata of a strategy
func Describe(s Strategy, version string) Metadata {
	return Metadata{Name: s.Name(), Version: version, Parameters: s.GetParameters()}
}
