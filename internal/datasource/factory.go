package datasource

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/orb-scanner/internal/config"
)

// SourceType represents the type of bar source
type SourceType string

const (
	// YahooSourceType is the Yahoo Finance chart API
	YahooSourceType SourceType = "yahoo"
	// PolygonSourceType is the Polygon aggregates API
	PolygonSourceType SourceType = "polygon"
)

// Factory creates BarSource implementations based on configuration
type Factory struct {
	logger logrus.FieldLogger
	config config.DataSourceConfig
}

// NewFactory creates a new data source factory
func NewFactory(cfg config.DataSourceConfig, logger logrus.FieldLogger) *Factory {
	return &Factory{logger: logger, config: cfg}
}

// NewBarSource builds the configured provider. Yahoo goes through the shared
// rate-limited client; Polygon uses its own SDK transport.
func (f *Factory) NewBarSource(httpClient *RateLimitedHTTPClient) (BarSource, error) {
	var source BarSource
	switch SourceType(f.config.Provider) {
	case YahooSourceType:
		if httpClient == nil {
			return nil, fmt.Errorf("HTTP client is required for the yahoo source")
		}
		source = NewYahooSource(httpClient, f.config.BaseURL, f.logger)
	case PolygonSourceType:
		if f.config.APIKey == "" {
			return nil, fmt.Errorf("polygon API key is required")
		}
		source = NewPolygonSource(f.config.APIKey, f.logger)
	default:
		return nil, fmt.Errorf("unknown data source: %s (available: %v)", f.config.Provider, f.ListAvailableSources())
	}

	if f.logger != nil {
		f.logger.WithField("source", source.Name()).Info("Created bar source")
	}
	return source, nil
}

// ListAvailableSources returns the supported provider types
func (f *Factory) ListAvailableSources() []SourceType {
	return []SourceType{YahooSourceType, PolygonSourceType}
}
