package repository

import (
	"fmt"
	"time"

	"github.com/yourusername/orb-scanner/internal/config"
)

// Repositories holds all file-backed stores
type Repositories struct {
	RangeCache     RangeCacheRepository
	SentLedger     SentLedgerRepository
	History        HistoryRepository
	BacktestResult BacktestResultRepository
}

// NewRepositories creates every store under the configured data directory
func NewRepositories(cfg *config.Config, loc *time.Location) (*Repositories, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	if loc == nil {
		return nil, fmt.Errorf("exchange location is required")
	}

	return &Repositories{
		RangeCache:     NewCSVRangeCache(cfg.Path(cfg.Storage.RangeCacheFile), loc),
		SentLedger:     NewCSVSentLedger(cfg.Path(cfg.Storage.SentLedgerFile)),
		History:        NewCSVHistory(cfg.Path(cfg.Storage.HistoryFile), loc),
		BacktestResult: NewCSVBacktestResults(cfg.Path(cfg.Backtest.ResultsFile), loc),
	}, nil
}
