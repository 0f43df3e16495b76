package repository

import (
	"time"

	"github.com/yourusername/orb-scanner/internal/models"
)

// RangeCacheRepository persists the opening range snapshots of one trading day
type RangeCacheRepository interface {
	Save(day time.Time, snapshots []models.RangeSnapshot) error
	// Load returns models.ErrNotFound when the cache is absent or belongs to another day
	Load(day time.Time) ([]models.RangeSnapshot, error)
}

// SentLedgerRepository persists the dedup ledger rows
type SentLedgerRepository interface {
	LoadAll() ([]SentRecord, error)
	Append(records []SentRecord) error
	Rewrite(records []SentRecord) error
}

// HistoryRepository is the append-only emission log
type HistoryRepository interface {
	Append(entries []models.EmissionLogEntry) error
	ReadAll() ([]models.EmissionLogEntry, error)
}

// BacktestResultRepository stores scored backtest trades
type BacktestResultRepository interface {
	Write(results []models.BacktestResult) error
	ReadAll() ([]models.BacktestResult, error)
}

// SentRecord is one ledger row
type SentRecord struct {
	Key  models.DedupKey
	Time string
}
