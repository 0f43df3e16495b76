package models

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// ExitPolicy selects how a historical signal is closed out for scoring
type ExitPolicy string

const (
	ExitNextBar             ExitPolicy = "next_bar"
	ExitNextSessionClose    ExitPolicy = "next_session_close"
	ExitConstrainedIntraday ExitPolicy = "constrained_intraday"
)

// ParseExitPolicy validates a configured policy name
func ParseExitPolicy(raw string) (ExitPolicy, error) {
	switch ExitPolicy(strings.ToLower(strings.TrimSpace(raw))) {
	case ExitNextBar:
		return ExitNextBar, nil
	case ExitNextSessionClose:
		return ExitNextSessionClose, nil
	case ExitConstrainedIntraday:
		return ExitConstrainedIntraday, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownExitPolicy, raw)
	}
}

// Outcome classifies a scored trade
type Outcome string

const (
	OutcomeWin  Outcome = "WIN"
	OutcomeLoss Outcome = "LOSS"
)

// BacktestResult represents one signal scored under one exit policy
type BacktestResult struct {
	Symbol      string     `json:"symbol"`
	SessionDate time.Time  `json:"session_date"`
	Time        string     `json:"time"`
	Direction   Direction  `json:"direction"`
	Policy      ExitPolicy `json:"policy"`
	EntryPrice  float64    `json:"entry_price"`
	ExitPrice   float64    `json:"exit_price"`
	PnLPercent  float64    `json:"pnl_percent"`
	Outcome     Outcome    `json:"outcome"`
}

// NewBacktestResult computes P&L and outcome for a closed-out signal.
// A zero P&L is a LOSS.
func NewBacktestResult(signal Signal, policy ExitPolicy, entry, exit float64) (BacktestResult, error) {
	if entry <= 0 || exit <= 0 || math.IsNaN(entry) || math.IsNaN(exit) || math.IsInf(entry, 0) || math.IsInf(exit, 0) {
		return BacktestResult{}, fmt.Errorf("%w: entry=%v exit=%v", ErrInvalidPrice, entry, exit)
	}

	var pnl float64
	switch signal.Direction {
	case DirectionBuy:
		pnl = (exit - entry) / entry * 100
	case DirectionSell:
		pnl = (entry - exit) / entry * 100
	default:
		return BacktestResult{}, fmt.Errorf("%w: %q", ErrUnknownDirection, signal.Direction)
	}

	outcome := OutcomeLoss
	if pnl > 0 {
		outcome = OutcomeWin
	}

	return BacktestResult{
		Symbol:      signal.Symbol,
		SessionDate: signal.SessionDate,
		Time:        signal.TriggerClock(),
		Direction:   signal.Direction,
		Policy:      policy,
		EntryPrice:  entry,
		ExitPrice:   exit,
		PnLPercent:  pnl,
		Outcome:     outcome,
	}, nil
}

// Date returns the session date formatted for persistence
func (r BacktestResult) Date() string {
	return r.SessionDate.Format(DateLayout)
}

// SortResults orders results by session date then time of signal
func SortResults(results []BacktestResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if di, dj := results[i].Date(), results[j].Date(); di != dj {
			return di < dj
		}
		return results[i].Time < results[j].Time
	})
}
