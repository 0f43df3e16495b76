package models

import (
	"fmt"
	"strings"
	"time"
)

// Direction represents the side of a breakout signal
type Direction string

const (
	DirectionBuy  Direction = "BUY"
	DirectionSell Direction = "SELL"
)

// ParseDirection normalizes a persisted direction label
func ParseDirection(raw string) (Direction, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case string(DirectionBuy):
		return DirectionBuy, nil
	case string(DirectionSell):
		return DirectionSell, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownDirection, raw)
	}
}

// DedupKey identifies the single emission allowed per day, symbol and direction
type DedupKey struct {
	Date      string
	Symbol    string
	Direction Direction
}

// String returns a stable textual form of the key
func (k DedupKey) String() string {
	return k.Date + "|" + k.Symbol + "|" + string(k.Direction)
}

// Signal represents a qualified opening range breakout
type Signal struct {
	Symbol          string    `json:"symbol"`
	SessionDate     time.Time `json:"session_date"`
	Direction       Direction `json:"direction"`
	Price           float64   `json:"price"`
	Open            float64   `json:"open"`
	High            float64   `json:"high"`
	Low             float64   `json:"low"`
	Close           float64   `json:"close"`
	PrevClose       float64   `json:"prev_close"`
	TriggeredAt     time.Time `json:"triggered_at"`
	Strike          float64   `json:"strike,omitempty"`
	SuggestedAction string    `json:"suggested_action,omitempty"`
}

// Key returns the dedup key of the signal
func (s Signal) Key() DedupKey {
	return DedupKey{
		Date:      s.SessionDate.Format(DateLayout),
		Symbol:    s.Symbol,
		Direction: s.Direction,
	}
}

// TriggerClock returns the trigger time of day in the session's location
func (s Signal) TriggerClock() string {
	return s.TriggeredAt.In(s.SessionDate.Location()).Format(ClockLayout)
}
