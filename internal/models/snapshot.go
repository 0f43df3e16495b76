package models

import (
	"fmt"
	"time"
)

// RangeSnapshot is the opening range of one symbol on one session.
// It is built once per day and never mutated afterwards.
type RangeSnapshot struct {
	Symbol      string    `json:"symbol"`
	SessionDate time.Time `json:"session_date"`
	Open        float64   `json:"open"`
	High        float64   `json:"high"`
	Low         float64   `json:"low"`
	Close       float64   `json:"close"`
	PrevClose   *float64  `json:"prev_close,omitempty"`
}

// HasPrevClose reports whether a usable previous close is attached
func (s RangeSnapshot) HasPrevClose() bool {
	return s.PrevClose != nil && *s.PrevClose > 0
}

// Date returns the session date formatted for persistence
func (s RangeSnapshot) Date() string {
	return s.SessionDate.Format(DateLayout)
}

// Validate checks the OHLC ordering invariant
func (s RangeSnapshot) Validate() error {
	if s.Symbol == "" {
		return fmt.Errorf("%w: symbol is required", ErrInvalidSnapshot)
	}
	if s.Open <= 0 || s.High <= 0 || s.Low <= 0 || s.Close <= 0 {
		return fmt.Errorf("%w: %s prices must be positive", ErrInvalidSnapshot, s.Symbol)
	}
	if s.Low > s.Open || s.Low > s.Close || s.Open > s.High || s.Close > s.High {
		return fmt.Errorf("%w: %s violates low <= open,close <= high", ErrInvalidSnapshot, s.Symbol)
	}
	return nil
}

// WithPrevClose returns a copy carrying the given previous close
func (s RangeSnapshot) WithPrevClose(prev float64) RangeSnapshot {
	s.PrevClose = &prev
	return s
}
