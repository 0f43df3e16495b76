package models

import (
	"fmt"
	"time"
)

// DateLayout is the calendar date format used in every persisted file
const DateLayout = "2006-01-02"

// ClockLayout is the time-of-day format used for trigger and ledger times
const ClockLayout = "15:04:05"

// Interval represents a bar size
type Interval string

const (
	IntervalOneMinute  Interval = "1m"
	IntervalFiveMinute Interval = "5m"
	IntervalFifteen    Interval = "15m"
	IntervalOneHour    Interval = "1h"
	IntervalOneDay     Interval = "1d"
)

// Duration returns the wall-clock length of one bar
func (i Interval) Duration() (time.Duration, error) {
	switch i {
	case IntervalOneMinute:
		return time.Minute, nil
	case IntervalFiveMinute:
		return 5 * time.Minute, nil
	case IntervalFifteen:
		return 15 * time.Minute, nil
	case IntervalOneHour:
		return time.Hour, nil
	case IntervalOneDay:
		return 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("unsupported interval %q", string(i))
	}
}

// Bar represents a single OHLC candle; Time is the bar's open time
type Bar struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Valid reports whether the bar carries usable positive prices
func (b Bar) Valid() bool {
	return b.Open > 0 && b.High > 0 && b.Low > 0 && b.Close > 0 && b.Low <= b.High
}

// SessionDay truncates t to midnight of its calendar day in loc
func SessionDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}
