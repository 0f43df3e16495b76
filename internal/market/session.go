// Package market models the exchange trading calendar and session windows.
package market

import (
	"fmt"
	"time"

	"github.com/yourusername/orb-scanner/internal/config"
	"github.com/yourusername/orb-scanner/internal/models"
)

// Window is a wall-clock interval [Start, End) expressed as offsets from midnight
type Window struct {
	Start time.Duration
	End   time.Duration
}

// ParseWindow builds a window from two HH:MM values
func ParseWindow(start, end string) (Window, error) {
	s, err := config.ParseClock(start)
	if err != nil {
		return Window{}, err
	}
	e, err := config.ParseClock(end)
	if err != nil {
		return Window{}, err
	}
	if s >= e {
		return Window{}, fmt.Errorf("window start %s must be before end %s", start, end)
	}
	return Window{Start: s, End: e}, nil
}

// Bounds returns the absolute start and end of the window on the given day
func (w Window) Bounds(day time.Time) (time.Time, time.Time) {
	midnight := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	return midnight.Add(w.Start), midnight.Add(w.End)
}

// Contains reports whether t falls inside [Start, End) on its own calendar day
func (w Window) Contains(t time.Time) bool {
	start, end := w.Bounds(t)
	return !t.Before(start) && t.Before(end)
}

// String renders the window as HH:MM–HH:MM
func (w Window) String() string {
	base := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	return base.Add(w.Start).Format("15:04") + "–" + base.Add(w.End).Format("15:04")
}

// Calendar answers trading-day and session questions in the exchange timezone
type Calendar struct {
	loc      *time.Location
	session  Window
	opening  Window
	holidays map[string]struct{}
}

// NewCalendar builds a calendar from the market configuration
func NewCalendar(cfg config.MarketConfig) (*Calendar, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", cfg.Timezone, err)
	}
	session, err := ParseWindow(cfg.SessionOpen, cfg.SessionClose)
	if err != nil {
		return nil, fmt.Errorf("invalid session: %w", err)
	}
	opening, err := ParseWindow(cfg.WindowStart, cfg.WindowEnd)
	if err != nil {
		return nil, fmt.Errorf("invalid opening window: %w", err)
	}

	holidays := make(map[string]struct{}, len(cfg.Holidays))
	for _, h := range cfg.Holidays {
		d, err := time.ParseInLocation(models.DateLayout, h, loc)
		if err != nil {
			return nil, fmt.Errorf("invalid holiday %q: %w", h, err)
		}
		holidays[d.Format(models.DateLayout)] = struct{}{}
	}

	return &Calendar{loc: loc, session: session, opening: opening, holidays: holidays}, nil
}

// Location returns the exchange timezone
func (c *Calendar) Location() *time.Location { return c.loc }

// Session returns the regular trading session window
func (c *Calendar) Session() Window { return c.session }

// OpeningWindow returns the live opening range window
func (c *Calendar) OpeningWindow() Window { return c.opening }

// SessionDate returns the exchange-local calendar day containing t
func (c *Calendar) SessionDate(t time.Time) time.Time {
	return models.SessionDay(t, c.loc)
}

// IsTradingDay reports whether the day is neither a weekend nor a holiday
func (c *Calendar) IsTradingDay(day time.Time) bool {
	local := day.In(c.loc)
	switch local.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	_, holiday := c.holidays[local.Format(models.DateLayout)]
	return !holiday
}

// ScanReady reports whether a live scan may run at t: a trading day,
// the opening window has closed, and the session is still open.
func (c *Calendar) ScanReady(t time.Time) bool {
	local := t.In(c.loc)
	if !c.IsTradingDay(local) {
		return false
	}
	_, windowEnd := c.opening.Bounds(local)
	_, sessionClose := c.session.Bounds(local)
	return !local.Before(windowEnd) && !local.After(sessionClose)
}

// PreviousTradingDay returns the closest trading day strictly before day
func (c *Calendar) PreviousTradingDay(day time.Time) time.Time {
	d := c.SessionDate(day).AddDate(0, 0, -1)
	for !c.IsTradingDay(d) {
		d = d.AddDate(0, 0, -1)
	}
	return d
}

// TradingDays lists the trading days in [from, to], oldest first
func (c *Calendar) TradingDays(from, to time.Time) []time.Time {
	var days []time.Time
	end := c.SessionDate(to)
	for d := c.SessionDate(from); !d.After(end); d = d.AddDate(0, 0, 1) {
		if c.IsTradingDay(d) {
			days = append(days, d)
		}
	}
	return days
}

// LastTradingDays returns the n most recent trading days ending at or before day
func (c *Calendar) LastTradingDays(day time.Time, n int) []time.Time {
	if n <= 0 {
		return nil
	}
	days := make([]time.Time, 0, n)
	d := c.SessionDate(day)
	for len(days) < n {
		if c.IsTradingDay(d) {
			days = append(days, d)
		}
		d = d.AddDate(0, 0, -1)
	}
	for i, j := 0, len(days)-1; i < j; i, j = i+1, j-1 {
		days[i], days[j] = days[j], days[i]
	}
	return days
}
