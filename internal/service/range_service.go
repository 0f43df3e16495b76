// Package service orchestrates the opening range refresh and the live scan cycle.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/yourusername/orb-scanner/internal/datasource"
	"github.com/yourusername/orb-scanner/internal/market"
	"github.com/yourusername/orb-scanner/internal/metrics"
	"github.com/yourusername/orb-scanner/internal/models"
	"github.com/yourusername/orb-scanner/internal/repository"
	"github.com/yourusername/orb-scanner/internal/strategy"
)

// FetchOptions bounds and paces provider calls
type FetchOptions struct {
	Interval          models.Interval
	DailyLookbackDays int
	Timeout           time.Duration
	RequestDelay      time.Duration
}

// NewPacer returns the per-symbol request limiter for delay
func NewPacer(delay time.Duration) *rate.Limiter {
	if delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(delay), 1)
}

// RangeService builds and caches the opening range snapshots of a trading day
type RangeService struct {
	intraday  datasource.BarSource
	daily     datasource.BarSource
	cache     repository.RangeCacheRepository
	calendar  *market.Calendar
	validator *BarValidator
	opts      FetchOptions
	pacer     *rate.Limiter
	logger    logrus.FieldLogger
}

// NewRangeService creates a range service. daily serves previous-close
// lookups and is usually a cached wrapper of intraday's provider.
func NewRangeService(
	intraday datasource.BarSource,
	daily datasource.BarSource,
	cache repository.RangeCacheRepository,
	calendar *market.Calendar,
	opts FetchOptions,
	pacer *rate.Limiter,
	logger logrus.FieldLogger,
) *RangeService {
	if daily == nil {
		daily = intraday
	}
	if opts.Interval == "" {
		opts.Interval = models.IntervalOneMinute
	}
	if opts.DailyLookbackDays <= 0 {
		opts.DailyLookbackDays = 10
	}
	if pacer == nil {
		pacer = NewPacer(opts.RequestDelay)
	}
	return &RangeService{
		intraday:  intraday,
		daily:     daily,
		cache:     cache,
		calendar:  calendar,
		validator: NewBarValidator(logger),
		opts:      opts,
		pacer:     pacer,
		logger:    logger,
	}
}

// EnsureSnapshots returns the snapshots of day for symbols, reusing the
// cache and building only the symbols it lacks. Symbols that could not be
// built are reported in the failure map. A snapshot whose previous close
// failed to fetch is returned but not cached, so the next call rebuilds it.
func (s *RangeService) EnsureSnapshots(ctx context.Context, day time.Time, symbols []string) ([]models.RangeSnapshot, map[string]error, error) {
	have := make(map[string]models.RangeSnapshot, len(symbols))

	cached, err := s.cache.Load(day)
	switch {
	case err == nil:
		for _, snap := range cached {
			have[snap.Symbol] = snap
		}
	case errors.Is(err, models.ErrNotFound):
	default:
		s.logger.WithError(err).Warn("Range cache unreadable, rebuilding")
	}

	var missing []string
	for _, sym := range symbols {
		if _, ok := have[sym]; !ok {
			missing = append(missing, sym)
		}
	}

	failures := make(map[string]error)
	if len(missing) > 0 {
		built, buildFailures, provisional, err := s.build(ctx, day, missing)
		if err != nil {
			return nil, nil, err
		}
		failures = buildFailures

		keep := make(map[string]models.RangeSnapshot, len(have)+len(built))
		for sym, snap := range have {
			keep[sym] = snap
		}
		for _, snap := range built {
			have[snap.Symbol] = snap
			if !provisional[snap.Symbol] {
				keep[snap.Symbol] = snap
			}
		}
		if len(keep) > len(cached) {
			if err := s.save(day, keep); err != nil {
				return nil, nil, err
			}
		}
	}

	out := make([]models.RangeSnapshot, 0, len(symbols))
	for _, sym := range symbols {
		if snap, ok := have[sym]; ok {
			out = append(out, snap)
		}
	}
	metrics.UpdateSnapshotsLoaded(len(out))
	return out, failures, nil
}

// Refresh rebuilds every snapshot of day from the provider and overwrites the cache
func (s *RangeService) Refresh(ctx context.Context, day time.Time, symbols []string) ([]models.RangeSnapshot, map[string]error, error) {
	built, failures, provisional, err := s.build(ctx, day, symbols)
	if err != nil {
		return nil, nil, err
	}
	keep := make(map[string]models.RangeSnapshot, len(built))
	for _, snap := range built {
		if !provisional[snap.Symbol] {
			keep[snap.Symbol] = snap
		}
	}
	if err := s.save(day, keep); err != nil {
		return nil, nil, err
	}
	metrics.UpdateSnapshotsLoaded(len(built))
	return built, failures, nil
}

// build fetches and aggregates each symbol sequentially. Only context
// cancellation aborts the batch. Symbols whose previous close lookup failed
// for any reason other than its absence are marked provisional.
func (s *RangeService) build(ctx context.Context, day time.Time, symbols []string) ([]models.RangeSnapshot, map[string]error, map[string]bool, error) {
	var (
		out         []models.RangeSnapshot
		failures    = make(map[string]error)
		provisional = make(map[string]bool)
	)
	for _, sym := range symbols {
		if err := s.pacer.Wait(ctx); err != nil {
			return nil, nil, nil, err
		}
		snap, prevErr, err := s.buildOne(ctx, day, sym)
		if err != nil {
			if ctx.Err() != nil {
				return nil, nil, nil, ctx.Err()
			}
			failures[sym] = err
			s.logger.WithError(err).WithField("symbol", sym).Warn("Failed to build opening range")
			continue
		}
		if prevErr != nil && !errors.Is(prevErr, models.ErrMissingPrevClose) {
			provisional[sym] = true
		}
		out = append(out, snap)
	}

	s.logger.WithFields(logrus.Fields{
		"date":        day.Format(models.DateLayout),
		"built":       len(out),
		"provisional": len(provisional),
		"failures":    len(failures),
	}).Info("Opening ranges built")
	return out, failures, provisional, nil
}

// buildOne returns the snapshot, the previous close lookup error if any,
// and the error that prevented building the snapshot at all.
func (s *RangeService) buildOne(ctx context.Context, day time.Time, symbol string) (models.RangeSnapshot, error, error) {
	window := s.calendar.OpeningWindow()
	start, end := window.Bounds(day)

	bars, err := fetchBars(ctx, s.intraday, symbol, start, end, s.opts.Interval, s.opts.Timeout)
	if err != nil {
		return models.RangeSnapshot{}, nil, err
	}
	bars, _ = s.validator.Sanitize(symbol, bars)

	var prev *float64
	p, prevErr := s.previousClose(ctx, day, symbol)
	if prevErr != nil {
		s.logger.WithError(prevErr).WithField("symbol", symbol).Warn("Previous close unavailable")
	} else {
		prev = &p
	}

	snap, err := strategy.BuildSnapshot(symbol, bars, day, window, prev)
	return snap, prevErr, err
}

func (s *RangeService) previousClose(ctx context.Context, day time.Time, symbol string) (float64, error) {
	from := day.AddDate(0, 0, -s.opts.DailyLookbackDays)
	daily, err := fetchBars(ctx, s.daily, symbol, from, day, models.IntervalOneDay, s.opts.Timeout)
	if err != nil {
		return 0, err
	}
	return strategy.PreviousClose(daily, day)
}

func (s *RangeService) save(day time.Time, have map[string]models.RangeSnapshot) error {
	all := make([]models.RangeSnapshot, 0, len(have))
	for _, snap := range have {
		all = append(all, snap)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Symbol < all[j].Symbol })
	if err := s.cache.Save(day, all); err != nil {
		return fmt.Errorf("failed to save range cache: %w", err)
	}
	return nil
}

// fetchBars calls source with a bounded timeout
func fetchBars(ctx context.Context, source datasource.BarSource, symbol string, from, to time.Time, interval models.Interval, timeout time.Duration) ([]models.Bar, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	bars, err := source.FetchBars(ctx, symbol, from, to, interval)
	if err != nil {
		return nil, fmt.Errorf("fetch %s %s bars: %w", symbol, interval, err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: %s returned no %s bars for %s", models.ErrNoData, source.Name(), interval, symbol)
	}
	return bars, nil
}
