package main

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/yourusername/orb-scanner/internal/config"
	"github.com/yourusername/orb-scanner/internal/datasource"
	"github.com/yourusername/orb-scanner/internal/ledger"
	"github.com/yourusername/orb-scanner/internal/logger"
	"github.com/yourusername/orb-scanner/internal/models"
	"github.com/yourusername/orb-scanner/internal/notifier"
	"github.com/yourusername/orb-scanner/internal/repository"
	"github.com/yourusername/orb-scanner/internal/service"
	"github.com/yourusername/orb-scanner/internal/strategy"
)

// dependencies is the wired object graph shared by the commands
type dependencies struct {
	repos      *repository.Repositories
	httpClient *datasource.RateLimitedHTTPClient
	source     datasource.BarSource
	cached     *datasource.CachedBarSource
	strategy   *strategy.Breakout

	// notifyClient is separate so provider failures cannot trip delivery
	notifyClient *datasource.RateLimitedHTTPClient
}

func setupDependencies() (*dependencies, error) {
	repos, err := repository.NewRepositories(cfg, calendar.Location())
	if err != nil {
		return nil, fmt.Errorf("failed to create repositories: %w", err)
	}

	httpClient := datasource.NewRateLimitedHTTPClient(datasource.HTTPClientConfigFrom(cfg.DataSource), appLog)
	source, err := datasource.NewFactory(cfg.DataSource, appLog).NewBarSource(httpClient)
	if err != nil {
		return nil, fmt.Errorf("failed to create bar source: %w", err)
	}

	return &dependencies{
		repos:        repos,
		httpClient:   httpClient,
		notifyClient: datasource.NewRateLimitedHTTPClient(notifier.HTTPClientConfig(cfg.TelegramTimeout()), appLog),
		source:       source,
		cached:       datasource.NewCachedBarSource(source, cfg.CacheTTL()),
		strategy: strategy.NewBreakout(strategy.BreakoutParams{
			TolerancePct: cfg.Signal.BreakoutTolerancePct,
			MomentumPct:  cfg.Signal.MomentumThresholdPct,
			StrikeStep:   cfg.Signal.StrikeStep,
		}),
	}, nil
}

func (d *dependencies) Close() {
	for _, c := range []*datasource.RateLimitedHTTPClient{d.httpClient, d.notifyClient} {
		if err := c.Close(); err != nil {
			appLog.WithError(err).Warn("Failed to close HTTP client")
		}
	}
}

// newScanner wires the live scan cycle. Live prices bypass the bar cache;
// daily bars for the previous close go through it.
func (d *dependencies) newScanner() (*service.Scanner, *ledger.Ledger, error) {
	if err := config.ValidateDelivery(cfg); err != nil {
		return nil, nil, err
	}

	symbols, err := datasource.LoadSymbols(cfg.Path(cfg.Storage.SymbolsFile), cfg.Market.SymbolSuffix)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load symbols: %w", err)
	}

	dedup := ledger.New(d.repos.SentLedger, logger.NewAuditLogger(appLog))
	if err := dedup.Load(calendar.SessionDate(time.Now())); err != nil {
		return nil, nil, fmt.Errorf("failed to load sent ledger: %w", err)
	}

	opts := d.fetchOptions()
	pacer := service.NewPacer(opts.RequestDelay)
	ranges := d.newRangeService(opts, pacer)

	sink := notifier.NewTelegramNotifier(notifier.TelegramConfig{
		APIURL:       cfg.Telegram.APIURL,
		BotToken:     cfg.Telegram.BotToken,
		ChatID:       cfg.Telegram.ChatID,
		Timeout:      cfg.TelegramTimeout(),
		FallbackPath: cfg.Path(cfg.Telegram.FallbackFile),
		Window:       calendar.OpeningWindow().String(),
		Location:     calendar.Location(),
	}, d.notifyClient, appLog)

	scanner := service.NewScanner(symbols, ranges, d.source, d.strategy, dedup, sink, d.repos.History, calendar, opts, pacer, appLog)
	meta := strategy.Describe(d.strategy, Version)
	appLog.WithFields(logrus.Fields{
		"symbols":    len(symbols),
		"strategy":   meta.Name,
		"parameters": meta.Parameters,
	}).Info("Scanner ready")
	return scanner, dedup, nil
}

func (d *dependencies) fetchOptions() service.FetchOptions {
	return service.FetchOptions{
		Interval:          models.Interval(cfg.DataSource.IntradayInterval),
		DailyLookbackDays: cfg.DataSource.DailyLookbackDays,
		Timeout:           cfg.FetchTimeout(),
		RequestDelay:      cfg.RequestDelay(),
	}
}

func (d *dependencies) newRangeService(opts service.FetchOptions, pacer *rate.Limiter) *service.RangeService {
	return service.NewRangeService(d.source, d.cached, d.repos.RangeCache, calendar, opts, pacer, appLog)
}
