// Package app wires the configured stores, market data sources and the
// backtest service together for the server and CLI binaries.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"strategylab/internal/backtest"
	"strategylab/internal/config"
	"strategylab/internal/domain"
	"strategylab/internal/marketdata"
	"strategylab/internal/risk"
	"strategylab/internal/store"
	"strategylab/internal/strategy"
	"strategylab/internal/strategy/builtins"
	"strategylab/internal/util"
)

// ErrNoUpstream is returned by Sync when bars can only be read from the local
// store.
var ErrNoUpstream = errors.New("no upstream market data source configured")

// App holds the long-lived components built from a Config.
type App struct {
	Config   *config.Config
	Log      *slog.Logger
	Registry *strategy.Registry
	Bars     *store.ParquetStore
	Results  *store.SQLiteStore
	Source   marketdata.Source
	Service  *backtest.Service

	cache *marketdata.CachedSource
}

// New opens the stores and builds the service described by cfg.
func New(cfg *config.Config, log *slog.Logger) (*App, error) {
	if log == nil {
		log = slog.Default()
	}
	results, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("opening result store: %w", err)
	}

	a := &App{
		Config:   cfg,
		Log:      log,
		Registry: builtins.NewRegistry(),
		Bars:     store.NewParquetStore(cfg.Storage.DataDir),
		Results:  results,
	}

	market := domain.Market(cfg.MarketData.Market)
	local := marketdata.NewStoreSource(a.Bars, market)
	var daySource util.DaySource
	switch cfg.MarketData.Source {
	case "store":
		a.Source = local
	case "alpaca", "":
		upstream := marketdata.NewAlpacaSource(marketdata.AlpacaOptions{
			APIKey:          cfg.Alpaca.APIKey,
			APISecret:       cfg.Alpaca.APISecret,
			DataURL:         cfg.Alpaca.DataURL,
			Feed:            cfg.MarketData.Feed,
			RateLimitPerMin: cfg.MarketData.RateLimitPerMin,
			RetryAttempts:   cfg.MarketData.RetryAttempts,
			RetryDelay:      cfg.MarketData.RetryDelay,
		})
		a.cache = marketdata.NewCachedSource(a.Bars, upstream, market)
		if cfg.MarketData.CacheBars {
			a.Source = marketdata.NewFallbackSource(a.cache, local)
		} else {
			a.Source = marketdata.NewFallbackSource(upstream, local)
		}
		if cfg.Alpaca.APIKey != "" && market == domain.MarketUS {
			daySource = marketdata.NewAlpacaCalendar(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.BaseURL)
		}
	default:
		results.Close()
		return nil, fmt.Errorf("unknown market data source %q", cfg.MarketData.Source)
	}

	sim := backtest.NewSimulator(a.Registry, risk.NewManager(cfg.Backtest.MaxPositionPct))
	a.Service = backtest.NewService(
		sim,
		a.Source,
		a.Results,
		a.Bars,
		util.NewTradingCalendar(market, daySource),
		backtest.Options{
			RunTimeout:     cfg.Backtest.RunTimeout,
			MaxConcurrent:  cfg.Backtest.MaxConcurrentRuns,
			DefaultBalance: cfg.Backtest.InitialBalance,
		},
		log,
	)
	return a, nil
}

// Close releases the result store.
func (a *App) Close() error {
	return a.Results.Close()
}

// Sync refreshes the bar cache for each symbol over period, fetching up to
// MaxConcurrentRuns symbols at once. It returns the number of bars written
// per symbol.
func (a *App) Sync(ctx context.Context, symbols []string, period, interval string) (map[string]int, error) {
	if a.cache == nil {
		return nil, ErrNoUpstream
	}
	now := time.Now()
	counts := make([]int, len(symbols))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(a.Config.Backtest.MaxConcurrentRuns, 1))
	for i, sym := range symbols {
		g.Go(func() error {
			n, err := a.cache.Sync(ctx, marketdata.RequestForPeriod(sym, period, interval, now))
			if err != nil {
				return fmt.Errorf("syncing %s: %w", sym, err)
			}
			counts[i] = n
			a.Log.Info("synced bars", "symbol", sym, "bars", n)
			return nil
		})
	}
	err := g.Wait()
	out := make(map[string]int, len(symbols))
	for i, sym := range symbols {
		out[sym] = counts[i]
	}
	return out, err
}
