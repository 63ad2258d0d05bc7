package marketdata

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"strategylab/internal/domain"
	"strategylab/internal/store"
)

var _ Source = (*CachedSource)(nil)

// coverageSlack is how far the cached series may start after, or end before,
// the requested range and still be served without an upstream fetch. It
// absorbs weekends and holidays at the range edges.
const coverageSlack = 4 * 24 * time.Hour

// CachedSource serves bars from a BarStore and falls through to an upstream
// Source when the cache does not cover the request. Fetched bars are written
// back to the store.
type CachedSource struct {
	store    store.BarStore
	upstream Source
	market   string
	log      *slog.Logger
}

// NewCachedSource wraps upstream with a read-through bar cache for market.
func NewCachedSource(bs store.BarStore, upstream Source, market domain.Market) *CachedSource {
	return &CachedSource{
		store:    bs,
		upstream: upstream,
		market:   string(market),
		log:      slog.Default().With("source", "cache", "market", string(market)),
	}
}

// Name returns "cache+<upstream>".
func (c *CachedSource) Name() string { return "cache+" + c.upstream.Name() }

// Bars returns cached bars when they cover req, otherwise fetches upstream
// and stores the result.
func (c *CachedSource) Bars(ctx context.Context, req Request) ([]domain.Bar, error) {
	interval := NormalizeInterval(req.Interval)
	cached, err := c.store.ReadBars(ctx, c.market, interval, req.Symbol, req.Start, req.End)
	if err != nil {
		c.log.Warn("reading cached bars failed", "symbol", req.Symbol, "err", err)
	} else if covers(cached, req) {
		c.log.Debug("cache hit", "symbol", req.Symbol, "bars", len(cached))
		return cached, nil
	}

	bars, err := c.upstream.Bars(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := c.store.WriteBars(ctx, c.market, interval, bars); err != nil {
		// The fetch succeeded; a failed cache write only costs a refetch.
		c.log.Warn("caching bars failed", "symbol", req.Symbol, "err", err)
	}
	return bars, nil
}

// Sync fetches req from upstream and stores it regardless of cache state. It
// returns the number of bars written.
func (c *CachedSource) Sync(ctx context.Context, req Request) (int, error) {
	bars, err := c.upstream.Bars(ctx, req)
	if err != nil {
		return 0, err
	}
	if err := c.store.WriteBars(ctx, c.market, NormalizeInterval(req.Interval), bars); err != nil {
		return 0, fmt.Errorf("storing %s bars: %w", req.Symbol, err)
	}
	return len(bars), nil
}

func covers(bars []domain.Bar, req Request) bool {
	if len(bars) == 0 {
		return false
	}
	first, last := bars[0].Timestamp, bars[len(bars)-1].Timestamp
	return !first.After(req.Start.Add(coverageSlack)) && !last.Before(req.End.Add(-coverageSlack))
}
