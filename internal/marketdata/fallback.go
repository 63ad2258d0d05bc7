package marketdata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"strategylab/internal/domain"
	"strategylab/internal/store"
)

var (
	_ Source = (*FallbackSource)(nil)
	_ Source = (*StoreSource)(nil)
)

// FallbackSource tries each source in order and returns the first non-empty
// series.
type FallbackSource struct {
	sources []Source
	log     *slog.Logger
}

// NewFallbackSource chains sources.
func NewFallbackSource(sources ...Source) *FallbackSource {
	return &FallbackSource{
		sources: sources,
		log:     slog.Default().With("source", "fallback"),
	}
}

// Name lists the chained sources, e.g. "alpaca,store".
func (f *FallbackSource) Name() string {
	names := make([]string, len(f.sources))
	for i, s := range f.sources {
		names[i] = s.Name()
	}
	return strings.Join(names, ",")
}

// Bars returns the first non-empty result. If every source fails the errors
// are joined.
func (f *FallbackSource) Bars(ctx context.Context, req Request) ([]domain.Bar, error) {
	var errs []error
	for _, s := range f.sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		bars, err := s.Bars(ctx, req)
		if err == nil && len(bars) > 0 {
			return bars, nil
		}
		if err == nil {
			err = ErrNoData
		}
		f.log.Warn("source failed, trying next", "source", s.Name(), "symbol", req.Symbol, "err", err)
		errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
	}
	if len(errs) == 0 {
		return nil, ErrNoData
	}
	return nil, errors.Join(errs...)
}

// StoreSource serves bars from the local bar store only. It is the last link
// of a fallback chain when the upstream provider is unreachable.
type StoreSource struct {
	store  store.BarStore
	market string
}

// NewStoreSource reads market bars from bs.
func NewStoreSource(bs store.BarStore, market domain.Market) *StoreSource {
	return &StoreSource{store: bs, market: string(market)}
}

// Name returns "store".
func (s *StoreSource) Name() string { return "store" }

// Bars reads req from the store. An empty result is ErrNoData.
func (s *StoreSource) Bars(ctx context.Context, req Request) ([]domain.Bar, error) {
	bars, err := s.store.ReadBars(ctx, s.market, NormalizeInterval(req.Interval), req.Symbol, req.Start, req.End)
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, ErrNoData
	}
	return bars, nil
}
