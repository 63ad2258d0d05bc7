// Package store defines storage interfaces for historical bars and completed
// backtest results, with Parquet and SQLite implementations.
package store

import (
	"context"
	"time"

	"strategylab/internal/domain"
)

// BarStore persists and retrieves OHLCV bar data.
type BarStore interface {
	// WriteBars persists a batch of bars of one interval, merging with any
	// bars already stored for the same timestamps.
	WriteBars(ctx context.Context, market, interval string, bars []domain.Bar) error

	// ReadBars returns bars for the given symbol within [start, end], ordered
	// by timestamp.
	ReadBars(ctx context.Context, market, interval, symbol string, start, end time.Time) ([]domain.Bar, error)

	// ListSymbols returns all distinct symbols stored for market and interval.
	ListSymbols(ctx context.Context, market, interval string) ([]string, error)
}

// ResultFilter narrows ListResults. Zero fields match everything.
type ResultFilter struct {
	UserID   string
	Symbol   string
	Strategy domain.StrategyType
	Limit    int
}

// DefaultListLimit bounds ListResults when no limit is given.
const DefaultListLimit = 50

// ResultStore persists completed backtest results. A result is written once
// and never updated.
type ResultStore interface {
	// SaveResult inserts r in a single statement. Saving an ID that already
	// exists is a no-op, so a failed save can be retried safely.
	SaveResult(ctx context.Context, r *domain.BacktestResult) error

	// GetResult returns the result with the given ID or domain.ErrNotFound.
	GetResult(ctx context.Context, id string) (*domain.BacktestResult, error)

	// ListResults returns summaries matching f, newest first.
	ListResults(ctx context.Context, f ResultFilter) ([]domain.ResultSummary, error)

	// Close releases the underlying database.
	Close() error
}

// EquityExporter writes an equity curve for offline analysis.
type EquityExporter interface {
	WriteEquityCurve(ctx context.Context, resultID string, points []domain.EquityPoint) error
}
