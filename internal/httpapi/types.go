// Package httpapi provides the REST API for running backtests, browsing
// stored results and inspecting indicator snapshots.
package httpapi

import (
	"strategylab/internal/domain"
	"strategylab/internal/strategy"
)

// RunRequest is the body of POST /api/backtests. The strategy config fields
// sit at the top level next to userId.
type RunRequest struct {
	UserID string `json:"userId"`
	domain.StrategyConfig
}

// ErrorJSON is the body of every non-2xx response. ResultID is set when a
// backtest completed but could not be saved.
type ErrorJSON struct {
	Error    string `json:"error"`
	ResultID string `json:"resultId,omitempty"`
}

// ListJSON wraps GET /api/backtests.
type ListJSON struct {
	Count   int                    `json:"count"`
	Results []domain.ResultSummary `json:"results"`
}

// StrategiesJSON wraps GET /api/strategies.
type StrategiesJSON struct {
	Strategies []strategy.Info       `json:"strategies"`
	Defaults   domain.StrategyParams `json:"defaults"`
}
