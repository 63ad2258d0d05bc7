package domain

import (
	"errors"
	"fmt"
)

// MinBars is the smallest bar series a backtest accepts.
const MinBars = 100

var (
	// ErrInsufficientData is returned when fewer than MinBars bars are
	// available for a run.
	ErrInsufficientData = errors.New("insufficient historical data for backtesting")

	// ErrInvalidConfig is returned when a StrategyConfig fails validation.
	ErrInvalidConfig = errors.New("invalid strategy config")

	// ErrNotFound is returned by stores when a record does not exist.
	ErrNotFound = errors.New("not found")
)

// PersistenceError reports a failed save of a completed result. The result is
// kept so the caller can retry the save without simulating again.
type PersistenceError struct {
	Result *BacktestResult
	Err    error
}

func (e *PersistenceError) Error() string {
	id := ""
	if e.Result != nil {
		id = e.Result.ID
	}
	return fmt.Sprintf("saving backtest result %s: %v", id, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
