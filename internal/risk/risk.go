// Package risk sizes simulated positions and derives their protective exit
// levels.
package risk

import (
	"errors"
	"math"

	"strategylab/internal/domain"
)

// DefaultMaxPositionPct caps a single position at a quarter of the balance.
const DefaultMaxPositionPct = 0.25

// ErrInsufficientFunds is returned when a sized order cannot be paid for.
var ErrInsufficientFunds = errors.New("insufficient funds for order")

// Manager enforces pre-trade sizing rules.
type Manager struct {
	maxPositionPct float64
}

// NewManager creates a Manager.
//
//   - maxPositionPct: maximum fraction of the balance committed to one
//     position (e.g. 0.25 for 25%). Zero or negative selects
//     DefaultMaxPositionPct.
func NewManager(maxPositionPct float64) *Manager {
	if maxPositionPct <= 0 {
		maxPositionPct = DefaultMaxPositionPct
	}
	return &Manager{maxPositionPct: maxPositionPct}
}

// PositionSize returns the notional amount to commit: the balance at risk
// divided by the stop distance, capped at maxPositionPct of the balance.
func (m *Manager) PositionSize(balance float64, p domain.StrategyParams) float64 {
	if balance <= 0 || p.StopLoss <= 0 {
		return 0
	}
	riskAmount := balance * p.RiskPercent / 100
	return math.Min(riskAmount/p.StopLoss, balance*m.maxPositionPct)
}

// Shares converts PositionSize into a whole share count at price.
func (m *Manager) Shares(balance, price float64, p domain.StrategyParams) int64 {
	if price <= 0 {
		return 0
	}
	return int64(math.Floor(m.PositionSize(balance, p) / price))
}

// CheckOrder verifies that buying shares at price plus commission fits in
// balance.
func (m *Manager) CheckOrder(balance, price float64, shares int64, commission float64) error {
	if shares <= 0 {
		return ErrInsufficientFunds
	}
	if float64(shares)*price+commission > balance {
		return ErrInsufficientFunds
	}
	return nil
}

// Levels returns the stop-loss and take-profit prices for an entry.
func Levels(entry float64, p domain.StrategyParams) (stopLoss, takeProfit float64) {
	return entry * (1 - p.StopLoss), entry * (1 + p.TakeProfit)
}
