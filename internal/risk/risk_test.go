package risk

import (
	"errors"
	"math"
	"testing"

	"strategylab/internal/domain"
)

func TestPositionSize(t *testing.T) {
	m := NewManager(0)
	p := domain.DefaultStrategyParams()

	// 2% of 10000 = 200 at risk / 0.05 stop = 4000, capped at 2500.
	if got := m.PositionSize(10000, p); got != 2500 {
		t.Errorf("PositionSize = %v, want 2500", got)
	}

	// 1% risk, 10% stop: 100/0.10 = 1000 below the cap.
	p.RiskPercent = 1
	p.StopLoss = 0.10
	if got := m.PositionSize(10000, p); math.Abs(got-1000) > 1e-9 {
		t.Errorf("PositionSize = %v, want 1000", got)
	}

	if got := m.PositionSize(0, p); got != 0 {
		t.Errorf("PositionSize with zero balance = %v, want 0", got)
	}
}

func TestShares(t *testing.T) {
	m := NewManager(0.25)
	p := domain.DefaultStrategyParams()
	if got := m.Shares(10000, 30, p); got != 83 {
		t.Errorf("Shares = %d, want 83", got)
	}
	if got := m.Shares(10000, 5000, p); got != 0 {
		t.Errorf("Shares above cap = %d, want 0", got)
	}
	if got := m.Shares(10000, 0, p); got != 0 {
		t.Errorf("Shares at zero price = %d, want 0", got)
	}
}

func TestCheckOrder(t *testing.T) {
	m := NewManager(0)
	if err := m.CheckOrder(1000, 10, 99, 10); err != nil {
		t.Fatalf("CheckOrder returned unexpected error: %v", err)
	}
	if err := m.CheckOrder(1000, 10, 100, 1); !errors.Is(err, ErrInsufficientFunds) {
		t.Errorf("CheckOrder = %v, want ErrInsufficientFunds", err)
	}
	if err := m.CheckOrder(1000, 10, 0, 0); !errors.Is(err, ErrInsufficientFunds) {
		t.Errorf("CheckOrder with zero shares = %v, want ErrInsufficientFunds", err)
	}
}

func TestLevels(t *testing.T) {
	sl, tp := Levels(100, domain.DefaultStrategyParams())
	if math.Abs(sl-95) > 1e-9 || math.Abs(tp-110) > 1e-9 {
		t.Errorf("Levels(100) = %v, %v, want 95, 110", sl, tp)
	}
}
