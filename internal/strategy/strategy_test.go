package strategy

import (
	"testing"

	"strategylab/internal/domain"
	"strategylab/internal/indicators"
)

// stubStrategy is a minimal Strategy implementation used in registry tests.
type stubStrategy struct {
	typ domain.StrategyType
	sig Signal
}

func (s *stubStrategy) Type() domain.StrategyType { return s.typ }
func (s *stubStrategy) Description() string       { return "stub " + string(s.typ) }
func (s *stubStrategy) Evaluate(_ indicators.Set, _ domain.Bar, _ domain.StrategyParams) Signal {
	return s.sig
}

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	s := &stubStrategy{typ: domain.StrategySMACrossover}

	r.Register(s)

	got, ok := r.Get(domain.StrategySMACrossover)
	if !ok {
		t.Fatal("Get returned false for registered strategy")
	}
	if got.Type() != domain.StrategySMACrossover {
		t.Errorf("Get returned strategy with Type() = %q, want %q", got.Type(), domain.StrategySMACrossover)
	}
}

func TestRegistryGet_NotFound(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Get("nonexistent")
	if ok {
		t.Error("Get returned true for unregistered strategy")
	}
}

func TestRegistryEvaluate(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubStrategy{typ: domain.StrategyBollingerBands, sig: Signal{Buy: true, Reason: "stub"}})

	got := r.Evaluate(domain.StrategyBollingerBands, indicators.Set{}, domain.Bar{}, domain.StrategyParams{})
	if !got.Buy || got.Reason != "stub" {
		t.Errorf("Evaluate = %+v, want buy with reason stub", got)
	}

	got = r.Evaluate("NOT_A_STRATEGY", indicators.Set{}, domain.Bar{}, domain.StrategyParams{})
	if got != (Signal{}) {
		t.Errorf("Evaluate for unknown type = %+v, want empty signal", got)
	}
}

func TestRegistryList(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubStrategy{typ: domain.StrategyRSIMeanReversion})
	r.Register(&stubStrategy{typ: domain.StrategyBollingerBands})

	types := r.List()
	if len(types) != 2 {
		t.Fatalf("List returned %d types, want 2", len(types))
	}
	// List returns sorted types.
	if types[0] != domain.StrategyBollingerBands || types[1] != domain.StrategyRSIMeanReversion {
		t.Errorf("List returned %v, want [BOLLINGER_BANDS RSI_MEAN_REVERSION]", types)
	}

	infos := r.Describe()
	if len(infos) != 2 || infos[0].Description != "stub BOLLINGER_BANDS" {
		t.Errorf("Describe returned %+v", infos)
	}
}
