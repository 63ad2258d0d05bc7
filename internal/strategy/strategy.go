// Package strategy defines the Strategy interface for signal rules and
// provides a Registry for dispatching on a configured strategy type.
package strategy

import (
	"sort"

	"strategylab/internal/domain"
	"strategylab/internal/indicators"
)

// Signal is the decision a strategy makes for one bar.
type Signal struct {
	Buy    bool   `json:"buy"`
	Sell   bool   `json:"sell"`
	Reason string `json:"reason,omitempty"`
}

// Strategy is the interface that all signal rules must implement.
type Strategy interface {
	// Type returns the strategy type this rule handles.
	Type() domain.StrategyType

	// Description is a one-line human readable summary.
	Description() string

	// Evaluate inspects the indicator set computed over the trailing window
	// that ends at bar. Series too short to evaluate must yield no signal.
	Evaluate(set indicators.Set, bar domain.Bar, p domain.StrategyParams) Signal
}

// Info describes a registered strategy.
type Info struct {
	Type        domain.StrategyType `json:"type"`
	Description string              `json:"description"`
}

// Registry holds the strategies keyed by type.
type Registry struct {
	strategies map[domain.StrategyType]Strategy
}

// NewRegistry creates an empty strategy Registry.
func NewRegistry() *Registry {
	return &Registry{
		strategies: make(map[domain.StrategyType]Strategy),
	}
}

// Register adds a strategy to the registry, keyed by its Type(). A later
// registration for the same type replaces the earlier one.
func (r *Registry) Register(s Strategy) {
	r.strategies[s.Type()] = s
}

// Get retrieves a strategy by type. The second return value indicates whether
// the strategy was found.
func (r *Registry) Get(t domain.StrategyType) (Strategy, bool) {
	s, ok := r.strategies[t]
	return s, ok
}

// Evaluate dispatches to the strategy registered for t. Unknown types yield
// an empty Signal.
func (r *Registry) Evaluate(t domain.StrategyType, set indicators.Set, bar domain.Bar, p domain.StrategyParams) Signal {
	s, ok := r.strategies[t]
	if !ok {
		return Signal{}
	}
	return s.Evaluate(set, bar, p)
}

// List returns a sorted slice of all registered strategy types.
func (r *Registry) List() []domain.StrategyType {
	types := make([]domain.StrategyType, 0, len(r.strategies))
	for t := range r.strategies {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// Describe returns Info for every registered strategy, sorted by type.
func (r *Registry) Describe() []Info {
	types := r.List()
	out := make([]Info, len(types))
	for i, t := range types {
		out[i] = Info{Type: t, Description: r.strategies[t].Description()}
	}
	return out
}
