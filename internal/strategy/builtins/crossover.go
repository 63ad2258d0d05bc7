// Package builtins provides the signal rules that ship with strategylab.
package builtins

import (
	"fmt"

	"strategylab/internal/domain"
	"strategylab/internal/indicators"
	"strategylab/internal/strategy"
)

// Compile-time interface checks.
var (
	_ strategy.Strategy = (*SMACross)(nil)
	_ strategy.Strategy = (*RSIMeanReversion)(nil)
	_ strategy.Strategy = (*MACDMomentum)(nil)
)

// Register adds every built-in strategy to r.
func Register(r *strategy.Registry) {
	r.Register(&SMACross{})
	r.Register(&RSIMeanReversion{})
	r.Register(&MACDMomentum{})
	r.Register(&Bollinger{})
	r.Register(&MultiIndicator{})
}

// NewRegistry returns a Registry populated with the built-in strategies.
func NewRegistry() *strategy.Registry {
	r := strategy.NewRegistry()
	Register(r)
	return r
}

// crossedAbove reports whether a moved from at-or-below b to strictly above b.
func crossedAbove(aPrev, aCur, bPrev, bCur float64) bool {
	return aPrev <= bPrev && aCur > bCur
}

func crossedBelow(aPrev, aCur, bPrev, bCur float64) bool {
	return aPrev >= bPrev && aCur < bCur
}

// SMACross buys on a golden cross of the short SMA over the long SMA and
// sells on the death cross.
type SMACross struct{}

func (*SMACross) Type() domain.StrategyType { return domain.StrategySMACrossover }

func (*SMACross) Description() string {
	return "Buy when the short SMA crosses above the long SMA, sell on the opposite cross"
}

func (*SMACross) Evaluate(set indicators.Set, _ domain.Bar, _ domain.StrategyParams) strategy.Signal {
	sPrev, sCur, okS := indicators.LastTwo(set.ShortSMA)
	lPrev, lCur, okL := indicators.LastTwo(set.LongSMA)
	if !okS || !okL {
		return strategy.Signal{}
	}
	var sig strategy.Signal
	if crossedAbove(sPrev, sCur, lPrev, lCur) {
		sig.Buy, sig.Reason = true, "SMA Golden Cross"
	}
	if crossedBelow(sPrev, sCur, lPrev, lCur) {
		sig.Sell, sig.Reason = true, "SMA Death Cross"
	}
	return sig
}

// RSIMeanReversion buys when RSI climbs back through the oversold threshold
// and sells when it falls back through the overbought threshold.
type RSIMeanReversion struct{}

func (*RSIMeanReversion) Type() domain.StrategyType { return domain.StrategyRSIMeanReversion }

func (*RSIMeanReversion) Description() string {
	return "Buy when RSI crosses up through oversold, sell when it crosses down through overbought"
}

func (*RSIMeanReversion) Evaluate(set indicators.Set, _ domain.Bar, p domain.StrategyParams) strategy.Signal {
	prev, cur, ok := indicators.LastTwo(set.RSI)
	if !ok {
		return strategy.Signal{}
	}
	var sig strategy.Signal
	if prev <= p.RSIOversold && cur > p.RSIOversold {
		sig.Buy, sig.Reason = true, fmt.Sprintf("RSI Oversold Bounce (%.2f)", cur)
	}
	if prev >= p.RSIOverbought && cur < p.RSIOverbought {
		sig.Sell, sig.Reason = true, fmt.Sprintf("RSI Overbought Reversal (%.2f)", cur)
	}
	return sig
}

// MACDMomentum trades crossings of the MACD line over its signal line.
type MACDMomentum struct{}

func (*MACDMomentum) Type() domain.StrategyType { return domain.StrategyMACDMomentum }

func (*MACDMomentum) Description() string {
	return "Buy when the MACD line crosses above its signal line, sell on the opposite cross"
}

func (*MACDMomentum) Evaluate(set indicators.Set, _ domain.Bar, _ domain.StrategyParams) strategy.Signal {
	mPrev, mCur, okM := indicators.LastTwo(set.MACD.MACD)
	sPrev, sCur, okS := indicators.LastTwo(set.MACD.Signal)
	if !okM || !okS {
		return strategy.Signal{}
	}
	var sig strategy.Signal
	if crossedAbove(mPrev, mCur, sPrev, sCur) {
		sig.Buy, sig.Reason = true, "MACD Bullish Crossover"
	}
	if crossedBelow(mPrev, mCur, sPrev, sCur) {
		sig.Sell, sig.Reason = true, "MACD Bearish Crossover"
	}
	return sig
}
