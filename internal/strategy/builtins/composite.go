package builtins

import (
	"strings"

	"strategylab/internal/domain"
	"strategylab/internal/indicators"
	"strategylab/internal/strategy"
)

var (
	_ strategy.Strategy = (*Bollinger)(nil)
	_ strategy.Strategy = (*MultiIndicator)(nil)
)

// Bollinger buys when the close touches the lower band and sells when it
// touches the upper band. A band with no width gives no signal.
type Bollinger struct{}

func (*Bollinger) Type() domain.StrategyType { return domain.StrategyBollingerBands }

func (*Bollinger) Description() string {
	return "Buy at or below the lower Bollinger band, sell at or above the upper band"
}

func (*Bollinger) Evaluate(set indicators.Set, bar domain.Bar, _ domain.StrategyParams) strategy.Signal {
	if len(set.Bollinger) == 0 {
		return strategy.Signal{}
	}
	band := set.Bollinger[len(set.Bollinger)-1]

	// A zero-width band on a flat window touches both sides at once.
	if band.Upper <= band.Lower {
		return strategy.Signal{}
	}
	switch {
	case bar.Close <= band.Lower:
		return strategy.Signal{Buy: true, Reason: "Price at Lower Bollinger Band"}
	case bar.Close >= band.Upper:
		return strategy.Signal{Sell: true, Reason: "Price at Upper Bollinger Band"}
	}
	return strategy.Signal{}
}

// MultiIndicator takes a majority vote of RSI level, MACD versus signal and
// short versus long SMA. Two agreeing votes trigger a signal.
type MultiIndicator struct{}

func (*MultiIndicator) Type() domain.StrategyType { return domain.StrategyMultiIndicator }

func (*MultiIndicator) Description() string {
	return "Trade when at least two of RSI, MACD and SMA trend agree"
}

func (*MultiIndicator) Evaluate(set indicators.Set, _ domain.Bar, p domain.StrategyParams) strategy.Signal {
	var bullish, bearish int
	var reasons []string

	if rsi, ok := indicators.Last(set.RSI); ok {
		switch {
		case rsi < p.RSIOversold:
			bullish++
			reasons = append(reasons, "RSI Oversold")
		case rsi > p.RSIOverbought:
			bearish++
			reasons = append(reasons, "RSI Overbought")
		}
	}

	macd, okM := indicators.Last(set.MACD.MACD)
	signal, okS := indicators.Last(set.MACD.Signal)
	if okM && okS {
		if macd > signal {
			bullish++
			reasons = append(reasons, "MACD Bullish")
		} else {
			bearish++
			reasons = append(reasons, "MACD Bearish")
		}
	}

	short, okShort := indicators.Last(set.ShortSMA)
	long, okLong := indicators.Last(set.LongSMA)
	if okShort && okLong {
		if short > long {
			bullish++
			reasons = append(reasons, "SMA Bullish")
		} else {
			bearish++
			reasons = append(reasons, "SMA Bearish")
		}
	}

	switch {
	case bullish >= 2:
		return strategy.Signal{Buy: true, Reason: "Multi-Indicator Buy: " + strings.Join(reasons, ", ")}
	case bearish >= 2:
		return strategy.Signal{Sell: true, Reason: "Multi-Indicator Sell: " + strings.Join(reasons, ", ")}
	}
	return strategy.Signal{}
}
