package indicators

import "slices"

// LevelKind distinguishes support from resistance.
type LevelKind string

const (
	Support    LevelKind = "support"
	Resistance LevelKind = "resistance"
)

// Level is a local price extreme found by SupportResistance.
type Level struct {
	Kind  LevelKind `json:"type"`
	Price float64   `json:"price"`
	Index int       `json:"index"`
}

// SupportResistance returns every close that is the maximum (resistance) or
// minimum (support) of the centred window [i-period, i+period]. Only indices
// with a full window on both sides are considered.
func SupportResistance(closes []float64, period int) []Level {
	if period <= 0 || len(closes) < 2*period+1 {
		return nil
	}
	var levels []Level
	for i := period; i < len(closes)-period; i++ {
		window := closes[i-period : i+period+1]
		cur := closes[i]
		if cur == slices.Max(window) {
			levels = append(levels, Level{Kind: Resistance, Price: cur, Index: i})
		}
		if cur == slices.Min(window) {
			levels = append(levels, Level{Kind: Support, Price: cur, Index: i})
		}
	}
	return levels
}

// FibonacciRatios are the retracement ratios reported by Fibonacci.
var FibonacciRatios = []float64{0, 0.236, 0.382, 0.5, 0.618, 0.786, 1}

// FibLevel is one retracement price.
type FibLevel struct {
	Ratio float64 `json:"level"`
	Price float64 `json:"price"`
}

// Fibonacci returns the retracement prices between high and low, measured
// down from high.
func Fibonacci(high, low float64) []FibLevel {
	diff := high - low
	out := make([]FibLevel, len(FibonacciRatios))
	for i, r := range FibonacciRatios {
		out[i] = FibLevel{Ratio: r, Price: high - diff*r}
	}
	return out
}

// Market strength interpretations.
const (
	Bullish = "BULLISH"
	Bearish = "BEARISH"
	Neutral = "NEUTRAL"
)

// Strength summarises the latest RSI, MACD and moving-average readings.
type Strength struct {
	Strength       float64 `json:"strength"` // in [-1, 1]
	Signals        int     `json:"signals"`
	Interpretation string  `json:"interpretation"`
}

// MarketStrength casts one vote per available indicator: RSI below oversold
// is bullish and above overbought bearish, MACD above its signal line is
// bullish, and the short SMA above the long SMA is bullish. The vote total is
// divided by the number of votes cast.
func MarketStrength(s Set, oversold, overbought float64) Strength {
	var score float64
	var n int

	if rsi, ok := Last(s.RSI); ok {
		switch {
		case rsi < oversold:
			score++
		case rsi > overbought:
			score--
		}
		n++
	}
	macd, okM := Last(s.MACD.MACD)
	sig, okS := Last(s.MACD.Signal)
	if okM && okS {
		score += vote(macd > sig)
		n++
	}
	short, okShort := Last(s.ShortSMA)
	long, okLong := Last(s.LongSMA)
	if okShort && okLong {
		score += vote(short > long)
		n++
	}

	out := Strength{Signals: n, Interpretation: Neutral}
	if n > 0 {
		out.Strength = score / float64(n)
	}
	switch {
	case out.Strength > 0.3:
		out.Interpretation = Bullish
	case out.Strength < -0.3:
		out.Interpretation = Bearish
	}
	return out
}

func vote(bullish bool) float64 {
	if bullish {
		return 1
	}
	return -1
}
