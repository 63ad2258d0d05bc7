package indicators

import (
	"math"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strategylab/internal/domain"
)

const eps = 1e-9

func ramp(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

func flat(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestSMA(t *testing.T) {
	got := SMA([]float64{1, 2, 3, 4, 5}, 3)
	want := []float64{2, 3, 4}
	assert.InDeltaSlice(t, want, got, eps)
}

func TestSMA_Idempotent(t *testing.T) {
	prices := ramp(50, 100, 0.7)
	a := SMA(prices, 10)
	b := SMA(prices, 10)
	if !slices.Equal(a, b) {
		t.Errorf("SMA not idempotent: %v != %v", a, b)
	}
	if len(a) != 41 {
		t.Errorf("len(SMA) = %d, want 41", len(a))
	}
}

func TestSMA_ShortInput(t *testing.T) {
	if got := SMA([]float64{1, 2}, 3); got != nil {
		t.Errorf("SMA on short input = %v, want nil", got)
	}
	if got := SMA([]float64{1, 2}, 0); got != nil {
		t.Errorf("SMA with zero period = %v, want nil", got)
	}
}

func TestEMA(t *testing.T) {
	// k = 0.5; seed = mean(1,2,3) = 2.
	got := EMA([]float64{1, 2, 3, 4, 5}, 3)
	want := []float64{2, 3, 4}
	assert.InDeltaSlice(t, want, got, eps)
}

func TestRSI_KnownValues(t *testing.T) {
	// Changes +1 -1 +1 -1. First average from the first two changes, then
	// Wilder smoothing.
	got := RSI([]float64{1, 2, 1, 2, 1}, 2)
	want := []float64{50, 75, 37.5}
	assert.InDeltaSlice(t, want, got, eps)
}

func TestRSI_FallingSeriesIsZero(t *testing.T) {
	got := RSI(ramp(40, 100, -1), 14)
	require.Len(t, got, 26)
	for i, v := range got {
		if math.IsNaN(v) || v != 0 {
			t.Fatalf("RSI[%d] = %v, want 0", i, v)
		}
	}
}

func TestRSI_RisingSeriesIsHundred(t *testing.T) {
	got := RSI(ramp(40, 100, 1), 14)
	require.NotEmpty(t, got)
	for i, v := range got {
		if math.IsNaN(v) || math.IsInf(v, 0) || v != 100 {
			t.Fatalf("RSI[%d] = %v, want 100", i, v)
		}
	}
}

func TestRSI_FlatSeries(t *testing.T) {
	for i, v := range RSI(flat(20, 50), 14) {
		if v != 100 {
			t.Errorf("RSI[%d] = %v, want 100", i, v)
		}
	}
}

func TestMACD_Alignment(t *testing.T) {
	prices := ramp(40, 10, 0.5)
	m := MACD(prices, 12, 26, 9)
	assert.Len(t, m.MACD, 15)
	assert.Len(t, m.Signal, 7)
	assert.Len(t, m.Histogram, 7)

	fast := EMA(prices, 12)
	slow := EMA(prices, 26)
	assert.InDelta(t, fast[14]-slow[0], m.MACD[0], eps)
	for j := range m.Histogram {
		assert.InDelta(t, m.MACD[j+8]-m.Signal[j], m.Histogram[j], eps)
	}
}

func TestMACD_FlatSeriesIsZero(t *testing.T) {
	m := MACD(flat(50, 20), 12, 26, 9)
	for _, v := range m.MACD {
		assert.InDelta(t, 0, v, eps)
	}
	for _, v := range m.Histogram {
		assert.InDelta(t, 0, v, eps)
	}
}

func TestMACD_InvalidPeriods(t *testing.T) {
	m := MACD(ramp(50, 1, 1), 26, 12, 9)
	if m.MACD != nil || m.Signal != nil {
		t.Errorf("MACD with fast >= slow = %+v, want empty", m)
	}
}

func TestBollingerBands(t *testing.T) {
	// Window {1,2,3}: mean 2, population sd sqrt(2/3).
	got := BollingerBands([]float64{1, 2, 3}, 3, 2)
	require.Len(t, got, 1)
	sd := math.Sqrt(2.0 / 3.0)
	assert.InDelta(t, 2, got[0].Middle, eps)
	assert.InDelta(t, 2+2*sd, got[0].Upper, eps)
	assert.InDelta(t, 2-2*sd, got[0].Lower, eps)
}

func TestBollingerBands_Flat(t *testing.T) {
	for _, b := range BollingerBands(flat(25, 7), 20, 2) {
		if b.Upper != 7 || b.Lower != 7 || b.Middle != 7 {
			t.Errorf("band = %+v, want all 7", b)
		}
	}
}

func TestStochasticAndWilliamsR(t *testing.T) {
	highs := []float64{10, 12, 14}
	lows := []float64{8, 9, 10}
	closes := []float64{9, 11, 14}

	k := Stochastic(highs, lows, closes, 3)
	require.Len(t, k, 1)
	assert.InDelta(t, 100, k[0], eps)

	w := WilliamsR(highs, lows, closes, 3)
	require.Len(t, w, 1)
	assert.InDelta(t, 0, w[0], eps)

	closes[2] = 8
	assert.InDelta(t, 0, Stochastic(highs, lows, closes, 3)[0], eps)
	assert.InDelta(t, -100, WilliamsR(highs, lows, closes, 3)[0], eps)
}

func TestStochasticAndWilliamsR_FlatWindow(t *testing.T) {
	p := flat(5, 3)
	for _, v := range Stochastic(p, p, p, 3) {
		assert.Equal(t, 50.0, v)
	}
	for _, v := range WilliamsR(p, p, p, 3) {
		assert.Equal(t, -50.0, v)
	}
}

func TestATR(t *testing.T) {
	highs := []float64{10, 11, 12}
	lows := []float64{9, 10, 11}
	closes := []float64{9.5, 10.5, 11.5}
	got := ATR(highs, lows, closes, 2)
	assert.InDeltaSlice(t, []float64{1.5}, got, eps)
}

func TestCCI(t *testing.T) {
	p := flat(25, 10)
	for i, v := range CCI(p, p, p, 20) {
		if v != 0 {
			t.Errorf("CCI[%d] = %v, want 0 for zero deviation", i, v)
		}
	}

	// Typical prices 1,2,3: mean 2, mean deviation 2/3.
	tp := []float64{1, 2, 3}
	got := CCI(tp, tp, tp, 3)
	require.Len(t, got, 1)
	assert.InDelta(t, 1/(0.015*2.0/3.0), got[0], 1e-6)
}

func TestOBV(t *testing.T) {
	got := OBV([]float64{1, 2, 2, 1}, []float64{10, 20, 30, 40})
	want := []float64{10, 30, 30, -10}
	if !slices.Equal(got, want) {
		t.Errorf("OBV = %v, want %v", got, want)
	}
}

func TestVWAP(t *testing.T) {
	h := []float64{3, 6}
	l := []float64{3, 6}
	c := []float64{3, 6}

	got := VWAP(h, l, c, []float64{0, 0})
	assert.InDeltaSlice(t, []float64{3, 6}, got, eps)

	got = VWAP(h, l, c, []float64{1, 2})
	assert.InDeltaSlice(t, []float64{3, 5}, got, eps)
}

func TestIndicatorsDoNotMutateInput(t *testing.T) {
	prices := ramp(60, 50, 0.3)
	orig := slices.Clone(prices)
	SMA(prices, 10)
	EMA(prices, 10)
	RSI(prices, 14)
	MACD(prices, 12, 26, 9)
	BollingerBands(prices, 20, 2)
	CCI(prices, prices, prices, 20)
	if !slices.Equal(prices, orig) {
		t.Error("indicator mutated its input")
	}
}

func TestSupportResistance(t *testing.T) {
	got := SupportResistance([]float64{1, 3, 1, 0, 1}, 1)
	want := []Level{
		{Kind: Resistance, Price: 3, Index: 1},
		{Kind: Support, Price: 0, Index: 3},
	}
	assert.Equal(t, want, got)
	assert.Nil(t, SupportResistance([]float64{1, 2}, 1))
}

func TestFibonacci(t *testing.T) {
	got := Fibonacci(200, 100)
	require.Len(t, got, len(FibonacciRatios))
	assert.InDelta(t, 200, got[0].Price, eps)
	assert.InDelta(t, 150, got[3].Price, eps)
	assert.InDelta(t, 138.2, got[4].Price, eps)
	assert.InDelta(t, 100, got[6].Price, eps)
}

func TestMarketStrength(t *testing.T) {
	tests := []struct {
		name string
		set  Set
		want Strength
	}{
		{
			name: "empty",
			want: Strength{Interpretation: Neutral},
		},
		{
			name: "all bullish",
			set: Set{
				RSI:      []float64{25},
				MACD:     MACDResult{MACD: []float64{1}, Signal: []float64{0.5}},
				ShortSMA: []float64{11},
				LongSMA:  []float64{10},
			},
			want: Strength{Strength: 1, Signals: 3, Interpretation: Bullish},
		},
		{
			name: "neutral rsi, bearish macd and sma",
			set: Set{
				RSI:      []float64{50},
				MACD:     MACDResult{MACD: []float64{0}, Signal: []float64{1}},
				ShortSMA: []float64{9},
				LongSMA:  []float64{10},
			},
			want: Strength{Strength: -2.0 / 3.0, Signals: 3, Interpretation: Bearish},
		},
		{
			name: "split",
			set: Set{
				MACD:     MACDResult{MACD: []float64{2}, Signal: []float64{1}},
				ShortSMA: []float64{9},
				LongSMA:  []float64{10},
			},
			want: Strength{Strength: 0, Signals: 2, Interpretation: Neutral},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MarketStrength(tt.set, 30, 70)
			assert.Equal(t, tt.want.Signals, got.Signals)
			assert.Equal(t, tt.want.Interpretation, got.Interpretation)
			assert.InDelta(t, tt.want.Strength, got.Strength, eps)
		})
	}
}

func TestCompute(t *testing.T) {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]domain.Bar, 60)
	for i := range bars {
		c := 100 + float64(i)
		bars[i] = domain.Bar{
			Timestamp: start.AddDate(0, 0, i),
			Open:      c - 0.5,
			High:      c + 1,
			Low:       c - 1,
			Close:     c,
			Volume:    1000,
		}
	}
	s := Compute(bars, domain.StrategyParams{})

	assert.Len(t, s.ShortSMA, 51)
	assert.Len(t, s.LongSMA, 41)
	assert.Len(t, s.ShortEMA, 51)
	assert.Len(t, s.RSI, 46)
	assert.Len(t, s.MACD.MACD, 35)
	assert.Len(t, s.MACD.Signal, 27)
	assert.Len(t, s.Bollinger, 41)
	assert.Len(t, s.Stochastic, 47)
	assert.Len(t, s.ATR, 46)
	assert.Len(t, s.WilliamsR, 47)
	assert.Len(t, s.CCI, 41)
	assert.Len(t, s.OBV, 60)
	assert.Len(t, s.VWAP, 60)

	snap := s.Latest()
	require.NotNil(t, snap.ShortSMA)
	assert.InDelta(t, 154.5, *snap.ShortSMA, eps)
	require.NotNil(t, snap.Bollinger)
	assert.InDelta(t, 149.5, snap.Bollinger.Middle, eps)
}

func TestCompute_TooFewBars(t *testing.T) {
	s := Compute(nil, domain.DefaultStrategyParams())
	snap := s.Latest()
	assert.Nil(t, snap.RSI)
	assert.Nil(t, snap.Bollinger)
}
