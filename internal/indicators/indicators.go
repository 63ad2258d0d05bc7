// Package indicators implements the technical indicators used by the signal
// rules. Every function is pure: it never mutates its inputs and keeps no
// state between calls.
//
// Window-based indicators use trailing windows. Output index j of an indicator
// with period p corresponds to input index j+p-1; callers aligning several
// series are responsible for that offset. A series shorter than an
// indicator's lookback yields an empty (nil) output.
package indicators

import "math"

// SMA returns the arithmetic mean of every trailing window of period prices.
// The output has len(prices)-period+1 values.
func SMA(prices []float64, period int) []float64 {
	if period <= 0 || len(prices) < period {
		return nil
	}
	out := make([]float64, 0, len(prices)-period+1)
	var sum float64
	for i, p := range prices {
		sum += p
		if i >= period {
			sum -= prices[i-period]
		}
		if i >= period-1 {
			out = append(out, sum/float64(period))
		}
	}
	return out
}

// EMA returns the exponential moving average seeded with the SMA of the first
// period prices. The output has len(prices)-period+1 values.
func EMA(prices []float64, period int) []float64 {
	if period <= 0 || len(prices) < period {
		return nil
	}
	k := 2.0 / float64(period+1)
	out := make([]float64, 0, len(prices)-period+1)

	var seed float64
	for _, p := range prices[:period] {
		seed += p
	}
	out = append(out, seed/float64(period))
	for _, p := range prices[period:] {
		prev := out[len(out)-1]
		out = append(out, (p-prev)*k+prev)
	}
	return out
}

// RSI returns Wilder's relative strength index. The first value uses the
// simple average of the first period gains and losses; later values are
// smoothed as (prev*(period-1)+current)/period. An average loss of zero yields
// 100. The output has len(prices)-period values.
func RSI(prices []float64, period int) []float64 {
	if period <= 0 || len(prices) <= period {
		return nil
	}
	out := make([]float64, 0, len(prices)-period)

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		g, l := change(prices[i-1], prices[i])
		avgGain += g
		avgLoss += l
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out = append(out, rsiValue(avgGain, avgLoss))

	for i := period + 1; i < len(prices); i++ {
		g, l := change(prices[i-1], prices[i])
		avgGain = (avgGain*float64(period-1) + g) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + l) / float64(period)
		out = append(out, rsiValue(avgGain, avgLoss))
	}
	return out
}

func change(prev, cur float64) (gain, loss float64) {
	d := cur - prev
	if d > 0 {
		return d, 0
	}
	return 0, -d
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// MACDResult holds the three MACD series. MACD starts at input index
// slow-1, Signal at slow+signal-2 and Histogram is aligned with Signal.
type MACDResult struct {
	MACD      []float64 `json:"macd"`
	Signal    []float64 `json:"signal"`
	Histogram []float64 `json:"histogram"`
}

// MACD returns fastEMA-slowEMA aligned from the first index where both exist,
// its signal EMA and the histogram. fast must be smaller than slow.
func MACD(prices []float64, fast, slow, signal int) MACDResult {
	if fast <= 0 || slow <= fast || signal <= 0 || len(prices) < slow {
		return MACDResult{}
	}
	fastEMA := EMA(prices, fast)
	slowEMA := EMA(prices, slow)
	offset := slow - fast

	line := make([]float64, len(slowEMA))
	for i := range slowEMA {
		line[i] = fastEMA[i+offset] - slowEMA[i]
	}

	sig := EMA(line, signal)
	var hist []float64
	if len(sig) > 0 {
		hist = make([]float64, len(sig))
		for i := range sig {
			hist[i] = line[i+signal-1] - sig[i]
		}
	}
	return MACDResult{MACD: line, Signal: sig, Histogram: hist}
}

// Band is one Bollinger Bands sample.
type Band struct {
	Upper  float64 `json:"upper"`
	Middle float64 `json:"middle"`
	Lower  float64 `json:"lower"`
}

// BollingerBands returns SMA(period) ± k population standard deviations of
// each trailing window.
func BollingerBands(prices []float64, period int, k float64) []Band {
	mid := SMA(prices, period)
	if mid == nil {
		return nil
	}
	out := make([]Band, len(mid))
	for j, mean := range mid {
		window := prices[j : j+period]
		var variance float64
		for _, p := range window {
			variance += (p - mean) * (p - mean)
		}
		sd := math.Sqrt(variance / float64(period))
		out[j] = Band{Upper: mean + k*sd, Middle: mean, Lower: mean - k*sd}
	}
	return out
}

// Stochastic returns %K = (close-lowestLow)/(highestHigh-lowestLow)*100 over
// each trailing window. A flat window yields 50.
func Stochastic(highs, lows, closes []float64, period int) []float64 {
	n := minLen(highs, lows, closes)
	if period <= 0 || n < period {
		return nil
	}
	out := make([]float64, 0, n-period+1)
	for i := period - 1; i < n; i++ {
		hh, ll := extremes(highs[i-period+1:i+1], lows[i-period+1:i+1])
		if hh == ll {
			out = append(out, 50)
			continue
		}
		out = append(out, (closes[i]-ll)/(hh-ll)*100)
	}
	return out
}

// WilliamsR returns Williams %R in [-100, 0] over each trailing window. A
// flat window yields -50.
func WilliamsR(highs, lows, closes []float64, period int) []float64 {
	n := minLen(highs, lows, closes)
	if period <= 0 || n < period {
		return nil
	}
	out := make([]float64, 0, n-period+1)
	for i := period - 1; i < n; i++ {
		hh, ll := extremes(highs[i-period+1:i+1], lows[i-period+1:i+1])
		if hh == ll {
			out = append(out, -50)
			continue
		}
		out = append(out, (hh-closes[i])/(hh-ll)*-100)
	}
	return out
}

// ATR returns the SMA of the true range, where the true range of bar i is
// max(high-low, |high-prevClose|, |low-prevClose|). The output has
// len-period values.
func ATR(highs, lows, closes []float64, period int) []float64 {
	n := minLen(highs, lows, closes)
	if n < 2 {
		return nil
	}
	tr := make([]float64, 0, n-1)
	for i := 1; i < n; i++ {
		tr = append(tr, math.Max(highs[i]-lows[i], math.Max(
			math.Abs(highs[i]-closes[i-1]),
			math.Abs(lows[i]-closes[i-1]),
		)))
	}
	return SMA(tr, period)
}

// CCI returns (typical-SMA(typical))/(0.015*meanDeviation) for each trailing
// window. A window with zero mean deviation yields 0.
func CCI(highs, lows, closes []float64, period int) []float64 {
	n := minLen(highs, lows, closes)
	if period <= 0 || n < period {
		return nil
	}
	tp := make([]float64, n)
	for i := 0; i < n; i++ {
		tp[i] = (highs[i] + lows[i] + closes[i]) / 3
	}
	mean := SMA(tp, period)
	out := make([]float64, len(mean))
	for j, m := range mean {
		var dev float64
		for _, v := range tp[j : j+period] {
			dev += math.Abs(v - m)
		}
		dev /= float64(period)
		if dev == 0 {
			continue
		}
		out[j] = (tp[j+period-1] - m) / (0.015 * dev)
	}
	return out
}

// OBV returns on-balance volume. The series starts at the first volume and
// adds or subtracts each later volume as the price rises or falls.
func OBV(prices, volumes []float64) []float64 {
	n := minLen(prices, volumes)
	if n == 0 {
		return nil
	}
	out := make([]float64, n)
	out[0] = volumes[0]
	for i := 1; i < n; i++ {
		switch {
		case prices[i] > prices[i-1]:
			out[i] = out[i-1] + volumes[i]
		case prices[i] < prices[i-1]:
			out[i] = out[i-1] - volumes[i]
		default:
			out[i] = out[i-1]
		}
	}
	return out
}

// VWAP returns cumulative typical-price*volume over cumulative volume, both
// running from the start of the series. While no volume has traded the
// typical price is used.
func VWAP(highs, lows, closes, volumes []float64) []float64 {
	n := minLen(highs, lows, closes, volumes)
	if n == 0 {
		return nil
	}
	out := make([]float64, n)
	var cumVol, cumPV float64
	for i := 0; i < n; i++ {
		tp := (highs[i] + lows[i] + closes[i]) / 3
		cumPV += tp * volumes[i]
		cumVol += volumes[i]
		if cumVol == 0 {
			out[i] = tp
			continue
		}
		out[i] = cumPV / cumVol
	}
	return out
}

func extremes(highs, lows []float64) (hh, ll float64) {
	hh, ll = math.Inf(-1), math.Inf(1)
	for i := range highs {
		hh = math.Max(hh, highs[i])
		ll = math.Min(ll, lows[i])
	}
	return hh, ll
}

func minLen(series ...[]float64) int {
	n := math.MaxInt
	for _, s := range series {
		n = min(n, len(s))
	}
	if n == math.MaxInt {
		return 0
	}
	return n
}
