package indicators

import "strategylab/internal/domain"

// Set is the bundle of indicator series computed over one bar window. Each
// series is aligned to a suffix of the window according to its own lookback.
type Set struct {
	ShortSMA   []float64  `json:"shortSMA"`
	LongSMA    []float64  `json:"longSMA"`
	ShortEMA   []float64  `json:"shortEMA"`
	LongEMA    []float64  `json:"longEMA"`
	RSI        []float64  `json:"rsi"`
	MACD       MACDResult `json:"macd"`
	Bollinger  []Band     `json:"bollingerBands"`
	Stochastic []float64  `json:"stochastic"`
	ATR        []float64  `json:"atr"`
	WilliamsR  []float64  `json:"williamsR"`
	CCI        []float64  `json:"cci"`
	OBV        []float64  `json:"obv"`
	VWAP       []float64  `json:"vwap"`
}

// Compute derives every indicator in Set from bars using the periods in p.
// Zero periods in p are replaced by their defaults.
func Compute(bars []domain.Bar, p domain.StrategyParams) Set {
	p = p.WithDefaults()
	c := Columns(bars)
	return Set{
		ShortSMA:   SMA(c.Close, p.ShortPeriod),
		LongSMA:    SMA(c.Close, p.LongPeriod),
		ShortEMA:   EMA(c.Close, p.ShortPeriod),
		LongEMA:    EMA(c.Close, p.LongPeriod),
		RSI:        RSI(c.Close, p.RSIPeriod),
		MACD:       MACD(c.Close, p.MACDFast, p.MACDSlow, p.MACDSignal),
		Bollinger:  BollingerBands(c.Close, p.BollingerPeriod, p.BollingerStdDev),
		Stochastic: Stochastic(c.High, c.Low, c.Close, p.StochPeriod),
		ATR:        ATR(c.High, c.Low, c.Close, p.ATRPeriod),
		WilliamsR:  WilliamsR(c.High, c.Low, c.Close, p.WilliamsPeriod),
		CCI:        CCI(c.High, c.Low, c.Close, p.CCIPeriod),
		OBV:        OBV(c.Close, c.Volume),
		VWAP:       VWAP(c.High, c.Low, c.Close, c.Volume),
	}
}

// OHLCV is a column-oriented view of a bar series.
type OHLCV struct {
	Open, High, Low, Close, Volume []float64
}

// Columns splits bars into parallel price and volume columns.
func Columns(bars []domain.Bar) OHLCV {
	c := OHLCV{
		Open:   make([]float64, len(bars)),
		High:   make([]float64, len(bars)),
		Low:    make([]float64, len(bars)),
		Close:  make([]float64, len(bars)),
		Volume: make([]float64, len(bars)),
	}
	for i, b := range bars {
		c.Open[i] = b.Open
		c.High[i] = b.High
		c.Low[i] = b.Low
		c.Close[i] = b.Close
		c.Volume[i] = float64(b.Volume)
	}
	return c
}

// Last returns the final value of s.
func Last(s []float64) (float64, bool) {
	if len(s) == 0 {
		return 0, false
	}
	return s[len(s)-1], true
}

// LastTwo returns the previous and current values of s.
func LastTwo(s []float64) (prev, cur float64, ok bool) {
	if len(s) < 2 {
		return 0, 0, false
	}
	return s[len(s)-2], s[len(s)-1], true
}

// Snapshot holds the most recent value of each indicator. Fields whose
// series is empty are left nil.
type Snapshot struct {
	ShortSMA      *float64 `json:"shortSMA,omitempty"`
	LongSMA       *float64 `json:"longSMA,omitempty"`
	ShortEMA      *float64 `json:"shortEMA,omitempty"`
	LongEMA       *float64 `json:"longEMA,omitempty"`
	RSI           *float64 `json:"rsi,omitempty"`
	MACD          *float64 `json:"macd,omitempty"`
	MACDSignal    *float64 `json:"macdSignal,omitempty"`
	MACDHistogram *float64 `json:"macdHistogram,omitempty"`
	Bollinger     *Band    `json:"bollingerBands,omitempty"`
	Stochastic    *float64 `json:"stochastic,omitempty"`
	ATR           *float64 `json:"atr,omitempty"`
	WilliamsR     *float64 `json:"williamsR,omitempty"`
	CCI           *float64 `json:"cci,omitempty"`
	OBV           *float64 `json:"obv,omitempty"`
	VWAP          *float64 `json:"vwap,omitempty"`
}

// Latest returns the most recent value of every series in s.
func (s Set) Latest() Snapshot {
	snap := Snapshot{
		ShortSMA:      last(s.ShortSMA),
		LongSMA:       last(s.LongSMA),
		ShortEMA:      last(s.ShortEMA),
		LongEMA:       last(s.LongEMA),
		RSI:           last(s.RSI),
		MACD:          last(s.MACD.MACD),
		MACDSignal:    last(s.MACD.Signal),
		MACDHistogram: last(s.MACD.Histogram),
		Stochastic:    last(s.Stochastic),
		ATR:           last(s.ATR),
		WilliamsR:     last(s.WilliamsR),
		CCI:           last(s.CCI),
		OBV:           last(s.OBV),
		VWAP:          last(s.VWAP),
	}
	if n := len(s.Bollinger); n > 0 {
		b := s.Bollinger[n-1]
		snap.Bollinger = &b
	}
	return snap
}

func last(s []float64) *float64 {
	v, ok := Last(s)
	if !ok {
		return nil
	}
	return &v
}
