package backtest

import (
	"math"
	"time"

	"strategylab/internal/domain"
)

// tradingDaysPerYear annualizes per-bar Sharpe and Sortino ratios.
const tradingDaysPerYear = 252

// aggregate folds a finished state into a result. Every ratio with a zero
// denominator is reported as 0.
func aggregate(st *state, bars []domain.Bar) *domain.BacktestResult {
	cfg := st.cfg
	first, last := bars[0].Timestamp, bars[len(bars)-1].Timestamp
	totalDays := last.Sub(first).Hours() / 24

	res := &domain.BacktestResult{
		StrategyName:       cfg.Name,
		StrategyType:       cfg.Strategy,
		Symbol:             cfg.Symbol,
		Timeframe:          cfg.Timeframe,
		Interval:           cfg.Interval,
		StartDate:          first,
		EndDate:            last,
		InitialBalance:     cfg.InitialBalance,
		FinalBalance:       st.balance,
		TotalReturn:        st.balance - cfg.InitialBalance,
		TotalReturnPercent: (st.balance - cfg.InitialBalance) / cfg.InitialBalance * 100,
		AnnualizedReturn:   annualizedReturn(cfg.InitialBalance, st.balance, totalDays) * 100,
		MaxDrawdown:        st.maxDrawdown,
		MaxDrawdownPercent: st.maxDDPct,
		Trades:             st.trades,
		EquityCurve:        st.equity,
		MonthlyReturns:     MonthlyReturns(st.equity),
		StrategyParameters: st.params,
		MarketData: domain.MarketDataInfo{
			TotalBars:   len(bars),
			DataQuality: 100,
		},
	}
	if res.Trades == nil {
		res.Trades = []domain.Trade{}
	}

	returns := make([]float64, len(st.equity))
	for i, e := range st.equity {
		returns[i] = e.Returns
	}
	res.SharpeRatio = SharpeRatio(returns)
	res.SortinoRatio = SortinoRatio(returns)
	if res.MaxDrawdownPercent > 0 {
		res.CalmarRatio = res.AnnualizedReturn / res.MaxDrawdownPercent
	}

	ts := TradeStats(st.trades)
	res.TotalTrades = ts.Total
	res.WinningTrades = ts.Winning
	res.LosingTrades = ts.Losing
	res.WinRate = ts.WinRate
	res.ProfitFactor = ts.ProfitFactor
	res.AverageWin = ts.AverageWin
	res.AverageLoss = ts.AverageLoss
	res.LargestWin = ts.LargestWin
	res.LargestLoss = ts.LargestLoss
	res.AverageTradeReturn = ts.AverageReturn
	res.AverageTimeInMarket = ts.AverageDuration
	res.TotalCommission = ts.Commission
	if totalDays > 0 {
		res.ExposureTime = ts.TotalDuration / (totalDays * 24 * 60) * 100
	}

	sanitize(res)
	return res
}

func annualizedReturn(initial, final, days float64) float64 {
	if initial <= 0 || final <= 0 || days <= 0 {
		return 0
	}
	return math.Pow(final/initial, 365/days) - 1
}

// SharpeRatio returns mean/stddev of returns scaled by sqrt(252), using the
// population standard deviation.
func SharpeRatio(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	mean := meanOf(returns)
	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	sd := math.Sqrt(variance / float64(len(returns)))
	if sd == 0 {
		return 0
	}
	return mean / sd * math.Sqrt(tradingDaysPerYear)
}

// SortinoRatio is SharpeRatio with the root mean square of the negative
// returns as denominator. It is 0 when no return is negative.
func SortinoRatio(returns []float64) float64 {
	var sumSq float64
	var n int
	for _, r := range returns {
		if r < 0 {
			sumSq += r * r
			n++
		}
	}
	if n == 0 {
		return 0
	}
	dd := math.Sqrt(sumSq / float64(n))
	if dd == 0 {
		return 0
	}
	return meanOf(returns) / dd * math.Sqrt(tradingDaysPerYear)
}

func meanOf(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// Stats summarises a trade log. A trade with pnl <= 0 counts as a loss.
type Stats struct {
	Total           int
	Winning         int
	Losing          int
	WinRate         float64 // percent
	GrossProfit     float64
	GrossLoss       float64 // positive
	ProfitFactor    float64
	AverageWin      float64
	AverageLoss     float64 // positive
	LargestWin      float64
	LargestLoss     float64 // <= 0
	AverageReturn   float64
	TotalDuration   float64 // minutes
	AverageDuration float64 // minutes
	Commission      float64
}

// TradeStats reduces trades into Stats.
func TradeStats(trades []domain.Trade) Stats {
	var s Stats
	var totalPnL float64
	for _, t := range trades {
		s.Total++
		totalPnL += t.PnL
		s.TotalDuration += t.Duration
		s.Commission += t.EntryCommission + t.ExitCommission
		if t.PnL > 0 {
			s.Winning++
			s.GrossProfit += t.PnL
			s.LargestWin = max(s.LargestWin, t.PnL)
		} else {
			s.Losing++
			s.GrossLoss += -t.PnL
			s.LargestLoss = min(s.LargestLoss, t.PnL)
		}
	}
	if s.Total > 0 {
		s.WinRate = float64(s.Winning) / float64(s.Total) * 100
		s.AverageReturn = totalPnL / float64(s.Total)
		s.AverageDuration = s.TotalDuration / float64(s.Total)
	}
	if s.GrossLoss > 0 {
		s.ProfitFactor = s.GrossProfit / s.GrossLoss
	}
	if s.Winning > 0 {
		s.AverageWin = s.GrossProfit / float64(s.Winning)
	}
	if s.Losing > 0 {
		s.AverageLoss = s.GrossLoss / float64(s.Losing)
	}
	return s
}

// MonthlyReturns groups the curve by UTC calendar month in order of
// appearance and reports last minus first equity of each month.
func MonthlyReturns(curve []domain.EquityPoint) []domain.MonthlyReturn {
	type bucket struct {
		year       int
		month      time.Month
		start, end float64
	}
	var buckets []bucket
	for _, e := range curve {
		d := e.Date.UTC()
		if n := len(buckets); n > 0 && buckets[n-1].year == d.Year() && buckets[n-1].month == d.Month() {
			buckets[n-1].end = e.Equity
			continue
		}
		buckets = append(buckets, bucket{year: d.Year(), month: d.Month(), start: e.Equity, end: e.Equity})
	}

	out := make([]domain.MonthlyReturn, len(buckets))
	for i, b := range buckets {
		mr := domain.MonthlyReturn{Year: b.year, Month: int(b.month), Return: b.end - b.start}
		if b.start != 0 {
			mr.ReturnPercent = mr.Return / b.start * 100
		}
		out[i] = mr
	}
	return out
}

// sanitize replaces NaN and infinities in the headline ratios with 0.
func sanitize(r *domain.BacktestResult) {
	for _, f := range []*float64{
		&r.TotalReturn, &r.TotalReturnPercent, &r.AnnualizedReturn,
		&r.SharpeRatio, &r.SortinoRatio, &r.CalmarRatio,
		&r.ProfitFactor, &r.ExposureTime,
	} {
		if math.IsNaN(*f) || math.IsInf(*f, 0) {
			*f = 0
		}
	}
}
