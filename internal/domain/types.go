// Package domain holds the core value types shared across strategylab:
// historical bars, strategy configuration, simulated positions and trades,
// and the persisted backtest result.
package domain

import "time"

// Market identifies the exchange group a symbol trades on.
type Market string

const (
	MarketUS Market = "us"
	MarketCN Market = "cn"
)

// Bar is one OHLCV sample for a fixed interval.
type Bar struct {
	Symbol     string    `json:"symbol,omitempty"`
	Timestamp  time.Time `json:"date"`
	Open       float64   `json:"open"`
	High       float64   `json:"high"`
	Low        float64   `json:"low"`
	Close      float64   `json:"close"`
	Volume     int64     `json:"volume"`
	TradeCount int64     `json:"tradeCount,omitempty"`
	VWAP       float64   `json:"vwap,omitempty"`
}

// Side is the direction of a position. Only long positions are opened by the
// built-in strategies.
type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// Exit reasons recorded on closed trades besides strategy signal names.
const (
	ExitStopLoss      = "Stop Loss"
	ExitTakeProfit    = "Take Profit"
	ExitEndOfBacktest = "End of Backtest"
)

// Position is an open simulated holding.
type Position struct {
	EntryDate       time.Time `json:"entryDate"`
	EntryPrice      float64   `json:"entryPrice"`
	Shares          int64     `json:"shares"`
	StopLoss        float64   `json:"stopLoss"`
	TakeProfit      float64   `json:"takeProfit"`
	EntryCommission float64   `json:"entryCommission"`
	EntryReason     string    `json:"entryReason,omitempty"`
}

// MarketValue returns the position's value at price.
func (p Position) MarketValue(price float64) float64 {
	return float64(p.Shares) * price
}

// UnrealizedPnL returns the mark-to-market profit at price, before commission.
func (p Position) UnrealizedPnL(price float64) float64 {
	return (price - p.EntryPrice) * float64(p.Shares)
}

// Trade is a closed round trip. Trades are immutable once recorded.
type Trade struct {
	EntryDate       time.Time `json:"entryDate"`
	ExitDate        time.Time `json:"exitDate"`
	EntryPrice      float64   `json:"entryPrice"`
	ExitPrice       float64   `json:"exitPrice"`
	Quantity        int64     `json:"quantity"`
	Side            Side      `json:"side"`
	PnL             float64   `json:"pnl"`
	PnLPercent      float64   `json:"pnlPercent"`
	Duration        float64   `json:"duration"` // minutes
	Reason          string    `json:"reason"`
	EntryReason     string    `json:"entryReason,omitempty"`
	EntryCommission float64   `json:"entryCommission"`
	ExitCommission  float64   `json:"exitCommission"`
}

// EquityPoint is one sample of the equity curve.
type EquityPoint struct {
	Date            time.Time `json:"date"`
	Equity          float64   `json:"equity"`
	Drawdown        float64   `json:"drawdown"`
	DrawdownPercent float64   `json:"drawdownPercent"`
	Returns         float64   `json:"returns"`
}

// MonthlyReturn is the change in equity over one calendar month.
type MonthlyReturn struct {
	Year          int     `json:"year"`
	Month         int     `json:"month"`
	Return        float64 `json:"return"`
	ReturnPercent float64 `json:"returnPercent"`
}

// MarketDataInfo describes the bar series a result was computed from.
type MarketDataInfo struct {
	TotalBars   int     `json:"totalBars"`
	DataQuality float64 `json:"dataQuality"` // percent
	MissingBars int     `json:"missingBars"`
}

// BacktestResult is the persisted aggregate of one run. It is created once
// and never mutated afterwards.
type BacktestResult struct {
	ID           string       `json:"id"`
	UserID       string       `json:"userId"`
	StrategyName string       `json:"strategyName"`
	StrategyType StrategyType `json:"strategy"`
	Symbol       string       `json:"symbol"`
	Timeframe    string       `json:"timeframe"`
	Interval     string       `json:"interval,omitempty"`
	StartDate    time.Time    `json:"startDate"`
	EndDate      time.Time    `json:"endDate"`

	InitialBalance     float64 `json:"initialBalance"`
	FinalBalance       float64 `json:"finalBalance"`
	TotalReturn        float64 `json:"totalReturn"`
	TotalReturnPercent float64 `json:"totalReturnPercent"`
	AnnualizedReturn   float64 `json:"annualizedReturn"` // percent

	MaxDrawdown        float64 `json:"maxDrawdown"`
	MaxDrawdownPercent float64 `json:"maxDrawdownPercent"`
	SharpeRatio        float64 `json:"sharpeRatio"`
	SortinoRatio       float64 `json:"sortinoRatio"`
	CalmarRatio        float64 `json:"calmarRatio"`

	WinRate             float64 `json:"winRate"`
	ProfitFactor        float64 `json:"profitFactor"`
	TotalTrades         int     `json:"totalTrades"`
	WinningTrades       int     `json:"winningTrades"`
	LosingTrades        int     `json:"losingTrades"`
	AverageWin          float64 `json:"averageWin"`
	AverageLoss         float64 `json:"averageLoss"`
	LargestWin          float64 `json:"largestWin"`
	LargestLoss         float64 `json:"largestLoss"`
	AverageTradeReturn  float64 `json:"averageTradeReturn"`
	AverageTimeInMarket float64 `json:"averageTimeInMarket"` // minutes
	ExposureTime        float64 `json:"exposureTime"`        // percent
	TotalCommission     float64 `json:"totalCommission"`
	WarmupBars          int     `json:"warmupBars"`

	Trades         []Trade         `json:"trades"`
	EquityCurve    []EquityPoint   `json:"equityCurve"`
	MonthlyReturns []MonthlyReturn `json:"monthlyReturns"`

	StrategyParameters StrategyParams `json:"strategyParameters"`
	MarketData         MarketDataInfo `json:"marketData"`
	ExecutionTime      int64          `json:"executionTime"` // milliseconds
	CreatedAt          time.Time      `json:"createdAt"`
}

// ResultSummary is the list-view projection of a BacktestResult.
type ResultSummary struct {
	ID                 string       `json:"id"`
	UserID             string       `json:"userId"`
	StrategyName       string       `json:"strategyName"`
	StrategyType       StrategyType `json:"strategy"`
	Symbol             string       `json:"symbol"`
	Timeframe          string       `json:"timeframe"`
	TotalReturnPercent float64      `json:"totalReturnPercent"`
	SharpeRatio        float64      `json:"sharpeRatio"`
	MaxDrawdownPercent float64      `json:"maxDrawdownPercent"`
	TotalTrades        int          `json:"totalTrades"`
	CreatedAt          time.Time    `json:"createdAt"`
}

// Summary projects r into its list view.
func (r *BacktestResult) Summary() ResultSummary {
	return ResultSummary{
		ID:                 r.ID,
		UserID:             r.UserID,
		StrategyName:       r.StrategyName,
		StrategyType:       r.StrategyType,
		Symbol:             r.Symbol,
		Timeframe:          r.Timeframe,
		TotalReturnPercent: r.TotalReturnPercent,
		SharpeRatio:        r.SharpeRatio,
		MaxDrawdownPercent: r.MaxDrawdownPercent,
		TotalTrades:        r.TotalTrades,
		CreatedAt:          r.CreatedAt,
	}
}
