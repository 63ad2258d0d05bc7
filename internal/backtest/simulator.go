// Package backtest replays historical bars through a signal rule, simulates
// fills for a single long position and aggregates the outcome into a
// domain.BacktestResult.
package backtest

import (
	"context"
	"fmt"
	"log/slog"

	"strategylab/internal/domain"
	"strategylab/internal/indicators"
	"strategylab/internal/risk"
	"strategylab/internal/strategy"
	"strategylab/internal/strategy/builtins"
)

// Simulator runs the bar-by-bar loop. It holds no per-run state and is safe
// for concurrent use.
type Simulator struct {
	registry *strategy.Registry
	risk     *risk.Manager
	log      *slog.Logger
}

// NewSimulator creates a Simulator that dispatches signals through registry
// and sizes entries with rm. A nil registry selects the builtin strategies.
func NewSimulator(registry *strategy.Registry, rm *risk.Manager) *Simulator {
	if registry == nil {
		registry = builtins.NewRegistry()
	}
	if rm == nil {
		rm = risk.NewManager(0)
	}
	return &Simulator{
		registry: registry,
		risk:     rm,
		log:      slog.Default().With("component", "simulator"),
	}
}

// state is the mutable simulation state of one run. It never outlives the
// call to Simulate that created it.
type state struct {
	cfg    domain.StrategyConfig
	params domain.StrategyParams
	risk   *risk.Manager
	log    *slog.Logger

	balance  float64
	position *domain.Position
	trades   []domain.Trade
	equity   []domain.EquityPoint

	prevEquity  float64
	peakEquity  float64
	maxDrawdown float64
	maxDDPct    float64
}

func newState(cfg domain.StrategyConfig, rm *risk.Manager, log *slog.Logger, bars int) *state {
	return &state{
		cfg:        cfg,
		params:     cfg.Parameters,
		risk:       rm,
		log:        log,
		balance:    cfg.InitialBalance,
		equity:     make([]domain.EquityPoint, 0, bars),
		prevEquity: cfg.InitialBalance,
		peakEquity: cfg.InitialBalance,
	}
}

// Simulate runs cfg over bars and returns the aggregated result. It performs
// no I/O. ID, UserID, CreatedAt and ExecutionTime are left for the caller.
//
// bars must be ordered by time with no duplicates. ctx is checked before
// every bar.
func (s *Simulator) Simulate(ctx context.Context, bars []domain.Bar, cfg domain.StrategyConfig) (*domain.BacktestResult, error) {
	cfg = cfg.Normalized()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(bars) < domain.MinBars {
		return nil, fmt.Errorf("%w: got %d bars, need %d", domain.ErrInsufficientData, len(bars), domain.MinBars)
	}
	lookback := cfg.Parameters.Lookback()
	if lookback >= len(bars) {
		return nil, fmt.Errorf("%w: lookback %d exceeds %d bars", domain.ErrInsufficientData, lookback, len(bars))
	}

	st := newState(cfg, s.risk, s.log.With("symbol", cfg.Symbol, "strategy", string(cfg.Strategy)), len(bars)-lookback)
	for i := lookback; i < len(bars); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		bar := bars[i]
		set := indicators.Compute(bars[i-lookback:i+1], st.params)
		sig := s.registry.Evaluate(cfg.Strategy, set, bar, st.params)
		st.step(bar, sig)
	}
	st.closeOpen(bars[len(bars)-1])

	res := aggregate(st, bars)
	res.WarmupBars = lookback
	return res, nil
}

// step applies one bar: an entry when flat, otherwise the exit checks, then
// one equity sample.
func (st *state) step(bar domain.Bar, sig strategy.Signal) {
	if st.position == nil {
		if sig.Buy {
			st.open(bar, sig.Reason)
		}
	} else if price, reason, ok := st.exitFor(bar, sig); ok {
		st.close(bar, price, reason, st.cfg.Commission)
	}
	st.mark(bar)
}

func (st *state) open(bar domain.Bar, reason string) {
	price := bar.Close
	shares := st.risk.Shares(st.balance, price, st.params)
	if err := st.risk.CheckOrder(st.balance, price, shares, st.cfg.Commission); err != nil {
		st.log.Debug("entry skipped", "date", bar.Timestamp, "price", price, "err", err)
		return
	}
	sl, tp := risk.Levels(price, st.params)
	st.position = &domain.Position{
		EntryDate:       bar.Timestamp,
		EntryPrice:      price,
		Shares:          shares,
		StopLoss:        sl,
		TakeProfit:      tp,
		EntryCommission: st.cfg.Commission,
		EntryReason:     reason,
	}
	st.balance -= float64(shares)*price + st.cfg.Commission
	st.log.Debug("entry", "date", bar.Timestamp, "price", price, "shares", shares, "reason", reason)
}

// exitFor checks stop-loss, take-profit and the sell signal in that order.
// Protective levels trigger on the bar's range and fill at the level, or at
// the open when the bar gaps through it.
func (st *state) exitFor(bar domain.Bar, sig strategy.Signal) (float64, string, bool) {
	pos := st.position
	low, high := bar.Low, bar.High
	if low == 0 {
		low = bar.Close
	}
	if high == 0 {
		high = bar.Close
	}

	switch {
	case low <= pos.StopLoss:
		fill := pos.StopLoss
		if bar.Open > 0 && bar.Open < fill {
			fill = bar.Open
		}
		return fill, domain.ExitStopLoss, true
	case high >= pos.TakeProfit:
		fill := pos.TakeProfit
		if bar.Open > fill {
			fill = bar.Open
		}
		return fill, domain.ExitTakeProfit, true
	case sig.Sell:
		return bar.Close, sig.Reason, true
	}
	return 0, "", false
}

func (st *state) close(bar domain.Bar, price float64, reason string, commission float64) {
	pos := st.position
	qty := float64(pos.Shares)
	pnl := pos.UnrealizedPnL(price) - commission

	st.balance += qty*price - commission
	st.trades = append(st.trades, domain.Trade{
		EntryDate:       pos.EntryDate,
		ExitDate:        bar.Timestamp,
		EntryPrice:      pos.EntryPrice,
		ExitPrice:       price,
		Quantity:        pos.Shares,
		Side:            domain.SideLong,
		PnL:             pnl,
		PnLPercent:      pnl / (pos.EntryPrice * qty) * 100,
		Duration:        bar.Timestamp.Sub(pos.EntryDate).Minutes(),
		Reason:          reason,
		EntryReason:     pos.EntryReason,
		EntryCommission: pos.EntryCommission,
		ExitCommission:  commission,
	})
	st.log.Debug("exit", "date", bar.Timestamp, "price", price, "pnl", pnl, "reason", reason)
	st.position = nil
}

// closeOpen realizes any position left at the end of the series at the final
// close, without commission.
func (st *state) closeOpen(last domain.Bar) {
	if st.position == nil {
		return
	}
	st.close(last, last.Close, domain.ExitEndOfBacktest, 0)
}

// mark appends the equity sample for bar, valuing an open position at the
// close.
func (st *state) mark(bar domain.Bar) {
	equity := st.balance
	if st.position != nil {
		equity += st.position.MarketValue(bar.Close)
	}
	if equity > st.peakEquity {
		st.peakEquity = equity
	}
	dd := st.peakEquity - equity
	var ddPct float64
	if st.peakEquity > 0 {
		ddPct = dd / st.peakEquity * 100
	}
	st.maxDrawdown = max(st.maxDrawdown, dd)
	st.maxDDPct = max(st.maxDDPct, ddPct)

	var ret float64
	if st.prevEquity != 0 {
		ret = (equity - st.prevEquity) / st.prevEquity
	}
	st.prevEquity = equity

	st.equity = append(st.equity, domain.EquityPoint{
		Date:            bar.Timestamp,
		Equity:          equity,
		Drawdown:        dd,
		DrawdownPercent: ddPct,
		Returns:         ret,
	})
}
