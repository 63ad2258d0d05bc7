package backtest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"strategylab/internal/domain"
	"strategylab/internal/indicators"
	"strategylab/internal/marketdata"
	"strategylab/internal/metrics"
	"strategylab/internal/store"
	"strategylab/internal/util"
)

// Options tunes a Service. Zero values select the defaults noted per field.
type Options struct {
	RunTimeout     time.Duration // per run; 0 disables the timeout
	MaxConcurrent  int           // RunBatch parallelism; default 4
	DefaultBalance float64       // used when a config has no initial balance; default 10000
	SaveAttempts   int           // default 3
}

// Service coordinates a complete backtest: fetching bars, cleaning them,
// simulating and persisting the result.
type Service struct {
	sim      *Simulator
	source   marketdata.Source
	results  store.ResultStore
	exporter store.EquityExporter
	calendar *util.TradingCalendar
	opts     Options
	log      *slog.Logger
	now      func() time.Time
}

// NewService creates a Service wired with the given dependencies. exporter
// and calendar may be nil.
func NewService(
	sim *Simulator,
	source marketdata.Source,
	results store.ResultStore,
	exporter store.EquityExporter,
	calendar *util.TradingCalendar,
	opts Options,
	log *slog.Logger,
) *Service {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 4
	}
	if opts.DefaultBalance <= 0 {
		opts.DefaultBalance = 10000
	}
	if opts.SaveAttempts <= 0 {
		opts.SaveAttempts = 3
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		sim:      sim,
		source:   source,
		results:  results,
		exporter: exporter,
		calendar: calendar,
		opts:     opts,
		log:      log.With("component", "backtest"),
		now:      time.Now,
	}
}

// Run executes cfg for userID and persists the result. A save failure is
// returned as *domain.PersistenceError carrying the computed result.
func (s *Service) Run(ctx context.Context, userID string, cfg domain.StrategyConfig) (*domain.BacktestResult, error) {
	if cfg.InitialBalance == 0 {
		cfg.InitialBalance = s.opts.DefaultBalance
	}
	cfg = cfg.Normalized()

	done := metrics.RunStarted(string(cfg.Strategy))
	res, err := s.run(ctx, userID, cfg)
	done(runStatus(err))
	if err != nil {
		return res, err
	}
	metrics.ObserveSimulation(string(cfg.Strategy), res.MarketData.TotalBars, res.TotalTrades)
	return res, nil
}

func (s *Service) run(ctx context.Context, userID string, cfg domain.StrategyConfig) (*domain.BacktestResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if s.opts.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.RunTimeout)
		defer cancel()
	}

	started := s.now()
	bars, quality, err := s.fetch(ctx, cfg.Symbol, cfg.Timeframe, cfg.Interval)
	if err != nil {
		return nil, err
	}

	res, err := s.sim.Simulate(ctx, bars, cfg)
	if err != nil {
		return nil, err
	}
	res.ID = uuid.NewString()
	res.UserID = userID
	res.MarketData = quality.Info()
	res.CreatedAt = s.now().UTC()
	res.ExecutionTime = s.now().Sub(started).Milliseconds()

	s.log.Info("backtest complete",
		"id", res.ID,
		"symbol", res.Symbol,
		"strategy", string(res.StrategyType),
		"trades", res.TotalTrades,
		"final_balance", res.FinalBalance,
		"duration_ms", res.ExecutionTime,
	)

	if err := s.Save(ctx, res); err != nil {
		return res, err
	}
	return res, nil
}

// fetch loads and cleans bars for a run.
func (s *Service) fetch(ctx context.Context, symbol, period, interval string) ([]domain.Bar, marketdata.Quality, error) {
	req := marketdata.RequestForPeriod(symbol, period, interval, s.now())
	raw, err := s.source.Bars(ctx, req)
	if err != nil {
		if errors.Is(err, marketdata.ErrNoData) {
			return nil, marketdata.Quality{}, fmt.Errorf("%w: %v", domain.ErrInsufficientData, err)
		}
		return nil, marketdata.Quality{}, fmt.Errorf("fetching %s bars: %w", symbol, err)
	}

	var days []time.Time
	if s.calendar != nil && marketdata.IsDaily(req.Interval) {
		days = s.calendar.TradingDays(ctx, req.Start, req.End)
	}
	bars, quality := marketdata.Normalize(raw, days)
	s.log.Debug("bars loaded",
		"symbol", req.Symbol,
		"source", s.source.Name(),
		"bars", quality.TotalBars,
		"missing", quality.MissingBars,
	)
	return bars, quality, nil
}

// Simulate runs cfg over bars without any I/O.
func (s *Service) Simulate(ctx context.Context, bars []domain.Bar, cfg domain.StrategyConfig) (*domain.BacktestResult, error) {
	return s.sim.Simulate(ctx, bars, cfg)
}

// Save persists res, retrying transient failures. Saving is idempotent on the
// result ID. Failures are returned as *domain.PersistenceError.
func (s *Service) Save(ctx context.Context, res *domain.BacktestResult) error {
	err := util.Retry(ctx, s.opts.SaveAttempts, 50*time.Millisecond, func() error {
		return s.results.SaveResult(ctx, res)
	})
	if err != nil {
		s.log.Error("saving result failed", "id", res.ID, "err", err)
		return &domain.PersistenceError{Result: res, Err: err}
	}
	if s.exporter != nil {
		if err := s.exporter.WriteEquityCurve(ctx, res.ID, res.EquityCurve); err != nil {
			s.log.Warn("equity curve export failed", "id", res.ID, "err", err)
		}
	}
	return nil
}

// Get returns a stored result.
func (s *Service) Get(ctx context.Context, id string) (*domain.BacktestResult, error) {
	return s.results.GetResult(ctx, id)
}

// List returns stored result summaries, newest first.
func (s *Service) List(ctx context.Context, f store.ResultFilter) ([]domain.ResultSummary, error) {
	return s.results.ListResults(ctx, f)
}

// RunBatch runs independent configs concurrently and returns their results in
// input order. The first error cancels the remaining runs.
func (s *Service) RunBatch(ctx context.Context, userID string, cfgs []domain.StrategyConfig) ([]*domain.BacktestResult, error) {
	results := make([]*domain.BacktestResult, len(cfgs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.MaxConcurrent)
	for i, cfg := range cfgs {
		g.Go(func() error {
			res, err := s.Run(ctx, userID, cfg)
			if err != nil {
				return fmt.Errorf("run %d (%s %s): %w", i, cfg.Symbol, cfg.Strategy, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// IndicatorReport is the latest indicator snapshot for a symbol.
type IndicatorReport struct {
	Symbol     string                `json:"symbol"`
	Interval   string                `json:"interval"`
	AsOf       time.Time             `json:"asOf"`
	Close      float64               `json:"close"`
	Indicators indicators.Snapshot   `json:"indicators"`
	Strength   indicators.Strength   `json:"marketStrength"`
	Support    []indicators.Level    `json:"supportResistance"`
	Fibonacci  []indicators.FibLevel `json:"fibonacci"`
}

// Indicators computes the latest indicator values for symbol over period with
// default parameters.
func (s *Service) Indicators(ctx context.Context, symbol, period, interval string) (*IndicatorReport, error) {
	bars, _, err := s.fetch(ctx, symbol, period, interval)
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, domain.ErrInsufficientData
	}
	p := domain.DefaultStrategyParams()
	set := indicators.Compute(bars, p)

	closes := make([]float64, len(bars))
	high, low := bars[0].High, bars[0].Low
	for i, b := range bars {
		closes[i] = b.Close
		high = max(high, b.High)
		low = min(low, b.Low)
	}
	last := bars[len(bars)-1]
	return &IndicatorReport{
		Symbol:     last.Symbol,
		Interval:   marketdata.NormalizeInterval(interval),
		AsOf:       last.Timestamp,
		Close:      last.Close,
		Indicators: set.Latest(),
		Strength:   indicators.MarketStrength(set, p.RSIOversold, p.RSIOverbought),
		Support:    indicators.SupportResistance(closes, p.LongPeriod),
		Fibonacci:  indicators.Fibonacci(high, low),
	}, nil
}

func runStatus(err error) string {
	var perr *domain.PersistenceError
	switch {
	case err == nil:
		return metrics.StatusOK
	case errors.As(err, &perr):
		return metrics.StatusPersistenceError
	case errors.Is(err, domain.ErrInvalidConfig):
		return metrics.StatusInvalid
	case errors.Is(err, domain.ErrInsufficientData):
		return metrics.StatusInsufficientData
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return metrics.StatusCanceled
	}
	return metrics.StatusUpstreamError
}
