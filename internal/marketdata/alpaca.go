package marketdata

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	alpacamd "github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"strategylab/internal/domain"
	"strategylab/internal/metrics"
	"strategylab/internal/util"
)

// Compile-time interface checks.
var _ Source = (*AlpacaSource)(nil)
var _ util.DaySource = (*AlpacaCalendar)(nil)

// barsClient is the subset of *alpacamd.Client used by AlpacaSource.
type barsClient interface {
	GetBars(symbol string, req alpacamd.GetBarsRequest) ([]alpacamd.Bar, error)
}

// AlpacaOptions configures an AlpacaSource.
type AlpacaOptions struct {
	APIKey          string
	APISecret       string
	DataURL         string
	Feed            string // "sip" or "iex"
	RateLimitPerMin int
	RetryAttempts   int
	RetryDelay      time.Duration
}

// AlpacaSource fetches split- and dividend-adjusted bars from the Alpaca
// market-data API. Calls are rate-limited and retried with backoff.
type AlpacaSource struct {
	client     barsClient
	feed       string
	limiter    *util.RateLimiter
	attempts   int
	retryDelay time.Duration
	log        *slog.Logger
}

// NewAlpacaSource creates an AlpacaSource with the given credentials.
func NewAlpacaSource(opts AlpacaOptions) *AlpacaSource {
	clientOpts := alpacamd.ClientOpts{
		APIKey:    opts.APIKey,
		APISecret: opts.APISecret,
	}
	if opts.DataURL != "" {
		clientOpts.BaseURL = opts.DataURL
	}
	return newAlpacaSource(alpacamd.NewClient(clientOpts), opts)
}

func newAlpacaSource(client barsClient, opts AlpacaOptions) *AlpacaSource {
	feed := opts.Feed
	if feed == "" {
		feed = "iex"
	}
	delay := opts.RetryDelay
	if delay == 0 {
		delay = 500 * time.Millisecond
	}
	return &AlpacaSource{
		client:     client,
		feed:       feed,
		limiter:    util.NewRateLimiter(opts.RateLimitPerMin, 1),
		attempts:   max(opts.RetryAttempts, 1),
		retryDelay: delay,
		log:        slog.Default().With("source", "alpaca"),
	}
}

// Name returns "alpaca".
func (s *AlpacaSource) Name() string { return "alpaca" }

// Bars fetches bars for req.
func (s *AlpacaSource) Bars(ctx context.Context, req Request) ([]domain.Bar, error) {
	symbol := strings.ToUpper(req.Symbol)
	var raw []alpacamd.Bar
	err := util.Retry(ctx, s.attempts, s.retryDelay, func() error {
		if err := s.limiter.Wait(ctx); err != nil {
			return util.Permanent(err)
		}
		var err error
		raw, err = s.client.GetBars(symbol, alpacamd.GetBarsRequest{
			TimeFrame:  timeFrame(req.Interval),
			Start:      req.Start,
			End:        req.End,
			Feed:       alpacamd.Feed(s.feed),
			Adjustment: alpacamd.All,
		})
		if err != nil {
			s.log.Debug("GetBars failed", "symbol", symbol, "err", err)
		}
		return err
	})
	metrics.ObserveFetch(s.Name(), err)
	if err != nil {
		return nil, fmt.Errorf("alpaca GetBars %s: %w", symbol, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("alpaca %s %s: %w", symbol, req.Interval, ErrNoData)
	}

	bars := make([]domain.Bar, len(raw))
	for i, ab := range raw {
		bars[i] = domain.Bar{
			Symbol:     symbol,
			Timestamp:  ab.Timestamp.UTC(),
			Open:       ab.Open,
			High:       ab.High,
			Low:        ab.Low,
			Close:      ab.Close,
			Volume:     int64(ab.Volume),
			TradeCount: int64(ab.TradeCount),
			VWAP:       ab.VWAP,
		}
	}
	return bars, nil
}

// timeFrame maps a normalized interval to an Alpaca TimeFrame.
func timeFrame(interval string) alpacamd.TimeFrame {
	switch NormalizeInterval(interval) {
	case "1m":
		return alpacamd.NewTimeFrame(1, alpacamd.Min)
	case "5m":
		return alpacamd.NewTimeFrame(5, alpacamd.Min)
	case "15m":
		return alpacamd.NewTimeFrame(15, alpacamd.Min)
	case "30m":
		return alpacamd.NewTimeFrame(30, alpacamd.Min)
	case "1h":
		return alpacamd.NewTimeFrame(1, alpacamd.Hour)
	case "1wk":
		return alpacamd.NewTimeFrame(1, alpacamd.Week)
	case "1mo":
		return alpacamd.NewTimeFrame(1, alpacamd.Month)
	}
	return alpacamd.OneDay
}

// calendarClient is the subset of *alpaca.Client used by AlpacaCalendar.
type calendarClient interface {
	GetCalendar(req alpaca.GetCalendarRequest) ([]alpaca.CalendarDay, error)
}

// AlpacaCalendar lists US exchange sessions from the Alpaca trading API.
type AlpacaCalendar struct {
	client calendarClient
}

// NewAlpacaCalendar creates an AlpacaCalendar. baseURL selects the paper or
// live trading endpoint.
func NewAlpacaCalendar(apiKey, apiSecret, baseURL string) *AlpacaCalendar {
	return &AlpacaCalendar{client: alpaca.NewClient(alpaca.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
		BaseURL:   baseURL,
	})}
}

// TradingDays returns session dates in [start, end] at UTC midnight.
func (c *AlpacaCalendar) TradingDays(ctx context.Context, start, end time.Time) ([]time.Time, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	days, err := c.client.GetCalendar(alpaca.GetCalendarRequest{Start: start, End: end})
	if err != nil {
		return nil, fmt.Errorf("GetCalendar: %w", err)
	}
	out := make([]time.Time, 0, len(days))
	for _, d := range days {
		t, err := time.Parse("2006-01-02", d.Date)
		if err != nil {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}
