// Package marketdata fetches historical bars for backtests from upstream
// providers, caches them in the bar store and cleans them before simulation.
package marketdata

import (
	"context"
	"errors"
	"strings"
	"time"

	"strategylab/internal/domain"
)

// ErrNoData is returned when a provider has no bars for a request.
var ErrNoData = errors.New("no market data")

// Request selects a bar series.
type Request struct {
	Symbol   string
	Interval string // normalized interval, see NormalizeInterval
	Start    time.Time
	End      time.Time
}

// Source provides historical bars ordered by timestamp.
type Source interface {
	Name() string
	Bars(ctx context.Context, req Request) ([]domain.Bar, error)
}

// periods maps a lookback period to its length. "max" is capped at five
// years.
var periods = map[string]func(time.Time) time.Time{
	"1d":  func(t time.Time) time.Time { return t.AddDate(0, 0, -1) },
	"5d":  func(t time.Time) time.Time { return t.AddDate(0, 0, -5) },
	"1mo": func(t time.Time) time.Time { return t.AddDate(0, -1, 0) },
	"3mo": func(t time.Time) time.Time { return t.AddDate(0, -3, 0) },
	"6mo": func(t time.Time) time.Time { return t.AddDate(0, -6, 0) },
	"1y":  func(t time.Time) time.Time { return t.AddDate(-1, 0, 0) },
	"2y":  func(t time.Time) time.Time { return t.AddDate(-2, 0, 0) },
	"5y":  func(t time.Time) time.Time { return t.AddDate(-5, 0, 0) },
	"max": func(t time.Time) time.Time { return t.AddDate(-5, 0, 0) },
}

// Intervals lists the supported bar intervals.
var Intervals = []string{"1m", "5m", "15m", "30m", "1h", "1d", "1wk", "1mo"}

// NormalizeInterval returns interval if supported, otherwise "1d".
func NormalizeInterval(interval string) string {
	interval = strings.ToLower(strings.TrimSpace(interval))
	for _, iv := range Intervals {
		if iv == interval {
			return iv
		}
	}
	return "1d"
}

// IsDaily reports whether interval produces one bar per session.
func IsDaily(interval string) bool {
	return NormalizeInterval(interval) == "1d"
}

// RequestForPeriod builds a Request covering period up to now. Unknown
// periods default to one month and unknown intervals to daily bars.
func RequestForPeriod(symbol, period, interval string, now time.Time) Request {
	startFn, ok := periods[strings.ToLower(strings.TrimSpace(period))]
	if !ok {
		startFn = periods["1mo"]
	}
	return Request{
		Symbol:   strings.ToUpper(strings.TrimSpace(symbol)),
		Interval: NormalizeInterval(interval),
		Start:    startFn(now),
		End:      now,
	}
}
