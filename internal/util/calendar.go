package util

import (
	"context"
	"log/slog"
	"time"

	"strategylab/internal/domain"
)

// DaySource lists exchange sessions between two dates.
type DaySource interface {
	TradingDays(ctx context.Context, start, end time.Time) ([]time.Time, error)
}

// TradingCalendar provides trading-day awareness for a specific market.
// Without a DaySource, or when the source fails, every weekday counts as a
// trading day.
type TradingCalendar struct {
	market domain.Market
	source DaySource
	log    *slog.Logger
}

// NewTradingCalendar creates a TradingCalendar for the given market. source
// may be nil.
func NewTradingCalendar(market domain.Market, source DaySource) *TradingCalendar {
	return &TradingCalendar{
		market: market,
		source: source,
		log:    slog.Default().With("component", "calendar", "market", string(market)),
	}
}

// TradingDays returns the session dates in [start, end] at UTC midnight.
func (tc *TradingCalendar) TradingDays(ctx context.Context, start, end time.Time) []time.Time {
	if tc.source != nil {
		days, err := tc.source.TradingDays(ctx, start, end)
		if err == nil && len(days) > 0 {
			return days
		}
		tc.log.Warn("calendar source unavailable, using weekdays", "err", err)
	}
	return Weekdays(start, end)
}

// Weekdays returns every Monday-Friday date in [start, end] at UTC midnight.
func Weekdays(start, end time.Time) []time.Time {
	var days []time.Time
	d := DateOf(start)
	last := DateOf(end)
	for !d.After(last) {
		if IsWeekday(d) {
			days = append(days, d)
		}
		d = d.AddDate(0, 0, 1)
	}
	return days
}

// IsWeekday reports whether t falls on Monday through Friday.
func IsWeekday(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// DateOf truncates t to midnight UTC of its UTC calendar date.
func DateOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
