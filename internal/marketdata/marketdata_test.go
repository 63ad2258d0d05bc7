package marketdata

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	alpacamd "github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strategylab/internal/domain"
	"strategylab/internal/store"
)

var jan2 = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC) // Tuesday

func dailyBars(symbol string, start time.Time, n int) []domain.Bar {
	bars := make([]domain.Bar, n)
	for i := range bars {
		px := 100 + float64(i)
		bars[i] = domain.Bar{
			Symbol:    symbol,
			Timestamp: start.AddDate(0, 0, i),
			Open:      px,
			High:      px + 1,
			Low:       px - 1,
			Close:     px + 0.5,
			Volume:    1000,
		}
	}
	return bars
}

func TestRequestForPeriod(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	req := RequestForPeriod(" aapl ", "1y", "1D", now)
	assert.Equal(t, "AAPL", req.Symbol)
	assert.Equal(t, "1d", req.Interval)
	assert.Equal(t, time.Date(2023, 6, 15, 12, 0, 0, 0, time.UTC), req.Start)
	assert.Equal(t, now, req.End)

	req = RequestForPeriod("MSFT", "bogus", "2h", now)
	assert.Equal(t, time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC), req.Start, "unknown period defaults to 1mo")
	assert.Equal(t, "1d", req.Interval)

	req = RequestForPeriod("MSFT", "max", "1wk", now)
	assert.Equal(t, 2019, req.Start.Year())
	assert.Equal(t, "1wk", req.Interval)
}

func TestIsDaily(t *testing.T) {
	assert.True(t, IsDaily("1d"))
	assert.True(t, IsDaily(""))
	assert.False(t, IsDaily("1h"))
}

func TestNormalize(t *testing.T) {
	bars := dailyBars("AAPL", jan2, 4)
	dup := bars[1]
	dup.Close = 999
	input := []domain.Bar{
		bars[3],
		bars[0],
		bars[1],
		dup,
		{Symbol: "AAPL", Timestamp: jan2.AddDate(0, 0, 10), Close: math.NaN()},
		{Symbol: "AAPL", Timestamp: jan2.AddDate(0, 0, 11), Close: -1},
	}

	got, q := Normalize(input, nil)
	require.Len(t, got, 3)
	assert.Equal(t, jan2, got[0].Timestamp)
	assert.Equal(t, 999.0, got[1].Close, "last duplicate wins")
	assert.Equal(t, bars[3].Timestamp, got[2].Timestamp)
	assert.Equal(t, Quality{TotalBars: 3, DataQuality: 100}, q)

	assert.Equal(t, bars[3], input[0], "input untouched")
}

func TestNormalizeMissingSessions(t *testing.T) {
	days := []time.Time{jan2, jan2.AddDate(0, 0, 1), jan2.AddDate(0, 0, 2), jan2.AddDate(0, 0, 3)}
	bars := dailyBars("AAPL", jan2, 4)
	bars = append(bars[:2], bars[3])

	got, q := Normalize(bars, days)
	assert.Len(t, got, 3)
	assert.Equal(t, 3, q.TotalBars)
	assert.Equal(t, 1, q.MissingBars)
	assert.InDelta(t, 75.0, q.DataQuality, 1e-9)
	assert.Equal(t, domain.MarketDataInfo{TotalBars: 3, MissingBars: 1, DataQuality: 75}, q.Info())
}

type fakeSource struct {
	name  string
	bars  []domain.Bar
	err   error
	calls int
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Bars(context.Context, Request) ([]domain.Bar, error) {
	f.calls++
	return f.bars, f.err
}

func TestFallbackSource(t *testing.T) {
	ctx := context.Background()
	good := &fakeSource{name: "good", bars: dailyBars("AAPL", jan2, 3)}
	empty := &fakeSource{name: "empty"}
	broken := &fakeSource{name: "broken", err: errors.New("503")}

	fb := NewFallbackSource(broken, empty, good)
	assert.Equal(t, "broken,empty,good", fb.Name())

	bars, err := fb.Bars(ctx, Request{Symbol: "AAPL"})
	require.NoError(t, err)
	assert.Len(t, bars, 3)
	assert.Equal(t, 1, broken.calls)
	assert.Equal(t, 1, empty.calls)

	_, err = NewFallbackSource(broken, empty).Bars(ctx, Request{Symbol: "AAPL"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoData)
	assert.Contains(t, err.Error(), "503")

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	_, err = fb.Bars(cctx, Request{Symbol: "AAPL"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCachedSource(t *testing.T) {
	ctx := context.Background()
	ps := store.NewParquetStore(t.TempDir())
	upstream := &fakeSource{name: "up", bars: dailyBars("AAPL", jan2, 30)}
	cs := NewCachedSource(ps, upstream, domain.MarketUS)
	assert.Equal(t, "cache+up", cs.Name())

	req := Request{Symbol: "AAPL", Interval: "1d", Start: jan2, End: jan2.AddDate(0, 0, 29)}

	bars, err := cs.Bars(ctx, req)
	require.NoError(t, err)
	assert.Len(t, bars, 30)
	assert.Equal(t, 1, upstream.calls)

	bars, err = cs.Bars(ctx, req)
	require.NoError(t, err)
	assert.Len(t, bars, 30)
	assert.Equal(t, 1, upstream.calls, "second read served from cache")

	wider := req
	wider.End = req.End.AddDate(0, 1, 0)
	_, err = cs.Bars(ctx, wider)
	require.NoError(t, err)
	assert.Equal(t, 2, upstream.calls, "uncovered range goes upstream")

	ss := NewStoreSource(ps, domain.MarketUS)
	bars, err = ss.Bars(ctx, req)
	require.NoError(t, err)
	assert.Len(t, bars, 30)

	_, err = ss.Bars(ctx, Request{Symbol: "MSFT", Interval: "1d", Start: jan2, End: req.End})
	assert.ErrorIs(t, err, ErrNoData)
}

func TestCachedSourceSync(t *testing.T) {
	ctx := context.Background()
	ps := store.NewParquetStore(t.TempDir())
	upstream := &fakeSource{name: "up", bars: dailyBars("MSFT", jan2, 5)}
	cs := NewCachedSource(ps, upstream, domain.MarketUS)

	n, err := cs.Sync(ctx, Request{Symbol: "MSFT", Interval: "1d", Start: jan2, End: jan2.AddDate(0, 0, 4)})
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	symbols, err := ps.ListSymbols(ctx, "us", "1d")
	require.NoError(t, err)
	assert.Equal(t, []string{"MSFT"}, symbols)

	upstream.err = errors.New("down")
	_, err = cs.Sync(ctx, Request{Symbol: "MSFT"})
	assert.Error(t, err)
}

type fakeBarsClient struct {
	bars  []alpacamd.Bar
	errs  []error
	calls int
	last  alpacamd.GetBarsRequest
}

func (f *fakeBarsClient) GetBars(_ string, req alpacamd.GetBarsRequest) ([]alpacamd.Bar, error) {
	f.calls++
	f.last = req
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return nil, err
	}
	return f.bars, nil
}

func TestAlpacaSourceBars(t *testing.T) {
	client := &fakeBarsClient{
		errs: []error{errors.New("timeout")},
		bars: []alpacamd.Bar{
			{Timestamp: jan2.Add(5 * time.Hour), Open: 10, High: 11, Low: 9, Close: 10.5, Volume: 1200, TradeCount: 40, VWAP: 10.2},
		},
	}
	src := newAlpacaSource(client, AlpacaOptions{RetryAttempts: 2, RetryDelay: time.Millisecond})

	bars, err := src.Bars(context.Background(), Request{Symbol: "aapl", Interval: "1h", Start: jan2, End: jan2.AddDate(0, 0, 1)})
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, 2, client.calls, "one retry after a transient error")
	assert.Equal(t, "AAPL", bars[0].Symbol)
	assert.Equal(t, int64(1200), bars[0].Volume)
	assert.Equal(t, int64(40), bars[0].TradeCount)
	assert.Equal(t, alpacamd.NewTimeFrame(1, alpacamd.Hour), client.last.TimeFrame)
	assert.Equal(t, alpacamd.Feed("iex"), client.last.Feed)
	assert.Equal(t, alpacamd.All, client.last.Adjustment)
}

func TestAlpacaSourceNoData(t *testing.T) {
	src := newAlpacaSource(&fakeBarsClient{}, AlpacaOptions{})
	_, err := src.Bars(context.Background(), Request{Symbol: "ZZZZ", Interval: "1d"})
	assert.ErrorIs(t, err, ErrNoData)
}

func TestTimeFrame(t *testing.T) {
	assert.Equal(t, alpacamd.OneDay, timeFrame("1d"))
	assert.Equal(t, alpacamd.OneDay, timeFrame("bogus"))
	assert.Equal(t, alpacamd.NewTimeFrame(15, alpacamd.Min), timeFrame("15m"))
	assert.Equal(t, alpacamd.NewTimeFrame(1, alpacamd.Week), timeFrame("1wk"))
}

type fakeCalendarClient struct {
	days []alpaca.CalendarDay
	err  error
}

func (f fakeCalendarClient) GetCalendar(alpaca.GetCalendarRequest) ([]alpaca.CalendarDay, error) {
	return f.days, f.err
}

func TestAlpacaCalendar(t *testing.T) {
	cal := &AlpacaCalendar{client: fakeCalendarClient{days: []alpaca.CalendarDay{
		{Date: "2024-07-03"},
		{Date: "not-a-date"},
		{Date: "2024-07-05"},
	}}}
	days, err := cal.TradingDays(context.Background(), jan2, jan2)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{
		time.Date(2024, 7, 3, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 7, 5, 0, 0, 0, 0, time.UTC),
	}, days)

	cal = &AlpacaCalendar{client: fakeCalendarClient{err: errors.New("401")}}
	_, err = cal.TradingDays(context.Background(), jan2, jan2)
	assert.Error(t, err)
}
