package marketdata

import (
	"math"
	"sort"
	"time"

	"strategylab/internal/domain"
	"strategylab/internal/util"
)

// Quality summarises how complete a cleaned bar series is against the
// exchange calendar.
type Quality struct {
	TotalBars   int
	MissingBars int
	DataQuality float64 // percent
}

// Info converts q to the form stored on a result.
func (q Quality) Info() domain.MarketDataInfo {
	return domain.MarketDataInfo{
		TotalBars:   q.TotalBars,
		MissingBars: q.MissingBars,
		DataQuality: q.DataQuality,
	}
}

// Normalize sorts bars by timestamp, keeps the last bar for a duplicated
// timestamp and drops rows with non-finite or negative prices or a
// non-positive close. When days is non-empty each session date without a bar
// counts as missing. The input slice is not modified.
func Normalize(bars []domain.Bar, days []time.Time) ([]domain.Bar, Quality) {
	sorted := make([]domain.Bar, len(bars))
	copy(sorted, bars)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	out := make([]domain.Bar, 0, len(sorted))
	for _, b := range sorted {
		if !validBar(b) {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Timestamp.Equal(b.Timestamp) {
			out[n-1] = b
			continue
		}
		out = append(out, b)
	}

	q := Quality{TotalBars: len(out), DataQuality: 100}
	if len(days) > 0 {
		have := make(map[time.Time]struct{}, len(out))
		for _, b := range out {
			have[util.DateOf(b.Timestamp)] = struct{}{}
		}
		for _, d := range days {
			if _, ok := have[util.DateOf(d)]; !ok {
				q.MissingBars++
			}
		}
		q.DataQuality = float64(len(days)-q.MissingBars) / float64(len(days)) * 100
	}
	return out, q
}

func validBar(b domain.Bar) bool {
	for _, v := range []float64{b.Open, b.High, b.Low, b.Close} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return false
		}
	}
	return b.Close > 0 && b.Volume >= 0
}
