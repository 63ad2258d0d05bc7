package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"strategylab/internal/domain"
)

// Compile-time interface checks.
var _ BarStore = (*ParquetStore)(nil)
var _ EquityExporter = (*ParquetStore)(nil)

// ParquetStore implements BarStore and EquityExporter using Parquet files on
// disk.
type ParquetStore struct {
	DataDir string
}

// NewParquetStore creates a new ParquetStore rooted at the given data directory.
func NewParquetStore(dataDir string) *ParquetStore {
	return &ParquetStore{DataDir: dataDir}
}

// ---------------------------------------------------------------------------
// Parquet record types (on-disk schema)
// ---------------------------------------------------------------------------

// BarRecord is the Parquet schema for bar data.
type BarRecord struct {
	Symbol     string  `parquet:"symbol"`
	Timestamp  int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	Open       float64 `parquet:"open"`
	High       float64 `parquet:"high"`
	Low        float64 `parquet:"low"`
	Close      float64 `parquet:"close"`
	Volume     int64   `parquet:"volume"`
	TradeCount int64   `parquet:"trade_count"`
	VWAP       float64 `parquet:"vwap"`
}

// EquityRecord is the Parquet schema for an exported equity curve.
type EquityRecord struct {
	Timestamp       int64   `parquet:"timestamp,timestamp(millisecond)"`
	Equity          float64 `parquet:"equity"`
	Drawdown        float64 `parquet:"drawdown"`
	DrawdownPercent float64 `parquet:"drawdown_percent"`
	Returns         float64 `parquet:"returns"`
}

func toRecord(b domain.Bar) BarRecord {
	return BarRecord{
		Symbol:     strings.ToUpper(b.Symbol),
		Timestamp:  b.Timestamp.UnixMilli(),
		Open:       b.Open,
		High:       b.High,
		Low:        b.Low,
		Close:      b.Close,
		Volume:     b.Volume,
		TradeCount: b.TradeCount,
		VWAP:       b.VWAP,
	}
}

func (r BarRecord) bar() domain.Bar {
	return domain.Bar{
		Symbol:     r.Symbol,
		Timestamp:  time.UnixMilli(r.Timestamp).UTC(),
		Open:       r.Open,
		High:       r.High,
		Low:        r.Low,
		Close:      r.Close,
		Volume:     r.Volume,
		TradeCount: r.TradeCount,
		VWAP:       r.VWAP,
	}
}

// ---------------------------------------------------------------------------
// BarStore implementation
// ---------------------------------------------------------------------------

// WriteBars writes bar data to Parquet files organized by symbol and year.
// Each symbol+year combination produces a separate file at:
//
//	<DataDir>/<market>/<interval dir>/<SYMBOL>/<YYYY>.parquet
func (s *ParquetStore) WriteBars(ctx context.Context, market, interval string, bars []domain.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	type key struct {
		symbol string
		year   int
	}
	groups := make(map[key][]BarRecord)
	for _, b := range bars {
		if b.Symbol == "" {
			return fmt.Errorf("writing bars: bar at %s has no symbol", b.Timestamp.Format(time.RFC3339))
		}
		rec := toRecord(b)
		k := key{symbol: rec.Symbol, year: b.Timestamp.UTC().Year()}
		groups[k] = append(groups[k], rec)
	}

	for k, records := range groups {
		if err := ctx.Err(); err != nil {
			return err
		}
		path := s.barPath(market, interval, k.symbol, k.year)

		// Read existing records to merge.
		existing, _ := readParquetFile[BarRecord](path)
		merged := mergeBarRecords(existing, records)

		if err := writeParquetFile(path, merged); err != nil {
			return fmt.Errorf("writing bars for %s/%d: %w", k.symbol, k.year, err)
		}
	}
	return nil
}

// ReadBars reads bar data from Parquet files for the given symbol and time range.
func (s *ParquetStore) ReadBars(ctx context.Context, market, interval, symbol string, start, end time.Time) ([]domain.Bar, error) {
	var bars []domain.Bar
	for year := start.UTC().Year(); year <= end.UTC().Year(); year++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := s.barPath(market, interval, symbol, year)

		records, err := readParquetFile[BarRecord](path)
		if err != nil {
			// No file for this year.
			continue
		}

		for _, r := range records {
			ts := time.UnixMilli(r.Timestamp)
			if !ts.Before(start) && !ts.After(end) {
				bars = append(bars, r.bar())
			}
		}
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Timestamp.Before(bars[j].Timestamp) })
	return bars, nil
}

// ListSymbols lists all symbols that have bar data for market and interval.
func (s *ParquetStore) ListSymbols(_ context.Context, market, interval string) ([]string, error) {
	dir := filepath.Join(s.DataDir, market, intervalDir(interval))
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var symbols []string
	for _, e := range entries {
		if e.IsDir() {
			symbols = append(symbols, e.Name())
		}
	}
	sort.Strings(symbols)
	return symbols, nil
}

// ---------------------------------------------------------------------------
// EquityExporter implementation
// ---------------------------------------------------------------------------

// WriteEquityCurve writes points to <DataDir>/results/<id>/equity.parquet,
// replacing any previous export for the same result.
func (s *ParquetStore) WriteEquityCurve(_ context.Context, resultID string, points []domain.EquityPoint) error {
	if resultID == "" {
		return fmt.Errorf("writing equity curve: empty result id")
	}
	records := make([]EquityRecord, len(points))
	for i, p := range points {
		records[i] = EquityRecord{
			Timestamp:       p.Date.UnixMilli(),
			Equity:          p.Equity,
			Drawdown:        p.Drawdown,
			DrawdownPercent: p.DrawdownPercent,
			Returns:         p.Returns,
		}
	}
	if err := writeParquetFile(s.equityPath(resultID), records); err != nil {
		return fmt.Errorf("writing equity curve for %s: %w", resultID, err)
	}
	return nil
}

// ReadEquityCurve reads an exported equity curve.
func (s *ParquetStore) ReadEquityCurve(resultID string) ([]domain.EquityPoint, error) {
	records, err := readParquetFile[EquityRecord](s.equityPath(resultID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("reading equity curve for %s: %w", resultID, err)
	}
	points := make([]domain.EquityPoint, len(records))
	for i, r := range records {
		points[i] = domain.EquityPoint{
			Date:            time.UnixMilli(r.Timestamp).UTC(),
			Equity:          r.Equity,
			Drawdown:        r.Drawdown,
			DrawdownPercent: r.DrawdownPercent,
			Returns:         r.Returns,
		}
	}
	return points, nil
}

// ---------------------------------------------------------------------------
// Path helpers
// ---------------------------------------------------------------------------

// barPath returns the filesystem path for a bar Parquet file.
// Layout: <dataDir>/<market>/<interval dir>/<SYMBOL>/<YYYY>.parquet
func (s *ParquetStore) barPath(market, interval, symbol string, year int) string {
	return filepath.Join(s.DataDir, market, intervalDir(interval), strings.ToUpper(symbol), fmt.Sprintf("%d.parquet", year))
}

// equityPath returns the filesystem path for an exported equity curve.
// Layout: <dataDir>/results/<id>/equity.parquet
func (s *ParquetStore) equityPath(resultID string) string {
	return filepath.Join(s.DataDir, "results", resultID, "equity.parquet")
}

// intervalDir maps a bar interval to its directory name.
func intervalDir(interval string) string {
	switch interval {
	case "", "1d":
		return "daily"
	case "1wk":
		return "weekly"
	case "1mo":
		return "monthly"
	}
	return interval
}

// ---------------------------------------------------------------------------
// Parquet file helpers
// ---------------------------------------------------------------------------

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	rows, err := parquet.ReadFile[T](path)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// mergeBarRecords deduplicates bar records by (symbol, timestamp), preferring
// new records over existing ones.
func mergeBarRecords(existing, incoming []BarRecord) []BarRecord {
	type key struct {
		symbol string
		ts     int64
	}
	seen := make(map[key]BarRecord, len(existing)+len(incoming))
	for _, r := range existing {
		seen[key{r.Symbol, r.Timestamp}] = r
	}
	for _, r := range incoming {
		seen[key{r.Symbol, r.Timestamp}] = r
	}

	merged := make([]BarRecord, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Timestamp < merged[j].Timestamp
	})
	return merged
}
