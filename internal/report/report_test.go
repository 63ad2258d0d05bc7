package report

import (
	"strings"
	"testing"
	"time"

	"strategylab/internal/domain"
)

func TestFormatInt(t *testing.T) {
	tests := []struct {
		in   int
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{1234567, "1,234,567"},
		{-45000, "-45,000"},
	}
	for _, tt := range tests {
		if got := FormatInt(tt.in); got != tt.want {
			t.Errorf("FormatInt(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "$0.00"},
		{10000, "$10,000.00"},
		{1234.567, "$1,234.57"},
		{-501, "-$501.00"},
		{0.1 + 0.2, "$0.30"},
	}
	for _, tt := range tests {
		if got := FormatMoney(tt.in); got != tt.want {
			t.Errorf("FormatMoney(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatPercentAndRatio(t *testing.T) {
	if got := FormatPercent(12.345); got != "+12.35%" {
		t.Errorf("FormatPercent(12.345) = %q", got)
	}
	if got := FormatPercent(-3.1); got != "-3.10%" {
		t.Errorf("FormatPercent(-3.1) = %q", got)
	}
	if got := FormatRatio(1.5); got != "1.50" {
		t.Errorf("FormatRatio(1.5) = %q", got)
	}
	if got := FormatPrice(0); got != "-" {
		t.Errorf("FormatPrice(0) = %q", got)
	}
}

func TestFormatDuration(t *testing.T) {
	for in, want := range map[float64]string{30: "30m", 90: "1.5h", 2880: "2.0d"} {
		if got := FormatDuration(in); got != want {
			t.Errorf("FormatDuration(%v) = %q, want %q", in, got, want)
		}
	}
}

func sampleResult() *domain.BacktestResult {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	trades := make([]domain.Trade, 12)
	for i := range trades {
		trades[i] = domain.Trade{
			EntryDate:  start.AddDate(0, 0, i*3),
			ExitDate:   start.AddDate(0, 0, i*3+2),
			EntryPrice: 100,
			ExitPrice:  101,
			Quantity:   10,
			PnL:        10,
			Reason:     "SMA Death Cross",
		}
	}
	return &domain.BacktestResult{
		ID:                 "abc-123",
		StrategyName:       "AAPL SMA_CROSSOVER",
		StrategyType:       domain.StrategySMACrossover,
		Symbol:             "AAPL",
		Timeframe:          "1y",
		StartDate:          start,
		EndDate:            start.AddDate(1, 0, 0),
		InitialBalance:     10000,
		FinalBalance:       10120,
		TotalReturn:        120,
		TotalReturnPercent: 1.2,
		TotalTrades:        12,
		WinningTrades:      12,
		WinRate:            100,
		Trades:             trades,
		MonthlyReturns: []domain.MonthlyReturn{
			{Year: 2024, Month: 1, Return: 50, ReturnPercent: 0.5},
		},
		MarketData: domain.MarketDataInfo{TotalBars: 252, DataQuality: 100},
	}
}

func TestRender(t *testing.T) {
	out := Render(sampleResult())
	for _, want := range []string{
		"AAPL", "SMA_CROSSOVER", "abc-123",
		"Summary", "Risk", "Trades", "Monthly returns",
		"$10,000.00", "$10,120.00", "+1.20%",
		"2024-01", "SMA Death Cross", "... 2 more",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Render output missing %q", want)
		}
	}
	if n := strings.Count(out, "SMA Death Cross"); n != MaxTrades {
		t.Errorf("Render listed %d trades, want %d", n, MaxTrades)
	}
}

func TestTable(t *testing.T) {
	r := sampleResult()
	out := Table([]domain.ResultSummary{r.Summary()})
	if lines := strings.Count(out, "\n"); lines != 2 {
		t.Errorf("Table wrote %d lines, want header plus one row", lines)
	}
	if !strings.Contains(out, "abc-123") || !strings.Contains(out, "+1.20%") {
		t.Errorf("Table output missing row fields:\n%s", out)
	}
}
