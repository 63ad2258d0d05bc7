// Package report renders backtest results for the terminal.
package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"strategylab/internal/domain"
)

// MaxTrades is the number of trades listed by Render.
const MaxTrades = 10

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("4")).Padding(0, 1)
	sectionStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).MarginTop(1)
	labelStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(22)
	colHeaderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	gainStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	lossStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// signed styles s green when v is positive and red when negative.
func signed(v float64, s string) string {
	switch {
	case v > 0:
		return gainStyle.Render(s)
	case v < 0:
		return lossStyle.Render(s)
	}
	return s
}

func row(b *strings.Builder, label, value string) {
	b.WriteString(labelStyle.Render(label))
	b.WriteString(value)
	b.WriteByte('\n')
}

// Render formats r as a multi-section report: summary, risk, trade
// statistics, the first trades and the monthly returns.
func Render(r *domain.BacktestResult) string {
	var b strings.Builder

	title := fmt.Sprintf("%s  %s  %s", r.Symbol, r.StrategyType, r.StrategyName)
	b.WriteString(titleStyle.Render(title))
	b.WriteByte('\n')
	if r.ID != "" {
		b.WriteString(dimStyle.Render("id " + r.ID))
		b.WriteByte('\n')
	}

	b.WriteString(sectionStyle.Render("Summary"))
	b.WriteByte('\n')
	row(&b, "Period", fmt.Sprintf("%s .. %s (%s, %s bars)",
		r.StartDate.Format("2006-01-02"), r.EndDate.Format("2006-01-02"),
		r.Timeframe, FormatInt(r.MarketData.TotalBars)))
	row(&b, "Initial balance", FormatMoney(r.InitialBalance))
	row(&b, "Final balance", FormatMoney(r.FinalBalance))
	row(&b, "Total return", signed(r.TotalReturn, FormatMoney(r.TotalReturn)+"  "+FormatPercent(r.TotalReturnPercent)))
	row(&b, "Annualized return", signed(r.AnnualizedReturn, FormatPercent(r.AnnualizedReturn)))
	row(&b, "Commission", FormatMoney(r.TotalCommission))
	if r.MarketData.MissingBars > 0 {
		row(&b, "Data quality", fmt.Sprintf("%s (%d missing)", FormatPercent(r.MarketData.DataQuality), r.MarketData.MissingBars))
	}

	b.WriteString(sectionStyle.Render("Risk"))
	b.WriteByte('\n')
	row(&b, "Max drawdown", lossStyle.Render(FormatMoney(r.MaxDrawdown))+"  "+FormatPercent(-r.MaxDrawdownPercent))
	row(&b, "Sharpe ratio", FormatRatio(r.SharpeRatio))
	row(&b, "Sortino ratio", FormatRatio(r.SortinoRatio))
	row(&b, "Calmar ratio", FormatRatio(r.CalmarRatio))
	row(&b, "Exposure", FormatPercent(r.ExposureTime))

	b.WriteString(sectionStyle.Render("Trades"))
	b.WriteByte('\n')
	row(&b, "Total", fmt.Sprintf("%d (%d won, %d lost)", r.TotalTrades, r.WinningTrades, r.LosingTrades))
	row(&b, "Win rate", FormatPercent(r.WinRate))
	row(&b, "Profit factor", FormatRatio(r.ProfitFactor))
	row(&b, "Average win", FormatMoney(r.AverageWin))
	row(&b, "Average loss", FormatMoney(-r.AverageLoss))
	row(&b, "Largest win", FormatMoney(r.LargestWin))
	row(&b, "Largest loss", FormatMoney(r.LargestLoss))
	row(&b, "Average time in market", FormatDuration(r.AverageTimeInMarket))

	if len(r.Trades) > 0 {
		b.WriteByte('\n')
		b.WriteString(colHeaderStyle.Render(fmt.Sprintf("%-10s %-10s %10s %10s %8s %12s  %s",
			"ENTRY", "EXIT", "IN", "OUT", "QTY", "P&L", "REASON")))
		b.WriteByte('\n')
		for i, t := range r.Trades {
			if i == MaxTrades {
				b.WriteString(dimStyle.Render(fmt.Sprintf("... %d more", len(r.Trades)-MaxTrades)))
				b.WriteByte('\n')
				break
			}
			line := fmt.Sprintf("%-10s %-10s %10s %10s %8s ",
				t.EntryDate.Format("2006-01-02"), t.ExitDate.Format("2006-01-02"),
				FormatPrice(t.EntryPrice), FormatPrice(t.ExitPrice), FormatInt(int(t.Quantity)))
			b.WriteString(line)
			b.WriteString(signed(t.PnL, fmt.Sprintf("%12s", FormatMoney(t.PnL))))
			b.WriteString("  " + t.Reason + "\n")
		}
	}

	if len(r.MonthlyReturns) > 0 {
		b.WriteString(sectionStyle.Render("Monthly returns"))
		b.WriteByte('\n')
		for _, m := range r.MonthlyReturns {
			row(&b, fmt.Sprintf("%04d-%02d", m.Year, m.Month), signed(m.Return, FormatPercent(m.ReturnPercent)))
		}
	}
	return b.String()
}

// Table renders result summaries one per line, newest first as given.
func Table(rows []domain.ResultSummary) string {
	var b strings.Builder
	b.WriteString(colHeaderStyle.Render(fmt.Sprintf("%-36s %-8s %-20s %10s %8s %8s %6s  %s",
		"ID", "SYMBOL", "STRATEGY", "RETURN", "SHARPE", "MAXDD", "TRADES", "CREATED")))
	b.WriteByte('\n')
	for _, r := range rows {
		fmt.Fprintf(&b, "%-36s %-8s %-20s ", r.ID, r.Symbol, r.StrategyType)
		b.WriteString(signed(r.TotalReturnPercent, fmt.Sprintf("%10s", FormatPercent(r.TotalReturnPercent))))
		fmt.Fprintf(&b, " %8s %8s %6d  %s\n",
			FormatRatio(r.SharpeRatio), FormatPercent(-r.MaxDrawdownPercent), r.TotalTrades,
			r.CreatedAt.Format("2006-01-02 15:04"))
	}
	return b.String()
}
