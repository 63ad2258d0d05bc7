package report

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// FormatInt formats an integer with comma separators.
func FormatInt(n int) string {
	s := fmt.Sprintf("%d", n)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	if len(s) > 3 {
		var b strings.Builder
		start := len(s) % 3
		if start > 0 {
			b.WriteString(s[:start])
		}
		for i := start; i < len(s); i += 3 {
			if b.Len() > 0 {
				b.WriteByte(',')
			}
			b.WriteString(s[i : i+3])
		}
		s = b.String()
	}
	if neg {
		return "-" + s
	}
	return s
}

// FormatMoney rounds v to cents and formats it as "$1,234.56" or
// "-$1,234.56".
func FormatMoney(v float64) string {
	d := decimal.NewFromFloat(v).Round(2)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	whole := d.Truncate(0)
	cents := d.Sub(whole).Shift(2).IntPart()
	return fmt.Sprintf("%s$%s.%02d", sign, FormatInt(int(whole.IntPart())), cents)
}

// FormatPrice formats a price with two decimals, or "-" for zero.
func FormatPrice(p float64) string {
	if p == 0 {
		return "-"
	}
	return decimal.NewFromFloat(p).StringFixed(2)
}

// FormatPercent formats an already-scaled percentage as "+X.XX%".
func FormatPercent(pct float64) string {
	s := decimal.NewFromFloat(pct).StringFixed(2)
	if pct > 0 {
		s = "+" + s
	}
	return s + "%"
}

// FormatRatio formats a dimensionless ratio with two decimals.
func FormatRatio(r float64) string {
	return decimal.NewFromFloat(r).StringFixed(2)
}

// FormatDuration formats a length in minutes as days, hours or minutes.
func FormatDuration(minutes float64) string {
	switch {
	case minutes >= 24*60:
		return fmt.Sprintf("%.1fd", minutes/(24*60))
	case minutes >= 60:
		return fmt.Sprintf("%.1fh", minutes/60)
	default:
		return fmt.Sprintf("%.0fm", minutes)
	}
}
