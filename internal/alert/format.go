package alert

import (
	"fmt"
	"html"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/songzhibin97/alertflux/internal/models"
)

// Messages use Telegram HTML parse mode.

// NotAvailable stands in for a NaN or infinite number.
const NotAvailable = "n/a"

// Finite reports whether v can be rendered; decimal panics on NaN and ±Inf.
func Finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Format renders the alert for a candidate.
func Format(c models.Candidate) string {
	switch v := c.(type) {
	case models.TokenCandidate:
		return FormatToken(v)
	case *models.TokenCandidate:
		return FormatToken(*v)
	case models.SwapTransaction:
		return FormatSwap(v)
	case *models.SwapTransaction:
		return FormatSwap(*v)
	default:
		return fmt.Sprintf("New %s: %s", html.EscapeString(string(c.Kind())), html.EscapeString(c.Key()))
	}
}

func FormatToken(t models.TokenCandidate) string {
	var b strings.Builder

	fmt.Fprintf(&b, "🚀 <b>New token</b>: %s (%s)\n", html.EscapeString(t.Name), html.EscapeString(t.Symbol))
	if t.ChainID != "" {
		fmt.Fprintf(&b, "Chain: %s\n", html.EscapeString(t.ChainID))
	}
	fmt.Fprintf(&b, "Price: %s\n", USD(t.PriceUSD))
	fmt.Fprintf(&b, "Market cap: %s\n", USD(t.MarketCapUSD))
	fmt.Fprintf(&b, "Liquidity: %s\n", USD(t.LiquidityUSD))
	fmt.Fprintf(&b, "24h volume: %s\n", USD(t.Volume24hUSD))
	if !t.CreatedAt.IsZero() {
		fmt.Fprintf(&b, "Created: %s\n", t.CreatedAt.UTC().Format("2006-01-02 15:04 UTC"))
	}
	fmt.Fprintf(&b, "<code>%s</code>", html.EscapeString(t.ID))
	if t.URL != "" {
		fmt.Fprintf(&b, "\n<a href=\"%s\">Chart</a>", html.EscapeString(t.URL))
	}

	return b.String()
}

func FormatSwap(s models.SwapTransaction) string {
	var b strings.Builder

	fmt.Fprintf(&b, "🔄 <b>New swap</b> on %s\n", html.EscapeString(s.Platform))
	fmt.Fprintf(&b, "Token: <code>%s</code>\n", html.EscapeString(s.TokenAddress))
	fmt.Fprintf(&b, "In amount: %s\n", Amount(s.InAmount))
	if !s.Timestamp.IsZero() {
		fmt.Fprintf(&b, "Time: %s\n", s.Timestamp.UTC().Format(time.DateTime))
	}
	fmt.Fprintf(&b, "<a href=\"https://solscan.io/tx/%s\">View transaction</a>", html.EscapeString(s.Signature))

	return b.String()
}

// USD renders a dollar amount: grouped with 2 decimals from 1 up, up to 12 decimals below.
func USD(v float64) string {
	if !Finite(v) {
		return NotAvailable
	}
	d := decimal.NewFromFloat(v)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}

	if d.LessThan(decimal.NewFromInt(1)) && !d.IsZero() {
		return sign + "$" + d.Round(12).String()
	}
	return sign + "$" + group(d.StringFixed(2))
}

// Amount renders a token quantity without trailing zeros.
func Amount(v float64) string {
	if !Finite(v) {
		return NotAvailable
	}
	d := decimal.NewFromFloat(v).Round(6)
	if d.Abs().GreaterThanOrEqual(decimal.NewFromInt(1000)) {
		return group(d.StringFixed(2))
	}
	return d.String()
}

// group inserts thousands separators into a plain decimal string.
func group(s string) string {
	intPart, frac, hasFrac := strings.Cut(s, ".")
	neg := strings.HasPrefix(intPart, "-")
	intPart = strings.TrimPrefix(intPart, "-")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}

	out := b.String()
	if neg {
		out = "-" + out
	}
	if hasFrac {
		out += "." + frac
	}
	return out
}
