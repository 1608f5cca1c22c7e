package bot

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/songzhibin97/alertflux/internal/alert"
	"github.com/songzhibin97/alertflux/internal/models"
)

const (
	failureReply = "Could not fetch data right now, please try again later."
	usagePrice   = "Usage: /price SYMBOL, e.g. /price BTC"

	helpText = "Commands:\n" +
		"/price SYMBOL - 24h ticker, e.g. /price BTC\n" +
		"/global - crypto market overview\n" +
		"/top - top coins by market cap\n" +
		"/help - this message"

	startText = "Welcome! This bot posts alerts for new tokens and swaps.\n\n" + helpText
)

var symbolPattern = regexp.MustCompile(`^[A-Za-z0-9]{1,15}$`)

// Update Telegram 推送的更新, 只保留用到的字段
type Update struct {
	UpdateID int      `json:"update_id"`
	Message  *Message `json:"message"`
}

type Message struct {
	MessageID int    `json:"message_id"`
	Chat      Chat   `json:"chat"`
	Text      string `json:"text"`
}

type Chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

// QuoteService is the cached market data the commands read.
type QuoteService interface {
	Price(ctx context.Context, symbol string) (models.MarketData, error)
	Global(ctx context.Context) (models.GlobalStats, error)
	Top(ctx context.Context) ([]models.MarketData, error)
}

// Replier sends a reply to a chat.
type Replier interface {
	SendTo(ctx context.Context, chatID, text string) error
}

// Router answers slash commands.
type Router struct {
	quotes  QuoteService
	replier Replier
	logger  *slog.Logger
}

func NewRouter(quotes QuoteService, replier Replier, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		quotes:  quotes,
		replier: replier,
		logger:  logger,
	}
}

// HandleUpdate replies to a command message. Updates without a command are
// ignored. Only a failed reply is returned as an error.
func (r *Router) HandleUpdate(ctx context.Context, u Update) error {
	if u.Message == nil {
		return nil
	}

	cmd, args, ok := ParseCommand(u.Message.Text)
	if !ok {
		return nil
	}

	reply := r.Reply(ctx, cmd, args)
	chatID := fmt.Sprintf("%d", u.Message.Chat.ID)

	if err := r.replier.SendTo(ctx, chatID, reply); err != nil {
		return fmt.Errorf("failed to reply to %s: %w", cmd, err)
	}
	return nil
}

// Reply builds the answer for cmd.
func (r *Router) Reply(ctx context.Context, cmd string, args []string) string {
	switch cmd {
	case "start":
		return startText
	case "help":
		return helpText
	case "price":
		if len(args) == 0 || !symbolPattern.MatchString(args[0]) {
			return usagePrice
		}
		md, err := r.quotes.Price(ctx, args[0])
		if err != nil {
			r.logger.Error("failed to fetch price", "symbol", args[0], "err", err)
			return failureReply
		}
		return formatPrice(md)
	case "global":
		g, err := r.quotes.Global(ctx)
		if err != nil {
			r.logger.Error("failed to fetch global stats", "err", err)
			return failureReply
		}
		return formatGlobal(g)
	case "top":
		top, err := r.quotes.Top(ctx)
		if err != nil {
			r.logger.Error("failed to fetch top coins", "err", err)
			return failureReply
		}
		return formatTop(top)
	default:
		return helpText
	}
}

// ParseCommand splits "/price@MyBot btc" into ("price", ["btc"]).
func ParseCommand(text string) (string, []string, bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return "", nil, false
	}

	cmd := strings.TrimPrefix(fields[0], "/")
	if i := strings.IndexByte(cmd, '@'); i >= 0 {
		cmd = cmd[:i]
	}
	if cmd == "" {
		return "", nil, false
	}
	return strings.ToLower(cmd), fields[1:], true
}

func formatPrice(md models.MarketData) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s</b>", html.EscapeString(md.Symbol))
	if md.Name != "" {
		fmt.Fprintf(&b, " (%s)", html.EscapeString(md.Name))
	}
	fmt.Fprintf(&b, "\nPrice: %s\n", alert.USD(md.Price))
	fmt.Fprintf(&b, "24h change: %s\n", percent(md.PriceChange24h))
	fmt.Fprintf(&b, "24h volume: %s", alert.USD(md.Volume24h))
	return b.String()
}

func formatGlobal(g models.GlobalStats) string {
	var b strings.Builder
	b.WriteString("<b>Crypto market</b>\n")
	fmt.Fprintf(&b, "Market cap: %s (%s 24h)\n", alert.USD(g.MarketCapUSD), percent(g.MarketCapChange24h))
	fmt.Fprintf(&b, "24h volume: %s\n", alert.USD(g.Volume24hUSD))
	fmt.Fprintf(&b, "BTC dominance: %s\n", share(g.BitcoinDominance))
	fmt.Fprintf(&b, "Cryptocurrencies: %d", g.CryptocurrencyCount)
	return b.String()
}

func formatTop(top []models.MarketData) string {
	if len(top) == 0 {
		return failureReply
	}

	var b strings.Builder
	b.WriteString("<b>Top coins</b>")
	for _, md := range top {
		fmt.Fprintf(&b, "\n%d. %s %s (%s)", md.Rank, html.EscapeString(md.Symbol), alert.USD(md.Price), percent(md.PriceChange24h))
	}
	return b.String()
}

func share(v float64) string {
	if !alert.Finite(v) {
		return alert.NotAvailable
	}
	return decimal.NewFromFloat(v).StringFixed(2) + "%"
}

func percent(v float64) string {
	if !alert.Finite(v) {
		return alert.NotAvailable
	}
	d := decimal.NewFromFloat(v).Round(2)
	if d.IsPositive() {
		return "+" + d.StringFixed(2) + "%"
	}
	return d.StringFixed(2) + "%"
}
