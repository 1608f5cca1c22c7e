package binance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2"

	"github.com/songzhibin97/alertflux/internal/models"
	"github.com/songzhibin97/alertflux/internal/utils/request"
)

const DefaultQuoteAsset = "USDT"

// Options Binance 行情配置
type Options struct {
	APIKey     string
	SecretKey  string
	BaseURL    string // 为空时使用 SDK 默认地址
	QuoteAsset string // 交易对计价币种
	Testnet    bool
}

// TickerSource reads 24h ticker statistics for /price.
type TickerSource struct {
	client     *binance.Client
	quoteAsset string
	policy     request.Policy
	now        func() time.Time
}

// NewTickerSource creates a TickerSource. Public market data needs no API key.
func NewTickerSource(opts Options, policy request.Policy) *TickerSource {
	if opts.Testnet {
		binance.UseTestnet = true
	}

	client := binance.NewClient(opts.APIKey, opts.SecretKey)
	if opts.BaseURL != "" {
		client.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	}

	quote := strings.ToUpper(opts.QuoteAsset)
	if quote == "" {
		quote = DefaultQuoteAsset
	}

	return &TickerSource{
		client:     client,
		quoteAsset: quote,
		policy:     policy,
		now:        time.Now,
	}
}

func (b *TickerSource) Name() string {
	return "binance"
}

// Pair maps a base symbol to the exchange pair, BTC -> BTCUSDT.
func (b *TickerSource) Pair(symbol string) string {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if strings.HasSuffix(symbol, b.quoteAsset) && len(symbol) > len(b.quoteAsset) {
		return symbol
	}
	return symbol + b.quoteAsset
}

// Price returns the 24h ticker for symbol through the retry executor.
func (b *TickerSource) Price(ctx context.Context, symbol string) (models.MarketData, error) {
	pair := b.Pair(symbol)

	var stats []*binance.PriceChangeStats
	attempts := 0
	err := request.Retry(ctx, b.policy, func(ctx context.Context) error {
		var err error
		attempts++
		stats, err = b.client.NewListPriceChangeStatsService().Symbol(pair).Do(ctx)
		return err
	})
	if err != nil {
		return models.MarketData{}, &request.FetchError{URL: "binance:/api/v3/ticker/24hr?symbol=" + pair, Attempts: attempts, Err: err}
	}

	if len(stats) == 0 || stats[0] == nil {
		return models.MarketData{}, request.Malformed("binance", "no ticker for %s", pair)
	}

	s := stats[0]
	price, err := request.ParseFloat(s.LastPrice)
	if err != nil {
		return models.MarketData{}, request.Malformed("binance", "failed to parse price: %v", err)
	}
	volume, err := request.ParseFloat(s.QuoteVolume)
	if err != nil {
		return models.MarketData{}, request.Malformed("binance", "failed to parse volume: %v", err)
	}
	change, err := request.ParseFloat(s.PriceChangePercent)
	if err != nil {
		return models.MarketData{}, request.Malformed("binance", "failed to parse price change: %v", err)
	}

	return models.MarketData{
		Symbol:         strings.ToUpper(strings.TrimSpace(symbol)),
		Name:           fmt.Sprintf("%s/%s", strings.TrimSuffix(pair, b.quoteAsset), b.quoteAsset),
		Price:          price,
		Volume24h:      volume,
		PriceChange24h: change,
		Timestamp:      b.now(),
	}, nil
}
