// Package quote serves on-demand market data behind the freshness cache.
package quote

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/songzhibin97/alertflux/internal/cache"
	"github.com/songzhibin97/alertflux/internal/models"
)

// Cache keys shared with anything else reading these caches.
const (
	GlobalKey = "global"
	TopKey    = "coinPaprika"
)

// PriceSource 单个币种行情
type PriceSource interface {
	Price(ctx context.Context, symbol string) (models.MarketData, error)
}

// MarketSource 全市场概况与排行
type MarketSource interface {
	Global(ctx context.Context) (models.GlobalStats, error)
	Top(ctx context.Context, n int) ([]models.MarketData, error)
}

// Service answers quote queries, calling upstream at most once per key per window.
type Service struct {
	prices   PriceSource
	market   MarketSource
	topLimit int
	window   time.Duration

	priceCache  *cache.Cache[models.MarketData]
	globalCache *cache.Cache[models.GlobalStats]
	topCache    *cache.Cache[[]models.MarketData]
}

func NewService(prices PriceSource, market MarketSource, topLimit int, window time.Duration, opts ...cache.Option) *Service {
	if window <= 0 {
		window = cache.DefaultFreshnessWindow
	}
	return &Service{
		prices:      prices,
		market:      market,
		topLimit:    topLimit,
		window:      window,
		priceCache:  cache.New[models.MarketData]("price", opts...),
		globalCache: cache.New[models.GlobalStats]("global", opts...),
		topCache:    cache.New[[]models.MarketData]("top", opts...),
	}
}

// Price returns the ticker for symbol, keyed by its upper-case form.
func (s *Service) Price(ctx context.Context, symbol string) (models.MarketData, error) {
	key := strings.ToUpper(strings.TrimSpace(symbol))
	if key == "" {
		return models.MarketData{}, fmt.Errorf("symbol is required")
	}

	return s.priceCache.GetOrFetch(ctx, key, s.window, func(ctx context.Context) (models.MarketData, error) {
		return s.prices.Price(ctx, key)
	})
}

func (s *Service) Global(ctx context.Context) (models.GlobalStats, error) {
	return s.globalCache.GetOrFetch(ctx, GlobalKey, s.window, s.market.Global)
}

func (s *Service) Top(ctx context.Context) ([]models.MarketData, error) {
	return s.topCache.GetOrFetch(ctx, TopKey, s.window, func(ctx context.Context) ([]models.MarketData, error) {
		return s.market.Top(ctx, s.topLimit)
	})
}
