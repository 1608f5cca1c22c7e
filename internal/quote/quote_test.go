package quote

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/songzhibin97/alertflux/internal/cache"
	"github.com/songzhibin97/alertflux/internal/models"
)

type stubPrices struct {
	calls   []string
	failing bool
}

func (s *stubPrices) Price(ctx context.Context, symbol string) (models.MarketData, error) {
	s.calls = append(s.calls, symbol)
	if s.failing {
		return models.MarketData{}, errors.New("upstream down")
	}
	return models.MarketData{Symbol: symbol, Price: float64(len(s.calls))}, nil
}

type stubMarket struct {
	globalCalls int
	topCalls    int
	topN        int
}

func (s *stubMarket) Global(ctx context.Context) (models.GlobalStats, error) {
	s.globalCalls++
	return models.GlobalStats{MarketCapUSD: 1e12}, nil
}

func (s *stubMarket) Top(ctx context.Context, n int) ([]models.MarketData, error) {
	s.topCalls++
	s.topN = n
	return []models.MarketData{{Symbol: "BTC", Rank: 1}}, nil
}

func TestService_PriceCachedPerSymbol(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	prices := &stubPrices{}
	svc := NewService(prices, &stubMarket{}, 10, 0, cache.WithClock(func() time.Time { return now }))
	ctx := context.Background()

	first, err := svc.Price(ctx, "btc")
	require.NoError(t, err)
	second, err := svc.Price(ctx, " BTC ")
	require.NoError(t, err)

	assert.Equal(t, []string{"BTC"}, prices.calls)
	assert.Equal(t, first, second)

	_, err = svc.Price(ctx, "eth")
	require.NoError(t, err)
	assert.Equal(t, []string{"BTC", "ETH"}, prices.calls)

	now = now.Add(cache.DefaultFreshnessWindow)
	refreshed, err := svc.Price(ctx, "BTC")
	require.NoError(t, err)
	assert.Equal(t, 3.0, refreshed.Price)
}

func TestService_PriceErrors(t *testing.T) {
	prices := &stubPrices{failing: true}
	svc := NewService(prices, &stubMarket{}, 10, time.Minute)

	_, err := svc.Price(context.Background(), "BTC")
	assert.Error(t, err)

	_, err = svc.Price(context.Background(), "  ")
	assert.Error(t, err)
	assert.Len(t, prices.calls, 1, "an empty symbol never reaches upstream")
}

func TestService_GlobalAndTop(t *testing.T) {
	market := &stubMarket{}
	svc := NewService(&stubPrices{}, market, 5, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		g, err := svc.Global(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1e12, g.MarketCapUSD)

		top, err := svc.Top(ctx)
		require.NoError(t, err)
		assert.Len(t, top, 1)
	}

	assert.Equal(t, 1, market.globalCalls)
	assert.Equal(t, 1, market.topCalls)
	assert.Equal(t, 5, market.topN)
}
