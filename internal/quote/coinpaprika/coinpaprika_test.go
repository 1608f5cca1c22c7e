package coinpaprika

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/songzhibin97/alertflux/internal/utils/request"
)

func setupTestServer(t *testing.T, path, body string) *MarketSource {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, path, r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	fetcher := request.NewFetcher(resty.NewWithClient(server.Client()),
		request.WithPolicy(request.Policy{Attempts: 1}))
	return NewMarketSource(server.URL, fetcher)
}

func TestMarketSource_Global(t *testing.T) {
	ms := setupTestServer(t, "/v1/global", `{
		"market_cap_usd": 2400000000000,
		"volume_24h_usd": 95000000000,
		"bitcoin_dominance_percentage": 52.1,
		"cryptocurrencies_number": 9876,
		"market_cap_change_24h": -1.25,
		"last_updated": 1700000000
	}`)

	stats, err := ms.Global(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2.4e12, stats.MarketCapUSD)
	assert.Equal(t, 9.5e10, stats.Volume24hUSD)
	assert.Equal(t, 52.1, stats.BitcoinDominance)
	assert.Equal(t, 9876, stats.CryptocurrencyCount)
	assert.Equal(t, -1.25, stats.MarketCapChange24h)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), stats.UpdatedAt)
}

func TestMarketSource_GlobalMalformed(t *testing.T) {
	ms := setupTestServer(t, "/v1/global", `{"volume_24h_usd": 1}`)

	_, err := ms.Global(context.Background())

	require.Error(t, err)
	assert.True(t, request.IsMalformed(err))
	assert.False(t, request.IsTransient(err))
}

func TestMarketSource_Top(t *testing.T) {
	body := `[
		{"id":"eth-ethereum","name":"Ethereum","symbol":"ETH","rank":2,"last_updated":"2024-01-01T00:00:00Z",
		 "quotes":{"USD":{"price":2300,"volume_24h":1e10,"market_cap":2.7e11,"percent_change_1h":0.1,"percent_change_24h":-2}}},
		{"id":"btc-bitcoin","name":"Bitcoin","symbol":"BTC","rank":1,"last_updated":"2024-01-01T00:00:00Z",
		 "quotes":{"USD":{"price":42000,"volume_24h":2e10,"market_cap":8.2e11,"percent_change_1h":0.2,"percent_change_24h":1.5}}},
		{"id":"unranked-coin","name":"Unranked","symbol":"UNR","rank":0,"last_updated":"2024-01-01T00:00:00Z",
		 "quotes":{"USD":{"price":1}}},
		{"id":"usdt-tether","name":"Tether","symbol":"USDT","rank":3,"last_updated":"2024-01-01T00:00:00Z",
		 "quotes":{"USD":{"price":1}}}
	]`
	ms := setupTestServer(t, "/v1/tickers", body)

	top, err := ms.Top(context.Background(), 2)

	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "BTC", top[0].Symbol)
	assert.Equal(t, 1, top[0].Rank)
	assert.Equal(t, 42000.0, top[0].Price)
	assert.Equal(t, 1.5, top[0].PriceChange24h)
	assert.Equal(t, "ETH", top[1].Symbol)
	assert.Equal(t, 0.1, top[1].PriceChange1h)
}

func TestMarketSource_TopMalformed(t *testing.T) {
	ms := setupTestServer(t, "/v1/tickers", `[{"id":"x","name":"X","rank":1,"quotes":{}}]`)

	_, err := ms.Top(context.Background(), 5)

	require.Error(t, err)
	assert.True(t, request.IsMalformed(err))
}
