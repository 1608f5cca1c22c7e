package coinpaprika

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/songzhibin97/alertflux/internal/models"
	"github.com/songzhibin97/alertflux/internal/utils/request"
)

const (
	DefaultBaseURL  = "https://api.coinpaprika.com"
	DefaultTopLimit = 10
)

// MarketSource reads global stats and the ranked ticker list from CoinPaprika.
type MarketSource struct {
	baseURL string
	fetcher *request.Fetcher
}

func NewMarketSource(baseURL string, fetcher *request.Fetcher) *MarketSource {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if fetcher == nil {
		fetcher = request.NewFetcher(nil)
	}
	return &MarketSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		fetcher: fetcher,
	}
}

func (c *MarketSource) Name() string {
	return "coinpaprika"
}

type globalResponse struct {
	MarketCapUSD        *float64 `json:"market_cap_usd"`
	Volume24hUSD        float64  `json:"volume_24h_usd"`
	BitcoinDominance    float64  `json:"bitcoin_dominance_percentage"`
	CryptocurrencyCount int      `json:"cryptocurrencies_number"`
	MarketCapChange24h  float64  `json:"market_cap_change_24h"`
	LastUpdated         int64    `json:"last_updated"`
}

type ticker struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Symbol      string    `json:"symbol"`
	Rank        int       `json:"rank"`
	LastUpdated time.Time `json:"last_updated"`
	Quotes      map[string]struct {
		Price            float64 `json:"price"`
		Volume24h        float64 `json:"volume_24h"`
		MarketCap        float64 `json:"market_cap"`
		PercentChange1h  float64 `json:"percent_change_1h"`
		PercentChange24h float64 `json:"percent_change_24h"`
	} `json:"quotes"`
}

// Global returns the whole-market overview.
func (c *MarketSource) Global(ctx context.Context) (models.GlobalStats, error) {
	url := c.baseURL + "/v1/global"

	var resp globalResponse
	if err := c.fetcher.Fetch(ctx, request.Descriptor{URL: url}, &resp); err != nil {
		return models.GlobalStats{}, err
	}
	if resp.MarketCapUSD == nil {
		return models.GlobalStats{}, request.Malformed(url, "missing market_cap_usd")
	}

	var updated time.Time
	if resp.LastUpdated > 0 {
		updated = time.Unix(resp.LastUpdated, 0).UTC()
	}

	return models.GlobalStats{
		MarketCapUSD:        *resp.MarketCapUSD,
		Volume24hUSD:        resp.Volume24hUSD,
		BitcoinDominance:    resp.BitcoinDominance,
		MarketCapChange24h:  resp.MarketCapChange24h,
		CryptocurrencyCount: resp.CryptocurrencyCount,
		UpdatedAt:           updated,
	}, nil
}

// Top returns the n best ranked coins with USD quotes.
func (c *MarketSource) Top(ctx context.Context, n int) ([]models.MarketData, error) {
	if n <= 0 {
		n = DefaultTopLimit
	}
	url := c.baseURL + "/v1/tickers"

	var tickers []ticker
	if err := c.fetcher.Fetch(ctx, request.Descriptor{URL: url, Query: map[string]string{"quotes": "USD"}}, &tickers); err != nil {
		return nil, err
	}

	ranked := make([]models.MarketData, 0, len(tickers))
	for _, t := range tickers {
		usd, ok := t.Quotes["USD"]
		if t.Symbol == "" || !ok {
			return nil, request.Malformed(url, "ticker %q without symbol or USD quote", t.ID)
		}
		if t.Rank <= 0 {
			continue
		}
		ranked = append(ranked, models.MarketData{
			Symbol:         t.Symbol,
			Name:           t.Name,
			Rank:           t.Rank,
			Price:          usd.Price,
			Volume24h:      usd.Volume24h,
			MarketCap:      usd.MarketCap,
			PriceChange1h:  usd.PercentChange1h,
			PriceChange24h: usd.PercentChange24h,
			Timestamp:      t.LastUpdated,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Rank < ranked[j].Rank })
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked, nil
}
