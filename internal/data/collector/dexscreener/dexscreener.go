package dexscreener

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/songzhibin97/alertflux/internal/models"
	"github.com/songzhibin97/alertflux/internal/utils/request"
)

const (
	DefaultBaseURL = "https://api.dexscreener.com"
	DefaultQuery   = "solana"
	DefaultLimit   = 30
)

// Options DexScreener 搜索配置
type Options struct {
	BaseURL string
	Queries []string      // 每个关键词请求一次搜索接口
	Limit   int           // 每个关键词保留的前 N 个交易对, 0 表示不限
	MaxAge  time.Duration // 交易对创建时间窗口, 0 表示不限
}

// DexScreenerDataSource lists trading pairs from the DexScreener search API.
type DexScreenerDataSource struct {
	baseURL string
	queries []string
	limit   int
	maxAge  time.Duration
	fetcher *request.Fetcher
	now     func() time.Time
}

func NewDexScreenerDataSource(opts Options, fetcher *request.Fetcher) *DexScreenerDataSource {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if len(opts.Queries) == 0 {
		opts.Queries = []string{DefaultQuery}
	}
	if fetcher == nil {
		fetcher = request.NewFetcher(nil)
	}

	return &DexScreenerDataSource{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		queries: opts.Queries,
		limit:   opts.Limit,
		maxAge:  opts.MaxAge,
		fetcher: fetcher,
		now:     time.Now,
	}
}

func (d *DexScreenerDataSource) Name() string {
	return "dexscreener"
}

type searchResponse struct {
	Pairs *[]pair `json:"pairs"`
}

type pair struct {
	ChainID   string `json:"chainId"`
	URL       string `json:"url"`
	BaseToken struct {
		Address string `json:"address"`
		Name    string `json:"name"`
		Symbol  string `json:"symbol"`
	} `json:"baseToken"`
	PriceUSD string `json:"priceUsd"`
	Volume   struct {
		H24 float64 `json:"h24"`
	} `json:"volume"`
	Liquidity *struct {
		USD float64 `json:"usd"`
	} `json:"liquidity"`
	FDV           float64 `json:"fdv"`
	MarketCap     float64 `json:"marketCap"`
	PairCreatedAt int64   `json:"pairCreatedAt"`
}

// CollectTokens implements TokenSource. Each base token appears once, at
// the rank of its best pair.
func (d *DexScreenerDataSource) CollectTokens(ctx context.Context) ([]models.TokenCandidate, error) {
	var result []models.TokenCandidate
	seen := make(map[string]struct{})

	for _, q := range d.queries {
		tokens, err := d.search(ctx, q)
		if err != nil {
			return nil, err
		}

		for _, t := range tokens {
			if _, ok := seen[t.ID]; ok {
				continue
			}
			seen[t.ID] = struct{}{}
			result = append(result, t)
		}
	}

	return result, nil
}

func (d *DexScreenerDataSource) search(ctx context.Context, query string) ([]models.TokenCandidate, error) {
	url := d.baseURL + "/latest/dex/search"

	var resp searchResponse
	err := d.fetcher.Fetch(ctx, request.Descriptor{
		URL:   url,
		Query: map[string]string{"q": query},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("failed to search pairs for %q: %w", query, err)
	}

	if resp.Pairs == nil {
		return nil, request.Malformed(url, "missing pairs array")
	}

	now := d.now()
	tokens := make([]models.TokenCandidate, 0, len(*resp.Pairs))

	for i, p := range *resp.Pairs {
		t, err := parsePair(p)
		if err != nil {
			return nil, request.Malformed(url, "pair %d: %v", i, err)
		}

		if d.maxAge > 0 && !t.CreatedAt.IsZero() && now.Sub(t.CreatedAt) > d.maxAge {
			continue
		}

		tokens = append(tokens, t)
		if d.limit > 0 && len(tokens) >= d.limit {
			break
		}
	}

	return tokens, nil
}

func parsePair(p pair) (models.TokenCandidate, error) {
	if p.BaseToken.Address == "" {
		return models.TokenCandidate{}, fmt.Errorf("missing baseToken.address")
	}
	if p.BaseToken.Name == "" || p.BaseToken.Symbol == "" {
		return models.TokenCandidate{}, fmt.Errorf("missing baseToken name or symbol")
	}

	price, err := request.ParseFloat(p.PriceUSD)
	if err != nil {
		return models.TokenCandidate{}, fmt.Errorf("invalid priceUsd %q: %w", p.PriceUSD, err)
	}

	marketCap := p.MarketCap
	if marketCap == 0 {
		marketCap = p.FDV
	}

	var liquidity float64
	if p.Liquidity != nil {
		liquidity = p.Liquidity.USD
	}

	var created time.Time
	if p.PairCreatedAt > 0 {
		created = time.UnixMilli(p.PairCreatedAt).UTC()
	}

	return models.TokenCandidate{
		ID:           p.BaseToken.Address,
		Name:         p.BaseToken.Name,
		Symbol:       p.BaseToken.Symbol,
		ChainID:      p.ChainID,
		PriceUSD:     price,
		MarketCapUSD: marketCap,
		Volume24hUSD: p.Volume.H24,
		LiquidityUSD: liquidity,
		URL:          p.URL,
		CreatedAt:    created,
	}, nil
}
