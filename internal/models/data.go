package models

import "time"

// EntityKind 候选实体类型
type EntityKind string

const (
	KindToken EntityKind = "token"
	KindSwap  EntityKind = "swap"
)

// Candidate is an entity observed upstream that may trigger an alert.
// Implemented by TokenCandidate and SwapTransaction only.
type Candidate interface {
	// Key returns the identity key used for deduplication
	Key() string

	// Kind returns the variant of the candidate
	Kind() EntityKind
}

// TokenCandidate 新代币快照
type TokenCandidate struct {
	ID           string    `json:"id"` // base token address
	Name         string    `json:"name"`
	Symbol       string    `json:"symbol"`
	ChainID      string    `json:"chain_id"`
	PriceUSD     float64   `json:"price_usd"`
	MarketCapUSD float64   `json:"market_cap_usd"`
	Volume24hUSD float64   `json:"volume_24h_usd"`
	LiquidityUSD float64   `json:"liquidity_usd"`
	URL          string    `json:"url"`
	CreatedAt    time.Time `json:"created_at"`
}

func (t TokenCandidate) Key() string      { return t.ID }
func (t TokenCandidate) Kind() EntityKind { return KindToken }

// SwapTransaction 链上兑换交易
type SwapTransaction struct {
	Signature    string    `json:"signature"`
	TokenAddress string    `json:"token_address"`
	Platform     string    `json:"platform"`
	InAmount     float64   `json:"in_amount"`
	Timestamp    time.Time `json:"timestamp"`
}

func (s SwapTransaction) Key() string      { return s.Signature }
func (s SwapTransaction) Kind() EntityKind { return KindSwap }

// MarketData 市场数据
type MarketData struct {
	Symbol         string    `json:"symbol"`
	Name           string    `json:"name"`
	Rank           int       `json:"rank"`
	Price          float64   `json:"price"`
	Volume24h      float64   `json:"volume_24h"`
	MarketCap      float64   `json:"market_cap"`
	PriceChange1h  float64   `json:"price_change_1h"`
	PriceChange24h float64   `json:"price_change_24h"`
	Timestamp      time.Time `json:"timestamp"`
}

// GlobalStats 全市场概况
type GlobalStats struct {
	MarketCapUSD        float64   `json:"market_cap_usd"`
	Volume24hUSD        float64   `json:"volume_24h_usd"`
	BitcoinDominance    float64   `json:"bitcoin_dominance_percentage"`
	MarketCapChange24h  float64   `json:"market_cap_change_24h"`
	CryptocurrencyCount int       `json:"cryptocurrencies_number"`
	UpdatedAt           time.Time `json:"last_updated"`
}
