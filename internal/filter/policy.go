package filter

import (
	"fmt"
	"time"

	"github.com/songzhibin97/alertflux/internal/data"
	"github.com/songzhibin97/alertflux/internal/models"
)

const (
	DefaultMinMarketCapUSD = 100_000
	DefaultSwapTTLSeconds  = 3600
	DefaultMarker          = "1"
)

// Policy 新实体过滤参数
type Policy struct {
	MinMarketCapUSD float64 `json:"min_market_cap_usd" yaml:"min_market_cap_usd"` // 代币最低市值
	TokenTTLSeconds int64   `json:"token_ttl_seconds" yaml:"token_ttl_seconds"`   // 0 表示永久
	SwapTTLSeconds  int64   `json:"swap_ttl_seconds" yaml:"swap_ttl_seconds"`     // 交易签名标记有效期
	Marker          string  `json:"marker" yaml:"marker"`                         // 写入去重存储的值
}

func DefaultPolicy() Policy {
	return Policy{
		MinMarketCapUSD: DefaultMinMarketCapUSD,
		TokenTTLSeconds: 0,
		SwapTTLSeconds:  DefaultSwapTTLSeconds,
		Marker:          DefaultMarker,
	}
}

// Validate rejects negative thresholds and TTLs and an empty marker.
func (p Policy) Validate() error {
	if p.MinMarketCapUSD < 0 {
		return fmt.Errorf("invalid filter policy: min_market_cap_usd must not be negative")
	}
	if p.TokenTTLSeconds < 0 || p.SwapTTLSeconds < 0 {
		return fmt.Errorf("invalid filter policy: ttl seconds must not be negative")
	}
	if p.Marker == "" {
		return fmt.Errorf("invalid filter policy: marker must not be empty")
	}
	return nil
}

// TTLFor returns the marker lifetime for a candidate kind.
func (p Policy) TTLFor(kind models.EntityKind) time.Duration {
	switch kind {
	case models.KindToken:
		return time.Duration(p.TokenTTLSeconds) * time.Second
	case models.KindSwap:
		return time.Duration(p.SwapTTLSeconds) * time.Second
	default:
		return data.NoExpiry
	}
}

// Qualifies applies the business gates that run before any dedup lookup.
func (p Policy) Qualifies(c models.Candidate) bool {
	switch v := c.(type) {
	case models.TokenCandidate:
		return v.MarketCapUSD >= p.MinMarketCapUSD
	case *models.TokenCandidate:
		return v != nil && v.MarketCapUSD >= p.MinMarketCapUSD
	default:
		return true
	}
}
