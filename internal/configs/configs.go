package configs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/songzhibin97/alertflux/internal/alert"
	"github.com/songzhibin97/alertflux/internal/cache"
	"github.com/songzhibin97/alertflux/internal/data/collector/dexscreener"
	"github.com/songzhibin97/alertflux/internal/filter"
	"github.com/songzhibin97/alertflux/internal/notify/telegram"
	"github.com/songzhibin97/alertflux/internal/pipeline"
	"github.com/songzhibin97/alertflux/internal/quote/binance"
	"github.com/songzhibin97/alertflux/internal/quote/coinpaprika"
	"github.com/songzhibin97/alertflux/internal/utils/request"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

type Config struct {
	// 基础配置
	PollInterval string `json:"poll_interval" yaml:"poll_interval"` // 轮询间隔
	ListenAddr   string `json:"listen_addr" yaml:"listen_addr"`     // HTTP 监听地址
	Proxy        string `json:"proxy" yaml:"proxy"`                 // 上游请求代理

	Log Log `json:"log" yaml:"log"`

	Store Store `json:"store" yaml:"store"`

	Retry Retry `json:"retry" yaml:"retry"`

	// 新实体过滤参数
	Filter filter.Policy `json:"filter" yaml:"filter"`

	Alert Alert `json:"alert" yaml:"alert"`

	Cache Cache `json:"cache" yaml:"cache"`

	Telegram telegram.Config `json:"telegram" yaml:"telegram"`

	Webhook Webhook `json:"webhook" yaml:"webhook"`

	Sources Sources `json:"sources" yaml:"sources"`

	Metrics Metrics `json:"metrics" yaml:"metrics"`
}

type Log struct {
	Level  string `json:"level" yaml:"level"`   // debug/info/warn/error
	Format string `json:"format" yaml:"format"` // json/text
}

type Store struct {
	Driver        string `json:"driver" yaml:"driver"`                 // memory/postgres/redis
	ConnStr       string `json:"conn_str" yaml:"conn_str"`             // 数据库连接字符串
	RedisAddr     string `json:"redis_addr" yaml:"redis_addr"`
	RedisPassword string `json:"redis_password" yaml:"redis_password"`
	RedisDB       int    `json:"redis_db" yaml:"redis_db"`
	KeyPrefix     string `json:"key_prefix" yaml:"key_prefix"`         // redis 键前缀
	PurgeInterval string `json:"purge_interval" yaml:"purge_interval"` // 过期标记清理间隔
}

type Retry struct {
	Attempts int    `json:"attempts" yaml:"attempts"`
	Delay    string `json:"delay" yaml:"delay"`
}

type Alert struct {
	SendInterval string `json:"send_interval" yaml:"send_interval"` // 两条消息最小间隔
}

type Cache struct {
	FreshnessWindow string `json:"freshness_window" yaml:"freshness_window"`
	Capacity        uint64 `json:"capacity" yaml:"capacity"`
}

type Webhook struct {
	Secret string `json:"secret" yaml:"secret"` // Authorization 头需要完全一致
	Path   string `json:"path" yaml:"path"`
}

type Sources struct {
	DexScreener DexScreener `json:"dexscreener" yaml:"dexscreener"`
	CoinPaprika CoinPaprika `json:"coinpaprika" yaml:"coinpaprika"`
	Binance     Binance     `json:"binance" yaml:"binance"`
}

type DexScreener struct {
	BaseURL string   `json:"base_url" yaml:"base_url"`
	Queries []string `json:"queries" yaml:"queries"`
	Limit   int      `json:"limit" yaml:"limit"`
	MaxAge  string   `json:"max_age" yaml:"max_age"` // 为空表示不限
}

type CoinPaprika struct {
	BaseURL  string `json:"base_url" yaml:"base_url"`
	TopLimit int    `json:"top_limit" yaml:"top_limit"`
}

type Binance struct {
	APIKey     string `json:"api_key" yaml:"api_key"`       // 交易所API密钥
	SecretKey  string `json:"secret_key" yaml:"secret_key"` // 交易所密钥
	BaseURL    string `json:"base_url" yaml:"base_url"`
	QuoteAsset string `json:"quote_asset" yaml:"quote_asset"`
	Testnet    bool   `json:"testnet" yaml:"testnet"`
}

type Metrics struct {
	Namespace string `json:"namespace" yaml:"namespace"`
}

// Default returns the configuration used for every key a file leaves out.
func Default() *Config {
	return &Config{
		PollInterval: "1m",
		ListenAddr:   ":8080",
		Log: Log{
			Level:  "debug",
			Format: "json",
		},
		Store: Store{
			Driver:        StoreMemory,
			PurgeInterval: "1h",
		},
		Retry: Retry{
			Attempts: request.DefaultAttempts,
			Delay:    request.DefaultDelay.String(),
		},
		Filter: filter.DefaultPolicy(),
		Alert: Alert{
			SendInterval: alert.DefaultSendInterval.String(),
		},
		Cache: Cache{
			FreshnessWindow: cache.DefaultFreshnessWindow.String(),
			Capacity:        1024,
		},
		Telegram: telegram.Config{
			ParseMode: telegram.DefaultParseMode,
			BaseURL:   telegram.DefaultBaseURL,
		},
		Webhook: Webhook{
			Path: "/webhook/helius",
		},
		Sources: Sources{
			DexScreener: DexScreener{
				BaseURL: dexscreener.DefaultBaseURL,
				Queries: []string{dexscreener.DefaultQuery},
				Limit:   dexscreener.DefaultLimit,
			},
			CoinPaprika: CoinPaprika{
				BaseURL:  coinpaprika.DefaultBaseURL,
				TopLimit: coinpaprika.DefaultTopLimit,
			},
			Binance: Binance{
				QuoteAsset: binance.DefaultQuoteAsset,
			},
		},
		Metrics: Metrics{
			Namespace: "alertflux",
		},
	}
}

// Load reads path on top of Default. ${VAR} references are expanded first.
// .yaml and .yml files are parsed as YAML, anything else as JSON.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	expanded := []byte(os.ExpandEnv(string(raw)))

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(expanded, config)
	default:
		err = json.Unmarshal(expanded, config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	durations := map[string]string{
		"poll_interval":               c.PollInterval,
		"store.purge_interval":        c.Store.PurgeInterval,
		"retry.delay":                 c.Retry.Delay,
		"alert.send_interval":         c.Alert.SendInterval,
		"cache.freshness_window":      c.Cache.FreshnessWindow,
		"sources.dexscreener.max_age": c.Sources.DexScreener.MaxAge,
	}
	for key, v := range durations {
		if _, err := parseDuration(v, 0); err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
	}

	switch c.Store.Driver {
	case StoreMemory:
	case StorePostgres:
		if c.Store.ConnStr == "" {
			return fmt.Errorf("store.conn_str is required for the postgres driver")
		}
	case StoreRedis:
		if c.Store.RedisAddr == "" {
			return fmt.Errorf("store.redis_addr is required for the redis driver")
		}
	default:
		return fmt.Errorf("invalid store driver: %q", c.Store.Driver)
	}

	if c.Retry.Attempts < 1 {
		return fmt.Errorf("retry.attempts must be at least 1")
	}

	if err := c.Filter.Validate(); err != nil {
		return err
	}

	if c.Telegram.BotToken == "" || c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id are required")
	}

	if c.Webhook.Path != "" && !strings.HasPrefix(c.Webhook.Path, "/") {
		return fmt.Errorf("webhook.path must start with /")
	}

	return nil
}

func (c *Config) PollEvery() time.Duration {
	return mustDuration(c.PollInterval, pipeline.DefaultPollInterval)
}

func (s Store) PurgeEvery() time.Duration {
	return mustDuration(s.PurgeInterval, time.Hour)
}

func (r Retry) Policy() request.Policy {
	return request.Policy{
		Attempts: r.Attempts,
		Delay:    mustDuration(r.Delay, request.DefaultDelay),
	}
}

func (a Alert) Interval() time.Duration {
	return mustDuration(a.SendInterval, alert.DefaultSendInterval)
}

func (c Cache) Window() time.Duration {
	return mustDuration(c.FreshnessWindow, cache.DefaultFreshnessWindow)
}

func (d DexScreener) Options() dexscreener.Options {
	return dexscreener.Options{
		BaseURL: d.BaseURL,
		Queries: d.Queries,
		Limit:   d.Limit,
		MaxAge:  mustDuration(d.MaxAge, 0),
	}
}

func (b Binance) Options() binance.Options {
	return binance.Options{
		APIKey:     b.APIKey,
		SecretKey:  b.SecretKey,
		BaseURL:    b.BaseURL,
		QuoteAsset: b.QuoteAsset,
		Testnet:    b.Testnet,
	}
}

// parseDuration parses s, an empty string yields fallback.
func parseDuration(s string, fallback time.Duration) (time.Duration, error) {
	if strings.TrimSpace(s) == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback, err
	}
	if d < 0 {
		return fallback, fmt.Errorf("duration %q must not be negative", s)
	}
	return d, nil
}

func mustDuration(s string, fallback time.Duration) time.Duration {
	d, _ := parseDuration(s, fallback)
	return d
}
