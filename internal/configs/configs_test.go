package configs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/songzhibin97/alertflux/internal/utils/request"
)

func writeFile(t *testing.T, name, content string) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func validConfig() *Config {
	c := Default()
	c.Telegram.BotToken = "token"
	c.Telegram.ChatID = "-100"
	return c
}

func TestDefault(t *testing.T) {
	c := Default()

	assert.Equal(t, time.Minute, c.PollEvery())
	assert.Equal(t, 500*time.Millisecond, c.Alert.Interval())
	assert.Equal(t, 5*time.Minute, c.Cache.Window())
	assert.Equal(t, request.Policy{Attempts: 3, Delay: time.Second}, c.Retry.Policy())
	assert.Equal(t, 100_000.0, c.Filter.MinMarketCapUSD)
	assert.EqualValues(t, 3600, c.Filter.SwapTTLSeconds)
	assert.Zero(t, c.Filter.TokenTTLSeconds)
	assert.Equal(t, StoreMemory, c.Store.Driver)

	assert.Error(t, c.Validate(), "telegram credentials are required")
	assert.NoError(t, validConfig().Validate())
}

func TestLoad_YAML(t *testing.T) {
	t.Setenv("ALERTFLUX_BOT_TOKEN", "123:abc")
	path := writeFile(t, "config.yaml", `
poll_interval: 30s
store:
  driver: redis
  redis_addr: localhost:6379
  key_prefix: "alerts:"
filter:
  min_market_cap_usd: 250000
  swap_ttl_seconds: 600
  marker: "1"
telegram:
  bot_token: ${ALERTFLUX_BOT_TOKEN}
  chat_id: "-100200"
webhook:
  secret: hush
sources:
  dexscreener:
    queries: [solana, pump]
    max_age: 24h
`)

	c, err := Load(path)

	require.NoError(t, err)
	require.NoError(t, c.Validate())
	assert.Equal(t, 30*time.Second, c.PollEvery())
	assert.Equal(t, StoreRedis, c.Store.Driver)
	assert.Equal(t, "alerts:", c.Store.KeyPrefix)
	assert.Equal(t, 250_000.0, c.Filter.MinMarketCapUSD)
	assert.EqualValues(t, 600, c.Filter.SwapTTLSeconds)
	assert.Equal(t, "123:abc", c.Telegram.BotToken)
	assert.Equal(t, "hush", c.Webhook.Secret)
	assert.Equal(t, []string{"solana", "pump"}, c.Sources.DexScreener.Queries)
	assert.Equal(t, 24*time.Hour, c.Sources.DexScreener.Options().MaxAge)
	assert.Equal(t, ":8080", c.ListenAddr, "unset keys keep their defaults")
	assert.Equal(t, "https://api.telegram.org", c.Telegram.BaseURL)
}

func TestLoad_JSON(t *testing.T) {
	path := writeFile(t, "config.json", `{
		"store": {"driver": "postgres", "conn_str": "postgres://u:p@localhost/db?sslmode=disable"},
		"retry": {"attempts": 5, "delay": "250ms"},
		"telegram": {"bot_token": "t", "chat_id": "1"},
		"sources": {"binance": {"quote_asset": "FDUSD"}}
	}`)

	c, err := Load(path)

	require.NoError(t, err)
	require.NoError(t, c.Validate())
	assert.Equal(t, request.Policy{Attempts: 5, Delay: 250 * time.Millisecond}, c.Retry.Policy())
	assert.Equal(t, "FDUSD", c.Sources.Binance.Options().QuoteAsset)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "broken.json", `{"poll_interval":`))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "broken.yml", "store: [\n"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{name: "bad poll interval", mutate: func(c *Config) { c.PollInterval = "soon" }},
		{name: "negative send interval", mutate: func(c *Config) { c.Alert.SendInterval = "-1s" }},
		{name: "unknown driver", mutate: func(c *Config) { c.Store.Driver = "mongo" }},
		{name: "postgres without conn str", mutate: func(c *Config) { c.Store.Driver = StorePostgres }},
		{name: "redis without addr", mutate: func(c *Config) { c.Store.Driver = StoreRedis }},
		{name: "zero attempts", mutate: func(c *Config) { c.Retry.Attempts = 0 }},
		{name: "negative threshold", mutate: func(c *Config) { c.Filter.MinMarketCapUSD = -1 }},
		{name: "missing chat id", mutate: func(c *Config) { c.Telegram.ChatID = "" }},
		{name: "relative webhook path", mutate: func(c *Config) { c.Webhook.Path = "hook" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestDurationFallbacks(t *testing.T) {
	c := validConfig()
	c.PollInterval = ""
	c.Cache.FreshnessWindow = "garbage"
	c.Store.PurgeInterval = "10m"

	assert.Equal(t, time.Minute, c.PollEvery())
	assert.Equal(t, 5*time.Minute, c.Cache.Window())
	assert.Equal(t, 10*time.Minute, c.Store.PurgeEvery())
	assert.Zero(t, c.Sources.DexScreener.Options().MaxAge)
}
