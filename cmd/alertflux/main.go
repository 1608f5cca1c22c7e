package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/songzhibin97/alertflux/internal/alert"
	"github.com/songzhibin97/alertflux/internal/bot"
	"github.com/songzhibin97/alertflux/internal/cache"
	"github.com/songzhibin97/alertflux/internal/configs"
	"github.com/songzhibin97/alertflux/internal/data"
	"github.com/songzhibin97/alertflux/internal/data/collector"
	"github.com/songzhibin97/alertflux/internal/data/collector/dexscreener"
	"github.com/songzhibin97/alertflux/internal/data/storage"
	"github.com/songzhibin97/alertflux/internal/filter"
	"github.com/songzhibin97/alertflux/internal/notify/telegram"
	"github.com/songzhibin97/alertflux/internal/observability"
	"github.com/songzhibin97/alertflux/internal/pipeline"
	"github.com/songzhibin97/alertflux/internal/quote"
	"github.com/songzhibin97/alertflux/internal/quote/binance"
	"github.com/songzhibin97/alertflux/internal/quote/coinpaprika"
	"github.com/songzhibin97/alertflux/internal/server"
	"github.com/songzhibin97/alertflux/internal/utils/request"
)

const shutdownTimeout = 10 * time.Second

var (
	flagconf string

	log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: true,
		Level:     slog.LevelDebug,
	}))
)

func init() {
	flag.StringVar(&flagconf, "conf", "../configs/config.yaml", "config path, eg: -conf config.yaml")
}

func main() {
	flag.Parse()

	// 加载配置
	config, err := configs.Load(flagconf)
	if err != nil {
		log.Error("Error loading config file", "err", err)
		os.Exit(1)
	}
	if err := config.Validate(); err != nil {
		log.Error("Invalid config", "err", err)
		os.Exit(1)
	}

	log = newLogger(config.Log, os.Stdout)
	slog.SetDefault(log)

	log.Debug("Loaded config", "store", config.Store.Driver, "poll_interval", config.PollEvery())

	if config.Proxy != "" {
		_ = os.Setenv("HTTP_PROXY", config.Proxy)
		_ = os.Setenv("HTTPS_PROXY", config.Proxy)
		log.Debug("set proxy ok", "proxy", config.Proxy)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, config); err != nil {
		log.Error("System error", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, config *configs.Config) error {
	metrics := observability.NewMetrics(config.Metrics.Namespace)

	// 初始化各个组件
	store, closeStore, err := newStore(ctx, config.Store)
	if err != nil {
		return err
	}
	defer closeStore()

	log.Debug("init store", "driver", config.Store.Driver)

	fetcher := request.NewFetcher(request.Request,
		request.WithPolicy(config.Retry.Policy()),
		request.WithLogger(log),
		request.WithMetrics(metrics))

	notifier, err := telegram.NewClient(config.Telegram, fetcher, config.Retry.Policy())
	if err != nil {
		return err
	}

	log.Debug("init notifier")

	sources := []data.TokenSource{
		dexscreener.NewDexScreenerDataSource(config.Sources.DexScreener.Options(), fetcher),
	}
	tokenCollector := collector.NewMultiSourceCollector(sources, log, metrics)

	newEntities := filter.NewFilter(store, config.Filter, log, metrics)
	dispatcher := alert.NewDispatcher(notifier, config.Alert.Interval(), log, metrics)
	flow := pipeline.New(tokenCollector, newEntities, dispatcher, log)

	quotes := quote.NewService(
		binance.NewTickerSource(config.Sources.Binance.Options(), config.Retry.Policy()),
		coinpaprika.NewMarketSource(config.Sources.CoinPaprika.BaseURL, fetcher),
		config.Sources.CoinPaprika.TopLimit,
		config.Cache.Window(),
		cache.WithCapacity(config.Cache.Capacity),
		cache.WithMetrics(metrics),
	)
	router := bot.NewRouter(quotes, notifier, log)

	log.Debug("init pipeline")

	if config.Webhook.Secret == "" {
		log.Warn("webhook secret is empty, every webhook delivery will be rejected")
	}

	srv := server.New(server.Config{
		WebhookPath:    config.Webhook.Path,
		WebhookSecret:  config.Webhook.Secret,
		TelegramSecret: config.Telegram.SecretToken,
	}, flow, router, metrics, log)
	httpServer := srv.HTTPServer(config.ListenAddr)

	var purger data.Purger
	if p, ok := store.(data.Purger); ok {
		purger = p
	}
	scheduler := pipeline.NewScheduler(flow, config.PollEvery(), purger, config.Store.PurgeEvery(), log)

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", "addr", config.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	schedulerDone := make(chan struct{})
	go func() {
		scheduler.Run(ctx)
		close(schedulerDone)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err = <-errCh:
		log.Error("http server failed", "err", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if serr := httpServer.Shutdown(shutdownCtx); serr != nil {
		log.Error("http server shutdown", "err", serr)
	}

	select {
	case <-schedulerDone:
	case <-shutdownCtx.Done():
		log.Warn("scheduler did not stop before timeout")
	}

	return err
}

// newStore opens the dedup store for the configured driver.
func newStore(ctx context.Context, cfg configs.Store) (data.DedupStore, func(), error) {
	switch cfg.Driver {
	case configs.StorePostgres:
		s, err := storage.NewPostgresStorage(cfg.ConnStr)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	case configs.StoreRedis:
		s, err := storage.NewRedisStorage(ctx, &redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, cfg.KeyPrefix)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	default:
		return storage.NewMemoryStorage(), func() {}, nil
	}
}

func newLogger(cfg configs.Log, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{AddSource: true, Level: level}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
