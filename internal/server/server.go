package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/songzhibin97/alertflux/internal/bot"
	"github.com/songzhibin97/alertflux/internal/models"
	"github.com/songzhibin97/alertflux/internal/observability"
	"github.com/songzhibin97/alertflux/internal/pipeline"
)

const (
	DefaultWebhookPath  = "/webhook/helius"
	DefaultTelegramPath = "/telegram"
	DefaultMaxBodyBytes = 5 << 20

	// AuthHeader carries the shared webhook secret.
	AuthHeader = "Authorization"
	// TelegramSecretHeader is set by Telegram when the webhook was registered with a secret_token.
	TelegramSecretHeader = "X-Telegram-Bot-Api-Secret-Token"
)

// Config HTTP 入口配置
type Config struct {
	WebhookPath    string
	WebhookSecret  string // 为空时拒绝所有 webhook 请求
	TelegramPath   string
	TelegramSecret string // 为空时不校验
	MaxBodyBytes   int64
}

// SwapHandler runs a batch of swaps through dedup and alerting.
type SwapHandler interface {
	HandleSwaps(ctx context.Context, swaps []models.SwapTransaction) pipeline.Report
}

// UpdateHandler answers a Telegram update.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, u bot.Update) error
}

type webhookResponse struct {
	RunID    string `json:"run_id,omitempty"`
	Received int    `json:"received"`
	Accepted int    `json:"accepted"`
	New      int    `json:"new"`
	Sent     int    `json:"sent"`
}

type Server struct {
	cfg     Config
	swaps   SwapHandler
	updates UpdateHandler
	metrics *observability.Metrics
	logger  *slog.Logger
	mux     *http.ServeMux
}

// New builds the HTTP surface. updates may be nil when no bot is configured.
func New(cfg Config, swaps SwapHandler, updates UpdateHandler, metrics *observability.Metrics, logger *slog.Logger) *Server {
	if cfg.WebhookPath == "" {
		cfg.WebhookPath = DefaultWebhookPath
	}
	if cfg.TelegramPath == "" {
		cfg.TelegramPath = DefaultTelegramPath
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		cfg:     cfg,
		swaps:   swaps,
		updates: updates,
		metrics: metrics,
		logger:  logger,
		mux:     http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST "+s.cfg.WebhookPath, s.requireSecret(AuthHeader, s.cfg.WebhookSecret, true, s.handleHelius))
	if s.updates != nil {
		s.mux.HandleFunc("POST "+s.cfg.TelegramPath, s.requireSecret(TelegramSecretHeader, s.cfg.TelegramSecret, false, s.handleTelegram))
	}
	s.mux.Handle("GET /metrics", s.metrics.Handler())
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// HTTPServer wraps the handler for addr.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// requireSecret rejects the request before its body is read when the header
// does not equal secret. With required false an empty secret disables the check.
func (s *Server) requireSecret(header, secret string, required bool, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if secret == "" && !required {
			next(w, r)
			return
		}

		got := r.Header.Get(header)
		if secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			s.metrics.WebhookDelivery("unauthorized")
			s.logger.Warn("rejected unauthenticated request", "path", r.URL.Path, "remote", r.RemoteAddr)
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		next(w, r)
	}
}

func (s *Server) handleHelius(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
	if err != nil {
		status := http.StatusBadRequest
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			status = http.StatusRequestEntityTooLarge
		}
		s.metrics.WebhookDelivery("bad_request")
		writeJSON(w, status, map[string]string{"error": "failed to read body"})
		return
	}

	items, err := decodeHeliusBatch(body)
	if err != nil {
		s.metrics.WebhookDelivery("bad_request")
		s.logger.Warn("rejected webhook body", "err", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "body must be a JSON array of transactions"})
		return
	}

	swaps := make([]models.SwapTransaction, 0, len(items))
	for i, raw := range items {
		sw, err := parseSwap(raw)
		if err != nil {
			s.logger.Warn("skipping webhook item", "index", i, "err", err)
			continue
		}
		swaps = append(swaps, sw)
	}

	// The batch runs to completion even if the caller hangs up.
	report := s.swaps.HandleSwaps(context.WithoutCancel(r.Context()), swaps)
	s.metrics.WebhookDelivery("ok")

	writeJSON(w, http.StatusOK, webhookResponse{
		RunID:    report.RunID,
		Received: len(items),
		Accepted: len(swaps),
		New:      report.New,
		Sent:     report.Sent,
	})
}

func (s *Server) handleTelegram(w http.ResponseWriter, r *http.Request) {
	var u bot.Update
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)).Decode(&u); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid update"})
		return
	}

	// Telegram redelivers on non-2xx, so a failed reply is only logged.
	if err := s.updates.HandleUpdate(context.WithoutCancel(r.Context()), u); err != nil {
		s.logger.Error("failed to handle telegram update", "update_id", u.UpdateID, "err", err)
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
