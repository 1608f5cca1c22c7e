package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/songzhibin97/alertflux/internal/utils/request"
)

const (
	DefaultBaseURL   = "https://api.telegram.org"
	DefaultParseMode = "HTML"
)

// Config Telegram 机器人配置
type Config struct {
	BotToken    string `json:"bot_token" yaml:"bot_token"`
	ChatID      string `json:"chat_id" yaml:"chat_id"`           // 告警频道
	ParseMode   string `json:"parse_mode" yaml:"parse_mode"`     // HTML / MarkdownV2
	BaseURL     string `json:"base_url" yaml:"base_url"`
	SecretToken string `json:"secret_token" yaml:"secret_token"` // setWebhook 时登记的 secret_token
}

// Client sends messages through the Bot API sendMessage method.
type Client struct {
	cfg     Config
	fetcher *request.Fetcher
	policy  request.Policy
}

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode,omitempty"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
}

// NewClient creates a client. Sends are tried once unless policy says otherwise.
func NewClient(cfg Config, fetcher *request.Fetcher, policy request.Policy) (*Client, error) {
	if cfg.BotToken == "" {
		return nil, fmt.Errorf("telegram bot token is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.ParseMode == "" {
		cfg.ParseMode = DefaultParseMode
	}
	if fetcher == nil {
		fetcher = request.NewFetcher(nil)
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &Client{cfg: cfg, fetcher: fetcher, policy: policy}, nil
}

// Send delivers text to the configured alert chat.
func (c *Client) Send(ctx context.Context, text string) error {
	if c.cfg.ChatID == "" {
		return fmt.Errorf("telegram chat id is not configured")
	}
	return c.SendTo(ctx, c.cfg.ChatID, text)
}

// SendTo delivers text to chatID.
func (c *Client) SendTo(ctx context.Context, chatID, text string) error {
	d := request.Descriptor{
		Method: http.MethodPost,
		URL:    fmt.Sprintf("%s/bot%s/sendMessage", c.cfg.BaseURL, c.cfg.BotToken),
		Body: sendMessageRequest{
			ChatID:                chatID,
			Text:                  text,
			ParseMode:             c.cfg.ParseMode,
			DisableWebPagePreview: true,
		},
	}

	var resp apiResponse
	if err := c.fetcher.FetchWithPolicy(ctx, d, c.policy, &resp); err != nil {
		return fmt.Errorf("failed to send telegram message: %w", redact(describe(err), c.cfg.BotToken))
	}
	if !resp.OK {
		return fmt.Errorf("telegram rejected message: %d %s", resp.ErrorCode, resp.Description)
	}
	return nil
}

// describe surfaces the Bot API description carried in a non-2xx body.
func describe(err error) error {
	var se *request.StatusError
	if !errors.As(err, &se) {
		return err
	}

	var resp apiResponse
	if json.Unmarshal(se.Body, &resp) != nil || resp.Description == "" {
		return err
	}
	return fmt.Errorf("%w: %s", err, resp.Description)
}

// redact keeps the bot token out of logged errors, the URL embeds it.
func redact(err error, token string) error {
	if token == "" || !strings.Contains(err.Error(), token) {
		return err
	}
	return &redactedError{msg: strings.ReplaceAll(err.Error(), token, "<redacted>"), err: err}
}

type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }
