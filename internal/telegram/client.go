// Package telegram talks to the Telegram Bot API: a JSON client with a
// bounded retry policy and outbound rate limit, the chat gateway built on it,
// and the translation of incoming updates into admission events.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/time/rate"
)

// DefaultAPIURL is the public Bot API endpoint.
const DefaultAPIURL = "https://api.telegram.org"

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 4 << 20

// ClientConfig holds Bot API connection settings.
type ClientConfig struct {
	APIURL         string        // Bot API base URL (default DefaultAPIURL)
	Token          string        // Bot token from @BotFather
	RequestTimeout time.Duration // Per-attempt timeout (default 30s)
	RateLimit      float64       // Outbound requests per second; <= 0 disables the limit
	RateBurst      int           // Burst allowed by the limiter (default 1)
	Retry          RetryPolicy
}

// DefaultClientConfig returns configuration pointing to the public API with
// Telegram's documented bulk limit of 30 requests per second.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		APIURL:         DefaultAPIURL,
		RequestTimeout: 30 * time.Second,
		RateLimit:      30,
		RateBurst:      5,
		Retry:          DefaultRetryPolicy(),
	}
}

// Client is a Bot API client. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	retry      RetryPolicy
	timeout    time.Duration
	logger     *slog.Logger
}

// NewClient creates a client for the bot identified by cfg.Token.
func NewClient(cfg ClientConfig, logger *slog.Logger) (*Client, error) {
	if cfg.Token == "" {
		return nil, errors.New("telegram: bot token is required")
	}
	apiURL := strings.TrimRight(cfg.APIURL, "/")
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.RateBurst
	if burst < 1 {
		burst = 1
	}

	return &Client{
		baseURL: apiURL + "/bot" + cfg.Token,
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(limit, burst),
		retry:   cfg.Retry,
		timeout: timeout,
		logger:  logger.With("component", "telegram"),
	}, nil
}

// apiResponse is the Bot API response envelope.
type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	ErrorCode   int             `json:"error_code"`
	Description string          `json:"description"`
	Parameters  *struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters"`
}

// Call invokes method with params encoded as JSON under the client's retry
// policy and decodes the result into out when out is non-nil.
func (c *Client) Call(ctx context.Context, method string, params, out any) error {
	return c.call(ctx, method, params, out, c.timeout, c.retry)
}

func (c *Client) call(ctx context.Context, method string, params, out any, timeout time.Duration, policy RetryPolicy) error {
	body, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("telegram %s: marshal params: %w", method, err)
	}

	c.logger.Debug("api call", "method", method)

	notify := func(err error, next time.Duration) {
		c.logger.Warn("api call failed, retrying", "method", method, "delay", next, "error", err)
	}
	result, err := backoff.Retry(ctx, func() (json.RawMessage, error) {
		return c.attempt(ctx, method, body, timeout)
	}, policy.options(notify)...)
	if err != nil {
		return err
	}

	if out == nil || len(result) == 0 {
		return nil
	}
	if err := json.Unmarshal(result, out); err != nil {
		return fmt.Errorf("telegram %s: decode result: %w", method, err)
	}
	return nil
}

// attempt performs one HTTP round trip. Errors that cannot succeed on retry
// are marked permanent; 429 responses carry the server's retry_after.
func (c *Client) attempt(ctx context.Context, method string, body []byte, timeout time.Duration) (json.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("telegram %s: rate limiter: %w", method, err))
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.baseURL+"/"+method, bytes.NewReader(body))
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("telegram %s: create request: %w", method, redact(err)))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, backoff.Permanent(ctx.Err())
		}
		return nil, fmt.Errorf("telegram %s: %w", method, redact(err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("telegram %s: read response: %w", method, err)
	}

	var env apiResponse
	if err := json.Unmarshal(raw, &env); err != nil {
		apiErr := &APIError{Method: method, Code: resp.StatusCode, Description: http.StatusText(resp.StatusCode)}
		if apiErr.Temporary() {
			return nil, apiErr
		}
		return nil, backoff.Permanent(apiErr)
	}
	if env.OK {
		return env.Result, nil
	}

	apiErr := &APIError{Method: method, Code: env.ErrorCode, Description: env.Description}
	if env.Parameters != nil {
		apiErr.RetryAfter = env.Parameters.RetryAfter
	}
	switch {
	case apiErr.RetryAfter > 0:
		return nil, errors.Join(apiErr, backoff.RetryAfter(apiErr.RetryAfter))
	case apiErr.Temporary():
		return nil, apiErr
	default:
		return nil, backoff.Permanent(apiErr)
	}
}

// redact strips the request URL, which embeds the bot token, from transport errors.
func redact(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return uerr.Err
	}
	return err
}

// GetMe returns the bot's own user.
func (c *Client) GetMe(ctx context.Context) (*User, error) {
	var u User
	if err := c.Call(ctx, "getMe", struct{}{}, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUpdates long-polls for updates after offset. It is never retried; the
// poll loop owns its own backoff.
func (c *Client) GetUpdates(ctx context.Context, offset int64, wait time.Duration) ([]Update, error) {
	params := map[string]any{
		"offset":          offset,
		"timeout":         int(wait / time.Second),
		"allowed_updates": AllowedUpdates,
	}
	var updates []Update
	if err := c.call(ctx, "getUpdates", params, &updates, c.timeout+wait, NoRetry()); err != nil {
		return nil, err
	}
	return updates, nil
}

// WebhookConfig describes a webhook registration.
type WebhookConfig struct {
	URL                string   `json:"url"`
	SecretToken        string   `json:"secret_token,omitempty"`
	AllowedUpdates     []string `json:"allowed_updates,omitempty"`
	MaxConnections     int      `json:"max_connections,omitempty"`
	DropPendingUpdates bool     `json:"drop_pending_updates,omitempty"`
}

// SetWebhook registers the webhook URL.
func (c *Client) SetWebhook(ctx context.Context, cfg WebhookConfig) error {
	if cfg.AllowedUpdates == nil {
		cfg.AllowedUpdates = AllowedUpdates
	}
	return c.Call(ctx, "setWebhook", cfg, nil)
}

// DeleteWebhook removes any registered webhook, switching the bot to getUpdates.
func (c *Client) DeleteWebhook(ctx context.Context, dropPending bool) error {
	return c.Call(ctx, "deleteWebhook", map[string]any{"drop_pending_updates": dropPending}, nil)
}

// GetWebhookInfo returns the current webhook registration.
func (c *Client) GetWebhookInfo(ctx context.Context) (*WebhookInfo, error) {
	var info WebhookInfo
	if err := c.Call(ctx, "getWebhookInfo", struct{}{}, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// RestrictChatMember sets a member's permissions. A zero until applies them
// indefinitely.
func (c *Client) RestrictChatMember(ctx context.Context, chatID, userID int64, perms ChatPermissions, until time.Time) error {
	params := map[string]any{
		"chat_id":     chatID,
		"user_id":     userID,
		"permissions": perms,
	}
	if !until.IsZero() {
		params["until_date"] = until.Unix()
	}
	return c.Call(ctx, "restrictChatMember", params, nil)
}

// BanChatMember removes a user from the chat until the given time.
func (c *Client) BanChatMember(ctx context.Context, chatID, userID int64, until time.Time) error {
	return c.Call(ctx, "banChatMember", map[string]any{
		"chat_id":    chatID,
		"user_id":    userID,
		"until_date": until.Unix(),
	}, nil)
}

// SendMessageParams are the sendMessage arguments the bot uses.
type SendMessageParams struct {
	ChatID              int64                 `json:"chat_id"`
	Text                string                `json:"text"`
	ReplyMarkup         *InlineKeyboardMarkup `json:"reply_markup,omitempty"`
	DisableNotification bool                  `json:"disable_notification,omitempty"`
}

// SendMessage posts a message and returns it.
func (c *Client) SendMessage(ctx context.Context, params SendMessageParams) (*Message, error) {
	var msg Message
	if err := c.Call(ctx, "sendMessage", params, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// DeleteMessage deletes a message.
func (c *Client) DeleteMessage(ctx context.Context, chatID, messageID int64) error {
	return c.Call(ctx, "deleteMessage", map[string]any{
		"chat_id":    chatID,
		"message_id": messageID,
	}, nil)
}

// AnswerCallbackQuery acknowledges a button press, optionally showing text
// to the presser only.
func (c *Client) AnswerCallbackQuery(ctx context.Context, callbackID, text string, alert bool) error {
	params := map[string]any{"callback_query_id": callbackID}
	if text != "" {
		params["text"] = text
		params["show_alert"] = alert
	}
	return c.Call(ctx, "answerCallbackQuery", params, nil)
}
