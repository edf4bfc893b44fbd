package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jdelaire/botflow/core"
)

const (
	defaultBaseURL = "https://api.telegram.org"
	httpSlack      = 5 * time.Second
	requestTimeout = 10 * time.Second
)

// APIError is a non-OK response from the Bot API.
type APIError struct {
	Code        int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("[Error %d] %s", e.Code, e.Description)
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	ErrorCode   int             `json:"error_code"`
	Description string          `json:"description"`
}

// Client talks to the Telegram Bot API for the handful of methods the engine
// consumes: getUpdates, sendMessage and webhook management.
type Client struct {
	botToken string
	client   *http.Client
	baseURL  string
	logger   *slog.Logger

	// skipFloor is the next offset after a record dropped at ingestion, so a
	// malformed update cannot stall the poll loop on the same offset forever.
	mu        sync.Mutex
	skipFloor int64
}

// NewClient creates a Bot API client.
func NewClient(botToken string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		botToken: botToken,
		client:   &http.Client{},
		baseURL:  defaultBaseURL,
		logger:   logger,
	}
}

// WithBaseURL overrides the Bot API base URL (for testing).
func (c *Client) WithBaseURL(u string) *Client {
	c.baseURL = u
	return c
}

// FetchUpdates long-polls getUpdates and decodes the batch into tagged
// updates. Records violating the one-payload convention are logged and
// dropped, but still advance the effective offset.
func (c *Client) FetchUpdates(ctx context.Context, offset int64, limit int, timeout time.Duration, allowed []core.Kind) ([]*core.Update, error) {
	c.mu.Lock()
	if c.skipFloor > offset {
		offset = c.skipFloor
	}
	c.mu.Unlock()

	params := url.Values{}
	params.Set("offset", strconv.FormatInt(offset, 10))
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	if timeout > 0 {
		params.Set("timeout", strconv.Itoa(int(timeout.Seconds())))
	}
	if len(allowed) > 0 {
		names, err := json.Marshal(allowed)
		if err != nil {
			return nil, fmt.Errorf("encode allowed_updates: %w", err)
		}
		params.Set("allowed_updates", string(names))
	}

	// The HTTP deadline must outlast the server-side long poll.
	reqCtx, cancel := context.WithTimeout(ctx, timeout+httpSlack)
	defer cancel()

	result, err := c.call(reqCtx, "getUpdates", params)
	if err != nil {
		return nil, fmt.Errorf("getUpdates: %w", err)
	}

	var raw []wireUpdate
	if err := json.Unmarshal(result, &raw); err != nil {
		return nil, fmt.Errorf("getUpdates: decode updates: %w", err)
	}

	updates := make([]*core.Update, 0, len(raw))
	for i := range raw {
		u, err := raw[i].decode()
		if err != nil {
			c.logger.Warn("dropping malformed update", "update_id", raw[i].UpdateID, "error", err)
			c.mu.Lock()
			if raw[i].UpdateID+1 > c.skipFloor {
				c.skipFloor = raw[i].UpdateID + 1
			}
			c.mu.Unlock()
			continue
		}
		updates = append(updates, u)
	}
	return updates, nil
}

// SendMessage sends a text message to a chat and returns the sent message.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) (*core.Message, error) {
	params := url.Values{}
	params.Set("chat_id", strconv.FormatInt(chatID, 10))
	params.Set("text", text)

	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	result, err := c.call(reqCtx, "sendMessage", params)
	if err != nil {
		return nil, fmt.Errorf("sendMessage: %w", err)
	}

	var msg core.Message
	if err := json.Unmarshal(result, &msg); err != nil {
		return nil, fmt.Errorf("sendMessage: decode result: %w", err)
	}
	return &msg, nil
}

// WebhookOptions configure SetWebhook.
type WebhookOptions struct {
	MaxConnections     int
	AllowedKinds       []core.Kind
	DropPendingUpdates bool
}

// SetWebhook registers url as the push delivery endpoint upstream.
func (c *Client) SetWebhook(ctx context.Context, hookURL string, opts WebhookOptions) error {
	params := url.Values{}
	params.Set("url", hookURL)
	if opts.MaxConnections > 0 {
		params.Set("max_connections", strconv.Itoa(opts.MaxConnections))
	}
	if len(opts.AllowedKinds) > 0 {
		names, err := json.Marshal(opts.AllowedKinds)
		if err != nil {
			return fmt.Errorf("encode allowed_updates: %w", err)
		}
		params.Set("allowed_updates", string(names))
	}
	if opts.DropPendingUpdates {
		params.Set("drop_pending_updates", "true")
	}

	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	if _, err := c.call(reqCtx, "setWebhook", params); err != nil {
		return fmt.Errorf("setWebhook: %w", err)
	}
	return nil
}

// DeleteWebhook removes any registered webhook, returning the bot to polling
// delivery.
func (c *Client) DeleteWebhook(ctx context.Context) error {
	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	if _, err := c.call(reqCtx, "deleteWebhook", url.Values{}); err != nil {
		return fmt.Errorf("deleteWebhook: %w", err)
	}
	return nil
}

func (c *Client) call(ctx context.Context, method string, params url.Values) (json.RawMessage, error) {
	endpoint := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.botToken, method)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint,
		strings.NewReader(params.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()

	var apiResp apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if !apiResp.OK {
		return nil, &APIError{Code: apiResp.ErrorCode, Description: apiResp.Description}
	}
	return apiResp.Result, nil
}
