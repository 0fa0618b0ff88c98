package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"tg-reward-ledger/internal/common/logger"
)

const DefaultBaseURL = "https://api.telegram.org"

var (
	ErrChatNotFound = errors.New("telegram: chat not found")
	ErrRateLimited  = errors.New("telegram: rate limited")
)

// RPSError is returned when the Bot API answers 429.
type RPSError struct {
	Msg        string
	RetryAfter time.Duration
}

func (e *RPSError) Error() string {
	return e.Msg
}

func (e *RPSError) Unwrap() error {
	return ErrRateLimited
}

type Chat struct {
	ID       int64  `json:"id"`
	Type     string `json:"type"`
	Title    string `json:"title"`
	Username string `json:"username"`
}

// Response is the Bot API envelope.
type Response struct {
	Ok          bool            `json:"ok"`
	Result      json.RawMessage `json:"result,omitempty"`
	ErrorCode   int             `json:"error_code,omitempty"`
	Description string          `json:"description,omitempty"`
	Parameters  *struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters,omitempty"`
}

// Client is a read-only Bot API client. It never sends messages.
type Client struct {
	httpClient *http.Client
	token      string
	baseURL    string
	logger     zerolog.Logger
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func NewClient(token string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		token:   token,
		baseURL: DefaultBaseURL,
		logger:  logger.Component("telegram"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetChat fetches the public profile of a chat the bot can see.
func (c *Client) GetChat(ctx context.Context, chatID int64) (*Chat, error) {
	var chat Chat
	params := url.Values{"chat_id": {strconv.FormatInt(chatID, 10)}}
	if err := c.call(ctx, "getChat", params, &chat); err != nil {
		return nil, fmt.Errorf("failed to get chat %d: %w", chatID, err)
	}

	c.logger.Debug().
		Int64("chat_id", chat.ID).
		Str("type", chat.Type).
		Str("username", chat.Username).
		Msg("Chat info fetched")
	return &chat, nil
}

func (c *Client) call(ctx context.Context, method string, params url.Values, result interface{}) error {
	endpoint := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// the URL carries the bot token
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var envelope Response
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if !envelope.Ok {
		switch {
		case resp.StatusCode == http.StatusTooManyRequests || envelope.ErrorCode == http.StatusTooManyRequests:
			rps := &RPSError{Msg: "rate limit exceeded"}
			if envelope.Parameters != nil {
				rps.RetryAfter = time.Duration(envelope.Parameters.RetryAfter) * time.Second
			}
			return rps
		case envelope.ErrorCode == http.StatusBadRequest || envelope.ErrorCode == http.StatusForbidden:
			return fmt.Errorf("%w: %s", ErrChatNotFound, envelope.Description)
		default:
			return fmt.Errorf("telegram API error %d: %s", envelope.ErrorCode, envelope.Description)
		}
	}

	if err := json.Unmarshal(envelope.Result, result); err != nil {
		return fmt.Errorf("failed to parse result: %w", err)
	}
	return nil
}
