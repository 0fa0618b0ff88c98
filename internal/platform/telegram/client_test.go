package telegram

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient("123:abc", WithBaseURL(srv.URL))
}

func TestGetChat(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bot123:abc/getChat", r.URL.Path)
		assert.Equal(t, "-1001", r.URL.Query().Get("chat_id"))
		_, _ = w.Write([]byte(`{"ok":true,"result":{"id":-1001,"type":"supergroup","title":"Rewards","username":"rewardschat"}}`))
	})

	chat, err := c.GetChat(context.Background(), -1001)
	require.NoError(t, err)
	assert.Equal(t, int64(-1001), chat.ID)
	assert.Equal(t, "Rewards", chat.Title)
	assert.Equal(t, "rewardschat", chat.Username)
}

func TestGetChat_NotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`))
	})

	_, err := c.GetChat(context.Background(), -1001)
	assert.True(t, errors.Is(err, ErrChatNotFound))
}

func TestGetChat_RateLimited(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":429,"description":"Too Many Requests","parameters":{"retry_after":3}}`))
	})

	_, err := c.GetChat(context.Background(), -1001)
	var rps *RPSError
	require.True(t, errors.As(err, &rps))
	assert.Equal(t, 3*time.Second, rps.RetryAfter)
}

func TestGetChat_ErrorDoesNotLeakToken(t *testing.T) {
	c := NewClient("123:secret", WithBaseURL("http://127.0.0.1:1"))

	_, err := c.GetChat(context.Background(), -1001)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "secret")
}
