package bluebolt

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/evcc-io/evcc/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConnected(t *testing.T) {
	ts := httptest.NewServer(authHandler(t, true, &http.Cookie{
		Name:    LOGIN_COOKIE,
		Value:   "abc",
		Path:    "/",
		Expires: time.Now().Add(7 * 24 * time.Hour),
	}))
	defer ts.Close()

	cc := DefaultConfig()
	cc.URI = ts.URL
	cc.User = "user@example.com"
	cc.Password = "secret"

	conn, err := New(context.Background(), util.NewLogger("test"), cc)
	require.NoError(t, err)
	assert.True(t, conn.Connected())
}

func TestNewLoginFailure(t *testing.T) {
	ts := httptest.NewServer(authHandler(t, false, nil))
	defer ts.Close()

	cc := DefaultConfig()
	cc.URI = ts.URL
	cc.User = "user@example.com"
	cc.Password = "wrong"

	conn, err := New(context.Background(), util.NewLogger("test"), cc)
	assert.ErrorIs(t, err, ErrAuthentication)
	require.NotNil(t, conn)
	assert.False(t, conn.Connected())
}

func TestNewFromConfig(t *testing.T) {
	ts := httptest.NewServer(authHandler(t, true, nil))
	defer ts.Close()

	conn, err := NewFromConfig(context.Background(), map[string]any{
		"uri":      ts.URL,
		"user":     "user@example.com",
		"password": "secret",
		"retry":    1,
		"timeout":  "5s",
		"cache":    "1m",
	})
	require.NoError(t, err)

	assert.True(t, conn.Connected())
	assert.Equal(t, 1, conn.Retry)
	assert.Equal(t, 5*time.Second, conn.client.Timeout)
	assert.NotNil(t, conn.locations)
}

func TestNewFromConfigInvalid(t *testing.T) {
	for name, other := range map[string]map[string]any{
		"missing password": {"user": "user@example.com"},
		"negative retry":   {"user": "u", "password": "p", "retry": -1},
		"invalid uri":      {"user": "u", "password": "p", "uri": "not a url"},
		"unknown key":      {"user": "u", "password": "p", "foo": "bar"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := NewFromConfig(context.Background(), other)
			assert.Error(t, err)
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cc := DefaultConfig()
	assert.Equal(t, ENDPOINT, cc.URI)
	assert.Equal(t, RETRY_LIMIT, cc.Retry)
	assert.Zero(t, cc.Cache)
}
