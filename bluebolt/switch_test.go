package bluebolt

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSwitch(t *testing.T) {
	var fail atomic.Bool
	var target atomic.Value

	conn, _, _ := newTestConnection(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		var cmd struct {
			Valve ValveTarget `json:"valve"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&cmd))
		target.Store(cmd.Valve.Target)

		_, _ = w.Write([]byte(`{}`))
	}))
	conn.Retry = 0

	sh := NewSwitch(conn, "42")
	assert.False(t, sh.Enabled())

	require.NoError(t, sh.Enable(context.Background(), true))
	assert.True(t, sh.Enabled())
	assert.Equal(t, VALVE_OPEN, target.Load())

	fail.Store(true)
	err := sh.Enable(context.Background(), false)
	assert.ErrorContains(t, err, "switch off failed")
	assert.ErrorIs(t, err, ErrRequestExhausted)
	assert.True(t, sh.Enabled(), "state unchanged on failure")

	fail.Store(false)
	require.NoError(t, sh.Enable(context.Background(), false))
	assert.False(t, sh.Enabled())
	assert.Equal(t, VALVE_CLOSED, target.Load())
}
