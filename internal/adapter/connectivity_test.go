package adapter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomworks/stitchsync/internal/config"
	"github.com/loomworks/stitchsync/internal/logger"
)

func newTestMonitor(t *testing.T, baseURL string, interval time.Duration) *connectivityMonitor {
	t.Helper()
	cfg := config.API{BaseURL: baseURL, RequestTimeout: time.Second, HealthInterval: interval}
	return NewConnectivityMonitor(cfg, logger.Nop())
}

func TestConnectivity_StartsOnline(t *testing.T) {
	m := newTestMonitor(t, "http://localhost:0", time.Minute)
	assert.True(t, m.Online())
}

func TestConnectivity_SetOnline(t *testing.T) {
	m := newTestMonitor(t, "http://localhost:0", time.Minute)

	m.SetOnline(false)
	assert.False(t, m.Online())

	m.SetOnline(true)
	assert.True(t, m.Online())
}

func TestConnectivity_OnRestore_FiresOnFlip(t *testing.T) {
	m := newTestMonitor(t, "http://localhost:0", time.Minute)

	var fired atomic.Int32
	m.OnRestore(func() { fired.Add(1) })

	m.SetOnline(true) // already online, no flip
	assert.Equal(t, int32(0), fired.Load())

	m.SetOnline(false)
	m.SetOnline(true)
	assert.Equal(t, int32(1), fired.Load())
}

func TestConnectivity_OnRestore_Unsubscribe(t *testing.T) {
	m := newTestMonitor(t, "http://localhost:0", time.Minute)

	var fired atomic.Int32
	unsub := m.OnRestore(func() { fired.Add(1) })
	unsub()

	m.SetOnline(false)
	m.SetOnline(true)
	assert.Equal(t, int32(0), fired.Load())
}

func TestConnectivity_ProbeObservesHealth(t *testing.T) {
	var healthy atomic.Bool
	healthy.Store(true)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/health", r.URL.Path)
		if healthy.Load() {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	m := newTestMonitor(t, srv.URL, 10*time.Millisecond)
	m.Start(context.Background())
	defer m.Stop()

	require.Eventually(t, m.Online, time.Second, 5*time.Millisecond)

	healthy.Store(false)
	require.Eventually(t, func() bool { return !m.Online() }, time.Second, 5*time.Millisecond)

	healthy.Store(true)
	require.Eventually(t, m.Online, time.Second, 5*time.Millisecond)
}

func TestConnectivity_StopIsIdempotent(t *testing.T) {
	m := newTestMonitor(t, "http://localhost:0", time.Minute)
	m.Stop()
	m.Start(context.Background())
	m.Stop()
	m.Stop()
}
