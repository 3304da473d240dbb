package adapter

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/loomworks/stitchsync/internal/config"
	"github.com/loomworks/stitchsync/internal/logger"
)

// connectivityMonitor probes the API health endpoint on a ticker and tracks
// reachability. Restore callbacks fire on every offline-to-online flip,
// whether observed by a probe or reported via SetOnline.
type connectivityMonitor struct {
	client   *resty.Client
	interval time.Duration
	logger   *logger.Logger

	mu     sync.Mutex
	online bool
	nextID int64
	subs   map[int64]func()

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewConnectivityMonitor creates an idle monitor; it assumes online until
// the first probe says otherwise. Call Start to begin probing.
func NewConnectivityMonitor(cfg config.API, log *logger.Logger) *connectivityMonitor {
	cli := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.RequestTimeout)

	interval := cfg.HealthInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}

	return &connectivityMonitor{
		client:   cli,
		interval: interval,
		logger:   log,
		online:   true,
		subs:     make(map[int64]func()),
	}
}

func (m *connectivityMonitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

func (m *connectivityMonitor) OnRestore(fn func()) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	id := m.nextID
	m.subs[id] = fn

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
}

func (m *connectivityMonitor) SetOnline(online bool) {
	m.mu.Lock()
	restored := online && !m.online
	m.online = online
	var fns []func()
	if restored {
		fns = make([]func(), 0, len(m.subs))
		for _, fn := range m.subs {
			fns = append(fns, fn)
		}
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Start stops any previous probe loop and launches a new one. The loop exits
// when ctx is cancelled or Stop is called.
func (m *connectivityMonitor) Start(ctx context.Context) {
	m.Stop()

	m.mu.Lock()
	loopCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.wg.Add(1)
	m.mu.Unlock()

	go func() {
		defer m.wg.Done()
		t := time.NewTicker(m.interval)
		defer t.Stop()

		for {
			select {
			case <-loopCtx.Done():
				return
			case <-t.C:
				m.SetOnline(m.probe(loopCtx))
			}
		}
	}()
}

// Stop cancels the probe loop and blocks until it has exited. Safe to call
// when the monitor is not running.
func (m *connectivityMonitor) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	m.cancel = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	m.wg.Wait()
}

func (m *connectivityMonitor) probe(ctx context.Context) bool {
	resp, err := m.client.R().SetContext(ctx).Get("/api/health")
	if err != nil {
		m.logger.Debug().Err(err).
			Str("func", "connectivityMonitor.probe").
			Msg("health probe failed")
		return false
	}
	return resp.StatusCode() == http.StatusOK
}
