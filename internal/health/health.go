// Package health implements the liveness monitor: an interval-driven poller
// that pings the connection pool and serves a snapshot over HTTP, fully
// decoupled from the tool-dispatch path.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/rickchristie/mysql-mcp/internal/pool"
)

// Status is the overall database health classification.
type Status string

const (
	StatusUp       Status = "UP"
	StatusDegraded Status = "DEGRADED"
	StatusDown     Status = "DOWN"
)

// Snapshot is the point-in-time health view exposed to probes.
// Recomputed on each poll tick; read-only to callers.
type Snapshot struct {
	Status     Status    `json:"status"`
	PoolInUse  int       `json:"poolInUse"`
	PoolSize   int       `json:"poolSize"`
	LastPingAt time.Time `json:"lastPingAt,omitzero"`
}

// Pinger is the slice of the pool the monitor depends on.
type Pinger interface {
	Ping(ctx context.Context) error
	Stats() pool.Stats
}

// Config holds monitor settings.
type Config struct {
	// Interval is the poll cadence.
	Interval time.Duration
	// PingTimeout bounds each round trip so a hung database cannot stall
	// the monitor past one tick.
	PingTimeout time.Duration
}

// Monitor polls pool health on its own schedule. It holds no lock shared
// with the dispatch path; the snapshot mutex guards only the small struct
// below and is never held across a ping.
type Monitor struct {
	pinger Pinger
	cfg    Config
	logger zerolog.Logger

	mu   sync.RWMutex
	snap Snapshot
}

// NewMonitor creates a Monitor. The initial status is DOWN until the first
// successful ping.
func NewMonitor(pinger Pinger, cfg Config, logger zerolog.Logger) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.PingTimeout <= 0 {
		cfg.PingTimeout = 5 * time.Second
	}
	m := &Monitor{pinger: pinger, cfg: cfg, logger: logger}
	m.snap = Snapshot{Status: StatusDown}
	return m
}

// Run polls until ctx is cancelled. A failed ping only downgrades the
// status; it never terminates the process.
func (m *Monitor) Run(ctx context.Context) {
	// Poll immediately so the first snapshot does not wait a full interval.
	m.poll(ctx)

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.poll(ctx)
		}
	}
}

func (m *Monitor) poll(ctx context.Context) {
	pingCtx, cancel := context.WithTimeout(ctx, m.cfg.PingTimeout)
	err := m.pinger.Ping(pingCtx)
	cancel()

	stats := m.pinger.Stats()

	m.mu.Lock()
	m.snap.PoolInUse = stats.InUse
	m.snap.PoolSize = stats.Size
	if err == nil {
		m.snap.Status = StatusUp
		m.snap.LastPingAt = time.Now()
	} else {
		// First failure after UP is DEGRADED; repeated failures are DOWN.
		if m.snap.Status == StatusUp {
			m.snap.Status = StatusDegraded
		} else {
			m.snap.Status = StatusDown
		}
	}
	status := m.snap.Status
	m.mu.Unlock()

	if err != nil {
		m.logger.Warn().Err(err).Str("status", string(status)).Msg("health ping failed")
	} else {
		m.logger.Debug().Str("status", string(status)).Msg("health ping ok")
	}
}

// Snapshot returns the latest health view.
func (m *Monitor) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := m.snap
	// Pool counters are cheap bounded reads; refresh them so the probe
	// reflects in-flight load between ticks.
	stats := m.pinger.Stats()
	snap.PoolInUse = stats.InUse
	snap.PoolSize = stats.Size
	return snap
}

// Handler serves the snapshot as JSON: 200 when UP, 503 otherwise.
func (m *Monitor) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := m.Snapshot()
		w.Header().Set("Content-Type", "application/json")
		if snap.Status != StatusUp {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(snap)
	}
}
