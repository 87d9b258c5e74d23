package client

import (
	"context"
	gosync "sync"
	"time"

	"golang.org/x/exp/slog"

	"fieldsync/internal/domain/sync"
)

// HealthChecker probes server reachability. In production this is the HTTP
// transport's health endpoint.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// ConnectivityMonitor tracks server reachability by periodic probing and
// notifies subscribers on transitions only. Until the first probe completes
// the monitor reports offline, so startup never races a premature sync.
type ConnectivityMonitor struct {
	checker  HealthChecker
	log      *slog.Logger
	interval time.Duration
	timeout  time.Duration

	mu          gosync.Mutex
	online      bool
	subscribers map[int]func(online bool)
	nextSubID   int
	cancel      context.CancelFunc
	done        chan struct{}
}

const (
	defaultProbeInterval = 10 * time.Second
	defaultProbeTimeout  = 5 * time.Second
)

func NewConnectivityMonitor(checker HealthChecker, log *slog.Logger) *ConnectivityMonitor {
	return &ConnectivityMonitor{
		checker:     checker,
		log:         log.With("component", "connectivity"),
		interval:    defaultProbeInterval,
		timeout:     defaultProbeTimeout,
		subscribers: make(map[int]func(online bool)),
	}
}

// Start launches the probe loop: one immediate probe, then one per interval.
// Calling Start on a running monitor is a no-op.
func (m *ConnectivityMonitor) Start(ctx context.Context) {
	m.mu.Lock()
	if m.cancel != nil {
		m.mu.Unlock()
		return
	}
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	m.mu.Unlock()

	go m.run(ctx)
}

// Stop halts probing. The last known state stays readable.
func (m *ConnectivityMonitor) Stop() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// ProbeNow runs one synchronous probe and returns the resulting state.
// Subscribers still only hear about transitions.
func (m *ConnectivityMonitor) ProbeNow(ctx context.Context) bool {
	m.probe(ctx)
	return m.IsOnline()
}

// IsOnline reports the current connectivity state.
func (m *ConnectivityMonitor) IsOnline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Subscribe registers a transition callback and returns an unsubscribe
// function. Callbacks fire only when the state actually flips.
func (m *ConnectivityMonitor) Subscribe(fn func(online bool)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextSubID
	m.nextSubID++
	m.subscribers[id] = fn

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subscribers, id)
	}
}

func (m *ConnectivityMonitor) run(ctx context.Context) {
	defer close(m.done)

	m.probe(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.probe(ctx)
		}
	}
}

func (m *ConnectivityMonitor) probe(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	err := m.checker.Health(probeCtx)
	online := err == nil

	m.mu.Lock()
	changed := online != m.online
	m.online = online
	var callbacks []func(online bool)
	if changed {
		for _, fn := range m.subscribers {
			callbacks = append(callbacks, fn)
		}
	}
	m.mu.Unlock()

	if !changed {
		return
	}

	if online {
		m.log.Info("server reachable")
	} else {
		m.log.Info("server unreachable", "error", err)
	}

	for _, fn := range callbacks {
		fn(online)
	}
}

var _ HealthChecker = (sync.Transport)(nil)
