package client

import (
	"context"
	"errors"
	gosync "sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/exp/slog"
)

// fakeChecker flips between reachable and unreachable under test control.
type fakeChecker struct {
	mu      gosync.Mutex
	healthy bool
}

func (f *fakeChecker) Health(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.healthy {
		return errors.New("connection refused")
	}
	return nil
}

func (f *fakeChecker) set(healthy bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.healthy = healthy
}

func TestConnectivityMonitor_OfflineUntilFirstProbe(t *testing.T) {
	checker := &fakeChecker{healthy: true}
	monitor := NewConnectivityMonitor(checker, slog.Default())

	assert.False(t, monitor.IsOnline(), "monitor starts offline")

	assert.True(t, monitor.ProbeNow(context.Background()))
	assert.True(t, monitor.IsOnline())
}

func TestConnectivityMonitor_TransitionNotifiesSubscribers(t *testing.T) {
	checker := &fakeChecker{healthy: false}
	monitor := NewConnectivityMonitor(checker, slog.Default())

	var mu gosync.Mutex
	var transitions []bool
	unsubscribe := monitor.Subscribe(func(online bool) {
		mu.Lock()
		transitions = append(transitions, online)
		mu.Unlock()
	})
	defer unsubscribe()

	ctx := context.Background()

	// Repeated offline probes do not notify: the state never changed.
	monitor.ProbeNow(ctx)
	monitor.ProbeNow(ctx)

	checker.set(true)
	monitor.ProbeNow(ctx)
	checker.set(false)
	monitor.ProbeNow(ctx)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []bool{true, false}, transitions)
}

func TestConnectivityMonitor_Unsubscribe(t *testing.T) {
	checker := &fakeChecker{healthy: false}
	monitor := NewConnectivityMonitor(checker, slog.Default())

	calls := 0
	unsubscribe := monitor.Subscribe(func(bool) { calls++ })
	unsubscribe()

	checker.set(true)
	monitor.ProbeNow(context.Background())

	assert.Zero(t, calls)
}

func TestConnectivityMonitor_StartStop(t *testing.T) {
	checker := &fakeChecker{healthy: true}
	monitor := NewConnectivityMonitor(checker, slog.Default())

	monitor.Start(context.Background())
	monitor.Stop()

	// State from the last probe survives Stop.
	assert.True(t, monitor.IsOnline())

	// Stop twice is safe.
	monitor.Stop()
}
