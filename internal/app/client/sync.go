package client

import (
	"context"
	"fmt"
	"strings"
	gosync "sync"
	"time"

	"golang.org/x/exp/slog"

	"fieldsync/internal/domain/sync"
)

// SyncConfig tunes the orchestrator.
type SyncConfig struct {
	AutoSyncInterval time.Duration
}

// DefaultSyncConfig matches the behavior the mobile clients expect: a
// background cycle every 30 seconds while connectivity holds.
func DefaultSyncConfig() SyncConfig {
	return SyncConfig{
		AutoSyncInterval: 30 * time.Second,
	}
}

// SyncService coordinates one full synchronization cycle: drain the mutation
// queue first, then apply remote changes. Push before pull is load bearing;
// pulling first would let a remote copy overwrite local work that was about
// to be pushed.
type SyncService struct {
	storage      Storage
	queue        *MutationQueue
	pusher       *Pusher
	puller       *Puller
	connectivity *ConnectivityMonitor
	log          *slog.Logger
	config       SyncConfig

	mu          gosync.Mutex
	isSyncing   bool
	status      sync.Status
	subscribers map[int]func(sync.Status)
	nextSubID   int

	cancel      context.CancelFunc
	done        chan struct{}
	unsubscribe func()
}

func NewSyncService(
	storage Storage,
	queue *MutationQueue,
	pusher *Pusher,
	puller *Puller,
	connectivity *ConnectivityMonitor,
	log *slog.Logger,
	config SyncConfig,
) *SyncService {
	if config.AutoSyncInterval <= 0 {
		config.AutoSyncInterval = DefaultSyncConfig().AutoSyncInterval
	}

	return &SyncService{
		storage:      storage,
		queue:        queue,
		pusher:       pusher,
		puller:       puller,
		connectivity: connectivity,
		log:          log.With("component", "sync"),
		config:       config,
		status:       sync.Status{State: sync.StateIdle},
		subscribers:  make(map[int]func(sync.Status)),
	}
}

// Initialize starts the connectivity monitor, subscribes to its transitions
// and launches the auto-sync ticker. An offline-to-online transition triggers
// exactly one immediate cycle; the guard absorbs any overlap with the ticker.
func (s *SyncService) Initialize(ctx context.Context) error {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.mu.Unlock()

	if err := s.refreshPendingCount(); err != nil {
		s.log.Warn("failed to read initial queue depth", "error", err)
	}

	s.unsubscribe = s.connectivity.Subscribe(func(online bool) {
		if !online {
			return
		}
		go func() {
			if _, err := s.Sync(runCtx); err != nil {
				s.log.Warn("sync on reconnect failed", "error", err)
			}
		}()
	})
	s.connectivity.Start(runCtx)

	go s.autoSyncLoop(runCtx)

	s.log.Info("sync service initialized", "interval", s.config.AutoSyncInterval)
	return nil
}

// Destroy stops background work. Local data stays in place.
func (s *SyncService) Destroy() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	s.connectivity.Stop()
	cancel()
	<-done

	s.log.Info("sync service stopped")
}

// Sync runs one push-then-pull cycle. Re-entrant calls while a cycle is in
// flight return the current status immediately instead of queueing a second
// cycle. When the server is unreachable the cycle is skipped without error:
// queued work simply waits.
func (s *SyncService) Sync(ctx context.Context) (sync.Status, error) {
	s.mu.Lock()
	if s.isSyncing {
		status := s.status
		s.mu.Unlock()
		return status, nil
	}
	s.isSyncing = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.isSyncing = false
		s.mu.Unlock()
	}()

	if !s.connectivity.ProbeNow(ctx) {
		s.log.Debug("skipping sync cycle, offline")
		return s.Status(), nil
	}

	s.setState(sync.StateSyncing, "")
	s.log.Info("sync cycle started")

	pushRes := s.pusher.Push(ctx)
	if !pushRes.Success {
		// A failed drain ends the cycle before any pull: remote reads are
		// only trusted once queued local intent has reached the server.
		// Entries parked over the retry ceiling do not fail the drain and
		// so do not block pulling.
		if err := s.refreshPendingCount(); err != nil {
			s.log.Warn("failed to refresh queue depth", "error", err)
		}
		msg := strings.Join(pushRes.Errors, "; ")
		s.setError(msg)
		s.log.Error("sync cycle aborted, push failed",
			"pushed", pushRes.Pushed, "errors", len(pushRes.Errors))
		return s.Status(), fmt.Errorf("sync cycle: %s", msg)
	}

	pullRes := s.puller.Pull(ctx)

	if err := s.refreshPendingCount(); err != nil {
		s.log.Warn("failed to refresh queue depth", "error", err)
	}

	var failures []string
	failures = append(failures, pushRes.Errors...)
	if !pullRes.Success {
		failures = append(failures, pullRes.Error)
	}

	if len(failures) > 0 {
		msg := strings.Join(failures, "; ")
		s.setError(msg)
		s.log.Error("sync cycle finished with errors",
			"pushed", pushRes.Pushed, "applied", pullRes.Applied, "errors", len(failures))
		return s.Status(), fmt.Errorf("sync cycle: %s", msg)
	}

	s.setSynced()
	s.log.Info("sync cycle finished",
		"pushed", pushRes.Pushed, "applied", pullRes.Applied)
	return s.Status(), nil
}

// Status returns a copy of the current engine status.
func (s *SyncService) Status() sync.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Subscribe registers a status callback, invokes it immediately with the
// current status, then fires it after every state change. Returns an
// unsubscribe function.
func (s *SyncService) Subscribe(fn func(sync.Status)) func() {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	status := s.status
	s.mu.Unlock()

	fn(status)

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subscribers, id)
	}
}

func (s *SyncService) autoSyncLoop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.config.AutoSyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sync(ctx); err != nil {
				s.log.Warn("auto sync failed", "error", err)
			}
		}
	}
}

func (s *SyncService) refreshPendingCount() error {
	count, err := s.queue.Count()
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.status.PendingCount = count
	s.mu.Unlock()
	return nil
}

func (s *SyncService) setState(state sync.State, lastError string) {
	s.mu.Lock()
	s.status.State = state
	s.status.LastError = lastError
	status, callbacks := s.snapshotLocked()
	s.mu.Unlock()
	notify(status, callbacks)
}

func (s *SyncService) setSynced() {
	s.mu.Lock()
	s.status.State = sync.StateIdle
	s.status.LastSyncTime = time.Now()
	s.status.LastError = ""
	status, callbacks := s.snapshotLocked()
	s.mu.Unlock()
	notify(status, callbacks)
}

func (s *SyncService) setError(msg string) {
	s.mu.Lock()
	s.status.State = sync.StateError
	s.status.LastError = msg
	status, callbacks := s.snapshotLocked()
	s.mu.Unlock()
	notify(status, callbacks)
}

func (s *SyncService) snapshotLocked() (sync.Status, []func(sync.Status)) {
	callbacks := make([]func(sync.Status), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		callbacks = append(callbacks, fn)
	}
	return s.status, callbacks
}

// notify runs outside the lock so a subscriber can call back into the
// service. Callbacks run in state-change order.
func notify(status sync.Status, callbacks []func(sync.Status)) {
	for _, fn := range callbacks {
		fn(status)
	}
}
