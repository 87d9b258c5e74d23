package client

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"

	"fieldsync/internal/app/client/config"
	"fieldsync/internal/domain/sync"
)

// App wires the client-side engine: local store, mutation queue, transport,
// connectivity monitor, push/pull engines and the orchestrator on top.
type App struct {
	config       *config.Config
	log          *slog.Logger
	identity     sync.Identity
	httpClient   *httpClient
	storage      *SQLiteStorage
	queue        *MutationQueue
	connectivity *ConnectivityMonitor
	writer       *LocalWriter
	syncService  *SyncService
}

func New(cfg *config.Config, log *slog.Logger) (*App, error) {
	identity, err := loadIdentity(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load identity: %w", err)
	}

	httpCl, err := NewHTTPClient(cfg, identity, log)
	if err != nil {
		return nil, fmt.Errorf("failed to init http client: %w", err)
	}

	storage, err := NewSQLiteStorage(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to init local storage: %w", err)
	}

	queue := NewMutationQueue(storage.DB(), log)
	connectivity := NewConnectivityMonitor(httpCl, log)
	pusher := NewPusher(storage, queue, httpCl, log)
	puller := NewPuller(storage, httpCl, log)

	syncCfg := DefaultSyncConfig()
	if cfg.SyncInterval > 0 {
		syncCfg.AutoSyncInterval = time.Duration(cfg.SyncInterval) * time.Second
	}

	app := &App{
		config:       cfg,
		log:          log,
		identity:     identity,
		httpClient:   httpCl,
		storage:      storage,
		queue:        queue,
		connectivity: connectivity,
		writer:       NewLocalWriter(storage, queue, httpCl, connectivity, log),
		syncService:  NewSyncService(storage, queue, pusher, puller, connectivity, log, syncCfg),
	}

	return app, nil
}

// loadIdentity reads the persisted user/device identity, minting and saving a
// device id on first run. The user id comes from the environment for now; a
// real deployment gets it from the auth layer.
func loadIdentity(cfg *config.Config) (sync.Identity, error) {
	var identity sync.Identity

	if data, err := os.ReadFile(cfg.IdentityPath); err == nil {
		if err := json.Unmarshal(data, &identity); err != nil {
			return identity, err
		}
	}

	if userID := os.Getenv("FIELDSYNC_USER_ID"); userID != "" {
		identity.UserID = userID
	}
	if identity.UserID == "" {
		return identity, sync.ErrMissingIdentity
	}

	if identity.DeviceID == "" {
		identity.DeviceID = uuid.NewString()
	}

	data, err := json.MarshalIndent(identity, "", "  ")
	if err != nil {
		return identity, err
	}
	if err := os.MkdirAll(filepath.Dir(cfg.IdentityPath), 0700); err != nil {
		return identity, err
	}
	if err := os.WriteFile(cfg.IdentityPath, data, 0600); err != nil {
		return identity, err
	}

	return identity, nil
}

// Start launches background sync. Safe to call once per process.
func (a *App) Start(ctx context.Context) error {
	if err := a.syncService.Initialize(ctx); err != nil {
		return err
	}

	a.log.Info("client started",
		"server", a.config.ServerAddress,
		"env", a.config.Env,
		"device", a.identity.DeviceID,
	)
	return nil
}

// Stop halts background work and closes the local store.
func (a *App) Stop() error {
	a.syncService.Destroy()
	return a.storage.Close()
}

// Writer exposes the local write path.
func (a *App) Writer() *LocalWriter {
	return a.writer
}

// Storage exposes the local store for read paths.
func (a *App) Storage() Storage {
	return a.storage
}

// Queue exposes the mutation queue for status inspection.
func (a *App) Queue() *MutationQueue {
	return a.queue
}

// Sync runs one manual sync cycle.
func (a *App) Sync(ctx context.Context) (sync.Status, error) {
	return a.syncService.Sync(ctx)
}

// SyncStatus returns the engine status without triggering a cycle.
func (a *App) SyncStatus() sync.Status {
	return a.syncService.Status()
}

// Connectivity exposes the connectivity monitor.
func (a *App) Connectivity() *ConnectivityMonitor {
	return a.connectivity
}

// ServerStatus asks the server for its view of this user's data.
func (a *App) ServerStatus(ctx context.Context) (*sync.ServerStatus, error) {
	return a.httpClient.ServerStatus(ctx)
}

// ResetLocalData wipes the local database and queue. Remote data is
// untouched; the next sync rebuilds the local copy from scratch.
func (a *App) ResetLocalData() error {
	return a.storage.Reset()
}
