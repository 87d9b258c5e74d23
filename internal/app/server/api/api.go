// Reference sync server API.
//
// GET  /api/v1/health            # Liveness probe (public)
// POST /api/v1/sync/records      # Upsert one record (identity)
// POST /api/v1/sync/changes      # List changed records (identity)
// POST /api/v1/sync/attachments  # Upload one attachment (identity)
// GET  /api/v1/sync/status       # Server-side sync status (identity)

package api

import (
	healthAPI "fieldsync/internal/app/server/api/http/health"
	"fieldsync/internal/app/server/api/http/middleware"
	"fieldsync/internal/app/server/api/http/middleware/identity"
	"fieldsync/internal/app/server/api/http/middleware/logger"
	syncAPI "fieldsync/internal/app/server/api/http/sync"
	"fieldsync/internal/app/server/config"
	"fieldsync/internal/domain/sync"
	"fieldsync/internal/infrastructure/storage/postgres"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"golang.org/x/exp/slog"
)

type Handlers struct {
	Health *healthAPI.Handler
	Sync   *syncAPI.Handler
}

// New builds a *chi.Mux with every operation registered through huma.
func New(storage *postgres.Storage, cfg *config.Config, log *slog.Logger) *chi.Mux {
	mux := chi.NewMux()

	humaCfg := huma.DefaultConfig("FieldSync API", "1.0.0")

	API := humachi.New(mux, humaCfg)

	h := handlers(storage, cfg, log)
	h.Health.SetupRoutes(API)
	h.Sync.SetupRoutes(API)

	return mux
}

func handlers(storage *postgres.Storage, cfg *config.Config, log *slog.Logger) *Handlers {
	identityMW := identity.New(log)
	loggerMW := logger.New(log)
	middlewares := middleware.NewContainer()

	middlewares.Add(loggerMW.Middleware())
	healthHandler := healthAPI.NewHandler(log, middlewares.GetAllAndClear())

	syncRepo := postgres.NewSyncRepository(storage.Pool(), log)
	syncService := sync.NewService(syncRepo, log, &sync.ServiceConfig{
		BatchSize:      cfg.Sync.BatchSize,
		MaxSyncRecords: cfg.Sync.MaxSyncRecords,
	})
	middlewares.Add(identityMW.Middleware())
	middlewares.Add(loggerMW.Middleware())
	syncHandler := syncAPI.NewHandler(syncService, log, middlewares.GetAllAndClear())

	return &Handlers{
		Health: healthHandler,
		Sync:   syncHandler,
	}
}
