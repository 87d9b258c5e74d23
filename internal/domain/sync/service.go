package sync

import (
	"context"
	"fmt"
	"time"

	"fieldsync/internal/app/server/api/http/middleware/identity"
	"fieldsync/internal/domain/record"

	"golang.org/x/exp/slog"
)

// Servicer is the server-side sync service contract.
type Servicer interface {
	// Upsert applies one client mutation, idempotent by client id.
	Upsert(ctx context.Context, req UpsertRequest) (*UpsertResponse, error)

	// Changes returns records changed since the caller's watermark.
	Changes(ctx context.Context, req ChangesRequest) (*ChangesResponse, error)

	// Upload stores one attachment and returns its storage id.
	Upload(ctx context.Context, req UploadRequest) (*UploadResponse, error)

	// Status returns the remote store's view of the caller's data.
	Status(ctx context.Context) (*GetStatusResponse, error)
}

// Service implements Servicer over a Repository.
type Service struct {
	repo   Repository
	log    *slog.Logger
	config *ServiceConfig
}

// NewService creates the server-side sync service.
func NewService(repo Repository, log *slog.Logger, config *ServiceConfig) *Service {
	if config == nil {
		config = &ServiceConfig{
			BatchSize:      500,
			MaxSyncRecords: 1000,
		}
	}

	return &Service{
		repo:   repo,
		log:    log,
		config: config,
	}
}

// Upsert applies one client mutation, idempotent by client id.
func (s *Service) Upsert(ctx context.Context, req UpsertRequest) (*UpsertResponse, error) {
	userID, ok := identity.GetUserID(ctx)
	if !ok {
		return nil, ErrMissingIdentity
	}

	if !ValidOperation(req.Operation) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, req.Operation)
	}
	if !record.ValidTable(req.Table) {
		return nil, fmt.Errorf("%w: %q", record.ErrUnknownTable, req.Table)
	}
	if req.ClientID == "" {
		return nil, fmt.Errorf("upsert without client id")
	}

	rec := &RemoteRecord{
		ClientID:  req.ClientID,
		Table:     req.Table,
		Payload:   req.Payload,
		UpdatedAt: time.Now(),
	}

	serverID, created, err := s.repo.UpsertRecord(ctx, userID, rec)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert record: %w", err)
	}

	s.log.Debug("record upserted",
		"user_id", userID,
		"table", req.Table,
		"client_id", req.ClientID,
		"created", created,
	)

	return &UpsertResponse{
		Status:     "Ok",
		ServerID:   serverID,
		Created:    created,
		ServerTime: time.Now(),
	}, nil
}

// Changes returns records changed since the caller's watermark.
func (s *Service) Changes(ctx context.Context, req ChangesRequest) (*ChangesResponse, error) {
	userID, ok := identity.GetUserID(ctx)
	if !ok {
		return nil, ErrMissingIdentity
	}

	if !record.ValidTable(req.Table) {
		return nil, fmt.Errorf("%w: %q", record.ErrUnknownTable, req.Table)
	}
	if req.Limit <= 0 {
		req.Limit = s.config.BatchSize
	}
	if req.Limit > s.config.MaxSyncRecords {
		req.Limit = s.config.MaxSyncRecords
	}

	records, err := s.repo.ListChangedSince(ctx, userID, req.Table, req.Since, req.AfterID, req.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list changes: %w", err)
	}

	recordsSlice := make([]RemoteRecord, len(records))
	for i, r := range records {
		recordsSlice[i] = *r
	}

	return &ChangesResponse{
		Status:     "Ok",
		Records:    recordsSlice,
		HasMore:    len(records) >= req.Limit,
		ServerTime: time.Now(),
	}, nil
}

// Upload stores one attachment and returns its storage id.
func (s *Service) Upload(ctx context.Context, req UploadRequest) (*UploadResponse, error) {
	userID, ok := identity.GetUserID(ctx)
	if !ok {
		return nil, ErrMissingIdentity
	}

	if req.ClientID == "" {
		return nil, fmt.Errorf("upload without client id")
	}
	if len(req.Content) == 0 {
		return nil, fmt.Errorf("upload without content")
	}

	storageID, serverID, err := s.repo.SaveAttachment(ctx, userID, &req)
	if err != nil {
		return nil, fmt.Errorf("failed to save attachment: %w", err)
	}

	s.log.Debug("attachment stored",
		"user_id", userID,
		"client_id", req.ClientID,
		"storage_id", storageID,
		"size", len(req.Content),
	)

	return &UploadResponse{
		Status:    "Ok",
		StorageID: storageID,
		ServerID:  serverID,
	}, nil
}

// Status returns the remote store's view of the caller's data.
func (s *Service) Status(ctx context.Context) (*GetStatusResponse, error) {
	userID, ok := identity.GetUserID(ctx)
	if !ok {
		return nil, ErrMissingIdentity
	}

	total, err := s.repo.CountRecords(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count records: %w", err)
	}

	return &GetStatusResponse{
		Status: "Ok",
		Data: &ServerStatus{
			TotalRecords: total,
			ServerTime:   time.Now(),
		},
	}, nil
}
