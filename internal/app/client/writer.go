package client

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"

	"fieldsync/internal/domain/record"
	"fieldsync/internal/domain/sync"
)

// LocalWriter is the single entry point for user mutations. Every write lands
// in the local store first and is queued for the push engine; when the server
// is reachable the writer additionally attempts the remote application inline
// so a connected user sees near-immediate convergence.
type LocalWriter struct {
	storage      Storage
	queue        *MutationQueue
	transport    sync.Transport
	connectivity *ConnectivityMonitor
	log          *slog.Logger
}

func NewLocalWriter(
	storage Storage,
	queue *MutationQueue,
	transport sync.Transport,
	connectivity *ConnectivityMonitor,
	log *slog.Logger,
) *LocalWriter {
	return &LocalWriter{
		storage:      storage,
		queue:        queue,
		transport:    transport,
		connectivity: connectivity,
		log:          log.With("component", "writer"),
	}
}

// Create stores a new record locally as pending and queues it for push.
// Returns the generated client id. The local write is never rolled back: if
// queueing fails after the record is saved, the error is surfaced and the
// record stays pending so a later reconcile can recover it.
func (w *LocalWriter) Create(ctx context.Context, table string, payload json.RawMessage) (string, error) {
	if !record.ValidTable(table) {
		return "", fmt.Errorf("%w: %q", record.ErrUnknownTable, table)
	}
	if !json.Valid(payload) {
		return "", record.ErrInvalidPayload
	}

	clientID := uuid.NewString()
	now := time.Now()

	rec := &record.Record{
		ClientID:  clientID,
		Table:     table,
		Payload:   payload,
		Status:    record.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := w.storage.SaveLocal(rec); err != nil {
		return "", fmt.Errorf("failed to save record: %w", err)
	}

	if err := w.dispatch(ctx, table, sync.OpCreate, clientID, payload); err != nil {
		return clientID, err
	}
	return clientID, nil
}

// Update overwrites an existing record's payload locally, marks it pending
// and queues the change.
func (w *LocalWriter) Update(ctx context.Context, table, clientID string, payload json.RawMessage) error {
	if !json.Valid(payload) {
		return record.ErrInvalidPayload
	}

	rec, err := w.storage.GetRecord(table, clientID)
	if err != nil {
		return err
	}

	rec.Payload = payload
	rec.Status = record.StatusPending
	rec.UpdatedAt = time.Now()
	if err := w.storage.SaveLocal(rec); err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}

	return w.dispatch(ctx, table, sync.OpUpdate, clientID, payload)
}

// Attach captures one binary attachment: the content snapshot is embedded in
// the queue payload so a later retry replays exactly what was captured, even
// if the source file has since changed or disappeared.
func (w *LocalWriter) Attach(ctx context.Context, fileName, contentType string, content []byte) (string, error) {
	clientID := uuid.NewString()
	now := time.Now()

	payload, err := json.Marshal(sync.UploadRequest{
		ClientID:    clientID,
		FileName:    fileName,
		ContentType: contentType,
		Content:     content,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode attachment: %w", err)
	}

	rec := &record.Record{
		ClientID:  clientID,
		Table:     record.TableAttachments,
		Payload:   payload,
		Status:    record.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := w.storage.SaveLocal(rec); err != nil {
		return "", fmt.Errorf("failed to save attachment record: %w", err)
	}

	if err := w.dispatch(ctx, record.TableAttachments, sync.OpUpload, clientID, payload); err != nil {
		return clientID, err
	}
	return clientID, nil
}

// dispatch queues the mutation, then attempts it inline when online. The
// queue entry is written unconditionally before the inline attempt: the push
// engine's idempotent upsert makes the overlap harmless, and a crash between
// the two leaves the entry queued rather than lost.
func (w *LocalWriter) dispatch(ctx context.Context, table string, op sync.Operation, clientID string, payload json.RawMessage) error {
	entryID, err := w.queue.Enqueue(table, op, clientID, payload)
	if err != nil {
		return fmt.Errorf("saved locally but failed to queue for sync: %w", err)
	}

	if !w.connectivity.IsOnline() {
		return nil
	}

	if err := w.tryInline(ctx, table, op, clientID, payload, entryID); err != nil {
		// Inline failure is not a write failure: the queued entry will be
		// retried by the next sync cycle.
		w.log.Debug("inline push failed, left queued",
			"table", table, "client_id", clientID, "error", err)
	}
	return nil
}

func (w *LocalWriter) tryInline(ctx context.Context, table string, op sync.Operation, clientID string, payload json.RawMessage, entryID int64) error {
	var serverID string

	switch op {
	case sync.OpUpload:
		var req sync.UploadRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return err
		}
		resp, err := w.transport.Upload(ctx, req)
		if err != nil {
			return err
		}
		serverID = resp.ServerID
	default:
		resp, err := w.transport.Upsert(ctx, sync.UpsertRequest{
			Table:     table,
			ClientID:  clientID,
			Operation: op,
			Payload:   payload,
		})
		if err != nil {
			return err
		}
		serverID = resp.ServerID
	}

	if err := w.storage.MarkSynced(table, clientID, serverID); err != nil {
		return err
	}

	// Drop only the entry this write queued. A newer edit to the same
	// record may already sit behind it; that entry must survive for the
	// push engine.
	return w.queue.Remove(entryID)
}
