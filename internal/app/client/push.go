package client

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/exp/slog"

	"fieldsync/internal/domain/sync"
)

// MaxPushRetries is the retry ceiling after which an entry is skipped and
// reported instead of attempted. Entries above the ceiling stay queued for
// operator inspection.
const MaxPushRetries = 3

// Pusher drains the mutation queue against the remote transport.
type Pusher struct {
	storage   Storage
	queue     *MutationQueue
	transport sync.Transport
	log       *slog.Logger
}

func NewPusher(storage Storage, queue *MutationQueue, transport sync.Transport, log *slog.Logger) *Pusher {
	return &Pusher{
		storage:   storage,
		queue:     queue,
		transport: transport,
		log:       log.With("component", "push"),
	}
}

// Push processes every queued entry in order. A failed entry gets its retry
// counter bumped and stays queued; processing continues with the next entry,
// so one poisoned mutation never blocks the rest. The result is successful
// when every entry either applied or was skipped over the retry ceiling.
func (p *Pusher) Push(ctx context.Context) sync.PushResult {
	entries, err := p.queue.ListPending()
	if err != nil {
		return sync.PushResult{Errors: []string{fmt.Sprintf("failed to read queue: %v", err)}}
	}

	result := sync.PushResult{Success: true}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			result.Success = false
			result.Errors = append(result.Errors, err.Error())
			return result
		}

		if entry.RetryCount >= MaxPushRetries {
			p.log.Warn("skipping entry over retry ceiling",
				"id", entry.ID, "table", entry.Table, "retries", entry.RetryCount)
			result.Errors = append(result.Errors,
				fmt.Sprintf("entry %d (%s/%s) exceeded %d retries", entry.ID, entry.Table, entry.ClientID, MaxPushRetries))
			continue
		}

		if err := p.pushOne(ctx, entry); err != nil {
			p.log.Error("failed to push entry", "id", entry.ID, "table", entry.Table, "error", err)
			result.Success = false
			result.Errors = append(result.Errors, fmt.Sprintf("entry %d: %v", entry.ID, err))

			if retryErr := p.queue.IncrementRetry(entry.ID); retryErr != nil {
				result.Errors = append(result.Errors,
					fmt.Sprintf("entry %d: failed to record retry: %v", entry.ID, retryErr))
			}
			continue
		}

		if err := p.queue.Remove(entry.ID); err != nil {
			result.Success = false
			result.Errors = append(result.Errors, fmt.Sprintf("entry %d: failed to dequeue: %v", entry.ID, err))
			continue
		}

		result.Pushed++
	}

	return result
}

func (p *Pusher) pushOne(ctx context.Context, entry sync.QueueEntry) error {
	switch entry.Operation {
	case sync.OpCreate, sync.OpUpdate:
		return p.upsert(ctx, entry)
	case sync.OpUpload:
		return p.upload(ctx, entry)
	default:
		return fmt.Errorf("%w: %q", sync.ErrUnknownOperation, entry.Operation)
	}
}

// upsert sends the entry to the remote upsert endpoint. The server keys on
// client id, so a retransmit after a lost response converges on the same
// server record.
func (p *Pusher) upsert(ctx context.Context, entry sync.QueueEntry) error {
	resp, err := p.transport.Upsert(ctx, sync.UpsertRequest{
		Table:     entry.Table,
		ClientID:  entry.ClientID,
		Operation: entry.Operation,
		Payload:   entry.Payload,
	})
	if err != nil {
		return err
	}

	if err := p.storage.MarkSynced(entry.Table, entry.ClientID, resp.ServerID); err != nil {
		return fmt.Errorf("pushed but failed to mark synced: %w", err)
	}

	p.log.Debug("entry pushed",
		"table", entry.Table, "client_id", entry.ClientID,
		"server_id", resp.ServerID, "created", resp.Created)
	return nil
}

func (p *Pusher) upload(ctx context.Context, entry sync.QueueEntry) error {
	var req sync.UploadRequest
	if err := json.Unmarshal(entry.Payload, &req); err != nil {
		// Undecodable payloads can never succeed; report via error so the
		// retry counter climbs to the ceiling and the entry surfaces in
		// status output.
		return fmt.Errorf("undecodable upload payload: %w", err)
	}
	req.ClientID = entry.ClientID

	resp, err := p.transport.Upload(ctx, req)
	if err != nil {
		return err
	}

	if err := p.storage.MarkSynced(entry.Table, entry.ClientID, resp.ServerID); err != nil {
		return fmt.Errorf("uploaded but failed to mark synced: %w", err)
	}

	p.log.Debug("attachment uploaded",
		"client_id", entry.ClientID, "storage_id", resp.StorageID)
	return nil
}
