package client

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/exp/slog"

	"fieldsync/internal/domain/record"
	"fieldsync/internal/domain/sync"
)

// MutationQueue is the durable, ordered store of outstanding local mutations
// awaiting remote application. Entries are appended by the write path and
// drained by the push engine; concurrent appends during a drain are picked up
// on the next cycle because the engine reads its work list once at cycle
// start.
type MutationQueue struct {
	db  *sql.DB
	log *slog.Logger
}

func NewMutationQueue(db *sql.DB, log *slog.Logger) *MutationQueue {
	return &MutationQueue{
		db:  db,
		log: log.With("component", "mutation_queue"),
	}
}

// Enqueue durably appends a new entry with retry counter 0 and returns its
// id. A failed append is returned to the caller: the local mutation already
// happened, so the caller surfaces the error instead of crashing the write.
func (q *MutationQueue) Enqueue(table string, op sync.Operation, clientID string, payload json.RawMessage) (int64, error) {
	if !record.ValidTable(table) {
		return 0, fmt.Errorf("%w: %q", record.ErrUnknownTable, table)
	}
	if !sync.ValidOperation(op) {
		return 0, fmt.Errorf("%w: %q", sync.ErrUnknownOperation, op)
	}

	res, err := q.db.Exec(`
		INSERT INTO mutation_queue (table_name, operation, client_id, payload, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		table, string(op), clientID, string(payload),
		time.Now().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to enqueue mutation: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read entry id: %w", err)
	}

	q.log.Debug("mutation queued",
		"id", id, "table", table, "operation", op, "client_id", clientID)
	return id, nil
}

// ListPending returns all entries ordered by creation time ascending. The
// call does not consume: it is safe to repeat.
func (q *MutationQueue) ListPending() ([]sync.QueueEntry, error) {
	rows, err := q.db.Query(`
		SELECT id, table_name, operation, client_id, payload, created_at, retry_count
		FROM mutation_queue
		ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list queue: %w", err)
	}
	defer rows.Close()

	var entries []sync.QueueEntry
	for rows.Next() {
		var entry sync.QueueEntry
		var op, payload, createdAt string

		if err := rows.Scan(&entry.ID, &entry.Table, &op, &entry.ClientID,
			&payload, &createdAt, &entry.RetryCount); err != nil {
			return nil, fmt.Errorf("failed to scan queue entry: %w", err)
		}

		entry.Operation = sync.Operation(op)
		entry.Payload = []byte(payload)
		if entry.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("failed to parse entry timestamp: %w", err)
		}

		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// Remove deletes one entry. Removing an absent id is a no-op.
func (q *MutationQueue) Remove(entryID int64) error {
	_, err := q.db.Exec(`DELETE FROM mutation_queue WHERE id = ?`, entryID)
	if err != nil {
		return fmt.Errorf("failed to remove queue entry: %w", err)
	}
	return nil
}

// IncrementRetry bumps one entry's retry counter. Counters never reset.
func (q *MutationQueue) IncrementRetry(entryID int64) error {
	_, err := q.db.Exec(
		`UPDATE mutation_queue SET retry_count = retry_count + 1 WHERE id = ?`, entryID)
	if err != nil {
		return fmt.Errorf("failed to increment retry count: %w", err)
	}
	return nil
}

// Count returns the current queue depth.
func (q *MutationQueue) Count() (int, error) {
	var count int
	if err := q.db.QueryRow(`SELECT COUNT(*) FROM mutation_queue`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count queue: %w", err)
	}
	return count, nil
}

// Clear removes every entry. Used only for local data reset / logout, never
// as part of ordinary sync.
func (q *MutationQueue) Clear() error {
	_, err := q.db.Exec(`DELETE FROM mutation_queue`)
	if err != nil {
		return fmt.Errorf("failed to clear queue: %w", err)
	}
	return nil
}
