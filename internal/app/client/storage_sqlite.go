package client

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"fieldsync/internal/domain/record"
	"fieldsync/internal/domain/sync"
)

// SQLiteStorage is the on-device store: entity records keyed by client id,
// the durable mutation queue, and the per-table pull watermarks.
type SQLiteStorage struct {
	db *sql.DB
}

func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	storage := &SQLiteStorage{db: db}

	if err := storage.initTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize tables: %w", err)
	}

	return storage, nil
}

func (s *SQLiteStorage) initTables() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS records (
			table_name TEXT NOT NULL,
			client_id TEXT NOT NULL,
			server_id TEXT NOT NULL DEFAULT '',
			payload TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (table_name, client_id)
		);

		CREATE INDEX IF NOT EXISTS idx_records_status ON records(table_name, status);

		CREATE TABLE IF NOT EXISTS mutation_queue (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			table_name TEXT NOT NULL,
			operation TEXT NOT NULL,
			client_id TEXT NOT NULL,
			payload TEXT NOT NULL,
			created_at TEXT NOT NULL,
			retry_count INTEGER NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS watermarks (
			table_name TEXT PRIMARY KEY,
			pulled_at TEXT NOT NULL
		);
	`)

	return err
}

// SaveLocal upserts a record written by the local mutation path. The server
// id already assigned to the record, if any, is preserved.
func (s *SQLiteStorage) SaveLocal(rec *record.Record) error {
	if !record.ValidTable(rec.Table) {
		return fmt.Errorf("%w: %q", record.ErrUnknownTable, rec.Table)
	}

	now := time.Now()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	_, err := s.db.Exec(`
		INSERT INTO records (table_name, client_id, server_id, payload, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(table_name, client_id) DO UPDATE SET
			payload = excluded.payload,
			status = excluded.status,
			updated_at = excluded.updated_at`,
		rec.Table,
		rec.ClientID,
		rec.ServerID,
		string(rec.Payload),
		string(rec.Status),
		rec.CreatedAt.Format(time.RFC3339Nano),
		rec.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}

	return nil
}

// GetRecord returns one record by client id, or record.ErrNotFound.
func (s *SQLiteStorage) GetRecord(table, clientID string) (*record.Record, error) {
	row := s.db.QueryRow(`
		SELECT table_name, client_id, server_id, payload, status, created_at, updated_at
		FROM records
		WHERE table_name = ? AND client_id = ?`,
		table, clientID,
	)

	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, record.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get record: %w", err)
	}

	return rec, nil
}

// ListRecords returns all records of one table in creation order.
func (s *SQLiteStorage) ListRecords(table string) ([]*record.Record, error) {
	rows, err := s.db.Query(`
		SELECT table_name, client_id, server_id, payload, status, created_at, updated_at
		FROM records
		WHERE table_name = ?
		ORDER BY created_at ASC`,
		table,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	var records []*record.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// MarkSynced transitions a record pending->synced after a confirmed remote
// acknowledgment, recording the assigned server id when one was returned.
func (s *SQLiteStorage) MarkSynced(table, clientID, serverID string) error {
	_, err := s.db.Exec(`
		UPDATE records
		SET status = ?,
		    server_id = CASE WHEN ? != '' THEN ? ELSE server_id END
		WHERE table_name = ? AND client_id = ?`,
		string(record.StatusSynced),
		serverID, serverID,
		table, clientID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark record synced: %w", err)
	}

	return nil
}

// ApplyRemote overwrites (or inserts) a record with the remote copy and marks
// it synced. The caller is responsible for the local-pending precedence check.
func (s *SQLiteStorage) ApplyRemote(rr *sync.RemoteRecord) error {
	now := time.Now()

	_, err := s.db.Exec(`
		INSERT INTO records (table_name, client_id, server_id, payload, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(table_name, client_id) DO UPDATE SET
			server_id = excluded.server_id,
			payload = excluded.payload,
			status = excluded.status,
			updated_at = excluded.updated_at`,
		rr.Table,
		rr.ClientID,
		rr.ServerID,
		string(rr.Payload),
		string(record.StatusSynced),
		now.Format(time.RFC3339Nano),
		rr.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to apply remote record: %w", err)
	}

	return nil
}

// Watermark returns the last-pull timestamp for one table. The second return
// distinguishes a missing watermark (first run, pull everything) from a
// present-but-stale one.
func (s *SQLiteStorage) Watermark(table string) (time.Time, bool, error) {
	var raw string
	err := s.db.QueryRow(
		`SELECT pulled_at FROM watermarks WHERE table_name = ?`, table,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("failed to read watermark: %w", err)
	}

	ts, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to parse watermark: %w", err)
	}

	return ts, true, nil
}

// AdvanceWatermark moves a table's watermark forward. A value behind the
// stored watermark is ignored, keeping the cursor monotonic.
func (s *SQLiteStorage) AdvanceWatermark(table string, ts time.Time) error {
	current, ok, err := s.Watermark(table)
	if err != nil {
		return err
	}
	if ok && !ts.After(current) {
		return nil
	}

	_, err = s.db.Exec(`
		INSERT INTO watermarks (table_name, pulled_at) VALUES (?, ?)
		ON CONFLICT(table_name) DO UPDATE SET pulled_at = excluded.pulled_at`,
		table, ts.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to advance watermark: %w", err)
	}

	return nil
}

// Reset wipes all local data. Used only on logout / local data reset.
func (s *SQLiteStorage) Reset() error {
	_, err := s.db.Exec(`
		DELETE FROM records;
		DELETE FROM mutation_queue;
		DELETE FROM watermarks;
	`)
	if err != nil {
		return fmt.Errorf("failed to reset storage: %w", err)
	}

	return nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for the mutation queue, which shares the
// same database file.
func (s *SQLiteStorage) DB() *sql.DB {
	return s.db
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*record.Record, error) {
	var rec record.Record
	var payload, status, createdAt, updatedAt string

	if err := row.Scan(&rec.Table, &rec.ClientID, &rec.ServerID,
		&payload, &status, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	rec.Payload = []byte(payload)
	rec.Status = record.Status(status)

	var err error
	if rec.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if rec.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return &rec, nil
}
