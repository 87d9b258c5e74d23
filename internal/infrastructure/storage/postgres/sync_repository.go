package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/exp/slog"

	"fieldsync/internal/domain/sync"
)

// SyncRepository implements sync.Repository over PostgreSQL. All upserts key
// on (user_id, table_name, client_id) so a replayed request converges on the
// same row instead of creating a duplicate.
type SyncRepository struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewSyncRepository(pool *pgxpool.Pool, log *slog.Logger) *SyncRepository {
	return &SyncRepository{
		pool: pool,
		log:  log.With("component", "sync_repository"),
	}
}

func (r *SyncRepository) UpsertRecord(ctx context.Context, userID string, rec *sync.RemoteRecord) (string, bool, error) {
	const query = `
		INSERT INTO sync_records (user_id, table_name, client_id, payload, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, table_name, client_id) DO UPDATE SET
			payload = excluded.payload,
			updated_at = excluded.updated_at
		RETURNING id, (xmax = 0) AS created`

	var serverID string
	var created bool

	err := r.pool.QueryRow(ctx, query,
		userID, rec.Table, rec.ClientID, rec.Payload, rec.UpdatedAt,
	).Scan(&serverID, &created)
	if err != nil {
		r.log.Error("failed to upsert record",
			"user_id", userID, "table", rec.Table, "client_id", rec.ClientID, "error", err)
		return "", false, fmt.Errorf("upsert record: %w", err)
	}

	return serverID, created, nil
}

func (r *SyncRepository) ListChangedSince(ctx context.Context, userID, table string, since *time.Time, afterID string, limit int) ([]*sync.RemoteRecord, error) {
	// The (updated_at, id) cursor keeps pagination exact when several rows
	// share one timestamp: rows at exactly $3 are included only past the
	// id the previous page ended on.
	const query = `
		SELECT client_id, id, table_name, payload, updated_at
		FROM sync_records
		WHERE user_id = $1 AND table_name = $2
			AND ($3::timestamptz IS NULL
				OR updated_at > $3
				OR ($4::text <> '' AND updated_at = $3 AND id::text > $4))
		ORDER BY updated_at ASC, id::text ASC
		LIMIT $5`

	rows, err := r.pool.Query(ctx, query, userID, table, since, afterID, limit)
	if err != nil {
		r.log.Error("failed to list changes",
			"user_id", userID, "table", table, "error", err)
		return nil, fmt.Errorf("list changes: %w", err)
	}
	defer rows.Close()

	var records []*sync.RemoteRecord
	for rows.Next() {
		var rec sync.RemoteRecord
		if err := rows.Scan(&rec.ClientID, &rec.ServerID, &rec.Table, &rec.Payload, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, &rec)
	}

	return records, rows.Err()
}

func (r *SyncRepository) SaveAttachment(ctx context.Context, userID string, req *sync.UploadRequest) (string, string, error) {
	// The storage id is minted here; a conflict on (user_id, client_id)
	// keeps the first stored copy and returns its ids, so retransmits are
	// absorbed without rewriting content.
	const query = `
		INSERT INTO attachments (user_id, client_id, storage_id, file_name, content_type, content, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, client_id) DO UPDATE SET file_name = attachments.file_name
		RETURNING id, storage_id`

	var serverID, storageID string

	err := r.pool.QueryRow(ctx, query,
		userID, req.ClientID, uuid.NewString(), req.FileName, req.ContentType, req.Content, time.Now(),
	).Scan(&serverID, &storageID)
	if err != nil {
		r.log.Error("failed to save attachment",
			"user_id", userID, "client_id", req.ClientID, "error", err)
		return "", "", fmt.Errorf("save attachment: %w", err)
	}

	return storageID, serverID, nil
}

func (r *SyncRepository) CountRecords(ctx context.Context, userID string) (int, error) {
	const query = `SELECT COUNT(*) FROM sync_records WHERE user_id = $1`

	var count int
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		r.log.Error("failed to count records", "user_id", userID, "error", err)
		return 0, fmt.Errorf("count records: %w", err)
	}

	return count, nil
}

var _ sync.Repository = (*SyncRepository)(nil)
