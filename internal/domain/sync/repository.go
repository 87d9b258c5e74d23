package sync

import (
	"context"
	"time"
)

// Repository is the server-side storage contract for the sync service.
type Repository interface {
	// UpsertRecord looks up-or-inserts a record by (user, table, client id).
	// It returns the record's server id and whether the call created it.
	UpsertRecord(ctx context.Context, userID string, rec *RemoteRecord) (serverID string, created bool, err error)

	// ListChangedSince returns records of one table changed after the
	// (since, afterID) cursor, ordered by (updated_at, id) ascending. A nil
	// since returns every record of the table; a non-empty afterID also
	// includes records at exactly since with a greater id.
	ListChangedSince(ctx context.Context, userID, table string, since *time.Time, afterID string, limit int) ([]*RemoteRecord, error)

	// SaveAttachment stores one binary attachment, idempotent by
	// (user, client id), and returns the assigned storage id.
	SaveAttachment(ctx context.Context, userID string, req *UploadRequest) (storageID string, serverID string, err error)

	// CountRecords returns the number of records stored for the user.
	CountRecords(ctx context.Context, userID string) (int, error)
}
