package sync

import (
	"context"
)

// Transport is the remote procedure contract the client engine consumes.
//
// Upsert must be idempotent keyed by client id: looking up-or-inserting by
// client id on the remote side, never creating duplicates. Changes may be
// served by polling or by a live query; the engine treats it as a pull-style
// fetch either way. Timeout semantics belong to the transport; the engine
// caps retries, not elapsed time.
type Transport interface {
	Health(ctx context.Context) error
	Upsert(ctx context.Context, req UpsertRequest) (*UpsertResponse, error)
	Upload(ctx context.Context, req UploadRequest) (*UploadResponse, error)
	Changes(ctx context.Context, req ChangesRequest) (*ChangesResponse, error)
}
