package sync

import (
	"encoding/json"
	"time"
)

// DTOs for the sync transport contract, shared by the client engine and the
// reference server API.

// UpsertRequest applies one mutation remotely, keyed by client id. Applying
// the same request twice must not create duplicate remote records.
type UpsertRequest struct {
	Table     string          `json:"table"`
	ClientID  string          `json:"client_id" format:"uuid"`
	Operation Operation       `json:"operation" enum:"create,update,upload"`
	Payload   json.RawMessage `json:"payload"`
}

// UpsertResponse acknowledges a remote upsert. ServerID is the identifier the
// remote store assigned on first creation.
type UpsertResponse struct {
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	ServerID   string    `json:"server_id,omitempty"`
	Created    bool      `json:"created,omitempty"`
	ServerTime time.Time `json:"server_time,omitempty"`
}

// ChangesRequest asks for all records of one table changed since a watermark.
// A nil Since means initial sync: return everything. AfterID carries the last
// server id of the previous page so records sharing the Since timestamp are
// not skipped across a page boundary.
type ChangesRequest struct {
	Table   string     `json:"table"`
	Since   *time.Time `json:"since,omitempty" format:"date-time"`
	AfterID string     `json:"after_id,omitempty" format:"uuid"`
	Limit   int        `json:"limit,omitempty" minimum:"1" maximum:"1000" default:"500"`
}

// ChangesResponse carries the remote changes for one table.
type ChangesResponse struct {
	Status     string         `json:"status"`
	Error      string         `json:"error,omitempty"`
	Records    []RemoteRecord `json:"records,omitempty"`
	HasMore    bool           `json:"has_more,omitempty"`
	ServerTime time.Time      `json:"server_time,omitempty"`
}

// UploadRequest pushes one binary attachment. Content is the snapshot taken
// at enqueue time, so a retry replays exactly what the user captured.
type UploadRequest struct {
	ClientID    string `json:"client_id" format:"uuid"`
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type,omitempty"`
	Content     []byte `json:"content"`
}

// UploadResponse acknowledges an attachment upload with the assigned
// storage id.
type UploadResponse struct {
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	StorageID string `json:"storage_id,omitempty"`
	ServerID  string `json:"server_id,omitempty"`
}

// ServerStatus is the remote store's view of one user's synced data.
type ServerStatus struct {
	TotalRecords int       `json:"total_records"`
	ServerTime   time.Time `json:"server_time"`
}

// GetStatusResponse wraps ServerStatus for the status endpoint.
type GetStatusResponse struct {
	Status string        `json:"status"`
	Error  string        `json:"error,omitempty"`
	Data   *ServerStatus `json:"data,omitempty"`
}

// PushResult reports one drain of the mutation queue. Success is true only if
// no entry failed this cycle; entries skipped over the retry ceiling are
// reported in Errors but do not fail the drain.
type PushResult struct {
	Success bool     `json:"success"`
	Pushed  int      `json:"pushed"`
	Errors  []string `json:"errors,omitempty"`
}

// PullResult reports one pull pass over all entity tables.
type PullResult struct {
	Success bool   `json:"success"`
	Applied int    `json:"applied"`
	Error   string `json:"error,omitempty"`
}
