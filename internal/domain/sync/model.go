package sync

import (
	"encoding/json"
	"time"
)

// Operation is the kind of mutation a queue entry replays remotely.
type Operation string

const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpUpload Operation = "upload"
)

// ValidOperation reports whether op is a known mutation kind.
func ValidOperation(op Operation) bool {
	switch op {
	case OpCreate, OpUpdate, OpUpload:
		return true
	}
	return false
}

// QueueEntry is one outstanding intent to apply a mutation remotely.
//
// The payload is a self-contained snapshot of the mutation's field values at
// enqueue time; it is what gets replayed on a later retry.
type QueueEntry struct {
	ID         int64           `json:"id"`
	Table      string          `json:"table"`
	Operation  Operation       `json:"operation"`
	ClientID   string          `json:"client_id"`
	Payload    json.RawMessage `json:"payload"`
	CreatedAt  time.Time       `json:"created_at"`
	RetryCount int             `json:"retry_count"`
}

// State is the orchestrator's process-wide sync state.
type State string

const (
	StateIdle    State = "idle"
	StateSyncing State = "syncing"
	StateError   State = "error"
)

// Status is the observable, process-wide sync status. It is a value snapshot:
// the orchestrator never mutates a published Status in place.
type Status struct {
	State        State     `json:"state"`
	PendingCount int       `json:"pending_count"`
	LastSyncTime time.Time `json:"last_sync_time"`
	LastError    string    `json:"last_error,omitempty"`
}

// RemoteRecord is one record as the remote store reports it.
type RemoteRecord struct {
	ClientID  string          `json:"client_id"`
	ServerID  string          `json:"server_id"`
	Table     string          `json:"table"`
	Payload   json.RawMessage `json:"payload"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Identity names the user and device a sync session acts for. Authentication
// itself is an external collaborator; the engine only forwards the identity.
type Identity struct {
	UserID   string `json:"user_id"`
	DeviceID string `json:"device_id"`
}

// ServiceConfig bounds the server-side sync service.
type ServiceConfig struct {
	BatchSize      int `json:"batch_size"`
	MaxSyncRecords int `json:"max_sync_records"`
}
