package record

import (
	"encoding/json"
	"time"
)

// Status is the sync state of a locally stored record.
type Status string

const (
	// StatusPending marks a record with local mutations that have not been
	// confirmed accepted by the remote store.
	StatusPending Status = "pending"

	// StatusSynced marks a record known to match (or be derived from) the
	// remote copy as of the last successful sync.
	StatusSynced Status = "synced"
)

// Synchronizable entity tables.
const (
	TableWorkOrders     = "work_orders"
	TableTaskInstances  = "task_instances"
	TableFieldResponses = "field_responses"
	TableAttachments    = "attachments"
)

// Tables lists every synchronizable entity table in pull order.
var Tables = []string{
	TableWorkOrders,
	TableTaskInstances,
	TableFieldResponses,
	TableAttachments,
}

// Record is the local copy of one synchronizable entity.
//
// ClientID is generated on the device at creation time and is stable for the
// record's lifetime; it is the idempotency key for remote upserts. ServerID is
// empty until the remote store has acknowledged the record.
type Record struct {
	ClientID  string          `json:"client_id"`
	ServerID  string          `json:"server_id,omitempty"`
	Table     string          `json:"table"`
	Payload   json.RawMessage `json:"payload"`
	Status    Status          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// IsPending reports whether the record carries unconfirmed local mutations.
func (r *Record) IsPending() bool {
	return r.Status == StatusPending
}

// ValidTable reports whether name is a known synchronizable table.
func ValidTable(name string) bool {
	for _, t := range Tables {
		if t == name {
			return true
		}
	}
	return false
}
