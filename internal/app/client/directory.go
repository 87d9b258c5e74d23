package client

import (
	"encoding/json"
	"fmt"

	"golang.org/x/exp/slog"

	"fieldsync/internal/domain/record"
	"fieldsync/internal/domain/workitem"
)

// workOrderPayload is the slice of a pulled work order the orphan classifier
// cares about: who is still assigned and which task templates are still live.
// The server owns this data; it reaches the device through the pull engine.
type workOrderPayload struct {
	AssignedUserIDs []string          `json:"assigned_user_ids"`
	RoutineTasks    []taskTemplateRef `json:"routine_tasks"`
	StandaloneTasks []taskTemplateRef `json:"standalone_tasks"`
}

type taskTemplateRef struct {
	ID     string `json:"id"`
	Active bool   `json:"active"`
}

// CacheDirectory answers workitem.Directory from the locally cached work
// orders plus the device's own identity. It is built fresh for every read, so
// a template or assignment restored by a later pull un-orphans items without
// any stored flag.
type CacheDirectory struct {
	ownUserID  string
	assigned   map[string]map[string]bool // assignmentID -> userID set
	routine    map[string]bool
	standalone map[string]bool
}

// NewCacheDirectory loads every cached work order and indexes its assignment
// and template state. Undecodable payloads are logged and skipped; a work
// order the device cannot read must not orphan items referencing the others.
func NewCacheDirectory(storage Storage, ownUserID string, log *slog.Logger) (*CacheDirectory, error) {
	records, err := storage.ListRecords(record.TableWorkOrders)
	if err != nil {
		return nil, fmt.Errorf("failed to load cached work orders: %w", err)
	}

	dir := &CacheDirectory{
		ownUserID:  ownUserID,
		assigned:   make(map[string]map[string]bool),
		routine:    make(map[string]bool),
		standalone: make(map[string]bool),
	}

	for _, rec := range records {
		var payload workOrderPayload
		if err := json.Unmarshal(rec.Payload, &payload); err != nil {
			log.Warn("skipping undecodable work order payload",
				slog.String("client_id", rec.ClientID), slog.String("error", err.Error()))
			continue
		}

		users := make(map[string]bool, len(payload.AssignedUserIDs))
		for _, userID := range payload.AssignedUserIDs {
			users[userID] = true
		}
		dir.assigned[rec.ClientID] = users

		for _, task := range payload.RoutineTasks {
			if task.Active {
				dir.routine[task.ID] = true
			}
		}
		for _, task := range payload.StandaloneTasks {
			if task.Active {
				dir.standalone[task.ID] = true
			}
		}
	}

	return dir, nil
}

// UserExists reports whether the user id still resolves to anyone the device
// knows about: its own operator, or a user the server still lists on some
// cached work order. A user absent from both is gone as far as reads care.
func (d *CacheDirectory) UserExists(userID string) bool {
	if userID == d.ownUserID {
		return true
	}
	for _, users := range d.assigned {
		if users[userID] {
			return true
		}
	}
	return false
}

func (d *CacheDirectory) UserAssigned(userID, assignmentID string) bool {
	return d.assigned[assignmentID][userID]
}

func (d *CacheDirectory) RoutineTaskActive(taskID string) bool {
	return d.routine[taskID]
}

func (d *CacheDirectory) StandaloneTaskActive(taskID string) bool {
	return d.standalone[taskID]
}

var _ workitem.Directory = (*CacheDirectory)(nil)

// WorkItems decodes the cached task instances into work items. The record's
// client id wins over anything the payload claims.
func (a *App) WorkItems() ([]workitem.WorkItem, error) {
	records, err := a.storage.ListRecords(record.TableTaskInstances)
	if err != nil {
		return nil, fmt.Errorf("failed to load cached task instances: %w", err)
	}

	items := make([]workitem.WorkItem, 0, len(records))
	for _, rec := range records {
		var item workitem.WorkItem
		if err := json.Unmarshal(rec.Payload, &item); err != nil {
			a.log.Warn("skipping undecodable task instance payload",
				slog.String("client_id", rec.ClientID), slog.String("error", err.Error()))
			continue
		}
		item.ClientID = rec.ClientID
		items = append(items, item)
	}
	return items, nil
}

// Directory builds a fresh classifier directory over the current local cache.
func (a *App) Directory() (*CacheDirectory, error) {
	return NewCacheDirectory(a.storage, a.identity.UserID, a.log)
}
