package workitem

import (
	"time"
)

// WorkItem is one locally visible unit of assigned work. It references its
// parent assignment (the technician's day), the user it was created for, and
// exactly one of a routine-scoped task template or a standalone task template.
type WorkItem struct {
	ClientID         string    `json:"client_id"`
	AssignmentID     string    `json:"assignment_id"`
	UserID           string    `json:"user_id"`
	RoutineTaskID    string    `json:"routine_task_id,omitempty"`
	StandaloneTaskID string    `json:"standalone_task_id,omitempty"`
	Title            string    `json:"title"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// Directory resolves a work item's references against whatever local cache
// and remote read paths the caller has. Implementations should answer from
// current data so a template restored remotely is reflected on the next read.
type Directory interface {
	// UserExists reports whether the user identity still resolves.
	UserExists(userID string) bool

	// UserAssigned reports whether the user is still linked to the
	// parent assignment.
	UserAssigned(userID, assignmentID string) bool

	// RoutineTaskActive reports whether the routine-scoped task template
	// (and its routine) still exists and is active.
	RoutineTaskActive(taskID string) bool

	// StandaloneTaskActive reports whether the standalone task template
	// still exists and is active.
	StandaloneTaskActive(taskID string) bool
}
