package workitem

// Reason says why a work item is orphaned.
type Reason string

const (
	ReasonNone            Reason = ""
	ReasonTemplateRemoved Reason = "template_removed"
	ReasonUserUnassigned  Reason = "user_unassigned"
	ReasonUserDeleted     Reason = "user_deleted"
)

// Classification is a derived, read-time judgment. It is never stored: a
// template restored remotely un-orphans the item on the next read.
type Classification struct {
	Orphaned bool   `json:"orphaned"`
	Reason   Reason `json:"reason,omitempty"`
}

// Classify determines whether a work item's backing template and assignment
// still validly exist. All checks are evaluated in full, then resolved by
// fixed precedence: user_deleted > user_unassigned > template_removed.
func Classify(item WorkItem, dir Directory) Classification {
	userDeleted := !dir.UserExists(item.UserID)

	// Only meaningful when the user still resolves.
	userUnassigned := !userDeleted && !dir.UserAssigned(item.UserID, item.AssignmentID)

	templateRemoved := !templatePresent(item, dir)

	switch {
	case userDeleted:
		return Classification{Orphaned: true, Reason: ReasonUserDeleted}
	case userUnassigned:
		return Classification{Orphaned: true, Reason: ReasonUserUnassigned}
	case templateRemoved:
		return Classification{Orphaned: true, Reason: ReasonTemplateRemoved}
	}

	return Classification{}
}

// templatePresent requires exactly one live template reference. An item
// carrying neither reference, or both, is malformed and counts as removed.
func templatePresent(item WorkItem, dir Directory) bool {
	hasRoutine := item.RoutineTaskID != ""
	hasStandalone := item.StandaloneTaskID != ""

	if hasRoutine == hasStandalone {
		return false
	}
	if hasRoutine {
		return dir.RoutineTaskActive(item.RoutineTaskID)
	}
	return dir.StandaloneTaskActive(item.StandaloneTaskID)
}

// FilterNonOrphaned returns the items that still validly exist. Pure filter
// over Classify, re-derived on every call.
func FilterNonOrphaned(items []WorkItem, dir Directory) []WorkItem {
	result := make([]WorkItem, 0, len(items))
	for _, item := range items {
		if !Classify(item, dir).Orphaned {
			result = append(result, item)
		}
	}
	return result
}

// SelectOrphaned returns the items whose backing template or assignment no
// longer validly exists.
func SelectOrphaned(items []WorkItem, dir Directory) []WorkItem {
	result := make([]WorkItem, 0)
	for _, item := range items {
		if Classify(item, dir).Orphaned {
			result = append(result, item)
		}
	}
	return result
}
