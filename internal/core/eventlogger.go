package core

// EventLogger is the subset of the observability audit log that core
// services need. Defining it here avoids importing the observability package.
type EventLogger interface {
	LogEvent(eventType, message string, data map[string]any) error
}

// Audit event types.
const (
	EventPersonCreated        = "person.created"
	EventPersonUpdated        = "person.updated"
	EventPersonDeleted        = "person.deleted"
	EventProjectCreated       = "project.created"
	EventProjectUpdated       = "project.updated"
	EventProjectSprintUpdated = "project.sprint_updated"
	EventProjectDeleted       = "project.deleted"
	EventTaskCreated          = "task.created"
	EventTaskStatusUpdated    = "task.status_updated"
	EventTaskReassigned       = "task.reassigned"
	EventTaskDeleted          = "task.deleted"
	EventPermissionDenied     = "permission.denied"
	EventLogin                = "session.login"
	EventLogout               = "session.logout"
)

func logEvent(l EventLogger, eventType, message string, data map[string]any) {
	if l == nil {
		return
	}
	_ = l.LogEvent(eventType, message, data) // audit failures never block a mutation
}
