package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// TaskStatus is the backend's task status enum.
type TaskStatus int

const (
	StatusTodo       TaskStatus = 0
	StatusInProgress TaskStatus = 1
	StatusDone       TaskStatus = 2
)

// ValidTaskStatuses contains every status in workflow order.
var ValidTaskStatuses = []TaskStatus{StatusTodo, StatusInProgress, StatusDone}

// Label returns the human readable status name.
func (s TaskStatus) Label() string {
	switch s {
	case StatusTodo:
		return "Todo"
	case StatusInProgress:
		return "In Progress"
	case StatusDone:
		return "Done"
	default:
		return strconv.Itoa(int(s))
	}
}

// String implements fmt.Stringer.
func (s TaskStatus) String() string { return s.Label() }

// IsValid reports whether s is a known status.
func (s TaskStatus) IsValid() bool {
	return s >= StatusTodo && s <= StatusDone
}

// ParseTaskStatus accepts a status number, label ("In Progress") or
// snake_case name ("in_progress").
func ParseTaskStatus(s string) (TaskStatus, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer(" ", "", "_", "", "-", "").Replace(norm)
	switch norm {
	case "todo":
		return StatusTodo, nil
	case "inprogress":
		return StatusInProgress, nil
	case "done":
		return StatusDone, nil
	}
	n, err := strconv.Atoi(norm)
	if err == nil && TaskStatus(n).IsValid() {
		return TaskStatus(n), nil
	}
	return 0, fmt.Errorf("invalid task status %q: must be one of todo, in_progress, done (or 0, 1, 2)", s)
}

// Task is a unit of sprint work as exchanged with the /Task endpoints.
// The backend writes PascalCase keys; camelCase keys are accepted on read
// because encoding/json matches field names case-insensitively.
type Task struct {
	TaskID             string     `json:"TaskId" yaml:"TaskId"`
	TaskName           string     `json:"TaskName" yaml:"TaskName"`
	ProjectID          string     `json:"ProjectId" yaml:"ProjectId"`
	AssignedToPersonID string     `json:"AssignedToPersonId" yaml:"AssignedToPersonId"`
	SprintNumber       FlexInt    `json:"SprintNumber" yaml:"SprintNumber"`
	Status             TaskStatus `json:"Status" yaml:"Status"`
}

// UnmarshalJSON accepts the legacy AssignedToPerson alias in addition to the
// regular keys.
func (t *Task) UnmarshalJSON(data []byte) error {
	type plain Task
	var aux struct {
		plain
		AssignedToPerson *string `json:"AssignedToPerson"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*t = Task(aux.plain)
	if t.AssignedToPersonID == "" && aux.AssignedToPerson != nil {
		t.AssignedToPersonID = *aux.AssignedToPerson
	}
	return nil
}

// TaskCreate is the POST /Task body.
type TaskCreate struct {
	TaskName           string      `json:"TaskName" yaml:"TaskName"`
	ProjectID          string      `json:"ProjectId" yaml:"ProjectId"`
	AssignedToPersonID string      `json:"AssignedToPersonId,omitempty" yaml:"AssignedToPersonId,omitempty"`
	SprintNumber       *int        `json:"SprintNumber,omitempty" yaml:"SprintNumber,omitempty"`
	Status             *TaskStatus `json:"Status,omitempty" yaml:"Status,omitempty"`
}

// TaskUpdate is the PUT /Task/{id} body.
type TaskUpdate struct {
	TaskName           string     `json:"TaskName" yaml:"TaskName"`
	ProjectID          string     `json:"ProjectId" yaml:"ProjectId"`
	AssignedToPersonID string     `json:"AssignedToPersonId" yaml:"AssignedToPersonId"`
	SprintNumber       int        `json:"SprintNumber" yaml:"SprintNumber"`
	Status             TaskStatus `json:"Status" yaml:"Status"`
}
