package core

import (
	"context"
	"fmt"

	"github.com/valter-silva-au/pm-console/pkg/models"
)

// Task dialog actions.
const (
	TaskActionStatus   = "status"
	TaskActionReassign = "reassign"
)

func taskColumns() []Column[models.Task] {
	return []Column[models.Task]{
		{Header: "Task ID", Field: "TaskId", Clickable: true, Sortable: true},
		{Header: "Task Name", Field: "TaskName", Clickable: true, Sortable: true},
		{Header: "Project", Field: "ProjectId", Clickable: true, Sortable: true},
		{Header: "Assigned To", Field: "AssignedToPersonId", Clickable: true, Sortable: true},
		{Header: "Sprint", Field: "SprintNumber", Clickable: true, Sortable: true},
		{Header: "Status", Field: "Status", Clickable: true, Sortable: true,
			Value: func(t models.Task) any { return t.Status.Label() }},
	}
}

// TaskScreen is the controller of the tasks section. The backend stays the
// authority on workflow transitions; the screen only gates by role and
// assignment.
type TaskScreen struct {
	screen
	api   TaskAPI
	Table *Table[models.Task]
}

// NewTaskScreen creates the tasks controller and its table.
func NewTaskScreen(api TaskAPI, deps ScreenDeps) *TaskScreen {
	s := &TaskScreen{screen: newScreen(EntityTask, deps), api: api}
	s.Table = newTable(&s.screen, TableOptions[models.Task]{
		Title:       "Tasks",
		Columns:     taskColumns(),
		ShowActions: true,
		ShowAdd:     s.CanCreate(),
		AddLabel:    "Add Task",
	}, api.List, api.Paged)
	return s
}

// owns reports whether t is assigned to the session user.
func (s *TaskScreen) owns(t models.Task) bool {
	uid := s.userID()
	return uid != "" && t.AssignedToPersonID == uid
}

func (s *TaskScreen) CanView() bool   { return s.can(ActionView, false) }
func (s *TaskScreen) CanCreate() bool { return s.can(ActionCreate, false) }
func (s *TaskScreen) CanDelete() bool { return s.can(ActionDelete, false) }

// CanUpdateStatus reports whether the session may move t's status.
func (s *TaskScreen) CanUpdateStatus(t models.Task) bool { return s.can(ActionStatus, s.owns(t)) }

// CanReassign reports whether the session may reassign t.
func (s *TaskScreen) CanReassign(t models.Task) bool { return s.can(ActionReassign, s.owns(t)) }

// CanEdit reports whether t opens in the editable dialog.
func (s *TaskScreen) CanEdit(t models.Task) bool {
	return s.CanUpdateStatus(t) || s.CanReassign(t)
}

// Refresh re-applies role-dependent table affordances.
func (s *TaskScreen) Refresh() { s.Table.SetShowAdd(s.CanCreate()) }

// Load fetches the current page.
func (s *TaskScreen) Load(ctx context.Context, reload bool) error {
	if err := s.require(ActionView, false); err != nil {
		return err
	}
	return s.Table.Load(ctx, reload)
}

// Get fetches one task by ID.
func (s *TaskScreen) Get(ctx context.Context, id string) (*models.Task, error) {
	if id == "" {
		return nil, validationf("Please enter a task ID")
	}
	if err := s.require(ActionView, false); err != nil {
		return nil, err
	}
	t, err := s.api.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getting task %s: %w", id, err)
	}
	return t, nil
}

// Lookup fetches one task by ID and shows it as the only row.
func (s *TaskScreen) Lookup(ctx context.Context, id string) (*models.Task, error) {
	t, err := s.Get(ctx, id)
	if err != nil {
		s.Table.Fail(LookupMessage(s.entity, id, err))
		return nil, err
	}
	s.Table.Show([]models.Task{*t})
	return t, nil
}

func validateTaskCreate(in models.TaskCreate) string {
	if in.TaskName == "" {
		return "Task Name is required"
	}
	if in.ProjectID == "" {
		return "Project ID is required"
	}
	return ""
}

// Create posts a new task.
func (s *TaskScreen) Create(ctx context.Context, in models.TaskCreate) (*models.Task, error) {
	if err := s.require(ActionCreate, false); err != nil {
		return nil, err
	}
	if msg := validateTaskCreate(in); msg != "" {
		return nil, validationf("%s", msg)
	}
	t, err := s.api.Create(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("creating task: %w", err)
	}
	id := ""
	if t != nil {
		id = t.TaskID
	}
	s.audit(EventTaskCreated, "created task "+in.TaskName, map[string]any{
		"task_id":    id,
		"project_id": in.ProjectID,
	})
	return t, nil
}

// CreateBulk posts several tasks in one request.
func (s *TaskScreen) CreateBulk(ctx context.Context, in []models.TaskCreate) ([]models.Task, error) {
	if err := s.require(ActionCreate, false); err != nil {
		return nil, err
	}
	for i := range in {
		if msg := validateTaskCreate(in[i]); msg != "" {
			return nil, validationf("task %d: %s", i+1, msg)
		}
	}
	out, err := s.api.CreateBulk(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("creating tasks: %w", err)
	}
	s.audit(EventTaskCreated, fmt.Sprintf("created %d tasks", len(out)), map[string]any{"count": len(out)})
	return out, nil
}

// UpdateStatus moves t to status on behalf of the session user.
func (s *TaskScreen) UpdateStatus(ctx context.Context, t models.Task, status models.TaskStatus) (string, error) {
	if t.TaskID == "" {
		return "", validationf("TaskId missing")
	}
	if err := s.require(ActionStatus, s.owns(t)); err != nil {
		return "", err
	}
	if !status.IsValid() {
		return "", validationf("Select status")
	}
	uid := s.userID()
	if uid == "" {
		return "", validationf(msgMissingUser)
	}
	msg, err := s.api.UpdateStatus(ctx, t.TaskID, uid, status)
	if err != nil {
		return "", fmt.Errorf("updating status of task %s: %w", t.TaskID, err)
	}
	s.audit(EventTaskStatusUpdated, fmt.Sprintf("task %s moved to %s", t.TaskID, status.Label()), map[string]any{
		"task_id": t.TaskID,
		"from":    int(t.Status),
		"to":      int(status),
	})
	return msg, nil
}

// Reassign hands t over to newPersonID; the session user acts as manager.
func (s *TaskScreen) Reassign(ctx context.Context, t models.Task, newPersonID string) (string, error) {
	if t.TaskID == "" {
		return "", validationf("TaskId missing")
	}
	if err := s.require(ActionReassign, s.owns(t)); err != nil {
		return "", err
	}
	if newPersonID == "" {
		return "", validationf("Enter new person id")
	}
	uid := s.userID()
	if uid == "" {
		return "", validationf(msgMissingUser)
	}
	msg, err := s.api.Reassign(ctx, t.TaskID, uid, newPersonID)
	if err != nil {
		return "", fmt.Errorf("reassigning task %s: %w", t.TaskID, err)
	}
	s.audit(EventTaskReassigned, fmt.Sprintf("task %s reassigned to %s", t.TaskID, newPersonID), map[string]any{
		"task_id": t.TaskID,
		"from":    t.AssignedToPersonID,
		"to":      newPersonID,
	})
	return msg, nil
}

// SetStatus is UpdateStatus by task ID. The task is fetched first when the
// grant depends on who it is assigned to.
func (s *TaskScreen) SetStatus(ctx context.Context, id string, status models.TaskStatus) (string, error) {
	t := models.Task{TaskID: id}
	if !s.can(ActionStatus, false) {
		got, err := s.Get(ctx, id)
		if err != nil {
			return "", err
		}
		t = *got
	}
	return s.UpdateStatus(ctx, t, status)
}

// ReassignByID is Reassign by task ID.
func (s *TaskScreen) ReassignByID(ctx context.Context, id, newPersonID string) (string, error) {
	t := models.Task{TaskID: id}
	if !s.can(ActionReassign, false) {
		got, err := s.Get(ctx, id)
		if err != nil {
			return "", err
		}
		t = *got
	}
	return s.Reassign(ctx, t, newPersonID)
}

// Delete removes a task.
func (s *TaskScreen) Delete(ctx context.Context, id string) (string, error) {
	if id == "" {
		return "", validationf("TaskId missing")
	}
	if err := s.require(ActionDelete, false); err != nil {
		return "", err
	}
	msg, err := s.api.Delete(ctx, id)
	if err != nil {
		return "", fmt.Errorf("deleting task %s: %w", id, err)
	}
	s.audit(EventTaskDeleted, "deleted task "+id, map[string]any{"task_id": id})
	return msg, nil
}

func taskModel(t models.Task) Values {
	return Values{
		"TaskId":             t.TaskID,
		"TaskName":           t.TaskName,
		"ProjectId":          t.ProjectID,
		"AssignedToPersonId": t.AssignedToPersonID,
		"SprintNumber":       int(t.SprintNumber),
		"Status":             t.Status,
	}
}

func taskInfoFields() []Field {
	return []Field{
		{Key: "TaskId", Label: "Task ID", Kind: FieldText, ReadOnly: true},
		{Key: "TaskName", Label: "Task Name", Kind: FieldText, ReadOnly: true},
		{Key: "ProjectId", Label: "Project ID", Kind: FieldText, ReadOnly: true},
		{Key: "AssignedToPersonId", Label: "Assigned To", Kind: FieldText, ReadOnly: true},
		{Key: "SprintNumber", Label: "Sprint", Kind: FieldNumber, ReadOnly: true},
	}
}

func actionIs(action string) func(Values) bool {
	return func(v Values) bool {
		a := v.String("action")
		if a == "" {
			a = TaskActionStatus
		}
		return a == action
	}
}

// OpenRow opens the dialog for a clicked row. Tasks the session may act on
// open in the editable dialog with a status or reassign action; others open
// read-only.
func (s *TaskScreen) OpenRow(t models.Task) *Dialog {
	if !s.CanEdit(t) {
		return NewDialog(DialogSpec{
			Title: fmt.Sprintf("View Task (%s)", t.TaskID),
			Mode:  ModeView,
			Fields: append(taskInfoFields(),
				Field{Key: "Status", Label: "Status", Kind: FieldSelect, Options: statusOptions, ReadOnly: true}),
			Model: taskModel(t),
		})
	}

	canStatus, canReassign := s.CanUpdateStatus(t), s.CanReassign(t)
	model := taskModel(t)
	model["action"] = TaskActionStatus
	if !canStatus {
		model["action"] = TaskActionReassign
	}
	model["newPersonId"] = ""

	fields := append(taskInfoFields(),
		Field{Key: "action", Label: "Action", Kind: FieldSelect, ReadOnly: !canReassign, Options: []Option{
			{Value: TaskActionStatus, Label: "Update status"},
			{Value: TaskActionReassign, Label: "Reassign person"},
		}},
		Field{Key: "Status", Label: "Status", Kind: FieldSelect, Options: statusOptions, VisibleWhen: actionIs(TaskActionStatus)},
		Field{Key: "newPersonId", Label: "New Person ID", Kind: FieldText, VisibleWhen: actionIs(TaskActionReassign)},
	)

	return NewDialog(DialogSpec{
		Title:  fmt.Sprintf("Edit Task (%s)", t.TaskID),
		Mode:   ModeEdit,
		Fields: fields,
		Model:  model,
		Validate: func(v Values) string {
			action := v.String("action")
			if action == "" {
				action = TaskActionStatus
			}
			switch action {
			case TaskActionStatus:
				if !canStatus {
					return msgNotAllowed
				}
				if n, ok := v.Int("Status"); !ok || !models.TaskStatus(n).IsValid() {
					return "Select status"
				}
				return ""
			case TaskActionReassign:
				if !canReassign {
					return msgNotAllowed
				}
				if v.String("newPersonId") == "" {
					return "Enter new person id"
				}
				return ""
			}
			return "Select an action"
		},
		Save: func(ctx context.Context, v Values) (any, error) {
			if v.String("action") == TaskActionReassign {
				return s.Reassign(ctx, t, v.String("newPersonId"))
			}
			n, _ := v.Int("Status")
			return s.UpdateStatus(ctx, t, models.TaskStatus(n))
		},
		SkipUnchanged: true,
	})
}

// OpenCreate opens the create dialog.
func (s *TaskScreen) OpenCreate() (*Dialog, error) {
	if err := s.require(ActionCreate, false); err != nil {
		return nil, err
	}
	form := func(v Values) models.TaskCreate {
		in := models.TaskCreate{
			TaskName:           v.String("TaskName"),
			ProjectID:          v.String("ProjectId"),
			AssignedToPersonID: v.String("AssignedToPersonId"),
		}
		if n, ok := v.Int("SprintNumber"); ok {
			in.SprintNumber = &n
		}
		if n, ok := v.Int("Status"); ok {
			st := models.TaskStatus(n)
			in.Status = &st
		}
		return in
	}
	return NewDialog(DialogSpec{
		Title: "Create Task",
		Mode:  ModeCreate,
		Fields: []Field{
			{Key: "TaskName", Label: "Task Name", Kind: FieldText},
			{Key: "ProjectId", Label: "Project ID", Kind: FieldText},
			{Key: "AssignedToPersonId", Label: "Assigned To", Kind: FieldText},
			{Key: "SprintNumber", Label: "Sprint", Kind: FieldNumber, Min: Bound(1), Step: 1},
			{Key: "Status", Label: "Status", Kind: FieldSelect, Options: statusOptions},
		},
		Model: Values{
			"TaskName":           "",
			"ProjectId":          "",
			"AssignedToPersonId": "",
			"SprintNumber":       1,
			"Status":             models.StatusTodo,
		},
		Validate: func(v Values) string { return validateTaskCreate(form(v)) },
		Save: func(ctx context.Context, v Values) (any, error) {
			return s.Create(ctx, form(v))
		},
	}), nil
}

// ConfirmDelete returns the confirmation for deleting t, or ErrForbidden.
func (s *TaskScreen) ConfirmDelete(t models.Task) (ConfirmSpec, error) {
	if t.TaskID == "" {
		s.Table.SetError("TaskId missing")
		return ConfirmSpec{}, validationf("TaskId missing")
	}
	if err := s.require(ActionDelete, false); err != nil {
		return ConfirmSpec{}, err
	}
	return DeleteConfirm(s.entity, t.TaskID), nil
}

// HandleClose applies the shared dialog close handling; it reports whether
// the table should reload.
func (s *TaskScreen) HandleClose(r Result) bool {
	return closeDialog(&s.screen, s.Table, r)
}
