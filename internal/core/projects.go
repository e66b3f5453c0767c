package core

import (
	"context"
	"fmt"

	"github.com/valter-silva-au/pm-console/pkg/models"
)

// CompletedLabel renders a project's completion flag.
func CompletedLabel(done bool) string {
	if done {
		return "Completed"
	}
	return "In Progress"
}

// ValidateSprint checks a sprint move: the current sprint never decreases
// and never exceeds the total.
func ValidateSprint(current, total, target int) string {
	if target < current {
		return "Sprint cannot go backwards"
	}
	if target > total {
		return fmt.Sprintf("Max sprint is %d", total)
	}
	return ""
}

func projectColumns() []Column[models.Project] {
	return []Column[models.Project]{
		{Header: "ID", Field: "projectId", Clickable: true, Sortable: true},
		{Header: "Project", Field: "projectName", Clickable: true, Sortable: true},
		{Header: "Total Sprints", Field: "totalSprintCount", Clickable: true, Sortable: true},
		{Header: "Current", Field: "currentSprintCount", Clickable: true, Sortable: true, Event: EventSprint},
		{Header: "Created By", Field: "createdByAdminId", Clickable: true, Sortable: true},
		{Header: "Status", Field: "isCompleted", Clickable: true, Sortable: true,
			Value: func(p models.Project) any { return CompletedLabel(bool(p.IsCompleted)) }},
	}
}

// ProjectScreen is the controller of the projects section.
type ProjectScreen struct {
	screen
	api   ProjectAPI
	Table *Table[models.Project]
}

// NewProjectScreen creates the projects controller and its table.
func NewProjectScreen(api ProjectAPI, deps ScreenDeps) *ProjectScreen {
	s := &ProjectScreen{screen: newScreen(EntityProject, deps), api: api}
	s.Table = newTable(&s.screen, TableOptions[models.Project]{
		Title:       "Projects",
		Columns:     projectColumns(),
		ShowActions: true,
		ShowAdd:     s.CanCreate(),
		AddLabel:    "Add Project",
	}, api.List, api.Paged)
	return s
}

func (s *ProjectScreen) CanView() bool     { return s.can(ActionView, false) }
func (s *ProjectScreen) CanCreate() bool   { return s.can(ActionCreate, false) }
func (s *ProjectScreen) CanEdit() bool     { return s.can(ActionEdit, false) }
func (s *ProjectScreen) CanComplete() bool { return s.can(ActionComplete, false) }
func (s *ProjectScreen) CanSprint() bool   { return s.can(ActionSprint, false) }
func (s *ProjectScreen) CanDelete() bool   { return s.can(ActionDelete, false) }

// Refresh re-applies role-dependent table affordances.
func (s *ProjectScreen) Refresh() { s.Table.SetShowAdd(s.CanCreate()) }

// Load fetches the current page.
func (s *ProjectScreen) Load(ctx context.Context, reload bool) error {
	if err := s.require(ActionView, false); err != nil {
		return err
	}
	return s.Table.Load(ctx, reload)
}

// Lookup fetches one project by ID and shows it as the only row.
func (s *ProjectScreen) Lookup(ctx context.Context, id string) (*models.Project, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		s.Table.Fail(LookupMessage(s.entity, id, err))
		return nil, err
	}
	s.Table.Show([]models.Project{*p})
	return p, nil
}

// Get fetches one project by ID.
func (s *ProjectScreen) Get(ctx context.Context, id string) (*models.Project, error) {
	if id == "" {
		return nil, validationf("Please enter a project ID")
	}
	if err := s.require(ActionView, false); err != nil {
		return nil, err
	}
	p, err := s.api.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getting project %s: %w", id, err)
	}
	return p, nil
}

// Create posts a new project. An empty CreatedByAdminID defaults to the
// session user.
func (s *ProjectScreen) Create(ctx context.Context, in models.ProjectCreate) (*models.Project, error) {
	if err := s.require(ActionCreate, false); err != nil {
		return nil, err
	}
	if msg := validateProjectCreate(in); msg != "" {
		return nil, validationf("%s", msg)
	}
	if in.CreatedByAdminID == "" {
		in.CreatedByAdminID = s.userID()
	}
	p, err := s.api.Create(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("creating project: %w", err)
	}
	id := ""
	if p != nil {
		id = p.ProjectID
	}
	s.audit(EventProjectCreated, "created project "+in.ProjectName, map[string]any{"project_id": id, "name": in.ProjectName})
	return p, nil
}

func validateProjectCreate(in models.ProjectCreate) string {
	if in.ProjectName == "" {
		return "Project Name is required"
	}
	if in.TotalSprintCount < 1 {
		return "Total sprints must be at least 1"
	}
	return ""
}

// CreateBulk posts several projects in one request.
func (s *ProjectScreen) CreateBulk(ctx context.Context, in []models.ProjectCreate) ([]models.Project, error) {
	if err := s.require(ActionCreate, false); err != nil {
		return nil, err
	}
	for i := range in {
		if msg := validateProjectCreate(in[i]); msg != "" {
			return nil, validationf("project %d: %s", i+1, msg)
		}
		if in[i].CreatedByAdminID == "" {
			in[i].CreatedByAdminID = s.userID()
		}
	}
	out, err := s.api.CreateBulk(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("creating projects: %w", err)
	}
	s.audit(EventProjectCreated, fmt.Sprintf("created %d projects", len(out)), map[string]any{"count": len(out)})
	return out, nil
}

// Update renames and/or completes a project. Renaming needs the edit
// capability; changing completion needs the complete capability.
func (s *ProjectScreen) Update(ctx context.Context, id string, in models.ProjectUpdate) (string, error) {
	id, err := requireID(s.entity, id, "update")
	if err != nil {
		return "", err
	}
	if in.ProjectName == nil && in.IsCompleted == nil {
		return "", validationf("Nothing to update")
	}
	if in.ProjectName != nil {
		if err := s.require(ActionEdit, false); err != nil {
			return "", err
		}
		if *in.ProjectName == "" {
			return "", validationf("Project Name is required")
		}
	}
	if in.IsCompleted != nil {
		if err := s.require(ActionComplete, false); err != nil {
			return "", err
		}
	}
	msg, err := s.api.Update(ctx, id, in)
	if err != nil {
		return "", fmt.Errorf("updating project %s: %w", id, err)
	}
	data := map[string]any{"project_id": id}
	if in.ProjectName != nil {
		data["name"] = *in.ProjectName
	}
	if in.IsCompleted != nil {
		data["completed"] = *in.IsCompleted
	}
	s.audit(EventProjectUpdated, "updated project "+id, data)
	return msg, nil
}

// UpdateSprint moves p to sprint target. The sprint bounds are checked
// before any request is sent.
func (s *ProjectScreen) UpdateSprint(ctx context.Context, p models.Project, target int) (string, error) {
	id, err := requireID(s.entity, p.ProjectID, "sprint update")
	if err != nil {
		return "", err
	}
	if err := s.require(ActionSprint, false); err != nil {
		return "", err
	}
	if msg := ValidateSprint(int(p.CurrentSprintCount), int(p.TotalSprintCount), target); msg != "" {
		return "", validationf("%s", msg)
	}
	msg, err := s.api.UpdateSprint(ctx, id, target)
	if err != nil {
		return "", fmt.Errorf("updating sprint of project %s: %w", id, err)
	}
	s.audit(EventProjectSprintUpdated, fmt.Sprintf("project %s moved to sprint %d", id, target), map[string]any{
		"project_id": id,
		"from":       int(p.CurrentSprintCount),
		"to":         target,
	})
	return msg, nil
}

// AdvanceSprint fetches the project and then moves it to sprint target.
func (s *ProjectScreen) AdvanceSprint(ctx context.Context, id string, target int) (string, error) {
	if err := s.require(ActionSprint, false); err != nil {
		return "", err
	}
	p, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return s.UpdateSprint(ctx, *p, target)
}

// Delete removes a project.
func (s *ProjectScreen) Delete(ctx context.Context, id string) (string, error) {
	id, err := requireID(s.entity, id, "delete")
	if err != nil {
		return "", err
	}
	if err := s.require(ActionDelete, false); err != nil {
		return "", err
	}
	msg, err := s.api.Delete(ctx, id)
	if err != nil {
		return "", fmt.Errorf("deleting project %s: %w", id, err)
	}
	s.audit(EventProjectDeleted, "deleted project "+id, map[string]any{"project_id": id})
	return msg, nil
}

func projectModel(p models.Project) Values {
	return Values{
		"projectId":          p.ProjectID,
		"projectName":        p.ProjectName,
		"totalSprintCount":   int(p.TotalSprintCount),
		"currentSprintCount": int(p.CurrentSprintCount),
		"createdByAdminId":   p.CreatedByAdminID,
		"isCompleted":        bool(p.IsCompleted),
	}
}

func projectFields(canRename, canComplete bool) []Field {
	return []Field{
		{Key: "projectId", Label: "ID", Kind: FieldText, ReadOnly: true},
		{Key: "projectName", Label: "Project Name", Kind: FieldText, ReadOnly: !canRename},
		{Key: "totalSprintCount", Label: "Total Sprints", Kind: FieldNumber, ReadOnly: true},
		{Key: "currentSprintCount", Label: "Current Sprint", Kind: FieldNumber, ReadOnly: true},
		{Key: "createdByAdminId", Label: "Created By", Kind: FieldText, ReadOnly: true},
		{Key: "isCompleted", Label: "Completed", Kind: FieldCheckbox, ReadOnly: !canComplete},
	}
}

// OpenRow opens the dialog for a clicked cell. The Current column opens the
// sprint dialog; every other column opens the edit (or view) dialog.
func (s *ProjectScreen) OpenRow(ev Event, p models.Project) (*Dialog, error) {
	if ev == EventSprint {
		return s.OpenSprint(p)
	}
	canRename, canComplete := s.CanEdit(), s.CanComplete()
	if !canRename && !canComplete {
		return NewDialog(DialogSpec{
			Title:  fmt.Sprintf("View Project (%s)", p.ProjectID),
			Mode:   ModeView,
			Fields: projectFields(false, false),
			Model:  projectModel(p),
		}), nil
	}
	return NewDialog(DialogSpec{
		Title:  fmt.Sprintf("Edit Project (%s)", p.ProjectID),
		Mode:   ModeEdit,
		Fields: projectFields(canRename, canComplete),
		Model:  projectModel(p),
		Validate: func(v Values) string {
			if v.String("projectName") == "" {
				return "Project Name is required"
			}
			return ""
		},
		Save: func(ctx context.Context, v Values) (any, error) {
			var in models.ProjectUpdate
			if name := v.String("projectName"); name != p.ProjectName {
				in.ProjectName = &name
			}
			if done := v.Bool("isCompleted"); done != bool(p.IsCompleted) {
				in.IsCompleted = boolOption(done)
			}
			if in.ProjectName == nil && in.IsCompleted == nil {
				return "", nil
			}
			return s.Update(ctx, p.ProjectID, in)
		},
	}), nil
}

// OpenSprint opens the sprint advancement dialog, starting at the current
// sprint.
func (s *ProjectScreen) OpenSprint(p models.Project) (*Dialog, error) {
	if err := s.require(ActionSprint, false); err != nil {
		return nil, err
	}
	current, total := int(p.CurrentSprintCount), int(p.TotalSprintCount)
	return NewDialog(DialogSpec{
		Title: fmt.Sprintf("Update Sprint (%s)", p.ProjectName),
		Mode:  ModeEdit,
		Fields: []Field{
			{Key: "projectId", Label: "ID", Kind: FieldText, ReadOnly: true},
			{Key: "totalSprintCount", Label: "Total Sprints", Kind: FieldNumber, ReadOnly: true},
			{Key: "sprint", Label: "Sprint", Kind: FieldNumber, Step: 1},
		},
		Model: Values{"projectId": p.ProjectID, "totalSprintCount": total, "sprint": current},
		Validate: func(v Values) string {
			target, ok := v.Int("sprint")
			if !ok {
				return "Enter a sprint number"
			}
			return ValidateSprint(current, total, target)
		},
		Save: func(ctx context.Context, v Values) (any, error) {
			target, _ := v.Int("sprint")
			return s.UpdateSprint(ctx, p, target)
		},
	}), nil
}

// OpenCreate opens the create dialog.
func (s *ProjectScreen) OpenCreate() (*Dialog, error) {
	if err := s.require(ActionCreate, false); err != nil {
		return nil, err
	}
	return NewDialog(DialogSpec{
		Title: "Create Project",
		Mode:  ModeCreate,
		Fields: []Field{
			{Key: "projectName", Label: "Project Name", Kind: FieldText},
			{Key: "totalSprintCount", Label: "Total Sprints", Kind: FieldNumber, Min: Bound(1), Step: 1},
			{Key: "createdByAdminId", Label: "Created By", Kind: FieldText},
		},
		Model: Values{"projectName": "", "totalSprintCount": 1, "createdByAdminId": s.userID()},
		Validate: func(v Values) string {
			total, _ := v.Int("totalSprintCount")
			return validateProjectCreate(models.ProjectCreate{ProjectName: v.String("projectName"), TotalSprintCount: total})
		},
		Save: func(ctx context.Context, v Values) (any, error) {
			total, _ := v.Int("totalSprintCount")
			return s.Create(ctx, models.ProjectCreate{
				ProjectName:      v.String("projectName"),
				TotalSprintCount: total,
				CreatedByAdminID: v.String("createdByAdminId"),
			})
		},
	}), nil
}

// ConfirmDelete returns the confirmation for deleting p, or ErrForbidden.
func (s *ProjectScreen) ConfirmDelete(p models.Project) (ConfirmSpec, error) {
	if p.ProjectID == "" {
		return ConfirmSpec{}, validationf("Project ID required for delete")
	}
	if err := s.require(ActionDelete, false); err != nil {
		return ConfirmSpec{}, err
	}
	return DeleteConfirm(s.entity, p.ProjectID), nil
}

// HandleClose applies the shared dialog close handling; it reports whether
// the table should reload.
func (s *ProjectScreen) HandleClose(r Result) bool {
	return closeDialog(&s.screen, s.Table, r)
}
