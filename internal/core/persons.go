package core

import (
	"context"
	"fmt"

	"github.com/valter-silva-au/pm-console/pkg/models"
)

// RoleName renders a role for display, "Role N" for unknown values.
func RoleName(r models.Role) string {
	if r == models.RoleNone {
		return "Role 0"
	}
	return r.String()
}

// ActiveLabel renders a person's active flag.
func ActiveLabel(active bool) string {
	if active {
		return "Active"
	}
	return "Inactive"
}

func personColumns() []Column[models.Person] {
	return []Column[models.Person]{
		{Header: "ID", Field: "personId", Clickable: true, Sortable: true},
		{Header: "Name", Field: "name", Clickable: true, Sortable: true},
		{Header: "Role", Field: "role", Clickable: true, Sortable: true,
			Value: func(p models.Person) any { return RoleName(p.Role) }},
		{Header: "Status", Field: "isActive", Clickable: true, Sortable: true,
			Value: func(p models.Person) any { return ActiveLabel(bool(p.IsActive)) }},
	}
}

// PersonScreen is the controller of the persons section.
type PersonScreen struct {
	screen
	api   PersonAPI
	Table *Table[models.Person]
}

// NewPersonScreen creates the persons controller and its table.
func NewPersonScreen(api PersonAPI, deps ScreenDeps) *PersonScreen {
	s := &PersonScreen{screen: newScreen(EntityPerson, deps), api: api}
	s.Table = newTable(&s.screen, TableOptions[models.Person]{
		Title:       "Persons",
		Columns:     personColumns(),
		ShowActions: true,
		ShowAdd:     s.CanCreate(),
		AddLabel:    "Add Person",
	}, api.List, api.Paged)
	return s
}

func (s *PersonScreen) CanView() bool   { return s.can(ActionView, false) }
func (s *PersonScreen) CanCreate() bool { return s.can(ActionCreate, false) }
func (s *PersonScreen) CanEdit() bool   { return s.can(ActionEdit, false) }
func (s *PersonScreen) CanDelete() bool { return s.can(ActionDelete, false) }

// Refresh re-applies role-dependent table affordances.
func (s *PersonScreen) Refresh() { s.Table.SetShowAdd(s.CanCreate()) }

// Load fetches the current page.
func (s *PersonScreen) Load(ctx context.Context, reload bool) error {
	if err := s.require(ActionView, false); err != nil {
		return err
	}
	return s.Table.Load(ctx, reload)
}

// Lookup fetches one person by ID and shows it as the only row.
func (s *PersonScreen) Lookup(ctx context.Context, id string) (*models.Person, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		s.Table.Fail(LookupMessage(s.entity, id, err))
		return nil, err
	}
	s.Table.Show([]models.Person{*p})
	return p, nil
}

// Get fetches one person by ID.
func (s *PersonScreen) Get(ctx context.Context, id string) (*models.Person, error) {
	if id == "" {
		return nil, validationf("Please enter a person ID")
	}
	if err := s.require(ActionView, false); err != nil {
		return nil, err
	}
	p, err := s.api.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getting person %s: %w", id, err)
	}
	return p, nil
}

// Create posts a new person.
func (s *PersonScreen) Create(ctx context.Context, in models.PersonCreate) (*models.Person, error) {
	if err := s.require(ActionCreate, false); err != nil {
		return nil, err
	}
	if in.Name == "" {
		return nil, validationf("Name is required")
	}
	p, err := s.api.Create(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("creating person: %w", err)
	}
	id := ""
	if p != nil {
		id = p.PersonID
	}
	s.audit(EventPersonCreated, "created person "+in.Name, map[string]any{"person_id": id, "name": in.Name})
	return p, nil
}

// CreateBulk posts several persons in one request.
func (s *PersonScreen) CreateBulk(ctx context.Context, in []models.PersonCreate) ([]models.Person, error) {
	if err := s.require(ActionCreate, false); err != nil {
		return nil, err
	}
	out, err := s.api.CreateBulk(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("creating persons: %w", err)
	}
	s.audit(EventPersonCreated, fmt.Sprintf("created %d persons", len(out)), map[string]any{"count": len(out)})
	return out, nil
}

// Update replaces a person's editable fields.
func (s *PersonScreen) Update(ctx context.Context, id string, in models.PersonUpdate) (string, error) {
	id, err := requireID(s.entity, id, "update")
	if err != nil {
		return "", err
	}
	if err := s.require(ActionEdit, false); err != nil {
		return "", err
	}
	msg, err := s.api.Update(ctx, id, in)
	if err != nil {
		return "", fmt.Errorf("updating person %s: %w", id, err)
	}
	s.audit(EventPersonUpdated, "updated person "+id, map[string]any{"person_id": id})
	return msg, nil
}

// Delete removes a person.
func (s *PersonScreen) Delete(ctx context.Context, id string) (string, error) {
	id, err := requireID(s.entity, id, "delete")
	if err != nil {
		return "", err
	}
	if err := s.require(ActionDelete, false); err != nil {
		return "", err
	}
	msg, err := s.api.Delete(ctx, id)
	if err != nil {
		return "", fmt.Errorf("deleting person %s: %w", id, err)
	}
	s.audit(EventPersonDeleted, "deleted person "+id, map[string]any{"person_id": id})
	return msg, nil
}

// Team lists the members of a project team as seen by the session user.
func (s *PersonScreen) Team(ctx context.Context, teamID string) (*models.PersonTeam, error) {
	if teamID == "" {
		return nil, validationf("Please enter a team ID")
	}
	if err := s.require(ActionView, false); err != nil {
		return nil, err
	}
	team, err := s.api.Team(ctx, teamID, s.userID())
	if err != nil {
		return nil, fmt.Errorf("getting team %s: %w", teamID, err)
	}
	return team, nil
}

func personModel(p models.Person) Values {
	return Values{
		"personId": p.PersonID,
		"name":     p.Name,
		"role":     p.Role,
		"isActive": bool(p.IsActive),
	}
}

func personFields(readOnly bool, withID bool) []Field {
	var fields []Field
	if withID {
		fields = append(fields, Field{Key: "personId", Label: "ID", Kind: FieldText, ReadOnly: true})
	}
	return append(fields,
		Field{Key: "name", Label: "Name", Kind: FieldText, ReadOnly: readOnly},
		Field{Key: "role", Label: "Role", Kind: FieldSelect, Options: roleOptions, ReadOnly: readOnly},
		Field{Key: "isActive", Label: "Active", Kind: FieldCheckbox, ReadOnly: readOnly},
	)
}

func personPayload(v Values) (name string, role models.Role, active bool) {
	r, _ := v.Int("role")
	return v.String("name"), models.Role(r), v.Bool("isActive")
}

func validatePerson(v Values) string {
	if v.String("name") == "" {
		return "Name is required"
	}
	if r, ok := v.Int("role"); !ok || !models.Role(r).IsValid() {
		return "Select a role"
	}
	return ""
}

// OpenRow opens the dialog for a clicked row: edit when the role may edit
// persons, view otherwise.
func (s *PersonScreen) OpenRow(p models.Person) *Dialog {
	if !s.CanEdit() {
		return NewDialog(DialogSpec{
			Title:  fmt.Sprintf("View Person (%s)", p.PersonID),
			Mode:   ModeView,
			Fields: personFields(true, true),
			Model:  personModel(p),
		})
	}
	return NewDialog(DialogSpec{
		Title:    fmt.Sprintf("Edit Person (%s)", p.PersonID),
		Mode:     ModeEdit,
		Fields:   personFields(false, true),
		Model:    personModel(p),
		Validate: validatePerson,
		Save: func(ctx context.Context, v Values) (any, error) {
			name, role, active := personPayload(v)
			return s.Update(ctx, v.String("personId"), models.PersonUpdate{
				Name: name, Role: role, IsActive: boolOption(active),
			})
		},
		SkipUnchanged: true,
	})
}

// OpenCreate opens the create dialog.
func (s *PersonScreen) OpenCreate() (*Dialog, error) {
	if err := s.require(ActionCreate, false); err != nil {
		return nil, err
	}
	return NewDialog(DialogSpec{
		Title:    "Create Person",
		Mode:     ModeCreate,
		Fields:   personFields(false, false),
		Model:    Values{"name": "", "role": models.RoleUser, "isActive": true},
		Validate: validatePerson,
		Save: func(ctx context.Context, v Values) (any, error) {
			name, role, active := personPayload(v)
			return s.Create(ctx, models.PersonCreate{Name: name, Role: role, IsActive: boolOption(active)})
		},
	}), nil
}

// ConfirmDelete returns the confirmation for deleting p, or ErrForbidden.
func (s *PersonScreen) ConfirmDelete(p models.Person) (ConfirmSpec, error) {
	if p.PersonID == "" {
		return ConfirmSpec{}, validationf("Person ID required for delete")
	}
	if err := s.require(ActionDelete, false); err != nil {
		return ConfirmSpec{}, err
	}
	return DeleteConfirm(s.entity, p.PersonID), nil
}

// HandleClose applies the shared dialog close handling; it reports whether
// the table should reload.
func (s *PersonScreen) HandleClose(r Result) bool {
	return closeDialog(&s.screen, s.Table, r)
}
