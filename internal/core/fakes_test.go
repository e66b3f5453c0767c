package core

import (
	"context"
	"strconv"
	"sync"

	"github.com/valter-silva-au/pm-console/pkg/models"
)

// --- Session ---

type memSessionStore struct {
	vals    SessionValues
	saveErr error
	cleared bool
}

func (m *memSessionStore) Load() (SessionValues, error) { return m.vals, nil }

func (m *memSessionStore) Save(v SessionValues) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.vals = v
	return nil
}

func (m *memSessionStore) Clear() error {
	m.vals = SessionValues{}
	m.cleared = true
	return nil
}

type fakeAuthAPI struct {
	resp  *models.LoginResponse
	err   error
	me    *models.Me
	calls int
}

func (f *fakeAuthAPI) Login(_ context.Context, _ models.LoginRequest) (*models.LoginResponse, error) {
	f.calls++
	return f.resp, f.err
}

func (f *fakeAuthAPI) Me(context.Context) (*models.Me, error) { return f.me, nil }

// staticAuth is an AuthService with a fixed session.
type staticAuth struct {
	role   models.Role
	userID string
}

func asRole(role models.Role, userID string) *staticAuth {
	return &staticAuth{role: role, userID: userID}
}

func (a *staticAuth) Login(context.Context, string, string) (Authenticated, error) {
	return Authenticated{}, nil
}
func (a *staticAuth) Logout() error { a.role = models.RoleNone; return nil }
func (a *staticAuth) Me(context.Context) (*models.Me, error) {
	return &models.Me{UserID: a.userID}, nil
}
func (a *staticAuth) Current() Session {
	if !a.IsLoggedIn() {
		return Anonymous{}
	}
	return Authenticated{Token: "t", UserID: a.userID, Role: a.role}
}
func (a *staticAuth) IsLoggedIn() bool  { return a.role != models.RoleNone }
func (a *staticAuth) Role() models.Role { return a.role }
func (a *staticAuth) UserID() string    { return a.userID }
func (a *staticAuth) Token() string     { return "t" }
func (a *staticAuth) HasAnyRole(roles ...models.Role) bool {
	for _, r := range roles {
		if a.IsLoggedIn() && r == a.role {
			return true
		}
	}
	return false
}

// --- Toasts and audit ---

type recordingToaster struct {
	successes, errors, infos []string
}

func (r *recordingToaster) Success(m string) { r.successes = append(r.successes, m) }
func (r *recordingToaster) Error(m string)   { r.errors = append(r.errors, m) }
func (r *recordingToaster) Info(m string)    { r.infos = append(r.infos, m) }

type recordedEvent struct {
	Type    string
	Message string
	Data    map[string]any
}

type recordingEvents struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *recordingEvents) LogEvent(t, msg string, data map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{t, msg, data})
	return nil
}

func (r *recordingEvents) types() []string {
	var out []string
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

// --- APIs ---

// apiCalls records every backend method invoked, e.g. "DELETE project p1".
type apiCalls struct {
	mu    sync.Mutex
	calls []string
}

func (c *apiCalls) add(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, s)
}

func (c *apiCalls) list() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

type fakePersonAPI struct {
	apiCalls
	persons []models.Person
	getErr  error
	err     error
}

func (f *fakePersonAPI) List(context.Context) ([]models.Person, error) {
	f.add("LIST person")
	return f.persons, f.err
}

func (f *fakePersonAPI) Paged(_ context.Context, req models.PageRequest) (*models.PagedResponse[models.Person], error) {
	f.add("PAGED person")
	return &models.PagedResponse[models.Person]{Data: f.persons, PageNumber: req.PageNumber, PageSize: req.PageSize, TotalRecords: len(f.persons)}, f.err
}

func (f *fakePersonAPI) Get(_ context.Context, id string) (*models.Person, error) {
	f.add("GET person " + id)
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, p := range f.persons {
		if p.PersonID == id {
			return &p, nil
		}
	}
	return nil, &fakeHTTPError{status: 404}
}

func (f *fakePersonAPI) Create(_ context.Context, in models.PersonCreate) (*models.Person, error) {
	f.add("POST person " + in.Name)
	if f.err != nil {
		return nil, f.err
	}
	return &models.Person{PersonID: "new", Name: in.Name, Role: in.Role}, nil
}

func (f *fakePersonAPI) CreateBulk(_ context.Context, in []models.PersonCreate) ([]models.Person, error) {
	f.add("BULK person")
	out := make([]models.Person, len(in))
	for i, p := range in {
		out[i] = models.Person{Name: p.Name, Role: p.Role}
	}
	return out, f.err
}

func (f *fakePersonAPI) Update(_ context.Context, id string, _ models.PersonUpdate) (string, error) {
	f.add("PUT person " + id)
	return "updated", f.err
}

func (f *fakePersonAPI) Delete(_ context.Context, id string) (string, error) {
	f.add("DELETE person " + id)
	return "deleted", f.err
}

func (f *fakePersonAPI) Team(_ context.Context, teamID, requesterID string) (*models.PersonTeam, error) {
	f.add("TEAM " + teamID + " " + requesterID)
	return &models.PersonTeam{ProjectTeamID: teamID}, f.err
}

type fakeProjectAPI struct {
	apiCalls
	projects []models.Project
	err      error
	lastReq  models.PageRequest
}

func (f *fakeProjectAPI) List(context.Context) ([]models.Project, error) {
	f.add("LIST project")
	return f.projects, f.err
}

func (f *fakeProjectAPI) Paged(_ context.Context, req models.PageRequest) (*models.PagedResponse[models.Project], error) {
	f.add("PAGED project")
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	rows := slicePage(f.projects, req.PageNumber-1, req.PageSize)
	return &models.PagedResponse[models.Project]{Data: rows, PageNumber: req.PageNumber, PageSize: req.PageSize, TotalRecords: len(f.projects)}, nil
}

func (f *fakeProjectAPI) Get(_ context.Context, id string) (*models.Project, error) {
	f.add("GET project " + id)
	for _, p := range f.projects {
		if p.ProjectID == id {
			return &p, nil
		}
	}
	return nil, &fakeHTTPError{status: 404}
}

func (f *fakeProjectAPI) Create(_ context.Context, in models.ProjectCreate) (*models.Project, error) {
	f.add("POST project " + in.ProjectName + " by " + in.CreatedByAdminID)
	return &models.Project{ProjectID: "new", ProjectName: in.ProjectName}, f.err
}

func (f *fakeProjectAPI) CreateBulk(_ context.Context, in []models.ProjectCreate) ([]models.Project, error) {
	f.add("BULK project")
	return make([]models.Project, len(in)), f.err
}

func (f *fakeProjectAPI) Update(_ context.Context, id string, _ models.ProjectUpdate) (string, error) {
	f.add("PUT project " + id)
	return "updated", f.err
}

func (f *fakeProjectAPI) UpdateSprint(_ context.Context, id string, n int) (string, error) {
	f.add("SPRINT project " + id)
	return "ok", f.err
}

func (f *fakeProjectAPI) Delete(_ context.Context, id string) (string, error) {
	f.add("DELETE project " + id)
	return "deleted", f.err
}

type fakeTaskAPI struct {
	apiCalls
	tasks []models.Task
	err   error
}

func (f *fakeTaskAPI) List(context.Context) ([]models.Task, error) {
	f.add("LIST task")
	return f.tasks, f.err
}

func (f *fakeTaskAPI) Paged(_ context.Context, req models.PageRequest) (*models.PagedResponse[models.Task], error) {
	f.add("PAGED task")
	return &models.PagedResponse[models.Task]{Data: f.tasks, TotalRecords: len(f.tasks)}, f.err
}

func (f *fakeTaskAPI) Get(_ context.Context, id string) (*models.Task, error) {
	f.add("GET task " + id)
	for _, t := range f.tasks {
		if t.TaskID == id {
			return &t, nil
		}
	}
	return nil, &fakeHTTPError{status: 404}
}

func (f *fakeTaskAPI) Create(_ context.Context, in models.TaskCreate) (*models.Task, error) {
	f.add("POST task " + in.TaskName)
	return &models.Task{TaskID: "new", TaskName: in.TaskName}, f.err
}

func (f *fakeTaskAPI) CreateBulk(_ context.Context, in []models.TaskCreate) ([]models.Task, error) {
	f.add("BULK task")
	return make([]models.Task, len(in)), f.err
}

func (f *fakeTaskAPI) Update(_ context.Context, id string, _ models.TaskUpdate) (string, error) {
	f.add("PUT task " + id)
	return "updated", f.err
}

func (f *fakeTaskAPI) UpdateStatus(_ context.Context, id, userID string, st models.TaskStatus) (string, error) {
	f.add("STATUS task " + id + " by " + userID + " to " + st.Label())
	return "ok", f.err
}

func (f *fakeTaskAPI) Reassign(_ context.Context, id, managerID, newPersonID string) (string, error) {
	f.add("REASSIGN task " + id + " by " + managerID + " to " + newPersonID)
	return "ok", f.err
}

func (f *fakeTaskAPI) Delete(_ context.Context, id string) (string, error) {
	f.add("DELETE task " + id)
	return "deleted", f.err
}

// memPersonAPI stores created persons so Get reads back what Create sent.
type memPersonAPI struct {
	fakePersonAPI
	nextID int
}

func (m *memPersonAPI) Create(_ context.Context, in models.PersonCreate) (*models.Person, error) {
	m.add("POST person " + in.Name)
	m.nextID++
	p := models.Person{
		PersonID: strconv.Itoa(m.nextID),
		Name:     in.Name,
		Role:     in.Role,
		IsActive: models.FlexBool(in.IsActive == nil || *in.IsActive),
	}
	m.persons = append(m.persons, p)
	return &p, nil
}

// fakeHTTPError satisfies HTTPError.
type fakeHTTPError struct {
	status  int
	message string
	body    string
}

func (e *fakeHTTPError) Error() string       { return "http error" }
func (e *fakeHTTPError) StatusCode() int     { return e.status }
func (e *fakeHTTPError) BodyMessage() string { return e.message }
func (e *fakeHTTPError) RawBody() string     { return e.body }

func testDeps(auth AuthService) (ScreenDeps, *recordingToaster, *recordingEvents) {
	pm, err := NewPermissionMatrix(DefaultPermissions())
	if err != nil {
		panic(err)
	}
	toasts := &recordingToaster{}
	events := &recordingEvents{}
	return ScreenDeps{
		Auth:        auth,
		Permissions: pm,
		Toaster:     toasts,
		Events:      events,
		Table:       models.TableConfig{PageSize: 5, PageSizeOptions: []int{5, 10, 20}},
	}, toasts, events
}
