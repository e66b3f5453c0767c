package cli

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/valter-silva-au/pm-console/internal/core"
	"github.com/valter-silva-au/pm-console/internal/integration"
	"github.com/valter-silva-au/pm-console/internal/observability"
	"github.com/valter-silva-au/pm-console/pkg/models"
)

// memStore is an in-memory core.SessionStore.
type memStore struct{ vals core.SessionValues }

func (m *memStore) Load() (core.SessionValues, error) { return m.vals, nil }
func (m *memStore) Save(v core.SessionValues) error   { m.vals = v; return nil }
func (m *memStore) Clear() error                      { m.vals = core.SessionValues{}; return nil }

// fakeBackend is a small REST backend recording every call.
type fakeBackend struct {
	mu       sync.Mutex
	calls    []string
	bodies   map[string]string
	failures map[string]cannedResponse
}

// cannedResponse replaces the answer of one route.
type cannedResponse struct {
	status int
	body   string
}

// fail makes every later call to key ("METHOD /path") answer status and body.
func (b *fakeBackend) fail(key string, status int, body string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[key] = cannedResponse{status: status, body: body}
}

func (b *fakeBackend) failureFor(r *http.Request) (cannedResponse, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	f, ok := b.failures[r.Method+" "+r.URL.Path]
	return f, ok
}

func (b *fakeBackend) record(r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	b.mu.Lock()
	defer b.mu.Unlock()
	key := r.Method + " " + r.URL.Path
	b.calls = append(b.calls, key+"?"+r.URL.RawQuery)
	b.bodies[key] = string(body)
}

// called reports whether a call starting with prefix was made.
func (b *fakeBackend) called(prefix string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range b.calls {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}

func (b *fakeBackend) body(key string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bodies[key]
}

const (
	personsJSON = `[{"personId":"1","name":"Ada","role":1,"isActive":true},` +
		`{"personId":"2","name":"Bo","role":3,"isActive":false},` +
		`{"personId":"3","name":"Cy","role":2,"isActive":true}]`
	projectJSON = `{"projectId":"p1","projectName":"Apollo","totalSprintCount":5,"currentSprintCount":2,"createdByAdminId":"1"}`
	tasksJSON   = `[{"TaskId":"t1","TaskName":"Docs","ProjectId":"p1","AssignedToPersonId":"u1","SprintNumber":2,"Status":0},` +
		`{"TaskId":"t2","TaskName":"Bug","ProjectId":"p1","AssignedToPersonId":"u2","SprintNumber":2,"Status":1}]`
)

func newFakeBackend(t *testing.T) (*fakeBackend, string) {
	t.Helper()
	b := &fakeBackend{bodies: map[string]string{}, failures: map[string]cannedResponse{}}
	mux := http.NewServeMux()
	jsonBody := func(status int, body string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			b.record(r)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_, _ = io.WriteString(w, body)
		}
	}
	text := func(body string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			b.record(r)
			_, _ = io.WriteString(w, body)
		}
	}

	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		b.mu.Lock()
		b.calls = append(b.calls, "POST /api/auth/login?")
		b.mu.Unlock()
		var in models.LoginRequest
		_ = json.Unmarshal(body, &in)
		w.Header().Set("Content-Type", "application/json")
		if in.Username != "mia" || in.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"message":"Invalid username or password"}`)
			return
		}
		_, _ = io.WriteString(w, `{"token":"tok-mia","userId":"u9","role":"Manager"}`)
	})
	mux.HandleFunc("GET /api/auth/me", jsonBody(200, `{"userId":"u1","username":"uma","role":"Manager"}`))

	mux.HandleFunc("GET /api/Person", jsonBody(200, personsJSON))
	mux.HandleFunc("GET /api/Person/1", jsonBody(200, `{"personId":"1","name":"Ada","role":1,"isActive":true}`))
	mux.HandleFunc("GET /api/Person/{id}", jsonBody(http.StatusNotFound, `{"message":"Person not found"}`))
	mux.HandleFunc("GET /api/Person/team/{id}", jsonBody(200, `{"projectTeamId":"p1","personId":["1","3"]}`))
	mux.HandleFunc("POST /api/Person", jsonBody(200, `{"personId":"9","name":"Dee","role":3,"isActive":true}`))
	mux.HandleFunc("POST /api/Person/bulk", jsonBody(200, `[{"personId":"10","name":"Ed","role":3,"isActive":true},{"personId":"11","name":"Flo","role":2,"isActive":true}]`))
	mux.HandleFunc("PUT /api/Person/{id}", text("Person updated"))
	mux.HandleFunc("DELETE /api/Person/{id}", text("Person deleted"))

	mux.HandleFunc("GET /api/Project/paged", jsonBody(200, `{"data":[`+projectJSON+`],"pageNumber":1,"pageSize":5,"totalRecords":1}`))
	mux.HandleFunc("GET /api/Project", jsonBody(200, `[`+projectJSON+`]`))
	mux.HandleFunc("GET /api/Project/p1", jsonBody(200, projectJSON))
	mux.HandleFunc("GET /api/Project/{id}", jsonBody(http.StatusNotFound, `{"message":"Project not found"}`))
	mux.HandleFunc("POST /api/Project", jsonBody(200, `{"projectId":"p2","projectName":"Gemini","totalSprintCount":3,"currentSprintCount":1}`))
	mux.HandleFunc("PUT /api/Project/p1/sprint", text("Sprint updated"))
	mux.HandleFunc("PUT /api/Project/{id}", text("Project updated"))
	mux.HandleFunc("DELETE /api/Project/{id}", jsonBody(http.StatusConflict, `{"message":"Project has open tasks"}`))

	mux.HandleFunc("GET /api/Task", jsonBody(200, tasksJSON))
	mux.HandleFunc("GET /api/Task/t1", jsonBody(200, `{"TaskId":"t1","TaskName":"Docs","ProjectId":"p1","AssignedToPersonId":"u1","SprintNumber":2,"Status":0}`))
	mux.HandleFunc("GET /api/Task/t2", jsonBody(200, `{"TaskId":"t2","TaskName":"Bug","ProjectId":"p1","AssignedToPersonId":"u2","SprintNumber":2,"Status":1}`))
	mux.HandleFunc("GET /api/Task/{id}", jsonBody(http.StatusNotFound, `{"message":"Task not found"}`))
	mux.HandleFunc("POST /api/Task", jsonBody(200, `{"TaskId":"t3","TaskName":"Tests","ProjectId":"p1","AssignedToPersonId":"u1","SprintNumber":1,"Status":0}`))
	mux.HandleFunc("PUT /api/Task/{id}/status", text("Status updated"))
	mux.HandleFunc("PUT /api/Task/{id}/reassign", text("Task reassigned"))
	mux.HandleFunc("DELETE /api/Task/{id}", text("Task deleted"))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if f, ok := b.failureFor(r); ok {
			b.record(r)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(f.status)
			_, _ = io.WriteString(w, f.body)
			return
		}
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)
	return b, srv.URL + "/api"
}

// testEnv is a wired set of console services over a fake backend.
type testEnv struct {
	backend *fakeBackend
	auth    core.AuthService
	store   *memStore
	audit   observability.AuditLog
	toasts  *toastQueue
	guard   *core.Guard
}

// setupServices points the package services at a fake backend, logged in
// with role ("" for an anonymous session), and restores them afterwards.
func setupServices(t *testing.T, role string) *testEnv {
	t.Helper()
	b, baseURL := newFakeBackend(t)

	var auth core.AuthService
	client, err := integration.NewClient(integration.Config{
		BaseURL: baseURL,
		Tokens:  integration.TokenFunc(func() string { return auth.Token() }),
		Logger:  zerolog.Nop(),
	})
	if err != nil {
		t.Fatal(err)
	}
	store := &memStore{}
	if role != "" {
		store.vals = core.SessionValues{Token: "tok", Role: role, UserID: "u1"}
	}
	auth = core.NewAuthService(integration.NewAuthClient(client), store)

	pm, err := core.NewPermissionMatrix(core.DefaultPermissions())
	if err != nil {
		t.Fatal(err)
	}
	audit, err := observability.NewJSONLAuditLog(filepath.Join(t.TempDir(), "audit.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = audit.Close() })
	events := auditEvents{log: audit}
	toasts := &toastQueue{}
	deps := core.ScreenDeps{
		Auth:        auth,
		Permissions: pm,
		Toaster:     toasts,
		Events:      events,
		Table:       models.TableConfig{PageSize: 5, PageSizeOptions: []int{5, 10}, ServerSide: []string{core.EntityProject}},
	}

	saved := struct {
		auth       core.AuthService
		guard      *core.Guard
		persons    *core.PersonScreen
		projects   *core.ProjectScreen
		tasks      *core.TaskScreen
		auditLog   observability.AuditLog
		summarizer observability.Summarizer
		events     core.EventLogger
		output     string
	}{Auth, Guard, Persons, Projects, Tasks, AuditLog, Summarizer, Events, outputFlag}
	t.Cleanup(func() {
		Auth, Guard, Persons, Projects, Tasks = saved.auth, saved.guard, saved.persons, saved.projects, saved.tasks
		AuditLog, Summarizer, Events, outputFlag = saved.auditLog, saved.summarizer, saved.events, saved.output
	})

	guard := core.NewGuard(auth, core.DefaultRoutes())
	Auth = auth
	Guard = guard
	Persons = core.NewPersonScreen(integration.NewPersonClient(client), deps)
	Projects = core.NewProjectScreen(integration.NewProjectClient(client), deps)
	Tasks = core.NewTaskScreen(integration.NewTaskClient(client), deps)
	AuditLog = audit
	Summarizer = observability.NewSummarizer(audit)
	Events = events
	outputFlag = outputText

	return &testEnv{backend: b, auth: auth, store: store, audit: audit, toasts: toasts, guard: guard}
}

// auditEvents writes screen events to an audit log.
type auditEvents struct{ log observability.AuditLog }

func (a auditEvents) LogEvent(eventType, message string, data map[string]any) error {
	level := observability.LevelInfo
	if eventType == core.EventPermissionDenied {
		level = observability.LevelWarn
	}
	return a.log.Write(observability.Event{Level: level, Type: eventType, Message: message, Data: data})
}

// run executes cmd's RunE with args, capturing stdout and stderr. Flags set
// through flags are reset when the test ends.
func run(t *testing.T, cmd *cobra.Command, flags map[string]string, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	for name, value := range flags {
		f := cmd.Flags().Lookup(name)
		if f == nil {
			t.Fatalf("unknown flag --%s on %s", name, cmd.Name())
		}
		if err := cmd.Flags().Set(name, value); err != nil {
			t.Fatalf("setting --%s: %v", name, err)
		}
		t.Cleanup(func() {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		})
	}
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	t.Cleanup(func() {
		cmd.SetOut(nil)
		cmd.SetErr(nil)
		cmd.SetIn(nil)
	})
	err = cmd.RunE(cmd, args)
	return out.String(), errOut.String(), err
}
