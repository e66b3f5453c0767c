package mcp

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"
	"github.com/valter-silva-au/pm-console/internal/core"
	"github.com/valter-silva-au/pm-console/internal/integration"
	"github.com/valter-silva-au/pm-console/pkg/models"
)

// memStore is an in-memory core.SessionStore.
type memStore struct{ vals core.SessionValues }

func (m *memStore) Load() (core.SessionValues, error) { return m.vals, nil }
func (m *memStore) Save(v core.SessionValues) error   { m.vals = v; return nil }
func (m *memStore) Clear() error                      { m.vals = core.SessionValues{}; return nil }

// backend is a minimal REST backend recording mutating calls.
type backend struct {
	mu    sync.Mutex
	calls []string
}

func (b *backend) record(r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, r.Method+" "+r.URL.Path+"?"+r.URL.RawQuery)
}

func (b *backend) mutations() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for _, c := range b.calls {
		if !strings.HasPrefix(c, "GET ") {
			out = append(out, c)
		}
	}
	return out
}

func newBackend(t *testing.T) (*backend, string) {
	t.Helper()
	b := &backend{}
	mux := http.NewServeMux()
	writeJSON := func(body string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			b.record(r)
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, body)
		}
	}
	mux.HandleFunc("GET /api/Person", writeJSON(`[{"personId":"1","name":"Ada","role":1,"isActive":true},{"personId":"2","name":"Bo","role":3,"isActive":false}]`))
	mux.HandleFunc("GET /api/Person/1", writeJSON(`{"personId":"1","name":"Ada","role":1,"isActive":true}`))
	mux.HandleFunc("GET /api/Project/paged", writeJSON(`{"data":[{"projectId":"p1","projectName":"Apollo","totalSprintCount":5,"currentSprintCount":2}],"pageNumber":1,"pageSize":5,"totalRecords":1}`))
	mux.HandleFunc("GET /api/Project/p1", writeJSON(`{"projectId":"p1","projectName":"Apollo","totalSprintCount":5,"currentSprintCount":2}`))
	mux.HandleFunc("PUT /api/Project/p1/sprint", func(w http.ResponseWriter, r *http.Request) {
		b.record(r)
		_, _ = io.WriteString(w, "Sprint updated")
	})
	mux.HandleFunc("GET /api/Task", writeJSON(`[{"TaskId":"t1","TaskName":"Docs","ProjectId":"p1","AssignedToPersonId":"u1","SprintNumber":2,"Status":0}]`))
	mux.HandleFunc("GET /api/Task/t1", writeJSON(`{"TaskId":"t1","TaskName":"Docs","ProjectId":"p1","AssignedToPersonId":"u1","SprintNumber":2,"Status":0}`))
	mux.HandleFunc("GET /api/Task/t2", writeJSON(`{"TaskId":"t2","TaskName":"Bug","ProjectId":"p1","AssignedToPersonId":"u2","SprintNumber":2,"Status":0}`))
	mux.HandleFunc("PUT /api/Task/{id}/status", func(w http.ResponseWriter, r *http.Request) {
		b.record(r)
		_, _ = io.WriteString(w, "Status updated")
	})
	mux.HandleFunc("GET /api/auth/me", writeJSON(`{"userId":"u1","username":"uma","role":"User"}`))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return b, srv.URL + "/api"
}

func newTestServer(t *testing.T, role string) (*Server, *backend) {
	t.Helper()
	b, baseURL := newBackend(t)

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
	deps := core.ScreenDeps{
		Auth:        auth,
		Permissions: pm,
		Table:       models.TableConfig{PageSize: 5, PageSizeOptions: []int{5, 10}, ServerSide: []string{core.EntityProject}},
	}
	srv := NewServer(Services{
		Auth:     auth,
		Persons:  core.NewPersonScreen(integration.NewPersonClient(client), deps),
		Projects: core.NewProjectScreen(integration.NewProjectClient(client), deps),
		Tasks:    core.NewTaskScreen(integration.NewTaskClient(client), deps),
	}, "test")
	return srv, b
}

// callTool connects a client to the server and calls a tool.
func callTool(t *testing.T, srv *Server, toolName string, args map[string]any) *gomcp.CallToolResult {
	t.Helper()

	ctx := context.Background()
	client := gomcp.NewClient(&gomcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)

	t1, t2 := gomcp.NewInMemoryTransports()

	go func() {
		_ = srv.MCPServer().Run(ctx, t1)
	}()

	session, err := client.Connect(ctx, t2, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	defer session.Close()

	result, err := session.CallTool(ctx, &gomcp.CallToolParams{
		Name:      toolName,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("call tool %s: %v", toolName, err)
	}
	return result
}

// decode reads the structured output of a successful call into out.
func decode(t *testing.T, result *gomcp.CallToolResult, out any) {
	t.Helper()
	if result.IsError {
		t.Fatalf("expected success, got error: %s", extractText(result))
	}
	data := []byte(extractText(result))
	if result.StructuredContent != nil {
		data, _ = json.Marshal(result.StructuredContent)
	}
	if err := json.Unmarshal(data, out); err != nil {
		t.Fatalf("decoding output: %v (%s)", err, data)
	}
}

func TestListPersons(t *testing.T) {
	srv, _ := newTestServer(t, "Manager")
	var out listPersonsOutput
	decode(t, callTool(t, srv, "list_persons", map[string]any{"search": "bo"}), &out)
	if out.Total != 1 || len(out.Persons) != 1 || out.Persons[0].Name != "Bo" {
		t.Fatalf("out = %+v", out)
	}
	if out.Persons[0].Role != "User" || out.Persons[0].IsActive {
		t.Errorf("person = %+v", out.Persons[0])
	}
}

func TestGetPerson(t *testing.T) {
	srv, _ := newTestServer(t, "User")
	var out personOutput
	decode(t, callTool(t, srv, "get_person", map[string]any{"person_id": "1"}), &out)
	if out.Name != "Ada" || out.Role != "Admin" {
		t.Errorf("out = %+v", out)
	}

	res := callTool(t, srv, "get_person", map[string]any{"person_id": "404"})
	if !res.IsError || extractText(res) != "not found" {
		t.Errorf("missing person: %v %q", res.IsError, extractText(res))
	}
}

func TestListProjectsUsesServerPaging(t *testing.T) {
	srv, b := newTestServer(t, "User")
	var out listProjectsOutput
	decode(t, callTool(t, srv, "list_projects", map[string]any{}), &out)
	if out.Total != 1 || out.Projects[0].CurrentSprint != 2 || out.Projects[0].TotalSprints != 5 {
		t.Errorf("out = %+v", out)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	found := false
	for _, c := range b.calls {
		if strings.HasPrefix(c, "GET /api/Project/paged?") {
			found = true
		}
	}
	if !found {
		t.Errorf("calls = %v", b.calls)
	}
}

func TestAdvanceSprint(t *testing.T) {
	srv, b := newTestServer(t, "Manager")

	res := callTool(t, srv, "advance_sprint", map[string]any{"project_id": "p1", "sprint": 6})
	if !res.IsError || extractText(res) != "Max sprint is 5" {
		t.Errorf("over total: %v %q", res.IsError, extractText(res))
	}
	res = callTool(t, srv, "advance_sprint", map[string]any{"project_id": "p1", "sprint": 1})
	if !res.IsError || extractText(res) != "Sprint cannot go backwards" {
		t.Errorf("backwards: %v %q", res.IsError, extractText(res))
	}
	if len(b.mutations()) != 0 {
		t.Fatalf("invalid moves reached the backend: %v", b.mutations())
	}

	var out messageOutput
	decode(t, callTool(t, srv, "advance_sprint", map[string]any{"project_id": "p1", "sprint": 3}), &out)
	if out.Message != "Sprint updated" {
		t.Errorf("message = %q", out.Message)
	}
	if m := b.mutations(); len(m) != 1 || m[0] != "PUT /api/Project/p1/sprint?currentSprint=3" {
		t.Errorf("mutations = %v", m)
	}
}

func TestAdvanceSprintForbiddenForUser(t *testing.T) {
	srv, b := newTestServer(t, "User")
	res := callTool(t, srv, "advance_sprint", map[string]any{"project_id": "p1", "sprint": 3})
	if !res.IsError || !strings.HasPrefix(extractText(res), "Not allowed") {
		t.Errorf("result: %v %q", res.IsError, extractText(res))
	}
	if len(b.mutations()) != 0 {
		t.Errorf("mutations = %v", b.mutations())
	}
}

func TestUpdateTaskStatus(t *testing.T) {
	srv, b := newTestServer(t, "User")

	var out messageOutput
	decode(t, callTool(t, srv, "update_task_status", map[string]any{"task_id": "t1", "status": "in_progress"}), &out)
	if out.Message != "Status updated" {
		t.Errorf("message = %q", out.Message)
	}

	res := callTool(t, srv, "update_task_status", map[string]any{"task_id": "t2", "status": "done"})
	if !res.IsError {
		t.Error("user moved a task assigned to someone else")
	}

	res = callTool(t, srv, "update_task_status", map[string]any{"task_id": "t1", "status": "blocked"})
	if !res.IsError || !strings.Contains(extractText(res), "invalid task status") {
		t.Errorf("invalid status: %q", extractText(res))
	}

	if m := b.mutations(); len(m) != 1 || m[0] != "PUT /api/Task/t1/status?userId=u1" {
		t.Errorf("mutations = %v", m)
	}
}

func TestListAndGetTask(t *testing.T) {
	srv, _ := newTestServer(t, "User")
	var list listTasksOutput
	decode(t, callTool(t, srv, "list_tasks", map[string]any{}), &list)
	if list.Total != 1 || list.Tasks[0].Status != "Todo" {
		t.Errorf("list = %+v", list)
	}
	var task taskOutput
	decode(t, callTool(t, srv, "get_task", map[string]any{"task_id": "t1"}), &task)
	if task.AssignedTo != "u1" || task.Sprint != 2 {
		t.Errorf("task = %+v", task)
	}
}

func TestWhoami(t *testing.T) {
	srv, _ := newTestServer(t, "User")
	var out whoamiOutput
	decode(t, callTool(t, srv, "whoami", map[string]any{}), &out)
	if out.UserID != "u1" || out.Role != "User" || out.Username != "uma" {
		t.Errorf("out = %+v", out)
	}

	anon, _ := newTestServer(t, "")
	if res := callTool(t, anon, "whoami", map[string]any{}); !res.IsError {
		t.Error("anonymous whoami succeeded")
	}
	if res := callTool(t, anon, "list_tasks", map[string]any{}); !res.IsError {
		t.Error("anonymous list succeeded")
	}
}

// extractText extracts the text from the first TextContent in a CallToolResult.
func extractText(result *gomcp.CallToolResult) string {
	for _, c := range result.Content {
		if tc, ok := c.(*gomcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}
