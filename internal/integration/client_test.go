package integration

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/valter-silva-au/pm-console/pkg/models"
)

type seenRequest struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   string
}

// fakeBackend answers each "METHOD /path" with a canned status and body.
type fakeBackend struct {
	mu      sync.Mutex
	routes  map[string]route
	seen    []seenRequest
	srv     *httptest.Server
	baseURL string
}

type route struct {
	status int
	body   string
}

func newFakeBackend(t *testing.T, routes map[string]route) *fakeBackend {
	t.Helper()
	b := &fakeBackend{routes: routes}
	b.srv = httptest.NewServer(http.HandlerFunc(b.handle))
	t.Cleanup(b.srv.Close)
	b.baseURL = b.srv.URL + "/api"
	return b
}

func (b *fakeBackend) handle(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	b.mu.Lock()
	b.seen = append(b.seen, seenRequest{r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Clone(), string(body)})
	rt, ok := b.routes[r.Method+" "+strings.TrimPrefix(r.URL.Path, "/api")]
	b.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.WriteHeader(rt.status)
	_, _ = io.WriteString(w, rt.body)
}

func (b *fakeBackend) last(t *testing.T) seenRequest {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.seen) == 0 {
		t.Fatal("no request reached the backend")
	}
	return b.seen[len(b.seen)-1]
}

func newTestClient(t *testing.T, b *fakeBackend, token string) *Client {
	t.Helper()
	c, err := NewClient(Config{
		BaseURL: b.baseURL,
		Tokens:  TokenFunc(func() string { return token }),
		Logger:  zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestNewClient_RejectsRelativeURL(t *testing.T) {
	if _, err := NewClient(Config{BaseURL: "/api"}); err == nil {
		t.Fatal("expected error for relative base url")
	}
}

func TestClient_HeadersAndList(t *testing.T) {
	b := newFakeBackend(t, map[string]route{
		"GET /Person": {200, `[{"personId":"1","name":"Ada","role":1,"isActive":"true"}]`},
	})
	persons, err := NewPersonClient(newTestClient(t, b, "tok")).List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(persons) != 1 || persons[0].Name != "Ada" || !bool(persons[0].IsActive) {
		t.Errorf("persons = %+v", persons)
	}
	req := b.last(t)
	if req.Path != "/api/Person" {
		t.Errorf("path = %s", req.Path)
	}
	if got := req.Header.Get("Authorization"); got != "Bearer tok" {
		t.Errorf("Authorization = %q", got)
	}
	if req.Header.Get("Accept") != "application/json" || req.Header.Get(RequestIDHeader) == "" {
		t.Errorf("headers = %v", req.Header)
	}
}

func TestClient_NoTokenNoAuthorization(t *testing.T) {
	b := newFakeBackend(t, map[string]route{"GET /Project": {200, `[]`}})
	if _, err := NewProjectClient(newTestClient(t, b, "")).List(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, ok := b.last(t).Header["Authorization"]; ok {
		t.Error("Authorization sent without a session")
	}
}

func TestClient_PagedQuery(t *testing.T) {
	b := newFakeBackend(t, map[string]route{
		"GET /Project/paged": {200, `{"data":[{"projectId":"p1","totalSprintCount":"5"}],"pageNumber":2,"pageSize":10,"totalRecords":11}`},
	})
	page, err := NewProjectClient(newTestClient(t, b, "t")).Paged(context.Background(), models.PageRequest{
		PageNumber: 2, PageSize: 10, Search: "apo", SortBy: "projectName", SortDirection: models.SortDesc,
	})
	if err != nil {
		t.Fatal(err)
	}
	if page.TotalRecords != 11 || len(page.Data) != 1 || page.Data[0].TotalSprintCount != 5 {
		t.Errorf("page = %+v", page)
	}
	q := b.last(t).Query
	for _, want := range []string{"pageNumber=2", "pageSize=10", "search=apo", "sortBy=projectName", "sortDirection=desc"} {
		if !strings.Contains(q, want) {
			t.Errorf("query %q missing %s", q, want)
		}
	}
}

func TestPageQuery_OmitsEmptyParameters(t *testing.T) {
	q := pageQuery(models.PageRequest{PageNumber: 0, PageSize: 5, SortBy: "name"})
	if q.Get("pageNumber") != "1" {
		t.Errorf("pageNumber = %s", q.Get("pageNumber"))
	}
	for _, k := range []string{"search", "sortBy", "sortDirection"} {
		if q.Has(k) {
			t.Errorf("%s should be omitted: %v", k, q)
		}
	}
}

func TestClient_TextResponses(t *testing.T) {
	b := newFakeBackend(t, map[string]route{
		"PUT /Task/t1/status":    {200, "Status updated\n"},
		"PUT /Task/t1/reassign":  {200, "Reassigned"},
		"PUT /Project/p1/sprint": {200, "Sprint updated"},
		"DELETE /Person/7":       {200, "Deleted"},
	})
	c := newTestClient(t, b, "t")
	ctx := context.Background()

	msg, err := NewTaskClient(c).UpdateStatus(ctx, "t1", "u1", models.StatusDone)
	if err != nil || msg != "Status updated" {
		t.Fatalf("UpdateStatus = %q, %v", msg, err)
	}
	req := b.last(t)
	if req.Query != "userId=u1" || req.Body != "2" || req.Header.Get("Content-Type") != "application/json" {
		t.Errorf("status request = %+v", req)
	}

	if _, err := NewTaskClient(c).Reassign(ctx, "t1", "m1", "u9"); err != nil {
		t.Fatal(err)
	}
	if req := b.last(t); req.Query != "managerId=m1&newPersonId=u9" || req.Body != "" {
		t.Errorf("reassign request = %+v", req)
	}

	if _, err := NewProjectClient(c).UpdateSprint(ctx, "p1", 3); err != nil {
		t.Fatal(err)
	}
	if q := b.last(t).Query; q != "currentSprint=3" {
		t.Errorf("sprint query = %s", q)
	}

	if msg, err := NewPersonClient(c).Delete(ctx, "7"); err != nil || msg != "Deleted" {
		t.Errorf("Delete = %q, %v", msg, err)
	}
}

func TestClient_CreateAndBulk(t *testing.T) {
	b := newFakeBackend(t, map[string]route{
		"POST /Task":      {201, `{"taskId":"t5","taskName":"Plan","status":1}`},
		"POST /Task/bulk": {200, `[{"TaskId":"a"},{"TaskId":"b"}]`},
	})
	c := NewTaskClient(newTestClient(t, b, "t"))
	sprint := 1
	created, err := c.Create(context.Background(), models.TaskCreate{TaskName: "Plan", ProjectID: "p1", SprintNumber: &sprint})
	if err != nil {
		t.Fatal(err)
	}
	if created.TaskID != "t5" || created.Status != models.StatusInProgress {
		t.Errorf("created = %+v", created)
	}
	if body := b.last(t).Body; !strings.Contains(body, `"TaskName":"Plan"`) {
		t.Errorf("body = %s", body)
	}

	out, err := c.CreateBulk(context.Background(), []models.TaskCreate{{TaskName: "a"}, {TaskName: "b"}})
	if err != nil || len(out) != 2 {
		t.Fatalf("CreateBulk = %v, %v", out, err)
	}
}

func TestClient_TeamSendsRequesterHeader(t *testing.T) {
	b := newFakeBackend(t, map[string]route{
		"GET /Person/team/tm1": {200, `{"projectTeamId":"tm1","personId":["1","2"]}`},
	})
	team, err := NewPersonClient(newTestClient(t, b, "t")).Team(context.Background(), "tm1", "u3")
	if err != nil {
		t.Fatal(err)
	}
	if len(team.PersonIDs) != 2 {
		t.Errorf("team = %+v", team)
	}
	if b.last(t).Header.Get("requesterId") != "u3" {
		t.Errorf("headers = %v", b.last(t).Header)
	}
}

func TestClient_APIErrors(t *testing.T) {
	b := newFakeBackend(t, map[string]route{
		"GET /Person/42":   {404, ""},
		"PUT /Person/1":    {400, `{"title":"Bad Request","errors":{"name":["required"]}}`},
		"DELETE /Person/1": {409, "Person has tasks"},
	})
	c := NewPersonClient(newTestClient(t, b, "t"))
	ctx := context.Background()

	_, err := c.Get(ctx, "42")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || !apiErr.NotFound() {
		t.Fatalf("Get err = %v", err)
	}

	_, err = c.Update(ctx, "1", models.PersonUpdate{})
	if !errors.As(err, &apiErr) || apiErr.StatusCode() != 400 || apiErr.BodyMessage() != "Bad Request" {
		t.Errorf("Update err = %#v", err)
	}

	_, err = c.Delete(ctx, "1")
	if !errors.As(err, &apiErr) || apiErr.BodyMessage() != "Person has tasks" {
		t.Errorf("Delete err = %v", err)
	}
	if !strings.Contains(err.Error(), "409") {
		t.Errorf("Error() = %s", err)
	}
}

func TestAPIError_BodyMessage(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{`{"message":"Sprint exceeds total"}`, "Sprint exceeds total"},
		{`{"error":"invalid token"}`, "invalid token"},
		{`{"unrelated":1}`, ""},
		{`plain failure`, "plain failure"},
		{`<html>oops</html>`, ""},
		{``, ""},
	}
	for _, tt := range tests {
		e := &APIError{Status: 500, Body: tt.body}
		if got := e.BodyMessage(); got != tt.want {
			t.Errorf("BodyMessage(%q) = %q, want %q", tt.body, got, tt.want)
		}
	}
}

func TestAuthClient(t *testing.T) {
	b := newFakeBackend(t, map[string]route{
		"POST /auth/login": {200, `{"token":"jwt","userId":"u1","role":"Manager","expiresAtUtc":"2030-01-01T00:00:00Z"}`},
		"GET /auth/me":     {200, `{"userId":"u1","username":"mia","role":"Manager"}`},
	})
	a := NewAuthClient(newTestClient(t, b, ""))
	resp, err := a.Login(context.Background(), models.LoginRequest{Username: "mia", Password: "pw"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Token != "jwt" || resp.Role != "Manager" {
		t.Errorf("resp = %+v", resp)
	}
	if body := b.last(t).Body; body != `{"username":"mia","password":"pw"}` {
		t.Errorf("login body = %s", body)
	}
	me, err := a.Me(context.Background())
	if err != nil || me.Username != "mia" {
		t.Errorf("Me = %+v, %v", me, err)
	}
}

func TestClient_NetworkError(t *testing.T) {
	b := newFakeBackend(t, nil)
	c := newTestClient(t, b, "")
	b.srv.Close()
	_, err := NewTaskClient(c).List(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		t.Errorf("network failure reported as APIError: %v", err)
	}
}

func TestPersonClient_CreateThenGetRoundTrip(t *testing.T) {
	var (
		mu     sync.Mutex
		stored = map[string]models.Person{}
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/Person":
			var p models.Person
			if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			p.PersonID = "p" + strconv.Itoa(len(stored)+1)
			stored[p.PersonID] = p
			_ = json.NewEncoder(w).Encode(p)
		case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/api/Person/"):
			p, ok := stored[strings.TrimPrefix(r.URL.Path, "/api/Person/")]
			if !ok {
				http.NotFound(w, r)
				return
			}
			_ = json.NewEncoder(w).Encode(p)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{BaseURL: srv.URL + "/api", Logger: zerolog.Nop()})
	if err != nil {
		t.Fatal(err)
	}
	persons := NewPersonClient(c)
	active := true
	created, err := persons.Create(context.Background(), models.PersonCreate{Name: "A", Role: models.RoleUser, IsActive: &active})
	if err != nil {
		t.Fatal(err)
	}
	got, err := persons.Get(context.Background(), created.PersonID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "A" || got.Role != models.RoleUser || !bool(got.IsActive) {
		t.Errorf("read back %+v", got)
	}
}
