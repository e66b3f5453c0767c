package integration

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/valter-silva-au/pm-console/pkg/models"
)

// entityClient implements the CRUD and paged-list endpoints shared by every
// resource: /{Entity}, /{Entity}/paged, /{Entity}/{id} and /{Entity}/bulk.
type entityClient[T, C, U any] struct {
	c        *Client
	resource string
}

func (e entityClient[T, C, U]) path(parts ...string) string {
	p := e.resource
	for _, part := range parts {
		p += "/" + url.PathEscape(part)
	}
	return p
}

// List returns every record.
func (e entityClient[T, C, U]) List(ctx context.Context) ([]T, error) {
	var out []T
	err := e.c.doJSON(ctx, request{method: http.MethodGet, path: e.path()}, &out)
	return out, err
}

// Paged returns one page of records.
func (e entityClient[T, C, U]) Paged(ctx context.Context, req models.PageRequest) (*models.PagedResponse[T], error) {
	var out models.PagedResponse[T]
	err := e.c.doJSON(ctx, request{method: http.MethodGet, path: e.resource + "/paged", query: pageQuery(req)}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// pageQuery encodes req. Empty search and sort parameters are omitted.
func pageQuery(req models.PageRequest) url.Values {
	q := url.Values{}
	q.Set("pageNumber", strconv.Itoa(max(req.PageNumber, 1)))
	q.Set("pageSize", strconv.Itoa(req.PageSize))
	if req.Search != "" {
		q.Set("search", req.Search)
	}
	if req.SortBy != "" && req.SortDirection != models.SortNone {
		q.Set("sortBy", req.SortBy)
		q.Set("sortDirection", string(req.SortDirection))
	}
	return q
}

// Get returns the record with the given ID.
func (e entityClient[T, C, U]) Get(ctx context.Context, id string) (*T, error) {
	var out T
	if err := e.c.doJSON(ctx, request{method: http.MethodGet, path: e.path(id)}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Create posts one record and returns the created entity.
func (e entityClient[T, C, U]) Create(ctx context.Context, in C) (*T, error) {
	var out T
	if err := e.c.doJSON(ctx, request{method: http.MethodPost, path: e.path(), body: in, hasBody: true}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateBulk posts several records in one request.
func (e entityClient[T, C, U]) CreateBulk(ctx context.Context, in []C) ([]T, error) {
	var out []T
	err := e.c.doJSON(ctx, request{method: http.MethodPost, path: e.resource + "/bulk", body: in, hasBody: true}, &out)
	return out, err
}

// Update replaces a record; the backend answers with plain text.
func (e entityClient[T, C, U]) Update(ctx context.Context, id string, in U) (string, error) {
	return e.c.doText(ctx, request{method: http.MethodPut, path: e.path(id), body: in, hasBody: true})
}

// Delete removes a record; the backend answers with plain text.
func (e entityClient[T, C, U]) Delete(ctx context.Context, id string) (string, error) {
	return e.c.doText(ctx, request{method: http.MethodDelete, path: e.path(id)})
}

// PersonClient talks to /Person.
type PersonClient struct {
	entityClient[models.Person, models.PersonCreate, models.PersonUpdate]
}

// NewPersonClient creates a PersonClient over c.
func NewPersonClient(c *Client) *PersonClient {
	return &PersonClient{entityClient[models.Person, models.PersonCreate, models.PersonUpdate]{c: c, resource: "Person"}}
}

// Team lists the members of a project team. requesterID is sent in the
// requesterId header.
func (p *PersonClient) Team(ctx context.Context, teamID, requesterID string) (*models.PersonTeam, error) {
	h := http.Header{}
	h.Set("requesterId", requesterID)
	var out models.PersonTeam
	if err := p.c.doJSON(ctx, request{method: http.MethodGet, path: p.path("team", teamID), header: h}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ProjectClient talks to /Project.
type ProjectClient struct {
	entityClient[models.Project, models.ProjectCreate, models.ProjectUpdate]
}

// NewProjectClient creates a ProjectClient over c.
func NewProjectClient(c *Client) *ProjectClient {
	return &ProjectClient{entityClient[models.Project, models.ProjectCreate, models.ProjectUpdate]{c: c, resource: "Project"}}
}

// UpdateSprint moves a project to sprint n.
func (p *ProjectClient) UpdateSprint(ctx context.Context, id string, n int) (string, error) {
	q := url.Values{"currentSprint": {strconv.Itoa(n)}}
	return p.c.doText(ctx, request{method: http.MethodPut, path: p.path(id, "sprint"), query: q})
}

// TaskClient talks to /Task.
type TaskClient struct {
	entityClient[models.Task, models.TaskCreate, models.TaskUpdate]
}

// NewTaskClient creates a TaskClient over c.
func NewTaskClient(c *Client) *TaskClient {
	return &TaskClient{entityClient[models.Task, models.TaskCreate, models.TaskUpdate]{c: c, resource: "Task"}}
}

// UpdateStatus moves a task to status on behalf of userID. The body is the
// bare status integer.
func (t *TaskClient) UpdateStatus(ctx context.Context, id, userID string, status models.TaskStatus) (string, error) {
	q := url.Values{"userId": {userID}}
	return t.c.doText(ctx, request{method: http.MethodPut, path: t.path(id, "status"), query: q, body: int(status), hasBody: true})
}

// Reassign hands a task to newPersonID; managerID is the acting manager.
func (t *TaskClient) Reassign(ctx context.Context, id, managerID, newPersonID string) (string, error) {
	q := url.Values{"managerId": {managerID}, "newPersonId": {newPersonID}}
	return t.c.doText(ctx, request{method: http.MethodPut, path: t.path(id, "reassign"), query: q})
}

// AuthClient talks to /auth.
type AuthClient struct {
	c *Client
}

// NewAuthClient creates an AuthClient over c.
func NewAuthClient(c *Client) *AuthClient { return &AuthClient{c: c} }

// Login exchanges credentials for a token.
func (a *AuthClient) Login(ctx context.Context, in models.LoginRequest) (*models.LoginResponse, error) {
	var out models.LoginResponse
	if err := a.c.doJSON(ctx, request{method: http.MethodPost, path: "auth/login", body: in, hasBody: true}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Me returns the identity behind the current token.
func (a *AuthClient) Me(ctx context.Context) (*models.Me, error) {
	var out models.Me
	if err := a.c.doJSON(ctx, request{method: http.MethodGet, path: "auth/me"}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
