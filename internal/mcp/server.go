// Package mcp provides an MCP (Model Context Protocol) server that exposes
// the console's person, project and task operations as MCP tools. Every tool
// runs under the stored session and goes through the same role gates as the
// CLI and the TUI.
package mcp

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/valter-silva-au/pm-console/internal/core"
	"github.com/valter-silva-au/pm-console/pkg/models"
)

// Services are the controllers the tools delegate to.
type Services struct {
	Auth     core.AuthService
	Persons  *core.PersonScreen
	Projects *core.ProjectScreen
	Tasks    *core.TaskScreen
}

// Server wraps the console services and exposes them as MCP tools.
type Server struct {
	server *gomcp.Server
	svc    Services

	// mu serializes tool calls; the screen tables are not safe for
	// concurrent use.
	mu sync.Mutex
}

// NewServer creates a new MCP server over svc.
func NewServer(svc Services, version string) *Server {
	if version == "" {
		version = "dev"
	}

	s := &Server{svc: svc}
	s.server = gomcp.NewServer(
		&gomcp.Implementation{Name: "pmc", Version: version},
		nil,
	)

	s.registerTools()

	return s
}

// Run serves MCP over stdio, blocking until the client disconnects or the
// context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &gomcp.StdioTransport{})
}

// MCPServer returns the underlying mcp.Server for testing purposes.
func (s *Server) MCPServer() *gomcp.Server {
	return s.server
}

// --- Tool input/output types ---

type listInput struct {
	Search string `json:"search,omitempty" jsonschema:"free text filter"`
	Page   int    `json:"page,omitempty" jsonschema:"1-based page number, defaults to 1"`
	Size   int    `json:"size,omitempty" jsonschema:"page size, defaults to the configured page size"`
}

type personOutput struct {
	PersonID string `json:"person_id"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	IsActive bool   `json:"is_active"`
}

type listPersonsOutput struct {
	Persons []personOutput `json:"persons"`
	Total   int            `json:"total"`
}

type getPersonInput struct {
	PersonID string `json:"person_id" jsonschema:"required,the person ID"`
}

type projectOutput struct {
	ProjectID     string `json:"project_id"`
	ProjectName   string `json:"project_name"`
	TotalSprints  int    `json:"total_sprints"`
	CurrentSprint int    `json:"current_sprint"`
	CreatedBy     string `json:"created_by,omitempty"`
	Completed     bool   `json:"completed"`
}

type listProjectsOutput struct {
	Projects []projectOutput `json:"projects"`
	Total    int             `json:"total"`
}

type getProjectInput struct {
	ProjectID string `json:"project_id" jsonschema:"required,the project ID"`
}

type advanceSprintInput struct {
	ProjectID string `json:"project_id" jsonschema:"required,the project ID"`
	Sprint    int    `json:"sprint" jsonschema:"required,the target sprint; must be between the current sprint and the total"`
}

type messageOutput struct {
	Message string `json:"message"`
}

type taskOutput struct {
	TaskID     string `json:"task_id"`
	TaskName   string `json:"task_name"`
	ProjectID  string `json:"project_id"`
	AssignedTo string `json:"assigned_to,omitempty"`
	Sprint     int    `json:"sprint"`
	Status     string `json:"status"`
}

type listTasksOutput struct {
	Tasks []taskOutput `json:"tasks"`
	Total int          `json:"total"`
}

type getTaskInput struct {
	TaskID string `json:"task_id" jsonschema:"required,the task ID"`
}

type updateTaskStatusInput struct {
	TaskID string `json:"task_id" jsonschema:"required,the task ID"`
	Status string `json:"status" jsonschema:"required,the new status (todo, in_progress, done or 0, 1, 2)"`
}

type whoamiInput struct{}

type whoamiOutput struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username,omitempty"`
	Role      string `json:"role"`
	ExpiresAt string `json:"expires_at,omitempty"`
}

// --- Tool registration ---

func (s *Server) registerTools() {
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "list_persons",
		Description: "List persons, optionally filtered by a search string, one page at a time.",
	}, s.handleListPersons)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_person",
		Description: "Get a person by ID.",
	}, s.handleGetPerson)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "list_projects",
		Description: "List projects with their sprint progress, one page at a time.",
	}, s.handleListProjects)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_project",
		Description: "Get a project by ID.",
	}, s.handleGetProject)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "advance_sprint",
		Description: "Move a project to a later sprint. The sprint never decreases and never exceeds the project's total.",
	}, s.handleAdvanceSprint)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "list_tasks",
		Description: "List tasks, one page at a time.",
	}, s.handleListTasks)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_task",
		Description: "Get a task by ID.",
	}, s.handleGetTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "update_task_status",
		Description: "Move a task to todo, in_progress or done. Users may only move tasks assigned to them.",
	}, s.handleUpdateTaskStatus)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "whoami",
		Description: "Show the identity and role of the stored session.",
	}, s.handleWhoami)
}

// --- Tool handlers ---

func (s *Server) handleListPersons(ctx context.Context, _ *gomcp.CallToolRequest, in listInput) (*gomcp.CallToolResult, listPersonsOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, total, err := listPage(ctx, s.svc.Persons.Load, s.svc.Persons.Table, in)
	if err != nil {
		return errorResult(fmt.Sprintf("listing persons: %s", core.ErrorMessage(err, "API error"))), listPersonsOutput{Persons: []personOutput{}}, nil
	}
	out := listPersonsOutput{Persons: make([]personOutput, len(rows)), Total: total}
	for i, p := range rows {
		out.Persons[i] = personToOutput(p)
	}
	return nil, out, nil
}

func (s *Server) handleGetPerson(ctx context.Context, _ *gomcp.CallToolRequest, in getPersonInput) (*gomcp.CallToolResult, personOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.svc.Persons.Get(ctx, strings.TrimSpace(in.PersonID))
	if err != nil {
		return errorResult(lookupError(err)), personOutput{}, nil
	}
	return nil, personToOutput(*p), nil
}

func (s *Server) handleListProjects(ctx context.Context, _ *gomcp.CallToolRequest, in listInput) (*gomcp.CallToolResult, listProjectsOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, total, err := listPage(ctx, s.svc.Projects.Load, s.svc.Projects.Table, in)
	if err != nil {
		return errorResult(fmt.Sprintf("listing projects: %s", core.ErrorMessage(err, "API error"))), listProjectsOutput{Projects: []projectOutput{}}, nil
	}
	out := listProjectsOutput{Projects: make([]projectOutput, len(rows)), Total: total}
	for i, p := range rows {
		out.Projects[i] = projectToOutput(p)
	}
	return nil, out, nil
}

func (s *Server) handleGetProject(ctx context.Context, _ *gomcp.CallToolRequest, in getProjectInput) (*gomcp.CallToolResult, projectOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.svc.Projects.Get(ctx, strings.TrimSpace(in.ProjectID))
	if err != nil {
		return errorResult(lookupError(err)), projectOutput{}, nil
	}
	return nil, projectToOutput(*p), nil
}

func (s *Server) handleAdvanceSprint(ctx context.Context, _ *gomcp.CallToolRequest, in advanceSprintInput) (*gomcp.CallToolResult, messageOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := strings.TrimSpace(in.ProjectID)
	msg, err := s.svc.Projects.AdvanceSprint(ctx, id, in.Sprint)
	if err != nil {
		return errorResult(core.ErrorMessage(err, "Save failed")), messageOutput{}, nil
	}
	if msg == "" {
		msg = fmt.Sprintf("project %s moved to sprint %d", id, in.Sprint)
	}
	return nil, messageOutput{Message: msg}, nil
}

func (s *Server) handleListTasks(ctx context.Context, _ *gomcp.CallToolRequest, in listInput) (*gomcp.CallToolResult, listTasksOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, total, err := listPage(ctx, s.svc.Tasks.Load, s.svc.Tasks.Table, in)
	if err != nil {
		return errorResult(fmt.Sprintf("listing tasks: %s", core.ErrorMessage(err, "API error"))), listTasksOutput{Tasks: []taskOutput{}}, nil
	}
	out := listTasksOutput{Tasks: make([]taskOutput, len(rows)), Total: total}
	for i, t := range rows {
		out.Tasks[i] = taskToOutput(t)
	}
	return nil, out, nil
}

func (s *Server) handleGetTask(ctx context.Context, _ *gomcp.CallToolRequest, in getTaskInput) (*gomcp.CallToolResult, taskOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.svc.Tasks.Get(ctx, strings.TrimSpace(in.TaskID))
	if err != nil {
		return errorResult(lookupError(err)), taskOutput{}, nil
	}
	return nil, taskToOutput(*t), nil
}

func (s *Server) handleUpdateTaskStatus(ctx context.Context, _ *gomcp.CallToolRequest, in updateTaskStatusInput) (*gomcp.CallToolResult, messageOutput, error) {
	id := strings.TrimSpace(in.TaskID)
	if id == "" {
		return errorResult("task_id is required"), messageOutput{}, nil
	}
	status, err := models.ParseTaskStatus(in.Status)
	if err != nil {
		return errorResult(err.Error()), messageOutput{}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	msg, err := s.svc.Tasks.SetStatus(ctx, id, status)
	if err != nil {
		return errorResult(core.ErrorMessage(err, "Save failed")), messageOutput{}, nil
	}
	if msg == "" {
		msg = fmt.Sprintf("task %s moved to %s", id, status.Label())
	}
	return nil, messageOutput{Message: msg}, nil
}

func (s *Server) handleWhoami(ctx context.Context, _ *gomcp.CallToolRequest, _ whoamiInput) (*gomcp.CallToolResult, whoamiOutput, error) {
	a, ok := s.svc.Auth.Current().(core.Authenticated)
	if !ok {
		return errorResult("not logged in; run pmc login"), whoamiOutput{}, nil
	}
	out := whoamiOutput{UserID: a.UserID, Username: a.Username, Role: a.Role.String()}
	if !a.ExpiresAt.IsZero() {
		out.ExpiresAt = a.ExpiresAt.UTC().Format(time.RFC3339)
	}
	if out.Username == "" {
		if me, err := s.svc.Auth.Me(ctx); err == nil && me != nil {
			out.Username = me.Username
		}
	}
	return nil, out, nil
}

// --- Helpers ---

// listPage loads the requested page of a screen table.
func listPage[T any](ctx context.Context, load func(context.Context, bool) error, t *core.Table[T], in listInput) ([]T, int, error) {
	size := in.Size
	if size <= 0 {
		size = t.PageSize()
	}
	ok, err := core.Seek(ctx, t, load, core.Query{
		PageIndex: max(in.Page, 1) - 1,
		PageSize:  size,
		Search:    strings.TrimSpace(in.Search),
	})
	if err != nil {
		return nil, 0, err
	}
	if !ok {
		return nil, t.Total(), nil
	}
	return t.Rows(), t.Total(), nil
}

func lookupError(err error) string {
	if core.StatusOf(err) == 404 {
		return "not found"
	}
	return core.ErrorMessage(err, "API error")
}

func personToOutput(p models.Person) personOutput {
	return personOutput{
		PersonID: p.PersonID,
		Name:     p.Name,
		Role:     core.RoleName(p.Role),
		IsActive: bool(p.IsActive),
	}
}

func projectToOutput(p models.Project) projectOutput {
	return projectOutput{
		ProjectID:     p.ProjectID,
		ProjectName:   p.ProjectName,
		TotalSprints:  int(p.TotalSprintCount),
		CurrentSprint: int(p.CurrentSprintCount),
		CreatedBy:     p.CreatedByAdminID,
		Completed:     bool(p.IsCompleted),
	}
}

func taskToOutput(t models.Task) taskOutput {
	return taskOutput{
		TaskID:     t.TaskID,
		TaskName:   t.TaskName,
		ProjectID:  t.ProjectID,
		AssignedTo: t.AssignedToPersonID,
		Sprint:     int(t.SprintNumber),
		Status:     t.Status.Label(),
	}
}

func errorResult(msg string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: msg}},
		IsError: true,
	}
}
