package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/valter-silva-au/pm-console/pkg/models"
)

// Toaster shows transient notifications.
type Toaster interface {
	Success(msg string)
	Error(msg string)
	Info(msg string)
}

type nopToaster struct{}

func (nopToaster) Success(string) {}
func (nopToaster) Error(string)   {}
func (nopToaster) Info(string)    {}

// Toast messages shared by every screen.
const (
	MsgSaved       = "Saved successfully"
	MsgSaveFailed  = "Save failed"
	MsgDeleted     = "Deleted"
	MsgDeleteFail  = "Delete failed"
	msgNotAllowed  = "Not allowed"
	msgMissingUser = "UserId missing"
)

// ScreenDeps are the collaborators every entity screen needs.
type ScreenDeps struct {
	Auth        AuthService
	Permissions *PermissionMatrix
	Toaster     Toaster
	Events      EventLogger
	Table       models.TableConfig
}

// screen holds the permission and notification plumbing shared by the
// entity screens.
type screen struct {
	entity string
	deps   ScreenDeps
}

func newScreen(entity string, deps ScreenDeps) screen {
	if deps.Toaster == nil {
		deps.Toaster = nopToaster{}
	}
	return screen{entity: entity, deps: deps}
}

func (s *screen) role() models.Role { return s.deps.Auth.Role() }

func (s *screen) userID() string { return s.deps.Auth.UserID() }

// can reports whether the session may perform action. owned is whether the
// record is assigned to the session user.
func (s *screen) can(action Action, owned bool) bool {
	if !s.deps.Auth.IsLoggedIn() {
		return false
	}
	return s.deps.Permissions.Allows(s.role(), s.entity, action, owned)
}

func (s *screen) canSome(action Action) bool {
	if !s.deps.Auth.IsLoggedIn() {
		return false
	}
	return s.deps.Permissions.AllowsSome(s.role(), s.entity, action)
}

// require hard-blocks an action handler: when the session may not perform
// action it shows an error toast, records the refusal and returns a
// ForbiddenError. No request is sent.
func (s *screen) require(action Action, owned bool) error {
	if !s.deps.Auth.IsLoggedIn() {
		s.deps.Toaster.Error("Please log in")
		return ErrNotLoggedIn
	}
	if s.can(action, owned) {
		return nil
	}
	ferr := &ForbiddenError{Entity: s.entity, Action: action}
	s.deps.Toaster.Error(ferr.Error())
	logEvent(s.deps.Events, EventPermissionDenied, ferr.Error(), map[string]any{
		"entity":  s.entity,
		"action":  string(action),
		"role":    s.role().String(),
		"user_id": s.userID(),
	})
	return ferr
}

func (s *screen) audit(eventType, message string, data map[string]any) {
	if data == nil {
		data = map[string]any{}
	}
	data["user_id"] = s.userID()
	data["role"] = s.role().String()
	logEvent(s.deps.Events, eventType, message, data)
}

// newTable builds the screen's table with the configured paging strategy.
// Server paging is used only when the entity is listed in table.server_side
// and a paged endpoint is available.
func newTable[T any](s *screen, opts TableOptions[T], list func(context.Context) ([]T, error),
	paged func(context.Context, models.PageRequest) (*models.PagedResponse[T], error)) *Table[T] {
	if s.deps.Table.PageSize > 0 {
		opts.PageSize = s.deps.Table.PageSize
	}
	if len(s.deps.Table.PageSizeOptions) > 0 {
		opts.PageSizeOptions = s.deps.Table.PageSizeOptions
	}
	var pager Pager[T]
	if paged != nil && s.deps.Table.ServerSideFor(s.entity) {
		pager = NewServerPager(paged)
	} else {
		pager = NewClientPager(list, opts.Columns)
	}
	return NewTable(opts, pager)
}

// closeDialog applies the shared dialog close handling and reports whether
// the table should reload.
func closeDialog[T any](s *screen, t *Table[T], r Result) bool {
	switch r.Outcome {
	case Failed:
		msg := r.Message
		if msg == "" {
			msg = MsgSaveFailed
		}
		s.deps.Toaster.Error(msg)
		t.SetError(msg)
		return false
	case Saved:
		s.deps.Toaster.Success(MsgSaved)
		return true
	default:
		return false
	}
}

// LookupMessage renders a failed get-by-id for the table error line.
func LookupMessage(entity, id string, err error) string {
	if errors.Is(err, ErrForbidden) || errors.Is(err, ErrNotLoggedIn) {
		return err.Error()
	}
	status := StatusOf(err)
	if status == 404 {
		return fmt.Sprintf("%s %q not found", titleCase(entity), id)
	}
	msg := ErrorMessage(err, "API error")
	if status == 0 {
		return "Error: " + msg
	}
	return fmt.Sprintf("Error: %d %s", status, msg)
}

func requireID(entity, id, purpose string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", validationf("%s ID required for %s", titleCase(entity), purpose)
	}
	return id, nil
}

func boolOption(v bool) *bool { return &v }

var roleOptions = []Option{
	{Value: models.RoleAdmin, Label: "Admin"},
	{Value: models.RoleManager, Label: "Manager"},
	{Value: models.RoleUser, Label: "User"},
}

var statusOptions = []Option{
	{Value: models.StatusTodo, Label: "Todo"},
	{Value: models.StatusInProgress, Label: "In Progress"},
	{Value: models.StatusDone, Label: "Done"},
}
