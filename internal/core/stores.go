package core

import (
	"context"

	"github.com/valter-silva-au/pm-console/pkg/models"
)

// SessionValues mirrors the three persisted session keys.
// This is defined locally in core to avoid importing storage.
type SessionValues struct {
	Token  string
	Role   string
	UserID string
}

// SessionStore persists the auth session between runs.
// This interface is defined locally in core to avoid importing storage.
type SessionStore interface {
	Load() (SessionValues, error)
	Save(SessionValues) error
	Clear() error
}

// AuthAPI is the backend authentication surface.
type AuthAPI interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error)
	Me(ctx context.Context) (*models.Me, error)
}

// PersonAPI is the backend /Person surface.
type PersonAPI interface {
	List(ctx context.Context) ([]models.Person, error)
	Paged(ctx context.Context, req models.PageRequest) (*models.PagedResponse[models.Person], error)
	Get(ctx context.Context, id string) (*models.Person, error)
	Create(ctx context.Context, in models.PersonCreate) (*models.Person, error)
	CreateBulk(ctx context.Context, in []models.PersonCreate) ([]models.Person, error)
	Update(ctx context.Context, id string, in models.PersonUpdate) (string, error)
	Delete(ctx context.Context, id string) (string, error)
	Team(ctx context.Context, teamID, requesterID string) (*models.PersonTeam, error)
}

// ProjectAPI is the backend /Project surface.
type ProjectAPI interface {
	List(ctx context.Context) ([]models.Project, error)
	Paged(ctx context.Context, req models.PageRequest) (*models.PagedResponse[models.Project], error)
	Get(ctx context.Context, id string) (*models.Project, error)
	Create(ctx context.Context, in models.ProjectCreate) (*models.Project, error)
	CreateBulk(ctx context.Context, in []models.ProjectCreate) ([]models.Project, error)
	Update(ctx context.Context, id string, in models.ProjectUpdate) (string, error)
	UpdateSprint(ctx context.Context, id string, currentSprint int) (string, error)
	Delete(ctx context.Context, id string) (string, error)
}

// TaskAPI is the backend /Task surface.
type TaskAPI interface {
	List(ctx context.Context) ([]models.Task, error)
	Paged(ctx context.Context, req models.PageRequest) (*models.PagedResponse[models.Task], error)
	Get(ctx context.Context, id string) (*models.Task, error)
	Create(ctx context.Context, in models.TaskCreate) (*models.Task, error)
	CreateBulk(ctx context.Context, in []models.TaskCreate) ([]models.Task, error)
	Update(ctx context.Context, id string, in models.TaskUpdate) (string, error)
	UpdateStatus(ctx context.Context, id, userID string, status models.TaskStatus) (string, error)
	Reassign(ctx context.Context, id, managerID, newPersonID string) (string, error)
	Delete(ctx context.Context, id string) (string, error)
}
