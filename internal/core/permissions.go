package core

import (
	"fmt"
	"sort"
	"strings"

	"github.com/valter-silva-au/pm-console/pkg/models"
)

// Action is a capability that can be granted per entity.
type Action string

const (
	ActionView     Action = "view"
	ActionCreate   Action = "create"
	ActionEdit     Action = "edit"
	ActionDelete   Action = "delete"
	ActionComplete Action = "complete"
	ActionSprint   Action = "sprint"
	ActionStatus   Action = "update_status"
	ActionReassign Action = "reassign"
)

// entityActions lists the actions each entity understands.
var entityActions = map[string][]Action{
	EntityPerson:  {ActionView, ActionCreate, ActionEdit, ActionDelete},
	EntityProject: {ActionView, ActionCreate, ActionEdit, ActionComplete, ActionSprint, ActionDelete},
	EntityTask:    {ActionView, ActionCreate, ActionStatus, ActionReassign, ActionDelete},
}

// ownSuffix restricts a grant to records assigned to the session user.
const ownSuffix = ":own"

// DefaultPermissions returns the built-in capability matrix. Admin owns the
// project lifecycle, Manager edits persons and tasks, and User may only move
// the status of tasks assigned to them.
func DefaultPermissions() models.PermissionConfig {
	all := []string{"Admin", "Manager", "User"}
	return models.PermissionConfig{
		EntityPerson: {
			string(ActionView):   all,
			string(ActionCreate): {"Admin", "Manager"},
			string(ActionEdit):   {"Admin", "Manager"},
			string(ActionDelete): {"Admin"},
		},
		EntityProject: {
			string(ActionView):     all,
			string(ActionCreate):   {"Admin"},
			string(ActionEdit):     {"Admin", "Manager"},
			string(ActionComplete): {"Admin"},
			string(ActionSprint):   {"Admin", "Manager"},
			string(ActionDelete):   {"Admin"},
		},
		EntityTask: {
			string(ActionView):     all,
			string(ActionCreate):   {"Manager"},
			string(ActionStatus):   {"Manager", "User" + ownSuffix},
			string(ActionReassign): {"Manager"},
			string(ActionDelete):   {"Manager"},
		},
	}
}

type grant struct {
	role    models.Role
	ownOnly bool
}

// PermissionMatrix answers role capability questions. It is immutable once
// built and safe for concurrent use.
type PermissionMatrix struct {
	grants map[string]map[Action][]grant
}

// NewPermissionMatrix parses cfg. Unknown entities, actions or roles are
// reported together.
func NewPermissionMatrix(cfg models.PermissionConfig) (*PermissionMatrix, error) {
	m := &PermissionMatrix{grants: map[string]map[Action][]grant{}}
	var errs []string

	entities := make([]string, 0, len(cfg))
	for e := range cfg {
		entities = append(entities, e)
	}
	sort.Strings(entities)

	for _, entity := range entities {
		known, ok := entityActions[entity]
		if !ok {
			errs = append(errs, fmt.Sprintf("permissions: unknown entity %q", entity))
			continue
		}
		m.grants[entity] = map[Action][]grant{}
		for action, roles := range cfg[entity] {
			a := Action(action)
			if !containsAction(known, a) {
				errs = append(errs, fmt.Sprintf("permissions.%s: unknown action %q", entity, action))
				continue
			}
			for _, r := range roles {
				g, err := parseGrant(r)
				if err != nil {
					errs = append(errs, fmt.Sprintf("permissions.%s.%s: %v", entity, action, err))
					continue
				}
				m.grants[entity][a] = append(m.grants[entity][a], g)
			}
		}
	}

	if len(errs) > 0 {
		sort.Strings(errs)
		return nil, fmt.Errorf("%s", strings.Join(errs, "\n  - "))
	}
	return m, nil
}

func parseGrant(s string) (grant, error) {
	s = strings.TrimSpace(s)
	own := false
	if strings.HasSuffix(strings.ToLower(s), ownSuffix) {
		own = true
		s = s[:len(s)-len(ownSuffix)]
	}
	role, err := models.ParseRole(s)
	if err != nil {
		return grant{}, err
	}
	return grant{role: role, ownOnly: own}, nil
}

func containsAction(list []Action, a Action) bool {
	for _, x := range list {
		if x == a {
			return true
		}
	}
	return false
}

// Allows reports whether role may perform action on a record of entity.
// owned tells whether the record is assigned to the session user; it only
// matters for ownership-scoped grants.
func (m *PermissionMatrix) Allows(role models.Role, entity string, action Action, owned bool) bool {
	if m == nil {
		return false
	}
	for _, g := range m.grants[entity][action] {
		if g.role != role {
			continue
		}
		if !g.ownOnly || owned {
			return true
		}
	}
	return false
}

// AllowsSome reports whether role holds any grant for action, ownership
// scoped or not. Screens use it to decide which affordances to show before
// a specific record is known.
func (m *PermissionMatrix) AllowsSome(role models.Role, entity string, action Action) bool {
	return m.Allows(role, entity, action, true)
}

// Roles returns the roles holding an unscoped grant for action, in role order.
func (m *PermissionMatrix) Roles(entity string, action Action) []models.Role {
	var out []models.Role
	for _, r := range models.ValidRoles {
		if m.Allows(r, entity, action, false) {
			out = append(out, r)
		}
	}
	return out
}
