package core

import (
	"strings"

	"github.com/valter-silva-au/pm-console/pkg/models"
)

// Well-known paths.
const (
	PathLogin        = "/login"
	PathUnauthorized = "/unauthorized"
	PathDashboard    = "/dashboard"
	PathProjects     = "/dashboard/projects"
	PathPersons      = "/dashboard/persons"
	PathTasks        = "/dashboard/tasks"
)

// Route is one node of the route tree. Path segments starting with ':' match
// any single segment. Children inherit the parent's guard, and its Roles
// when they declare none.
type Route struct {
	Path     string
	Public   bool
	Roles    []models.Role // empty means any authenticated role
	Redirect string        // when set, the route itself only forwards here
	Children []Route
}

// DefaultRoutes returns the console route tree.
func DefaultRoutes() []Route {
	entity := func(path string) Route {
		return Route{
			Path: path,
			Children: []Route{
				{Path: "delete/:id"},
				{Path: ":id"},
			},
		}
	}
	return []Route{
		{Path: PathLogin, Public: true},
		{Path: PathUnauthorized, Public: true},
		{
			Path:     PathDashboard,
			Redirect: PathProjects,
			Children: []Route{
				entity("projects"),
				entity("persons"),
				{Path: "tasks"},
			},
		},
	}
}

// Guard decides where a navigation request actually lands.
type Guard struct {
	auth   AuthService
	routes []Route
}

// NewGuard creates a Guard over routes, consulting auth for the session.
func NewGuard(auth AuthService, routes []Route) *Guard {
	return &Guard{auth: auth, routes: routes}
}

// Resolve returns the path to render for a request to path: the path
// itself, /login when the session is anonymous, /unauthorized when the role
// is not allowed, or the projects section for empty and unknown paths.
func (g *Guard) Resolve(path string) string {
	path = normalizePath(path)
	if path == "/" {
		path = PathProjects
	}

	chain, ok := matchRoute(g.routes, "", path)
	if !ok {
		path = PathProjects
		chain, ok = matchRoute(g.routes, "", path)
		if !ok {
			return PathLogin
		}
	}

	leaf := chain[len(chain)-1]
	if leaf.Redirect != "" {
		return g.Resolve(leaf.Redirect)
	}
	if chain[0].Public {
		return path
	}
	if !g.auth.IsLoggedIn() {
		return PathLogin
	}

	var roles []models.Role
	for _, r := range chain {
		if len(r.Roles) > 0 {
			roles = r.Roles
		}
	}
	if len(roles) > 0 && !g.auth.HasAnyRole(roles...) {
		return PathUnauthorized
	}
	return path
}

func normalizePath(p string) string {
	p = strings.TrimSpace(p)
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
	}
	return p
}

// matchRoute walks the tree depth first and returns the chain of routes
// from the root to the matching node.
func matchRoute(routes []Route, prefix, path string) ([]Route, bool) {
	for _, r := range routes {
		full := joinPath(prefix, r.Path)
		if segmentsMatch(full, path) {
			return []Route{r}, true
		}
		if len(r.Children) > 0 && strings.HasPrefix(path+"/", full+"/") {
			if chain, ok := matchRoute(r.Children, full, path); ok {
				return append([]Route{r}, chain...), true
			}
		}
	}
	return nil, false
}

func joinPath(prefix, p string) string {
	switch {
	case p == "":
		return prefix
	case strings.HasPrefix(p, "/"):
		return p
	default:
		return prefix + "/" + p
	}
}

func segmentsMatch(pattern, path string) bool {
	ps := strings.Split(strings.Trim(pattern, "/"), "/")
	xs := strings.Split(strings.Trim(path, "/"), "/")
	if len(ps) != len(xs) {
		return false
	}
	for i := range ps {
		if strings.HasPrefix(ps[i], ":") {
			if xs[i] == "" {
				return false
			}
			continue
		}
		if ps[i] != xs[i] {
			return false
		}
	}
	return true
}
