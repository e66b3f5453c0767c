package core

import "strings"

// Section is one of the dashboard's entity screens.
type Section string

const (
	SectionProjects Section = "projects"
	SectionPersons  Section = "persons"
	SectionTasks    Section = "tasks"
)

// Sections lists the dashboard sections in sidebar order.
var Sections = []Section{SectionProjects, SectionPersons, SectionTasks}

// Title returns the section's display title.
func (s Section) Title() string {
	switch s {
	case SectionPersons:
		return "Persons"
	case SectionTasks:
		return "Tasks"
	default:
		return "Projects"
	}
}

// Path returns the dashboard path of the section.
func (s Section) Path() string {
	return PathDashboard + "/" + string(s)
}

// Location is a parsed dashboard path.
type Location struct {
	Path    string
	Section Section // empty outside the dashboard
	ID      string  // set for detail and delete routes
	Delete  bool
}

// ParseLocation splits a resolved path into its dashboard parts.
func ParseLocation(path string) Location {
	loc := Location{Path: path}
	rest, ok := strings.CutPrefix(path, PathDashboard+"/")
	if !ok {
		return loc
	}
	parts := strings.Split(rest, "/")
	loc.Section = Section(parts[0])
	switch {
	case len(parts) == 3 && parts[1] == "delete":
		loc.Delete = true
		loc.ID = parts[2]
	case len(parts) == 2:
		loc.ID = parts[1]
	}
	return loc
}

// SectionForKeyword maps a free-text header search onto a section.
func SectionForKeyword(q string) (Section, bool) {
	q = strings.ToLower(strings.TrimSpace(q))
	switch {
	case q == "":
		return "", false
	case strings.HasPrefix(q, "project"):
		return SectionProjects, true
	case strings.HasPrefix(q, "person"), strings.HasPrefix(q, "people"):
		return SectionPersons, true
	case strings.HasPrefix(q, "task"):
		return SectionTasks, true
	}
	return "", false
}

// Navigator tracks the current location and routes every move through the
// guard. It is owned by a single goroutine (the TUI update loop).
type Navigator struct {
	guard   *Guard
	current Location
}

// NewNavigator creates a Navigator positioned on the projects section, or on
// the login screen when the session is anonymous.
func NewNavigator(guard *Guard) *Navigator {
	n := &Navigator{guard: guard}
	n.Go(PathProjects)
	return n
}

// Go navigates to path and returns where the guard let it land.
func (n *Navigator) Go(path string) Location {
	n.current = ParseLocation(n.guard.Resolve(path))
	return n.current
}

// GoSection navigates to a dashboard section.
func (n *Navigator) GoSection(s Section) Location {
	return n.Go(s.Path())
}

// Search navigates by keyword; unknown keywords leave the location unchanged.
func (n *Navigator) Search(keyword string) (Location, bool) {
	s, ok := SectionForKeyword(keyword)
	if !ok {
		return n.current, false
	}
	return n.GoSection(s), true
}

// Current returns the current location.
func (n *Navigator) Current() Location { return n.current }

// Refresh re-applies the guard to the current path, e.g. after login or
// logout changed the session. From the public screens it heads back to the
// dashboard.
func (n *Navigator) Refresh() Location {
	switch n.current.Path {
	case PathLogin, PathUnauthorized, "":
		return n.Go(PathProjects)
	}
	return n.Go(n.current.Path)
}
