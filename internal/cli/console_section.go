package cli

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/valter-silva-au/pm-console/internal/core"
	"github.com/valter-silva-au/pm-console/pkg/models"
)

// section is what the console needs from one dashboard screen. The table
// state it wraps is touched only from the update loop; tea.Cmds run the
// network calls and hand the results back as messages.
type section interface {
	id() core.Section
	canView() bool
	refresh()
	load(reload bool) tea.Cmd
	lookup(id string) tea.Cmd
	setError(msg string)
	errText() string

	open(row, col int) (*core.Dialog, error)
	create() (*core.Dialog, bool, error)
	confirmRow(row int) (*pendingConfirm, error)
	confirmID(id string) (*pendingConfirm, error)
	handleClose(r core.Result) bool

	nextPage() bool
	prevPage() bool
	cyclePageSize() bool
	toggleSort(col int) bool
	setSearch(q string) bool
	searchInput() uint64
	searchSettled(seq uint64, q string) bool
	search() string

	cursor() (row, col int)
	move(dRow, dCol int)
	view() string
}

// fetchedMsg completes a table fetch on the update loop. complete reports
// whether the result was applied and whether the page index had to move
// back because the total shrank.
type fetchedMsg struct {
	section  core.Section
	err      error
	complete func() (applied, moved bool)
}

// lookedUpMsg shows the result of an ID lookup. apply is a no-op once a
// newer fetch or lookup has started.
type lookedUpMsg struct {
	section core.Section
	apply   func()
}

// pendingConfirm is a delete waiting for a yes or no.
type pendingConfirm struct {
	section core.Section
	spec    core.ConfirmSpec
	run     func(ctx context.Context) (string, error)
}

// entitySection adapts one entity screen to the console.
type entitySection[T any] struct {
	sec   core.Section
	table *core.Table[T]

	canViewFn func() bool
	refreshFn func()
	openFn    func(ev core.Event, row T) (*core.Dialog, error)
	createFn  func() (*core.Dialog, error)
	confirmFn func(row T) (core.ConfirmSpec, error)
	deleteFn  func(ctx context.Context, id string) (string, error)
	getFn     func(ctx context.Context, id string) (*T, error)
	closeFn   func(core.Result) bool
	idOf      func(T) string
	byID      func(id string) T
	entity    string

	row, col int
}

func personSection(s *core.PersonScreen) *entitySection[models.Person] {
	return &entitySection[models.Person]{
		sec:       core.SectionPersons,
		table:     s.Table,
		canViewFn: s.CanView,
		refreshFn: s.Refresh,
		openFn: func(_ core.Event, p models.Person) (*core.Dialog, error) {
			return s.OpenRow(p), nil
		},
		createFn:  s.OpenCreate,
		confirmFn: s.ConfirmDelete,
		deleteFn:  s.Delete,
		getFn:     s.Get,
		closeFn:   s.HandleClose,
		idOf:      func(p models.Person) string { return p.PersonID },
		byID:      func(id string) models.Person { return models.Person{PersonID: id} },
		entity:    core.EntityPerson,
	}
}

func projectSection(s *core.ProjectScreen) *entitySection[models.Project] {
	return &entitySection[models.Project]{
		sec:       core.SectionProjects,
		table:     s.Table,
		canViewFn: s.CanView,
		refreshFn: s.Refresh,
		openFn:    s.OpenRow,
		createFn:  s.OpenCreate,
		confirmFn: s.ConfirmDelete,
		deleteFn:  s.Delete,
		getFn:     s.Get,
		closeFn:   s.HandleClose,
		idOf:      func(p models.Project) string { return p.ProjectID },
		byID:      func(id string) models.Project { return models.Project{ProjectID: id} },
		entity:    core.EntityProject,
	}
}

func taskSection(s *core.TaskScreen) *entitySection[models.Task] {
	return &entitySection[models.Task]{
		sec:       core.SectionTasks,
		table:     s.Table,
		canViewFn: s.CanView,
		refreshFn: s.Refresh,
		openFn: func(_ core.Event, t models.Task) (*core.Dialog, error) {
			return s.OpenRow(t), nil
		},
		createFn:  s.OpenCreate,
		confirmFn: s.ConfirmDelete,
		deleteFn:  s.Delete,
		getFn:     s.Get,
		closeFn:   s.HandleClose,
		idOf:      func(t models.Task) string { return t.TaskID },
		byID:      func(id string) models.Task { return models.Task{TaskID: id} },
		entity:    core.EntityTask,
	}
}

func (s *entitySection[T]) id() core.Section { return s.sec }
func (s *entitySection[T]) canView() bool    { return s.canViewFn() }
func (s *entitySection[T]) refresh()         { s.refreshFn() }

func (s *entitySection[T]) load(reload bool) tea.Cmd {
	req := s.table.Begin(reload)
	t, sec := s.table, s.sec
	return func() tea.Msg {
		page, err := t.Fetch(context.Background(), req)
		return fetchedMsg{section: sec, err: err, complete: func() (bool, bool) {
			if !t.Complete(req, page, err) {
				return false, false
			}
			moved := err == nil && t.ClampPage()
			s.clamp()
			return true, moved
		}}
	}
}

func (s *entitySection[T]) lookup(id string) tea.Cmd {
	req := s.table.Begin(false)
	t, sec, entity, get := s.table, s.sec, s.entity, s.getFn
	return func() tea.Msg {
		rec, err := get(context.Background(), id)
		return lookedUpMsg{section: sec, apply: func() {
			if !t.Current(req) {
				return
			}
			if err != nil {
				t.Fail(core.LookupMessage(entity, id, err))
			} else {
				t.Show([]T{*rec})
			}
			s.row, s.col = 0, 0
		}}
	}
}

func (s *entitySection[T]) setError(msg string) { s.table.SetError(msg) }
func (s *entitySection[T]) errText() string     { return s.table.Err() }

func (s *entitySection[T]) open(row, col int) (*core.Dialog, error) {
	ev, rec, ok := s.table.Click(row, col)
	if !ok {
		return nil, nil
	}
	return s.openFn(ev, rec)
}

// create reports false when the add affordance is hidden for the role.
func (s *entitySection[T]) create() (*core.Dialog, bool, error) {
	if _, ok := s.table.Add(); !ok {
		return nil, false, nil
	}
	d, err := s.createFn()
	return d, true, err
}

func (s *entitySection[T]) confirmRow(row int) (*pendingConfirm, error) {
	rows := s.table.Rows()
	if row < 0 || row >= len(rows) {
		return nil, nil
	}
	return s.confirm(rows[row])
}

func (s *entitySection[T]) confirmID(id string) (*pendingConfirm, error) {
	return s.confirm(s.byID(id))
}

func (s *entitySection[T]) confirm(rec T) (*pendingConfirm, error) {
	spec, err := s.confirmFn(rec)
	if err != nil {
		return nil, err
	}
	id, del := s.idOf(rec), s.deleteFn
	return &pendingConfirm{
		section: s.sec,
		spec:    spec,
		run:     func(ctx context.Context) (string, error) { return del(ctx, id) },
	}, nil
}

func (s *entitySection[T]) handleClose(r core.Result) bool { return s.closeFn(r) }

func (s *entitySection[T]) nextPage() bool      { return s.table.NextPage() }
func (s *entitySection[T]) prevPage() bool      { return s.table.PrevPage() }
func (s *entitySection[T]) cyclePageSize() bool { return s.table.CyclePageSize() }
func (s *entitySection[T]) toggleSort(col int) bool {
	return s.table.ToggleSort(col)
}
func (s *entitySection[T]) setSearch(q string) bool { return s.table.SetSearch(q) }
func (s *entitySection[T]) searchInput() uint64     { return s.table.SearchInput() }
func (s *entitySection[T]) searchSettled(seq uint64, q string) bool {
	return s.table.SearchSettled(seq, q)
}
func (s *entitySection[T]) search() string { return s.table.Search() }

func (s *entitySection[T]) cursor() (int, int) { return s.row, s.col }

func (s *entitySection[T]) move(dRow, dCol int) {
	s.row += dRow
	s.col += dCol
	s.clamp()
}

func (s *entitySection[T]) clamp() {
	s.row = min(s.row, len(s.table.Rows())-1)
	s.col = min(s.col, len(s.table.Columns())-1)
	s.row = max(s.row, 0)
	s.col = max(s.col, 0)
}

const maxCellWidth = 28

func (s *entitySection[T]) view() string {
	t := s.table
	var b strings.Builder

	b.WriteString(headerStyle.Render(t.Title()))
	if t.ShowAdd() {
		b.WriteString("  " + helpStyle.Render("[n] "+t.AddLabel()))
	}
	b.WriteString("\n")
	if q := t.Search(); q != "" {
		fmt.Fprintf(&b, "Search: %s\n", q)
	}
	b.WriteString("\n")

	switch {
	case t.Loading():
		b.WriteString("Loading...\n")
	case t.Err() != "":
		b.WriteString(errorStyle.Render(t.Err()) + "\n")
	case len(t.Rows()) == 0:
		b.WriteString("No records\n")
	default:
		b.WriteString(s.grid())
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render(s.footer()))
	return b.String()
}

func (s *entitySection[T]) grid() string {
	cols, rows := s.table.Columns(), s.table.Rows()
	cells := make([][]string, len(rows))
	widths := make([]int, len(cols))
	for j, c := range cols {
		widths[j] = len([]rune(s.headerText(j, c.Header)))
	}
	for i, r := range rows {
		cells[i] = make([]string, len(cols))
		for j, c := range cols {
			cells[i][j] = truncate(c.Text(r), maxCellWidth)
			widths[j] = max(widths[j], len([]rune(cells[i][j])))
		}
	}

	var b strings.Builder
	header := make([]string, len(cols))
	for j, c := range cols {
		header[j] = pad(s.headerText(j, c.Header), widths[j])
		if j == s.col {
			header[j] = activeHeaderStyle.Render(header[j])
		} else {
			header[j] = columnHeaderStyle.Render(header[j])
		}
	}
	b.WriteString(strings.Join(header, "  ") + "\n")
	for i := range rows {
		line := make([]string, len(cols))
		for j := range cols {
			line[j] = pad(cells[i][j], widths[j])
			if i == s.row && j == s.col && cols[j].Clickable {
				line[j] = clickableCellStyle.Render(line[j])
			}
		}
		text := strings.Join(line, "  ")
		if i == s.row {
			text = selectedRowStyle.Render(text)
		}
		b.WriteString(text + "\n")
	}
	return b.String()
}

// headerText marks the sorted column with an arrow.
func (s *entitySection[T]) headerText(col int, header string) string {
	sort := s.table.Sort()
	if !sort.Active() || sort.Field != s.table.Columns()[col].SortKey() {
		return header
	}
	if sort.Direction == models.SortDesc {
		return header + " v"
	}
	return header + " ^"
}

func (s *entitySection[T]) footer() string {
	t := s.table
	return fmt.Sprintf("page %d of %d | %d total | %d per page | %s paging",
		t.PageIndex()+1, t.PageCount(), t.Total(), t.PageSize(), t.Mode())
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "~"
}

func pad(s string, n int) string {
	if d := n - len([]rune(s)); d > 0 {
		return s + strings.Repeat(" ", d)
	}
	return s
}
