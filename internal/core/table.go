package core

import (
	"context"

	"github.com/valter-silva-au/pm-console/pkg/models"
)

// Event is what a table interaction asks its screen to do.
type Event string

const (
	EventNone   Event = ""
	EventView   Event = "view"
	EventSprint Event = "sprint"
	EventAdd    Event = "add"
)

// Column describes one table column. Value, when set, computes the cell;
// otherwise Field is looked up as a dotted path on the row.
type Column[T any] struct {
	Header    string
	Field     string
	Value     func(T) any
	Clickable bool
	Sortable  bool
	Event     Event // emitted on click; EventView when empty
}

// CellValue returns the computed value, else the path lookup, else "".
func (c Column[T]) CellValue(row T) any {
	if c.Value != nil {
		return c.Value(row)
	}
	if v, ok := LookupPath(row, c.Field); ok {
		return v
	}
	return ""
}

// Text returns the cell's display text.
func (c Column[T]) Text(row T) string {
	return CellText(c.CellValue(row))
}

// SortKey is the field name sent as sortBy and matched by client sorting.
func (c Column[T]) SortKey() string {
	if c.Field != "" {
		return c.Field
	}
	return c.Header
}

// TableOptions configures a Table.
type TableOptions[T any] struct {
	Title           string
	Columns         []Column[T]
	PageSize        int
	PageSizeOptions []int
	ShowActions     bool
	ShowAdd         bool
	AddLabel        string
	// FormatError renders a failed fetch for the error line.
	FormatError func(error) string
}

// DefaultPageSize and DefaultPageSizeOptions apply when options leave them unset.
var (
	DefaultPageSize        = 5
	DefaultPageSizeOptions = []int{5, 10, 20}
)

// Table holds the state of one data table: the visible page, paging, sort,
// search, loading and error. It is owned by a single goroutine; only
// Fetch may run elsewhere.
type Table[T any] struct {
	opts  TableOptions[T]
	pager Pager[T]

	rows    []T
	total   int
	query   Query
	loading bool
	err     string

	gen       uint64
	searchSeq uint64
}

// NewTable creates a Table over pager.
func NewTable[T any](opts TableOptions[T], pager Pager[T]) *Table[T] {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if len(opts.PageSizeOptions) == 0 {
		opts.PageSizeOptions = DefaultPageSizeOptions
	}
	if opts.FormatError == nil {
		opts.FormatError = func(err error) string {
			return "API call failed: " + ErrorMessage(err, "API error")
		}
	}
	return &Table[T]{
		opts:  opts,
		pager: pager,
		query: Query{PageSize: opts.PageSize},
	}
}

// Request identifies one in-flight fetch.
type Request struct {
	Gen    uint64
	Query  Query
	Reload bool
}

// Begin marks the table as loading and returns a request carrying a fresh
// generation; any earlier in-flight request becomes stale.
func (t *Table[T]) Begin(reload bool) Request {
	t.gen++
	t.loading = true
	t.err = ""
	return Request{Gen: t.gen, Query: t.query, Reload: reload}
}

// Fetch runs req against the pager. It is safe to call off the owning goroutine.
func (t *Table[T]) Fetch(ctx context.Context, req Request) (Page[T], error) {
	return t.pager.Fetch(ctx, req.Query, req.Reload)
}

// Complete applies the outcome of req. Results of stale requests are
// discarded and Complete returns false. A failure clears the rows, zeroes
// the total and records the error.
func (t *Table[T]) Complete(req Request, page Page[T], err error) bool {
	if req.Gen != t.gen {
		return false
	}
	t.loading = false
	if err != nil {
		t.rows = nil
		t.total = 0
		t.err = t.opts.FormatError(err)
		return true
	}
	t.rows = page.Rows
	t.total = page.Total
	t.err = ""
	return true
}

// Load runs a full Begin/Fetch/Complete cycle synchronously. When the
// total shrank below the current page, it moves to the last page and
// fetches again.
func (t *Table[T]) Load(ctx context.Context, reload bool) error {
	req := t.Begin(reload)
	page, err := t.Fetch(ctx, req)
	t.Complete(req, page, err)
	if err == nil && t.ClampPage() {
		return t.Load(ctx, false)
	}
	return err
}

// ClampPage moves the page index back to the last page when it points past
// it. It reports whether the index moved, in which case the visible rows
// belong to a page that no longer exists and must be fetched again.
func (t *Table[T]) ClampPage() bool {
	last := t.PageCount() - 1
	if t.query.PageIndex <= last {
		return false
	}
	t.query.PageIndex = last
	return true
}

// Current reports whether req is still the latest request.
func (t *Table[T]) Current(req Request) bool { return req.Gen == t.gen }

// SetError records a screen-level error without touching the rows.
func (t *Table[T]) SetError(msg string) { t.err = msg }

// SetPage moves to page index i (0-based). It reports whether the page changed.
func (t *Table[T]) SetPage(i int) bool {
	if i < 0 || i >= t.PageCount() || i == t.query.PageIndex {
		return false
	}
	t.query.PageIndex = i
	return true
}

// NextPage and PrevPage step through pages.
func (t *Table[T]) NextPage() bool { return t.SetPage(t.query.PageIndex + 1) }

func (t *Table[T]) PrevPage() bool { return t.SetPage(t.query.PageIndex - 1) }

// SetPageSize changes the page size and returns to the first page.
func (t *Table[T]) SetPageSize(n int) bool {
	if n <= 0 || n == t.query.PageSize {
		return false
	}
	t.query.PageSize = n
	t.query.PageIndex = 0
	return true
}

// CyclePageSize advances to the next configured page size.
func (t *Table[T]) CyclePageSize() bool {
	opts := t.opts.PageSizeOptions
	next := opts[0]
	for i, n := range opts {
		if n == t.query.PageSize {
			next = opts[(i+1)%len(opts)]
			break
		}
	}
	return t.SetPageSize(next)
}

// SetSort applies a sort and returns to the first page.
func (t *Table[T]) SetSort(s SortState) bool {
	if s == t.query.Sort {
		return false
	}
	t.query.Sort = s
	t.query.PageIndex = 0
	return true
}

// ToggleSort cycles column col through ascending, descending and unsorted.
// Selecting a different column starts at ascending.
func (t *Table[T]) ToggleSort(col int) bool {
	if col < 0 || col >= len(t.opts.Columns) || !t.opts.Columns[col].Sortable {
		return false
	}
	key := t.opts.Columns[col].SortKey()
	next := SortState{Field: key, Direction: models.SortAsc}
	if t.query.Sort.Field == key {
		switch t.query.Sort.Direction {
		case models.SortAsc:
			next.Direction = models.SortDesc
		case models.SortDesc:
			next = SortState{}
		}
	}
	return t.SetSort(next)
}

// SetSearch applies a search query immediately and returns to the first page.
func (t *Table[T]) SetSearch(q string) bool {
	if q == t.query.Search {
		return false
	}
	t.query.Search = q
	t.query.PageIndex = 0
	return true
}

// SearchInput records a keystroke-level change of the query and returns
// its sequence number. Only the latest sequence settles.
func (t *Table[T]) SearchInput() uint64 {
	t.searchSeq++
	return t.searchSeq
}

// SearchSettled applies q if seq is still the latest input. It reports
// whether a fetch is needed.
func (t *Table[T]) SearchSettled(seq uint64, q string) bool {
	if seq != t.searchSeq {
		return false
	}
	return t.SetSearch(q)
}

// Click resolves a click on cell (row, col) of the visible page. ok is false
// for non-clickable cells and out-of-range positions.
func (t *Table[T]) Click(row, col int) (Event, T, bool) {
	var zero T
	if row < 0 || row >= len(t.rows) || col < 0 || col >= len(t.opts.Columns) {
		return EventNone, zero, false
	}
	c := t.opts.Columns[col]
	if !c.Clickable {
		return EventNone, zero, false
	}
	ev := c.Event
	if ev == EventNone {
		ev = EventView
	}
	return ev, t.rows[row], true
}

// Add emits the add event when the add affordance is shown.
func (t *Table[T]) Add() (Event, bool) {
	if !t.opts.ShowAdd {
		return EventNone, false
	}
	return EventAdd, true
}

// SetShowAdd toggles the add affordance, e.g. after the session role changes.
func (t *Table[T]) SetShowAdd(show bool) { t.opts.ShowAdd = show }

func (t *Table[T]) Title() string          { return t.opts.Title }
func (t *Table[T]) Columns() []Column[T]   { return t.opts.Columns }
func (t *Table[T]) Rows() []T              { return t.rows }
func (t *Table[T]) Total() int             { return t.total }
func (t *Table[T]) PageIndex() int         { return t.query.PageIndex }
func (t *Table[T]) PageSize() int          { return t.query.PageSize }
func (t *Table[T]) PageSizeOptions() []int { return t.opts.PageSizeOptions }
func (t *Table[T]) Sort() SortState        { return t.query.Sort }
func (t *Table[T]) Search() string         { return t.query.Search }
func (t *Table[T]) Loading() bool          { return t.loading }
func (t *Table[T]) Err() string            { return t.err }
func (t *Table[T]) ShowActions() bool      { return t.opts.ShowActions }
func (t *Table[T]) ShowAdd() bool          { return t.opts.ShowAdd }
func (t *Table[T]) AddLabel() string       { return t.opts.AddLabel }
func (t *Table[T]) Mode() PagingMode       { return t.pager.Mode() }
func (t *Table[T]) CurrentQuery() Query    { return t.query }

// PageCount is the number of pages for the current total, at least 1.
func (t *Table[T]) PageCount() int {
	if t.query.PageSize <= 0 || t.total == 0 {
		return 1
	}
	return (t.total + t.query.PageSize - 1) / t.query.PageSize
}

// Show replaces the visible rows, e.g. with the result of a lookup by ID.
// In-flight fetches become stale.
func (t *Table[T]) Show(rows []T) {
	t.gen++
	t.loading = false
	t.rows = rows
	t.total = len(rows)
	t.err = ""
	t.query.PageIndex = 0
}

// Fail clears the rows and records msg as a failed fetch would.
// In-flight fetches become stale.
func (t *Table[T]) Fail(msg string) {
	t.gen++
	t.loading = false
	t.rows = nil
	t.total = 0
	t.err = msg
}

// Seek loads the page q describes from a clean start: q's page size,
// search and sort are applied, the list is reloaded and the table moves to
// q.PageIndex. load is the owning screen's Load, so role checks still
// apply. ok is false when q.PageIndex is past the last page.
func Seek[T any](ctx context.Context, t *Table[T], load func(context.Context, bool) error, q Query) (ok bool, err error) {
	t.SetPageSize(q.PageSize)
	t.SetSearch(q.Search)
	t.SetSort(q.Sort)
	t.SetPage(0)
	if err := load(ctx, true); err != nil {
		return false, err
	}
	if q.PageIndex <= 0 {
		return true, nil
	}
	if !t.SetPage(q.PageIndex) {
		return false, nil
	}
	if err := load(ctx, false); err != nil {
		return false, err
	}
	return true, nil
}
