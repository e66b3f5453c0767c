package core

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/valter-silva-au/pm-console/pkg/models"
)

// PagingMode names a pager strategy.
type PagingMode string

const (
	ClientPaging PagingMode = "client"
	ServerPaging PagingMode = "server"
)

// SortState is the active sort; an empty Field or SortNone means unsorted.
type SortState struct {
	Field     string
	Direction models.SortDirection
}

// Active reports whether a sort is applied.
func (s SortState) Active() bool {
	return s.Field != "" && s.Direction != models.SortNone
}

// Query is everything a pager needs to produce one page. PageIndex is 0-based.
type Query struct {
	PageIndex int
	PageSize  int
	Search    string
	Sort      SortState
}

// Page is one page of rows plus the total number of matching rows.
type Page[T any] struct {
	Rows  []T
	Total int
}

// Pager produces pages for a table. Implementations must be safe to call
// from a goroutine other than the one owning the table.
type Pager[T any] interface {
	Mode() PagingMode
	// Fetch returns the page described by q. reload asks client pagers to
	// drop their cache and fetch the full list again.
	Fetch(ctx context.Context, q Query, reload bool) (Page[T], error)
}

// ClientPager loads the whole list once and filters, sorts and slices it
// in memory.
type ClientPager[T any] struct {
	load    func(ctx context.Context) ([]T, error)
	columns []Column[T]

	mu     sync.Mutex
	cache  []T
	loaded bool
}

// NewClientPager creates a ClientPager. columns drive filtering and sorting.
func NewClientPager[T any](load func(ctx context.Context) ([]T, error), columns []Column[T]) *ClientPager[T] {
	return &ClientPager[T]{load: load, columns: columns}
}

func (p *ClientPager[T]) Mode() PagingMode { return ClientPaging }

func (p *ClientPager[T]) Fetch(ctx context.Context, q Query, reload bool) (Page[T], error) {
	rows, err := p.rows(ctx, reload)
	if err != nil {
		return Page[T]{}, err
	}
	rows = FilterRows(rows, p.columns, q.Search)
	SortRows(rows, p.columns, q.Sort)
	return Page[T]{Rows: slicePage(rows, q.PageIndex, q.PageSize), Total: len(rows)}, nil
}

func (p *ClientPager[T]) rows(ctx context.Context, reload bool) ([]T, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if reload || !p.loaded {
		rows, err := p.load(ctx)
		if err != nil {
			p.cache, p.loaded = nil, false
			return nil, err
		}
		p.cache, p.loaded = rows, true
	}
	return slices.Clone(p.cache), nil
}

// FilterRows keeps the rows whose joined column text contains search,
// case-insensitively. An empty search keeps every row.
func FilterRows[T any](rows []T, columns []Column[T], search string) []T {
	needle := strings.ToLower(strings.TrimSpace(search))
	if needle == "" {
		return rows
	}
	out := rows[:0:0]
	for _, r := range rows {
		parts := make([]string, len(columns))
		for i, c := range columns {
			parts[i] = c.Text(r)
		}
		if strings.Contains(strings.ToLower(strings.Join(parts, " ")), needle) {
			out = append(out, r)
		}
	}
	return out
}

// SortRows stably sorts rows in place by the column whose sort key matches
// s.Field. Values that both parse as numbers compare numerically; anything
// else compares as lower-cased text.
func SortRows[T any](rows []T, columns []Column[T], s SortState) {
	if !s.Active() {
		return
	}
	idx := slices.IndexFunc(columns, func(c Column[T]) bool { return c.SortKey() == s.Field })
	if idx < 0 {
		return
	}
	col := columns[idx]
	slices.SortStableFunc(rows, func(a, b T) int {
		c := compareCells(col.Text(a), col.Text(b))
		if s.Direction == models.SortDesc {
			return -c
		}
		return c
	})
}

func compareCells(a, b string) int {
	fa, errA := strconv.ParseFloat(strings.TrimSpace(a), 64)
	fb, errB := strconv.ParseFloat(strings.TrimSpace(b), 64)
	if errA == nil && errB == nil {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	}
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

func slicePage[T any](rows []T, index, size int) []T {
	if size <= 0 {
		return rows
	}
	start := index * size
	if start >= len(rows) || start < 0 {
		return []T{}
	}
	end := min(start+size, len(rows))
	return rows[start:end]
}

// ServerPager forwards paging, sorting and search to a paged endpoint and
// trusts the rows and total it returns.
type ServerPager[T any] struct {
	fetch func(ctx context.Context, req models.PageRequest) (*models.PagedResponse[T], error)
}

// NewServerPager creates a ServerPager over a /paged endpoint.
func NewServerPager[T any](fetch func(ctx context.Context, req models.PageRequest) (*models.PagedResponse[T], error)) *ServerPager[T] {
	return &ServerPager[T]{fetch: fetch}
}

func (p *ServerPager[T]) Mode() PagingMode { return ServerPaging }

func (p *ServerPager[T]) Fetch(ctx context.Context, q Query, _ bool) (Page[T], error) {
	req := PageRequestFor(q)
	resp, err := p.fetch(ctx, req)
	if err != nil {
		return Page[T]{}, err
	}
	if resp == nil {
		return Page[T]{}, fmt.Errorf("paged response was empty")
	}
	return Page[T]{Rows: resp.Data, Total: resp.TotalRecords}, nil
}

// PageRequestFor converts a 0-based table query into a 1-based page request.
func PageRequestFor(q Query) models.PageRequest {
	req := models.PageRequest{
		PageNumber: q.PageIndex + 1,
		PageSize:   q.PageSize,
		Search:     strings.TrimSpace(q.Search),
	}
	if q.Sort.Active() {
		req.SortBy = q.Sort.Field
		req.SortDirection = q.Sort.Direction
	}
	return req
}
