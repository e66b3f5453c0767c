package models

// SortDirection is the direction of a server-side sort.
type SortDirection string

const (
	SortNone SortDirection = ""
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// PageRequest carries the paged-list query parameters. PageNumber is 1-based.
type PageRequest struct {
	PageNumber    int
	PageSize      int
	Search        string
	SortBy        string
	SortDirection SortDirection
}

// PagedResponse is the envelope returned by the /{Entity}/paged endpoints.
type PagedResponse[T any] struct {
	Data         []T `json:"data" yaml:"data"`
	PageNumber   int `json:"pageNumber" yaml:"pageNumber"`
	PageSize     int `json:"pageSize" yaml:"pageSize"`
	TotalRecords int `json:"totalRecords" yaml:"totalRecords"`
}
