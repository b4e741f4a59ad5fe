package repository

import "errors"

const (
	// DefaultLimit is applied when no page size is requested
	DefaultLimit = 10

	// MaxLimit caps the page size to prevent abuse
	MaxLimit = 100
)

// ListOptions defines options for listing entities with filtering, sorting, and pagination
type ListOptions struct {
	// Pagination
	Offset int `json:"offset"` // Number of records to skip
	Limit  int `json:"limit"`  // Maximum number of records to return

	// Sorting
	OrderBy   string `json:"order_by"`   // Field to sort by (e.g., "created_at", "score")
	OrderDesc bool   `json:"order_desc"` // Sort in descending order

	// Filtering
	Filters map[string]interface{} `json:"filters"` // Generic filters (field -> value)
}

// Validate validates the ListOptions and sets defaults
func (o *ListOptions) Validate() error {
	if o.Limit <= 0 {
		o.Limit = DefaultLimit
	}
	if o.Limit > MaxLimit {
		return errors.New("limit exceeds maximum allowed value")
	}
	if o.Offset < 0 {
		return errors.New("offset must be non-negative")
	}
	return nil
}

// AddFilter adds a filter condition to the options
func (o *ListOptions) AddFilter(field string, value interface{}) {
	if o.Filters == nil {
		o.Filters = make(map[string]interface{})
	}
	o.Filters[field] = value
}

// SetSort sets the sort field
func (o *ListOptions) SetSort(field string, desc bool) {
	o.OrderBy = field
	o.OrderDesc = desc
}

// SetPagination sets pagination parameters from a 1-based page number
func (o *ListOptions) SetPagination(page, pageSize int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultLimit
	}
	o.Offset = (page - 1) * pageSize
	o.Limit = pageSize
}

// Page returns the 1-based page number implied by Offset and Limit
func (o *ListOptions) Page() int {
	if o.Limit <= 0 {
		return 1
	}
	return (o.Offset / o.Limit) + 1
}

// PaginationResult represents the result of a paginated query
type PaginationResult[T any] struct {
	Items       []*T  `json:"items"`       // The actual data
	Total       int64 `json:"total"`       // Total number of records
	Page        int   `json:"page"`        // Current page number
	Limit       int   `json:"limit"`       // Page size
	TotalPages  int   `json:"totalPages"`  // Total number of pages
	HasNextPage bool  `json:"hasNextPage"` // Whether a following page exists
	HasPrevPage bool  `json:"hasPrevPage"` // Whether a preceding page exists
}

// NewPaginationResult creates a new pagination result
func NewPaginationResult[T any](items []*T, total int64, opts ListOptions) *PaginationResult[T] {
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	page := opts.Page()
	totalPages := int((total + int64(opts.Limit) - 1) / int64(opts.Limit))

	return &PaginationResult[T]{
		Items:       items,
		Total:       total,
		Page:        page,
		Limit:       opts.Limit,
		TotalPages:  totalPages,
		HasNextPage: page < totalPages,
		HasPrevPage: page > 1,
	}
}
