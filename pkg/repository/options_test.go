package repository

import "testing"

func TestValidateAppliesDefaults(t *testing.T) {
	opts := ListOptions{}
	if err := opts.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if opts.Limit != DefaultLimit {
		t.Errorf("limit = %d, want %d", opts.Limit, DefaultLimit)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	opts := ListOptions{Limit: MaxLimit + 1}
	if err := opts.Validate(); err == nil {
		t.Error("expected error for limit over max")
	}
	opts = ListOptions{Offset: -1}
	if err := opts.Validate(); err == nil {
		t.Error("expected error for negative offset")
	}
}

func TestSetPagination(t *testing.T) {
	var opts ListOptions
	opts.SetPagination(3, 20)
	if opts.Offset != 40 || opts.Limit != 20 {
		t.Errorf("offset=%d limit=%d, want 40/20", opts.Offset, opts.Limit)
	}
	if opts.Page() != 3 {
		t.Errorf("page = %d, want 3", opts.Page())
	}

	opts.SetPagination(0, 0)
	if opts.Offset != 0 || opts.Limit != DefaultLimit {
		t.Errorf("zero inputs: offset=%d limit=%d", opts.Offset, opts.Limit)
	}
}

func TestNewPaginationResultMiddlePage(t *testing.T) {
	var opts ListOptions
	opts.SetPagination(2, 10)

	items := make([]*int, 10)
	result := NewPaginationResult(items, 25, opts)

	if result.Page != 2 {
		t.Errorf("page = %d, want 2", result.Page)
	}
	if result.TotalPages != 3 {
		t.Errorf("totalPages = %d, want 3", result.TotalPages)
	}
	if !result.HasNextPage {
		t.Error("hasNextPage = false, want true")
	}
	if !result.HasPrevPage {
		t.Error("hasPrevPage = false, want true")
	}
}

func TestNewPaginationResultBounds(t *testing.T) {
	var first ListOptions
	first.SetPagination(1, 10)
	r := NewPaginationResult(make([]*int, 10), 25, first)
	if r.HasPrevPage {
		t.Error("first page should have no previous page")
	}
	if !r.HasNextPage {
		t.Error("first page of 3 should have a next page")
	}

	var last ListOptions
	last.SetPagination(3, 10)
	r = NewPaginationResult(make([]*int, 5), 25, last)
	if r.HasNextPage {
		t.Error("last page should have no next page")
	}
	if !r.HasPrevPage {
		t.Error("last page should have a previous page")
	}

	var empty ListOptions
	empty.SetPagination(1, 10)
	r = NewPaginationResult([]*int{}, 0, empty)
	if r.TotalPages != 0 || r.HasNextPage || r.HasPrevPage {
		t.Errorf("empty result: totalPages=%d next=%v prev=%v", r.TotalPages, r.HasNextPage, r.HasPrevPage)
	}
}

func TestAddFilter(t *testing.T) {
	var opts ListOptions
	opts.AddFilter("status", "submitted")
	opts.AddFilter("student_id", "stu-1")
	if len(opts.Filters) != 2 {
		t.Errorf("filters = %d, want 2", len(opts.Filters))
	}
	if opts.Filters["status"] != "submitted" {
		t.Errorf("status filter = %v", opts.Filters["status"])
	}
}
