// Package table implements the generic data table used by every list screen.
//
// A Table runs in one of two pagination modes. In client mode (the default)
// it owns the page index and page size and filters, sorts and slices the full
// row set in memory. In manual mode the caller has already fetched the right
// page; the table filters and sorts what it was given, never slices, and
// reports every pagination change through OnPaginationChange.
package table

import (
	"errors"
	"net/url"
	"slices"
	"sort"
	"strconv"
	"strings"
)

// PageSizeOptions are the sizes offered by the page-size selector.
var PageSizeOptions = []int{7, 10, 20, 30, 40, 50}

const (
	DefaultPageSize = 10
	EmptyText       = "No results"
	maxPageButtons  = 5
)

var ErrInvalidPageSize = errors.New("page size is not one of the allowed options")

type SortDirection int

const (
	SortNone SortDirection = iota
	SortAsc
	SortDesc
)

func (d SortDirection) String() string {
	switch d {
	case SortAsc:
		return "asc"
	case SortDesc:
		return "desc"
	default:
		return ""
	}
}

// ParseSortDirection is the inverse of String; anything else is SortNone.
func ParseSortDirection(s string) SortDirection {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "asc":
		return SortAsc
	case "desc":
		return SortDesc
	default:
		return SortNone
	}
}

// next walks the header-click cycle: unsorted -> asc -> desc -> unsorted.
func (d SortDirection) next() SortDirection {
	switch d {
	case SortNone:
		return SortAsc
	case SortAsc:
		return SortDesc
	default:
		return SortNone
	}
}

// Column describes one table column over rows of type T.
type Column[T any] struct {
	Key      string
	Header   string
	Accessor func(T) any
	// Cell overrides the rendered text. Sorting and filtering still use Accessor.
	Cell     func(T) string
	Sortable bool
}

func (c Column[T]) value(row T) any {
	if c.Accessor == nil {
		return nil
	}
	return c.Accessor(row)
}

func (c Column[T]) render(row T) string {
	if c.Cell != nil {
		return c.Cell(row)
	}
	return FormatValue(c.value(row))
}

// Pagination is the state reported to OnPaginationChange.
type Pagination struct {
	PageIndex int `json:"page_index"`
	PageSize  int `json:"page_size"`
}

type Sort struct {
	Key       string
	Direction SortDirection
}

type Options[T any] struct {
	Columns []Column[T]
	// SearchKey names the single column the free-text filter applies to.
	SearchKey string

	Manual    bool
	PageIndex int
	PageSize  int
	// PageCount and TotalRows are only read in manual mode.
	PageCount          int
	TotalRows          int
	OnPaginationChange func(Pagination)

	RowClass func(row T, index int) string
	// RowID keys rendered rows so actions can address them.
	RowID func(row T) string
}

type Table[T any] struct {
	columns   []Column[T]
	rows      []T
	searchKey string
	manual    bool
	pageCount int
	totalRows int
	onChange  func(Pagination)
	rowClass  func(T, int) string
	rowID     func(T) string

	pageIndex int
	pageSize  int
	sort      Sort
	filter    string
}

func New[T any](rows []T, opts Options[T]) *Table[T] {
	size := opts.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	t := &Table[T]{
		columns:   opts.Columns,
		rows:      rows,
		searchKey: opts.SearchKey,
		manual:    opts.Manual,
		pageCount: opts.PageCount,
		totalRows: opts.TotalRows,
		onChange:  opts.OnPaginationChange,
		rowClass:  opts.RowClass,
		rowID:     opts.RowID,
		pageSize:  size,
	}
	t.pageIndex = t.clampIndex(opts.PageIndex)
	return t
}

func (t *Table[T]) column(key string) (Column[T], bool) {
	for _, c := range t.columns {
		if c.Key == key {
			return c, true
		}
	}
	return Column[T]{}, false
}

// ToggleSort advances the sort cycle of a sortable column. Clicking a
// different column starts that column at ascending. It reports whether the
// column takes part in sorting at all.
func (t *Table[T]) ToggleSort(key string) bool {
	col, ok := t.column(key)
	if !ok || !col.Sortable {
		return false
	}
	dir := SortAsc
	if t.sort.Key == key {
		dir = t.sort.Direction.next()
	}
	t.applySort(key, dir)
	return true
}

// SetSort sets the sort state directly, as when restoring it from a URL.
func (t *Table[T]) SetSort(key string, dir SortDirection) bool {
	col, ok := t.column(key)
	if !ok || !col.Sortable {
		return false
	}
	t.applySort(key, dir)
	return true
}

func (t *Table[T]) applySort(key string, dir SortDirection) {
	if dir == SortNone {
		t.sort = Sort{}
	} else {
		t.sort = Sort{Key: key, Direction: dir}
	}
	if !t.manual {
		t.pageIndex = 0
	}
}

func (t *Table[T]) Sort() Sort { return t.sort }

func (t *Table[T]) SetFilter(q string) {
	t.filter = q
	if !t.manual {
		t.pageIndex = 0
	}
}

func (t *Table[T]) Filter() string { return t.filter }

// SetPageSize changes the page size and returns to the first page.
func (t *Table[T]) SetPageSize(n int) error {
	if !slices.Contains(PageSizeOptions, n) {
		return ErrInvalidPageSize
	}
	t.setPagination(0, n)
	return nil
}

func (t *Table[T]) SetPageIndex(i int) { t.setPagination(i, t.pageSize) }

func (t *Table[T]) NextPage() {
	if t.CanNextPage() {
		t.setPagination(t.pageIndex+1, t.pageSize)
	}
}

func (t *Table[T]) PreviousPage() {
	if t.CanPreviousPage() {
		t.setPagination(t.pageIndex-1, t.pageSize)
	}
}

func (t *Table[T]) LastPage() { t.setPagination(t.PageCount()-1, t.pageSize) }

func (t *Table[T]) CanPreviousPage() bool { return t.pageIndex > 0 }

func (t *Table[T]) CanNextPage() bool { return t.pageIndex < t.PageCount()-1 }

func (t *Table[T]) PageIndex() int { return t.pageIndex }

func (t *Table[T]) PageSize() int { return t.pageSize }

func (t *Table[T]) setPagination(index, size int) {
	prev := Pagination{PageIndex: t.pageIndex, PageSize: t.pageSize}
	t.pageSize = size
	t.pageIndex = t.clampIndex(index)
	next := Pagination{PageIndex: t.pageIndex, PageSize: t.pageSize}
	if t.manual && t.onChange != nil && next != prev {
		t.onChange(next)
	}
}

func (t *Table[T]) clampIndex(i int) int {
	if i < 0 {
		return 0
	}
	if last := t.PageCount() - 1; i > last {
		return last
	}
	return i
}

// PageCount is never less than one, so an empty table still shows page 1.
func (t *Table[T]) PageCount() int {
	n := t.pageCount
	if !t.manual {
		rows := len(t.FilteredRows())
		n = (rows + t.pageSize - 1) / t.pageSize
	}
	if n < 1 {
		return 1
	}
	return n
}

// FilteredRows returns the filtered and sorted rows before any slicing. The
// filter is matched as typed, surrounding spaces included.
func (t *Table[T]) FilteredRows() []T {
	out := make([]T, 0, len(t.rows))
	q := strings.ToLower(t.filter)
	search, searchable := t.column(t.searchKey)
	for _, row := range t.rows {
		if q != "" && searchable && !strings.Contains(strings.ToLower(FormatValue(search.value(row))), q) {
			continue
		}
		out = append(out, row)
	}
	if t.sort.Direction == SortNone {
		return out
	}
	col, ok := t.column(t.sort.Key)
	if !ok {
		return out
	}
	desc := t.sort.Direction == SortDesc
	sort.SliceStable(out, func(i, j int) bool {
		c := CompareValues(col.value(out[i]), col.value(out[j]))
		if desc {
			return c > 0
		}
		return c < 0
	})
	return out
}

// Rows returns the rows of the current page.
func (t *Table[T]) Rows() []T {
	rows := t.FilteredRows()
	if t.manual {
		return rows
	}
	start := t.pageIndex * t.pageSize
	if start >= len(rows) {
		return rows[:0]
	}
	end := min(start+t.pageSize, len(rows))
	return rows[start:end]
}

// ApplyQuery restores table state from request parameters: q, sort, dir,
// size and a 1-based page. Unknown or invalid values are ignored.
func (t *Table[T]) ApplyQuery(v url.Values) {
	if q := v.Get("q"); q != "" {
		t.SetFilter(q)
	}
	if key := v.Get("sort"); key != "" {
		t.SetSort(key, ParseSortDirection(v.Get("dir")))
	}
	if raw := v.Get("size"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			_ = t.SetPageSize(n)
		}
	}
	if raw := v.Get("page"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			t.SetPageIndex(n - 1)
		}
	}
}
