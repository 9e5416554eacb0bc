package table

// View is the render-ready state of a table, consumed by the HTML templates
// and returned as JSON to the front end.
type View struct {
	Columns    []HeaderView   `json:"columns"`
	Rows       []RowView      `json:"rows"`
	Empty      bool           `json:"empty"`
	EmptyText  string         `json:"empty_text,omitempty"`
	Colspan    int            `json:"colspan"`
	SearchKey  string         `json:"search_key,omitempty"`
	Filter     string         `json:"filter"`
	Manual     bool           `json:"manual"`
	Pagination PaginationView `json:"pagination"`
}

type HeaderView struct {
	Key       string `json:"key"`
	Label     string `json:"label"`
	Sortable  bool   `json:"sortable"`
	Direction string `json:"direction,omitempty"`
	Indicator string `json:"indicator,omitempty"`
}

type RowView struct {
	ID    string   `json:"id,omitempty"`
	Cells []string `json:"cells"`
	Class string   `json:"class"`
}

type PaginationView struct {
	PageIndex       int   `json:"page_index"`
	Page            int   `json:"page"`
	PageSize        int   `json:"page_size"`
	PageCount       int   `json:"page_count"`
	TotalRows       int   `json:"total_rows"`
	PageSizeOptions []int `json:"page_size_options"`
	Pages           []int `json:"pages"`
	ShowLast        bool  `json:"show_last"`
	LastPage        int   `json:"last_page"`
	CanPrevious     bool  `json:"can_previous"`
	CanNext         bool  `json:"can_next"`
}

func indicator(sortable bool, dir SortDirection) string {
	switch {
	case dir == SortAsc:
		return "↑"
	case dir == SortDesc:
		return "↓"
	case sortable:
		return "↕"
	default:
		return ""
	}
}

func (t *Table[T]) Render() View {
	v := View{
		Colspan:   len(t.columns),
		SearchKey: t.searchKey,
		Filter:    t.filter,
		Manual:    t.manual,
	}
	for _, c := range t.columns {
		dir := SortNone
		if t.sort.Key == c.Key {
			dir = t.sort.Direction
		}
		v.Columns = append(v.Columns, HeaderView{
			Key:       c.Key,
			Label:     c.Header,
			Sortable:  c.Sortable,
			Direction: dir.String(),
			Indicator: indicator(c.Sortable, dir),
		})
	}

	rows := t.Rows()
	v.Rows = make([]RowView, 0, len(rows))
	for i, row := range rows {
		cells := make([]string, len(t.columns))
		for j, c := range t.columns {
			cells[j] = c.render(row)
		}
		class := "row-even"
		if i%2 == 1 {
			class = "row-odd"
		}
		if t.rowClass != nil {
			if extra := t.rowClass(row, i); extra != "" {
				class += " " + extra
			}
		}
		rv := RowView{Cells: cells, Class: class}
		if t.rowID != nil {
			rv.ID = t.rowID(row)
		}
		v.Rows = append(v.Rows, rv)
	}
	if len(v.Rows) == 0 {
		v.Empty = true
		v.EmptyText = EmptyText
	}

	count := t.PageCount()
	pages, showLast := pageWindow(t.pageIndex, count)
	total := t.totalRows
	if !t.manual {
		total = len(t.FilteredRows())
	} else if total == 0 {
		total = len(rows)
	}
	v.Pagination = PaginationView{
		PageIndex:       t.pageIndex,
		Page:            t.pageIndex + 1,
		PageSize:        t.pageSize,
		PageCount:       count,
		TotalRows:       total,
		PageSizeOptions: PageSizeOptions,
		Pages:           pages,
		ShowLast:        showLast,
		LastPage:        count,
		CanPrevious:     t.CanPreviousPage(),
		CanNext:         t.CanNextPage(),
	}
	return v
}

// pageWindow returns up to five 1-based page numbers around current and
// whether a separate jump-to-last control is needed.
func pageWindow(current, count int) ([]int, bool) {
	n := min(maxPageButtons, count)
	start := current - maxPageButtons/2
	if start > count-n {
		start = count - n
	}
	if start < 0 {
		start = 0
	}
	pages := make([]int, 0, n)
	for i := start; i < start+n; i++ {
		pages = append(pages, i+1)
	}
	return pages, start+n < count
}
