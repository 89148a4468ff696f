package core

import (
	"math"
	"strconv"
	"strings"
	"sync"
)

// PageState is the pagination state of a grid.
type PageState struct {
	CurrentPage    int
	RowsPerPage    int
	TotalRows      int
	PagesToDisplay int
}

// Pager does page-count and button-window math.
type Pager struct {
	mu             sync.Mutex
	currentPage    int
	rowsPerPage    int
	totalRows      int
	pagesToDisplay int
	offset         int
}

// NewPager creates a pager on page 1.
// pagesToDisplay is the button window size; offset is how many buttons sit
// before the current page when the window is centred. A negative offset
// centres the window (pagesToDisplay/2).
func NewPager(rowsPerPage, pagesToDisplay, offset int) *Pager {
	if rowsPerPage < 0 {
		rowsPerPage = 0
	}
	if pagesToDisplay < 1 {
		pagesToDisplay = 1
	}
	if offset < 0 {
		offset = pagesToDisplay / 2
	}
	return &Pager{
		currentPage:    1,
		rowsPerPage:    rowsPerPage,
		pagesToDisplay: pagesToDisplay,
		offset:         offset,
	}
}

// State returns a copy of the current state.
func (p *Pager) State() PageState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PageState{
		CurrentPage:    p.currentPage,
		RowsPerPage:    p.rowsPerPage,
		TotalRows:      p.totalRows,
		PagesToDisplay: p.pagesToDisplay,
	}
}

// SetTotalRows records the number of rows being paged. Values that are not
// numeric (a remote source reporting garbage) count as 1.
func (p *Pager) SetTotalRows(total any) {
	n, ok := toInt(total)
	if !ok || n < 0 {
		n = 1
	}
	p.mu.Lock()
	p.totalRows = n
	p.mu.Unlock()
}

// SetRowsPerPage changes the page size. 0 disables paging.
func (p *Pager) SetRowsPerPage(n int) {
	if n < 0 {
		n = 0
	}
	p.mu.Lock()
	p.rowsPerPage = n
	p.mu.Unlock()
}

// CurrentPage returns the current page number.
func (p *Pager) CurrentPage() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.currentPage
}

// TotalPages returns ceil(totalRows / rowsPerPage). A page size of 0 means
// everything is on one page.
func (p *Pager) TotalPages() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.totalPages()
}

func (p *Pager) totalPages() int {
	if p.rowsPerPage == 0 {
		return 1
	}
	return int(math.Ceil(float64(p.totalRows) / float64(p.rowsPerPage)))
}

// ValidatePage coerces n to an integer and clamps it to [1, TotalPages()].
// Invalid and non-positive input resolves to 1.
func (p *Pager) ValidatePage(n any) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.validate(n)
}

func (p *Pager) validate(n any) int {
	page, ok := toInt(n)
	if !ok || page < 1 {
		return 1
	}
	if last := p.totalPages(); page > last {
		page = max(last, 1)
	}
	return page
}

// SetPage moves to page n after validation and returns the page set.
func (p *Pager) SetPage(n any) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.currentPage = p.validate(n)
	return p.currentPage
}

// Revalidate clamps the current page against the current total, e.g.
// after a filter shrank the dataset.
func (p *Pager) Revalidate() int {
	return p.SetPage(p.CurrentPage())
}

// FirstDisplayPage returns the first page number of the button window
// around current. The window is centred where possible and never runs past
// the last page.
func (p *Pager) FirstDisplayPage(current int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.firstDisplayPage(current)
}

func (p *Pager) firstDisplayPage(current int) int {
	last := p.totalPages()
	first := current - p.offset
	if first+p.pagesToDisplay-1 > last {
		first = last - p.pagesToDisplay + 1
	}
	if first < 1 {
		first = 1
	}
	return first
}

// DisplayPages lists the page numbers of the button window around the
// current page.
func (p *Pager) DisplayPages() []int {
	p.mu.Lock()
	defer p.mu.Unlock()

	last := max(p.totalPages(), 1)
	first := p.firstDisplayPage(p.currentPage)
	pages := make([]int, 0, p.pagesToDisplay)
	for n := first; n <= last && len(pages) < p.pagesToDisplay; n++ {
		pages = append(pages, n)
	}
	return pages
}

// Slice returns the current page's window of rows.
func (p *Pager) Slice(rows []Row) []Row {
	p.mu.Lock()
	page, size := p.currentPage, p.rowsPerPage
	p.mu.Unlock()

	if size == 0 {
		return rows
	}
	start := (page - 1) * size
	if start >= len(rows) {
		return []Row{}
	}
	end := min(start+size, len(rows))
	return rows[start:end]
}

// Params adds the current page (and page size) to a remote query.
func (p *Pager) Params(params map[string]any) map[string]any {
	state := p.State()
	params["page"] = state.CurrentPage
	if state.RowsPerPage > 0 {
		params["size"] = state.RowsPerPage
	}
	return params
}

// toInt coerces numbers and numeric strings to int, truncating fractions.
func toInt(v any) (int, bool) {
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		if i, err := strconv.Atoi(s); err == nil {
			return i, true
		}
	}
	f, ok := toFloat(v)
	if !ok || math.IsInf(f, 0) {
		return 0, false
	}
	return int(f), true
}
