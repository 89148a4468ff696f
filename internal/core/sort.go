package core

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Comparator orders two row values for a direction.
// Empty values sort before any non-empty value in ascending order; Desc
// negates the ascending result.
type Comparator func(a, b any, dir Direction) int

// CompareStrings compares case-insensitively.
func CompareStrings(a, b any, dir Direction) int {
	return directed(compareEmpty(a, b, func() int {
		return strings.Compare(strings.ToUpper(fmt.Sprint(a)), strings.ToUpper(fmt.Sprint(b)))
	}), dir)
}

// CompareNumbers compares numerically. Values that are not numbers
// (after string parsing) are treated as empty.
func CompareNumbers(a, b any, dir Direction) int {
	fa, okA := toFloat(a)
	fb, okB := toFloat(b)
	return directed(compareBy(okA, okB, func() int { return cmpFloat(fa, fb) }), dir)
}

// CompareDates compares by day. Unparseable dates are treated as empty.
func CompareDates(a, b any, dir Direction) int {
	ta, okA := toDate(a)
	tb, okB := toDate(b)
	return directed(compareBy(okA, okB, func() int { return ta.Compare(tb) }), dir)
}

// ComparatorFor returns the comparator for a field type.
func ComparatorFor(ft FieldType) Comparator {
	switch ft {
	case FieldNumber:
		return CompareNumbers
	case FieldDate, FieldDateTime:
		return CompareDates
	default:
		return CompareStrings
	}
}

func compareEmpty(a, b any, cmp func() int) int {
	return compareBy(!isEmptyValue(a), !isEmptyValue(b), cmp)
}

// compareBy orders present values with cmp and puts absent ones first.
func compareBy(presentA, presentB bool, cmp func() int) int {
	switch {
	case !presentA && !presentB:
		return 0
	case !presentA:
		return -1
	case !presentB:
		return 1
	default:
		return cmp()
	}
}

func directed(c int, dir Direction) int {
	if dir == Desc {
		return -c
	}
	return c
}

// SortState is the active sort column.
type SortState struct {
	Column    string
	Direction Direction
	Type      FieldType
}

// Active reports whether a column is sorted.
func (s SortState) Active() bool { return s.Column != "" }

// Sorter holds the single active sort column and the header indicators.
type Sorter struct {
	mu         sync.Mutex
	state      SortState
	comparator Comparator
	indicators map[string]Direction
}

// NewSorter creates a sorter with no active column.
func NewSorter() *Sorter {
	return &Sorter{indicators: make(map[string]Direction)}
}

// SetSort activates column. Any other column's indicator is cleared first.
func (s *Sorter) SetSort(column string, dir Direction, ft FieldType) {
	s.SetSortWith(column, dir, ft, nil)
}

// SetSortWith activates column with a custom comparator. A nil comparator
// uses the one for ft.
func (s *Sorter) SetSortWith(column string, dir Direction, ft FieldType, cmp Comparator) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if dir != Desc {
		dir = Asc
	}
	if cmp == nil {
		cmp = ComparatorFor(ft)
	}

	for col := range s.indicators {
		if col != column {
			delete(s.indicators, col)
		}
	}
	s.indicators[column] = dir
	s.state = SortState{Column: column, Direction: dir, Type: ft}
	s.comparator = cmp
}

// Toggle activates column ascending, or flips its direction when it is
// already active. Returns the new direction.
func (s *Sorter) Toggle(column string, ft FieldType) Direction {
	s.mu.Lock()
	dir := Asc
	if s.state.Column == column && s.state.Direction == Asc {
		dir = Desc
	}
	s.mu.Unlock()

	s.SetSort(column, dir, ft)
	return dir
}

// Clear deactivates sorting.
func (s *Sorter) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = SortState{}
	s.comparator = nil
	s.indicators = make(map[string]Direction)
}

// State returns the active sort.
func (s *Sorter) State() SortState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Indicator returns the direction shown on column's header, or "" if none.
func (s *Sorter) Indicator(column string) Direction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.indicators[column]
}

// SortRows sorts rows in place with the active comparator.
// Without an active column the order is left untouched.
func (s *Sorter) SortRows(rows []Row) {
	s.mu.Lock()
	state, cmp := s.state, s.comparator
	s.mu.Unlock()

	if !state.Active() || cmp == nil {
		return
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return cmp(Lookup(rows[i], state.Column), Lookup(rows[j], state.Column), state.Direction) < 0
	})
}

// Params adds the active sort to a remote query.
func (s *Sorter) Params(p map[string]any) map[string]any {
	state := s.State()
	if !state.Active() {
		return p
	}
	p["sort"] = state.Column
	p["direction"] = string(state.Direction)
	return p
}
