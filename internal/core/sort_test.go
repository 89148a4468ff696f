package core

import (
	"reflect"
	"testing"
)

func TestComparators(t *testing.T) {
	tests := []struct {
		name string
		cmp  Comparator
		a, b any
		dir  Direction
		want int
	}{
		{"strings case-insensitive equal", CompareStrings, "abc", "ABC", Asc, 0},
		{"strings ordered", CompareStrings, "apple", "Banana", Asc, -1},
		{"strings desc negates", CompareStrings, "apple", "Banana", Desc, 1},
		{"empty string first", CompareStrings, "", "a", Asc, -1},
		{"nil first", CompareStrings, "a", nil, Asc, 1},
		{"both empty equal", CompareStrings, nil, "", Asc, 0},
		{"empty last when desc", CompareStrings, "", "a", Desc, 1},

		{"numbers", CompareNumbers, 2, 10, Asc, -1},
		{"numbers from strings", CompareNumbers, "10", "9", Asc, 1},
		{"zero is a value", CompareNumbers, 0, nil, Asc, 1},
		{"non-numeric is empty", CompareNumbers, "n/a", 1, Asc, -1},
		{"numbers desc", CompareNumbers, 2, 10, Desc, 1},

		{"dates", CompareDates, "2024-01-02", "2023-12-31", Asc, 1},
		{"same day equal", CompareDates, "2024-01-02 08:00:00", "2024-01-02", Asc, 0},
		{"unparseable date is empty", CompareDates, "tbd", "2024-01-02", Asc, -1},
		{"both unparseable equal", CompareDates, "tbd", "", Asc, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cmp(tt.a, tt.b, tt.dir); got != tt.want {
				t.Errorf("compare(%v, %v, %s) = %d, want %d", tt.a, tt.b, tt.dir, got, tt.want)
			}
		})
	}
}

func TestSorter_SortRows(t *testing.T) {
	rows := []Row{{"v": 3}, {"v": nil}, {"v": 1}, {"v": 2}}
	s := NewSorter()
	s.SetSort("v", Desc, FieldNumber)
	s.SortRows(rows)

	got := make([]any, len(rows))
	for i, r := range rows {
		got[i] = r["v"]
	}
	want := []any{3, 2, 1, nil}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("sorted = %v, want %v", got, want)
	}
}

func TestSorter_InactiveLeavesOrder(t *testing.T) {
	rows := []Row{{"v": 2}, {"v": 1}}
	NewSorter().SortRows(rows)
	if rows[0]["v"] != 2 {
		t.Error("rows reordered without an active sort")
	}
}

func TestSorter_SingleActiveColumn(t *testing.T) {
	s := NewSorter()
	s.SetSort("name", Asc, FieldString)
	s.SetSort("qty", Desc, FieldNumber)

	if got := s.Indicator("name"); got != "" {
		t.Errorf("Indicator(name) = %q, want cleared", got)
	}
	if got := s.Indicator("qty"); got != Desc {
		t.Errorf("Indicator(qty) = %q, want desc", got)
	}
	if st := s.State(); st.Column != "qty" || st.Direction != Desc || st.Type != FieldNumber {
		t.Errorf("State() = %+v", st)
	}
}

func TestSorter_Toggle(t *testing.T) {
	s := NewSorter()

	if dir := s.Toggle("name", FieldString); dir != Asc {
		t.Errorf("first toggle = %s, want asc", dir)
	}
	if dir := s.Toggle("name", FieldString); dir != Desc {
		t.Errorf("second toggle = %s, want desc", dir)
	}
	if dir := s.Toggle("name", FieldString); dir != Asc {
		t.Errorf("third toggle = %s, want asc", dir)
	}
	if dir := s.Toggle("qty", FieldNumber); dir != Asc {
		t.Errorf("new column = %s, want asc", dir)
	}
	if s.Indicator("name") != "" {
		t.Error("previous column indicator not cleared")
	}
}

func TestSorter_Params(t *testing.T) {
	s := NewSorter()
	if got := s.Params(map[string]any{}); len(got) != 0 {
		t.Errorf("inactive sorter params = %v, want empty", got)
	}

	s.SetSort("name", Desc, FieldString)
	want := map[string]any{"sort": "name", "direction": "desc"}
	if got := s.Params(map[string]any{}); !reflect.DeepEqual(got, want) {
		t.Errorf("Params() = %v, want %v", got, want)
	}

	s.Clear()
	if s.State().Active() {
		t.Error("Clear() left a column active")
	}
}

func TestSorter_CustomComparator(t *testing.T) {
	// Sort by string length.
	byLen := func(a, b any, dir Direction) int {
		la, lb := len(a.(string)), len(b.(string))
		return directed(cmpFloat(float64(la), float64(lb)), dir)
	}
	rows := []Row{{"s": "ccc"}, {"s": "a"}, {"s": "bb"}}

	s := NewSorter()
	s.SetSortWith("s", Asc, FieldString, byLen)
	s.SortRows(rows)

	if rows[0]["s"] != "a" || rows[2]["s"] != "ccc" {
		t.Errorf("custom sort = %v", rows)
	}
}
