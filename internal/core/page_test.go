package core

import (
	"reflect"
	"testing"
)

func TestPager_TotalPages(t *testing.T) {
	tests := []struct {
		name        string
		rowsPerPage int
		total       any
		want        int
	}{
		{"exact multiple", 10, 30, 3},
		{"partial last page", 10, 25, 3},
		{"no rows", 10, 0, 0},
		{"paging disabled", 0, 25, 1},
		{"non-numeric total counts as one row", 10, "lots", 1},
		{"numeric string total", 10, "41", 5},
		{"float total from json", 10, 25.0, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPager(tt.rowsPerPage, 5, -1)
			p.SetTotalRows(tt.total)
			if got := p.TotalPages(); got != tt.want {
				t.Errorf("TotalPages() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPager_ValidatePage(t *testing.T) {
	p := NewPager(10, 5, -1)
	p.SetTotalRows(25)

	tests := []struct {
		in   any
		want int
	}{
		{99, 3},
		{0, 1},
		{-4, 1},
		{"abc", 1},
		{"2", 2},
		{2.7, 2},
		{nil, 1},
		{3, 3},
	}
	for _, tt := range tests {
		if got := p.ValidatePage(tt.in); got != tt.want {
			t.Errorf("ValidatePage(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestPager_ValidatePageWithoutRows(t *testing.T) {
	p := NewPager(10, 5, -1)
	if got := p.ValidatePage(4); got != 1 {
		t.Errorf("ValidatePage(4) on empty = %d, want 1", got)
	}
}

func TestPager_FirstDisplayPage(t *testing.T) {
	p := NewPager(10, 5, 2)
	p.SetTotalRows(200) // 20 pages

	tests := []struct {
		current int
		want    int
	}{
		{1, 1},
		{2, 1},
		{3, 1},
		{4, 2},
		{10, 8},
		{18, 16},
		{19, 16},
		{20, 16},
	}
	for _, tt := range tests {
		if got := p.FirstDisplayPage(tt.current); got != tt.want {
			t.Errorf("FirstDisplayPage(%d) = %d, want %d", tt.current, got, tt.want)
		}
	}
}

func TestPager_FirstDisplayPageFewPages(t *testing.T) {
	p := NewPager(10, 5, 2)
	p.SetTotalRows(25) // 3 pages, window larger than page count

	for current := 1; current <= 3; current++ {
		if got := p.FirstDisplayPage(current); got != 1 {
			t.Errorf("FirstDisplayPage(%d) = %d, want 1", current, got)
		}
	}
}

func TestPager_DisplayPages(t *testing.T) {
	p := NewPager(10, 5, -1)
	p.SetTotalRows(200)
	p.SetPage(10)

	want := []int{8, 9, 10, 11, 12}
	if got := p.DisplayPages(); !reflect.DeepEqual(got, want) {
		t.Errorf("DisplayPages() = %v, want %v", got, want)
	}

	p.SetTotalRows(25)
	p.Revalidate()
	if got := p.DisplayPages(); !reflect.DeepEqual(got, []int{1, 2, 3}) {
		t.Errorf("DisplayPages() after shrink = %v, want [1 2 3]", got)
	}
	if p.CurrentPage() != 3 {
		t.Errorf("CurrentPage() after shrink = %d, want 3", p.CurrentPage())
	}
}

func TestPager_Slice(t *testing.T) {
	rows := make([]Row, 25)
	for i := range rows {
		rows[i] = Row{"i": i}
	}

	p := NewPager(10, 5, -1)
	p.SetTotalRows(len(rows))

	if got := p.Slice(rows); len(got) != 10 || got[0]["i"] != 0 {
		t.Errorf("page 1 = %d rows starting at %v", len(got), got[0]["i"])
	}

	p.SetPage(3)
	got := p.Slice(rows)
	if len(got) != 5 || got[0]["i"] != 20 {
		t.Errorf("page 3 = %d rows starting at %v", len(got), got[0]["i"])
	}

	// Page beyond the data after the dataset shrank.
	if got := p.Slice(rows[:5]); len(got) != 0 {
		t.Errorf("out of range slice = %d rows, want 0", len(got))
	}

	p.SetRowsPerPage(0)
	if got := p.Slice(rows); len(got) != 25 {
		t.Errorf("unpaged slice = %d rows, want 25", len(got))
	}
}

func TestPager_Params(t *testing.T) {
	p := NewPager(20, 5, -1)
	p.SetTotalRows(100)
	p.SetPage(2)

	want := map[string]any{"page": 2, "size": 20}
	if got := p.Params(map[string]any{}); !reflect.DeepEqual(got, want) {
		t.Errorf("Params() = %v, want %v", got, want)
	}
}
