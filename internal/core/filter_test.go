package core

import (
	"reflect"
	"testing"
	"time"
)

func mustCondition(t *testing.T, spec ConditionSpec) Condition {
	t.Helper()
	c, ok := NewCondition(spec)
	if !ok {
		t.Fatalf("NewCondition(%+v) reported absent", spec)
	}
	return c
}

// ----------------------------------------------------------------------------
// Operators
// ----------------------------------------------------------------------------

func TestScalarCondition_Operators(t *testing.T) {
	tests := []struct {
		name     string
		ft       FieldType
		op       Operator
		value    any
		rowValue any
		want     bool
	}{
		{"equals number", FieldNumber, OpEquals, "5", 5, true},
		{"equals number mismatch", FieldNumber, OpEquals, "5", 6, false},
		{"equals string is strict", FieldString, OpEquals, "5", 5, false},
		{"equals string", FieldString, OpEquals, "open", "open", true},
		{"not equals", FieldString, OpNotEquals, "open", "closed", true},
		{"not equals same", FieldNumber, OpNotEquals, 3, 3.0, false},

		{"like substring case-insensitive", FieldString, OpLike, "ab", "CabD", true},
		{"like no match", FieldString, OpLike, "zz", "CabD", false},
		{"like nil row value", FieldString, OpLike, "ab", nil, false},
		{"like empty row value", FieldString, OpLike, "ab", "", false},
		{"like number row value", FieldString, OpLike, "23", 1234, true},

		{"less", FieldNumber, OpLess, "10", 9, true},
		{"less equal boundary", FieldNumber, OpLessEq, "10", 10, true},
		{"greater", FieldNumber, OpGreater, "1", 2, true},
		{"greater false", FieldNumber, OpGreater, "1", 1, false},
		{"greater equal", FieldNumber, OpGreaterEq, "1", 1, true},
		{"greater numeric string row", FieldNumber, OpGreater, "1", "2", true},
		{"less on strings", FieldString, OpLess, "m", "apple", true},
		{"compare incomparable", FieldNumber, OpLess, "10", "abc", false},

		{"between inside", FieldNumber, OpBetween, []any{2, 4}, 3, true},
		{"between upper bound inclusive", FieldNumber, OpBetween, []any{2, 4}, 4, true},
		{"between lower bound inclusive", FieldNumber, OpBetween, []any{2, 4}, 2, true},
		{"between outside", FieldNumber, OpBetween, []any{2, 4}, 5, false},
		{"between strings converted", FieldNumber, OpBetween, []string{"2", "4"}, 3, true},
		{"between malformed bounds", FieldNumber, OpBetween, []any{2}, 3, false},

		{"in member", FieldString, OpIn, []string{"a", "b"}, "b", true},
		{"in non-member", FieldString, OpIn, []string{"a", "b"}, "c", false},
		{"in empty list matches everything", FieldString, OpIn, []any{}, "anything", true},
		{"in empty list matches nil", FieldString, OpIn, []any{}, nil, true},
		{"in numbers", FieldNumber, OpIn, []string{"1", "2"}, 2, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := mustCondition(t, ConditionSpec{Field: "v", FieldType: tt.ft, Operator: tt.op, Value: tt.value})
			if _, ok := c.(ScalarCondition); !ok {
				t.Fatalf("condition is %T, want ScalarCondition", c)
			}
			got := c.Evaluate(tt.rowValue, Row{"v": tt.rowValue})
			if got != tt.want {
				t.Errorf("%s %v against %v = %v, want %v", tt.op, tt.value, tt.rowValue, got, tt.want)
			}
		})
	}
}

func TestDateCondition_IgnoresTimeOfDay(t *testing.T) {
	tests := []struct {
		name     string
		op       Operator
		value    any
		rowValue any
		want     bool
	}{
		{"equals same day different time", OpEquals, "2024-03-05", "2024-03-05 18:30:00", true},
		{"equals time.Time row", OpEquals, "2024-03-05", time.Date(2024, 3, 5, 8, 0, 0, 0, time.Local), true},
		{"less day before", OpLess, "2024-03-05", "2024-03-04 23:59:59", true},
		{"less same day is not less", OpLess, "2024-03-05", "2024-03-05 00:00:01", false},
		{"greater equal same day", OpGreaterEq, "2024-03-05", "2024-03-05T23:00:00", true},
		{"not equals", OpNotEquals, "2024-03-05", "2024-03-06", true},
		{"between", OpBetween, []string{"2024-03-01", "2024-03-31"}, "2024-03-31 12:00:00", true},
		{"between outside", OpBetween, []string{"2024-03-01", "2024-03-31"}, "2024-04-01", false},
		{"in", OpIn, []string{"2024-03-05", "2024-03-07"}, "2024-03-07", true},
		{"unparseable row value", OpEquals, "2024-03-05", "soon", false},
		{"nil row value not equal", OpNotEquals, "2024-03-05", nil, true},
		{"empty row value not equal", OpNotEquals, "2024-03-05", "", true},
		{"nil row value less", OpLess, "2024-03-05", nil, false},
		{"nil row value between", OpBetween, []string{"2024-03-01", "2024-03-31"}, nil, false},
		{"empty row value in list", OpIn, []string{"2024-03-05"}, "", false},
		{"like same day", OpLike, "2024-03-05", "2024-03-05 10:00:00", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := mustCondition(t, ConditionSpec{Field: "d", FieldType: FieldDate, Operator: tt.op, Value: tt.value})
			if _, ok := c.(DateCondition); !ok {
				t.Fatalf("condition is %T, want DateCondition", c)
			}
			if got := c.Evaluate(tt.rowValue, nil); got != tt.want {
				t.Errorf("%s %v against %v = %v, want %v", tt.op, tt.value, tt.rowValue, got, tt.want)
			}
		})
	}
}

// ----------------------------------------------------------------------------
// Construction
// ----------------------------------------------------------------------------

func TestNewCondition_Absent(t *testing.T) {
	tests := []struct {
		name string
		spec ConditionSpec
	}{
		{"nil value", ConditionSpec{Field: "v", Value: nil}},
		{"empty string", ConditionSpec{Field: "v", Value: ""}},
		{"unparseable number", ConditionSpec{Field: "v", FieldType: FieldNumber, Value: "abc"}},
		{"unparseable date", ConditionSpec{Field: "v", FieldType: FieldDate, Value: "someday"}},
		{"bad range element", ConditionSpec{Field: "v", FieldType: FieldNumber, Operator: OpBetween, Value: []any{"1", "?"}}},
		{"empty string with function", ConditionSpec{Field: "v", Value: "", Func: func(_, _ any, _ Row, _ any) bool { return false }}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if c, ok := NewCondition(tt.spec); ok {
				t.Errorf("NewCondition() = %v, want absent", c)
			}
		})
	}
}

func TestNewCondition_FunctionVariant(t *testing.T) {
	var gotValue, gotParams any
	fn := func(value, rowValue any, row Row, params any) bool {
		gotValue, gotParams = value, params
		return rowValue == row["v"]
	}

	c := mustCondition(t, ConditionSpec{
		Field:     "v",
		FieldType: FieldNumber, // ignored for function filters
		Func:      fn,
		Value:     "not-a-number",
		Params:    map[string]any{"k": 1},
	})
	if _, ok := c.(FunctionCondition); !ok {
		t.Fatalf("condition is %T, want FunctionCondition", c)
	}
	if !c.Evaluate(3, Row{"v": 3}) {
		t.Error("function condition should pass")
	}
	if gotValue != "not-a-number" {
		t.Errorf("value = %v, want raw unconverted value", gotValue)
	}
	if !reflect.DeepEqual(gotParams, map[string]any{"k": 1}) {
		t.Errorf("params = %v", gotParams)
	}
}

func TestNewCondition_DefaultOperatorIsEquals(t *testing.T) {
	c := mustCondition(t, ConditionSpec{Field: "v", Value: "x"})
	if !c.Evaluate("x", nil) || c.Evaluate("y", nil) {
		t.Error("default operator should be equality")
	}
}

// ----------------------------------------------------------------------------
// ApplyFilters
// ----------------------------------------------------------------------------

func TestApplyFilters_AllConditionsMustHold(t *testing.T) {
	rows := []Row{
		{"name": "alpha", "qty": 1},
		{"name": "beta", "qty": 5},
		{"name": "alphabet", "qty": 9},
	}
	conds := []Condition{
		mustCondition(t, ConditionSpec{Field: "name", Operator: OpLike, Value: "alpha"}),
		mustCondition(t, ConditionSpec{Field: "qty", FieldType: FieldNumber, Operator: OpGreater, Value: "2"}),
	}

	got := ApplyFilters(rows, conds)
	if len(got) != 1 || got[0]["name"] != "alphabet" {
		t.Errorf("ApplyFilters() = %v, want only alphabet", got)
	}
}

func TestApplyFilters_DateRowsWithoutDate(t *testing.T) {
	rows := []Row{{"d": "2024-01-02"}, {"d": ""}, {}}

	tests := []struct {
		name string
		ft   FieldType
		op   Operator
		val  any
		want int
	}{
		{"date in empty list keeps all", FieldDate, OpIn, []any{}, 3},
		{"datetime in empty list keeps all", FieldDateTime, OpIn, []any{}, 3},
		{"string in empty list keeps all", FieldString, OpIn, []any{}, 3},
		{"date not equal keeps rows without date", FieldDate, OpNotEquals, "2024-01-02", 2},
		{"date equal", FieldDate, OpEquals, "2024-01-02", 1},
		{"date greater drops rows without date", FieldDate, OpGreater, "2023-12-31", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := mustCondition(t, ConditionSpec{Field: "d", FieldType: tt.ft, Operator: tt.op, Value: tt.val})
			if got := ApplyFilters(rows, []Condition{c}); len(got) != tt.want {
				t.Errorf("kept %d rows, want %d", len(got), tt.want)
			}
		})
	}
}

func TestApplyFilters_NoConditionsKeepsAll(t *testing.T) {
	rows := []Row{{"a": 1}, {"a": 2}}
	if got := ApplyFilters(rows, nil); len(got) != 2 {
		t.Errorf("len = %d, want 2", len(got))
	}
}

func TestApplyFilters_NestedField(t *testing.T) {
	rows := []Row{
		{"owner": map[string]any{"name": "Dana"}},
		{"owner": map[string]any{"name": "Lee"}},
	}
	c := mustCondition(t, ConditionSpec{Field: "owner.name", Operator: OpEquals, Value: "Lee"})

	got := ApplyFilters(rows, []Condition{c})
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
}

// ----------------------------------------------------------------------------
// FilterSet
// ----------------------------------------------------------------------------

func TestFilterSet_ProgrammaticReplacesByField(t *testing.T) {
	fs := NewFilterSet()
	fs.Set(ConditionSpec{Field: "status", Operator: OpEquals, Value: "open"})
	fs.Set(ConditionSpec{Field: "qty", FieldType: FieldNumber, Operator: OpGreater, Value: 1})
	fs.Set(ConditionSpec{Field: "status", Operator: OpEquals, Value: "closed"})

	specs := fs.Programmatic()
	if len(specs) != 2 {
		t.Fatalf("len = %d, want 2", len(specs))
	}
	if specs[0].Field != "status" || specs[0].Value != "closed" {
		t.Errorf("first = %+v, want status=closed in original position", specs[0])
	}

	if !fs.Remove("status") {
		t.Error("Remove(status) = false")
	}
	if fs.Remove("status") {
		t.Error("second Remove(status) = true")
	}
	if got := len(fs.Programmatic()); got != 1 {
		t.Errorf("len after remove = %d, want 1", got)
	}
}

func TestFilterSet_HeaderControlsReadEachCycle(t *testing.T) {
	fs := NewFilterSet()
	input := ""
	reads := 0
	fs.AddHeader(HeaderFilter{
		Field:    "name",
		Operator: OpLike,
		Control: ControlFunc(func() any {
			reads++
			return input
		}),
	})

	if got := fs.Conditions(); len(got) != 0 {
		t.Errorf("empty control should yield no condition, got %v", got)
	}

	input = "al"
	conds := fs.Conditions()
	if len(conds) != 1 {
		t.Fatalf("len = %d, want 1", len(conds))
	}
	if reads != 2 {
		t.Errorf("control read %d times, want once per cycle", reads)
	}
}

func TestFilterSet_Values(t *testing.T) {
	fs := NewFilterSet()
	fs.AddHeader(HeaderFilter{Field: "name", Control: ControlFunc(func() any { return "al" })})
	fs.AddHeader(HeaderFilter{Field: "blank", Control: ControlFunc(func() any { return "" })})
	fs.Set(ConditionSpec{Field: "tags", Operator: OpIn, Value: []string{"a", "b"}})
	fs.Set(ConditionSpec{Field: "custom", Value: "x", Func: func(_, _ any, _ Row, _ any) bool { return true }})

	want := map[string]any{"name": "al", "tags": []string{"a", "b"}}
	if got := fs.Values(); !reflect.DeepEqual(got, want) {
		t.Errorf("Values() = %v, want %v", got, want)
	}
}
