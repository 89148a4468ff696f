package core

import "testing"

func TestExprFilters_Compile(t *testing.T) {
	e := NewExprFilters()

	fn, err := e.Compile(`field >= value && row.status == "open"`)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	tests := []struct {
		name string
		row  Row
		want bool
	}{
		{"passes", Row{"qty": 10, "status": "open"}, true},
		{"too small", Row{"qty": 2, "status": "open"}, false},
		{"closed", Row{"qty": 10, "status": "closed"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := fn(5, tt.row["qty"], tt.row, nil); got != tt.want {
				t.Errorf("fn() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExprFilters_Params(t *testing.T) {
	fn, err := NewExprFilters().Compile(`field in params.allowed`)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	params := map[string]any{"allowed": []any{"a", "b"}}
	if !fn(nil, "a", Row{}, params) {
		t.Error("a should be allowed")
	}
	if fn(nil, "z", Row{}, params) {
		t.Error("z should not be allowed")
	}
}

func TestExprFilters_CompileError(t *testing.T) {
	if _, err := NewExprFilters().Compile(`field >=`); err == nil {
		t.Error("Compile() of a broken expression should fail")
	}
}

func TestExprFilters_RuntimeErrorFailsRow(t *testing.T) {
	fn, err := NewExprFilters().Compile(`field > value`)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	// Comparing a string with a number is a runtime error in expr.
	if fn(1, "abc", Row{}, nil) {
		t.Error("runtime error should fail the row")
	}
}

func TestExprFilters_AsCondition(t *testing.T) {
	fn, err := NewExprFilters().Compile(`len(field) > value`)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	c, ok := NewCondition(ConditionSpec{Field: "name", Func: fn, Value: 3})
	if !ok {
		t.Fatal("expected a function condition")
	}
	rows := []Row{{"name": "abc"}, {"name": "abcdef"}}
	if got := ApplyFilters(rows, []Condition{c}); len(got) != 1 || got[0]["name"] != "abcdef" {
		t.Errorf("ApplyFilters() = %v", got)
	}
}
