package core

// filter.go builds typed filter conditions and evaluates them against rows.
//
// A condition is resolved once, at construction, into one of three variants:
//
//   - ScalarCondition: relational operators on strings, numbers and objects
//   - DateCondition: the same operators on values normalised to midnight
//   - FunctionCondition: an opaque predicate supplied by the caller
//
// Conditions combine with AND. Filtering always starts from the snapshot so
// re-applying the same set is idempotent.

import (
	"fmt"
	"reflect"
	"strings"
	"time"
)

// FilterFunc is a caller-supplied predicate. value is the filter value as
// given (not type-converted), rowValue the row's value for the field.
type FilterFunc func(value, rowValue any, row Row, params any) bool

// Condition is a compiled filter condition.
type Condition interface {
	// Field returns the row field the condition reads.
	Field() string
	// Evaluate reports whether the row passes.
	Evaluate(rowValue any, row Row) bool
}

// ConditionSpec is raw filter input before compilation.
type ConditionSpec struct {
	Field     string
	FieldType FieldType
	Operator  Operator
	Func      FilterFunc // takes precedence over Operator
	Value     any
	Params    any
}

// NewCondition compiles spec. ok is false when the condition is absent:
// the value is nil or the empty string, or type conversion failed.
func NewCondition(spec ConditionSpec) (cond Condition, ok bool) {
	if isEmptyValue(spec.Value) {
		return nil, false
	}

	if spec.Func != nil {
		return FunctionCondition{
			field:  spec.Field,
			fn:     spec.Func,
			value:  spec.Value,
			params: spec.Params,
		}, true
	}

	op := spec.Operator
	if op == "" {
		op = OpEquals
	}

	value := ConvertToType(spec.Value, spec.FieldType)
	if value == nil {
		return nil, false
	}

	if spec.FieldType.IsTemporal() {
		return DateCondition{field: spec.Field, op: op, value: value}, true
	}
	return ScalarCondition{field: spec.Field, fieldType: spec.FieldType, op: op, value: value}, true
}

// ScalarCondition compares row values with an operator.
type ScalarCondition struct {
	field     string
	fieldType FieldType
	op        Operator
	value     any
}

func (c ScalarCondition) Field() string { return c.field }

func (c ScalarCondition) Evaluate(rowValue any, _ Row) bool {
	return evaluate(c.op, c.value, rowValue, compareScalar, strictEqual, likeScalar)
}

func (c ScalarCondition) String() string {
	return fmt.Sprintf("%s %s %v", c.field, c.op, c.value)
}

// DateCondition compares row values as days, ignoring time of day.
type DateCondition struct {
	field string
	op    Operator
	value any
}

func (c DateCondition) Field() string { return c.field }

// Evaluate treats a row value that is not a date as empty: it never equals,
// orders or matches a date, so != keeps it and an empty in list keeps it.
func (c DateCondition) Evaluate(rowValue any, _ Row) bool {
	return evaluate(c.op, c.value, rowValue, compareDates, equalDates, likeDate)
}

func (c DateCondition) String() string {
	return fmt.Sprintf("%s %s %v", c.field, c.op, c.value)
}

// FunctionCondition delegates to a caller-supplied predicate.
type FunctionCondition struct {
	field  string
	fn     FilterFunc
	value  any
	params any
}

func (c FunctionCondition) Field() string { return c.field }

func (c FunctionCondition) Evaluate(rowValue any, row Row) bool {
	return c.fn(c.value, rowValue, row, c.params)
}

// compareFunc orders a row value against a filter value:
// negative, zero, positive; ok is false when they are not comparable.
type compareFunc func(rowValue, filterValue any) (int, bool)

type equalFunc func(rowValue, filterValue any) bool

type likeFunc func(rowValue, filterValue any) bool

// evaluate implements the operator set shared by scalar and date conditions.
func evaluate(op Operator, filterValue, rowValue any, cmp compareFunc, eq equalFunc, like likeFunc) bool {
	switch op {
	case OpEquals:
		return eq(rowValue, filterValue)
	case OpNotEquals:
		return !eq(rowValue, filterValue)
	case OpLike:
		return like(rowValue, filterValue)
	case OpLess, OpLessEq, OpGreater, OpGreaterEq:
		c, ok := cmp(rowValue, filterValue)
		if !ok {
			return false
		}
		switch op {
		case OpLess:
			return c < 0
		case OpLessEq:
			return c <= 0
		case OpGreater:
			return c > 0
		default:
			return c >= 0
		}
	case OpBetween:
		bounds, ok := sliceItems(filterValue)
		if !ok || len(bounds) != 2 {
			return false
		}
		lo, okLo := cmp(rowValue, bounds[0])
		hi, okHi := cmp(rowValue, bounds[1])
		return okLo && okHi && lo >= 0 && hi <= 0
	case OpIn:
		items, ok := sliceItems(filterValue)
		if !ok {
			return eq(rowValue, filterValue)
		}
		if len(items) == 0 {
			return true
		}
		for _, item := range items {
			if eq(rowValue, item) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// strictEqual is equality without cross-type coercion, except that all Go
// number types compare by value.
func strictEqual(a, b any) bool {
	if isNumber(a) && isNumber(b) {
		fa, _ := toFloat(a)
		fb, _ := toFloat(b)
		return fa == fb
	}
	if a == nil || b == nil {
		return a == b
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if !ta.Comparable() {
		return reflect.DeepEqual(a, b)
	}
	return a == b
}

// compareScalar orders numbers numerically (coercing numeric strings when
// the other side is a number) and strings lexically.
func compareScalar(a, b any) (int, bool) {
	if isNumber(a) || isNumber(b) {
		fa, okA := toFloat(a)
		fb, okB := toFloat(b)
		if !okA || !okB {
			return 0, false
		}
		return cmpFloat(fa, fb), true
	}
	sa, okA := a.(string)
	sb, okB := b.(string)
	if okA && okB {
		return strings.Compare(sa, sb), true
	}
	ta, okA := a.(time.Time)
	tb, okB := b.(time.Time)
	if okA && okB {
		return ta.Compare(tb), true
	}
	return 0, false
}

// likeScalar is case-insensitive substring containment.
func likeScalar(rowValue, filterValue any) bool {
	if isEmptyValue(rowValue) {
		return false
	}
	haystack := strings.ToLower(fmt.Sprint(rowValue))
	needle := strings.ToLower(fmt.Sprint(filterValue))
	return strings.Contains(haystack, needle)
}

func compareDates(a, b any) (int, bool) {
	ta, okA := toDate(a)
	tb, okB := toDate(b)
	if !okA || !okB {
		return 0, false
	}
	return ta.Compare(tb), true
}

func equalDates(a, b any) bool {
	c, ok := compareDates(a, b)
	return ok && c == 0
}

func likeDate(rowValue, filterValue any) bool {
	t, ok := toDate(rowValue)
	if !ok {
		return false
	}
	needle := fmt.Sprint(filterValue)
	if ft, ok := toDate(filterValue); ok {
		needle = ft.Format("2006-01-02")
	}
	return strings.Contains(t.Format("2006-01-02"), strings.ToLower(needle))
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// ApplyFilters returns the rows of snapshot that pass every condition.
// With no conditions every row passes. The input is not modified.
func ApplyFilters(snapshot []Row, conditions []Condition) []Row {
	out := make([]Row, 0, len(snapshot))
	for _, row := range snapshot {
		if matches(row, conditions) {
			out = append(out, row)
		}
	}
	return out
}

func matches(row Row, conditions []Condition) bool {
	for _, c := range conditions {
		if !c.Evaluate(Lookup(row, c.Field()), row) {
			return false
		}
	}
	return true
}
