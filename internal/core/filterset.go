package core

import "sync"

// Control is a UI input bound to a filterable column. Value returns the
// current raw input: a string, a slice or a structured value.
type Control interface {
	Value() any
}

// ControlFunc adapts a function to Control.
type ControlFunc func() any

func (f ControlFunc) Value() any { return f() }

// HeaderFilter binds a column to the control that feeds its filter.
type HeaderFilter struct {
	Field     string
	FieldType FieldType
	Operator  Operator
	Func      FilterFunc
	Params    any
	Control   Control
}

// FilterSet holds the two sources of filter conditions: header filters,
// read from their controls on every cycle, and programmatic filters that
// persist until removed. Programmatic filters are keyed by field.
type FilterSet struct {
	mu           sync.Mutex
	headers      []HeaderFilter
	programmatic []ConditionSpec
}

// NewFilterSet creates an empty filter set.
func NewFilterSet() *FilterSet {
	return &FilterSet{}
}

// AddHeader registers a header filter. A second registration for the same
// field replaces the first.
func (fs *FilterSet) AddHeader(h HeaderFilter) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	for i := range fs.headers {
		if fs.headers[i].Field == h.Field {
			fs.headers[i] = h
			return
		}
	}
	fs.headers = append(fs.headers, h)
}

// Set adds a programmatic filter, replacing any existing one on the field.
func (fs *FilterSet) Set(spec ConditionSpec) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	for i := range fs.programmatic {
		if fs.programmatic[i].Field == spec.Field {
			fs.programmatic[i] = spec
			return
		}
	}
	fs.programmatic = append(fs.programmatic, spec)
}

// Remove deletes the programmatic filter on field.
// Returns false if there was none.
func (fs *FilterSet) Remove(field string) bool {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	for i := range fs.programmatic {
		if fs.programmatic[i].Field == field {
			fs.programmatic = append(fs.programmatic[:i], fs.programmatic[i+1:]...)
			return true
		}
	}
	return false
}

// Clear removes every programmatic filter. Header filters stay bound.
func (fs *FilterSet) Clear() {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.programmatic = nil
}

// Programmatic returns a copy of the programmatic filters in insertion order.
func (fs *FilterSet) Programmatic() []ConditionSpec {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	out := make([]ConditionSpec, len(fs.programmatic))
	copy(out, fs.programmatic)
	return out
}

// Specs reads every header control once and returns the header specs
// followed by the programmatic ones.
func (fs *FilterSet) Specs() []ConditionSpec {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	specs := make([]ConditionSpec, 0, len(fs.headers)+len(fs.programmatic))
	for _, h := range fs.headers {
		var value any
		if h.Control != nil {
			value = h.Control.Value()
		}
		specs = append(specs, ConditionSpec{
			Field:     h.Field,
			FieldType: h.FieldType,
			Operator:  h.Operator,
			Func:      h.Func,
			Value:     value,
			Params:    h.Params,
		})
	}
	return append(specs, fs.programmatic...)
}

// Conditions compiles the current specs, dropping absent ones.
func (fs *FilterSet) Conditions() []Condition {
	var conds []Condition
	for _, spec := range fs.Specs() {
		if c, ok := NewCondition(spec); ok {
			conds = append(conds, c)
		}
	}
	return conds
}

// Values returns the raw value of every present filter keyed by field, as
// sent to a remote data source. Function filters are local-only and omitted.
func (fs *FilterSet) Values() map[string]any {
	values := make(map[string]any)
	for _, spec := range fs.Specs() {
		if spec.Func != nil || isEmptyValue(spec.Value) {
			continue
		}
		values[spec.Field] = spec.Value
	}
	return values
}
