// Package core provides the grid's data logic: the dataset store, typed
// filter conditions, sort comparators and pagination math.
// This package has no UI or transport dependencies.
package core

import "strings"

// Row is a single record of the dataset, keyed by field name.
type Row map[string]any

// FieldType is the declared type of a column, used to convert raw filter
// input and to pick a comparator.
type FieldType string

const (
	FieldString   FieldType = "string"
	FieldNumber   FieldType = "number"
	FieldDate     FieldType = "date"
	FieldDateTime FieldType = "datetime"
	FieldObject   FieldType = "object"
)

// IsTemporal reports whether values of this type compare as dates.
func (t FieldType) IsTemporal() bool {
	return t == FieldDate || t == FieldDateTime
}

// ParseFieldType converts a name to a FieldType. Unknown names are strings.
func ParseFieldType(s string) FieldType {
	switch FieldType(strings.ToLower(strings.TrimSpace(s))) {
	case FieldNumber:
		return FieldNumber
	case FieldDate:
		return FieldDate
	case FieldDateTime:
		return FieldDateTime
	case FieldObject:
		return FieldObject
	default:
		return FieldString
	}
}

// Operator is a filter comparison operator.
type Operator string

const (
	OpEquals    Operator = "="
	OpLike      Operator = "like"
	OpLess      Operator = "<"
	OpLessEq    Operator = "<="
	OpGreater   Operator = ">"
	OpGreaterEq Operator = ">="
	OpNotEquals Operator = "!="
	OpBetween   Operator = "between"
	OpIn        Operator = "in"
)

// operatorAliases maps the spellings accepted from query strings and
// definition files to operators.
var operatorAliases = map[string]Operator{
	"=": OpEquals, "==": OpEquals, "eq": OpEquals, "equals": OpEquals,
	"like": OpLike, "contains": OpLike,
	"<": OpLess, "lt": OpLess,
	"<=": OpLessEq, "lte": OpLessEq,
	">": OpGreater, "gt": OpGreater,
	">=": OpGreaterEq, "gte": OpGreaterEq,
	"!=": OpNotEquals, "neq": OpNotEquals,
	"between": OpBetween,
	"in": OpIn,
}

// ParseOperator resolves an operator name. ok is false for unknown names.
func ParseOperator(s string) (op Operator, ok bool) {
	op, ok = operatorAliases[strings.ToLower(strings.TrimSpace(s))]
	return op, ok
}

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseDirection returns Desc for "desc" (any case) and Asc otherwise.
func ParseDirection(s string) Direction {
	if strings.EqualFold(strings.TrimSpace(s), string(Desc)) {
		return Desc
	}
	return Asc
}

// Lookup returns the value of field in row. Dotted fields walk into nested
// objects ("owner.name"). Missing fields yield nil.
func Lookup(row Row, field string) any {
	if v, ok := row[field]; ok || !strings.Contains(field, ".") {
		return v
	}

	var cur any = map[string]any(row)
	for _, part := range strings.Split(field, ".") {
		switch m := cur.(type) {
		case map[string]any:
			cur = m[part]
		case Row:
			cur = m[part]
		default:
			return nil
		}
	}
	return cur
}
