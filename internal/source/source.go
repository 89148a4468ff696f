// Package source answers remote grid queries.
//
// A Source receives the query a remote grid sends (header filter values
// plus sort, direction, page and size) and returns one page of rows with
// the total number of matching rows.
package source

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/JonMunkholm/gridengine/internal/core"
	"github.com/JonMunkholm/gridengine/internal/schema"
)

// Query keys that are not filters.
const (
	ParamSort      = "sort"
	ParamDirection = "direction"
	ParamPage      = "page"
	ParamSize      = "size"
)

// ErrUnknownColumn is returned for a field that is not a column of the table.
var ErrUnknownColumn = errors.New("unknown column")

// MaxOptions caps the length of an option list.
const MaxOptions = 500

// Query is a parsed remote query.
type Query struct {
	// Filters maps a field to a string or, for repeated keys, []string.
	Filters   map[string]any
	Sort      string
	Direction core.Direction
	Page      int
	// Size is the page size. 0 returns every matching row.
	Size int
}

// Result is one page of rows.
type Result struct {
	Rows       []core.Row `json:"data"`
	Total      int        `json:"total"`
	Page       int        `json:"page"`
	Size       int        `json:"size"`
	TotalPages int        `json:"total_pages"`
}

// Source serves rows and option lists for one table.
type Source interface {
	Rows(ctx context.Context, q Query) (Result, error)
	Options(ctx context.Context, field string) ([]string, error)
}

// ParseQuery reads a query from URL values. Only fields that are columns of
// t become filters; empty values are dropped.
func ParseQuery(t schema.Table, values url.Values, defaultSize int) Query {
	q := Query{
		Filters:   make(map[string]any),
		Sort:      values.Get(ParamSort),
		Direction: core.ParseDirection(values.Get(ParamDirection)),
		Page:      atoiOr(values.Get(ParamPage), 1),
		Size:      atoiOr(values.Get(ParamSize), defaultSize),
	}
	if q.Size < 0 {
		q.Size = defaultSize
	}
	if q.Sort == "" && t.DefaultSort != "" {
		q.Sort = t.DefaultSort
		q.Direction = core.ParseDirection(t.DefaultDirection)
	}

	for _, c := range t.Columns {
		vs := FilterValues(c, values[c.Field])
		switch len(vs) {
		case 0:
		case 1:
			if c.Operator() == core.OpIn {
				q.Filters[c.Field] = vs
			} else {
				q.Filters[c.Field] = vs[0]
			}
		default:
			q.Filters[c.Field] = vs
		}
	}
	return q
}

// Conditions turns the query filters into engine conditions using each
// column's type and operator. Expression filters are compiled with exprs.
func Conditions(t schema.Table, q Query, exprs *core.ExprFilters) ([]core.Condition, error) {
	var conds []core.Condition
	for _, c := range t.Columns {
		value, ok := q.Filters[c.Field]
		if !ok {
			continue
		}

		spec := core.ConditionSpec{
			Field:     c.Field,
			FieldType: c.FieldType(),
			Operator:  c.Operator(),
			Value:     value,
		}
		if c.Filter != nil && c.Filter.Expr != "" {
			fn, err := exprs.Compile(c.Filter.Expr)
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", c.Field, err)
			}
			spec.Func = fn
		}

		if cond, ok := core.NewCondition(spec); ok {
			conds = append(conds, cond)
		}
	}
	return conds, nil
}

// clampPage limits page to the pages available for total rows.
func clampPage(page, size, total int) (int, int) {
	if size <= 0 {
		return 1, 1
	}
	totalPages := (total + size - 1) / size
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}
	return page, totalPages
}

func atoiOr(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

// FilterValues returns the non-empty filter values given for c. For in
// columns each value is also split on commas, so "a,b" and a repeated key
// select the same rows.
func FilterValues(c schema.Column, vs []string) []string {
	out := vs[:0:0]
	for _, v := range vs {
		if c.Operator() != core.OpIn {
			if v != "" {
				out = append(out, v)
			}
			continue
		}
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
