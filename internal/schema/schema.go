// Package schema describes the tables a grid can show.
//
// Definitions are loaded from YAML with viper. A table lists its columns
// (field, type, header filter), where its rows come from and which
// pipeline steps run for it.
package schema

import (
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/gridengine/internal/core"
)

// ErrUnknownTable is returned when a table key is not registered.
var ErrUnknownTable = errors.New("unknown table")

// Source kinds.
const (
	SourceMemory   = "memory"
	SourcePostgres = "postgres"
)

// OptionsAuto asks for the option list to be served by the built-in
// options endpoint.
const OptionsAuto = "auto"

// Filter is a column's header filter.
type Filter struct {
	// Operator applied to the header value. Defaults to like for strings
	// and = for everything else.
	Operator string `mapstructure:"operator"`
	// Expr is an expr-lang predicate used instead of Operator.
	Expr string `mapstructure:"expr"`
	// Options is the locator of the option list, or "auto".
	Options string `mapstructure:"options"`
}

// Column is one column of a table.
type Column struct {
	Field    string  `mapstructure:"field"`
	Title    string  `mapstructure:"title"`
	Type     string  `mapstructure:"type"`
	DBColumn string  `mapstructure:"db_column"`
	Sortable bool    `mapstructure:"sortable"`
	Filter   *Filter `mapstructure:"filter"`
}

// FieldType returns the column's parsed type.
func (c Column) FieldType() core.FieldType {
	return core.ParseFieldType(c.Type)
}

// Operator returns the header filter operator.
func (c Column) Operator() core.Operator {
	if c.Filter != nil && c.Filter.Operator != "" {
		if op, ok := core.ParseOperator(c.Filter.Operator); ok {
			return op
		}
	}
	if c.FieldType() == core.FieldString {
		return core.OpLike
	}
	return core.OpEquals
}

// Filterable reports whether the column has a header filter.
func (c Column) Filterable() bool { return c.Filter != nil }

// Label returns the title, falling back to the field name.
func (c Column) Label() string {
	if c.Title != "" {
		return c.Title
	}
	return c.Field
}

// Column returns the SQL column name.
func (c Column) Column() string {
	if c.DBColumn != "" {
		return c.DBColumn
	}
	return strings.ToLower(strings.ReplaceAll(c.Field, " ", "_"))
}

// Step is a pipeline step declared for a table. Rows found at DataPath in
// the fetched payload replace the grid's data.
type Step struct {
	Name     string `mapstructure:"name"`
	Locator  string `mapstructure:"locator"`
	DataPath string `mapstructure:"data_path"`
}

// Table is a grid definition.
type Table struct {
	Key   string `mapstructure:"key"`
	Title string `mapstructure:"title"`
	Group string `mapstructure:"group"`

	// Source is "memory" (rows from Data) or "postgres" (rows from DBTable).
	Source  string `mapstructure:"source"`
	DBTable string `mapstructure:"db_table"`
	Data    string `mapstructure:"data"`

	Remote           bool   `mapstructure:"remote"`
	RowsPerPage      int    `mapstructure:"rows_per_page"`
	DefaultSort      string `mapstructure:"default_sort"`
	DefaultDirection string `mapstructure:"default_direction"`

	Columns   []Column          `mapstructure:"columns"`
	Pipelines map[string][]Step `mapstructure:"pipelines"`
}

// Column finds a column by field name.
func (t Table) Column(field string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Field == field {
			return c, true
		}
	}
	return Column{}, false
}

// Fields lists the column field names in order.
func (t Table) Fields() []string {
	fields := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		fields[i] = c.Field
	}
	return fields
}

// Label returns the title, falling back to the key.
func (t Table) Label() string {
	if t.Title != "" {
		return t.Title
	}
	return t.Key
}

// Validate checks the fields the engine depends on.
func (t Table) Validate() error {
	if t.Key == "" {
		return errors.New("table key is required")
	}
	if len(t.Columns) == 0 {
		return fmt.Errorf("table %s: at least one column is required", t.Key)
	}

	switch t.Source {
	case "", SourceMemory:
	case SourcePostgres:
		if t.DBTable == "" {
			return fmt.Errorf("table %s: db_table is required for postgres", t.Key)
		}
	default:
		return fmt.Errorf("table %s: unknown source %q", t.Key, t.Source)
	}

	seen := make(map[string]bool, len(t.Columns))
	for i, c := range t.Columns {
		if c.Field == "" {
			return fmt.Errorf("table %s: column %d has no field", t.Key, i)
		}
		if seen[c.Field] {
			return fmt.Errorf("table %s: duplicate column %s", t.Key, c.Field)
		}
		seen[c.Field] = true

		if c.Type != "" && core.ParseFieldType(c.Type) != core.FieldType(strings.ToLower(c.Type)) {
			return fmt.Errorf("table %s: column %s: unknown type %q", t.Key, c.Field, c.Type)
		}
		if c.Filter != nil && c.Filter.Operator != "" {
			if _, ok := core.ParseOperator(c.Filter.Operator); !ok {
				return fmt.Errorf("table %s: column %s: unknown operator %q", t.Key, c.Field, c.Filter.Operator)
			}
		}
	}

	if t.DefaultSort != "" && !seen[t.DefaultSort] {
		return fmt.Errorf("table %s: default_sort %s is not a column", t.Key, t.DefaultSort)
	}
	return nil
}
