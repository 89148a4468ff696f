package web

import (
	"fmt"
	"net/http"

	"github.com/JonMunkholm/gridengine/internal/schema"
	"github.com/JonMunkholm/gridengine/internal/source"
	"github.com/go-chi/chi/v5"
)

// TableSummary describes a table to API clients.
type TableSummary struct {
	Key         string          `json:"key"`
	Title       string          `json:"title"`
	Group       string          `json:"group,omitempty"`
	Source      string          `json:"source"`
	Remote      bool            `json:"remote"`
	RowsPerPage int             `json:"rows_per_page"`
	Columns     []ColumnSummary `json:"columns,omitempty"`
}

// ColumnSummary describes a column to API clients.
type ColumnSummary struct {
	Field      string `json:"field"`
	Title      string `json:"title"`
	Type       string `json:"type"`
	Sortable   bool   `json:"sortable"`
	Filterable bool   `json:"filterable"`
	Operator   string `json:"operator,omitempty"`
	Options    string `json:"options,omitempty"`
}

// handleListTables returns every table without its columns.
func (s *Server) handleListTables(w http.ResponseWriter, r *http.Request) {
	tables := s.tables.All()
	out := make([]TableSummary, len(tables))
	for i, t := range tables {
		out[i] = s.summarize(t, false)
	}
	writeJSON(w, out)
}

// handleTableDefinition returns one table with its columns.
func (s *Server) handleTableDefinition(w http.ResponseWriter, r *http.Request) {
	t, err := s.tables.Get(chi.URLParam(r, "table"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, s.summarize(t, true))
}

// handleRows answers the remote query contract: header filter values plus
// sort, direction, page and size in the query string; rows at "data" and
// the matching row count at "total" in the response.
func (s *Server) handleRows(w http.ResponseWriter, r *http.Request) {
	t, src, err := s.lookup(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	q := source.ParseQuery(t, r.URL.Query(), s.rowsPerPage(t))
	result, err := src.Rows(r.Context(), q)
	if err != nil {
		s.respondError(w, r, fmt.Errorf("rows for %s: %w", t.Key, err))
		return
	}
	writeJSON(w, result)
}

// handleOptions returns the distinct values of a column as
// {"options": [...]}.
func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	t, src, err := s.lookup(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	field := chi.URLParam(r, "field")
	opts, err := src.Options(r.Context(), field)
	if err != nil {
		s.respondError(w, r, fmt.Errorf("options for %s.%s: %w", t.Key, field, err))
		return
	}
	writeJSON(w, map[string][]string{"options": opts})
}

// lookup resolves the {table} URL parameter to its definition and source.
func (s *Server) lookup(r *http.Request) (schema.Table, source.Source, error) {
	t, err := s.tables.Get(chi.URLParam(r, "table"))
	if err != nil {
		return schema.Table{}, nil, err
	}
	src, ok := s.sources[t.Key]
	if !ok {
		return schema.Table{}, nil, fmt.Errorf("%w: %s", errNoSource, t.Key)
	}
	return t, src, nil
}

// rowsPerPage returns the table's page size, falling back to the server's.
func (s *Server) rowsPerPage(t schema.Table) int {
	if t.RowsPerPage > 0 {
		return t.RowsPerPage
	}
	return s.opts.RowsPerPage
}

func (s *Server) summarize(t schema.Table, withColumns bool) TableSummary {
	sum := TableSummary{
		Key:         t.Key,
		Title:       t.Label(),
		Group:       t.Group,
		Source:      t.Source,
		Remote:      t.Remote || s.opts.Remote,
		RowsPerPage: s.rowsPerPage(t),
	}
	if !withColumns {
		return sum
	}

	sum.Columns = make([]ColumnSummary, len(t.Columns))
	for i, c := range t.Columns {
		cs := ColumnSummary{
			Field:      c.Field,
			Title:      c.Label(),
			Type:       string(c.FieldType()),
			Sortable:   c.Sortable,
			Filterable: c.Filterable(),
		}
		if c.Filterable() {
			cs.Operator = string(c.Operator())
			cs.Options = optionsLocator(t, c)
		}
		sum.Columns[i] = cs
	}
	return sum
}

// optionsLocator returns where a column's option list is loaded from.
func optionsLocator(t schema.Table, c schema.Column) string {
	if c.Filter == nil || c.Filter.Options == "" {
		return ""
	}
	if c.Filter.Options == schema.OptionsAuto {
		return "/api/tables/" + t.Key + "/options/" + c.Field
	}
	return c.Filter.Options
}

// rowsLocator returns the rows API path of a table.
func rowsLocator(t schema.Table) string {
	return "/api/tables/" + t.Key + "/rows"
}
