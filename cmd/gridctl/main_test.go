package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/gridengine/internal/core"
	"github.com/JonMunkholm/gridengine/internal/schema"
	"github.com/JonMunkholm/gridengine/internal/source"
	"github.com/JonMunkholm/gridengine/internal/web"
)

const peopleJSON = `[
  {"name": "Ann", "age": 30},
  {"name": "Ben", "age": 25},
  {"name": "Cy",  "age": 41}
]`

func writePeople(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "people.json")
	require.NoError(t, os.WriteFile(path, []byte(peopleJSON), 0o600))
	return path
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(context.Background(), args, &out, io.Discard)
	return out.String(), err
}

type result struct {
	Data       []map[string]any `json:"data"`
	Total      int              `json:"total"`
	Page       int              `json:"page"`
	TotalPages int              `json:"total_pages"`
}

func TestRun_LocalJSON(t *testing.T) {
	out, err := runCLI(t,
		"-file", writePeople(t),
		"-filter", "age:>=:26",
		"-sort", "age", "-dir", "desc",
		"-size", "1", "-page", "2",
		"-format", "json",
	)
	require.NoError(t, err)

	var res result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Len(t, res.Data, 1)
	assert.Equal(t, "Ann", res.Data[0]["name"])
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 2, res.Page)
	assert.Equal(t, 2, res.TotalPages)
}

func TestRun_LocalTableAndDump(t *testing.T) {
	out, err := runCLI(t, "-file", writePeople(t), "-filter", "name:like:n", "-size", "0", "-dump")
	require.NoError(t, err)

	assert.Contains(t, out, "age")
	assert.Contains(t, out, "Ann")
	assert.Contains(t, out, "Ben")
	assert.NotContains(t, out, "Cy")
	assert.Contains(t, out, "2 of 2 rows, page 1 of 1")
	assert.Contains(t, out, "CurrentPage: (int) 1")
}

func TestRun_Remote(t *testing.T) {
	table := schema.Table{
		Key: "people",
		Columns: []schema.Column{
			{Field: "name", Sortable: true},
			{Field: "age", Type: "number", Sortable: true, Filter: &schema.Filter{Operator: ">="}},
		},
	}
	reg := schema.NewRegistry()
	require.NoError(t, reg.Register(table))

	var rows []core.Row
	require.NoError(t, json.Unmarshal([]byte(peopleJSON), &rows))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := httptest.NewServer(web.NewServer(reg, map[string]source.Source{
		"people": source.NewMemory(table, rows, logger),
	}, web.Options{}).Router())
	defer srv.Close()

	out, err := runCLI(t,
		"-url", srv.URL+"/api/tables/people/rows",
		"-filter", "age:>=:26",
		"-sort", "age", "-dir", "desc",
		"-size", "1", "-page", "2",
		"-format", "json",
	)
	require.NoError(t, err)

	var res result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Len(t, res.Data, 1)
	assert.Equal(t, "Ann", res.Data[0]["name"])
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 2, res.Page)
}

func TestRun_Errors(t *testing.T) {
	path := writePeople(t)

	tests := []struct {
		name string
		args []string
	}{
		{"no input", nil},
		{"both inputs", []string{"-file", path, "-url", "http://localhost/rows"}},
		{"bad format", []string{"-file", path, "-format", "xml"}},
		{"malformed filter", []string{"-file", path, "-filter", "age"}},
		{"unknown operator", []string{"-file", path, "-filter", "age:~:3"}},
		{"missing file", []string{"-file", filepath.Join(t.TempDir(), "none.json")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCLI(t, tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestParseFilter(t *testing.T) {
	spec, err := parseFilter("created:between:2024-01-01,2024-02-01", schema.Table{})
	require.NoError(t, err)
	assert.Equal(t, core.OpBetween, spec.Operator)
	assert.Equal(t, core.FieldDate, spec.FieldType)
	assert.Equal(t, []any{"2024-01-01", "2024-02-01"}, spec.Value)

	spec, err = parseFilter("code:like:12", schema.Table{})
	require.NoError(t, err)
	assert.Equal(t, core.FieldString, spec.FieldType, "like always compares strings")

	spec, err = parseFilter("note:=:a:b", schema.Table{})
	require.NoError(t, err)
	assert.Equal(t, "a:b", spec.Value)
}
