package source

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"unicode/utf8"

	json "github.com/goccy/go-json"

	"github.com/JonMunkholm/gridengine/internal/core"
	"github.com/JonMunkholm/gridengine/internal/schema"
)

// Memory serves a table from rows held in memory, filtering, sorting and
// paging with the same engine a local grid uses.
type Memory struct {
	table schema.Table
	store *core.DataStore
	exprs *core.ExprFilters
}

// NewMemory creates a source over rows.
func NewMemory(t schema.Table, rows any, logger *slog.Logger) *Memory {
	store := core.NewDataStore(logger)
	store.SetData(rows)
	return &Memory{table: t, store: store, exprs: core.NewExprFilters()}
}

// LoadMemory reads a JSON array of objects from path.
func LoadMemory(t schema.Table, path string, logger *slog.Logger) (*Memory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s data: %w", t.Key, err)
	}
	var rows []map[string]any
	if err := json.Unmarshal(cleanText(data), &rows); err != nil {
		return nil, fmt.Errorf("decode %s data: %w", t.Key, err)
	}
	return NewMemory(t, rows, logger), nil
}

// utf8BOM is the byte order mark Windows tools put in front of UTF-8 files.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// cleanText drops a leading BOM and replaces invalid UTF-8 with U+FFFD.
func cleanText(data []byte) []byte {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return data
	}
	return bytes.ToValidUTF8(data, []byte("\uFFFD"))
}

// Rows answers q from the in-memory snapshot.
func (m *Memory) Rows(_ context.Context, q Query) (Result, error) {
	conds, err := Conditions(m.table, q, m.exprs)
	if err != nil {
		return Result{}, err
	}

	rows := core.ApplyFilters(m.store.Snapshot(), conds)

	if col, ok := m.table.Column(q.Sort); ok && col.Sortable {
		sorter := core.NewSorter()
		sorter.SetSort(col.Field, q.Direction, col.FieldType())
		sorter.SortRows(rows)
	}

	pager := core.NewPager(q.Size, 1, -1)
	pager.SetTotalRows(len(rows))
	page := pager.SetPage(q.Page)

	return Result{
		Rows:       core.CopyRows(pager.Slice(rows)),
		Total:      len(rows),
		Page:       page,
		Size:       q.Size,
		TotalPages: pager.TotalPages(),
	}, nil
}

// Options lists the distinct non-empty values of field, sorted.
func (m *Memory) Options(_ context.Context, field string) ([]string, error) {
	if _, ok := m.table.Column(field); !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownColumn, m.table.Key, field)
	}

	seen := make(map[string]bool)
	for _, row := range m.store.Snapshot() {
		v := core.Lookup(row, field)
		if v == nil {
			continue
		}
		s := fmt.Sprint(v)
		if s != "" {
			seen[s] = true
		}
	}

	opts := make([]string, 0, len(seen))
	for s := range seen {
		opts = append(opts, s)
	}
	sort.Strings(opts)
	if len(opts) > MaxOptions {
		opts = opts[:MaxOptions]
	}
	return opts, nil
}
