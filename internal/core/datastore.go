package core

import (
	"log/slog"
	"reflect"
)

// DataStore holds the working dataset and the snapshot it is derived from.
//
// The working rows are mutated by filter, sort and page; the snapshot is a
// deep copy taken whenever data is (re)loaded and is never modified. One
// DataStore belongs to one grid and is not safe for concurrent mutation.
type DataStore struct {
	working  []Row
	snapshot []Row
	logger   *slog.Logger
}

// NewDataStore creates an empty store. A nil logger uses slog.Default().
func NewDataStore(logger *slog.Logger) *DataStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &DataStore{
		working:  []Row{},
		snapshot: []Row{},
		logger:   logger,
	}
}

// SetData replaces the dataset. It accepts []Row, []map[string]any or a
// decoded JSON array of objects. Anything else resets the store to empty.
func (d *DataStore) SetData(data any) {
	rows, ok := toRows(data)
	if !ok {
		d.logger.Warn("data is not a list of rows; resetting to empty",
			"type", reflect.TypeOf(data),
		)
		rows = []Row{}
	}
	d.working = append(make([]Row, 0, len(rows)), rows...)
	d.snapshot = CopyRows(rows)
}

// SetWorking replaces the working rows without touching the snapshot.
func (d *DataStore) SetWorking(rows []Row) {
	if rows == nil {
		rows = []Row{}
	}
	d.working = rows
}

// Working returns the working rows.
func (d *DataStore) Working() []Row {
	return d.working
}

// Snapshot returns the snapshot rows. Callers must not modify them.
func (d *DataStore) Snapshot() []Row {
	return d.snapshot
}

// RestoreData resets the working rows to a fresh copy of the snapshot.
func (d *DataStore) RestoreData() {
	d.working = CopyRows(d.snapshot)
}

// RowCount returns the number of working rows.
func (d *DataStore) RowCount() int {
	return len(d.working)
}

// toRows normalises the accepted dataset shapes.
func toRows(data any) ([]Row, bool) {
	switch v := data.(type) {
	case []Row:
		return v, true
	case []map[string]any:
		rows := make([]Row, len(v))
		for i, m := range v {
			rows[i] = Row(m)
		}
		return rows, true
	case []any:
		rows := make([]Row, 0, len(v))
		for _, item := range v {
			switch m := item.(type) {
			case map[string]any:
				rows = append(rows, Row(m))
			case Row:
				rows = append(rows, m)
			default:
				return nil, false
			}
		}
		return rows, true
	default:
		return nil, false
	}
}

// CopyRows deep-copies rows, including nested objects and lists.
func CopyRows(rows []Row) []Row {
	out := make([]Row, len(rows))
	for i, row := range rows {
		out[i] = copyRow(row)
	}
	return out
}

func copyRow(row Row) Row {
	if row == nil {
		return nil
	}
	out := make(Row, len(row))
	for k, v := range row {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		return map[string]any(copyRow(Row(x)))
	case Row:
		return copyRow(x)
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = copyValue(item)
		}
		return out
	case []string:
		return append([]string(nil), x...)
	default:
		return v
	}
}
