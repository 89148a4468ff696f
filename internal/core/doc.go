// Package core provides the data logic behind a table grid.
//
// This package holds all row-level work independent of any event bus, UI
// or transport. It is used by the grid coordinator, by the in-memory
// source behind the rows API, and by the gridctl command.
//
// # Architecture
//
// The package is organized around four pieces of state:
//
//   - DataStore: the immutable snapshot of the loaded dataset and the
//     working rows derived from it.
//   - FilterSet: header filters bound to controls plus programmatic filters,
//     compiled into [Condition] values.
//   - Sorter: the active sort column and direction.
//   - Pager: current page, page size and the page-button window.
//
// # Data Store
//
// [DataStore.SetData] accepts a slice of rows, a slice of maps or a decoded
// JSON array and deep-copies it into the snapshot, so callers never share
// nested values with the grid:
//
//	store := core.NewDataStore(logger)
//	store.SetData([]map[string]any{{"name": "Ann", "age": 30}})
//	store.RowCount() // 1
//
// # Filtering
//
// Raw filter input is converted once, by column type, when the condition
// is built. Empty values make no condition at all:
//
//	cond, ok := core.NewCondition(core.ConditionSpec{
//	    Field:     "created",
//	    FieldType: core.FieldDate,
//	    Operator:  core.OpBetween,
//	    Value:     []any{"2024-01-01", "2024-01-31"},
//	})
//
// Filtering always starts from the snapshot, so applying the same set
// twice gives the same rows. Dotted fields such as "customer.name" read
// nested maps. Expressions written in expr-lang are compiled by
// [ExprFilters] into a [FilterFunc].
//
// # Sorting and Paging
//
// Comparators are chosen by field type. Empty values sort first in
// ascending order and the sort is stable. The pager clamps every page request
// to [1, TotalPages] and a page size of 0 shows every row on one page.
package core
