package schema

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/JonMunkholm/gridengine/internal/core"
)

const ordersYAML = `
defaults:
  rows_per_page: 20
tables:
  - key: orders
    title: Orders
    group: sales
    source: memory
    data: testdata/orders.json
    default_sort: created
    default_direction: desc
    columns:
      - field: id
        type: number
        sortable: true
      - field: customer
        title: Customer
        sortable: true
        filter:
          options: auto
      - field: qty
        type: number
        filter:
          operator: ">="
      - field: created
        type: date
        sortable: true
        filter:
          expr: "field >= value"
    pipelines:
      refresh:
        - name: reload
          locator: /api/tables/orders/rows?size=0
          data_path: data
  - key: invoices
    group: finance
    source: postgres
    db_table: ns_invoice_detail
    remote: true
    rows_per_page: 50
    columns:
      - field: Invoice Number
      - field: amount
        type: number
        db_column: amount_usd
`

func readOrders(t *testing.T) *Registry {
	t.Helper()
	reg, err := Read(strings.NewReader(ordersYAML), "yaml")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	return reg
}

func TestRead(t *testing.T) {
	reg := readOrders(t)

	if reg.Count() != 2 {
		t.Fatalf("Count() = %d, want 2", reg.Count())
	}

	orders, err := reg.Get("orders")
	if err != nil {
		t.Fatalf("Get(orders) error = %v", err)
	}
	if orders.RowsPerPage != 20 {
		t.Errorf("RowsPerPage = %d, want default 20", orders.RowsPerPage)
	}
	if len(orders.Columns) != 4 {
		t.Fatalf("len(Columns) = %d, want 4", len(orders.Columns))
	}
	if steps := orders.Pipelines["refresh"]; len(steps) != 1 || steps[0].DataPath != "data" {
		t.Errorf("refresh pipeline = %+v", steps)
	}

	invoices, _ := reg.Get("invoices")
	if invoices.RowsPerPage != 50 || !invoices.Remote {
		t.Errorf("invoices = %+v", invoices)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grids.yaml")
	if err := os.WriteFile(path, []byte(ordersYAML), 0o600); err != nil {
		t.Fatal(err)
	}

	reg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if reg.Count() != 2 {
		t.Errorf("Count() = %d, want 2", reg.Count())
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() of a missing file should fail")
	}
}

func TestColumn_Defaults(t *testing.T) {
	orders, _ := readOrders(t).Get("orders")

	tests := []struct {
		field    string
		wantType core.FieldType
		wantOp   core.Operator
		label    string
	}{
		{"id", core.FieldNumber, core.OpEquals, "id"},
		{"customer", core.FieldString, core.OpLike, "Customer"},
		{"qty", core.FieldNumber, core.OpGreaterEq, "qty"},
		{"created", core.FieldDate, core.OpEquals, "created"},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			c, ok := orders.Column(tt.field)
			if !ok {
				t.Fatalf("Column(%s) not found", tt.field)
			}
			if c.FieldType() != tt.wantType {
				t.Errorf("FieldType() = %s, want %s", c.FieldType(), tt.wantType)
			}
			if c.Operator() != tt.wantOp {
				t.Errorf("Operator() = %s, want %s", c.Operator(), tt.wantOp)
			}
			if c.Label() != tt.label {
				t.Errorf("Label() = %s, want %s", c.Label(), tt.label)
			}
		})
	}
}

func TestColumn_DBColumn(t *testing.T) {
	invoices, _ := readOrders(t).Get("invoices")

	number, _ := invoices.Column("Invoice Number")
	if got := number.Column(); got != "invoice_number" {
		t.Errorf("Column() = %s, want invoice_number", got)
	}
	amount, _ := invoices.Column("amount")
	if got := amount.Column(); got != "amount_usd" {
		t.Errorf("Column() = %s, want amount_usd", got)
	}
}

func TestTable_Validate(t *testing.T) {
	col := []Column{{Field: "id"}}

	tests := []struct {
		name    string
		table   Table
		wantErr string
	}{
		{"valid", Table{Key: "t", Columns: col}, ""},
		{"missing key", Table{Columns: col}, "key is required"},
		{"no columns", Table{Key: "t"}, "at least one column"},
		{"postgres without table", Table{Key: "t", Source: SourcePostgres, Columns: col}, "db_table"},
		{"unknown source", Table{Key: "t", Source: "csv", Columns: col}, "unknown source"},
		{"blank field", Table{Key: "t", Columns: []Column{{}}}, "has no field"},
		{"duplicate field", Table{Key: "t", Columns: []Column{{Field: "a"}, {Field: "a"}}}, "duplicate column"},
		{"unknown type", Table{Key: "t", Columns: []Column{{Field: "a", Type: "money"}}}, "unknown type"},
		{"unknown operator", Table{Key: "t", Columns: []Column{{Field: "a", Filter: &Filter{Operator: "~"}}}}, "unknown operator"},
		{"default sort not a column", Table{Key: "t", Columns: col, DefaultSort: "x"}, "default_sort"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.table.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

// ----------------------------------------------------------------------------
// Registry
// ----------------------------------------------------------------------------

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	for _, tbl := range []Table{
		{Key: "b", Group: "x", Columns: []Column{{Field: "id"}}},
		{Key: "a", Group: "y", Columns: []Column{{Field: "id"}}},
		{Key: "c", Group: "x", Columns: []Column{{Field: "id"}}},
	} {
		if err := reg.Register(tbl); err != nil {
			t.Fatalf("Register(%s) error = %v", tbl.Key, err)
		}
	}

	if err := reg.Register(Table{Key: "a", Columns: []Column{{Field: "id"}}}); err == nil {
		t.Error("duplicate Register() should fail")
	}

	var keys []string
	for _, tbl := range reg.All() {
		keys = append(keys, tbl.Key)
	}
	if strings.Join(keys, ",") != "b,c,a" {
		t.Errorf("All() order = %v, want [b c a]", keys)
	}
	if got := reg.Groups(); strings.Join(got, ",") != "x,y" {
		t.Errorf("Groups() = %v", got)
	}
	if got := reg.ByGroup("x"); len(got) != 2 || got[0].Key != "b" {
		t.Errorf("ByGroup(x) = %v", got)
	}

	a, _ := reg.Get("a")
	if a.Source != SourceMemory {
		t.Errorf("default Source = %q, want memory", a.Source)
	}

	if _, err := reg.Get("zzz"); !errors.Is(err, ErrUnknownTable) {
		t.Errorf("Get(zzz) error = %v, want ErrUnknownTable", err)
	}
}
