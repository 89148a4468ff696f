package source

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/gridengine/internal/core"
	"github.com/JonMunkholm/gridengine/internal/schema"
)

// querier is the subset of pgxpool.Pool used by Postgres.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ querier = (*pgxpool.Pool)(nil)

// Postgres serves a table from PostgreSQL. Filters, sort and paging are
// pushed into the SQL query; expression filters cannot be and are ignored.
type Postgres struct {
	db     querier
	table  schema.Table
	logger *slog.Logger
}

// NewPostgres creates a source reading t.DBTable through pool.
func NewPostgres(pool *pgxpool.Pool, t schema.Table, logger *slog.Logger) *Postgres {
	if logger == nil {
		logger = slog.Default()
	}
	return &Postgres{db: pool, table: t, logger: logger}
}

// Rows runs a count and a page query for q.
func (p *Postgres) Rows(ctx context.Context, q Query) (Result, error) {
	plan := planQuery(p.table, q)
	for _, field := range plan.skipped {
		p.logger.Debug("filter not pushed to sql", "table", p.table.Key, "field", field)
	}

	var total int64
	if err := p.db.QueryRow(ctx, plan.countSQL(), plan.args...).Scan(&total); err != nil {
		return Result{}, fmt.Errorf("count rows: %w", err)
	}

	page, totalPages := clampPage(q.Page, q.Size, int(total))
	offset := 0
	if q.Size > 0 {
		offset = (page - 1) * q.Size
	}

	query, args := plan.selectSQL(q.Size, offset)
	rows, err := p.db.Query(ctx, query, args...)
	if err != nil {
		return Result{}, fmt.Errorf("query rows: %w", err)
	}
	defer rows.Close()

	fields := p.table.Fields()
	result := Result{
		Rows:       []core.Row{},
		Total:      int(total),
		Page:       page,
		Size:       q.Size,
		TotalPages: totalPages,
	}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return Result{}, fmt.Errorf("read row values: %w", err)
		}
		row := make(core.Row, len(fields))
		for i, field := range fields {
			row[field] = normalize(values[i])
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return Result{}, fmt.Errorf("rows error: %w", err)
	}
	return result, nil
}

// Options lists the distinct non-null values of field.
func (p *Postgres) Options(ctx context.Context, field string) ([]string, error) {
	col, ok := p.table.Column(field)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownColumn, p.table.Key, field)
	}

	rows, err := p.db.Query(ctx, optionsSQL(p.table, col))
	if err != nil {
		return nil, fmt.Errorf("query options: %w", err)
	}
	defer rows.Close()

	opts := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scan option: %w", err)
		}
		opts = append(opts, s)
	}
	return opts, rows.Err()
}

// ----------------------------------------------------------------------------
// SQL building
// ----------------------------------------------------------------------------

type plan struct {
	table   string
	columns []string
	where   string
	args    []any
	order   string
	skipped []string
}

func planQuery(t schema.Table, q Query) plan {
	wb := &whereBuilder{}
	var skipped []string
	for _, c := range t.Columns {
		raw, ok := q.Filters[c.Field]
		if !ok {
			continue
		}
		if c.Filter != nil && c.Filter.Expr != "" {
			skipped = append(skipped, c.Field)
			continue
		}
		wb.add(c, raw)
	}
	where, args := wb.build()

	columns := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		columns[i] = quoteIdentifier(c.Column())
	}

	return plan{
		table:   quoteIdentifier(t.DBTable),
		columns: columns,
		where:   where,
		args:    args,
		order:   orderBy(t, q),
		skipped: skipped,
	}
}

func (p plan) countSQL() string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s%s", p.table, p.where)
}

func (p plan) selectSQL(size, offset int) (string, []any) {
	query := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY %s",
		strings.Join(p.columns, ", "),
		p.table,
		p.where,
		p.order,
	)
	args := append([]any(nil), p.args...)
	if size > 0 {
		n := len(args)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", n+1, n+2)
		args = append(args, size, offset)
	}
	return query, args
}

func orderBy(t schema.Table, q Query) string {
	if c, ok := t.Column(q.Sort); ok && c.Sortable {
		return fmt.Sprintf("%s %s", quoteIdentifier(c.Column()), q.Direction)
	}
	return fmt.Sprintf("%s %s", quoteIdentifier(t.Columns[0].Column()), core.Asc)
}

func optionsSQL(t schema.Table, c schema.Column) string {
	col := quoteIdentifier(c.Column())
	return fmt.Sprintf("SELECT DISTINCT %s::text FROM %s WHERE %s IS NOT NULL ORDER BY 1 LIMIT %d",
		col, quoteIdentifier(t.DBTable), col, MaxOptions)
}

// whereBuilder accumulates AND-ed conditions with positional arguments.
type whereBuilder struct {
	conds []string
	args  []any
}

func (w *whereBuilder) arg(v any) string {
	w.args = append(w.args, v)
	return fmt.Sprintf("$%d", len(w.args))
}

// add appends the condition for one column. Values that do not convert to
// the column type are dropped, as in the in-memory engine.
func (w *whereBuilder) add(c schema.Column, raw any) {
	ft := c.FieldType()
	value := core.ConvertToType(raw, ft)
	if value == nil {
		return
	}

	col := quoteIdentifier(c.Column())
	switch {
	case ft.IsTemporal():
		col += "::date"
	case ft == core.FieldString:
		col += "::text"
	}

	op := c.Operator()
	items, isList := value.([]any)

	switch {
	case op == core.OpLike:
		w.conds = append(w.conds, fmt.Sprintf("%s::text ILIKE %s", quoteIdentifier(c.Column()), w.arg("%"+escapeLike(fmt.Sprint(value))+"%")))
	case op == core.OpBetween:
		if !isList || len(items) != 2 {
			return
		}
		w.conds = append(w.conds, fmt.Sprintf("%s BETWEEN %s AND %s", col, w.arg(items[0]), w.arg(items[1])))
	case op == core.OpIn || isList:
		if !isList {
			items = []any{value}
		}
		if len(items) == 0 {
			return
		}
		placeholders := make([]string, len(items))
		for i, item := range items {
			placeholders[i] = w.arg(item)
		}
		w.conds = append(w.conds, fmt.Sprintf("%s IN (%s)", col, strings.Join(placeholders, ", ")))
	default:
		w.conds = append(w.conds, fmt.Sprintf("%s %s %s", col, sqlOperator(op), w.arg(value)))
	}
}

func (w *whereBuilder) build() (string, []any) {
	if len(w.conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(w.conds, " AND "), w.args
}

func sqlOperator(op core.Operator) string {
	switch op {
	case core.OpNotEquals:
		return "<>"
	case core.OpLess, core.OpLessEq, core.OpGreater, core.OpGreaterEq:
		return string(op)
	default:
		return "="
	}
}

// quoteIdentifier quotes a SQL identifier to prevent injection.
func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// normalize converts pgx values into the plain Go values rows carry.
func normalize(v any) any {
	switch x := v.(type) {
	case pgtype.Numeric:
		f, err := x.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	case [16]byte:
		return uuid.UUID(x).String()
	default:
		return v
	}
}
