package web

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/JonMunkholm/gridengine/internal/core"
	"github.com/JonMunkholm/gridengine/internal/grid"
	"github.com/JonMunkholm/gridengine/internal/logging"
	"github.com/JonMunkholm/gridengine/internal/pipeline"
	"github.com/JonMunkholm/gridengine/internal/schema"
	"github.com/JonMunkholm/gridengine/internal/source"
)

// handleIndex renders the list of tables.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexPage(s.tables.All()).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render index", "error", err)
	}
}

// handleTableView renders a table through a server-side grid. Header filter
// values, sort, direction and page come from the query string.
func (s *Server) handleTableView(w http.ResponseWriter, r *http.Request) {
	t, src, err := s.lookup(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.opts.FetchTimeout)
	defer cancel()

	v, err := s.buildView(ctx, t, src, r.URL.Query())
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tablePage(v).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render table", "table", t.Key, "error", err)
	}
}

// tableView is the state of one table page: the grid driving it and what
// its collaborators received.
type tableView struct {
	table  schema.Table
	query  url.Values
	remote bool
	grid   *grid.Grid
	logger *slog.Logger

	body  bytes.Buffer
	shown int
	total int

	mu      sync.Mutex
	notices []notice
}

type notice struct {
	Level   slog.Level
	Message string
}

// buildView creates the grid for t, loads it and applies the requested
// sort and page.
func (s *Server) buildView(ctx context.Context, t schema.Table, src source.Source, query url.Values) (*tableView, error) {
	v := &tableView{
		table:  t,
		query:  query,
		remote: t.Remote || s.opts.Remote,
		logger: logging.WithFields(ctx, "table", t.Key),
	}
	ctx = logging.NewContext(ctx, v.logger)
	v.grid = grid.New(grid.Options{
		Remote:         v.remote,
		Locator:        rowsLocator(t),
		RowsPerPage:    s.rowsPerPage(t),
		PagesToDisplay: s.opts.PagesToDisplay,
		PageOffset:     -1,
		DefaultLocator: s.opts.DefaultLocator,
		Transport:      loopback{handler: s.router, next: s.opts.Transport},
		Renderer:       grid.RendererFunc(v.draw),
		RowCount:       grid.RowCountFunc(v.showRowCount),
		Notifier:       v,
		Logger:         v.logger,
	})

	if err := s.bindView(v); err != nil {
		return nil, err
	}

	// Option lists are best effort; failures were already reported.
	_ = v.grid.LoadOptions(ctx)

	if !v.remote {
		res, err := src.Rows(ctx, source.Query{})
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", t.Key, err)
		}
		v.grid.Store().SetData(res.Rows)
	}

	if err := v.grid.Refresh(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		v.logger.Warn("table view refresh", "error", err)
	}

	if page := atoi(query.Get(source.ParamPage)); page > 1 {
		if err := v.grid.SetPage(ctx, page); err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			v.logger.Warn("table view page", "page", page, "error", err)
		}
	}
	return v, nil
}

// bindView wires header filters, option lists, table pipelines and the
// requested sort into the view's grid.
func (s *Server) bindView(v *tableView) error {
	t := v.table

	for _, c := range t.Columns {
		if !c.Filterable() {
			continue
		}
		h := core.HeaderFilter{
			Field:     c.Field,
			FieldType: c.FieldType(),
			Operator:  c.Operator(),
			Control:   queryControl(v.query, c),
		}
		// Remote sources evaluate expressions themselves.
		if c.Filter.Expr != "" && !v.remote {
			fn, err := s.exprs.Compile(c.Filter.Expr)
			if err != nil {
				return fmt.Errorf("column %s: %w", c.Field, err)
			}
			h.Func = fn
		}
		v.grid.AddHeaderFilter(h)

		if loc := optionsLocator(t, c); loc != "" {
			v.grid.AddOptionSource(c.Field, loc)
		}
	}

	for event, steps := range t.Pipelines {
		for _, st := range steps {
			v.grid.Pipeline().AddStep(event, st.Name, loadStep(v.grid, st), st.Locator)
		}
	}

	sortField, dir := v.query.Get(source.ParamSort), core.ParseDirection(v.query.Get(source.ParamDirection))
	if sortField == "" {
		sortField, dir = t.DefaultSort, core.ParseDirection(t.DefaultDirection)
	}
	if c, ok := t.Column(sortField); ok && c.Sortable {
		v.grid.Sorter().SetSort(c.Field, dir, c.FieldType())
	}
	return nil
}

// loadStep returns a pipeline callback that replaces the grid's data with
// the rows found at the step's data path.
func loadStep(g *grid.Grid, st schema.Step) pipeline.Callback {
	path := st.DataPath
	if path == "" {
		path = grid.DefaultDataPath
	}
	return func(_ context.Context, p pipeline.Payload) error {
		rows, err := p.Rows(path)
		if err != nil {
			return fmt.Errorf("step %s: %w", st.Name, err)
		}
		g.Store().SetData(rows)
		return nil
	}
}

// queryControl reads a header filter value from the query string. Columns
// filtered with "in" read every value of the key.
func queryControl(query url.Values, c schema.Column) core.Control {
	return core.ControlFunc(func() any {
		vs := source.FilterValues(c, query[c.Field])
		if len(vs) == 0 {
			return nil
		}
		if c.Operator() == core.OpIn || len(vs) > 1 {
			return vs
		}
		return vs[0]
	})
}

func (v *tableView) draw(ctx context.Context, rows []core.Row, rowCountOverride *int) error {
	v.body.Reset()
	return tableRows(v.table, rows).Render(ctx, &v.body)
}

func (v *tableView) showRowCount(shown, total int) {
	v.shown, v.total = shown, total
}

// Notify collects grid failures for display above the table.
func (v *tableView) Notify(ctx context.Context, level slog.Level, message string) {
	v.logger.Log(ctx, level, "grid notification", "message", message)

	v.mu.Lock()
	defer v.mu.Unlock()
	v.notices = append(v.notices, notice{Level: level, Message: message})
}

func (v *tableView) noticeList() []notice {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]notice(nil), v.notices...)
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
