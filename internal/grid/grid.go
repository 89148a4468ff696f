// Package grid wires the table engine together.
//
// A Grid owns one DataStore, one FilterSet, one Sorter, one Pager, an event
// bus and a pipeline. Feature modules subscribe to the bus at fixed stages
// so that every render applies filter, then sort, then page, then draw,
// then row count. In remote mode filter, sort and page contribute query
// fragments instead and a RemoteLoader fetches the page.
package grid

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/JonMunkholm/gridengine/internal/core"
	"github.com/JonMunkholm/gridengine/internal/events"
	"github.com/JonMunkholm/gridengine/internal/pipeline"
)

// Default values applied by New.
const (
	DefaultRowsPerPage    = 25
	DefaultPagesToDisplay = 5
	DefaultDataPath       = "data"
	DefaultTotalPath      = "total"
)

// Options configures a Grid.
type Options struct {
	// Remote delegates filter, sort and page to the source at Locator.
	Remote  bool
	Locator string

	// DataPath and TotalPath locate the rows and the total row count in a
	// remote response (gjson syntax).
	DataPath  string
	TotalPath string

	RowsPerPage    int
	PagesToDisplay int
	// PageOffset is the number of page buttons before the current one.
	// Negative centres the window.
	PageOffset int

	// DefaultLocator is used by pipeline steps registered without one.
	DefaultLocator string

	Transport pipeline.Transport
	Renderer  Renderer
	RowCount  RowCountDisplay
	Notifier  Notifier
	Logger    *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.DataPath == "" {
		o.DataPath = DefaultDataPath
	}
	if o.TotalPath == "" {
		o.TotalPath = DefaultTotalPath
	}
	if o.RowsPerPage < 0 {
		o.RowsPerPage = DefaultRowsPerPage
	}
	if o.PagesToDisplay <= 0 {
		o.PagesToDisplay = DefaultPagesToDisplay
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Notifier == nil {
		o.Notifier = pipeline.LogNotifier{Logger: o.Logger}
	}
	if o.Transport == nil {
		o.Transport = pipeline.NewHTTPTransport("", 0)
	}
	return o
}

// Grid is one table instance. A grid is driven by one goroutine at a time;
// concurrent Render calls coalesce.
type Grid struct {
	id   string
	opts Options

	bus      *events.Bus
	pipeline *pipeline.Pipeline
	store    *core.DataStore
	filters  *core.FilterSet
	sorter   *core.Sorter
	pager    *core.Pager
	exprs    *core.ExprFilters
	refresh  *RefreshModule
	loader   *RemoteLoader
	logger   *slog.Logger

	mu        sync.Mutex
	rendering bool
	dirty     bool
	frame     Frame
	options   map[string][]string
}

// New creates a grid and subscribes its modules.
func New(opts Options) *Grid {
	opts = opts.withDefaults()
	id := uuid.NewString()
	logger := opts.Logger.With("grid", id)

	g := &Grid{
		id:      id,
		opts:    opts,
		bus:     events.NewBus(logger),
		store:   core.NewDataStore(logger),
		filters: core.NewFilterSet(),
		sorter:  core.NewSorter(),
		pager:   core.NewPager(opts.RowsPerPage, opts.PagesToDisplay, opts.PageOffset),
		exprs:   core.NewExprFilters(),
		logger:  logger,
		options: make(map[string][]string),
	}
	g.pipeline = pipeline.New(opts.Transport,
		pipeline.WithDefaultLocator(opts.DefaultLocator),
		pipeline.WithNotifier(opts.Notifier),
		pipeline.WithLogger(logger),
	)

	g.subscribeModules()
	return g
}

func (g *Grid) subscribeModules() {
	remote := g.opts.Remote

	(&FilterModule{Store: g.store, Filters: g.filters}).Subscribe(g.bus, remote)
	(&SortModule{Store: g.store, Sorter: g.sorter}).Subscribe(g.bus, remote)
	(&PageModule{Pager: g.pager}).Subscribe(g.bus, remote)

	if remote {
		g.loader = &RemoteLoader{
			Bus:       g.bus,
			Transport: g.opts.Transport,
			Locator:   g.opts.Locator,
			DataPath:  g.opts.DataPath,
			TotalPath: g.opts.TotalPath,
			Store:     g.store,
			Pager:     g.pager,
			Notifier:  g.opts.Notifier,
			Logger:    g.logger,
		}
		g.loader.Subscribe(g.bus)
	}

	(&DrawModule{Renderer: g.opts.Renderer, Commit: g.commit}).Subscribe(g.bus)
	if g.opts.RowCount != nil {
		(&RowCountModule{Display: g.opts.RowCount}).Subscribe(g.bus)
	}

	g.refresh = &RefreshModule{Pipeline: g.pipeline, Render: g.Render, Logger: g.logger}
}

func (g *Grid) commit(f Frame) {
	g.mu.Lock()
	g.frame = f
	g.mu.Unlock()
}

// ID returns the grid instance ID.
func (g *Grid) ID() string { return g.id }

// Remote reports whether the grid loads rows from a remote source.
func (g *Grid) Remote() bool { return g.opts.Remote }

// Bus returns the grid's event bus.
func (g *Grid) Bus() *events.Bus { return g.bus }

// Pipeline returns the grid's pipeline.
func (g *Grid) Pipeline() *pipeline.Pipeline { return g.pipeline }

// Store returns the grid's dataset.
func (g *Grid) Store() *core.DataStore { return g.store }

// Filters returns the grid's filter set.
func (g *Grid) Filters() *core.FilterSet { return g.filters }

// Sorter returns the grid's sort state.
func (g *Grid) Sorter() *core.Sorter { return g.sorter }

// Pager returns the grid's page state.
func (g *Grid) Pager() *core.Pager { return g.pager }

// Rows returns the rows drawn by the last render.
func (g *Grid) Rows() []core.Row {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.frame.Rows
}

// LastFrame returns the state drawn by the last render.
func (g *Grid) LastFrame() Frame {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.frame
}

// Query returns the remote query for the current state. Local grids
// return nil.
func (g *Grid) Query(ctx context.Context) (map[string]any, error) {
	if g.loader == nil {
		return nil, nil
	}
	return g.loader.Query(ctx)
}

// ----------------------------------------------------------------------------
// Rendering
// ----------------------------------------------------------------------------

// Render runs one render cycle. A Render requested while another is in
// flight marks the grid dirty and returns at once; the in-flight render then
// runs one more cycle so the latest state is always drawn, even when its own
// cycle failed. Errors of every cycle it ran are returned joined. No extra
// cycle runs once ctx is done.
func (g *Grid) Render(ctx context.Context) error {
	g.mu.Lock()
	if g.rendering {
		g.dirty = true
		g.mu.Unlock()
		g.logger.Debug("render coalesced")
		return nil
	}
	g.rendering = true
	g.mu.Unlock()

	var errs []error
	for {
		if err := g.bus.Trigger(ctx, events.EventRender, &Frame{}); err != nil {
			errs = append(errs, err)
		}

		g.mu.Lock()
		again := g.dirty && ctx.Err() == nil
		g.dirty = false
		if !again {
			g.rendering = false
		}
		g.mu.Unlock()

		if !again {
			return errors.Join(errs...)
		}
	}
}

// SetData replaces the dataset and renders. In remote mode the next render
// reloads from the source and replaces it again.
func (g *Grid) SetData(ctx context.Context, data any) error {
	g.store.SetData(data)
	return g.Render(ctx)
}

// Refresh re-runs the refresh pipeline, then renders.
func (g *Grid) Refresh(ctx context.Context) error {
	return g.refresh.Refresh(ctx)
}

// ----------------------------------------------------------------------------
// Filtering
// ----------------------------------------------------------------------------

// AddHeaderFilter registers a filterable column whose control is read on
// every render.
func (g *Grid) AddHeaderFilter(h core.HeaderFilter) {
	g.filters.AddHeader(h)
}

// SetFilter sets the programmatic filter on field, replacing any previous
// one, returns to the first page and renders.
func (g *Grid) SetFilter(ctx context.Context, field string, value any, op core.Operator, ft core.FieldType, params any) error {
	g.filters.Set(core.ConditionSpec{
		Field:     field,
		FieldType: ft,
		Operator:  op,
		Value:     value,
		Params:    params,
	})
	return g.filtersChanged(ctx)
}

// SetFilterFunc sets a custom predicate filter on field and renders.
func (g *Grid) SetFilterFunc(ctx context.Context, field string, value any, fn core.FilterFunc, params any) error {
	g.filters.Set(core.ConditionSpec{Field: field, Func: fn, Value: value, Params: params})
	return g.filtersChanged(ctx)
}

// SetFilterExpr sets an expr-lang predicate filter on field and renders.
func (g *Grid) SetFilterExpr(ctx context.Context, field string, value any, expression string, params any) error {
	fn, err := g.exprs.Compile(expression)
	if err != nil {
		return err
	}
	return g.SetFilterFunc(ctx, field, value, fn, params)
}

// RemoveFilter removes the programmatic filter on field and renders.
func (g *Grid) RemoveFilter(ctx context.Context, field string) error {
	g.filters.Remove(field)
	return g.filtersChanged(ctx)
}

// ClearFilters removes every programmatic filter and renders.
func (g *Grid) ClearFilters(ctx context.Context) error {
	g.filters.Clear()
	return g.filtersChanged(ctx)
}

func (g *Grid) filtersChanged(ctx context.Context) error {
	g.pager.SetPage(1)
	return g.Render(ctx)
}

// ----------------------------------------------------------------------------
// Sorting and paging
// ----------------------------------------------------------------------------

// SetSort sorts by column and renders.
func (g *Grid) SetSort(ctx context.Context, column string, dir core.Direction, ft core.FieldType) error {
	g.sorter.SetSort(column, dir, ft)
	return g.Render(ctx)
}

// ToggleSort flips column between ascending and descending and renders.
func (g *Grid) ToggleSort(ctx context.Context, column string, ft core.FieldType) (core.Direction, error) {
	dir := g.sorter.Toggle(column, ft)
	return dir, g.Render(ctx)
}

// ClearSort removes the active sort and renders.
func (g *Grid) ClearSort(ctx context.Context) error {
	g.sorter.Clear()
	return g.Render(ctx)
}

// SetPage moves to page n (validated) and renders.
func (g *Grid) SetPage(ctx context.Context, n any) error {
	g.pager.SetPage(n)
	return g.Render(ctx)
}

// NextPage moves one page forward, stopping at the last page.
func (g *Grid) NextPage(ctx context.Context) error {
	return g.SetPage(ctx, g.pager.CurrentPage()+1)
}

// PreviousPage moves one page back, stopping at the first page.
func (g *Grid) PreviousPage(ctx context.Context) error {
	return g.SetPage(ctx, g.pager.CurrentPage()-1)
}
