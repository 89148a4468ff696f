package grid

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/JonMunkholm/gridengine/internal/core"
	"github.com/JonMunkholm/gridengine/internal/events"
	"github.com/JonMunkholm/gridengine/internal/pipeline"
)

func frameOf(payload any) (*Frame, error) {
	f, ok := payload.(*Frame)
	if !ok || f == nil {
		return nil, fmt.Errorf("render payload is %T, want *grid.Frame", payload)
	}
	return f, nil
}

func paramsOf(acc any) map[string]any {
	if p, ok := acc.(map[string]any); ok && p != nil {
		return p
	}
	return map[string]any{}
}

// ----------------------------------------------------------------------------
// Filter
// ----------------------------------------------------------------------------

// FilterModule recomputes the working rows from the snapshot, or adds the
// filter values to the remote query.
type FilterModule struct {
	Store   *core.DataStore
	Filters *core.FilterSet
}

// Subscribe registers the module at the filter stage.
func (m *FilterModule) Subscribe(bus *events.Bus, remote bool) {
	if remote {
		bus.Subscribe(events.EventRemoteParams, events.Fold(m.params), events.AtStage(events.StageFilter))
		return
	}
	bus.Subscribe(events.EventRender, events.Func(m.apply), events.AtStage(events.StageFilter))
}

func (m *FilterModule) apply(_ context.Context, payload any) error {
	frame, err := frameOf(payload)
	if err != nil {
		return err
	}

	conds := m.Filters.Conditions()
	if len(conds) == 0 {
		m.Store.RestoreData()
	} else {
		m.Store.SetWorking(core.ApplyFilters(m.Store.Snapshot(), conds))
	}

	frame.Rows = m.Store.Working()
	frame.Total = len(frame.Rows)
	return nil
}

func (m *FilterModule) params(acc any) any {
	p := paramsOf(acc)
	for field, value := range m.Filters.Values() {
		p[field] = value
	}
	return p
}

// ----------------------------------------------------------------------------
// Sort
// ----------------------------------------------------------------------------

// SortModule orders the working rows, or adds the sort to the remote query.
type SortModule struct {
	Store  *core.DataStore
	Sorter *core.Sorter
}

// Subscribe registers the module at the sort stage.
func (m *SortModule) Subscribe(bus *events.Bus, remote bool) {
	if remote {
		bus.Subscribe(events.EventRemoteParams, events.Fold(func(acc any) any {
			return m.Sorter.Params(paramsOf(acc))
		}), events.AtStage(events.StageSort))
		return
	}
	bus.Subscribe(events.EventRender, events.Func(m.apply), events.AtStage(events.StageSort))
}

func (m *SortModule) apply(_ context.Context, payload any) error {
	frame, err := frameOf(payload)
	if err != nil {
		return err
	}
	rows := m.Store.Working()
	m.Sorter.SortRows(rows)
	frame.Rows = rows
	return nil
}

// ----------------------------------------------------------------------------
// Page
// ----------------------------------------------------------------------------

// PageModule slices the current page out of the working rows, or adds the
// page to the remote query.
type PageModule struct {
	Pager *core.Pager
}

// Subscribe registers the module at the page stage.
func (m *PageModule) Subscribe(bus *events.Bus, remote bool) {
	if remote {
		bus.Subscribe(events.EventRemoteParams, events.Fold(func(acc any) any {
			return m.Pager.Params(paramsOf(acc))
		}), events.AtStage(events.StagePage))
		return
	}
	bus.Subscribe(events.EventRender, events.Func(m.apply), events.AtStage(events.StagePage))
}

func (m *PageModule) apply(_ context.Context, payload any) error {
	frame, err := frameOf(payload)
	if err != nil {
		return err
	}
	m.Pager.SetTotalRows(frame.Total)
	m.Pager.Revalidate()
	frame.Rows = m.Pager.Slice(frame.Rows)
	return nil
}

// ----------------------------------------------------------------------------
// Draw and row count
// ----------------------------------------------------------------------------

// DrawModule hands the visible rows to the renderer and records them.
type DrawModule struct {
	Renderer Renderer
	Commit   func(frame Frame)
}

// Subscribe registers the module at the draw stage of render.
func (m *DrawModule) Subscribe(bus *events.Bus) {
	bus.Subscribe(events.EventRender, events.Func(m.draw), events.AtStage(events.StageDraw))
}

func (m *DrawModule) draw(ctx context.Context, payload any) error {
	frame, err := frameOf(payload)
	if err != nil {
		return err
	}
	if m.Commit != nil {
		m.Commit(*frame)
	}
	if m.Renderer == nil {
		return nil
	}

	var override *int
	if frame.Remote {
		total := frame.Total
		override = &total
	}
	if err := m.Renderer.Render(ctx, frame.Rows, override); err != nil {
		return fmt.Errorf("draw: %w", err)
	}
	return nil
}

// RowCountModule reports the rendered row count after drawing.
type RowCountModule struct {
	Display RowCountDisplay
}

// Subscribe registers the module at the observe stage of render.
func (m *RowCountModule) Subscribe(bus *events.Bus) {
	bus.Subscribe(events.EventRender, events.Func(func(_ context.Context, payload any) error {
		frame, err := frameOf(payload)
		if err != nil {
			return err
		}
		m.Display.ShowRowCount(len(frame.Rows), frame.Total)
		return nil
	}), events.AtStage(events.StageObserve))
}

// ----------------------------------------------------------------------------
// Remote loading
// ----------------------------------------------------------------------------

// RemoteLoader fetches the current page from a remote source at the filter
// stage. The query is assembled by chaining remoteParams, so every module
// contributes its own fragment. A failed load is reported and rendered as
// an empty result.
type RemoteLoader struct {
	Bus       *events.Bus
	Transport pipeline.Transport
	Locator   string
	DataPath  string
	TotalPath string
	Store     *core.DataStore
	Pager     *core.Pager
	Notifier  Notifier
	Logger    *slog.Logger
}

// Subscribe registers the loader at the filter stage of render. The loader
// suspends on the network fetch, so it is awaited as an async subscriber.
func (m *RemoteLoader) Subscribe(bus *events.Bus) {
	bus.Subscribe(events.EventRender, events.Func(m.load), events.AtStage(events.StageFilter), events.Async())
}

// Query builds the remote query for the current grid state.
func (m *RemoteLoader) Query(ctx context.Context) (map[string]any, error) {
	params, err := m.Bus.Chain(ctx, events.EventRemoteParams, map[string]any{})
	if err != nil {
		return nil, err
	}
	return paramsOf(params), nil
}

func (m *RemoteLoader) load(ctx context.Context, payload any) error {
	frame, err := frameOf(payload)
	if err != nil {
		return err
	}
	frame.Remote = true

	params, err := m.Query(ctx)
	if err != nil {
		return err
	}

	rows, total, err := m.fetch(ctx, params)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		m.Logger.Error("remote load failed", "locator", m.Locator, "error", err)
		m.Notifier.Notify(ctx, slog.LevelError, fmt.Sprintf("Could not load data: %v", err))
		rows, total = nil, 0
	}

	m.Store.SetData(rows)
	m.Pager.SetTotalRows(total)
	m.Pager.Revalidate()

	frame.Rows = m.Store.Working()
	frame.Total = m.Pager.State().TotalRows
	return nil
}

func (m *RemoteLoader) fetch(ctx context.Context, params map[string]any) ([]core.Row, any, error) {
	payload, err := pipeline.RequestData(ctx, m.Transport, m.Locator, params)
	if err != nil {
		return nil, nil, err
	}

	maps, err := payload.Rows(m.DataPath)
	if err != nil {
		return nil, nil, err
	}
	rows := make([]core.Row, len(maps))
	for i, r := range maps {
		rows[i] = core.Row(r)
	}

	total := payload.Value(m.TotalPath)
	if total == nil {
		total = len(rows)
	}
	return rows, total, nil
}

// ----------------------------------------------------------------------------
// Refresh
// ----------------------------------------------------------------------------

// RefreshModule re-runs the refresh pipeline and then re-renders.
type RefreshModule struct {
	Pipeline *pipeline.Pipeline
	Render   func(ctx context.Context) error
	Logger   *slog.Logger
}

// Refresh executes the refresh steps, if any, then renders. A pipeline
// failure has already been notified; the grid still renders.
func (m *RefreshModule) Refresh(ctx context.Context) error {
	var pipeErr error
	if m.Pipeline.HasPipeline(events.EventRefresh) {
		pipeErr = m.Pipeline.Execute(ctx, events.EventRefresh)
		if pipeErr != nil {
			m.Logger.Warn("refresh pipeline failed; rendering current data", "error", pipeErr)
		}
	}
	return errors.Join(pipeErr, m.Render(ctx))
}
