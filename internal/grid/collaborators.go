package grid

import (
	"context"

	"github.com/JonMunkholm/gridengine/internal/core"
	"github.com/JonMunkholm/gridengine/internal/pipeline"
)

// Renderer draws the visible rows. It receives the full page every cycle.
// rowCountOverride is the remote total when the grid does not hold every
// row locally; it is nil in local mode.
type Renderer interface {
	Render(ctx context.Context, rows []core.Row, rowCountOverride *int) error
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(ctx context.Context, rows []core.Row, rowCountOverride *int) error

// Render calls f.
func (f RendererFunc) Render(ctx context.Context, rows []core.Row, rowCountOverride *int) error {
	return f(ctx, rows, rowCountOverride)
}

// RowCountDisplay shows "showing X of Y".
type RowCountDisplay interface {
	ShowRowCount(shown, total int)
}

// RowCountFunc adapts a function to RowCountDisplay.
type RowCountFunc func(shown, total int)

// ShowRowCount calls f.
func (f RowCountFunc) ShowRowCount(shown, total int) { f(shown, total) }

// Control is a header filter input read once per render.
type Control = core.Control

// Notifier surfaces failures to the user.
type Notifier = pipeline.Notifier

// Frame is the state of one render cycle. Each stage reads the frame left by
// the stages before it and updates it for the stages after.
type Frame struct {
	// Rows are the rows visible after the current stage.
	Rows []core.Row
	// Total is the number of rows matching the filters before paging.
	Total int
	// Remote is set when rows were loaded from a remote source.
	Remote bool
}
