package grid

import (
	"context"
	"fmt"
	"sort"

	"github.com/JonMunkholm/gridengine/internal/pipeline"
)

// EventOptions is the pipeline event that loads header filter option lists.
const EventOptions = "options"

// AddOptionSource registers a pipeline step that loads the option list of
// field's header filter from locator. The payload must hold an "options"
// array.
func (g *Grid) AddOptionSource(field, locator string) bool {
	return g.pipeline.AddStep(EventOptions, field, func(_ context.Context, p pipeline.Payload) error {
		res := p.Get("options")
		if !res.IsArray() {
			return fmt.Errorf("options for %s: %w", field, pipeline.ErrNotRows)
		}
		opts := make([]string, 0, len(res.Array()))
		for _, item := range res.Array() {
			opts = append(opts, item.String())
		}

		g.mu.Lock()
		g.options[field] = opts
		g.mu.Unlock()
		return nil
	}, locator)
}

// LoadOptions runs the options pipeline. A failure stops the remaining
// fields; lists already loaded are kept.
func (g *Grid) LoadOptions(ctx context.Context) error {
	if !g.pipeline.HasPipeline(EventOptions) {
		return nil
	}
	return g.pipeline.Execute(ctx, EventOptions)
}

// Options returns the loaded option list for field.
func (g *Grid) Options(field string) []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.options[field]...)
}

// OptionFields lists the fields with a loaded option list.
func (g *Grid) OptionFields() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	fields := make([]string, 0, len(g.options))
	for f := range g.options {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}
