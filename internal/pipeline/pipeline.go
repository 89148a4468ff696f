// Package pipeline runs named, ordered lists of fetch steps.
//
// A step pairs a resource locator with a callback. Execute fetches each
// locator in turn through a Transport and hands the payload to the step's
// callback. Steps never run concurrently, and the first failure stops the
// remaining steps of that event.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrInvalidLocator is returned when a step has no locator to fetch.
var ErrInvalidLocator = errors.New("invalid locator")

// Callback consumes the payload fetched for a step.
type Callback func(ctx context.Context, payload Payload) error

// Step is one (locator, callback) pair registered for an event.
type Step struct {
	Name     string
	Locator  string
	Callback Callback
}

// Notifier surfaces failures to the user.
type Notifier interface {
	Notify(ctx context.Context, level slog.Level, message string)
}

// LogNotifier writes notifications to a logger.
type LogNotifier struct {
	Logger *slog.Logger
}

// Notify logs message at level.
func (n LogNotifier) Notify(ctx context.Context, level slog.Level, message string) {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Log(ctx, level, message, "source", "notification")
}

// Pipeline holds the steps of every event.
type Pipeline struct {
	mu             sync.Mutex
	steps          map[string][]Step
	transport      Transport
	defaultLocator string
	notifier       Notifier
	logger         *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithDefaultLocator sets the locator used by steps registered without one.
func WithDefaultLocator(locator string) Option {
	return func(p *Pipeline) { p.defaultLocator = locator }
}

// WithNotifier sets where execution failures are reported.
func WithNotifier(n Notifier) Option {
	return func(p *Pipeline) { p.notifier = n }
}

// WithLogger sets the pipeline logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// New creates an empty pipeline fetching through transport.
func New(transport Transport, opts ...Option) *Pipeline {
	p := &Pipeline{
		steps:     make(map[string][]Step),
		transport: transport,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.notifier == nil {
		p.notifier = LogNotifier{Logger: p.logger}
	}
	return p
}

// AddStep appends a step to event. An empty locator falls back to the
// default locator. A step whose name is already registered for event is
// skipped with a warning; AddStep reports whether the step was added.
func (p *Pipeline) AddStep(event, name string, callback Callback, locator string) bool {
	if locator == "" {
		locator = p.defaultLocator
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for _, s := range p.steps[event] {
		if s.Name == name {
			p.logger.Warn("duplicate pipeline step skipped",
				"event", event,
				"step", name,
			)
			return false
		}
	}

	p.steps[event] = append(p.steps[event], Step{Name: name, Locator: locator, Callback: callback})
	p.logger.Debug("pipeline step added", "event", event, "step", name, "locator", locator)
	return true
}

// HasPipeline reports whether event has any steps.
func (p *Pipeline) HasPipeline(event string) bool {
	return p.CountSteps(event) > 0
}

// CountSteps returns the number of steps registered for event.
func (p *Pipeline) CountSteps(event string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.steps[event])
}

// Steps returns a copy of event's steps in execution order.
func (p *Pipeline) Steps(event string) []Step {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Step, len(p.steps[event]))
	copy(out, p.steps[event])
	return out
}

// Execute runs the steps of event one after another. The first fetch or
// callback failure skips the remaining steps, is reported through the
// notifier and is returned. Failed steps are not retried.
func (p *Pipeline) Execute(ctx context.Context, event string) error {
	steps := p.Steps(event)
	if len(steps) == 0 {
		return nil
	}

	for i, step := range steps {
		if err := p.run(ctx, step); err != nil {
			p.logger.Error("pipeline stopped",
				"event", event,
				"step", step.Name,
				"completed", i,
				"skipped", len(steps)-i-1,
				"error", err,
			)
			p.notifier.Notify(ctx, slog.LevelError, fmt.Sprintf("Could not load %s data: %v", event, err))
			return fmt.Errorf("pipeline %s: step %s: %w", event, step.Name, err)
		}
	}
	return nil
}

func (p *Pipeline) run(ctx context.Context, step Step) error {
	if step.Locator == "" {
		return ErrInvalidLocator
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := p.transport.Fetch(ctx, step.Locator)
	if err != nil {
		return err
	}
	if step.Callback == nil {
		return nil
	}
	return step.Callback(ctx, payload)
}
