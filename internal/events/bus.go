// Package events provides the named-event bus that sequences grid modules.
//
// Subscribers of one event form an ordered list: ascending by priority,
// insertion order within equal priority. Trigger invokes them one at a time;
// asynchronous subscribers are awaited before the next one starts, so a
// later subscriber always observes what an earlier one did. Chain folds a
// value through the same list.
package events

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Handler reacts to an event. For Trigger the returned value is ignored;
// for Chain it becomes the input of the next subscriber.
type Handler func(ctx context.Context, value any) (any, error)

// Func adapts a handler that only reacts to a payload.
func Func(fn func(ctx context.Context, payload any) error) Handler {
	return func(ctx context.Context, payload any) (any, error) {
		return payload, fn(ctx, payload)
	}
}

// Fold adapts a pure accumulator step for use with Chain.
func Fold(fn func(acc any) any) Handler {
	return func(_ context.Context, acc any) (any, error) {
		return fn(acc), nil
	}
}

// Registration is one subscriber of an event.
type Registration struct {
	ID       string
	Handler  Handler
	Priority int
	Async    bool
}

// Option configures a subscription.
type Option func(*Registration)

// Async marks the handler as blocking; Trigger runs it on its own goroutine
// and waits for it before invoking the next subscriber.
func Async() Option {
	return func(r *Registration) { r.Async = true }
}

// WithPriority sets an explicit priority (lower runs first).
func WithPriority(p int) Option {
	return func(r *Registration) { r.Priority = p }
}

// AtStage places the handler at a render stage.
func AtStage(s Stage) Option {
	return func(r *Registration) { r.Priority = s.Priority() }
}

// Bus is a named-event pub/sub registry.
// Registration is safe for concurrent use; delivery is sequential.
type Bus struct {
	mu     sync.Mutex
	subs   map[string][]Registration
	logger *slog.Logger
}

// NewBus creates an empty bus. A nil logger uses slog.Default().
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		subs:   make(map[string][]Registration),
		logger: logger,
	}
}

// Subscribe appends handler to the event's list and re-sorts it by priority.
// The same handler may be subscribed more than once.
func (b *Bus) Subscribe(event string, handler Handler, opts ...Option) string {
	reg := Registration{
		ID:      uuid.NewString(),
		Handler: handler,
	}
	for _, opt := range opts {
		opt(&reg)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	list := append(b.subs[event], reg)
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Priority < list[j].Priority
	})
	b.subs[event] = list

	b.logger.Debug("event subscribed",
		"event", event,
		"subscription", reg.ID,
		"priority", reg.Priority,
		"async", reg.Async,
	)
	return reg.ID
}

// Unsubscribe removes the subscription with the given ID.
// Returns false if it was not registered for event.
func (b *Bus) Unsubscribe(event, id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	list := b.subs[event]
	for i, reg := range list {
		if reg.ID != id {
			continue
		}
		b.subs[event] = append(list[:i:i], list[i+1:]...)
		if len(b.subs[event]) == 0 {
			delete(b.subs, event)
		}
		return true
	}
	return false
}

// Has reports whether event has at least one subscriber.
func (b *Bus) Has(event string) bool {
	return b.Count(event) > 0
}

// Count returns the number of subscribers of event.
func (b *Bus) Count(event string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[event])
}

// Subscribers returns a copy of the event's ordered subscriber list.
func (b *Bus) Subscribers(event string) []Registration {
	b.mu.Lock()
	defer b.mu.Unlock()

	list := b.subs[event]
	if len(list) == 0 {
		return nil
	}
	out := make([]Registration, len(list))
	copy(out, list)
	return out
}

// Trigger invokes every subscriber of event in order with payload.
// An event without subscribers is a no-op. The first handler error stops
// the remaining subscribers and is returned. A handler panic, sync or
// async, is returned as an error. Trigger never returns while a handler it
// started is still running, even after ctx is done.
func (b *Bus) Trigger(ctx context.Context, event string, payload any) error {
	subs := b.Subscribers(event)
	if len(subs) == 0 {
		return nil
	}

	b.logger.Debug("event triggered", "event", event, "subscribers", len(subs))

	for _, reg := range subs {
		var err error
		if reg.Async {
			err = b.await(ctx, reg, payload)
		} else {
			err = call(ctx, reg, payload)
		}
		if err != nil {
			return fmt.Errorf("%s: %w", event, err)
		}
	}
	return nil
}

// Chain threads initial through every subscriber of event, feeding each
// handler's result into the next. Chain never suspends: async subscribers are
// called inline. An event without subscribers returns (nil, nil).
func (b *Bus) Chain(ctx context.Context, event string, initial any) (any, error) {
	subs := b.Subscribers(event)
	if len(subs) == 0 {
		return nil, nil
	}

	acc := initial
	for _, reg := range subs {
		next, err := reg.Handler(ctx, acc)
		if err != nil {
			return acc, fmt.Errorf("%s: %w", event, err)
		}
		acc = next
	}
	return acc, nil
}

// await runs an async handler on its own goroutine and blocks until it
// returns. When ctx is done first the handler is still waited for, so no
// two handlers ever run at once, and ctx's error is returned.
func (b *Bus) await(ctx context.Context, reg Registration, payload any) error {
	done := make(chan error, 1)
	go func() {
		done <- call(ctx, reg, payload)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		b.logger.Debug("context done, waiting for handler", "subscription", reg.ID)
		<-done
		return ctx.Err()
	}
}

// call runs a handler, turning a panic into an error.
func call(ctx context.Context, reg Registration, payload any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler %s panicked: %v", reg.ID, r)
		}
	}()
	_, err = reg.Handler(ctx, payload)
	return err
}
