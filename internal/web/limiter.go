package web

// limiter.go bounds the number of table views and exports built at once.
//
// Each view holds a whole table in memory while its grid runs, so the
// server admits at most maxConcurrent of them. When every slot is taken a
// request waits up to maxWait before failing with ErrBusy.

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"
)

// ErrBusy is returned when every view slot is occupied and the wait
// timeout expires. Clients should retry after a short delay.
var ErrBusy = errors.New("too many concurrent table views, please try again later")

// DefaultMaxViews is the default limit for views built in parallel.
const DefaultMaxViews = 8

// DefaultViewWait is how long to wait for a slot before rejecting.
const DefaultViewWait = 5 * time.Second

// viewLimiter controls concurrent view building using a semaphore.
type viewLimiter struct {
	semaphore chan struct{}
	maxWait   time.Duration

	mu     sync.RWMutex
	active int
}

func newViewLimiter(maxConcurrent int, maxWait time.Duration) *viewLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxViews
	}
	if maxWait <= 0 {
		maxWait = DefaultViewWait
	}
	return &viewLimiter{
		semaphore: make(chan struct{}, maxConcurrent),
		maxWait:   maxWait,
	}
}

// Acquire takes a slot, waiting at most maxWait. The caller must Release
// it when done.
func (l *viewLimiter) Acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	select {
	case l.semaphore <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return nil
	case <-waitCtx.Done():
		// Tell a cancelled request apart from a full server.
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrBusy
	}
}

// Release frees a slot taken by Acquire.
func (l *viewLimiter) Release() {
	l.mu.Lock()
	l.active--
	l.mu.Unlock()

	<-l.semaphore
}

// ActiveCount returns the number of views being built.
func (l *viewLimiter) ActiveCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active
}

// Available returns the number of free slots.
func (l *viewLimiter) Available() int {
	return cap(l.semaphore) - len(l.semaphore)
}

// WaitForDrain blocks until no view is being built or ctx is done.
func (l *viewLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		if l.ActiveCount() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// LimiterStatus is a snapshot of the view limiter, served by /healthz.
type LimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

func (l *viewLimiter) Status() LimiterStatus {
	return LimiterStatus{
		Active:        l.ActiveCount(),
		Available:     l.Available(),
		MaxConcurrent: cap(l.semaphore),
	}
}

// limitViews wraps h so that it runs only while holding a view slot.
func (s *Server) limitViews(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.views.Acquire(r.Context()); err != nil {
			s.respondError(w, r, err)
			return
		}
		defer s.views.Release()
		h(w, r)
	}
}
