package web

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/JonMunkholm/gridengine/internal/pipeline"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// loopback is the transport of server-side grids. Relative locators are
// served by the server's own router without a network round trip; absolute
// ones go to next.
type loopback struct {
	handler http.Handler
	next    pipeline.Transport
}

func (l loopback) Fetch(ctx context.Context, locator string) (pipeline.Payload, error) {
	if !strings.HasPrefix(locator, "/") {
		return l.next.Fetch(ctx, locator)
	}

	// A fresh routing context; chi would otherwise reuse the caller's.
	reqCtx := context.WithValue(ctx, chi.RouteCtxKey, nil)
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, locator, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", locator, err)
	}
	req.Header.Set("Accept", "application/json")
	if id := middleware.GetReqID(ctx); id != "" {
		req.Header.Set(middleware.RequestIDHeader, id)
	}

	resp := &bufferedResponse{header: make(http.Header), status: http.StatusOK}
	l.handler.ServeHTTP(resp, req)

	if resp.status < 200 || resp.status > 299 {
		return nil, &pipeline.StatusError{
			Locator:    locator,
			StatusCode: resp.status,
			Body:       strings.TrimSpace(resp.body.String()),
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return pipeline.Payload(resp.body.Bytes()), nil
}

// bufferedResponse collects a response in memory.
type bufferedResponse struct {
	header      http.Header
	status      int
	wroteHeader bool
	body        bytes.Buffer
}

func (r *bufferedResponse) Header() http.Header { return r.header }

func (r *bufferedResponse) WriteHeader(status int) {
	if r.wroteHeader {
		return
	}
	r.status = status
	r.wroteHeader = true
}

func (r *bufferedResponse) Write(b []byte) (int, error) {
	r.wroteHeader = true
	return r.body.Write(b)
}
