package web

// errors.go provides unified error response handling for the web layer.
//
// Errors are logged with full technical detail and the request id, then
// returned to the client as a short message with a machine-readable code.
// API routes answer JSON; pages answer plain text.

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/JonMunkholm/gridengine/internal/logging"
	"github.com/JonMunkholm/gridengine/internal/pipeline"
	"github.com/JonMunkholm/gridengine/internal/schema"
	"github.com/JonMunkholm/gridengine/internal/source"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
)

// errNoSource is returned for a registered table nobody serves.
var errNoSource = errors.New("table has no source")

// ErrorResponse represents the JSON structure for API error responses.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

// classify maps an error to a status code and a client-safe code and message.
func classify(err error) (int, string, string) {
	var statusErr *pipeline.StatusError
	switch {
	case errors.Is(err, schema.ErrUnknownTable):
		return http.StatusNotFound, "TABLE_NOT_FOUND", "table not found"
	case errors.Is(err, source.ErrUnknownColumn):
		return http.StatusNotFound, "COLUMN_NOT_FOUND", "column not found"
	case errors.Is(err, errNoSource):
		return http.StatusNotFound, "NO_SOURCE", "table has no data source"
	case errors.Is(err, ErrBusy):
		return http.StatusServiceUnavailable, "BUSY", "server busy, try again later"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "TIMEOUT", "request timed out"
	case errors.As(err, &statusErr):
		return http.StatusBadGateway, "UPSTREAM", "upstream request failed"
	default:
		return http.StatusInternalServerError, "INTERNAL", "internal error"
	}
}

// respondError logs err and writes an error response in the format the
// request expects.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message := classify(err)
	requestID := middleware.GetReqID(r.Context())

	logger := logging.FromContext(r.Context())
	logArgs := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"code", code,
		"error", err.Error(),
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request error", logArgs...)
	} else {
		logger.Warn("request error", logArgs...)
	}

	if wantsJSON(r) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(ErrorResponse{
			Error:     message,
			Code:      code,
			RequestID: requestID,
		})
		return
	}
	http.Error(w, message+" ("+code+")", status)
}

// wantsJSON checks if the client prefers JSON response.
func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}

	// API routes default to JSON
	return strings.HasPrefix(r.URL.Path, "/api/")
}
