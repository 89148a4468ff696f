package web

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"time"

	"github.com/JonMunkholm/gridengine/internal/core"
	"github.com/JonMunkholm/gridengine/internal/logging"
	"github.com/JonMunkholm/gridengine/internal/source"
)

// handleExport streams every row matching the view's filters and sort as
// CSV. Page and size in the query string are ignored.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	t, src, err := s.lookup(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	q := source.ParseQuery(t, r.URL.Query(), 0)
	q.Page, q.Size = 1, 0

	res, err := src.Rows(r.Context(), q)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	filename := fmt.Sprintf("%s_%s.csv", t.Key, time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))

	cw := csv.NewWriter(w)
	header := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c.Label()
	}
	if err := cw.Write(header); err != nil {
		// Headers are sent; nothing left to tell the client.
		return
	}

	const flushInterval = 500
	record := make([]string, len(t.Columns))
	for n, row := range res.Rows {
		for i, c := range t.Columns {
			record[i] = formatCell(core.Lookup(row, c.Field), c.FieldType())
		}
		if err := cw.Write(record); err != nil {
			logging.FromContext(r.Context()).Error("csv export write", "table", t.Key, "error", err)
			return
		}
		if (n+1)%flushInterval == 0 {
			cw.Flush()
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		logging.FromContext(r.Context()).Error("csv export flush", "table", t.Key, "error", err)
		return
	}
	logging.FromContext(r.Context()).Info("table exported", "table", t.Key, "rows", len(res.Rows))
}
