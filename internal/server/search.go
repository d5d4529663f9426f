package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/sells-group/realty-search/internal/pipeline"
)

type searchRequest struct {
	Query string `json:"query"`
}

// handleSearch runs the pipeline for one query and streams its events as
// server-sent events. Validation failures answer in plain JSON before any
// SSE headers go out.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if !s.limiter.Allow(clientIP(r)) {
		writeError(w, http.StatusTooManyRequests, "Too many requests. Please wait a minute and try again.")
		return
	}

	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	events, err := s.runner.Run(r.Context(), req.Query)
	switch {
	case errors.Is(err, pipeline.ErrEmptyQuery):
		writeError(w, http.StatusBadRequest, "Query cannot be empty.")
		return
	case errors.Is(err, pipeline.ErrQueryTooLong):
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("Query must be %d characters or less.", s.cfg.Pipeline.MaxQueryChars))
		return
	case err != nil:
		zap.L().Error("server: start run", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not start the search")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	// The producer closes the channel when the run finishes or the client
	// goes away (it watches r.Context()), so ranging here cannot leak.
	for ev := range events {
		data, err := json.Marshal(ev.Data)
		if err != nil {
			zap.L().Warn("server: drop unencodable event",
				zap.String("type", string(ev.Type)), zap.Error(err))
			continue
		}
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
		flusher.Flush()
	}
}
