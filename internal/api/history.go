package api

import (
	"net/http"
	"strconv"

	"github.com/nerrad567/vibrant/internal/history"
)

// handleListHistory returns recorded saturation changes, newest first.
//
// Query parameters:
//   - output: filter by output name
//   - source: filter by source (cli, api, mqtt, restore)
//   - limit: max results (default 50, max 200)
//   - offset: pagination offset
func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "change history is disabled")
		return
	}

	q := r.URL.Query()
	filter := history.Filter{
		Output: q.Get("output"),
		Source: q.Get("source"),
	}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeBadRequest(w, "limit must be an integer")
			return
		}
		filter.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeBadRequest(w, "offset must be an integer")
			return
		}
		filter.Offset = n
	}

	result, err := s.history.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("listing history", "error", err)
		writeInternalError(w, "failed to list history")
		return
	}

	writeJSON(w, http.StatusOK, result)
}
