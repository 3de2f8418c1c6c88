package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/vibrant/internal/saturation"
)

// SetSaturationRequest is the body of PUT /outputs/{name}/saturation.
type SetSaturationRequest struct {
	Saturation *float64 `json:"saturation"`
}

// SaturationResponse is returned by the saturation endpoints.
type SaturationResponse struct {
	Output     string   `json:"output"`
	Saturation float64  `json:"saturation"`
	Previous   *float64 `json:"previous,omitempty"`
	Backend    string   `json:"backend,omitempty"`
}

// handleListOutputs returns every controllable output with its saturation.
func (s *Server) handleListOutputs(w http.ResponseWriter, r *http.Request) {
	outputs, err := s.service.Outputs(r.Context())
	if err != nil {
		writeDisplayError(w, err)
		return
	}
	if outputs == nil {
		outputs = []saturation.OutputStatus{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"outputs": outputs,
		"count":   len(outputs),
	})
}

// handleGetSaturation returns the current saturation of one output.
func (s *Server) handleGetSaturation(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	value, err := s.service.Get(r.Context(), name)
	if err != nil {
		writeDisplayError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, SaturationResponse{Output: name, Saturation: value})
}

// handleSetSaturation applies a saturation to one output.
func (s *Server) handleSetSaturation(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var req SetSaturationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Saturation == nil {
		writeBadRequest(w, "saturation is required")
		return
	}

	change, err := s.service.Set(r.Context(), name, *req.Saturation, saturation.SourceAPI)
	if err != nil {
		writeDisplayError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, SaturationResponse{
		Output:     change.Output,
		Saturation: change.Saturation,
		Previous:   change.Previous,
		Backend:    change.Backend,
	})
}

// handleListProfiles returns the stored saturation profiles.
func (s *Server) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	if s.profiles == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "profile store is disabled")
		return
	}

	profiles, err := s.profiles.List(r.Context())
	if err != nil {
		s.logger.Error("listing profiles", "error", err)
		writeInternalError(w, "failed to list profiles")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"profiles": profiles,
		"count":    len(profiles),
	})
}
