package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/chartstack/chartd/internal/common"
)

// envelope is the uniform response wrapper.
type envelope struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	Freshness string `json:"freshness,omitempty"`
	Error     string `json:"error,omitempty"`
}

// WriteJSON writes a success envelope.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	writeEnvelope(w, status, envelope{Success: true, Data: data})
}

// WriteJSONWithFreshness writes a success envelope carrying the
// freshness signal of the underlying query.
func WriteJSONWithFreshness(w http.ResponseWriter, status int, data any, freshness string) {
	writeEnvelope(w, status, envelope{Success: true, Data: data, Freshness: freshness})
}

// WriteError writes an error envelope with the status mapped from the
// error taxonomy.
func WriteError(w http.ResponseWriter, err error) {
	writeEnvelope(w, statusForError(err), envelope{Success: false, Error: err.Error()})
}

func writeEnvelope(w http.ResponseWriter, status int, env envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

// statusForError maps the error taxonomy onto HTTP status codes.
// Upstream and storage failures both surface as 500; the envelope
// message carries the detail.
func statusForError(err error) int {
	switch {
	case errors.Is(err, common.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrNoData):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
