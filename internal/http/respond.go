package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"grana/internal/core"
)

// Every response uses the same envelope: {"success":true,"data":...} on
// success and {"success":false,"error":"..."} on failure.
type envelope struct {
	Success      bool   `json:"success"`
	Data         any    `json:"data,omitempty"`
	DeletedCount *int64 `json:"deletedCount,omitempty"`
	Error        string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Response encoding failed", "error", err)
	}
}

func respondData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func respondDeleted(w http.ResponseWriter, count int64) {
	writeJSON(w, http.StatusOK, envelope{Success: true, DeletedCount: &count})
}

func respondError(w http.ResponseWriter, r *http.Request, err error) {
	kind := core.KindOf(err)
	status := statusFor(kind)
	msg := err.Error()
	if kind == core.ErrStore {
		// Internal detail stays in the logs, not the response.
		slog.ErrorContext(r.Context(), "Request failed", "error", err, "path", r.URL.Path)
		msg = "internal error"
	}
	writeJSON(w, status, envelope{Success: false, Error: msg})
}

func statusFor(kind core.ErrKind) int {
	switch kind {
	case core.ErrUnauthenticated:
		return http.StatusUnauthorized
	case core.ErrValidation:
		return http.StatusUnprocessableEntity
	case core.ErrNotFound:
		return http.StatusNotFound
	case core.ErrOwnershipMismatch:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
