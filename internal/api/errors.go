package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"example.com/tripplanner/internal/attachments"
	"example.com/tripplanner/internal/domain"
	"example.com/tripplanner/internal/geo"
	"example.com/tripplanner/internal/planner"
)

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
}

// writeServiceError maps domain and collaborator errors to HTTP responses.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var dateErr *planner.InvalidDateError
	switch {
	case errors.As(err, &dateErr):
		writeError(w, http.StatusBadRequest, "validation_failed", dateErr.Error())
	case attachments.IsTooLarge(err):
		writeError(w, http.StatusRequestEntityTooLarge, "validation_failed", err.Error())
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrNoMatch), errors.Is(err, geo.ErrOutOfRange), errors.Is(err, geo.ErrNoForecast):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, domain.ErrGeocoderUnavailable),
		errors.Is(err, domain.ErrStorageUnavailable),
		errors.Is(err, geo.ErrWeatherUnavailable):
		writeError(w, http.StatusServiceUnavailable, "server_error", err.Error())
	case errors.Is(err, context.Canceled):
		writeError(w, http.StatusServiceUnavailable, "server_error", "request cancelled")
	default:
		h.logger.LogAttrs(r.Context(), slog.LevelError, "request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
	}
}
