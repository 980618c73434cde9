package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"pravacash/internal/auth"
	"pravacash/internal/core"
	"pravacash/internal/services"
)

// errorBody is the uniform error envelope.
type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// writeDomainError maps known sentinel errors onto HTTP statuses;
// everything else is a 500 with a generic body so internals stay
// internal.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, core.ErrEmailTaken):
		writeError(w, http.StatusConflict, "email already registered")
	case errors.Is(err, services.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, auth.ErrInvalidToken):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, services.ErrWrongPIN):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, services.ErrSelfRoleChange),
		errors.Is(err, services.ErrSelfDeletion):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrPasswordTooShort),
		errors.Is(err, core.ErrEmptyDescription),
		errors.Is(err, core.ErrInvalidType),
		errors.Is(err, core.ErrNegativeAmount),
		errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrInvalidEmail),
		errors.Is(err, core.ErrInvalidPIN),
		errors.Is(err, core.ErrInvalidRole):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		slog.ErrorContext(r.Context(), "request failed",
			"path", r.URL.Path, "error", err.Error())
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
