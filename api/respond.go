package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/billbatista/acasinha-office/access"
	"github.com/billbatista/acasinha-office/middleware"
	"github.com/billbatista/acasinha-office/model"
	"github.com/billbatista/acasinha-office/user"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

// statusFor maps the error taxonomy to HTTP. Anything unknown is a 500 and
// its text is not shown to the client.
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrAccessDenied):
		return http.StatusForbidden
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrValidation), errors.Is(err, model.ErrHasDependents):
		return http.StatusBadRequest
	case errors.Is(err, user.ErrWrongCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, user.ErrUserExists):
		return http.StatusConflict
	case errors.Is(err, user.ErrBlankUsername), errors.Is(err, user.ErrBlankPassword), errors.Is(err, user.ErrInvalidEmail):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "error", err, "method", r.Method, "path", r.URL.Path)
		writeJSON(w, status, errorBody{Error: "internal server error"})
		return
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return model.Invalid("malformed request body: %v", err)
	}
	return nil
}

func pathID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, model.Invalid("%s is not a valid id", name)
	}
	return id, nil
}

// principal is only called behind RequireAuth.
func principal(r *http.Request) access.Principal {
	p, _ := middleware.PrincipalFrom(r.Context())
	return p
}
