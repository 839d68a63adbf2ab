package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/snippet-saver/internal/apperror"
)

// ErrorResponse is the JSON error body:
//
//	{"error": "not_found", "message": "Couldn't find snippet with id abc"}
//
// Fields is only present for validation errors.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// errorView feeds the error page: "Name: message".
type errorView struct {
	Name    string
	Message string
}

const internalErrorMessage = "An internal error occurred"

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	writeJSONBody(w, status, data)
}

// writeJSONBody encodes data without touching Content-Type.
func writeJSONBody(w http.ResponseWriter, status int, data any) {
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// classify maps a domain error onto an HTTP status and a machine-readable
// error type. Anything that isn't an *apperror.AppError is a 500.
func classify(err error) (int, string, *apperror.AppError) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError, "internal_error", nil
	}

	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest, "validation_error", appErr
	case errors.Is(err, apperror.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized", appErr
	case errors.Is(err, apperror.ErrForbidden):
		return http.StatusForbidden, "forbidden", appErr
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound, "not_found", appErr
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict, "conflict", appErr
	case errors.Is(err, apperror.ErrUnavailable):
		return http.StatusServiceUnavailable, "unavailable", appErr
	default:
		return http.StatusInternalServerError, "internal_error", nil
	}
}

// Error writes err to the client.
//
// HTML clients without a session are redirected to /login; every other
// failure renders the error page. Internal errors are logged and never
// shown verbatim.
func (rd *Renderer) Error(w http.ResponseWriter, r *http.Request, err error) {
	status, kind, appErr := classify(err)

	message := internalErrorMessage
	var fields map[string]string
	if appErr != nil {
		message = appErr.Message
		if len(appErr.Fields) > 0 {
			fields = appErr.FieldMap()
		}
	} else {
		rd.logger.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}

	if wantsJSON(r) {
		writeJSON(w, status, ErrorResponse{Error: kind, Message: message, Fields: fields})
		return
	}

	if status == http.StatusUnauthorized {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	rd.Page(w, r, status, "error", http.StatusText(status), errorView{
		Name:    http.StatusText(status),
		Message: message,
	}, nil)
}

// NotFound is the router's fallback for unknown paths.
func (rd *Renderer) NotFound(w http.ResponseWriter, r *http.Request) {
	rd.Error(w, r, apperror.NotFound("page", r.URL.Path))
}

// MethodNotAllowed is the router's fallback for a known path with the wrong method.
func (rd *Renderer) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	if wantsJSON(r) {
		writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{
			Error:   "method_not_allowed",
			Message: r.Method + " is not allowed here",
		})
		return
	}
	rd.Page(w, r, http.StatusMethodNotAllowed, "error", "Method Not Allowed", errorView{
		Name:    http.StatusText(http.StatusMethodNotAllowed),
		Message: r.Method + " is not allowed here",
	}, nil)
}
