package web

// errors.go maps pipeline errors to HTTP responses.
//
// Every error is logged with its technical detail and request id, then
// returned to the client as a core.UserMessage: JSON for API clients, an
// HTML fragment for HTMX requests.

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/enrollment/internal/core"
	"github.com/JonMunkholm/enrollment/internal/web/templates"
)

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// statusFor picks the HTTP status for an error returned by the service.
func statusFor(err error) int {
	var (
		unsupported *core.UnsupportedFormatError
		missing     *core.MissingColumnsError
		parse       *core.ParseError
		maxBytes    *http.MaxBytesError
	)
	switch {
	case errors.As(err, &unsupported):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, core.ErrFileTooLarge), errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &missing), errors.As(err, &parse),
		errors.Is(err, core.ErrEmptyFile), errors.Is(err, core.ErrNoFile),
		errors.Is(err, core.ErrTooManyRows), errors.Is(err, core.ErrMissingCourse):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrMissingSession):
		return http.StatusUnauthorized
	case core.IsStateError(err):
		return http.StatusConflict
	case errors.Is(err, core.ErrTooManyImports):
		return http.StatusServiceUnavailable
	case errors.Is(err, core.ErrHistoryUnsupported):
		return http.StatusNotImplemented
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	}
	return http.StatusInternalServerError
}

// respondError logs err and writes its user message in the format the
// client asked for.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	msg := core.MapError(err)
	s.respondMessage(w, r, msg, statusCode, err)
}

func (s *Server) respondMessage(w http.ResponseWriter, r *http.Request, msg core.UserMessage, statusCode int, err error) {
	level := slog.LevelInfo
	if statusCode >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	attrs := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"code", msg.Code,
		"request_id", chimw.GetReqID(r.Context()),
	}
	if err != nil {
		attrs = append(attrs, "error", err.Error())
	}
	slog.Log(r.Context(), level, "request error", attrs...)

	if statusCode == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "5")
	}
	if isHTMX(r) {
		renderErrorPartial(w, r, msg, statusCode)
		return
	}
	respondErrorJSON(w, msg, statusCode)
}

func respondErrorJSON(w http.ResponseWriter, msg core.UserMessage, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

// renderErrorPartial writes an HTMX fragment. HTMX skips swapping non-2xx
// responses unless told otherwise, so the target is retargeted explicitly.
func renderErrorPartial(w http.ResponseWriter, r *http.Request, msg core.UserMessage, statusCode int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("HX-Retarget", "#import-errors")
	w.Header().Set("HX-Reswap", "innerHTML")
	w.WriteHeader(statusCode)
	if err := templates.ErrorAlert(msg.Message, msg.Action, msg.Code).Render(r.Context(), w); err != nil {
		slog.Error("render error partial", "error", err)
	}
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

func sendsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Content-Type"), "application/json")
}
