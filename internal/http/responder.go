package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/campus-pingpong/internal/application"
)

var (
	errBadRequestBody      = errors.New("invalid request body")
	errInvalidBookingID    = errors.New("invalid booking id")
	errInvalidStudentID    = errors.New("invalid student id")
	errMissingSessionToken = errors.New("authentication required, please log in")
)

// Every response carries the success flag so clients can branch without
// inspecting status codes.
type envelope map[string]any

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

// writeSuccess emits the success envelope merged with extra payload fields.
func (r responder) writeSuccess(ctx context.Context, w http.ResponseWriter, message string, extra envelope) {
	body := envelope{"success": true}
	if message != "" {
		body["message"] = message
	}
	for key, value := range extra {
		body[key] = value
	}
	r.writeJSON(ctx, w, http.StatusOK, body)
}

func (r responder) writeFailure(ctx context.Context, w http.ResponseWriter, status int, message string) {
	r.writeJSON(ctx, w, status, envelope{"success": false, "message": message})
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := statusMessage(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeFailure(ctx, w, status, message)
}

// handleServiceError maps application errors onto the response contract:
// validation and business rule violations are 400, missing or invalid
// authentication is 401, denied permissions are 403, absent resources are
// 404, and anything else is a 500.
func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	var vErr *application.ValidationError
	if errors.As(err, &vErr) {
		body := envelope{"success": false, "message": validationMessage(vErr)}
		if len(vErr.FieldErrors) > 0 {
			body["errors"] = vErr.FieldErrors
		}
		r.writeJSON(ctx, w, http.StatusBadRequest, body)
		return
	}

	var ruleErr *application.BusinessRuleError
	if errors.As(err, &ruleErr) {
		r.writeFailure(ctx, w, http.StatusBadRequest, ruleErr.Error())
		return
	}

	switch {
	case errors.Is(err, application.ErrAuthenticationRequired):
		r.writeFailure(ctx, w, http.StatusUnauthorized, errMissingSessionToken.Error())
	case errors.Is(err, application.ErrInvalidCredentials):
		r.writeFailure(ctx, w, http.StatusUnauthorized, "incorrect student id or password")
	case errors.Is(err, application.ErrUnauthorized):
		message := "you do not have permission to perform this operation"
		var authzErr *application.AuthorizationError
		if errors.As(err, &authzErr) {
			message = authzErr.Error()
		}
		r.writeFailure(ctx, w, http.StatusForbidden, message)
	case errors.Is(err, application.ErrNotFound):
		r.writeFailure(ctx, w, http.StatusNotFound, "the requested resource was not found")
	default:
		r.loggerFor(ctx).ErrorContext(ctx, "unexpected service error", "error", err, "error_kind", application.ErrorKind(err))
		r.writeFailure(ctx, w, http.StatusInternalServerError, "server error: "+err.Error())
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

func statusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "the request is malformed"
	case http.StatusUnauthorized:
		return errMissingSessionToken.Error()
	case http.StatusForbidden:
		return "you do not have permission to perform this operation"
	case http.StatusNotFound:
		return "the requested resource was not found"
	case http.StatusTooManyRequests:
		return "too many requests, please slow down"
	default:
		return "internal server error"
	}
}

// validationMessage surfaces a single concrete field complaint so clients
// always have a readable message even if they ignore the errors object.
func validationMessage(vErr *application.ValidationError) string {
	if vErr == nil || len(vErr.FieldErrors) == 0 {
		return "validation failed"
	}
	for _, field := range []string{"name", "studentId", "password", "confirmPassword", "day", "time", "table", "maxPlayers", "level", "bookingId", "ratedStudentId", "skill", "pleasure"} {
		if msg, ok := vErr.FieldErrors[field]; ok {
			return msg
		}
	}
	for _, msg := range vErr.FieldErrors {
		return msg
	}
	return "validation failed"
}
