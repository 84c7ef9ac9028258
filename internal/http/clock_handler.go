package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/campus-pingpong/internal/application"
)

type clockService interface {
	Status(ctx context.Context, principal application.Principal) (application.ClockStatus, error)
	Configure(ctx context.Context, params application.ConfigureClockParams) (application.ClockStatus, error)
}

type ClockHandler struct {
	service   clockService
	responder responder
	logger    *slog.Logger
}

func NewClockHandler(service clockService, logger *slog.Logger) *ClockHandler {
	base := defaultLogger(logger)
	return &ClockHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *ClockHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "ClockHandler", operation, attrs...)
}

// Status reports the clock configuration. Administrators only.
func (h *ClockHandler) Status(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Status", "principal_id", principal.UserID)

	status, err := h.service.Status(r.Context(), principal)
	if err != nil {
		logger.ErrorContext(r.Context(), "clock status failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeSuccess(r.Context(), w, "", envelope{
		"testMode":    status.TestMode,
		"virtualTime": formatOptionalTime(status.VirtualTime),
		"currentTime": status.CurrentTime.UTC().Format(time.RFC3339Nano),
		"realTime":    status.RealTime.UTC().Format(time.RFC3339Nano),
	})
}

// Configure toggles test mode and pins the virtual instant. Administrators only.
func (h *ClockHandler) Configure(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req configureClockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Configure", "principal_id", principal.UserID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode clock request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	var virtual *time.Time
	if req.VirtualTime != nil {
		parsed, err := time.Parse(time.RFC3339, *req.VirtualTime)
		if err != nil {
			h.log(r.Context(), "Configure", "principal_id", principal.UserID, "error_kind", "bad_request").ErrorContext(r.Context(), "invalid virtual time", "error", err)
			h.responder.writeFailure(r.Context(), w, http.StatusBadRequest, "virtualTime must be an RFC 3339 timestamp")
			return
		}
		utc := parsed.UTC()
		virtual = &utc
	}

	logger := h.log(r.Context(), "Configure", "principal_id", principal.UserID)

	status, err := h.service.Configure(r.Context(), application.ConfigureClockParams{
		Principal:   principal,
		Enabled:     req.Enabled,
		VirtualTime: virtual,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "clock configure failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("test_mode", status.TestMode).InfoContext(r.Context(), "clock configured")
	h.responder.writeSuccess(r.Context(), w, "test mode updated", envelope{
		"testMode":    status.TestMode,
		"virtualTime": formatOptionalTime(status.VirtualTime),
		"currentTime": status.CurrentTime.UTC().Format(time.RFC3339Nano),
	})
}

type configureClockRequest struct {
	Enabled     *bool   `json:"enabled"`
	VirtualTime *string `json:"virtualTime"`
}

func formatOptionalTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}
