package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/campus-pingpong/internal/application"
)

type profileService interface {
	GetProfile(ctx context.Context, studentID string) (application.User, error)
	UpdateProfile(ctx context.Context, params application.UpdateProfileParams) (application.User, error)
	ListUsers(ctx context.Context, principal application.Principal) ([]application.User, error)
}

type historyService interface {
	PendingForUser(ctx context.Context, studentID string) ([]application.Booking, error)
	Stats(ctx context.Context, studentID string) (application.RatingStats, error)
}

type UserHandler struct {
	service   profileService
	history   historyService
	responder responder
	logger    *slog.Logger
}

func NewUserHandler(service profileService, history historyService, logger *slog.Logger) *UserHandler {
	base := defaultLogger(logger)
	return &UserHandler{service: service, history: history, responder: newResponder(base), logger: base}
}

func (h *UserHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "UserHandler", operation, attrs...)
}

// GetProfile returns the public profile of a student.
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	studentID, ok := StudentIDFromContext(r.Context())
	if !ok || strings.TrimSpace(studentID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidStudentID)
		return
	}

	logger := h.log(r.Context(), "GetProfile", "student_id", studentID)

	user, err := h.service.GetProfile(r.Context(), studentID)
	if err != nil {
		logger.ErrorContext(r.Context(), "profile lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeSuccess(r.Context(), w, "", envelope{"user": toProfileDTO(user, true)})
}

// UpdateProfile patches the caller's own bio and level.
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "UpdateProfile", "principal_id", principal.UserID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode profile update", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "UpdateProfile", "principal_id", principal.UserID)

	user, err := h.service.UpdateProfile(r.Context(), application.UpdateProfileParams{
		Principal: principal,
		Bio:       req.Bio,
		Level:     req.Level,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "profile update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "profile updated")
	h.responder.writeSuccess(r.Context(), w, "profile updated", envelope{"user": toProfileDTO(user, false)})
}

// List returns every registered user. Administrators only.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "List", "principal_id", principal.UserID)

	users, err := h.service.ListUsers(r.Context(), principal)
	if err != nil {
		logger.ErrorContext(r.Context(), "user list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(users)).InfoContext(r.Context(), "users listed")
	out := make([]profileDTO, 0, len(users))
	for _, user := range users {
		out = append(out, toProfileDTO(user, true))
	}
	h.responder.writeSuccess(r.Context(), w, "", envelope{"users": out})
}

// History returns the student's profile together with completed bookings
// still awaiting their ratings and the aggregated scores they received.
func (h *UserHandler) History(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil || h.history == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	studentID, ok := StudentIDFromContext(r.Context())
	if !ok || strings.TrimSpace(studentID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidStudentID)
		return
	}

	logger := h.log(r.Context(), "History", "student_id", studentID)

	user, err := h.service.GetProfile(r.Context(), studentID)
	if err != nil {
		logger.ErrorContext(r.Context(), "profile lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	pending, err := h.history.PendingForUser(r.Context(), studentID)
	if err != nil {
		logger.ErrorContext(r.Context(), "history lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	stats, err := h.history.Stats(r.Context(), studentID)
	if err != nil {
		logger.ErrorContext(r.Context(), "rating stats lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("pending_count", len(pending)).InfoContext(r.Context(), "history assembled")
	h.responder.writeSuccess(r.Context(), w, "", envelope{
		"user":            toProfileDTO(user, true),
		"historyBookings": toBookingDTOs(pending),
		"ratingStats":     toRatingStatsDTO(stats),
	})
}

type updateProfileRequest struct {
	Bio   *string `json:"bio"`
	Level *int    `json:"level"`
}

type profileDTO struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	StudentID string `json:"studentId"`
	Bio       string `json:"bio"`
	Level     int    `json:"level"`
	IsAdmin   bool   `json:"isAdmin"`
	CreatedAt string `json:"createdAt,omitempty"`
}

func toProfileDTO(user application.User, withCreatedAt bool) profileDTO {
	dto := profileDTO{
		ID:        user.ID,
		Name:      user.Name,
		StudentID: user.StudentID,
		Bio:       user.Bio,
		Level:     user.Level,
		IsAdmin:   user.IsAdmin,
	}
	if withCreatedAt {
		dto.CreatedAt = user.CreatedAt.UTC().Format(time.RFC3339Nano)
	}
	return dto
}

type ratingStatsDTO struct {
	SkillCount           int         `json:"skillCount"`
	PleasureCount        int         `json:"pleasureCount"`
	SkillDistribution    map[int]int `json:"skillDistribution"`
	PleasureDistribution map[int]int `json:"pleasureDistribution"`
	AvgSkill             float64     `json:"avgSkill"`
	AvgPleasure          float64     `json:"avgPleasure"`
}

func toRatingStatsDTO(stats application.RatingStats) ratingStatsDTO {
	return ratingStatsDTO{
		SkillCount:           stats.SkillCount,
		PleasureCount:        stats.PleasureCount,
		SkillDistribution:    stats.SkillDistribution,
		PleasureDistribution: stats.PleasureDistribution,
		AvgSkill:             stats.AvgSkill,
		AvgPleasure:          stats.AvgPleasure,
	}
}
