package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/campus-pingpong/internal/application"
)

type ratingService interface {
	Submit(ctx context.Context, params application.SubmitRatingParams) (application.SubmitRatingResult, error)
	ListByRater(ctx context.Context, principal application.Principal) ([]application.Rating, error)
}

type RatingHandler struct {
	service   ratingService
	responder responder
	logger    *slog.Logger
}

func NewRatingHandler(service ratingService, logger *slog.Logger) *RatingHandler {
	base := defaultLogger(logger)
	return &RatingHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *RatingHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "RatingHandler", operation, attrs...)
}

// Submit records a rating toward another participant of a completed booking.
func (h *RatingHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req submitRatingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Submit", "principal_id", principal.UserID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode rating request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Submit", "principal_id", principal.UserID, "booking_id", req.BookingID)

	result, err := h.service.Submit(r.Context(), application.SubmitRatingParams{
		Principal:      principal,
		BookingID:      req.BookingID,
		RatedStudentID: req.RatedStudentID,
		Skill:          req.Skill,
		Pleasure:       req.Pleasure,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "rating submission failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("rating_id", result.Rating.ID, "booking_retired", result.BookingDeleted).InfoContext(r.Context(), "rating recorded")
	h.responder.writeSuccess(r.Context(), w, "rating recorded", envelope{
		"rating":         toRatingDTO(result.Rating),
		"bookingDeleted": result.BookingDeleted,
	})
}

// List returns every rating the caller has submitted.
func (h *RatingHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "List", "principal_id", principal.UserID)

	ratings, err := h.service.ListByRater(r.Context(), principal)
	if err != nil {
		logger.ErrorContext(r.Context(), "rating list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(ratings)).InfoContext(r.Context(), "ratings listed")
	out := make([]ratingDTO, 0, len(ratings))
	for _, rating := range ratings {
		out = append(out, toRatingDTO(rating))
	}
	h.responder.writeSuccess(r.Context(), w, "", envelope{"ratings": out})
}

type submitRatingRequest struct {
	BookingID      int64  `json:"bookingId"`
	RatedStudentID string `json:"ratedStudentId"`
	Skill          int    `json:"skill"`
	Pleasure       int    `json:"pleasure"`
}

type ratingDTO struct {
	ID             int64  `json:"id"`
	BookingID      int64  `json:"bookingId"`
	RaterStudentID string `json:"raterStudentId"`
	RatedStudentID string `json:"ratedStudentId"`
	Skill          int    `json:"skill"`
	Pleasure       int    `json:"pleasure"`
	CreatedAt      string `json:"createdAt"`
}

func toRatingDTO(rating application.Rating) ratingDTO {
	return ratingDTO{
		ID:             rating.ID,
		BookingID:      rating.BookingID,
		RaterStudentID: rating.RaterStudentID,
		RatedStudentID: rating.RatedStudentID,
		Skill:          rating.Skill,
		Pleasure:       rating.Pleasure,
		CreatedAt:      rating.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}
