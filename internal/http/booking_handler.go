package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/campus-pingpong/internal/application"
)

type bookingService interface {
	Create(ctx context.Context, params application.CreateBookingParams) (application.Booking, error)
	Join(ctx context.Context, params application.JoinBookingParams) (application.Booking, error)
	Leave(ctx context.Context, principal application.Principal, bookingID int64) (application.Booking, error)
	Cancel(ctx context.Context, principal application.Principal, bookingID int64) (application.Booking, error)
	AdminDelete(ctx context.Context, principal application.Principal, bookingID int64) error
	List(ctx context.Context) ([]application.Booking, error)
}

type BookingHandler struct {
	service   bookingService
	responder responder
	logger    *slog.Logger
}

func NewBookingHandler(service bookingService, logger *slog.Logger) *BookingHandler {
	base := defaultLogger(logger)
	return &BookingHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *BookingHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "BookingHandler", operation, attrs...)
}

// List returns every active booking after the clock driven sweep.
func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	logger := h.log(r.Context(), "List")
	bookings, err := h.service.List(r.Context())
	if err != nil {
		logger.ErrorContext(r.Context(), "booking list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(bookings)).InfoContext(r.Context(), "bookings listed")
	h.responder.writeSuccess(r.Context(), w, "", envelope{"bookings": toBookingDTOs(bookings)})
}

// Create opens a new booking for the requested slot.
func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req createBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode booking request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create", "student_id", req.StudentID)

	booking, err := h.service.Create(r.Context(), application.CreateBookingParams{
		Name:       req.Name,
		StudentID:  req.StudentID,
		Day:        req.Day,
		Time:       req.Time,
		Table:      req.Table,
		MaxPlayers: req.MaxPlayers,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "booking creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("booking_id", booking.ID).InfoContext(r.Context(), "booking created")
	h.responder.writeSuccess(r.Context(), w, "booking created", envelope{"booking": toBookingDTO(booking)})
}

// Join adds the named student to a booking's roster.
func (h *BookingHandler) Join(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	bookingID, ok := BookingIDFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidBookingID)
		return
	}

	var req joinBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Join", "booking_id", bookingID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode join request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Join", "booking_id", bookingID, "student_id", req.StudentID)

	booking, err := h.service.Join(r.Context(), application.JoinBookingParams{
		BookingID: bookingID,
		Name:      req.Name,
		StudentID: req.StudentID,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "booking join failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "participant joined")
	h.responder.writeSuccess(r.Context(), w, "joined the booking", envelope{"booking": toBookingDTO(booking)})
}

// Cancel withdraws the caller's own booking.
func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	bookingID, ok := BookingIDFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidBookingID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Cancel", "booking_id", bookingID, "principal_id", principal.UserID)

	booking, err := h.service.Cancel(r.Context(), principal, bookingID)
	if err != nil {
		logger.ErrorContext(r.Context(), "booking cancel failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "booking cancelled")
	h.responder.writeSuccess(r.Context(), w, "booking cancelled", envelope{"booking": toBookingDTO(booking)})
}

// Leave removes the caller from a booking's roster.
func (h *BookingHandler) Leave(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	bookingID, ok := BookingIDFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidBookingID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Leave", "booking_id", bookingID, "principal_id", principal.UserID)

	booking, err := h.service.Leave(r.Context(), principal, bookingID)
	if err != nil {
		logger.ErrorContext(r.Context(), "booking leave failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "participant left")
	h.responder.writeSuccess(r.Context(), w, "left the booking", envelope{"booking": toBookingDTO(booking)})
}

// Delete removes a booking unconditionally. Administrators only.
func (h *BookingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	bookingID, ok := BookingIDFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidBookingID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Delete", "booking_id", bookingID, "principal_id", principal.UserID)

	if err := h.service.AdminDelete(r.Context(), principal, bookingID); err != nil {
		logger.ErrorContext(r.Context(), "booking delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "booking deleted by administrator")
	h.responder.writeSuccess(r.Context(), w, "booking deleted", nil)
}

type createBookingRequest struct {
	Name       string `json:"name"`
	StudentID  string `json:"studentId"`
	Day        string `json:"day"`
	Time       string `json:"time"`
	Table      string `json:"table"`
	MaxPlayers int    `json:"maxPlayers"`
}

type joinBookingRequest struct {
	Name      string `json:"name"`
	StudentID string `json:"studentId"`
}

type participantDTO struct {
	Name      string `json:"name"`
	StudentID string `json:"studentId"`
}

type bookingDTO struct {
	ID             int64            `json:"id"`
	Name           string           `json:"name"`
	StudentID      string           `json:"studentId"`
	Day            string           `json:"day"`
	ActualDate     string           `json:"actualDate"`
	Time           string           `json:"time"`
	Table          string           `json:"table"`
	MaxPlayers     int              `json:"maxPlayers"`
	CurrentPlayers int              `json:"currentPlayers"`
	Participants   []participantDTO `json:"participants"`
	Status         string           `json:"status"`
	CreatedAt      string           `json:"createdAt"`
}

func toBookingDTO(b application.Booking) bookingDTO {
	participants := make([]participantDTO, 0, len(b.Participants))
	for _, p := range b.Participants {
		participants = append(participants, participantDTO{Name: p.Name, StudentID: p.StudentID})
	}
	return bookingDTO{
		ID:             b.ID,
		Name:           b.Name,
		StudentID:      b.StudentID,
		Day:            b.Day,
		ActualDate:     b.Date,
		Time:           b.Time,
		Table:          b.Table,
		MaxPlayers:     b.MaxPlayers,
		CurrentPlayers: b.CurrentPlayers,
		Participants:   participants,
		Status:         string(b.Status),
		CreatedAt:      b.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func toBookingDTOs(bookings []application.Booking) []bookingDTO {
	out := make([]bookingDTO, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, toBookingDTO(b))
	}
	return out
}
