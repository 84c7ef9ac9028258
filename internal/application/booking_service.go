package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/example/campus-pingpong/internal/booking"
)

// Maximum non-cancelled bookings a single student may organize at once.
const maxBookingsPerOrganizer = 5

// BookingRepository captures the persistence operations needed by the
// booking lifecycle engine.
type BookingRepository interface {
	CreateBooking(ctx context.Context, b Booking) (Booking, error)
	GetBooking(ctx context.Context, id int64) (Booking, error)
	UpdateBooking(ctx context.Context, b Booking) (Booking, error)
	DeleteBooking(ctx context.Context, id int64) error
	ListBookings(ctx context.Context) ([]Booking, error)
}

// BookingService owns the booking state machine: creation inside the
// bookable window, join/leave/cancel under the time-window rules, and the
// sweep that reconciles statuses against the clock. All mutating operations
// serialize on the shared mutation lock.
type BookingService struct {
	bookings     BookingRepository
	mu           *sync.Mutex
	checkpointer Checkpointer
	now          func() time.Time
	logger       *slog.Logger
}

// NewBookingService wires dependencies for the booking service.
func NewBookingService(bookings BookingRepository, mu *sync.Mutex, checkpointer Checkpointer, now func() time.Time, logger *slog.Logger) *BookingService {
	if mu == nil {
		mu = &sync.Mutex{}
	}
	if now == nil {
		now = time.Now
	}
	return &BookingService{
		bookings:     bookings,
		mu:           mu,
		checkpointer: checkpointer,
		now:          now,
		logger:       defaultLogger(logger),
	}
}

func (s *BookingService) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if s == nil {
		return slog.Default()
	}
	return serviceLogger(ctx, s.logger, "BookingService", operation, attrs...)
}

// Create validates the slot request and opens a new active booking with the
// organizer as its sole participant.
func (s *BookingService) Create(ctx context.Context, params CreateBookingParams) (Booking, error) {
	if s == nil || s.bookings == nil {
		return Booking{}, fmt.Errorf("booking service not configured")
	}

	name := strings.TrimSpace(params.Name)
	studentID := strings.TrimSpace(params.StudentID)
	day := strings.TrimSpace(params.Day)
	table := strings.TrimSpace(params.Table)

	vErr := &ValidationError{}
	if name == "" {
		vErr.add("name", "name is required")
	}
	if studentID == "" {
		vErr.add("studentId", "student id is required")
	}
	if day == "" {
		vErr.add("day", "day is required")
	}
	if strings.TrimSpace(params.Time) == "" {
		vErr.add("time", "time is required")
	}
	if table == "" {
		vErr.add("table", "table is required")
	}
	if params.MaxPlayers < 1 {
		vErr.add("maxPlayers", "capacity must be at least 1")
	}
	if vErr.HasErrors() {
		return Booking{}, vErr
	}

	timeOfDay, err := booking.NormalizeHour(params.Time)
	if err != nil {
		vErr.add("time", "time must be an hour between 0 and 23")
		return Booking{}, vErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	existing, err := s.bookings.ListBookings(ctx)
	if err != nil {
		return Booking{}, err
	}

	organized := 0
	for _, b := range existing {
		if b.StudentID == studentID && b.Status != StatusCancelled {
			organized++
		}
	}
	if organized >= maxBookingsPerOrganizer {
		return Booking{}, ErrBookingQuotaExceeded
	}

	date, err := booking.ResolveDay(day, now)
	if err != nil {
		vErr.add("day", "day must be today, tomorrow, dayAfterTomorrow, or a date like 2024-06-10")
		return Booking{}, vErr
	}
	if !booking.WithinBookableRange(date, now) {
		return Booking{}, ErrDateOutOfRange
	}

	for _, b := range existing {
		if b.Date == date && b.Time == timeOfDay && b.Table == table && b.Status != StatusCancelled {
			return Booking{}, ErrSlotTaken
		}
	}

	created, err := s.bookings.CreateBooking(ctx, Booking{
		Name:           name,
		StudentID:      studentID,
		Day:            day,
		Date:           date,
		Time:           timeOfDay,
		Table:          table,
		MaxPlayers:     params.MaxPlayers,
		CurrentPlayers: 1,
		Participants:   []Participant{{Name: name, StudentID: studentID}},
		Status:         StatusActive,
		CreatedAt:      now,
	})
	if err != nil {
		return Booking{}, mapRepoError(err)
	}

	logger := s.log(ctx, "Create", "booking_id", created.ID, "student_id", studentID)
	logger.InfoContext(ctx, "booking created", "date", created.Date, "time", created.Time, "table", created.Table)
	checkpointState(ctx, s.checkpointer, logger)

	return created, nil
}

// Join appends a participant to an open booking.
func (s *BookingService) Join(ctx context.Context, params JoinBookingParams) (Booking, error) {
	if s == nil || s.bookings == nil {
		return Booking{}, fmt.Errorf("booking service not configured")
	}

	name := strings.TrimSpace(params.Name)
	studentID := strings.TrimSpace(params.StudentID)

	vErr := &ValidationError{}
	if name == "" {
		vErr.add("name", "name is required")
	}
	if studentID == "" {
		vErr.add("studentId", "student id is required")
	}
	if vErr.HasErrors() {
		return Booking{}, vErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.bookings.GetBooking(ctx, params.BookingID)
	if err != nil {
		return Booking{}, mapRepoError(err)
	}

	if b.Status == StatusCancelled {
		return Booking{}, ErrBookingCancelled
	}
	if b.CurrentPlayers >= b.MaxPlayers {
		return Booking{}, ErrBookingFull
	}
	if b.HasParticipant(studentID) {
		return Booking{}, ErrAlreadyJoined
	}

	b.Participants = append(b.Participants, Participant{Name: name, StudentID: studentID})
	b.CurrentPlayers++

	updated, err := s.bookings.UpdateBooking(ctx, b)
	if err != nil {
		return Booking{}, mapRepoError(err)
	}

	logger := s.log(ctx, "Join", "booking_id", updated.ID, "student_id", studentID)
	logger.InfoContext(ctx, "participant joined", "current_players", updated.CurrentPlayers)
	checkpointState(ctx, s.checkpointer, logger)

	return updated, nil
}

// Leave removes the calling participant from a booking. The organizer must
// cancel instead, and departures inside the two-hour window are refused when
// they would strand a lone organizer.
func (s *BookingService) Leave(ctx context.Context, principal Principal, bookingID int64) (Booking, error) {
	if s == nil || s.bookings == nil {
		return Booking{}, fmt.Errorf("booking service not configured")
	}
	if !principal.Authenticated() {
		return Booking{}, ErrAuthenticationRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		return Booking{}, mapRepoError(err)
	}

	if b.Status == StatusCancelled {
		return Booking{}, ErrBookingCancelled
	}
	if b.StudentID == principal.StudentID {
		return Booking{}, ErrOrganizerCannotLeave
	}

	index := -1
	for i, p := range b.Participants {
		if p.StudentID == principal.StudentID {
			index = i
			break
		}
	}
	if index == -1 {
		return Booking{}, ErrNotParticipant
	}

	start, err := booking.StartTime(b.Date, b.Time)
	if err != nil {
		return Booking{}, fmt.Errorf("booking %d has malformed slot: %w", b.ID, err)
	}
	switch booking.CheckDeparture(start, s.now(), b.CurrentPlayers == 2) {
	case booking.DeniedWithinWindow:
		return Booking{}, ErrLeaveWindowClosed
	case booking.DeniedStarted:
		return Booking{}, ErrBookingStarted
	}

	b.Participants = append(b.Participants[:index], b.Participants[index+1:]...)
	b.CurrentPlayers--

	updated, err := s.bookings.UpdateBooking(ctx, b)
	if err != nil {
		return Booking{}, mapRepoError(err)
	}

	logger := s.log(ctx, "Leave", "booking_id", updated.ID, "student_id", principal.StudentID)
	logger.InfoContext(ctx, "participant left", "current_players", updated.CurrentPlayers)
	checkpointState(ctx, s.checkpointer, logger)

	return updated, nil
}

// Cancel withdraws a booking. Only the organizer may cancel, and only
// outside the two-hour pre-start window.
func (s *BookingService) Cancel(ctx context.Context, principal Principal, bookingID int64) (Booking, error) {
	if s == nil || s.bookings == nil {
		return Booking{}, fmt.Errorf("booking service not configured")
	}
	if !principal.Authenticated() {
		return Booking{}, ErrAuthenticationRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		return Booking{}, mapRepoError(err)
	}

	if b.StudentID != principal.StudentID {
		return Booking{}, ErrNotOrganizer
	}
	if b.Status == StatusCancelled {
		return Booking{}, ErrBookingCancelled
	}

	start, err := booking.StartTime(b.Date, b.Time)
	if err != nil {
		return Booking{}, fmt.Errorf("booking %d has malformed slot: %w", b.ID, err)
	}
	switch booking.CheckDeparture(start, s.now(), true) {
	case booking.DeniedWithinWindow:
		return Booking{}, ErrCancelWindowClosed
	case booking.DeniedStarted:
		return Booking{}, ErrBookingStarted
	}

	b.Status = StatusCancelled

	updated, err := s.bookings.UpdateBooking(ctx, b)
	if err != nil {
		return Booking{}, mapRepoError(err)
	}

	logger := s.log(ctx, "Cancel", "booking_id", updated.ID, "student_id", principal.StudentID)
	logger.InfoContext(ctx, "booking cancelled")
	checkpointState(ctx, s.checkpointer, logger)

	return updated, nil
}

// AdminDelete removes a booking unconditionally for administrators.
func (s *BookingService) AdminDelete(ctx context.Context, principal Principal, bookingID int64) error {
	if s == nil || s.bookings == nil {
		return fmt.Errorf("booking service not configured")
	}
	if !principal.Authenticated() {
		return ErrAuthenticationRequired
	}
	if !principal.IsAdmin {
		return ErrUnauthorized
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.bookings.DeleteBooking(ctx, bookingID); err != nil {
		return mapRepoError(err)
	}

	logger := s.log(ctx, "AdminDelete", "booking_id", bookingID, "actor_id", principal.StudentID)
	logger.InfoContext(ctx, "booking removed by administrator")
	checkpointState(ctx, s.checkpointer, logger)

	return nil
}

// Sweep reconciles booking statuses against the clock and purges what no
// longer belongs in the collection. It is idempotent and safe to invoke
// repeatedly.
func (s *BookingService) Sweep(ctx context.Context) error {
	if s == nil || s.bookings == nil {
		return fmt.Errorf("booking service not configured")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	changed, err := sweepBookings(ctx, s.bookings, s.now())
	if err != nil {
		return err
	}
	if changed {
		logger := s.log(ctx, "Sweep")
		logger.InfoContext(ctx, "booking collection reconciled")
		checkpointState(ctx, s.checkpointer, logger)
	}
	return nil
}

// List sweeps, then returns active bookings ordered by date, time, and
// identifier.
func (s *BookingService) List(ctx context.Context) ([]Booking, error) {
	if s == nil || s.bookings == nil {
		return nil, fmt.Errorf("booking service not configured")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	changed, err := sweepBookings(ctx, s.bookings, s.now())
	if err != nil {
		return nil, err
	}
	if changed {
		checkpointState(ctx, s.checkpointer, s.log(ctx, "List"))
	}

	all, err := s.bookings.ListBookings(ctx)
	if err != nil {
		return nil, err
	}

	active := make([]Booking, 0, len(all))
	for _, b := range all {
		if b.Status == StatusActive {
			active = append(active, b)
		}
	}
	sort.Slice(active, func(i, j int) bool {
		if active[i].Date != active[j].Date {
			return active[i].Date < active[j].Date
		}
		if active[i].Time != active[j].Time {
			return active[i].Time < active[j].Time
		}
		return active[i].ID < active[j].ID
	})
	return active, nil
}

// sweepBookings applies the time-driven reconciliation: ended active
// bookings become completed (two or more players) or are removed outright (a
// lone organizer), and non-completed bookings dated before today are purged.
// Completed bookings survive until the rating ledger closes them. The caller
// holds the mutation lock.
func sweepBookings(ctx context.Context, repo BookingRepository, now time.Time) (bool, error) {
	all, err := repo.ListBookings(ctx)
	if err != nil {
		return false, err
	}

	changed := false
	for _, b := range all {
		if b.Status == StatusActive {
			start, err := booking.StartTime(b.Date, b.Time)
			if err != nil {
				// Malformed restored data; leave the record alone.
				continue
			}
			if booking.Ended(start, now) {
				if b.CurrentPlayers >= 2 {
					b.Status = StatusCompleted
					if _, err := repo.UpdateBooking(ctx, b); err != nil {
						return changed, mapRepoError(err)
					}
				} else {
					if err := repo.DeleteBooking(ctx, b.ID); err != nil {
						return changed, mapRepoError(err)
					}
				}
				changed = true
				continue
			}
		}

		if b.Status != StatusCompleted && booking.ExpiredDate(b.Date, now) {
			if err := repo.DeleteBooking(ctx, b.ID); err != nil {
				return changed, mapRepoError(err)
			}
			changed = true
		}
	}
	return changed, nil
}
