package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// RatingRepository captures the persistence operations needed by the rating
// ledger.
type RatingRepository interface {
	CreateRating(ctx context.Context, r Rating) (Rating, error)
	ListRatingsForBooking(ctx context.Context, bookingID int64) ([]Rating, error)
	ListRatingsForRated(ctx context.Context, ratedStudentID string) ([]Rating, error)
	ListRatingsByRater(ctx context.Context, raterStudentID string) ([]Rating, error)
}

// RatingService records post-game peer ratings and retires completed
// bookings once every ordered participant pair has rated. Ratings outlive
// the bookings they were recorded against.
type RatingService struct {
	ratings      RatingRepository
	bookings     BookingRepository
	mu           *sync.Mutex
	checkpointer Checkpointer
	now          func() time.Time
	logger       *slog.Logger
}

// NewRatingService wires dependencies for the rating service. The mutex must
// be the same lock the booking service mutates under.
func NewRatingService(ratings RatingRepository, bookings BookingRepository, mu *sync.Mutex, checkpointer Checkpointer, now func() time.Time, logger *slog.Logger) *RatingService {
	if mu == nil {
		mu = &sync.Mutex{}
	}
	if now == nil {
		now = time.Now
	}
	return &RatingService{
		ratings:      ratings,
		bookings:     bookings,
		mu:           mu,
		checkpointer: checkpointer,
		now:          now,
		logger:       defaultLogger(logger),
	}
}

func (s *RatingService) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if s == nil {
		return slog.Default()
	}
	return serviceLogger(ctx, s.logger, "RatingService", operation, attrs...)
}

// Submit records one rating from the caller toward a fellow participant of a
// completed booking, then checks whether the booking's rating matrix is full
// and retires the booking if so.
func (s *RatingService) Submit(ctx context.Context, params SubmitRatingParams) (SubmitRatingResult, error) {
	if s == nil || s.ratings == nil || s.bookings == nil {
		return SubmitRatingResult{}, fmt.Errorf("rating service not configured")
	}
	if !params.Principal.Authenticated() {
		return SubmitRatingResult{}, ErrAuthenticationRequired
	}

	vErr := &ValidationError{}
	if params.BookingID == 0 {
		vErr.add("bookingId", "booking id is required")
	}
	if params.RatedStudentID == "" {
		vErr.add("ratedStudentId", "rated student id is required")
	}
	if params.Skill < 1 || params.Skill > 5 {
		vErr.add("skill", "skill must be between 1 and 5")
	}
	if params.Pleasure < 1 || params.Pleasure > 5 {
		vErr.add("pleasure", "pleasure must be between 1 and 5")
	}
	if vErr.HasErrors() {
		return SubmitRatingResult{}, vErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := sweepBookings(ctx, s.bookings, s.now()); err != nil {
		return SubmitRatingResult{}, err
	}

	b, err := s.bookings.GetBooking(ctx, params.BookingID)
	if err != nil {
		return SubmitRatingResult{}, mapRepoError(err)
	}

	if b.Status != StatusCompleted {
		return SubmitRatingResult{}, ErrBookingNotCompleted
	}
	if !b.HasParticipant(params.Principal.StudentID) {
		return SubmitRatingResult{}, ErrRaterNotParticipant
	}
	if !b.HasParticipant(params.RatedStudentID) {
		return SubmitRatingResult{}, ErrRatedNotParticipant
	}

	recorded, err := s.ratings.ListRatingsForBooking(ctx, b.ID)
	if err != nil {
		return SubmitRatingResult{}, err
	}
	for _, r := range recorded {
		if r.RaterStudentID == params.Principal.StudentID && r.RatedStudentID == params.RatedStudentID {
			return SubmitRatingResult{}, ErrDuplicateRating
		}
	}

	rating, err := s.ratings.CreateRating(ctx, Rating{
		BookingID:      b.ID,
		RaterStudentID: params.Principal.StudentID,
		RatedStudentID: params.RatedStudentID,
		Skill:          params.Skill,
		Pleasure:       params.Pleasure,
		CreatedAt:      s.now(),
	})
	if err != nil {
		return SubmitRatingResult{}, mapRepoError(err)
	}

	recorded = append(recorded, rating)
	retired := ratingMatrixComplete(b, recorded)
	if retired {
		if err := s.bookings.DeleteBooking(ctx, b.ID); err != nil {
			if !errors.Is(mapRepoError(err), ErrNotFound) {
				return SubmitRatingResult{}, mapRepoError(err)
			}
		}
	}

	logger := s.log(ctx, "Submit", "booking_id", b.ID, "rater_id", rating.RaterStudentID, "rated_id", rating.RatedStudentID)
	logger.InfoContext(ctx, "rating recorded", "booking_retired", retired)
	checkpointState(ctx, s.checkpointer, logger)

	return SubmitRatingResult{Rating: rating, BookingDeleted: retired}, nil
}

// ListByRater returns every rating the caller has submitted.
func (s *RatingService) ListByRater(ctx context.Context, principal Principal) ([]Rating, error) {
	if s == nil || s.ratings == nil {
		return nil, fmt.Errorf("rating service not configured")
	}
	if !principal.Authenticated() {
		return nil, ErrAuthenticationRequired
	}
	return s.ratings.ListRatingsByRater(ctx, principal.StudentID)
}

// Stats aggregates the ratings received by a student into counts, score
// distributions, and averages. An unrated student gets zeroed statistics.
func (s *RatingService) Stats(ctx context.Context, studentID string) (RatingStats, error) {
	if s == nil || s.ratings == nil {
		return RatingStats{}, fmt.Errorf("rating service not configured")
	}

	received, err := s.ratings.ListRatingsForRated(ctx, studentID)
	if err != nil {
		return RatingStats{}, err
	}

	stats := RatingStats{
		SkillDistribution:    map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0},
		PleasureDistribution: map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0},
	}
	skillTotal, pleasureTotal := 0, 0
	for _, r := range received {
		stats.SkillCount++
		stats.PleasureCount++
		stats.SkillDistribution[r.Skill]++
		stats.PleasureDistribution[r.Pleasure]++
		skillTotal += r.Skill
		pleasureTotal += r.Pleasure
	}
	if stats.SkillCount > 0 {
		stats.AvgSkill = float64(skillTotal) / float64(stats.SkillCount)
	}
	if stats.PleasureCount > 0 {
		stats.AvgPleasure = float64(pleasureTotal) / float64(stats.PleasureCount)
	}
	return stats, nil
}

// PendingForUser sweeps, then returns completed bookings the student took
// part in and has not yet fully rated.
func (s *RatingService) PendingForUser(ctx context.Context, studentID string) ([]Booking, error) {
	if s == nil || s.ratings == nil || s.bookings == nil {
		return nil, fmt.Errorf("rating service not configured")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	changed, err := sweepBookings(ctx, s.bookings, s.now())
	if err != nil {
		return nil, err
	}
	if changed {
		checkpointState(ctx, s.checkpointer, s.log(ctx, "PendingForUser"))
	}

	all, err := s.bookings.ListBookings(ctx)
	if err != nil {
		return nil, err
	}

	pending := make([]Booking, 0)
	for _, b := range all {
		if b.Status != StatusCompleted || !b.HasParticipant(studentID) {
			continue
		}
		done, err := s.userRatedEveryone(ctx, b, studentID)
		if err != nil {
			return nil, err
		}
		if !done {
			pending = append(pending, b)
		}
	}
	return pending, nil
}

// userRatedEveryone reports whether the student has rated every other
// participant of the booking.
func (s *RatingService) userRatedEveryone(ctx context.Context, b Booking, studentID string) (bool, error) {
	recorded, err := s.ratings.ListRatingsForBooking(ctx, b.ID)
	if err != nil {
		return false, err
	}
	rated := make(map[string]bool)
	for _, r := range recorded {
		if r.RaterStudentID == studentID {
			rated[r.RatedStudentID] = true
		}
	}
	for _, other := range b.ParticipantIDs() {
		if other == studentID {
			continue
		}
		if !rated[other] {
			return false, nil
		}
	}
	return true, nil
}

// ratingMatrixComplete reports whether every ordered pair of distinct
// participants has a recorded rating.
func ratingMatrixComplete(b Booking, recorded []Rating) bool {
	type pair struct{ rater, rated string }
	have := make(map[pair]bool, len(recorded))
	for _, r := range recorded {
		have[pair{r.RaterStudentID, r.RatedStudentID}] = true
	}
	ids := b.ParticipantIDs()
	for _, rater := range ids {
		for _, rated := range ids {
			if rater == rated {
				continue
			}
			if !have[pair{rater, rated}] {
				return false
			}
		}
	}
	return true
}
