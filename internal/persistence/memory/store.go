// Package memory holds the live collections backing the booking service. The
// store is the process-wide source of truth; the durable snapshot gateway
// only observes it through Snapshot and repopulates it through Restore.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/example/campus-pingpong/internal/persistence"
)

// Store owns the users, bookings, and ratings collections together with the
// per-collection identifier counters.
type Store struct {
	mu       sync.RWMutex
	users    map[int64]persistence.User
	bookings map[int64]persistence.Booking
	ratings  map[int64]persistence.Rating
	counters persistence.Counters
}

// NewStore returns an empty store with counters starting at 1.
func NewStore() *Store {
	return &Store{
		users:    make(map[int64]persistence.User),
		bookings: make(map[int64]persistence.Booking),
		ratings:  make(map[int64]persistence.Rating),
		counters: persistence.Counters{NextUserID: 1, NextBookingID: 1, NextRatingID: 1},
	}
}

// --- users ---

// CreateUser stores a new user, allocating its identifier. The student
// identifier is a unique natural key.
func (s *Store) CreateUser(ctx context.Context, user persistence.User) (persistence.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.StudentID == user.StudentID {
			return persistence.User{}, fmt.Errorf("memory: student %s: %w", user.StudentID, persistence.ErrDuplicate)
		}
	}

	user.ID = s.counters.NextUserID
	s.counters.NextUserID++
	s.users[user.ID] = user
	return user, nil
}

// GetUser retrieves a user by ID.
func (s *Store) GetUser(ctx context.Context, id int64) (persistence.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return persistence.User{}, persistence.ErrNotFound
	}
	return user, nil
}

// GetUserByStudentID retrieves a user by its student identifier.
func (s *Store) GetUserByStudentID(ctx context.Context, studentID string) (persistence.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if user.StudentID == studentID {
			return user, nil
		}
	}
	return persistence.User{}, persistence.ErrNotFound
}

// UpdateUser replaces an existing user.
func (s *Store) UpdateUser(ctx context.Context, user persistence.User) (persistence.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; !ok {
		return persistence.User{}, persistence.ErrNotFound
	}
	s.users[user.ID] = user
	return user, nil
}

// ListUsers returns all users ordered by identifier.
func (s *Store) ListUsers(ctx context.Context) ([]persistence.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]persistence.User, 0, len(s.users))
	for _, user := range s.users {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

// --- bookings ---

// CreateBooking stores a new booking, allocating its identifier.
func (s *Store) CreateBooking(ctx context.Context, booking persistence.Booking) (persistence.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	booking.ID = s.counters.NextBookingID
	s.counters.NextBookingID++
	booking.Participants = cloneParticipants(booking.Participants)
	s.bookings[booking.ID] = booking
	return cloneBooking(booking), nil
}

// GetBooking retrieves a booking by ID.
func (s *Store) GetBooking(ctx context.Context, id int64) (persistence.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	booking, ok := s.bookings[id]
	if !ok {
		return persistence.Booking{}, persistence.ErrNotFound
	}
	return cloneBooking(booking), nil
}

// UpdateBooking replaces an existing booking.
func (s *Store) UpdateBooking(ctx context.Context, booking persistence.Booking) (persistence.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.bookings[booking.ID]; !ok {
		return persistence.Booking{}, persistence.ErrNotFound
	}
	booking.Participants = cloneParticipants(booking.Participants)
	s.bookings[booking.ID] = booking
	return cloneBooking(booking), nil
}

// DeleteBooking removes a booking by ID.
func (s *Store) DeleteBooking(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.bookings[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.bookings, id)
	return nil
}

// ListBookings returns all bookings ordered by identifier.
func (s *Store) ListBookings(ctx context.Context) ([]persistence.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bookings := make([]persistence.Booking, 0, len(s.bookings))
	for _, booking := range s.bookings {
		bookings = append(bookings, cloneBooking(booking))
	}
	sort.Slice(bookings, func(i, j int) bool { return bookings[i].ID < bookings[j].ID })
	return bookings, nil
}

// --- ratings ---

// CreateRating stores a new rating, allocating its identifier.
func (s *Store) CreateRating(ctx context.Context, rating persistence.Rating) (persistence.Rating, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rating.ID = s.counters.NextRatingID
	s.counters.NextRatingID++
	s.ratings[rating.ID] = rating
	return rating, nil
}

// ListRatings returns all ratings ordered by identifier.
func (s *Store) ListRatings(ctx context.Context) ([]persistence.Rating, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listRatingsLocked(func(persistence.Rating) bool { return true }), nil
}

// ListRatingsForBooking returns the ratings recorded against one booking.
func (s *Store) ListRatingsForBooking(ctx context.Context, bookingID int64) ([]persistence.Rating, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listRatingsLocked(func(r persistence.Rating) bool { return r.BookingID == bookingID }), nil
}

// ListRatingsForRated returns the ratings where the student is the rated party.
func (s *Store) ListRatingsForRated(ctx context.Context, studentID string) ([]persistence.Rating, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listRatingsLocked(func(r persistence.Rating) bool { return r.RatedStudentID == studentID }), nil
}

// ListRatingsByRater returns the ratings authored by the student.
func (s *Store) ListRatingsByRater(ctx context.Context, studentID string) ([]persistence.Rating, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listRatingsLocked(func(r persistence.Rating) bool { return r.RaterStudentID == studentID }), nil
}

func (s *Store) listRatingsLocked(keep func(persistence.Rating) bool) []persistence.Rating {
	ratings := make([]persistence.Rating, 0, len(s.ratings))
	for _, rating := range s.ratings {
		if keep(rating) {
			ratings = append(ratings, rating)
		}
	}
	sort.Slice(ratings, func(i, j int) bool { return ratings[i].ID < ratings[j].ID })
	return ratings
}

// --- snapshotting ---

// Snapshot copies the full durable state for the gateway to write out.
func (s *Store) Snapshot() persistence.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := persistence.Snapshot{
		Users:    make([]persistence.User, 0, len(s.users)),
		Bookings: make([]persistence.Booking, 0, len(s.bookings)),
		Ratings:  make([]persistence.Rating, 0, len(s.ratings)),
		Counters: s.counters,
	}
	for _, user := range s.users {
		snapshot.Users = append(snapshot.Users, user)
	}
	for _, booking := range s.bookings {
		snapshot.Bookings = append(snapshot.Bookings, cloneBooking(booking))
	}
	for _, rating := range s.ratings {
		snapshot.Ratings = append(snapshot.Ratings, rating)
	}
	sort.Slice(snapshot.Users, func(i, j int) bool { return snapshot.Users[i].ID < snapshot.Users[j].ID })
	sort.Slice(snapshot.Bookings, func(i, j int) bool { return snapshot.Bookings[i].ID < snapshot.Bookings[j].ID })
	sort.Slice(snapshot.Ratings, func(i, j int) bool { return snapshot.Ratings[i].ID < snapshot.Ratings[j].ID })
	return snapshot
}

// Restore replaces the full in-memory state from a loaded snapshot. Counters
// never regress below one past the highest restored identifier.
func (s *Store) Restore(snapshot persistence.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.users = make(map[int64]persistence.User, len(snapshot.Users))
	for _, user := range snapshot.Users {
		s.users[user.ID] = user
	}
	s.bookings = make(map[int64]persistence.Booking, len(snapshot.Bookings))
	for _, booking := range snapshot.Bookings {
		booking.Participants = cloneParticipants(booking.Participants)
		s.bookings[booking.ID] = booking
	}
	s.ratings = make(map[int64]persistence.Rating, len(snapshot.Ratings))
	for _, rating := range snapshot.Ratings {
		s.ratings[rating.ID] = rating
	}

	s.counters = snapshot.Counters
	for _, user := range snapshot.Users {
		if user.ID >= s.counters.NextUserID {
			s.counters.NextUserID = user.ID + 1
		}
	}
	for _, booking := range snapshot.Bookings {
		if booking.ID >= s.counters.NextBookingID {
			s.counters.NextBookingID = booking.ID + 1
		}
	}
	for _, rating := range snapshot.Ratings {
		if rating.ID >= s.counters.NextRatingID {
			s.counters.NextRatingID = rating.ID + 1
		}
	}
	if s.counters.NextUserID < 1 {
		s.counters.NextUserID = 1
	}
	if s.counters.NextBookingID < 1 {
		s.counters.NextBookingID = 1
	}
	if s.counters.NextRatingID < 1 {
		s.counters.NextRatingID = 1
	}
}

func cloneBooking(booking persistence.Booking) persistence.Booking {
	booking.Participants = cloneParticipants(booking.Participants)
	return booking
}

func cloneParticipants(participants []persistence.Participant) []persistence.Participant {
	if participants == nil {
		return nil
	}
	out := make([]persistence.Participant, len(participants))
	copy(out, participants)
	return out
}
