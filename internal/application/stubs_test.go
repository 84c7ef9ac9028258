package application

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// In-memory repository fakes shared by the service tests.

type stubUserRepo struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]User
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{nextID: 1, users: make(map[int64]User)}
}

func (r *stubUserRepo) CreateUser(ctx context.Context, user User) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.StudentID == user.StudentID {
			return User{}, ErrAlreadyExists
		}
	}
	user.ID = r.nextID
	r.nextID++
	r.users[user.ID] = user
	return user, nil
}

func (r *stubUserRepo) GetUser(ctx context.Context, id int64) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return user, nil
}

func (r *stubUserRepo) GetUserByStudentID(ctx context.Context, studentID string) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.StudentID == studentID {
			return user, nil
		}
	}
	return User{}, ErrNotFound
}

func (r *stubUserRepo) UpdateUser(ctx context.Context, user User) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return User{}, ErrNotFound
	}
	r.users[user.ID] = user
	return user, nil
}

func (r *stubUserRepo) ListUsers(ctx context.Context) ([]User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]User, 0, len(r.users))
	for _, user := range r.users {
		out = append(out, user)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type stubBookingRepo struct {
	mu       sync.Mutex
	nextID   int64
	bookings map[int64]Booking
}

func newStubBookingRepo() *stubBookingRepo {
	return &stubBookingRepo{nextID: 1, bookings: make(map[int64]Booking)}
}

func (r *stubBookingRepo) CreateBooking(ctx context.Context, b Booking) (Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b.ID = r.nextID
	r.nextID++
	r.bookings[b.ID] = cloneStubBooking(b)
	return b, nil
}

func (r *stubBookingRepo) GetBooking(ctx context.Context, id int64) (Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return Booking{}, ErrNotFound
	}
	return cloneStubBooking(b), nil
}

func (r *stubBookingRepo) UpdateBooking(ctx context.Context, b Booking) (Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bookings[b.ID]; !ok {
		return Booking{}, ErrNotFound
	}
	r.bookings[b.ID] = cloneStubBooking(b)
	return b, nil
}

func (r *stubBookingRepo) DeleteBooking(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bookings[id]; !ok {
		return ErrNotFound
	}
	delete(r.bookings, id)
	return nil
}

func (r *stubBookingRepo) ListBookings(ctx context.Context) ([]Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Booking, 0, len(r.bookings))
	for _, b := range r.bookings {
		out = append(out, cloneStubBooking(b))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func cloneStubBooking(b Booking) Booking {
	participants := make([]Participant, len(b.Participants))
	copy(participants, b.Participants)
	b.Participants = participants
	return b
}

type stubRatingRepo struct {
	mu      sync.Mutex
	nextID  int64
	ratings []Rating
}

func newStubRatingRepo() *stubRatingRepo {
	return &stubRatingRepo{nextID: 1}
}

func (r *stubRatingRepo) CreateRating(ctx context.Context, rating Rating) (Rating, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rating.ID = r.nextID
	r.nextID++
	r.ratings = append(r.ratings, rating)
	return rating, nil
}

func (r *stubRatingRepo) list(keep func(Rating) bool) []Rating {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Rating, 0, len(r.ratings))
	for _, rating := range r.ratings {
		if keep(rating) {
			out = append(out, rating)
		}
	}
	return out
}

func (r *stubRatingRepo) ListRatingsForBooking(ctx context.Context, bookingID int64) ([]Rating, error) {
	return r.list(func(rating Rating) bool { return rating.BookingID == bookingID }), nil
}

func (r *stubRatingRepo) ListRatingsForRated(ctx context.Context, ratedStudentID string) ([]Rating, error) {
	return r.list(func(rating Rating) bool { return rating.RatedStudentID == ratedStudentID }), nil
}

func (r *stubRatingRepo) ListRatingsByRater(ctx context.Context, raterStudentID string) ([]Rating, error) {
	return r.list(func(rating Rating) bool { return rating.RaterStudentID == raterStudentID }), nil
}

type stubCheckpointer struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (c *stubCheckpointer) Checkpoint(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return c.err
}

func (c *stubCheckpointer) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

var errStubFailure = errors.New("stub failure")
