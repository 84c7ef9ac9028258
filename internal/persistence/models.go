package persistence

import (
	"context"
	"time"
)

// User is the persisted form of a registered player.
type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	StudentID    string    `json:"studentId"`
	PasswordHash string    `json:"passwordHash"`
	Bio          string    `json:"bio"`
	Level        int       `json:"level"`
	IsAdmin      bool      `json:"isAdmin"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Participant is one roster entry of a persisted booking.
type Participant struct {
	Name      string `json:"name"`
	StudentID string `json:"studentId"`
}

// Booking is the persisted form of a table reservation.
type Booking struct {
	ID             int64         `json:"id"`
	Name           string        `json:"name"`
	StudentID      string        `json:"studentId"`
	Day            string        `json:"day"`
	Date           string        `json:"actualDate"`
	Time           string        `json:"time"`
	Table          string        `json:"table"`
	MaxPlayers     int           `json:"maxPlayers"`
	CurrentPlayers int           `json:"currentPlayers"`
	Participants   []Participant `json:"participants"`
	Status         string        `json:"status"`
	CreatedAt      time.Time     `json:"createdAt"`
}

// Rating is the persisted form of a pairwise participant rating.
type Rating struct {
	ID             int64     `json:"id"`
	BookingID      int64     `json:"bookingId"`
	RaterStudentID string    `json:"raterStudentId"`
	RatedStudentID string    `json:"ratedStudentId"`
	Skill          int       `json:"skill"`
	Pleasure       int       `json:"pleasure"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Counters records the next identifier for each collection.
type Counters struct {
	NextUserID    int64 `json:"userIdCounter"`
	NextBookingID int64 `json:"bookingIdCounter"`
	NextRatingID  int64 `json:"ratingIdCounter"`
}

// Snapshot is the wholesale durable state: every collection plus the
// identifier counters, written together after each mutation and reloaded
// together at startup.
type Snapshot struct {
	Users    []User    `json:"users"`
	Bookings []Booking `json:"bookings"`
	Ratings  []Rating  `json:"ratings"`
	Counters Counters  `json:"counters"`
}

// SnapshotGateway reads and writes the durable snapshot.
type SnapshotGateway interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, snapshot Snapshot) error
}
