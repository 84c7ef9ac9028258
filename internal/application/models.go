package application

import "time"

// Principal represents the authenticated user invoking a service method.
type Principal struct {
	UserID    int64
	StudentID string
	Name      string
	IsAdmin   bool
}

// Authenticated reports whether the principal carries an identity.
func (p Principal) Authenticated() bool {
	return p.StudentID != ""
}

// User represents a registered player.
type User struct {
	ID           int64
	Name         string
	StudentID    string
	PasswordHash string
	Bio          string
	Level        int
	IsAdmin      bool
	CreatedAt    time.Time
}

// Profile strips the credential from a user for caller-facing responses.
func (u User) Profile() User {
	u.PasswordHash = ""
	return u
}

// RegisterParams captures the data required to register a user.
type RegisterParams struct {
	Name            string
	StudentID       string
	Password        string
	ConfirmPassword string
}

// AuthenticateParams captures the data required to log a user in.
type AuthenticateParams struct {
	StudentID string
	Password  string
}

// UpdateProfileParams patches the caller's own bio and skill level. Nil
// fields are left untouched.
type UpdateProfileParams struct {
	Principal Principal
	Bio       *string
	Level     *int
}

// BookingStatus enumerates the booking lifecycle states.
type BookingStatus string

const (
	// StatusActive marks a booking open for joins and departures.
	StatusActive BookingStatus = "active"
	// StatusCompleted marks a finished booking awaiting ratings.
	StatusCompleted BookingStatus = "completed"
	// StatusDeleted marks a finished booking with a lone participant, purged on sweep.
	StatusDeleted BookingStatus = "deleted"
	// StatusCancelled marks a booking withdrawn by its organizer.
	StatusCancelled BookingStatus = "cancelled"
)

// Participant is one member of a booking roster.
type Participant struct {
	Name      string
	StudentID string
}

// Booking represents a reserved table-tennis slot. The organizer occupies
// index 0 of Participants and CurrentPlayers always equals the roster length.
type Booking struct {
	ID             int64
	Name           string
	StudentID      string
	Day            string
	Date           string
	Time           string
	Table          string
	MaxPlayers     int
	CurrentPlayers int
	Participants   []Participant
	Status         BookingStatus
	CreatedAt      time.Time
}

// HasParticipant reports whether the student appears on the roster.
func (b Booking) HasParticipant(studentID string) bool {
	if b.StudentID == studentID {
		return true
	}
	for _, p := range b.Participants {
		if p.StudentID == studentID {
			return true
		}
	}
	return false
}

// ParticipantIDs returns the distinct student identifiers on the roster,
// organizer first.
func (b Booking) ParticipantIDs() []string {
	ids := make([]string, 0, len(b.Participants)+1)
	seen := make(map[string]struct{}, len(b.Participants)+1)
	appendID := func(id string) {
		if _, ok := seen[id]; ok || id == "" {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	appendID(b.StudentID)
	for _, p := range b.Participants {
		appendID(p.StudentID)
	}
	return ids
}

// CreateBookingParams captures the data required to create a booking.
type CreateBookingParams struct {
	Name       string
	StudentID  string
	Day        string
	Time       string
	Table      string
	MaxPlayers int
}

// JoinBookingParams captures the data required to join a booking.
type JoinBookingParams struct {
	BookingID int64
	Name      string
	StudentID string
}

// Rating is one participant's score of another for a completed booking.
type Rating struct {
	ID             int64
	BookingID      int64
	RaterStudentID string
	RatedStudentID string
	Skill          int
	Pleasure       int
	CreatedAt      time.Time
}

// SubmitRatingParams captures the data required to submit a rating.
type SubmitRatingParams struct {
	Principal      Principal
	BookingID      int64
	RatedStudentID string
	Skill          int
	Pleasure       int
}

// SubmitRatingResult reports the recorded rating and whether the submission
// closed out the booking's rating obligations.
type SubmitRatingResult struct {
	Rating         Rating
	BookingDeleted bool
}

// RatingStats aggregates the ratings received by one student.
type RatingStats struct {
	SkillCount           int
	PleasureCount        int
	SkillDistribution    map[int]int
	PleasureDistribution map[int]int
	AvgSkill             float64
	AvgPleasure          float64
}

// ClockStatus reports the clock provider's configuration and effective time.
type ClockStatus struct {
	TestMode    bool
	VirtualTime time.Time
	CurrentTime time.Time
	RealTime    time.Time
}

// ConfigureClockParams captures an administrator's clock adjustments. Nil
// fields are left untouched.
type ConfigureClockParams struct {
	Principal   Principal
	Enabled     *bool
	VirtualTime *time.Time
}
