package application

import "errors"

var (
	// ErrAuthenticationRequired is returned when an operation needs an
	// authenticated principal and none was supplied.
	ErrAuthenticationRequired = errors.New("application: authentication required")
	// ErrUnauthorized is returned when the acting principal lacks permission for an operation.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrInvalidCredentials is returned when a login attempt fails the credential check.
	ErrInvalidCredentials = errors.New("application: invalid credentials")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrAlreadyExists is returned when a unique natural key is already taken.
	ErrAlreadyExists = errors.New("application: already exists")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// BusinessRuleError rejects an operation that is well-formed but violates a
// domain rule. The message is safe to surface to callers.
type BusinessRuleError struct {
	msg string
}

// Error implements the error interface.
func (e *BusinessRuleError) Error() string {
	if e == nil {
		return ""
	}
	return e.msg
}

// Booking lifecycle rule violations.
var (
	ErrBookingQuotaExceeded = &BusinessRuleError{msg: "you may organize at most 5 bookings at a time"}
	ErrDateOutOfRange       = &BusinessRuleError{msg: "bookings must fall between today and 14 days from now"}
	ErrSlotTaken            = &BusinessRuleError{msg: "that table is already booked for this time slot"}
	ErrBookingCancelled     = &BusinessRuleError{msg: "this booking has been cancelled"}
	ErrBookingFull          = &BusinessRuleError{msg: "this booking is already full"}
	ErrAlreadyJoined        = &BusinessRuleError{msg: "you have already joined this booking"}
	ErrOrganizerCannotLeave = &BusinessRuleError{msg: "the organizer cannot leave a booking, cancel it instead"}
	ErrNotParticipant       = &BusinessRuleError{msg: "you have not joined this booking"}
	ErrCancelWindowClosed   = &BusinessRuleError{msg: "bookings cannot be cancelled within two hours of the start time"}
	ErrLeaveWindowClosed    = &BusinessRuleError{msg: "you cannot leave within two hours of the start time while only two participants remain"}
	ErrBookingStarted       = &BusinessRuleError{msg: "this booking has already started"}
)

// Rating ledger rule violations.
var (
	ErrBookingNotCompleted = &BusinessRuleError{msg: "only completed bookings can be rated"}
	ErrRatedNotParticipant = &BusinessRuleError{msg: "the rated student did not participate in this booking"}
	ErrDuplicateRating     = &BusinessRuleError{msg: "you have already rated this participant for this booking"}
)

// AuthorizationError denies an operation to the acting principal while
// carrying an operation-specific caller-facing message. It matches
// ErrUnauthorized under errors.Is.
type AuthorizationError struct {
	msg string
}

// Error implements the error interface.
func (e *AuthorizationError) Error() string {
	if e == nil {
		return ""
	}
	return e.msg
}

// Is reports sentinel equivalence so callers can test with ErrUnauthorized.
func (e *AuthorizationError) Is(target error) bool {
	return target == ErrUnauthorized
}

var (
	// ErrNotOrganizer denies cancel to anyone but the booking organizer.
	ErrNotOrganizer = &AuthorizationError{msg: "only the organizer can cancel this booking"}
	// ErrRaterNotParticipant denies rating submission to non-participants.
	ErrRaterNotParticipant = &AuthorizationError{msg: "only participants of this booking can submit ratings"}
)
