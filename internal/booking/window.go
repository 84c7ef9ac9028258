// Package booking holds the pure time-window rules shared by the booking
// lifecycle operations: day-token resolution, slot boundaries, and the
// departure eligibility predicate used by both cancel and leave.
package booking

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the calendar-date format used throughout the service.
const DateLayout = "2006-01-02"

// SlotDuration is the fixed length of a table reservation.
const SlotDuration = time.Hour

// MaxAdvanceDays bounds how far ahead a booking may be placed.
const MaxAdvanceDays = 14

// PreStartWindow is the cutoff before the slot start inside which
// cancellations and most departures are refused.
const PreStartWindow = 2 * time.Hour

var (
	// ErrInvalidDate is returned for an unparseable explicit date.
	ErrInvalidDate = errors.New("booking: invalid date")
	// ErrInvalidTime is returned for an unparseable time-of-day.
	ErrInvalidTime = errors.New("booking: invalid time of day")
)

// Day tokens accepted in place of an explicit date.
const (
	DayToday         = "today"
	DayTomorrow      = "tomorrow"
	DayAfterTomorrow = "dayAfterTomorrow"
)

// ResolveDay maps a day token to a calendar date relative to now. Explicit
// dates pass through after format validation.
func ResolveDay(token string, now time.Time) (string, error) {
	switch token {
	case DayToday:
		return now.UTC().Format(DateLayout), nil
	case DayTomorrow:
		return now.UTC().AddDate(0, 0, 1).Format(DateLayout), nil
	case DayAfterTomorrow:
		return now.UTC().AddDate(0, 0, 2).Format(DateLayout), nil
	}
	if _, err := time.Parse(DateLayout, token); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDate, token)
	}
	return token, nil
}

// NormalizeHour canonicalizes an hour-granular time of day. Both "18" and
// "18:00" normalize to "18:00"; anything with minutes other than zero or an
// hour outside 0-23 is rejected.
func NormalizeHour(raw string) (string, error) {
	value := strings.TrimSpace(raw)
	if hourPart, minutePart, ok := strings.Cut(value, ":"); ok {
		if minutePart != "00" {
			return "", fmt.Errorf("%w: %q", ErrInvalidTime, raw)
		}
		value = hourPart
	}
	hour, err := strconv.Atoi(value)
	if err != nil || hour < 0 || hour > 23 {
		return "", fmt.Errorf("%w: %q", ErrInvalidTime, raw)
	}
	return fmt.Sprintf("%02d:00", hour), nil
}

// StartTime combines a resolved date and a normalized time of day into the
// slot's starting instant.
func StartTime(date, timeOfDay string) (time.Time, error) {
	normalized, err := NormalizeHour(timeOfDay)
	if err != nil {
		return time.Time{}, err
	}
	start, err := time.Parse(DateLayout+" 15:04", date+" "+normalized)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	return start, nil
}

// EndTime returns the instant the slot finishes.
func EndTime(start time.Time) time.Time {
	return start.Add(SlotDuration)
}

// WithinBookableRange reports whether date falls inside [today, today+14d]
// relative to now. Dates are compared at day granularity.
func WithinBookableRange(date string, now time.Time) bool {
	today := now.UTC().Format(DateLayout)
	last := now.UTC().AddDate(0, 0, MaxAdvanceDays).Format(DateLayout)
	return date >= today && date <= last
}

// ExpiredDate reports whether date lies strictly before today relative to now.
func ExpiredDate(date string, now time.Time) bool {
	return date < now.UTC().Format(DateLayout)
}

// WithinPreStartWindow reports whether now falls in [start-2h, start).
func WithinPreStartWindow(start, now time.Time) bool {
	return !now.Before(start.Add(-PreStartWindow)) && now.Before(start)
}

// Started reports whether the slot has begun: now >= start.
func Started(start, now time.Time) bool {
	return !now.Before(start)
}

// Ended reports whether the slot has finished: now >= start+1h.
func Ended(start, now time.Time) bool {
	return !now.Before(EndTime(start))
}

// DepartureDenial classifies why a cancel or leave is refused.
type DepartureDenial int

const (
	// DepartureAllowed means the departure may proceed.
	DepartureAllowed DepartureDenial = iota
	// DeniedWithinWindow means now is inside the two-hour pre-start window.
	DeniedWithinWindow
	// DeniedStarted means the slot has already begun.
	DeniedStarted
)

// CheckDeparture applies the shared eligibility window for cancel and leave.
// Cancellations pass windowGuarded=true unconditionally; leaves pass it only
// when exactly two participants remain, the case that would strand a lone
// organizer.
func CheckDeparture(start, now time.Time, windowGuarded bool) DepartureDenial {
	if windowGuarded && WithinPreStartWindow(start, now) {
		return DeniedWithinWindow
	}
	if Started(start, now) {
		return DeniedStarted
	}
	return DepartureAllowed
}
