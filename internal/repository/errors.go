// Package repository defines error types that are reused across multiple
// stores. These sentinel values allow higher layers such as services and
// handlers to distinguish between different failure scenarios. Both the
// MySQL store in this package and the in-memory store return exactly these
// values so callers can rely on errors.Is regardless of the backend.
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an update cannot be performed because of
// conflicting state, such as shrinking an event's volunteer capacity below
// the number of already accepted volunteers.
var ErrConflict = errors.New("conflict")

// ErrEventNotFound indicates that an event was not located.
var ErrEventNotFound = errors.New("event not found")

// ErrApplicationNotFound indicates that a volunteer application was not located.
var ErrApplicationNotFound = errors.New("application not found")

// ErrLocationNotFound indicates that an event has no location or the
// referenced location row is missing.
var ErrLocationNotFound = errors.New("location not found")

// ErrNoSeats is returned when a seat decrement finds available_volunteers
// already at zero, or when applying to an event without free seats.
var ErrNoSeats = errors.New("no available volunteer seats")

// ErrSeatsAtCapacity is returned when a seat increment would push
// available_volunteers above max_volunteer_count.
var ErrSeatsAtCapacity = errors.New("volunteer seats already at capacity")

// ErrDuplicateApplication is returned when the volunteer already has a
// pending or accepted application for the event.
var ErrDuplicateApplication = errors.New("application already exists for this event")

// ErrInvalidTransition is returned when a status change is not allowed by
// the application state machine.
var ErrInvalidTransition = errors.New("invalid application status transition")

// ErrNotAuthenticated is returned when an operation needs a resolved caller
// identity and none was supplied.
var ErrNotAuthenticated = errors.New("not authenticated")

// ErrSoldOut is returned when an event's seats_count tickets have all been
// issued.
var ErrSoldOut = errors.New("no tickets left for this event")
