package model

import (
	"fmt"
	"time"
)

// Status is the state of a volunteer application.  The string values are
// persisted verbatim in volunteer_application.status.
type Status string

const (
	StatusPending  Status = "laukiama" // submitted, awaiting an organizer decision
	StatusAccepted Status = "priimta"  // accepted, holds one volunteer seat
	StatusDeclined Status = "atmesta"  // declined or revoked, holds no seat
)

// transitions lists every allowed status change together with the change it
// implies for event.available_volunteers.
var transitions = map[Status]map[Status]int{
	StatusPending: {
		StatusAccepted: -1,
		StatusDeclined: 0,
	},
	StatusAccepted: {
		StatusDeclined: +1,
	},
}

// ParseStatus converts a raw string into a Status, rejecting unknown values.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("unknown application status %q", s)
	}
	return st, nil
}

// Valid reports whether s is one of the three known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusDeclined:
		return true
	}
	return false
}

// HoldsSeat reports whether an application in this status occupies a
// volunteer seat.
func (s Status) HoldsSeat() bool { return s == StatusAccepted }

// Active reports whether the status blocks a second application for the same
// volunteer and event.
func (s Status) Active() bool { return s == StatusPending || s == StatusAccepted }

// Transition returns the seat delta for moving from s to next.  ok is false
// when the transition is not allowed.  A transition to the current status
// is allowed with a zero delta so that retries are idempotent.
func (s Status) Transition(next Status) (delta int, ok bool) {
	if s == next && s.Valid() {
		return 0, true
	}
	delta, ok = transitions[s][next]
	return delta, ok
}

// VolunteerApplication records a volunteer's request to serve at an event.
// Corresponds to a row in the `volunteer_application` table.
//
// Fields:
//	ID          – UUID primary key.
//	VolunteerID – identity of the applying volunteer.
//	EventID     – event applied for.
//	Status      – current ledger state.
//	Date        – submission timestamp (UTC).
//	FormURL     – copied from the event for display; not persisted.
type VolunteerApplication struct {
	ID          string    // volunteer_application.id
	VolunteerID string    // volunteer_application.volunteer_id
	EventID     uint64    // volunteer_application.event_id
	Status      Status    // volunteer_application.status
	Date        time.Time // volunteer_application.date
	FormURL     *string   // event.form_url (derived)
}

// ApplicationView is an application as seen by the event organizer, with
// the volunteer's display name joined from the users table.
type ApplicationView struct {
	VolunteerApplication
	VolunteerName string
}
