package model

import (
	"strings"
	"time"
)

// Event represents a schedulable activity created by an organizer.  It
// carries two independent capacity figures: SeatsCount is the attendee
// capacity used by ticketing, MaxVolunteerCount/AvailableVolunteers are the
// volunteer seats managed by seat accounting.  This struct corresponds to a
// row in the `event` table.
//
// Fields:
//	ID                  – primary key identifier.
//	OrganizerID         – identity of the organizer who created the event.
//	Name                – display name.
//	Description         – free text description (may be empty).
//	Date                – calendar day of the event (UTC midnight).
//	StartTime           – local start time "HH:MM:SS".
//	EndTime             – local end time "HH:MM:SS".
//	IsFree              – whether attendance is free of charge.
//	SeatsCount          – attendee capacity (nil when unlimited).
//	MaxVolunteerCount   – total volunteer seats.
//	AvailableVolunteers – volunteer seats not yet taken by accepted
//	                      applications; 0 <= value <= MaxVolunteerCount.
//	EventLocationID     – optional reference to event_location.
//	FormURL             – optional registration form link shown to volunteers.
//	CreatedAt           – creation timestamp.
//	UpdatedAt           – last update timestamp.
type Event struct {
	ID                  uint64    // event.id
	OrganizerID         string    // event.organizer_id
	Name                string    // event.name
	Description         string    // event.description
	Date                time.Time // event.date
	StartTime           string    // event.start_time
	EndTime             string    // event.end_time
	IsFree              bool      // event.is_free
	SeatsCount          *int      // event.seats_count (nullable)
	MaxVolunteerCount   int       // event.max_volunteer_count
	AvailableVolunteers int       // event.available_volunteers
	EventLocationID     *uint64   // event.event_location_id (nullable)
	FormURL             *string   // event.form_url (nullable)
	CreatedAt           time.Time // event.created_at
	UpdatedAt           time.Time // event.updated_at
}

// HasOpenSeats reports whether at least one volunteer seat is still free.
func (e Event) HasOpenSeats() bool { return e.AvailableVolunteers > 0 }

// AcceptedVolunteers is the number of seats currently held by accepted
// applications.
func (e Event) AcceptedVolunteers() int { return e.MaxVolunteerCount - e.AvailableVolunteers }

// EventFilter narrows the open events listing.  Zero values disable the
// corresponding condition.  From and To are inclusive calendar days.
type EventFilter struct {
	From  *time.Time
	To    *time.Time
	Query string
}

// Matches applies the filter to a single event.  The query is matched
// case-insensitively against the name and description.
func (f EventFilter) Matches(e Event) bool {
	day := e.Date.UTC().Truncate(24 * time.Hour)
	if f.From != nil && day.Before(f.From.UTC().Truncate(24*time.Hour)) {
		return false
	}
	if f.To != nil && day.After(f.To.UTC().Truncate(24*time.Hour)) {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		if !strings.Contains(strings.ToLower(e.Name), q) && !strings.Contains(strings.ToLower(e.Description), q) {
			return false
		}
	}
	return true
}

// EventLocation describes where an event takes place.  Corresponds to a
// row in the `event_location` table.
type EventLocation struct {
	ID                uint64  // event_location.id
	Country           string  // event_location.country
	City              string  // event_location.city
	Address           string  // event_location.address
	SpecifiedLocation string  // event_location.specified_location
	Longitude         float64 // event_location.longitude
	Latitude          float64 // event_location.latitude
}
