package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/rangovai/internal/model"
	"github.com/iliyamo/rangovai/internal/repository"
)

// Catalog exposes events and their seat counters to volunteers and lets
// organizers manage their own events.
type Catalog struct {
	store CatalogStore
	after afterCommit
	now   func() time.Time
}

// NewCatalog wires a Catalog.  cache may be nil.
func NewCatalog(store CatalogStore, cache Invalidator, log *zap.Logger) *Catalog {
	return &Catalog{
		store: store,
		after: newAfterCommit(nil, cache, log),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// EventInput is the organizer-editable part of an event.
type EventInput struct {
	Name              string
	Description       string
	Date              time.Time
	StartTime         string
	EndTime           string
	IsFree            bool
	SeatsCount        *int
	MaxVolunteerCount int
	FormURL           *string
	Location          *model.EventLocation
}

func (in *EventInput) normalize() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if in.Name == "" {
		return invalid("name", "is required")
	}
	if in.Date.IsZero() {
		return invalid("date", "is required")
	}
	in.Date = time.Date(in.Date.Year(), in.Date.Month(), in.Date.Day(), 0, 0, 0, 0, time.UTC)
	start, err := parseClock(in.StartTime)
	if err != nil {
		return invalid("start_time", "must be HH:MM or HH:MM:SS")
	}
	end, err := parseClock(in.EndTime)
	if err != nil {
		return invalid("end_time", "must be HH:MM or HH:MM:SS")
	}
	if !end.After(start) {
		return invalid("end_time", "must be after start_time")
	}
	in.StartTime, in.EndTime = start.Format("15:04:05"), end.Format("15:04:05")
	if in.MaxVolunteerCount < 0 {
		return invalid("max_volunteer_count", "must be >= 0")
	}
	if in.SeatsCount != nil && *in.SeatsCount < 0 {
		return invalid("seats_count", "must be >= 0")
	}
	if in.FormURL != nil {
		u := strings.TrimSpace(*in.FormURL)
		if u == "" {
			in.FormURL = nil
		} else {
			in.FormURL = &u
		}
	}
	if l := in.Location; l != nil {
		l.City = strings.TrimSpace(l.City)
		l.Address = strings.TrimSpace(l.Address)
		if l.City == "" && l.Address == "" {
			return invalid("location", "needs a city or an address")
		}
		if l.Latitude < -90 || l.Latitude > 90 || l.Longitude < -180 || l.Longitude > 180 {
			return invalid("location", "coordinates out of range")
		}
	}
	return nil
}

func parseClock(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("15:04:05", s); err == nil {
		return t, nil
	}
	return time.Parse("15:04", s)
}

// ListOpen returns events with at least one free volunteer seat, ordered by
// date ascending.
func (c *Catalog) ListOpen(ctx context.Context, f model.EventFilter) ([]model.Event, error) {
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return nil, invalid("to", "must not be before from")
	}
	events, err := c.store.ListOpenEvents(ctx, f)
	return events, wrap("list open events", err)
}

// ListForOrganizer returns the events created by organizerID.
func (c *Catalog) ListForOrganizer(ctx context.Context, organizerID string) ([]model.Event, error) {
	if organizerID == "" {
		return nil, repository.ErrNotAuthenticated
	}
	events, err := c.store.ListEventsByOrganizer(ctx, organizerID)
	return events, wrap("list organizer events", err)
}

// Get returns a single event.
func (c *Catalog) Get(ctx context.Context, id uint64) (*model.Event, error) {
	ev, err := c.store.GetEvent(ctx, id)
	return ev, wrap("get event", err)
}

// AttendeeCount counts the tickets issued for an event.  It never touches
// the volunteer seat counter.
func (c *Catalog) AttendeeCount(ctx context.Context, eventID uint64) (int, error) {
	if _, err := c.store.GetEvent(ctx, eventID); err != nil {
		return 0, wrap("get event", err)
	}
	n, err := c.store.CountTickets(ctx, eventID)
	return n, wrap("count tickets", err)
}

// IssueTicket records a ticket for holderID.  Events with a seats_count
// stop issuing once that many tickets exist; events without one are
// unbounded.  The count and the insert run under the event lock.
func (c *Catalog) IssueTicket(ctx context.Context, holderID string, eventID uint64) (*model.Ticket, error) {
	if holderID == "" {
		return nil, repository.ErrNotAuthenticated
	}
	tk := &model.Ticket{EventID: eventID, HolderID: holderID, CreatedAt: c.now()}
	err := c.store.WithTx(ctx, func(tx repository.Tx) error {
		ev, err := tx.LockEvent(ctx, eventID)
		if err != nil {
			return err
		}
		if ev.SeatsCount != nil {
			n, err := tx.CountTickets(ctx, eventID)
			if err != nil {
				return err
			}
			if n >= *ev.SeatsCount {
				return repository.ErrSoldOut
			}
		}
		return tx.InsertTicket(ctx, tk)
	})
	if err != nil {
		return nil, wrap("issue ticket", err)
	}
	c.after.log.Info("ticket issued",
		zap.Uint64("ticket_id", tk.ID),
		zap.Uint64("event_id", eventID),
		zap.String("holder_id", holderID))
	return tk, nil
}

// Tickets lists the tickets held by holderID, newest first.
func (c *Catalog) Tickets(ctx context.Context, holderID string) ([]model.TicketView, error) {
	if holderID == "" {
		return nil, repository.ErrNotAuthenticated
	}
	out, err := c.store.ListTicketsByHolder(ctx, holderID)
	return out, wrap("list tickets", err)
}

// Location returns the location of an event.
func (c *Catalog) Location(ctx context.Context, eventID uint64) (*model.EventLocation, error) {
	ev, err := c.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, wrap("get event", err)
	}
	if ev.EventLocationID == nil {
		return nil, repository.ErrLocationNotFound
	}
	loc, err := c.store.GetLocation(ctx, *ev.EventLocationID)
	return loc, wrap("get location", err)
}

// Create stores a new event owned by organizerID.  All volunteer seats start
// out free.
func (c *Catalog) Create(ctx context.Context, organizerID string, in EventInput) (*model.Event, error) {
	if organizerID == "" {
		return nil, repository.ErrNotAuthenticated
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}
	ev := &model.Event{
		OrganizerID:         organizerID,
		Name:                in.Name,
		Description:         in.Description,
		Date:                in.Date,
		StartTime:           in.StartTime,
		EndTime:             in.EndTime,
		IsFree:              in.IsFree,
		SeatsCount:          in.SeatsCount,
		MaxVolunteerCount:   in.MaxVolunteerCount,
		AvailableVolunteers: in.MaxVolunteerCount,
		FormURL:             in.FormURL,
	}
	err := c.store.WithTx(ctx, func(tx repository.Tx) error {
		if in.Location != nil {
			if err := tx.InsertLocation(ctx, in.Location); err != nil {
				return err
			}
			ev.EventLocationID = &in.Location.ID
		}
		return tx.InsertEvent(ctx, ev)
	})
	if err != nil {
		return nil, wrap("create event", err)
	}
	c.after.invalidate(ctx)
	c.after.log.Info("event created", zap.Uint64("event_id", ev.ID), zap.String("organizer_id", organizerID))
	return ev, nil
}

// Update rewrites an event owned by organizerID.  A change of
// max_volunteer_count shifts available_volunteers by the same amount; the
// new maximum may not drop below the number of accepted volunteers.
func (c *Catalog) Update(ctx context.Context, organizerID string, id uint64, in EventInput) (*model.Event, error) {
	if organizerID == "" {
		return nil, repository.ErrNotAuthenticated
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}
	var out *model.Event
	err := c.store.WithTx(ctx, func(tx repository.Tx) error {
		ev, err := tx.LockEvent(ctx, id)
		if err != nil {
			return err
		}
		if ev.OrganizerID != organizerID {
			return repository.ErrForbidden
		}
		accepted := ev.AcceptedVolunteers()
		if in.MaxVolunteerCount < accepted {
			return repository.ErrConflict
		}
		ev.Name = in.Name
		ev.Description = in.Description
		ev.Date = in.Date
		ev.StartTime = in.StartTime
		ev.EndTime = in.EndTime
		ev.IsFree = in.IsFree
		ev.SeatsCount = in.SeatsCount
		ev.FormURL = in.FormURL
		ev.MaxVolunteerCount = in.MaxVolunteerCount
		ev.AvailableVolunteers = in.MaxVolunteerCount - accepted
		if err := saveLocation(ctx, tx, ev, in.Location); err != nil {
			return err
		}
		if err := tx.UpdateEvent(ctx, ev); err != nil {
			return err
		}
		out = ev
		return nil
	})
	if err != nil {
		return nil, wrap("update event", err)
	}
	c.after.invalidate(ctx)
	c.after.log.Info("event updated", zap.Uint64("event_id", id), zap.Int("available_volunteers", out.AvailableVolunteers))
	return out, nil
}

// saveLocation rewrites the event's location row in place, or inserts one
// when the event has none yet.  A nil loc leaves the event untouched.
func saveLocation(ctx context.Context, tx repository.Tx, ev *model.Event, loc *model.EventLocation) error {
	if loc == nil {
		return nil
	}
	if ev.EventLocationID != nil {
		loc.ID = *ev.EventLocationID
		return tx.UpdateLocation(ctx, loc)
	}
	if err := tx.InsertLocation(ctx, loc); err != nil {
		return err
	}
	id := loc.ID
	ev.EventLocationID = &id
	return nil
}

// Delete removes an event owned by organizerID along with its applications.
func (c *Catalog) Delete(ctx context.Context, organizerID string, id uint64) error {
	if organizerID == "" {
		return repository.ErrNotAuthenticated
	}
	err := c.store.WithTx(ctx, func(tx repository.Tx) error {
		ev, err := tx.LockEvent(ctx, id)
		if err != nil {
			return err
		}
		if ev.OrganizerID != organizerID {
			return repository.ErrForbidden
		}
		return tx.DeleteEvent(ctx, id)
	})
	if err != nil {
		return wrap("delete event", err)
	}
	c.after.invalidate(ctx)
	c.after.log.Info("event deleted", zap.Uint64("event_id", id))
	return nil
}
