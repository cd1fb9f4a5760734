package memory

import (
	"context"
	"time"

	"github.com/iliyamo/rangovai/internal/model"
	"github.com/iliyamo/rangovai/internal/repository"
)

// memTx implements repository.Tx on a private state copy.  Locks are
// implicit: the owning Store admits one transaction at a time.
type memTx struct {
	st  *state
	now func() time.Time
}

func (t *memTx) LockEvent(_ context.Context, id uint64) (*model.Event, error) {
	e, ok := t.st.events[id]
	if !ok {
		return nil, repository.ErrEventNotFound
	}
	return &e, nil
}

func (t *memTx) InsertEvent(_ context.Context, e *model.Event) error {
	now := t.now()
	e.ID = t.st.nextEventID
	t.st.nextEventID++
	e.CreatedAt, e.UpdatedAt = now, now
	t.st.events[e.ID] = *e
	return nil
}

func (t *memTx) UpdateEvent(_ context.Context, e *model.Event) error {
	old, ok := t.st.events[e.ID]
	if !ok {
		return repository.ErrEventNotFound
	}
	e.OrganizerID = old.OrganizerID
	e.CreatedAt = old.CreatedAt
	e.UpdatedAt = t.now()
	t.st.events[e.ID] = *e
	return nil
}

func (t *memTx) DeleteEvent(_ context.Context, id uint64) error {
	if _, ok := t.st.events[id]; !ok {
		return repository.ErrEventNotFound
	}
	for appID, a := range t.st.applications {
		if a.EventID == id {
			delete(t.st.applications, appID)
		}
	}
	kept := t.st.tickets[:0]
	for _, tk := range t.st.tickets {
		if tk.EventID != id {
			kept = append(kept, tk)
		}
	}
	t.st.tickets = kept
	delete(t.st.events, id)
	return nil
}

func (t *memTx) InsertLocation(_ context.Context, l *model.EventLocation) error {
	l.ID = t.st.nextLocID
	t.st.nextLocID++
	t.st.locations[l.ID] = *l
	return nil
}

func (t *memTx) UpdateLocation(_ context.Context, l *model.EventLocation) error {
	if _, ok := t.st.locations[l.ID]; !ok {
		return repository.ErrLocationNotFound
	}
	t.st.locations[l.ID] = *l
	return nil
}

func (t *memTx) CountTickets(_ context.Context, eventID uint64) (int, error) {
	return t.st.countTickets(eventID), nil
}

func (t *memTx) InsertTicket(_ context.Context, tk *model.Ticket) error {
	tk.ID = t.st.nextTicketID
	t.st.nextTicketID++
	t.st.tickets = append(t.st.tickets, *tk)
	return nil
}

func (t *memTx) LockApplication(_ context.Context, id string) (*model.VolunteerApplication, error) {
	a, ok := t.st.applications[id]
	if !ok {
		return nil, repository.ErrApplicationNotFound
	}
	return &a, nil
}

func (t *memTx) FindActiveApplication(_ context.Context, volunteerID string, eventID uint64) (*model.VolunteerApplication, error) {
	for _, a := range t.st.applications {
		if a.VolunteerID == volunteerID && a.EventID == eventID && a.Status.Active() {
			return &a, nil
		}
	}
	return nil, repository.ErrApplicationNotFound
}

func (t *memTx) InsertApplication(_ context.Context, a *model.VolunteerApplication) error {
	stored := *a
	stored.FormURL = nil
	t.st.applications[a.ID] = stored
	return nil
}

func (t *memTx) UpdateApplicationStatus(_ context.Context, id string, status model.Status) error {
	a, ok := t.st.applications[id]
	if !ok {
		return repository.ErrApplicationNotFound
	}
	a.Status = status
	t.st.applications[id] = a
	return nil
}

func (t *memTx) DeleteApplication(_ context.Context, id string) error {
	if _, ok := t.st.applications[id]; !ok {
		return repository.ErrApplicationNotFound
	}
	delete(t.st.applications, id)
	return nil
}

func (t *memTx) DecrementSeat(_ context.Context, eventID uint64) (int, error) {
	e, ok := t.st.events[eventID]
	if !ok {
		return 0, repository.ErrEventNotFound
	}
	if e.AvailableVolunteers <= 0 {
		return e.AvailableVolunteers, repository.ErrNoSeats
	}
	e.AvailableVolunteers--
	t.st.events[eventID] = e
	return e.AvailableVolunteers, nil
}

func (t *memTx) IncrementSeat(_ context.Context, eventID uint64) (int, error) {
	e, ok := t.st.events[eventID]
	if !ok {
		return 0, repository.ErrEventNotFound
	}
	if e.AvailableVolunteers >= e.MaxVolunteerCount {
		return e.AvailableVolunteers, repository.ErrSeatsAtCapacity
	}
	e.AvailableVolunteers++
	t.st.events[eventID] = e
	return e.AvailableVolunteers, nil
}
