// Package memory provides an in-process implementation of the workflow's
// persistence boundary.  It is used when STORAGE_DRIVER=memory and by the
// service and handler tests.  Write transactions are serialized by a single
// mutex and operate on a copy of the state that is swapped in on commit,
// so a failing transaction leaves no trace.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/rangovai/internal/model"
	"github.com/iliyamo/rangovai/internal/repository"
)

type state struct {
	events       map[uint64]model.Event
	applications map[string]model.VolunteerApplication
	locations    map[uint64]model.EventLocation
	tickets      []model.Ticket
	statistics   []model.VolunteerStatistics
	users        map[string]model.User
	nextEventID  uint64
	nextLocID    uint64
	nextTicketID uint64
}

func newState() *state {
	return &state{
		events:       map[uint64]model.Event{},
		applications: map[string]model.VolunteerApplication{},
		locations:    map[uint64]model.EventLocation{},
		users:        map[string]model.User{},
		nextEventID:  1,
		nextLocID:    1,
		nextTicketID: 1,
	}
}

func (s *state) clone() *state {
	c := &state{
		events:       make(map[uint64]model.Event, len(s.events)),
		applications: make(map[string]model.VolunteerApplication, len(s.applications)),
		locations:    make(map[uint64]model.EventLocation, len(s.locations)),
		tickets:      append([]model.Ticket(nil), s.tickets...),
		statistics:   append([]model.VolunteerStatistics(nil), s.statistics...),
		users:        make(map[string]model.User, len(s.users)),
		nextEventID:  s.nextEventID,
		nextLocID:    s.nextLocID,
		nextTicketID: s.nextTicketID,
	}
	for k, v := range s.events {
		c.events[k] = v
	}
	for k, v := range s.applications {
		c.applications[k] = v
	}
	for k, v := range s.locations {
		c.locations[k] = v
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	return c
}

// Store keeps all rows in memory.  The zero value is not usable; call New.
type Store struct {
	txMu sync.Mutex   // serializes write transactions
	mu   sync.RWMutex // guards cur
	cur  *state
	now  func() time.Time
}

// New returns an empty Store.
func New() *Store {
	return &Store{cur: newState(), now: func() time.Time { return time.Now().UTC() }}
}

// WithTx runs fn against a private copy of the state and publishes the copy
// only when fn returns nil.
func (s *Store) WithTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	work := s.cur.clone()
	s.mu.RUnlock()
	if err := fn(&memTx{st: work, now: s.now}); err != nil {
		return err
	}
	s.mu.Lock()
	s.cur = work
	s.mu.Unlock()
	return nil
}

func (s *Store) read() *state {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}

// ListOpenEvents returns events with free volunteer seats matching f.
func (s *Store) ListOpenEvents(_ context.Context, f model.EventFilter) ([]model.Event, error) {
	st := s.read()
	out := []model.Event{}
	for _, e := range st.events {
		if e.HasOpenSeats() && f.Matches(e) {
			out = append(out, e)
		}
	}
	sortEvents(out)
	return out, nil
}

// ListEventsByOrganizer returns the events owned by organizerID.
func (s *Store) ListEventsByOrganizer(_ context.Context, organizerID string) ([]model.Event, error) {
	st := s.read()
	out := []model.Event{}
	for _, e := range st.events {
		if e.OrganizerID == organizerID {
			out = append(out, e)
		}
	}
	sortEvents(out)
	return out, nil
}

// GetEvent returns a copy of a stored event.
func (s *Store) GetEvent(_ context.Context, id uint64) (*model.Event, error) {
	e, ok := s.read().events[id]
	if !ok {
		return nil, repository.ErrEventNotFound
	}
	return &e, nil
}

// GetLocation returns a stored location.
func (s *Store) GetLocation(_ context.Context, id uint64) (*model.EventLocation, error) {
	l, ok := s.read().locations[id]
	if !ok {
		return nil, repository.ErrLocationNotFound
	}
	return &l, nil
}

// CountTickets returns the number of tickets issued for an event.
func (s *Store) CountTickets(_ context.Context, eventID uint64) (int, error) {
	return s.read().countTickets(eventID), nil
}

func (s *state) countTickets(eventID uint64) int {
	n := 0
	for _, t := range s.tickets {
		if t.EventID == eventID {
			n++
		}
	}
	return n
}

// ListTicketsByHolder returns a holder's tickets with their events, newest
// first.
func (s *Store) ListTicketsByHolder(_ context.Context, holderID string) ([]model.TicketView, error) {
	st := s.read()
	out := []model.TicketView{}
	for _, t := range st.tickets {
		if t.HolderID != holderID {
			continue
		}
		e := st.events[t.EventID]
		out = append(out, model.TicketView{Ticket: t, EventName: e.Name, EventDate: e.Date, StartTime: e.StartTime})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// GetApplication returns a stored application.
func (s *Store) GetApplication(_ context.Context, id string) (*model.VolunteerApplication, error) {
	a, ok := s.read().applications[id]
	if !ok {
		return nil, repository.ErrApplicationNotFound
	}
	return &a, nil
}

// ListApplicationsByVolunteer returns a volunteer's applications, newest first.
func (s *Store) ListApplicationsByVolunteer(_ context.Context, volunteerID string) ([]model.VolunteerApplication, error) {
	st := s.read()
	out := []model.VolunteerApplication{}
	for _, a := range st.applications {
		if a.VolunteerID != volunteerID {
			continue
		}
		if e, ok := st.events[a.EventID]; ok && e.FormURL != nil {
			u := *e.FormURL
			a.FormURL = &u
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// ListApplicationsByEvent returns an event's applications in submission order.
func (s *Store) ListApplicationsByEvent(_ context.Context, eventID uint64) ([]model.ApplicationView, error) {
	st := s.read()
	out := []model.ApplicationView{}
	for _, a := range st.applications {
		if a.EventID != eventID {
			continue
		}
		out = append(out, model.ApplicationView{VolunteerApplication: a, VolunteerName: st.users[a.VolunteerID].Name})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// InsertStatistics appends a statistics record.
func (s *Store) InsertStatistics(ctx context.Context, rec *model.VolunteerStatistics) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mutate(func(st *state) { st.statistics = append(st.statistics, *rec) })
	return nil
}

// ListStatistics returns a volunteer's records, newest first.
func (s *Store) ListStatistics(_ context.Context, volunteerID string) ([]model.VolunteerStatistics, error) {
	st := s.read()
	out := []model.VolunteerStatistics{}
	for _, r := range st.statistics {
		if r.VolunteerID == volunteerID {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// UpsertUser registers or refreshes a display name.
func (s *Store) UpsertUser(_ context.Context, u model.User) error {
	s.mutate(func(st *state) {
		u.Name = strings.TrimSpace(u.Name)
		u.Email = strings.ToLower(strings.TrimSpace(u.Email))
		st.users[u.ID] = u
	})
	return nil
}

// mutate applies fn to a copy of the state outside of the Tx surface.
func (s *Store) mutate(fn func(st *state)) {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	s.mu.RLock()
	work := s.cur.clone()
	s.mu.RUnlock()
	fn(work)
	s.mu.Lock()
	s.cur = work
	s.mu.Unlock()
}

func sortEvents(events []model.Event) {
	sort.Slice(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.StartTime != b.StartTime {
			return a.StartTime < b.StartTime
		}
		return a.ID < b.ID
	})
}
