package client

import (
	"context"
	"sort"
	"sync"

	"github.com/iliyamo/rangovai/internal/optimistic"
)

// BoardAPI is the part of Client the Board needs.
type BoardAPI interface {
	ListOpenEvents(ctx context.Context, q EventQuery) ([]Event, error)
	MyApplications(ctx context.Context) ([]Application, error)
	Apply(ctx context.Context, eventID uint64) (*Application, error)
	Withdraw(ctx context.Context, applicationID string) (*Withdrawal, error)
}

// Board is a volunteer's local view: the events they can still apply for
// and their own applications.  Apply and Withdraw update the view before
// the server answers and roll back when it refuses.
type Board struct {
	api BoardAPI

	mu     sync.Mutex
	open   []Event
	apps   []Application
	known  map[uint64]Event
	filter EventQuery
}

// NewBoard returns an empty board; call Refresh to load it.
func NewBoard(api BoardAPI) *Board {
	return &Board{api: api, known: map[uint64]Event{}}
}

// Open returns a copy of the events the volunteer can apply for.
func (b *Board) Open() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Event(nil), b.open...)
}

// Applications returns a copy of the volunteer's applications.
func (b *Board) Applications() []Application {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Application(nil), b.apps...)
}

func activeStatus(s string) bool { return s == "laukiama" || s == "priimta" }

// Refresh reloads both lists from the server.  Events the volunteer already
// has a pending or accepted application for are left out of the open list.
func (b *Board) Refresh(ctx context.Context, q EventQuery) error {
	events, err := b.api.ListOpenEvents(ctx, q)
	if err != nil {
		return err
	}
	apps, err := b.api.MyApplications(ctx)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.filter = q
	taken := map[uint64]bool{}
	for _, a := range apps {
		if activeStatus(a.Status) {
			taken[a.EventID] = true
		}
	}
	b.open = b.open[:0]
	for _, e := range events {
		b.known[e.ID] = e
		if !taken[e.ID] {
			b.open = append(b.open, e)
		}
	}
	b.apps = apps
	return nil
}

func (b *Board) indexOfEvent(id uint64) int {
	for i, e := range b.open {
		if e.ID == id {
			return i
		}
	}
	return -1
}

func (b *Board) indexOfApplication(id string) int {
	for i, a := range b.apps {
		if a.ID == id {
			return i
		}
	}
	return -1
}

func (b *Board) insertOpen(e Event) {
	b.open = append(b.open, e)
	sort.SliceStable(b.open, func(i, j int) bool {
		if b.open[i].Date != b.open[j].Date {
			return b.open[i].Date < b.open[j].Date
		}
		return b.open[i].ID < b.open[j].ID
	})
}

// Apply submits an application for eventID.  The event leaves the open list
// at once and comes back if the server rejects the application.
func (b *Board) Apply(ctx context.Context, eventID uint64) (*Application, error) {
	var (
		removed Event
		had     bool
		app     *Application
	)
	err := optimistic.Run(ctx, optimistic.Command{
		Name: "apply",
		Apply: func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if i := b.indexOfEvent(eventID); i >= 0 {
				removed, had = b.open[i], true
				b.open = append(b.open[:i], b.open[i+1:]...)
			}
		},
		Revert: func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if had && b.indexOfEvent(eventID) < 0 {
				b.insertOpen(removed)
			}
		},
		Commit: func(ctx context.Context) error {
			var err error
			app, err = b.api.Apply(ctx, eventID)
			return err
		},
	})
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	b.apps = append([]Application{*app}, b.apps...)
	b.mu.Unlock()
	return app, nil
}

// Withdraw deletes an application.  It disappears from the local list and
// its event returns to the open list; both are restored on failure.
func (b *Board) Withdraw(ctx context.Context, applicationID string) error {
	var (
		removed  Application
		index    = -1
		returned bool
		res      *Withdrawal
	)
	err := optimistic.Run(ctx, optimistic.Command{
		Name: "withdraw",
		Apply: func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			i := b.indexOfApplication(applicationID)
			if i < 0 {
				return
			}
			removed, index = b.apps[i], i
			b.apps = append(b.apps[:i], b.apps[i+1:]...)
			if ev, ok := b.known[removed.EventID]; ok && b.indexOfEvent(ev.ID) < 0 {
				b.insertOpen(ev)
				returned = true
			}
		},
		Revert: func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if index < 0 {
				return
			}
			if returned {
				if i := b.indexOfEvent(removed.EventID); i >= 0 {
					b.open = append(b.open[:i], b.open[i+1:]...)
				}
			}
			i := index
			if i > len(b.apps) {
				i = len(b.apps)
			}
			b.apps = append(b.apps[:i], append([]Application{removed}, b.apps[i:]...)...)
		},
		Commit: func(ctx context.Context) error {
			var err error
			res, err = b.api.Withdraw(ctx, applicationID)
			return err
		},
	})
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if index < 0 {
		return nil
	}
	// The server count is authoritative; an event with no free seat left
	// stays off the open list.
	if i := b.indexOfEvent(removed.EventID); i >= 0 {
		b.open[i].AvailableVolunteers = res.AvailableVolunteers
		if res.AvailableVolunteers == 0 {
			b.open = append(b.open[:i], b.open[i+1:]...)
		}
	}
	if ev, ok := b.known[removed.EventID]; ok {
		ev.AvailableVolunteers = res.AvailableVolunteers
		b.known[removed.EventID] = ev
	}
	return nil
}
