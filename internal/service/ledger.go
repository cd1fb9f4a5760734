package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/rangovai/internal/model"
	"github.com/iliyamo/rangovai/internal/queue"
	"github.com/iliyamo/rangovai/internal/repository"
)

// Ledger records volunteer applications and drives their status machine.
// Every write locks the event row first, then the application row.
type Ledger struct {
	store LedgerStore
	seats *SeatAccountant
	after afterCommit
	now   func() time.Time
	newID func() string
}

// NewLedger wires a Ledger.  pub and cache may be nil.
func NewLedger(store LedgerStore, seats *SeatAccountant, pub Publisher, cache Invalidator, log *zap.Logger) *Ledger {
	return &Ledger{
		store: store,
		seats: seats,
		after: newAfterCommit(pub, cache, log),
		now:   func() time.Time { return time.Now().UTC() },
		newID: func() string { return uuid.NewString() },
	}
}

// Transition is the outcome of a status change.
type Transition struct {
	Application         model.VolunteerApplication
	AvailableVolunteers int
	// Changed is false when the application already had the target status.
	Changed bool
}

// Apply records a pending application of volunteerID for eventID.  It fails
// with ErrNoSeats when the event has no free volunteer seat and with
// ErrDuplicateApplication when the volunteer already has a pending or
// accepted application for the event.  Applying never changes the seat
// counter.
func (l *Ledger) Apply(ctx context.Context, volunteerID string, eventID uint64) (*model.VolunteerApplication, error) {
	if volunteerID == "" {
		return nil, repository.ErrNotAuthenticated
	}
	var (
		app *model.VolunteerApplication
		ev  *model.Event
	)
	err := l.store.WithTx(ctx, func(tx repository.Tx) error {
		var err error
		ev, err = tx.LockEvent(ctx, eventID)
		if err != nil {
			return err
		}
		if !ev.HasOpenSeats() {
			return repository.ErrNoSeats
		}
		if _, err := tx.FindActiveApplication(ctx, volunteerID, eventID); err == nil {
			return repository.ErrDuplicateApplication
		} else if !errors.Is(err, repository.ErrApplicationNotFound) {
			return err
		}
		app = &model.VolunteerApplication{
			ID:          l.newID(),
			VolunteerID: volunteerID,
			EventID:     eventID,
			Status:      model.StatusPending,
			Date:        l.now(),
		}
		return tx.InsertApplication(ctx, app)
	})
	if err != nil {
		return nil, wrap("apply", err)
	}
	app.FormURL = ev.FormURL
	l.after.log.Info("application submitted",
		zap.String("application_id", app.ID),
		zap.String("volunteer_id", volunteerID),
		zap.Uint64("event_id", eventID))
	l.after.notify(ctx, l.event(queue.ActionApplied, *app, ev, ev.AvailableVolunteers))
	return app, nil
}

// Accept moves an application to priimta, taking one seat.
func (l *Ledger) Accept(ctx context.Context, organizerID, applicationID string) (*Transition, error) {
	return l.SetStatus(ctx, organizerID, applicationID, model.StatusAccepted)
}

// Decline moves an application to atmesta, returning its seat when it held one.
func (l *Ledger) Decline(ctx context.Context, organizerID, applicationID string) (*Transition, error) {
	return l.SetStatus(ctx, organizerID, applicationID, model.StatusDeclined)
}

// SetStatus changes the status of an application on behalf of the organizer
// that owns its event.  The seat delta implied by the transition is applied
// before the ledger write in the same transaction, so a capacity failure
// leaves the application untouched.  Asking for the current status again is
// a no-op.
func (l *Ledger) SetStatus(ctx context.Context, organizerID, applicationID string, status model.Status) (*Transition, error) {
	if organizerID == "" {
		return nil, repository.ErrNotAuthenticated
	}
	if !status.Valid() {
		return nil, invalid("status", "must be one of laukiama, priimta, atmesta")
	}
	// Read outside the transaction only to learn which event to lock.
	peek, err := l.store.GetApplication(ctx, applicationID)
	if err != nil {
		return nil, wrap("get application", err)
	}
	var (
		res   Transition
		ev    *model.Event
		delta int
	)
	err = l.store.WithTx(ctx, func(tx repository.Tx) error {
		var err error
		ev, err = tx.LockEvent(ctx, peek.EventID)
		if err != nil {
			return err
		}
		if ev.OrganizerID != organizerID {
			return repository.ErrForbidden
		}
		app, err := tx.LockApplication(ctx, applicationID)
		if err != nil {
			return err
		}
		var ok bool
		delta, ok = app.Status.Transition(status)
		if !ok {
			return repository.ErrInvalidTransition
		}
		res.AvailableVolunteers = ev.AvailableVolunteers
		res.Application = *app
		if app.Status == status {
			return nil
		}
		left, err := l.seats.ApplyDeltaTx(ctx, tx, ev, delta)
		if err != nil {
			return err
		}
		if err := tx.UpdateApplicationStatus(ctx, applicationID, status); err != nil {
			return err
		}
		res.Application.Status = status
		res.AvailableVolunteers = left
		res.Changed = true
		return nil
	})
	if err != nil {
		return nil, wrap("set status", err)
	}
	res.Application.FormURL = ev.FormURL
	if !res.Changed {
		return &res, nil
	}
	if delta != 0 {
		l.after.invalidate(ctx)
	}
	action := queue.ActionAccepted
	if status == model.StatusDeclined {
		action = queue.ActionDeclined
	}
	l.after.log.Info("application status changed",
		zap.String("application_id", applicationID),
		zap.String("status", string(status)),
		zap.Int("seat_delta", delta),
		zap.Int("available_volunteers", res.AvailableVolunteers))
	l.after.notify(ctx, l.event(action, res.Application, ev, res.AvailableVolunteers))
	return &res, nil
}

// Withdraw deletes an application on behalf of the volunteer who owns it.
// The seat is returned only when the application was accepted.
func (l *Ledger) Withdraw(ctx context.Context, volunteerID, applicationID string) (int, error) {
	if volunteerID == "" {
		return 0, repository.ErrNotAuthenticated
	}
	peek, err := l.store.GetApplication(ctx, applicationID)
	if err != nil {
		return 0, wrap("get application", err)
	}
	if peek.VolunteerID != volunteerID {
		return 0, repository.ErrForbidden
	}
	var (
		ev          *model.Event
		app         *model.VolunteerApplication
		left        int
		compensated bool
	)
	err = l.store.WithTx(ctx, func(tx repository.Tx) error {
		var err error
		ev, err = tx.LockEvent(ctx, peek.EventID)
		if err != nil {
			return err
		}
		app, err = tx.LockApplication(ctx, applicationID)
		if err != nil {
			return err
		}
		if app.VolunteerID != volunteerID {
			return repository.ErrForbidden
		}
		left = ev.AvailableVolunteers
		if app.Status.HoldsSeat() {
			if left, err = l.seats.IncrementTx(ctx, tx, ev.ID); err != nil {
				return err
			}
			compensated = true
		}
		return tx.DeleteApplication(ctx, applicationID)
	})
	if err != nil {
		return 0, wrap("withdraw", err)
	}
	if compensated {
		l.after.invalidate(ctx)
	}
	l.after.log.Info("application withdrawn",
		zap.String("application_id", applicationID),
		zap.Bool("seat_returned", compensated),
		zap.Int("available_volunteers", left))
	l.after.notify(ctx, l.event(queue.ActionWithdrawn, *app, ev, left))
	return left, nil
}

// ListForVolunteer returns the caller's applications, newest first.
func (l *Ledger) ListForVolunteer(ctx context.Context, volunteerID string) ([]model.VolunteerApplication, error) {
	if volunteerID == "" {
		return nil, repository.ErrNotAuthenticated
	}
	apps, err := l.store.ListApplicationsByVolunteer(ctx, volunteerID)
	return apps, wrap("list volunteer applications", err)
}

// ListForEvent returns all applications of an event owned by organizerID.
func (l *Ledger) ListForEvent(ctx context.Context, organizerID string, eventID uint64) ([]model.ApplicationView, error) {
	if organizerID == "" {
		return nil, repository.ErrNotAuthenticated
	}
	ev, err := l.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, wrap("get event", err)
	}
	if ev.OrganizerID != organizerID {
		return nil, repository.ErrForbidden
	}
	views, err := l.store.ListApplicationsByEvent(ctx, eventID)
	return views, wrap("list event applications", err)
}

func (l *Ledger) event(action string, app model.VolunteerApplication, ev *model.Event, left int) queue.ApplicationEvent {
	return queue.ApplicationEvent{
		Action:              action,
		ApplicationID:       app.ID,
		VolunteerID:         app.VolunteerID,
		EventID:             app.EventID,
		EventName:           ev.Name,
		Status:              string(app.Status),
		AvailableVolunteers: left,
		OccurredAt:          l.now().Format(time.RFC3339),
	}
}
