package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/rangovai/internal/model"
)

// Tx is the set of writes that seat accounting and the application ledger
// perform inside one transaction.  Implementations must guarantee that a
// Tx either commits all of its writes or none of them, and that LockEvent
// serializes concurrent transactions touching the same event.
type Tx interface {
	// LockEvent loads an event and holds a write lock on it until the
	// transaction ends.  Returns ErrEventNotFound when missing.
	LockEvent(ctx context.Context, id uint64) (*model.Event, error)
	InsertEvent(ctx context.Context, e *model.Event) error
	UpdateEvent(ctx context.Context, e *model.Event) error
	DeleteEvent(ctx context.Context, id uint64) error
	InsertLocation(ctx context.Context, l *model.EventLocation) error
	// UpdateLocation overwrites the location row l.ID.
	UpdateLocation(ctx context.Context, l *model.EventLocation) error

	// CountTickets counts an event's tickets.  Callers hold the event lock.
	CountTickets(ctx context.Context, eventID uint64) (int, error)
	InsertTicket(ctx context.Context, t *model.Ticket) error

	// LockApplication loads an application and holds a write lock on it.
	// Returns ErrApplicationNotFound when missing.
	LockApplication(ctx context.Context, id string) (*model.VolunteerApplication, error)
	// FindActiveApplication returns the pending or accepted application of
	// the volunteer for the event, or ErrApplicationNotFound.
	FindActiveApplication(ctx context.Context, volunteerID string, eventID uint64) (*model.VolunteerApplication, error)
	InsertApplication(ctx context.Context, a *model.VolunteerApplication) error
	UpdateApplicationStatus(ctx context.Context, id string, status model.Status) error
	DeleteApplication(ctx context.Context, id string) error

	// DecrementSeat atomically takes one volunteer seat and returns the
	// remaining count.  Returns ErrNoSeats when none is left.
	DecrementSeat(ctx context.Context, eventID uint64) (int, error)
	// IncrementSeat atomically returns one volunteer seat and returns the
	// new count.  Returns ErrSeatsAtCapacity when the count is already at
	// max_volunteer_count.
	IncrementSeat(ctx context.Context, eventID uint64) (int, error)
}

// querier is satisfied by both *sql.DB and *sql.Tx so that scan helpers
// can be shared between plain reads and transactional reads.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// rowScanner abstracts *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// Store is the MySQL implementation of the workflow's persistence
// boundary.  It composes the individual repositories and exposes
// transactional access through WithTx.
type Store struct {
	db           *sql.DB
	Events       *EventRepo
	Applications *ApplicationRepo
	Seats        *SeatRepo
	Tickets      *TicketRepo
	Locations    *LocationRepo
	Statistics   *StatisticsRepo
	Users        *UserRepo
}

// NewStore builds a Store over the given database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:           db,
		Events:       NewEventRepo(db),
		Applications: NewApplicationRepo(db),
		Seats:        NewSeatRepo(db),
		Tickets:      NewTicketRepo(db),
		Locations:    NewLocationRepo(db),
		Statistics:   NewStatisticsRepo(db),
		Users:        NewUserRepo(db),
	}
}

// WithTx runs fn inside a database transaction.  The transaction is
// committed when fn returns nil and rolled back otherwise.  Errors returned
// by fn are passed through unchanged so sentinel values survive.
func (s *Store) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(&sqlTx{tx: tx, s: s}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	committed = true
	return nil
}

// ListOpenEvents returns events with free volunteer seats ordered by date.
func (s *Store) ListOpenEvents(ctx context.Context, f model.EventFilter) ([]model.Event, error) {
	return s.Events.ListOpen(ctx, f)
}

// ListEventsByOrganizer returns the events created by organizerID.
func (s *Store) ListEventsByOrganizer(ctx context.Context, organizerID string) ([]model.Event, error) {
	return s.Events.ListByOrganizer(ctx, organizerID)
}

// GetEvent returns a single event or ErrEventNotFound.
func (s *Store) GetEvent(ctx context.Context, id uint64) (*model.Event, error) {
	return s.Events.GetByID(ctx, id)
}

// GetLocation returns a location row or ErrLocationNotFound.
func (s *Store) GetLocation(ctx context.Context, id uint64) (*model.EventLocation, error) {
	return s.Locations.GetByID(ctx, id)
}

// CountTickets returns the number of ticket rows of an event.
func (s *Store) CountTickets(ctx context.Context, eventID uint64) (int, error) {
	return s.Tickets.CountByEvent(ctx, eventID)
}

// ListTicketsByHolder returns a holder's tickets with their events.
func (s *Store) ListTicketsByHolder(ctx context.Context, holderID string) ([]model.TicketView, error) {
	return s.Tickets.ListByHolder(ctx, holderID)
}

// GetApplication returns a single application or ErrApplicationNotFound.
func (s *Store) GetApplication(ctx context.Context, id string) (*model.VolunteerApplication, error) {
	return s.Applications.GetByID(ctx, id)
}

// ListApplicationsByVolunteer returns a volunteer's applications, newest first.
func (s *Store) ListApplicationsByVolunteer(ctx context.Context, volunteerID string) ([]model.VolunteerApplication, error) {
	return s.Applications.ListByVolunteer(ctx, volunteerID)
}

// ListApplicationsByEvent returns an event's applications with volunteer names.
func (s *Store) ListApplicationsByEvent(ctx context.Context, eventID uint64) ([]model.ApplicationView, error) {
	return s.Applications.ListByEvent(ctx, eventID)
}

// InsertStatistics stores a statistics record.
func (s *Store) InsertStatistics(ctx context.Context, st *model.VolunteerStatistics) error {
	return s.Statistics.Create(ctx, st)
}

// ListStatistics returns a volunteer's statistics records, newest first.
func (s *Store) ListStatistics(ctx context.Context, volunteerID string) ([]model.VolunteerStatistics, error) {
	return s.Statistics.ListByVolunteer(ctx, volunteerID)
}

// UpsertUser registers a display name for an identity.
func (s *Store) UpsertUser(ctx context.Context, u model.User) error {
	return s.Users.Upsert(ctx, u)
}

// sqlTx binds the repositories' Tx methods to one *sql.Tx.
type sqlTx struct {
	tx *sql.Tx
	s  *Store
}

func (t *sqlTx) LockEvent(ctx context.Context, id uint64) (*model.Event, error) {
	return t.s.Events.LockTx(ctx, t.tx, id)
}

func (t *sqlTx) InsertEvent(ctx context.Context, e *model.Event) error {
	return t.s.Events.CreateTx(ctx, t.tx, e)
}

func (t *sqlTx) UpdateEvent(ctx context.Context, e *model.Event) error {
	return t.s.Events.UpdateTx(ctx, t.tx, e)
}

func (t *sqlTx) DeleteEvent(ctx context.Context, id uint64) error {
	return t.s.Events.DeleteTx(ctx, t.tx, id)
}

func (t *sqlTx) InsertLocation(ctx context.Context, l *model.EventLocation) error {
	return t.s.Locations.CreateTx(ctx, t.tx, l)
}

func (t *sqlTx) UpdateLocation(ctx context.Context, l *model.EventLocation) error {
	return t.s.Locations.UpdateTx(ctx, t.tx, l)
}

func (t *sqlTx) CountTickets(ctx context.Context, eventID uint64) (int, error) {
	return t.s.Tickets.CountByEventTx(ctx, t.tx, eventID)
}

func (t *sqlTx) InsertTicket(ctx context.Context, tk *model.Ticket) error {
	return t.s.Tickets.CreateTx(ctx, t.tx, tk)
}

func (t *sqlTx) LockApplication(ctx context.Context, id string) (*model.VolunteerApplication, error) {
	return t.s.Applications.LockTx(ctx, t.tx, id)
}

func (t *sqlTx) FindActiveApplication(ctx context.Context, volunteerID string, eventID uint64) (*model.VolunteerApplication, error) {
	return t.s.Applications.FindActiveTx(ctx, t.tx, volunteerID, eventID)
}

func (t *sqlTx) InsertApplication(ctx context.Context, a *model.VolunteerApplication) error {
	return t.s.Applications.CreateTx(ctx, t.tx, a)
}

func (t *sqlTx) UpdateApplicationStatus(ctx context.Context, id string, status model.Status) error {
	return t.s.Applications.UpdateStatusTx(ctx, t.tx, id, status)
}

func (t *sqlTx) DeleteApplication(ctx context.Context, id string) error {
	return t.s.Applications.DeleteTx(ctx, t.tx, id)
}

func (t *sqlTx) DecrementSeat(ctx context.Context, eventID uint64) (int, error) {
	return t.s.Seats.DecrementTx(ctx, t.tx, eventID)
}

func (t *sqlTx) IncrementSeat(ctx context.Context, eventID uint64) (int, error) {
	return t.s.Seats.IncrementTx(ctx, t.tx, eventID)
}
