package repository

import (
	"context"      // context for cancellation and deadlines
	"database/sql" // sql provides DB interfaces
	"errors"
	"strings"

	"github.com/iliyamo/rangovai/internal/model"
)

// EventRepo encapsulates queries against the event table.  Plain reads use
// the pool directly; the *Tx variants run inside a caller-managed
// transaction.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo constructs an EventRepo with the provided DB handle.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

const eventColumns = `id, organizer_id, name, description, date, start_time, end_time, is_free,
	seats_count, max_volunteer_count, available_volunteers, event_location_id, form_url,
	created_at, updated_at`

// dateLayout is the format of the DATE column when passed as an argument.
const dateLayout = "2006-01-02"

func scanEvent(row rowScanner) (*model.Event, error) {
	var (
		e          model.Event
		seats      sql.NullInt64
		locationID sql.NullInt64
		formURL    sql.NullString
	)
	if err := row.Scan(
		&e.ID, &e.OrganizerID, &e.Name, &e.Description, &e.Date, &e.StartTime, &e.EndTime, &e.IsFree,
		&seats, &e.MaxVolunteerCount, &e.AvailableVolunteers, &locationID, &formURL,
		&e.CreatedAt, &e.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if seats.Valid {
		n := int(seats.Int64)
		e.SeatsCount = &n
	}
	if locationID.Valid {
		id := uint64(locationID.Int64)
		e.EventLocationID = &id
	}
	if formURL.Valid {
		u := formURL.String
		e.FormURL = &u
	}
	return &e, nil
}

func queryEvents(ctx context.Context, q querier, query string, args ...any) ([]model.Event, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func getEvent(ctx context.Context, q querier, query string, id uint64) (*model.Event, error) {
	e, err := scanEvent(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	return e, nil
}

// likeEscaper makes %, _ and the escape character itself match literally.
// '!' is used instead of a backslash so the pattern does not depend on the
// server's NO_BACKSLASH_ESCAPES mode.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// ListOpen returns events that still have at least one free volunteer seat,
// ordered by date and start time.  Optional filter conditions are applied
// in SQL.
func (r *EventRepo) ListOpen(ctx context.Context, f model.EventFilter) ([]model.Event, error) {
	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString(`SELECT ` + eventColumns + ` FROM event WHERE available_volunteers > 0`)
	if f.From != nil {
		sb.WriteString(` AND date >= ?`)
		args = append(args, f.From.UTC().Format(dateLayout))
	}
	if f.To != nil {
		sb.WriteString(` AND date <= ?`)
		args = append(args, f.To.UTC().Format(dateLayout))
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		like := "%" + likeEscaper.Replace(q) + "%"
		sb.WriteString(` AND (name LIKE ? ESCAPE '!' OR description LIKE ? ESCAPE '!')`)
		args = append(args, like, like)
	}
	sb.WriteString(` ORDER BY date ASC, start_time ASC, id ASC`)
	return queryEvents(ctx, r.db, sb.String(), args...)
}

// ListByOrganizer returns every event created by organizerID regardless of
// seat availability.
func (r *EventRepo) ListByOrganizer(ctx context.Context, organizerID string) ([]model.Event, error) {
	const q = `SELECT ` + eventColumns + ` FROM event WHERE organizer_id = ? ORDER BY date ASC, start_time ASC, id ASC`
	return queryEvents(ctx, r.db, q, organizerID)
}

// GetByID fetches a single event.  Returns ErrEventNotFound when missing.
func (r *EventRepo) GetByID(ctx context.Context, id uint64) (*model.Event, error) {
	const q = `SELECT ` + eventColumns + ` FROM event WHERE id = ?`
	return getEvent(ctx, r.db, q, id)
}

// LockTx fetches an event and takes a row lock on it for the remainder of
// the transaction.  All write paths lock the event before touching any of
// its applications.
func (r *EventRepo) LockTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Event, error) {
	const q = `SELECT ` + eventColumns + ` FROM event WHERE id = ? FOR UPDATE`
	return getEvent(ctx, tx, q, id)
}

// CreateTx inserts a new event and reloads it so that defaults and
// timestamps are populated on e.
func (r *EventRepo) CreateTx(ctx context.Context, tx *sql.Tx, e *model.Event) error {
	const q = `INSERT INTO event (organizer_id, name, description, date, start_time, end_time, is_free,
		seats_count, max_volunteer_count, available_volunteers, event_location_id, form_url)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q,
		e.OrganizerID, e.Name, e.Description, e.Date.UTC().Format(dateLayout), e.StartTime, e.EndTime, e.IsFree,
		e.SeatsCount, e.MaxVolunteerCount, e.AvailableVolunteers, e.EventLocationID, e.FormURL,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	created, err := getEvent(ctx, tx, `SELECT `+eventColumns+` FROM event WHERE id = ?`, uint64(id))
	if err != nil {
		return err
	}
	*e = *created
	return nil
}

// UpdateTx writes every mutable column of e.  The caller is expected to
// hold the row lock obtained through LockTx.
func (r *EventRepo) UpdateTx(ctx context.Context, tx *sql.Tx, e *model.Event) error {
	const q = `UPDATE event SET name = ?, description = ?, date = ?, start_time = ?, end_time = ?, is_free = ?,
		seats_count = ?, max_volunteer_count = ?, available_volunteers = ?, event_location_id = ?, form_url = ?
		WHERE id = ?`
	_, err := tx.ExecContext(ctx, q,
		e.Name, e.Description, e.Date.UTC().Format(dateLayout), e.StartTime, e.EndTime, e.IsFree,
		e.SeatsCount, e.MaxVolunteerCount, e.AvailableVolunteers, e.EventLocationID, e.FormURL, e.ID,
	)
	return err
}

// DeleteTx removes an event together with its applications and tickets.
func (r *EventRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM volunteer_application WHERE event_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM ticket WHERE event_id = ?`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM event WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrEventNotFound
	}
	return nil
}
