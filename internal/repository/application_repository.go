package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/rangovai/internal/model"
)

// ApplicationRepo provides access to the volunteer_application table.  IDs
// are UUID strings generated by the caller.  Status strings are stored
// verbatim and validated through model.ParseStatus when read back.
type ApplicationRepo struct {
	db *sql.DB
}

// NewApplicationRepo returns a new ApplicationRepo bound to the given database.
func NewApplicationRepo(db *sql.DB) *ApplicationRepo { return &ApplicationRepo{db: db} }

const applicationColumns = `id, volunteer_id, event_id, status, date`

func scanApplication(row rowScanner) (*model.VolunteerApplication, error) {
	var (
		a      model.VolunteerApplication
		status string
	)
	if err := row.Scan(&a.ID, &a.VolunteerID, &a.EventID, &status, &a.Date); err != nil {
		return nil, err
	}
	st, err := model.ParseStatus(status)
	if err != nil {
		return nil, err
	}
	a.Status = st
	return &a, nil
}

func getApplication(ctx context.Context, q querier, query string, args ...any) (*model.VolunteerApplication, error) {
	a, err := scanApplication(q.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrApplicationNotFound
		}
		return nil, err
	}
	return a, nil
}

// GetByID fetches a single application without locking it.
func (r *ApplicationRepo) GetByID(ctx context.Context, id string) (*model.VolunteerApplication, error) {
	const q = `SELECT ` + applicationColumns + ` FROM volunteer_application WHERE id = ?`
	return getApplication(ctx, r.db, q, id)
}

// LockTx fetches an application and locks the row.  Callers lock the owning
// event first.
func (r *ApplicationRepo) LockTx(ctx context.Context, tx *sql.Tx, id string) (*model.VolunteerApplication, error) {
	const q = `SELECT ` + applicationColumns + ` FROM volunteer_application WHERE id = ? FOR UPDATE`
	return getApplication(ctx, tx, q, id)
}

// FindActiveTx returns the pending or accepted application of a volunteer
// for an event.  Returns ErrApplicationNotFound when there is none.
func (r *ApplicationRepo) FindActiveTx(ctx context.Context, tx *sql.Tx, volunteerID string, eventID uint64) (*model.VolunteerApplication, error) {
	const q = `SELECT ` + applicationColumns + ` FROM volunteer_application
		WHERE volunteer_id = ? AND event_id = ? AND status IN (?, ?) LIMIT 1`
	return getApplication(ctx, tx, q, volunteerID, eventID, string(model.StatusPending), string(model.StatusAccepted))
}

// CreateTx inserts a new application.  a.ID and a.Date must be set.
func (r *ApplicationRepo) CreateTx(ctx context.Context, tx *sql.Tx, a *model.VolunteerApplication) error {
	const q = `INSERT INTO volunteer_application (id, volunteer_id, event_id, status, date) VALUES (?, ?, ?, ?, ?)`
	_, err := tx.ExecContext(ctx, q, a.ID, a.VolunteerID, a.EventID, string(a.Status), a.Date.UTC())
	return err
}

// UpdateStatusTx overwrites the status of an application.
func (r *ApplicationRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id string, status model.Status) error {
	res, err := tx.ExecContext(ctx, `UPDATE volunteer_application SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrApplicationNotFound
	}
	return nil
}

// DeleteTx removes an application row.
func (r *ApplicationRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM volunteer_application WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrApplicationNotFound
	}
	return nil
}

// ListByVolunteer returns all applications submitted by a volunteer, newest
// first, with the event's registration form link attached.
func (r *ApplicationRepo) ListByVolunteer(ctx context.Context, volunteerID string) ([]model.VolunteerApplication, error) {
	const q = `SELECT a.id, a.volunteer_id, a.event_id, a.status, a.date, e.form_url
		FROM volunteer_application a
		LEFT JOIN event e ON e.id = a.event_id
		WHERE a.volunteer_id = ?
		ORDER BY a.date DESC, a.id ASC`
	rows, err := r.db.QueryContext(ctx, q, volunteerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.VolunteerApplication{}
	for rows.Next() {
		var (
			a       model.VolunteerApplication
			status  string
			formURL sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.VolunteerID, &a.EventID, &status, &a.Date, &formURL); err != nil {
			return nil, err
		}
		if a.Status, err = model.ParseStatus(status); err != nil {
			return nil, err
		}
		if formURL.Valid {
			u := formURL.String
			a.FormURL = &u
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ListByEvent returns every application of an event in submission order
// together with the volunteer's display name.  Volunteers without a users
// row get an empty name.
func (r *ApplicationRepo) ListByEvent(ctx context.Context, eventID uint64) ([]model.ApplicationView, error) {
	const q = `SELECT a.id, a.volunteer_id, a.event_id, a.status, a.date, COALESCE(u.name, '')
		FROM volunteer_application a
		LEFT JOIN users u ON u.id = a.volunteer_id
		WHERE a.event_id = ?
		ORDER BY a.date ASC, a.id ASC`
	rows, err := r.db.QueryContext(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.ApplicationView{}
	for rows.Next() {
		var (
			v      model.ApplicationView
			status string
		)
		if err := rows.Scan(&v.ID, &v.VolunteerID, &v.EventID, &status, &v.Date, &v.VolunteerName); err != nil {
			return nil, err
		}
		if v.Status, err = model.ParseStatus(status); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
