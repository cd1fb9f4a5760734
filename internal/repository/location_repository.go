package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/rangovai/internal/model"
)

// LocationRepo manages rows of the event_location table.
type LocationRepo struct {
	db *sql.DB
}

// NewLocationRepo returns a LocationRepo bound to db.
func NewLocationRepo(db *sql.DB) *LocationRepo { return &LocationRepo{db: db} }

// GetByID fetches a location.  Returns ErrLocationNotFound when missing.
func (r *LocationRepo) GetByID(ctx context.Context, id uint64) (*model.EventLocation, error) {
	const q = `SELECT id, country, city, address, specified_location, longitude, latitude
		FROM event_location WHERE id = ?`
	var l model.EventLocation
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&l.ID, &l.Country, &l.City, &l.Address, &l.SpecifiedLocation, &l.Longitude, &l.Latitude,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLocationNotFound
		}
		return nil, err
	}
	return &l, nil
}

// CreateTx inserts a location within tx and populates l.ID.
func (r *LocationRepo) CreateTx(ctx context.Context, tx *sql.Tx, l *model.EventLocation) error {
	const q = `INSERT INTO event_location (country, city, address, specified_location, longitude, latitude)
		VALUES (?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, l.Country, l.City, l.Address, l.SpecifiedLocation, l.Longitude, l.Latitude)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	l.ID = uint64(id)
	return nil
}

// UpdateTx overwrites location l.ID within tx.  An unchanged row reports no
// affected rows under MySQL, so the count is not checked.
func (r *LocationRepo) UpdateTx(ctx context.Context, tx *sql.Tx, l *model.EventLocation) error {
	const q = `UPDATE event_location SET country = ?, city = ?, address = ?, specified_location = ?,
		longitude = ?, latitude = ? WHERE id = ?`
	_, err := tx.ExecContext(ctx, q, l.Country, l.City, l.Address, l.SpecifiedLocation, l.Longitude, l.Latitude, l.ID)
	return err
}
