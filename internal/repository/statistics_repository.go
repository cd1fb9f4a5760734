package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/rangovai/internal/model"
)

// StatisticsRepo persists volunteer performance records.
type StatisticsRepo struct {
	db *sql.DB
}

// NewStatisticsRepo returns a StatisticsRepo bound to db.
func NewStatisticsRepo(db *sql.DB) *StatisticsRepo { return &StatisticsRepo{db: db} }

// Create inserts a record.  st.ID and st.CreatedAt must be set by the caller.
func (r *StatisticsRepo) Create(ctx context.Context, st *model.VolunteerStatistics) error {
	const q = `INSERT INTO volunteer_statistics (id, volunteer_id, rating, minutes_worked, event_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q, st.ID, st.VolunteerID, st.Rating, st.MinutesWorked, st.EventCount, st.CreatedAt.UTC())
	return err
}

// ListByVolunteer returns all records of a volunteer, newest first.
func (r *StatisticsRepo) ListByVolunteer(ctx context.Context, volunteerID string) ([]model.VolunteerStatistics, error) {
	const q = `SELECT id, volunteer_id, rating, minutes_worked, event_count, created_at
		FROM volunteer_statistics WHERE volunteer_id = ? ORDER BY created_at DESC, id ASC`
	rows, err := r.db.QueryContext(ctx, q, volunteerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.VolunteerStatistics{}
	for rows.Next() {
		var st model.VolunteerStatistics
		if err := rows.Scan(&st.ID, &st.VolunteerID, &st.Rating, &st.MinutesWorked, &st.EventCount, &st.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}
