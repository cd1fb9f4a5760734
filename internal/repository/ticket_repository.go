package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/rangovai/internal/model"
)

// TicketRepo manages the ticket table.  Issuance runs under the event's row
// lock so the count check and the insert cannot interleave.
type TicketRepo struct {
	db *sql.DB
}

// NewTicketRepo returns a TicketRepo bound to db.
func NewTicketRepo(db *sql.DB) *TicketRepo { return &TicketRepo{db: db} }

const countTickets = `SELECT COUNT(*) FROM ticket WHERE event_id = ?`

// CountByEvent returns the number of tickets issued for an event.  An
// event without tickets yields zero.
func (r *TicketRepo) CountByEvent(ctx context.Context, eventID uint64) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, countTickets, eventID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// CountByEventTx is CountByEvent inside tx.
func (r *TicketRepo) CountByEventTx(ctx context.Context, tx *sql.Tx, eventID uint64) (int, error) {
	var n int
	if err := tx.QueryRowContext(ctx, countTickets, eventID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// CreateTx inserts a ticket and populates t.ID.  t.CreatedAt must be set.
func (r *TicketRepo) CreateTx(ctx context.Context, tx *sql.Tx, t *model.Ticket) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO ticket (event_id, holder_id, created_at) VALUES (?, ?, ?)`,
		t.EventID, t.HolderID, t.CreatedAt.UTC())
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return nil
}

// ListByHolder returns the tickets of holderID with their events, newest
// first.
func (r *TicketRepo) ListByHolder(ctx context.Context, holderID string) ([]model.TicketView, error) {
	const q = `SELECT t.id, t.event_id, t.holder_id, t.created_at, e.name, e.date, e.start_time
		FROM ticket t JOIN event e ON e.id = t.event_id
		WHERE t.holder_id = ?
		ORDER BY t.created_at DESC, t.id DESC`
	rows, err := r.db.QueryContext(ctx, q, holderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.TicketView{}
	for rows.Next() {
		var v model.TicketView
		if err := rows.Scan(&v.ID, &v.EventID, &v.HolderID, &v.CreatedAt, &v.EventName, &v.EventDate, &v.StartTime); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
