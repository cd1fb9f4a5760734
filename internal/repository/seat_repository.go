package repository // repository defines data access for volunteer seats

import (
	"context"      // context allows query cancellation and timeouts
	"database/sql" // sql provides DB primitives
	"errors"
)

// SeatRepo adjusts event.available_volunteers.  Both adjustments are single
// conditional UPDATE statements so the bound check and the write happen
// atomically in the database even without an explicit row lock.
type SeatRepo struct {
	db *sql.DB
}

// NewSeatRepo constructs a SeatRepo with the given DB handle.
func NewSeatRepo(db *sql.DB) *SeatRepo {
	return &SeatRepo{db: db}
}

const (
	qDecrementSeat = `UPDATE event SET available_volunteers = available_volunteers - 1
		WHERE id = ? AND available_volunteers > 0`
	qIncrementSeat = `UPDATE event SET available_volunteers = available_volunteers + 1
		WHERE id = ? AND available_volunteers < max_volunteer_count`
	qAvailableSeats = `SELECT available_volunteers FROM event WHERE id = ?`
)

// DecrementTx takes one seat of the event and returns the remaining count.
// When no row is updated it distinguishes a missing event (ErrEventNotFound)
// from an exhausted one (ErrNoSeats).
func (r *SeatRepo) DecrementTx(ctx context.Context, tx *sql.Tx, eventID uint64) (int, error) {
	return adjustSeats(ctx, tx, qDecrementSeat, eventID, ErrNoSeats)
}

// IncrementTx returns one seat to the event and returns the new count.
// ErrSeatsAtCapacity signals that available_volunteers already equals
// max_volunteer_count.
func (r *SeatRepo) IncrementTx(ctx context.Context, tx *sql.Tx, eventID uint64) (int, error) {
	return adjustSeats(ctx, tx, qIncrementSeat, eventID, ErrSeatsAtCapacity)
}

// Available reads the current free seat count of an event.
func (r *SeatRepo) Available(ctx context.Context, eventID uint64) (int, error) {
	return availableSeats(ctx, r.db, eventID)
}

func adjustSeats(ctx context.Context, q querier, stmt string, eventID uint64, boundErr error) (int, error) {
	res, err := q.ExecContext(ctx, stmt, eventID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	left, err := availableSeats(ctx, q, eventID)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return left, boundErr
	}
	return left, nil
}

func availableSeats(ctx context.Context, q querier, eventID uint64) (int, error) {
	var left int
	if err := q.QueryRowContext(ctx, qAvailableSeats, eventID).Scan(&left); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrEventNotFound
		}
		return 0, err
	}
	return left, nil
}
