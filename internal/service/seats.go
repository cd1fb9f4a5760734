package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/iliyamo/rangovai/internal/model"
	"github.com/iliyamo/rangovai/internal/repository"
)

// SeatAccountant owns event.available_volunteers.  Every change goes through
// the store's conditional update so the counter stays within
// [0, max_volunteer_count] under concurrency.
type SeatAccountant struct {
	store TxRunner
	after afterCommit
}

// NewSeatAccountant wires a SeatAccountant.  cache may be nil.
func NewSeatAccountant(store TxRunner, cache Invalidator, log *zap.Logger) *SeatAccountant {
	return &SeatAccountant{store: store, after: newAfterCommit(nil, cache, log)}
}

// Decrement takes one seat in its own transaction and returns the new count.
func (a *SeatAccountant) Decrement(ctx context.Context, eventID uint64) (int, error) {
	return a.standalone(ctx, eventID, a.DecrementTx)
}

// Increment returns one seat in its own transaction and returns the new count.
func (a *SeatAccountant) Increment(ctx context.Context, eventID uint64) (int, error) {
	return a.standalone(ctx, eventID, a.IncrementTx)
}

// DecrementTx takes one seat inside a caller's transaction.
func (a *SeatAccountant) DecrementTx(ctx context.Context, tx repository.Tx, eventID uint64) (int, error) {
	return tx.DecrementSeat(ctx, eventID)
}

// IncrementTx returns one seat inside a caller's transaction.
func (a *SeatAccountant) IncrementTx(ctx context.Context, tx repository.Tx, eventID uint64) (int, error) {
	return tx.IncrementSeat(ctx, eventID)
}

// ApplyDeltaTx applies a status transition's seat delta to a locked event.
// A zero delta leaves the counter alone and reports the locked value.
func (a *SeatAccountant) ApplyDeltaTx(ctx context.Context, tx repository.Tx, ev *model.Event, delta int) (int, error) {
	switch {
	case delta < 0:
		return a.DecrementTx(ctx, tx, ev.ID)
	case delta > 0:
		return a.IncrementTx(ctx, tx, ev.ID)
	default:
		return ev.AvailableVolunteers, nil
	}
}

func (a *SeatAccountant) standalone(ctx context.Context, eventID uint64, op func(context.Context, repository.Tx, uint64) (int, error)) (int, error) {
	var left int
	err := a.store.WithTx(ctx, func(tx repository.Tx) error {
		var err error
		left, err = op(ctx, tx, eventID)
		return err
	})
	if err != nil {
		return 0, wrap("adjust seats", err)
	}
	a.after.invalidate(ctx)
	a.after.log.Info("volunteer seats adjusted", zap.Uint64("event_id", eventID), zap.Int("available_volunteers", left))
	return left, nil
}
