// Package service implements the volunteer workflow: the event catalog, the
// application ledger and the seat accountant.  It validates input, runs
// every write inside one store transaction and fires post-commit side
// effects (cache invalidation, broker notifications) on a best-effort basis.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/rangovai/internal/model"
	"github.com/iliyamo/rangovai/internal/queue"
	"github.com/iliyamo/rangovai/internal/repository"
)

// TxRunner opens write transactions.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx repository.Tx) error) error
}

// CatalogStore is the persistence surface of the Catalog.
type CatalogStore interface {
	TxRunner
	ListOpenEvents(ctx context.Context, f model.EventFilter) ([]model.Event, error)
	ListEventsByOrganizer(ctx context.Context, organizerID string) ([]model.Event, error)
	GetEvent(ctx context.Context, id uint64) (*model.Event, error)
	GetLocation(ctx context.Context, id uint64) (*model.EventLocation, error)
	CountTickets(ctx context.Context, eventID uint64) (int, error)
	ListTicketsByHolder(ctx context.Context, holderID string) ([]model.TicketView, error)
}

// LedgerStore is the persistence surface of the Ledger.
type LedgerStore interface {
	TxRunner
	GetEvent(ctx context.Context, id uint64) (*model.Event, error)
	GetApplication(ctx context.Context, id string) (*model.VolunteerApplication, error)
	ListApplicationsByVolunteer(ctx context.Context, volunteerID string) ([]model.VolunteerApplication, error)
	ListApplicationsByEvent(ctx context.Context, eventID uint64) ([]model.ApplicationView, error)
}

// StatisticsStore is the persistence surface of the Statistics service.
type StatisticsStore interface {
	InsertStatistics(ctx context.Context, st *model.VolunteerStatistics) error
	ListStatistics(ctx context.Context, volunteerID string) ([]model.VolunteerStatistics, error)
}

// Publisher delivers ledger notifications.
type Publisher interface {
	Publish(ctx context.Context, ev queue.ApplicationEvent) error
}

// Invalidator drops cached views of the open events listing.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, queue.ApplicationEvent) error { return nil }

type nopInvalidator struct{}

func (nopInvalidator) Invalidate(context.Context) error { return nil }

// NopPublisher discards every notification.
var NopPublisher Publisher = nopPublisher{}

// NopInvalidator does nothing.
var NopInvalidator Invalidator = nopInvalidator{}

// ValidationError reports unusable input.  Handlers map it to 400.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

func invalid(field, msg string) error { return &ValidationError{Field: field, Message: msg} }

// IsValidation reports whether err is a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// sideEffectTimeout bounds post-commit work so a slow broker or cache
// cannot hold a request open.
const sideEffectTimeout = 2 * time.Second

// afterCommit carries the shared post-commit plumbing.
type afterCommit struct {
	pub   Publisher
	cache Invalidator
	log   *zap.Logger
}

func newAfterCommit(pub Publisher, cache Invalidator, log *zap.Logger) afterCommit {
	if pub == nil {
		pub = NopPublisher
	}
	if cache == nil {
		cache = NopInvalidator
	}
	if log == nil {
		log = zap.NewNop()
	}
	return afterCommit{pub: pub, cache: cache, log: log}
}

// invalidate drops cached listings.  Failures are logged, never returned.
func (a afterCommit) invalidate(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()
	if err := a.cache.Invalidate(ctx); err != nil {
		a.log.Warn("cache invalidation failed", zap.Error(err))
	}
}

// notify publishes ev.  Failures are logged, never returned.
func (a afterCommit) notify(ctx context.Context, ev queue.ApplicationEvent) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()
	if err := a.pub.Publish(ctx, ev); err != nil {
		a.log.Warn("application notification failed",
			zap.String("action", ev.Action),
			zap.String("application_id", ev.ApplicationID),
			zap.Error(err))
	}
}

// wrap passes sentinel and validation errors through and annotates the rest.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, sentinel := range []error{
		repository.ErrNotAuthenticated,
		repository.ErrForbidden,
		repository.ErrConflict,
		repository.ErrEventNotFound,
		repository.ErrApplicationNotFound,
		repository.ErrLocationNotFound,
		repository.ErrNoSeats,
		repository.ErrSeatsAtCapacity,
		repository.ErrDuplicateApplication,
		repository.ErrInvalidTransition,
		repository.ErrSoldOut,
	} {
		if errors.Is(err, sentinel) {
			return err
		}
	}
	if IsValidation(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}
