// Package service contains the business logic for the transportation service.
// Services validate inputs, enforce business rules, and orchestrate repo calls.
// No SQL lives here; services depend on repo interfaces, not implementations.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/welfare-transport/backend/internal/domain"
)

// Transactor runs fn inside one database transaction. repo.Transactor
// satisfies it.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// EventPublisher delivers lifecycle events to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, e domain.Event) error
}

// Option configures the optional collaborators shared by all services.
type Option func(*common)

// WithTransactor makes multi-write operations run inside one transaction.
// Without it they run as sequential writes and report partial failure.
func WithTransactor(tx Transactor) Option {
	return func(c *common) { c.tx = tx }
}

// WithEvents publishes lifecycle events through p.
func WithEvents(p EventPublisher) Option {
	return func(c *common) { c.events = p }
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *common) { c.now = now }
}

// WithLogger overrides slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *common) { c.log = l }
}

type common struct {
	tx     Transactor
	events EventPublisher
	now    func() time.Time
	log    *slog.Logger
}

func newCommon(opts []Option) common {
	c := common{now: time.Now, log: slog.Default()}
	for _, o := range opts {
		o(&c)
	}
	return c
}

// inTx runs fn in a transaction when a Transactor is configured, and directly
// otherwise.
func (c common) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if c.tx == nil {
		return fn(ctx)
	}
	return c.tx.WithinTx(ctx, fn)
}

// publish sends an event and logs, never returns, a delivery failure.
func (c common) publish(ctx context.Context, t domain.EventType, payload any) {
	if c.events == nil {
		return
	}
	e := domain.Event{Type: t, OccurredAt: c.now().UTC(), Payload: payload}
	if err := c.events.Publish(ctx, e); err != nil {
		c.log.WarnContext(ctx, "event publish failed", "event", string(t), "error", err)
	}
}

// storeErr classifies a repo error: not-found errors keep their sentinel,
// already classified errors pass through, and everything else becomes a
// PersistenceError.
func storeErr(op string, err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrDuplicateTrip),
		errors.Is(err, domain.ErrPersistence),
		errors.Is(err, domain.ErrPartialCompletion),
		errors.Is(err, domain.ErrConsolidationRunning):
		return fmt.Errorf("%s: %w", op, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w", op, err)
	}
	return &domain.PersistenceError{Op: op, Err: err}
}

func validationErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrValidation, fmt.Sprintf(format, args...))
}
