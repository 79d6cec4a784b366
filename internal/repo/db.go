// Package repo contains all database access logic for the transportation service.
// Each table has its own file with an interface and a Postgres implementation.
// No business logic lives here, only SQL and type mapping.
package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/welfare-transport/backend/internal/domain"
)

// db is the minimal interface satisfied by *pgxpool.Pool, pgx.Conn, and pgx.Tx.
// Accepting this interface instead of *pgxpool.Pool directly allows integration
// tests to pass a transaction that is rolled back after each test.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// beginner is satisfied by *pgxpool.Pool and pgx.Tx (the latter opens a savepoint).
type beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type txKey struct{}

// conn returns the transaction stored in ctx by Transactor.WithinTx, or
// fallback when ctx carries none. Every repo method routes its SQL through it
// so that repos join an enclosing transaction without extra parameters.
func conn(ctx context.Context, fallback db) db {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return fallback
}

// Transactor runs a function inside a single database transaction.
type Transactor struct {
	db beginner
}

// NewTransactor returns a Transactor that begins transactions on db.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx so the nested
// transaction becomes a savepoint of the test transaction.
func NewTransactor(db beginner) *Transactor {
	return &Transactor{db: db}
}

// WithinTx executes fn within a transaction.
//   - If ctx already carries a transaction, fn joins it.
//   - If fn returns an error or panics, the transaction is rolled back.
//   - On success, the transaction is committed.
func (t *Transactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return fn(ctx)
	}

	tx, err := t.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repo.Transactor.WithinTx: begin: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("repo.Transactor.WithinTx: commit: %w", err)
	}
	return nil
}

// AdvisoryLock is a cross-process mutex backed by a Postgres session-level
// advisory lock. The lock lives on one pooled connection until released.
type AdvisoryLock struct {
	pool *pgxpool.Pool
	key  int64
}

// ConsolidationLockKey identifies the consolidation job's advisory lock.
const ConsolidationLockKey int64 = 0x7472697063306e73

// NewAdvisoryLock returns a lock identified by key.
func NewAdvisoryLock(pool *pgxpool.Pool, key int64) *AdvisoryLock {
	return &AdvisoryLock{pool: pool, key: key}
}

// TryAcquire takes the lock without waiting. It returns
// domain.ErrConsolidationRunning when another session holds it.
func (l *AdvisoryLock) TryAcquire(ctx context.Context) (func(), error) {
	c, err := l.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("repo.AdvisoryLock.TryAcquire: acquire conn: %w", err)
	}

	var ok bool
	if err := c.QueryRow(ctx, `SELECT pg_try_advisory_lock($1)`, l.key).Scan(&ok); err != nil {
		c.Release()
		return nil, fmt.Errorf("repo.AdvisoryLock.TryAcquire: %w", err)
	}
	if !ok {
		c.Release()
		return nil, fmt.Errorf("repo.AdvisoryLock.TryAcquire: %w", domain.ErrConsolidationRunning)
	}

	return func() {
		_, _ = c.Exec(context.Background(), `SELECT pg_advisory_unlock($1)`, l.key)
		c.Release()
	}, nil
}

// scanner is satisfied by both pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// --- nullable conversions ----------------------------------------------------

func int4Ptr(v pgtype.Int4) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int32)
	return &i
}

func uuidPtr(v pgtype.UUID) *uuid.UUID {
	if !v.Valid {
		return nil
	}
	id := uuid.UUID(v.Bytes)
	return &id
}

func pgTime(t *domain.TimeOfDay) pgtype.Time {
	if t == nil {
		return pgtype.Time{}
	}
	return pgtype.Time{Microseconds: t.Duration().Microseconds(), Valid: true}
}

func timeOfDayPtr(v pgtype.Time) *domain.TimeOfDay {
	if !v.Valid {
		return nil
	}
	t := domain.TimeOfDay(v.Microseconds * 1000)
	return &t
}
