// Package testutil provides shared helpers for integration tests.
// Helpers in this package skip automatically when TEST_DATABASE_URL is not
// set, so unit tests can run without a running database.
package testutil

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx" driver for database/sql
)

// NewPool opens a *pgxpool.Pool connected to TEST_DATABASE_URL.
// The test is skipped if the variable is not set. The pool is closed when the
// test and all its subtests finish.
func NewPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := requireDSN(t)

	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		t.Fatalf("testutil.NewPool: open pool: %v", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		t.Fatalf("testutil.NewPool: ping: %v", err)
	}

	t.Cleanup(pool.Close)
	return pool
}

// NewTx begins a transaction on a fresh test pool and rolls it back when the
// test finishes, giving per-test isolation without cleanup SQL.
func NewTx(t *testing.T) pgx.Tx {
	t.Helper()
	pool := NewPool(t)

	tx, err := pool.Begin(context.Background())
	if err != nil {
		t.Fatalf("testutil.NewTx: begin: %v", err)
	}
	t.Cleanup(func() { _ = tx.Rollback(context.Background()) })
	return tx
}

// NewSQLDB opens a *sql.DB connected to TEST_DATABASE_URL using the pgx
// database/sql driver, for goose migrations in integration tests.
// The connection is closed automatically when the test finishes.
func NewSQLDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := requireDSN(t)

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("testutil.NewSQLDB: open: %v", err)
	}

	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		t.Fatalf("testutil.NewSQLDB: ping: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

// MustOpenSQLDB opens a *sql.DB for the given DSN and panics on any error.
// Use this in TestMain functions where no *testing.T is available.
func MustOpenSQLDB(dsn string) *sql.DB {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		panic("testutil.MustOpenSQLDB: open: " + err.Error())
	}
	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		panic("testutil.MustOpenSQLDB: ping: " + err.Error())
	}
	return db
}

// InsertDriver inserts a driver row and returns its id.
func InsertDriver(t *testing.T, tx pgx.Tx, name string) uuid.UUID {
	t.Helper()
	var id uuid.UUID
	err := tx.QueryRow(context.Background(),
		`INSERT INTO drivers (name) VALUES ($1) RETURNING id`, name).Scan(&id)
	if err != nil {
		t.Fatalf("testutil.InsertDriver: %v", err)
	}
	return id
}

// InsertVehicle inserts a vehicle row with the given odometer and returns its id.
func InsertVehicle(t *testing.T, tx pgx.Tx, odometer int) uuid.UUID {
	t.Helper()
	var id uuid.UUID
	err := tx.QueryRow(context.Background(),
		`INSERT INTO vehicles (current_odometer) VALUES ($1) RETURNING id`, odometer).Scan(&id)
	if err != nil {
		t.Fatalf("testutil.InsertVehicle: %v", err)
	}
	return id
}

// requireDSN returns TEST_DATABASE_URL, skipping the test if it is not set.
func requireDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping integration test")
	}
	return dsn
}
