package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrNotFound is returned by repo and service functions when the requested
// resource does not exist in the database.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned by service functions when input fails business
// rule validation (e.g. missing driver, end odometer below start odometer).
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrDuplicateTrip is matched by DuplicateTripError.
var ErrDuplicateTrip = errors.New("duplicate trip")

// ErrPersistence is matched by PersistenceError.
var ErrPersistence = errors.New("persistence error")

// ErrPartialCompletion is matched by PartialCompletionError.
var ErrPartialCompletion = errors.New("partial completion")

// ErrConsolidationRunning is returned when a consolidation batch is already
// in progress, either in this process or in another one holding the lock.
var ErrConsolidationRunning = errors.New("consolidation already running")

// ErrUnauthorized and ErrForbidden are returned by the auth layer.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

// DuplicateTripError rejects a create because a record with the same
// duplicate key already exists. Existing is the conflicting record so a
// human can decide to edit or delete it.
type DuplicateTripError struct {
	Existing TripRecord
}

func (e *DuplicateTripError) Error() string {
	return fmt.Sprintf("duplicate trip: record %s already exists for %s",
		e.Existing.ID, e.Existing.Date.Format(DateLayout))
}

func (e *DuplicateTripError) Is(target error) bool { return target == ErrDuplicateTrip }

// PersistenceError wraps a failure of the underlying store.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: persistence error: %v", e.Op, e.Err)
}

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

func (e *PersistenceError) Unwrap() error { return e.Err }

// PartialCompletionError reports that a trip record was marked completed but
// the vehicle odometer could not be advanced afterwards. The record write is
// committed; only the vehicle write needs to be retried.
type PartialCompletionError struct {
	RecordID    uuid.UUID
	VehicleID   uuid.UUID
	EndOdometer int
	Err         error
}

func (e *PartialCompletionError) Error() string {
	return fmt.Sprintf("partial completion: record %s completed but vehicle %s odometer not set to %d: %v",
		e.RecordID, e.VehicleID, e.EndOdometer, e.Err)
}

func (e *PartialCompletionError) Is(target error) bool { return target == ErrPartialCompletion }

func (e *PartialCompletionError) Unwrap() error { return e.Err }
