// Package handler implements the HTTP handlers for the transportation API.
// All handlers are methods on Server. Methods are split into domain-specific
// files (health.go, trip_record.go, etc.) but share the same Server struct so
// they can reach its dependencies.
package handler

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/welfare-transport/backend/internal/domain"
)

// TripRecordServicer defines the trip record operations the handlers depend on.
// Defining the interface here (in the consumer package) lets handler tests
// inject a mock without touching the database or service layer.
type TripRecordServicer interface {
	CheckDuplicate(ctx context.Context, q domain.DuplicateQuery) (domain.DuplicateCheck, error)
	Create(ctx context.Context, form domain.TripForm) (domain.TripRecord, error)
	Get(ctx context.Context, id uuid.UUID) (domain.TripRecord, error)
	Complete(ctx context.Context, id uuid.UUID, endOdometer int, vehicleID uuid.UUID) (domain.TripRecord, error)
	ResumeCompletion(ctx context.Context, id uuid.UUID) (domain.Vehicle, error)
	RecordTime(ctx context.Context, id uuid.UUID, phase domain.TimePhase, at domain.TimeOfDay, opts domain.TimeOptions) (domain.TripRecord, error)
	Cancel(ctx context.Context, id uuid.UUID) (domain.TripRecord, error)
	AddDetails(ctx context.Context, recordID uuid.UUID, details []domain.TripDetail) ([]domain.TripDetail, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// HistoryServicer answers management-code lookups.
type HistoryServicer interface {
	History(ctx context.Context, code string, p domain.PaginationParams) ([]domain.HistoryEntry, int64, error)
	Export(ctx context.Context, code string) ([]domain.ExportRow, error)
}

// OdometerServicer reads and corrects vehicle odometers.
type OdometerServicer interface {
	Vehicle(ctx context.Context, vehicleID uuid.UUID) (domain.Vehicle, error)
	Set(ctx context.Context, vehicleID uuid.UUID, value int, lastOilChange *int) (domain.Vehicle, error)
}

// Consolidator runs one consolidation batch.
type Consolidator interface {
	Run(ctx context.Context) (domain.ConsolidationReport, error)
}

// Pinger reports whether the database is reachable. *pgxpool.Pool satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services bundles the Server's dependencies. Nil members are allowed in
// tests that do not exercise the corresponding routes; DB may be nil in
// production too, in which case /healthz does not check the database.
type Services struct {
	Trips         TripRecordServicer
	History       HistoryServicer
	Odometer      OdometerServicer
	Consolidation Consolidator
	DB            Pinger
}

// Server holds the dependencies of every handler.
type Server struct {
	trips         TripRecordServicer
	history       HistoryServicer
	odometer      OdometerServicer
	consolidation Consolidator
	db            Pinger
	log           *slog.Logger
}

// NewServer constructs the Server with all its dependencies.
func NewServer(svc Services, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		trips:         svc.Trips,
		history:       svc.History,
		odometer:      svc.Odometer,
		consolidation: svc.Consolidation,
		db:            svc.DB,
		log:           log,
	}
}
