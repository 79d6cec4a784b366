package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/welfare-transport/backend/internal/domain"
)

// TripRecordRepo defines the persistence operations for transportation_records.
// The service layer depends on this interface, not the concrete Postgres
// implementation, which allows the service to be unit-tested with a mock.
type TripRecordRepo interface {
	// Create inserts a new record and returns it with DB-generated id,
	// created_at, and updated_at populated.
	Create(ctx context.Context, rec domain.TripRecord) (domain.TripRecord, error)

	// GetByID returns domain.ErrNotFound if no record with that ID exists.
	GetByID(ctx context.Context, id uuid.UUID) (domain.TripRecord, error)

	// FindByRoute returns the earliest-created record matching
	// (date, driverID, routeID), or domain.ErrNotFound.
	FindByRoute(ctx context.Context, date time.Time, driverID, routeID uuid.UUID) (domain.TripRecord, error)

	// FindByUser returns the earliest-created record matching
	// (date, driverID, userID), or domain.ErrNotFound.
	FindByUser(ctx context.Context, date time.Time, driverID, userID uuid.UUID) (domain.TripRecord, error)

	// ListByManagementCode returns one page of records carrying code, newest
	// date first, and the total number of matching records.
	ListByManagementCode(ctx context.Context, code string, p domain.PaginationParams) ([]domain.TripRecord, int64, error)

	// ListForConsolidation returns every record ordered by date descending,
	// then created_at ascending, then id for a deterministic tie-break.
	ListForConsolidation(ctx context.Context) ([]domain.TripRecord, error)

	// LockForMerge re-reads the records among ids that still exist and locks
	// them FOR UPDATE until the enclosing transaction ends. Rows are ordered
	// created_at ascending, then id.
	LockForMerge(ctx context.Context, ids []uuid.UUID) ([]domain.TripRecord, error)

	// MarkRoundTrip sets only trip_type=round_trip and passenger_count on a
	// record, leaving every other column as it currently is.
	// Returns domain.ErrNotFound if no record with that ID exists.
	MarkRoundTrip(ctx context.Context, id uuid.UUID, passengerCount int) (domain.TripRecord, error)

	// Update overwrites the mutable fields of an existing record.
	// Returns domain.ErrNotFound if no record with that ID exists.
	Update(ctx context.Context, rec domain.TripRecord) (domain.TripRecord, error)

	// Delete removes a record by ID. Details go with it via ON DELETE CASCADE.
	// Returns domain.ErrNotFound if it does not exist.
	Delete(ctx context.Context, id uuid.UUID) error
}

// pgTripRecordRepo is the Postgres implementation of TripRecordRepo.
type pgTripRecordRepo struct {
	db db
}

// NewTripRecordRepo constructs a TripRecordRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewTripRecordRepo(db db) TripRecordRepo {
	return &pgTripRecordRepo{db: db}
}

const tripRecordColumns = `
	id, transportation_date, driver_id, vehicle_id, transportation_type, trip_type,
	start_odometer, end_odometer, passenger_count, status, management_code_id,
	user_id, route_id, special_notes, weather_condition, start_time, end_time,
	created_at, updated_at`

func (r *pgTripRecordRepo) Create(ctx context.Context, rec domain.TripRecord) (domain.TripRecord, error) {
	const q = `
		INSERT INTO transportation_records (
			transportation_date, driver_id, vehicle_id, transportation_type, trip_type,
			start_odometer, end_odometer, passenger_count, status, management_code_id,
			user_id, route_id, special_notes, weather_condition, start_time, end_time)
		VALUES (
			@date, @driver_id, @vehicle_id, @transportation_type, @trip_type,
			@start_odometer, @end_odometer, @passenger_count, @status, @management_code,
			@user_id, @route_id, @special_notes, @weather_condition, @start_time, @end_time)
		RETURNING` + tripRecordColumns

	row := conn(ctx, r.db).QueryRow(ctx, q, recordArgs(rec))
	result, err := scanTripRecord(row)
	if err != nil {
		return domain.TripRecord{}, fmt.Errorf("repo.TripRecordRepo.Create: %w", err)
	}
	return result, nil
}

func (r *pgTripRecordRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.TripRecord, error) {
	q := `SELECT` + tripRecordColumns + ` FROM transportation_records WHERE id = @id`

	row := conn(ctx, r.db).QueryRow(ctx, q, pgx.NamedArgs{"id": id})
	result, err := scanTripRecord(row)
	if err != nil {
		return domain.TripRecord{}, fmt.Errorf("repo.TripRecordRepo.GetByID: %w", err)
	}
	return result, nil
}

func (r *pgTripRecordRepo) FindByRoute(ctx context.Context, date time.Time, driverID, routeID uuid.UUID) (domain.TripRecord, error) {
	q := `SELECT` + tripRecordColumns + `
		FROM transportation_records
		WHERE transportation_date = @date AND driver_id = @driver_id AND route_id = @route_id
		ORDER BY created_at, id
		LIMIT 1`

	args := pgx.NamedArgs{"date": date, "driver_id": driverID, "route_id": routeID}
	result, err := scanTripRecord(conn(ctx, r.db).QueryRow(ctx, q, args))
	if err != nil {
		return domain.TripRecord{}, fmt.Errorf("repo.TripRecordRepo.FindByRoute: %w", err)
	}
	return result, nil
}

func (r *pgTripRecordRepo) FindByUser(ctx context.Context, date time.Time, driverID, userID uuid.UUID) (domain.TripRecord, error) {
	q := `SELECT` + tripRecordColumns + `
		FROM transportation_records
		WHERE transportation_date = @date AND driver_id = @driver_id AND user_id = @user_id
		ORDER BY created_at, id
		LIMIT 1`

	args := pgx.NamedArgs{"date": date, "driver_id": driverID, "user_id": userID}
	result, err := scanTripRecord(conn(ctx, r.db).QueryRow(ctx, q, args))
	if err != nil {
		return domain.TripRecord{}, fmt.Errorf("repo.TripRecordRepo.FindByUser: %w", err)
	}
	return result, nil
}

func (r *pgTripRecordRepo) ListByManagementCode(ctx context.Context, code string, p domain.PaginationParams) ([]domain.TripRecord, int64, error) {
	q := `SELECT` + tripRecordColumns + `, count(*) OVER ()
		FROM transportation_records
		WHERE management_code_id = @code
		ORDER BY transportation_date DESC, created_at DESC
		LIMIT @limit OFFSET @offset`

	args := pgx.NamedArgs{"code": code, "limit": p.Limit, "offset": p.Offset()}
	rows, err := conn(ctx, r.db).Query(ctx, q, args)
	if err != nil {
		return nil, 0, fmt.Errorf("repo.TripRecordRepo.ListByManagementCode: %w", err)
	}
	defer rows.Close()

	var (
		records []domain.TripRecord
		total   int64
	)
	for rows.Next() {
		rec, err := scanTripRecordWithTotal(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("repo.TripRecordRepo.ListByManagementCode: scan: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("repo.TripRecordRepo.ListByManagementCode: rows: %w", err)
	}
	return records, total, nil
}

func (r *pgTripRecordRepo) ListForConsolidation(ctx context.Context) ([]domain.TripRecord, error) {
	q := `SELECT` + tripRecordColumns + `
		FROM transportation_records
		ORDER BY transportation_date DESC, created_at ASC, id ASC`

	rows, err := conn(ctx, r.db).Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("repo.TripRecordRepo.ListForConsolidation: %w", err)
	}
	defer rows.Close()

	var records []domain.TripRecord
	for rows.Next() {
		rec, err := scanTripRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.TripRecordRepo.ListForConsolidation: scan: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.TripRecordRepo.ListForConsolidation: rows: %w", err)
	}
	return records, nil
}

func (r *pgTripRecordRepo) LockForMerge(ctx context.Context, ids []uuid.UUID) ([]domain.TripRecord, error) {
	q := `SELECT` + tripRecordColumns + `
		FROM transportation_records
		WHERE id = ANY(@ids::uuid[])
		ORDER BY created_at ASC, id ASC
		FOR UPDATE`

	records := []domain.TripRecord{}
	if len(ids) == 0 {
		return records, nil
	}

	rows, err := conn(ctx, r.db).Query(ctx, q, pgx.NamedArgs{"ids": ids})
	if err != nil {
		return nil, fmt.Errorf("repo.TripRecordRepo.LockForMerge: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		rec, err := scanTripRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.TripRecordRepo.LockForMerge: scan: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.TripRecordRepo.LockForMerge: rows: %w", err)
	}
	return records, nil
}

func (r *pgTripRecordRepo) MarkRoundTrip(ctx context.Context, id uuid.UUID, passengerCount int) (domain.TripRecord, error) {
	q := `
		UPDATE transportation_records
		SET trip_type       = 'round_trip',
		    passenger_count = @passenger_count,
		    updated_at      = clock_timestamp()
		WHERE id = @id
		RETURNING` + tripRecordColumns

	rec, err := scanTripRecord(conn(ctx, r.db).QueryRow(ctx, q, pgx.NamedArgs{
		"id":              id,
		"passenger_count": passengerCount,
	}))
	if err != nil {
		return domain.TripRecord{}, fmt.Errorf("repo.TripRecordRepo.MarkRoundTrip: %w", err)
	}
	return rec, nil
}

func (r *pgTripRecordRepo) Update(ctx context.Context, rec domain.TripRecord) (domain.TripRecord, error) {
	const q = `
		UPDATE transportation_records
		SET transportation_date = @date,
		    driver_id           = @driver_id,
		    vehicle_id          = @vehicle_id,
		    transportation_type = @transportation_type,
		    trip_type           = @trip_type,
		    start_odometer      = @start_odometer,
		    end_odometer        = @end_odometer,
		    passenger_count     = @passenger_count,
		    status              = @status,
		    management_code_id  = @management_code,
		    user_id             = @user_id,
		    route_id            = @route_id,
		    special_notes       = @special_notes,
		    weather_condition   = @weather_condition,
		    start_time          = @start_time,
		    end_time            = @end_time,
		    updated_at          = clock_timestamp()
		WHERE id = @id
		RETURNING` + tripRecordColumns

	args := recordArgs(rec)
	args["id"] = rec.ID

	result, err := scanTripRecord(conn(ctx, r.db).QueryRow(ctx, q, args))
	if err != nil {
		return domain.TripRecord{}, fmt.Errorf("repo.TripRecordRepo.Update: %w", err)
	}
	return result, nil
}

func (r *pgTripRecordRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM transportation_records WHERE id = @id`

	tag, err := conn(ctx, r.db).Exec(ctx, q, pgx.NamedArgs{"id": id})
	if err != nil {
		return fmt.Errorf("repo.TripRecordRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.TripRecordRepo.Delete: %w", domain.ErrNotFound)
	}
	return nil
}

// recordArgs maps the writable columns of a record to named args.
// Nil pointers become NULL.
func recordArgs(rec domain.TripRecord) pgx.NamedArgs {
	return pgx.NamedArgs{
		"date":                rec.Date,
		"driver_id":           rec.DriverID,
		"vehicle_id":          rec.VehicleID,
		"transportation_type": string(rec.TransportationType),
		"trip_type":           string(rec.TripType),
		"start_odometer":      rec.StartOdometer,
		"end_odometer":        rec.EndOdometer,
		"passenger_count":     rec.PassengerCount,
		"status":              string(rec.Status),
		"management_code":     rec.ManagementCode,
		"user_id":             rec.UserID,
		"route_id":            rec.RouteID,
		"special_notes":       rec.SpecialNotes,
		"weather_condition":   rec.WeatherCondition,
		"start_time":          pgTime(rec.StartTime),
		"end_time":            pgTime(rec.EndTime),
	}
}

func scanTripRecord(s scanner) (domain.TripRecord, error) {
	return scanTripRecordWithTotal(s, nil)
}

// scanTripRecordWithTotal maps a row into a domain.TripRecord. When total is
// non-nil, the row carries a trailing window count that is scanned into it.
func scanTripRecordWithTotal(s scanner, total *int64) (domain.TripRecord, error) {
	var (
		rec                 domain.TripRecord
		id                  pgtype.UUID
		date                pgtype.Date
		driverID, vehicleID pgtype.UUID
		transportType       string
		tripType, status    string
		startOdo, endOdo    pgtype.Int4
		userID, routeID     pgtype.UUID
		startTime, endTime  pgtype.Time
	)

	dest := []any{
		&id, &date, &driverID, &vehicleID, &transportType, &tripType,
		&startOdo, &endOdo, &rec.PassengerCount, &status, &rec.ManagementCode,
		&userID, &routeID, &rec.SpecialNotes, &rec.WeatherCondition, &startTime, &endTime,
		&rec.CreatedAt, &rec.UpdatedAt,
	}
	if total != nil {
		dest = append(dest, total)
	}

	if err := s.Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.TripRecord{}, domain.ErrNotFound
		}
		return domain.TripRecord{}, err
	}

	rec.ID = uuid.UUID(id.Bytes)
	rec.Date = date.Time
	rec.DriverID = uuid.UUID(driverID.Bytes)
	rec.VehicleID = uuid.UUID(vehicleID.Bytes)
	rec.TransportationType = domain.TransportationType(transportType)
	rec.TripType = domain.TripType(tripType)
	rec.Status = domain.TripStatus(status)
	rec.StartOdometer = int4Ptr(startOdo)
	rec.EndOdometer = int4Ptr(endOdo)
	rec.UserID = uuidPtr(userID)
	rec.RouteID = uuidPtr(routeID)
	rec.StartTime = timeOfDayPtr(startTime)
	rec.EndTime = timeOfDayPtr(endTime)
	return rec, nil
}
