package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/welfare-transport/backend/internal/domain"
)

// TripDetailRepo defines the persistence operations for transportation_details.
type TripDetailRepo interface {
	// CreateBatch inserts all details in one pipelined batch and returns the
	// persisted rows in input order. Postgres executes the batch as a single
	// implicit transaction, so either every row is written or none is.
	CreateBatch(ctx context.Context, details []domain.TripDetail) ([]domain.TripDetail, error)

	// ListByRecordIDs returns the details of every listed record, ordered by
	// record then pickup time.
	ListByRecordIDs(ctx context.Context, recordIDs []uuid.UUID) ([]domain.TripDetail, error)

	// Reassign moves every detail of from onto to and returns the number of
	// rows moved.
	Reassign(ctx context.Context, from, to uuid.UUID) (int64, error)
}

// pgTripDetailRepo is the Postgres implementation of TripDetailRepo.
type pgTripDetailRepo struct {
	db db
}

// NewTripDetailRepo constructs a TripDetailRepo backed by the provided db connection.
func NewTripDetailRepo(db db) TripDetailRepo {
	return &pgTripDetailRepo{db: db}
}

const tripDetailColumns = `
	id, transportation_record_id, user_id, destination_id,
	pickup_time, arrival_time, departure_time, drop_off_time,
	health_condition, behavior_notes, assistance_required, remarks, created_at`

func (r *pgTripDetailRepo) CreateBatch(ctx context.Context, details []domain.TripDetail) ([]domain.TripDetail, error) {
	const q = `
		INSERT INTO transportation_details (
			transportation_record_id, user_id, destination_id,
			pickup_time, arrival_time, departure_time, drop_off_time,
			health_condition, behavior_notes, assistance_required, remarks)
		VALUES (
			@record_id, @user_id, @destination_id,
			@pickup_time, @arrival_time, @departure_time, @drop_off_time,
			@health_condition, @behavior_notes, @assistance_required, @remarks)
		RETURNING` + tripDetailColumns

	if len(details) == 0 {
		return []domain.TripDetail{}, nil
	}

	batch := &pgx.Batch{}
	for _, d := range details {
		batch.Queue(q, pgx.NamedArgs{
			"record_id":           d.TripRecordID,
			"user_id":             d.UserID,
			"destination_id":      d.DestinationID,
			"pickup_time":         pgTime(d.PickupTime),
			"arrival_time":        pgTime(d.ArrivalTime),
			"departure_time":      pgTime(d.DepartureTime),
			"drop_off_time":       pgTime(d.DropOffTime),
			"health_condition":    d.HealthCondition,
			"behavior_notes":      d.BehaviorNotes,
			"assistance_required": d.AssistanceRequired,
			"remarks":             d.Remarks,
		})
	}

	br := conn(ctx, r.db).SendBatch(ctx, batch)
	created := make([]domain.TripDetail, 0, len(details))
	for range details {
		d, err := scanTripDetail(br.QueryRow())
		if err != nil {
			_ = br.Close()
			return nil, fmt.Errorf("repo.TripDetailRepo.CreateBatch: %w", err)
		}
		created = append(created, d)
	}
	if err := br.Close(); err != nil {
		return nil, fmt.Errorf("repo.TripDetailRepo.CreateBatch: close: %w", err)
	}
	return created, nil
}

func (r *pgTripDetailRepo) ListByRecordIDs(ctx context.Context, recordIDs []uuid.UUID) ([]domain.TripDetail, error) {
	q := `SELECT` + tripDetailColumns + `
		FROM transportation_details
		WHERE transportation_record_id = ANY(@ids::uuid[])
		ORDER BY transportation_record_id, pickup_time NULLS LAST, created_at`

	details := []domain.TripDetail{}
	if len(recordIDs) == 0 {
		return details, nil
	}

	rows, err := conn(ctx, r.db).Query(ctx, q, pgx.NamedArgs{"ids": recordIDs})
	if err != nil {
		return nil, fmt.Errorf("repo.TripDetailRepo.ListByRecordIDs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		d, err := scanTripDetail(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.TripDetailRepo.ListByRecordIDs: scan: %w", err)
		}
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.TripDetailRepo.ListByRecordIDs: rows: %w", err)
	}
	return details, nil
}

func (r *pgTripDetailRepo) Reassign(ctx context.Context, from, to uuid.UUID) (int64, error) {
	const q = `
		UPDATE transportation_details
		SET transportation_record_id = @to
		WHERE transportation_record_id = @from`

	tag, err := conn(ctx, r.db).Exec(ctx, q, pgx.NamedArgs{"from": from, "to": to})
	if err != nil {
		return 0, fmt.Errorf("repo.TripDetailRepo.Reassign: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanTripDetail(s scanner) (domain.TripDetail, error) {
	var (
		d                    domain.TripDetail
		id, recordID, userID pgtype.UUID
		destinationID        pgtype.UUID
		pickup, arrival      pgtype.Time
		departure, dropOff   pgtype.Time
	)

	err := s.Scan(&id, &recordID, &userID, &destinationID,
		&pickup, &arrival, &departure, &dropOff,
		&d.HealthCondition, &d.BehaviorNotes, &d.AssistanceRequired, &d.Remarks, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.TripDetail{}, domain.ErrNotFound
		}
		return domain.TripDetail{}, err
	}

	d.ID = uuid.UUID(id.Bytes)
	d.TripRecordID = uuid.UUID(recordID.Bytes)
	d.UserID = uuid.UUID(userID.Bytes)
	d.DestinationID = uuidPtr(destinationID)
	d.PickupTime = timeOfDayPtr(pickup)
	d.ArrivalTime = timeOfDayPtr(arrival)
	d.DepartureTime = timeOfDayPtr(departure)
	d.DropOffTime = timeOfDayPtr(dropOff)
	return d, nil
}
