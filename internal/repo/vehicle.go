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

// VehicleRepo defines the persistence operations for the odometer columns of vehicles.
type VehicleRepo interface {
	// GetByID returns domain.ErrNotFound if no vehicle with that ID exists.
	// A NULL current_odometer is read as 0.
	GetByID(ctx context.Context, id uuid.UUID) (domain.Vehicle, error)

	// SetOdometer overwrites current_odometer, and last_oil_change_odometer
	// when lastOilChange is non-nil. Returns domain.ErrNotFound if the vehicle
	// does not exist.
	SetOdometer(ctx context.Context, id uuid.UUID, value int, lastOilChange *int) (domain.Vehicle, error)
}

// pgVehicleRepo is the Postgres implementation of VehicleRepo.
type pgVehicleRepo struct {
	db db
}

// NewVehicleRepo constructs a VehicleRepo backed by the provided db connection.
func NewVehicleRepo(db db) VehicleRepo {
	return &pgVehicleRepo{db: db}
}

func (r *pgVehicleRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Vehicle, error) {
	const q = `
		SELECT id, current_odometer, last_oil_change_odometer, updated_at
		FROM vehicles
		WHERE id = @id`

	v, err := scanVehicle(conn(ctx, r.db).QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.Vehicle{}, fmt.Errorf("repo.VehicleRepo.GetByID: %w", err)
	}
	return v, nil
}

func (r *pgVehicleRepo) SetOdometer(ctx context.Context, id uuid.UUID, value int, lastOilChange *int) (domain.Vehicle, error) {
	const q = `
		UPDATE vehicles
		SET current_odometer         = @value,
		    last_oil_change_odometer = COALESCE(@last_oil_change, last_oil_change_odometer),
		    updated_at               = now()
		WHERE id = @id
		RETURNING id, current_odometer, last_oil_change_odometer, updated_at`

	args := pgx.NamedArgs{"id": id, "value": value, "last_oil_change": lastOilChange}
	v, err := scanVehicle(conn(ctx, r.db).QueryRow(ctx, q, args))
	if err != nil {
		return domain.Vehicle{}, fmt.Errorf("repo.VehicleRepo.SetOdometer: %w", err)
	}
	return v, nil
}

func scanVehicle(s scanner) (domain.Vehicle, error) {
	var (
		v       domain.Vehicle
		id      pgtype.UUID
		current pgtype.Int4
		lastOil pgtype.Int4
	)
	if err := s.Scan(&id, &current, &lastOil, &v.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Vehicle{}, domain.ErrNotFound
		}
		return domain.Vehicle{}, err
	}
	v.ID = uuid.UUID(id.Bytes)
	if current.Valid {
		v.CurrentOdometer = int(current.Int32)
	}
	v.LastOilChangeOdometer = int4Ptr(lastOil)
	return v, nil
}
