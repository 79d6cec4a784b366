package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/welfare-transport/backend/internal/domain"
	"github.com/welfare-transport/backend/internal/repo"
)

// OdometerService reads and writes a vehicle's cumulative distance counter.
type OdometerService struct {
	vehicles repo.VehicleRepo
}

// NewOdometerService constructs an OdometerService backed by the provided VehicleRepo.
func NewOdometerService(v repo.VehicleRepo) *OdometerService {
	return &OdometerService{vehicles: v}
}

// Current returns the vehicle's current odometer, 0 when none is stored.
// Returns domain.ErrNotFound if the vehicle does not exist.
func (s *OdometerService) Current(ctx context.Context, vehicleID uuid.UUID) (int, error) {
	v, err := s.Vehicle(ctx, vehicleID)
	if err != nil {
		return 0, err
	}
	return v.CurrentOdometer, nil
}

// Vehicle returns the vehicle's odometer state.
func (s *OdometerService) Vehicle(ctx context.Context, vehicleID uuid.UUID) (domain.Vehicle, error) {
	v, err := s.vehicles.GetByID(ctx, vehicleID)
	if err != nil {
		return domain.Vehicle{}, storeErr("service.OdometerService.Vehicle", err)
	}
	return v, nil
}

// Set overwrites the vehicle's odometer, and its last oil change reading when
// lastOilChange is non-nil. Lower values are accepted so that manual
// corrections remain possible.
func (s *OdometerService) Set(ctx context.Context, vehicleID uuid.UUID, value int, lastOilChange *int) (domain.Vehicle, error) {
	if value < 0 {
		return domain.Vehicle{}, validationErr("odometer must not be negative")
	}
	if lastOilChange != nil && *lastOilChange < 0 {
		return domain.Vehicle{}, validationErr("last oil change odometer must not be negative")
	}
	v, err := s.vehicles.SetOdometer(ctx, vehicleID, value, lastOilChange)
	if err != nil {
		return domain.Vehicle{}, storeErr("service.OdometerService.Set", err)
	}
	return v, nil
}
