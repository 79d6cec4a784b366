package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/welfare-transport/backend/internal/domain"
	"github.com/welfare-transport/backend/internal/repo"
)

// TripRecordService manages the lifecycle of a single trip record:
// duplicate-checked creation with odometer capture, time stamping,
// completion, detail attachment, cancellation, and deletion.
type TripRecordService struct {
	common
	records  repo.TripRecordRepo
	details  repo.TripDetailRepo
	odometer *OdometerService
}

// NewTripRecordService constructs a TripRecordService backed by the provided repos.
func NewTripRecordService(records repo.TripRecordRepo, details repo.TripDetailRepo, vehicles repo.VehicleRepo, opts ...Option) *TripRecordService {
	return &TripRecordService{
		common:   newCommon(opts),
		records:  records,
		details:  details,
		odometer: NewOdometerService(vehicles),
	}
}

// CheckDuplicate looks for an existing record with the same duplicate key.
//   - Individual trips never conflict.
//   - With a route, the key is (date, driver, route).
//   - Otherwise with a user, the key is (date, driver, user).
//   - With neither, there is nothing to compare and no conflict is reported.
func (s *TripRecordService) CheckDuplicate(ctx context.Context, q domain.DuplicateQuery) (domain.DuplicateCheck, error) {
	if q.TransportationType == domain.TransportationIndividual {
		return domain.DuplicateCheck{}, nil
	}

	date := domain.TruncateDate(q.Date)
	var (
		rec domain.TripRecord
		err error
	)
	switch {
	case q.RouteID != nil:
		rec, err = s.records.FindByRoute(ctx, date, q.DriverID, *q.RouteID)
	case q.UserID != nil:
		rec, err = s.records.FindByUser(ctx, date, q.DriverID, *q.UserID)
	default:
		return domain.DuplicateCheck{}, nil
	}

	if errors.Is(err, domain.ErrNotFound) {
		return domain.DuplicateCheck{}, nil
	}
	if err != nil {
		return domain.DuplicateCheck{}, storeErr("service.TripRecordService.CheckDuplicate", err)
	}
	return domain.DuplicateCheck{Exists: true, Match: &rec}, nil
}

// Create validates the form, rejects duplicates, captures the vehicle's
// current odometer as the start odometer, and inserts a pending record.
// Any end odometer on the form is ignored.
//
// Returns *domain.DuplicateTripError (matching domain.ErrDuplicateTrip) when a
// conflicting record exists; nothing is written in that case.
func (s *TripRecordService) Create(ctx context.Context, form domain.TripForm) (domain.TripRecord, error) {
	if form.Date.IsZero() {
		form.Date = s.now()
	}
	if form.TransportationType == "" {
		form.TransportationType = domain.TransportationNormal
	}
	if form.TripType == "" {
		form.TripType = domain.TripOneWay
	}
	if err := validateForm(form); err != nil {
		return domain.TripRecord{}, err
	}

	date := domain.TruncateDate(form.Date)

	if form.TransportationType != domain.TransportationIndividual {
		check, err := s.CheckDuplicate(ctx, domain.DuplicateQuery{
			Date:               date,
			DriverID:           form.DriverID,
			UserID:             form.UserID,
			RouteID:            form.RouteID,
			TransportationType: form.TransportationType,
		})
		if err != nil {
			return domain.TripRecord{}, err
		}
		if check.Exists {
			return domain.TripRecord{}, &domain.DuplicateTripError{Existing: *check.Match}
		}
	}

	start, err := s.odometer.Current(ctx, form.VehicleID)
	if err != nil {
		return domain.TripRecord{}, fmt.Errorf("service.TripRecordService.Create: %w", err)
	}

	code := strings.TrimSpace(form.ManagementCode)
	if code == "" {
		code = newManagementCode()
	}

	rec := domain.TripRecord{
		Date:               date,
		DriverID:           form.DriverID,
		VehicleID:          form.VehicleID,
		TransportationType: form.TransportationType,
		TripType:           form.TripType,
		StartOdometer:      &start,
		PassengerCount:     form.PassengerCount,
		Status:             domain.StatusPending,
		ManagementCode:     code,
		UserID:             form.UserID,
		RouteID:            form.RouteID,
		SpecialNotes:       form.SpecialNotes,
		WeatherCondition:   form.WeatherCondition,
	}

	created, err := s.records.Create(ctx, rec)
	if err != nil {
		return domain.TripRecord{}, storeErr("service.TripRecordService.Create", err)
	}

	s.publish(ctx, domain.EventTripCreated, created)
	return created, nil
}

// Get returns a single record by ID.
func (s *TripRecordService) Get(ctx context.Context, id uuid.UUID) (domain.TripRecord, error) {
	rec, err := s.records.GetByID(ctx, id)
	if err != nil {
		return domain.TripRecord{}, storeErr("service.TripRecordService.Get", err)
	}
	return rec, nil
}

// Complete sets the record's end odometer and status=completed, then
// advances the vehicle's odometer to the same value.
//
// With a Transactor both writes commit together. Without one they run in
// sequence, and a failed vehicle write after a successful record write is
// reported as *domain.PartialCompletionError so the caller can retry the
// vehicle write alone through ResumeCompletion.
func (s *TripRecordService) Complete(ctx context.Context, id uuid.UUID, endOdometer int, vehicleID uuid.UUID) (domain.TripRecord, error) {
	const op = "service.TripRecordService.Complete"

	if endOdometer < 0 {
		return domain.TripRecord{}, validationErr("end odometer must not be negative")
	}

	var completed domain.TripRecord
	if s.tx != nil {
		err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
			rec, err := s.completeRecord(ctx, id, endOdometer, vehicleID)
			if err != nil {
				return err
			}
			if _, err := s.odometer.Set(ctx, rec.VehicleID, endOdometer, nil); err != nil {
				return err
			}
			completed = rec
			return nil
		})
		if err != nil {
			return domain.TripRecord{}, storeErr(op, err)
		}
	} else {
		rec, err := s.completeRecord(ctx, id, endOdometer, vehicleID)
		if err != nil {
			return domain.TripRecord{}, storeErr(op, err)
		}
		if _, err := s.odometer.Set(ctx, rec.VehicleID, endOdometer, nil); err != nil {
			return rec, &domain.PartialCompletionError{
				RecordID:    rec.ID,
				VehicleID:   rec.VehicleID,
				EndOdometer: endOdometer,
				Err:         err,
			}
		}
		completed = rec
	}

	s.publish(ctx, domain.EventTripCompleted, completed)
	return completed, nil
}

// completeRecord is the first step of Complete: load, validate, and mark the
// record completed. Repeating it with the same end odometer is a no-op change.
func (s *TripRecordService) completeRecord(ctx context.Context, id uuid.UUID, endOdometer int, vehicleID uuid.UUID) (domain.TripRecord, error) {
	rec, err := s.records.GetByID(ctx, id)
	if err != nil {
		return domain.TripRecord{}, storeErr("service.TripRecordService.completeRecord", err)
	}
	if vehicleID != uuid.Nil && vehicleID != rec.VehicleID {
		return domain.TripRecord{}, validationErr("vehicle %s does not belong to record %s", vehicleID, id)
	}
	if rec.Status == domain.StatusCancelled {
		return domain.TripRecord{}, validationErr("cancelled records cannot be completed")
	}
	if rec.StartOdometer != nil && endOdometer < *rec.StartOdometer {
		return domain.TripRecord{}, validationErr("end odometer %d is below start odometer %d", endOdometer, *rec.StartOdometer)
	}

	rec.EndOdometer = &endOdometer
	rec.Status = domain.StatusCompleted
	updated, err := s.records.Update(ctx, rec)
	if err != nil {
		return domain.TripRecord{}, storeErr("service.TripRecordService.completeRecord", err)
	}
	return updated, nil
}

// ResumeCompletion retries only the vehicle write of a completed record,
// setting the vehicle's odometer to the record's end odometer. It is
// idempotent and is the recovery path for a PartialCompletionError.
func (s *TripRecordService) ResumeCompletion(ctx context.Context, id uuid.UUID) (domain.Vehicle, error) {
	rec, err := s.records.GetByID(ctx, id)
	if err != nil {
		return domain.Vehicle{}, storeErr("service.TripRecordService.ResumeCompletion", err)
	}
	if rec.Status != domain.StatusCompleted || rec.EndOdometer == nil {
		return domain.Vehicle{}, validationErr("record %s is not completed", id)
	}
	v, err := s.odometer.Set(ctx, rec.VehicleID, *rec.EndOdometer, nil)
	if err != nil {
		return domain.Vehicle{}, fmt.Errorf("service.TripRecordService.ResumeCompletion: %w", err)
	}
	return v, nil
}

// RecordTime stamps the start or end time of a trip.
//   - start: sets start_time, status (default in_progress), optional start odometer.
//   - end: sets end_time, status (default completed), optional end odometer.
//
// Notes, when given, replace the record's special notes verbatim.
func (s *TripRecordService) RecordTime(ctx context.Context, id uuid.UUID, phase domain.TimePhase, at domain.TimeOfDay, opts domain.TimeOptions) (domain.TripRecord, error) {
	const op = "service.TripRecordService.RecordTime"

	if opts.Status != nil && !opts.Status.Valid() {
		return domain.TripRecord{}, validationErr("unknown status %q", *opts.Status)
	}
	if opts.Odometer != nil && *opts.Odometer < 0 {
		return domain.TripRecord{}, validationErr("odometer must not be negative")
	}

	rec, err := s.records.GetByID(ctx, id)
	if err != nil {
		return domain.TripRecord{}, storeErr(op, err)
	}

	switch phase {
	case domain.PhaseStart:
		rec.StartTime = &at
		rec.Status = statusOr(opts.Status, domain.StatusInProgress)
		if opts.Odometer != nil {
			rec.StartOdometer = opts.Odometer
		}
	case domain.PhaseEnd:
		rec.EndTime = &at
		rec.Status = statusOr(opts.Status, domain.StatusCompleted)
		if opts.Odometer != nil {
			rec.EndOdometer = opts.Odometer
		}
	default:
		return domain.TripRecord{}, validationErr("unknown phase %q", phase)
	}
	if opts.Notes != nil {
		rec.SpecialNotes = *opts.Notes
	}
	if rec.StartOdometer != nil && rec.EndOdometer != nil && *rec.EndOdometer < *rec.StartOdometer {
		return domain.TripRecord{}, validationErr("end odometer %d is below start odometer %d", *rec.EndOdometer, *rec.StartOdometer)
	}

	updated, err := s.records.Update(ctx, rec)
	if err != nil {
		return domain.TripRecord{}, storeErr(op, err)
	}
	return updated, nil
}

// Cancel marks a record cancelled. Completed records cannot be cancelled.
func (s *TripRecordService) Cancel(ctx context.Context, id uuid.UUID) (domain.TripRecord, error) {
	const op = "service.TripRecordService.Cancel"

	rec, err := s.records.GetByID(ctx, id)
	if err != nil {
		return domain.TripRecord{}, storeErr(op, err)
	}
	if rec.Status == domain.StatusCompleted {
		return domain.TripRecord{}, validationErr("completed records cannot be cancelled")
	}
	rec.Status = domain.StatusCancelled

	updated, err := s.records.Update(ctx, rec)
	if err != nil {
		return domain.TripRecord{}, storeErr(op, err)
	}
	return updated, nil
}

// AddDetails attaches passenger legs to a record as one all-or-nothing batch.
func (s *TripRecordService) AddDetails(ctx context.Context, recordID uuid.UUID, details []domain.TripDetail) ([]domain.TripDetail, error) {
	const op = "service.TripRecordService.AddDetails"

	if len(details) == 0 {
		return nil, validationErr("at least one detail is required")
	}
	for i := range details {
		if details[i].UserID == uuid.Nil {
			return nil, validationErr("detail %d: user_id is required", i)
		}
		details[i].TripRecordID = recordID
	}

	var created []domain.TripDetail
	err := s.inTx(ctx, func(ctx context.Context) error {
		if _, err := s.records.GetByID(ctx, recordID); err != nil {
			return err
		}
		var err error
		created, err = s.details.CreateBatch(ctx, details)
		return err
	})
	if err != nil {
		return nil, storeErr(op, err)
	}
	return created, nil
}

// Delete removes a record. Its details are removed by the store's cascade.
func (s *TripRecordService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.records.Delete(ctx, id); err != nil {
		return storeErr("service.TripRecordService.Delete", err)
	}
	return nil
}

// validateForm enforces the business rules of a create form.
func validateForm(f domain.TripForm) error {
	if f.DriverID == uuid.Nil {
		return validationErr("driver_id is required")
	}
	if f.VehicleID == uuid.Nil {
		return validationErr("vehicle_id is required")
	}
	if !f.TransportationType.Valid() {
		return validationErr("unknown transportation type %q", f.TransportationType)
	}
	if !f.TripType.Valid() {
		return validationErr("unknown trip type %q", f.TripType)
	}
	if f.PassengerCount < 0 {
		return validationErr("passenger_count must not be negative")
	}
	return nil
}

func statusOr(s *domain.TripStatus, fallback domain.TripStatus) domain.TripStatus {
	if s != nil {
		return *s
	}
	return fallback
}

// newManagementCode returns an 8-character uppercase lookup token.
func newManagementCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}
