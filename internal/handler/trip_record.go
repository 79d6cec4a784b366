package handler

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/welfare-transport/backend/internal/domain"
	"github.com/welfare-transport/backend/internal/middleware"
)

const recordNotFound = "trip record not found"

// CreateTripRecord handles POST /trip-records.
func (s *Server) CreateTripRecord(w http.ResponseWriter, r *http.Request) {
	var req createTripRecordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	driverID, ok := driverOrCaller(r, req.DriverID)
	if !ok {
		invalid(w, "driver_id is required")
		return
	}
	if req.VehicleID == nil {
		invalid(w, "vehicle_id is required")
		return
	}

	form := domain.TripForm{
		DriverID:           driverID,
		VehicleID:          *req.VehicleID,
		TransportationType: domain.TransportationType(req.TransportationType),
		TripType:           domain.TripType(req.TripType),
		PassengerCount:     req.PassengerCount,
		ManagementCode:     req.ManagementCode,
		UserID:             req.UserID,
		RouteID:            req.RouteID,
		SpecialNotes:       req.SpecialNotes,
		WeatherCondition:   req.WeatherCondition,
		EndOdometer:        req.EndOdometer,
	}
	if req.Date != nil {
		form.Date = req.Date.Time
	}

	created, err := s.trips.Create(r.Context(), form)
	if err != nil {
		s.writeServiceError(w, r, err, recordNotFound)
		return
	}
	writeJSON(w, http.StatusCreated, toTripRecordResponse(created))
}

// CheckDuplicate handles POST /trip-records/duplicate-check.
func (s *Server) CheckDuplicate(w http.ResponseWriter, r *http.Request) {
	var req duplicateCheckRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Date == nil {
		invalid(w, "date is required")
		return
	}
	driverID, ok := driverOrCaller(r, req.DriverID)
	if !ok {
		invalid(w, "driver_id is required")
		return
	}

	check, err := s.trips.CheckDuplicate(r.Context(), domain.DuplicateQuery{
		Date:               req.Date.Time,
		DriverID:           driverID,
		UserID:             req.UserID,
		RouteID:            req.RouteID,
		TransportationType: domain.TransportationType(req.TransportationType),
	})
	if err != nil {
		s.writeServiceError(w, r, err, recordNotFound)
		return
	}

	resp := duplicateCheckResponse{Exists: check.Exists}
	if check.Match != nil {
		m := toTripRecordResponse(*check.Match)
		resp.Match = &m
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetTripRecord handles GET /trip-records/{id}.
func (s *Server) GetTripRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	rec, err := s.trips.Get(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err, recordNotFound)
		return
	}
	writeJSON(w, http.StatusOK, toTripRecordResponse(rec))
}

// DeleteTripRecord handles DELETE /trip-records/{id}.
func (s *Server) DeleteTripRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.trips.Delete(r.Context(), id); err != nil {
		s.writeServiceError(w, r, err, recordNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CompleteTripRecord handles POST /trip-records/{id}/complete.
func (s *Server) CompleteTripRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req completeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.EndOdometer == nil {
		invalid(w, "end_odometer is required")
		return
	}
	vehicleID := uuid.Nil
	if req.VehicleID != nil {
		vehicleID = *req.VehicleID
	}

	rec, err := s.trips.Complete(r.Context(), id, *req.EndOdometer, vehicleID)
	if err != nil {
		s.writeServiceError(w, r, err, recordNotFound)
		return
	}
	writeJSON(w, http.StatusOK, toTripRecordResponse(rec))
}

// RetryCompletion handles POST /trip-records/{id}/completion-retry.
// It finishes a completion that answered 502 partial_completion.
func (s *Server) RetryCompletion(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	v, err := s.trips.ResumeCompletion(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err, recordNotFound)
		return
	}
	writeJSON(w, http.StatusOK, toOdometerResponse(v))
}

// RecordTime handles POST /trip-records/{id}/times.
func (s *Server) RecordTime(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req recordTimeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Time == nil {
		invalid(w, "time is required")
		return
	}

	opts := domain.TimeOptions{Odometer: req.Odometer, Notes: req.Notes}
	if req.Status != nil {
		st := domain.TripStatus(*req.Status)
		opts.Status = &st
	}

	rec, err := s.trips.RecordTime(r.Context(), id, domain.TimePhase(req.Phase), *req.Time, opts)
	if err != nil {
		s.writeServiceError(w, r, err, recordNotFound)
		return
	}
	writeJSON(w, http.StatusOK, toTripRecordResponse(rec))
}

// CancelTripRecord handles POST /trip-records/{id}/cancel.
func (s *Server) CancelTripRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	rec, err := s.trips.Cancel(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err, recordNotFound)
		return
	}
	writeJSON(w, http.StatusOK, toTripRecordResponse(rec))
}

// AddDetails handles POST /trip-records/{id}/details.
func (s *Server) AddDetails(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req addDetailsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	details := make([]domain.TripDetail, len(req.Details))
	for i, d := range req.Details {
		details[i] = d.toDomain()
	}

	created, err := s.trips.AddDetails(r.Context(), id, details)
	if err != nil {
		s.writeServiceError(w, r, err, recordNotFound)
		return
	}
	writeJSON(w, http.StatusCreated, detailListResponse{Data: toTripDetailResponses(created)})
}

// driverOrCaller returns explicit when set; otherwise a driver's own subject,
// when it is a UUID.
func driverOrCaller(r *http.Request, explicit *uuid.UUID) (uuid.UUID, bool) {
	if explicit != nil {
		return *explicit, *explicit != uuid.Nil
	}
	sess, ok := middleware.SessionFrom(r.Context())
	if !ok || sess.Role != middleware.RoleDriver {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(sess.Subject)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
