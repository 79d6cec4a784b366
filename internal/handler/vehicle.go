package handler

import (
	"net/http"
)

const vehicleNotFound = "vehicle not found"

// GetOdometer handles GET /vehicles/{id}/odometer.
func (s *Server) GetOdometer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	v, err := s.odometer.Vehicle(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err, vehicleNotFound)
		return
	}
	writeJSON(w, http.StatusOK, toOdometerResponse(v))
}

// SetOdometer handles PUT /vehicles/{id}/odometer, a manual correction.
func (s *Server) SetOdometer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req setOdometerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.CurrentOdometer == nil {
		invalid(w, "current_odometer is required")
		return
	}

	v, err := s.odometer.Set(r.Context(), id, *req.CurrentOdometer, req.LastOilChangeOdometer)
	if err != nil {
		s.writeServiceError(w, r, err, vehicleNotFound)
		return
	}
	writeJSON(w, http.StatusOK, toOdometerResponse(v))
}
