package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/welfare-transport/backend/internal/domain"
)

// errorDetail and errorResponse are the API's standard error body:
// {"error":{"code":"not_found","message":"trip record not found"}}.
type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorDetail `json:"error"`
}

// duplicateResponse is the 409 body of a rejected create. Existing is the
// conflicting record so the caller can decide to edit or delete it.
type duplicateResponse struct {
	Error    errorDetail        `json:"error"`
	Existing tripRecordResponse `json:"existing"`
}

// partialCompletionResponse is the 502 body of a completion whose vehicle
// write failed. The record is completed; POST completion-retry finishes it.
type partialCompletionResponse struct {
	Error       errorDetail `json:"error"`
	RecordID    uuid.UUID   `json:"record_id"`
	VehicleID   uuid.UUID   `json:"vehicle_id"`
	EndOdometer int         `json:"end_odometer"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: errorDetail{Code: code, Message: message}})
}

// notFound answers 404 with a message naming what was looked up, since the
// handler is the layer that knows that.
func notFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, "not_found", message)
}

// badRequest answers 400 for requests rejected before reaching a service.
func badRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, "bad_request", message)
}

// invalid answers 422 for well-formed requests with unusable values.
func invalid(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnprocessableEntity, "validation_error", message)
}

// writeServiceError maps a service error onto its HTTP response.
// notFoundMsg names the resource for a 404.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error, notFoundMsg string) {
	var (
		dup     *domain.DuplicateTripError
		partial *domain.PartialCompletionError
	)
	switch {
	case errors.As(err, &dup):
		writeJSON(w, http.StatusConflict, duplicateResponse{
			Error:    errorDetail{Code: "duplicate_trip", Message: dup.Error()},
			Existing: toTripRecordResponse(dup.Existing),
		})
	case errors.As(err, &partial):
		s.log.ErrorContext(r.Context(), "partial completion",
			"record_id", partial.RecordID, "vehicle_id", partial.VehicleID, "error", partial.Err)
		writeJSON(w, http.StatusBadGateway, partialCompletionResponse{
			Error:       errorDetail{Code: "partial_completion", Message: "record completed but vehicle odometer not updated; retry with completion-retry"},
			RecordID:    partial.RecordID,
			VehicleID:   partial.VehicleID,
			EndOdometer: partial.EndOdometer,
		})
	case errors.Is(err, domain.ErrNotFound):
		notFound(w, notFoundMsg)
	case errors.Is(err, domain.ErrValidation):
		invalid(w, unwrapMessage(err))
	case errors.Is(err, domain.ErrConsolidationRunning):
		writeError(w, http.StatusConflict, "consolidation_running", "a consolidation batch is already running")
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized", "not authenticated")
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", "not allowed")
	default:
		s.log.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

// unwrapMessage extracts the human-readable part from a wrapped validation error.
// e.g. "service.X.Create: validation error: driver_id is required" → "driver_id is required"
func unwrapMessage(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	marker := domain.ErrValidation.Error() + ": "
	if i := strings.LastIndex(msg, marker); i >= 0 && i+len(marker) < len(msg) {
		return msg[i+len(marker):]
	}
	return msg
}

// decodeJSON reads the request body into v. It answers the request itself and
// returns false when the body cannot be used.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large")
		case errors.Is(err, domain.ErrValidation):
			invalid(w, unwrapMessage(err))
		default:
			badRequest(w, "malformed JSON body")
		}
		return false
	}
	return true
}

// pathID parses the {id} URL parameter. It answers 400 and returns false when
// the parameter is not a UUID.
func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "id must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

// queryInt parses an optional positive integer query parameter.
func queryInt(r *http.Request, name string) (*int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, errors.New(name + " must be an integer")
	}
	return &v, nil
}
