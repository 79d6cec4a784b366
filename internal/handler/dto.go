package handler

import (
	"time"

	"github.com/google/uuid"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/welfare-transport/backend/internal/domain"
)

// ---- trip records ----------------------------------------------------------

type tripRecordResponse struct {
	ID                 uuid.UUID          `json:"id"`
	Date               openapi_types.Date `json:"date"`
	DriverID           uuid.UUID          `json:"driver_id"`
	VehicleID          uuid.UUID          `json:"vehicle_id"`
	TransportationType string             `json:"transportation_type"`
	TripType           string             `json:"trip_type"`
	StartOdometer      *int               `json:"start_odometer"`
	EndOdometer        *int               `json:"end_odometer"`
	PassengerCount     int                `json:"passenger_count"`
	Status             string             `json:"status"`
	ManagementCode     string             `json:"management_code"`
	UserID             *uuid.UUID         `json:"user_id,omitempty"`
	RouteID            *uuid.UUID         `json:"route_id,omitempty"`
	SpecialNotes       string             `json:"special_notes"`
	WeatherCondition   string             `json:"weather_condition"`
	StartTime          *domain.TimeOfDay  `json:"start_time"`
	EndTime            *domain.TimeOfDay  `json:"end_time"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

func toTripRecordResponse(r domain.TripRecord) tripRecordResponse {
	return tripRecordResponse{
		ID:                 r.ID,
		Date:               openapi_types.Date{Time: r.Date},
		DriverID:           r.DriverID,
		VehicleID:          r.VehicleID,
		TransportationType: string(r.TransportationType),
		TripType:           string(r.TripType),
		StartOdometer:      r.StartOdometer,
		EndOdometer:        r.EndOdometer,
		PassengerCount:     r.PassengerCount,
		Status:             string(r.Status),
		ManagementCode:     r.ManagementCode,
		UserID:             r.UserID,
		RouteID:            r.RouteID,
		SpecialNotes:       r.SpecialNotes,
		WeatherCondition:   r.WeatherCondition,
		StartTime:          r.StartTime,
		EndTime:            r.EndTime,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}

// createTripRecordRequest is the body of POST /trip-records. A missing date
// means today; a missing driver_id means the caller, for drivers.
// end_odometer is accepted but ignored.
type createTripRecordRequest struct {
	Date               *openapi_types.Date `json:"date"`
	DriverID           *uuid.UUID          `json:"driver_id"`
	VehicleID          *uuid.UUID          `json:"vehicle_id"`
	TransportationType string              `json:"transportation_type"`
	TripType           string              `json:"trip_type"`
	PassengerCount     int                 `json:"passenger_count"`
	ManagementCode     string              `json:"management_code"`
	UserID             *uuid.UUID          `json:"user_id"`
	RouteID            *uuid.UUID          `json:"route_id"`
	SpecialNotes       string              `json:"special_notes"`
	WeatherCondition   string              `json:"weather_condition"`
	EndOdometer        *int                `json:"end_odometer"`
}

type duplicateCheckRequest struct {
	Date               *openapi_types.Date `json:"date"`
	DriverID           *uuid.UUID          `json:"driver_id"`
	UserID             *uuid.UUID          `json:"user_id"`
	RouteID            *uuid.UUID          `json:"route_id"`
	TransportationType string              `json:"transportation_type"`
}

type duplicateCheckResponse struct {
	Exists bool                `json:"exists"`
	Match  *tripRecordResponse `json:"match"`
}

type completeRequest struct {
	EndOdometer *int       `json:"end_odometer"`
	VehicleID   *uuid.UUID `json:"vehicle_id"`
}

// recordTimeRequest is the body of POST /trip-records/{id}/times.
// Status defaults to in_progress for start and completed for end.
type recordTimeRequest struct {
	Phase    string            `json:"phase"`
	Time     *domain.TimeOfDay `json:"time"`
	Status   *string           `json:"status"`
	Odometer *int              `json:"odometer"`
	Notes    *string           `json:"notes"`
}

// ---- details ---------------------------------------------------------------

type tripDetailBody struct {
	UserID             uuid.UUID         `json:"user_id"`
	DestinationID      *uuid.UUID        `json:"destination_id,omitempty"`
	PickupTime         *domain.TimeOfDay `json:"pickup_time,omitempty"`
	ArrivalTime        *domain.TimeOfDay `json:"arrival_time,omitempty"`
	DepartureTime      *domain.TimeOfDay `json:"departure_time,omitempty"`
	DropOffTime        *domain.TimeOfDay `json:"drop_off_time,omitempty"`
	HealthCondition    string            `json:"health_condition,omitempty"`
	BehaviorNotes      string            `json:"behavior_notes,omitempty"`
	AssistanceRequired string            `json:"assistance_required,omitempty"`
	Remarks            string            `json:"remarks,omitempty"`
}

type tripDetailResponse struct {
	ID           uuid.UUID `json:"id"`
	TripRecordID uuid.UUID `json:"trip_record_id"`
	tripDetailBody
	CreatedAt time.Time `json:"created_at"`
}

type addDetailsRequest struct {
	Details []tripDetailBody `json:"details"`
}

type detailListResponse struct {
	Data []tripDetailResponse `json:"data"`
}

func (b tripDetailBody) toDomain() domain.TripDetail {
	return domain.TripDetail{
		UserID:             b.UserID,
		DestinationID:      b.DestinationID,
		PickupTime:         b.PickupTime,
		ArrivalTime:        b.ArrivalTime,
		DepartureTime:      b.DepartureTime,
		DropOffTime:        b.DropOffTime,
		HealthCondition:    b.HealthCondition,
		BehaviorNotes:      b.BehaviorNotes,
		AssistanceRequired: b.AssistanceRequired,
		Remarks:            b.Remarks,
	}
}

func toTripDetailResponse(d domain.TripDetail) tripDetailResponse {
	return tripDetailResponse{
		ID:           d.ID,
		TripRecordID: d.TripRecordID,
		tripDetailBody: tripDetailBody{
			UserID:             d.UserID,
			DestinationID:      d.DestinationID,
			PickupTime:         d.PickupTime,
			ArrivalTime:        d.ArrivalTime,
			DepartureTime:      d.DepartureTime,
			DropOffTime:        d.DropOffTime,
			HealthCondition:    d.HealthCondition,
			BehaviorNotes:      d.BehaviorNotes,
			AssistanceRequired: d.AssistanceRequired,
			Remarks:            d.Remarks,
		},
		CreatedAt: d.CreatedAt,
	}
}

func toTripDetailResponses(ds []domain.TripDetail) []tripDetailResponse {
	out := make([]tripDetailResponse, len(ds))
	for i, d := range ds {
		out[i] = toTripDetailResponse(d)
	}
	return out
}

// ---- vehicles --------------------------------------------------------------

type odometerResponse struct {
	VehicleID             uuid.UUID `json:"vehicle_id"`
	CurrentOdometer       int       `json:"current_odometer"`
	LastOilChangeOdometer *int      `json:"last_oil_change_odometer"`
	UpdatedAt             time.Time `json:"updated_at"`
}

type setOdometerRequest struct {
	CurrentOdometer       *int `json:"current_odometer"`
	LastOilChangeOdometer *int `json:"last_oil_change_odometer"`
}

func toOdometerResponse(v domain.Vehicle) odometerResponse {
	return odometerResponse{
		VehicleID:             v.ID,
		CurrentOdometer:       v.CurrentOdometer,
		LastOilChangeOdometer: v.LastOilChangeOdometer,
		UpdatedAt:             v.UpdatedAt,
	}
}

// ---- history ---------------------------------------------------------------

type pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

type historyEntryResponse struct {
	Record  tripRecordResponse   `json:"record"`
	Details []tripDetailResponse `json:"details"`
}

type historyResponse struct {
	Data       []historyEntryResponse `json:"data"`
	Pagination pagination             `json:"pagination"`
}
