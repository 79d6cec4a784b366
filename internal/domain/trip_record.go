// Package domain contains the core data types for the transportation service.
// This package has no dependencies beyond uuid and is imported by every other
// internal package (repo, service, handler).
package domain

import (
	"time"

	"github.com/google/uuid"
)

// DateLayout is the calendar-date format used on the wire and in exports.
const DateLayout = "2006-01-02"

// TransportationType classifies the purpose of a trip record.
type TransportationType string

const (
	TransportationNormal     TransportationType = "normal"
	TransportationMedical    TransportationType = "medical"
	TransportationEmergency  TransportationType = "emergency"
	TransportationOuting     TransportationType = "outing"
	TransportationIndividual TransportationType = "individual"
)

// Valid reports whether t is a known transportation type.
func (t TransportationType) Valid() bool {
	switch t {
	case TransportationNormal, TransportationMedical, TransportationEmergency,
		TransportationOuting, TransportationIndividual:
		return true
	}
	return false
}

// TripType is the leg shape of a trip record.
type TripType string

const (
	TripOneWay    TripType = "one_way"
	TripRoundTrip TripType = "round_trip"
)

// Valid reports whether t is a known trip type.
func (t TripType) Valid() bool {
	return t == TripOneWay || t == TripRoundTrip
}

// TripStatus is the lifecycle state of a trip record.
// pending → in_progress → completed, or cancelled from any non-completed state.
type TripStatus string

const (
	StatusPending    TripStatus = "pending"
	StatusInProgress TripStatus = "in_progress"
	StatusCompleted  TripStatus = "completed"
	StatusCancelled  TripStatus = "cancelled"
)

// Valid reports whether s is a known status.
func (s TripStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// TripRecord is one transportation event for a driver and vehicle on a date.
// It owns its TripDetail rows; the driver and vehicle are references.
//
// Date carries no time-of-day. UserID is set for user-tagged trips and RouteID
// for route-based trips. StartOdometer is captured from the vehicle at
// creation and never recomputed; once both odometers are set,
// EndOdometer >= StartOdometer.
type TripRecord struct {
	ID                 uuid.UUID          `json:"id"`
	Date               time.Time          `json:"date"`
	DriverID           uuid.UUID          `json:"driver_id"`
	VehicleID          uuid.UUID          `json:"vehicle_id"`
	TransportationType TransportationType `json:"transportation_type"`
	TripType           TripType           `json:"trip_type"`
	StartOdometer      *int               `json:"start_odometer"`
	EndOdometer        *int               `json:"end_odometer,omitempty"`
	PassengerCount     int                `json:"passenger_count"`
	Status             TripStatus         `json:"status"`
	ManagementCode     string             `json:"management_code"`
	UserID             *uuid.UUID         `json:"user_id,omitempty"`
	RouteID            *uuid.UUID         `json:"route_id,omitempty"`
	SpecialNotes       string             `json:"special_notes,omitempty"`
	WeatherCondition   string             `json:"weather_condition,omitempty"`
	StartTime          *TimeOfDay         `json:"start_time,omitempty"`
	EndTime            *TimeOfDay         `json:"end_time,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// DuplicateKey is the consolidation grouping key: one record per driver,
// vehicle, and date.
type DuplicateKey struct {
	Date      string    `json:"date"`
	DriverID  uuid.UUID `json:"driver_id"`
	VehicleID uuid.UUID `json:"vehicle_id"`
}

// Key returns the record's DuplicateKey.
func (r TripRecord) Key() DuplicateKey {
	return DuplicateKey{
		Date:      r.Date.Format(DateLayout),
		DriverID:  r.DriverID,
		VehicleID: r.VehicleID,
	}
}

func (k DuplicateKey) String() string {
	return k.Date + "/" + k.DriverID.String() + "/" + k.VehicleID.String()
}

// TripForm is the input to creating a trip record.
// EndOdometer is accepted for form compatibility but ignored on create.
type TripForm struct {
	Date               time.Time
	DriverID           uuid.UUID
	VehicleID          uuid.UUID
	TransportationType TransportationType
	TripType           TripType
	PassengerCount     int
	ManagementCode     string
	UserID             *uuid.UUID
	RouteID            *uuid.UUID
	SpecialNotes       string
	WeatherCondition   string
	EndOdometer        *int
}

// DuplicateQuery identifies the candidate key of a new trip record.
type DuplicateQuery struct {
	Date               time.Time
	DriverID           uuid.UUID
	UserID             *uuid.UUID
	RouteID            *uuid.UUID
	TransportationType TransportationType
}

// DuplicateCheck is the outcome of a duplicate lookup.
type DuplicateCheck struct {
	Exists bool
	Match  *TripRecord
}

// TimePhase selects which end of a trip RecordTime stamps.
type TimePhase string

const (
	PhaseStart TimePhase = "start"
	PhaseEnd   TimePhase = "end"
)

// TimeOptions are the optional parts of a RecordTime call.
// A nil Status defaults to in_progress for start and completed for end.
type TimeOptions struct {
	Status   *TripStatus
	Odometer *int
	Notes    *string
}

// TruncateDate drops the time-of-day from t, keeping its calendar date in UTC.
func TruncateDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
