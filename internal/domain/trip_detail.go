package domain

import (
	"time"

	"github.com/google/uuid"
)

// TripDetail is one passenger's leg within a trip record.
// Detail rows are deleted with their owning record and are reassigned to the
// surviving record during consolidation.
type TripDetail struct {
	ID                 uuid.UUID
	TripRecordID       uuid.UUID
	UserID             uuid.UUID
	DestinationID      *uuid.UUID
	PickupTime         *TimeOfDay
	ArrivalTime        *TimeOfDay
	DepartureTime      *TimeOfDay
	DropOffTime        *TimeOfDay
	HealthCondition    string
	BehaviorNotes      string
	AssistanceRequired string
	Remarks            string
	CreatedAt          time.Time
}

// HistoryEntry is a trip record together with its detail rows, as returned by
// a management-code lookup.
type HistoryEntry struct {
	Record  TripRecord
	Details []TripDetail
}

// ExportRow is a single row in a history export.
// It is a flat, denormalized view: one row per detail, with record fields
// repeated for every detail on that record. Records with no details yield one
// row with zero values for all detail fields.
type ExportRow struct {
	// Record fields, repeated for every detail on the record.
	RecordID           string
	Date               string // "2006-01-02"
	DriverID           string
	VehicleID          string
	TransportationType string
	TripType           string
	Status             string
	PassengerCount     int
	StartOdometer      *int
	EndOdometer        *int

	// Detail fields, empty when the record has no details.
	UserID        string
	DestinationID string
	PickupTime    string
	DropOffTime   string
	Remarks       string
}
