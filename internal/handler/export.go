package handler

import (
	"bytes"
	"encoding/csv"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/welfare-transport/backend/internal/domain"
)

// csvHeaders defines the column names written as the first row of any CSV export.
var csvHeaders = []string{
	"record_id", "date", "driver_id", "vehicle_id",
	"transportation_type", "trip_type", "status", "passenger_count",
	"start_odometer", "end_odometer",
	"user_id", "destination_id", "pickup_time", "drop_off_time", "remarks",
}

// exportRow is the JSON shape of one export row. Detail fields are omitted
// for records that have no details.
type exportRow struct {
	RecordID           uuid.UUID          `json:"record_id"`
	Date               openapi_types.Date `json:"date"`
	DriverID           string             `json:"driver_id"`
	VehicleID          string             `json:"vehicle_id"`
	TransportationType string             `json:"transportation_type"`
	TripType           string             `json:"trip_type"`
	Status             string             `json:"status"`
	PassengerCount     int                `json:"passenger_count"`
	StartOdometer      *int               `json:"start_odometer"`
	EndOdometer        *int               `json:"end_odometer"`
	UserID             *string            `json:"user_id,omitempty"`
	DestinationID      *string            `json:"destination_id,omitempty"`
	PickupTime         *string            `json:"pickup_time,omitempty"`
	DropOffTime        *string            `json:"drop_off_time,omitempty"`
	Remarks            *string            `json:"remarks,omitempty"`
}

// GetHistoryExport handles GET /history/{code}/export.
// It returns one row per detail of every record carrying the code.
// Use ?format=csv to receive CSV; default is JSON.
func (s *Server) GetHistoryExport(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	format := r.URL.Query().Get("format")
	if format != "" && format != "csv" && format != "json" {
		invalid(w, "format must be csv or json")
		return
	}

	rows, err := s.history.Export(r.Context(), code)
	if err != nil {
		s.writeServiceError(w, r, err, "management code not found")
		return
	}

	if format == "csv" {
		writeCSV(w, code, rows)
		return
	}
	writeJSON(w, http.StatusOK, buildJSONRows(rows))
}

// buildJSONRows converts domain rows to the JSON response rows.
func buildJSONRows(rows []domain.ExportRow) []exportRow {
	out := make([]exportRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, domainRowToJSONRow(r))
	}
	return out
}

// writeCSV encodes domain rows as a CSV attachment.
func writeCSV(w http.ResponseWriter, code string, rows []domain.ExportRow) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)

	//nolint:errcheck // bytes.Buffer.Write never returns an error.
	cw.Write(csvHeaders)
	for _, r := range rows {
		//nolint:errcheck
		cw.Write(domainRowToCSVRecord(r))
	}
	cw.Flush()

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="history-`+code+`.csv"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// domainRowToJSONRow maps a domain.ExportRow to its JSON shape.
// Detail fields that are empty strings become nil pointers (omitempty in JSON).
func domainRowToJSONRow(r domain.ExportRow) exportRow {
	recordID, _ := uuid.Parse(r.RecordID)
	return exportRow{
		RecordID:           recordID,
		Date:               mustParseDate(r.Date),
		DriverID:           r.DriverID,
		VehicleID:          r.VehicleID,
		TransportationType: r.TransportationType,
		TripType:           r.TripType,
		Status:             r.Status,
		PassengerCount:     r.PassengerCount,
		StartOdometer:      r.StartOdometer,
		EndOdometer:        r.EndOdometer,
		UserID:             optional(r.UserID),
		DestinationID:      optional(r.DestinationID),
		PickupTime:         optional(r.PickupTime),
		DropOffTime:        optional(r.DropOffTime),
		Remarks:            optional(r.Remarks),
	}
}

// domainRowToCSVRecord encodes a domain.ExportRow as a flat string slice.
// Nil odometers are encoded as empty strings.
func domainRowToCSVRecord(r domain.ExportRow) []string {
	return []string{
		r.RecordID,
		r.Date,
		r.DriverID,
		r.VehicleID,
		r.TransportationType,
		r.TripType,
		r.Status,
		strconv.Itoa(r.PassengerCount),
		formatOptionalInt(r.StartOdometer),
		formatOptionalInt(r.EndOdometer),
		r.UserID,
		r.DestinationID,
		r.PickupTime,
		r.DropOffTime,
		r.Remarks,
	}
}

// mustParseDate parses an "2006-01-02" string into an openapi_types.Date.
// Panics on malformed input; callers are expected to pass service-generated dates.
func mustParseDate(s string) openapi_types.Date {
	t, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		panic("handler: malformed date from service: " + s)
	}
	return openapi_types.Date{Time: t}
}

func formatOptionalInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
