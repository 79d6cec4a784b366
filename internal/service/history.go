package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/welfare-transport/backend/internal/domain"
	"github.com/welfare-transport/backend/internal/repo"
)

// HistoryService answers unauthenticated management-code lookups.
type HistoryService struct {
	records repo.TripRecordRepo
	details repo.TripDetailRepo
}

// NewHistoryService constructs a HistoryService backed by the provided repos.
func NewHistoryService(records repo.TripRecordRepo, details repo.TripDetailRepo) *HistoryService {
	return &HistoryService{records: records, details: details}
}

// History returns one page of records carrying code, newest first, each with
// its details, plus the total number of matching records.
func (s *HistoryService) History(ctx context.Context, code string, p domain.PaginationParams) ([]domain.HistoryEntry, int64, error) {
	const op = "service.HistoryService.History"

	code = strings.TrimSpace(code)
	if code == "" {
		return nil, 0, validationErr("management code is required")
	}

	records, total, err := s.records.ListByManagementCode(ctx, code, p)
	if err != nil {
		return nil, 0, storeErr(op, err)
	}

	ids := make([]uuid.UUID, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	details, err := s.details.ListByRecordIDs(ctx, ids)
	if err != nil {
		return nil, 0, storeErr(op, err)
	}

	byRecord := make(map[uuid.UUID][]domain.TripDetail, len(records))
	for _, d := range details {
		byRecord[d.TripRecordID] = append(byRecord[d.TripRecordID], d)
	}

	entries := make([]domain.HistoryEntry, len(records))
	for i, r := range records {
		ds := byRecord[r.ID]
		if ds == nil {
			ds = []domain.TripDetail{}
		}
		entries[i] = domain.HistoryEntry{Record: r, Details: ds}
	}
	return entries, total, nil
}

// Export returns one ExportRow per detail across every record carrying code.
// Records with no details contribute one row with empty detail fields.
func (s *HistoryService) Export(ctx context.Context, code string) ([]domain.ExportRow, error) {
	limit := 100
	rows := []domain.ExportRow{}
	for page := 1; ; page++ {
		p := domain.NewPaginationParams(&page, &limit)
		entries, total, err := s.History(ctx, code, p)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			rows = append(rows, exportRows(e)...)
		}
		if len(entries) == 0 || int64(p.Offset()+len(entries)) >= total {
			return rows, nil
		}
	}
}

func exportRows(e domain.HistoryEntry) []domain.ExportRow {
	r := e.Record
	base := domain.ExportRow{
		RecordID:           r.ID.String(),
		Date:               r.Date.Format(domain.DateLayout),
		DriverID:           r.DriverID.String(),
		VehicleID:          r.VehicleID.String(),
		TransportationType: string(r.TransportationType),
		TripType:           string(r.TripType),
		Status:             string(r.Status),
		PassengerCount:     r.PassengerCount,
		StartOdometer:      r.StartOdometer,
		EndOdometer:        r.EndOdometer,
	}
	if len(e.Details) == 0 {
		return []domain.ExportRow{base}
	}

	out := make([]domain.ExportRow, 0, len(e.Details))
	for _, d := range e.Details {
		row := base
		row.UserID = d.UserID.String()
		if d.DestinationID != nil {
			row.DestinationID = d.DestinationID.String()
		}
		if d.PickupTime != nil {
			row.PickupTime = d.PickupTime.String()
		}
		if d.DropOffTime != nil {
			row.DropOffTime = d.DropOffTime.String()
		}
		row.Remarks = d.Remarks
		out = append(out, row)
	}
	return out
}
