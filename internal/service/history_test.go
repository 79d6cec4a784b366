package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/welfare-transport/backend/internal/domain"
	"github.com/welfare-transport/backend/internal/repo"
	"github.com/welfare-transport/backend/internal/service"
)

// mockRecordLister stubs only ListByManagementCode; the other TripRecordRepo
// methods are inherited from the embedded nil interface and must not be called.
type mockRecordLister struct {
	repo.TripRecordRepo
	list func(ctx context.Context, code string, p domain.PaginationParams) ([]domain.TripRecord, int64, error)
}

func (m *mockRecordLister) ListByManagementCode(ctx context.Context, code string, p domain.PaginationParams) ([]domain.TripRecord, int64, error) {
	return m.list(ctx, code, p)
}

func TestHistoryService_History(t *testing.T) {
	m := newMemStore()
	d, vehicleID := uuid.New(), m.addVehicle(0)
	older := seed(t, m, tripDate, d, vehicleID, 1)
	newer := seed(t, m, tripDate.AddDate(0, 0, 1), d, vehicleID, 2)
	seedDetail(t, m, older.ID)
	seedDetail(t, m, older.ID)
	svc := service.NewHistoryService(m.recordRepo(), m.detailRepo())

	entries, total, err := svc.History(context.Background(), " CODE0001 ", domain.NewPaginationParams(nil, nil))

	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, entries, 2)
	assert.Equal(t, newer.ID, entries[0].Record.ID, "newest first")
	assert.NotNil(t, entries[0].Details)
	assert.Empty(t, entries[0].Details)
	assert.Len(t, entries[1].Details, 2)
}

func TestHistoryService_History_Paged(t *testing.T) {
	m := newMemStore()
	d, vehicleID := uuid.New(), m.addVehicle(0)
	for i := range 5 {
		seed(t, m, tripDate.AddDate(0, 0, i), d, vehicleID, 1)
	}
	svc := service.NewHistoryService(m.recordRepo(), m.detailRepo())

	page, limit := 2, 2
	entries, total, err := svc.History(context.Background(), "CODE0001", domain.NewPaginationParams(&page, &limit))

	require.NoError(t, err)
	assert.EqualValues(t, 5, total)
	assert.Len(t, entries, 2)
}

func TestHistoryService_History_EmptyCode(t *testing.T) {
	svc := service.NewHistoryService(&mockRecordLister{}, nil)

	_, _, err := svc.History(context.Background(), "  ", domain.NewPaginationParams(nil, nil))

	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestHistoryService_History_StoreError(t *testing.T) {
	lister := &mockRecordLister{
		list: func(context.Context, string, domain.PaginationParams) ([]domain.TripRecord, int64, error) {
			return nil, 0, errors.New("connection refused")
		},
	}
	svc := service.NewHistoryService(lister, nil)

	_, _, err := svc.History(context.Background(), "CODE0001", domain.NewPaginationParams(nil, nil))

	assert.ErrorIs(t, err, domain.ErrPersistence)
}

func TestHistoryService_Export(t *testing.T) {
	m := newMemStore()
	d, vehicleID := uuid.New(), m.addVehicle(0)
	withDetails := seed(t, m, tripDate, d, vehicleID, 2)
	bare := seed(t, m, tripDate.AddDate(0, 0, -1), d, vehicleID, 1)
	det := seedDetail(t, m, withDetails.ID)
	seedDetail(t, m, withDetails.ID)
	svc := service.NewHistoryService(m.recordRepo(), m.detailRepo())

	rows, err := svc.Export(context.Background(), "CODE0001")

	require.NoError(t, err)
	require.Len(t, rows, 3, "one row per detail plus one for the bare record")
	assert.Equal(t, withDetails.ID.String(), rows[0].RecordID)
	assert.Equal(t, det.UserID.String(), rows[0].UserID)
	assert.Equal(t, "2025-06-03", rows[0].Date)
	assert.Equal(t, bare.ID.String(), rows[2].RecordID)
	assert.Empty(t, rows[2].UserID)
}

func TestHistoryService_Export_SpansPages(t *testing.T) {
	m := newMemStore()
	d, vehicleID := uuid.New(), m.addVehicle(0)
	for i := range 130 {
		seed(t, m, tripDate.AddDate(0, 0, -i), d, vehicleID, 1)
	}
	svc := service.NewHistoryService(m.recordRepo(), m.detailRepo())

	rows, err := svc.Export(context.Background(), "CODE0001")

	require.NoError(t, err)
	assert.Len(t, rows, 130)
}

func TestHistoryService_Export_UnknownCode(t *testing.T) {
	m := newMemStore()
	svc := service.NewHistoryService(m.recordRepo(), m.detailRepo())

	rows, err := svc.Export(context.Background(), "NOPE")

	require.NoError(t, err)
	assert.Empty(t, rows)
}
