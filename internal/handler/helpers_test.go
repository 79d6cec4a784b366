package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/welfare-transport/backend/internal/domain"
	"github.com/welfare-transport/backend/internal/handler"
	"github.com/welfare-transport/backend/internal/middleware"
)

const testSecret = "test-secret"

// mockTripRecordServicer is a test double for handler.TripRecordServicer.
// Set only the method fields your test needs.
type mockTripRecordServicer struct {
	checkDuplicate   func(ctx context.Context, q domain.DuplicateQuery) (domain.DuplicateCheck, error)
	create           func(ctx context.Context, form domain.TripForm) (domain.TripRecord, error)
	get              func(ctx context.Context, id uuid.UUID) (domain.TripRecord, error)
	complete         func(ctx context.Context, id uuid.UUID, end int, vehicleID uuid.UUID) (domain.TripRecord, error)
	resumeCompletion func(ctx context.Context, id uuid.UUID) (domain.Vehicle, error)
	recordTime       func(ctx context.Context, id uuid.UUID, phase domain.TimePhase, at domain.TimeOfDay, opts domain.TimeOptions) (domain.TripRecord, error)
	cancel           func(ctx context.Context, id uuid.UUID) (domain.TripRecord, error)
	addDetails       func(ctx context.Context, id uuid.UUID, details []domain.TripDetail) ([]domain.TripDetail, error)
	delete           func(ctx context.Context, id uuid.UUID) error
}

func (m *mockTripRecordServicer) CheckDuplicate(ctx context.Context, q domain.DuplicateQuery) (domain.DuplicateCheck, error) {
	return m.checkDuplicate(ctx, q)
}
func (m *mockTripRecordServicer) Create(ctx context.Context, form domain.TripForm) (domain.TripRecord, error) {
	return m.create(ctx, form)
}
func (m *mockTripRecordServicer) Get(ctx context.Context, id uuid.UUID) (domain.TripRecord, error) {
	return m.get(ctx, id)
}
func (m *mockTripRecordServicer) Complete(ctx context.Context, id uuid.UUID, end int, vehicleID uuid.UUID) (domain.TripRecord, error) {
	return m.complete(ctx, id, end, vehicleID)
}
func (m *mockTripRecordServicer) ResumeCompletion(ctx context.Context, id uuid.UUID) (domain.Vehicle, error) {
	return m.resumeCompletion(ctx, id)
}
func (m *mockTripRecordServicer) RecordTime(ctx context.Context, id uuid.UUID, phase domain.TimePhase, at domain.TimeOfDay, opts domain.TimeOptions) (domain.TripRecord, error) {
	return m.recordTime(ctx, id, phase, at, opts)
}
func (m *mockTripRecordServicer) Cancel(ctx context.Context, id uuid.UUID) (domain.TripRecord, error) {
	return m.cancel(ctx, id)
}
func (m *mockTripRecordServicer) AddDetails(ctx context.Context, id uuid.UUID, details []domain.TripDetail) ([]domain.TripDetail, error) {
	return m.addDetails(ctx, id, details)
}
func (m *mockTripRecordServicer) Delete(ctx context.Context, id uuid.UUID) error {
	return m.delete(ctx, id)
}

// compile-time check: mockTripRecordServicer must satisfy handler.TripRecordServicer.
var _ handler.TripRecordServicer = (*mockTripRecordServicer)(nil)

type mockHistoryServicer struct {
	history func(ctx context.Context, code string, p domain.PaginationParams) ([]domain.HistoryEntry, int64, error)
	export  func(ctx context.Context, code string) ([]domain.ExportRow, error)
}

func (m *mockHistoryServicer) History(ctx context.Context, code string, p domain.PaginationParams) ([]domain.HistoryEntry, int64, error) {
	return m.history(ctx, code, p)
}
func (m *mockHistoryServicer) Export(ctx context.Context, code string) ([]domain.ExportRow, error) {
	return m.export(ctx, code)
}

var _ handler.HistoryServicer = (*mockHistoryServicer)(nil)

type mockOdometerServicer struct {
	vehicle func(ctx context.Context, id uuid.UUID) (domain.Vehicle, error)
	set     func(ctx context.Context, id uuid.UUID, value int, lastOilChange *int) (domain.Vehicle, error)
}

func (m *mockOdometerServicer) Vehicle(ctx context.Context, id uuid.UUID) (domain.Vehicle, error) {
	return m.vehicle(ctx, id)
}
func (m *mockOdometerServicer) Set(ctx context.Context, id uuid.UUID, value int, lastOilChange *int) (domain.Vehicle, error) {
	return m.set(ctx, id, value, lastOilChange)
}

var _ handler.OdometerServicer = (*mockOdometerServicer)(nil)

type mockConsolidator struct {
	run func(ctx context.Context) (domain.ConsolidationReport, error)
}

func (m *mockConsolidator) Run(ctx context.Context) (domain.ConsolidationReport, error) {
	return m.run(ctx)
}

var _ handler.Consolidator = (*mockConsolidator)(nil)

type mockPinger struct{ err error }

func (m mockPinger) Ping(context.Context) error { return m.err }

// ---- helpers ---------------------------------------------------------------

// newHTTPHandler wires a Server with the given mocks into the full router,
// the same way main.go wires it in production.
func newHTTPHandler(svc handler.Services) http.Handler {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return handler.NewRouter(handler.NewServer(svc, log), handler.RouterConfig{
		Logger:       log,
		CORSOrigins:  []string{"http://localhost:5173"},
		MaxBodyBytes: 1 << 20,
		JWTSecret:    testSecret,
	})
}

func token(t *testing.T, subject string, role middleware.Role) string {
	t.Helper()
	tok, err := middleware.IssueToken(testSecret, subject, role, time.Hour)
	require.NoError(t, err)
	return tok
}

func driverToken(t *testing.T) string { return token(t, uuid.NewString(), middleware.RoleDriver) }
func adminToken(t *testing.T) string { return token(t, "admin-1", middleware.RoleAdmin) }

// do sends method/path with an optional JSON body and bearer token.
func do(t *testing.T, h http.Handler, method, path, tok string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func recordFixture() domain.TripRecord {
	start := 1200
	now := time.Now().UTC()
	return domain.TripRecord{
		ID:                 uuid.New(),
		Date:               time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC),
		DriverID:           uuid.New(),
		VehicleID:          uuid.New(),
		TransportationType: domain.TransportationNormal,
		TripType:           domain.TripOneWay,
		StartOdometer:      &start,
		PassengerCount:     3,
		Status:             domain.StatusPending,
		ManagementCode:     "AB12CD34",
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}
