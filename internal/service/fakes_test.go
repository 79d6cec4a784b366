package service_test

import (
	"context"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/welfare-transport/backend/internal/domain"
	"github.com/welfare-transport/backend/internal/repo"
)

// memStore is an in-memory stand-in for the three Postgres repos. The record,
// detail, and vehicle views share one store so that cross-table behaviour
// (cascade delete, reassignment) can be observed in tests.
//
// Failure hooks are optional; set only the ones a test needs.
type memStore struct {
	mu       sync.Mutex
	records  map[uuid.UUID]domain.TripRecord
	details  map[uuid.UUID]domain.TripDetail
	vehicles map[uuid.UUID]domain.Vehicle
	tick     time.Time

	failSetOdometer func(id uuid.UUID) error
	failUpdate      func(rec domain.TripRecord) error
	failDelete      func(id uuid.UUID) error
	failCreateBatch func(details []domain.TripDetail) error

	// afterList runs once ListForConsolidation has taken its snapshot, to
	// interleave writes between the listing and the merge.
	afterList func()
}

func newMemStore() *memStore {
	return &memStore{
		records:  map[uuid.UUID]domain.TripRecord{},
		details:  map[uuid.UUID]domain.TripDetail{},
		vehicles: map[uuid.UUID]domain.Vehicle{},
		tick:     time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC),
	}
}

// next returns a strictly increasing timestamp, like clock_timestamp().
func (m *memStore) next() time.Time {
	m.tick = m.tick.Add(time.Millisecond)
	return m.tick
}

func (m *memStore) addVehicle(odometer int) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.vehicles[id] = domain.Vehicle{ID: id, CurrentOdometer: odometer, UpdatedAt: m.next()}
	return id
}

func (m *memStore) vehicle(id uuid.UUID) domain.Vehicle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.vehicles[id]
}

func (m *memStore) record(id uuid.UUID) (domain.TripRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	return r, ok
}

func (m *memStore) recordCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

func (m *memStore) detailsOf(recordID uuid.UUID) []domain.TripDetail {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.TripDetail
	for _, d := range m.details {
		if d.TripRecordID == recordID {
			out = append(out, d)
		}
	}
	return out
}

// snapshot and restore back fakeTx's rollback.
type memSnapshot struct {
	records  map[uuid.UUID]domain.TripRecord
	details  map[uuid.UUID]domain.TripDetail
	vehicles map[uuid.UUID]domain.Vehicle
}

func (m *memStore) snapshot() memSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return memSnapshot{
		records:  maps.Clone(m.records),
		details:  maps.Clone(m.details),
		vehicles: maps.Clone(m.vehicles),
	}
}

func (m *memStore) restore(s memSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = s.records
	m.details = s.details
	m.vehicles = s.vehicles
}

func (m *memStore) recordRepo() repo.TripRecordRepo { return memRecords{m} }
func (m *memStore) detailRepo() repo.TripDetailRepo { return memDetails{m} }
func (m *memStore) vehicleRepo() repo.VehicleRepo { return memVehicles{m} }

// ---- records ---------------------------------------------------------------

type memRecords struct{ m *memStore }

var _ repo.TripRecordRepo = memRecords{}

func (r memRecords) Create(_ context.Context, rec domain.TripRecord) (domain.TripRecord, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	rec.ID = uuid.New()
	rec.CreatedAt = r.m.next()
	rec.UpdatedAt = rec.CreatedAt
	r.m.records[rec.ID] = rec
	return rec, nil
}

func (r memRecords) GetByID(_ context.Context, id uuid.UUID) (domain.TripRecord, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	rec, ok := r.m.records[id]
	if !ok {
		return domain.TripRecord{}, domain.ErrNotFound
	}
	return rec, nil
}

func (r memRecords) find(match func(domain.TripRecord) bool) (domain.TripRecord, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var hits []domain.TripRecord
	for _, rec := range r.m.records {
		if match(rec) {
			hits = append(hits, rec)
		}
	}
	if len(hits) == 0 {
		return domain.TripRecord{}, domain.ErrNotFound
	}
	sortByCreated(hits)
	return hits[0], nil
}

func (r memRecords) FindByRoute(_ context.Context, date time.Time, driverID, routeID uuid.UUID) (domain.TripRecord, error) {
	return r.find(func(rec domain.TripRecord) bool {
		return rec.Date.Equal(date) && rec.DriverID == driverID &&
			rec.RouteID != nil && *rec.RouteID == routeID
	})
}

func (r memRecords) FindByUser(_ context.Context, date time.Time, driverID, userID uuid.UUID) (domain.TripRecord, error) {
	return r.find(func(rec domain.TripRecord) bool {
		return rec.Date.Equal(date) && rec.DriverID == driverID &&
			rec.UserID != nil && *rec.UserID == userID
	})
}

func (r memRecords) ListByManagementCode(_ context.Context, code string, p domain.PaginationParams) ([]domain.TripRecord, int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var hits []domain.TripRecord
	for _, rec := range r.m.records {
		if rec.ManagementCode == code {
			hits = append(hits, rec)
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if !hits[i].Date.Equal(hits[j].Date) {
			return hits[i].Date.After(hits[j].Date)
		}
		return hits[i].CreatedAt.After(hits[j].CreatedAt)
	})
	total := int64(len(hits))
	lo := min(p.Offset(), len(hits))
	hi := min(lo+p.Limit, len(hits))
	return hits[lo:hi], total, nil
}

func (r memRecords) ListForConsolidation(_ context.Context) ([]domain.TripRecord, error) {
	r.m.mu.Lock()
	out := slices.Collect(maps.Values(r.m.records))
	hook := r.m.afterList
	r.m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if hook != nil {
		hook()
	}
	return out, nil
}

func (r memRecords) LockForMerge(_ context.Context, ids []uuid.UUID) ([]domain.TripRecord, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := []domain.TripRecord{}
	for _, id := range ids {
		if rec, ok := r.m.records[id]; ok {
			out = append(out, rec)
		}
	}
	sortByCreated(out)
	return out, nil
}

func (r memRecords) MarkRoundTrip(_ context.Context, id uuid.UUID, passengerCount int) (domain.TripRecord, error) {
	r.m.mu.Lock()
	rec, ok := r.m.records[id]
	r.m.mu.Unlock()
	if !ok {
		return domain.TripRecord{}, domain.ErrNotFound
	}
	rec.TripType = domain.TripRoundTrip
	rec.PassengerCount = passengerCount
	if r.m.failUpdate != nil {
		if err := r.m.failUpdate(rec); err != nil {
			return domain.TripRecord{}, err
		}
	}

	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	cur, ok := r.m.records[id]
	if !ok {
		return domain.TripRecord{}, domain.ErrNotFound
	}
	cur.TripType = domain.TripRoundTrip
	cur.PassengerCount = passengerCount
	cur.UpdatedAt = r.m.next()
	r.m.records[id] = cur
	return cur, nil
}

func (r memRecords) Update(_ context.Context, rec domain.TripRecord) (domain.TripRecord, error) {
	if r.m.failUpdate != nil {
		if err := r.m.failUpdate(rec); err != nil {
			return domain.TripRecord{}, err
		}
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	old, ok := r.m.records[rec.ID]
	if !ok {
		return domain.TripRecord{}, domain.ErrNotFound
	}
	rec.CreatedAt = old.CreatedAt
	rec.UpdatedAt = r.m.next()
	r.m.records[rec.ID] = rec
	return rec, nil
}

func (r memRecords) Delete(_ context.Context, id uuid.UUID) error {
	if r.m.failDelete != nil {
		if err := r.m.failDelete(id); err != nil {
			return err
		}
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.records[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.m.records, id)
	for did, d := range r.m.details {
		if d.TripRecordID == id {
			delete(r.m.details, did)
		}
	}
	return nil
}

func sortByCreated(rs []domain.TripRecord) {
	sort.Slice(rs, func(i, j int) bool { return rs[i].CreatedAt.Before(rs[j].CreatedAt) })
}

// ---- details ---------------------------------------------------------------

type memDetails struct{ m *memStore }

var _ repo.TripDetailRepo = memDetails{}

func (d memDetails) CreateBatch(_ context.Context, details []domain.TripDetail) ([]domain.TripDetail, error) {
	if d.m.failCreateBatch != nil {
		if err := d.m.failCreateBatch(details); err != nil {
			return nil, err
		}
	}
	d.m.mu.Lock()
	defer d.m.mu.Unlock()
	out := make([]domain.TripDetail, len(details))
	for i, det := range details {
		if _, ok := d.m.records[det.TripRecordID]; !ok {
			return nil, domain.ErrNotFound
		}
		det.ID = uuid.New()
		det.CreatedAt = d.m.next()
		out[i] = det
	}
	for _, det := range out {
		d.m.details[det.ID] = det
	}
	return out, nil
}

func (d memDetails) ListByRecordIDs(_ context.Context, recordIDs []uuid.UUID) ([]domain.TripDetail, error) {
	d.m.mu.Lock()
	defer d.m.mu.Unlock()
	out := []domain.TripDetail{}
	for _, det := range d.m.details {
		if slices.Contains(recordIDs, det.TripRecordID) {
			out = append(out, det)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (d memDetails) Reassign(_ context.Context, from, to uuid.UUID) (int64, error) {
	d.m.mu.Lock()
	defer d.m.mu.Unlock()
	var n int64
	for id, det := range d.m.details {
		if det.TripRecordID == from {
			det.TripRecordID = to
			d.m.details[id] = det
			n++
		}
	}
	return n, nil
}

// ---- vehicles --------------------------------------------------------------

type memVehicles struct{ m *memStore }

var _ repo.VehicleRepo = memVehicles{}

func (v memVehicles) GetByID(_ context.Context, id uuid.UUID) (domain.Vehicle, error) {
	v.m.mu.Lock()
	defer v.m.mu.Unlock()
	veh, ok := v.m.vehicles[id]
	if !ok {
		return domain.Vehicle{}, domain.ErrNotFound
	}
	return veh, nil
}

func (v memVehicles) SetOdometer(_ context.Context, id uuid.UUID, value int, lastOilChange *int) (domain.Vehicle, error) {
	if v.m.failSetOdometer != nil {
		if err := v.m.failSetOdometer(id); err != nil {
			return domain.Vehicle{}, err
		}
	}
	v.m.mu.Lock()
	defer v.m.mu.Unlock()
	veh, ok := v.m.vehicles[id]
	if !ok {
		return domain.Vehicle{}, domain.ErrNotFound
	}
	veh.CurrentOdometer = value
	if lastOilChange != nil {
		veh.LastOilChangeOdometer = lastOilChange
	}
	veh.UpdatedAt = v.m.next()
	v.m.vehicles[id] = veh
	return veh, nil
}

// ---- transactions, events, locks -------------------------------------------

// fakeTx rolls the store back to its state at entry when fn fails.
type fakeTx struct {
	m     *memStore
	calls int
}

func (f *fakeTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.calls++
	snap := f.m.snapshot()
	if err := fn(ctx); err != nil {
		f.m.restore(snap)
		return err
	}
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) types() []domain.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.EventType, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

// mockLocker is a function-field double for service.Locker.
type mockLocker struct {
	tryAcquire func(ctx context.Context) (func(), error)
}

func (m *mockLocker) TryAcquire(ctx context.Context) (func(), error) {
	return m.tryAcquire(ctx)
}

func ptr[T any](v T) *T { return &v }
