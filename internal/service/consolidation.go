package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/welfare-transport/backend/internal/domain"
	"github.com/welfare-transport/backend/internal/repo"
)

// Locker is a cross-process single-flight guard. repo.AdvisoryLock satisfies it.
// TryAcquire returns domain.ErrConsolidationRunning when the lock is held elsewhere.
type Locker interface {
	TryAcquire(ctx context.Context) (release func(), err error)
}

// ConsolidationService merges trip records that were created more than once
// for the same (date, driver, vehicle).
type ConsolidationService struct {
	common
	records repo.TripRecordRepo
	details repo.TripDetailRepo
	lock    Locker

	mu sync.Mutex
}

// NewConsolidationService constructs a ConsolidationService. lock may be nil,
// in which case only concurrent runs within this process are excluded.
func NewConsolidationService(records repo.TripRecordRepo, details repo.TripDetailRepo, lock Locker, opts ...Option) *ConsolidationService {
	return &ConsolidationService{
		common:  newCommon(opts),
		records: records,
		details: details,
		lock:    lock,
	}
}

// Run executes one consolidation batch.
//
// Records are grouped by (date, driver, vehicle) in fetch order. In every
// group with more than one record the earliest-created record survives: it
// becomes a round trip carrying the group's total passenger count, every
// other record's details are moved onto it, and those records are deleted.
//
// Each group commits on its own. A failed group is logged and recorded in the
// report without stopping the batch. Cancelling ctx stops the batch between
// groups; the report then has Interrupted set and ctx's error is returned.
func (s *ConsolidationService) Run(ctx context.Context) (domain.ConsolidationReport, error) {
	const op = "service.ConsolidationService.Run"

	if !s.mu.TryLock() {
		return domain.ConsolidationReport{}, fmt.Errorf("%s: %w", op, domain.ErrConsolidationRunning)
	}
	defer s.mu.Unlock()

	if s.lock != nil {
		release, err := s.lock.TryAcquire(ctx)
		if err != nil {
			return domain.ConsolidationReport{}, storeErr(op, err)
		}
		defer release()
	}

	report := domain.ConsolidationReport{StartedAt: s.now().UTC()}

	records, err := s.records.ListForConsolidation(ctx)
	if err != nil {
		return domain.ConsolidationReport{}, storeErr(op, err)
	}
	report.RecordsScanned = len(records)

	var duplicates [][]domain.TripRecord
	for _, g := range groupByKey(records) {
		if len(g) > 1 {
			duplicates = append(duplicates, g)
		}
	}
	report.GroupsFound = len(duplicates)

	var runErr error
	for _, group := range duplicates {
		if err := ctx.Err(); err != nil {
			report.Interrupted = true
			runErr = fmt.Errorf("%s: %w", op, err)
			break
		}

		key := group[0].Key()
		survivorID, removed, err := s.consolidateGroup(ctx, group)
		if err != nil {
			s.log.ErrorContext(ctx, "consolidation group failed",
				"group_key", key.String(),
				"records", len(group),
				"error", err,
			)
			report.Failures = append(report.Failures, domain.GroupFailure{Key: key, Error: err.Error()})
			continue
		}
		if removed == 0 {
			// The duplicates went away after the listing.
			continue
		}

		report.GroupsConsolidated++
		report.RecordsRemoved += removed
		report.Survivors = append(report.Survivors, survivorID)
	}

	report.FinishedAt = s.now().UTC()
	s.log.InfoContext(ctx, "consolidation finished",
		"records_scanned", report.RecordsScanned,
		"groups_found", report.GroupsFound,
		"groups_consolidated", report.GroupsConsolidated,
		"groups_failed", len(report.Failures),
		"records_removed", report.RecordsRemoved,
		"interrupted", report.Interrupted,
	)
	if report.GroupsConsolidated > 0 {
		s.publish(ctx, domain.EventTripsConsolidated, report)
	}
	return report, runErr
}

// consolidateGroup merges a duplicate group in one transaction. The group
// comes from the batch listing, so its rows are re-read and locked first:
// records deleted since drop out, and the passenger total and the survivor's
// other columns reflect writes made after the listing. Only trip_type and
// passenger_count of the survivor are written.
func (s *ConsolidationService) consolidateGroup(ctx context.Context, group []domain.TripRecord) (uuid.UUID, int, error) {
	key := group[0].Key()
	ids := make([]uuid.UUID, len(group))
	for i, r := range group {
		ids[i] = r.ID
	}

	var (
		survivorID uuid.UUID
		removed    int
	)
	err := s.inTx(ctx, func(ctx context.Context) error {
		locked, err := s.records.LockForMerge(ctx, ids)
		if err != nil {
			return storeErr("lock group", err)
		}
		var current []domain.TripRecord
		for _, r := range locked {
			if r.Key() == key {
				current = append(current, r)
			}
		}
		if len(current) < 2 {
			return nil
		}

		survivor := current[0]
		total := 0
		for _, r := range current {
			total += r.PassengerCount
		}
		if _, err := s.records.MarkRoundTrip(ctx, survivor.ID, total); err != nil {
			return storeErr("update survivor", err)
		}
		for _, donor := range current[1:] {
			if _, err := s.details.Reassign(ctx, donor.ID, survivor.ID); err != nil {
				return storeErr("reassign details of "+donor.ID.String(), err)
			}
			if err := s.records.Delete(ctx, donor.ID); err != nil {
				return storeErr("delete "+donor.ID.String(), err)
			}
		}
		survivorID, removed = survivor.ID, len(current)-1
		return nil
	})
	if err != nil {
		return uuid.Nil, 0, err
	}
	return survivorID, removed, nil
}

// groupByKey splits records into duplicate-key groups. Groups appear in the
// order of their first record and keep the input order within a group, so
// index 0 of each group is its earliest-fetched record.
func groupByKey(records []domain.TripRecord) [][]domain.TripRecord {
	index := make(map[domain.DuplicateKey]int)
	var groups [][]domain.TripRecord
	for _, r := range records {
		k := r.Key()
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], r)
	}
	return groups
}
