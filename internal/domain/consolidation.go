package domain

import (
	"time"

	"github.com/google/uuid"
)

// GroupFailure records why one duplicate group could not be consolidated.
type GroupFailure struct {
	Key   DuplicateKey `json:"key"`
	Error string       `json:"error"`
}

// ConsolidationReport is the aggregate outcome of one consolidation batch.
// Failed groups do not stop the batch; they are collected in Failures.
// Interrupted is set when the context was cancelled between groups.
type ConsolidationReport struct {
	StartedAt          time.Time      `json:"started_at"`
	FinishedAt         time.Time      `json:"finished_at"`
	RecordsScanned     int            `json:"records_scanned"`
	GroupsFound        int            `json:"groups_found"`
	GroupsConsolidated int            `json:"groups_consolidated"`
	RecordsRemoved     int            `json:"records_removed"`
	Survivors          []uuid.UUID    `json:"survivors"`
	Failures           []GroupFailure `json:"failures"`
	Interrupted        bool           `json:"interrupted"`
}
