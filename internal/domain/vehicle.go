package domain

import (
	"time"

	"github.com/google/uuid"
)

// Vehicle carries the cumulative distance counter used for odometer capture.
// CurrentOdometer only moves forward in normal operation, but manual
// correction through the odometer tracker may set any non-negative value.
type Vehicle struct {
	ID                    uuid.UUID
	CurrentOdometer       int
	LastOilChangeOdometer *int
	UpdatedAt             time.Time
}
