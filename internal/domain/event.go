package domain

import "time"

// EventType names a lifecycle event published to downstream consumers.
type EventType string

const (
	EventTripCreated       EventType = "trip.created"
	EventTripCompleted     EventType = "trip.completed"
	EventTripsConsolidated EventType = "trips.consolidated"
)

// Event is a lifecycle notification. Payload is JSON-encoded by the publisher.
type Event struct {
	Type       EventType `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}
