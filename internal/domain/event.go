package domain

import "time"

// EventType identifies a domain event published to the event stream
type EventType string

const (
	EventRequestCreated       EventType = "booking_request.created"
	EventRequestStatusChanged EventType = "booking_request.status_changed"
	EventBookingStatusChanged EventType = "booking.status_changed"
	EventZoneReleased         EventType = "zone.released"
	EventZonesChanged         EventType = "zones.changed"
)

// Aggregate types used as outbox partition keys
const (
	AggregateBookingRequest = "booking_request"
	AggregateBooking        = "booking"
	AggregateZone           = "zone"
)

// RequestCreatedEvent is emitted when a supplier submits zones
type RequestCreatedEvent struct {
	RequestID string    `json:"requestId"`
	UserID    string    `json:"userId"`
	ZoneIDs   []string  `json:"zoneIds"`
	CreatedAt time.Time `json:"createdAt"`
}

// RequestStatusChangedEvent is emitted on closure or manual override
type RequestStatusChangedEvent struct {
	RequestID string        `json:"requestId"`
	From      RequestStatus `json:"from"`
	To        RequestStatus `json:"to"`
	ActorID   string        `json:"actorId"`
	ChangedAt time.Time     `json:"changedAt"`
}

// BookingStatusChangedEvent is emitted for every approval or rejection
type BookingStatusChangedEvent struct {
	BookingID string        `json:"bookingId"`
	RequestID string        `json:"requestId"`
	ZoneID    string        `json:"zoneId"`
	Action    BookingAction `json:"action"`
	From      BookingStatus `json:"from"`
	To        BookingStatus `json:"to"`
	ActorID   string        `json:"actorId"`
	ActorRole Role          `json:"actorRole"`
	ChangedAt time.Time     `json:"changedAt"`
}

// ZoneReleasedEvent is emitted when a rejection frees a zone
type ZoneReleasedEvent struct {
	ZoneID     string    `json:"zoneId"`
	BookingID  string    `json:"bookingId"`
	ReleasedAt time.Time `json:"releasedAt"`
}

// ZonesChangedEvent summarizes an administrative zone mutation
type ZonesChangedEvent struct {
	Operation string      `json:"operation"`
	ZoneIDs   []string    `json:"zoneIds,omitempty"`
	Status    *ZoneStatus `json:"status,omitempty"`
	Affected  int64       `json:"affected"`
	ActorID   string      `json:"actorId"`
	ChangedAt time.Time   `json:"changedAt"`
}
