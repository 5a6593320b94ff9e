package domain

import (
	"fmt"
	"strings"
	"time"
)

// RequestStatus is the lifecycle of a booking request
type RequestStatus string

const (
	RequestStatusNew        RequestStatus = "NEW"
	RequestStatusInProgress RequestStatus = "IN_PROGRESS"
	RequestStatusClosed     RequestStatus = "CLOSED"
)

// IsValid checks if the status is a valid RequestStatus
func (s RequestStatus) IsValid() bool {
	switch s {
	case RequestStatusNew, RequestStatusInProgress, RequestStatusClosed:
		return true
	}
	return false
}

func (s RequestStatus) String() string {
	return string(s)
}

// ParseRequestStatus converts a string to a RequestStatus
func ParseRequestStatus(s string) (RequestStatus, error) {
	status := RequestStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !status.IsValid() {
		return "", fmt.Errorf("%w: %s", ErrInvalidRequestStatus, s)
	}
	return status, nil
}

// BookingRequest groups the bookings one actor submitted together
type BookingRequest struct {
	ID        string        `json:"id"`
	UserID    string        `json:"userId"`
	Category  *string       `json:"category"`
	Status    RequestStatus `json:"status"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`

	// Bookings in creation order
	Bookings []*Booking `json:"bookings,omitempty"`
}

// AllResolved reports whether every booking has left PENDING_KM.
// An empty request is never resolved.
func (r *BookingRequest) AllResolved() bool {
	if len(r.Bookings) == 0 {
		return false
	}
	for _, b := range r.Bookings {
		if !b.Status.IsResolved() {
			return false
		}
	}
	return true
}

// Reconcile recomputes the status from the bookings and reports whether it
// changed. A closed request stays closed.
func (r *BookingRequest) Reconcile(now time.Time) bool {
	if r.Status == RequestStatusClosed {
		return false
	}

	next := r.Status
	switch {
	case r.AllResolved():
		next = RequestStatusClosed
	case r.Status == RequestStatusNew && r.anyResolved():
		next = RequestStatusInProgress
	}

	if next == r.Status {
		return false
	}
	r.Status = next
	r.UpdatedAt = now
	return true
}

func (r *BookingRequest) anyResolved() bool {
	for _, b := range r.Bookings {
		if b.Status.IsResolved() {
			return true
		}
	}
	return false
}

// ZoneIDs returns the zones referenced by the request's bookings
func (r *BookingRequest) ZoneIDs() []string {
	ids := make([]string, 0, len(r.Bookings))
	for _, b := range r.Bookings {
		ids = append(ids, b.ZoneID)
	}
	return ids
}

// VisibleTo reports whether actor may read the request
func (r *BookingRequest) VisibleTo(actor *Actor) bool {
	switch actor.Role {
	case RoleDMPManager:
		return true
	case RoleCategoryManager:
		if r.Category != nil && *r.Category == actor.Category {
			return true
		}
		for _, b := range r.Bookings {
			if b.Zone != nil && b.Zone.Category == actor.Category {
				return true
			}
		}
		return false
	default:
		return r.UserID == actor.UserID
	}
}
