package domain

import (
	"fmt"
	"strings"
	"time"
)

// BookingStatus is the approval state of one zone within a booking request
type BookingStatus string

const (
	BookingStatusPendingKM   BookingStatus = "PENDING_KM"
	BookingStatusKMApproved  BookingStatus = "KM_APPROVED"
	BookingStatusKMRejected  BookingStatus = "KM_REJECTED"
	BookingStatusDMPApproved BookingStatus = "DMP_APPROVED"
	BookingStatusDMPRejected BookingStatus = "DMP_REJECTED"
)

// BookingAction names what a transition does
type BookingAction string

const (
	BookingActionApprove BookingAction = "approve"
	BookingActionReject  BookingAction = "reject"
)

type bookingTransition struct {
	from BookingStatus
	to   BookingStatus
}

type transitionRule struct {
	action BookingAction
	role   Role
}

// bookingTransitions is the complete approval pipeline; anything else is rejected
var bookingTransitions = map[bookingTransition]transitionRule{
	{BookingStatusPendingKM, BookingStatusKMApproved}:   {BookingActionApprove, RoleCategoryManager},
	{BookingStatusPendingKM, BookingStatusKMRejected}:   {BookingActionReject, RoleCategoryManager},
	{BookingStatusKMApproved, BookingStatusDMPApproved}: {BookingActionApprove, RoleDMPManager},
	{BookingStatusKMApproved, BookingStatusDMPRejected}: {BookingActionReject, RoleDMPManager},
}

// IsValid checks if the status is a valid BookingStatus
func (s BookingStatus) IsValid() bool {
	switch s {
	case BookingStatusPendingKM, BookingStatusKMApproved, BookingStatusKMRejected,
		BookingStatusDMPApproved, BookingStatusDMPRejected:
		return true
	}
	return false
}

func (s BookingStatus) String() string {
	return string(s)
}

// IsRejection reports whether entering s releases the zone
func (s BookingStatus) IsRejection() bool {
	return s == BookingStatusKMRejected || s == BookingStatusDMPRejected
}

// IsTerminal reports whether no transition leaves s
func (s BookingStatus) IsTerminal() bool {
	for t := range bookingTransitions {
		if t.from == s {
			return false
		}
	}
	return s.IsValid()
}

// IsResolved reports whether the category manager has decided the booking.
// A request closes once all of its bookings are resolved.
func (s BookingStatus) IsResolved() bool {
	return s.IsValid() && s != BookingStatusPendingKM
}

// RequiredRole returns the role allowed to move s to target, and false if the move is not in the pipeline
func (s BookingStatus) RequiredRole(target BookingStatus) (Role, bool) {
	rule, ok := bookingTransitions[bookingTransition{s, target}]
	return rule.role, ok
}

// CheckTransition validates moving from s to target on behalf of role.
// Moves outside the pipeline fail with ErrInvalidTransition; moves in the
// pipeline owned by another role fail with ErrForbidden.
func (s BookingStatus) CheckTransition(target BookingStatus, role Role) (BookingAction, error) {
	if !target.IsValid() {
		return "", fmt.Errorf("%w: %s", ErrInvalidBookingStatus, target)
	}
	rule, ok := bookingTransitions[bookingTransition{s, target}]
	if !ok {
		return "", fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s, target)
	}
	if rule.role != role {
		return "", fmt.Errorf("%w: %s -> %s requires %s", ErrForbidden, s, target, rule.role)
	}
	return rule.action, nil
}

// ParseBookingStatus converts a string to a BookingStatus
func ParseBookingStatus(s string) (BookingStatus, error) {
	status := BookingStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !status.IsValid() {
		return "", fmt.Errorf("%w: %s", ErrInvalidBookingStatus, s)
	}
	return status, nil
}

// Booking is one zone's position within a booking request
type Booking struct {
	ID               string        `json:"id"`
	BookingRequestID string        `json:"bookingRequestId"`
	ZoneID           string        `json:"zoneId"`
	Status           BookingStatus `json:"status"`
	CreatedAt        time.Time     `json:"createdAt"`
	UpdatedAt        time.Time     `json:"updatedAt"`

	// Zone is populated by queries that join the zone
	Zone *Zone `json:"zone,omitempty"`
}

// NewBooking creates a booking awaiting the category manager
func NewBooking(id, requestID, zoneID string, now time.Time) *Booking {
	return &Booking{
		ID:               id,
		BookingRequestID: requestID,
		ZoneID:           zoneID,
		Status:           BookingStatusPendingKM,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// Transition moves the booking to target after CheckTransition succeeds
func (b *Booking) Transition(target BookingStatus, role Role, now time.Time) (BookingAction, error) {
	action, err := b.Status.CheckTransition(target, role)
	if err != nil {
		return "", err
	}
	b.Status = target
	b.UpdatedAt = now
	return action, nil
}
