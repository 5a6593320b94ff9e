package dto

import (
	"strings"

	"github.com/prohmpiriya/shelf-booking/internal/domain"
)

// CreateBookingRequest represents the body of POST /bookings
type CreateBookingRequest struct {
	ZoneIDs  []string `json:"zoneIds"`
	Supplier *string  `json:"supplier"`
	Brand    *string  `json:"brand"`
	Category *string  `json:"category"`
}

// Validate validates the CreateBookingRequest
func (r *CreateBookingRequest) Validate() error {
	if len(r.ZoneIDs) == 0 {
		return domain.ErrEmptyZoneList
	}
	for _, id := range r.ZoneIDs {
		if strings.TrimSpace(id) == "" {
			return domain.ErrInvalidZoneID
		}
	}
	return nil
}

// UniqueZoneIDs returns the requested zone ids without duplicates, in request order
func (r *CreateBookingRequest) UniqueZoneIDs() []string {
	seen := make(map[string]struct{}, len(r.ZoneIDs))
	ids := make([]string, 0, len(r.ZoneIDs))
	for _, id := range r.ZoneIDs {
		id = strings.TrimSpace(id)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

// UpdateBookingStatusRequest represents the body of PATCH /bookings/:id.
// Role is optional; when present it must equal the authenticated role.
type UpdateBookingStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Role   string `json:"role"`
}

// BookingStatusResult is returned by PATCH /bookings/:id
type BookingStatusResult struct {
	Booking      *domain.Booking        `json:"booking"`
	Request      *domain.BookingRequest `json:"request"`
	Action       domain.BookingAction   `json:"action"`
	ZoneReleased bool                   `json:"zoneReleased"`
}
