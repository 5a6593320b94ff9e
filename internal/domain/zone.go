package domain

import (
	"fmt"
	"strings"
	"time"
)

// ZoneStatus is the availability of a zone
type ZoneStatus string

const (
	ZoneStatusAvailable   ZoneStatus = "AVAILABLE"
	ZoneStatusBooked      ZoneStatus = "BOOKED"
	ZoneStatusUnavailable ZoneStatus = "UNAVAILABLE"
)

// IsValid checks if the status is a valid ZoneStatus
func (s ZoneStatus) IsValid() bool {
	switch s {
	case ZoneStatusAvailable, ZoneStatusBooked, ZoneStatusUnavailable:
		return true
	}
	return false
}

func (s ZoneStatus) String() string {
	return string(s)
}

// ParseZoneStatus converts a string to a ZoneStatus
func ParseZoneStatus(s string) (ZoneStatus, error) {
	status := ZoneStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !status.IsValid() {
		return "", fmt.Errorf("%w: %s", ErrInvalidZoneStatus, s)
	}
	return status, nil
}

// Zone is a bookable retail display slot.
// Supplier and Brand are only set while Status is not AVAILABLE.
type Zone struct {
	ID                string     `json:"id"`
	UniqueIdentifier  string     `json:"uniqueIdentifier"`
	City              string     `json:"city"`
	Market            string     `json:"market"`
	MainMacrozone     string     `json:"mainMacrozone"`
	AdjacentMacrozone string     `json:"adjacentMacrozone"`
	Equipment         string     `json:"equipment"`
	Dimensions        string     `json:"dimensions"`
	Supplier          *string    `json:"supplier"`
	Brand             *string    `json:"brand"`
	Status            ZoneStatus `json:"status"`
	Category          string     `json:"category"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// Release makes the zone bookable again and drops its holder
func (z *Zone) Release() {
	z.Status = ZoneStatusAvailable
	z.Supplier = nil
	z.Brand = nil
}

// SetStatus applies a status edit; moving to AVAILABLE releases the zone
func (z *Zone) SetStatus(status ZoneStatus) {
	if status == ZoneStatusAvailable {
		z.Release()
		return
	}
	z.Status = status
}

// Hold marks the zone BOOKED on behalf of a booking request
func (z *Zone) Hold(supplier, brand *string) {
	z.Status = ZoneStatusBooked
	z.Supplier = normalizeOptional(supplier)
	z.Brand = normalizeOptional(brand)
}

// Validate checks the fields required to import a zone
func (z *Zone) Validate() error {
	if strings.TrimSpace(z.UniqueIdentifier) == "" {
		return ErrInvalidIdentifier
	}
	if strings.TrimSpace(z.Category) == "" {
		return ErrInvalidCategory
	}
	if z.Status != "" && !z.Status.IsValid() {
		return ErrInvalidZoneStatus
	}
	return nil
}

// ZoneClaim is an explicit provisional hold on a zone outside the booking flow.
// Claiming always moves the zone to UNAVAILABLE.
type ZoneClaim struct {
	Supplier *string
	Brand    *string
}

// Validate requires at least one non-empty value
func (c ZoneClaim) Validate() error {
	if nonEmpty(c.Supplier) || nonEmpty(c.Brand) {
		return nil
	}
	return ErrEmptyClaim
}

// Apply sets the provided fields on z and marks it UNAVAILABLE
func (c ZoneClaim) Apply(z *Zone) {
	if c.Supplier != nil {
		z.Supplier = normalizeOptional(c.Supplier)
	}
	if c.Brand != nil {
		z.Brand = normalizeOptional(c.Brand)
	}
	z.Status = ZoneStatusUnavailable
}

func nonEmpty(s *string) bool {
	return s != nil && strings.TrimSpace(*s) != ""
}

func normalizeOptional(s *string) *string {
	if !nonEmpty(s) {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

// ZoneExportRow is the flat zone projection emitted by an export, joined with the zone's latest booking
type ZoneExportRow struct {
	Zone
	BookingID     *string `json:"bookingId"`
	BookingStatus *string `json:"bookingStatus"`
	RequestID     *string `json:"requestId"`
}

// FilterOptions lists the distinct values available to each zone filter dimension
type FilterOptions struct {
	Cities     []string `json:"cities"`
	Markets    []string `json:"markets"`
	Macrozones []string `json:"macrozones"`
	Equipment  []string `json:"equipment"`
	Suppliers  []string `json:"suppliers"`
	Categories []string `json:"categories"`
}
