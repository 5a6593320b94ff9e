package service

import (
	"context"

	"github.com/prohmpiriya/shelf-booking/internal/domain"
	"github.com/prohmpiriya/shelf-booking/internal/dto"
)

// ZoneService defines the interface for zone registry business logic
type ZoneService interface {
	// ListZones returns a filtered page of zones; category managers only see their category
	ListZones(ctx context.Context, actor *domain.Actor, filter *dto.ZoneListFilter) (*dto.ZoneListResponse, error)
	// GetZone retrieves a zone by ID
	GetZone(ctx context.Context, actor *domain.Actor, id string) (*domain.Zone, error)
	// FilterOptions lists the distinct values of every filter dimension
	FilterOptions(ctx context.Context, actor *domain.Actor) (*domain.FilterOptions, error)
	// UpdateZoneStatus edits the status of one zone
	UpdateZoneStatus(ctx context.Context, actor *domain.Actor, id string, req *dto.UpdateZoneStatusRequest) (*domain.Zone, error)
	// ClaimZone sets supplier and/or brand and marks the zone UNAVAILABLE
	ClaimZone(ctx context.Context, actor *domain.Actor, id string, req *dto.ClaimZoneRequest) (*domain.Zone, error)
	// BulkUpdateStatus sets status on many zones and returns how many were updated
	BulkUpdateStatus(ctx context.Context, actor *domain.Actor, req *dto.BulkUpdateZonesRequest) (int64, error)
	// BulkDelete deletes zones without bookings, all or nothing
	BulkDelete(ctx context.Context, actor *domain.Actor, req *dto.BulkDeleteZonesRequest) (int64, error)
	// ImportZones upserts flat zone records by unique identifier
	ImportZones(ctx context.Context, actor *domain.Actor, req *dto.ImportZonesRequest) (*dto.ImportResult, error)
	// ExportZones returns the flat zone projection for every matching zone
	ExportZones(ctx context.Context, actor *domain.Actor, filter *dto.ZoneListFilter) ([]*domain.ZoneExportRow, error)
	// ClearCache invalidates the zone-list cache namespace
	ClearCache(ctx context.Context, actor *domain.Actor) error
}

// BookingService defines the interface for booking submission
type BookingService interface {
	// CreateBooking creates a booking request with one booking per zone
	CreateBooking(ctx context.Context, actor *domain.Actor, req *dto.CreateBookingRequest) (*domain.BookingRequest, error)
	// GetBooking retrieves a booking with its zone
	GetBooking(ctx context.Context, actor *domain.Actor, id string) (*domain.Booking, error)
}

// ApprovalService defines the interface for the booking approval workflow
type ApprovalService interface {
	// UpdateBookingStatus applies one approval or rejection and its side effects atomically
	UpdateBookingStatus(ctx context.Context, actor *domain.Actor, bookingID string, req *dto.UpdateBookingStatusRequest) (*dto.BookingStatusResult, error)
}

// RequestService defines the interface for booking request reads and overrides
type RequestService interface {
	// ListRequests lists the requests visible to actor
	ListRequests(ctx context.Context, actor *domain.Actor, filter *dto.RequestListFilter) ([]*domain.BookingRequest, int64, error)
	// GetRequest retrieves a request with its bookings
	GetRequest(ctx context.Context, actor *domain.Actor, id string) (*domain.BookingRequest, error)
	// UpdateRequestStatus overrides the status of a request
	UpdateRequestStatus(ctx context.Context, actor *domain.Actor, id string, req *dto.UpdateRequestStatusRequest) (*domain.BookingRequest, error)
}
