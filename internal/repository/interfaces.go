package repository

import (
	"context"
	"time"

	"github.com/prohmpiriya/shelf-booking/internal/domain"
)

// ZoneFilter contains filter options for listing zones.
// Values within one dimension are OR-ed; dimensions are AND-ed.
type ZoneFilter struct {
	Cities     []string
	Markets    []string
	Macrozones []string // matches main or adjacent macrozone
	Equipment  []string
	Suppliers  []string
	Categories []string
	Status     domain.ZoneStatus
	Search     string
	Limit      int
	Offset     int
}

// RequestFilter contains filter options for listing booking requests
type RequestFilter struct {
	UserID   string
	Category string // category-manager scope
	Status   domain.RequestStatus
	Limit    int
	Offset   int
}

// ZoneRepository defines the interface for zone data access
type ZoneRepository interface {
	// List returns a page of zones ordered by unique identifier and the total match count
	List(ctx context.Context, filter *ZoneFilter) ([]*domain.Zone, int64, error)
	// GetByID retrieves a zone by ID
	GetByID(ctx context.Context, id string) (*domain.Zone, error)
	// GetForUpdate locks and returns the zones with the given ids, ordered by id
	GetForUpdate(ctx context.Context, ids []string) ([]*domain.Zone, error)
	// Update persists status, supplier and brand of a zone
	Update(ctx context.Context, zone *domain.Zone) error
	// BulkUpdateStatus sets status on every matching zone in one statement
	BulkUpdateStatus(ctx context.Context, ids []string, status domain.ZoneStatus, now time.Time) (int64, error)
	// BulkDelete deletes zones in one statement; fails with ErrZoneHasBookings if any is referenced
	BulkDelete(ctx context.Context, ids []string) (int64, error)
	// Upsert inserts zones or updates their descriptive fields by unique identifier
	Upsert(ctx context.Context, zones []*domain.Zone) (created, updated int, err error)
	// FilterOptions returns distinct filter values, optionally restricted to a category
	FilterOptions(ctx context.Context, category string) (*domain.FilterOptions, error)
	// Export returns every matching zone with its latest booking, ignoring pagination
	Export(ctx context.Context, filter *ZoneFilter) ([]*domain.ZoneExportRow, error)
}

// BookingRepository defines the interface for booking data access
type BookingRepository interface {
	// CreateBatch inserts bookings
	CreateBatch(ctx context.Context, bookings []*domain.Booking) error
	// GetByID retrieves a booking with its zone
	GetByID(ctx context.Context, id string) (*domain.Booking, error)
	// GetForUpdate locks and returns a booking
	GetForUpdate(ctx context.Context, id string) (*domain.Booking, error)
	// UpdateStatus persists the status of a booking
	UpdateStatus(ctx context.Context, booking *domain.Booking) error
	// ListByRequests returns the bookings of each request with their zones, in creation order
	ListByRequests(ctx context.Context, requestIDs []string) (map[string][]*domain.Booking, error)
}

// RequestRepository defines the interface for booking request data access
type RequestRepository interface {
	// Create inserts a booking request
	Create(ctx context.Context, req *domain.BookingRequest) error
	// GetByID retrieves a booking request without its bookings
	GetByID(ctx context.Context, id string) (*domain.BookingRequest, error)
	// GetForUpdate locks and returns a booking request
	GetForUpdate(ctx context.Context, id string) (*domain.BookingRequest, error)
	// UpdateStatus persists the status of a booking request
	UpdateStatus(ctx context.Context, req *domain.BookingRequest) error
	// List returns a page of requests, newest first, and the total match count
	List(ctx context.Context, filter *RequestFilter) ([]*domain.BookingRequest, int64, error)
}

// OutboxRepository defines the interface for outbox data access
type OutboxRepository interface {
	// Create appends messages; call inside the transaction of the change they describe
	Create(ctx context.Context, msgs ...*domain.OutboxMessage) error
	// GetPendingMessages locks pending messages, skipping rows held by other relays
	GetPendingMessages(ctx context.Context, limit int) ([]*domain.OutboxMessage, error)
	// GetFailedMessages locks failed messages that can be retried
	GetFailedMessages(ctx context.Context, limit int) ([]*domain.OutboxMessage, error)
	// MarkAsPublished marks a message as successfully published
	MarkAsPublished(ctx context.Context, id string) error
	// MarkAsFailed marks a message as failed
	MarkAsFailed(ctx context.Context, id string, errMsg string) error
	// DeletePublished deletes published messages older than the given number of days
	DeletePublished(ctx context.Context, olderThanDays int) (int64, error)
}
