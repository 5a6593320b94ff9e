package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/prohmpiriya/shelf-booking/internal/cache"
	"github.com/prohmpiriya/shelf-booking/internal/domain"
	"github.com/prohmpiriya/shelf-booking/internal/dto"
	"github.com/prohmpiriya/shelf-booking/internal/metrics"
	"github.com/prohmpiriya/shelf-booking/internal/repository"
	"github.com/prohmpiriya/shelf-booking/pkg/logger"
	"github.com/prohmpiriya/shelf-booking/pkg/telemetry"
)

// bookingService implements the BookingService interface
type bookingService struct {
	zones    repository.ZoneRepository
	bookings repository.BookingRepository
	requests repository.RequestRepository
	outbox   repository.OutboxRepository
	tx       repository.TxManager
	bumper   cacheBumper
	log      *logger.Logger
	now      func() time.Time
	newID    func() string
}

// NewBookingService creates a new BookingService
func NewBookingService(
	zones repository.ZoneRepository,
	bookings repository.BookingRepository,
	requests repository.RequestRepository,
	outbox repository.OutboxRepository,
	tx repository.TxManager,
	zoneCache cache.ZoneListCache,
) BookingService {
	return &bookingService{
		zones:    zones,
		bookings: bookings,
		requests: requests,
		outbox:   outbox,
		tx:       tx,
		bumper:   newCacheBumper(zoneCache),
		log:      logger.Get(),
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
	}
}

// CreateBooking reserves the requested zones for the actor. Every zone must be
// AVAILABLE; the zones are locked, marked BOOKED and get one PENDING_KM booking each.
func (s *bookingService) CreateBooking(ctx context.Context, actor *domain.Actor, req *dto.CreateBookingRequest) (*domain.BookingRequest, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.booking.create")
	defer span.End()

	if err := actor.Require(allRoles...); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	zoneIDs := req.UniqueZoneIDs()
	if err := validateIDs(zoneIDs, domain.ErrInvalidZoneID); err != nil {
		return nil, err
	}
	scope, err := categoryScope(actor)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.String("user_id", actor.UserID),
		attribute.Int("zone_count", len(zoneIDs)),
	)

	var request *domain.BookingRequest
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		zones, err := s.zones.GetForUpdate(ctx, zoneIDs)
		if err != nil {
			return err
		}
		if len(zones) != len(zoneIDs) {
			return fmt.Errorf("%w: %d of %d zones exist", domain.ErrZoneNotFound, len(zones), len(zoneIDs))
		}
		for _, z := range zones {
			if z.Status != domain.ZoneStatusAvailable {
				return fmt.Errorf("%w: %s is %s", domain.ErrZoneNotAvailable, z.UniqueIdentifier, z.Status)
			}
			if scope != "" && z.Category != scope {
				return fmt.Errorf("%w: zone %s is outside category %s", domain.ErrForbidden, z.ID, scope)
			}
		}

		now := s.now()
		request = &domain.BookingRequest{
			ID:        s.newID(),
			UserID:    actor.UserID,
			Category:  requestCategory(req.Category, zones),
			Status:    domain.RequestStatusNew,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.requests.Create(ctx, request); err != nil {
			return err
		}

		byID := make(map[string]*domain.Zone, len(zones))
		for _, z := range zones {
			byID[z.ID] = z
		}
		request.Bookings = make([]*domain.Booking, 0, len(zoneIDs))
		for _, id := range zoneIDs {
			b := domain.NewBooking(s.newID(), request.ID, id, now)
			b.Zone = byID[id]
			request.Bookings = append(request.Bookings, b)
		}
		if err := s.bookings.CreateBatch(ctx, request.Bookings); err != nil {
			return err
		}

		supplier := req.Supplier
		if !hasText(supplier) && actor.INN != "" {
			inn := actor.INN
			supplier = &inn
		}
		for _, z := range zones {
			z.Hold(supplier, req.Brand)
			z.UpdatedAt = now
			if err := s.zones.Update(ctx, z); err != nil {
				return err
			}
		}

		msg, err := outboxMessage(domain.AggregateBookingRequest, request.ID, domain.EventRequestCreated, domain.RequestCreatedEvent{
			RequestID: request.ID,
			UserID:    actor.UserID,
			ZoneIDs:   zoneIDs,
			CreatedAt: now,
		}, now)
		if err != nil {
			return err
		}
		return s.outbox.Create(ctx, msg)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	metrics.RequestsCreated.Inc()
	metrics.RecordZoneMutation("book", int64(len(zoneIDs)))
	s.bumper.bump(ctx, "book")
	s.log.InfoContext(ctx, "booking request created",
		zap.String("request_id", request.ID),
		zap.String("user_id", actor.UserID),
		zap.Int("zones", len(zoneIDs)),
	)
	return request, nil
}

// GetBooking retrieves a booking if the actor may see its request
func (s *bookingService) GetBooking(ctx context.Context, actor *domain.Actor, id string) (*domain.Booking, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.booking.get")
	defer span.End()
	span.SetAttributes(attribute.String("booking_id", id))

	if err := actor.Require(allRoles...); err != nil {
		return nil, err
	}
	if err := validateID(id, domain.ErrInvalidBookingID); err != nil {
		return nil, err
	}

	booking, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	request, err := s.requests.GetByID(ctx, booking.BookingRequestID)
	if err != nil {
		return nil, err
	}
	request.Bookings = []*domain.Booking{booking}
	if !request.VisibleTo(actor) {
		return nil, domain.ErrForbidden
	}
	return booking, nil
}

// requestCategory uses the explicit category, else the category shared by every zone
func requestCategory(explicit *string, zones []*domain.Zone) *string {
	if hasText(explicit) {
		v := strings.TrimSpace(*explicit)
		return &v
	}
	if len(zones) == 0 {
		return nil
	}
	c := zones[0].Category
	for _, z := range zones[1:] {
		if z.Category != c {
			return nil
		}
	}
	return &c
}

func hasText(s *string) bool {
	return s != nil && strings.TrimSpace(*s) != ""
}
