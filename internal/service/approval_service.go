package service

import (
	"context"
	"fmt"
	"time"

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

// approvalService implements the ApprovalService interface.
// Rows are locked in the order booking, zone, request.
type approvalService struct {
	zones    repository.ZoneRepository
	bookings repository.BookingRepository
	requests repository.RequestRepository
	outbox   repository.OutboxRepository
	tx       repository.TxManager
	bumper   cacheBumper
	log      *logger.Logger
	now      func() time.Time
}

// NewApprovalService creates a new ApprovalService
func NewApprovalService(
	zones repository.ZoneRepository,
	bookings repository.BookingRepository,
	requests repository.RequestRepository,
	outbox repository.OutboxRepository,
	tx repository.TxManager,
	zoneCache cache.ZoneListCache,
) ApprovalService {
	return &approvalService{
		zones:    zones,
		bookings: bookings,
		requests: requests,
		outbox:   outbox,
		tx:       tx,
		bumper:   newCacheBumper(zoneCache),
		log:      logger.Get(),
		now:      time.Now,
	}
}

// UpdateBookingStatus moves one booking along the approval pipeline.
// A rejection releases the zone, and the request closes once every booking is resolved.
func (s *approvalService) UpdateBookingStatus(ctx context.Context, actor *domain.Actor, bookingID string, req *dto.UpdateBookingStatusRequest) (*dto.BookingStatusResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.approval.update_booking_status")
	defer span.End()
	span.SetAttributes(
		attribute.String("booking_id", bookingID),
		attribute.String("target_status", req.Status),
	)

	result, from, closed, err := s.apply(ctx, actor, bookingID, req)
	if err != nil {
		telemetry.RecordError(span, err)
		metrics.RecordTransitionFailure(failureReason(err))
		return nil, err
	}

	metrics.RecordTransition(from.String(), result.Booking.Status.String(), actor.Role.String())
	if closed {
		metrics.RequestsClosed.Inc()
	}
	if result.ZoneReleased {
		metrics.RecordZoneMutation("release", 1)
		s.bumper.bump(ctx, "release")
	}

	s.log.InfoContext(ctx, "booking status updated",
		zap.String("booking_id", result.Booking.ID),
		zap.String("from", from.String()),
		zap.String("to", result.Booking.Status.String()),
		zap.String("actor_id", actor.UserID),
		zap.Bool("zone_released", result.ZoneReleased),
		zap.String("request_status", result.Request.Status.String()),
	)
	return result, nil
}

// apply runs the transition and reports the source status and whether the request closed
func (s *approvalService) apply(ctx context.Context, actor *domain.Actor, bookingID string, req *dto.UpdateBookingStatusRequest) (*dto.BookingStatusResult, domain.BookingStatus, bool, error) {
	if err := actor.Require(domain.RoleCategoryManager, domain.RoleDMPManager); err != nil {
		return nil, "", false, err
	}
	if req.Role != "" {
		role, err := domain.ParseRole(req.Role)
		if err != nil {
			return nil, "", false, err
		}
		if role != actor.Role {
			return nil, "", false, fmt.Errorf("%w: role %s does not match caller", domain.ErrForbidden, role)
		}
	}
	scope, err := categoryScope(actor)
	if err != nil {
		return nil, "", false, err
	}
	if err := validateID(bookingID, domain.ErrInvalidBookingID); err != nil {
		return nil, "", false, err
	}
	target, err := domain.ParseBookingStatus(req.Status)
	if err != nil {
		return nil, "", false, err
	}

	result := &dto.BookingStatusResult{}
	var (
		from   domain.BookingStatus
		closed bool
	)
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		booking, err := s.bookings.GetForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		from = booking.Status

		zones, err := s.zones.GetForUpdate(ctx, []string{booking.ZoneID})
		if err != nil {
			return err
		}
		if len(zones) == 0 {
			return domain.ErrZoneNotFound
		}
		zone := zones[0]
		if scope != "" && zone.Category != scope {
			return fmt.Errorf("%w: zone category %s", domain.ErrForbidden, zone.Category)
		}

		now := s.now()
		action, err := booking.Transition(target, actor.Role, now)
		if err != nil {
			return err
		}
		if err := s.bookings.UpdateStatus(ctx, booking); err != nil {
			return err
		}
		booking.Zone = zone
		result.Booking, result.Action = booking, action

		var events []*domain.OutboxMessage
		msg, err := outboxMessage(domain.AggregateBooking, booking.ID, domain.EventBookingStatusChanged, domain.BookingStatusChangedEvent{
			BookingID: booking.ID,
			RequestID: booking.BookingRequestID,
			ZoneID:    booking.ZoneID,
			Action:    action,
			From:      from,
			To:        target,
			ActorID:   actor.UserID,
			ActorRole: actor.Role,
			ChangedAt: now,
		}, now)
		if err != nil {
			return err
		}
		events = append(events, msg)

		if target.IsRejection() {
			zone.Release()
			zone.UpdatedAt = now
			if err := s.zones.Update(ctx, zone); err != nil {
				return err
			}
			result.ZoneReleased = true

			msg, err := outboxMessage(domain.AggregateZone, zone.ID, domain.EventZoneReleased, domain.ZoneReleasedEvent{
				ZoneID:     zone.ID,
				BookingID:  booking.ID,
				ReleasedAt: now,
			}, now)
			if err != nil {
				return err
			}
			events = append(events, msg)
		}

		request, err := s.requests.GetForUpdate(ctx, booking.BookingRequestID)
		if err != nil {
			return err
		}
		children, err := s.bookings.ListByRequests(ctx, []string{request.ID})
		if err != nil {
			return err
		}
		request.Bookings = replaceBooking(children[request.ID], booking)

		prev := request.Status
		if request.Reconcile(now) {
			if err := s.requests.UpdateStatus(ctx, request); err != nil {
				return err
			}
			msg, err := outboxMessage(domain.AggregateBookingRequest, request.ID, domain.EventRequestStatusChanged, domain.RequestStatusChangedEvent{
				RequestID: request.ID,
				From:      prev,
				To:        request.Status,
				ActorID:   actor.UserID,
				ChangedAt: now,
			}, now)
			if err != nil {
				return err
			}
			events = append(events, msg)
			closed = request.Status == domain.RequestStatusClosed
		}
		result.Request = request

		return s.outbox.Create(ctx, events...)
	})
	if err != nil {
		return nil, from, false, err
	}
	return result, from, closed, nil
}

// replaceBooking swaps the locked booking into the loaded siblings so the
// request reconciles against the new status
func replaceBooking(siblings []*domain.Booking, updated *domain.Booking) []*domain.Booking {
	for i, b := range siblings {
		if b.ID == updated.ID {
			siblings[i] = updated
			return siblings
		}
	}
	return append(siblings, updated)
}
