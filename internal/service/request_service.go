package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/prohmpiriya/shelf-booking/internal/domain"
	"github.com/prohmpiriya/shelf-booking/internal/dto"
	"github.com/prohmpiriya/shelf-booking/internal/repository"
	"github.com/prohmpiriya/shelf-booking/pkg/logger"
	"github.com/prohmpiriya/shelf-booking/pkg/telemetry"
)

// requestService implements the RequestService interface
type requestService struct {
	bookings repository.BookingRepository
	requests repository.RequestRepository
	outbox   repository.OutboxRepository
	tx       repository.TxManager
	log      *logger.Logger
	now      func() time.Time
}

// NewRequestService creates a new RequestService
func NewRequestService(
	bookings repository.BookingRepository,
	requests repository.RequestRepository,
	outbox repository.OutboxRepository,
	tx repository.TxManager,
) RequestService {
	return &requestService{
		bookings: bookings,
		requests: requests,
		outbox:   outbox,
		tx:       tx,
		log:      logger.Get(),
		now:      time.Now,
	}
}

// ListRequests lists requests newest first. Suppliers see their own requests,
// category managers those touching their category, DMP managers all of them.
func (s *requestService) ListRequests(ctx context.Context, actor *domain.Actor, filter *dto.RequestListFilter) ([]*domain.BookingRequest, int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.request.list")
	defer span.End()

	if err := actor.Require(allRoles...); err != nil {
		return nil, 0, err
	}
	scope, err := categoryScope(actor)
	if err != nil {
		return nil, 0, err
	}
	if filter == nil {
		filter = &dto.RequestListFilter{}
	}
	filter.SetDefaults()
	if err := filter.Validate(); err != nil {
		return nil, 0, err
	}

	filter.UserID, filter.Category = "", scope
	if actor.Role == domain.RoleSupplier {
		filter.UserID = actor.UserID
	}

	requests, total, err := s.requests.List(ctx, &repository.RequestFilter{
		UserID:   filter.UserID,
		Category: filter.Category,
		Status:   domain.RequestStatus(filter.Status),
		Limit:    filter.Limit,
		Offset:   filter.Offset(),
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, 0, err
	}
	if err := s.attachBookings(ctx, requests); err != nil {
		return nil, 0, err
	}
	return requests, total, nil
}

// GetRequest retrieves a request with its bookings
func (s *requestService) GetRequest(ctx context.Context, actor *domain.Actor, id string) (*domain.BookingRequest, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.request.get")
	defer span.End()
	span.SetAttributes(attribute.String("request_id", id))

	if err := actor.Require(allRoles...); err != nil {
		return nil, err
	}
	if _, err := categoryScope(actor); err != nil {
		return nil, err
	}
	if err := validateID(id, domain.ErrInvalidRequestID); err != nil {
		return nil, err
	}

	request, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.attachBookings(ctx, []*domain.BookingRequest{request}); err != nil {
		return nil, err
	}
	if !request.VisibleTo(actor) {
		return nil, domain.ErrForbidden
	}
	return request, nil
}

// UpdateRequestStatus overrides the status of a request. Setting the current status is a no-op.
func (s *requestService) UpdateRequestStatus(ctx context.Context, actor *domain.Actor, id string, req *dto.UpdateRequestStatusRequest) (*domain.BookingRequest, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.request.update_status")
	defer span.End()
	span.SetAttributes(attribute.String("request_id", id))

	if err := actor.Require(domain.RoleCategoryManager, domain.RoleDMPManager); err != nil {
		return nil, err
	}
	if _, err := categoryScope(actor); err != nil {
		return nil, err
	}
	if err := validateID(id, domain.ErrInvalidRequestID); err != nil {
		return nil, err
	}
	status, err := domain.ParseRequestStatus(req.Status)
	if err != nil {
		return nil, err
	}

	var request *domain.BookingRequest
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		request, err = s.requests.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := s.attachBookings(ctx, []*domain.BookingRequest{request}); err != nil {
			return err
		}
		if !request.VisibleTo(actor) {
			return domain.ErrForbidden
		}
		if request.Status == status {
			return nil
		}

		now := s.now()
		prev := request.Status
		request.Status = status
		request.UpdatedAt = now
		if err := s.requests.UpdateStatus(ctx, request); err != nil {
			return err
		}

		msg, err := outboxMessage(domain.AggregateBookingRequest, request.ID, domain.EventRequestStatusChanged, domain.RequestStatusChangedEvent{
			RequestID: request.ID,
			From:      prev,
			To:        status,
			ActorID:   actor.UserID,
			ChangedAt: now,
		}, now)
		if err != nil {
			return err
		}
		if err := s.outbox.Create(ctx, msg); err != nil {
			return err
		}

		s.log.InfoContext(ctx, "booking request status overridden",
			zap.String("request_id", request.ID),
			zap.String("from", prev.String()),
			zap.String("to", status.String()),
			zap.String("actor_id", actor.UserID),
		)
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return request, nil
}

func (s *requestService) attachBookings(ctx context.Context, requests []*domain.BookingRequest) error {
	if len(requests) == 0 {
		return nil
	}
	ids := make([]string, len(requests))
	for i, r := range requests {
		ids[i] = r.ID
	}
	children, err := s.bookings.ListByRequests(ctx, ids)
	if err != nil {
		return err
	}
	for _, r := range requests {
		r.Bookings = children[r.ID]
	}
	return nil
}
