package handler

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/prohmpiriya/shelf-booking/internal/dto"
	"github.com/prohmpiriya/shelf-booking/internal/middleware"
	"github.com/prohmpiriya/shelf-booking/internal/service"
	"github.com/prohmpiriya/shelf-booking/pkg/response"
	"github.com/prohmpiriya/shelf-booking/pkg/telemetry"
)

// BookingHandler handles booking HTTP requests
type BookingHandler struct {
	bookingService  service.BookingService
	approvalService service.ApprovalService
}

// NewBookingHandler creates a new BookingHandler
func NewBookingHandler(bookingService service.BookingService, approvalService service.ApprovalService) *BookingHandler {
	return &BookingHandler{
		bookingService:  bookingService,
		approvalService: approvalService,
	}
}

// Create handles POST /bookings
func (h *BookingHandler) Create(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.booking.create")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	var req dto.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, span, err)
		return
	}
	span.SetAttributes(attribute.Int("zone_count", len(req.ZoneIDs)))

	request, err := h.bookingService.CreateBooking(ctx, middleware.GetActor(c), &req)
	if err != nil {
		handleError(c, span, err)
		return
	}

	span.SetAttributes(attribute.String("request_id", request.ID))
	span.SetStatus(codes.Ok, "")
	response.Created(c, request)
}

// Get handles GET /bookings/:id
func (h *BookingHandler) Get(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.booking.get")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	id := c.Param("id")
	span.SetAttributes(attribute.String("booking_id", id))

	booking, err := h.bookingService.GetBooking(ctx, middleware.GetActor(c), id)
	if err != nil {
		handleError(c, span, err)
		return
	}
	response.Success(c, booking)
}

// UpdateStatus handles PATCH /bookings/:id
func (h *BookingHandler) UpdateStatus(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.booking.update_status")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	id := c.Param("id")
	span.SetAttributes(attribute.String("booking_id", id))

	var req dto.UpdateBookingStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, span, err)
		return
	}

	result, err := h.approvalService.UpdateBookingStatus(ctx, middleware.GetActor(c), id, &req)
	if err != nil {
		handleError(c, span, err)
		return
	}

	span.SetAttributes(
		attribute.String("status", result.Booking.Status.String()),
		attribute.Bool("zone_released", result.ZoneReleased),
	)
	span.SetStatus(codes.Ok, "")
	response.Success(c, result)
}
