package handler

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"

	"github.com/prohmpiriya/shelf-booking/internal/dto"
	"github.com/prohmpiriya/shelf-booking/internal/middleware"
	"github.com/prohmpiriya/shelf-booking/internal/service"
	"github.com/prohmpiriya/shelf-booking/pkg/response"
	"github.com/prohmpiriya/shelf-booking/pkg/telemetry"
)

// RequestHandler handles booking request HTTP requests
type RequestHandler struct {
	requestService service.RequestService
}

// NewRequestHandler creates a new RequestHandler
func NewRequestHandler(requestService service.RequestService) *RequestHandler {
	return &RequestHandler{requestService: requestService}
}

// List handles GET /requests
func (h *RequestHandler) List(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.request.list")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	var filter dto.RequestListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		bindError(c, span, err)
		return
	}

	requests, total, err := h.requestService.ListRequests(ctx, middleware.GetActor(c), &filter)
	if err != nil {
		handleError(c, span, err)
		return
	}
	response.Paginated(c, requests, response.NewMeta(filter.Page, filter.Limit, total))
}

// Get handles GET /requests/:id
func (h *RequestHandler) Get(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.request.get")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	id := c.Param("id")
	span.SetAttributes(attribute.String("request_id", id))

	request, err := h.requestService.GetRequest(ctx, middleware.GetActor(c), id)
	if err != nil {
		handleError(c, span, err)
		return
	}
	response.Success(c, request)
}

// UpdateStatus handles PATCH /requests/:id
func (h *RequestHandler) UpdateStatus(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.request.update_status")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	id := c.Param("id")
	span.SetAttributes(attribute.String("request_id", id))

	var req dto.UpdateRequestStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, span, err)
		return
	}

	request, err := h.requestService.UpdateRequestStatus(ctx, middleware.GetActor(c), id, &req)
	if err != nil {
		handleError(c, span, err)
		return
	}
	response.Success(c, request)
}
