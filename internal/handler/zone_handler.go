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

// ZoneHandler handles zone registry HTTP requests
type ZoneHandler struct {
	zoneService service.ZoneService
}

// NewZoneHandler creates a new ZoneHandler
func NewZoneHandler(zoneService service.ZoneService) *ZoneHandler {
	return &ZoneHandler{zoneService: zoneService}
}

// List handles GET /zones
func (h *ZoneHandler) List(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.zone.list")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	var filter dto.ZoneListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		bindError(c, span, err)
		return
	}

	page, err := h.zoneService.ListZones(ctx, middleware.GetActor(c), &filter)
	if err != nil {
		handleError(c, span, err)
		return
	}

	span.SetAttributes(attribute.Int64("total", page.Total))
	span.SetStatus(codes.Ok, "")
	response.Paginated(c, page.Zones, response.NewMeta(page.Page, page.Limit, page.Total))
}

// Get handles GET /zones/:id
func (h *ZoneHandler) Get(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.zone.get")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	id := c.Param("id")
	span.SetAttributes(attribute.String("zone_id", id))

	zone, err := h.zoneService.GetZone(ctx, middleware.GetActor(c), id)
	if err != nil {
		handleError(c, span, err)
		return
	}
	response.Success(c, zone)
}

// FilterOptions handles GET /zones/filter-options
func (h *ZoneHandler) FilterOptions(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.zone.filter_options")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	opts, err := h.zoneService.FilterOptions(ctx, middleware.GetActor(c))
	if err != nil {
		handleError(c, span, err)
		return
	}
	response.Success(c, opts)
}

// UpdateStatus handles PATCH /zones/:id/status
func (h *ZoneHandler) UpdateStatus(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.zone.update_status")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	id := c.Param("id")
	span.SetAttributes(attribute.String("zone_id", id))

	var req dto.UpdateZoneStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, span, err)
		return
	}

	zone, err := h.zoneService.UpdateZoneStatus(ctx, middleware.GetActor(c), id, &req)
	if err != nil {
		handleError(c, span, err)
		return
	}
	response.Success(c, zone)
}

// Claim handles PATCH /zones/:id
func (h *ZoneHandler) Claim(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.zone.claim")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	id := c.Param("id")
	span.SetAttributes(attribute.String("zone_id", id))

	var req dto.ClaimZoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, span, err)
		return
	}

	zone, err := h.zoneService.ClaimZone(ctx, middleware.GetActor(c), id, &req)
	if err != nil {
		handleError(c, span, err)
		return
	}
	response.Success(c, zone)
}

// BulkUpdate handles POST /zones/bulk-update
func (h *ZoneHandler) BulkUpdate(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.zone.bulk_update")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	var req dto.BulkUpdateZonesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, span, err)
		return
	}

	n, err := h.zoneService.BulkUpdateStatus(ctx, middleware.GetActor(c), &req)
	if err != nil {
		handleError(c, span, err)
		return
	}
	response.Success(c, dto.BulkResult{Count: n})
}

// BulkDelete handles DELETE /zones/bulk-delete
func (h *ZoneHandler) BulkDelete(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.zone.bulk_delete")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	var req dto.BulkDeleteZonesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, span, err)
		return
	}

	n, err := h.zoneService.BulkDelete(ctx, middleware.GetActor(c), &req)
	if err != nil {
		handleError(c, span, err)
		return
	}
	response.Success(c, dto.BulkResult{Count: n})
}

// Import handles POST /zones/import
func (h *ZoneHandler) Import(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.zone.import")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	var req dto.ImportZonesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, span, err)
		return
	}

	result, err := h.zoneService.ImportZones(ctx, middleware.GetActor(c), &req)
	if err != nil {
		handleError(c, span, err)
		return
	}
	response.Success(c, result)
}

// Export handles GET /zones/export
func (h *ZoneHandler) Export(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.zone.export")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	var filter dto.ZoneListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		bindError(c, span, err)
		return
	}

	rows, err := h.zoneService.ExportZones(ctx, middleware.GetActor(c), &filter)
	if err != nil {
		handleError(c, span, err)
		return
	}
	span.SetAttributes(attribute.Int("rows", len(rows)))
	response.Success(c, rows)
}
