package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/prohmpiriya/shelf-booking/internal/middleware"
	"github.com/prohmpiriya/shelf-booking/internal/service"
	"github.com/prohmpiriya/shelf-booking/pkg/response"
	"github.com/prohmpiriya/shelf-booking/pkg/telemetry"
)

// CacheHandler handles cache administration
type CacheHandler struct {
	zoneService service.ZoneService
}

// NewCacheHandler creates a new CacheHandler
func NewCacheHandler(zoneService service.ZoneService) *CacheHandler {
	return &CacheHandler{zoneService: zoneService}
}

// ClearZones handles POST /cache/clear-zones
func (h *CacheHandler) ClearZones(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.cache.clear_zones")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	if err := h.zoneService.ClearCache(ctx, middleware.GetActor(c)); err != nil {
		handleError(c, span, err)
		return
	}
	response.Success(c, gin.H{"cleared": true})
}
