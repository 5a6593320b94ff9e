package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/prohmpiriya/shelf-booking/internal/domain"
	"github.com/prohmpiriya/shelf-booking/pkg/response"
)

// RequireRole lets the request through only for active callers holding one of roles
func RequireRole(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := GetActor(c)
		if actor == nil {
			response.Unauthorized(c, "authentication required")
			return
		}
		if err := actor.Require(roles...); err != nil {
			response.Forbidden(c, err.Error())
			return
		}
		c.Next()
	}
}
