package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lexcal-api/internal/models"
	appErrors "github.com/noah-isme/lexcal-api/pkg/errors"
	"github.com/noah-isme/lexcal-api/pkg/response"
)

// RequireRoles only lets callers holding one of roles through. It must run
// after JWT.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		actor, ok := CurrentActor(c)
		if !ok {
			deny(c, appErrors.ErrUnauthorized)
			return
		}
		if _, permitted := allowed[actor.Role]; !permitted {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "role "+string(actor.Role)+" may not use this operation"))
			c.Abort()
			return
		}
		c.Next()
	}
}
