package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lexcal-api/internal/models"
	appErrors "github.com/noah-isme/lexcal-api/pkg/errors"
	"github.com/noah-isme/lexcal-api/pkg/response"
)

// ContextActorKey is the gin context key holding the authenticated Actor.
const ContextActorKey = "lexcal.actor"

// TokenValidator verifies access tokens.
type TokenValidator interface {
	ValidateToken(token string) (*models.JWTClaims, error)
}

// JWT requires a bearer token and attaches the calendar owner it names.
func JWT(tokens TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			deny(c, appErrors.Clone(appErrors.ErrUnauthorized, "bearer token required"))
			return
		}

		claims, err := tokens.ValidateToken(token)
		if err != nil {
			deny(c, err)
			return
		}
		actor := models.ActorFromClaims(claims)
		if actor.UserID == "" {
			deny(c, appErrors.Clone(appErrors.ErrUnauthorized, "token has no subject"))
			return
		}

		SetActor(c, actor)
		c.Next()
	}
}

// SetActor attaches actor to the request.
func SetActor(c *gin.Context, actor models.Actor) {
	c.Set(ContextActorKey, actor)
}

// CurrentActor returns the caller attached by JWT, if any.
func CurrentActor(c *gin.Context) (models.Actor, bool) {
	value, exists := c.Get(ContextActorKey)
	if !exists {
		return models.Actor{}, false
	}
	actor, ok := value.(models.Actor)
	return actor, ok && actor.UserID != ""
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func deny(c *gin.Context, err error) {
	c.Header("WWW-Authenticate", `Bearer realm="lexcal"`)
	response.Error(c, err)
	c.Abort()
}
