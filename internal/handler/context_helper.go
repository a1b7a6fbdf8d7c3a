package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lexcal-api/internal/middleware"
	"github.com/noah-isme/lexcal-api/internal/models"
	appErrors "github.com/noah-isme/lexcal-api/pkg/errors"
	"github.com/noah-isme/lexcal-api/pkg/response"
)

// requireActor returns the authenticated caller or writes 401.
func requireActor(c *gin.Context) (models.Actor, bool) {
	actor, ok := middleware.CurrentActor(c)
	if !ok || actor.UserID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return models.Actor{}, false
	}
	return actor, true
}

func bindError(err error, message string) error {
	return appErrors.Validation(err, message)
}
