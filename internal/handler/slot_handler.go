package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lexcal-api/internal/dto"
	"github.com/noah-isme/lexcal-api/internal/models"
	"github.com/noah-isme/lexcal-api/pkg/response"
)

type slotService interface {
	SuggestForActor(ctx context.Context, actor models.Actor, query dto.SuggestTimesQuery) (*models.SlotSuggestionResponse, error)
	Alternatives(ctx context.Context, actor models.Actor, eventID string) ([]models.AlternativeSuggestion, error)
}

// SlotHandler exposes free-slot suggestions.
type SlotHandler struct {
	slots slotService
}

// NewSlotHandler constructs a slot handler.
func NewSlotHandler(slots slotService) *SlotHandler {
	return &SlotHandler{slots: slots}
}

// SuggestTimes godoc
// @Summary Suggest free time slots on a date
// @Description Returns 30 minute aligned windows between 08:00 and 17:00. Court event types list morning slots first.
// @Tags Scheduling
// @Produce json
// @Param date query string true "Date (YYYY-MM-DD)"
// @Param duration query int false "Duration in minutes" default(60)
// @Param event_type query string false "Event type"
// @Param user_id query string false "Calendar owner (admins only)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /events/suggest-times [get]
func (h *SlotHandler) SuggestTimes(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var query dto.SuggestTimesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, bindError(err, "invalid query parameters"))
		return
	}
	resp, err := h.slots.SuggestForActor(c.Request.Context(), actor, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp)
}

// Alternatives godoc
// @Summary Suggest alternative times for a flexible event
// @Tags Scheduling
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /events/{id}/alternatives [get]
func (h *SlotHandler) Alternatives(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	alts, err := h.slots.Alternatives(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, alts)
}
