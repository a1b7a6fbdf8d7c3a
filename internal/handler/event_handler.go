package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lexcal-api/internal/dto"
	"github.com/noah-isme/lexcal-api/internal/middleware"
	"github.com/noah-isme/lexcal-api/internal/models"
	"github.com/noah-isme/lexcal-api/pkg/response"
)

type eventService interface {
	List(ctx context.Context, actor models.Actor, query dto.EventQuery) ([]models.Event, error)
	Get(ctx context.Context, actor models.Actor, id string) (*models.Event, error)
	Create(ctx context.Context, actor models.Actor, req dto.CreateEventRequest) (*dto.EventResult, error)
	Update(ctx context.Context, actor models.Actor, id string, req dto.UpdateEventRequest) (*dto.EventResult, error)
	Delete(ctx context.Context, actor models.Actor, id string) error
	Resolve(ctx context.Context, actor models.Actor, id string) (*models.Event, error)
	Children(ctx context.Context, actor models.Actor, id string) ([]models.Event, error)
}

// EventHandler exposes /events endpoints.
type EventHandler struct {
	events eventService
}

// NewEventHandler constructs an event handler.
func NewEventHandler(events eventService) *EventHandler {
	return &EventHandler{events: events}
}

// List godoc
// @Summary List events in a date range
// @Tags Events
// @Produce json
// @Param from query string true "First date (YYYY-MM-DD)"
// @Param to query string true "Last date, inclusive (YYYY-MM-DD)"
// @Param user_id query string false "Calendar owner (admins only)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /events [get]
func (h *EventHandler) List(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var query dto.EventQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, bindError(err, "invalid query parameters"))
		return
	}
	events, err := h.events.List(c.Request.Context(), actor, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, "count", len(events))
	response.JSON(c, http.StatusOK, events, middleware.ExtractMeta(c))
}

// Get godoc
// @Summary Get an event
// @Tags Events
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /events/{id} [get]
func (h *EventHandler) Get(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	event, err := h.events.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, event)
}

// Create godoc
// @Summary Create an event or a recurring template
// @Description Conflicting events are stored and marked "potential". Recurring templates are expanded into child events.
// @Tags Events
// @Accept json
// @Produce json
// @Param payload body dto.CreateEventRequest true "Event payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /events [post]
func (h *EventHandler) Create(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req dto.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid event payload"))
		return
	}
	result, err := h.events.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Update godoc
// @Summary Update an event
// @Tags Events
// @Accept json
// @Produce json
// @Param id path string true "Event ID"
// @Param payload body dto.UpdateEventRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /events/{id} [patch]
func (h *EventHandler) Update(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req dto.UpdateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid event payload"))
		return
	}
	result, err := h.events.Update(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// Delete godoc
// @Summary Delete an event
// @Description Children of a recurring template are kept.
// @Tags Events
// @Param id path string true "Event ID"
// @Success 204
// @Router /events/{id} [delete]
func (h *EventHandler) Delete(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	if err := h.events.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Resolve godoc
// @Summary Mark an event's conflict as resolved
// @Tags Events
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /events/{id}/resolve [post]
func (h *EventHandler) Resolve(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	event, err := h.events.Resolve(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, event)
}

// Children godoc
// @Summary List events generated from a recurring template
// @Tags Events
// @Produce json
// @Param id path string true "Template event ID"
// @Success 200 {object} response.Envelope
// @Router /events/{id}/children [get]
func (h *EventHandler) Children(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	children, err := h.events.Children(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, children)
}
