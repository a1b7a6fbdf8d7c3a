package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lexcal-api/internal/dto"
	"github.com/noah-isme/lexcal-api/internal/models"
	appErrors "github.com/noah-isme/lexcal-api/pkg/errors"
	"github.com/noah-isme/lexcal-api/pkg/response"
)

type conflictService interface {
	List(ctx context.Context, actor models.Actor, query dto.ConflictQuery) ([]models.ConflictPair, error)
	ScanForActor(ctx context.Context, actor models.Actor, query dto.ConflictQuery) (*models.ScanSummary, error)
	RescanAll(ctx context.Context, days int) (*dto.RescanResult, error)
}

// ConflictHandler exposes conflict listing and scans.
type ConflictHandler struct {
	conflicts      conflictService
	defaultHorizon int
}

// NewConflictHandler constructs a conflict handler.
func NewConflictHandler(conflicts conflictService, defaultHorizon int) *ConflictHandler {
	return &ConflictHandler{conflicts: conflicts, defaultHorizon: defaultHorizon}
}

// List godoc
// @Summary List overlapping event pairs
// @Description Read-only; no conflict status is changed.
// @Tags Conflicts
// @Produce json
// @Param from query string true "First date (YYYY-MM-DD)"
// @Param to query string true "Last date, inclusive (YYYY-MM-DD)"
// @Param user_id query string false "Calendar owner (admins only)"
// @Success 200 {object} response.Envelope
// @Router /conflicts [get]
func (h *ConflictHandler) List(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var query dto.ConflictQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, bindError(err, "invalid query parameters"))
		return
	}
	pairs, err := h.conflicts.List(c.Request.Context(), actor, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, pairs)
}

// Scan godoc
// @Summary Scan a range and mark conflicting events
// @Tags Conflicts
// @Accept json
// @Produce json
// @Param payload body dto.ConflictQuery true "Range to scan"
// @Success 200 {object} response.Envelope
// @Router /conflicts/scan [post]
func (h *ConflictHandler) Scan(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var query dto.ConflictQuery
	if err := c.ShouldBindJSON(&query); err != nil {
		response.Error(c, bindError(err, "invalid scan payload"))
		return
	}
	summary, err := h.conflicts.ScanForActor(c.Request.Context(), actor, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary)
}

// Rescan godoc
// @Summary Rescan every user's upcoming events
// @Tags Admin
// @Produce json
// @Param days query int false "Horizon in days"
// @Success 200 {object} response.Envelope
// @Router /admin/conflicts/rescan [post]
func (h *ConflictHandler) Rescan(c *gin.Context) {
	days := h.defaultHorizon
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 366 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "days must be between 1 and 366"))
			return
		}
		days = parsed
	}
	result, err := h.conflicts.RescanAll(c.Request.Context(), days)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}
