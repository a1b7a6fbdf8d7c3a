package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lexcal-api/internal/dto"
	"github.com/noah-isme/lexcal-api/internal/models"
	appErrors "github.com/noah-isme/lexcal-api/pkg/errors"
	"github.com/noah-isme/lexcal-api/pkg/response"
)

const maxImportBytes = 2 << 20

type exportService interface {
	Export(ctx context.Context, actor models.Actor, query dto.ExportQuery) (*dto.ExportFile, error)
	IssueFeedToken(actor models.Actor) (*dto.FeedTokenResponse, error)
	Feed(ctx context.Context, token string) (*dto.ExportFile, error)
	Import(ctx context.Context, actor models.Actor, body []byte) (*dto.ImportResult, error)
}

// ExportHandler exposes agenda downloads, subscription feeds and imports.
type ExportHandler struct {
	exports exportService
}

// NewExportHandler constructs an export handler.
func NewExportHandler(exports exportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// Export godoc
// @Summary Download the agenda
// @Tags Exports
// @Produce octet-stream
// @Param from query string true "First date (YYYY-MM-DD)"
// @Param to query string true "Last date, inclusive (YYYY-MM-DD)"
// @Param format query string false "ics, csv or pdf" Enums(ics, csv, pdf)
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /exports/agenda [get]
func (h *ExportHandler) Export(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var query dto.ExportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, bindError(err, "invalid query parameters"))
		return
	}
	file, err := h.exports.Export(c.Request.Context(), actor, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}

// FeedToken godoc
// @Summary Create a calendar subscription URL
// @Tags Exports
// @Produce json
// @Success 201 {object} response.Envelope
// @Router /feeds/token [post]
func (h *ExportHandler) FeedToken(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	resp, err := h.exports.IssueFeedToken(actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, resp)
}

// Feed godoc
// @Summary Subscription feed
// @Description Authenticated by the signed token in the path.
// @Tags Exports
// @Produce plain
// @Param token path string true "Feed token"
// @Success 200 {file} file
// @Failure 401 {object} response.Envelope
// @Router /feeds/{token} [get]
func (h *ExportHandler) Feed(c *gin.Context) {
	file, err := h.exports.Feed(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `inline; filename="`+file.Filename+`"`)
	c.Data(http.StatusOK, file.ContentType, file.Body)
}

// Import godoc
// @Summary Import events from an .ics file
// @Tags Exports
// @Accept mpfd
// @Produce json
// @Param file formData file true "iCalendar file"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /imports/ics [post]
func (h *ExportHandler) Import(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, bindError(err, "file is required"))
		return
	}
	if header.Size > maxImportBytes {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file exceeds 2 MiB"))
		return
	}
	f, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Internal(err, "failed to open upload"))
		return
	}
	defer f.Close()
	body, err := io.ReadAll(io.LimitReader(f, maxImportBytes))
	if err != nil {
		response.Error(c, appErrors.Internal(err, "failed to read upload"))
		return
	}

	result, err := h.exports.Import(c.Request.Context(), actor, body)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}
