package handler

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/opscheck/checklist-api/internal/models"
	"github.com/opscheck/checklist-api/internal/service"
	appErrors "github.com/opscheck/checklist-api/pkg/errors"
	"github.com/opscheck/checklist-api/pkg/response"
)

// ExportHandler handles asynchronous export endpoints.
type ExportHandler struct {
	service *service.ExportService
}

// NewExportHandler constructs an export handler.
func NewExportHandler(svc *service.ExportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// Create godoc
// @Summary Request export
// @Description Queues a CSV or PDF export of review data
// @Tags Exports
// @Accept json
// @Produce json
// @Param payload body service.CreateExportRequest true "Export payload"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /exports [post]
func (h *ExportHandler) Create(c *gin.Context) {
	var req service.CreateExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	requestedBy := ""
	if claims := claimsFromContext(c); claims != nil {
		requestedBy = claims.UserID
	}

	job, err := h.service.Create(c.Request.Context(), requestedBy, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, job, nil)
}

// Status godoc
// @Summary Export status
// @Description Returns job state and, once completed, a signed download token
// @Tags Exports
// @Produce json
// @Param id path string true "Export job ID"
// @Success 200 {object} response.Envelope
// @Router /exports/{id} [get]
func (h *ExportHandler) Status(c *gin.Context) {
	result, err := h.service.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Download godoc
// @Summary Download export
// @Description Streams the rendered file for a valid signed token
// @Tags Exports
// @Produce octet-stream
// @Param token query string true "Signed download token"
// @Success 200
// @Failure 401 {object} response.Envelope
// @Router /exports/download [get]
func (h *ExportHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token required"))
		return
	}

	file, job, err := h.service.Download(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	contentType := "text/csv"
	if job.Format == models.ExportFormatPDF {
		contentType = "application/pdf"
	}
	filename := fmt.Sprintf("export-%s.%s", job.ID, job.Format)

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("Content-Type", contentType)
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, file); err != nil {
		_ = c.Error(err)
	}
}
