package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/opscheck/checklist-api/internal/models"
	"github.com/opscheck/checklist-api/internal/service"
	appErrors "github.com/opscheck/checklist-api/pkg/errors"
	"github.com/opscheck/checklist-api/pkg/response"
)

// RunHandler handles run lifecycle and response endpoints.
type RunHandler struct {
	runs      *service.RunService
	responses *service.ResponseService
}

// NewRunHandler constructs a run handler.
func NewRunHandler(runs *service.RunService, responses *service.ResponseService) *RunHandler {
	return &RunHandler{runs: runs, responses: responses}
}

// List godoc
// @Summary List runs
// @Tags Runs
// @Produce json
// @Param status query string false "Filter by status"
// @Param template_id query string false "Filter by template"
// @Param from query string false "Created at or after (RFC3339 or YYYY-MM-DD)"
// @Param to query string false "Created at or before (RFC3339 or YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /runs [get]
func (h *RunHandler) List(c *gin.Context) {
	filter := runFilterFromQuery(c)

	runs, pagination, err := h.runs.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, runs, pagination)
}

// Get godoc
// @Summary Get run
// @Tags Runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} response.Envelope
// @Router /runs/{id} [get]
func (h *RunHandler) Get(c *gin.Context) {
	run, err := h.runs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, run, nil)
}

// Start godoc
// @Summary Start run
// @Description Opens a new in-progress run against an active template
// @Tags Runs
// @Accept json
// @Produce json
// @Param payload body service.StartRunRequest true "Run payload"
// @Success 201 {object} response.Envelope
// @Router /runs [post]
func (h *RunHandler) Start(c *gin.Context) {
	var req service.StartRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if employee := employeeFromContext(c); employee != nil {
		req.EmployeeID = &employee.ID
	}

	run, err := h.runs.Start(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, run)
}

// Submit godoc
// @Summary Submit run
// @Description Moves an in-progress run to submitted
// @Tags Runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /runs/{id}/submit [post]
func (h *RunHandler) Submit(c *gin.Context) {
	run, err := h.runs.Submit(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, run, nil)
}

// Approve godoc
// @Summary Approve run
// @Description Moves a submitted run to approved. Admin or manager only.
// @Tags Runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /runs/{id}/approve [post]
func (h *RunHandler) Approve(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	run, err := h.runs.Approve(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, run, nil)
}

// Reopen godoc
// @Summary Reopen run
// @Description Moves an approved run back to in progress. Admin or manager only.
// @Tags Runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /runs/{id}/reopen [post]
func (h *RunHandler) Reopen(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	run, err := h.runs.Reopen(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, run, nil)
}

// UpsertResponse godoc
// @Summary Record response
// @Description Writes the current value for an item within an in-progress run
// @Tags Runs
// @Accept json
// @Produce json
// @Param id path string true "Run ID"
// @Param payload body service.UpsertResponseRequest true "Response payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /runs/{id}/responses [put]
func (h *RunHandler) UpsertResponse(c *gin.Context) {
	var req service.UpsertResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	resp, err := h.responses.Upsert(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}

// ListResponses godoc
// @Summary List run responses
// @Tags Runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} response.Envelope
// @Router /runs/{id}/responses [get]
func (h *RunHandler) ListResponses(c *gin.Context) {
	responses, err := h.responses.ListByRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, responses, nil)
}

func runFilterFromQuery(c *gin.Context) models.RunFilter {
	var filter models.RunFilter
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status := models.RunStatus(raw)
		filter.Status = &status
	}
	filter.TemplateID = strings.TrimSpace(c.Query("template_id"))
	filter.From = timeQuery(c, "from")
	filter.To = upperTimeQuery(c, "to")
	filter.Page, filter.PageSize = pageParams(c)
	return filter
}
