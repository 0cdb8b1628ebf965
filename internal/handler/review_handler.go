package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/opscheck/checklist-api/internal/service"
	"github.com/opscheck/checklist-api/pkg/response"
)

// ReviewHandler handles the read-side review endpoints.
type ReviewHandler struct {
	service *service.ReviewService
}

// NewReviewHandler constructs a review handler.
func NewReviewHandler(svc *service.ReviewService) *ReviewHandler {
	return &ReviewHandler{service: svc}
}

// ListRuns godoc
// @Summary List runs for review
// @Description Returns the review feed, served from cache when warm
// @Tags Review
// @Produce json
// @Param status query string false "Filter by status"
// @Param template_id query string false "Filter by template"
// @Param from query string false "Created at or after (RFC3339 or YYYY-MM-DD)"
// @Param to query string false "Created at or before (RFC3339 or YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /review/runs [get]
func (h *ReviewHandler) ListRuns(c *gin.Context) {
	result, err := h.service.ListRuns(c.Request.Context(), runFilterFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result.Runs, &result.Pagination)
}

// GetRun godoc
// @Summary Get run review
// @Description Returns a run's responses grouped by section in display order
// @Tags Review
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} response.Envelope
// @Router /review/runs/{id} [get]
func (h *ReviewHandler) GetRun(c *gin.Context) {
	review, err := h.service.GetRunReview(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, review, nil)
}
