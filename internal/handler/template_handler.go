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

// TemplateHandler handles checklist template catalog endpoints.
type TemplateHandler struct {
	service *service.TemplateService
}

// NewTemplateHandler constructs a template handler.
func NewTemplateHandler(svc *service.TemplateService) *TemplateHandler {
	return &TemplateHandler{service: svc}
}

// List godoc
// @Summary List templates
// @Tags Templates
// @Produce json
// @Param active query bool false "Filter by active flag"
// @Param search query string false "Search keyword"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /templates [get]
func (h *TemplateHandler) List(c *gin.Context) {
	var filter models.TemplateFilter
	filter.Active = boolQuery(c, "active")
	filter.Search = strings.TrimSpace(c.Query("search"))
	filter.Page, filter.PageSize = pageParams(c)

	templates, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, templates, pagination)
}

// Get godoc
// @Summary Get template detail
// @Description Returns a template with its ordered sections and items
// @Tags Templates
// @Produce json
// @Param id path string true "Template ID"
// @Success 200 {object} response.Envelope
// @Router /templates/{id} [get]
func (h *TemplateHandler) Get(c *gin.Context) {
	detail, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Create godoc
// @Summary Create template
// @Tags Templates
// @Accept json
// @Produce json
// @Param payload body service.CreateTemplateRequest true "Template payload"
// @Success 201 {object} response.Envelope
// @Router /templates [post]
func (h *TemplateHandler) Create(c *gin.Context) {
	var req service.CreateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	template, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, template)
}

// Update godoc
// @Summary Rename or toggle template
// @Tags Templates
// @Accept json
// @Produce json
// @Param id path string true "Template ID"
// @Param payload body service.UpdateTemplateRequest true "Template payload"
// @Success 200 {object} response.Envelope
// @Router /templates/{id} [patch]
func (h *TemplateHandler) Update(c *gin.Context) {
	var req service.UpdateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	template, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, template, nil)
}

// Delete godoc
// @Summary Delete template
// @Description Deletes a template and its sections and items. Blocked when runs reference it.
// @Tags Templates
// @Produce json
// @Param id path string true "Template ID"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Router /templates/{id} [delete]
func (h *TemplateHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AddSection godoc
// @Summary Add section
// @Tags Templates
// @Accept json
// @Produce json
// @Param id path string true "Template ID"
// @Param payload body service.AddSectionRequest true "Section payload"
// @Success 201 {object} response.Envelope
// @Router /templates/{id}/sections [post]
func (h *TemplateHandler) AddSection(c *gin.Context) {
	var req service.AddSectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	section, err := h.service.AddSection(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, section)
}

// DeleteSection godoc
// @Summary Delete section
// @Tags Templates
// @Produce json
// @Param sectionId path string true "Section ID"
// @Success 204
// @Router /sections/{sectionId} [delete]
func (h *TemplateHandler) DeleteSection(c *gin.Context) {
	if err := h.service.DeleteSection(c.Request.Context(), c.Param("sectionId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AddItem godoc
// @Summary Add item to section
// @Tags Templates
// @Accept json
// @Produce json
// @Param sectionId path string true "Section ID"
// @Param payload body service.AddItemRequest true "Item payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /sections/{sectionId}/items [post]
func (h *TemplateHandler) AddItem(c *gin.Context) {
	var req service.AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	item, err := h.service.AddItem(c.Request.Context(), c.Param("sectionId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// DeleteItem godoc
// @Summary Delete item
// @Tags Templates
// @Produce json
// @Param itemId path string true "Item ID"
// @Success 204
// @Router /items/{itemId} [delete]
func (h *TemplateHandler) DeleteItem(c *gin.Context) {
	if err := h.service.DeleteItem(c.Request.Context(), c.Param("itemId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
