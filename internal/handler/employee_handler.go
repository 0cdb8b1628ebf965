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

// EmployeeHandler handles employee administration and PIN-pad sessions.
type EmployeeHandler struct {
	service    *service.EmployeeService
	cookieName string
	secure     bool
}

// NewEmployeeHandler constructs an employee handler.
func NewEmployeeHandler(svc *service.EmployeeService, cookieName string, secure bool) *EmployeeHandler {
	return &EmployeeHandler{service: svc, cookieName: cookieName, secure: secure}
}

// List godoc
// @Summary List employees
// @Tags Employees
// @Produce json
// @Param active query bool false "Filter by active flag"
// @Param search query string false "Search keyword"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /employees [get]
func (h *EmployeeHandler) List(c *gin.Context) {
	var filter models.EmployeeFilter
	filter.Active = boolQuery(c, "active")
	filter.Search = strings.TrimSpace(c.Query("search"))
	filter.Page, filter.PageSize = pageParams(c)

	employees, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, employees, pagination)
}

// Get godoc
// @Summary Get employee
// @Tags Employees
// @Produce json
// @Param id path string true "Employee ID"
// @Success 200 {object} response.Envelope
// @Router /employees/{id} [get]
func (h *EmployeeHandler) Get(c *gin.Context) {
	employee, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, employee, nil)
}

// Create godoc
// @Summary Create employee
// @Tags Employees
// @Accept json
// @Produce json
// @Param payload body service.CreateEmployeeRequest true "Employee payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /employees [post]
func (h *EmployeeHandler) Create(c *gin.Context) {
	var req service.CreateEmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	employee, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, employee)
}

// Update godoc
// @Summary Update employee
// @Tags Employees
// @Accept json
// @Produce json
// @Param id path string true "Employee ID"
// @Param payload body service.UpdateEmployeeRequest true "Employee payload"
// @Success 200 {object} response.Envelope
// @Router /employees/{id} [patch]
func (h *EmployeeHandler) Update(c *gin.Context) {
	var req service.UpdateEmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	employee, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, employee, nil)
}

// ResetPIN godoc
// @Summary Reset employee PIN
// @Tags Employees
// @Accept json
// @Produce json
// @Param id path string true "Employee ID"
// @Param payload body map[string]string true "New PIN"
// @Success 204
// @Failure 400 {object} response.Envelope
// @Router /employees/{id}/pin [put]
func (h *EmployeeHandler) ResetPIN(c *gin.Context) {
	var payload struct {
		PIN string `json:"pin" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "pin required"))
		return
	}
	if err := h.service.ResetPIN(c.Request.Context(), c.Param("id"), payload.PIN); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Login godoc
// @Summary Employee PIN login
// @Description Verifies code and PIN, sets the opaque session cookie
// @Tags Employees
// @Accept json
// @Produce json
// @Param payload body models.EmployeeLoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /employee-session [post]
func (h *EmployeeHandler) Login(c *gin.Context) {
	var req models.EmployeeLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}

	session, employee, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	maxAge := int(session.ExpiresAt.Sub(session.CreatedAt).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookieName, session.Token, maxAge, "/", "", h.secure, true)

	response.JSON(c, http.StatusOK, employee, nil)
}

// WhoAmI godoc
// @Summary Current employee
// @Description Resolves the session cookie to its employee
// @Tags Employees
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /whoami [get]
func (h *EmployeeHandler) WhoAmI(c *gin.Context) {
	token, _ := c.Cookie(h.cookieName)
	employee, err := h.service.WhoAmI(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, employee, nil)
}

// Logout godoc
// @Summary Employee logout
// @Description Discards the session and clears the cookie
// @Tags Employees
// @Produce json
// @Success 204
// @Router /employee-session [delete]
func (h *EmployeeHandler) Logout(c *gin.Context) {
	token, _ := c.Cookie(h.cookieName)
	if err := h.service.Logout(c.Request.Context(), token); err != nil {
		response.Error(c, err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookieName, "", -1, "/", "", h.secure, true)
	response.NoContent(c)
}
