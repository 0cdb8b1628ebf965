package handler

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/opscheck/checklist-api/internal/middleware"
	"github.com/opscheck/checklist-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

func employeeFromContext(c *gin.Context) *models.Employee {
	value, exists := c.Get(middleware.ContextEmployeeKey)
	if !exists {
		return nil
	}
	employee, ok := value.(*models.Employee)
	if !ok {
		return nil
	}
	return employee
}

func pageParams(c *gin.Context) (int, int) {
	page := 1
	size := 20
	if v, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		page = v
	}
	if v, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		size = v
	}
	return page, size
}

func boolQuery(c *gin.Context, name string) *bool {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &v
}

func timeQuery(c *gin.Context, name string) *time.Time {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return &t
	}
	return nil
}

// upperTimeQuery parses an upper-bound time filter. A bare date names the
// whole day, so the bound extends to the last instant of that date; the range
// stays inclusive under a <= comparison.
func upperTimeQuery(c *gin.Context, name string) *time.Time {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		t = t.Add(24*time.Hour - time.Nanosecond)
		return &t
	}
	return nil
}
