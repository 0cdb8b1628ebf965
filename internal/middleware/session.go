package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/opscheck/checklist-api/internal/service"
	appErrors "github.com/opscheck/checklist-api/pkg/errors"
	"github.com/opscheck/checklist-api/pkg/response"
)

// ContextEmployeeKey is the gin context key storing the authenticated employee.
const ContextEmployeeKey = "currentEmployee"

// EmployeeSession requires a valid opaque session cookie and attaches the
// employee to the context.
func EmployeeSession(employees *service.EmployeeService, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(cookieName)
		if err != nil || token == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "missing session"))
			c.Abort()
			return
		}

		employee, err := employees.WhoAmI(c.Request.Context(), token)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextEmployeeKey, employee)
		c.Next()
	}
}

// OptionalEmployeeSession attaches the employee when the cookie resolves but
// does not block.
func OptionalEmployeeSession(employees *service.EmployeeService, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(cookieName)
		if err != nil || token == "" {
			c.Next()
			return
		}

		employee, err := employees.WhoAmI(c.Request.Context(), token)
		if err != nil {
			c.Next()
			return
		}

		c.Set(ContextEmployeeKey, employee)
		c.Next()
	}
}
