package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/opscheck/checklist-api/internal/models"
	appErrors "github.com/opscheck/checklist-api/pkg/errors"
	"github.com/opscheck/checklist-api/pkg/response"
)

// RBAC gates routes on the role carried in the token claims. This is a fast
// first check only; privileged services re-resolve the actor's role from
// storage before mutating anything.
func RBAC(allowed ...models.UserRole) gin.HandlerFunc {
	allowedRoles := make(map[models.UserRole]struct{}, len(allowed))
	for _, role := range allowed {
		allowedRoles[role] = struct{}{}
	}

	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims, ok := claimsValue.(*models.JWTClaims)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		if _, ok := allowedRoles[claims.Role]; ok {
			c.Next()
			return
		}

		response.Error(c, appErrors.ErrForbidden)
		c.Abort()
	}
}

// RequirePrivileged admits admins and managers.
func RequirePrivileged() gin.HandlerFunc {
	return RBAC(models.RoleAdmin, models.RoleManager)
}

// RequireAdmin admits admins only.
func RequireAdmin() gin.HandlerFunc {
	return RBAC(models.RoleAdmin)
}
