package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/padel-waitlist-api/internal/models"
	appErrors "github.com/noah-isme/padel-waitlist-api/pkg/errors"
	"github.com/noah-isme/padel-waitlist-api/pkg/response"
)

// RBAC enforces role-based access control for routes.
func RBAC(allowed ...models.UserRole) gin.HandlerFunc {
	allowedRoles := make(map[models.UserRole]struct{}, len(allowed))
	for _, role := range allowed {
		allowedRoles[role] = struct{}{}
	}

	return func(c *gin.Context) {
		claims := CurrentUser(c)
		if claims == nil {
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

// RequireStaff admits administrators and trainers.
func RequireStaff() gin.HandlerFunc {
	return RBAC(models.RoleAdmin, models.RoleTrainer)
}
