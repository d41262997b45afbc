package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"arts/api/internal/models"
)

// RequireRoles gates a route to the given roles. Review routes take
// ophthalmologist and admin; intake takes technician and admin.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	roleSet := make(map[models.UserRole]struct{}, len(roles))
	for _, role := range roles {
		roleSet[role] = struct{}{}
	}

	return func(c *gin.Context) {
		principal, ok := CurrentPrincipal(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		if _, ok := roleSet[principal.Role]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}

		c.Next()
	}
}

// CurrentPrincipal reads the authenticated identity set by Auth.
func CurrentPrincipal(c *gin.Context) (models.Principal, bool) {
	val, exists := c.Get(ContextPrincipal)
	if !exists {
		return models.Principal{}, false
	}
	principal, ok := val.(models.Principal)
	return principal, ok
}
