package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"arts/api/internal/config"
	"arts/api/internal/security"
	"arts/api/internal/session"
)

const (
	ContextPrincipal = "current_principal"
	ContextClaims    = "access_claims"
)

// Auth validates the bearer token and the inactivity window of the session
// it names. Every request passing through counts as activity and refreshes
// the window.
func Auth(cfg *config.AppConfig, sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing_token"})
			return
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

		claims, err := security.ParseAccessToken(tokenStr, cfg.Security.JWTSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_token"})
			return
		}

		entry, err := sessions.Validate(claims.SessionID)
		if err != nil {
			code := "session_not_found"
			if errors.Is(err, session.ErrSessionExpired) {
				code = "session_expired"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": code})
			return
		}

		if entry.Principal.ID != claims.UserID {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session_mismatch"})
			return
		}

		if err := sessions.Touch(c.Request.Context(), entry.ID); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session_not_found"})
			return
		}

		c.Set(ContextClaims, *claims)
		c.Set(ContextPrincipal, entry.Principal)

		c.Next()
	}
}
