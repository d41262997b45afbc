package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"arts/api/internal/middleware"
	"arts/api/internal/models"
	"arts/api/internal/security"
	"arts/api/internal/service"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginResponse struct {
	Success     bool              `json:"success"`
	Error       string            `json:"error,omitempty"`
	Token       string            `json:"token,omitempty"`
	SessionID   string            `json:"sessionId,omitempty"`
	RemainingMS int64             `json:"remainingMs,omitempty"`
	User        *models.Principal `json:"user,omitempty"`
}

func (h HandlerSet) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, loginResponse{Success: false, Error: err.Error()})
		return
	}

	result, err := h.authService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) || errors.Is(err, service.ErrInvalidPassword) {
			c.JSON(http.StatusUnauthorized, loginResponse{Success: false, Error: err.Error()})
			return
		}
		h.log.Error().Err(err).Msg("login failed")
		c.JSON(http.StatusInternalServerError, loginResponse{Success: false, Error: "internal error"})
		return
	}

	c.JSON(http.StatusOK, loginResponse{
		Success:     true,
		Token:       result.Token,
		SessionID:   result.SessionID,
		RemainingMS: result.Remaining.Milliseconds(),
		User:        &result.Principal,
	})
}

func (h HandlerSet) Logout(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	h.authService.Logout(c.Request.Context(), claims.SessionID)
	c.Status(http.StatusNoContent)
}

func (h HandlerSet) Me(c *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	claims, ok := currentClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_claims"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":        principal,
		"remainingMs": h.sessions.Remaining(claims.SessionID).Milliseconds(),
	})
}

func currentClaims(c *gin.Context) (security.AccessClaims, bool) {
	val, exists := c.Get(middleware.ContextClaims)
	if !exists {
		return security.AccessClaims{}, false
	}
	claims, ok := val.(security.AccessClaims)
	return claims, ok
}
