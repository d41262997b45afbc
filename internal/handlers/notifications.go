package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h HandlerSet) Notifications(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"notifications": h.feed.List(),
	})
}
