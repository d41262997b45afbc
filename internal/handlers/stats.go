package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"arts/api/internal/triage"
)

func (h HandlerSet) Stats(c *gin.Context) {
	stats := triage.Aggregate(h.snapshot.Snapshot())
	c.JSON(http.StatusOK, stats)
}
