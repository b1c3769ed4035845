package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"querypilot/models"
)

// HistoryHandler returns asked questions, newest first.
// @Summary      Question history
// @Tags         Ask
// @Produce      json
// @Param        limit  query     int  false  "Maximum entries (default 50)"
// @Success      200    {object}  map[string][]models.HistoryEntry
// @Router       /api/history [get]
func (h *Handlers) HistoryHandler(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			badRequest(c, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	entries, err := h.db.GetHistory(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if entries == nil {
		entries = []models.HistoryEntry{}
	}
	c.JSON(http.StatusOK, gin.H{"history": entries})
}
