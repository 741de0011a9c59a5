package handler

import (
	"net/http"

	"roomresq/backend/internal/dashboard"

	"github.com/gin-gonic/gin"
)

func (h *Handler) StudentDashboard(c *gin.Context) {
	var q dashboard.Query
	if err := c.ShouldBindQuery(&q); err != nil {
		respondError(c, badBody(err))
		return
	}
	view, err := h.Dashboard.StudentView(c.Request.Context(), currentUser(c), q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) StaffDashboard(c *gin.Context) {
	var q dashboard.Query
	if err := c.ShouldBindQuery(&q); err != nil {
		respondError(c, badBody(err))
		return
	}
	view, err := h.Dashboard.StaffView(c.Request.Context(), currentUser(c), c.Query("view"), q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) Healthz(c *gin.Context) {
	if h.Health != nil {
		if err := h.Health(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
