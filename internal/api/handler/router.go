package handler

import (
	"time"

	"roomresq/backend/internal/config"
	"roomresq/backend/internal/models"

	"github.com/gin-gonic/gin"
)

type RouterConfig struct {
	CORSOrigin     string
	RequestTimeout time.Duration
}

// NewRouter wires every route. The websocket route is outside the request timeout.
func NewRouter(h *Handler, cfg RouterConfig) *gin.Engine {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = config.DefaultRequestTimeout
	}
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), RequestID(), CORS(cfg.CORSOrigin))

	r.GET("/healthz", h.Healthz)
	r.GET("/ws", h.ServeWebSocket(NewUpgrader(cfg.CORSOrigin)))

	api := r.Group("/", Timeout(cfg.RequestTimeout))

	authGroup := api.Group("/api/auth")
	authGroup.POST("/register", h.Register)
	authGroup.POST("/resend", h.ResendCode)
	authGroup.POST("/verify", h.Verify)
	authGroup.POST("/login", h.Login)
	authGroup.POST("/refresh", h.Refresh)
	authGroup.POST("/logout", h.Logout)

	secured := api.Group("/", h.RequireAuth())
	secured.GET("/api/profile", h.GetProfile)
	secured.PUT("/api/profile", h.UpdateProfile)

	staffOnly := RequireRole(models.RoleStaff)

	complaints := secured.Group("/complaints")
	complaints.POST("", RequireRole(models.RoleStudent), h.SubmitComplaint)
	complaints.GET("/mine", h.MyComplaints)
	complaints.GET("/track/:studentId", h.TrackComplaints)
	complaints.GET("/unassigned", staffOnly, h.UnassignedComplaints)
	complaints.GET("/assigned/:staffId", staffOnly, h.AssignedComplaints)
	complaints.GET("/:id", h.GetComplaint)
	complaints.PUT("/:id/assign", staffOnly, h.AssignComplaint)
	complaints.PUT("/:id/status", h.UpdateStatus)
	complaints.GET("/:id/history", h.ComplaintHistory)

	secured.GET("/staff", staffOnly, h.ListStaff)
	secured.GET("/dashboard/student", h.StudentDashboard)
	secured.GET("/dashboard/staff", staffOnly, h.StaffDashboard)

	return r
}
