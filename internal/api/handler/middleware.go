package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"roomresq/backend/internal/apperr"
	"roomresq/backend/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const userKey = "user"

// RequireAuth resolves the bearer token into the caller identity.
func (h *Handler) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		u, err := h.Auth.Resolve(c.Request.Context(), c.GetHeader("Authorization"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.Set(userKey, u)
		c.Next()
	}
}

// RequireRole must run after RequireAuth.
func RequireRole(role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !currentUser(c).HasRole(role) {
			respondError(c, apperr.Authorization("%s role required", strings.ToLower(string(role))))
			return
		}
		c.Next()
	}
}

func currentUser(c *gin.Context) *models.User {
	v, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	u, _ := v.(*models.User)
	return u
}

// Timeout bounds the request context; storage calls fail with a timeout error past it.
func Timeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// CORS allows the configured browser origin. "*" allows any.
func CORS(origin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqOrigin := c.GetHeader("Origin")
		if reqOrigin != "" && (origin == "*" || reqOrigin == origin) {
			c.Header("Access-Control-Allow-Origin", reqOrigin)
			c.Header("Vary", "Origin")
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// RequestID tags every request and response with X-Request-ID.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}
