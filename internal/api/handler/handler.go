// Package handler exposes the complaint service over HTTP with gin.
package handler

import (
	"context"

	"roomresq/backend/internal/auth"
	"roomresq/backend/internal/complaint"
	"roomresq/backend/internal/dashboard"
	"roomresq/backend/internal/eventhub"
)

// Handler holds the services the routes call into.
type Handler struct {
	Auth       *auth.Service
	Complaints *complaint.Service
	Dashboard  *dashboard.Service
	Hub        *eventhub.Hub
	// Health reports backing store reachability for /healthz; nil means always healthy.
	Health func(ctx context.Context) error
}

func NewHandler(a *auth.Service, c *complaint.Service, hub *eventhub.Hub) *Handler {
	return &Handler{
		Auth:       a,
		Complaints: c,
		Dashboard:  dashboard.NewService(c),
		Hub:        hub,
	}
}
