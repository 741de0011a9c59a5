// Package analysis ranks complaints for staff queues.
// Urgency combines the declared priority with how long the complaint has been open.
package analysis

import (
	"sort"
	"time"

	"roomresq/backend/internal/config"
	"roomresq/backend/internal/models"
)

// GetWeight returns the weight for a given priority.
// It returns 0 if the priority is not recognized.
func GetWeight(p models.Priority) int {
	return config.PriorityWeights[string(p)]
}

// Urgency scores an open complaint: its priority weight plus one point per full day
// waiting. Resolved and closed complaints score 0.
func Urgency(c models.Complaint, now time.Time) int {
	if c.Status == models.StatusResolved || c.Status == models.StatusClosed {
		return 0
	}
	days := 0
	if age := now.Sub(c.CreatedAt); age > 0 {
		days = int(age / (24 * time.Hour))
	}
	return GetWeight(c.Priority) + days
}

// SortByUrgency orders complaints most urgent first. The sort is stable, so equally
// urgent complaints keep their incoming (newest first) order.
func SortByUrgency(list []models.Complaint, now time.Time) {
	sort.SliceStable(list, func(i, j int) bool {
		return Urgency(list[i], now) > Urgency(list[j], now)
	})
}
