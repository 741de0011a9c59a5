package eventhub

import "roomresq/backend/internal/models"

// Client is the interface for any type of subscriber (e.g., WebSocket, Telegram).
// The hub manages different client types uniformly.
type Client interface {
	// GetUserID returns the identity the client acts for.
	GetUserID() string
	// Wants reports whether the event should be delivered to this client.
	Wants(ev models.ComplaintEvent) bool

	// GetSendChannel returns the channel the hub writes events for this client into.
	GetSendChannel() chan<- models.ComplaintEvent

	// Run starts the client's pumps.
	Run()
	// Close shuts down the client. The hub calls it exactly once, after removing the client.
	Close()
}

// Visible applies the delivery rule: staff see every event, students only events of
// complaints they submitted.
func Visible(u *models.User, ev models.ComplaintEvent) bool {
	if u == nil {
		return false
	}
	if u.IsStaff() {
		return true
	}
	return ev.Complaint.SubmitterID == u.ID
}
