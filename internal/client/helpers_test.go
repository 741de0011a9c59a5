package client_test

import "roomresq/backend/internal/complaint"

func complaintDraft() complaint.NewComplaintDraft {
	return complaint.NewComplaintDraft{
		Category:    "Electrical",
		Description: "Socket sparks",
		RoomNumber:  "A-1",
		TimeSlot:    "any",
	}
}
