package models

import "time"

// ComplaintHistory is an immutable audit record of one status-changing update.
// The auto-increment ID gives commit order when timestamps collide.
type ComplaintHistory struct {
	ID uint `gorm:"primaryKey" json:"id"`
	// ComplaintID references the complaint whose status changed.
	ComplaintID string `gorm:"type:text;not null;index:idx_history_complaint" json:"complaint_id"`
	// ChangedBy is the identity that performed the update.
	ChangedBy      string    `gorm:"type:text;not null" json:"changed_by"`
	PreviousStatus Status    `gorm:"type:text;not null" json:"previous_status"`
	NewStatus      Status    `gorm:"type:text;not null" json:"new_status"`
	Comment        *string   `gorm:"type:text" json:"comment,omitempty"`
	CreatedAt      time.Time `gorm:"index:idx_history_complaint" json:"created_at"`
}

func (ComplaintHistory) TableName() string { return "complaint_history" }
