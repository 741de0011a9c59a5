// Package complaint implements the complaint repository contract: submission, the
// dashboard queries, staff assignment and the status lifecycle with its audit history.
package complaint

import (
	"context"
	"log"
	"strings"
	"time"

	"roomresq/backend/internal/apperr"
	"roomresq/backend/internal/models"
	"roomresq/backend/internal/storage"
)

// NewComplaintDraft is what a student fills in. SubmitterID is optional; when present it
// must name the caller.
type NewComplaintDraft struct {
	SubmitterID string `json:"submitter_id"`
	Category    string `json:"category"`
	Title       string `json:"title"`
	Description string `json:"description"`
	RoomNumber  string `json:"room_number"`
	TimeSlot    string `json:"time_slot"`
	Priority    string `json:"priority"`
}

// StatusUpdate requests a lifecycle transition. Override is required for backward moves.
type StatusUpdate struct {
	Status   string `json:"status"`
	Comment  string `json:"comment"`
	Override bool   `json:"override"`
}

// Service handles the business logic for complaints.
type Service struct {
	Storage storage.Storage
	Now     func() time.Time
}

// NewService creates a new complaint service.
func NewService(s storage.Storage) *Service {
	return &Service{Storage: s, Now: time.Now}
}

func requireActor(actor *models.User) error {
	if actor == nil || actor.ID == "" {
		return apperr.Authentication("caller identity could not be resolved")
	}
	return nil
}

func requireStaff(actor *models.User) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if !actor.IsStaff() {
		return apperr.Authorization("staff role required")
	}
	return nil
}

func canView(actor *models.User, c *models.Complaint) error {
	if actor.IsStaff() || c.SubmitterID == actor.ID {
		return nil
	}
	return apperr.Authorization("complaint belongs to another student")
}

// validateDraft returns the normalized complaint or a validation error naming every bad field.
func validateDraft(d NewComplaintDraft) (*models.Complaint, error) {
	var bad []string
	c := &models.Complaint{
		Title:       strings.TrimSpace(d.Title),
		Description: strings.TrimSpace(d.Description),
		RoomNumber:  strings.TrimSpace(d.RoomNumber),
		TimeSlot:    strings.TrimSpace(d.TimeSlot),
		Priority:    models.DefaultPriority,
		Status:      models.StatusSubmitted,
	}

	if cat, ok := models.ParseCategory(d.Category); ok {
		c.Category = cat
	} else {
		bad = append(bad, "category")
	}
	if c.Title == "" {
		bad = append(bad, "title")
	}
	if c.Description == "" {
		bad = append(bad, "description")
	}
	if c.RoomNumber == "" {
		bad = append(bad, "room_number")
	}
	if c.TimeSlot == "" {
		bad = append(bad, "time_slot")
	}
	if strings.TrimSpace(d.Priority) != "" {
		if p, ok := models.ParsePriority(d.Priority); ok {
			c.Priority = p
		} else {
			bad = append(bad, "priority")
		}
	}

	if len(bad) > 0 {
		return nil, apperr.Validation("invalid complaint", bad...)
	}
	return c, nil
}

// Submit validates the draft and stores it as a new, unassigned Submitted complaint.
func (s *Service) Submit(ctx context.Context, actor *models.User, draft NewComplaintDraft) (*models.Complaint, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !actor.IsStudent() {
		return nil, apperr.Authorization("only students can submit complaints")
	}
	if draft.SubmitterID != "" && draft.SubmitterID != actor.ID {
		return nil, apperr.Authorization("complaints can only be submitted for yourself")
	}

	c, err := validateDraft(draft)
	if err != nil {
		return nil, err
	}
	now := s.Now()
	c.SubmitterID = actor.ID
	c.CreatedAt = now
	c.UpdatedAt = now
	c.AssignedStaffID = nil
	c.ResolvedAt = nil

	if err := s.Storage.CreateComplaint(ctx, c); err != nil {
		return nil, err
	}
	s.publish(ctx, models.ComplaintEvent{Type: models.EventSubmitted, Complaint: *c, ActorID: actor.ID, At: now})
	return c, nil
}

// Get returns one complaint to its submitter or to staff.
func (s *Service) Get(ctx context.Context, actor *models.User, id string) (*models.Complaint, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	c, err := s.Storage.GetComplaint(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := canView(actor, c); err != nil {
		return nil, err
	}
	return c, nil
}

// ListBySubmitter returns a student's complaints newest first.
func (s *Service) ListBySubmitter(ctx context.Context, actor *models.User, submitterID string) ([]models.Complaint, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if submitterID == "" {
		submitterID = actor.ID
	}
	if submitterID != actor.ID && !actor.IsStaff() {
		return nil, apperr.Authorization("cannot list another student's complaints")
	}
	return s.Storage.ListComplaints(ctx, storage.ComplaintFilter{SubmitterID: submitterID})
}

// ListUnassigned returns every complaint nobody has claimed yet, in any status.
func (s *Service) ListUnassigned(ctx context.Context, actor *models.User) ([]models.Complaint, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	return s.Storage.ListComplaints(ctx, storage.ComplaintFilter{UnassignedOnly: true})
}

// ListAssignedTo returns a staff member's queue. Empty staffID means the caller.
func (s *Service) ListAssignedTo(ctx context.Context, actor *models.User, staffID string) ([]models.Complaint, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	if staffID == "" {
		staffID = actor.ID
	}
	return s.Storage.ListComplaints(ctx, storage.ComplaintFilter{AssignedStaffID: staffID})
}

// Assign binds the complaint to staffID (the caller when empty). The storage layer does a
// check-and-set, so of two concurrent claims exactly one wins and the other gets a conflict.
func (s *Service) Assign(ctx context.Context, actor *models.User, complaintID, staffID string) (*models.Complaint, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	if staffID == "" {
		staffID = actor.ID
	}
	if staffID != actor.ID {
		target, err := s.Storage.GetUserByID(ctx, staffID)
		if err != nil {
			return nil, err
		}
		if !target.IsStaff() {
			return nil, apperr.Validation("assignee must be a staff member", "staff_id")
		}
	}

	now := s.Now()
	c, err := s.Storage.AssignComplaint(ctx, complaintID, staffID, now)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, models.ComplaintEvent{Type: models.EventAssigned, Complaint: *c, ActorID: actor.ID, At: now})
	return c, nil
}

// UpdateStatus applies a lifecycle transition and appends one history entry, atomically.
func (s *Service) UpdateStatus(ctx context.Context, actor *models.User, complaintID string, upd StatusUpdate) (*models.Complaint, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	to, ok := models.ParseStatus(upd.Status)
	if !ok {
		return nil, apperr.Validation("unknown status", "status")
	}
	var comment *string
	if text := strings.TrimSpace(upd.Comment); text != "" {
		comment = &text
	}

	var (
		previous models.Status
		now      time.Time
	)
	// The clock is read under the storage lock so timestamps follow commit order.
	c, err := s.Storage.UpdateComplaint(ctx, complaintID, func(cur *models.Complaint) (*models.ComplaintHistory, error) {
		if err := CheckTransition(actor, cur, to, upd.Override); err != nil {
			return nil, err
		}
		now = s.Now()
		previous = cur.Status
		ApplyTransition(cur, to, now)
		return &models.ComplaintHistory{
			ComplaintID:    cur.ID,
			ChangedBy:      actor.ID,
			PreviousStatus: previous,
			NewStatus:      to,
			Comment:        comment,
			CreatedAt:      now,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, models.ComplaintEvent{
		Type:           models.EventStatusChanged,
		Complaint:      *c,
		ActorID:        actor.ID,
		PreviousStatus: previous,
		At:             now,
	})
	return c, nil
}

// GetHistory returns the audit trail newest first.
func (s *Service) GetHistory(ctx context.Context, actor *models.User, complaintID string) ([]models.ComplaintHistory, error) {
	if _, err := s.Get(ctx, actor, complaintID); err != nil {
		return nil, err
	}
	return s.Storage.ListHistory(ctx, complaintID)
}

// ListStaff is used by the assignment picker.
func (s *Service) ListStaff(ctx context.Context, actor *models.User) ([]models.User, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	return s.Storage.ListStaff(ctx)
}

// publish is best-effort: the write has already committed.
func (s *Service) publish(ctx context.Context, ev models.ComplaintEvent) {
	if err := s.Storage.PublishEvent(ctx, ev); err != nil {
		log.Printf("WARNING: Failed to publish %s event for complaint %s: %v", ev.Type, ev.Complaint.ID, err)
	}
}
