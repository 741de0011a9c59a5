package storage

import (
	"context"
	"log"
	"time"

	"roomresq/backend/internal/apperr"
	"roomresq/backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (s *Service) CreateComplaint(ctx context.Context, c *models.Complaint) error {
	if err := s.DB.WithContext(ctx).Create(c).Error; err != nil {
		log.Printf("ERROR: Failed to save complaint for submitter %s: %v", c.SubmitterID, err)
		return dbError(err, "complaint")
	}
	return nil
}

func (s *Service) GetComplaint(ctx context.Context, id string) (*models.Complaint, error) {
	var c models.Complaint
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, dbError(err, "complaint")
	}
	return &c, nil
}

func (s *Service) ListComplaints(ctx context.Context, f ComplaintFilter) ([]models.Complaint, error) {
	q := s.DB.WithContext(ctx).Model(&models.Complaint{})
	if f.SubmitterID != "" {
		q = q.Where("submitter_id = ?", f.SubmitterID)
	}
	if f.AssignedStaffID != "" {
		q = q.Where("assigned_staff_id = ?", f.AssignedStaffID)
	}
	if f.UnassignedOnly {
		q = q.Where("assigned_staff_id IS NULL OR assigned_staff_id = ''")
	}

	complaints := []models.Complaint{}
	if err := q.Order("created_at DESC, id DESC").Find(&complaints).Error; err != nil {
		log.Printf("ERROR: Failed to list complaints %+v: %v", f, err)
		return nil, dbError(err, "complaints")
	}
	return complaints, nil
}

// AssignComplaint is a single conditional UPDATE, so of two racing claims only one
// matches the WHERE clause.
func (s *Service) AssignComplaint(ctx context.Context, id, staffID string, at time.Time) (*models.Complaint, error) {
	res := s.DB.WithContext(ctx).Model(&models.Complaint{}).
		Where("id = ?", id).
		Where("assigned_staff_id IS NULL OR assigned_staff_id = '' OR assigned_staff_id = ?", staffID).
		Updates(map[string]interface{}{
			"assigned_staff_id": staffID,
			"updated_at":        at,
		})
	if res.Error != nil {
		return nil, dbError(res.Error, "complaint")
	}

	c, err := s.GetComplaint(ctx, id)
	if err != nil {
		return nil, err
	}
	if res.RowsAffected == 0 {
		return nil, apperr.Conflict("complaint %s is already assigned", id)
	}
	return c, nil
}

// UpdateComplaint locks the row for the duration of the mutation, so concurrent updates
// apply one after another and their history entries land in commit order.
func (s *Service) UpdateComplaint(ctx context.Context, id string, mutate Mutation) (*models.Complaint, error) {
	var out models.Complaint
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c models.Complaint
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&c).Error; err != nil {
			return dbError(err, "complaint")
		}

		entry, err := mutate(&c)
		if err != nil {
			return err
		}
		// UpdateColumns keeps the caller's UpdatedAt instead of gorm's own clock.
		if err := tx.Model(&c).Select("*").Omit("id", "submitter_id", "created_at").UpdateColumns(&c).Error; err != nil {
			return err
		}
		if entry != nil {
			entry.ComplaintID = c.ID
			if err := tx.Create(entry).Error; err != nil {
				return err
			}
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, dbError(err, "complaint")
	}
	return &out, nil
}

func (s *Service) ListHistory(ctx context.Context, complaintID string) ([]models.ComplaintHistory, error) {
	history := []models.ComplaintHistory{}
	if err := s.DB.WithContext(ctx).
		Where("complaint_id = ?", complaintID).
		Order("id DESC").
		Find(&history).Error; err != nil {
		log.Printf("ERROR: Failed to get history for complaint %s: %v", complaintID, err)
		return nil, dbError(err, "history")
	}
	return history, nil
}
