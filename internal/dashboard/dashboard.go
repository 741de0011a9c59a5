// Package dashboard builds the student and staff dashboard projections: status
// filters, free-text search, counters and the staff queue views.
package dashboard

import (
	"context"
	"strings"
	"time"

	"roomresq/backend/internal/analysis"
	"roomresq/backend/internal/apperr"
	"roomresq/backend/internal/complaint"
	"roomresq/backend/internal/models"
)

const (
	ViewAssigned   = "assigned"
	ViewUnassigned = "unassigned"

	SortNewest  = "newest"
	SortUrgency = "urgency"
)

// Query narrows a complaint list. Empty or "all" status matches everything.
type Query struct {
	Status string `form:"status" json:"status"`
	Search string `form:"q" json:"q"`
	Sort   string `form:"sort" json:"sort"`
}

// Stats counts complaints per status.
type Stats struct {
	Total      int `json:"total"`
	Submitted  int `json:"submitted"`
	InProgress int `json:"in_progress"`
	Resolved   int `json:"resolved"`
	Closed     int `json:"closed"`
}

type StudentDashboard struct {
	Stats      Stats              `json:"stats"`
	Complaints []models.Complaint `json:"complaints"`
}

// StaffDashboard always reports stats over the caller's assigned queue, whichever view
// is listed.
type StaffDashboard struct {
	View       string             `json:"view"`
	Stats      Stats              `json:"stats"`
	Complaints []models.Complaint `json:"complaints"`
}

// Filter returns the complaints matching q, preserving order. Search is a
// case-insensitive substring match over title and description.
func Filter(list []models.Complaint, q Query) ([]models.Complaint, error) {
	var status models.Status
	if s := strings.TrimSpace(q.Status); s != "" && !strings.EqualFold(s, "all") {
		parsed, ok := models.ParseStatus(s)
		if !ok {
			return nil, apperr.Validation("unknown status filter", "status")
		}
		status = parsed
	}
	needle := strings.ToLower(strings.TrimSpace(q.Search))

	out := make([]models.Complaint, 0, len(list))
	for _, c := range list {
		if status != "" && c.Status != status {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(c.Title), needle) &&
			!strings.Contains(strings.ToLower(c.Description), needle) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// Summarize counts complaints per status.
func Summarize(list []models.Complaint) Stats {
	st := Stats{Total: len(list)}
	for _, c := range list {
		switch c.Status {
		case models.StatusSubmitted:
			st.Submitted++
		case models.StatusInProgress:
			st.InProgress++
		case models.StatusResolved:
			st.Resolved++
		case models.StatusClosed:
			st.Closed++
		}
	}
	return st
}

// Service composes complaint queries into dashboards.
type Service struct {
	Complaints *complaint.Service
	Now        func() time.Time
}

func NewService(c *complaint.Service) *Service {
	return &Service{Complaints: c, Now: time.Now}
}

func (s *Service) apply(list []models.Complaint, q Query) ([]models.Complaint, error) {
	out, err := Filter(list, q)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(strings.TrimSpace(q.Sort)) {
	case "", SortNewest:
	case SortUrgency:
		analysis.SortByUrgency(out, s.Now())
	default:
		return nil, apperr.Validation("unknown sort order", "sort")
	}
	return out, nil
}

// StudentView lists the caller's own complaints. Stats cover all of them, the list is filtered.
func (s *Service) StudentView(ctx context.Context, actor *models.User, q Query) (*StudentDashboard, error) {
	all, err := s.Complaints.ListBySubmitter(ctx, actor, "")
	if err != nil {
		return nil, err
	}
	list, err := s.apply(all, q)
	if err != nil {
		return nil, err
	}
	return &StudentDashboard{Stats: Summarize(all), Complaints: list}, nil
}

// StaffView lists either the caller's queue or the unassigned pool.
func (s *Service) StaffView(ctx context.Context, actor *models.User, view string, q Query) (*StaffDashboard, error) {
	if view == "" {
		view = ViewAssigned
	}
	if view != ViewAssigned && view != ViewUnassigned {
		return nil, apperr.Validation("view must be assigned or unassigned", "view")
	}

	assigned, err := s.Complaints.ListAssignedTo(ctx, actor, "")
	if err != nil {
		return nil, err
	}
	source := assigned
	if view == ViewUnassigned {
		source, err = s.Complaints.ListUnassigned(ctx, actor)
		if err != nil {
			return nil, err
		}
	}

	list, err := s.apply(source, q)
	if err != nil {
		return nil, err
	}
	return &StaffDashboard{View: view, Stats: Summarize(assigned), Complaints: list}, nil
}
