package models_test

import (
	"testing"
	"time"

	"roomresq/backend/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in     string
		want   models.Status
		wantOK bool
	}{
		{"Submitted", models.StatusSubmitted, true},
		{"In Progress", models.StatusInProgress, true},
		{"InProgress", models.StatusInProgress, true},
		{"in_progress", models.StatusInProgress, true},
		{"RESOLVED", models.StatusResolved, true},
		{"closed", models.StatusClosed, true},
		{"Pending", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := models.ParseStatus(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStatusRankFollowsLifecycle(t *testing.T) {
	assert.Less(t, models.StatusSubmitted.Rank(), models.StatusInProgress.Rank())
	assert.Less(t, models.StatusInProgress.Rank(), models.StatusResolved.Rank())
	assert.Less(t, models.StatusResolved.Rank(), models.StatusClosed.Rank())
	assert.Equal(t, -1, models.Status("Pending").Rank())
	assert.False(t, models.Status("Pending").Valid())
}

func TestParseCategoryAndPriority(t *testing.T) {
	c, ok := models.ParseCategory("electrical")
	assert.True(t, ok)
	assert.Equal(t, models.CategoryElectrical, c)

	_, ok = models.ParseCategory("Gardening")
	assert.False(t, ok)

	p, ok := models.ParsePriority("URGENT")
	assert.True(t, ok)
	assert.Equal(t, models.PriorityUrgent, p)

	_, ok = models.ParsePriority("Critical")
	assert.False(t, ok)
}

func TestComplaintCloneDoesNotAlias(t *testing.T) {
	staff := "staff-1"
	resolved := time.Now()
	orig := &models.Complaint{ID: "c-1", AssignedStaffID: &staff, ResolvedAt: &resolved}

	cp := orig.Clone()
	*cp.AssignedStaffID = "staff-2"
	*cp.ResolvedAt = resolved.Add(time.Hour)

	assert.Equal(t, "staff-1", *orig.AssignedStaffID)
	assert.Equal(t, resolved, *orig.ResolvedAt)
	assert.True(t, orig.AssignedTo("staff-1"))
	assert.False(t, orig.AssignedTo("staff-2"))
}

func TestComplaintBeforeCreate(t *testing.T) {
	c := &models.Complaint{}
	assert.NoError(t, c.BeforeCreate(nil))
	assert.NotEmpty(t, c.ID)
	assert.False(t, c.IsAssigned())
}
