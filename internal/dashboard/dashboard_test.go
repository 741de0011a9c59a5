package dashboard_test

import (
	"context"
	"testing"
	"time"

	"roomresq/backend/internal/apperr"
	"roomresq/backend/internal/complaint"
	"roomresq/backend/internal/dashboard"
	"roomresq/backend/internal/models"
	"roomresq/backend/internal/storage"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() []models.Complaint {
	return []models.Complaint{
		{ID: "1", Title: "Broken WiFi router", Description: "No signal on floor 2", Status: models.StatusSubmitted},
		{ID: "2", Title: "Leaking tap", Description: "Washroom tap drips", Status: models.StatusInProgress},
		{ID: "3", Title: "Desk wobbles", Description: "Needs a screw, wifi unrelated", Status: models.StatusResolved},
		{ID: "4", Title: "Dusty room", Description: "Cleaning skipped", Status: models.StatusClosed},
	}
}

func ids(list []models.Complaint) []string {
	out := make([]string, 0, len(list))
	for _, c := range list {
		out = append(out, c.ID)
	}
	return out
}

func TestFilter(t *testing.T) {
	tests := []struct {
		name string
		q    dashboard.Query
		want []string
	}{
		{"everything", dashboard.Query{}, []string{"1", "2", "3", "4"}},
		{"all keyword", dashboard.Query{Status: "All"}, []string{"1", "2", "3", "4"}},
		{"by status", dashboard.Query{Status: "in progress"}, []string{"2"}},
		{"search title and description", dashboard.Query{Search: "WIFI"}, []string{"1", "3"}},
		{"status and search", dashboard.Query{Status: "Resolved", Search: "wifi"}, []string{"3"}},
		{"no match", dashboard.Query{Search: "elevator"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := dashboard.Filter(sample(), tt.q)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}

	_, err := dashboard.Filter(sample(), dashboard.Query{Status: "Lost"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestSummarize(t *testing.T) {
	st := dashboard.Summarize(sample())
	assert.Equal(t, dashboard.Stats{Total: 4, Submitted: 1, InProgress: 1, Resolved: 1, Closed: 1}, st)
	assert.Equal(t, dashboard.Stats{}, dashboard.Summarize(nil))
}

func TestViews(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	svc := complaint.NewService(store)
	dash := dashboard.NewService(svc)

	student := &models.User{ID: "stu", Email: "stu@hostel.edu", Roles: pq.StringArray{"STUDENT"}}
	staff := &models.User{ID: "stf", Email: "stf@hostel.edu", Roles: pq.StringArray{"STAFF"}}
	require.NoError(t, store.CreateUser(ctx, student))
	require.NoError(t, store.CreateUser(ctx, staff))

	base := time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC)
	titles := []string{"Fan broken", "Light flickers", "Socket sparks"}
	var created []*models.Complaint
	for i, title := range titles {
		svc.Now = func() time.Time { return base.Add(time.Duration(i) * time.Minute) }
		c, err := svc.Submit(ctx, student, complaint.NewComplaintDraft{
			Category: "Electrical", Title: title, Description: "Room issue",
			RoomNumber: "A-1", TimeSlot: "any", Priority: []string{"Low", "Medium", "Urgent"}[i],
		})
		require.NoError(t, err)
		created = append(created, c)
	}
	_, err := svc.Assign(ctx, staff, created[0].ID, "")
	require.NoError(t, err)
	_, err = svc.UpdateStatus(ctx, staff, created[0].ID, complaint.StatusUpdate{Status: "Resolved"})
	require.NoError(t, err)

	sv, err := dash.StudentView(ctx, student, dashboard.Query{Status: "Submitted"})
	require.NoError(t, err)
	assert.Equal(t, 3, sv.Stats.Total)
	assert.Equal(t, 1, sv.Stats.Resolved)
	assert.Equal(t, []string{created[2].ID, created[1].ID}, ids(sv.Complaints))

	mine, err := dash.StaffView(ctx, staff, "", dashboard.Query{})
	require.NoError(t, err)
	assert.Equal(t, dashboard.ViewAssigned, mine.View)
	assert.Equal(t, dashboard.Stats{Total: 1, Resolved: 1}, mine.Stats)

	pool, err := dash.StaffView(ctx, staff, dashboard.ViewUnassigned, dashboard.Query{Sort: dashboard.SortUrgency})
	require.NoError(t, err)
	assert.Equal(t, 1, pool.Stats.Total, "stats follow the assigned queue")
	assert.Equal(t, []string{created[2].ID, created[1].ID}, ids(pool.Complaints))

	_, err = dash.StaffView(ctx, staff, "everything", dashboard.Query{})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = dash.StaffView(ctx, student, "", dashboard.Query{})
	assert.ErrorIs(t, err, apperr.ErrAuthorization)
	_, err = dash.StudentView(ctx, student, dashboard.Query{Sort: "alphabetical"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}
