package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"roomresq/backend/internal/api/handler"
	"roomresq/backend/internal/auth"
	"roomresq/backend/internal/complaint"
	"roomresq/backend/internal/dashboard"
	"roomresq/backend/internal/eventhub"
	"roomresq/backend/internal/mailer"
	"roomresq/backend/internal/models"
	"roomresq/backend/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type testServer struct {
	router *gin.Engine
	store  *storage.Memory
	auth   *auth.Service
}

type errorEnvelope struct {
	Error struct {
		Kind    string   `json:"kind"`
		Message string   `json:"message"`
		Fields  []string `json:"fields"`
	} `json:"error"`
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := storage.NewMemory()
	authSvc, err := auth.NewService(store, mailer.LogSender{}, auth.Options{
		JWTSecret:  "handler-test-secret",
		BcryptCost: bcrypt.MinCost,
	})
	require.NoError(t, err)
	authSvc.NewCode = func() (string, error) { return "135790", nil }

	hub := eventhub.NewHub(store)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)

	h := handler.NewHandler(authSvc, complaint.NewService(store), hub)
	router := handler.NewRouter(h, handler.RouterConfig{CORSOrigin: "http://localhost:5173", RequestTimeout: 2 * time.Second})
	return &testServer{router: router, store: store, auth: authSvc}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

// student registers and verifies over HTTP.
func (s *testServer) student(t *testing.T, email string) auth.AuthResponse {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]any{
		"name": "Student " + email, "email": email, "password": "longenough", "roles": []string{"student"}, "roomno": "B-204",
	})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, "/api/auth/verify", "", map[string]string{"email": email, "code": "135790"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return decode[auth.AuthResponse](t, w)
}

// staff are provisioned directly, the way the admin tool does it.
func (s *testServer) staff(t *testing.T, email string) auth.AuthResponse {
	t.Helper()
	hash, err := s.auth.Hasher.Hash("staffpassword")
	require.NoError(t, err)
	require.NoError(t, s.store.CreateUser(context.Background(), &models.User{
		Email: email, DisplayName: "Staff " + email, Roles: pq.StringArray{"STAFF"}, PasswordHash: hash, Verified: true,
	}))

	w := s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": email, "password": "staffpassword"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return decode[auth.AuthResponse](t, w)
}

func complaintBody() map[string]string {
	return map[string]string{
		"category":    "Plumbing",
		"title":       "Leaking tap",
		"description": "Washroom tap drips all night",
		"room_number": "B-204",
		"time_slot":   "Mon 10:00-12:00",
		"priority":    "High",
	}
}

func TestEndToEndScenario(t *testing.T) {
	s := newTestServer(t)
	stu := s.student(t, "asha@hostel.edu")
	staffA := s.staff(t, "a@hostel.edu")
	staffB := s.staff(t, "b@hostel.edu")

	w := s.do(t, http.MethodPost, "/complaints", stu.AccessToken, complaintBody())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[models.Complaint](t, w)
	assert.Equal(t, models.StatusSubmitted, created.Status)
	assert.Nil(t, created.AssignedStaffID)

	w = s.do(t, http.MethodGet, "/complaints/unassigned", staffA.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.Complaint](t, w), 1)

	// Two staff members claim at the same time.
	codes := make([]int, 2)
	var wg sync.WaitGroup
	for i, token := range []string{staffA.AccessToken, staffB.AccessToken} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			codes[i] = s.do(t, http.MethodPut, "/complaints/"+created.ID+"/assign", token, nil).Code
		}()
	}
	wg.Wait()
	assert.ElementsMatch(t, []int{http.StatusOK, http.StatusConflict}, codes)

	winner := staffA
	if codes[1] == http.StatusOK {
		winner = staffB
	}

	w = s.do(t, http.MethodGet, "/complaints/assigned/me", winner.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, decode[[]models.Complaint](t, w), 1)

	w = s.do(t, http.MethodPut, "/complaints/"+created.ID+"/status", winner.AccessToken, map[string]any{"status": "In Progress", "comment": "plumber booked"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodPut, "/complaints/"+created.ID+"/status", stu.AccessToken, map[string]any{"status": "Resolved"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resolved := decode[models.Complaint](t, w)
	require.NotNil(t, resolved.ResolvedAt)

	w = s.do(t, http.MethodGet, "/complaints/"+created.ID+"/history", stu.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	history := decode[[]models.ComplaintHistory](t, w)
	require.Len(t, history, 2)
	assert.Equal(t, models.StatusResolved, history[0].NewStatus)
	assert.Equal(t, stu.ID, history[0].ChangedBy)
	assert.Equal(t, models.StatusSubmitted, history[1].PreviousStatus)

	w = s.do(t, http.MethodGet, "/dashboard/student?status=Resolved", stu.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	sd := decode[dashboard.StudentDashboard](t, w)
	assert.Equal(t, 1, sd.Stats.Resolved)
	assert.Len(t, sd.Complaints, 1)

	w = s.do(t, http.MethodGet, "/dashboard/staff?view=unassigned", winner.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	staffDash := decode[dashboard.StaffDashboard](t, w)
	assert.Equal(t, 1, staffDash.Stats.Total)
	assert.Empty(t, staffDash.Complaints)
}

func TestErrorEnvelope(t *testing.T) {
	s := newTestServer(t)
	stu := s.student(t, "asha@hostel.edu")
	other := s.student(t, "ravi@hostel.edu")
	staff := s.staff(t, "a@hostel.edu")

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   any
		code   int
		kind   string
	}{
		{"no token", http.MethodGet, "/complaints/mine", "", nil, http.StatusUnauthorized, "authentication"},
		{"bad token", http.MethodGet, "/complaints/mine", "garbage", nil, http.StatusUnauthorized, "authentication"},
		{"staff cannot submit", http.MethodPost, "/complaints", staff.AccessToken, complaintBody(), http.StatusForbidden, "authorization"},
		{"student cannot list pool", http.MethodGet, "/complaints/unassigned", stu.AccessToken, nil, http.StatusForbidden, "authorization"},
		{"student cannot track others", http.MethodGet, "/complaints/track/" + other.ID, stu.AccessToken, nil, http.StatusForbidden, "authorization"},
		{"missing complaint", http.MethodGet, "/complaints/does-not-exist", staff.AccessToken, nil, http.StatusNotFound, "not_found"},
		{"invalid draft", http.MethodPost, "/complaints", stu.AccessToken, map[string]string{"category": "Gardening"}, http.StatusBadRequest, "validation"},
		{"bad login", http.MethodPost, "/api/auth/login", "", map[string]string{"email": "asha@hostel.edu", "password": "nope"}, http.StatusUnauthorized, "authentication"},
		{"duplicate account", http.MethodPost, "/api/auth/register", "", map[string]any{"name": "A", "email": "asha@hostel.edu", "password": "longenough"}, http.StatusConflict, "conflict"},
		{"student cannot list staff", http.MethodGet, "/staff", stu.AccessToken, nil, http.StatusForbidden, "authorization"},
		{"bad dashboard view", http.MethodGet, "/dashboard/staff?view=all", staff.AccessToken, nil, http.StatusBadRequest, "validation"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, tt.method, tt.path, tt.token, tt.body)
			require.Equal(t, tt.code, w.Code, w.Body.String())
			env := decode[errorEnvelope](t, w)
			assert.Equal(t, tt.kind, env.Error.Kind)
			assert.NotEmpty(t, env.Error.Message)
		})
	}

	w := s.do(t, http.MethodPost, "/complaints", stu.AccessToken, map[string]string{"category": "Gardening"})
	env := decode[errorEnvelope](t, w)
	assert.Contains(t, env.Error.Fields, "category")
	assert.Contains(t, env.Error.Fields, "title")
}

func TestEmptyListsAreArrays(t *testing.T) {
	s := newTestServer(t)
	stu := s.student(t, "asha@hostel.edu")

	w := s.do(t, http.MethodGet, "/complaints/mine", stu.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestStaffDirectory(t *testing.T) {
	s := newTestServer(t)
	s.student(t, "asha@hostel.edu")
	a := s.staff(t, "a@hostel.edu")
	s.staff(t, "b@hostel.edu")

	w := s.do(t, http.MethodGet, "/staff", a.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	staff := decode[[]models.User](t, w)
	require.Len(t, staff, 2)
	for _, u := range staff {
		assert.True(t, u.IsStaff())
	}
	assert.NotContains(t, w.Body.String(), "PasswordHash")
}

func TestProfileAndTokens(t *testing.T) {
	s := newTestServer(t)
	stu := s.student(t, "asha@hostel.edu")
	assert.Equal(t, "B-204", stu.RoomNo)
	assert.Equal(t, []string{"STUDENT"}, stu.Roles)

	w := s.do(t, http.MethodPut, "/api/profile", stu.AccessToken, map[string]string{"roomno": "C-12"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	u := decode[models.User](t, w)
	assert.Equal(t, "C-12", u.RoomNumber)
	assert.Equal(t, "Student asha@hostel.edu", u.DisplayName)

	w = s.do(t, http.MethodPost, "/api/auth/refresh", "", map[string]string{"refresh_token": stu.RefreshToken})
	require.Equal(t, http.StatusOK, w.Code)
	fresh := decode[map[string]string](t, w)["access_token"]
	require.NotEmpty(t, fresh)

	w = s.do(t, http.MethodGet, "/api/profile", fresh, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "password")

	w = s.do(t, http.MethodPost, "/api/auth/logout", "", map[string]string{"refresh_token": stu.RefreshToken})
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = s.do(t, http.MethodPost, "/api/auth/refresh", "", map[string]string{"refresh_token": stu.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCORSAndHealth(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/complaints", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/complaints", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	w = s.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestHealthzDegraded(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := &handler.Handler{Health: func(context.Context) error { return errors.New("redis unreachable") }}
	r := gin.New()
	r.GET("/healthz", h.Healthz)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
