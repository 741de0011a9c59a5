package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"

	"roomresq/backend/internal/apperr"
	"roomresq/backend/internal/auth"
	"roomresq/backend/internal/complaint"
	"roomresq/backend/internal/config"
	"roomresq/backend/internal/dashboard"
	"roomresq/backend/internal/models"
)

type Client struct {
	BaseURL string
	HTTP    *http.Client
	Session *Session
}

// New builds a client with a short request timeout.
func New(baseURL string, session *Session) *Client {
	if session == nil {
		session = NewSession()
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: config.ClientRequestTimeout},
		Session: session,
	}
}

type errorEnvelope struct {
	Error *apperr.Error `json:"error"`
}

// transportError classifies failures that never produced an HTTP response.
func transportError(err error) error {
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return apperr.Wrap(apperr.KindTimeout, err, "request timed out")
	}
	return apperr.Wrap(apperr.KindNetwork, err, "server unreachable")
}

// decodeError turns a non-2xx response into the shared taxonomy.
func decodeError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err == nil && env.Error != nil && env.Error.Kind != "" {
		return env.Error
	}
	return &apperr.Error{
		Kind:    apperr.KindFromStatus(resp.StatusCode),
		Message: fmt.Sprintf("unexpected status %d", resp.StatusCode),
	}
}

func (c *Client) send(ctx context.Context, method, path, token string, in any) (*http.Response, error) {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, err, "encode request")
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "build request")
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, transportError(err)
	}
	return resp, nil
}

// do performs one call. Authenticated calls that fail with 401 refresh the access token
// once and retry.
func (c *Client) do(ctx context.Context, method, path string, in, out any, authed bool) error {
	token := ""
	if authed {
		token = c.Session.Snapshot().AccessToken
	}
	resp, err := c.send(ctx, method, path, token, in)
	if err != nil {
		return err
	}
	if authed && resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		if rerr := c.refresh(ctx); rerr != nil {
			return rerr
		}
		resp, err = c.send(ctx, method, path, c.Session.Snapshot().AccessToken, in)
		if err != nil {
			return err
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperr.Wrap(apperr.KindInternal, err, "decode response")
	}
	return nil
}

func (c *Client) refresh(ctx context.Context) error {
	refreshToken := c.Session.Snapshot().RefreshToken
	if refreshToken == "" {
		return apperr.Authentication("not logged in")
	}
	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/auth/refresh", map[string]string{"refresh_token": refreshToken}, &out, false); err != nil {
		if apperr.KindOf(err) == apperr.KindAuthentication {
			c.Session.Clear()
		}
		return err
	}
	c.Session.SetAccessToken(out.AccessToken)
	return nil
}

// degrade returns an empty list alongside retryable errors so views can still render.
func degrade[T any](items []T, err error) ([]T, error) {
	if err != nil {
		if apperr.IsRetryable(err) {
			return []T{}, err
		}
		return nil, err
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// Auth

func (c *Client) Register(ctx context.Context, req auth.RegisterRequest) error {
	return c.do(ctx, http.MethodPost, "/api/auth/register", req, nil, false)
}

func (c *Client) Verify(ctx context.Context, email, code string) (*auth.AuthResponse, error) {
	var out auth.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/verify", map[string]string{"email": email, "code": code}, &out, false); err != nil {
		return nil, err
	}
	c.Session.Populate(out)
	return &out, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*auth.AuthResponse, error) {
	var out auth.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", map[string]string{"email": email, "password": password}, &out, false); err != nil {
		return nil, err
	}
	c.Session.Populate(out)
	return &out, nil
}

// Logout clears the local session even if the server call fails.
func (c *Client) Logout(ctx context.Context) error {
	refreshToken := c.Session.Snapshot().RefreshToken
	defer c.Session.Clear()
	if refreshToken == "" {
		return nil
	}
	return c.do(ctx, http.MethodPost, "/api/auth/logout", map[string]string{"refresh_token": refreshToken}, nil, false)
}

func (c *Client) Profile(ctx context.Context) (*models.User, error) {
	var out models.User
	if err := c.do(ctx, http.MethodGet, "/api/profile", nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateProfile(ctx context.Context, upd auth.ProfileUpdate) (*models.User, error) {
	var out models.User
	if err := c.do(ctx, http.MethodPut, "/api/profile", upd, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// Complaints

func (c *Client) Submit(ctx context.Context, draft complaint.NewComplaintDraft) (*models.Complaint, error) {
	var out models.Complaint
	if err := c.do(ctx, http.MethodPost, "/complaints", draft, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) MyComplaints(ctx context.Context) ([]models.Complaint, error) {
	var out []models.Complaint
	err := c.do(ctx, http.MethodGet, "/complaints/mine", nil, &out, true)
	return degrade(out, err)
}

func (c *Client) Unassigned(ctx context.Context) ([]models.Complaint, error) {
	var out []models.Complaint
	err := c.do(ctx, http.MethodGet, "/complaints/unassigned", nil, &out, true)
	return degrade(out, err)
}

// AssignedTo lists a staff queue; empty staffID means the caller.
func (c *Client) AssignedTo(ctx context.Context, staffID string) ([]models.Complaint, error) {
	if staffID == "" {
		staffID = "me"
	}
	var out []models.Complaint
	err := c.do(ctx, http.MethodGet, "/complaints/assigned/"+url.PathEscape(staffID), nil, &out, true)
	return degrade(out, err)
}

func (c *Client) Get(ctx context.Context, id string) (*models.Complaint, error) {
	var out models.Complaint
	if err := c.do(ctx, http.MethodGet, "/complaints/"+url.PathEscape(id), nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Assign(ctx context.Context, id, staffID string) (*models.Complaint, error) {
	var out models.Complaint
	if err := c.do(ctx, http.MethodPut, "/complaints/"+url.PathEscape(id)+"/assign", map[string]string{"staff_id": staffID}, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateStatus(ctx context.Context, id string, upd complaint.StatusUpdate) (*models.Complaint, error) {
	var out models.Complaint
	if err := c.do(ctx, http.MethodPut, "/complaints/"+url.PathEscape(id)+"/status", upd, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) History(ctx context.Context, id string) ([]models.ComplaintHistory, error) {
	var out []models.ComplaintHistory
	err := c.do(ctx, http.MethodGet, "/complaints/"+url.PathEscape(id)+"/history", nil, &out, true)
	return degrade(out, err)
}

func dashboardValues(q dashboard.Query) url.Values {
	v := url.Values{}
	if q.Status != "" {
		v.Set("status", q.Status)
	}
	if q.Search != "" {
		v.Set("q", q.Search)
	}
	if q.Sort != "" {
		v.Set("sort", q.Sort)
	}
	return v
}

func (c *Client) StudentDashboard(ctx context.Context, q dashboard.Query) (*dashboard.StudentDashboard, error) {
	var out dashboard.StudentDashboard
	if err := c.do(ctx, http.MethodGet, "/dashboard/student?"+dashboardValues(q).Encode(), nil, &out, true); err != nil {
		return nil, err
	}
	if out.Complaints == nil {
		out.Complaints = []models.Complaint{}
	}
	return &out, nil
}

func (c *Client) StaffDashboard(ctx context.Context, view string, q dashboard.Query) (*dashboard.StaffDashboard, error) {
	v := dashboardValues(q)
	if view != "" {
		v.Set("view", view)
	}
	var out dashboard.StaffDashboard
	if err := c.do(ctx, http.MethodGet, "/dashboard/staff?"+v.Encode(), nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}
