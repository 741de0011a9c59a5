// Package client is a typed HTTP client for the complaint API with a refreshable session.
package client

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"roomresq/backend/internal/auth"
)

// Identity is the signed-in caller as the server described it.
type Identity struct {
	ID     string   `json:"id"`
	Email  string   `json:"email"`
	Name   string   `json:"name"`
	Roles  []string `json:"roles"`
	RoomNo string   `json:"roomno"`
}

// SessionData is a point-in-time copy of a Session.
type SessionData struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	Identity     Identity `json:"identity"`
}

// Session is safe for concurrent use. Populate and Clear replace everything at once, so
// readers never see tokens from one login mixed with the identity of another.
type Session struct {
	mu   sync.RWMutex
	data SessionData
}

func NewSession() *Session { return &Session{} }

func (s *Session) Populate(resp auth.AuthResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = SessionData{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		Identity: Identity{
			ID:     resp.ID,
			Email:  resp.Email,
			Name:   resp.Name,
			Roles:  append([]string(nil), resp.Roles...),
			RoomNo: resp.RoomNo,
		},
	}
}

// SetAccessToken swaps in a refreshed access token.
func (s *Session) SetAccessToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.AccessToken = token
}

func (s *Session) Snapshot() SessionData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.data
	out.Identity.Roles = append([]string(nil), s.data.Identity.Roles...)
	return out
}

func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = SessionData{}
}

// LoggedIn reports whether an access token is present.
func (s *Session) LoggedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.AccessToken != ""
}

// Save writes the session to path with owner-only permissions.
func (s *Session) Save(path string) error {
	data, err := json.MarshalIndent(s.Snapshot(), "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// LoadSession reads a saved session. A missing file yields an empty session.
func LoadSession(path string) (*Session, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return NewSession(), nil
	}
	if err != nil {
		return nil, err
	}
	var data SessionData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	return &Session{data: data}, nil
}
