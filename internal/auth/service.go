// Package auth owns the identity boundary: registration with e-mailed verification
// codes, password login, JWT access tokens, refresh tokens and profile edits.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"log"
	"net/mail"
	"strings"
	"time"

	"roomresq/backend/internal/apperr"
	"roomresq/backend/internal/config"
	"roomresq/backend/internal/mailer"
	"roomresq/backend/internal/models"
	"roomresq/backend/internal/storage"
)

type RegisterRequest struct {
	Name       string   `json:"name"`
	Email      string   `json:"email"`
	Password   string   `json:"password"`
	Roles      []string `json:"roles"`
	RoomNumber string   `json:"roomno"`
}

type ProfileUpdate struct {
	DisplayName string `json:"name"`
	RoomNumber  string `json:"roomno"`
}

// AuthResponse is returned by verify and login.
type AuthResponse struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	ID           string   `json:"id"`
	Email        string   `json:"email"`
	Name         string   `json:"name"`
	Roles        []string `json:"roles"`
	RoomNo       string   `json:"roomno"`
}

type Options struct {
	JWTSecret        string
	JWTIssuer        string
	AccessTTL        time.Duration
	RefreshTTL       time.Duration
	AllowStaffSignup bool
	BcryptCost       int
}

// OptionsFromConfig maps the process configuration onto auth options.
func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		JWTSecret:        cfg.JWTSecret,
		JWTIssuer:        cfg.JWTIssuer,
		AccessTTL:        cfg.AccessTTL,
		RefreshTTL:       cfg.RefreshTTL,
		AllowStaffSignup: cfg.AllowStaffSignup,
	}
}

type Service struct {
	Storage          storage.Storage
	Mailer           mailer.Sender
	Tokens           *TokenIssuer
	Hasher           *BcryptHasher
	AllowStaffSignup bool
	RefreshTTL       time.Duration
	// NewCode generates verification codes; replaced in tests.
	NewCode func() (string, error)
}

func NewService(s storage.Storage, m mailer.Sender, opts Options) (*Service, error) {
	if opts.JWTIssuer == "" {
		opts.JWTIssuer = config.DefaultJWTIssuer
	}
	if opts.AccessTTL <= 0 {
		opts.AccessTTL = config.DefaultAccessTokenTTL
	}
	if opts.RefreshTTL <= 0 {
		opts.RefreshTTL = config.DefaultRefreshTokenTTL
	}
	tokens, err := NewTokenIssuer(opts.JWTSecret, opts.JWTIssuer, opts.AccessTTL)
	if err != nil {
		return nil, err
	}
	return &Service{
		Storage:          s,
		Mailer:           m,
		Tokens:           tokens,
		Hasher:           NewBcryptHasher(opts.BcryptCost),
		AllowStaffSignup: opts.AllowStaffSignup,
		RefreshTTL:       opts.RefreshTTL,
		NewCode:          func() (string, error) { return RandomCode(config.VerificationCodeLength) },
	}, nil
}

func normalizeEmail(raw string) (string, bool) {
	email := strings.ToLower(strings.TrimSpace(raw))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", false
	}
	return email, true
}

// Register creates an unverified identity, or refreshes a pending one with the same
// e-mail, and mails a fresh verification code. Any previous code is replaced.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	var bad []string
	email, ok := normalizeEmail(req.Email)
	if !ok {
		bad = append(bad, "email")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		bad = append(bad, "name")
	}
	if n := len(req.Password); n < config.MinPasswordLength || n > config.MaxPasswordLength {
		bad = append(bad, "password")
	}
	rawRoles := req.Roles
	if len(rawRoles) == 0 {
		rawRoles = []string{string(models.RoleStudent)}
	}
	roles, ok := models.NormalizeRoles(rawRoles)
	if !ok {
		bad = append(bad, "roles")
	}
	if len(bad) > 0 {
		return nil, apperr.Validation("invalid registration", bad...)
	}

	u := &models.User{Email: email, DisplayName: name, Roles: roles}
	if u.HasRole(models.RoleStaff) && !s.AllowStaffSignup {
		return nil, apperr.Authorization("staff accounts are created by an administrator")
	}
	if u.IsStudent() {
		u.RoomNumber = strings.TrimSpace(req.RoomNumber)
	}
	hash, err := s.Hasher.Hash(req.Password)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "could not hash password")
	}
	u.PasswordHash = hash

	existing, err := s.Storage.GetUserByEmail(ctx, email)
	switch {
	case err == nil && existing.Verified:
		return nil, apperr.Conflict("an account with e-mail %s already exists", email)
	case err == nil:
		u.ID = existing.ID
		u.CreatedAt = existing.CreatedAt
		if err := s.Storage.SaveUser(ctx, u); err != nil {
			return nil, err
		}
	case errors.Is(err, apperr.ErrNotFound):
		if err := s.Storage.CreateUser(ctx, u); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	if err := s.sendCode(ctx, email); err != nil {
		return nil, err
	}
	log.Printf("INFO: Registered %s (%s), awaiting verification", u.ID, email)
	return u, nil
}

// ResendCode issues a new code for a pending registration.
func (s *Service) ResendCode(ctx context.Context, rawEmail string) error {
	email, ok := normalizeEmail(rawEmail)
	if !ok {
		return apperr.Validation("invalid e-mail", "email")
	}
	u, err := s.Storage.GetUserByEmail(ctx, email)
	if err != nil {
		return err
	}
	if u.Verified {
		return apperr.Conflict("e-mail %s is already verified", email)
	}
	return s.sendCode(ctx, email)
}

func (s *Service) sendCode(ctx context.Context, email string) error {
	code, err := s.NewCode()
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, err, "could not generate verification code")
	}
	if err := s.Storage.SaveVerificationCode(ctx, email, code, config.VerificationCodeTTL); err != nil {
		return err
	}
	if err := s.Mailer.Send(ctx, mailer.VerificationMessage(email, code)); err != nil {
		log.Printf("ERROR: Failed to send verification code to %s: %v", email, err)
		return apperr.Wrap(apperr.KindNetwork, err, "could not send verification e-mail")
	}
	return nil
}

// Verify consumes the code, marks the identity verified and signs it in.
func (s *Service) Verify(ctx context.Context, rawEmail, code string) (*AuthResponse, error) {
	email, ok := normalizeEmail(rawEmail)
	if !ok {
		return nil, apperr.Validation("invalid e-mail", "email")
	}
	stored, err := s.Storage.GetVerificationCode(ctx, email)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.Validation("invalid or expired verification code", "code")
	}
	if err != nil {
		return nil, err
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(strings.TrimSpace(code))) != 1 {
		return nil, apperr.Validation("invalid or expired verification code", "code")
	}

	u, err := s.Storage.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if err := s.Storage.MarkUserVerified(ctx, u.ID); err != nil {
		return nil, err
	}
	if err := s.Storage.DeleteVerificationCode(ctx, email); err != nil {
		log.Printf("WARNING: Failed to delete verification code for %s: %v", email, err)
	}
	u.Verified = true
	return s.issue(ctx, u)
}

// Authenticate checks a password login.
func (s *Service) Authenticate(ctx context.Context, rawEmail, password string) (*AuthResponse, error) {
	email, _ := normalizeEmail(rawEmail)
	u, err := s.Storage.GetUserByEmail(ctx, email)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.Authentication("invalid e-mail or password")
	}
	if err != nil {
		return nil, err
	}
	if err := s.Hasher.Compare(u.PasswordHash, password); err != nil {
		return nil, apperr.Authentication("invalid e-mail or password")
	}
	if !u.Verified {
		return nil, apperr.Authentication("e-mail address is not verified")
	}
	return s.issue(ctx, u)
}

func (s *Service) issue(ctx context.Context, u *models.User) (*AuthResponse, error) {
	access, err := s.Tokens.Sign(u)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "could not sign access token")
	}
	refresh, err := RandomToken(config.RefreshTokenBytes)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "could not generate refresh token")
	}
	if err := s.Storage.SaveRefreshToken(ctx, refresh, u.ID, s.RefreshTTL); err != nil {
		return nil, err
	}
	return &AuthResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.DisplayName,
		Roles:        []string(u.Roles),
		RoomNo:       u.RoomNumber,
	}, nil
}

// Refresh exchanges a refresh token for a new access token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if refreshToken == "" {
		return "", apperr.Authentication("refresh token required")
	}
	userID, err := s.Storage.GetRefreshToken(ctx, refreshToken)
	if errors.Is(err, apperr.ErrNotFound) {
		return "", apperr.Authentication("refresh token is invalid or expired")
	}
	if err != nil {
		return "", err
	}
	u, err := s.Storage.GetUserByID(ctx, userID)
	if err != nil {
		return "", apperr.Authentication("identity no longer exists")
	}
	access, err := s.Tokens.Sign(u)
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, err, "could not sign access token")
	}
	return access, nil
}

// Logout revokes the refresh token. Unknown tokens are ignored.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	err := s.Storage.DeleteRefreshToken(ctx, refreshToken)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil
	}
	return err
}

// Resolve turns a bearer token into the identity it names.
func (s *Service) Resolve(ctx context.Context, bearer string) (*models.User, error) {
	raw := strings.TrimSpace(bearer)
	if len(raw) > 7 && strings.EqualFold(raw[:7], "bearer ") {
		raw = strings.TrimSpace(raw[7:])
	}
	if raw == "" {
		return nil, apperr.Authentication("missing bearer token")
	}
	claims, err := s.Tokens.Parse(raw)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindAuthentication, err, "invalid or expired token")
	}
	u, err := s.Storage.GetUserByID(ctx, claims.Subject)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindAuthentication, err, "identity could not be resolved")
	}
	if !u.Verified {
		return nil, apperr.Authentication("e-mail address is not verified")
	}
	return u, nil
}

func (s *Service) Profile(ctx context.Context, actor *models.User) (*models.User, error) {
	if actor == nil {
		return nil, apperr.Authentication("caller identity could not be resolved")
	}
	return s.Storage.GetUserByID(ctx, actor.ID)
}

// UpdateProfile applies only the non-empty fields. Room numbers are kept for students only.
func (s *Service) UpdateProfile(ctx context.Context, actor *models.User, upd ProfileUpdate) (*models.User, error) {
	current, err := s.Profile(ctx, actor)
	if err != nil {
		return nil, err
	}
	name := current.DisplayName
	if v := strings.TrimSpace(upd.DisplayName); v != "" {
		name = v
	}
	room := current.RoomNumber
	if v := strings.TrimSpace(upd.RoomNumber); v != "" && current.IsStudent() {
		room = v
	}
	return s.Storage.UpdateProfile(ctx, current.ID, name, room)
}
