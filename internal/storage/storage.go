// Package storage persists identities, complaints and their history in PostgreSQL
// (via GORM) and keeps short-lived tokens and live events in Redis.
package storage

import (
	"context"
	"errors"
	"time"

	"roomresq/backend/internal/apperr"
	"roomresq/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Mutation edits a locked complaint in place. A non-nil history entry is appended in the
// same transaction as the update.
type Mutation func(c *models.Complaint) (*models.ComplaintHistory, error)

// ComplaintFilter selects complaints. Zero value selects everything.
type ComplaintFilter struct {
	SubmitterID     string
	AssignedStaffID string
	UnassignedOnly  bool
}

type ComplaintStore interface {
	CreateComplaint(ctx context.Context, c *models.Complaint) error
	GetComplaint(ctx context.Context, id string) (*models.Complaint, error)
	// ListComplaints returns matches newest first.
	ListComplaints(ctx context.Context, f ComplaintFilter) ([]models.Complaint, error)
	// AssignComplaint sets the assignee only if the complaint is unassigned or already
	// assigned to staffID. Otherwise it fails with apperr.ErrConflict.
	AssignComplaint(ctx context.Context, id, staffID string, at time.Time) (*models.Complaint, error)
	UpdateComplaint(ctx context.Context, id string, mutate Mutation) (*models.Complaint, error)
	// ListHistory returns entries newest first, in commit order.
	ListHistory(ctx context.Context, complaintID string) ([]models.ComplaintHistory, error)
}

type UserStore interface {
	// CreateUser fails with apperr.ErrConflict if the e-mail is taken.
	CreateUser(ctx context.Context, u *models.User) error
	SaveUser(ctx context.Context, u *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	MarkUserVerified(ctx context.Context, id string) error
	// UpdateProfile only touches the display name and room number.
	UpdateProfile(ctx context.Context, id, displayName, roomNumber string) (*models.User, error)
	ListStaff(ctx context.Context) ([]models.User, error)
}

type TokenStore interface {
	SaveVerificationCode(ctx context.Context, email, code string, ttl time.Duration) error
	// GetVerificationCode fails with apperr.ErrNotFound once the code expired.
	GetVerificationCode(ctx context.Context, email string) (string, error)
	DeleteVerificationCode(ctx context.Context, email string) error
	SaveRefreshToken(ctx context.Context, token, userID string, ttl time.Duration) error
	GetRefreshToken(ctx context.Context, token string) (string, error)
	DeleteRefreshToken(ctx context.Context, token string) error
}

type EventBus interface {
	PublishEvent(ctx context.Context, ev models.ComplaintEvent) error
	// SubscribeEvents streams events until ctx is cancelled, then closes the channel.
	SubscribeEvents(ctx context.Context) (<-chan models.ComplaintEvent, error)
}

type Storage interface {
	ComplaintStore
	UserStore
	TokenStore
	EventBus
}

// Service is the PostgreSQL + Redis implementation of Storage.
type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
}

// NewStorageService Constructor. rdb may be nil for tools that never touch tokens or events.
func NewStorageService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{
		DB:    db,
		Redis: rdb,
	}
}

// Migrate creates or updates the tables.
func (s *Service) Migrate() error {
	return s.DB.AutoMigrate(
		&models.User{},
		&models.Complaint{},
		&models.ComplaintHistory{},
	)
}

var errNoRedis = errors.New("redis is not configured")

// dbError converts driver errors into the shared taxonomy.
func dbError(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperr.NotFound("%s not found", what)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperr.Conflict("%s already exists", what)
	case errors.Is(err, context.DeadlineExceeded):
		return apperr.Wrap(apperr.KindTimeout, err, "storage timed out")
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	return apperr.Wrap(apperr.KindInternal, err, "storage failure")
}

var (
	_ Storage = (*Service)(nil)
	_ Storage = (*Memory)(nil)
)
