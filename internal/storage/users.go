package storage

import (
	"context"
	"log"
	"strings"

	"roomresq/backend/internal/models"

	"gorm.io/gorm"
)

func (s *Service) CreateUser(ctx context.Context, u *models.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if err := s.DB.WithContext(ctx).Create(u).Error; err != nil {
		return dbError(err, "user "+u.Email)
	}
	log.Printf("INFO: New user %s saved to database.", u.ID)
	return nil
}

// SaveUser зберігає користувача в PostgreSQL
func (s *Service) SaveUser(ctx context.Context, u *models.User) error {
	return dbError(s.DB.WithContext(ctx).Save(u).Error, "user")
}

func (s *Service) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, dbError(err, "user")
	}
	return &u, nil
}

func (s *Service) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	email = strings.ToLower(strings.TrimSpace(email))
	if err := s.DB.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		return nil, dbError(err, "user")
	}
	return &u, nil
}

func (s *Service) MarkUserVerified(ctx context.Context, id string) error {
	res := s.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("verified", true)
	if res.Error != nil {
		return dbError(res.Error, "user")
	}
	if res.RowsAffected == 0 {
		return dbError(gorm.ErrRecordNotFound, "user")
	}
	return nil
}

func (s *Service) UpdateProfile(ctx context.Context, id, displayName, roomNumber string) (*models.User, error) {
	res := s.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Select("display_name", "room_number").
		Updates(models.User{DisplayName: displayName, RoomNumber: roomNumber})
	if res.Error != nil {
		return nil, dbError(res.Error, "user")
	}
	if res.RowsAffected == 0 {
		return nil, dbError(gorm.ErrRecordNotFound, "user")
	}
	return s.GetUserByID(ctx, id)
}

// ListStaff returns every identity holding the staff role, ordered by name.
func (s *Service) ListStaff(ctx context.Context) ([]models.User, error) {
	staff := []models.User{}
	if err := s.DB.WithContext(ctx).
		Where("? = ANY(roles)", string(models.RoleStaff)).
		Order("display_name ASC").
		Find(&staff).Error; err != nil {
		return nil, dbError(err, "staff")
	}
	return staff, nil
}
