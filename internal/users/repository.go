package users

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/mhalushka/rolodex/internal/models"
)

// Source loads and mutates user rows in persistent storage. Lookups signal
// absence with (nil, nil) rather than an error so handlers choose the status.
type Source interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Insert(ctx context.Context, user *models.User) error
	SaveRefreshToken(ctx context.Context, email string, token *string) error
	SaveAvatar(ctx context.Context, email, avatarURL string) (*models.User, error)
	MarkConfirmed(ctx context.Context, email string) error
	DeleteByEmail(ctx context.Context, email string) error
}

// Repository is the PostgreSQL-backed Source.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user by email: %w", err)
	}
	return &user, nil
}

func (r *Repository) Insert(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *Repository) SaveRefreshToken(ctx context.Context, email string, token *string) error {
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("email = ?", email).
		Update("refresh_token", token).Error
	if err != nil {
		return fmt.Errorf("failed to save refresh token: %w", err)
	}
	return nil
}

func (r *Repository) SaveAvatar(ctx context.Context, email, avatarURL string) (*models.User, error) {
	result := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("email = ?", email).
		Update("avatar", avatarURL)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to save avatar: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return r.FindByEmail(ctx, email)
}

func (r *Repository) MarkConfirmed(ctx context.Context, email string) error {
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("email = ?", email).
		Update("confirmed", true).Error
	if err != nil {
		return fmt.Errorf("failed to mark user confirmed: %w", err)
	}
	return nil
}

func (r *Repository) DeleteByEmail(ctx context.Context, email string) error {
	err := r.db.WithContext(ctx).
		Where("email = ?", email).
		Delete(&models.User{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}
