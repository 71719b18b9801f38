// Package channels manages the channel vocabulary (email, phone, post)
// shared by all users.
package channels

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/mhalushka/rolodex/internal/models"
)

// Store is what the handlers need from channel persistence. Lookups signal
// absence with (nil, nil).
type Store interface {
	List(ctx context.Context) ([]models.Channel, error)
	Get(ctx context.Context, channelID uint) (*models.Channel, error)
	GetByName(ctx context.Context, name string) (*models.Channel, error)
	Create(ctx context.Context, channel *models.Channel) error
	Update(ctx context.Context, channelID uint, name string) (*models.Channel, error)
	Delete(ctx context.Context, channelID uint) (*models.Channel, error)
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) List(ctx context.Context) ([]models.Channel, error) {
	channels := make([]models.Channel, 0)
	if err := r.db.WithContext(ctx).Order("id").Find(&channels).Error; err != nil {
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}
	return channels, nil
}

func (r *Repository) Get(ctx context.Context, channelID uint) (*models.Channel, error) {
	var channel models.Channel
	err := r.db.WithContext(ctx).First(&channel, channelID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load channel: %w", err)
	}
	return &channel, nil
}

func (r *Repository) GetByName(ctx context.Context, name string) (*models.Channel, error) {
	var channel models.Channel
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&channel).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load channel by name: %w", err)
	}
	return &channel, nil
}

func (r *Repository) Create(ctx context.Context, channel *models.Channel) error {
	if err := r.db.WithContext(ctx).Create(channel).Error; err != nil {
		return fmt.Errorf("failed to create channel: %w", err)
	}
	return nil
}

// Update renames the channel and returns the updated row, or (nil, nil)
// when no channel has that id.
func (r *Repository) Update(ctx context.Context, channelID uint, name string) (*models.Channel, error) {
	channel, err := r.Get(ctx, channelID)
	if err != nil || channel == nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Model(channel).Update("name", name).Error; err != nil {
		return nil, fmt.Errorf("failed to update channel: %w", err)
	}
	return r.Get(ctx, channelID)
}

// Delete removes the channel and returns the deleted row, or (nil, nil)
// when no channel has that id. Deleting a channel still referenced by
// contact-channel rows surfaces gorm.ErrForeignKeyViolated.
func (r *Repository) Delete(ctx context.Context, channelID uint) (*models.Channel, error) {
	channel, err := r.Get(ctx, channelID)
	if err != nil || channel == nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Delete(channel).Error; err != nil {
		return nil, fmt.Errorf("failed to delete channel: %w", err)
	}
	return channel, nil
}
