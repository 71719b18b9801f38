// Package contactchannels links contacts to the channel vocabulary with a
// concrete value (an email address, a phone number).
package contactchannels

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/mhalushka/rolodex/internal/models"
)

var (
	// ErrDuplicateValue means the channel value is already registered.
	ErrDuplicateValue = errors.New("channel value already exists")
	// ErrMissingReference means the referenced contact or channel does not
	// exist, or the contact belongs to someone else.
	ErrMissingReference = errors.New("contact or channel not found")
)

// Store is what the handlers need from contact-channel persistence. Reads
// and mutations are scoped to the owning user; absence is (nil, nil).
type Store interface {
	List(ctx context.Context, userID uint, skip, limit int) ([]models.ContactChannel, error)
	Get(ctx context.Context, userID, id uint) (*models.ContactChannel, error)
	Create(ctx context.Context, row *models.ContactChannel) error
	Update(ctx context.Context, userID, id uint, changes *models.ContactChannel) (*models.ContactChannel, error)
	Delete(ctx context.Context, userID, id uint) (*models.ContactChannel, error)
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) List(ctx context.Context, userID uint, skip, limit int) ([]models.ContactChannel, error) {
	rows := make([]models.ContactChannel, 0)
	err := r.db.WithContext(ctx).
		Where("created_by = ?", userID).
		Order("id").
		Offset(skip).
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list contact channels: %w", err)
	}
	return rows, nil
}

func (r *Repository) Get(ctx context.Context, userID, id uint) (*models.ContactChannel, error) {
	var row models.ContactChannel
	err := r.db.WithContext(ctx).
		Where("id = ? AND created_by = ?", id, userID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load contact channel: %w", err)
	}
	return &row, nil
}

// Create inserts the row for its creator. The value must not already be
// registered by that user (the global unique index backstops cross-user
// duplicates). The channel must exist and the contact must be the
// creator's own.
func (r *Repository) Create(ctx context.Context, row *models.ContactChannel) error {
	var values int64
	err := r.db.WithContext(ctx).
		Model(&models.ContactChannel{}).
		Where("channel_value = ? AND created_by = ?", row.ChannelValue, row.CreatedBy).
		Count(&values).Error
	if err != nil {
		return fmt.Errorf("failed to check channel value: %w", err)
	}
	if values > 0 {
		return ErrDuplicateValue
	}

	var channels int64
	err = r.db.WithContext(ctx).
		Model(&models.Channel{}).
		Where("id = ?", row.ChannelID).
		Count(&channels).Error
	if err != nil {
		return fmt.Errorf("failed to check channel: %w", err)
	}
	var contacts int64
	err = r.db.WithContext(ctx).
		Model(&models.Contact{}).
		Where("id = ? AND created_by = ?", row.ContactID, row.CreatedBy).
		Count(&contacts).Error
	if err != nil {
		return fmt.Errorf("failed to check contact: %w", err)
	}
	if channels == 0 || contacts == 0 {
		return ErrMissingReference
	}

	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateValue
		}
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			return ErrMissingReference
		}
		return fmt.Errorf("failed to create contact channel: %w", err)
	}
	return nil
}

// Update rewrites the row's references and value for the owning user and
// returns the updated row, or (nil, nil) when the row is not theirs. Error
// mapping matches Create.
func (r *Repository) Update(ctx context.Context, userID, id uint, changes *models.ContactChannel) (*models.ContactChannel, error) {
	row, err := r.Get(ctx, userID, id)
	if err != nil || row == nil {
		return nil, err
	}

	var contacts int64
	err = r.db.WithContext(ctx).
		Model(&models.Contact{}).
		Where("id = ? AND created_by = ?", changes.ContactID, userID).
		Count(&contacts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to check contact: %w", err)
	}
	if contacts == 0 {
		return nil, ErrMissingReference
	}

	updates := map[string]any{
		"contact_id":    changes.ContactID,
		"channel_id":    changes.ChannelID,
		"channel_value": changes.ChannelValue,
	}
	if err := r.db.WithContext(ctx).Model(row).Updates(updates).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateValue
		}
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			return nil, ErrMissingReference
		}
		return nil, fmt.Errorf("failed to update contact channel: %w", err)
	}
	return r.Get(ctx, userID, id)
}

// Delete removes the user's row and returns it, or (nil, nil) when the row
// is not theirs.
func (r *Repository) Delete(ctx context.Context, userID, id uint) (*models.ContactChannel, error) {
	row, err := r.Get(ctx, userID, id)
	if err != nil || row == nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Delete(row).Error; err != nil {
		return nil, fmt.Errorf("failed to delete contact channel: %w", err)
	}
	return row, nil
}
