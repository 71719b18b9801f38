// Package contacts implements the contact book: per-user CRUD, name and
// channel-value filters, and the upcoming-birthday query.
package contacts

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/mhalushka/rolodex/internal/models"
)

// Store is what the handlers need from contact persistence. Every query is
// scoped to the owning user; lookups signal absence with (nil, nil).
type Store interface {
	List(ctx context.Context, userID uint, firstName, lastName, email string) ([]models.Contact, error)
	Birthdays(ctx context.Context, userID uint, daysForward int) ([]models.Contact, error)
	Get(ctx context.Context, userID, contactID uint) (*models.Contact, error)
	Create(ctx context.Context, contact *models.Contact) error
	Update(ctx context.Context, userID, contactID uint, changes *models.Contact) (*models.Contact, error)
	Delete(ctx context.Context, userID, contactID uint) (*models.Contact, error)
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// List returns the user's contacts, optionally narrowed by exact first or
// last name, or by the value of one of their channels (an email filter
// matches through the contacts_channels join).
func (r *Repository) List(ctx context.Context, userID uint, firstName, lastName, email string) ([]models.Contact, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Contact{}).
		Where("contacts.created_by = ?", userID)

	if email != "" {
		query = query.
			Joins("JOIN contacts_channels ON contacts_channels.contact_id = contacts.id").
			Where("contacts_channels.channel_value = ?", email)
	}
	if firstName != "" {
		query = query.Where("contacts.first_name = ?", firstName)
	}
	if lastName != "" {
		query = query.Where("contacts.last_name = ?", lastName)
	}

	contacts := make([]models.Contact, 0)
	if err := query.Find(&contacts).Error; err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	return contacts, nil
}

// Birthdays returns the user's contacts whose birthday falls within the
// next daysForward days, today inclusive.
func (r *Repository) Birthdays(ctx context.Context, userID uint, daysForward int) ([]models.Contact, error) {
	months, days := futureWindow(daysForward)

	contacts := make([]models.Contact, 0)
	err := r.db.WithContext(ctx).
		Where("created_by = ?", userID).
		Where("birthdate IS NOT NULL").
		Where("CAST(EXTRACT(MONTH FROM birthdate) AS INTEGER) IN ?", months).
		Where("CAST(EXTRACT(DAY FROM birthdate) AS INTEGER) IN ?", days).
		Find(&contacts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list birthdays: %w", err)
	}
	return contacts, nil
}

func (r *Repository) Get(ctx context.Context, userID, contactID uint) (*models.Contact, error) {
	var contact models.Contact
	err := r.db.WithContext(ctx).
		Where("id = ? AND created_by = ?", contactID, userID).
		First(&contact).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load contact: %w", err)
	}
	return &contact, nil
}

func (r *Repository) Create(ctx context.Context, contact *models.Contact) error {
	if err := r.db.WithContext(ctx).Create(contact).Error; err != nil {
		return fmt.Errorf("failed to create contact: %w", err)
	}
	return nil
}

// Update applies the mutable fields of changes to the user's contact and
// returns the updated row, or (nil, nil) when the contact is not theirs.
func (r *Repository) Update(ctx context.Context, userID, contactID uint, changes *models.Contact) (*models.Contact, error) {
	contact, err := r.Get(ctx, userID, contactID)
	if err != nil || contact == nil {
		return nil, err
	}

	updates := map[string]any{
		"first_name": changes.FirstName,
		"last_name":  changes.LastName,
		"birthdate":  changes.Birthdate,
		"gender":     changes.Gender,
		"persuasion": changes.Persuasion,
	}
	if err := r.db.WithContext(ctx).Model(contact).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update contact: %w", err)
	}
	return r.Get(ctx, userID, contactID)
}

// Delete removes the user's contact together with its channel rows and
// returns the deleted contact, or (nil, nil) when the contact is not theirs.
func (r *Repository) Delete(ctx context.Context, userID, contactID uint) (*models.Contact, error) {
	contact, err := r.Get(ctx, userID, contactID)
	if err != nil || contact == nil {
		return nil, err
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("contact_id = ?", contactID).Delete(&models.ContactChannel{}).Error; err != nil {
			return err
		}
		return tx.Delete(contact).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to delete contact: %w", err)
	}
	return contact, nil
}
