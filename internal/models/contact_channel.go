package models

// ContactChannel binds a contact to a channel with a concrete value, such as
// an email address. The value is globally unique; the row is owned by the
// user who created it.
type ContactChannel struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	ContactID    uint   `gorm:"not null" json:"contact_id"`
	ChannelID    uint   `gorm:"not null" json:"channel_id"`
	ChannelValue string `gorm:"size:250;not null;uniqueIndex" json:"channel_value"`
	CreatedBy    uint   `gorm:"not null;index" json:"created_by"`
}
