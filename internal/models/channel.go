package models

// Channel vocabulary names accepted by the API.
const (
	ChannelEmail = "email"
	ChannelPhone = "phone"
	ChannelPost  = "post"
)

// Channel is a shared communication-method type (email, phone, post).
// Channels are a reference table: not owned by any user.
type Channel struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:50;not null;uniqueIndex" json:"name"`
}
