package models

import "time"

// User is an account identity. Password holds the bcrypt hash, never plaintext.
// RefreshToken is the single currently-valid refresh token for the account;
// issuing a new one invalidates the old (single active session).
type User struct {
	ID           uint    `gorm:"primaryKey"`
	Email        string  `gorm:"size:250;not null;uniqueIndex"`
	Password     string  `gorm:"size:255;not null" json:"-"`
	Avatar       *string `gorm:"size:255"`
	RefreshToken *string `gorm:"size:1255" json:"-"`
	Confirmed    bool    `gorm:"not null;default:false"`
	CreatedAt    time.Time
}
