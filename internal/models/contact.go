package models

import "time"

// Contact is a person record owned by exactly one user. Every read and write
// path is scoped by CreatedBy; a contact is invisible outside its owner.
type Contact struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	FirstName  string    `gorm:"size:50;not null" json:"first_name"`
	LastName   string    `gorm:"size:50;not null" json:"last_name"`
	Birthdate  *Date     `gorm:"type:date" json:"birthdate"`
	Gender     string    `gorm:"size:1;not null" json:"gender"`
	Persuasion string    `gorm:"size:50" json:"persuasion"`
	CreatedAt  time.Time `json:"created_at"`
	CreatedBy  uint      `gorm:"not null;index" json:"created_by"`
}
