package model

import "time"

// User is an account that can act on the system.
type User struct {
	ID           int64     `gorm:"primaryKey" json:"id"`
	Document     *string   `gorm:"uniqueIndex;size:20" json:"document,omitempty"`
	FirstName    string    `gorm:"size:100;not null" json:"first_name"`
	LastName     string    `gorm:"size:100;not null" json:"last_name"`
	Email        string    `gorm:"uniqueIndex;size:200;not null" json:"email"`
	PasswordHash string    `gorm:"size:100;not null" json:"-"`
	Role         Role      `gorm:"size:20;not null" json:"role"`
	Active       bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

// FullName returns the display name of the user.
func (u *User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
