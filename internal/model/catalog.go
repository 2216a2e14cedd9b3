package model

import "time"

// Category groups machines by equipment family.
type Category struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"uniqueIndex;size:100;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description,omitempty"`
	Active      bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

// Supplier is the vendor a machine was acquired from.
type Supplier struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:200;not null" json:"name"`
	TaxID       string    `gorm:"uniqueIndex;size:20;not null" json:"tax_id"`
	Phone       string    `gorm:"size:20" json:"phone,omitempty"`
	Email       string    `gorm:"size:200" json:"email,omitempty"`
	Address     string    `gorm:"type:text" json:"address,omitempty"`
	ContactName string    `gorm:"size:100" json:"contact_name,omitempty"`
	Rating      *int      `json:"rating,omitempty"`
	Active      bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}
