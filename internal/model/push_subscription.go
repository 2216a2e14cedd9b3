package model

import "time"

// PushSubscription holds a browser push endpoint and the machines whose
// high-priority alerts it wants to hear about.
type PushSubscription struct {
	Endpoint  string    `gorm:"primaryKey" json:"endpoint"`
	P256DH    string    `gorm:"column:p256dh;not null" json:"p256dh"`
	Auth      string    `gorm:"not null" json:"auth"`
	UserID    *int64    `gorm:"index" json:"user_id,omitempty"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`

	Machines []*Machine `gorm:"many2many:subscription_machine_mapping;constraint:OnDelete:CASCADE" json:"-"`
}
