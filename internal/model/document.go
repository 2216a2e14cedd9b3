package model

import "time"

// MachineDocument references an uploaded file stored in the blob store.
type MachineDocument struct {
	ID          int64        `gorm:"primaryKey" json:"id"`
	MachineID   int64        `gorm:"index;not null" json:"machine_id"`
	Kind        DocumentKind `gorm:"size:20;not null" json:"kind"`
	FileName    string       `gorm:"size:255;not null" json:"file_name"`
	ContentType string       `gorm:"size:100" json:"content_type"`
	Size        int64        `json:"size"`
	BlobKey     string       `gorm:"uniqueIndex;size:255;not null" json:"-"`
	UploadedBy  *int64       `json:"uploaded_by,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`

	Machine *Machine `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}
