package models

import (
	"time"

	"github.com/google/uuid"
)

// Document is an uploaded supporting file owned by exactly one Plate.
// The row is deleted together with its plate; the object-store file is
// removed best-effort after the transaction commits.
type Document struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PlateID    uuid.UUID `gorm:"column:plate_id;type:uuid;not null"`
	FileName   string    `gorm:"column:file_name;not null"`
	StorageKey string    `gorm:"column:storage_key;not null"`
	MimeType   string    `gorm:"column:mime_type;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}
