package models

import (
	"time"

	"github.com/google/uuid"
)

// Entry records a gate passage for a plate. Entries are removed in cascade
// when the owning plate is deleted.
type Entry struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PlateID    uuid.UUID `gorm:"column:plate_id;type:uuid;not null"`
	Gate       string    `gorm:"column:gate;not null"`
	RecordedAt time.Time `gorm:"column:recorded_at;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}
