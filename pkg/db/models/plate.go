package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/malikhaddad/gatewatch-backend/pkg/enums"
)

// Plate is a registered vehicle identifier with an approval workflow.
// The natural key is (plate_code, plate_number, country, emirate, type);
// personal plates are additionally unique community-wide on
// (plate_code, plate_number, country) via a partial index.
type Plate struct {
	ID           uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID       uuid.UUID         `gorm:"column:user_id;type:uuid;not null"`
	PlateCode    string            `gorm:"column:plate_code;not null"`
	PlateNumber  string            `gorm:"column:plate_number;not null"`
	Country      string            `gorm:"column:country;not null"`
	Emirate      *string           `gorm:"column:emirate"`
	Type         enums.PlateType   `gorm:"column:type;type:plate_type;not null"`
	Status       enums.PlateStatus `gorm:"column:status;type:plate_status;not null;default:'pending'"`
	ExpiresAt    *time.Time        `gorm:"column:expires_at"`
	ApprovedByID *uuid.UUID        `gorm:"column:approved_by_id;type:uuid"`
	CreatedAt    time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// IdentityTuple returns the tuple used for duplicate detection and
// shadow-plate matching. An empty emirate is normalized to nil upstream.
func (p Plate) IdentityTuple() (string, string, string, *string) {
	return p.PlateCode, p.PlateNumber, p.Country, p.Emirate
}
