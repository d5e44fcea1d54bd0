package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/malikhaddad/gatewatch-backend/pkg/enums"
)

// TemporaryAccess is an ad-hoc gate pass. While ACTIVE it is mirrored by an
// APPROVED guest Plate with the same identifying tuple and expiry; the pair
// is matched by tuple rather than a foreign key so the mirror survives plate
// revival. Only the create and force-expire paths maintain the pair.
type TemporaryAccess struct {
	ID          uuid.UUID                   `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PlateCode   string                      `gorm:"column:plate_code;not null"`
	PlateNumber string                      `gorm:"column:plate_number;not null"`
	Country     string                      `gorm:"column:country;not null"`
	Emirate     *string                     `gorm:"column:emirate"`
	Purpose     string                      `gorm:"column:purpose;type:text"`
	Status      enums.TemporaryAccessStatus `gorm:"column:status;type:temporary_access_status;not null;default:'active'"`
	ExpiresAt   time.Time                   `gorm:"column:expires_at;not null"`
	CreatedByID uuid.UUID                   `gorm:"column:created_by_id;type:uuid;not null"`
	CreatedAt   time.Time                   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time                   `gorm:"column:updated_at;autoUpdateTime"`
}
