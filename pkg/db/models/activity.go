package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/malikhaddad/gatewatch-backend/pkg/enums"
)

// Activity is an append-only audit record written in the same transaction
// as the state change it documents.
type Activity struct {
	ID        uuid.UUID          `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID          `gorm:"type:uuid;not null"`
	ActorID   *uuid.UUID         `gorm:"type:uuid"`
	PlateID   *uuid.UUID         `gorm:"type:uuid"`
	Type      enums.ActivityType `gorm:"type:activity_type;not null"`
	Detail    string             `gorm:"type:text"`
	CreatedAt time.Time          `gorm:"type:timestamptz;default:now()"`
}
