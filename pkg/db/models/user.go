package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/malikhaddad/gatewatch-backend/pkg/enums"
)

// User is a community member: a resident registering plates or a security or
// admin account reviewing them.
type User struct {
	ID        uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string         `gorm:"column:name;not null"`
	Phone     string         `gorm:"column:phone;not null;unique"`
	Email     *string        `gorm:"column:email"`
	Unit      *string        `gorm:"column:unit"`
	Role      enums.UserRole `gorm:"column:role;type:user_role;not null;default:'resident'"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
