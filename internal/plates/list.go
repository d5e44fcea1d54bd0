package plates

import (
	"time"

	"github.com/google/uuid"

	"github.com/malikhaddad/gatewatch-backend/pkg/db/models"
	"github.com/malikhaddad/gatewatch-backend/pkg/enums"
	pkgpagination "github.com/malikhaddad/gatewatch-backend/pkg/pagination"
)

// ListParams selects which plates to return. Residents are always scoped to
// their own plates; security and admin callers may filter freely.
type ListParams struct {
	UserID *uuid.UUID
	Status *enums.PlateStatus
	Type   *enums.PlateType
	pkgpagination.Params
}

type ListResult struct {
	Items  []ListItem `json:"items"`
	Cursor string     `json:"cursor"`
}

type ListItem struct {
	ID           uuid.UUID         `json:"id"`
	UserID       uuid.UUID         `json:"user_id"`
	PlateCode    string            `json:"plate_code"`
	PlateNumber  string            `json:"plate_number"`
	Country      string            `json:"country"`
	Emirate      *string           `json:"emirate,omitempty"`
	Type         enums.PlateType   `json:"type"`
	Status       enums.PlateStatus `json:"status"`
	ExpiresAt    *time.Time        `json:"expires_at,omitempty"`
	ApprovedByID *uuid.UUID        `json:"approved_by_id,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

func toListItem(m models.Plate) ListItem {
	return ListItem{
		ID:           m.ID,
		UserID:       m.UserID,
		PlateCode:    m.PlateCode,
		PlateNumber:  m.PlateNumber,
		Country:      m.Country,
		Emirate:      m.Emirate,
		Type:         m.Type,
		Status:       m.Status,
		ExpiresAt:    m.ExpiresAt,
		ApprovedByID: m.ApprovedByID,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}
