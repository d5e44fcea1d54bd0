package tempaccess

import (
	"time"

	"github.com/google/uuid"

	"github.com/malikhaddad/gatewatch-backend/pkg/db/models"
	"github.com/malikhaddad/gatewatch-backend/pkg/enums"
	pkgpagination "github.com/malikhaddad/gatewatch-backend/pkg/pagination"
)

// ListParams selects which temporary accesses to return. Residents are
// scoped to passes they created; security and admin callers see everything.
type ListParams struct {
	CreatedByID *uuid.UUID
	Status      *enums.TemporaryAccessStatus
	pkgpagination.Params
}

type ListResult struct {
	Items  []ListItem `json:"items"`
	Cursor string     `json:"cursor"`
}

type ListItem struct {
	ID          uuid.UUID                   `json:"id"`
	PlateCode   string                      `json:"plate_code"`
	PlateNumber string                      `json:"plate_number"`
	Country     string                      `json:"country"`
	Emirate     *string                     `json:"emirate,omitempty"`
	Purpose     string                      `json:"purpose,omitempty"`
	Status      enums.TemporaryAccessStatus `json:"status"`
	ExpiresAt   time.Time                   `json:"expires_at"`
	CreatedByID uuid.UUID                   `json:"created_by_id"`
	CreatedAt   time.Time                   `json:"created_at"`
	UpdatedAt   time.Time                   `json:"updated_at"`
}

func toListItem(m models.TemporaryAccess) ListItem {
	return ListItem{
		ID:          m.ID,
		PlateCode:   m.PlateCode,
		PlateNumber: m.PlateNumber,
		Country:     m.Country,
		Emirate:     m.Emirate,
		Purpose:     m.Purpose,
		Status:      m.Status,
		ExpiresAt:   m.ExpiresAt,
		CreatedByID: m.CreatedByID,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}
