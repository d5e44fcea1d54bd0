package entries

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/malikhaddad/gatewatch-backend/pkg/db/models"
	"github.com/malikhaddad/gatewatch-backend/pkg/pagination"
)

// Repository persists gate entry events.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an entries repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a gate entry record.
func (r *Repository) Create(ctx context.Context, entry *models.Entry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// ListByPlate returns entry events for a plate, newest first, with cursor
// pagination.
func (r *Repository) ListByPlate(ctx context.Context, plateID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.Entry, *pagination.Cursor, error) {
	buffered := pagination.LimitWithBuffer(limit)
	normalized := pagination.NormalizeLimit(limit)

	query := r.db.WithContext(ctx).Model(&models.Entry{}).Where("plate_id = ?", plateID)
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Entry
	if err := query.Order("created_at DESC, id DESC").Limit(buffered).Find(&rows).Error; err != nil {
		return nil, nil, err
	}

	if len(rows) > normalized {
		next := rows[normalized]
		rows = rows[:normalized]
		return rows, &pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID}, nil
	}
	return rows, nil, nil
}

// DeleteByPlateWithTx removes every entry row for a plate inside the
// caller's transaction.
func (r *Repository) DeleteByPlateWithTx(tx *gorm.DB, plateID uuid.UUID) error {
	return tx.Where("plate_id = ?", plateID).Delete(&models.Entry{}).Error
}
