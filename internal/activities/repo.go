package activities

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/malikhaddad/gatewatch-backend/pkg/db/models"
	"github.com/malikhaddad/gatewatch-backend/pkg/pagination"
)

// Repository persists the append-only activity log. Writes happen inside the
// same transaction as the state change they record.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an activities repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateWithTx appends an activity row inside the caller's transaction.
func (r *Repository) CreateWithTx(tx *gorm.DB, activity *models.Activity) error {
	return tx.Create(activity).Error
}

// ListByUser returns the user's activity history, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.Activity, *pagination.Cursor, error) {
	buffered := pagination.LimitWithBuffer(limit)
	normalized := pagination.NormalizeLimit(limit)

	query := r.db.WithContext(ctx).Model(&models.Activity{}).Where("user_id = ?", userID)
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Activity
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
