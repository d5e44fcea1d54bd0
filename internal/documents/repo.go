package documents

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/malikhaddad/gatewatch-backend/pkg/db/models"
)

// Repository persists plate supporting documents.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a documents repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateWithTx inserts a document row inside the caller's transaction.
func (r *Repository) CreateWithTx(tx *gorm.DB, document *models.Document) error {
	return tx.Create(document).Error
}

// ListByPlate returns every document attached to a plate.
func (r *Repository) ListByPlate(ctx context.Context, plateID uuid.UUID) ([]models.Document, error) {
	var rows []models.Document
	err := r.db.WithContext(ctx).
		Where("plate_id = ?", plateID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListByPlateWithTx is ListByPlate inside the caller's transaction.
func (r *Repository) ListByPlateWithTx(tx *gorm.DB, plateID uuid.UUID) ([]models.Document, error) {
	var rows []models.Document
	if err := tx.Where("plate_id = ?", plateID).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// DeleteByPlateWithTx removes every document row for a plate inside the
// caller's transaction. Object-store cleanup happens after commit.
func (r *Repository) DeleteByPlateWithTx(tx *gorm.DB, plateID uuid.UUID) error {
	return tx.Where("plate_id = ?", plateID).Delete(&models.Document{}).Error
}
