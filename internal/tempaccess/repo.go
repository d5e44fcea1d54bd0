package tempaccess

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/malikhaddad/gatewatch-backend/pkg/db/models"
	"github.com/malikhaddad/gatewatch-backend/pkg/enums"
	"github.com/malikhaddad/gatewatch-backend/pkg/pagination"
)

// Repository exposes persistence helpers for temporary accesses.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, access *models.TemporaryAccess) error
	CreateWithTx(tx *gorm.DB, access *models.TemporaryAccess) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.TemporaryAccess, error)
	List(ctx context.Context, params listQuery) ([]models.TemporaryAccess, *pagination.Cursor, error)
	Expire(ctx context.Context, id uuid.UUID) (bool, error)
	SweepExpired(ctx context.Context, now time.Time) (int64, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a temporary access repository bound to the provided
// database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

type listQuery struct {
	CreatedByID *uuid.UUID
	Status      *enums.TemporaryAccessStatus
	Limit       int
	Cursor      *pagination.Cursor
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, access *models.TemporaryAccess) error {
	return r.db.WithContext(ctx).Create(access).Error
}

func (r *repositoryImpl) CreateWithTx(tx *gorm.DB, access *models.TemporaryAccess) error {
	return tx.Create(access).Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.TemporaryAccess, error) {
	var access models.TemporaryAccess
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&access).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &access, nil
}

func (r *repositoryImpl) List(ctx context.Context, params listQuery) ([]models.TemporaryAccess, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).Model(&models.TemporaryAccess{})
	if params.CreatedByID != nil {
		query = query.Where("created_by_id = ?", *params.CreatedByID)
	}
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var rows []models.TemporaryAccess
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, nil, err
	}

	if len(rows) > normalized {
		next := rows[normalized]
		rows = rows[:normalized]
		return rows, &pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID}, nil
	}
	return rows, nil, nil
}

// Expire flips an ACTIVE access to EXPIRED. The status guard means the loser
// of a concurrent revoke-vs-sweep race applies nothing.
func (r *repositoryImpl) Expire(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.TemporaryAccess{}).
		Where("id = ? AND status = ?", id, enums.TemporaryAccessStatusActive).
		Updates(map[string]any{
			"status":     enums.TemporaryAccessStatusExpired,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// SweepExpired expires every ACTIVE access whose window has passed.
// Repeated sweeps of the same instant affect zero rows.
func (r *repositoryImpl) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.TemporaryAccess{}).
		Where("status = ? AND expires_at <= ?", enums.TemporaryAccessStatusActive, now).
		Update("status", enums.TemporaryAccessStatusExpired)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
