package plates

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

// Repository exposes persistence helpers for plates.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, plate *models.Plate) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Plate, error)
	FindByOwnerAndIdentity(ctx context.Context, userID uuid.UUID, plateCode, plateNumber, country string) ([]models.Plate, error)
	FindGuestsByIdentity(ctx context.Context, plateCode, plateNumber, country string, emirate *string) ([]models.Plate, error)
	List(ctx context.Context, params listQuery) ([]models.Plate, *pagination.Cursor, error)
	Revive(ctx context.Context, id, userID uuid.UUID) (bool, error)
	SetStatus(ctx context.Context, id uuid.UUID, from, to enums.PlateStatus, approverID *uuid.UUID, expiresAt *time.Time) (bool, error)
	ApproveShadow(ctx context.Context, id uuid.UUID, expiresAt time.Time) (bool, error)
	ExpireGuestsByIdentity(ctx context.Context, plateCode, plateNumber, country string, emirate *string) (int64, error)
	SweepExpiredGuests(ctx context.Context, now time.Time) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a plates repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

type listQuery struct {
	UserID *uuid.UUID
	Status *enums.PlateStatus
	Type   *enums.PlateType
	Limit  int
	Cursor *pagination.Cursor
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, plate *models.Plate) error {
	return r.db.WithContext(ctx).Create(plate).Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.Plate, error) {
	var plate models.Plate
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&plate).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &plate, nil
}

// FindByOwnerAndIdentity loads every plate the owner registered under the
// given code, number, and country. Emirate matching happens in the
// validator so "" and NULL compare equal without dialect-specific SQL.
func (r *repositoryImpl) FindByOwnerAndIdentity(ctx context.Context, userID uuid.UUID, plateCode, plateNumber, country string) ([]models.Plate, error) {
	var rows []models.Plate
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND plate_code = ? AND plate_number = ? AND country = ?", userID, plateCode, plateNumber, country).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// FindGuestsByIdentity loads guest plates matching the full identity tuple,
// most recent first, regardless of owner.
func (r *repositoryImpl) FindGuestsByIdentity(ctx context.Context, plateCode, plateNumber, country string, emirate *string) ([]models.Plate, error) {
	query := r.db.WithContext(ctx).
		Where("type = ? AND plate_code = ? AND plate_number = ? AND country = ?", enums.PlateTypeGuest, plateCode, plateNumber, country)
	query = withEmirate(query, emirate)

	var rows []models.Plate
	if err := query.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repositoryImpl) List(ctx context.Context, params listQuery) ([]models.Plate, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).Model(&models.Plate{})
	if params.UserID != nil {
		query = query.Where("user_id = ?", *params.UserID)
	}
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.Type != nil {
		query = query.Where("type = ?", *params.Type)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var rows []models.Plate
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

// Revive puts an expired plate back into the review queue for the given
// owner. The status guard makes concurrent revivals apply once.
func (r *repositoryImpl) Revive(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Plate{}).
		Where("id = ? AND status = ?", id, enums.PlateStatusExpired).
		Updates(map[string]any{
			"user_id":        userID,
			"status":         enums.PlateStatusPending,
			"expires_at":     nil,
			"approved_by_id": nil,
			"updated_at":     time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// SetStatus transitions a plate from one status to another. The WHERE guard
// on the current status means exactly one of any concurrent callers wins.
func (r *repositoryImpl) SetStatus(ctx context.Context, id uuid.UUID, from, to enums.PlateStatus, approverID *uuid.UUID, expiresAt *time.Time) (bool, error) {
	updates := map[string]any{
		"status":     to,
		"updated_at": time.Now().UTC(),
	}
	if approverID != nil {
		updates["approved_by_id"] = *approverID
	}
	if expiresAt != nil {
		updates["expires_at"] = *expiresAt
	}

	result := r.db.WithContext(ctx).
		Model(&models.Plate{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ApproveShadow forces a guest plate into APPROVED with the given expiry,
// regardless of its current status. Only the temporary-access mutation sites
// use it; the review flow goes through SetStatus.
func (r *repositoryImpl) ApproveShadow(ctx context.Context, id uuid.UUID, expiresAt time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Plate{}).
		Where("id = ? AND type = ?", id, enums.PlateTypeGuest).
		Updates(map[string]any{
			"status":     enums.PlateStatusApproved,
			"expires_at": expiresAt,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ExpireGuestsByIdentity expires the approved guest plates mirroring a
// temporary access. Used when the access is revoked.
func (r *repositoryImpl) ExpireGuestsByIdentity(ctx context.Context, plateCode, plateNumber, country string, emirate *string) (int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Plate{}).
		Where("type = ? AND status = ? AND plate_code = ? AND plate_number = ? AND country = ?",
			enums.PlateTypeGuest, enums.PlateStatusApproved, plateCode, plateNumber, country)
	query = withEmirate(query, emirate)

	result := query.Update("status", enums.PlateStatusExpired)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// SweepExpiredGuests expires every approved guest plate whose window has
// passed. The set-based predicate makes repeated sweeps of the same instant
// no-ops.
func (r *repositoryImpl) SweepExpiredGuests(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Plate{}).
		Where("type = ? AND status = ? AND expires_at IS NOT NULL AND expires_at <= ?",
			enums.PlateTypeGuest, enums.PlateStatusApproved, now).
		Update("status", enums.PlateStatusExpired)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *repositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Plate{}).Error
}

// withEmirate appends the emirate predicate, treating nil as SQL NULL.
// Spelled out in Go because IS NOT DISTINCT FROM is not portable.
func withEmirate(query *gorm.DB, emirate *string) *gorm.DB {
	if emirate == nil {
		return query.Where("emirate IS NULL")
	}
	return query.Where("emirate = ?", *emirate)
}
