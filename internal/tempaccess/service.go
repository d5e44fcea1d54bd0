package tempaccess

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/malikhaddad/gatewatch-backend/internal/plates"
	"github.com/malikhaddad/gatewatch-backend/pkg/db/models"
	"github.com/malikhaddad/gatewatch-backend/pkg/enums"
	pkgerrors "github.com/malikhaddad/gatewatch-backend/pkg/errors"
	"github.com/malikhaddad/gatewatch-backend/pkg/logger"
	pkgpagination "github.com/malikhaddad/gatewatch-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type activitiesRepository interface {
	CreateWithTx(tx *gorm.DB, activity *models.Activity) error
}

type cacheInvalidator interface {
	OwnerPlates(ctx context.Context, userID uuid.UUID)
	Aggregates(ctx context.Context)
	All(ctx context.Context)
}

// CreateInput holds the attributes for a new temporary access pass.
type CreateInput struct {
	PlateCode   string
	PlateNumber string
	Country     string
	Emirate     *string
	Purpose     string
	ExpiresAt   time.Time
}

// Service manages ad-hoc gate passes and the approved guest plates that
// mirror them. The pass and its mirror share an identity tuple, not a
// foreign key; this service owns both sides of that pairing.
type Service interface {
	CreateTemporaryAccess(ctx context.Context, creatorID uuid.UUID, input CreateInput) (*models.TemporaryAccess, error)
	ForceExpireTemporaryAccess(ctx context.Context, actorID uuid.UUID, role enums.UserRole, accessID uuid.UUID) (*models.TemporaryAccess, error)
	GetTemporaryAccess(ctx context.Context, actorID uuid.UUID, role enums.UserRole, accessID uuid.UUID) (*models.TemporaryAccess, error)
	ListTemporaryAccesses(ctx context.Context, actorID uuid.UUID, role enums.UserRole, params ListParams) (*ListResult, error)
}

type service struct {
	tx            txRunner
	repo          Repository
	plates        plates.Repository
	activities    activitiesRepository
	invalidator   cacheInvalidator
	logg          *logger.Logger
	defaultWindow time.Duration
	now           func() time.Time
}

// NewService builds the temporary access service.
func NewService(
	tx txRunner,
	repo Repository,
	platesRepo plates.Repository,
	activities activitiesRepository,
	invalidator cacheInvalidator,
	logg *logger.Logger,
	defaultWindow time.Duration,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("temporary access repository required")
	}
	if platesRepo == nil {
		return nil, fmt.Errorf("plates repository required")
	}
	if activities == nil {
		return nil, fmt.Errorf("activities repository required")
	}
	if invalidator == nil {
		return nil, fmt.Errorf("cache invalidator required")
	}
	if defaultWindow <= 0 {
		return nil, fmt.Errorf("default window must be positive")
	}
	return &service{
		tx:            tx,
		repo:          repo,
		plates:        platesRepo,
		activities:    activities,
		invalidator:   invalidator,
		logg:          logg,
		defaultWindow: defaultWindow,
		now:           time.Now,
	}, nil
}

func (s *service) CreateTemporaryAccess(ctx context.Context, creatorID uuid.UUID, input CreateInput) (*models.TemporaryAccess, error) {
	if creatorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "caller identity missing")
	}
	if input.PlateCode == "" || input.PlateNumber == "" || input.Country == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "plate code, number, and country are required")
	}

	now := s.now().UTC()
	expiresAt := input.ExpiresAt.UTC()
	if input.ExpiresAt.IsZero() {
		expiresAt = now.Add(s.defaultWindow)
	}
	if !expiresAt.After(now) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "expiry must be in the future")
	}

	emirate := plates.NormalizeEmirate(input.Emirate)
	access := &models.TemporaryAccess{
		ID:          uuid.New(),
		PlateCode:   input.PlateCode,
		PlateNumber: input.PlateNumber,
		Country:     input.Country,
		Emirate:     emirate,
		Purpose:     input.Purpose,
		Status:      enums.TemporaryAccessStatusActive,
		ExpiresAt:   expiresAt,
		CreatedByID: creatorID,
	}

	var shadowOwner uuid.UUID
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.CreateWithTx(tx, access); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating temporary access")
		}

		platesRepo := s.plates.WithTx(tx)
		mirrors, err := platesRepo.FindGuestsByIdentity(ctx, access.PlateCode, access.PlateNumber, access.Country, emirate)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading shadow plates")
		}

		if len(mirrors) > 0 {
			// Reuse the most recent guest row whatever its status.
			shadow := mirrors[0]
			shadowOwner = shadow.UserID
			ok, err := platesRepo.ApproveShadow(ctx, shadow.ID, expiresAt)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating shadow plate")
			}
			if !ok {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "shadow plate update did not apply")
			}
		} else {
			shadowOwner = creatorID
			shadow := &models.Plate{
				ID:          uuid.New(),
				UserID:      creatorID,
				PlateCode:   access.PlateCode,
				PlateNumber: access.PlateNumber,
				Country:     access.Country,
				Emirate:     emirate,
				Type:        enums.PlateTypeGuest,
				Status:      enums.PlateStatusApproved,
				ExpiresAt:   &expiresAt,
			}
			if err := platesRepo.Create(ctx, shadow); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating shadow plate")
			}
		}

		activity := &models.Activity{
			ID:      uuid.New(),
			UserID:  creatorID,
			ActorID: &creatorID,
			Type:    enums.ActivityTypeTemporaryAccessCreated,
			Detail:  fmt.Sprintf("%s %s", access.PlateCode, access.PlateNumber),
		}
		if err := s.activities.CreateWithTx(tx, activity); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "writing activity")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidator.OwnerPlates(ctx, shadowOwner)
	s.invalidator.Aggregates(ctx)
	return access, nil
}

func (s *service) ForceExpireTemporaryAccess(ctx context.Context, actorID uuid.UUID, role enums.UserRole, accessID uuid.UUID) (*models.TemporaryAccess, error) {
	var expired *models.TemporaryAccess
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		access, err := repo.FindByID(ctx, accessID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading temporary access")
		}
		if access == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "temporary access not found")
		}
		if access.CreatedByID != actorID && !role.CanReviewPlates() {
			return pkgerrors.New(pkgerrors.CodeForbidden, "temporary access belongs to another user")
		}

		won, err := repo.Expire(ctx, accessID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "expiring temporary access")
		}
		if !won {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "temporary access already expired")
		}

		if _, err := s.plates.WithTx(tx).ExpireGuestsByIdentity(ctx, access.PlateCode, access.PlateNumber, access.Country, plates.NormalizeEmirate(access.Emirate)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "expiring shadow plates")
		}

		activity := &models.Activity{
			ID:      uuid.New(),
			UserID:  access.CreatedByID,
			ActorID: &actorID,
			Type:    enums.ActivityTypeTemporaryAccessExpired,
			Detail:  fmt.Sprintf("%s %s", access.PlateCode, access.PlateNumber),
		}
		if err := s.activities.CreateWithTx(tx, activity); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "writing activity")
		}

		expired, err = repo.FindByID(ctx, accessID)
		if err != nil || expired == nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reloading temporary access")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Shadow owners are not enumerated here, so drop everything.
	s.invalidator.All(ctx)
	return expired, nil
}

func (s *service) GetTemporaryAccess(ctx context.Context, actorID uuid.UUID, role enums.UserRole, accessID uuid.UUID) (*models.TemporaryAccess, error) {
	access, err := s.repo.FindByID(ctx, accessID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading temporary access")
	}
	if access == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "temporary access not found")
	}
	if access.CreatedByID != actorID && !role.CanReviewPlates() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "temporary access belongs to another user")
	}
	return access, nil
}

func (s *service) ListTemporaryAccesses(ctx context.Context, actorID uuid.UUID, role enums.UserRole, params ListParams) (*ListResult, error) {
	if !role.CanReviewPlates() {
		params.CreatedByID = &actorID
	}

	cursor, err := pkgpagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid cursor")
	}

	rows, next, err := s.repo.List(ctx, listQuery{
		CreatedByID: params.CreatedByID,
		Status:      params.Status,
		Limit:       params.Limit,
		Cursor:      cursor,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing temporary accesses")
	}

	result := &ListResult{Items: make([]ListItem, 0, len(rows))}
	for _, row := range rows {
		result.Items = append(result.Items, toListItem(row))
	}
	if next != nil {
		result.Cursor = pkgpagination.EncodeCursor(*next)
	}
	return result, nil
}
