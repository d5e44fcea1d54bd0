package plates

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/malikhaddad/gatewatch-backend/internal/cache"
	"github.com/malikhaddad/gatewatch-backend/pkg/db"
	"github.com/malikhaddad/gatewatch-backend/pkg/db/models"
	"github.com/malikhaddad/gatewatch-backend/pkg/enums"
	pkgerrors "github.com/malikhaddad/gatewatch-backend/pkg/errors"
	"github.com/malikhaddad/gatewatch-backend/pkg/logger"
	pkgpagination "github.com/malikhaddad/gatewatch-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type documentsRepository interface {
	CreateWithTx(tx *gorm.DB, document *models.Document) error
	ListByPlate(ctx context.Context, plateID uuid.UUID) ([]models.Document, error)
	ListByPlateWithTx(tx *gorm.DB, plateID uuid.UUID) ([]models.Document, error)
	DeleteByPlateWithTx(tx *gorm.DB, plateID uuid.UUID) error
}

type entriesRepository interface {
	DeleteByPlateWithTx(tx *gorm.DB, plateID uuid.UUID) error
}

type notificationsRepository interface {
	CreateWithTx(tx *gorm.DB, notification *models.Notification) error
}

type activitiesRepository interface {
	CreateWithTx(tx *gorm.DB, activity *models.Activity) error
}

type temporaryAccessWriter interface {
	CreateWithTx(tx *gorm.DB, access *models.TemporaryAccess) error
}

type cacheInvalidator interface {
	OwnerPlates(ctx context.Context, userID uuid.UUID)
	Aggregates(ctx context.Context)
}

type cacheStore interface {
	Get(ctx context.Context, key string, dest any) bool
	Set(ctx context.Context, key string, value any)
}

type objectStorage interface {
	DeleteObject(ctx context.Context, bucket, object string) error
	DefaultBucket() string
}

// Actor identifies the authenticated caller of a plate operation.
type Actor struct {
	ID   uuid.UUID
	Role enums.UserRole
}

// DocumentInput describes an already-uploaded supporting file.
type DocumentInput struct {
	FileName   string
	StorageKey string
	MimeType   string
}

// CreatePlateInput holds the attributes for a plate registration attempt.
type CreatePlateInput struct {
	PlateCode   string
	PlateNumber string
	Country     string
	Emirate     *string
	Type        enums.PlateType
	Documents   []DocumentInput
}

// PlateDetails is a plate together with its supporting documents.
type PlateDetails struct {
	Plate     models.Plate      `json:"plate"`
	Documents []models.Document `json:"documents"`
}

// Service exposes the plate lifecycle: registration with duplicate policy,
// review decisions, removal, and cached listing.
type Service interface {
	ValidateAndCreatePlate(ctx context.Context, actor Actor, input CreatePlateInput) (*models.Plate, error)
	GetPlate(ctx context.Context, actor Actor, plateID uuid.UUID) (*PlateDetails, error)
	ListPlates(ctx context.Context, actor Actor, params ListParams) (*ListResult, error)
	ApprovePlate(ctx context.Context, actor Actor, plateID uuid.UUID) (*models.Plate, error)
	RejectPlate(ctx context.Context, actor Actor, plateID uuid.UUID, reason string) (*models.Plate, error)
	RemovePlate(ctx context.Context, actor Actor, plateID uuid.UUID) error
}

type service struct {
	tx            txRunner
	repo          Repository
	documents     documentsRepository
	entries       entriesRepository
	notifications notificationsRepository
	activities    activitiesRepository
	tempAccess    temporaryAccessWriter
	invalidator   cacheInvalidator
	lists         cacheStore
	storage       objectStorage
	logg          *logger.Logger
	guestWindow   time.Duration
	now           func() time.Time
}

// NewService builds the plate lifecycle service. storage may be nil when no
// object store is configured; document cleanup is then skipped.
func NewService(
	tx txRunner,
	repo Repository,
	documents documentsRepository,
	entries entriesRepository,
	notifications notificationsRepository,
	activities activitiesRepository,
	tempAccess temporaryAccessWriter,
	invalidator cacheInvalidator,
	lists cacheStore,
	storage objectStorage,
	logg *logger.Logger,
	guestWindow time.Duration,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("plates repository required")
	}
	if documents == nil {
		return nil, fmt.Errorf("documents repository required")
	}
	if entries == nil {
		return nil, fmt.Errorf("entries repository required")
	}
	if notifications == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if activities == nil {
		return nil, fmt.Errorf("activities repository required")
	}
	if tempAccess == nil {
		return nil, fmt.Errorf("temporary access repository required")
	}
	if invalidator == nil {
		return nil, fmt.Errorf("cache invalidator required")
	}
	if guestWindow <= 0 {
		return nil, fmt.Errorf("guest window must be positive")
	}
	return &service{
		tx:            tx,
		repo:          repo,
		documents:     documents,
		entries:       entries,
		notifications: notifications,
		activities:    activities,
		tempAccess:    tempAccess,
		invalidator:   invalidator,
		lists:         lists,
		storage:       storage,
		logg:          logg,
		guestWindow:   guestWindow,
		now:           time.Now,
	}, nil
}

func (s *service) ValidateAndCreatePlate(ctx context.Context, actor Actor, input CreatePlateInput) (*models.Plate, error) {
	if actor.ID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "caller identity missing")
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid plate type")
	}
	if input.PlateCode == "" || input.PlateNumber == "" || input.Country == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "plate code, number, and country are required")
	}
	if input.Type == enums.PlateTypePersonal && len(input.Documents) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "personal plates require a supporting document")
	}

	emirate := NormalizeEmirate(input.Emirate)

	var created *models.Plate
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		// Same-owner duplicate detection is read-then-insert: two concurrent
		// identical guest submissions by one owner can both pass this check
		// and insert. Only personal tuples carry a database unique index, so
		// the community-wide constraint below still holds.
		existing, err := repo.FindByOwnerAndIdentity(ctx, actor.ID, input.PlateCode, input.PlateNumber, input.Country)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading existing plates")
		}

		decision := EvaluateDuplicate(Candidate{
			PlateCode:   input.PlateCode,
			PlateNumber: input.PlateNumber,
			Country:     input.Country,
			Emirate:     emirate,
			Type:        input.Type,
		}, existing)

		switch decision.Action {
		case DecisionReject:
			return pkgerrors.New(pkgerrors.CodeConflict, decision.Reason)
		case DecisionRevive:
			revived, err := repo.Revive(ctx, decision.ExistingID, actor.ID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reviving plate")
			}
			if !revived {
				// Lost a race: someone revived the row first.
				return pkgerrors.New(pkgerrors.CodeConflict, "duplicate plate in account")
			}
			created, err = repo.FindByID(ctx, decision.ExistingID)
			if err != nil || created == nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading revived plate")
			}
		default:
			plate := &models.Plate{
				ID:          uuid.New(),
				UserID:      actor.ID,
				PlateCode:   input.PlateCode,
				PlateNumber: input.PlateNumber,
				Country:     input.Country,
				Emirate:     emirate,
				Type:        input.Type,
				Status:      enums.PlateStatusPending,
			}
			if err := repo.Create(ctx, plate); err != nil {
				if db.IsUniqueViolation(err, "") {
					return pkgerrors.New(pkgerrors.CodeConflict, "plate already registered in the community")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating plate")
			}
			created = plate
		}

		for _, doc := range input.Documents {
			document := &models.Document{
				ID:         uuid.New(),
				PlateID:    created.ID,
				FileName:   doc.FileName,
				StorageKey: doc.StorageKey,
				MimeType:   doc.MimeType,
			}
			if err := s.documents.CreateWithTx(tx, document); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "attaching document")
			}
		}

		return s.recordActivity(tx, created.UserID, &actor.ID, &created.ID, enums.ActivityTypePlateCreated, string(decision.Action))
	})
	if err != nil {
		return nil, err
	}

	s.invalidator.OwnerPlates(ctx, actor.ID)
	s.invalidator.Aggregates(ctx)
	return created, nil
}

func (s *service) GetPlate(ctx context.Context, actor Actor, plateID uuid.UUID) (*PlateDetails, error) {
	plate, err := s.repo.FindByID(ctx, plateID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading plate")
	}
	if plate == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "plate not found")
	}
	if plate.UserID != actor.ID && !actor.Role.CanReviewPlates() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "plate belongs to another user")
	}

	docs, err := s.documents.ListByPlate(ctx, plateID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading documents")
	}
	return &PlateDetails{Plate: *plate, Documents: docs}, nil
}

func (s *service) ListPlates(ctx context.Context, actor Actor, params ListParams) (*ListResult, error) {
	if actor.Role == enums.UserRoleResident {
		params.UserID = &actor.ID
	}

	limit := pkgpagination.NormalizeLimit(params.Limit)
	cursor, err := pkgpagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid cursor")
	}

	key := s.listKey(params, limit)
	var cached ListResult
	if s.lists != nil && s.lists.Get(ctx, key, &cached) {
		return &cached, nil
	}

	rows, next, err := s.repo.List(ctx, listQuery{
		UserID: params.UserID,
		Status: params.Status,
		Type:   params.Type,
		Limit:  limit,
		Cursor: cursor,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing plates")
	}

	result := &ListResult{Items: make([]ListItem, 0, len(rows))}
	for _, row := range rows {
		result.Items = append(result.Items, toListItem(row))
	}
	if next != nil {
		result.Cursor = pkgpagination.EncodeCursor(*next)
	}

	if s.lists != nil {
		s.lists.Set(ctx, key, result)
	}
	return result, nil
}

func (s *service) ApprovePlate(ctx context.Context, actor Actor, plateID uuid.UUID) (*models.Plate, error) {
	if !actor.Role.CanReviewPlates() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role cannot review plates")
	}

	var approved *models.Plate
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		plate, err := repo.FindByID(ctx, plateID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading plate")
		}
		if plate == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "plate not found")
		}

		var expiresAt *time.Time
		if plate.Type == enums.PlateTypeGuest {
			t := s.now().UTC().Add(s.guestWindow)
			expiresAt = &t
		}

		won, err := repo.SetStatus(ctx, plateID, enums.PlateStatusPending, enums.PlateStatusApproved, &actor.ID, expiresAt)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "approving plate")
		}
		if !won {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "plate is not pending review")
		}

		if plate.Type == enums.PlateTypeGuest {
			access := &models.TemporaryAccess{
				ID:          uuid.New(),
				PlateCode:   plate.PlateCode,
				PlateNumber: plate.PlateNumber,
				Country:     plate.Country,
				Emirate:     plate.Emirate,
				Purpose:     "guest plate approval",
				Status:      enums.TemporaryAccessStatusActive,
				ExpiresAt:   *expiresAt,
				CreatedByID: actor.ID,
			}
			if err := s.tempAccess.CreateWithTx(tx, access); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating linked temporary access")
			}
		}

		if err := s.notify(tx, plate.UserID, enums.NotificationTypePlateApproved, "Plate approved",
			fmt.Sprintf("Plate %s %s has been approved", plate.PlateCode, plate.PlateNumber)); err != nil {
			return err
		}
		if err := s.recordActivity(tx, plate.UserID, &actor.ID, &plate.ID, enums.ActivityTypePlateApproved, ""); err != nil {
			return err
		}

		approved, err = repo.FindByID(ctx, plateID)
		if err != nil || approved == nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reloading plate")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidator.OwnerPlates(ctx, approved.UserID)
	s.invalidator.Aggregates(ctx)
	return approved, nil
}

func (s *service) RejectPlate(ctx context.Context, actor Actor, plateID uuid.UUID, reason string) (*models.Plate, error) {
	if !actor.Role.CanReviewPlates() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role cannot review plates")
	}

	var rejected *models.Plate
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		plate, err := repo.FindByID(ctx, plateID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading plate")
		}
		if plate == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "plate not found")
		}

		// approved_by_id stays NULL on rejection; the rejecting reviewer is
		// recorded on the activity trail instead.
		won, err := repo.SetStatus(ctx, plateID, enums.PlateStatusPending, enums.PlateStatusRejected, nil, nil)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rejecting plate")
		}
		if !won {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "plate is not pending review")
		}

		message := fmt.Sprintf("Plate %s %s has been rejected", plate.PlateCode, plate.PlateNumber)
		if reason != "" {
			message = fmt.Sprintf("%s: %s", message, reason)
		}
		if err := s.notify(tx, plate.UserID, enums.NotificationTypePlateRejected, "Plate rejected", message); err != nil {
			return err
		}
		if err := s.recordActivity(tx, plate.UserID, &actor.ID, &plate.ID, enums.ActivityTypePlateRejected, reason); err != nil {
			return err
		}

		rejected, err = repo.FindByID(ctx, plateID)
		if err != nil || rejected == nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reloading plate")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidator.OwnerPlates(ctx, rejected.UserID)
	s.invalidator.Aggregates(ctx)
	return rejected, nil
}

func (s *service) RemovePlate(ctx context.Context, actor Actor, plateID uuid.UUID) error {
	var ownerID uuid.UUID
	var orphaned []models.Document

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		plate, err := repo.FindByID(ctx, plateID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading plate")
		}
		if plate == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "plate not found")
		}
		if plate.UserID != actor.ID && actor.Role != enums.UserRoleAdmin {
			return pkgerrors.New(pkgerrors.CodeForbidden, "plate belongs to another user")
		}
		ownerID = plate.UserID

		orphaned, err = s.documents.ListByPlateWithTx(tx, plateID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading documents")
		}
		if err := s.documents.DeleteByPlateWithTx(tx, plateID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deleting documents")
		}
		if err := s.entries.DeleteByPlateWithTx(tx, plateID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deleting entries")
		}
		if err := repo.Delete(ctx, plateID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deleting plate")
		}
		return s.recordActivity(tx, ownerID, &actor.ID, &plateID, enums.ActivityTypePlateRemoved, "")
	})
	if err != nil {
		return err
	}

	s.cleanupObjects(ctx, orphaned)
	s.invalidator.OwnerPlates(ctx, ownerID)
	s.invalidator.Aggregates(ctx)
	return nil
}

// cleanupObjects removes orphaned files from the object store after the
// deleting transaction committed. Failures leave unreferenced files behind,
// which is preferable to failing the removal.
func (s *service) cleanupObjects(ctx context.Context, docs []models.Document) {
	if s.storage == nil || len(docs) == 0 {
		return
	}
	bucket := s.storage.DefaultBucket()
	for _, doc := range docs {
		if err := s.storage.DeleteObject(ctx, bucket, doc.StorageKey); err != nil && s.logg != nil {
			logCtx := s.logg.WithPlateID(ctx, doc.PlateID.String())
			fields := map[string]any{"storage_key": doc.StorageKey, "error": err.Error()}
			s.logg.Warn(s.logg.WithFields(logCtx, fields), "orphaned document cleanup failed")
		}
	}
}

func (s *service) notify(tx *gorm.DB, userID uuid.UUID, kind enums.NotificationType, title, message string) error {
	notification := &models.Notification{
		ID:      uuid.New(),
		UserID:  userID,
		Type:    kind,
		Title:   title,
		Message: message,
	}
	if err := s.notifications.CreateWithTx(tx, notification); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "writing notification")
	}
	return nil
}

func (s *service) recordActivity(tx *gorm.DB, userID uuid.UUID, actorID, plateID *uuid.UUID, kind enums.ActivityType, detail string) error {
	activity := &models.Activity{
		ID:      uuid.New(),
		UserID:  userID,
		ActorID: actorID,
		PlateID: plateID,
		Type:    kind,
		Detail:  detail,
	}
	if err := s.activities.CreateWithTx(tx, activity); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "writing activity")
	}
	return nil
}

// listKey derives the cache key for one page of a listing. The variant folds
// in every parameter that changes the result set.
func (s *service) listKey(params ListParams, limit int) string {
	status, plateType := "", ""
	if params.Status != nil {
		status = string(*params.Status)
	}
	if params.Type != nil {
		plateType = string(*params.Type)
	}
	variant := fmt.Sprintf("%d|%s|%s|%s", limit, params.Cursor, status, plateType)

	if params.UserID != nil {
		return cache.OwnerPlatesKey(*params.UserID, variant)
	}
	return cache.AggregateKey("plates", variant)
}
