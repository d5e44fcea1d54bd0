package plates

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/malikhaddad/gatewatch-backend/pkg/db/models"
	"github.com/malikhaddad/gatewatch-backend/pkg/enums"
	pkgerrors "github.com/malikhaddad/gatewatch-backend/pkg/errors"
	"github.com/malikhaddad/gatewatch-backend/pkg/pagination"
)

type stubTxRunner struct {
	err error
}

func (s *stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s.err != nil {
		return s.err
	}
	return fn(nil)
}

type stubPlatesRepo struct {
	existing    []models.Plate
	created     *models.Plate
	createErr   error
	findResult  *models.Plate
	findErr     error
	revived     bool
	reviveErr   error
	revivedID   uuid.UUID
	setOK       bool
	setErr      error
	setFrom     enums.PlateStatus
	setTo       enums.PlateStatus
	setApprover *uuid.UUID
	setExpires  *time.Time
	listRows    []models.Plate
	listCalls   int
	deleted     []uuid.UUID
	expireN     int64
	sweepN      int64
}

func (s *stubPlatesRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubPlatesRepo) Create(ctx context.Context, plate *models.Plate) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.created = plate
	return nil
}

func (s *stubPlatesRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Plate, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	return s.findResult, nil
}

func (s *stubPlatesRepo) FindByOwnerAndIdentity(ctx context.Context, userID uuid.UUID, plateCode, plateNumber, country string) ([]models.Plate, error) {
	return s.existing, nil
}

func (s *stubPlatesRepo) FindGuestsByIdentity(ctx context.Context, plateCode, plateNumber, country string, emirate *string) ([]models.Plate, error) {
	return nil, nil
}

func (s *stubPlatesRepo) List(ctx context.Context, params listQuery) ([]models.Plate, *pagination.Cursor, error) {
	s.listCalls++
	return s.listRows, nil, nil
}

func (s *stubPlatesRepo) Revive(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	if s.reviveErr != nil {
		return false, s.reviveErr
	}
	s.revivedID = id
	return s.revived, nil
}

func (s *stubPlatesRepo) SetStatus(ctx context.Context, id uuid.UUID, from, to enums.PlateStatus, approverID *uuid.UUID, expiresAt *time.Time) (bool, error) {
	if s.setErr != nil {
		return false, s.setErr
	}
	s.setFrom, s.setTo, s.setApprover, s.setExpires = from, to, approverID, expiresAt
	return s.setOK, nil
}

func (s *stubPlatesRepo) ApproveShadow(ctx context.Context, id uuid.UUID, expiresAt time.Time) (bool, error) {
	return true, nil
}

func (s *stubPlatesRepo) ExpireGuestsByIdentity(ctx context.Context, plateCode, plateNumber, country string, emirate *string) (int64, error) {
	return s.expireN, nil
}

func (s *stubPlatesRepo) SweepExpiredGuests(ctx context.Context, now time.Time) (int64, error) {
	return s.sweepN, nil
}

func (s *stubPlatesRepo) Delete(ctx context.Context, id uuid.UUID) error {
	s.deleted = append(s.deleted, id)
	return nil
}

type stubDocumentsRepo struct {
	created []models.Document
	rows    []models.Document
	deleted []uuid.UUID
}

func (s *stubDocumentsRepo) CreateWithTx(tx *gorm.DB, document *models.Document) error {
	s.created = append(s.created, *document)
	return nil
}

func (s *stubDocumentsRepo) ListByPlate(ctx context.Context, plateID uuid.UUID) ([]models.Document, error) {
	return s.rows, nil
}

func (s *stubDocumentsRepo) ListByPlateWithTx(tx *gorm.DB, plateID uuid.UUID) ([]models.Document, error) {
	return s.rows, nil
}

func (s *stubDocumentsRepo) DeleteByPlateWithTx(tx *gorm.DB, plateID uuid.UUID) error {
	s.deleted = append(s.deleted, plateID)
	return nil
}

type stubEntriesRepo struct {
	deleted []uuid.UUID
}

func (s *stubEntriesRepo) DeleteByPlateWithTx(tx *gorm.DB, plateID uuid.UUID) error {
	s.deleted = append(s.deleted, plateID)
	return nil
}

type stubNotificationsRepo struct {
	created []models.Notification
}

func (s *stubNotificationsRepo) CreateWithTx(tx *gorm.DB, notification *models.Notification) error {
	s.created = append(s.created, *notification)
	return nil
}

type stubActivitiesRepo struct {
	created []models.Activity
}

func (s *stubActivitiesRepo) CreateWithTx(tx *gorm.DB, activity *models.Activity) error {
	s.created = append(s.created, *activity)
	return nil
}

type stubTempAccessRepo struct {
	created []models.TemporaryAccess
}

func (s *stubTempAccessRepo) CreateWithTx(tx *gorm.DB, access *models.TemporaryAccess) error {
	s.created = append(s.created, *access)
	return nil
}

type stubInvalidator struct {
	owners     []uuid.UUID
	aggregates int
}

func (s *stubInvalidator) OwnerPlates(ctx context.Context, userID uuid.UUID) {
	s.owners = append(s.owners, userID)
}

func (s *stubInvalidator) Aggregates(ctx context.Context) { s.aggregates++ }

type stubCacheStore struct {
	values map[string]*ListResult
	sets   int
}

func (s *stubCacheStore) Get(ctx context.Context, key string, dest any) bool {
	cached, ok := s.values[key]
	if !ok {
		return false
	}
	*(dest.(*ListResult)) = *cached
	return true
}

func (s *stubCacheStore) Set(ctx context.Context, key string, value any) {
	s.sets++
}

type stubStorage struct {
	deleted []string
	err     error
}

func (s *stubStorage) DeleteObject(ctx context.Context, bucket, object string) error {
	s.deleted = append(s.deleted, object)
	return s.err
}

func (s *stubStorage) DefaultBucket() string { return "test-bucket" }

type serviceFixture struct {
	svc           Service
	repo          *stubPlatesRepo
	documents     *stubDocumentsRepo
	entries       *stubEntriesRepo
	notifications *stubNotificationsRepo
	activities    *stubActivitiesRepo
	tempAccess    *stubTempAccessRepo
	invalidator   *stubInvalidator
	cache         *stubCacheStore
	storage       *stubStorage
	now           time.Time
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	f := &serviceFixture{
		repo:          &stubPlatesRepo{},
		documents:     &stubDocumentsRepo{},
		entries:       &stubEntriesRepo{},
		notifications: &stubNotificationsRepo{},
		activities:    &stubActivitiesRepo{},
		tempAccess:    &stubTempAccessRepo{},
		invalidator:   &stubInvalidator{},
		cache:         &stubCacheStore{values: map[string]*ListResult{}},
		storage:       &stubStorage{},
		now:           time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	svc, err := NewService(
		&stubTxRunner{}, f.repo, f.documents, f.entries, f.notifications,
		f.activities, f.tempAccess, f.invalidator, f.cache, f.storage, nil,
		24*time.Hour,
	)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	svc.(*service).now = func() time.Time { return f.now }
	f.svc = svc
	return f
}

func TestValidateAndCreatePlatePersonalRequiresDocument(t *testing.T) {
	f := newServiceFixture(t)
	actor := Actor{ID: uuid.New(), Role: enums.UserRoleResident}

	_, err := f.svc.ValidateAndCreatePlate(context.Background(), actor, CreatePlateInput{
		PlateCode: "A", PlateNumber: "1", Country: "UAE", Type: enums.PlateTypePersonal,
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestValidateAndCreatePlateInsertsAndInvalidates(t *testing.T) {
	f := newServiceFixture(t)
	actor := Actor{ID: uuid.New(), Role: enums.UserRoleResident}

	plate, err := f.svc.ValidateAndCreatePlate(context.Background(), actor, CreatePlateInput{
		PlateCode: "A", PlateNumber: "1", Country: "UAE", Type: enums.PlateTypePersonal,
		Documents: []DocumentInput{{FileName: "reg.pdf", StorageKey: "docs/reg.pdf", MimeType: "application/pdf"}},
	})
	if err != nil {
		t.Fatalf("ValidateAndCreatePlate: %v", err)
	}
	if plate.Status != enums.PlateStatusPending {
		t.Fatalf("expected pending status, got %s", plate.Status)
	}
	if len(f.documents.created) != 1 {
		t.Fatalf("expected 1 document, got %d", len(f.documents.created))
	}
	if len(f.activities.created) != 1 || f.activities.created[0].Type != enums.ActivityTypePlateCreated {
		t.Fatalf("expected plate_created activity, got %+v", f.activities.created)
	}
	if len(f.invalidator.owners) != 1 || f.invalidator.owners[0] != actor.ID {
		t.Fatalf("expected owner cache invalidation for %s", actor.ID)
	}
}

func TestValidateAndCreatePlateRejectsLiveDuplicate(t *testing.T) {
	f := newServiceFixture(t)
	actor := Actor{ID: uuid.New(), Role: enums.UserRoleResident}
	f.repo.existing = []models.Plate{{
		ID: uuid.New(), UserID: actor.ID, PlateCode: "A", PlateNumber: "1", Country: "UAE",
		Type: enums.PlateTypeGuest, Status: enums.PlateStatusApproved,
	}}

	_, err := f.svc.ValidateAndCreatePlate(context.Background(), actor, CreatePlateInput{
		PlateCode: "A", PlateNumber: "1", Country: "UAE", Type: enums.PlateTypeGuest,
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if f.repo.created != nil {
		t.Fatal("no row should be inserted on rejection")
	}
	if len(f.invalidator.owners) != 0 {
		t.Fatal("failed creation must not invalidate caches")
	}
}

func TestValidateAndCreatePlateRevivesExpiredGuest(t *testing.T) {
	f := newServiceFixture(t)
	actor := Actor{ID: uuid.New(), Role: enums.UserRoleResident}
	expiredID := uuid.New()
	f.repo.existing = []models.Plate{{
		ID: expiredID, UserID: actor.ID, PlateCode: "A", PlateNumber: "1", Country: "UAE",
		Type: enums.PlateTypeGuest, Status: enums.PlateStatusExpired,
	}}
	f.repo.revived = true
	f.repo.findResult = &models.Plate{ID: expiredID, UserID: actor.ID, Status: enums.PlateStatusPending}

	plate, err := f.svc.ValidateAndCreatePlate(context.Background(), actor, CreatePlateInput{
		PlateCode: "A", PlateNumber: "1", Country: "UAE", Type: enums.PlateTypeGuest,
	})
	if err != nil {
		t.Fatalf("ValidateAndCreatePlate: %v", err)
	}
	if plate.ID != expiredID {
		t.Fatalf("revival must reuse the expired row id, got %s", plate.ID)
	}
	if f.repo.created != nil {
		t.Fatal("revival must not insert a new row")
	}
}

func TestValidateAndCreatePlateMapsUniqueViolation(t *testing.T) {
	f := newServiceFixture(t)
	actor := Actor{ID: uuid.New(), Role: enums.UserRoleResident}
	f.repo.createErr = errors.New(`duplicate key value violates unique constraint "idx_plates_personal_identity"`)

	_, err := f.svc.ValidateAndCreatePlate(context.Background(), actor, CreatePlateInput{
		PlateCode: "A", PlateNumber: "1", Country: "UAE", Type: enums.PlateTypePersonal,
		Documents: []DocumentInput{{FileName: "reg.pdf", StorageKey: "k", MimeType: "application/pdf"}},
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict from unique index, got %v", err)
	}
}

func TestApprovePlateRequiresReviewerRole(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.svc.ApprovePlate(context.Background(), Actor{ID: uuid.New(), Role: enums.UserRoleResident}, uuid.New())
	if !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestApprovePlateNotFound(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.svc.ApprovePlate(context.Background(), Actor{ID: uuid.New(), Role: enums.UserRoleSecurity}, uuid.New())
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestApprovePlateGuardLoss(t *testing.T) {
	f := newServiceFixture(t)
	plateID := uuid.New()
	f.repo.findResult = &models.Plate{ID: plateID, UserID: uuid.New(), Type: enums.PlateTypePersonal, Status: enums.PlateStatusApproved}
	f.repo.setOK = false

	_, err := f.svc.ApprovePlate(context.Background(), Actor{ID: uuid.New(), Role: enums.UserRoleSecurity}, plateID)
	if !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict for lost guard, got %v", err)
	}
	if len(f.notifications.created) != 0 || len(f.activities.created) != 0 {
		t.Fatal("losing approver must not write notification or activity")
	}
}

func TestApproveGuestPlateCreatesLinkedAccess(t *testing.T) {
	f := newServiceFixture(t)
	owner := uuid.New()
	plateID := uuid.New()
	emirate := "DXB"
	f.repo.findResult = &models.Plate{
		ID: plateID, UserID: owner, PlateCode: "AB", PlateNumber: "1", Country: "UAE", Emirate: &emirate,
		Type: enums.PlateTypeGuest, Status: enums.PlateStatusPending,
	}
	f.repo.setOK = true

	reviewer := uuid.New()
	_, err := f.svc.ApprovePlate(context.Background(), Actor{ID: reviewer, Role: enums.UserRoleSecurity}, plateID)
	if err != nil {
		t.Fatalf("ApprovePlate: %v", err)
	}
	if f.repo.setApprover == nil || *f.repo.setApprover != reviewer {
		t.Fatalf("expected approver %s recorded, got %v", reviewer, f.repo.setApprover)
	}

	wantExpiry := f.now.Add(24 * time.Hour)
	if f.repo.setExpires == nil || !f.repo.setExpires.Equal(wantExpiry) {
		t.Fatalf("expected expiry %s, got %v", wantExpiry, f.repo.setExpires)
	}
	if len(f.tempAccess.created) != 1 {
		t.Fatalf("expected exactly one linked temporary access, got %d", len(f.tempAccess.created))
	}
	access := f.tempAccess.created[0]
	if !access.ExpiresAt.Equal(wantExpiry) {
		t.Fatalf("access expiry %s must match plate expiry %s", access.ExpiresAt, wantExpiry)
	}
	if access.Status != enums.TemporaryAccessStatusActive {
		t.Fatalf("expected active access, got %s", access.Status)
	}
	if len(f.notifications.created) != 1 || f.notifications.created[0].UserID != owner {
		t.Fatalf("expected one approval notification for owner, got %+v", f.notifications.created)
	}
	if len(f.activities.created) != 1 || f.activities.created[0].Type != enums.ActivityTypePlateApproved {
		t.Fatalf("expected one plate_approved activity, got %+v", f.activities.created)
	}
	if f.invalidator.aggregates == 0 || len(f.invalidator.owners) == 0 {
		t.Fatal("approval must invalidate owner and aggregate caches")
	}
}

func TestApprovePersonalPlateSkipsAccessAndExpiry(t *testing.T) {
	f := newServiceFixture(t)
	plateID := uuid.New()
	f.repo.findResult = &models.Plate{ID: plateID, UserID: uuid.New(), Type: enums.PlateTypePersonal, Status: enums.PlateStatusPending}
	f.repo.setOK = true

	_, err := f.svc.ApprovePlate(context.Background(), Actor{ID: uuid.New(), Role: enums.UserRoleAdmin}, plateID)
	if err != nil {
		t.Fatalf("ApprovePlate: %v", err)
	}
	if f.repo.setExpires != nil {
		t.Fatal("personal plates must not receive an expiry")
	}
	if len(f.tempAccess.created) != 0 {
		t.Fatal("personal approval must not create temporary access")
	}
}

func TestRejectPlateWritesReason(t *testing.T) {
	f := newServiceFixture(t)
	owner := uuid.New()
	plateID := uuid.New()
	f.repo.findResult = &models.Plate{ID: plateID, UserID: owner, PlateCode: "A", PlateNumber: "1", Type: enums.PlateTypePersonal, Status: enums.PlateStatusPending}
	f.repo.setOK = true

	_, err := f.svc.RejectPlate(context.Background(), Actor{ID: uuid.New(), Role: enums.UserRoleSecurity}, plateID, "document unreadable")
	if err != nil {
		t.Fatalf("RejectPlate: %v", err)
	}
	if f.repo.setTo != enums.PlateStatusRejected {
		t.Fatalf("expected rejected transition, got %s", f.repo.setTo)
	}
	if f.repo.setApprover != nil {
		t.Fatalf("rejection must leave approved_by_id untouched, got %v", f.repo.setApprover)
	}
	if f.repo.setExpires != nil {
		t.Fatal("rejection must not touch expiry")
	}
	if len(f.notifications.created) != 1 || f.notifications.created[0].Type != enums.NotificationTypePlateRejected {
		t.Fatalf("expected rejection notification, got %+v", f.notifications.created)
	}
}

func TestRemovePlateOwnership(t *testing.T) {
	f := newServiceFixture(t)
	owner := uuid.New()
	plateID := uuid.New()
	f.repo.findResult = &models.Plate{ID: plateID, UserID: owner, Status: enums.PlateStatusApproved}

	err := f.svc.RemovePlate(context.Background(), Actor{ID: uuid.New(), Role: enums.UserRoleResident}, plateID)
	if !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden for non-owner, got %v", err)
	}

	err = f.svc.RemovePlate(context.Background(), Actor{ID: owner, Role: enums.UserRoleResident}, plateID)
	if err != nil {
		t.Fatalf("RemovePlate: %v", err)
	}
	if len(f.repo.deleted) != 1 || f.repo.deleted[0] != plateID {
		t.Fatalf("expected plate deletion, got %v", f.repo.deleted)
	}
	if len(f.documents.deleted) != 1 || len(f.entries.deleted) != 1 {
		t.Fatal("documents and entries must be deleted with the plate")
	}
}

func TestRemovePlateCleansUpStorageBestEffort(t *testing.T) {
	f := newServiceFixture(t)
	owner := uuid.New()
	plateID := uuid.New()
	f.repo.findResult = &models.Plate{ID: plateID, UserID: owner, Status: enums.PlateStatusApproved}
	f.documents.rows = []models.Document{{PlateID: plateID, StorageKey: "docs/a.pdf"}}
	f.storage.err = errors.New("object store down")

	if err := f.svc.RemovePlate(context.Background(), Actor{ID: owner, Role: enums.UserRoleResident}, plateID); err != nil {
		t.Fatalf("storage failure must not fail removal: %v", err)
	}
	if len(f.storage.deleted) != 1 || f.storage.deleted[0] != "docs/a.pdf" {
		t.Fatalf("expected cleanup attempt, got %v", f.storage.deleted)
	}
}

func TestListPlatesScopesResidentsAndCaches(t *testing.T) {
	f := newServiceFixture(t)
	actor := Actor{ID: uuid.New(), Role: enums.UserRoleResident}
	other := uuid.New()
	f.repo.listRows = []models.Plate{{ID: uuid.New(), UserID: actor.ID}}

	result, err := f.svc.ListPlates(context.Background(), actor, ListParams{UserID: &other})
	if err != nil {
		t.Fatalf("ListPlates: %v", err)
	}
	if len(result.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(result.Items))
	}
	if f.cache.sets != 1 {
		t.Fatalf("expected list to be cached, sets=%d", f.cache.sets)
	}

	// Residents are pinned to their own scope regardless of the filter.
	key := f.svc.(*service).listKey(ListParams{UserID: &actor.ID}, 25)
	f.cache.values[key] = &ListResult{Items: []ListItem{{ID: uuid.New()}}}

	before := f.repo.listCalls
	if _, err := f.svc.ListPlates(context.Background(), actor, ListParams{}); err != nil {
		t.Fatalf("ListPlates cached: %v", err)
	}
	if f.repo.listCalls != before {
		t.Fatal("cache hit must not touch the repository")
	}
}
