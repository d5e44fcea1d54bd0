package plates

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/malikhaddad/gatewatch-backend/pkg/db"
	"github.com/malikhaddad/gatewatch-backend/pkg/db/models"
	"github.com/malikhaddad/gatewatch-backend/pkg/enums"
	"github.com/malikhaddad/gatewatch-backend/pkg/pagination"
)

func setupPlatesTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:plates_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS plates (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  plate_code TEXT NOT NULL,
  plate_number TEXT NOT NULL,
  country TEXT NOT NULL,
  emirate TEXT,
  type TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  expires_at DATETIME,
  approved_by_id TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, conn.Exec(schema).Error)
	require.NoError(t, conn.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_plates_personal_identity ON plates (plate_code, plate_number, country, type) WHERE type = 'personal'`).Error)
	return conn
}

func seedPlate(t *testing.T, conn *gorm.DB, plate *models.Plate) *models.Plate {
	t.Helper()
	if plate.ID == uuid.Nil {
		plate.ID = uuid.New()
	}
	require.NoError(t, conn.Create(plate).Error)
	return plate
}

func TestRepositoryFindByOwnerAndIdentity(t *testing.T) {
	conn := setupPlatesTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	owner := uuid.New()

	match := seedPlate(t, conn, &models.Plate{
		UserID: owner, PlateCode: "AB", PlateNumber: "123", Country: "UAE",
		Type: enums.PlateTypeGuest, Status: enums.PlateStatusApproved,
	})
	seedPlate(t, conn, &models.Plate{
		UserID: owner, PlateCode: "AB", PlateNumber: "999", Country: "UAE",
		Type: enums.PlateTypeGuest, Status: enums.PlateStatusApproved,
	})
	seedPlate(t, conn, &models.Plate{
		UserID: uuid.New(), PlateCode: "AB", PlateNumber: "123", Country: "UAE",
		Type: enums.PlateTypeGuest, Status: enums.PlateStatusApproved,
	})

	rows, err := repo.FindByOwnerAndIdentity(ctx, owner, "AB", "123", "UAE")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, match.ID, rows[0].ID)
}

func TestRepositoryReviveGuardAppliesOnce(t *testing.T) {
	conn := setupPlatesTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	owner := uuid.New()

	expired := seedPlate(t, conn, &models.Plate{
		UserID: owner, PlateCode: "AB", PlateNumber: "123", Country: "UAE",
		Type: enums.PlateTypeGuest, Status: enums.PlateStatusExpired,
	})

	revived, err := repo.Revive(ctx, expired.ID, owner)
	require.NoError(t, err)
	require.True(t, revived)

	reloaded, err := repo.FindByID(ctx, expired.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded)
	assert.Equal(t, enums.PlateStatusPending, reloaded.Status)
	assert.Nil(t, reloaded.ExpiresAt)
	assert.Nil(t, reloaded.ApprovedByID)

	// Same row id is reused, no sibling insert.
	var count int64
	require.NoError(t, conn.Model(&models.Plate{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	again, err := repo.Revive(ctx, expired.ID, owner)
	require.NoError(t, err)
	assert.False(t, again, "second revival must lose the status guard")
}

func TestRepositorySetStatusSingleWinner(t *testing.T) {
	conn := setupPlatesTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	approver := uuid.New()

	pending := seedPlate(t, conn, &models.Plate{
		UserID: uuid.New(), PlateCode: "CD", PlateNumber: "777", Country: "UAE",
		Type: enums.PlateTypePersonal, Status: enums.PlateStatusPending,
	})

	won, err := repo.SetStatus(ctx, pending.ID, enums.PlateStatusPending, enums.PlateStatusApproved, &approver, nil)
	require.NoError(t, err)
	require.True(t, won)

	lost, err := repo.SetStatus(ctx, pending.ID, enums.PlateStatusPending, enums.PlateStatusRejected, &approver, nil)
	require.NoError(t, err)
	assert.False(t, lost, "second transition from PENDING must not apply")

	reloaded, err := repo.FindByID(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PlateStatusApproved, reloaded.Status)
	require.NotNil(t, reloaded.ApprovedByID)
	assert.Equal(t, approver, *reloaded.ApprovedByID)
}

func TestRepositoryPersonalIdentityUnique(t *testing.T) {
	conn := setupPlatesTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.Plate{
		ID: uuid.New(), UserID: uuid.New(), PlateCode: "A", PlateNumber: "1", Country: "UAE",
		Type: enums.PlateTypePersonal, Status: enums.PlateStatusPending,
	}))

	err := repo.Create(ctx, &models.Plate{
		ID: uuid.New(), UserID: uuid.New(), PlateCode: "A", PlateNumber: "1", Country: "UAE",
		Type: enums.PlateTypePersonal, Status: enums.PlateStatusPending,
	})
	require.Error(t, err)
	assert.True(t, db.IsUniqueViolation(err, ""))

	// Guest plates carry no cross-user uniqueness.
	require.NoError(t, repo.Create(ctx, &models.Plate{
		ID: uuid.New(), UserID: uuid.New(), PlateCode: "A", PlateNumber: "1", Country: "UAE",
		Type: enums.PlateTypeGuest, Status: enums.PlateStatusPending,
	}))
	require.NoError(t, repo.Create(ctx, &models.Plate{
		ID: uuid.New(), UserID: uuid.New(), PlateCode: "A", PlateNumber: "1", Country: "UAE",
		Type: enums.PlateTypeGuest, Status: enums.PlateStatusPending,
	}))
}

func TestRepositoryExpireGuestsByIdentity(t *testing.T) {
	conn := setupPlatesTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	emirate := "DXB"

	withEmirateRow := seedPlate(t, conn, &models.Plate{
		UserID: uuid.New(), PlateCode: "AB", PlateNumber: "1", Country: "UAE", Emirate: &emirate,
		Type: enums.PlateTypeGuest, Status: enums.PlateStatusApproved,
	})
	nullEmirateRow := seedPlate(t, conn, &models.Plate{
		UserID: uuid.New(), PlateCode: "AB", PlateNumber: "1", Country: "UAE",
		Type: enums.PlateTypeGuest, Status: enums.PlateStatusApproved,
	})

	affected, err := repo.ExpireGuestsByIdentity(ctx, "AB", "1", "UAE", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	reloaded, err := repo.FindByID(ctx, nullEmirateRow.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PlateStatusExpired, reloaded.Status)

	untouched, err := repo.FindByID(ctx, withEmirateRow.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PlateStatusApproved, untouched.Status)
}

func TestRepositoryApproveShadowIgnoresCurrentStatus(t *testing.T) {
	conn := setupPlatesTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	expiry := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Second)

	expired := seedPlate(t, conn, &models.Plate{
		UserID: uuid.New(), PlateCode: "AB", PlateNumber: "1", Country: "UAE",
		Type: enums.PlateTypeGuest, Status: enums.PlateStatusExpired,
	})
	personal := seedPlate(t, conn, &models.Plate{
		UserID: uuid.New(), PlateCode: "AB", PlateNumber: "2", Country: "UAE",
		Type: enums.PlateTypePersonal, Status: enums.PlateStatusExpired,
	})

	ok, err := repo.ApproveShadow(ctx, expired.ID, expiry)
	require.NoError(t, err)
	require.True(t, ok)

	reloaded, err := repo.FindByID(ctx, expired.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PlateStatusApproved, reloaded.Status)
	require.NotNil(t, reloaded.ExpiresAt)
	assert.True(t, reloaded.ExpiresAt.Equal(expiry))

	ok, err = repo.ApproveShadow(ctx, personal.ID, expiry)
	require.NoError(t, err)
	assert.False(t, ok, "personal plates are never shadows")
}

func TestRepositorySweepExpiredGuestsIdempotent(t *testing.T) {
	conn := setupPlatesTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	now := time.Now().UTC()

	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	dueGuest := seedPlate(t, conn, &models.Plate{
		UserID: uuid.New(), PlateCode: "G", PlateNumber: "1", Country: "UAE",
		Type: enums.PlateTypeGuest, Status: enums.PlateStatusApproved, ExpiresAt: &past,
	})
	liveGuest := seedPlate(t, conn, &models.Plate{
		UserID: uuid.New(), PlateCode: "G", PlateNumber: "2", Country: "UAE",
		Type: enums.PlateTypeGuest, Status: enums.PlateStatusApproved, ExpiresAt: &future,
	})
	personal := seedPlate(t, conn, &models.Plate{
		UserID: uuid.New(), PlateCode: "P", PlateNumber: "1", Country: "UAE",
		Type: enums.PlateTypePersonal, Status: enums.PlateStatusApproved,
	})

	affected, err := repo.SweepExpiredGuests(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	affected, err = repo.SweepExpiredGuests(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(0), affected, "repeated sweep must be a no-op")

	expired, err := repo.FindByID(ctx, dueGuest.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PlateStatusExpired, expired.Status)

	for _, id := range []uuid.UUID{liveGuest.ID, personal.ID} {
		row, err := repo.FindByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, enums.PlateStatusApproved, row.Status)
	}
}

func TestRepositoryListPaginates(t *testing.T) {
	conn := setupPlatesTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	owner := uuid.New()

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		seedPlate(t, conn, &models.Plate{
			UserID: owner, PlateCode: "L", PlateNumber: uuid.NewString()[:6], Country: "UAE",
			Type: enums.PlateTypeGuest, Status: enums.PlateStatusPending,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}

	firstPage, cursor, err := repo.List(ctx, listQuery{UserID: &owner, Limit: 2})
	require.NoError(t, err)
	require.Len(t, firstPage, 2)
	require.NotNil(t, cursor)

	secondPage, next, err := repo.List(ctx, listQuery{UserID: &owner, Limit: 2, Cursor: cursor})
	require.NoError(t, err)
	require.Len(t, secondPage, 1)
	assert.Nil(t, next)

	pending := enums.PlateStatusPending
	filtered, _, err := repo.List(ctx, listQuery{UserID: &owner, Status: &pending, Limit: pagination.DefaultLimit})
	require.NoError(t, err)
	assert.Len(t, filtered, 3)
}
