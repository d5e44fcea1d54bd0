package entries

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/malikhaddad/gatewatch-backend/pkg/db/models"
	"github.com/malikhaddad/gatewatch-backend/pkg/enums"
	pkgerrors "github.com/malikhaddad/gatewatch-backend/pkg/errors"
	"github.com/malikhaddad/gatewatch-backend/pkg/pagination"
)

type stubPlatesReader struct {
	plate *models.Plate
}

func (s *stubPlatesReader) FindByID(ctx context.Context, id uuid.UUID) (*models.Plate, error) {
	return s.plate, nil
}

func setupEntriesDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:entries_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.Exec(`CREATE TABLE IF NOT EXISTS entries (
  id TEXT PRIMARY KEY,
  plate_id TEXT NOT NULL,
  gate TEXT NOT NULL,
  recorded_at DATETIME NOT NULL,
  created_at DATETIME
);`).Error)
	return conn
}

func TestRecordEntry(t *testing.T) {
	conn := setupEntriesDB(t)
	owner := uuid.New()
	plate := &models.Plate{ID: uuid.New(), UserID: owner, Status: enums.PlateStatusApproved}
	svc, err := NewService(NewRepository(conn), &stubPlatesReader{plate: plate})
	require.NoError(t, err)
	ctx := context.Background()

	entry, err := svc.RecordEntry(ctx, enums.UserRoleSecurity, plate.ID, "north-gate", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, "north-gate", entry.Gate)
	assert.False(t, entry.RecordedAt.IsZero())

	_, err = svc.RecordEntry(ctx, enums.UserRoleResident, plate.ID, "north-gate", time.Time{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	plate.Status = enums.PlateStatusPending
	_, err = svc.RecordEntry(ctx, enums.UserRoleSecurity, plate.ID, "north-gate", time.Time{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestListEntriesScoping(t *testing.T) {
	conn := setupEntriesDB(t)
	owner := uuid.New()
	plate := &models.Plate{ID: uuid.New(), UserID: owner, Status: enums.PlateStatusApproved}
	svc, err := NewService(NewRepository(conn), &stubPlatesReader{plate: plate})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = svc.RecordEntry(ctx, enums.UserRoleSecurity, plate.ID, "north-gate", time.Time{})
	require.NoError(t, err)

	result, err := svc.ListEntries(ctx, owner, enums.UserRoleResident, plate.ID, pagination.Params{})
	require.NoError(t, err)
	assert.Len(t, result.Items, 1)

	_, err = svc.ListEntries(ctx, uuid.New(), enums.UserRoleResident, plate.ID, pagination.Params{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}
