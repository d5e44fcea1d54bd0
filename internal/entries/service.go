package entries

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/malikhaddad/gatewatch-backend/pkg/db/models"
	"github.com/malikhaddad/gatewatch-backend/pkg/enums"
	pkgerrors "github.com/malikhaddad/gatewatch-backend/pkg/errors"
	pkgpagination "github.com/malikhaddad/gatewatch-backend/pkg/pagination"
)

type platesReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Plate, error)
}

// ListResult wraps entry rows with the cursor for the next page.
type ListResult struct {
	Items  []models.Entry `json:"items"`
	Cursor string         `json:"cursor"`
}

// Service records and lists gate passages. Only admitted plates produce
// entries; the gate hardware is trusted to resolve plate identity upstream.
type Service interface {
	RecordEntry(ctx context.Context, actorRole enums.UserRole, plateID uuid.UUID, gate string, at time.Time) (*models.Entry, error)
	ListEntries(ctx context.Context, actorID uuid.UUID, actorRole enums.UserRole, plateID uuid.UUID, params pkgpagination.Params) (*ListResult, error)
}

type service struct {
	repo   *Repository
	plates platesReader
	now    func() time.Time
}

// NewService builds the gate entry service.
func NewService(repo *Repository, plates platesReader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("entries repository required")
	}
	if plates == nil {
		return nil, fmt.Errorf("plates repository required")
	}
	return &service{repo: repo, plates: plates, now: time.Now}, nil
}

func (s *service) RecordEntry(ctx context.Context, actorRole enums.UserRole, plateID uuid.UUID, gate string, at time.Time) (*models.Entry, error) {
	if !actorRole.CanReviewPlates() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role cannot record gate entries")
	}
	if gate == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gate identifier required")
	}

	plate, err := s.plates.FindByID(ctx, plateID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading plate")
	}
	if plate == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "plate not found")
	}
	if plate.Status != enums.PlateStatusApproved {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "plate is not admitted")
	}

	if at.IsZero() {
		at = s.now().UTC()
	}
	entry := &models.Entry{
		ID:         uuid.New(),
		PlateID:    plateID,
		Gate:       gate,
		RecordedAt: at,
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "recording entry")
	}
	return entry, nil
}

func (s *service) ListEntries(ctx context.Context, actorID uuid.UUID, actorRole enums.UserRole, plateID uuid.UUID, params pkgpagination.Params) (*ListResult, error) {
	plate, err := s.plates.FindByID(ctx, plateID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading plate")
	}
	if plate == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "plate not found")
	}
	if plate.UserID != actorID && !actorRole.CanReviewPlates() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "plate belongs to another user")
	}

	cursor, err := pkgpagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid cursor")
	}

	rows, next, err := s.repo.ListByPlate(ctx, plateID, params.Limit, cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing entries")
	}

	result := &ListResult{Items: rows}
	if next != nil {
		result.Cursor = pkgpagination.EncodeCursor(*next)
	}
	return result, nil
}
