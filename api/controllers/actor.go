package controllers

import (
	"context"

	"github.com/google/uuid"

	"github.com/malikhaddad/gatewatch-backend/api/middleware"
	"github.com/malikhaddad/gatewatch-backend/pkg/enums"
	pkgerrors "github.com/malikhaddad/gatewatch-backend/pkg/errors"
)

// actorFromContext resolves the authenticated caller seeded by the auth
// middleware.
func actorFromContext(ctx context.Context) (uuid.UUID, enums.UserRole, error) {
	raw := middleware.UserIDFromContext(ctx)
	if raw == "" {
		return uuid.Nil, "", pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}

	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id")
	}

	role := enums.UserRole(middleware.RoleFromContext(ctx))
	if !role.IsValid() {
		return uuid.Nil, "", pkgerrors.New(pkgerrors.CodeUnauthorized, "role context missing")
	}

	return userID, role, nil
}
