package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/malikhaddad/gatewatch-backend/api/responses"
	"github.com/malikhaddad/gatewatch-backend/api/validators"
	"github.com/malikhaddad/gatewatch-backend/internal/tempaccess"
	"github.com/malikhaddad/gatewatch-backend/pkg/enums"
	pkgerrors "github.com/malikhaddad/gatewatch-backend/pkg/errors"
	"github.com/malikhaddad/gatewatch-backend/pkg/logger"
	"github.com/malikhaddad/gatewatch-backend/pkg/pagination"
)

type temporaryAccessCreateRequest struct {
	PlateCode   string     `json:"plate_code" validate:"required,max=8"`
	PlateNumber string     `json:"plate_number" validate:"required,max=16"`
	Country     string     `json:"country" validate:"required,max=64"`
	Emirate     *string    `json:"emirate" validate:"omitempty,max=64"`
	Purpose     string     `json:"purpose" validate:"omitempty,max=255"`
	ExpiresAt   *time.Time `json:"expires_at"`
}

// TemporaryAccessCreate issues an ad-hoc gate pass and its approved guest
// mirror plate in one shot.
func TemporaryAccessCreate(svc tempaccess.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "temporary access service unavailable"))
			return
		}

		userID, _, err := actorFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload temporaryAccessCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := tempaccess.CreateInput{
			PlateCode:   strings.TrimSpace(payload.PlateCode),
			PlateNumber: strings.TrimSpace(payload.PlateNumber),
			Country:     strings.TrimSpace(payload.Country),
			Emirate:     payload.Emirate,
			Purpose:     strings.TrimSpace(payload.Purpose),
		}
		if payload.ExpiresAt != nil {
			input.ExpiresAt = *payload.ExpiresAt
		}

		created, err := svc.CreateTemporaryAccess(r.Context(), userID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

// TemporaryAccessForceExpire closes a pass before its deadline, expiring the
// mirror guest plate with it.
func TemporaryAccessForceExpire(svc tempaccess.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, role, err := actorFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		accessID, err := uuid.Parse(chi.URLParam(r, "accessId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid access id"))
			return
		}

		updated, err := svc.ForceExpireTemporaryAccess(r.Context(), userID, role, accessID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, updated)
	}
}

// TemporaryAccessDetail returns a single pass.
func TemporaryAccessDetail(svc tempaccess.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, role, err := actorFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		accessID, err := uuid.Parse(chi.URLParam(r, "accessId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid access id"))
			return
		}

		access, err := svc.GetTemporaryAccess(r.Context(), userID, role, accessID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, access)
	}
}

// TemporaryAccessList pages through passes. Residents only see their own.
func TemporaryAccessList(svc tempaccess.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, role, err := actorFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := tempaccess.ListParams{}
		params.Limit = limit
		params.Cursor = strings.TrimSpace(r.URL.Query().Get("cursor"))

		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseTemporaryAccessStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid access status"))
				return
			}
			params.Status = &status
		}

		resp, err := svc.ListTemporaryAccesses(r.Context(), userID, role, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, resp)
	}
}
