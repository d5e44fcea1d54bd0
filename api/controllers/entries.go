package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/malikhaddad/gatewatch-backend/api/responses"
	"github.com/malikhaddad/gatewatch-backend/api/validators"
	"github.com/malikhaddad/gatewatch-backend/internal/entries"
	pkgerrors "github.com/malikhaddad/gatewatch-backend/pkg/errors"
	"github.com/malikhaddad/gatewatch-backend/pkg/logger"
	"github.com/malikhaddad/gatewatch-backend/pkg/pagination"
)

type entryRecordRequest struct {
	Gate string     `json:"gate" validate:"required,max=64"`
	At   *time.Time `json:"at"`
}

// EntryRecord logs a gate passage for an admitted plate. Gate hardware
// resolves the plate before calling in, so only reviewer tokens hit this.
func EntryRecord(svc entries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "entries service unavailable"))
			return
		}

		_, role, err := actorFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		plateID, err := uuid.Parse(chi.URLParam(r, "plateId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid plate id"))
			return
		}

		var payload entryRecordRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		at := time.Time{}
		if payload.At != nil {
			at = *payload.At
		}

		entry, err := svc.RecordEntry(r.Context(), role, plateID, strings.TrimSpace(payload.Gate), at)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, entry)
	}
}

// EntryList returns the passage history of a plate.
func EntryList(svc entries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, role, err := actorFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		plateID, err := uuid.Parse(chi.URLParam(r, "plateId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid plate id"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}

		resp, err := svc.ListEntries(r.Context(), userID, role, plateID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, resp)
	}
}
