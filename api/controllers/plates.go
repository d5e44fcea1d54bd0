package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/malikhaddad/gatewatch-backend/api/responses"
	"github.com/malikhaddad/gatewatch-backend/api/validators"
	"github.com/malikhaddad/gatewatch-backend/internal/plates"
	"github.com/malikhaddad/gatewatch-backend/pkg/enums"
	pkgerrors "github.com/malikhaddad/gatewatch-backend/pkg/errors"
	"github.com/malikhaddad/gatewatch-backend/pkg/logger"
	"github.com/malikhaddad/gatewatch-backend/pkg/pagination"
)

type plateDocumentRequest struct {
	FileName   string `json:"file_name" validate:"required,max=255"`
	StorageKey string `json:"storage_key" validate:"required,max=512"`
	MimeType   string `json:"mime_type" validate:"required,max=127"`
}

type plateCreateRequest struct {
	PlateCode   string                 `json:"plate_code" validate:"required,max=8"`
	PlateNumber string                 `json:"plate_number" validate:"required,max=16"`
	Country     string                 `json:"country" validate:"required,max=64"`
	Emirate     *string                `json:"emirate" validate:"omitempty,max=64"`
	Type        string                 `json:"type" validate:"required"`
	Documents   []plateDocumentRequest `json:"documents" validate:"omitempty,dive"`
}

func (p plateCreateRequest) toInput() (plates.CreatePlateInput, error) {
	plateType, err := enums.ParsePlateType(strings.TrimSpace(p.Type))
	if err != nil {
		return plates.CreatePlateInput{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid plate type")
	}

	input := plates.CreatePlateInput{
		PlateCode:   strings.TrimSpace(p.PlateCode),
		PlateNumber: strings.TrimSpace(p.PlateNumber),
		Country:     strings.TrimSpace(p.Country),
		Emirate:     p.Emirate,
		Type:        plateType,
	}
	for _, doc := range p.Documents {
		input.Documents = append(input.Documents, plates.DocumentInput{
			FileName:   strings.TrimSpace(doc.FileName),
			StorageKey: strings.TrimSpace(doc.StorageKey),
			MimeType:   strings.TrimSpace(doc.MimeType),
		})
	}
	return input, nil
}

// PlateCreate registers a plate for the authenticated resident.
func PlateCreate(svc plates.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "plates service unavailable"))
			return
		}

		userID, role, err := actorFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload plateCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.ValidateAndCreatePlate(r.Context(), plates.Actor{ID: userID, Role: role}, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

// PlateDetail returns a plate and its supporting documents.
func PlateDetail(svc plates.Service, logg *logger.Logger) http.HandlerFunc {
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

		details, err := svc.GetPlate(r.Context(), plates.Actor{ID: userID, Role: role}, plateID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, details)
	}
}

// PlateList returns a cursor page of plates. Residents only see their own;
// reviewers may filter by owner, status and type.
func PlateList(svc plates.Service, logg *logger.Logger) http.HandlerFunc {
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

		params := plates.ListParams{}
		params.Limit = limit
		params.Cursor = strings.TrimSpace(r.URL.Query().Get("cursor"))

		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParsePlateStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid plate status"))
				return
			}
			params.Status = &status
		}

		if raw := strings.TrimSpace(r.URL.Query().Get("type")); raw != "" {
			plateType, err := enums.ParsePlateType(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid plate type"))
				return
			}
			params.Type = &plateType
		}

		if raw := strings.TrimSpace(r.URL.Query().Get("user_id")); raw != "" {
			ownerID, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user_id filter"))
				return
			}
			params.UserID = &ownerID
		}

		resp, err := svc.ListPlates(r.Context(), plates.Actor{ID: userID, Role: role}, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, resp)
	}
}

// PlateApprove admits a pending plate. Guest plates receive an access window.
func PlateApprove(svc plates.Service, logg *logger.Logger) http.HandlerFunc {
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

		updated, err := svc.ApprovePlate(r.Context(), plates.Actor{ID: userID, Role: role}, plateID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, updated)
	}
}

type plateRejectRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=512"`
}

// PlateReject declines a pending plate with an optional reason.
func PlateReject(svc plates.Service, logg *logger.Logger) http.HandlerFunc {
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

		var payload plateRejectRequest
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		updated, err := svc.RejectPlate(r.Context(), plates.Actor{ID: userID, Role: role}, plateID, strings.TrimSpace(payload.Reason))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, updated)
	}
}

// PlateRemove deletes a plate along with its documents and entry history.
func PlateRemove(svc plates.Service, logg *logger.Logger) http.HandlerFunc {
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

		if err := svc.RemovePlate(r.Context(), plates.Actor{ID: userID, Role: role}, plateID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]bool{"removed": true})
	}
}
