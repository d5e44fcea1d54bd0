package controllers

import (
	"context"
	"net/http"

	"github.com/malikhaddad/gatewatch-backend/api/responses"
	"github.com/malikhaddad/gatewatch-backend/internal/sweep"
	pkgerrors "github.com/malikhaddad/gatewatch-backend/pkg/errors"
	"github.com/malikhaddad/gatewatch-backend/pkg/logger"
)

type expirationSweeper interface {
	RunExpirationSweep(ctx context.Context) (sweep.Result, error)
}

// CheckExpired runs the expiration sweep on demand. The cron worker covers
// steady state; this endpoint exists for gate operators who need revocation
// visible immediately.
func CheckExpired(svc expirationSweeper, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sweep service unavailable"))
			return
		}

		result, err := svc.RunExpirationSweep(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
