package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/malikhaddad/gatewatch-backend/api/responses"
	"github.com/malikhaddad/gatewatch-backend/pkg/config"
	"github.com/malikhaddad/gatewatch-backend/pkg/db"
	pkgerrors "github.com/malikhaddad/gatewatch-backend/pkg/errors"
	"github.com/malikhaddad/gatewatch-backend/pkg/logger"
	"github.com/malikhaddad/gatewatch-backend/pkg/redis"
	"github.com/malikhaddad/gatewatch-backend/pkg/storage/gcs"
)

const readinessTimeout = 5 * time.Second

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-GateWatch-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every hard dependency before reporting ready.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, redisP redis.Pinger, gcsP gcs.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-GateWatch-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		checks := []struct {
			name   string
			pinger interface {
				Ping(context.Context) error
			}
		}{
			{"database", dbP},
			{"redis", redisP},
			{"gcs", gcsP},
		}

		for _, check := range checks {
			if check.pinger == nil {
				continue
			}
			if err := check.pinger.Ping(ctx); err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeDependency, err, "dependency unavailable").
						WithDetails(map[string]any{"dependency": check.name}))
				return
			}
		}

		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
