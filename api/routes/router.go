package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/malikhaddad/gatewatch-backend/api/controllers"
	"github.com/malikhaddad/gatewatch-backend/api/middleware"
	"github.com/malikhaddad/gatewatch-backend/internal/activities"
	"github.com/malikhaddad/gatewatch-backend/internal/entries"
	"github.com/malikhaddad/gatewatch-backend/internal/notifications"
	"github.com/malikhaddad/gatewatch-backend/internal/plates"
	"github.com/malikhaddad/gatewatch-backend/internal/sweep"
	"github.com/malikhaddad/gatewatch-backend/internal/tempaccess"
	"github.com/malikhaddad/gatewatch-backend/internal/users"
	"github.com/malikhaddad/gatewatch-backend/pkg/config"
	"github.com/malikhaddad/gatewatch-backend/pkg/db"
	"github.com/malikhaddad/gatewatch-backend/pkg/logger"
	"github.com/malikhaddad/gatewatch-backend/pkg/redis"
	"github.com/malikhaddad/gatewatch-backend/pkg/storage/gcs"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP redis.Pinger,
	gcsP gcs.Pinger,
	metricsRegistry *prometheus.Registry,
	platesService plates.Service,
	entriesService entries.Service,
	tempAccessService tempaccess.Service,
	notificationsService notifications.Service,
	sweepService *sweep.Service,
	usersRepo *users.Repository,
	activitiesRepo *activities.Repository,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP, gcsP))
	})

	if metricsRegistry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(metricsRegistry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/plates", func(r chi.Router) {
			r.Get("/", controllers.PlateList(platesService, logg))
			r.Post("/", controllers.PlateCreate(platesService, logg))
			r.Get("/{plateId}", controllers.PlateDetail(platesService, logg))
			r.Delete("/{plateId}", controllers.PlateRemove(platesService, logg))
			r.Get("/{plateId}/entries", controllers.EntryList(entriesService, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireReviewer(logg))
				r.Post("/{plateId}/approve", controllers.PlateApprove(platesService, logg))
				r.Post("/{plateId}/reject", controllers.PlateReject(platesService, logg))
				r.Post("/{plateId}/entries", controllers.EntryRecord(entriesService, logg))
			})
		})

		r.Route("/temporary-accesses", func(r chi.Router) {
			r.Get("/", controllers.TemporaryAccessList(tempAccessService, logg))
			r.Post("/", controllers.TemporaryAccessCreate(tempAccessService, logg))
			r.Get("/{accessId}", controllers.TemporaryAccessDetail(tempAccessService, logg))
			r.Post("/{accessId}/expire", controllers.TemporaryAccessForceExpire(tempAccessService, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(notificationsService, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(notificationsService, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(notificationsService, logg))
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/me", controllers.UserProfile(usersRepo, logg))
			r.Get("/me/activities", controllers.UserActivities(activitiesRepo, logg))
		})

		r.With(middleware.RequireReviewer(logg)).
			Post("/maintenance/check-expired", controllers.CheckExpired(sweepService, logg))
	})

	return r
}
