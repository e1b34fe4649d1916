package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jortega-dev/riverside-backend/api/controllers"
	"github.com/jortega-dev/riverside-backend/api/middleware"
	"github.com/jortega-dev/riverside-backend/internal/availability"
	"github.com/jortega-dev/riverside-backend/internal/inventory"
	"github.com/jortega-dev/riverside-backend/internal/packages"
	"github.com/jortega-dev/riverside-backend/internal/reservations"
	"github.com/jortega-dev/riverside-backend/pkg/config"
	"github.com/jortega-dev/riverside-backend/pkg/db"
	"github.com/jortega-dev/riverside-backend/pkg/logger"
	"github.com/jortega-dev/riverside-backend/pkg/redis"
)

// Deps bundles everything the HTTP surface needs.
type Deps struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            db.Pinger
	Redis         redis.Pinger
	Availability  availability.Service
	Inventory     inventory.Service
	Reservations  reservations.Service
	Packages      packages.Service
	MetricsGather prometheus.Gatherer
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Redis))
	})

	if deps.MetricsGather != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.MetricsGather, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/resources/{resourceId}", func(r chi.Router) {
			r.Get("/availability", controllers.AvailabilityList(deps.Availability, logg))
			r.Get("/items", controllers.ResourceItems(deps.Inventory, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequirePrivileged(logg))
				r.Post("/availability/generate", controllers.AvailabilityGenerate(deps.Availability, logg))
				r.Post("/availability/blackout", controllers.AvailabilityBlackout(deps.Availability, logg))
				r.Delete("/availability/blackout", controllers.AvailabilityClearBlackout(deps.Availability, logg))
			})
		})

		r.Route("/reservations", func(r chi.Router) {
			r.Post("/", controllers.ReservationCreate(deps.Reservations, logg))
			r.Get("/", controllers.ReservationList(deps.Reservations, logg))
			r.Get("/{reservationId}", controllers.ReservationDetail(deps.Reservations, logg))
			r.Post("/{reservationId}/transition", controllers.ReservationTransition(deps.Reservations, logg))
			r.Post("/{reservationId}/confirm", controllers.ReservationConfirmPayment(deps.Reservations, logg))
		})

		r.Route("/packages", func(r chi.Router) {
			r.Post("/", controllers.PackageCreate(deps.Packages, logg))
			r.Get("/", controllers.PackageList(deps.Packages, logg))
			r.Get("/{packageId}", controllers.PackageDetail(deps.Packages, logg))
			r.Get("/{packageId}/quote", controllers.PackageQuote(deps.Packages, logg))
			r.Post("/{packageId}/confirm", controllers.PackageConfirm(deps.Packages, logg))
			r.Post("/{packageId}/cancel", controllers.PackageCancel(deps.Packages, logg))
			r.With(middleware.RequirePrivileged(logg)).
				Post("/{packageId}/discount", controllers.PackageApplyDiscount(deps.Packages, logg))
		})

		r.Route("/items/{itemId}", func(r chi.Router) {
			r.Get("/availability", controllers.ItemAvailability(deps.Inventory, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequirePrivileged(logg))
				r.Get("/movements", controllers.ItemMovements(deps.Inventory, logg))
				r.Post("/movements", controllers.ItemRecordMovement(deps.Inventory, logg))
				r.Post("/recompute", controllers.ItemRecompute(deps.Inventory, logg))
			})
		})
	})

	return r
}
