package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/aivodrive/internal/auth"
	"github.com/ukydev/aivodrive/internal/db"
	"github.com/ukydev/aivodrive/internal/middleware"
	"github.com/ukydev/aivodrive/internal/models"
	"github.com/ukydev/aivodrive/internal/response"
	"github.com/ukydev/aivodrive/internal/service"
)

// RouterConfig carries everything the HTTP layer depends on.
type RouterConfig struct {
	Store        *db.Store
	Services     *service.Services
	Auth         *auth.Service
	LoginLimiter *middleware.RateLimiter // nil disables login throttling
	Logger       *log.Logger
	Development  bool
	CORSOrigin   string
}

const (
	admin      = models.RoleAdmin
	dispatcher = models.RoleDispatcher
	driver     = models.RoleDriver
)

// NewRouter builds the API handler with its middleware chain.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}
	dev := cfg.Development
	authMW := middleware.NewAuthMiddleware(cfg.Auth, cfg.Store.Users)

	r := mux.NewRouter()
	r.Use(middleware.Metrics)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, http.StatusNotFound, "Route not found", "")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, http.StatusMethodNotAllowed, "Method not allowed", "")
	})

	r.HandleFunc("/health", health(cfg.Store)).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	// Routes are registered flat on r. Inside a mux subrouter a later route
	// sharing the path prefix clears a method mismatch, so a wrong verb would
	// answer 404 instead of 405.
	authHandler := NewAuthHandler(cfg.Auth, cfg.Store.Users, logger, dev)
	var login http.Handler = http.HandlerFunc(authHandler.Login)
	if cfg.LoginLimiter != nil {
		login = cfg.LoginLimiter.Limit(login)
	}
	r.Handle("/api/auth/login", login).Methods(http.MethodPost)

	signedIn := func(h http.HandlerFunc) http.Handler {
		return authMW.Authenticate(h)
	}
	allow := func(h http.HandlerFunc, roles ...models.Role) http.Handler {
		return authMW.Authenticate(authMW.RequireRole(roles...)(h))
	}

	r.Handle("/api/auth/register", allow(authHandler.Register, admin)).Methods(http.MethodPost)
	r.Handle("/api/auth/profile", signedIn(authHandler.GetProfile)).Methods(http.MethodGet)
	r.Handle("/api/auth/profile", signedIn(authHandler.UpdateProfile)).Methods(http.MethodPut)
	r.Handle("/api/auth/password", signedIn(authHandler.ChangePassword)).Methods(http.MethodPut)

	// vehicles
	vehicles := NewVehicleHandler(cfg.Services.Vehicles, logger, dev)
	r.Handle("/api/vehicles/stats", allow(vehicles.Stats, admin, dispatcher, driver)).Methods(http.MethodGet)
	r.Handle("/api/vehicles", allow(vehicles.List, admin, dispatcher, driver)).Methods(http.MethodGet)
	r.Handle("/api/vehicles", allow(vehicles.Create, admin, dispatcher)).Methods(http.MethodPost)
	r.Handle("/api/vehicles/{id}", allow(vehicles.Get, admin, dispatcher, driver)).Methods(http.MethodGet)
	r.Handle("/api/vehicles/{id}", allow(vehicles.Update, admin, dispatcher)).Methods(http.MethodPut)
	r.Handle("/api/vehicles/{id}", allow(vehicles.Delete, admin)).Methods(http.MethodDelete)

	// drivers
	drivers := NewDriverHandler(cfg.Services.Drivers, logger, dev)
	r.Handle("/api/drivers/stats", allow(drivers.Stats, admin)).Methods(http.MethodGet)
	r.Handle("/api/drivers", allow(drivers.List, admin, dispatcher)).Methods(http.MethodGet)
	r.Handle("/api/drivers", allow(drivers.Create, admin)).Methods(http.MethodPost)
	r.Handle("/api/drivers/{id}", allow(drivers.Get, admin, dispatcher)).Methods(http.MethodGet)
	r.Handle("/api/drivers/{id}", allow(drivers.Update, admin)).Methods(http.MethodPut)
	r.Handle("/api/drivers/{id}", allow(drivers.Delete, admin)).Methods(http.MethodDelete)

	// trips
	trips := NewTripHandler(cfg.Services.Trips, logger, dev)
	r.Handle("/api/trips/stats", allow(trips.Stats, admin, dispatcher, driver)).Methods(http.MethodGet)
	r.Handle("/api/trips", allow(trips.List, admin, dispatcher, driver)).Methods(http.MethodGet)
	r.Handle("/api/trips", allow(trips.Create, admin, dispatcher)).Methods(http.MethodPost)
	r.Handle("/api/trips/{id}", allow(trips.Get, admin, dispatcher, driver)).Methods(http.MethodGet)
	r.Handle("/api/trips/{id}", allow(trips.Update, admin, dispatcher, driver)).Methods(http.MethodPut)
	r.Handle("/api/trips/{id}", allow(trips.Delete, admin)).Methods(http.MethodDelete)

	// maintenance
	maint := NewMaintenanceHandler(cfg.Services.Maintenance, logger, dev)
	r.Handle("/api/maintenance/stats", allow(maint.Stats, admin)).Methods(http.MethodGet)
	r.Handle("/api/maintenance", allow(maint.List, admin, dispatcher)).Methods(http.MethodGet)
	r.Handle("/api/maintenance", allow(maint.Create, admin, dispatcher)).Methods(http.MethodPost)
	r.Handle("/api/maintenance/{id}", allow(maint.Get, admin, dispatcher)).Methods(http.MethodGet)
	r.Handle("/api/maintenance/{id}", allow(maint.Update, admin, dispatcher)).Methods(http.MethodPut)
	r.Handle("/api/maintenance/{id}", allow(maint.Delete, admin)).Methods(http.MethodDelete)

	// fuel
	fuel := NewFuelHandler(cfg.Services.Fuel, logger, dev)
	r.Handle("/api/fuel/stats", allow(fuel.Stats, admin, dispatcher)).Methods(http.MethodGet)
	r.Handle("/api/fuel/efficiency-report", allow(fuel.EfficiencyReport, admin, dispatcher)).Methods(http.MethodGet)
	r.Handle("/api/fuel", allow(fuel.List, admin, dispatcher, driver)).Methods(http.MethodGet)
	r.Handle("/api/fuel", allow(fuel.Create, admin, dispatcher, driver)).Methods(http.MethodPost)
	r.Handle("/api/fuel/{id}", allow(fuel.Get, admin, dispatcher, driver)).Methods(http.MethodGet)
	r.Handle("/api/fuel/{id}", allow(fuel.Update, admin, dispatcher)).Methods(http.MethodPut)
	r.Handle("/api/fuel/{id}", allow(fuel.Delete, admin, dispatcher)).Methods(http.MethodDelete)

	// alerts
	alerts := NewAlertHandler(cfg.Services.Alerts, logger, dev)
	r.Handle("/api/alerts/unread/count", allow(alerts.UnreadCount, admin)).Methods(http.MethodGet)
	r.Handle("/api/alerts", allow(alerts.List, admin)).Methods(http.MethodGet)
	r.Handle("/api/alerts", allow(alerts.Create, admin)).Methods(http.MethodPost)
	r.Handle("/api/alerts/{id}", allow(alerts.Get, admin)).Methods(http.MethodGet)
	r.Handle("/api/alerts/{id}", allow(alerts.Update, admin)).Methods(http.MethodPut)
	r.Handle("/api/alerts/{id}", allow(alerts.Delete, admin)).Methods(http.MethodDelete)
	r.Handle("/api/alerts/{id}/read", allow(alerts.MarkRead, admin)).Methods(http.MethodPut)

	// reports
	reports := NewReportHandler(cfg.Services.Reports, logger, dev)
	r.Handle("/api/reports/daily-summary", allow(reports.DailySummary, admin)).Methods(http.MethodGet)
	r.Handle("/api/reports/maintenance-due", allow(reports.MaintenanceDue, admin)).Methods(http.MethodGet)
	r.Handle("/api/reports/fleet-performance", allow(reports.FleetPerformance, admin)).Methods(http.MethodGet)

	// Outside the mux so preflight and unmatched requests are covered too.
	var h http.Handler = r
	h = middleware.CORS(cfg.CORSOrigin)(h)
	h = middleware.Recover(logger)(h)
	h = middleware.Logging(logger)(h)
	h = middleware.RequestID(h)
	return h
}

func health(store *db.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := map[string]string{"status": "ok", "database": "up"}
		if store.Ping != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := store.Ping(ctx); err != nil {
				status["status"], status["database"] = "degraded", "down"
				response.JSON(w, response.Envelope{
					Message:    "Service degraded",
					StatusCode: http.StatusServiceUnavailable,
					Data:       status,
				})
				return
			}
		}
		response.Success(w, http.StatusOK, "Service healthy", status)
	}
}
