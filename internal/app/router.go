package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/sacsol/sacsol-api/internal/audit"
	"github.com/sacsol/sacsol-api/internal/auth"
	"github.com/sacsol/sacsol-api/internal/inventory"
	"github.com/sacsol/sacsol-api/internal/observability"
	"github.com/sacsol/sacsol-api/internal/procurement"
	"github.com/sacsol/sacsol-api/internal/roles"
	"github.com/sacsol/sacsol-api/internal/users"
	"github.com/sacsol/sacsol-api/jobs"
	"github.com/sacsol/sacsol-api/report"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	TokenStore         *auth.TokenStore
	AuthHandler        *auth.Handler
	UsersHandler       *users.Handler
	RolesHandler       *roles.Handler
	ProcurementHandler *procurement.Handler
	InventoryHandler   *inventory.Handler
	AuditHandler       *audit.Handler
	ReportHandler      *report.Handler
	JobHandler         *jobs.Handler
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi router with the API defaults. Everything
// except health, metrics and login sits behind the bearer token check.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}
	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/auth", params.AuthHandler.MountRoutes)

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(params.TokenStore))

		params.AuthHandler.MountProtectedRoutes(r)

		r.Route("/procurement", params.ProcurementHandler.MountRoutes)
		r.Route("/inventory", params.InventoryHandler.MountRoutes)

		if params.UsersHandler != nil {
			r.Route("/users", params.UsersHandler.MountRoutes)
		}
		if params.RolesHandler != nil {
			r.Route("/roles", params.RolesHandler.MountRoutes)
		}
		if params.AuditHandler != nil {
			r.Route("/audit", func(r chi.Router) {
				r.Use(auth.RequireAnyRole(auth.RoleOwner, auth.RoleManager))
				params.AuditHandler.MountRoutes(r)
			})
		}
		if params.ReportHandler != nil {
			r.Route("/report", params.ReportHandler.MountRoutes)
		}
		if params.JobHandler != nil {
			r.Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	return r
}
