package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/apricityDigital/attendease-backend/internal/config"
	appmiddleware "github.com/apricityDigital/attendease-backend/internal/middleware"
	"github.com/apricityDigital/attendease-backend/internal/messaging"
	"github.com/apricityDigital/attendease-backend/internal/objectstore"
	"github.com/apricityDigital/attendease-backend/internal/repository"
	"github.com/apricityDigital/attendease-backend/internal/services/attendance"
	"github.com/apricityDigital/attendease-backend/internal/services/punch"
	"github.com/apricityDigital/attendease-backend/internal/services/rbac"
	"github.com/apricityDigital/attendease-backend/internal/services/report"
)

// RouterOptions carries everything the HTTP surface needs. Cfg and the
// middleware dependencies are required; Messaging may be nil when no
// gateway is configured.
type RouterOptions struct {
	Cfg *config.Config

	AuthDeps appmiddleware.Dependencies

	Users          repository.UserRepository
	Locations      repository.LocationRepository
	AttendanceRepo repository.AttendanceRepository

	Attendance *attendance.Service
	Punch      *punch.Pipeline
	Reports    *report.Engine
	RBAC       *rbac.Service

	UploadStore objectstore.Store
	Images      *objectstore.Proxy
	Messaging   messaging.Gateway
}

// defaultCORSOrigins is the development allowlist; FRONTEND_ORIGINS entries
// are merged on top.
var defaultCORSOrigins = []string{
	"http://localhost:5173",
	"http://127.0.0.1:5173",
	"http://localhost:3000",
	"http://127.0.0.1:3000",
}

func corsOptions(cfg *config.Config) cors.Options {
	origins := append([]string{}, defaultCORSOrigins...)
	origins = append(origins, cfg.FrontendOrigins...)

	return cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "x-access-token"},
		AllowCredentials: true,
		MaxAge:           300,
	}
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// NewRouter assembles the chi router with shared middleware, CORS, and the
// API surface mounted under /api.
func NewRouter(opts RouterOptions) chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(corsOptions(opts.Cfg)))

	r.Get("/health", healthHandler)

	deps := opts.AuthDeps
	authenticate := appmiddleware.Authenticate(deps)
	attachScope := appmiddleware.AttachCityScope(deps)
	requireScope := appmiddleware.RequireCityScope()

	r.Route("/api", func(api chi.Router) {
		api.Post("/auth/login", HandleLogin(opts.Users, deps.Tokens, opts.RBAC))
		api.Post("/auth/supervisor-login", HandleSupervisorLogin(opts.Users, deps.Tokens, opts.RBAC))
		api.Post("/auth/logout", HandleLogout())

		api.Group(func(authed chi.Router) {
			authed.Use(authenticate)

			authed.Get("/auth/me", HandleMe(opts.RBAC))

			// RBAC administration.
			authed.Route("/rbac", func(admin chi.Router) {
				admin.Use(appmiddleware.Authorize(deps, "permissions", "manage"))

				admin.Get("/roles", HandleListRoles(opts.RBAC))
				admin.Post("/roles", HandleCreateRole(opts.RBAC))
				admin.Put("/roles/{roleId}", HandleUpdateRole(opts.RBAC))
				admin.Delete("/roles/{roleId}", HandleDeleteRole(opts.RBAC))
				admin.Put("/roles/{roleId}/permissions", HandleSetRolePermissions(opts.RBAC))

				admin.Get("/permissions", HandleListPermissions(opts.RBAC))
				admin.Post("/permissions", HandleCreatePermission(opts.RBAC))
				admin.Delete("/permissions/{permissionId}", HandleDeletePermission(opts.RBAC))

				admin.Get("/users", HandleListUsers(opts.Users, opts.RBAC))
				admin.Post("/users/{userId}/roles", HandleAssignUserRole(opts.RBAC))
				admin.Delete("/users/{userId}/roles/{roleId}", HandleRemoveUserRole(opts.RBAC))
				admin.Put("/users/{userId}/access", HandleReplaceUserAccess(opts.RBAC))
			})

			// Location lists, narrowed by the caller's city scope. A caller
			// with no city access is rejected before any handler runs.
			authed.Group(func(scoped chi.Router) {
				scoped.Use(attachScope, requireScope)

				scoped.With(appmiddleware.Authorize(deps, "city", "view")).
					Get("/cities", HandleListCities(opts.Locations))
				scoped.With(appmiddleware.Authorize(deps, "zone", "view")).
					Get("/zones", HandleListZones(opts.Locations))
				scoped.With(appmiddleware.Authorize(deps, "ward", "view")).
					Get("/wards", HandleListWards(opts.Locations, deps.Scopes))
			})

			// Master data without a city dimension.
			authed.With(appmiddleware.Authorize(deps, "employee", "view")).
				Get("/departments", HandleListDepartments(opts.Locations))
			authed.With(appmiddleware.Authorize(deps, "employee", "view")).
				Get("/designations", HandleListDesignations(opts.Locations))

			// Attendance and reporting.
			authed.With(appmiddleware.Authorize(deps, "attendance", "create")).
				Post("/attendance", HandleGetOrCreateAttendance(opts.Attendance))
			authed.With(attachScope, requireScope, appmiddleware.Authorize(deps, "attendance", "view")).
				Get("/attendance/download", HandleReportDownload(opts.Reports))
			authed.With(attachScope, requireScope, appmiddleware.Authorize(deps, "attendance", "view")).
				Get("/attendance/short-report", HandleShortReport(opts.Reports, opts.Attendance.Clock()))

			// Mobile punch surface.
			authed.Route("/app/attendance/employee", func(app chi.Router) {
				app.Post("/", HandleGetOrCreateAttendance(opts.Attendance))
				app.Put("/", HandlePunch(opts.Attendance, opts.UploadStore))
				app.Post("/face-attendance", HandleFaceAttendance(opts.Punch))
				app.Get("/image", HandleAttendanceImage(opts.AttendanceRepo, opts.Images))

				app.With(appmiddleware.Authorize(deps, "face", "manage")).
					Post("/faceRoutes/store-face", HandleStoreFace(opts.Punch))
				app.With(appmiddleware.Authorize(deps, "face", "manage")).
					Delete("/faceRoutes/{empId}", HandleDeleteFace(opts.Punch))
			})

			authed.With(appmiddleware.Authorize(deps, "attendance", "view")).
				Post("/whatsapp/report", HandleWhatsAppReport(opts.Messaging))
		})
	})

	return r
}
