// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"
	"time"

	authgooglefeature "github.com/alquimista/website/internal/app/features/authgoogle"
	classroomfeature "github.com/alquimista/website/internal/app/features/classroom"
	contactfeature "github.com/alquimista/website/internal/app/features/contact"
	dashboardfeature "github.com/alquimista/website/internal/app/features/dashboard"
	errorsfeature "github.com/alquimista/website/internal/app/features/errors"
	healthfeature "github.com/alquimista/website/internal/app/features/health"
	homefeature "github.com/alquimista/website/internal/app/features/home"
	loginfeature "github.com/alquimista/website/internal/app/features/login"
	logoutfeature "github.com/alquimista/website/internal/app/features/logout"
	managefacetsfeature "github.com/alquimista/website/internal/app/features/managefacets"
	registerfeature "github.com/alquimista/website/internal/app/features/register"
	stafffacetsfeature "github.com/alquimista/website/internal/app/features/stafffacets"
	staffmaterialsfeature "github.com/alquimista/website/internal/app/features/staffmaterials"
	staffmessagesfeature "github.com/alquimista/website/internal/app/features/staffmessages"
	staffmilestonesfeature "github.com/alquimista/website/internal/app/features/staffmilestones"
	staffsettingsfeature "github.com/alquimista/website/internal/app/features/staffsettings"
	stafftopicsfeature "github.com/alquimista/website/internal/app/features/stafftopics"
	staffusersfeature "github.com/alquimista/website/internal/app/features/staffusers"
	appresources "github.com/alquimista/website/internal/app/resources"
	"github.com/alquimista/website/internal/app/store/oauthstate"
	"github.com/alquimista/website/internal/app/store/ratelimit"
	userstore "github.com/alquimista/website/internal/app/store/users"
	"github.com/alquimista/website/internal/app/system/auth"
	"github.com/alquimista/website/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/middleware"
	"github.com/dalemusser/waffle/pantry/fileserver"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/csrf"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed. At this point you have access to:
//   - coreCfg: WAFFLE core configuration (ports, env, timeouts, etc.)
//   - appCfg: app-specific configuration defined in AppConfig
//   - deps: any DB or backend clients bundled in DBDeps
//   - logger: the fully configured zap.Logger for this app
//
// This function should:
//  1. Create a router (chi, standard mux, etc.)
//  2. Mount feature routers for different parts of the application
//  3. Add any additional middleware needed for specific routes
//  4. Return the configured router as an http.Handler
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Create the session manager using app config.
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	// Set up the UserFetcher so LoadSessionUser fetches fresh user data on each request.
	// This ensures flag changes, disabled accounts, and profile updates take effect immediately.
	sessionMgr.SetUserFetcher(userstore.NewFetcher(deps.MongoDatabase, logger))

	// Initialize and boot the template engine once at startup.
	// Dev mode enables template reloading for faster iteration.
	eng := templates.New(coreCfg.Env == "dev")
	if err := eng.Boot(logger); err != nil {
		logger.Error("template engine boot failed", zap.Error(err))
		return nil, err
	}
	templates.UseEngine(eng, logger)

	// Initialize viewdata with storage and database for settings loading.
	viewdata.Init(deps.FileStorage, deps.MongoDatabase)

	// Create error logger for handlers.
	errLog := errorsfeature.NewErrorLogger(logger)

	r := chi.NewRouter()

	// ─────────────────────────────────────────────────────────────────────────────
	// Global Middleware (applies to ALL routes)
	// ─────────────────────────────────────────────────────────────────────────────

	// Request timeout middleware: prevents requests from hanging indefinitely.
	r.Use(chimw.Timeout(30 * time.Second))

	// CORS middleware: must be early in the chain to handle preflight requests.
	r.Use(middleware.CORSFromConfig(coreCfg))

	// Security headers middleware: adds X-Frame-Options, X-Content-Type-Options, etc.
	r.Use(middleware.SecurityHeadersFromConfig(coreCfg))

	// Session middleware: loads SessionUser into context if logged in.
	r.Use(sessionMgr.LoadSessionUser)

	// CSRF protection middleware. Cookie name is "alquimista_csrf" to avoid
	// collisions with other services on the same domain.
	csrfOpts := []csrf.Option{
		csrf.Secure(secure),
		csrf.Path("/"),
		csrf.CookieName("alquimista_csrf"),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			logger.Warn("CSRF validation failed",
				zap.String("path", req.URL.Path),
				zap.String("method", req.Method),
				zap.String("reason", csrf.FailureReason(req).Error()),
			)
			http.Error(w, "CSRF token invalid or missing", http.StatusForbidden)
		})),
	}
	// In dev mode, trust localhost origins for CSRF validation.
	if !secure {
		csrfOpts = append(csrfOpts, csrf.TrustedOrigins([]string{
			"localhost:8080",
			"localhost:3000",
			"127.0.0.1:8080",
			"127.0.0.1:3000",
		}))
	}
	if appCfg.SessionDomain != "" {
		csrfOpts = append(csrfOpts, csrf.Domain(appCfg.SessionDomain))
	}
	r.Use(csrf.Protect([]byte(appCfg.CSRFKey), csrfOpts...))

	// ─────────────────────────────────────────────────────────────────────────────
	// Routes
	// ─────────────────────────────────────────────────────────────────────────────

	// Health check endpoints for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))
	healthfeature.MountRootEndpoints(r, healthHandler)

	// Static assets with pre-compressed file support (gzip/brotli)
	// /static/* serves files from disk (static directory)
	r.Handle("/static/*", fileserver.Handler("/static", "static"))

	// /assets/* serves embedded assets (bundled into the binary)
	r.Handle("/assets/*", appresources.AssetsHandler("/assets"))

	// Uploaded files (local storage only)
	// When using local storage, serve files from the configured path
	if appCfg.StorageType == "local" || appCfg.StorageType == "" {
		r.Handle(appCfg.StorageLocalURL+"/*", fileserver.Handler(appCfg.StorageLocalURL, appCfg.StorageLocalPath))
	}

	// Home page: hero, description, and the preference-filtered facet slideshows
	homeHandler := homefeature.NewHandler(deps.MongoDatabase, deps.FileStorage, logger)
	r.Mount("/", homefeature.Routes(homeHandler))

	// Contact form with per-IP rate limiting (nil store disables the cap)
	var rateLimitStore *ratelimit.Store
	if appCfg.ContactRateLimitEnabled {
		rateLimitStore = ratelimit.New(deps.MongoDatabase, appCfg.ContactRateLimitMax, appCfg.ContactRateLimitWindow)
	}
	contactHandler := contactfeature.NewHandler(deps.MongoDatabase, rateLimitStore, errLog, logger)
	r.Mount("/contact", contactfeature.Routes(contactHandler))

	// Registration: account, profile, and facet choices in one transaction
	registerHandler := registerfeature.NewHandler(deps.MongoDatabase, sessionMgr, deps.Mailer, errLog, appCfg.BaseURL, logger)
	r.Mount("/register", registerfeature.Routes(registerHandler))

	// Authentication
	loginHandler := loginfeature.NewHandler(deps.MongoDatabase, sessionMgr, errLog, logger)
	r.Mount("/login", loginfeature.Routes(loginHandler))

	logoutHandler := logoutfeature.NewHandler(sessionMgr, logger)
	r.Mount("/logout", logoutfeature.Routes(logoutHandler))

	// Google OAuth (only mount if configured)
	if appCfg.GoogleClientID != "" && appCfg.GoogleClientSecret != "" {
		oauthStateStore := oauthstate.New(deps.MongoDatabase)
		googleHandler := authgooglefeature.NewHandler(
			deps.MongoDatabase,
			sessionMgr,
			errLog,
			oauthStateStore,
			appCfg.GoogleClientID,
			appCfg.GoogleClientSecret,
			appCfg.BaseURL,
			logger,
		)
		r.Mount("/auth/google", authgooglefeature.Routes(googleHandler))
		logger.Info("Google OAuth enabled", zap.String("redirect_url", appCfg.BaseURL+"/auth/google/callback"))
	}

	// Facet preferences (any signed-in user)
	manageFacetsHandler := managefacetsfeature.NewHandler(deps.MongoDatabase, errLog, logger)
	r.Mount("/manage-facets", managefacetsfeature.Routes(manageFacetsHandler, sessionMgr))

	// Classroom (students only)
	classroomHandler := classroomfeature.NewHandler(deps.MongoDatabase, deps.FileStorage, errLog, logger)
	r.Mount("/classroom", classroomfeature.Routes(classroomHandler, sessionMgr))

	// Error pages
	errorsHandler := errorsfeature.NewHandler()
	r.Get("/forbidden", errorsHandler.Forbidden)
	r.Get("/unauthorized", errorsHandler.Unauthorized)

	// ─────────────────────────────────────────────────────────────────────────────
	// Staff panels (staff flag required)
	// ─────────────────────────────────────────────────────────────────────────────

	dashboardHandler := dashboardfeature.NewHandler(deps.MongoDatabase, errLog, logger)
	facetsHandler := stafffacetsfeature.NewHandler(deps.MongoDatabase, deps.FileStorage, errLog, logger)
	milestonesHandler := staffmilestonesfeature.NewHandler(deps.MongoDatabase, deps.FileStorage, errLog, logger)
	messagesHandler := staffmessagesfeature.NewHandler(deps.MongoDatabase, deps.Mailer, errLog, logger)
	topicsHandler := stafftopicsfeature.NewHandler(deps.MongoDatabase, errLog, logger)
	materialsHandler := staffmaterialsfeature.NewHandler(deps.MongoDatabase, deps.FileStorage, errLog, logger)
	usersHandler := staffusersfeature.NewHandler(deps.MongoDatabase, errLog, logger)
	siteSettingsHandler := staffsettingsfeature.NewHandler(deps.MongoDatabase, deps.FileStorage, errLog, logger)

	r.Route("/staff", func(sr chi.Router) {
		sr.Use(sessionMgr.RequireStaff)

		sr.Get("/", dashboardHandler.Index)

		sr.Route("/facets", facetsHandler.MountRoutes)
		sr.Route("/milestones", milestonesHandler.MountRoutes)
		sr.Route("/messages", messagesHandler.MountRoutes)
		sr.Route("/topics", func(tr chi.Router) {
			topicsHandler.MountRoutes(tr)
			tr.Route("/{topicID}/materials", materialsHandler.MountRoutes)
		})
		sr.Route("/users", usersHandler.MountRoutes)
		sr.Route("/settings", siteSettingsHandler.MountRoutes)
	})

	// 404 catch-all for unmatched routes
	r.NotFound(errorsHandler.NotFound)

	return r, nil
}
