// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"
	"time"

	auditeventsfeature "github.com/dalemusser/phonebook/internal/app/features/auditlog"
	boardmembersfeature "github.com/dalemusser/phonebook/internal/app/features/boardmembers"
	conferencesfeature "github.com/dalemusser/phonebook/internal/app/features/conferences"
	groupsfeature "github.com/dalemusser/phonebook/internal/app/features/groups"
	healthfeature "github.com/dalemusser/phonebook/internal/app/features/health"
	institutionsfeature "github.com/dalemusser/phonebook/internal/app/features/institutions"
	membersfeature "github.com/dalemusser/phonebook/internal/app/features/members"
	rolesfeature "github.com/dalemusser/phonebook/internal/app/features/roles"
	talkassignmentsfeature "github.com/dalemusser/phonebook/internal/app/features/talkassignments"
	talksfeature "github.com/dalemusser/phonebook/internal/app/features/talks"
	userauthfeature "github.com/dalemusser/phonebook/internal/app/features/userauth"
	"github.com/dalemusser/phonebook/internal/app/store/audit"
	"github.com/dalemusser/phonebook/internal/app/system/auditlog"
	"github.com/dalemusser/phonebook/internal/app/system/auth"
	"github.com/dalemusser/phonebook/internal/app/system/metrics"
	"github.com/dalemusser/phonebook/internal/app/system/oauthstate"
	"github.com/dalemusser/phonebook/internal/app/system/ratelimit"
	"github.com/dalemusser/phonebook/internal/app/system/ror"
	"github.com/dalemusser/phonebook/internal/app/system/sessiontoken"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed.
//
// Layout:
//   - /health and /metrics are public
//   - /user/* runs the OIDC login flow and issues the access_token cookie
//   - /api/v1/* requires a valid access_token
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	db := deps.MongoDatabase

	tokens, err := sessiontoken.New(appCfg.JWTSecret, appCfg.JWTAlgorithm, appCfg.JWTTTL)
	if err != nil {
		logger.Error("session token issuer init failed", zap.Error(err))
		return nil, err
	}
	authMgr := auth.NewManager(tokens, appCfg.AdminEmails, logger)

	loginState, err := oauthstate.New(appCfg.SessionKey, appCfg.SessionName)
	if err != nil {
		logger.Error("login state cookie init failed", zap.Error(err))
		return nil, err
	}

	m := metrics.New()

	auditLogger := auditlog.New(audit.New(db), logger, auditlog.Config{
		Auth:  appCfg.AuditLogAuth,
		Admin: appCfg.AuditLogAdmin,
	})

	provider := userauthfeature.NewOIDC(userauthfeature.OIDCConfig{
		DiscoveryURL: appCfg.OIDCDiscoveryURL,
		ClientID:     appCfg.OIDCClientID,
		ClientSecret: appCfg.OIDCClientSecret,
		RedirectURL:  appCfg.OIDCRedirectURL,
		Scopes:       appCfg.OIDCScopes,
		Timeout:      appCfg.UpstreamTimeout,
	}, logger)

	registry := ror.New(ror.Config{
		BaseURL:  appCfg.RORBaseURL,
		ClientID: appCfg.RORClientID,
		Timeout:  appCfg.RORTimeout,
	}, m, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(m.Middleware)

	if len(appCfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   appCfg.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	r.Handle("/metrics", m.Handler())

	// Login flow
	userHandler := userauthfeature.NewHandler(db, userauthfeature.Config{
		FrontendURL:    appCfg.FrontendURL,
		AllowedOrigins: appCfg.CORSOrigins,
	}, authMgr, loginState, provider, m, auditLogger, logger)
	loginLimiter := ratelimit.New(appCfg.LoginRatePerMinute, appCfg.LoginRateBurst, logger)
	r.Mount("/user", userauthfeature.Routes(userHandler, loginLimiter))

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(authMgr.RequireAuth)
		api.Use(middleware.Timeout(60 * time.Second))

		institutionsHandler := institutionsfeature.NewHandler(db, registry, auditLogger, logger)
		api.Mount("/institutions", institutionsfeature.Routes(institutionsHandler))

		membersHandler := membersfeature.NewHandler(db, auditLogger, logger)
		api.Mount("/members", membersfeature.Routes(membersHandler))

		groupsHandler := groupsfeature.NewHandler(db, auditLogger, logger)
		api.Mount("/groups", groupsfeature.Routes(groupsHandler))

		boardHandler := boardmembersfeature.NewHandler(db, auditLogger, logger)
		api.Mount("/board-members", boardmembersfeature.Routes(boardHandler))

		rolesHandler := rolesfeature.NewHandler(db, auditLogger, logger)
		api.Mount("/roles", rolesfeature.Routes(rolesHandler))

		conferencesHandler := conferencesfeature.NewHandler(db, auditLogger, logger)
		api.Mount("/conferences", conferencesfeature.Routes(conferencesHandler))

		talksHandler := talksfeature.NewHandler(db, auditLogger, logger)
		api.Mount("/talks", talksfeature.Routes(talksHandler))

		assignmentsHandler := talkassignmentsfeature.NewHandler(db, auditLogger, logger)
		api.Mount("/talk-assignments", talkassignmentsfeature.Routes(assignmentsHandler))

		// Admin only
		eventsHandler := auditeventsfeature.NewHandler(db, logger)
		api.Mount("/audit-events", auditeventsfeature.Routes(eventsHandler, authMgr))
	})

	return r, nil
}
