// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/phonebook/internal/app/features/userauth"
	"github.com/dalemusser/phonebook/internal/app/system/auditlog"
	"github.com/dalemusser/phonebook/internal/app/system/ror"
	"github.com/dalemusser/phonebook/internal/app/system/sessiontoken"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

const (
	devSessionKey = "dev-only-change-me-please-0123456789ABCDEF"
	devJWTSecret  = "dev-only-jwt-secret-change-me-0123456789"

	minProdSecretLen = 32
)

// appConfigKeys defines the configuration keys for the phonebook service.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, jwt_secret, etc.
//   - Environment variables: PHONEBOOK_MONGO_URI, PHONEBOOK_JWT_SECRET, etc.
//   - Command-line flags: --mongo_uri, --jwt_secret, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "phonebook", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},
	{Name: "session_key", Default: devSessionKey, Desc: "Login state cookie key (must be strong in production)"},
	{Name: "session_name", Default: "phonebook-login", Desc: "Login state cookie name"},

	// OpenID Connect
	{Name: "oidc_client_id", Default: "", Desc: "OIDC client ID"},
	{Name: "oidc_client_secret", Default: "", Desc: "OIDC client secret"},
	{Name: "oidc_discovery_url", Default: userauth.DefaultDiscoveryURL, Desc: "OIDC discovery document URL"},
	{Name: "oidc_redirect_url", Default: "http://localhost:8080/user/callback", Desc: "OIDC redirect (callback) URL"},
	{Name: "oidc_scopes", Default: strings.Join(userauth.DefaultScopes, " "), Desc: "Space separated OIDC scopes"},

	// Session token
	{Name: "jwt_secret", Default: devJWTSecret, Desc: "HMAC secret for the access_token cookie"},
	{Name: "jwt_algorithm", Default: "HS256", Desc: "Session token algorithm (only HS256)"},
	{Name: "jwt_ttl", Default: "1h", Desc: "Session token lifetime (e.g., 1h, 30m)"},

	{Name: "admin_emails", Default: "", Desc: "Comma separated emails granted admin"},
	{Name: "frontend_url", Default: "", Desc: "Frontend base URL for post-login redirects"},
	{Name: "cors_origins", Default: "", Desc: "Comma separated origins allowed by CORS"},

	// Research Organization Registry
	{Name: "ror_api_base_url", Default: ror.DefaultBaseURL + "/", Desc: "ROR organizations endpoint"},
	{Name: "ror_client_id", Default: "", Desc: "ROR Client-Id header value"},
	{Name: "ror_timeout", Default: "8s", Desc: "ROR request timeout"},

	{Name: "upstream_timeout", Default: "8s", Desc: "OIDC discovery and token exchange timeout"},
	{Name: "login_rate_per_minute", Default: 30, Desc: "Per-IP rate for /user/login and /user/callback (0 disables)"},
	{Name: "login_rate_burst", Default: 10, Desc: "Per-IP burst for /user/login and /user/callback"},

	// Audit logging settings
	{Name: "audit_log_auth", Default: "all", Desc: "Auth event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_admin", Default: "all", Desc: "Admin event logging: 'all' (db+log), 'db', 'log', or 'off'"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig reads .env files, config files,
// PHONEBOOK_* environment variables and flags, merged with precedence
// flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "PHONEBOOK", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),
		SessionKey:       appValues.String("session_key"),
		SessionName:      appValues.String("session_name"),

		OIDCClientID:     appValues.String("oidc_client_id"),
		OIDCClientSecret: appValues.String("oidc_client_secret"),
		OIDCDiscoveryURL: appValues.String("oidc_discovery_url"),
		OIDCRedirectURL:  appValues.String("oidc_redirect_url"),
		OIDCScopes:       strings.Fields(appValues.String("oidc_scopes")),

		JWTSecret:    appValues.String("jwt_secret"),
		JWTAlgorithm: appValues.String("jwt_algorithm"),
		JWTTTL:       appValues.Duration("jwt_ttl", sessiontoken.DefaultTTL),

		AdminEmails: splitList(appValues.String("admin_emails")),
		FrontendURL: strings.TrimRight(appValues.String("frontend_url"), "/"),
		CORSOrigins: splitList(appValues.String("cors_origins")),

		RORBaseURL:  appValues.String("ror_api_base_url"),
		RORClientID: appValues.String("ror_client_id"),
		RORTimeout:  appValues.Duration("ror_timeout", 8*time.Second),

		UpstreamTimeout:    appValues.Duration("upstream_timeout", 8*time.Second),
		LoginRatePerMinute: appValues.Int("login_rate_per_minute"),
		LoginRateBurst:     appValues.Int("login_rate_burst"),

		AuditLogAuth:  appValues.String("audit_log_auth"),
		AuditLogAdmin: appValues.String("audit_log_admin"),
	}

	return coreCfg, appCfg, nil
}

// splitList turns "a, b,,c" into [a b c].
func splitList(s string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' }) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// The Mongo URI is checked before connecting; in prod the token and state
// cookie secrets must be long and must not be the shipped defaults.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}

	if appCfg.JWTAlgorithm != sessiontoken.Algorithm {
		return fmt.Errorf("jwt_algorithm %q is not supported (only HS256)", appCfg.JWTAlgorithm)
	}

	if !auditlog.ValidMode(appCfg.AuditLogAuth) {
		return fmt.Errorf("audit_log_auth %q must be one of all, db, log, off", appCfg.AuditLogAuth)
	}
	if !auditlog.ValidMode(appCfg.AuditLogAdmin) {
		return fmt.Errorf("audit_log_admin %q must be one of all, db, log, off", appCfg.AuditLogAdmin)
	}

	if coreCfg != nil && coreCfg.Env == "prod" {
		if err := prodSecret("jwt_secret", appCfg.JWTSecret, devJWTSecret); err != nil {
			return err
		}
		if err := prodSecret("session_key", appCfg.SessionKey, devSessionKey); err != nil {
			return err
		}
		if appCfg.OIDCClientID == "" {
			logger.Warn("oidc_client_id is empty; /user/login will fail")
		}
	}

	return nil
}

func prodSecret(name, value, devDefault string) error {
	if value == devDefault {
		return fmt.Errorf("%s must be changed from the development default in prod", name)
	}
	if len(value) < minProdSecretLen {
		return fmt.Errorf("%s must be at least %d bytes in prod", name, minProdSecretLen)
	}
	return nil
}
