// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig handles
// the framework-level settings: ports, TLS, log level and request limits.
//
// The struct is passed to most lifecycle hooks, so any configuration needed
// during startup, request handling, or shutdown should live here.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Login state cookie
	SessionKey  string // Secret for the signed+encrypted OAuth state cookie
	SessionName string // Cookie name for the login state (default: phonebook-login)

	// OpenID Connect provider (CILogon by default)
	OIDCClientID     string
	OIDCClientSecret string
	OIDCDiscoveryURL string
	OIDCRedirectURL  string
	OIDCScopes       []string

	// Session token (access_token cookie)
	JWTSecret    string
	JWTAlgorithm string
	JWTTTL       time.Duration

	AdminEmails []string // Emails whose tokens carry is_admin
	FrontendURL string   // Base for relative post-login redirects
	CORSOrigins []string // Browser origins allowed to call the API with credentials

	// Research Organization Registry
	RORBaseURL  string
	RORClientID string
	RORTimeout  time.Duration

	UpstreamTimeout time.Duration // OIDC discovery and code exchange

	// Per-IP throttling of the login endpoints
	LoginRatePerMinute int
	LoginRateBurst     int

	// Audit logging: "all", "db", "log" or "off"
	AuditLogAuth  string
	AuditLogAdmin string
}
