// internal/app/features/userauth/handler.go
package userauth

import (
	"strings"

	institutionstore "github.com/dalemusser/phonebook/internal/app/store/institutions"
	memberstore "github.com/dalemusser/phonebook/internal/app/store/members"
	"github.com/dalemusser/phonebook/internal/app/system/auditlog"
	"github.com/dalemusser/phonebook/internal/app/system/auth"
	"github.com/dalemusser/phonebook/internal/app/system/metrics"
	"github.com/dalemusser/phonebook/internal/app/system/oauthstate"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Login outcome labels for the phonebook_logins_total counter.
const (
	outcomeOK          = "ok"
	outcomeDenied      = "denied"
	outcomeBadState    = "bad_state"
	outcomeFailed      = "exchange_failed"
	outcomeMissing     = "missing_claims"
	outcomeInactive    = "inactive"
	outcomeProvisioned = "provisioned"
	outcomeError       = "error"
)

// Config holds the redirect targets of the login flow.
type Config struct {
	// FrontendURL prefixes relative return paths. Empty means the API host.
	FrontendURL string
	// AllowedOrigins are origins an absolute redirect_url may point at.
	AllowedOrigins []string
}

// Handler serves /user/*: login, callback, logout and check-auth.
type Handler struct {
	Members      *memberstore.Store
	Institutions *institutionstore.Store
	Auth         *auth.Manager
	State        *oauthstate.Store
	Provider     Provider
	Metrics      *metrics.Metrics
	AuditLog     *auditlog.Logger
	Log          *zap.Logger

	frontend string
	origins  map[string]struct{}
}

func NewHandler(
	db *mongo.Database,
	cfg Config,
	authMgr *auth.Manager,
	state *oauthstate.Store,
	provider Provider,
	m *metrics.Metrics,
	audit *auditlog.Logger,
	logger *zap.Logger,
) *Handler {
	h := &Handler{
		Members:      memberstore.New(db, logger),
		Institutions: institutionstore.New(db, logger),
		Auth:         authMgr,
		State:        state,
		Provider:     provider,
		Metrics:      m,
		AuditLog:     audit,
		Log:          logger,
		frontend:     strings.TrimRight(cfg.FrontendURL, "/"),
		origins:      map[string]struct{}{},
	}
	for _, o := range append([]string{cfg.FrontendURL}, cfg.AllowedOrigins...) {
		if o = origin(o); o != "" {
			h.origins[o] = struct{}{}
		}
	}
	return h
}
