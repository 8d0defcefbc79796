// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/phonebook/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if n := timeouts.ConfigureFromEnv(); n > 0 {
		cur := timeouts.Current()
		logger.Info("timeouts overridden from environment",
			zap.Int("count", n),
			zap.Duration("medium", cur.Medium),
			zap.Duration("upstream", cur.Upstream))
	}

	if len(appCfg.AdminEmails) == 0 {
		logger.Warn("admin_emails is empty; /api/v1/audit-events will be unreachable")
	}
	if appCfg.FrontendURL == "" {
		logger.Info("frontend_url not set; login redirects stay on this host")
	}
	return nil
}
