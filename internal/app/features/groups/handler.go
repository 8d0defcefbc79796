// internal/app/features/groups/handler.go
package groups

import (
	"github.com/dalemusser/phonebook/internal/app/projection"
	groupstore "github.com/dalemusser/phonebook/internal/app/store/groups"
	membershipstore "github.com/dalemusser/phonebook/internal/app/store/memberships"
	"github.com/dalemusser/phonebook/internal/app/system/auditlog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler is the shared dependency container for the groups feature: the
// groups themselves and the memberships inside them.
type Handler struct {
	Groups      *groupstore.Store
	Memberships *membershipstore.Store
	Views       *projection.Loader
	AuditLog    *auditlog.Logger
	Log         *zap.Logger
}

// NewHandler constructs a new groups Handler. It is called from the
// bootstrap BuildHandler function.
func NewHandler(db *mongo.Database, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Groups:      groupstore.New(db, logger),
		Memberships: membershipstore.New(db, logger),
		Views:       projection.New(db, logger),
		AuditLog:    audit,
		Log:         logger,
	}
}
