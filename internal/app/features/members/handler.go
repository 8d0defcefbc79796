// internal/app/features/members/handler.go
package members

import (
	"github.com/dalemusser/phonebook/internal/app/projection"
	historystore "github.com/dalemusser/phonebook/internal/app/store/history"
	memberstore "github.com/dalemusser/phonebook/internal/app/store/members"
	"github.com/dalemusser/phonebook/internal/app/system/auditlog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler is the feature-level handler for Members.
type Handler struct {
	Members  *memberstore.Store
	History  *historystore.Store
	Views    *projection.Loader
	AuditLog *auditlog.Logger
	Log      *zap.Logger
}

func NewHandler(db *mongo.Database, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Members:  memberstore.New(db, logger),
		History:  historystore.New(db),
		Views:    projection.New(db, logger),
		AuditLog: audit,
		Log:      logger,
	}
}
