// internal/app/features/roles/handler.go
package roles

import (
	rolestore "github.com/dalemusser/phonebook/internal/app/store/roles"
	"github.com/dalemusser/phonebook/internal/app/system/auditlog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves /api/v1/roles.
type Handler struct {
	Roles *rolestore.Store
	Audit *auditlog.Logger
	Log   *zap.Logger
}

func NewHandler(db *mongo.Database, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Roles: rolestore.New(db, logger),
		Audit: audit,
		Log:   logger,
	}
}
