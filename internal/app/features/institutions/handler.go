// internal/app/features/institutions/handler.go
package institutions

import (
	"github.com/dalemusser/phonebook/internal/app/projection"
	institutionstore "github.com/dalemusser/phonebook/internal/app/store/institutions"
	memberstore "github.com/dalemusser/phonebook/internal/app/store/members"
	"github.com/dalemusser/phonebook/internal/app/system/auditlog"
	"github.com/dalemusser/phonebook/internal/app/system/ror"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the institutions API. Registry is consulted when an
// update sets rorid.
type Handler struct {
	Institutions *institutionstore.Store
	Members      *memberstore.Store
	Views        *projection.Loader
	Registry     *ror.Client
	AuditLog     *auditlog.Logger
	Log          *zap.Logger
}

func NewHandler(db *mongo.Database, registry *ror.Client, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Institutions: institutionstore.New(db, logger),
		Members:      memberstore.New(db, logger),
		Views:        projection.New(db, logger),
		Registry:     registry,
		AuditLog:     audit,
		Log:          logger,
	}
}
