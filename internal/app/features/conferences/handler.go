// internal/app/features/conferences/handler.go
package conferences

import (
	"github.com/dalemusser/phonebook/internal/app/projection"
	conferencestore "github.com/dalemusser/phonebook/internal/app/store/conferences"
	"github.com/dalemusser/phonebook/internal/app/system/auditlog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves /api/v1/conferences. A conference is returned with its
// talks and their assignments.
type Handler struct {
	Conferences *conferencestore.Store
	Views       *projection.Loader
	Audit       *auditlog.Logger
	Log         *zap.Logger
}

func NewHandler(db *mongo.Database, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Conferences: conferencestore.New(db, logger),
		Views:       projection.New(db, logger),
		Audit:       audit,
		Log:         logger,
	}
}
