// internal/app/features/talks/handler.go
package talks

import (
	"github.com/dalemusser/phonebook/internal/app/projection"
	talkstore "github.com/dalemusser/phonebook/internal/app/store/talks"
	"github.com/dalemusser/phonebook/internal/app/system/auditlog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	Talks *talkstore.Store
	Views *projection.Loader
	Audit *auditlog.Logger
	Log   *zap.Logger
}

func NewHandler(db *mongo.Database, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Talks: talkstore.New(db, logger),
		Views: projection.New(db, logger),
		Audit: audit,
		Log:   logger,
	}
}
