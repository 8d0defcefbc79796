// internal/app/features/boardmembers/handler.go
package boardmembers

import (
	"github.com/dalemusser/phonebook/internal/app/projection"
	boardstore "github.com/dalemusser/phonebook/internal/app/store/boardmembers"
	"github.com/dalemusser/phonebook/internal/app/system/auditlog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves /api/v1/board-members. Every seat is returned with its
// member, institution and role in lite form.
type Handler struct {
	Boards *boardstore.Store
	Views  *projection.Loader
	Audit  *auditlog.Logger
	Log    *zap.Logger
}

func NewHandler(db *mongo.Database, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Boards: boardstore.New(db, logger),
		Views:  projection.New(db, logger),
		Audit:  audit,
		Log:    logger,
	}
}
