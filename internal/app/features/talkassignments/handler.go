// internal/app/features/talkassignments/handler.go
package talkassignments

import (
	"github.com/dalemusser/phonebook/internal/app/projection"
	assignmentstore "github.com/dalemusser/phonebook/internal/app/store/assignments"
	"github.com/dalemusser/phonebook/internal/app/system/auditlog"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves /api/v1/talk-assignments.
type Handler struct {
	Assignments *assignmentstore.Store
	Views       *projection.Loader
	Audit       *auditlog.Logger
	Log         *zap.Logger
}

func NewHandler(db *mongo.Database, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Assignments: assignmentstore.New(db, logger),
		Views:       projection.New(db, logger),
		Audit:       audit,
		Log:         logger,
	}
}

func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeList)
	r.Post("/", h.HandleCreate)
	r.Get("/{id}", h.ServeAssignment)
	r.Put("/{id}", h.HandleUpdate)
	r.Patch("/{id}", h.HandleUpdate)
	r.Delete("/{id}", h.HandleDelete)
	return r
}
