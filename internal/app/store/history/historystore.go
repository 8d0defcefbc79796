// internal/app/store/history/historystore.go
package historystore

import (
	"context"
	"time"

	counterstore "github.com/dalemusser/phonebook/internal/app/store/counters"
	"github.com/dalemusser/phonebook/internal/app/store/crud"
	"github.com/dalemusser/phonebook/internal/app/store/refs"
	"github.com/dalemusser/phonebook/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store is append-only: rows are written when a member changes institution
// and never updated. They go away only with their member.
type Store struct {
	c   *mongo.Collection
	ids *counterstore.Store
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(refs.History), ids: counterstore.New(db)}
}

// Append records a closed affiliation. Pass the caller's transaction context
// so the row commits together with the member change.
func (s *Store) Append(ctx context.Context, memberID, institutionID int64, start models.Date, end *models.Date) (models.MemberInstitutionHistory, error) {
	if err := crud.DateRange("end_date", start, end); err != nil {
		return models.MemberInstitutionHistory{}, err
	}
	id, err := s.ids.Next(ctx, refs.History)
	if err != nil {
		return models.MemberInstitutionHistory{}, err
	}
	h := models.MemberInstitutionHistory{
		ID:            id,
		MemberID:      memberID,
		InstitutionID: institutionID,
		StartDate:     start,
		EndDate:       end,
		CreatedAt:     time.Now().UTC(),
	}
	if _, err := s.c.InsertOne(ctx, h); err != nil {
		return models.MemberInstitutionHistory{}, err
	}
	return h, nil
}

// ListByMember returns a member's past affiliations, oldest first.
func (s *Store) ListByMember(ctx context.Context, memberID int64) ([]models.MemberInstitutionHistory, error) {
	return crud.All[models.MemberInstitutionHistory](ctx, s.c, bson.M{"member_id": memberID})
}

// ListByInstitution returns the past affiliations recorded against an institution.
func (s *Store) ListByInstitution(ctx context.Context, institutionID int64) ([]models.MemberInstitutionHistory, error) {
	return crud.All[models.MemberInstitutionHistory](ctx, s.c, bson.M{"institution_id": institutionID})
}

// LastEnd returns the end date of the member's most recent history row.
func (s *Store) LastEnd(ctx context.Context, memberID int64) (*models.Date, error) {
	var h models.MemberInstitutionHistory
	err := s.c.FindOne(ctx, bson.M{"member_id": memberID},
		options.FindOne().SetSort(bson.D{{Key: "_id", Value: -1}})).Decode(&h)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return h.EndDate, nil
}

// DeleteByMember removes every history row of a member. Pass the caller's
// transaction context so it commits with the member delete.
func (s *Store) DeleteByMember(ctx context.Context, memberID int64) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"member_id": memberID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
