// internal/app/store/assignments/assignmentstore.go
package assignmentstore

import (
	"context"
	"time"

	counterstore "github.com/dalemusser/phonebook/internal/app/store/counters"
	"github.com/dalemusser/phonebook/internal/app/store/crud"
	"github.com/dalemusser/phonebook/internal/app/store/refs"
	"github.com/dalemusser/phonebook/internal/app/system/paging"
	"github.com/dalemusser/phonebook/internal/app/system/patch"
	"github.com/dalemusser/phonebook/internal/app/system/txn"
	"github.com/dalemusser/phonebook/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Store struct {
	db  *mongo.Database
	c   *mongo.Collection
	ids *counterstore.Store
	log *zap.Logger
	now func() models.Date
}

func New(db *mongo.Database, log *zap.Logger) *Store {
	return &Store{
		db:  db,
		c:   db.Collection(refs.TalkAssignments),
		ids: counterstore.New(db),
		log: log,
		now: models.Today,
	}
}

// Input creates an assignment. AssignmentDate defaults to today.
type Input struct {
	TalkID         int64        `json:"talk_id"`
	MemberID       int64        `json:"member_id"`
	RoleID         int64        `json:"role_id"`
	AssignedByID   *int64       `json:"assigned_by_id"`
	AssignmentDate *models.Date `json:"assignment_date"`
}

type Patch struct {
	TalkID         patch.Field[int64]       `json:"talk_id"`
	MemberID       patch.Field[int64]       `json:"member_id"`
	RoleID         patch.Field[int64]       `json:"role_id"`
	AssignedByID   patch.Field[int64]       `json:"assigned_by_id"`
	AssignmentDate patch.Field[models.Date] `json:"assignment_date"`
}

type Filter struct {
	TalkID   *int64
	MemberID *int64
}

func (f Filter) bson() bson.M {
	return crud.Filter{}.Int("talk_id", f.TalkID).Int("member_id", f.MemberID).BSON()
}

func validate(ta models.TalkAssignment) error {
	return crud.FirstErr(
		crud.RequireID("talk_id", ta.TalkID),
		crud.RequireID("member_id", ta.MemberID),
		crud.RequireID("role_id", ta.RoleID),
	)
}

func (s *Store) requireRefs(ctx context.Context, ta models.TalkAssignment) error {
	return crud.FirstErr(
		refs.Require(ctx, s.db, refs.Talks, "talk_id", ta.TalkID),
		refs.Require(ctx, s.db, refs.Members, "member_id", ta.MemberID),
		refs.Require(ctx, s.db, refs.Roles, "role_id", ta.RoleID),
		refs.RequireOptional(ctx, s.db, refs.Members, "assigned_by_id", ta.AssignedByID),
	)
}

func (s *Store) Create(ctx context.Context, in Input) (models.TalkAssignment, error) {
	now := time.Now().UTC()
	ta := models.TalkAssignment{
		TalkID:       in.TalkID,
		MemberID:     in.MemberID,
		RoleID:       in.RoleID,
		AssignedByID: in.AssignedByID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if in.AssignmentDate != nil && !in.AssignmentDate.IsZero() {
		ta.AssignmentDate = *in.AssignmentDate
	} else {
		ta.AssignmentDate = s.now()
	}
	if err := validate(ta); err != nil {
		return models.TalkAssignment{}, err
	}

	err := txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		if err := s.requireRefs(ctx, ta); err != nil {
			return err
		}
		id, err := s.ids.Next(ctx, refs.TalkAssignments)
		if err != nil {
			return err
		}
		ta.ID = id
		_, err = s.c.InsertOne(ctx, ta)
		return err
	})
	if err != nil {
		return models.TalkAssignment{}, err
	}
	return ta, nil
}

func (s *Store) Get(ctx context.Context, id int64) (models.TalkAssignment, error) {
	return crud.Get[models.TalkAssignment](ctx, s.c, "talk assignment", id)
}

func (s *Store) List(ctx context.Context, f Filter, page paging.Page) ([]models.TalkAssignment, error) {
	return crud.List[models.TalkAssignment](ctx, s.c, f.bson(), page)
}

func (s *Store) Count(ctx context.Context, f Filter) (int64, error) {
	return crud.Count(ctx, s.c, f.bson())
}

// ByTalk returns every assignment for a talk.
func (s *Store) ByTalk(ctx context.Context, talkID int64) ([]models.TalkAssignment, error) {
	return crud.All[models.TalkAssignment](ctx, s.c, bson.M{"talk_id": talkID})
}

// ByMember returns the talks assigned to a member.
func (s *Store) ByMember(ctx context.Context, memberID int64) ([]models.TalkAssignment, error) {
	return crud.All[models.TalkAssignment](ctx, s.c, bson.M{"member_id": memberID})
}

// ByAssigner returns the assignments a member handed out.
func (s *Store) ByAssigner(ctx context.Context, memberID int64) ([]models.TalkAssignment, error) {
	return crud.All[models.TalkAssignment](ctx, s.c, bson.M{"assigned_by_id": memberID})
}

func (s *Store) Update(ctx context.Context, id int64, p Patch) (models.TalkAssignment, error) {
	if err := crud.FirstErr(
		patch.NotNull("talk_id", p.TalkID),
		patch.NotNull("member_id", p.MemberID),
		patch.NotNull("role_id", p.RoleID),
		patch.NotNull("assignment_date", p.AssignmentDate),
	); err != nil {
		return models.TalkAssignment{}, err
	}

	var out models.TalkAssignment
	err := txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		ta, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		set := patch.Setter{}
		patch.Assign(set, "talk_id", p.TalkID, &ta.TalkID)
		patch.Assign(set, "member_id", p.MemberID, &ta.MemberID)
		patch.Assign(set, "role_id", p.RoleID, &ta.RoleID)
		patch.AssignPtr(set, "assigned_by_id", p.AssignedByID, &ta.AssignedByID)
		patch.Assign(set, "assignment_date", p.AssignmentDate, &ta.AssignmentDate)
		if set.Empty() {
			out = ta
			return nil
		}
		if err := validate(ta); err != nil {
			return err
		}
		if p.TalkID.Present() || p.MemberID.Present() || p.RoleID.Present() || p.AssignedByID.HasValue() {
			if err := s.requireRefs(ctx, ta); err != nil {
				return err
			}
		}
		if err := crud.Set(ctx, s.c, id, set, time.Now().UTC()); err != nil {
			return err
		}
		out, err = s.Get(ctx, id)
		return err
	})
	if err != nil {
		return models.TalkAssignment{}, err
	}
	return out, nil
}

func (s *Store) Delete(ctx context.Context, id int64) (bool, error) {
	var deleted bool
	err := txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		var err error
		deleted, err = crud.Delete(ctx, s.c, id)
		return err
	})
	return deleted, err
}
