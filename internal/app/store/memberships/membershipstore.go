// internal/app/store/memberships/membershipstore.go
package membershipstore

// Group memberships are tenures: a closed membership (end_date set) is kept
// as history, and at most one open membership may exist per group/member
// pair. The "active" flag mirrors end_date == nil so a partial unique index
// can enforce that.

import (
	"context"
	"time"

	counterstore "github.com/dalemusser/phonebook/internal/app/store/counters"
	"github.com/dalemusser/phonebook/internal/app/store/crud"
	"github.com/dalemusser/phonebook/internal/app/store/refs"
	"github.com/dalemusser/phonebook/internal/app/system/apperr"
	"github.com/dalemusser/phonebook/internal/app/system/paging"
	"github.com/dalemusser/phonebook/internal/app/system/patch"
	"github.com/dalemusser/phonebook/internal/app/system/txn"
	"github.com/dalemusser/phonebook/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

var ErrDuplicateMembership = apperr.WithCode(apperr.Conflict("member already has an open membership in this group"), "already_member")

type Store struct {
	db  *mongo.Database
	c   *mongo.Collection
	ids *counterstore.Store
	log *zap.Logger
}

func New(db *mongo.Database, log *zap.Logger) *Store {
	return &Store{db: db, c: db.Collection(refs.GroupMembers), ids: counterstore.New(db), log: log}
}

type Input struct {
	GroupID   int64        `json:"group_id"`
	MemberID  int64        `json:"member_id"`
	RoleID    int64        `json:"role_id"`
	StartDate models.Date  `json:"start_date"`
	EndDate   *models.Date `json:"end_date"`
}

type Patch struct {
	GroupID   patch.Field[int64]       `json:"group_id"`
	MemberID  patch.Field[int64]       `json:"member_id"`
	RoleID    patch.Field[int64]       `json:"role_id"`
	StartDate patch.Field[models.Date] `json:"start_date"`
	EndDate   patch.Field[models.Date] `json:"end_date"`
}

type Filter struct {
	GroupID  *int64
	MemberID *int64
	RoleID   *int64
	Active   *bool
}

func (f Filter) bson() bson.M {
	return crud.Filter{}.
		Int("group_id", f.GroupID).
		Int("member_id", f.MemberID).
		Int("role_id", f.RoleID).
		Bool("active", f.Active).
		BSON()
}

func validate(gm models.GroupMember) error {
	return crud.FirstErr(
		crud.RequireID("group_id", gm.GroupID),
		crud.RequireID("member_id", gm.MemberID),
		crud.RequireID("role_id", gm.RoleID),
		crud.DateRange("end_date", gm.StartDate, gm.EndDate),
	)
}

func (s *Store) requireRefs(ctx context.Context, gm models.GroupMember) error {
	return crud.FirstErr(
		refs.Require(ctx, s.db, refs.Groups, "group_id", gm.GroupID),
		refs.Require(ctx, s.db, refs.Members, "member_id", gm.MemberID),
		refs.Require(ctx, s.db, refs.Roles, "role_id", gm.RoleID),
	)
}

// checkOpen fails when gm is open and another open membership exists for the
// same pair.
func (s *Store) checkOpen(ctx context.Context, gm models.GroupMember) error {
	if !gm.Active {
		return nil
	}
	n, err := s.c.CountDocuments(ctx, bson.M{
		"group_id":  gm.GroupID,
		"member_id": gm.MemberID,
		"active":    true,
		"_id":       bson.M{"$ne": gm.ID},
	})
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrDuplicateMembership
	}
	return nil
}

func mapDup(err error) error {
	if crud.DupOn(err, "group_id") {
		return ErrDuplicateMembership
	}
	return err
}

// Create adds a membership. start_date defaults to today.
func (s *Store) Create(ctx context.Context, in Input) (models.GroupMember, error) {
	now := time.Now().UTC()
	gm := models.GroupMember{
		GroupID:   in.GroupID,
		MemberID:  in.MemberID,
		RoleID:    in.RoleID,
		StartDate: in.StartDate,
		EndDate:   in.EndDate,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if gm.StartDate.IsZero() {
		gm.StartDate = models.DateOf(now)
	}
	gm.Active = gm.EndDate == nil
	if err := validate(gm); err != nil {
		return models.GroupMember{}, err
	}

	err := txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		if err := s.requireRefs(ctx, gm); err != nil {
			return err
		}
		if err := s.checkOpen(ctx, gm); err != nil {
			return err
		}
		id, err := s.ids.Next(ctx, refs.GroupMembers)
		if err != nil {
			return err
		}
		gm.ID = id
		_, err = s.c.InsertOne(ctx, gm)
		return mapDup(err)
	})
	if err != nil {
		return models.GroupMember{}, err
	}
	return gm, nil
}

func (s *Store) Get(ctx context.Context, id int64) (models.GroupMember, error) {
	return crud.Get[models.GroupMember](ctx, s.c, "group member", id)
}

func (s *Store) List(ctx context.Context, f Filter, page paging.Page) ([]models.GroupMember, error) {
	return crud.List[models.GroupMember](ctx, s.c, f.bson(), page)
}

func (s *Store) Count(ctx context.Context, f Filter) (int64, error) {
	return crud.Count(ctx, s.c, f.bson())
}

// ByGroup returns every membership of a group, open and closed.
func (s *Store) ByGroup(ctx context.Context, groupID int64) ([]models.GroupMember, error) {
	return crud.All[models.GroupMember](ctx, s.c, bson.M{"group_id": groupID})
}

// ByMember returns every membership held by a member.
func (s *Store) ByMember(ctx context.Context, memberID int64) ([]models.GroupMember, error) {
	return crud.All[models.GroupMember](ctx, s.c, bson.M{"member_id": memberID})
}

func (s *Store) Update(ctx context.Context, id int64, p Patch) (models.GroupMember, error) {
	if err := crud.FirstErr(
		patch.NotNull("group_id", p.GroupID),
		patch.NotNull("member_id", p.MemberID),
		patch.NotNull("role_id", p.RoleID),
		patch.NotNull("start_date", p.StartDate),
	); err != nil {
		return models.GroupMember{}, err
	}

	var out models.GroupMember
	err := txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		gm, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		set := patch.Setter{}
		patch.Assign(set, "group_id", p.GroupID, &gm.GroupID)
		patch.Assign(set, "member_id", p.MemberID, &gm.MemberID)
		patch.Assign(set, "role_id", p.RoleID, &gm.RoleID)
		patch.Assign(set, "start_date", p.StartDate, &gm.StartDate)
		patch.AssignPtr(set, "end_date", p.EndDate, &gm.EndDate)
		if set.Empty() {
			out = gm
			return nil
		}
		gm.Active = gm.EndDate == nil
		set["active"] = gm.Active

		if err := validate(gm); err != nil {
			return err
		}
		if p.GroupID.Present() || p.MemberID.Present() || p.RoleID.Present() {
			if err := s.requireRefs(ctx, gm); err != nil {
				return err
			}
		}
		if err := s.checkOpen(ctx, gm); err != nil {
			return err
		}
		if err := crud.Set(ctx, s.c, id, set, time.Now().UTC()); err != nil {
			return mapDup(err)
		}
		out, err = s.Get(ctx, id)
		return err
	})
	if err != nil {
		return models.GroupMember{}, err
	}
	return out, nil
}

// Delete removes a membership. Nothing references a membership, so there is
// no blocking check.
func (s *Store) Delete(ctx context.Context, id int64) (bool, error) {
	var deleted bool
	err := txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		var err error
		deleted, err = crud.Delete(ctx, s.c, id)
		return err
	})
	return deleted, err
}
