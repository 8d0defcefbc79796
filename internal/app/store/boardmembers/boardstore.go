// internal/app/store/boardmembers/boardstore.go
package boardstore

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

type Store struct {
	db  *mongo.Database
	c   *mongo.Collection
	ids *counterstore.Store
	log *zap.Logger
}

func New(db *mongo.Database, log *zap.Logger) *Store {
	return &Store{db: db, c: db.Collection(refs.BoardMembers), ids: counterstore.New(db), log: log}
}

type Input struct {
	MemberID      int64            `json:"member_id"`
	InstitutionID int64            `json:"institution_id"`
	BoardType     models.BoardType `json:"board_type"`
	RoleID        int64            `json:"role_id"`
	StartDate     models.Date      `json:"start_date"`
	EndDate       *models.Date     `json:"end_date"`
	IsChair       bool             `json:"is_chair"`
}

type Patch struct {
	MemberID      patch.Field[int64]            `json:"member_id"`
	InstitutionID patch.Field[int64]            `json:"institution_id"`
	BoardType     patch.Field[models.BoardType] `json:"board_type"`
	RoleID        patch.Field[int64]            `json:"role_id"`
	StartDate     patch.Field[models.Date]      `json:"start_date"`
	EndDate       patch.Field[models.Date]      `json:"end_date"`
	IsChair       patch.Field[bool]             `json:"is_chair"`
}

type Filter struct {
	BoardType     models.BoardType
	MemberID      *int64
	InstitutionID *int64
	RoleID        *int64
}

func (f Filter) bson() bson.M {
	return crud.Filter{}.
		String("board_type", string(f.BoardType)).
		Int("member_id", f.MemberID).
		Int("institution_id", f.InstitutionID).
		Int("role_id", f.RoleID).
		BSON()
}

func validate(bm models.InstitutionalBoardMember) error {
	if !bm.BoardType.Valid() {
		return apperr.Validation("board_type must be one of %v", models.BoardTypes)
	}
	if bm.StartDate.IsZero() {
		return apperr.Validation("start_date is required")
	}
	return crud.FirstErr(
		crud.RequireID("member_id", bm.MemberID),
		crud.RequireID("institution_id", bm.InstitutionID),
		crud.RequireID("role_id", bm.RoleID),
		crud.DateRange("end_date", bm.StartDate, bm.EndDate),
	)
}

func (s *Store) requireRefs(ctx context.Context, bm models.InstitutionalBoardMember) error {
	return crud.FirstErr(
		refs.Require(ctx, s.db, refs.Members, "member_id", bm.MemberID),
		refs.Require(ctx, s.db, refs.Institutions, "institution_id", bm.InstitutionID),
		refs.Require(ctx, s.db, refs.Roles, "role_id", bm.RoleID),
	)
}

func (s *Store) Create(ctx context.Context, in Input) (models.InstitutionalBoardMember, error) {
	now := time.Now().UTC()
	bm := models.InstitutionalBoardMember{
		MemberID:      in.MemberID,
		InstitutionID: in.InstitutionID,
		BoardType:     in.BoardType,
		RoleID:        in.RoleID,
		StartDate:     in.StartDate,
		EndDate:       in.EndDate,
		IsChair:       in.IsChair,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := validate(bm); err != nil {
		return models.InstitutionalBoardMember{}, err
	}

	err := txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		if err := s.requireRefs(ctx, bm); err != nil {
			return err
		}
		id, err := s.ids.Next(ctx, refs.BoardMembers)
		if err != nil {
			return err
		}
		bm.ID = id
		_, err = s.c.InsertOne(ctx, bm)
		return err
	})
	if err != nil {
		return models.InstitutionalBoardMember{}, err
	}
	return bm, nil
}

func (s *Store) Get(ctx context.Context, id int64) (models.InstitutionalBoardMember, error) {
	return crud.Get[models.InstitutionalBoardMember](ctx, s.c, "board member", id)
}

func (s *Store) List(ctx context.Context, f Filter, page paging.Page) ([]models.InstitutionalBoardMember, error) {
	return crud.List[models.InstitutionalBoardMember](ctx, s.c, f.bson(), page)
}

func (s *Store) Count(ctx context.Context, f Filter) (int64, error) {
	return crud.Count(ctx, s.c, f.bson())
}

// ByInstitution returns every board seat held for an institution.
func (s *Store) ByInstitution(ctx context.Context, institutionID int64) ([]models.InstitutionalBoardMember, error) {
	return crud.All[models.InstitutionalBoardMember](ctx, s.c, bson.M{"institution_id": institutionID})
}

// ByMember returns every board seat held by a member.
func (s *Store) ByMember(ctx context.Context, memberID int64) ([]models.InstitutionalBoardMember, error) {
	return crud.All[models.InstitutionalBoardMember](ctx, s.c, bson.M{"member_id": memberID})
}

func (s *Store) Update(ctx context.Context, id int64, p Patch) (models.InstitutionalBoardMember, error) {
	if err := crud.FirstErr(
		patch.NotNull("member_id", p.MemberID),
		patch.NotNull("institution_id", p.InstitutionID),
		patch.NotNull("board_type", p.BoardType),
		patch.NotNull("role_id", p.RoleID),
		patch.NotNull("start_date", p.StartDate),
		patch.NotNull("is_chair", p.IsChair),
	); err != nil {
		return models.InstitutionalBoardMember{}, err
	}

	var out models.InstitutionalBoardMember
	err := txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		bm, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		set := patch.Setter{}
		patch.Assign(set, "member_id", p.MemberID, &bm.MemberID)
		patch.Assign(set, "institution_id", p.InstitutionID, &bm.InstitutionID)
		patch.Assign(set, "board_type", p.BoardType, &bm.BoardType)
		patch.Assign(set, "role_id", p.RoleID, &bm.RoleID)
		patch.Assign(set, "start_date", p.StartDate, &bm.StartDate)
		patch.AssignPtr(set, "end_date", p.EndDate, &bm.EndDate)
		patch.Assign(set, "is_chair", p.IsChair, &bm.IsChair)
		if set.Empty() {
			out = bm
			return nil
		}
		if err := validate(bm); err != nil {
			return err
		}
		if p.MemberID.Present() || p.InstitutionID.Present() || p.RoleID.Present() {
			if err := s.requireRefs(ctx, bm); err != nil {
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
		return models.InstitutionalBoardMember{}, err
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
