// internal/app/store/groups/groupstore.go
package groupstore

import (
	"context"
	"time"

	counterstore "github.com/dalemusser/phonebook/internal/app/store/counters"
	"github.com/dalemusser/phonebook/internal/app/store/crud"
	"github.com/dalemusser/phonebook/internal/app/store/refs"
	"github.com/dalemusser/phonebook/internal/app/system/apperr"
	"github.com/dalemusser/phonebook/internal/app/system/htmlsanitize"
	"github.com/dalemusser/phonebook/internal/app/system/normalize"
	"github.com/dalemusser/phonebook/internal/app/system/paging"
	"github.com/dalemusser/phonebook/internal/app/system/patch"
	"github.com/dalemusser/phonebook/internal/app/system/txn"
	"github.com/dalemusser/phonebook/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

var (
	ErrDuplicateName = apperr.WithCode(apperr.Conflict("a group with this name already exists"), "duplicate_name")
	ErrCycle         = apperr.WithCode(apperr.Validation("parent_group_id would make the group its own ancestor"), "group_cycle")
)

// maxDepth bounds the ancestor walk. A tree deeper than this is treated as
// corrupt rather than walked forever.
const maxDepth = 256

type Store struct {
	db  *mongo.Database
	c   *mongo.Collection
	ids *counterstore.Store
	log *zap.Logger
}

func New(db *mongo.Database, log *zap.Logger) *Store {
	return &Store{db: db, c: db.Collection(refs.Groups), ids: counterstore.New(db), log: log}
}

type Input struct {
	Name          string  `json:"name"`
	Description   *string `json:"description"`
	IsActive      *bool   `json:"is_active"`
	ParentGroupID *int64  `json:"parent_group_id"`
}

type Patch struct {
	Name          patch.Field[string] `json:"name"`
	Description   patch.Field[string] `json:"description"`
	IsActive      patch.Field[bool]   `json:"is_active"`
	ParentGroupID patch.Field[int64]  `json:"parent_group_id"`
}

type Filter struct {
	ParentGroupID *int64
	IsActive      *bool
}

func (f Filter) bson() bson.M {
	return crud.Filter{}.Int("parent_group_id", f.ParentGroupID).Bool("is_active", f.IsActive).BSON()
}

func (s *Store) nameTaken(ctx context.Context, g models.Group) error {
	n, err := s.c.CountDocuments(ctx, bson.M{"name_ci": g.NameCI, "_id": bson.M{"$ne": g.ID}})
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrDuplicateName
	}
	return nil
}

// checkParent verifies that parent exists and that id is not among its
// ancestors. id is 0 for a group that does not exist yet. Every ancestor on
// the walk is stamped, so two concurrent reparents that could close a loop
// write the same document and cannot both commit.
func (s *Store) checkParent(ctx context.Context, id int64, parent *int64) error {
	if parent == nil {
		return nil
	}
	if err := refs.Require(ctx, s.db, refs.Groups, "parent_group_id", *parent); err != nil {
		return err
	}
	seen := map[int64]bool{}
	cur := parent
	for depth := 0; cur != nil; depth++ {
		if *cur == id || seen[*cur] || depth > maxDepth {
			return ErrCycle
		}
		seen[*cur] = true
		var g models.Group
		err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": *cur},
			bson.M{"$set": bson.M{refs.CheckedField: time.Now().UTC()}}).Decode(&g)
		if err == mongo.ErrNoDocuments {
			return nil
		}
		if err != nil {
			return err
		}
		cur = g.ParentGroupID
	}
	return nil
}

func (s *Store) Create(ctx context.Context, in Input) (models.Group, error) {
	now := time.Now().UTC()
	g := models.Group{
		Name:          normalize.Name(in.Name),
		Description:   htmlsanitize.SanitizePtr(in.Description),
		IsActive:      true,
		ParentGroupID: in.ParentGroupID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if in.IsActive != nil {
		g.IsActive = *in.IsActive
	}
	g.NameCI = text.Fold(g.Name)
	if err := crud.Required("name", g.Name); err != nil {
		return models.Group{}, err
	}

	err := txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		if err := s.checkParent(ctx, 0, g.ParentGroupID); err != nil {
			return err
		}
		if err := s.nameTaken(ctx, g); err != nil {
			return err
		}
		id, err := s.ids.Next(ctx, refs.Groups)
		if err != nil {
			return err
		}
		g.ID = id
		if _, err := s.c.InsertOne(ctx, g); err != nil {
			if crud.DupOn(err, "name_ci") {
				return ErrDuplicateName
			}
			return err
		}
		return nil
	})
	if err != nil {
		return models.Group{}, err
	}
	return g, nil
}

func (s *Store) Get(ctx context.Context, id int64) (models.Group, error) {
	return crud.Get[models.Group](ctx, s.c, "group", id)
}

// GetByIDs loads groups keyed by id; missing ids are absent from the map.
func (s *Store) GetByIDs(ctx context.Context, ids []int64) (map[int64]models.Group, error) {
	return crud.ByIDs(ctx, s.c, ids, func(g models.Group) int64 { return g.ID })
}

func (s *Store) List(ctx context.Context, f Filter, page paging.Page) ([]models.Group, error) {
	return crud.List[models.Group](ctx, s.c, f.bson(), page)
}

func (s *Store) Count(ctx context.Context, f Filter) (int64, error) {
	return crud.Count(ctx, s.c, f.bson())
}

// Children returns the direct subgroups of id.
func (s *Store) Children(ctx context.Context, id int64) ([]models.Group, error) {
	return crud.All[models.Group](ctx, s.c, bson.M{"parent_group_id": id})
}

func (s *Store) Update(ctx context.Context, id int64, p Patch) (models.Group, error) {
	if err := crud.FirstErr(
		patch.NotNull("name", p.Name),
		patch.NotNull("is_active", p.IsActive),
	); err != nil {
		return models.Group{}, err
	}

	var out models.Group
	err := txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		g, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		set := patch.Setter{}
		if v, ok := p.Name.Value(); ok {
			patch.Assign(set, "name", patch.Set(normalize.Name(v)), &g.Name)
			g.NameCI = text.Fold(g.Name)
			set["name_ci"] = g.NameCI
		}
		if v, ok := p.Description.Value(); ok {
			p.Description = patch.Set(htmlsanitize.Sanitize(v))
		}
		patch.AssignPtr(set, "description", p.Description, &g.Description)
		patch.Assign(set, "is_active", p.IsActive, &g.IsActive)
		patch.AssignPtr(set, "parent_group_id", p.ParentGroupID, &g.ParentGroupID)
		if set.Empty() {
			out = g
			return nil
		}
		if err := crud.Required("name", g.Name); err != nil {
			return err
		}
		if p.Name.Present() {
			if err := s.nameTaken(ctx, g); err != nil {
				return err
			}
		}
		if p.ParentGroupID.HasValue() {
			if err := s.checkParent(ctx, id, g.ParentGroupID); err != nil {
				return err
			}
		}
		if err := crud.Set(ctx, s.c, id, set, time.Now().UTC()); err != nil {
			if crud.DupOn(err, "name_ci") {
				return ErrDuplicateName
			}
			return err
		}
		out, err = s.Get(ctx, id)
		return err
	})
	if err != nil {
		return models.Group{}, err
	}
	return out, nil
}

// Delete removes the group unless it still has members or subgroups.
func (s *Store) Delete(ctx context.Context, id int64) (bool, error) {
	var deleted bool
	err := txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		ok, err := refs.Exists(ctx, s.db, refs.Groups, id)
		if err != nil || !ok {
			deleted = false
			return err
		}
		if err := refs.Unreferenced(ctx, s.db, refs.Groups, id,
			refs.Dependent{Coll: refs.GroupMembers, Field: "group_id"},
			refs.Dependent{Coll: refs.Groups, Field: "parent_group_id"},
		); err != nil {
			return err
		}
		deleted, err = crud.Delete(ctx, s.c, id)
		return err
	})
	return deleted, err
}
