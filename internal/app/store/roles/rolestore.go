// internal/app/store/roles/rolestore.go
package rolestore

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

var ErrDuplicateName = apperr.WithCode(apperr.Conflict("a role with this name already exists"), "duplicate_name")

type Store struct {
	db  *mongo.Database
	c   *mongo.Collection
	ids *counterstore.Store
	log *zap.Logger
}

func New(db *mongo.Database, log *zap.Logger) *Store {
	return &Store{db: db, c: db.Collection(refs.Roles), ids: counterstore.New(db), log: log}
}

type Input struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

type Patch struct {
	Name        patch.Field[string] `json:"name"`
	Description patch.Field[string] `json:"description"`
}

func validate(r models.Role) error {
	return crud.FirstErr(
		crud.Required("name", r.Name),
		crud.MaxLen("name", r.Name, models.RoleNameMaxLen),
	)
}

func (s *Store) nameTaken(ctx context.Context, r models.Role) error {
	n, err := s.c.CountDocuments(ctx, bson.M{"name_ci": r.NameCI, "_id": bson.M{"$ne": r.ID}})
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrDuplicateName
	}
	return nil
}

func (s *Store) Create(ctx context.Context, in Input) (models.Role, error) {
	now := time.Now().UTC()
	r := models.Role{
		Name:        normalize.Name(in.Name),
		Description: htmlsanitize.SanitizePtr(in.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	r.NameCI = text.Fold(r.Name)
	if err := validate(r); err != nil {
		return models.Role{}, err
	}

	err := txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		if err := s.nameTaken(ctx, r); err != nil {
			return err
		}
		id, err := s.ids.Next(ctx, refs.Roles)
		if err != nil {
			return err
		}
		r.ID = id
		if _, err := s.c.InsertOne(ctx, r); err != nil {
			if crud.DupOn(err, "name_ci") {
				return ErrDuplicateName
			}
			return err
		}
		return nil
	})
	if err != nil {
		return models.Role{}, err
	}
	return r, nil
}

func (s *Store) Get(ctx context.Context, id int64) (models.Role, error) {
	return crud.Get[models.Role](ctx, s.c, "role", id)
}

// GetByIDs loads roles keyed by id; missing ids are absent from the map.
func (s *Store) GetByIDs(ctx context.Context, ids []int64) (map[int64]models.Role, error) {
	return crud.ByIDs(ctx, s.c, ids, func(r models.Role) int64 { return r.ID })
}

func (s *Store) List(ctx context.Context, page paging.Page) ([]models.Role, error) {
	return crud.List[models.Role](ctx, s.c, nil, page)
}

func (s *Store) Count(ctx context.Context) (int64, error) {
	return crud.Count(ctx, s.c, nil)
}

func (s *Store) Update(ctx context.Context, id int64, p Patch) (models.Role, error) {
	if err := patch.NotNull("name", p.Name); err != nil {
		return models.Role{}, err
	}

	var out models.Role
	err := txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		r, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		set := patch.Setter{}
		if v, ok := p.Name.Value(); ok {
			patch.Assign(set, "name", patch.Set(normalize.Name(v)), &r.Name)
			r.NameCI = text.Fold(r.Name)
			set["name_ci"] = r.NameCI
		}
		if v, ok := p.Description.Value(); ok {
			p.Description = patch.Set(htmlsanitize.Sanitize(v))
		}
		patch.AssignPtr(set, "description", p.Description, &r.Description)
		if set.Empty() {
			out = r
			return nil
		}
		if err := validate(r); err != nil {
			return err
		}
		if p.Name.Present() {
			if err := s.nameTaken(ctx, r); err != nil {
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
		return models.Role{}, err
	}
	return out, nil
}

// Delete removes the role unless a group, board or talk assignment uses it.
func (s *Store) Delete(ctx context.Context, id int64) (bool, error) {
	var deleted bool
	err := txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		ok, err := refs.Exists(ctx, s.db, refs.Roles, id)
		if err != nil || !ok {
			deleted = false
			return err
		}
		if err := refs.Unreferenced(ctx, s.db, refs.Roles, id,
			refs.Dependent{Coll: refs.GroupMembers, Field: "role_id"},
			refs.Dependent{Coll: refs.BoardMembers, Field: "role_id"},
			refs.Dependent{Coll: refs.TalkAssignments, Field: "role_id"},
		); err != nil {
			return err
		}
		deleted, err = crud.Delete(ctx, s.c, id)
		return err
	})
	return deleted, err
}
