// internal/app/store/institutions/institutionstore.go
package institutionstore

import (
	"context"
	"time"

	counterstore "github.com/dalemusser/phonebook/internal/app/store/counters"
	"github.com/dalemusser/phonebook/internal/app/store/crud"
	"github.com/dalemusser/phonebook/internal/app/store/refs"
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

// DefaultName is used for institutions provisioned at login when the
// identity provider sends no organization name.
const DefaultName = "Default Institution"

type Store struct {
	db  *mongo.Database
	c   *mongo.Collection
	ids *counterstore.Store
	log *zap.Logger
}

func New(db *mongo.Database, log *zap.Logger) *Store {
	return &Store{
		db:  db,
		c:   db.Collection(refs.Institutions),
		ids: counterstore.New(db),
		log: log,
	}
}

// Input is the create payload.
type Input struct {
	FullName    string       `json:"full_name"`
	ShortName   string       `json:"short_name"`
	Country     string       `json:"country"`
	Region      *string      `json:"region"`
	Latitude    *float64     `json:"latitude"`
	Longitude   *float64     `json:"longitude"`
	City        *string      `json:"city"`
	Address     *string      `json:"address"`
	EntityID    string       `json:"entityid"`
	RORID       *string      `json:"rorid"`
	IsActive    *bool        `json:"is_active"`
	DateAdded   models.Date  `json:"date_added"`
	DateRemoved *models.Date `json:"date_removed"`
}

// Patch is the partial update payload.
type Patch struct {
	FullName    patch.Field[string]      `json:"full_name"`
	ShortName   patch.Field[string]      `json:"short_name"`
	Country     patch.Field[string]      `json:"country"`
	Region      patch.Field[string]      `json:"region"`
	Latitude    patch.Field[float64]     `json:"latitude"`
	Longitude   patch.Field[float64]     `json:"longitude"`
	City        patch.Field[string]      `json:"city"`
	Address     patch.Field[string]      `json:"address"`
	EntityID    patch.Field[string]      `json:"entityid"`
	RORID       patch.Field[string]      `json:"rorid"`
	IsActive    patch.Field[bool]        `json:"is_active"`
	DateAdded   patch.Field[models.Date] `json:"date_added"`
	DateRemoved patch.Field[models.Date] `json:"date_removed"`
}

// Filter narrows List and Count.
type Filter struct {
	Country  string
	IsActive *bool
}

func (f Filter) bson() bson.M {
	return crud.Filter{}.String("country", f.Country).Bool("is_active", f.IsActive).BSON()
}

func validate(inst models.Institution) error {
	return crud.FirstErr(
		crud.Required("full_name", inst.FullName),
		crud.MaxLen("full_name", inst.FullName, models.FullNameMaxLen),
		crud.Required("short_name", inst.ShortName),
		crud.Required("country", inst.Country),
		crud.DateRange("date_removed", inst.DateAdded, inst.DateRemoved),
	)
}

func optRORID(s *string) *string {
	if s == nil {
		return nil
	}
	id := normalize.RORID(*s)
	if id == "" {
		return nil
	}
	return &id
}

func (s *Store) Create(ctx context.Context, in Input) (models.Institution, error) {
	now := time.Now().UTC()
	inst := models.Institution{
		FullName:    normalize.Name(in.FullName),
		ShortName:   normalize.Name(in.ShortName),
		Country:     normalize.Name(in.Country),
		Region:      normalize.OptionalName(in.Region),
		Latitude:    in.Latitude,
		Longitude:   in.Longitude,
		City:        normalize.OptionalName(in.City),
		Address:     normalize.OptionalName(in.Address),
		EntityID:    in.EntityID,
		RORID:       optRORID(in.RORID),
		IsActive:    true,
		DateAdded:   in.DateAdded,
		DateRemoved: in.DateRemoved,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.IsActive != nil {
		inst.IsActive = *in.IsActive
	}
	if inst.DateAdded.IsZero() {
		inst.DateAdded = models.DateOf(now)
	}
	inst.FullNameCI = text.Fold(inst.FullName)
	if err := validate(inst); err != nil {
		return models.Institution{}, err
	}

	err := txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		id, err := s.ids.Next(ctx, refs.Institutions)
		if err != nil {
			return err
		}
		inst.ID = id
		_, err = s.c.InsertOne(ctx, inst)
		return err
	})
	if err != nil {
		return models.Institution{}, err
	}
	return inst, nil
}

func (s *Store) Get(ctx context.Context, id int64) (models.Institution, error) {
	return crud.Get[models.Institution](ctx, s.c, "institution", id)
}

// GetByIDs loads institutions keyed by id; missing ids are absent from the map.
func (s *Store) GetByIDs(ctx context.Context, ids []int64) (map[int64]models.Institution, error) {
	return crud.ByIDs(ctx, s.c, ids, func(i models.Institution) int64 { return i.ID })
}

func (s *Store) List(ctx context.Context, f Filter, page paging.Page) ([]models.Institution, error) {
	return crud.List[models.Institution](ctx, s.c, f.bson(), page)
}

func (s *Store) Count(ctx context.Context, f Filter) (int64, error) {
	return crud.Count(ctx, s.c, f.bson())
}

// FindForIdP returns the institution matching an identity provider, first by
// entity id and then by case-insensitive full name. ok is false when neither
// matches.
func (s *Store) FindForIdP(ctx context.Context, entityID, name string) (inst models.Institution, ok bool, err error) {
	if entityID != "" {
		err = s.c.FindOne(ctx, bson.M{"entityid": entityID}, paging.FirstByID()).Decode(&inst)
		if err == nil {
			return inst, true, nil
		}
		if err != mongo.ErrNoDocuments {
			return inst, false, err
		}
	}
	if name = normalize.Name(name); name != "" {
		err = s.c.FindOne(ctx, bson.M{"full_name_ci": text.Fold(name)}, paging.FirstByID()).Decode(&inst)
		if err == nil {
			return inst, true, nil
		}
		if err != mongo.ErrNoDocuments {
			return inst, false, err
		}
	}
	return models.Institution{}, false, nil
}

// Update applies p to the institution. An empty patch returns the stored
// institution unchanged.
func (s *Store) Update(ctx context.Context, id int64, p Patch) (models.Institution, error) {
	if err := crud.FirstErr(
		patch.NotNull("full_name", p.FullName),
		patch.NotNull("short_name", p.ShortName),
		patch.NotNull("country", p.Country),
		patch.NotNull("is_active", p.IsActive),
		patch.NotNull("date_added", p.DateAdded),
	); err != nil {
		return models.Institution{}, err
	}

	var out models.Institution
	err := txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		inst, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		set := p.apply(&inst)
		if set.Empty() {
			out = inst
			return nil
		}
		if err := validate(inst); err != nil {
			return err
		}
		if err := crud.Set(ctx, s.c, id, set, time.Now().UTC()); err != nil {
			return err
		}
		out, err = s.Get(ctx, id)
		return err
	})
	if err != nil {
		return models.Institution{}, err
	}
	return out, nil
}

func (p Patch) apply(inst *models.Institution) patch.Setter {
	set := patch.Setter{}
	if v, ok := p.FullName.Value(); ok {
		p.FullName = patch.Set(normalize.Name(v))
	}
	patch.Assign(set, "full_name", p.FullName, &inst.FullName)
	if p.FullName.HasValue() {
		inst.FullNameCI = text.Fold(inst.FullName)
		set["full_name_ci"] = inst.FullNameCI
	}
	patch.Assign(set, "short_name", p.ShortName, &inst.ShortName)
	patch.Assign(set, "country", p.Country, &inst.Country)
	patch.AssignPtr(set, "region", p.Region, &inst.Region)
	patch.AssignPtr(set, "latitude", p.Latitude, &inst.Latitude)
	patch.AssignPtr(set, "longitude", p.Longitude, &inst.Longitude)
	patch.AssignPtr(set, "city", p.City, &inst.City)
	patch.AssignPtr(set, "address", p.Address, &inst.Address)
	patch.Assign(set, "entityid", p.EntityID, &inst.EntityID)
	if p.EntityID.IsNull() {
		inst.EntityID = ""
		set["entityid"] = ""
	}
	if v, ok := p.RORID.Value(); ok {
		if id := normalize.RORID(v); id != "" {
			p.RORID = patch.Set(id)
		} else {
			p.RORID = patch.Null[string]()
		}
	}
	patch.AssignPtr(set, "rorid", p.RORID, &inst.RORID)
	patch.Assign(set, "is_active", p.IsActive, &inst.IsActive)
	patch.Assign(set, "date_added", p.DateAdded, &inst.DateAdded)
	patch.AssignPtr(set, "date_removed", p.DateRemoved, &inst.DateRemoved)
	return set
}

// Delete removes the institution. It fails with Conflict while members,
// board seats or history rows still point at it, and reports false when
// there was nothing to delete.
func (s *Store) Delete(ctx context.Context, id int64) (bool, error) {
	var deleted bool
	err := txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		ok, err := refs.Exists(ctx, s.db, refs.Institutions, id)
		if err != nil || !ok {
			deleted = false
			return err
		}
		if err := refs.Unreferenced(ctx, s.db, refs.Institutions, id,
			refs.Dependent{Coll: refs.Members, Field: "institution_id"},
			refs.Dependent{Coll: refs.BoardMembers, Field: "institution_id"},
			refs.Dependent{Coll: refs.History, Field: "institution_id"},
		); err != nil {
			return err
		}
		deleted, err = crud.Delete(ctx, s.c, id)
		return err
	})
	return deleted, err
}
