// internal/app/store/conferences/conferencestore.go
package conferencestore

import (
	"context"
	"time"

	counterstore "github.com/dalemusser/phonebook/internal/app/store/counters"
	"github.com/dalemusser/phonebook/internal/app/store/crud"
	"github.com/dalemusser/phonebook/internal/app/store/refs"
	"github.com/dalemusser/phonebook/internal/app/system/apperr"
	"github.com/dalemusser/phonebook/internal/app/system/normalize"
	"github.com/dalemusser/phonebook/internal/app/system/paging"
	"github.com/dalemusser/phonebook/internal/app/system/patch"
	"github.com/dalemusser/phonebook/internal/app/system/txn"
	"github.com/dalemusser/phonebook/internal/domain/models"
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
	return &Store{db: db, c: db.Collection(refs.Conferences), ids: counterstore.New(db), log: log}
}

type Input struct {
	Name      string       `json:"name"`
	Location  *string      `json:"location"`
	StartDate models.Date  `json:"start_date"`
	EndDate   *models.Date `json:"end_date"`
	URL       *string      `json:"url"`
}

type Patch struct {
	Name      patch.Field[string]      `json:"name"`
	Location  patch.Field[string]      `json:"location"`
	StartDate patch.Field[models.Date] `json:"start_date"`
	EndDate   patch.Field[models.Date] `json:"end_date"`
	URL       patch.Field[string]      `json:"url"`
}

func validate(c models.Conference) error {
	if c.StartDate.IsZero() {
		return apperr.Validation("start_date is required")
	}
	return crud.FirstErr(
		crud.Required("name", c.Name),
		crud.DateRange("end_date", c.StartDate, c.EndDate),
		crud.HTTPURL("url", c.URL),
	)
}

func (s *Store) Create(ctx context.Context, in Input) (models.Conference, error) {
	now := time.Now().UTC()
	c := models.Conference{
		Name:      normalize.Name(in.Name),
		Location:  normalize.OptionalName(in.Location),
		StartDate: in.StartDate,
		EndDate:   in.EndDate,
		URL:       in.URL,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := validate(c); err != nil {
		return models.Conference{}, err
	}

	err := txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		id, err := s.ids.Next(ctx, refs.Conferences)
		if err != nil {
			return err
		}
		c.ID = id
		_, err = s.c.InsertOne(ctx, c)
		return err
	})
	if err != nil {
		return models.Conference{}, err
	}
	return c, nil
}

func (s *Store) Get(ctx context.Context, id int64) (models.Conference, error) {
	return crud.Get[models.Conference](ctx, s.c, "conference", id)
}

// GetByIDs loads conferences keyed by id; missing ids are absent from the map.
func (s *Store) GetByIDs(ctx context.Context, ids []int64) (map[int64]models.Conference, error) {
	return crud.ByIDs(ctx, s.c, ids, func(c models.Conference) int64 { return c.ID })
}

func (s *Store) List(ctx context.Context, page paging.Page) ([]models.Conference, error) {
	return crud.List[models.Conference](ctx, s.c, nil, page)
}

func (s *Store) Count(ctx context.Context) (int64, error) {
	return crud.Count(ctx, s.c, nil)
}

func (s *Store) Update(ctx context.Context, id int64, p Patch) (models.Conference, error) {
	if err := crud.FirstErr(
		patch.NotNull("name", p.Name),
		patch.NotNull("start_date", p.StartDate),
	); err != nil {
		return models.Conference{}, err
	}

	var out models.Conference
	err := txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		c, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		if v, ok := p.Name.Value(); ok {
			p.Name = patch.Set(normalize.Name(v))
		}
		set := patch.Setter{}
		patch.Assign(set, "name", p.Name, &c.Name)
		patch.AssignPtr(set, "location", p.Location, &c.Location)
		patch.Assign(set, "start_date", p.StartDate, &c.StartDate)
		patch.AssignPtr(set, "end_date", p.EndDate, &c.EndDate)
		patch.AssignPtr(set, "url", p.URL, &c.URL)
		if set.Empty() {
			out = c
			return nil
		}
		if err := validate(c); err != nil {
			return err
		}
		if err := crud.Set(ctx, s.c, id, set, time.Now().UTC()); err != nil {
			return err
		}
		out, err = s.Get(ctx, id)
		return err
	})
	if err != nil {
		return models.Conference{}, err
	}
	return out, nil
}

// Delete removes the conference unless talks are still attached to it.
func (s *Store) Delete(ctx context.Context, id int64) (bool, error) {
	var deleted bool
	err := txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		ok, err := refs.Exists(ctx, s.db, refs.Conferences, id)
		if err != nil || !ok {
			deleted = false
			return err
		}
		if err := refs.Unreferenced(ctx, s.db, refs.Conferences, id,
			refs.Dependent{Coll: refs.Talks, Field: "conference_id"},
		); err != nil {
			return err
		}
		deleted, err = crud.Delete(ctx, s.c, id)
		return err
	})
	return deleted, err
}
