// internal/app/store/talks/talkstore.go
package talkstore

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
	return &Store{db: db, c: db.Collection(refs.Talks), ids: counterstore.New(db), log: log}
}

type Input struct {
	Title        string       `json:"title"`
	DocDBID      *string      `json:"docdb_id"`
	TalkLink     *string      `json:"talk_link"`
	StartDate    models.Date  `json:"start_date"`
	EndDate      *models.Date `json:"end_date"`
	ConferenceID *int64       `json:"conference_id"`
}

type Patch struct {
	Title        patch.Field[string]      `json:"title"`
	DocDBID      patch.Field[string]      `json:"docdb_id"`
	TalkLink     patch.Field[string]      `json:"talk_link"`
	StartDate    patch.Field[models.Date] `json:"start_date"`
	EndDate      patch.Field[models.Date] `json:"end_date"`
	ConferenceID patch.Field[int64]       `json:"conference_id"`
}

type Filter struct {
	ConferenceID *int64
}

func (f Filter) bson() bson.M {
	return crud.Filter{}.Int("conference_id", f.ConferenceID).BSON()
}

func validate(tk models.Talk) error {
	if tk.StartDate.IsZero() {
		return apperr.Validation("start_date is required")
	}
	return crud.FirstErr(
		crud.Required("title", tk.Title),
		crud.DateRange("end_date", tk.StartDate, tk.EndDate),
		crud.HTTPURL("talk_link", tk.TalkLink),
	)
}

func (s *Store) Create(ctx context.Context, in Input) (models.Talk, error) {
	now := time.Now().UTC()
	tk := models.Talk{
		Title:        normalize.Name(in.Title),
		DocDBID:      normalize.OptionalName(in.DocDBID),
		TalkLink:     in.TalkLink,
		StartDate:    in.StartDate,
		EndDate:      in.EndDate,
		ConferenceID: in.ConferenceID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := validate(tk); err != nil {
		return models.Talk{}, err
	}

	err := txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		if err := refs.RequireOptional(ctx, s.db, refs.Conferences, "conference_id", tk.ConferenceID); err != nil {
			return err
		}
		id, err := s.ids.Next(ctx, refs.Talks)
		if err != nil {
			return err
		}
		tk.ID = id
		_, err = s.c.InsertOne(ctx, tk)
		return err
	})
	if err != nil {
		return models.Talk{}, err
	}
	return tk, nil
}

func (s *Store) Get(ctx context.Context, id int64) (models.Talk, error) {
	return crud.Get[models.Talk](ctx, s.c, "talk", id)
}

// GetByIDs loads talks keyed by id; missing ids are absent from the map.
func (s *Store) GetByIDs(ctx context.Context, ids []int64) (map[int64]models.Talk, error) {
	return crud.ByIDs(ctx, s.c, ids, func(t models.Talk) int64 { return t.ID })
}

func (s *Store) List(ctx context.Context, f Filter, page paging.Page) ([]models.Talk, error) {
	return crud.List[models.Talk](ctx, s.c, f.bson(), page)
}

func (s *Store) Count(ctx context.Context, f Filter) (int64, error) {
	return crud.Count(ctx, s.c, f.bson())
}

// ByConference returns every talk given at a conference.
func (s *Store) ByConference(ctx context.Context, conferenceID int64) ([]models.Talk, error) {
	return crud.All[models.Talk](ctx, s.c, bson.M{"conference_id": conferenceID})
}

func (s *Store) Update(ctx context.Context, id int64, p Patch) (models.Talk, error) {
	if err := crud.FirstErr(
		patch.NotNull("title", p.Title),
		patch.NotNull("start_date", p.StartDate),
	); err != nil {
		return models.Talk{}, err
	}

	var out models.Talk
	err := txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		tk, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		if v, ok := p.Title.Value(); ok {
			p.Title = patch.Set(normalize.Name(v))
		}
		set := patch.Setter{}
		patch.Assign(set, "title", p.Title, &tk.Title)
		patch.AssignPtr(set, "docdb_id", p.DocDBID, &tk.DocDBID)
		patch.AssignPtr(set, "talk_link", p.TalkLink, &tk.TalkLink)
		patch.Assign(set, "start_date", p.StartDate, &tk.StartDate)
		patch.AssignPtr(set, "end_date", p.EndDate, &tk.EndDate)
		patch.AssignPtr(set, "conference_id", p.ConferenceID, &tk.ConferenceID)
		if set.Empty() {
			out = tk
			return nil
		}
		if err := validate(tk); err != nil {
			return err
		}
		if p.ConferenceID.HasValue() {
			if err := refs.RequireOptional(ctx, s.db, refs.Conferences, "conference_id", tk.ConferenceID); err != nil {
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
		return models.Talk{}, err
	}
	return out, nil
}

// Delete removes the talk unless it still has assignments.
func (s *Store) Delete(ctx context.Context, id int64) (bool, error) {
	var deleted bool
	err := txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		ok, err := refs.Exists(ctx, s.db, refs.Talks, id)
		if err != nil || !ok {
			deleted = false
			return err
		}
		if err := refs.Unreferenced(ctx, s.db, refs.Talks, id,
			refs.Dependent{Coll: refs.TalkAssignments, Field: "talk_id"},
		); err != nil {
			return err
		}
		deleted, err = crud.Delete(ctx, s.c, id)
		return err
	})
	return deleted, err
}
