// internal/app/store/members/memberstore.go
package memberstore

import (
	"context"
	"time"

	counterstore "github.com/dalemusser/phonebook/internal/app/store/counters"
	"github.com/dalemusser/phonebook/internal/app/store/crud"
	historystore "github.com/dalemusser/phonebook/internal/app/store/history"
	"github.com/dalemusser/phonebook/internal/app/store/refs"
	"github.com/dalemusser/phonebook/internal/app/system/apperr"
	"github.com/dalemusser/phonebook/internal/app/system/normalize"
	"github.com/dalemusser/phonebook/internal/app/system/paging"
	"github.com/dalemusser/phonebook/internal/app/system/patch"
	"github.com/dalemusser/phonebook/internal/app/system/txn"
	"github.com/dalemusser/phonebook/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/dalemusser/waffle/pantry/validate"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

var (
	ErrDuplicateEmail   = apperr.WithCode(apperr.Conflict("a member with this email already exists"), "duplicate_email")
	ErrDuplicateSubject = apperr.WithCode(apperr.Conflict("another member is already linked to this identity"), "duplicate_subject")
)

type Store struct {
	db      *mongo.Database
	c       *mongo.Collection
	ids     *counterstore.Store
	history *historystore.Store
	log     *zap.Logger
	now     func() time.Time
}

func New(db *mongo.Database, log *zap.Logger) *Store {
	return &Store{
		db:      db,
		c:       db.Collection(refs.Members),
		ids:     counterstore.New(db),
		history: historystore.New(db),
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Input is the create payload.
type Input struct {
	FirstName           string         `json:"first_name"`
	LastName            string         `json:"last_name"`
	Email               string         `json:"email"`
	ORCID               *string        `json:"orcid"`
	PreferredAuthorName *string        `json:"preferred_author_name"`
	InstitutionID       int64          `json:"institution_id"`
	DateJoined          models.Date    `json:"date_joined"`
	DateLeft            *models.Date   `json:"date_left"`
	IsActive            *bool          `json:"is_active"`
	ExperimentalData    map[string]any `json:"experimental_data"`
}

// Patch is the partial update payload.
type Patch struct {
	FirstName           patch.Field[string]         `json:"first_name"`
	LastName            patch.Field[string]         `json:"last_name"`
	Email               patch.Field[string]         `json:"email"`
	ORCID               patch.Field[string]         `json:"orcid"`
	PreferredAuthorName patch.Field[string]         `json:"preferred_author_name"`
	InstitutionID       patch.Field[int64]          `json:"institution_id"`
	DateJoined          patch.Field[models.Date]    `json:"date_joined"`
	DateLeft            patch.Field[models.Date]    `json:"date_left"`
	IsActive            patch.Field[bool]           `json:"is_active"`
	ExperimentalData    patch.Field[map[string]any] `json:"experimental_data"`
}

// Filter narrows List and Count.
type Filter struct {
	InstitutionID *int64
	IsActive      *bool
}

func (f Filter) bson() bson.M {
	return crud.Filter{}.Int("institution_id", f.InstitutionID).Bool("is_active", f.IsActive).BSON()
}

func validateMember(m models.Member) error {
	if err := crud.Required("email", m.Email); err != nil {
		return err
	}
	if !validate.SimpleEmailValid(m.Email) {
		return apperr.Validation("email %q is not a valid address", m.Email)
	}
	if sub, ok := m.ExperimentalData[models.ExperimentalSubject]; ok {
		if s, isStr := sub.(string); !isStr || s == "" {
			return apperr.Validation("experimental_data.sub must be a non-empty string")
		}
	}
	return crud.FirstErr(
		crud.RequireID("institution_id", m.InstitutionID),
		crud.DateRange("date_left", m.DateJoined, m.DateLeft),
	)
}

func mapDup(err error) error {
	switch {
	case crud.DupOn(err, "email_ci"):
		return ErrDuplicateEmail
	case crud.DupOn(err, "experimental_data.sub"):
		return ErrDuplicateSubject
	}
	return err
}

// checkUnique looks for another member holding m's email or subject.
func (s *Store) checkUnique(ctx context.Context, m models.Member) error {
	n, err := s.c.CountDocuments(ctx, bson.M{"email_ci": m.EmailCI, "_id": bson.M{"$ne": m.ID}})
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrDuplicateEmail
	}
	if sub := m.Subject(); sub != "" {
		n, err := s.c.CountDocuments(ctx, bson.M{"experimental_data.sub": sub, "_id": bson.M{"$ne": m.ID}})
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrDuplicateSubject
		}
	}
	return nil
}

func (s *Store) Create(ctx context.Context, in Input) (models.Member, error) {
	now := s.now()
	m := models.Member{
		FirstName:           normalize.Name(in.FirstName),
		LastName:            normalize.Name(in.LastName),
		Email:               normalize.Email(in.Email),
		ORCID:               normalize.OptionalName(in.ORCID),
		PreferredAuthorName: normalize.OptionalName(in.PreferredAuthorName),
		InstitutionID:       in.InstitutionID,
		DateJoined:          in.DateJoined,
		DateLeft:            in.DateLeft,
		IsActive:            true,
		ExperimentalData:    in.ExperimentalData,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if in.IsActive != nil {
		m.IsActive = *in.IsActive
	}
	if m.DateJoined.IsZero() {
		m.DateJoined = models.DateOf(now)
	}
	m.EmailCI = text.Fold(m.Email)
	if err := validateMember(m); err != nil {
		return models.Member{}, err
	}

	err := txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		if err := refs.Require(ctx, s.db, refs.Institutions, "institution_id", m.InstitutionID); err != nil {
			return err
		}
		if err := s.checkUnique(ctx, m); err != nil {
			return err
		}
		id, err := s.ids.Next(ctx, refs.Members)
		if err != nil {
			return err
		}
		m.ID = id
		if _, err := s.c.InsertOne(ctx, m); err != nil {
			return mapDup(err)
		}
		return nil
	})
	if err != nil {
		return models.Member{}, err
	}
	return m, nil
}

func (s *Store) Get(ctx context.Context, id int64) (models.Member, error) {
	return crud.Get[models.Member](ctx, s.c, "member", id)
}

// GetByIDs loads members keyed by id; missing ids are absent from the map.
func (s *Store) GetByIDs(ctx context.Context, ids []int64) (map[int64]models.Member, error) {
	return crud.ByIDs(ctx, s.c, ids, func(m models.Member) int64 { return m.ID })
}

// GetBySubject finds the member linked to an identity provider subject id.
func (s *Store) GetBySubject(ctx context.Context, sub string) (models.Member, bool, error) {
	var m models.Member
	err := s.c.FindOne(ctx, bson.M{"experimental_data.sub": sub}).Decode(&m)
	if err == mongo.ErrNoDocuments {
		return models.Member{}, false, nil
	}
	if err != nil {
		return models.Member{}, false, err
	}
	return m, true, nil
}

// GetByEmail finds a member by case-insensitive email.
func (s *Store) GetByEmail(ctx context.Context, email string) (models.Member, bool, error) {
	var m models.Member
	err := s.c.FindOne(ctx, bson.M{"email_ci": text.Fold(normalize.Email(email))}).Decode(&m)
	if err == mongo.ErrNoDocuments {
		return models.Member{}, false, nil
	}
	if err != nil {
		return models.Member{}, false, err
	}
	return m, true, nil
}

func (s *Store) List(ctx context.Context, f Filter, page paging.Page) ([]models.Member, error) {
	return crud.List[models.Member](ctx, s.c, f.bson(), page)
}

// ByInstitution returns every member currently affiliated with an institution.
func (s *Store) ByInstitution(ctx context.Context, institutionID int64) ([]models.Member, error) {
	return crud.All[models.Member](ctx, s.c, bson.M{"institution_id": institutionID})
}

// Count is the total for a List with the same filter, independent of paging.
func (s *Store) Count(ctx context.Context, f Filter) (int64, error) {
	return crud.Count(ctx, s.c, f.bson())
}

// Update applies p to the member. When the institution changes, the old
// affiliation is appended to the history in the same transaction.
func (s *Store) Update(ctx context.Context, id int64, p Patch) (models.Member, error) {
	if err := crud.FirstErr(
		patch.NotNull("first_name", p.FirstName),
		patch.NotNull("last_name", p.LastName),
		patch.NotNull("email", p.Email),
		patch.NotNull("institution_id", p.InstitutionID),
		patch.NotNull("date_joined", p.DateJoined),
		patch.NotNull("is_active", p.IsActive),
	); err != nil {
		return models.Member{}, err
	}

	var out models.Member
	err := txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		m, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		prevInstitution := m.InstitutionID

		set := p.apply(&m)
		if set.Empty() {
			out = m
			return nil
		}
		if err := validateMember(m); err != nil {
			return err
		}
		if p.Email.Present() || p.ExperimentalData.Present() {
			if err := s.checkUnique(ctx, m); err != nil {
				return err
			}
		}
		if m.InstitutionID != prevInstitution {
			if err := refs.Require(ctx, s.db, refs.Institutions, "institution_id", m.InstitutionID); err != nil {
				return err
			}
			if err := s.recordMove(ctx, m, prevInstitution); err != nil {
				return err
			}
		}
		if err := crud.Set(ctx, s.c, id, set, s.now()); err != nil {
			return mapDup(err)
		}
		out, err = s.Get(ctx, id)
		return err
	})
	if err != nil {
		return models.Member{}, err
	}
	return out, nil
}

// recordMove closes the affiliation with prev: it started where the last
// history row ended (or at date_joined) and ends today.
func (s *Store) recordMove(ctx context.Context, m models.Member, prev int64) error {
	start := m.DateJoined
	last, err := s.history.LastEnd(ctx, m.ID)
	if err != nil {
		return err
	}
	if last != nil {
		start = *last
	}
	end := models.DateOf(s.now())
	if end.Before(start) {
		end = start
	}
	_, err = s.history.Append(ctx, m.ID, prev, start, &end)
	return err
}

func (p Patch) apply(m *models.Member) patch.Setter {
	set := patch.Setter{}
	if v, ok := p.FirstName.Value(); ok {
		p.FirstName = patch.Set(normalize.Name(v))
	}
	if v, ok := p.LastName.Value(); ok {
		p.LastName = patch.Set(normalize.Name(v))
	}
	if v, ok := p.Email.Value(); ok {
		p.Email = patch.Set(normalize.Email(v))
	}
	patch.Assign(set, "first_name", p.FirstName, &m.FirstName)
	patch.Assign(set, "last_name", p.LastName, &m.LastName)
	patch.Assign(set, "email", p.Email, &m.Email)
	if p.Email.HasValue() {
		m.EmailCI = text.Fold(m.Email)
		set["email_ci"] = m.EmailCI
	}
	patch.AssignPtr(set, "orcid", p.ORCID, &m.ORCID)
	patch.AssignPtr(set, "preferred_author_name", p.PreferredAuthorName, &m.PreferredAuthorName)
	patch.Assign(set, "institution_id", p.InstitutionID, &m.InstitutionID)
	patch.Assign(set, "date_joined", p.DateJoined, &m.DateJoined)
	patch.AssignPtr(set, "date_left", p.DateLeft, &m.DateLeft)
	patch.Assign(set, "is_active", p.IsActive, &m.IsActive)
	patch.Assign(set, "experimental_data", p.ExperimentalData, &m.ExperimentalData)
	if p.ExperimentalData.IsNull() {
		m.ExperimentalData = nil
		set["experimental_data"] = nil
	}
	return set
}

// Delete removes the member together with its institution history, unless
// group, board or talk rows still point at it.
func (s *Store) Delete(ctx context.Context, id int64) (bool, error) {
	var deleted bool
	err := txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		ok, err := refs.Exists(ctx, s.db, refs.Members, id)
		if err != nil || !ok {
			deleted = false
			return err
		}
		if err := refs.Unreferenced(ctx, s.db, refs.Members, id,
			refs.Dependent{Coll: refs.GroupMembers, Field: "member_id"},
			refs.Dependent{Coll: refs.BoardMembers, Field: "member_id"},
			refs.Dependent{Coll: refs.TalkAssignments, Field: "member_id"},
			refs.Dependent{Coll: refs.TalkAssignments, Field: "assigned_by_id"},
		); err != nil {
			return err
		}
		if _, err := s.history.DeleteByMember(ctx, id); err != nil {
			return err
		}
		deleted, err = crud.Delete(ctx, s.c, id)
		return err
	})
	return deleted, err
}
