package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	counterstore "github.com/dalemusser/phonebook/internal/app/store/counters"
	"github.com/dalemusser/phonebook/internal/app/system/indexes"
	"github.com/dalemusser/phonebook/internal/app/system/validators"
	"github.com/dalemusser/phonebook/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// EnsureSchema creates the collections, validators and indexes the service
// runs with. Tests that depend on unique indexes call it first.
func EnsureSchema(t *testing.T, db *mongo.Database) {
	t.Helper()
	ctx, cancel := TestContext()
	defer cancel()
	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("ensure validators: %v", err)
	}
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("ensure indexes: %v", err)
	}
}

// Fixtures provides helper methods for creating test data. Rows are
// inserted directly, bypassing the stores' checks, with ids drawn from the
// same counters the stores use.
type Fixtures struct {
	db  *mongo.Database
	ids *counterstore.Store
	t   *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, ids: counterstore.New(db), t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

func (f *Fixtures) insert(ctx context.Context, coll string, doc any) {
	f.t.Helper()
	if _, err := f.db.Collection(coll).InsertOne(ctx, doc); err != nil {
		f.t.Fatalf("failed to insert test %s: %v", coll, err)
	}
}

func (f *Fixtures) nextID(ctx context.Context, coll string) int64 {
	f.t.Helper()
	id, err := f.ids.Next(ctx, coll)
	if err != nil {
		f.t.Fatalf("failed to allocate %s id: %v", coll, err)
	}
	return id
}

// CreateInstitution creates an active US institution with the given name.
func (f *Fixtures) CreateInstitution(ctx context.Context, name string) models.Institution {
	f.t.Helper()

	now := time.Now().UTC()
	inst := models.Institution{
		ID:         f.nextID(ctx, "institutions"),
		FullName:   name,
		FullNameCI: text.Fold(name),
		ShortName:  name,
		Country:    "US",
		IsActive:   true,
		DateAdded:  models.MustDate("2024-01-01"),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	f.insert(ctx, "institutions", inst)
	return inst
}

// CreateMember creates an active member at institutionID.
func (f *Fixtures) CreateMember(ctx context.Context, email string, institutionID int64) models.Member {
	f.t.Helper()

	now := time.Now().UTC()
	m := models.Member{
		ID:            f.nextID(ctx, "members"),
		FirstName:     "Test",
		LastName:      "Member",
		Email:         email,
		EmailCI:       text.Fold(email),
		InstitutionID: institutionID,
		DateJoined:    models.MustDate("2024-01-02"),
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	f.insert(ctx, "members", m)
	return m
}

// CreateMemberWithSubject creates a member linked to an identity provider subject.
func (f *Fixtures) CreateMemberWithSubject(ctx context.Context, email string, institutionID int64, sub string, active bool) models.Member {
	f.t.Helper()

	now := time.Now().UTC()
	m := models.Member{
		ID:               f.nextID(ctx, "members"),
		FirstName:        "Test",
		LastName:         "Member",
		Email:            email,
		EmailCI:          text.Fold(email),
		InstitutionID:    institutionID,
		DateJoined:       models.MustDate("2024-01-02"),
		IsActive:         active,
		ExperimentalData: map[string]any{models.ExperimentalSubject: sub},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	f.insert(ctx, "members", m)
	return m
}

// CreateRole creates a role.
func (f *Fixtures) CreateRole(ctx context.Context, name string) models.Role {
	f.t.Helper()

	now := time.Now().UTC()
	r := models.Role{
		ID:        f.nextID(ctx, "roles"),
		Name:      name,
		NameCI:    text.Fold(name),
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.insert(ctx, "roles", r)
	return r
}

// CreateGroup creates an active group under parent (nil for a root group).
func (f *Fixtures) CreateGroup(ctx context.Context, name string, parent *int64) models.Group {
	f.t.Helper()

	now := time.Now().UTC()
	g := models.Group{
		ID:            f.nextID(ctx, "groups"),
		Name:          name,
		NameCI:        text.Fold(name),
		IsActive:      true,
		ParentGroupID: parent,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	f.insert(ctx, "groups", g)
	return g
}

// CreateGroupMember creates an open membership starting 2024-02-01.
func (f *Fixtures) CreateGroupMember(ctx context.Context, groupID, memberID, roleID int64) models.GroupMember {
	f.t.Helper()

	now := time.Now().UTC()
	gm := models.GroupMember{
		ID:        f.nextID(ctx, "group_members"),
		GroupID:   groupID,
		MemberID:  memberID,
		RoleID:    roleID,
		StartDate: models.MustDate("2024-02-01"),
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.insert(ctx, "group_members", gm)
	return gm
}

// CreateBoardMember seats memberID on board for institutionID.
func (f *Fixtures) CreateBoardMember(ctx context.Context, memberID, institutionID, roleID int64, board models.BoardType) models.InstitutionalBoardMember {
	f.t.Helper()

	now := time.Now().UTC()
	bm := models.InstitutionalBoardMember{
		ID:            f.nextID(ctx, "board_members"),
		MemberID:      memberID,
		InstitutionID: institutionID,
		BoardType:     board,
		RoleID:        roleID,
		StartDate:     models.MustDate("2024-03-01"),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	f.insert(ctx, "board_members", bm)
	return bm
}

// CreateConference creates a conference starting 2024-06-10.
func (f *Fixtures) CreateConference(ctx context.Context, name string) models.Conference {
	f.t.Helper()

	now := time.Now().UTC()
	c := models.Conference{
		ID:        f.nextID(ctx, "conferences"),
		Name:      name,
		StartDate: models.MustDate("2024-06-10"),
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.insert(ctx, "conferences", c)
	return c
}

// CreateTalk creates a talk, optionally attached to a conference.
func (f *Fixtures) CreateTalk(ctx context.Context, title string, conferenceID *int64) models.Talk {
	f.t.Helper()

	now := time.Now().UTC()
	tk := models.Talk{
		ID:           f.nextID(ctx, "talks"),
		Title:        title,
		StartDate:    models.MustDate("2024-06-11"),
		ConferenceID: conferenceID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	f.insert(ctx, "talks", tk)
	return tk
}

// CreateTalkAssignment gives talkID to memberID.
func (f *Fixtures) CreateTalkAssignment(ctx context.Context, talkID, memberID, roleID int64, assignedBy *int64) models.TalkAssignment {
	f.t.Helper()

	now := time.Now().UTC()
	ta := models.TalkAssignment{
		ID:             f.nextID(ctx, "talk_assignments"),
		TalkID:         talkID,
		MemberID:       memberID,
		RoleID:         roleID,
		AssignedByID:   assignedBy,
		AssignmentDate: models.MustDate("2024-05-01"),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	f.insert(ctx, "talk_assignments", ta)
	return ta
}
