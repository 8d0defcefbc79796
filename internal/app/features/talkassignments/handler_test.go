package talkassignments_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/dalemusser/phonebook/internal/app/features/talkassignments"
	"github.com/dalemusser/phonebook/internal/domain/models"
	"github.com/dalemusser/phonebook/internal/testutil"
	"go.uber.org/zap"
)

type assignmentBody struct {
	ID             int64  `json:"id"`
	AssignmentDate string `json:"assignment_date"`
	Member         *struct {
		ID int64 `json:"id"`
	} `json:"member"`
	AssignedBy *struct {
		ID int64 `json:"id"`
	} `json:"assigned_by_member"`
	Role *struct {
		Name string `json:"name"`
	} `json:"role"`
}

func TestCreateListUpdateDelete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.EnsureSchema(t, db)
	h := talkassignments.Routes(talkassignments.NewHandler(db, nil, zap.NewNop()))
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	serve := func(r *http.Request) *testutil.ResponseRecorder {
		rec := testutil.NewRecorder()
		h.ServeHTTP(rec, testutil.WithUser(r, testutil.RegularUser()))
		return rec
	}

	inst := fx.CreateInstitution(ctx, "Lab A")
	speaker := fx.CreateMember(ctx, "speaker@example.org", inst.ID)
	convener := fx.CreateMember(ctx, "convener@example.org", inst.ID)
	role := fx.CreateRole(ctx, "speaker")
	tk := fx.CreateTalk(ctx, "Overview", nil)

	rec := serve(testutil.NewJSONRequest("POST", "/",
		fmt.Sprintf(`{"talk_id":%d,"member_id":%d,"role_id":%d,"assigned_by_id":%d}`, tk.ID, speaker.ID, role.ID, convener.ID)))
	rec.AssertStatus(t, http.StatusCreated)
	var created assignmentBody
	rec.DecodeJSON(t, &created)
	if created.AssignmentDate != models.Today().String() {
		t.Errorf("assignment_date = %q, want today", created.AssignmentDate)
	}
	if created.Member == nil || created.Member.ID != speaker.ID {
		t.Errorf("member = %+v", created.Member)
	}
	if created.AssignedBy == nil || created.AssignedBy.ID != convener.ID {
		t.Errorf("assigned_by_member = %+v", created.AssignedBy)
	}
	if created.Role == nil || created.Role.Name != "speaker" {
		t.Errorf("role = %+v", created.Role)
	}

	rec = serve(testutil.NewRequest("GET", fmt.Sprintf("/?member_id=%d", speaker.ID)))
	rec.AssertStatus(t, http.StatusOK)
	var list []assignmentBody
	rec.DecodeJSON(t, &list)
	if len(list) != 1 {
		t.Errorf("list len = %d", len(list))
	}

	rec = serve(testutil.NewJSONRequest("PUT", fmt.Sprintf("/%d", created.ID), `{"assigned_by_id":null}`))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"assigned_by_member":null`)

	serve(testutil.NewRequest("DELETE", fmt.Sprintf("/%d", created.ID))).AssertStatus(t, http.StatusNoContent)
	serve(testutil.NewRequest("GET", fmt.Sprintf("/%d", created.ID))).AssertStatus(t, http.StatusNotFound)
}

func TestCreate_UnknownTalk(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := talkassignments.Routes(talkassignments.NewHandler(db, nil, zap.NewNop()))

	rec := testutil.NewRecorder()
	h.ServeHTTP(rec, testutil.NewJSONRequest("POST", "/", `{"talk_id":5,"member_id":6,"role_id":7}`))
	rec.AssertStatus(t, http.StatusNotFound)
}
