package talks_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/dalemusser/phonebook/internal/app/features/talks"
	"github.com/dalemusser/phonebook/internal/testutil"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func newTestRouter(t *testing.T) (http.Handler, *mongo.Database) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	testutil.EnsureSchema(t, db)
	return talks.Routes(talks.NewHandler(db, nil, zap.NewNop())), db
}

func serve(h http.Handler, r *http.Request) *testutil.ResponseRecorder {
	rec := testutil.NewRecorder()
	h.ServeHTTP(rec, testutil.WithUser(r, testutil.RegularUser()))
	return rec
}

func TestCreate(t *testing.T) {
	h, db := newTestRouter(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	c := fx.CreateConference(ctx, "CHEP")

	rec := serve(h, testutil.NewJSONRequest("POST", "/",
		fmt.Sprintf(`{"title":"Tracking status","docdb_id":"1234-v2","start_date":"2024-06-11","conference_id":%d}`, c.ID)))
	rec.AssertStatus(t, http.StatusCreated)
	rec.AssertContains(t, `"assignments":[]`)
	rec.AssertContains(t, `"docdb_id":"1234-v2"`)

	serve(h, testutil.NewJSONRequest("POST", "/", `{"title":"Orphan","start_date":"2024-06-11","conference_id":999}`)).
		AssertStatus(t, http.StatusNotFound)
	serve(h, testutil.NewJSONRequest("POST", "/", `{"start_date":"2024-06-11"}`)).
		AssertStatus(t, http.StatusBadRequest)
}

func TestList_FilterByConference(t *testing.T) {
	h, db := newTestRouter(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a := fx.CreateConference(ctx, "A")
	b := fx.CreateConference(ctx, "B")
	fx.CreateTalk(ctx, "a1", &a.ID)
	fx.CreateTalk(ctx, "b1", &b.ID)
	fx.CreateTalk(ctx, "b2", &b.ID)

	rec := serve(h, testutil.NewRequest("GET", fmt.Sprintf("/?conference_id=%d", b.ID)))
	rec.AssertStatus(t, http.StatusOK)
	var got []map[string]any
	rec.DecodeJSON(t, &got)
	if len(got) != 2 {
		t.Errorf("len = %d", len(got))
	}
	serve(h, testutil.NewRequest("GET", "/?conference_id=x")).AssertStatus(t, http.StatusBadRequest)
}

func TestUpdateDelete(t *testing.T) {
	h, db := newTestRouter(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	tk := fx.CreateTalk(ctx, "Draft", nil)
	rec := serve(h, testutil.NewJSONRequest("PATCH", fmt.Sprintf("/%d", tk.ID), `{"title":"Final","talk_link":"https://example.org/t.pdf"}`))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"title":"Final"`)

	serve(h, testutil.NewRequest("DELETE", fmt.Sprintf("/%d", tk.ID))).AssertStatus(t, http.StatusNoContent)
	serve(h, testutil.NewRequest("DELETE", fmt.Sprintf("/%d", tk.ID))).AssertStatus(t, http.StatusNotFound)
}
