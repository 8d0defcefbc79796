package institutions_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/phonebook/internal/app/features/institutions"
	institutionstore "github.com/dalemusser/phonebook/internal/app/store/institutions"
	"github.com/dalemusser/phonebook/internal/app/system/ror"
	"github.com/dalemusser/phonebook/internal/domain/models"
	"github.com/dalemusser/phonebook/internal/testutil"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const cernRecord = `{
  "id": "https://ror.org/01ggx4157",
  "names": [
    {"value": "CERN", "types": ["acronym"]},
    {"value": "European Organization for Nuclear Research", "types": ["ror_display", "label"]}
  ],
  "locations": [
    {"geonames_details": {"name": "Geneva", "country_name": "Switzerland",
      "country_subdivision_name": "Geneva", "lat": 46.20222, "lng": 6.14569}}
  ]
}`

// registry answers every lookup with status and body and counts calls.
func registry(t *testing.T, status int, body string) (*ror.Client, *int) {
	t.Helper()
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return ror.New(ror.Config{BaseURL: srv.URL}, nil, zap.NewNop()), &calls
}

func newTestRouter(t *testing.T, reg *ror.Client) (http.Handler, *mongo.Database) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	testutil.EnsureSchema(t, db)
	return institutions.Routes(institutions.NewHandler(db, reg, nil, zap.NewNop())), db
}

func serve(h http.Handler, r *http.Request) *testutil.ResponseRecorder {
	rec := testutil.NewRecorder()
	h.ServeHTTP(rec, testutil.WithUser(r, testutil.RegularUser()))
	return rec
}

func TestCreateAndGet(t *testing.T) {
	h, _ := newTestRouter(t, nil)

	rec := serve(h, testutil.NewJSONRequest("POST", "/",
		`{"full_name":"Lab A","short_name":"A","country":"US","date_added":"2024-01-01"}`))
	rec.AssertStatus(t, http.StatusCreated)
	var created struct {
		ID       int64  `json:"id"`
		FullName string `json:"full_name"`
		IsActive bool   `json:"is_active"`
		Members  []any  `json:"members"`
	}
	rec.DecodeJSON(t, &created)
	if created.FullName != "Lab A" || !created.IsActive {
		t.Errorf("unexpected body: %+v", created)
	}
	if created.Members == nil || len(created.Members) != 0 {
		t.Errorf("members = %v, want empty list", created.Members)
	}

	serve(h, testutil.NewRequest("GET", fmt.Sprintf("/%d", created.ID))).AssertStatus(t, http.StatusOK)
	serve(h, testutil.NewRequest("GET", "/424242")).AssertStatus(t, http.StatusNotFound)
}

func TestCreate_Validation(t *testing.T) {
	h, _ := newTestRouter(t, nil)

	for _, body := range []string{
		`{"short_name":"A","country":"US"}`,
		`{"full_name":"A name that is far too long to fit into the fifty character column","short_name":"A","country":"US"}`,
		`{"full_name":"Lab","short_name":"A","country":"US","date_added":"2024-05-01","date_removed":"2024-01-01"}`,
	} {
		serve(h, testutil.NewJSONRequest("POST", "/", body)).AssertStatus(t, http.StatusBadRequest)
	}
}

func TestUpdate_RegistryWins(t *testing.T) {
	reg, calls := registry(t, http.StatusOK, cernRecord)
	h, db := newTestRouter(t, reg)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	inst := fx.CreateInstitution(ctx, "Old Name")

	body := `{"rorid":"https://ror.org/01ggx4157","full_name":"Caller Name","address":"Caller Street","is_active":false}`
	rec := serve(h, testutil.NewJSONRequest("PATCH", fmt.Sprintf("/%d", inst.ID), body))
	rec.AssertStatus(t, http.StatusOK)
	if *calls != 1 {
		t.Fatalf("registry called %d times", *calls)
	}

	var got models.Institution
	rec.DecodeJSON(t, &got)
	if got.FullName != "European Organization for Nuclear Research" {
		t.Errorf("full_name = %q, registry should win", got.FullName)
	}
	if got.ShortName != "CERN" || got.Country != "Switzerland" {
		t.Errorf("short_name/country = %q/%q", got.ShortName, got.Country)
	}
	if got.RORID == nil || *got.RORID != "01ggx4157" {
		t.Errorf("rorid = %v", got.RORID)
	}
	if got.Address == nil || *got.Address != "Geneva, Geneva, Switzerland" {
		t.Errorf("address = %v", got.Address)
	}
	if got.IsActive {
		t.Error("is_active is not returned by the registry and should keep the caller's value")
	}
}

func TestUpdate_RegistryFailureAborts(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   int
	}{
		{"unavailable", http.StatusServiceUnavailable, `{}`, http.StatusServiceUnavailable},
		{"unknown id", http.StatusNotFound, `{}`, http.StatusUnprocessableEntity},
		{"malformed", http.StatusOK, `{"names": 7}`, http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			reg, _ := registry(t, tc.status, tc.body)
			h, db := newTestRouter(t, reg)
			fx := testutil.NewFixtures(t, db)
			ctx, cancel := testutil.TestContext()
			defer cancel()
			inst := fx.CreateInstitution(ctx, "Lab A")

			body := `{"rorid":"01ggx4157","short_name":"Changed"}`
			serve(h, testutil.NewJSONRequest("PUT", fmt.Sprintf("/%d", inst.ID), body)).AssertStatus(t, tc.want)

			after, err := institutionstore.New(db, zap.NewNop()).Get(ctx, inst.ID)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if after.ShortName != "Lab A" || after.RORID != nil {
				t.Errorf("institution changed despite failed lookup: %+v", after)
			}
		})
	}
}

func TestUpdate_LongRegistryNameIsTruncated(t *testing.T) {
	const longName = "Istituto Nazionale di Fisica Nucleare, Sezione di Genova"
	record := `{"id": "https://ror.org/05w4ze143",
  "names": [{"value": "INFN Genova", "types": ["acronym"]}, {"value": "` + longName + `", "types": ["ror_display"]}],
  "locations": [{"geonames_details": {"name": "Genoa", "country_name": "Italy", "lat": 44.4, "lng": 8.9}}]}`
	reg, _ := registry(t, http.StatusOK, record)
	h, db := newTestRouter(t, reg)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	inst := fx.CreateInstitution(ctx, "INFN")

	rec := serve(h, testutil.NewJSONRequest("PATCH", fmt.Sprintf("/%d", inst.ID), `{"rorid":"05w4ze143"}`))
	rec.AssertStatus(t, http.StatusOK)

	var got models.Institution
	rec.DecodeJSON(t, &got)
	want := "Istituto Nazionale di Fisica Nucleare, Sezione di"
	if got.FullName != want {
		t.Errorf("full_name = %q, want %q", got.FullName, want)
	}
	if n := len([]rune(got.FullName)); n > models.FullNameMaxLen {
		t.Errorf("full_name has %d characters, limit is %d", n, models.FullNameMaxLen)
	}
}

func TestUpdate_MissingInstitutionSkipsRegistry(t *testing.T) {
	reg, calls := registry(t, http.StatusOK, cernRecord)
	h, _ := newTestRouter(t, reg)

	serve(h, testutil.NewJSONRequest("PUT", "/424242", `{"rorid":"01ggx4157"}`)).
		AssertStatus(t, http.StatusNotFound)
	if *calls != 0 {
		t.Errorf("registry called %d times for a missing institution", *calls)
	}
}

func TestUpdate_WithoutRORIDSkipsRegistry(t *testing.T) {
	reg, calls := registry(t, http.StatusOK, cernRecord)
	h, db := newTestRouter(t, reg)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	inst := fx.CreateInstitution(ctx, "Lab A")

	serve(h, testutil.NewJSONRequest("PATCH", fmt.Sprintf("/%d", inst.ID), `{"city":"Geneva"}`)).
		AssertStatus(t, http.StatusOK)
	serve(h, testutil.NewJSONRequest("PATCH", fmt.Sprintf("/%d", inst.ID), `{"rorid":null}`)).
		AssertStatus(t, http.StatusOK)
	if *calls != 0 {
		t.Errorf("registry called %d times", *calls)
	}
}

func TestMembersAndDelete(t *testing.T) {
	h, db := newTestRouter(t, nil)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	inst := fx.CreateInstitution(ctx, "Lab A")
	fx.CreateMember(ctx, "a@example.org", inst.ID)
	fx.CreateMember(ctx, "b@example.org", inst.ID)

	rec := serve(h, testutil.NewRequest("GET", fmt.Sprintf("/%d/members", inst.ID)))
	rec.AssertStatus(t, http.StatusOK)
	var ms []map[string]any
	rec.DecodeJSON(t, &ms)
	if len(ms) != 2 {
		t.Fatalf("expected 2 members, got %d", len(ms))
	}
	if _, nested := ms[0]["institution"]; nested {
		t.Error("member list entries must be lite")
	}

	rec = serve(h, testutil.NewRequest("DELETE", fmt.Sprintf("/%d", inst.ID)))
	rec.AssertStatus(t, http.StatusConflict)
	if code := rec.ErrorCode(t); code != "still_referenced" {
		t.Errorf("code = %q", code)
	}

	empty := fx.CreateInstitution(ctx, "Empty")
	serve(h, testutil.NewRequest("DELETE", fmt.Sprintf("/%d", empty.ID))).AssertStatus(t, http.StatusNoContent)
	serve(h, testutil.NewRequest("DELETE", fmt.Sprintf("/%d", empty.ID))).AssertStatus(t, http.StatusNotFound)
}

func TestList_FilterByCountry(t *testing.T) {
	h, db := newTestRouter(t, nil)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx.CreateInstitution(ctx, "US Lab")

	rec := serve(h, testutil.NewRequest("GET", "/?country=US&limit=5"))
	rec.AssertStatus(t, http.StatusOK)
	var got []map[string]any
	rec.DecodeJSON(t, &got)
	if len(got) != 1 {
		t.Errorf("expected 1 institution, got %d", len(got))
	}

	rec = serve(h, testutil.NewRequest("GET", "/?country=CH"))
	rec.DecodeJSON(t, &got)
	if len(got) != 0 {
		t.Errorf("expected none, got %d", len(got))
	}
}
