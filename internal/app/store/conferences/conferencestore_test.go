package conferencestore_test

import (
	"encoding/json"
	"errors"
	"testing"

	conferencestore "github.com/dalemusser/phonebook/internal/app/store/conferences"
	"github.com/dalemusser/phonebook/internal/app/system/apperr"
	"github.com/dalemusser/phonebook/internal/app/system/paging"
	"github.com/dalemusser/phonebook/internal/domain/models"
	"github.com/dalemusser/phonebook/internal/testutil"
	"go.uber.org/zap"
)

func TestStore_CreateAndGet(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := conferencestore.New(db, zap.NewNop())
	ctx, cancel := testutil.TestContext()
	defer cancel()

	loc := "Milan"
	link := "https://neutrino2024.example.org"
	end := models.MustDate("2024-06-22")
	c, err := store.Create(ctx, conferencestore.Input{
		Name:      "Neutrino 2024",
		Location:  &loc,
		StartDate: models.MustDate("2024-06-16"),
		EndDate:   &end,
		URL:       &link,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	got, err := store.Get(ctx, c.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Name != "Neutrino 2024" || got.Location == nil || *got.Location != "Milan" {
		t.Errorf("unexpected conference: %+v", got)
	}
	if got.EndDate == nil || got.EndDate.String() != "2024-06-22" {
		t.Errorf("end_date = %v", got.EndDate)
	}

	list, err := store.List(ctx, paging.Default())
	if err != nil || len(list) != 1 {
		t.Errorf("List = %d, %v", len(list), err)
	}
}

func TestStore_Create_Validation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := conferencestore.New(db, zap.NewNop())
	ctx, cancel := testutil.TestContext()
	defer cancel()

	badURL := "javascript:alert(1)"
	early := models.MustDate("2024-01-01")
	tests := []struct {
		name string
		in   conferencestore.Input
	}{
		{"no name", conferencestore.Input{StartDate: models.MustDate("2024-06-16")}},
		{"no start", conferencestore.Input{Name: "X"}},
		{"bad url", conferencestore.Input{Name: "X", StartDate: models.MustDate("2024-06-16"), URL: &badURL}},
		{"end before start", conferencestore.Input{Name: "X", StartDate: models.MustDate("2024-06-16"), EndDate: &early}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := store.Create(ctx, tt.in); !errors.Is(err, apperr.ErrValidation) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestStore_Update(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := conferencestore.New(db, zap.NewNop())
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	c := fx.CreateConference(ctx, "CHEP")

	got, err := store.Update(ctx, c.ID, conferencestore.Patch{})
	if err != nil || got.Name != "CHEP" {
		t.Errorf("empty patch: %+v, %v", got, err)
	}

	var p conferencestore.Patch
	_ = json.Unmarshal([]byte(`{"location":"Krakow","end_date":"2024-06-14"}`), &p)
	got, err = store.Update(ctx, c.ID, p)
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if got.Location == nil || *got.Location != "Krakow" || got.EndDate == nil {
		t.Errorf("unexpected update: %+v", got)
	}
	if got.Name != "CHEP" || !got.StartDate.Equal(c.StartDate) {
		t.Errorf("untouched fields changed: %+v", got)
	}
}

func TestStore_Delete_BlockedByTalks(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := conferencestore.New(db, zap.NewNop())
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	c := fx.CreateConference(ctx, "CHEP")
	fx.CreateTalk(ctx, "Status of the DAQ", &c.ID)

	if _, err := store.Delete(ctx, c.ID); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("expected conflict, got %v", err)
	}
	if ok, err := store.Delete(ctx, 404); err != nil || ok {
		t.Errorf("Delete(missing) = %v, %v; want false, nil", ok, err)
	}
}
