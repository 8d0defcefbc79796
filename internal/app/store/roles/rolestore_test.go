package rolestore_test

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	rolestore "github.com/dalemusser/phonebook/internal/app/store/roles"
	"github.com/dalemusser/phonebook/internal/app/system/apperr"
	"github.com/dalemusser/phonebook/internal/app/system/paging"
	"github.com/dalemusser/phonebook/internal/domain/models"
	"github.com/dalemusser/phonebook/internal/testutil"
	"go.uber.org/zap"
)

func TestStore_CreateGetList(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := rolestore.New(db, zap.NewNop())
	ctx, cancel := testutil.TestContext()
	defer cancel()

	desc := `Leads a <b>working group</b><script>alert(1)</script>`
	chair, err := store.Create(ctx, rolestore.Input{Name: " chair ", Description: &desc})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := store.Create(ctx, rolestore.Input{Name: "convener"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := store.Get(ctx, chair.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Name != "chair" {
		t.Errorf("name = %q, want trimmed", got.Name)
	}
	if got.Description == nil || strings.Contains(*got.Description, "script") {
		t.Errorf("description not sanitized: %v", got.Description)
	}

	all, err := store.List(ctx, paging.Default())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 2 || all[0].Name != "chair" || all[1].Name != "convener" {
		t.Errorf("unexpected list: %+v", all)
	}
	if n, _ := store.Count(ctx); n != 2 {
		t.Errorf("Count = %d, want 2", n)
	}
}

func TestStore_Create_Validation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := rolestore.New(db, zap.NewNop())
	ctx, cancel := testutil.TestContext()
	defer cancel()

	for _, name := range []string{"", "   ", strings.Repeat("x", models.RoleNameMaxLen+1)} {
		if _, err := store.Create(ctx, rolestore.Input{Name: name}); !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("Create(%q): expected validation error, got %v", name, err)
		}
	}
}

func TestStore_Create_DuplicateNameCaseInsensitive(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.EnsureSchema(t, db)
	store := rolestore.New(db, zap.NewNop())
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := store.Create(ctx, rolestore.Input{Name: "Speaker"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	_, err := store.Create(ctx, rolestore.Input{Name: "speaker"})
	if !errors.Is(err, rolestore.ErrDuplicateName) {
		t.Errorf("expected ErrDuplicateName, got %v", err)
	}
}

func TestStore_Create_ConcurrentSameName(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.EnsureSchema(t, db)
	store := rolestore.New(db, zap.NewNop())
	ctx, cancel := testutil.TestContext()
	defer cancel()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = store.Create(ctx, rolestore.Input{Name: "editor"})
		}(i)
	}
	wg.Wait()

	ok, conflicts := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, apperr.ErrConflict):
			conflicts++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 1 || conflicts != 1 {
		t.Errorf("got %d successes and %d conflicts, want 1 and 1", ok, conflicts)
	}
}

func TestStore_Update(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.EnsureSchema(t, db)
	store := rolestore.New(db, zap.NewNop())
	ctx, cancel := testutil.TestContext()
	defer cancel()

	desc := "old"
	r, _ := store.Create(ctx, rolestore.Input{Name: "chair", Description: &desc})
	if _, err := store.Create(ctx, rolestore.Input{Name: "member"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	var empty rolestore.Patch
	got, err := store.Update(ctx, r.ID, empty)
	if err != nil || got.Name != "chair" || got.Description == nil || *got.Description != "old" {
		t.Errorf("empty patch: %+v, %v", got, err)
	}

	var p rolestore.Patch
	_ = json.Unmarshal([]byte(`{"description":null}`), &p)
	got, err = store.Update(ctx, r.ID, p)
	if err != nil || got.Description != nil || got.Name != "chair" {
		t.Errorf("clear description: %+v, %v", got, err)
	}

	var rename rolestore.Patch
	_ = json.Unmarshal([]byte(`{"name":"MEMBER"}`), &rename)
	if _, err := store.Update(ctx, r.ID, rename); !errors.Is(err, rolestore.ErrDuplicateName) {
		t.Errorf("rename onto existing: expected ErrDuplicateName, got %v", err)
	}

	var same rolestore.Patch
	_ = json.Unmarshal([]byte(`{"name":"Chair"}`), &same)
	if got, err := store.Update(ctx, r.ID, same); err != nil || got.Name != "Chair" {
		t.Errorf("renaming to a different case of its own name should work: %+v, %v", got, err)
	}
}

func TestStore_Delete_BlockedWhileInUse(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := rolestore.New(db, zap.NewNop())
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	inst := fx.CreateInstitution(ctx, "Lab A")
	m := fx.CreateMember(ctx, "x@y.com", inst.ID)
	used := fx.CreateRole(ctx, "chair")
	unused := fx.CreateRole(ctx, "observer")
	fx.CreateBoardMember(ctx, m.ID, inst.ID, used.ID, models.BoardExecutive)

	if _, err := store.Delete(ctx, used.ID); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("expected conflict, got %v", err)
	}
	if ok, err := store.Delete(ctx, unused.ID); err != nil || !ok {
		t.Errorf("Delete(unused) = %v, %v", ok, err)
	}
	if ok, err := store.Delete(ctx, 12345); err != nil || ok {
		t.Errorf("Delete(missing) = %v, %v; want false, nil", ok, err)
	}
}
