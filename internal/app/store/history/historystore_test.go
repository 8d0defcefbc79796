package historystore_test

import (
	"errors"
	"testing"

	historystore "github.com/dalemusser/phonebook/internal/app/store/history"
	"github.com/dalemusser/phonebook/internal/app/system/apperr"
	"github.com/dalemusser/phonebook/internal/domain/models"
	"github.com/dalemusser/phonebook/internal/testutil"
)

func datePtr(s string) *models.Date {
	d := models.MustDate(s)
	return &d
}

func TestStore_AppendAndList(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := historystore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if end, err := store.LastEnd(ctx, 1); err != nil || end != nil {
		t.Fatalf("LastEnd on empty history = %v, %v", end, err)
	}

	if _, err := store.Append(ctx, 1, 10, models.MustDate("2020-01-01"), datePtr("2021-06-30")); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if _, err := store.Append(ctx, 1, 11, models.MustDate("2021-06-30"), datePtr("2023-02-01")); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if _, err := store.Append(ctx, 2, 10, models.MustDate("2022-01-01"), datePtr("2022-02-01")); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	rows, err := store.ListByMember(ctx, 1)
	if err != nil {
		t.Fatalf("ListByMember failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].InstitutionID != 10 || rows[1].InstitutionID != 11 {
		t.Errorf("unexpected order: %+v", rows)
	}

	end, err := store.LastEnd(ctx, 1)
	if err != nil {
		t.Fatalf("LastEnd failed: %v", err)
	}
	if end == nil || end.String() != "2023-02-01" {
		t.Errorf("LastEnd = %v, want 2023-02-01", end)
	}
}

func TestStore_Append_RejectsInvertedRange(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := historystore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := store.Append(ctx, 1, 10, models.MustDate("2024-01-01"), datePtr("2023-01-01"))
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestStore_DeleteByMember(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := historystore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	store.Append(ctx, 1, 10, models.MustDate("2020-01-01"), datePtr("2021-01-01"))
	store.Append(ctx, 1, 11, models.MustDate("2021-01-01"), datePtr("2022-01-01"))
	store.Append(ctx, 2, 10, models.MustDate("2020-01-01"), datePtr("2020-06-01"))

	n, err := store.DeleteByMember(ctx, 1)
	if err != nil {
		t.Fatalf("DeleteByMember failed: %v", err)
	}
	if n != 2 {
		t.Errorf("deleted %d rows, want 2", n)
	}
	if rows, _ := store.ListByInstitution(ctx, 10); len(rows) != 1 || rows[0].MemberID != 2 {
		t.Errorf("other members' rows should remain, got %+v", rows)
	}
}
