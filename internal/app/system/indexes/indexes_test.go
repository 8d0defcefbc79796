package indexes_test

import (
	"testing"

	"github.com/dalemusser/phonebook/internal/app/system/indexes"
	"github.com/dalemusser/phonebook/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func indexNames(t *testing.T, db *mongo.Database, coll string) map[string]bson.M {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()

	cur, err := db.Collection(coll).Indexes().List(ctx)
	if err != nil {
		t.Fatalf("List indexes on %s failed: %v", coll, err)
	}
	defer cur.Close(ctx)

	out := map[string]bson.M{}
	for cur.Next(ctx) {
		var idx bson.M
		if err := cur.Decode(&idx); err != nil {
			continue
		}
		if name, ok := idx["name"].(string); ok {
			out[name] = idx
		}
	}
	return out
}

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("First EnsureAll failed: %v", err)
	}
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("Second EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_CreatesUniqueIndexes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	expected := map[string][]string{
		"members":       {"uniq_members_emailci", "uniq_members_sub", "idx_members_institution__id"},
		"roles":         {"uniq_roles_nameci"},
		"groups":        {"uniq_groups_nameci", "idx_groups_parent__id"},
		"group_members": {"uniq_gm_group_member_active", "idx_gm_group_role__id"},
		"talks":         {"idx_talks_conference__id"},
	}
	for coll, names := range expected {
		got := indexNames(t, db, coll)
		for _, n := range names {
			if _, ok := got[n]; !ok {
				t.Errorf("%s: missing index %s", coll, n)
			}
		}
	}

	gm := indexNames(t, db, "group_members")["uniq_gm_group_member_active"]
	if gm["partialFilterExpression"] == nil {
		t.Error("uniq_gm_group_member_active should be partial")
	}
}

func TestEnsureAll_ReplacesMisnamedIndex(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := db.Collection("roles").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name_ci", Value: 1}},
		Options: options.Index().SetName("legacy_roles_name"),
	})
	if err != nil {
		t.Fatalf("seed index failed: %v", err)
	}

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	got := indexNames(t, db, "roles")
	if _, ok := got["legacy_roles_name"]; ok {
		t.Error("legacy index should have been dropped")
	}
	if idx, ok := got["uniq_roles_nameci"]; !ok || idx["unique"] != true {
		t.Errorf("expected unique uniq_roles_nameci, got %v", idx)
	}
}

func TestEnsureAll_FailsOnDuplicates(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := db.Collection("roles").InsertMany(ctx, []any{
		bson.M{"_id": 1, "name": "Chair", "name_ci": "chair"},
		bson.M{"_id": 2, "name": "chair", "name_ci": "chair"},
	})
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	if err := indexes.EnsureAll(ctx, db); err == nil {
		t.Fatal("expected EnsureAll to report duplicate role names")
	}
}
