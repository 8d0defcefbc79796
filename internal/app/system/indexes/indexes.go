// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll is called at startup. Each ensure* function is idempotent.
We aggregate errors so any problem is visible and startup can fail fast.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	sets := []struct {
		name string
		fn   func(context.Context, *mongo.Database) error
	}{
		{"institutions", ensureInstitutions},
		{"members", ensureMembers},
		{"member_institution_history", ensureHistory},
		{"roles", ensureRoles},
		{"groups", ensureGroups},
		{"group_members", ensureGroupMembers},
		{"board_members", ensureBoardMembers},
		{"conferences", ensureConferences},
		{"talks", ensureTalks},
		{"talk_assignments", ensureTalkAssignments},
		{"audit_events", ensureAuditEvents},
	}

	var problems []string
	for _, s := range sets {
		if err := s.fn(ctx, db); err != nil {
			problems = append(problems, s.name+": "+err.Error())
		}
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Core helper: reconcile a set of desired indexes for one collection         */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name    string `bson:"name"`
	Key     bson.D `bson:"key"`
	Unique  *bool  `bson:"unique,omitempty"`
	Partial bson.D `bson:"partialFilterExpression,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func partialSig(p any) string {
	if p == nil {
		return ""
	}
	if d, ok := p.(bson.D); ok && len(d) == 0 {
		return ""
	}
	return fmt.Sprintf("%v", p)
}

func boolVal(b *bool) bool { return b != nil && *b }

// Best-effort duplicate-detector (works cross-vendors)
func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 11000 {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "E11000") || strings.Contains(strings.ToLower(s), "duplicate key")
}

func listIndexes(ctx context.Context, coll *mongo.Collection) (map[string]existingIndex, error) {
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := map[string]existingIndex{}
	for cur.Next(ctx) {
		var idx existingIndex
		if err := cur.Decode(&idx); err != nil {
			zap.L().Warn("failed to decode existing index",
				zap.String("collection", coll.Name()),
				zap.Error(err))
			continue
		}
		out[keySig(idx.Key)] = idx
	}
	return out, cur.Err()
}

// ensureIndexSet makes the collection carry every model: an index with the
// same keys but a different name, uniqueness or partial filter is dropped and
// recreated; a matching one is reused.
func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	existing, err := listIndexes(ctx, coll)
	if err != nil {
		// A collection that does not exist yet has no indexes to reconcile.
		existing = map[string]existingIndex{}
	}

	var errs []string
	for _, m := range models {
		var name string
		var unique *bool
		var partial any
		if m.Options != nil {
			if m.Options.Name != nil {
				name = *m.Options.Name
			}
			unique = m.Options.Unique
			partial = m.Options.PartialFilterExpression
		}
		sig := keySig(m.Keys.(bson.D))
		start := time.Now()

		if ex, ok := existing[sig]; ok {
			same := boolVal(unique) == boolVal(ex.Unique) &&
				partialSig(partial) == partialSig(ex.Partial) &&
				(name == "" || name == ex.Name)
			if same {
				zap.L().Debug("reusing existing index",
					zap.String("collection", coll.Name()),
					zap.String("name", ex.Name),
					zap.String("keys", sig))
				continue
			}

			zap.L().Info("replacing index",
				zap.String("collection", coll.Name()),
				zap.String("from", ex.Name),
				zap.String("to", name),
				zap.String("keys", sig))
			if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
				errs = append(errs, fmt.Sprintf("%s(%s): drop failed: %v", coll.Name(), name, err))
				continue
			}
		}

		if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
			if isDuplicateKeyErr(err) && boolVal(unique) {
				errs = append(errs, fmt.Sprintf("%s(%s): cannot create unique index (duplicates present)", coll.Name(), name))
			} else {
				errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), name, err))
			}
			zap.L().Warn("index ensure failed",
				zap.String("collection", coll.Name()),
				zap.String("name", name),
				zap.String("keys", sig),
				zap.Error(err))
			continue
		}
		zap.L().Info("index ensured",
			zap.String("collection", coll.Name()),
			zap.String("name", name),
			zap.String("keys", sig),
			zap.Bool("unique", boolVal(unique)),
			zap.String("took", time.Since(start).String()))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Collection-specific index sets                                              */
/* -------------------------------------------------------------------------- */

func ensureInstitutions(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("institutions"), []mongo.IndexModel{
		// Login resolves an institution by IdP entity id, then by folded name.
		{
			Keys:    bson.D{{Key: "entityid", Value: 1}},
			Options: options.Index().SetName("idx_institutions_entityid"),
		},
		{
			Keys:    bson.D{{Key: "full_name_ci", Value: 1}},
			Options: options.Index().SetName("idx_institutions_fullnameci"),
		},
		{
			Keys:    bson.D{{Key: "country", Value: 1}, {Key: "is_active", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("idx_institutions_country_active__id"),
		},
	})
}

func ensureMembers(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("members"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email_ci", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_members_emailci"),
		},
		// Identity subject id, unique among members that have one.
		{
			Keys: bson.D{{Key: "experimental_data.sub", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_members_sub").
				SetPartialFilterExpression(bson.D{{Key: "experimental_data.sub", Value: bson.D{{Key: "$type", Value: "string"}}}}),
		},
		{
			Keys:    bson.D{{Key: "institution_id", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("idx_members_institution__id"),
		},
		{
			Keys:    bson.D{{Key: "is_active", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("idx_members_active__id"),
		},
	})
}

func ensureHistory(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("member_institution_history"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "member_id", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("idx_mih_member__id"),
		},
		{
			Keys:    bson.D{{Key: "institution_id", Value: 1}},
			Options: options.Index().SetName("idx_mih_institution"),
		},
	})
}

func ensureRoles(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("roles"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "name_ci", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_roles_nameci"),
		},
	})
}

func ensureGroups(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("groups"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "name_ci", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_groups_nameci"),
		},
		// Subgroup listing and the delete-time "has children" check.
		{
			Keys:    bson.D{{Key: "parent_group_id", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("idx_groups_parent__id"),
		},
	})
}

func ensureGroupMembers(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("group_members"), []mongo.IndexModel{
		// One active tenure per (group, member); ended tenures may repeat.
		{
			Keys: bson.D{{Key: "group_id", Value: 1}, {Key: "member_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_gm_group_member_active").
				SetPartialFilterExpression(bson.D{{Key: "active", Value: true}}),
		},
		{
			Keys:    bson.D{{Key: "group_id", Value: 1}, {Key: "role_id", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("idx_gm_group_role__id"),
		},
		{
			Keys:    bson.D{{Key: "member_id", Value: 1}},
			Options: options.Index().SetName("idx_gm_member"),
		},
		{
			Keys:    bson.D{{Key: "role_id", Value: 1}},
			Options: options.Index().SetName("idx_gm_role"),
		},
	})
}

func ensureBoardMembers(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("board_members"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "board_type", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("idx_bm_boardtype__id"),
		},
		{
			Keys:    bson.D{{Key: "member_id", Value: 1}},
			Options: options.Index().SetName("idx_bm_member"),
		},
		{
			Keys:    bson.D{{Key: "institution_id", Value: 1}},
			Options: options.Index().SetName("idx_bm_institution"),
		},
		{
			Keys:    bson.D{{Key: "role_id", Value: 1}},
			Options: options.Index().SetName("idx_bm_role"),
		},
	})
}

func ensureConferences(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("conferences"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "start_date", Value: 1}},
			Options: options.Index().SetName("idx_conferences_start"),
		},
	})
}

func ensureTalks(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("talks"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "conference_id", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("idx_talks_conference__id"),
		},
	})
}

func ensureTalkAssignments(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("talk_assignments"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "talk_id", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("idx_ta_talk__id"),
		},
		{
			Keys:    bson.D{{Key: "member_id", Value: 1}},
			Options: options.Index().SetName("idx_ta_member"),
		},
		{
			Keys:    bson.D{{Key: "assigned_by_id", Value: 1}},
			Options: options.Index().SetName("idx_ta_assignedby"),
		},
		{
			Keys:    bson.D{{Key: "role_id", Value: 1}},
			Options: options.Index().SetName("idx_ta_role"),
		},
	})
}

func ensureAuditEvents(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("audit_events"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_ts"),
		},
		{
			Keys:    bson.D{{Key: "member_id", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_member_ts"),
		},
		{
			Keys:    bson.D{{Key: "category", Value: 1}, {Key: "event_type", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_cat_type_ts"),
		},
		{
			Keys:    bson.D{{Key: "entity", Value: 1}, {Key: "entity_id", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_entity_ts"),
		},
	})
}
