// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/phonebook/internal/domain/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// EnsureAll creates collections (if missing) and tries to attach JSON-Schema
// validators. On servers that don't support collMod/validators (e.g. some
// DocumentDB versions), we log and skip gracefully.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	ensure := func(coll string, schema bson.M) {
		if _, err := ensureCollection(ctx, db, coll); err != nil {
			problems = append(problems, coll+": "+err.Error())
			return
		}
		if schema == nil {
			return
		}
		if err := setValidator(ctx, db, coll, schema); err != nil {
			if isNoSuchCommand(err) || isNotImplemented(err) {
				zap.L().Info("validator skipped (unsupported)", zap.String("collection", coll))
				return
			}
			problems = append(problems, coll+": "+err.Error())
		}
	}

	ensure("institutions", institutionsSchema())
	ensure("members", membersSchema())
	ensure("member_institution_history", historySchema())
	ensure("roles", rolesSchema())
	ensure("groups", groupsSchema())
	ensure("group_members", groupMembersSchema())
	ensure("board_members", boardMembersSchema())
	ensure("conferences", conferencesSchema())
	ensure("talks", talksSchema())
	ensure("talk_assignments", talkAssignmentsSchema())

	// No validators; created up front so transactions never have to create them.
	ensure("counters", nil)
	ensure("audit_events", nil)

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* ---------------------- collection helpers & logging ---------------------- */

// collectionExists returns true when <name> already exists.
// Uses ListCollectionNames to avoid "created collection" log when it didn't.
func collectionExists(ctx context.Context, db *mongo.Database, name string) (bool, error) {
	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return false, err
	}
	for _, n := range names {
		if n == name {
			return true, nil
		}
	}
	return false, nil
}

// ensureCollection idempotently makes sure <name> exists.
// Returns created==true only if we actually created it.
func ensureCollection(ctx context.Context, db *mongo.Database, name string) (created bool, err error) {
	exists, listErr := collectionExists(ctx, db, name)
	if listErr == nil && exists {
		zap.L().Info("collection exists", zap.String("collection", name))
		return false, nil
	}
	// If listing failed, fall back to create-and-handle-race.
	if err := db.CreateCollection(ctx, name); err != nil {
		// NamespaceExists / already exists is fine (race or prior run).
		if isNamespaceExistsErr(err) {
			zap.L().Info("collection exists", zap.String("collection", name))
			return false, nil
		}
		zap.L().Warn("createCollection failed", zap.String("collection", name), zap.Error(err))
		return false, err
	}
	zap.L().Info("created collection", zap.String("collection", name))
	return true, nil
}

/* ------------------------------ validators ------------------------------- */

func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	var out bson.M
	if err := db.RunCommand(ctx, cmd).Decode(&out); err != nil {
		return err
	}
	zap.L().Info("validator ensured", zap.String("collection", name))
	return nil
}

/* ------------------------- error helpers ------------------------- */

func isNamespaceExistsErr(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 48 || strings.Contains(strings.ToLower(ce.Message), "already exists")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "already exists") || strings.Contains(s, "namespace exists")
}

func isNoSuchCommand(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 59 || strings.Contains(strings.ToLower(ce.Message), "no such command")) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "no such command")
}

func isNotImplemented(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 115 ||
		strings.Contains(strings.ToLower(ce.Message), "not implemented") ||
		strings.Contains(strings.ToLower(ce.Message), "not supported")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "not implemented") || strings.Contains(s, "not supported")
}

/* ------------------------- JSON-Schema docs ---------------------- */

var (
	idType      = bson.M{"bsonType": bson.A{"int", "long"}}
	optIDType   = bson.M{"bsonType": bson.A{"int", "long", "null"}}
	nonBlank    = bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"}
	optString   = bson.M{"bsonType": bson.A{"string", "null"}}
	dateType    = bson.M{"bsonType": "string", "pattern": "^[0-9]{4}-[0-9]{2}-[0-9]{2}$"}
	optDateType = bson.M{"bsonType": bson.A{"string", "null"}, "pattern": "^[0-9]{4}-[0-9]{2}-[0-9]{2}$"}
	optNumber   = bson.M{"bsonType": bson.A{"double", "int", "long", "decimal", "null"}}
)

func schema(required bson.A, props bson.M) bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType":   "object",
			"required":   required,
			"properties": props,
		},
	}
}

func institutionsSchema() bson.M {
	return schema(bson.A{"full_name", "full_name_ci", "short_name", "country", "is_active", "date_added"}, bson.M{
		"full_name":    bson.M{"bsonType": "string", "minLength": 1, "maxLength": models.FullNameMaxLen, "pattern": ".*\\S.*"},
		"full_name_ci": nonBlank,
		"short_name":   bson.M{"bsonType": "string"},
		"country":      bson.M{"bsonType": "string"},
		"region":       optString,
		"city":         optString,
		"address":      optString,
		"latitude":     optNumber,
		"longitude":    optNumber,
		"entityid":     optString,
		"rorid":        optString,
		"is_active":    bson.M{"bsonType": "bool"},
		"date_added":   dateType,
		"date_removed": optDateType,
	})
}

func membersSchema() bson.M {
	return schema(bson.A{"first_name", "last_name", "email", "email_ci", "institution_id", "is_active", "date_joined"}, bson.M{
		"first_name":        bson.M{"bsonType": "string"},
		"last_name":         bson.M{"bsonType": "string"},
		"email":             nonBlank,
		"email_ci":          nonBlank,
		"orcid":             optString,
		"institution_id":    idType,
		"is_active":         bson.M{"bsonType": "bool"},
		"date_joined":       dateType,
		"date_left":         optDateType,
		"experimental_data": bson.M{"bsonType": bson.A{"object", "null"}},
	})
}

func historySchema() bson.M {
	return schema(bson.A{"member_id", "institution_id", "start_date"}, bson.M{
		"member_id":      idType,
		"institution_id": idType,
		"start_date":     dateType,
		"end_date":       optDateType,
	})
}

func rolesSchema() bson.M {
	return schema(bson.A{"name", "name_ci"}, bson.M{
		"name":        bson.M{"bsonType": "string", "minLength": 1, "maxLength": models.RoleNameMaxLen, "pattern": ".*\\S.*"},
		"name_ci":     nonBlank,
		"description": optString,
	})
}

func groupsSchema() bson.M {
	return schema(bson.A{"name", "name_ci", "is_active"}, bson.M{
		"name":            nonBlank,
		"name_ci":         nonBlank,
		"description":     optString,
		"is_active":       bson.M{"bsonType": "bool"},
		"parent_group_id": optIDType,
	})
}

func groupMembersSchema() bson.M {
	return schema(bson.A{"group_id", "member_id", "role_id", "start_date", "active"}, bson.M{
		"group_id":   idType,
		"member_id":  idType,
		"role_id":    idType,
		"start_date": dateType,
		"end_date":   optDateType,
		"active":     bson.M{"bsonType": "bool"},
	})
}

func boardMembersSchema() bson.M {
	types := bson.A{}
	for _, t := range models.BoardTypes {
		types = append(types, string(t))
	}
	return schema(bson.A{"member_id", "institution_id", "board_type", "role_id", "start_date", "is_chair"}, bson.M{
		"member_id":      idType,
		"institution_id": idType,
		"board_type":     bson.M{"enum": types},
		"role_id":        idType,
		"start_date":     dateType,
		"end_date":       optDateType,
		"is_chair":       bson.M{"bsonType": "bool"},
	})
}

func conferencesSchema() bson.M {
	return schema(bson.A{"name", "start_date"}, bson.M{
		"name":       nonBlank,
		"location":   optString,
		"start_date": dateType,
		"end_date":   optDateType,
		"url":        optString,
	})
}

func talksSchema() bson.M {
	return schema(bson.A{"title", "start_date"}, bson.M{
		"title":         nonBlank,
		"docdb_id":      optString,
		"talk_link":     optString,
		"start_date":    dateType,
		"end_date":      optDateType,
		"conference_id": optIDType,
	})
}

func talkAssignmentsSchema() bson.M {
	return schema(bson.A{"talk_id", "member_id", "role_id", "assignment_date"}, bson.M{
		"talk_id":         idType,
		"member_id":       idType,
		"role_id":         idType,
		"assigned_by_id":  optIDType,
		"assignment_date": dateType,
	})
}
