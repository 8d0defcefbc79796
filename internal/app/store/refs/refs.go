// internal/app/store/refs/refs.go

// Package refs checks foreign keys between collections. Stores call it inside
// their transaction. Require writes a check stamp to the referenced document,
// so a concurrent transaction that deletes or touches the same document hits
// a write conflict and is retried instead of both committing.
package refs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/phonebook/internal/app/system/apperr"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names shared by the stores.
const (
	Institutions    = "institutions"
	Members         = "members"
	History         = "member_institution_history"
	Roles           = "roles"
	Groups          = "groups"
	GroupMembers    = "group_members"
	BoardMembers    = "board_members"
	Conferences     = "conferences"
	Talks           = "talks"
	TalkAssignments = "talk_assignments"
)

var labels = map[string]string{
	Institutions:    "institution",
	Members:         "member",
	Roles:           "role",
	Groups:          "group",
	Conferences:     "conference",
	Talks:           "talk",
	GroupMembers:    "group member",
	BoardMembers:    "board member",
	TalkAssignments: "talk assignment",
	History:         "history entry",
}

// Label is the singular human name of a collection's entity.
func Label(coll string) string {
	if l, ok := labels[coll]; ok {
		return l
	}
	return coll
}

// Exists reports whether coll has a document with _id id.
func Exists(ctx context.Context, db *mongo.Database, coll string, id int64) (bool, error) {
	n, err := db.Collection(coll).CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// CheckedField is the stamp Touch writes on a referenced document.
const CheckedField = "ref_checked_at"

// Touch stamps CheckedField on the document and reports whether it exists.
// Inside a transaction the write claims the document until commit.
func Touch(ctx context.Context, db *mongo.Database, coll string, id int64) (bool, error) {
	res, err := db.Collection(coll).UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{CheckedField: time.Now().UTC()}})
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

// Require fails with NotFound naming field when id is absent from coll.
// It claims the referenced document through Touch.
func Require(ctx context.Context, db *mongo.Database, coll, field string, id int64) error {
	ok, err := Touch(ctx, db, coll, id)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("%s %d referenced by %s does not exist", Label(coll), id, field)
	}
	return nil
}

// RequireOptional is Require for nullable foreign keys.
func RequireOptional(ctx context.Context, db *mongo.Database, coll, field string, id *int64) error {
	if id == nil {
		return nil
	}
	return Require(ctx, db, coll, field, *id)
}

// Dependent is one collection/field pair that may point at a row.
type Dependent struct {
	Coll  string
	Field string
}

// Unreferenced fails with Conflict when any dependent still points at id.
// The message lists every blocking collection.
func Unreferenced(ctx context.Context, db *mongo.Database, owner string, id int64, deps ...Dependent) error {
	var blocking []string
	for _, d := range deps {
		n, err := db.Collection(d.Coll).CountDocuments(ctx, bson.M{d.Field: id}, options.Count().SetLimit(1))
		if err != nil {
			return err
		}
		if n > 0 {
			blocking = append(blocking, fmt.Sprintf("%s.%s", d.Coll, d.Field))
		}
	}
	if len(blocking) > 0 {
		return apperr.WithCode(apperr.Conflict("%s %d is still referenced by %s", Label(owner), id, strings.Join(blocking, ", ")), "still_referenced")
	}
	return nil
}
