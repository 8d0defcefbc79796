// internal/app/store/crud/crud.go

// Package crud holds the collection plumbing every entity store repeats:
// load by integer id, list in _id order, $set a partial update and delete.
package crud

import (
	"context"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dalemusser/phonebook/internal/app/system/apperr"
	"github.com/dalemusser/phonebook/internal/app/system/paging"
	"github.com/dalemusser/phonebook/internal/app/system/patch"
	"github.com/dalemusser/phonebook/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Get loads the document with _id id. A missing document is an apperr
// NotFound naming label.
func Get[T any](ctx context.Context, c *mongo.Collection, label string, id int64) (T, error) {
	var out T
	err := c.FindOne(ctx, bson.M{"_id": id}).Decode(&out)
	if err == mongo.ErrNoDocuments {
		return out, apperr.NotFound("%s %d not found", label, id)
	}
	return out, err
}

// List returns one page of documents matching filter, ordered by _id.
// The result is never nil.
func List[T any](ctx context.Context, c *mongo.Collection, filter bson.M, page paging.Page) ([]T, error) {
	if filter == nil {
		filter = bson.M{}
	}
	cur, err := c.Find(ctx, filter, page.FindOptions())
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []T{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// All returns every document matching filter, ordered by _id.
func All[T any](ctx context.Context, c *mongo.Collection, filter bson.M) ([]T, error) {
	cur, err := c.Find(ctx, filter, paging.ByID())
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []T{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ByIDs loads the documents whose _id is in ids, keyed by id.
func ByIDs[T any](ctx context.Context, c *mongo.Collection, ids []int64, key func(T) int64) (map[int64]T, error) {
	out := make(map[int64]T, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	docs, err := All[T](ctx, c, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	for _, d := range docs {
		out[key(d)] = d
	}
	return out, nil
}

// Count counts documents matching filter.
func Count(ctx context.Context, c *mongo.Collection, filter bson.M) (int64, error) {
	if filter == nil {
		filter = bson.M{}
	}
	return c.CountDocuments(ctx, filter)
}

// Set writes the recorded fields plus updated_at.
func Set(ctx context.Context, c *mongo.Collection, id int64, set patch.Setter, now time.Time) error {
	doc := bson.M{"updated_at": now}
	for k, v := range set {
		doc[k] = v
	}
	_, err := c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": doc})
	return err
}

// Delete removes the document with _id id and reports whether one existed.
func Delete(ctx context.Context, c *mongo.Collection, id int64) (bool, error) {
	res, err := c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

// Filter builds an equality filter from optional values; nil entries are
// skipped.
type Filter bson.M

// Int adds key == *v when v is set.
func (f Filter) Int(key string, v *int64) Filter {
	if v != nil {
		f[key] = *v
	}
	return f
}

// Bool adds key == *v when v is set.
func (f Filter) Bool(key string, v *bool) Filter {
	if v != nil {
		f[key] = *v
	}
	return f
}

// String adds key == v when v is non-empty.
func (f Filter) String(key, v string) Filter {
	if v != "" {
		f[key] = v
	}
	return f
}

// BSON returns the filter document.
func (f Filter) BSON() bson.M { return bson.M(f) }

// DateRange rejects an end date that falls before the start date.
func DateRange(endField string, start models.Date, end *models.Date) error {
	if end != nil && !end.IsZero() && end.Before(start) {
		return apperr.Validation("%s must not be before the start date", endField)
	}
	return nil
}

// Required rejects a blank required string.
func Required(field, v string) error {
	if v == "" {
		return apperr.Validation("%s is required", field)
	}
	return nil
}

// MaxLen rejects strings longer than n characters.
func MaxLen(field, v string, n int) error {
	if utf8.RuneCountInString(v) > n {
		return apperr.Validation("%s must be at most %d characters", field, n)
	}
	return nil
}

// RequireID rejects a missing or non-positive foreign key.
func RequireID(field string, id int64) error {
	if id <= 0 {
		return apperr.Validation("%s is required", field)
	}
	return nil
}

// FirstErr returns the first non-nil error.
func FirstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// DupOn reports whether err is a duplicate-key error raised by an index on
// key. Mongo names the violated index and key pattern in the message.
func DupOn(err error, key string) bool {
	return wafflemongo.IsDup(err) && strings.Contains(err.Error(), key)
}

// HTTPURL rejects an optional link that is not an absolute http(s) URL.
func HTTPURL(field string, v *string) error {
	if v == nil {
		return nil
	}
	u, err := url.Parse(*v)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return apperr.Validation("%s must be an absolute http or https URL", field)
	}
	return nil
}
