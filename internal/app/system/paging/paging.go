// internal/app/system/paging/paging.go
package paging

import (
	"net/http"
	"strconv"

	"github.com/dalemusser/phonebook/internal/app/system/apperr"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultLimit is the page size used when the caller sends no limit.
const DefaultLimit = 100

// MaxLimit caps the page size a caller may request.
const MaxLimit = 1000

// Page is an offset/limit window over a list ordered by _id ascending.
type Page struct {
	Skip  int64 `json:"skip"`
	Limit int64 `json:"limit"`
}

// Default returns the first page with the default size.
func Default() Page { return Page{Skip: 0, Limit: DefaultLimit} }

// Parse reads "skip" and "limit" from the query string.
// Missing values fall back to 0 and DefaultLimit; out-of-range values
// are a validation error rather than being silently clamped.
func Parse(r *http.Request) (Page, error) {
	p := Default()

	if s := query.Get(r, "skip"); s != "" {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil || n < 0 {
			return Page{}, apperr.Validation("skip must be a non-negative integer")
		}
		p.Skip = n
	}
	if s := query.Get(r, "limit"); s != "" {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil || n < 1 || n > MaxLimit {
			return Page{}, apperr.Validation("limit must be between 1 and %d", MaxLimit)
		}
		p.Limit = n
	}
	return p, nil
}

// FindOptions returns Find options for the page with the stable _id order.
func (p Page) FindOptions() *options.FindOptions {
	return options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetSkip(p.Skip).
		SetLimit(p.Limit)
}

// ByID is the sort used for unpaged lists.
func ByID() *options.FindOptions {
	return options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
}

// FirstByID picks the lowest _id among several matches.
func FirstByID() *options.FindOneOptions {
	return options.FindOne().SetSort(bson.D{{Key: "_id", Value: 1}})
}
