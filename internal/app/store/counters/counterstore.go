// internal/app/store/counters/counterstore.go
package counterstore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store hands out integer ids, one sequence per collection.
type Store struct {
	c *mongo.Collection
}

type counter struct {
	ID  string `bson:"_id"`
	Seq int64  `bson:"seq"`
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("counters")}
}

// Next returns the next id for name, starting at 1. Called with a session
// context it takes part in the surrounding transaction, so an aborted
// create does not consume an id.
func (s *Store) Next(ctx context.Context, name string) (int64, error) {
	var out counter
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&out)
	if err != nil {
		return 0, err
	}
	return out.Seq, nil
}

// Current returns the last id handed out for name, or 0.
func (s *Store) Current(ctx context.Context, name string) (int64, error) {
	var out counter
	err := s.c.FindOne(ctx, bson.M{"_id": name}).Decode(&out)
	if err == mongo.ErrNoDocuments {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return out.Seq, nil
}
