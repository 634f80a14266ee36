// Package ledger keeps a record of every order created through this service.
package ledger

import (
	"context"

	"ordercore-api-io/api/pkg/models"
	"ordercore-api-io/api/pkg/util"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const CollectionName = "OrderLedger"

type MongoLedger struct {
	collection *mongo.Collection
}

func NewMongoLedger(client *mongo.Client, database string) *MongoLedger {
	return &MongoLedger{collection: util.GetCollection(client, database, CollectionName)}
}

// EnsureIndexes creates the lookup indexes. Safe to call on every start.
func (l *MongoLedger) EnsureIndexes(ctx context.Context) error {
	_, err := l.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "session_id", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	})
	return errors.Wrap(err, "create ledger indexes")
}

func (l *MongoLedger) Record(ctx context.Context, entry models.LedgerEntry) error {
	if _, err := l.collection.InsertOne(ctx, entry); err != nil {
		return errors.Wrapf(err, "record order %s", entry.OrderId)
	}
	return nil
}

// Recent lists ledger entries, newest first unless the pagination sort asks
// for ascending order.
func (l *MongoLedger) Recent(ctx context.Context, pagination util.PaginationArgs) ([]models.LedgerEntry, int64, error) {
	opts := options.Find().
		SetSort(util.GetCreatedAtSortBson(pagination.Sort)).
		SetSkip(int64(pagination.Skip)).
		SetLimit(int64(pagination.Limit))

	cursor, err := l.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, 0, errors.Wrap(err, "find ledger entries")
	}
	defer cursor.Close(ctx)

	entries := make([]models.LedgerEntry, 0, pagination.Limit)
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, 0, errors.Wrap(err, "decode ledger entries")
	}

	count, err := l.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, errors.Wrap(err, "count ledger entries")
	}
	return entries, count, nil
}
