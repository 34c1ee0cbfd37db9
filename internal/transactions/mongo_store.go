package transactions

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Collection is the Mongo collection transaction records live in.
const Collection = "transactions"

// MongoStore persists transaction records in MongoDB, the layout the
// original ingest pipeline wrote to.
type MongoStore struct {
	col *mongo.Collection
}

var _ Store = (*MongoStore)(nil)

// NewMongoStore creates a MongoDB-backed transaction store on db.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{col: db.Collection(Collection)}
}

func (s *MongoStore) Insert(ctx context.Context, rec Record) (string, error) {
	if WalletID(rec) == "" {
		return "", ErrMissingWallet
	}

	res, err := s.col.InsertOne(ctx, bson.M(rec))
	if err != nil {
		return "", fmt.Errorf("failed to insert transaction: %w", err)
	}
	return insertedID(res.InsertedID), nil
}

func (s *MongoStore) InsertBatch(ctx context.Context, recs []Record) ([]string, error) {
	docs := make([]any, 0, len(recs))
	for _, rec := range recs {
		if WalletID(rec) == "" {
			return nil, ErrMissingWallet
		}
		docs = append(docs, bson.M(rec))
	}

	res, err := s.col.InsertMany(ctx, docs)
	if err != nil {
		return nil, fmt.Errorf("failed to insert transactions: %w", err)
	}

	ids := make([]string, 0, len(res.InsertedIDs))
	for _, id := range res.InsertedIDs {
		ids = append(ids, insertedID(id))
	}
	return ids, nil
}

func (s *MongoStore) FetchByWallet(ctx context.Context, walletID string) ([]Record, error) {
	cur, err := s.col.Find(ctx, bson.M{KeyWalletID: walletID})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transactions: %w", err)
	}
	defer func() { _ = cur.Close(ctx) }()

	var result []Record
	for cur.Next(ctx) {
		var doc bson.M
		if err := cur.Decode(&doc); err != nil {
			continue
		}
		result = append(result, normalizeDoc(doc))
	}
	return result, cur.Err()
}

func insertedID(v any) string {
	switch id := v.(type) {
	case primitive.ObjectID:
		return id.Hex()
	case string:
		return id
	default:
		return fmt.Sprint(id)
	}
}

// normalizeDoc rewrites BSON-specific types into plain Go values so
// downstream consumers never see driver primitives. Object ids become
// their hex form, matching how they stringify everywhere else.
func normalizeDoc(doc bson.M) Record {
	rec := make(Record, len(doc))
	for k, v := range doc {
		rec[k] = normalizeValue(v)
	}
	return rec
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case primitive.ObjectID:
		return t.Hex()
	case primitive.DateTime:
		return t.Time()
	case primitive.A:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalizeValue(e)
		}
		return out
	case bson.M:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = normalizeValue(e)
		}
		return out
	default:
		return v
	}
}
