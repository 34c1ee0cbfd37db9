package checks

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mbd888/walletguard/internal/pagination"
	"github.com/mbd888/walletguard/internal/risk"
)

// Collection is the Mongo collection wallet checks live in.
const Collection = "wallet_checks"

// checkDoc is the BSON shape of a wallet check. The check id doubles
// as the document id.
type checkDoc struct {
	ID           string    `bson:"_id"`
	Address      string    `bson:"address"`
	RiskLevel    string    `bson:"risk_level"`
	TopScore     float64   `bson:"top_score"`
	Transactions int       `bson:"transactions"`
	Flags        []string  `bson:"flags,omitempty"`
	Reason       string    `bson:"reason"`
	CheckedAt    time.Time `bson:"checked_at"`
}

// MongoStore persists wallet checks in MongoDB.
type MongoStore struct {
	col *mongo.Collection
}

var _ Store = (*MongoStore)(nil)

// NewMongoStore creates a MongoDB-backed wallet check store on db.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{col: db.Collection(Collection)}
}

func (s *MongoStore) Insert(ctx context.Context, check *WalletCheck) error {
	_, err := s.col.InsertOne(ctx, toDoc(check))
	if err != nil {
		return fmt.Errorf("failed to insert wallet check: %w", err)
	}
	return nil
}

func (s *MongoStore) ListByAddress(ctx context.Context, address string, limit int) ([]*WalletCheck, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "checked_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))

	cur, err := s.col.Find(ctx, bson.M{"address": address}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list wallet checks: %w", err)
	}
	return drainChecks(ctx, cur)
}

func (s *MongoStore) ListRecent(ctx context.Context, limit int, before *pagination.Cursor) ([]*WalletCheck, error) {
	filter := bson.M{}
	if before != nil {
		filter = bson.M{"$or": bson.A{
			bson.M{"checked_at": bson.M{"$lt": before.CheckedAt}},
			bson.M{"checked_at": before.CheckedAt, "_id": bson.M{"$lt": before.ID}},
		}}
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "checked_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))

	cur, err := s.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent wallet checks: %w", err)
	}
	return drainChecks(ctx, cur)
}

func drainChecks(ctx context.Context, cur *mongo.Cursor) ([]*WalletCheck, error) {
	defer func() { _ = cur.Close(ctx) }()

	var result []*WalletCheck
	for cur.Next(ctx) {
		var doc checkDoc
		if err := cur.Decode(&doc); err != nil {
			continue
		}
		result = append(result, fromDoc(&doc))
	}
	return result, cur.Err()
}

func toDoc(check *WalletCheck) *checkDoc {
	return &checkDoc{
		ID:           check.ID,
		Address:      check.Address,
		RiskLevel:    string(check.RiskLevel),
		TopScore:     check.TopScore,
		Transactions: check.Transactions,
		Flags:        check.Flags,
		Reason:       check.Reason,
		CheckedAt:    check.CheckedAt,
	}
}

func fromDoc(doc *checkDoc) *WalletCheck {
	return &WalletCheck{
		ID:           doc.ID,
		Address:      doc.Address,
		RiskLevel:    risk.Level(doc.RiskLevel),
		TopScore:     doc.TopScore,
		Transactions: doc.Transactions,
		Flags:        doc.Flags,
		Reason:       doc.Reason,
		CheckedAt:    doc.CheckedAt,
	}
}
