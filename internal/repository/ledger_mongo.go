package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/yasin2514/nest-nature-nursery-server/internal/domain"
)

// MongoLedger implements PurchaseLedger on the purchases collection.
type MongoLedger struct {
	collection *mongo.Collection
}

func NewMongoLedger(db *mongo.Database) *MongoLedger {
	return &MongoLedger{
		collection: db.Collection("purchases"),
	}
}

func (m *MongoLedger) InsertPurchase(ctx context.Context, p *domain.Purchase) (string, error) {
	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	result, err := m.collection.InsertOne(ctx, p)
	if err != nil {
		return "", fmt.Errorf("failed to insert purchase: %w", err)
	}

	oid, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("unexpected inserted id type %T", result.InsertedID)
	}
	p.ID = oid
	return oid.Hex(), nil
}

func (m *MongoLedger) GetPurchase(ctx context.Context, id string) (*domain.Purchase, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}

	var purchase domain.Purchase
	err = m.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&purchase)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrPurchaseNotFound
		}
		return nil, fmt.Errorf("failed to get purchase: %w", err)
	}

	return &purchase, nil
}

func (m *MongoLedger) GetPurchaseByIdempotencyKey(ctx context.Context, key string) (*domain.Purchase, error) {
	var purchase domain.Purchase
	err := m.collection.FindOne(ctx, bson.M{"idempotencyKey": key}).Decode(&purchase)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrPurchaseNotFound
		}
		return nil, fmt.Errorf("failed to get purchase by idempotency key: %w", err)
	}

	return &purchase, nil
}

// ApplyStatus rewrites the top-level status fields and, via arrayFilters,
// the matching elements of the embedded items list, all in one update.
// Items that do not carry the status field being set are left untouched.
func (m *MongoLedger) ApplyStatus(ctx context.Context, id string, update domain.StatusUpdate) (int64, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}

	set := bson.M{"updatedAt": time.Now()}
	var filters []interface{}

	if update.Delivery != nil {
		set["delivery"] = *update.Delivery
		set["items.$[withDelivery].delivery"] = *update.Delivery
		filters = append(filters, bson.M{"withDelivery.delivery": bson.M{"$exists": true}})
	}
	if update.PaymentStatus != nil {
		set["paymentStatus"] = *update.PaymentStatus
		set["items.$[withPayment].paymentStatus"] = *update.PaymentStatus
		filters = append(filters, bson.M{"withPayment.paymentStatus": bson.M{"$exists": true}})
	}
	if update.PaidAmount != nil {
		set["paidAmount"] = *update.PaidAmount
	}
	if update.TotalDue != nil {
		set["totalDue"] = *update.TotalDue
	}

	opts := options.Update()
	if len(filters) > 0 {
		opts.SetArrayFilters(options.ArrayFilters{Filters: filters})
	}

	result, err := m.collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts)
	if err != nil {
		return 0, fmt.Errorf("failed to update purchase status: %w", err)
	}

	return result.MatchedCount, nil
}

func (m *MongoLedger) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "idempotencyKey", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
		{
			Keys: bson.D{{Key: "email", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "createdAt", Value: 1}},
		},
	}

	_, err := m.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}
