package repository

import (
	"context"
	"errors"
	"fmt"
	"math"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/yasin2514/nest-nature-nursery-server/internal/domain"
)

// MongoInventory implements InventoryStore on the products collection.
type MongoInventory struct {
	collection *mongo.Collection
}

func NewMongoInventory(db *mongo.Database) *MongoInventory {
	return &MongoInventory{
		collection: db.Collection("products"),
	}
}

// productDoc decodes quantity loosely so a corrupt value (wrong type,
// fractional, negative) is detected instead of silently coerced.
type productDoc struct {
	ID            primitive.ObjectID `bson:"_id"`
	Name          string             `bson:"name"`
	Price         float64            `bson:"price"`
	PreviousPrice float64            `bson:"previousPrice"`
	Quantity      interface{}        `bson:"quantity"`
	Category      string             `bson:"category"`
	Photos        string             `bson:"photos"`
	Rating        float64            `bson:"rating"`
	Description   string             `bson:"description"`
	UploadByEmail string             `bson:"uploadByEmail"`
}

func (m *MongoInventory) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}

	var doc productDoc
	err = m.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	quantity, ok := stockValue(doc.Quantity)
	if !ok {
		return nil, fmt.Errorf("product %s: %w", id, ErrCorruptStock)
	}

	return &domain.Product{
		ID:            doc.ID,
		Name:          doc.Name,
		Price:         doc.Price,
		PreviousPrice: doc.PreviousPrice,
		Quantity:      quantity,
		Category:      doc.Category,
		Photos:        doc.Photos,
		Rating:        doc.Rating,
		Description:   doc.Description,
		UploadByEmail: doc.UploadByEmail,
	}, nil
}

// stockValue accepts the BSON number types a quantity may have been
// written as and rejects anything that is not a whole number >= 0.
func stockValue(v interface{}) (int64, bool) {
	var n int64
	switch q := v.(type) {
	case int32:
		n = int64(q)
	case int64:
		n = q
	case float64:
		if q != math.Trunc(q) {
			return 0, false
		}
		n = int64(q)
	default:
		return 0, false
	}
	return n, n >= 0
}

// DecrementStock is the conditional check-and-set that prevents oversell:
// the quantity guard is part of the update filter, so two racing commits
// cannot both win the same stock.
func (m *MongoInventory) DecrementStock(ctx context.Context, id string, amount, minRequired int64) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}

	filter := bson.M{
		"_id":      oid,
		"quantity": bson.M{"$gte": minRequired},
	}
	update := bson.M{"$inc": bson.M{"quantity": -amount}}

	result, err := m.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to decrement stock: %w", err)
	}

	return result.ModifiedCount == 1, nil
}

func (m *MongoInventory) IncrementStock(ctx context.Context, id string, amount int64) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}

	update := bson.M{"$inc": bson.M{"quantity": amount}}
	result, err := m.collection.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return fmt.Errorf("failed to increment stock: %w", err)
	}

	if result.MatchedCount == 0 {
		return ErrProductNotFound
	}
	return nil
}
