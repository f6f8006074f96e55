package domain

import "go.mongodb.org/mongo-driver/bson/primitive"

// Product mirrors a catalog document. Only Quantity is touched by the
// purchase flow; the remaining fields are descriptive catalog data owned
// by the admin side.
type Product struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"_id,omitempty"`
	Name          string             `bson:"name" json:"name"`
	Price         float64            `bson:"price" json:"price"`
	PreviousPrice float64            `bson:"previousPrice,omitempty" json:"previousPrice,omitempty"`
	Quantity      int64              `bson:"quantity" json:"quantity"`
	Category      string             `bson:"category,omitempty" json:"category,omitempty"`
	Photos        string             `bson:"photos,omitempty" json:"photos,omitempty"`
	Rating        float64            `bson:"rating,omitempty" json:"rating,omitempty"`
	Description   string             `bson:"description,omitempty" json:"description,omitempty"`
	UploadByEmail string             `bson:"uploadByEmail,omitempty" json:"uploadByEmail,omitempty"`
}
