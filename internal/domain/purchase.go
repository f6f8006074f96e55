package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DeliveryStatus tracks how far along the shipment of a purchase (or a
// single line item) is.
type DeliveryStatus string

const (
	DeliveryPending    DeliveryStatus = "pending"
	DeliveryProcessing DeliveryStatus = "processing"
	DeliveryShipped    DeliveryStatus = "shipped"
	DeliveryDelivered  DeliveryStatus = "delivered"
	DeliveryCancelled  DeliveryStatus = "cancelled"
)

func (s DeliveryStatus) Valid() bool {
	switch s {
	case DeliveryPending, DeliveryProcessing, DeliveryShipped, DeliveryDelivered, DeliveryCancelled:
		return true
	}
	return false
}

// PaymentStatus tracks how much of a purchase has been settled.
type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "unpaid"
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentUnpaid, PaymentPending, PaymentPaid, PaymentRefunded:
		return true
	}
	return false
}

// LineItem is one product+quantity entry embedded in a purchase document.
// Delivery and PaymentStatus use omitempty so an item can exist without a
// status field; status propagation only rewrites items that carry one.
type LineItem struct {
	ProductID     string         `bson:"productId" json:"productId"`
	Quantity      int64          `bson:"quantity" json:"quantity"`
	Delivery      DeliveryStatus `bson:"delivery,omitempty" json:"delivery,omitempty"`
	PaymentStatus PaymentStatus  `bson:"paymentStatus,omitempty" json:"paymentStatus,omitempty"`
}

// Purchase is the persisted ledger record. Items are embedded as an
// ordered list, not linked documents.
type Purchase struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"_id,omitempty"`
	Email          string             `bson:"email" json:"email"`
	PaymentMethod  string             `bson:"paymentMethod" json:"paymentMethod"`
	DeliveryMethod string             `bson:"deliveryMethod" json:"deliveryMethod"`
	Phone          string             `bson:"phone" json:"phone"`
	City           string             `bson:"city" json:"city"`
	District       string             `bson:"district" json:"district"`
	Country        string             `bson:"country" json:"country"`
	IdempotencyKey string             `bson:"idempotencyKey,omitempty" json:"idempotencyKey,omitempty"`
	Delivery       DeliveryStatus     `bson:"delivery,omitempty" json:"delivery,omitempty"`
	PaymentStatus  PaymentStatus      `bson:"paymentStatus,omitempty" json:"paymentStatus,omitempty"`
	PaidAmount     float64            `bson:"paidAmount" json:"paidAmount"`
	TotalDue       float64            `bson:"totalDue" json:"totalDue"`
	Items          []LineItem         `bson:"items" json:"items"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// LineItemRequest is one requested product+quantity pair.
type LineItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int64  `json:"quantity"`
}

// PurchaseRequest is the caller's input to the commit protocol. It is
// never persisted as-is.
type PurchaseRequest struct {
	Email          string            `json:"email"`
	PaymentMethod  string            `json:"paymentMethod"`
	DeliveryMethod string            `json:"deliveryMethod"`
	Phone          string            `json:"phone"`
	City           string            `json:"city"`
	District       string            `json:"district"`
	Country        string            `json:"country"`
	IdempotencyKey string            `json:"idempotencyKey,omitempty"`
	Items          []LineItemRequest `json:"items"`
}

// StatusUpdate is the allow-listed set of fields a status update may
// touch. Anything outside these four fields is rejected by construction.
type StatusUpdate struct {
	Delivery      *DeliveryStatus `json:"delivery,omitempty"`
	PaymentStatus *PaymentStatus  `json:"paymentStatus,omitempty"`
	PaidAmount    *float64        `json:"paidAmount,omitempty"`
	TotalDue      *float64        `json:"totalDue,omitempty"`
}

// HasStatusChange reports whether the update carries at least one status
// field. Amount-only updates are not valid on their own.
func (u StatusUpdate) HasStatusChange() bool {
	return u.Delivery != nil || u.PaymentStatus != nil
}
