package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/yasin2514/nest-nature-nursery-server/internal/domain"
)

const topic = "purchase-events"

// Publisher emits domain events after a purchase has been durably
// recorded. Publishing is best-effort from the committer's point of view.
type Publisher interface {
	PurchaseCommitted(ctx context.Context, p *domain.Purchase) error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer messageWriter
}

func NewKafkaPublisher(brokers ...string) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return &KafkaPublisher{writer: w}
}

type eventItem struct {
	ProductID string `json:"product_id"`
	Quantity  int64  `json:"quantity"`
}

type purchaseCommittedEvent struct {
	EventID     string      `json:"event_id"`
	PurchaseID  string      `json:"purchase_id"`
	Email       string      `json:"email"`
	Items       []eventItem `json:"items"`
	TotalDue    float64     `json:"total_due"`
	CommittedAt time.Time   `json:"committed_at"`
}

func (p *KafkaPublisher) PurchaseCommitted(ctx context.Context, purchase *domain.Purchase) error {
	items := make([]eventItem, len(purchase.Items))
	for i, item := range purchase.Items {
		items[i] = eventItem{ProductID: item.ProductID, Quantity: item.Quantity}
	}

	event := purchaseCommittedEvent{
		EventID:     uuid.New().String(),
		PurchaseID:  purchase.ID.Hex(),
		Email:       purchase.Email,
		Items:       items,
		TotalDue:    purchase.TotalDue,
		CommittedAt: purchase.CreatedAt,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal purchase event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.PurchaseID), // purchase_id for ordering
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte("purchase.committed")},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish purchase event: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
