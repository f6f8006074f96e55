package service

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/yasin2514/nest-nature-nursery-server/internal/domain"
	"github.com/yasin2514/nest-nature-nursery-server/internal/metrics"
)

// UpdateStatus applies a post-commit state transition to an existing
// purchase. A supplied delivery or payment status is also propagated to
// every embedded line item that currently carries that field; paidAmount
// and totalDue are only written when explicitly supplied.
func (s *PurchaseService) UpdateStatus(ctx context.Context, purchaseID string, update domain.StatusUpdate) (*domain.Purchase, error) {
	if _, err := primitive.ObjectIDFromHex(purchaseID); err != nil {
		metrics.StatusUpdatesTotal.WithLabelValues("validation_failed").Inc()
		return nil, &ValidationError{Reason: "invalid purchase id"}
	}

	if !update.HasStatusChange() {
		metrics.StatusUpdatesTotal.WithLabelValues("validation_failed").Inc()
		return nil, &ValidationError{Reason: "either delivery or paymentStatus must be supplied"}
	}
	if update.Delivery != nil && !update.Delivery.Valid() {
		metrics.StatusUpdatesTotal.WithLabelValues("validation_failed").Inc()
		return nil, &ValidationError{Reason: fmt.Sprintf("unknown delivery status %q", *update.Delivery)}
	}
	if update.PaymentStatus != nil && !update.PaymentStatus.Valid() {
		metrics.StatusUpdatesTotal.WithLabelValues("validation_failed").Inc()
		return nil, &ValidationError{Reason: fmt.Sprintf("unknown payment status %q", *update.PaymentStatus)}
	}

	matched, err := s.ledger.ApplyStatus(ctx, purchaseID, update)
	if err != nil {
		metrics.StatusUpdatesTotal.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("failed to update purchase status: %w", err)
	}
	if matched == 0 {
		metrics.StatusUpdatesTotal.WithLabelValues("not_found").Inc()
		return nil, &PurchaseNotFoundError{PurchaseID: purchaseID}
	}

	s.invalidateCache(purchaseID)
	metrics.StatusUpdatesTotal.WithLabelValues("updated").Inc()

	return s.ledger.GetPurchase(ctx, purchaseID)
}
