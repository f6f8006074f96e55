package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/singleflight"

	"github.com/yasin2514/nest-nature-nursery-server/internal/cache"
	"github.com/yasin2514/nest-nature-nursery-server/internal/domain"
	"github.com/yasin2514/nest-nature-nursery-server/internal/events"
	"github.com/yasin2514/nest-nature-nursery-server/internal/metrics"
	"github.com/yasin2514/nest-nature-nursery-server/internal/repository"
)

// maxReserveAttempts bounds the read-check-decrement retry loop for one
// line item when a concurrent commit keeps winning the conditional write.
const maxReserveAttempts = 3

// compensationTimeout bounds the detached compensation context so caller
// cancellation cannot strand decremented stock.
const compensationTimeout = 10 * time.Second

// PurchaseService owns the purchase commit protocol and post-commit
// status transitions.
type PurchaseService struct {
	inventory repository.InventoryStore
	ledger    repository.PurchaseLedger
	cache     cache.PurchaseCache
	events    events.Publisher
	sfg       singleflight.Group // Prevents cache stampede
}

func NewPurchaseService(
	inventory repository.InventoryStore,
	ledger repository.PurchaseLedger,
	purchaseCache cache.PurchaseCache,
	publisher events.Publisher,
) *PurchaseService {
	return &PurchaseService{
		inventory: inventory,
		ledger:    ledger,
		cache:     purchaseCache,
		events:    publisher,
	}
}

// reservation records one successful stock decrement of the current
// commit, for compensation if a later step fails.
type reservation struct {
	productID string
	quantity  int64
}

// Commit validates the request, reserves stock for every line item in
// request order, and records the purchase. Either the whole purchase is
// recorded with all stock reserved, or stock is compensated back; the one
// exception is a failed compensation, which is surfaced as a FatalError
// for manual reconciliation.
func (s *PurchaseService) Commit(ctx context.Context, req *domain.PurchaseRequest) (*domain.Purchase, error) {
	if err := validateRequest(req); err != nil {
		metrics.PurchasesTotal.WithLabelValues("validation_failed").Inc()
		return nil, err
	}

	if req.IdempotencyKey != "" {
		existing, err := s.ledger.GetPurchaseByIdempotencyKey(ctx, req.IdempotencyKey)
		if err == nil {
			log.WithFields(log.Fields{
				"idempotency_key": req.IdempotencyKey,
				"purchase_id":     existing.ID.Hex(),
			}).Info("Duplicate purchase request, returning existing purchase")
			return existing, nil
		}
		if !errors.Is(err, repository.ErrPurchaseNotFound) {
			return nil, fmt.Errorf("failed to check idempotency: %w", err)
		}
	}

	reserved := make([]reservation, 0, len(req.Items))
	var totalDue float64

	for _, item := range req.Items {
		price, err := s.reserveItem(ctx, item)
		if err != nil {
			metrics.PurchasesTotal.WithLabelValues(resultLabel(err)).Inc()
			return nil, s.compensate(ctx, reserved, err)
		}
		reserved = append(reserved, reservation{productID: item.ProductID, quantity: item.Quantity})
		totalDue += price * float64(item.Quantity)
	}

	purchase := buildPurchase(req, totalDue)
	if _, err := s.ledger.InsertPurchase(ctx, purchase); err != nil {
		log.WithError(err).Error("Ledger insert failed, compensating reservations")
		metrics.PurchasesTotal.WithLabelValues("ledger_write_failed").Inc()
		return nil, s.compensate(ctx, reserved, &LedgerWriteError{Cause: err})
	}

	metrics.PurchasesTotal.WithLabelValues("committed").Inc()
	metrics.PurchaseAmount.Observe(totalDue)

	// write-through: the buyer reads the purchase right after committing
	if err := s.cache.Set(ctx, purchase.ID.Hex(), purchase); err != nil {
		log.WithError(err).Warn("Purchase cache write-through failed")
	}

	if s.events != nil {
		if err := s.events.PurchaseCommitted(ctx, purchase); err != nil {
			// the purchase is durable; a lost event is logged, not fatal
			log.WithError(err).WithField("purchase_id", purchase.ID.Hex()).
				Warn("Failed to publish purchase event")
		}
	}

	return purchase, nil
}

// reserveItem runs the read-check-decrement loop for a single line item
// and returns the product's unit price on success. The stock check is
// repeated inside the conditional write, so a lost race means another
// commit got there first; we re-read and try again up to the bound.
func (s *PurchaseService) reserveItem(ctx context.Context, item domain.LineItemRequest) (float64, error) {
	for attempt := 0; attempt < maxReserveAttempts; attempt++ {
		product, err := s.inventory.GetProduct(ctx, item.ProductID)
		if err != nil {
			switch {
			case errors.Is(err, repository.ErrProductNotFound):
				return 0, &ProductNotFoundError{ProductID: item.ProductID}
			case errors.Is(err, repository.ErrCorruptStock):
				return 0, &CorruptInventoryError{ProductID: item.ProductID}
			}
			return 0, fmt.Errorf("failed to read product %s: %w", item.ProductID, err)
		}

		if product.Quantity < item.Quantity {
			return 0, &InsufficientStockError{
				ProductID: item.ProductID,
				Available: product.Quantity,
				Requested: item.Quantity,
			}
		}

		ok, err := s.inventory.DecrementStock(ctx, item.ProductID, item.Quantity, item.Quantity)
		if err != nil {
			return 0, fmt.Errorf("failed to reserve product %s: %w", item.ProductID, err)
		}
		if ok {
			return product.Price, nil
		}

		metrics.StockConflictsTotal.Inc()
		log.WithFields(log.Fields{
			"product_id": item.ProductID,
			"attempt":    attempt + 1,
		}).Debug("Lost conditional decrement, retrying")
	}

	return 0, &ConflictError{ProductID: item.ProductID}
}

// compensate re-increments every reservation of the failed commit and
// returns cause unchanged when all increments succeed. It runs on a
// detached context so a cancelled request cannot abort the rollback.
func (s *PurchaseService) compensate(ctx context.Context, reserved []reservation, cause error) error {
	if len(reserved) == 0 {
		return cause
	}

	compCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	var failed []StockAdjustment
	for _, r := range reserved {
		if err := s.inventory.IncrementStock(compCtx, r.productID, r.quantity); err != nil {
			metrics.CompensationFailuresTotal.Inc()
			log.WithError(err).WithFields(log.Fields{
				"product_id": r.productID,
				"quantity":   r.quantity,
			}).Error("Compensating stock increment failed")
			failed = append(failed, StockAdjustment{ProductID: r.productID, Quantity: r.quantity})
		}
	}

	if len(failed) > 0 {
		return &FatalError{Unreconciled: failed, Cause: cause}
	}
	return cause
}

func buildPurchase(req *domain.PurchaseRequest, totalDue float64) *domain.Purchase {
	items := make([]domain.LineItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = domain.LineItem{
			ProductID:     item.ProductID,
			Quantity:      item.Quantity,
			Delivery:      domain.DeliveryPending,
			PaymentStatus: domain.PaymentUnpaid,
		}
	}

	return &domain.Purchase{
		Email:          req.Email,
		PaymentMethod:  req.PaymentMethod,
		DeliveryMethod: req.DeliveryMethod,
		Phone:          req.Phone,
		City:           req.City,
		District:       req.District,
		Country:        req.Country,
		IdempotencyKey: req.IdempotencyKey,
		Delivery:       domain.DeliveryPending,
		PaymentStatus:  domain.PaymentUnpaid,
		PaidAmount:     0,
		TotalDue:       totalDue,
		Items:          items,
		CreatedAt:      time.Now(),
	}
}

func resultLabel(err error) string {
	switch {
	case errors.Is(err, ErrProductNotFound):
		return "product_not_found"
	case errors.Is(err, ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrCorruptInventory):
		return "corrupt_inventory"
	default:
		return "failed"
	}
}

// GetPurchase reads a purchase through the cache, collapsing concurrent
// misses for the same id into one ledger read.
func (s *PurchaseService) GetPurchase(ctx context.Context, purchaseID string) (*domain.Purchase, error) {
	v, err, _ := s.sfg.Do(purchaseID, func() (interface{}, error) {
		purchase, err := s.cache.Get(ctx, purchaseID)
		if err == nil {
			return purchase, nil
		}

		if !errors.Is(err, cache.ErrCacheMiss) {
			log.WithError(err).Warn("Purchase cache get failed") // log cache error but continue
		}

		purchase, err = s.ledger.GetPurchase(ctx, purchaseID)
		if err != nil {
			if errors.Is(err, repository.ErrPurchaseNotFound) || errors.Is(err, repository.ErrInvalidID) {
				return nil, &PurchaseNotFoundError{PurchaseID: purchaseID}
			}
			return nil, err
		}

		go func() {
			if errSet := s.cache.Set(context.Background(), purchaseID, purchase); errSet != nil {
				log.WithError(errSet).Warn("Purchase cache set failed")
			}
		}()

		return purchase, nil
	})

	if err != nil {
		return nil, err
	}

	return v.(*domain.Purchase), nil
}

func (s *PurchaseService) invalidateCache(purchaseID string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, purchaseID); err != nil {
		log.WithError(err).Warn("Purchase cache invalidate failed")
	}
}

func validateRequest(req *domain.PurchaseRequest) error {
	if req == nil {
		return &ValidationError{Reason: "request body cannot be empty"}
	}

	required := []struct {
		value string
		name  string
	}{
		{req.Email, "email"},
		{req.PaymentMethod, "paymentMethod"},
		{req.DeliveryMethod, "deliveryMethod"},
		{req.Phone, "phone"},
		{req.City, "city"},
		{req.District, "district"},
		{req.Country, "country"},
	}
	for _, f := range required {
		if f.value == "" {
			return &ValidationError{Reason: f.name + " is required"}
		}
	}

	if len(req.Items) == 0 {
		return &ValidationError{Reason: "at least one item is required"}
	}
	for i, item := range req.Items {
		if _, err := primitive.ObjectIDFromHex(item.ProductID); err != nil {
			return &ValidationError{Reason: fmt.Sprintf("items[%d]: invalid product id", i)}
		}
		if item.Quantity <= 0 {
			return &ValidationError{Reason: fmt.Sprintf("items[%d]: quantity must be positive", i)}
		}
	}

	return nil
}
