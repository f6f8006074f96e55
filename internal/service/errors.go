package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation         = errors.New("invalid purchase request")
	ErrProductNotFound    = errors.New("product not found")
	ErrPurchaseNotFound   = errors.New("purchase not found")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrConflict           = errors.New("stock contention not resolved")
	ErrCorruptInventory   = errors.New("inventory record corrupt")
	ErrLedgerWrite        = errors.New("failed to record purchase")
	ErrReconciliationNeed = errors.New("stock compensation failed, manual reconciliation required")
)

// ValidationError rejects a malformed request before any mutation.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid purchase request: %s", e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

func (e *ProductNotFoundError) Unwrap() error { return ErrProductNotFound }

type PurchaseNotFoundError struct {
	PurchaseID string
}

func (e *PurchaseNotFoundError) Error() string {
	return fmt.Sprintf("purchase %s not found", e.PurchaseID)
}

func (e *PurchaseNotFoundError) Unwrap() error { return ErrPurchaseNotFound }

// InsufficientStockError is a business-rule rejection; it names the
// product and both quantities so the caller can report them.
type InsufficientStockError struct {
	ProductID string
	Available int64
	Requested int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: %d available, %d requested",
		e.ProductID, e.Available, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// ConflictError surfaces a stock race that persisted through the bounded
// retries.
type ConflictError struct {
	ProductID string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("stock contention on product %s, retries exhausted", e.ProductID)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

type CorruptInventoryError struct {
	ProductID string
}

func (e *CorruptInventoryError) Error() string {
	return fmt.Sprintf("inventory record for product %s is corrupt", e.ProductID)
}

func (e *CorruptInventoryError) Unwrap() error { return ErrCorruptInventory }

// LedgerWriteError means every reservation succeeded but the purchase
// record could not be written; stock was compensated.
type LedgerWriteError struct {
	Cause error
}

func (e *LedgerWriteError) Error() string {
	return fmt.Sprintf("failed to record purchase: %v", e.Cause)
}

func (e *LedgerWriteError) Unwrap() error { return ErrLedgerWrite }

// StockAdjustment names one product whose compensating increment failed.
type StockAdjustment struct {
	ProductID string `json:"productId"`
	Quantity  int64  `json:"quantity"`
}

// FatalError is the one condition the system cannot self-heal: stock was
// decremented, the commit failed, and re-incrementing failed too. It
// carries exactly which products are off by how much so an operator can
// reconcile by hand.
type FatalError struct {
	Unreconciled []StockAdjustment
	Cause        error
}

func (e *FatalError) Error() string {
	parts := make([]string, len(e.Unreconciled))
	for i, adj := range e.Unreconciled {
		parts[i] = fmt.Sprintf("product %s short by %d", adj.ProductID, adj.Quantity)
	}
	return fmt.Sprintf("stock left unreconciled (%s) after commit failure: %v",
		strings.Join(parts, ", "), e.Cause)
}

func (e *FatalError) Unwrap() error { return ErrReconciliationNeed }
