package http

import (
	"encoding/json"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/yasin2514/nest-nature-nursery-server/internal/service"
)

type errorResponseDTO struct {
	Code         string                    `json:"code"`
	Message      string                    `json:"message"`
	ProductID    string                    `json:"productId,omitempty"`
	Available    *int64                    `json:"available,omitempty"`
	Requested    *int64                    `json:"requested,omitempty"`
	Unreconciled []service.StockAdjustment `json:"unreconciled,omitempty"`
}

// respondServiceError maps each commit/update error kind to a distinct,
// stable response shape.
func respondServiceError(w http.ResponseWriter, err error) {
	var (
		validationErr   *service.ValidationError
		productNotFound *service.ProductNotFoundError
		insufficient    *service.InsufficientStockError
		conflict        *service.ConflictError
		corrupt         *service.CorruptInventoryError
		fatal           *service.FatalError
	)

	switch {
	case errors.As(err, &validationErr):
		respondErrorDTO(w, http.StatusBadRequest, errorResponseDTO{
			Code:    "invalid_request",
			Message: validationErr.Reason,
		})

	case errors.As(err, &productNotFound):
		respondErrorDTO(w, http.StatusNotFound, errorResponseDTO{
			Code:      "product_not_found",
			Message:   err.Error(),
			ProductID: productNotFound.ProductID,
		})

	case errors.Is(err, service.ErrPurchaseNotFound):
		respondErrorDTO(w, http.StatusNotFound, errorResponseDTO{
			Code:    "purchase_not_found",
			Message: err.Error(),
		})

	case errors.As(err, &insufficient):
		respondErrorDTO(w, http.StatusConflict, errorResponseDTO{
			Code:      "insufficient_stock",
			Message:   err.Error(),
			ProductID: insufficient.ProductID,
			Available: &insufficient.Available,
			Requested: &insufficient.Requested,
		})

	case errors.As(err, &conflict):
		respondErrorDTO(w, http.StatusConflict, errorResponseDTO{
			Code:      "stock_contention",
			Message:   err.Error(),
			ProductID: conflict.ProductID,
		})

	case errors.As(err, &corrupt):
		respondErrorDTO(w, http.StatusInternalServerError, errorResponseDTO{
			Code:      "inventory_corrupt",
			Message:   err.Error(),
			ProductID: corrupt.ProductID,
		})

	case errors.As(err, &fatal):
		// operator attention needed: stock and ledger disagree
		log.WithError(err).Error("Purchase commit requires manual reconciliation")
		respondErrorDTO(w, http.StatusInternalServerError, errorResponseDTO{
			Code:         "reconciliation_required",
			Message:      err.Error(),
			Unreconciled: fatal.Unreconciled,
		})

	case errors.Is(err, service.ErrLedgerWrite):
		respondErrorDTO(w, http.StatusInternalServerError, errorResponseDTO{
			Code:    "ledger_write_failed",
			Message: "purchase could not be recorded, stock was restored",
		})

	default:
		log.WithError(err).Error("Unhandled service error")
		respondErrorDTO(w, http.StatusInternalServerError, errorResponseDTO{
			Code:    "internal_error",
			Message: "an internal error occurred",
		})
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.WithError(err).Error("Failed to encode response")
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondErrorDTO(w, status, errorResponseDTO{Code: code, Message: message})
}

func respondErrorDTO(w http.ResponseWriter, status int, dto errorResponseDTO) {
	respondJSON(w, status, dto)
}
