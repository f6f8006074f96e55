package http

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/yasin2514/nest-nature-nursery-server/internal/domain"
	"github.com/yasin2514/nest-nature-nursery-server/internal/payment"
)

// PurchaseService is what the handlers need from the core; consumers
// define this interface, not the service implementation.
type PurchaseService interface {
	Commit(ctx context.Context, req *domain.PurchaseRequest) (*domain.Purchase, error)
	UpdateStatus(ctx context.Context, purchaseID string, update domain.StatusUpdate) (*domain.Purchase, error)
	GetPurchase(ctx context.Context, purchaseID string) (*domain.Purchase, error)
}

type PurchaseHandler struct {
	service PurchaseService
	intents payment.IntentProvider // nil when no payment provider is configured
	timeout time.Duration
}

func NewPurchaseHandler(service PurchaseService, intents payment.IntentProvider, timeout time.Duration) *PurchaseHandler {
	return &PurchaseHandler{
		service: service,
		intents: intents,
		timeout: timeout,
	}
}

type purchaseResponseDTO struct {
	Purchase     *domain.Purchase `json:"purchase"`
	ClientSecret string           `json:"clientSecret,omitempty"`
}

// POST /api/v1/purchase
func (h *PurchaseHandler) CreatePurchase(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	email := callerEmail(r.Context())
	if email == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing caller identity")
		return
	}

	var req domain.PurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	// buyer identity comes from the verified caller, not the body
	req.Email = email

	purchase, err := h.service.Commit(ctx, &req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	resp := purchaseResponseDTO{Purchase: purchase}
	if h.intents != nil {
		secret, errIntent := h.intents.CreateIntent(ctx, toCents(purchase.TotalDue), "usd")
		if errIntent != nil {
			// the purchase is committed either way; the frontend can
			// retry payment separately
			log.WithError(errIntent).WithField("purchase_id", purchase.ID.Hex()).
				Warn("Failed to create payment intent")
		} else {
			resp.ClientSecret = secret
		}
	}

	respondJSON(w, http.StatusCreated, resp)
}

// GET /api/v1/purchase/{id}
func (h *PurchaseHandler) GetPurchase(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id := chi.URLParam(r, "id")
	purchase, err := h.service.GetPurchase(ctx, id)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, purchase)
}

// PATCH /api/v1/purchase/{id}/status
func (h *PurchaseHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id := chi.URLParam(r, "id")

	var update domain.StatusUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	purchase, err := h.service.UpdateStatus(ctx, id, update)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, purchase)
}

func toCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
