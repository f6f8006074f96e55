package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/yasin2514/nest-nature-nursery-server/internal/cache"
	"github.com/yasin2514/nest-nature-nursery-server/internal/domain"
	"github.com/yasin2514/nest-nature-nursery-server/internal/repository"
	"github.com/yasin2514/nest-nature-nursery-server/internal/service"
)

// nopCache always misses; handler tests exercise the service without Redis
type nopCache struct{}

func (nopCache) Get(context.Context, string) (*domain.Purchase, error) {
	return nil, cache.ErrCacheMiss
}
func (nopCache) Set(context.Context, string, *domain.Purchase) error { return nil }
func (nopCache) Delete(context.Context, string) error                { return nil }

type stubIntents struct {
	secret string
	err    error
}

func (s stubIntents) CreateIntent(context.Context, int64, string) (string, error) {
	return s.secret, s.err
}

type testEnv struct {
	router    http.Handler
	inventory *repository.MemoryInventory
}

func setupHandlerTest(t *testing.T, intents *stubIntents) *testEnv {
	t.Helper()

	inventory := repository.NewMemoryInventory()
	ledger := repository.NewMemoryLedger()
	svc := service.NewPurchaseService(inventory, ledger, nopCache{}, nil)

	handler := NewPurchaseHandler(svc, nil, 5*time.Second)
	if intents != nil {
		handler = NewPurchaseHandler(svc, *intents, 5*time.Second)
	}

	return &testEnv{
		router:    NewRouter(handler, 5*time.Second),
		inventory: inventory,
	}
}

func (e *testEnv) seedProduct(stock int64, price float64) string {
	return e.inventory.SetProduct(&domain.Product{Name: "Peace Lily", Price: price, Quantity: stock})
}

func purchaseBody(items ...domain.LineItemRequest) []byte {
	body, _ := json.Marshal(domain.PurchaseRequest{
		PaymentMethod:  "card",
		DeliveryMethod: "courier",
		Phone:          "+8801700000000",
		City:           "Dhaka",
		District:       "Dhaka",
		Country:        "Bangladesh",
		Items:          items,
	})
	return body
}

func doRequest(t *testing.T, router http.Handler, method, path string, body []byte, authed bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if authed {
		req.Header.Set("X-User-Email", "buyer@example.com")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCreatePurchase_Success(t *testing.T) {
	env := setupHandlerTest(t, nil)
	p1 := env.seedProduct(10, 100)

	rec := doRequest(t, env.router, http.MethodPost, "/api/v1/purchase",
		purchaseBody(domain.LineItemRequest{ProductID: p1, Quantity: 2}), true)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Purchase domain.Purchase `json:"purchase"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "buyer@example.com", resp.Purchase.Email)
	assert.Equal(t, 200.0, resp.Purchase.TotalDue)
	assert.Equal(t, int64(8), env.inventory.Stock(p1))
}

func TestCreatePurchase_Unauthorized(t *testing.T) {
	env := setupHandlerTest(t, nil)
	p1 := env.seedProduct(10, 100)

	rec := doRequest(t, env.router, http.MethodPost, "/api/v1/purchase",
		purchaseBody(domain.LineItemRequest{ProductID: p1, Quantity: 2}), false)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, int64(10), env.inventory.Stock(p1))
}

func TestCreatePurchase_InvalidJSON(t *testing.T) {
	env := setupHandlerTest(t, nil)

	rec := doRequest(t, env.router, http.MethodPost, "/api/v1/purchase",
		[]byte("{not json"), true)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreatePurchase_ValidationError(t *testing.T) {
	env := setupHandlerTest(t, nil)

	body, _ := json.Marshal(domain.PurchaseRequest{
		PaymentMethod: "card",
		// delivery method, phone, address fields missing
		Items: []domain.LineItemRequest{{ProductID: primitive.NewObjectID().Hex(), Quantity: 1}},
	})
	rec := doRequest(t, env.router, http.MethodPost, "/api/v1/purchase", body, true)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "invalid_request", resp["code"])
}

func TestCreatePurchase_InsufficientStock(t *testing.T) {
	env := setupHandlerTest(t, nil)
	p1 := env.seedProduct(1, 100)

	rec := doRequest(t, env.router, http.MethodPost, "/api/v1/purchase",
		purchaseBody(domain.LineItemRequest{ProductID: p1, Quantity: 3}), true)

	require.Equal(t, http.StatusConflict, rec.Code)

	var resp struct {
		Code      string `json:"code"`
		ProductID string `json:"productId"`
		Available int64  `json:"available"`
		Requested int64  `json:"requested"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "insufficient_stock", resp.Code)
	assert.Equal(t, p1, resp.ProductID)
	assert.Equal(t, int64(1), resp.Available)
	assert.Equal(t, int64(3), resp.Requested)
}

func TestCreatePurchase_ProductNotFound(t *testing.T) {
	env := setupHandlerTest(t, nil)
	missing := primitive.NewObjectID().Hex()

	rec := doRequest(t, env.router, http.MethodPost, "/api/v1/purchase",
		purchaseBody(domain.LineItemRequest{ProductID: missing, Quantity: 1}), true)

	require.Equal(t, http.StatusNotFound, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "product_not_found", resp["code"])
	assert.Equal(t, missing, resp["productId"])
}

func TestCreatePurchase_AttachesClientSecret(t *testing.T) {
	env := setupHandlerTest(t, &stubIntents{secret: "pi_123_secret"})
	p1 := env.seedProduct(10, 100)

	rec := doRequest(t, env.router, http.MethodPost, "/api/v1/purchase",
		purchaseBody(domain.LineItemRequest{ProductID: p1, Quantity: 1}), true)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "pi_123_secret", resp["clientSecret"])
}

func TestCreatePurchase_IntentFailureStillCommits(t *testing.T) {
	env := setupHandlerTest(t, &stubIntents{err: errors.New("provider down")})
	p1 := env.seedProduct(10, 100)

	rec := doRequest(t, env.router, http.MethodPost, "/api/v1/purchase",
		purchaseBody(domain.LineItemRequest{ProductID: p1, Quantity: 1}), true)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	_, hasSecret := resp["clientSecret"]
	assert.False(t, hasSecret)
	assert.Equal(t, int64(9), env.inventory.Stock(p1))
}

func TestGetPurchase(t *testing.T) {
	env := setupHandlerTest(t, nil)
	p1 := env.seedProduct(10, 100)

	created := doRequest(t, env.router, http.MethodPost, "/api/v1/purchase",
		purchaseBody(domain.LineItemRequest{ProductID: p1, Quantity: 1}), true)
	require.Equal(t, http.StatusCreated, created.Code)

	var createdResp struct {
		Purchase domain.Purchase `json:"purchase"`
	}
	require.NoError(t, json.Unmarshal(created.Body.Bytes(), &createdResp))

	rec := doRequest(t, env.router, http.MethodGet,
		"/api/v1/purchase/"+createdResp.Purchase.ID.Hex(), nil, true)

	require.Equal(t, http.StatusOK, rec.Code)

	var got domain.Purchase
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, createdResp.Purchase.ID, got.ID)
}

func TestGetPurchase_NotFound(t *testing.T) {
	env := setupHandlerTest(t, nil)

	rec := doRequest(t, env.router, http.MethodGet,
		"/api/v1/purchase/"+primitive.NewObjectID().Hex(), nil, true)

	require.Equal(t, http.StatusNotFound, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "purchase_not_found", resp["code"])
}

func TestUpdateStatus_Success(t *testing.T) {
	env := setupHandlerTest(t, nil)
	p1 := env.seedProduct(10, 100)

	created := doRequest(t, env.router, http.MethodPost, "/api/v1/purchase",
		purchaseBody(domain.LineItemRequest{ProductID: p1, Quantity: 1}), true)
	require.Equal(t, http.StatusCreated, created.Code)

	var createdResp struct {
		Purchase domain.Purchase `json:"purchase"`
	}
	require.NoError(t, json.Unmarshal(created.Body.Bytes(), &createdResp))
	id := createdResp.Purchase.ID.Hex()

	rec := doRequest(t, env.router, http.MethodPatch,
		"/api/v1/purchase/"+id+"/status",
		[]byte(`{"delivery":"shipped","paidAmount":100}`), true)

	require.Equal(t, http.StatusOK, rec.Code)

	var got domain.Purchase
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, domain.DeliveryShipped, got.Delivery)
	assert.Equal(t, 100.0, got.PaidAmount)
	require.Len(t, got.Items, 1)
	assert.Equal(t, domain.DeliveryShipped, got.Items[0].Delivery)
}

func TestUpdateStatus_MissingStatusFields(t *testing.T) {
	env := setupHandlerTest(t, nil)

	rec := doRequest(t, env.router, http.MethodPatch,
		"/api/v1/purchase/"+primitive.NewObjectID().Hex()+"/status",
		[]byte(`{"paidAmount":100}`), true)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "invalid_request", resp["code"])
}

func TestUpdateStatus_NotFound(t *testing.T) {
	env := setupHandlerTest(t, nil)

	rec := doRequest(t, env.router, http.MethodPatch,
		"/api/v1/purchase/"+primitive.NewObjectID().Hex()+"/status",
		[]byte(`{"delivery":"shipped"}`), true)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	env := setupHandlerTest(t, nil)

	rec := doRequest(t, env.router, http.MethodGet, "/health", nil, false)
	assert.Equal(t, http.StatusOK, rec.Code)
}
