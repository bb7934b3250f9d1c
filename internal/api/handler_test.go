package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"checkout-service/config"
	"checkout-service/internal/identity"
	"checkout-service/internal/mocks"
	"checkout-service/internal/models"
	"checkout-service/internal/ratelimit"
	"checkout-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupRouter(t *testing.T, st *mocks.MockCheckoutStore, cfg config.CheckoutConfig) (*gin.Engine, *mocks.MockUserStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	users := new(mocks.MockUserStore)
	resolver := identity.NewResolver(users, cfg.PhoneConflictPolicy)

	inv := new(mocks.MockStockAdjuster)
	inv.On("Apply", mock.Anything, mock.Anything, mock.Anything).Maybe()

	pub := new(mocks.MockPublisher)
	pub.On("PublishOrderPlaced", mock.Anything, mock.Anything).Return(nil).Maybe()

	mailer := new(mocks.MockMailer)

	checkout := service.NewCheckoutService(st, resolver, ratelimit.New(), inv, pub, mailer, cfg)

	router := gin.New()
	handler := NewHandler(checkout, nil, nil)
	handler.SetupRoutes(router)
	return router, users
}

func testCheckoutConfig() config.CheckoutConfig {
	return config.CheckoutConfig{
		IPRateLimit:         50,
		IPRateWindow:        15 * time.Minute,
		PhoneRateLimit:      200,
		PhoneRateWindow:     60 * time.Minute,
		MaxPendingOrders:    20,
		PhoneConflictPolicy: identity.PolicyIgnore,
	}
}

func checkoutBody() map[string]interface{} {
	return map[string]interface{}{
		"items": []map[string]interface{}{
			{"productId": 7, "quantity": 2, "unitPrice": 500},
		},
		"shippingAddress": map[string]interface{}{
			"fullName":    "Rahim",
			"phoneNumber": "01812345678",
			"address":     "House 12, Road 3, Dhanmondi",
			"district":    "Dhaka",
			"thana":       "Dhanmondi",
		},
		"total": 1060,
	}
}

func postCheckout(router *gin.Engine, body map[string]interface{}, headers map[string]string) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCheckoutCreated(t *testing.T) {
	st := new(mocks.MockCheckoutStore)
	st.On("CountPendingOrdersByPhone", mock.Anything, "01812345678").Return(0, nil)
	st.On("CreateOrderWithItems", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			args.Get(1).(*models.Order).ID = "ord-1"
		}).Return(nil)

	router, users := setupRouter(t, st, testCheckoutConfig())
	users.On("FindUserByPhone", mock.Anything, "01812345678").Return(nil, nil)
	users.On("CreateUser", mock.Anything, "01812345678", "Rahim", "", true).
		Return(&models.User{ID: "u1", IsGuest: true}, nil)

	w := postCheckout(router, checkoutBody(), nil)

	require.Equal(t, http.StatusCreated, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ord-1", resp["orderId"])
}

func TestCheckoutInvalidPhone(t *testing.T) {
	st := new(mocks.MockCheckoutStore)
	router, _ := setupRouter(t, st, testCheckoutConfig())

	body := checkoutBody()
	body["shippingAddress"].(map[string]interface{})["phoneNumber"] = "12345"

	w := postCheckout(router, body, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	st.AssertNotCalled(t, "CreateOrderWithItems")
}

func TestCheckoutEmptyCart(t *testing.T) {
	st := new(mocks.MockCheckoutStore)
	router, _ := setupRouter(t, st, testCheckoutConfig())

	body := checkoutBody()
	body["items"] = []map[string]interface{}{}

	w := postCheckout(router, body, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCheckoutRateLimited(t *testing.T) {
	st := new(mocks.MockCheckoutStore)
	st.On("CountPendingOrdersByPhone", mock.Anything, mock.Anything).Return(0, nil)
	st.On("CreateOrderWithItems", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			args.Get(1).(*models.Order).ID = "ord-1"
		}).Return(nil)

	cfg := testCheckoutConfig()
	cfg.IPRateLimit = 1

	router, users := setupRouter(t, st, cfg)
	users.On("FindUserByPhone", mock.Anything, mock.Anything).Return(nil, nil)
	users.On("CreateUser", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&models.User{ID: "u1"}, nil)

	headers := map[string]string{"X-Forwarded-For": "203.0.113.9"}

	w := postCheckout(router, checkoutBody(), headers)
	require.Equal(t, http.StatusCreated, w.Code)

	w = postCheckout(router, checkoutBody(), headers)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestGetStock(t *testing.T) {
	gin.SetMode(gin.TestMode)

	st := new(mocks.MockInventoryStore)
	st.On("GetProductsByIDs", mock.Anything, []int64{7, 9}).Return([]models.Product{
		{ID: 7, Quantity: 8},
		{ID: 9, Quantity: 0},
	}, nil)

	router := gin.New()
	handler := NewHandler(nil, nil, service.NewInventory(st, nil))
	handler.SetupRoutes(router)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stock?ids=7,9", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Stock map[string]int `json:"stock"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 8, resp.Stock["7"])
	assert.Equal(t, 0, resp.Stock["9"])
}

func TestGetStockRejectsBadIDs(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	handler := NewHandler(nil, nil, service.NewInventory(new(mocks.MockInventoryStore), nil))
	handler.SetupRoutes(router)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stock?ids=7,abc", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCheckoutAuthenticatedIdentityHeader(t *testing.T) {
	st := new(mocks.MockCheckoutStore)
	st.On("CountPendingOrdersByPhone", mock.Anything, mock.Anything).Return(0, nil)
	st.On("CreateOrderWithItems", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			args.Get(1).(*models.Order).ID = "ord-2"
		}).Return(nil)

	router, users := setupRouter(t, st, testCheckoutConfig())
	me := &models.User{ID: "acc"}
	users.On("FindUserByID", mock.Anything, "acc").Return(me, nil)
	users.On("FindUserByPhone", mock.Anything, "01812345678").Return(nil, nil)
	users.On("UpdateUserPhone", mock.Anything, "acc", "01812345678").Return(me, nil)

	w := postCheckout(router, checkoutBody(), map[string]string{"X-User-ID": "acc"})

	require.Equal(t, http.StatusCreated, w.Code)
	users.AssertCalled(t, "FindUserByID", mock.Anything, "acc")
}
