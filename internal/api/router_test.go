package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jafarshop/storefront/internal/api"
	"github.com/jafarshop/storefront/internal/app"
	"github.com/jafarshop/storefront/internal/config"
	"github.com/jafarshop/storefront/internal/export"
)

func testConfig() *config.Config {
	return &config.Config{
		Environment: "test",
		Storage:     config.StorageConfig{Driver: "memory"},
		Auth:        config.AuthConfig{JWTSecret: "test-secret", SessionTTL: time.Hour},
		Storefront: config.StorefrontConfig{
			BaseCurrency:          "SAR",
			DefaultLanguage:       "en",
			DefaultCurrency:       "SAR",
			CurrencyRates:         map[string]string{"USD": "3.75"},
			DeliveryDays:          7,
			ShippingFee:           "25",
			FreeShippingThreshold: "200",
			VATRate:               "0.15",
			AllowedOrigins:        []string{"*"},
		},
	}
}

type client struct {
	t      *testing.T
	router *gin.Engine
	token  string
}

func newClient(t *testing.T) *client {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := testConfig()
	a, err := app.Build(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return &client{t: t, router: api.NewRouter(cfg, a.Stores, a.Hub, zap.NewNop())}
}

func (c *client) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func address() map[string]interface{} {
	return map[string]interface{}{
		"fullName": "Sara Ali",
		"phone":    "+966500000000",
		"street":   "King Fahd Rd",
		"city":     "Riyadh",
		"country":  "SA",
	}
}

func TestHealth(t *testing.T) {
	c := newClient(t)
	w := c.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestFederatedLoginIsNotRouted(t *testing.T) {
	c := newClient(t)
	w := c.do(http.MethodPost, "/v1/auth/login/google", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCatalogEndpoints(t *testing.T) {
	c := newClient(t)

	w := c.do(http.MethodGet, "/v1/products", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 7, decode(t, w)["count"])

	w = c.do(http.MethodGet, "/v1/products?q=oud", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["count"])

	w = c.do(http.MethodGet, "/v1/products/7", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "95.00 SAR", decode(t, w)["displayPrice"])

	w = c.do(http.MethodGet, "/v1/products/404", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = c.do(http.MethodPut, "/v1/settings", map[string]string{"currency": "USD"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = c.do(http.MethodGet, "/v1/products/5", nil)
	assert.Equal(t, "$40.00", decode(t, w)["displayPrice"])
}

func TestGuestCheckoutAndInvoice(t *testing.T) {
	c := newClient(t)

	w := c.do(http.MethodPost, "/v1/cart/items", map[string]interface{}{"productId": "7", "quantity": 2})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.EqualValues(t, 2, decode(t, w)["totalItems"])

	w = c.do(http.MethodPost, "/v1/orders", map[string]interface{}{"paymentMethod": "cash"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, "no address and no default address")

	w = c.do(http.MethodPost, "/v1/orders", map[string]interface{}{"paymentMethod": "cash", "address": address()})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	order := decode(t, w)
	assert.Equal(t, "SAR", order["currency"])
	assert.Equal(t, "pending", order["status"])
	assert.Equal(t, true, order["cancellable"])
	id := order["id"].(string)

	w = c.do(http.MethodGet, "/v1/cart", nil)
	assert.EqualValues(t, 0, decode(t, w)["totalItems"])

	w = c.do(http.MethodGet, "/v1/orders/"+id+"/invoice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, export.ContentTypeXLSX, w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("PK")))

	w = c.do(http.MethodPost, "/v1/orders/"+id+"/cancel", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = c.do(http.MethodPost, "/v1/orders/"+id+"/cancel", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCheckoutPricesComeFromCatalog(t *testing.T) {
	c := newClient(t)

	tampered := map[string]interface{}{
		"paymentMethod": "cash",
		"address":       address(),
		"items": []map[string]interface{}{{
			"productId": "2",
			"quantity":  3,
			"product":   map[string]interface{}{"id": "2", "name": "Free Watch", "price": "0.01"},
		}},
	}
	w := c.do(http.MethodPost, "/v1/orders", tampered)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	order := decode(t, w)
	assert.True(t, decimal.RequireFromString(order["total"].(string)).Equal(decimal.RequireFromString("2697")),
		"total is %v", order["total"])
	items := order["items"].([]interface{})
	require.Len(t, items, 1)
	line := items[0].(map[string]interface{})
	assert.Equal(t, "Smart Watch Series 5", line["product"].(map[string]interface{})["name"])
	assert.EqualValues(t, 3, line["quantity"])

	w = c.do(http.MethodPost, "/v1/orders", map[string]interface{}{
		"paymentMethod": "cash",
		"address":       address(),
		"items":         []map[string]interface{}{{"productId": "does-not-exist", "quantity": 1}},
	})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = c.do(http.MethodGet, "/v1/orders/"+order["id"].(string), nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestSignedInFlow(t *testing.T) {
	c := newClient(t)

	w := c.do(http.MethodGet, "/v1/me", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = c.do(http.MethodPost, "/v1/auth/register", map[string]interface{}{
		"email": "sara@example.com", "password": "secret1", "confirmPassword": "nope",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = c.do(http.MethodPost, "/v1/auth/register", map[string]interface{}{
		"email": "sara@example.com", "password": "secret1", "confirmPassword": "secret1", "displayName": "Sara",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	c.token = decode(t, w)["token"].(string)

	w = c.do(http.MethodGet, "/v1/me", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Sara")

	w = c.do(http.MethodPost, "/v1/addresses", address())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = c.do(http.MethodPost, "/v1/cart/items", map[string]interface{}{"productId": "3"})
	require.Equal(t, http.StatusOK, w.Code)
	w = c.do(http.MethodPost, "/v1/orders", map[string]interface{}{"paymentMethod": "card"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := decode(t, w)["id"].(string)

	w = c.do(http.MethodGet, "/v1/orders", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["count"])

	w = c.do(http.MethodPost, "/v1/seller/products", map[string]interface{}{"name": "Oud", "price": "10"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = c.do(http.MethodGet, "/v1/admin/seller-requests", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	token := c.token
	c.token = ""
	w = c.do(http.MethodGet, "/v1/orders/"+id, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code, "user orders are private")

	c.token = "not-a-token"
	w = c.do(http.MethodGet, "/v1/products", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	c.token = token
	w = c.do(http.MethodPost, "/v1/auth/logout", nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	w = c.do(http.MethodGet, "/v1/me", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSellerRequestEndpoint(t *testing.T) {
	c := newClient(t)
	w := c.do(http.MethodPost, "/v1/auth/register", map[string]interface{}{
		"email": "sara@example.com", "password": "secret1", "confirmPassword": "secret1",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	c.token = decode(t, w)["token"].(string)

	w = c.do(http.MethodPost, "/v1/seller/request", map[string]interface{}{
		"storeName": "Oud House", "phone": "+966500000000", "email": "store@example.com", "age": 16,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = c.do(http.MethodPost, "/v1/seller/request", map[string]interface{}{
		"storeName": "Oud House", "phone": "+966500000000", "email": "store@example.com", "age": 30,
	})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	w = c.do(http.MethodPost, "/v1/seller/verify-email", map[string]interface{}{"code": "not-the-code"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
