package checkoutControllers

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/junaidrashid-git/cart-api/middleware"
	"github.com/junaidrashid-git/cart-api/models"
	"github.com/junaidrashid-git/cart-api/repository/repositorytest"
	cartService "github.com/junaidrashid-git/cart-api/services/cart"
	checkoutService "github.com/junaidrashid-git/cart-api/services/checkout"
	"github.com/junaidrashid-git/cart-api/services/deals"
	"github.com/junaidrashid-git/cart-api/services/pricing"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	store *repositorytest.Store
	cart  *cartService.Service
	r     *gin.Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := repositorytest.NewStore()
	logger := zap.NewNop()
	store.AddSubproduct(
		models.Subproduct{ID: 1, ProductID: 10, Name: "shirt / M", Price: decimal.RequireFromString("10.00"), Stock: 5, Available: true},
		models.SubproductScope{BrandID: 100},
	)
	cart := cartService.NewService(store, nil, logger)
	aggregator := pricing.NewAggregator(store, deals.NewEvaluator(store, logger), nil, logger)
	orchestrator := checkoutService.NewOrchestrator(store, aggregator, nil, logger)

	r := gin.New()
	r.POST("/checkout/:cartID", middleware.Identity, Checkout(orchestrator))
	return &fixture{store: store, cart: cart, r: r}
}

func bearer(t *testing.T, userID string) string {
	t.Helper()
	claims := jwt.MapClaims{"user_id": userID, "exp": time.Now().Add(time.Hour).Unix()}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return "Bearer " + token
}

func (f *fixture) post(path string, body io.Reader, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	f.r.ServeHTTP(w, req)
	return w
}

func TestCheckoutEndpoint_UserWithoutBodySucceeds(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	f := newFixture(t)
	owner := models.UserOwner("user-1")

	_, err := f.cart.AddItem(context.Background(), owner, 1, 1)
	require.NoError(t, err)
	cart, err := f.cart.Lookup(context.Background(), owner)
	require.NoError(t, err)

	w := f.post("/checkout/1", http.NoBody, map[string]string{
		"Authorization": bearer(t, "user-1"),
	})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, models.CartStatusConverted, f.store.Cart(cart.ID).Status)
}

func TestCheckoutEndpoint_GuestWithoutAddressRejected(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	f := newFixture(t)
	owner := models.SessionOwner("sess-1")

	_, err := f.cart.AddItem(context.Background(), owner, 1, 1)
	require.NoError(t, err)

	w := f.post("/checkout/1", http.NoBody, map[string]string{
		middleware.SessionHeader: "sess-1",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, models.CartStatusActive, f.store.Cart(1).Status, "the cart must stay untouched")
}

func TestCheckoutEndpoint_MalformedBodyRejected(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	f := newFixture(t)

	w := f.post("/checkout/1", bytes.NewBufferString("{not json"), map[string]string{
		"Authorization": bearer(t, "user-1"),
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}
