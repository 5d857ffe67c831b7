package checkout

import (
	"context"
	"testing"
	"time"

	"github.com/junaidrashid-git/cart-api/models"
	"github.com/junaidrashid-git/cart-api/repository/repositorytest"
	cartService "github.com/junaidrashid-git/cart-api/services/cart"
	"github.com/junaidrashid-git/cart-api/services/deals"
	"github.com/junaidrashid-git/cart-api/services/pricing"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

type fixture struct {
	store        *repositorytest.Store
	cart         *cartService.Service
	orchestrator *Orchestrator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := repositorytest.NewStore()
	logger := zap.NewNop()
	store.AddSubproduct(
		models.Subproduct{ID: 1, ProductID: 10, Name: "shirt / M", Price: dec("10.00"), Stock: 5, Available: true},
		models.SubproductScope{BrandID: 100, CategoryIDs: []uint{1000}},
	)
	store.AddSubproduct(
		models.Subproduct{ID: 2, ProductID: 20, Name: "mug", Price: dec("5.00"), Stock: 5, Available: true},
		models.SubproductScope{BrandID: 200},
	)
	evaluator := deals.NewEvaluator(store, logger)
	aggregator := pricing.NewAggregator(store, evaluator, nil, logger)
	return &fixture{
		store:        store,
		cart:         cartService.NewService(store, nil, logger),
		orchestrator: NewOrchestrator(store, aggregator, nil, logger),
	}
}

func addr() models.Address {
	return models.Address{Country: "DE", City: "Berlin", Street: "Unter den Linden 1", PostalCode: "10117"}
}

func (f *fixture) filledCart(t *testing.T, owner models.OwnerKey) *models.Cart {
	t.Helper()
	ctx := context.Background()
	_, err := f.cart.AddItem(ctx, owner, 1, 2)
	require.NoError(t, err)
	_, err = f.cart.AddItem(ctx, owner, 2, 1)
	require.NoError(t, err)
	cart, err := f.cart.Lookup(ctx, owner)
	require.NoError(t, err)
	return cart
}

func TestCheckout_Succeeds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := models.SessionOwner("sess-1")
	cart := f.filledCart(t, owner)

	order, err := f.orchestrator.Checkout(ctx, owner, cart.ID, addr())
	require.NoError(t, err)

	assert.NotEmpty(t, order.OrderRef)
	require.Len(t, order.Items, 2)
	assert.True(t, order.OriginalTotal.Equal(dec("25.00")))
	assert.True(t, order.TotalAmount.Equal(dec("25.00")))
	assert.Equal(t, models.OrderStatusPending, order.Status)

	// Stock was deducted under lock.
	assert.Equal(t, 3, f.store.Subproduct(1).Stock)
	assert.Equal(t, 4, f.store.Subproduct(2).Stock)

	// The cart is converted and emptied.
	converted := f.store.Cart(cart.ID)
	assert.Equal(t, models.CartStatusConverted, converted.Status)
	lines, err := f.cart.Lines(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestCheckout_AppliesBestDeal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := models.SessionOwner("sess-1")
	cart := f.filledCart(t, owner)

	now := time.Now()
	deal := models.Deal{
		ID: 9, Name: "autumn sale", DiscountAmount: dec("20"),
		DiscountType: models.DiscountTypePercentage, DealType: models.DealTypeCart,
		StartDate: now.Add(-time.Hour), EndDate: now.Add(time.Hour), Active: true,
	}
	require.NoError(t, deal.SetConditions(models.DealConditions{MinimumAmount: ptr(dec("20.00"))}))
	f.store.AddDeal(deal)

	order, err := f.orchestrator.Checkout(ctx, owner, cart.ID, addr())
	require.NoError(t, err)

	assert.True(t, order.DiscountAmount.Equal(dec("5.00")))
	assert.True(t, order.TotalAmount.Equal(dec("20.00")))
	require.NotNil(t, order.AppliedDealID)
	assert.Equal(t, uint(9), *order.AppliedDealID)

	// Line snapshots keep the original unit price; the header carries
	// the discount.
	for _, item := range order.Items {
		sp := f.store.Subproduct(item.SubproductID)
		assert.True(t, item.UnitPrice.Equal(sp.Price))
	}
}

func TestCheckout_StockChangedRollsBackEverything(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := models.SessionOwner("sess-1")
	cart := f.filledCart(t, owner)

	// Stock moves between cart population and checkout.
	sp := f.store.Subproduct(1)
	sp.Stock = 1
	require.NoError(t, f.store.Catalog().SaveSubproduct(ctx, &sp))

	_, err := f.orchestrator.Checkout(ctx, owner, cart.ID, addr())
	var stockErr *StockChangedError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, uint(1), stockErr.SubproductID)

	// All-or-nothing: no order, cart still active with its lines, and
	// no stock deducted anywhere.
	assert.Empty(t, f.store.AllOrders())
	assert.Equal(t, models.CartStatusActive, f.store.Cart(cart.ID).Status)
	lines, lerr := f.cart.Lines(ctx, owner)
	require.NoError(t, lerr)
	assert.Len(t, lines, 2)
	assert.Equal(t, 5, f.store.Subproduct(2).Stock, "stock deducted before the failing line must be restored")
}

func TestCheckout_UnavailableLineFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := models.SessionOwner("sess-1")
	cart := f.filledCart(t, owner)

	sp := f.store.Subproduct(2)
	sp.Available = false
	require.NoError(t, f.store.Catalog().SaveSubproduct(ctx, &sp))

	_, err := f.orchestrator.Checkout(ctx, owner, cart.ID, addr())
	var stockErr *StockChangedError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, uint(2), stockErr.SubproductID)
	assert.Empty(t, f.store.AllOrders())
}

func TestCheckout_EmptyCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := models.SessionOwner("sess-1")

	cart, err := f.cart.Resolve(ctx, owner)
	require.NoError(t, err)

	_, err = f.orchestrator.Checkout(ctx, owner, cart.ID, addr())
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestCheckout_OwnershipIsExactMatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := models.SessionOwner("sess-1")
	cart := f.filledCart(t, owner)

	_, err := f.orchestrator.Checkout(ctx, models.SessionOwner("someone-else"), cart.ID, addr())
	assert.ErrorIs(t, err, ErrCartNotOwned)

	_, err = f.orchestrator.Checkout(ctx, models.UserOwner("sess-1"), cart.ID, addr())
	assert.ErrorIs(t, err, ErrCartNotOwned, "a user key never matches a session cart, even with the same value")

	_, err = f.orchestrator.Checkout(ctx, owner, 999, addr())
	assert.ErrorIs(t, err, ErrCartNotFound)
}

func TestCheckout_ConvertedCartCannotCheckOutTwice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := models.SessionOwner("sess-1")
	cart := f.filledCart(t, owner)

	_, err := f.orchestrator.Checkout(ctx, owner, cart.ID, addr())
	require.NoError(t, err)

	_, err = f.orchestrator.Checkout(ctx, owner, cart.ID, addr())
	assert.ErrorIs(t, err, ErrCartClosed)
}

func ptr(d decimal.Decimal) *decimal.Decimal { return &d }
