package cart

import (
	"context"
	"testing"

	"github.com/junaidrashid-git/cart-api/models"
	"github.com/junaidrashid-git/cart-api/repository"
	"github.com/junaidrashid-git/cart-api/repository/repositorytest"
	"github.com/junaidrashid-git/cart-api/services/catalog"
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

func newTestService(t *testing.T) (*Service, *repositorytest.Store) {
	t.Helper()
	store := repositorytest.NewStore()
	store.AddSubproduct(
		models.Subproduct{ID: 1, ProductID: 10, Name: "shirt / M", Price: dec("10.00"), Stock: 5, Available: true},
		models.SubproductScope{BrandID: 100, CategoryIDs: []uint{1000}},
	)
	store.AddSubproduct(
		models.Subproduct{ID: 2, ProductID: 20, Name: "mug", Price: dec("5.00"), Stock: 50, Available: true},
		models.SubproductScope{BrandID: 200, CategoryIDs: []uint{2000}},
	)
	store.AddSubproduct(
		models.Subproduct{ID: 3, ProductID: 30, Name: "retired poster", Price: dec("3.00"), Stock: 10, Available: false},
		models.SubproductScope{BrandID: 300},
	)
	return NewService(store, nil, zap.NewNop()), store
}

func TestResolve_CreatesCartLazily(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	owner := models.SessionOwner("sess-1")

	_, err := svc.Lookup(ctx, owner)
	assert.ErrorIs(t, err, ErrCartNotFound)

	cart, err := svc.Resolve(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, models.CartStatusActive, cart.Status)
	require.NotNil(t, cart.SessionID)
	assert.Equal(t, "sess-1", *cart.SessionID)
	assert.Nil(t, cart.UserID)

	again, err := svc.Resolve(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, cart.ID, again.ID, "resolve must reuse the existing active cart")
}

func TestAddItem_MergesQuantities(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	owner := models.SessionOwner("sess-1")

	lines, err := svc.AddItem(ctx, owner, 1, 1)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 1, lines[0].Item.Quantity)

	lines, err = svc.AddItem(ctx, owner, 1, 1)
	require.NoError(t, err)
	require.Len(t, lines, 1, "re-adding the same subproduct must not create a second row")
	assert.Equal(t, 2, lines[0].Item.Quantity)

	cart := store.Cart(lines[0].Item.CartID)
	assert.True(t, cart.Total.Equal(dec("20.00")), "denormalized total, got %s", cart.Total)
}

func TestAddItem_StockGate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	owner := models.SessionOwner("sess-1")

	_, err := svc.AddItem(ctx, owner, 1, 6)
	assert.ErrorIs(t, err, ErrOutOfStock, "stock is 5")

	lines, err := svc.Lines(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, lines, "failed add must leave no partial row")

	// The merged quantity is what gets validated, not the increment.
	_, err = svc.AddItem(ctx, owner, 1, 3)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, owner, 1, 3)
	assert.ErrorIs(t, err, ErrOutOfStock)

	lines, err = svc.Lines(ctx, owner)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 3, lines[0].Item.Quantity, "failed add must not change the existing line")
}

func TestAddItem_Unavailable(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.AddItem(context.Background(), models.SessionOwner("sess-1"), 3, 1)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestAddItem_Validation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	owner := models.SessionOwner("sess-1")

	_, err := svc.AddItem(ctx, owner, 1, 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.AddItem(ctx, owner, 999, 1)
	assert.ErrorIs(t, err, catalog.ErrNotFound)

	_, err = svc.AddItem(ctx, models.OwnerKey{}, 1, 1)
	assert.ErrorIs(t, err, models.ErrNoOwner)
}

func TestDecrementItem(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	owner := models.SessionOwner("sess-1")

	_, err := svc.AddItem(ctx, owner, 1, 2)
	require.NoError(t, err)

	lines, err := svc.DecrementItem(ctx, owner, 1)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 1, lines[0].Item.Quantity)

	lines, err = svc.DecrementItem(ctx, owner, 1)
	require.NoError(t, err)
	assert.Empty(t, lines, "line is removed when quantity would reach zero")

	_, err = svc.DecrementItem(ctx, owner, 1)
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestRemoveLine(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	owner := models.SessionOwner("sess-1")

	_, err := svc.AddItem(ctx, owner, 1, 3)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, owner, 2, 1)
	require.NoError(t, err)

	lines, err := svc.RemoveLine(ctx, owner, 1)
	require.NoError(t, err)
	require.Len(t, lines, 1, "remove deletes the whole line regardless of quantity")
	assert.Equal(t, uint(2), lines[0].Item.SubproductID)

	cart := store.Cart(lines[0].Item.CartID)
	assert.True(t, cart.Total.Equal(dec("5.00")))

	_, err = svc.RemoveLine(ctx, owner, 1)
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestClear(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	owner := models.SessionOwner("sess-1")

	_, err := svc.AddItem(ctx, owner, 1, 2)
	require.NoError(t, err)

	require.NoError(t, svc.Clear(ctx, owner))

	lines, err := svc.Lines(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, lines)

	// Clearing an owner with no cart is a no-op, not an error.
	require.NoError(t, svc.Clear(ctx, models.SessionOwner("never-seen")))
}

// missOnceStore makes the first locked active-cart lookup miss, the way a
// FOR UPDATE on zero rows does when a concurrent transaction's insert has
// not committed yet. The memory store's Create then rejects the duplicate
// active cart, like the partial unique index on the real table.
type missOnceStore struct {
	*repositorytest.Store
	misses int
}

func (s *missOnceStore) Carts() repository.CartRepository {
	return &missOnceCarts{CartRepository: s.Store.Carts(), outer: s}
}

func (s *missOnceStore) Atomic(ctx context.Context, fn func(repository.Store) error) error {
	return s.Store.Atomic(ctx, func(repository.Store) error { return fn(s) })
}

type missOnceCarts struct {
	repository.CartRepository
	outer *missOnceStore
}

func (r *missOnceCarts) FindActiveByOwnerForUpdate(ctx context.Context, owner models.OwnerKey) (*models.Cart, error) {
	if r.outer.misses > 0 {
		r.outer.misses--
		return nil, repository.ErrNotFound
	}
	return r.CartRepository.FindActiveByOwnerForUpdate(ctx, owner)
}

func TestAddItem_LostCreateRaceReusesWinnersCart(t *testing.T) {
	_, inner := newTestService(t)
	store := &missOnceStore{Store: inner}
	svc := NewService(store, nil, zap.NewNop())
	ctx := context.Background()
	owner := models.SessionOwner("sess-1")

	// The "winner" request established the owner's active cart.
	_, err := svc.AddItem(ctx, owner, 1, 1)
	require.NoError(t, err)

	// The "loser" request misses the lookup, fails its insert on the
	// uniqueness constraint and must fall back to the winner's cart.
	store.misses = 1
	lines, err := svc.AddItem(ctx, owner, 1, 1)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 2, lines[0].Item.Quantity, "both adds must land in the same cart")

	cart, err := svc.Lookup(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, lines[0].Item.CartID, cart.ID, "the owner still has exactly one active cart")
}

func TestMergeGuestCart(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	guest := models.SessionOwner("sess-1")
	user := models.UserOwner("user-1")

	_, err := svc.AddItem(ctx, guest, 1, 2)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, guest, 2, 1)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, user, 1, 1)
	require.NoError(t, err)

	require.NoError(t, svc.MergeGuestCart(ctx, "sess-1", "user-1"))

	lines, err := svc.Lines(ctx, user)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	byID := map[uint]int{}
	for _, line := range lines {
		byID[line.Item.SubproductID] = line.Item.Quantity
	}
	assert.Equal(t, 3, byID[1], "quantities are summed, not overwritten")
	assert.Equal(t, 1, byID[2])

	_, err = svc.Lookup(ctx, guest)
	assert.ErrorIs(t, err, ErrCartNotFound, "guest cart is no longer active after merge")

	userCart, err := svc.Lookup(ctx, user)
	require.NoError(t, err)
	assert.True(t, store.Cart(userCart.ID).Total.Equal(dec("35.00")))
}

func TestMergeGuestCart_Idempotent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	guest := models.SessionOwner("sess-1")
	user := models.UserOwner("user-1")

	_, err := svc.AddItem(ctx, guest, 1, 2)
	require.NoError(t, err)

	require.NoError(t, svc.MergeGuestCart(ctx, "sess-1", "user-1"))
	require.NoError(t, svc.MergeGuestCart(ctx, "sess-1", "user-1"), "retried merge must no-op")

	lines, err := svc.Lines(ctx, user)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 2, lines[0].Item.Quantity, "quantities must not double-count on retry")
}
