package repository

import (
	"context"
	"errors"
	"time"

	"github.com/junaidrashid-git/cart-api/models"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a transaction lost a serialization or
	// deadlock race and may succeed on retry.
	ErrConflict = errors.New("concurrent modification conflict")
	// ErrDuplicate is returned when an insert violates a uniqueness
	// constraint, such as the one-active-cart-per-owner index.
	ErrDuplicate = errors.New("record already exists")
)

// CatalogRepository reads subproducts and their deal-scoping memberships.
// The catalog is read-only from the cart engine's perspective except for
// stock deduction at checkout.
type CatalogRepository interface {
	GetSubproduct(ctx context.Context, id uint) (*models.Subproduct, error)
	// GetSubproductForUpdate locks the row so a stock check and the write
	// that depends on it happen under the same lock.
	GetSubproductForUpdate(ctx context.Context, id uint) (*models.Subproduct, error)
	SaveSubproduct(ctx context.Context, sp *models.Subproduct) error
	// ScopeFor resolves product, brand and category memberships for the
	// given subproducts, keyed by subproduct id.
	ScopeFor(ctx context.Context, subproductIDs []uint) (map[uint]models.SubproductScope, error)
}

// CartRepository owns Cart and CartItem rows.
type CartRepository interface {
	FindActiveByOwner(ctx context.Context, owner models.OwnerKey) (*models.Cart, error)
	FindActiveByOwnerForUpdate(ctx context.Context, owner models.OwnerKey) (*models.Cart, error)
	FindByID(ctx context.Context, id uint) (*models.Cart, error)
	FindByIDForUpdate(ctx context.Context, id uint) (*models.Cart, error)
	Create(ctx context.Context, cart *models.Cart) error
	Save(ctx context.Context, cart *models.Cart) error
	Lines(ctx context.Context, cartID uint) ([]models.CartLine, error)
	FindItemForUpdate(ctx context.Context, cartID, subproductID uint) (*models.CartItem, error)
	SaveItem(ctx context.Context, item *models.CartItem) error
	DeleteItem(ctx context.Context, cartID, subproductID uint) (bool, error)
	DeleteItems(ctx context.Context, cartID uint) error
}

// DealListSort orders admin deal listings.
type DealListSort struct {
	Field string
	Desc  bool
}

// DealRepository reads and (for the admin surface) writes deals.
type DealRepository interface {
	// ListCandidates returns deals whose admin flag is on and whose date
	// window contains now, with scope associations loaded.
	ListCandidates(ctx context.Context, now time.Time) ([]models.Deal, error)
	FindByID(ctx context.Context, id uint) (*models.Deal, error)
	List(ctx context.Context, sort DealListSort) ([]models.Deal, error)
	Create(ctx context.Context, deal *models.Deal) error
	Save(ctx context.Context, deal *models.Deal) error
	Delete(ctx context.Context, id uint) error
}

// OrderRepository writes orders at checkout and reads them back by ref.
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	FindByRef(ctx context.Context, ref string) (*models.Order, error)
}

// Store bundles the repositories behind one transactional boundary.
type Store interface {
	Catalog() CatalogRepository
	Carts() CartRepository
	Deals() DealRepository
	Orders() OrderRepository
	// Atomic runs fn inside a single transaction; the Store passed to fn
	// operates on that transaction. Any error rolls everything back.
	Atomic(ctx context.Context, fn func(Store) error) error
}
