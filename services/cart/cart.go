// Package cart owns all Cart and CartItem mutation: add, decrement,
// remove, clear and the guest-to-user merge that runs at login.
package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/junaidrashid-git/cart-api/cache"
	"github.com/junaidrashid-git/cart-api/models"
	"github.com/junaidrashid-git/cart-api/repository"
	"github.com/junaidrashid-git/cart-api/services/catalog"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrUnavailable     = errors.New("subproduct is not available for purchase")
	ErrOutOfStock      = errors.New("insufficient stock for requested quantity")
	ErrItemNotFound    = errors.New("item is not in the cart")
	ErrCartNotFound    = errors.New("cart not found")
)

type Service struct {
	store  repository.Store
	cache  *cache.PricingCache
	logger *zap.Logger
}

func NewService(store repository.Store, pricingCache *cache.PricingCache, logger *zap.Logger) *Service {
	return &Service{store: store, cache: pricingCache, logger: logger}
}

// atomic runs fn in a transaction, retrying once when the transaction lost
// a serialization race. A second conflict surfaces to the caller.
func (s *Service) atomic(ctx context.Context, fn func(repository.Store) error) error {
	err := s.store.Atomic(ctx, fn)
	if errors.Is(err, repository.ErrConflict) {
		s.logger.Warn("cart transaction conflict, retrying once")
		err = s.store.Atomic(ctx, fn)
	}
	return err
}

func (s *Service) invalidate(ctx context.Context, cartIDs ...uint) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, cartIDs...)
	}
}

// Resolve returns the owner's active cart, creating one lazily.
func (s *Service) Resolve(ctx context.Context, owner models.OwnerKey) (*models.Cart, error) {
	if !owner.Valid() {
		return nil, models.ErrNoOwner
	}
	cart, err := s.store.Carts().FindActiveByOwner(ctx, owner)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("resolve cart: %w", err)
	}
	return s.create(ctx, owner)
}

func (s *Service) create(ctx context.Context, owner models.OwnerKey) (*models.Cart, error) {
	cart := newActiveCart(owner)
	err := s.store.Carts().Create(ctx, cart)
	if errors.Is(err, repository.ErrDuplicate) {
		// Lost the create race: another request inserted the owner's
		// active cart first. The unique index guarantees it exists.
		return s.store.Carts().FindActiveByOwner(ctx, owner)
	}
	if err != nil {
		return nil, fmt.Errorf("create cart: %w", err)
	}
	s.logger.Info("cart created", zap.Uint("cart_id", cart.ID), zap.Bool("user_owned", owner.IsUser()))
	return cart, nil
}

func newActiveCart(owner models.OwnerKey) *models.Cart {
	cart := &models.Cart{Status: models.CartStatusActive, Currency: "USD"}
	if owner.IsUser() {
		cart.UserID = &owner.UserID
	} else {
		cart.SessionID = &owner.SessionID
	}
	return cart
}

// Lookup returns the owner's active cart without create semantics.
func (s *Service) Lookup(ctx context.Context, owner models.OwnerKey) (*models.Cart, error) {
	if !owner.Valid() {
		return nil, models.ErrNoOwner
	}
	cart, err := s.store.Carts().FindActiveByOwner(ctx, owner)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrCartNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup cart: %w", err)
	}
	return cart, nil
}

// Lines returns the owner's current cart lines. A missing cart is an
// empty cart, not an error.
func (s *Service) Lines(ctx context.Context, owner models.OwnerKey) ([]models.CartLine, error) {
	cart, err := s.Lookup(ctx, owner)
	if errors.Is(err, ErrCartNotFound) {
		return []models.CartLine{}, nil
	}
	if err != nil {
		return nil, err
	}
	lines, err := s.store.Carts().Lines(ctx, cart.ID)
	if err != nil {
		return nil, fmt.Errorf("load cart lines: %w", err)
	}
	return lines, nil
}

// AddItem adds quantity units of a subproduct to the owner's cart,
// merging with any existing line (the resulting quantity is validated
// against stock, not just the increment). Returns the full updated line
// list.
func (s *Service) AddItem(ctx context.Context, owner models.OwnerKey, subproductID uint, quantity int) ([]models.CartLine, error) {
	if !owner.Valid() {
		return nil, models.ErrNoOwner
	}
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	var lines []models.CartLine
	err := s.atomic(ctx, func(st repository.Store) error {
		// Lock the stock row first so the availability check and the
		// item write happen under one lock.
		sp, err := st.Catalog().GetSubproductForUpdate(ctx, subproductID)
		if errors.Is(err, repository.ErrNotFound) {
			return catalog.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("load subproduct %d: %w", subproductID, err)
		}

		cart, err := s.resolveForUpdate(ctx, st, owner)
		if err != nil {
			return err
		}

		resulting := quantity
		item, err := st.Carts().FindItemForUpdate(ctx, cart.ID, subproductID)
		switch {
		case err == nil:
			resulting = item.Quantity + quantity
		case errors.Is(err, repository.ErrNotFound):
			item = &models.CartItem{CartID: cart.ID, SubproductID: subproductID}
		default:
			return fmt.Errorf("load cart item: %w", err)
		}

		if !sp.Available {
			return ErrUnavailable
		}
		if !catalog.IsPurchasable(sp, resulting) {
			return ErrOutOfStock
		}

		item.Quantity = resulting
		item.AddedAt = time.Now()
		if err := st.Carts().SaveItem(ctx, item); err != nil {
			return fmt.Errorf("save cart item: %w", err)
		}

		lines, err = s.recomputeTotal(ctx, st, cart)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, lines[0].Item.CartID)
	s.logger.Info("item added",
		zap.Uint("subproduct_id", subproductID),
		zap.Int("quantity", quantity))
	return lines, nil
}

// resolveForUpdate locks the owner's active cart inside the current
// transaction, creating one when the owner has none yet. FOR UPDATE on
// zero rows locks nothing, so two first requests can both miss and both
// insert; the partial unique index on active carts makes the loser's
// insert fail with ErrDuplicate, and the loser refetches the winner's
// cart instead of splitting the owner across two carts.
func (s *Service) resolveForUpdate(ctx context.Context, st repository.Store, owner models.OwnerKey) (*models.Cart, error) {
	cart, err := st.Carts().FindActiveByOwnerForUpdate(ctx, owner)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("lock cart: %w", err)
	}
	cart = newActiveCart(owner)
	err = st.Carts().Create(ctx, cart)
	if errors.Is(err, repository.ErrDuplicate) {
		cart, err = st.Carts().FindActiveByOwnerForUpdate(ctx, owner)
		if err != nil {
			return nil, fmt.Errorf("refetch cart after lost create race: %w", err)
		}
		return cart, nil
	}
	if err != nil {
		return nil, fmt.Errorf("create cart: %w", err)
	}
	return cart, nil
}

// DecrementItem lowers the line's quantity by one, removing the line when
// it would reach zero.
func (s *Service) DecrementItem(ctx context.Context, owner models.OwnerKey, subproductID uint) ([]models.CartLine, error) {
	return s.mutateLine(ctx, owner, subproductID, func(st repository.Store, cart *models.Cart, item *models.CartItem) error {
		if item.Quantity <= 1 {
			_, err := st.Carts().DeleteItem(ctx, cart.ID, subproductID)
			return err
		}
		item.Quantity--
		return st.Carts().SaveItem(ctx, item)
	})
}

// RemoveLine deletes the whole line for the subproduct.
func (s *Service) RemoveLine(ctx context.Context, owner models.OwnerKey, subproductID uint) ([]models.CartLine, error) {
	return s.mutateLine(ctx, owner, subproductID, func(st repository.Store, cart *models.Cart, item *models.CartItem) error {
		_, err := st.Carts().DeleteItem(ctx, cart.ID, subproductID)
		return err
	})
}

func (s *Service) mutateLine(ctx context.Context, owner models.OwnerKey, subproductID uint,
	mutate func(repository.Store, *models.Cart, *models.CartItem) error) ([]models.CartLine, error) {

	if !owner.Valid() {
		return nil, models.ErrNoOwner
	}
	var lines []models.CartLine
	var cartID uint
	err := s.atomic(ctx, func(st repository.Store) error {
		cart, err := st.Carts().FindActiveByOwnerForUpdate(ctx, owner)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrCartNotFound
		}
		if err != nil {
			return fmt.Errorf("lock cart: %w", err)
		}
		cartID = cart.ID

		item, err := st.Carts().FindItemForUpdate(ctx, cart.ID, subproductID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrItemNotFound
		}
		if err != nil {
			return fmt.Errorf("load cart item: %w", err)
		}

		if err := mutate(st, cart, item); err != nil {
			return err
		}
		lines, err = s.recomputeTotal(ctx, st, cart)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, cartID)
	return lines, nil
}

// Clear removes every line from the owner's cart.
func (s *Service) Clear(ctx context.Context, owner models.OwnerKey) error {
	if !owner.Valid() {
		return models.ErrNoOwner
	}
	var cartID uint
	err := s.atomic(ctx, func(st repository.Store) error {
		cart, err := st.Carts().FindActiveByOwnerForUpdate(ctx, owner)
		if errors.Is(err, repository.ErrNotFound) {
			return nil // nothing to clear
		}
		if err != nil {
			return fmt.Errorf("lock cart: %w", err)
		}
		cartID = cart.ID
		if err := st.Carts().DeleteItems(ctx, cart.ID); err != nil {
			return fmt.Errorf("clear cart items: %w", err)
		}
		_, err = s.recomputeTotal(ctx, st, cart)
		return err
	})
	if err != nil {
		return err
	}
	if cartID != 0 {
		s.invalidate(ctx, cartID)
		s.logger.Info("cart cleared", zap.Uint("cart_id", cartID))
	}
	return nil
}

// MergeGuestCart folds the session cart into the user's cart at login.
// Quantities are summed per subproduct. The whole merge is one
// transaction, and the guest cart is flipped to abandoned inside it, so a
// retried login finds a non-active guest cart and no-ops — that is what
// makes the merge idempotent.
func (s *Service) MergeGuestCart(ctx context.Context, sessionID, userID string) error {
	if sessionID == "" || userID == "" {
		return models.ErrNoOwner
	}
	var touched []uint
	err := s.atomic(ctx, func(st repository.Store) error {
		guestCart, err := st.Carts().FindActiveByOwnerForUpdate(ctx, models.SessionOwner(sessionID))
		if errors.Is(err, repository.ErrNotFound) {
			return nil // already merged, or guest never had a cart
		}
		if err != nil {
			return fmt.Errorf("lock guest cart: %w", err)
		}

		userCart, err := s.resolveForUpdate(ctx, st, models.UserOwner(userID))
		if err != nil {
			return fmt.Errorf("resolve user cart: %w", err)
		}

		guestLines, err := st.Carts().Lines(ctx, guestCart.ID)
		if err != nil {
			return fmt.Errorf("load guest lines: %w", err)
		}
		for _, line := range guestLines {
			item, err := st.Carts().FindItemForUpdate(ctx, userCart.ID, line.Item.SubproductID)
			switch {
			case err == nil:
				item.Quantity += line.Item.Quantity
			case errors.Is(err, repository.ErrNotFound):
				item = &models.CartItem{
					CartID:       userCart.ID,
					SubproductID: line.Item.SubproductID,
					Quantity:     line.Item.Quantity,
				}
			default:
				return fmt.Errorf("load user cart item: %w", err)
			}
			item.AddedAt = time.Now()
			if err := st.Carts().SaveItem(ctx, item); err != nil {
				return fmt.Errorf("save merged item: %w", err)
			}
		}

		if err := st.Carts().DeleteItems(ctx, guestCart.ID); err != nil {
			return fmt.Errorf("empty guest cart: %w", err)
		}
		guestCart.Status = models.CartStatusAbandoned
		guestCart.Total = decimal.Zero
		if err := st.Carts().Save(ctx, guestCart); err != nil {
			return fmt.Errorf("retire guest cart: %w", err)
		}

		if _, err := s.recomputeTotal(ctx, st, userCart); err != nil {
			return err
		}
		touched = []uint{guestCart.ID, userCart.ID}
		return nil
	})
	if err != nil {
		return err
	}
	if len(touched) > 0 {
		s.invalidate(ctx, touched...)
		s.logger.Info("guest cart merged",
			zap.String("session_id", sessionID),
			zap.String("user_id", userID))
	}
	return nil
}

// recomputeTotal refreshes the cart's denormalized pre-discount total and
// returns the current lines.
func (s *Service) recomputeTotal(ctx context.Context, st repository.Store, cart *models.Cart) ([]models.CartLine, error) {
	lines, err := st.Carts().Lines(ctx, cart.ID)
	if err != nil {
		return nil, fmt.Errorf("load cart lines: %w", err)
	}
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.Subtotal())
	}
	cart.Total = total
	if err := st.Carts().Save(ctx, cart); err != nil {
		return nil, fmt.Errorf("save cart total: %w", err)
	}
	return lines, nil
}
