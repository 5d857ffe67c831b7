// Package checkout converts an owned, non-empty cart into an immutable
// order inside a single transaction.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/junaidrashid-git/cart-api/cache"
	"github.com/junaidrashid-git/cart-api/models"
	"github.com/junaidrashid-git/cart-api/repository"
	"github.com/junaidrashid-git/cart-api/services/catalog"
	"github.com/junaidrashid-git/cart-api/services/pricing"
	"go.uber.org/zap"
)

var (
	ErrCartNotFound = errors.New("cart not found")
	ErrCartNotOwned = errors.New("cart does not belong to the caller")
	ErrCartClosed   = errors.New("cart is no longer active")
	ErrEmptyCart    = errors.New("cart is empty")
)

// StockChangedError reports a line whose subproduct is no longer
// purchasable at its carted quantity.
type StockChangedError struct {
	SubproductID uint
	Name         string
}

func (e *StockChangedError) Error() string {
	return fmt.Sprintf("stock changed for %q (subproduct %d); reduce quantity or remove the item", e.Name, e.SubproductID)
}

type Orchestrator struct {
	store      repository.Store
	aggregator *pricing.Aggregator
	cache      *cache.PricingCache
	logger     *zap.Logger
	now        func() time.Time
}

func NewOrchestrator(store repository.Store, aggregator *pricing.Aggregator, pricingCache *cache.PricingCache, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		store:      store,
		aggregator: aggregator,
		cache:      pricingCache,
		logger:     logger,
		now:        time.Now,
	}
}

// Checkout validates the cart, snapshots it into an order, deducts stock
// and flips the cart to converted — all in one transaction. Any failure
// rolls the whole thing back: no order row, cart still active.
func (o *Orchestrator) Checkout(ctx context.Context, owner models.OwnerKey, cartID uint, addr models.Address) (*models.Order, error) {
	if !owner.Valid() {
		return nil, models.ErrNoOwner
	}

	var order *models.Order
	err := o.store.Atomic(ctx, func(st repository.Store) error {
		cart, err := st.Carts().FindByIDForUpdate(ctx, cartID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrCartNotFound
		}
		if err != nil {
			return fmt.Errorf("lock cart %d: %w", cartID, err)
		}
		if !cart.OwnedBy(owner) {
			return ErrCartNotOwned
		}
		if cart.Status != models.CartStatusActive {
			return ErrCartClosed
		}

		lines, err := st.Carts().Lines(ctx, cart.ID)
		if err != nil {
			return fmt.Errorf("load cart lines: %w", err)
		}
		if len(lines) == 0 {
			return ErrEmptyCart
		}

		// Re-validate every line under lock: time has passed since the
		// cart was built and stock may have moved.
		orderItems := make([]models.OrderItem, 0, len(lines))
		for _, line := range lines {
			sp, err := st.Catalog().GetSubproductForUpdate(ctx, line.Item.SubproductID)
			if errors.Is(err, repository.ErrNotFound) {
				return &StockChangedError{SubproductID: line.Item.SubproductID, Name: line.Subproduct.Name}
			}
			if err != nil {
				return fmt.Errorf("lock subproduct %d: %w", line.Item.SubproductID, err)
			}
			if !catalog.IsPurchasable(sp, line.Item.Quantity) {
				return &StockChangedError{SubproductID: sp.ID, Name: sp.Name}
			}
			sp.Stock -= line.Item.Quantity
			if err := st.Catalog().SaveSubproduct(ctx, sp); err != nil {
				return fmt.Errorf("deduct stock for subproduct %d: %w", sp.ID, err)
			}
			orderItems = append(orderItems, models.OrderItem{
				SubproductID: sp.ID,
				Name:         sp.Name,
				UnitPrice:    sp.Price,
				Quantity:     line.Item.Quantity,
			})
		}

		priced, err := o.aggregator.PriceCartIn(ctx, st, cart, o.now())
		if err != nil {
			return fmt.Errorf("price cart: %w", err)
		}

		order = &models.Order{
			OrderRef:       generateOrderRef(),
			UserID:         cart.UserID,
			SessionID:      cart.SessionID,
			Items:          orderItems,
			OriginalTotal:  priced.OriginalTotal,
			DiscountAmount: priced.DiscountAmount,
			TotalAmount:    priced.FinalTotal,
			Currency:       cart.Currency,
			Status:         models.OrderStatusPending,
			PaymentStatus:  models.PaymentStatusPending,
			Address:        addr,
		}
		if priced.AppliedDeal != nil {
			dealID := priced.AppliedDeal.ID
			order.AppliedDealID = &dealID
		}
		if err := st.Orders().Create(ctx, order); err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		if err := st.Carts().DeleteItems(ctx, cart.ID); err != nil {
			return fmt.Errorf("void cart items: %w", err)
		}
		cart.Status = models.CartStatusConverted
		cart.Total = priced.FinalTotal
		if err := st.Carts().Save(ctx, cart); err != nil {
			return fmt.Errorf("convert cart: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if o.cache != nil {
		o.cache.Invalidate(ctx, cartID)
	}
	o.logger.Info("checkout completed",
		zap.Uint("cart_id", cartID),
		zap.String("order_ref", order.OrderRef),
		zap.String("total", order.TotalAmount.String()))
	return order, nil
}

// Order fetches a previously created order by its reference.
func (o *Orchestrator) Order(ctx context.Context, ref string) (*models.Order, error) {
	order, err := o.store.Orders().FindByRef(ctx, ref)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load order %s: %w", ref, err)
	}
	return order, nil
}

func generateOrderRef() string {
	return time.Now().Format("20060102150405") + "-" + uuid.NewString()
}
