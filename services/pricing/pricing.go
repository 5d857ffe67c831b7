// Package pricing combines live cart lines with the deal evaluator to
// produce the totals the storefront shows.
package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/junaidrashid-git/cart-api/cache"
	"github.com/junaidrashid-git/cart-api/models"
	"github.com/junaidrashid-git/cart-api/repository"
	"github.com/junaidrashid-git/cart-api/services/deals"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PricedCart is the full pricing picture for a cart: live line data,
// pre-discount total, the single applied deal (if any) and the final
// amount due.
type PricedCart struct {
	CartID         uint              `json:"cart_id"`
	Items          []models.CartItem `json:"items"`
	OriginalTotal  decimal.Decimal   `json:"original_total"`
	DiscountAmount decimal.Decimal   `json:"discount_amount"`
	FinalTotal     decimal.Decimal   `json:"final_total"`
	AppliedDeal    *models.Deal      `json:"applied_deal"`
}

type Aggregator struct {
	store     repository.Store
	evaluator *deals.Evaluator
	cache     *cache.PricingCache
	logger    *zap.Logger
	now       func() time.Time
}

func NewAggregator(store repository.Store, evaluator *deals.Evaluator, pricingCache *cache.PricingCache, logger *zap.Logger) *Aggregator {
	return &Aggregator{
		store:     store,
		evaluator: evaluator,
		cache:     pricingCache,
		logger:    logger,
		now:       time.Now,
	}
}

// PriceCart prices the owner's active cart. Read-only and idempotent;
// results are cached per cart until the next mutation.
func (a *Aggregator) PriceCart(ctx context.Context, cart *models.Cart) (*PricedCart, error) {
	if a.cache != nil {
		if payload, err := a.cache.Get(ctx, cart.ID); err == nil {
			var priced PricedCart
			if err := json.Unmarshal(payload, &priced); err == nil {
				return &priced, nil
			}
			// A corrupt entry is just a miss.
			a.cache.Invalidate(ctx, cart.ID)
		}
	}

	priced, err := a.PriceCartIn(ctx, a.store, cart, a.now())
	if err != nil {
		return nil, err
	}

	if a.cache != nil {
		if payload, err := json.Marshal(priced); err == nil {
			a.cache.Set(ctx, cart.ID, payload)
		}
	}
	return priced, nil
}

// PriceCartIn prices the cart against the given store at the given
// instant, so checkout can price inside its own transaction.
func (a *Aggregator) PriceCartIn(ctx context.Context, store repository.Store, cart *models.Cart, now time.Time) (*PricedCart, error) {
	cartLines, err := store.Carts().Lines(ctx, cart.ID)
	if err != nil {
		return nil, fmt.Errorf("load cart lines: %w", err)
	}

	dealLines, err := a.dealLines(ctx, store, cartLines)
	if err != nil {
		return nil, err
	}

	original := decimal.Zero
	for _, line := range dealLines {
		original = original.Add(line.Subtotal())
	}

	app, err := a.evaluator.EvaluateIn(ctx, store, dealLines, now)
	if err != nil {
		return nil, fmt.Errorf("evaluate deals: %w", err)
	}

	discount := decimal.Zero
	var applied *models.Deal
	if app != nil {
		discount = app.Discount
		applied = &app.Deal
	}

	// One half-up rounding at the very end, never per line, so repeated
	// pricing cannot drift.
	final := original.Sub(discount).Round(2)
	if final.IsNegative() {
		final = decimal.Zero
	}

	items := make([]models.CartItem, 0, len(cartLines))
	for _, line := range cartLines {
		items = append(items, line.Item)
	}

	return &PricedCart{
		CartID:         cart.ID,
		Items:          items,
		OriginalTotal:  original.Round(2),
		DiscountAmount: discount.Round(2),
		FinalTotal:     final,
		AppliedDeal:    applied,
	}, nil
}

// dealLines enriches cart lines with the catalog memberships the
// evaluator scopes against.
func (a *Aggregator) dealLines(ctx context.Context, store repository.Store, cartLines []models.CartLine) ([]deals.Line, error) {
	ids := make([]uint, 0, len(cartLines))
	for _, line := range cartLines {
		ids = append(ids, line.Item.SubproductID)
	}
	scopes, err := store.Catalog().ScopeFor(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve deal scopes: %w", err)
	}

	out := make([]deals.Line, 0, len(cartLines))
	for _, line := range cartLines {
		scope := scopes[line.Item.SubproductID]
		out = append(out, deals.Line{
			SubproductID: line.Item.SubproductID,
			ProductID:    scope.ProductID,
			BrandID:      scope.BrandID,
			CategoryIDs:  scope.CategoryIDs,
			Quantity:     line.Item.Quantity,
			UnitPrice:    line.Subproduct.Price,
		})
	}
	return out, nil
}
