// Package deals finds the single best promotional discount for a cart.
package deals

import (
	"context"
	"fmt"
	"time"

	"github.com/junaidrashid-git/cart-api/models"
	"github.com/junaidrashid-git/cart-api/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Line is one cart line enriched with the catalog memberships deal
// scoping matches against.
type Line struct {
	SubproductID uint
	ProductID    uint
	BrandID      uint
	CategoryIDs  []uint
	Quantity     int
	UnitPrice    decimal.Decimal
}

// Subtotal is the pre-discount line amount.
func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Application is the winning deal and the discount it yields. Deals never
// stack: a cart gets exactly zero or one Application.
type Application struct {
	Deal     models.Deal     `json:"deal"`
	Discount decimal.Decimal `json:"discount"`
}

// Evaluator selects the best currently-active deal for a set of cart lines.
type Evaluator struct {
	store  repository.Store
	logger *zap.Logger
}

func NewEvaluator(store repository.Store, logger *zap.Logger) *Evaluator {
	return &Evaluator{store: store, logger: logger}
}

// Evaluate loads the currently-active deals and returns the best
// application for the given lines, or nil when no deal qualifies.
// A nil result with a nil error means "no deal", which is distinct from
// an evaluation failure.
func (e *Evaluator) Evaluate(ctx context.Context, lines []Line, now time.Time) (*Application, error) {
	return e.evaluateWith(ctx, e.store, lines, now)
}

// EvaluateIn runs the evaluation against the given store, so checkout can
// evaluate inside its own transaction.
func (e *Evaluator) EvaluateIn(ctx context.Context, store repository.Store, lines []Line, now time.Time) (*Application, error) {
	return e.evaluateWith(ctx, store, lines, now)
}

func (e *Evaluator) evaluateWith(ctx context.Context, store repository.Store, lines []Line, now time.Time) (*Application, error) {
	if len(lines) == 0 {
		return nil, nil
	}
	candidates, err := store.Deals().ListCandidates(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("list active deals: %w", err)
	}
	app, err := BestApplication(candidates, lines, now)
	if err != nil {
		return nil, err
	}
	if app != nil {
		e.logger.Info("deal applied",
			zap.Uint("deal_id", app.Deal.ID),
			zap.String("deal_name", app.Deal.Name),
			zap.String("discount", app.Discount.String()))
	}
	return app, nil
}

// BestApplication picks the deal yielding the largest absolute discount,
// breaking ties by lowest deal id. The result is independent of the order
// deals are supplied in.
func BestApplication(candidates []models.Deal, lines []Line, now time.Time) (*Application, error) {
	var best *Application
	for i := range candidates {
		deal := candidates[i]
		if !deal.CurrentlyActive(now) {
			continue
		}
		discount, err := candidateDiscount(&deal, lines)
		if err != nil {
			return nil, err
		}
		if !discount.IsPositive() {
			continue
		}
		if best == nil ||
			discount.GreaterThan(best.Discount) ||
			(discount.Equal(best.Discount) && deal.ID < best.Deal.ID) {
			best = &Application{Deal: deal, Discount: discount}
		}
	}
	return best, nil
}

// candidateDiscount computes the discount the deal would yield, or zero
// when it does not qualify.
func candidateDiscount(deal *models.Deal, lines []Line) (decimal.Decimal, error) {
	var base decimal.Decimal
	if deal.DealType == models.DealTypeCart {
		for _, line := range lines {
			base = base.Add(line.Subtotal())
		}
		conds, err := deal.Conditions()
		if err != nil {
			return decimal.Zero, err
		}
		if conds.MinimumAmount != nil && base.LessThan(*conds.MinimumAmount) {
			return decimal.Zero, nil
		}
	} else {
		for _, line := range lines {
			if matchesScope(deal, line) {
				base = base.Add(line.Subtotal())
			}
		}
	}
	if !base.IsPositive() {
		return decimal.Zero, nil
	}

	switch deal.DiscountType {
	case models.DiscountTypePercentage:
		return base.Mul(deal.DiscountAmount).Div(decimal.NewFromInt(100)), nil
	case models.DiscountTypeFixed:
		// Never discount past the matched subtotal.
		if deal.DiscountAmount.GreaterThan(base) {
			return base, nil
		}
		return deal.DiscountAmount, nil
	default:
		return decimal.Zero, fmt.Errorf("deal %d: unknown discount type %q", deal.ID, deal.DiscountType)
	}
}

func matchesScope(deal *models.Deal, line Line) bool {
	switch deal.DealType {
	case models.DealTypeProduct:
		for _, p := range deal.Products {
			if p.ID == line.ProductID {
				return true
			}
		}
	case models.DealTypeCategory:
		for _, c := range deal.Categories {
			for _, id := range line.CategoryIDs {
				if c.ID == id {
					return true
				}
			}
		}
	case models.DealTypeBrand:
		for _, b := range deal.Brands {
			if b.ID == line.BrandID {
				return true
			}
		}
	}
	return false
}
