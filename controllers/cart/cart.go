package cartControllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/junaidrashid-git/cart-api/middleware"
	"github.com/junaidrashid-git/cart-api/models"
	"github.com/junaidrashid-git/cart-api/repository"
	cartService "github.com/junaidrashid-git/cart-api/services/cart"
	"github.com/junaidrashid-git/cart-api/services/catalog"
	"github.com/junaidrashid-git/cart-api/services/pricing"
	"github.com/shopspring/decimal"
)

type AddItemInput struct {
	SubproductID uint `json:"subproduct_id" binding:"required"`
	Quantity     int  `json:"quantity" binding:"required,min=1"`
}

type LineInput struct {
	SubproductID uint `json:"subproduct_id" binding:"required"`
}

// GET /cart/items
func GetCartItems(svc *cartService.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		owner, ok := middleware.Owner(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unresolved identity"})
			return
		}
		lines, err := svc.Lines(c.Request.Context(), owner)
		if err != nil {
			respondCartError(c, err)
			return
		}
		c.JSON(http.StatusOK, linesResponse(lines))
	}
}

// POST /cart/add
func AddItem(svc *cartService.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		owner, ok := middleware.Owner(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unresolved identity"})
			return
		}
		var input AddItemInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}
		lines, err := svc.AddItem(c.Request.Context(), owner, input.SubproductID, input.Quantity)
		if err != nil {
			respondCartError(c, err)
			return
		}
		c.JSON(http.StatusCreated, linesResponse(lines))
	}
}

// POST /cart/decrement
func DecrementItem(svc *cartService.Service) gin.HandlerFunc {
	return lineHandler(svc, func(c *gin.Context, owner models.OwnerKey, subproductID uint) ([]models.CartLine, error) {
		return svc.DecrementItem(c.Request.Context(), owner, subproductID)
	})
}

// POST /cart/remove
func RemoveLine(svc *cartService.Service) gin.HandlerFunc {
	return lineHandler(svc, func(c *gin.Context, owner models.OwnerKey, subproductID uint) ([]models.CartLine, error) {
		return svc.RemoveLine(c.Request.Context(), owner, subproductID)
	})
}

func lineHandler(svc *cartService.Service, op func(*gin.Context, models.OwnerKey, uint) ([]models.CartLine, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		owner, ok := middleware.Owner(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unresolved identity"})
			return
		}
		var input LineInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}
		lines, err := op(c, owner, input.SubproductID)
		if err != nil {
			respondCartError(c, err)
			return
		}
		c.JSON(http.StatusOK, linesResponse(lines))
	}
}

// POST /cart/clear
func ClearCart(svc *cartService.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		owner, ok := middleware.Owner(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unresolved identity"})
			return
		}
		if err := svc.Clear(c.Request.Context(), owner); err != nil {
			respondCartError(c, err)
			return
		}
		c.JSON(http.StatusOK, linesResponse(nil))
	}
}

// GET /cart/withdeals
func GetCartWithDeals(svc *cartService.Service, aggregator *pricing.Aggregator) gin.HandlerFunc {
	return func(c *gin.Context) {
		owner, ok := middleware.Owner(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unresolved identity"})
			return
		}
		cart, err := svc.Lookup(c.Request.Context(), owner)
		if errors.Is(err, cartService.ErrCartNotFound) {
			c.JSON(http.StatusOK, gin.H{
				"items":           []models.CartItem{},
				"original_total":  decimal.Zero,
				"discount_amount": decimal.Zero,
				"final_total":     decimal.Zero,
				"applied_deal":    nil,
			})
			return
		}
		if err != nil {
			respondCartError(c, err)
			return
		}
		priced, err := aggregator.PriceCart(c.Request.Context(), cart)
		if err != nil {
			respondCartError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"items":           priced.Items,
			"original_total":  priced.OriginalTotal,
			"discount_amount": priced.DiscountAmount,
			"final_total":     priced.FinalTotal,
			"applied_deal":    priced.AppliedDeal,
		})
	}
}

func linesResponse(lines []models.CartLine) gin.H {
	items := make([]models.CartItem, 0, len(lines))
	total := decimal.Zero
	for _, line := range lines {
		item := line.Item
		item.Subproduct = line.Subproduct
		items = append(items, item)
		total = total.Add(line.Subtotal())
	}
	return gin.H{"items": items, "total": total.Round(2)}
}

// respondCartError maps service errors onto the HTTP contract: domain
// violations are 422 with a message the shopper can act on, conflicts are
// retryable 409s, everything else is a 500 without internal detail.
func respondCartError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Subproduct does not exist"})
	case errors.Is(err, cartService.ErrInvalidQuantity),
		errors.Is(err, cartService.ErrUnavailable),
		errors.Is(err, cartService.ErrOutOfStock),
		errors.Is(err, cartService.ErrItemNotFound),
		errors.Is(err, cartService.ErrCartNotFound):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, repository.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "Cart was modified concurrently, please retry"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
	}
}
