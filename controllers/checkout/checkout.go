package checkoutControllers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/junaidrashid-git/cart-api/middleware"
	"github.com/junaidrashid-git/cart-api/models"
	"github.com/junaidrashid-git/cart-api/repository"
	checkoutService "github.com/junaidrashid-git/cart-api/services/checkout"
)

type CheckoutInput struct {
	Country    string `json:"country"`
	State      string `json:"state"`
	City       string `json:"city"`
	Street     string `json:"street"`
	PostalCode string `json:"postal_code"`
}

func (in CheckoutInput) address() models.Address {
	return models.Address{
		Country:    in.Country,
		State:      in.State,
		City:       in.City,
		Street:     in.Street,
		PostalCode: in.PostalCode,
	}
}

// complete reports whether every address field a guest must supply is set.
func (in CheckoutInput) complete() bool {
	return in.Country != "" && in.City != "" && in.Street != "" && in.PostalCode != ""
}

// POST /checkout/:cartID
func Checkout(svc *checkoutService.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		owner, ok := middleware.Owner(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unresolved identity"})
			return
		}

		cartID, err := strconv.ParseUint(c.Param("cartID"), 10, 64)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Invalid cart id"})
			return
		}

		// An absent body is a valid request for registered users, who have
		// an address on file; only malformed JSON is rejected here.
		var input CheckoutInput
		if err := c.ShouldBindJSON(&input); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}
		// Registered users have an address on file; guests must supply one.
		if !owner.IsUser() && !input.complete() {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Guest checkout requires full address fields"})
			return
		}

		order, err := svc.Checkout(c.Request.Context(), owner, uint(cartID), input.address())
		if err != nil {
			respondCheckoutError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"order": order})
	}
}

// GET /orders/:ref
func GetOrder(svc *checkoutService.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		ref := c.Param("ref")
		if ref == "" {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Order ref is required"})
			return
		}
		order, err := svc.Order(c.Request.Context(), ref)
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

func respondCheckoutError(c *gin.Context, err error) {
	var stockErr *checkoutService.StockChangedError
	switch {
	case errors.Is(err, checkoutService.ErrCartNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Cart not found"})
	case errors.Is(err, checkoutService.ErrCartNotOwned),
		errors.Is(err, checkoutService.ErrCartClosed),
		errors.Is(err, checkoutService.ErrEmptyCart):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.As(err, &stockErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":         stockErr.Error(),
			"subproduct_id": stockErr.SubproductID,
		})
	case errors.Is(err, repository.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "Checkout conflicted with another request, please retry"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
	}
}
