package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/junaidrashid-git/cart-api/middleware"
	"github.com/junaidrashid-git/cart-api/models"
	"github.com/junaidrashid-git/cart-api/repository"
	cartService "github.com/junaidrashid-git/cart-api/services/cart"
)

type MergeInput struct {
	SessionID string `json:"session_id"`
}

// POST /auth/merge
// Login hook: folds the caller's guest cart into their user cart. Safe to
// retry — a second call finds the guest cart already retired and no-ops.
func MergeGuestCart(svc *cartService.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		owner, ok := middleware.Owner(c)
		if !ok || !owner.IsUser() {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}

		var input MergeInput
		_ = c.ShouldBindJSON(&input)
		sessionID := input.SessionID
		if sessionID == "" {
			sessionID = c.GetHeader(middleware.SessionHeader)
		}
		if sessionID == "" {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "session_id is required"})
			return
		}

		err := svc.MergeGuestCart(c.Request.Context(), sessionID, owner.UserID)
		switch {
		case err == nil:
			c.JSON(http.StatusOK, gin.H{"message": "Cart merged"})
		case errors.Is(err, repository.ErrConflict):
			// The service already retried once internally.
			c.JSON(http.StatusConflict, gin.H{"error": "Carts were modified concurrently, please retry"})
		case errors.Is(err, models.ErrNoOwner):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to merge carts"})
		}
	}
}
