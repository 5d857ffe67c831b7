package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/junaidrashid-git/cart-api/repository"
	cartService "github.com/junaidrashid-git/cart-api/services/cart"
	"github.com/junaidrashid-git/cart-api/services/catalog"
	checkoutService "github.com/junaidrashid-git/cart-api/services/checkout"
	"github.com/junaidrashid-git/cart-api/services/pricing"
	"gorm.io/gorm"
)

// Deps carries everything the route groups need.
type Deps struct {
	DB       *gorm.DB
	Store    repository.Store
	Catalog  *catalog.Reader
	Cart     *cartService.Service
	Pricing  *pricing.Aggregator
	Checkout *checkoutService.Orchestrator
}

// SetupRoutes is the single entry-point that wires up all route groups.
func SetupRoutes(r *gin.Engine, deps Deps) {
	SetupAuthRoutes(r, deps)
	SetupCatalogRoutes(r, deps)
	SetupCartRoutes(r, deps)
	SetupCheckoutRoutes(r, deps)
	SetupAdminRoutes(r, deps)
}
