package routes

import (
	"github.com/gin-gonic/gin"
	checkoutControllers "github.com/junaidrashid-git/cart-api/controllers/checkout"
	"github.com/junaidrashid-git/cart-api/middleware"
)

// SetupCheckoutRoutes registers checkout and order lookup.
func SetupCheckoutRoutes(r *gin.Engine, deps Deps) {
	checkoutGroup := r.Group("/checkout")
	checkoutGroup.Use(middleware.Identity)
	{
		checkoutGroup.POST("/:cartID", checkoutControllers.Checkout(deps.Checkout)) // POST /checkout/:cartID
	}

	orders := r.Group("/orders")
	orders.Use(middleware.Identity)
	{
		orders.GET("/:ref", checkoutControllers.GetOrder(deps.Checkout)) // GET /orders/:ref
	}
}
