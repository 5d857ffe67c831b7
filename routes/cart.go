package routes

import (
	"github.com/gin-gonic/gin"
	cartControllers "github.com/junaidrashid-git/cart-api/controllers/cart"
	"github.com/junaidrashid-git/cart-api/middleware"
)

// SetupCartRoutes registers the "/cart/*" endpoints. Auth is optional:
// the Identity middleware resolves a user or an anonymous session.
func SetupCartRoutes(r *gin.Engine, deps Deps) {
	cartGroup := r.Group("/cart")
	cartGroup.Use(middleware.Identity)
	{
		cartGroup.GET("/items", cartControllers.GetCartItems(deps.Cart))
		cartGroup.POST("/add", cartControllers.AddItem(deps.Cart))
		cartGroup.POST("/decrement", cartControllers.DecrementItem(deps.Cart))
		cartGroup.POST("/remove", cartControllers.RemoveLine(deps.Cart))
		cartGroup.POST("/clear", cartControllers.ClearCart(deps.Cart))
		cartGroup.GET("/withdeals", cartControllers.GetCartWithDeals(deps.Cart, deps.Pricing))
	}
}
