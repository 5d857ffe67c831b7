package routes

import (
	"github.com/gin-gonic/gin"
	dealControllers "github.com/junaidrashid-git/cart-api/controllers/deal"
	"github.com/junaidrashid-git/cart-api/middleware"
)

// SetupAdminRoutes registers the API-key-protected deal management surface.
func SetupAdminRoutes(r *gin.Engine, deps Deps) {
	adminGroup := r.Group("/admin")
	adminGroup.Use(middleware.ValidateAPIKey)
	{
		deals := adminGroup.Group("/deals")
		{
			deals.GET("", dealControllers.ListDeals(deps.Store))
			deals.GET("/:id", dealControllers.GetDeal(deps.Store))
			deals.POST("", dealControllers.CreateDeal(deps.DB, deps.Store))
			deals.PUT("/:id", dealControllers.UpdateDeal(deps.DB, deps.Store))
			deals.DELETE("/:id", dealControllers.DeleteDeal(deps.Store))
		}
	}
}
