package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/junaidrashid-git/cart-api/auth"
	"github.com/junaidrashid-git/cart-api/middleware"
)

// SetupAuthRoutes registers session issuance and the login-time cart merge.
func SetupAuthRoutes(r *gin.Engine, deps Deps) {
	authGroup := r.Group("/auth")
	{
		authGroup.POST("/guest", auth.CreateGuestSession()) // POST /auth/guest

		merge := authGroup.Group("/merge")
		merge.Use(middleware.Identity, middleware.RequireUser)
		merge.POST("", auth.MergeGuestCart(deps.Cart)) // POST /auth/merge
	}
}
