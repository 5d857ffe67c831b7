package routes

import (
	"github.com/gin-gonic/gin"
	catalogControllers "github.com/junaidrashid-git/cart-api/controllers/catalog"
)

// SetupCatalogRoutes registers the public read-only catalog endpoints.
func SetupCatalogRoutes(r *gin.Engine, deps Deps) {
	r.GET("/subproducts/:id", catalogControllers.GetSubproduct(deps.Catalog))
}
