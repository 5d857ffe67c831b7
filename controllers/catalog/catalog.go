package catalogControllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/junaidrashid-git/cart-api/services/catalog"
)

// GetSubproduct exposes a single purchasable variant, including whether
// it can be bought right now. Storefronts use this to refresh a line
// before adding it to the cart.
func GetSubproduct(reader *catalog.Reader) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid subproduct id"})
			return
		}

		sp, err := reader.GetSubproduct(c.Request.Context(), uint(id))
		if errors.Is(err, catalog.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "subproduct not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load subproduct"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"subproduct":  sp,
			"purchasable": catalog.IsPurchasable(sp, 1),
		})
	}
}
