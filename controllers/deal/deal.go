package dealControllers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/junaidrashid-git/cart-api/models"
	"github.com/junaidrashid-git/cart-api/repository"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type DealInput struct {
	Name           string           `json:"name" binding:"required"`
	DiscountAmount decimal.Decimal  `json:"discount_amount" binding:"required"`
	DiscountType   string           `json:"discount_type" binding:"required,oneof=percentage fixed"`
	DealType       string           `json:"deal_type" binding:"required,oneof=product category brand cart"`
	StartDate      time.Time        `json:"start_date" binding:"required"`
	EndDate        time.Time        `json:"end_date" binding:"required"`
	Active         bool             `json:"active"`
	MinimumAmount  *decimal.Decimal `json:"minimum_amount,omitempty"`
	ProductIDs     []uint           `json:"product_ids,omitempty"`
	CategoryIDs    []uint           `json:"category_ids,omitempty"`
	BrandIDs       []uint           `json:"brand_ids,omitempty"`
}

func (in DealInput) apply(db *gorm.DB, deal *models.Deal) error {
	deal.Name = in.Name
	deal.DiscountAmount = in.DiscountAmount
	deal.DiscountType = models.DiscountType(in.DiscountType)
	deal.DealType = models.DealType(in.DealType)
	deal.StartDate = in.StartDate
	deal.EndDate = in.EndDate
	deal.Active = in.Active
	if err := deal.SetConditions(models.DealConditions{MinimumAmount: in.MinimumAmount}); err != nil {
		return err
	}

	// Scope associations only mean something for non-cart deals.
	deal.Products, deal.Categories, deal.Brands = nil, nil, nil
	switch deal.DealType {
	case models.DealTypeProduct:
		return db.Where("id IN ?", in.ProductIDs).Find(&deal.Products).Error
	case models.DealTypeCategory:
		return db.Where("id IN ?", in.CategoryIDs).Find(&deal.Categories).Error
	case models.DealTypeBrand:
		return db.Where("id IN ?", in.BrandIDs).Find(&deal.Brands).Error
	}
	return nil
}

// GET /admin/deals?sort=newest
func ListDeals(store repository.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		opt := SortOption(c.DefaultQuery("sort", string(SortNewest)))
		sort, err := sortClause(opt)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		deals, err := store.Deals().List(c.Request.Context(), sort)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list deals"})
			return
		}
		c.JSON(http.StatusOK, deals)
	}
}

// GET /admin/deals/:id
func GetDeal(store repository.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Invalid deal id"})
			return
		}
		deal, err := store.Deals().FindByID(c.Request.Context(), uint(id))
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Deal not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch deal"})
			return
		}
		c.JSON(http.StatusOK, deal)
	}
}

// POST /admin/deals
func CreateDeal(db *gorm.DB, store repository.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input DealInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}
		var deal models.Deal
		if err := input.apply(db, &deal); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve deal scope"})
			return
		}
		if err := store.Deals().Create(c.Request.Context(), &deal); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create deal"})
			return
		}
		c.JSON(http.StatusCreated, deal)
	}
}

// PUT /admin/deals/:id
func UpdateDeal(db *gorm.DB, store repository.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Invalid deal id"})
			return
		}
		var input DealInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}
		deal, err := store.Deals().FindByID(c.Request.Context(), uint(id))
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Deal not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch deal"})
			return
		}
		if err := input.apply(db, deal); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve deal scope"})
			return
		}
		if err := store.Deals().Save(c.Request.Context(), deal); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update deal"})
			return
		}
		c.JSON(http.StatusOK, deal)
	}
}

// DELETE /admin/deals/:id
func DeleteDeal(store repository.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Invalid deal id"})
			return
		}
		if err := store.Deals().Delete(c.Request.Context(), uint(id)); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete deal"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Deal deleted"})
	}
}
