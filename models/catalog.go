package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Brand struct {
	ID        uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string `gorm:"unique;not null" json:"name"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Category struct {
	ID       uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name     string    `gorm:"unique;not null" json:"name"`
	Products []Product `gorm:"many2many:product_categories" json:"-"`
}

type Product struct {
	ID          uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string         `gorm:"not null" json:"name"`
	Description string         `json:"description"`
	BrandID     uint           `gorm:"index" json:"brand_id"`
	Brand       Brand          `gorm:"foreignKey:BrandID" json:"brand"`
	Categories  []Category     `gorm:"many2many:product_categories" json:"categories"`
	Subproducts []Subproduct   `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"subproducts"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// Subproduct is the purchasable variant of a Product (size/color/etc.).
// Price and stock live here, not on the product.
type Subproduct struct {
	ID        uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID uint            `gorm:"index;not null" json:"product_id"`
	Name      string          `gorm:"not null" json:"name"`
	Price     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	Stock     int             `gorm:"not null;default:0" json:"stock"`
	Available bool            `gorm:"not null;default:true" json:"available"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// SubproductScope carries the catalog memberships a deal can target.
type SubproductScope struct {
	SubproductID uint
	ProductID    uint
	BrandID      uint
	CategoryIDs  []uint
}
