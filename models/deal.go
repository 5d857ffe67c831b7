package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type DiscountType string

const (
	DiscountTypePercentage DiscountType = "percentage"
	DiscountTypeFixed      DiscountType = "fixed"
)

type DealType string

const (
	DealTypeProduct  DealType = "product"
	DealTypeCategory DealType = "category"
	DealTypeBrand    DealType = "brand"
	DealTypeCart     DealType = "cart"
)

// Deal is a time-boxed discount rule. Scope associations (Products,
// Categories, Brands) only matter for the matching DealType; cart-wide
// deals ignore them and are gated by Conditions instead.
type Deal struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	Name           string          `gorm:"not null" json:"name"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"discount_amount"`
	DiscountType   DiscountType    `gorm:"type:VARCHAR(20);not null" json:"discount_type"`
	DealType       DealType        `gorm:"type:VARCHAR(20);not null" json:"deal_type"`
	StartDate      time.Time       `gorm:"not null;index" json:"start_date"`
	EndDate        time.Time       `gorm:"not null;index" json:"end_date"`
	Active         bool            `gorm:"not null;default:false" json:"active"`
	ConditionsJSON string          `gorm:"column:conditions;type:text" json:"-"`
	Products       []Product       `gorm:"many2many:deal_products" json:"products,omitempty"`
	Categories     []Category      `gorm:"many2many:deal_categories" json:"categories,omitempty"`
	Brands         []Brand         `gorm:"many2many:deal_brands" json:"brands,omitempty"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

// DealConditions is the decoded form of the conditions column. A nil
// MinimumAmount means the deal has no minimum-subtotal gate.
type DealConditions struct {
	MinimumAmount *decimal.Decimal `json:"minimum_amount,omitempty"`
}

// Conditions decodes the JSON conditions column. An empty column decodes
// to the zero value, which gates nothing.
func (d *Deal) Conditions() (DealConditions, error) {
	var conds DealConditions
	if d.ConditionsJSON == "" {
		return conds, nil
	}
	if err := json.Unmarshal([]byte(d.ConditionsJSON), &conds); err != nil {
		return conds, fmt.Errorf("deal %d: decode conditions: %w", d.ID, err)
	}
	return conds, nil
}

// SetConditions encodes conds into the conditions column.
func (d *Deal) SetConditions(conds DealConditions) error {
	raw, err := json.Marshal(conds)
	if err != nil {
		return fmt.Errorf("deal %d: encode conditions: %w", d.ID, err)
	}
	d.ConditionsJSON = string(raw)
	return nil
}

// CurrentlyActive reports whether the deal may be considered at the given
// instant: the admin flag is on and now falls inside [StartDate, EndDate].
func (d *Deal) CurrentlyActive(now time.Time) bool {
	return d.Active && !now.Before(d.StartDate) && !now.After(d.EndDate)
}
