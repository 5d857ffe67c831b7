package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CartStatus string

const (
	CartStatusActive    CartStatus = "active"    // Open for mutation
	CartStatusConverted CartStatus = "converted" // Checked out, immutable
	CartStatusAbandoned CartStatus = "abandoned" // Superseded by a merge or explicit clear
)

// Cart belongs to exactly one owner while active: a registered user
// (UserID set) or an anonymous browser session (SessionID set). At most
// one active cart exists per owner, enforced by partial unique indexes
// on user_id and session_id where status = 'active'.
type Cart struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	UserID    *string         `gorm:"index" json:"user_id,omitempty"`
	SessionID *string         `gorm:"index" json:"session_id,omitempty"`
	Currency  string          `gorm:"type:VARCHAR(3);default:'USD'" json:"currency"`
	Status    CartStatus      `gorm:"type:VARCHAR(20);default:'active';index" json:"status"`
	Total     decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"total"`
	Items     []CartItem      `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// OwnedBy reports whether the cart belongs to the given owner key.
// Exact match is required: a user cart never matches a session key.
func (c *Cart) OwnedBy(owner OwnerKey) bool {
	if owner.UserID != "" {
		return c.UserID != nil && *c.UserID == owner.UserID
	}
	if owner.SessionID != "" {
		return c.SessionID != nil && *c.SessionID == owner.SessionID
	}
	return false
}

// CartItem is one (subproduct, quantity) line. Re-adding the same
// subproduct increments Quantity; the (cart_id, subproduct_id) pair is unique.
type CartItem struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	CartID       uint       `gorm:"uniqueIndex:idx_cart_subproduct" json:"cart_id"`
	SubproductID uint       `gorm:"uniqueIndex:idx_cart_subproduct" json:"subproduct_id"`
	Subproduct   Subproduct `gorm:"foreignKey:SubproductID" json:"subproduct"`
	Quantity     int        `gorm:"not null" json:"quantity"`
	AddedAt      time.Time  `json:"added_at"`
}

// CartLine pairs a cart item with its live subproduct record for pricing.
type CartLine struct {
	Item       CartItem
	Subproduct Subproduct
}

// Subtotal is the pre-discount line amount at the live unit price.
func (l CartLine) Subtotal() decimal.Decimal {
	return l.Subproduct.Price.Mul(decimal.NewFromInt(int64(l.Item.Quantity)))
}
