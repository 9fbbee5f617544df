package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cart is the pre-purchase selection of one user. At most one active
// cart per user; checkout flips Active off and the next add-to-cart
// creates a fresh one.
type Cart struct {
	ID        uint       `gorm:"primaryKey"`
	UserID    uint       `gorm:"not null;index"`
	Active    bool       `gorm:"not null;default:true;index"`
	Lines     []CartLine `gorm:"foreignKey:CartID"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TotalPrice is a live quote at current product prices, not a frozen
// amount. Lines must have Product preloaded.
func (c *Cart) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.Lines {
		total = total.Add(l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return total
}

// CartLine is one (product, size, quantity) entry. Size is the empty
// string for unsized products; uniqueness over (cart, product, size)
// makes re-adding increment instead of duplicating.
type CartLine struct {
	ID        uint    `gorm:"primaryKey"`
	CartID    uint    `gorm:"not null;index:idx_cart_product_size,unique,priority:1"`
	ProductID uint    `gorm:"not null;index:idx_cart_product_size,unique,priority:2"`
	Size      string  `gorm:"size:20;not null;default:'';index:idx_cart_product_size,unique,priority:3"`
	Quantity  int     `gorm:"not null"`
	Product   Product `gorm:"foreignKey:ProductID"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
