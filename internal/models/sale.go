package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sale is the immutable record of one purchased line. UnitPrice is
// frozen at checkout; later price edits never touch it. ProductID is
// nullable so history survives product deletion (the reference is
// nulled, the sale stays).
type Sale struct {
	ID        uint   `gorm:"primaryKey"`
	Reference string `gorm:"size:36;not null;uniqueIndex"` // receipt uuid
	StoreID   uint   `gorm:"not null;index"`
	ProductID *uint  `gorm:"index"`
	BuyerID   uint   `gorm:"not null;index"`
	Size      string `gorm:"size:20;not null;default:''"`
	Quantity  int    `gorm:"not null"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	CreatedAt time.Time       `gorm:"index"`
}

// TotalPrice is quantity times the frozen unit price.
func (s *Sale) TotalPrice() decimal.Decimal {
	return s.UnitPrice.Mul(decimal.NewFromInt(int64(s.Quantity)))
}
