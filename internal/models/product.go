package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Category struct {
	ID          uint   `gorm:"primaryKey"`
	StoreID     uint   `gorm:"not null;index"`
	Name        string `gorm:"size:100;not null"`
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Product carries both the aggregate stock counter and, for sized
// products, a per-size breakdown. Invariant: when SizeStock rows exist,
// Stock equals the sum of their quantities outside an in-flight
// reservation; the stock service is the only writer that touches either.
type Product struct {
	ID          uint  `gorm:"primaryKey"`
	StoreID     uint  `gorm:"not null;index"`
	Store       Store `gorm:"foreignKey:StoreID"`
	CategoryID  uint  `gorm:"index"`
	Name        string          `gorm:"size:200;not null"`
	Description string
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Stock       int             `gorm:"not null;default:0"` // aggregate, derived for sized products
	Sizes       string          `gorm:"size:200"`           // comma separated labels, e.g. "S,M,L"; empty = unsized
	SizeStocks  []SizeStock     `gorm:"foreignKey:ProductID"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// OwnerUserID implements policy.Ownable; Store must be preloaded.
func (p *Product) OwnerUserID() uint { return p.Store.OwnerID }

// SizeList returns the declared size labels, trimmed, or nil for an
// unsized product.
func (p *Product) SizeList() []string {
	if strings.TrimSpace(p.Sizes) == "" {
		return nil
	}
	parts := strings.Split(p.Sizes, ",")
	out := make([]string, 0, len(parts))
	for _, s := range parts {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (p *Product) Sized() bool { return len(p.SizeList()) > 0 }

// HasSize reports whether label is one of the product's declared sizes.
func (p *Product) HasSize(label string) bool {
	for _, s := range p.SizeList() {
		if s == label {
			return true
		}
	}
	return false
}

// SizeStock is the per-size counter of a sized product. Owned by its
// product and removed with it.
type SizeStock struct {
	ID        uint   `gorm:"primaryKey"`
	ProductID uint   `gorm:"not null;index:idx_product_size,unique,priority:1"`
	Size      string `gorm:"size:20;not null;index:idx_product_size,unique,priority:2"`
	Quantity  int    `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
