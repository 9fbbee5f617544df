package services

import (
	"errors"
	"fmt"

	"github.com/souqapp/souq/internal/models"
	"gorm.io/gorm"
)

// CatalogService holds the product lifecycle rules that go beyond
// plain CRUD, most importantly the deletion cascade.
type CatalogService struct{ DB *gorm.DB }

func NewCatalogService(db *gorm.DB) *CatalogService { return &CatalogService{DB: db} }

// DeleteProduct removes a product together with everything it owns.
// The ownership rule is explicit here instead of hidden in triggers:
// size rows and cart lines referencing the product go with it, sales
// keep their history with the product reference nulled.
func (s *CatalogService) DeleteProduct(productID uint) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var p models.Product
		if err := tx.First(&p, productID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProductNotFound
			}
			return fmt.Errorf("load product: %w", err)
		}
		if err := tx.Where("product_id = ?", p.ID).Delete(&models.CartLine{}).Error; err != nil {
			return fmt.Errorf("delete cart lines: %w", err)
		}
		if err := tx.Where("product_id = ?", p.ID).Delete(&models.SizeStock{}).Error; err != nil {
			return fmt.Errorf("delete size stock: %w", err)
		}
		if err := tx.Model(&models.Sale{}).Where("product_id = ?", p.ID).
			Update("product_id", nil).Error; err != nil {
			return fmt.Errorf("detach sales: %w", err)
		}
		if err := tx.Delete(&p).Error; err != nil {
			return fmt.Errorf("delete product: %w", err)
		}
		return nil
	})
}

// DeleteUserCarts removes a user's carts and lines (cascade on user
// deletion per the data model). Sales are buyer history and stay.
func (s *CatalogService) DeleteUserCarts(tx *gorm.DB, userID uint) error {
	var cartIDs []uint
	if err := tx.Model(&models.Cart{}).Where("user_id = ?", userID).Pluck("id", &cartIDs).Error; err != nil {
		return fmt.Errorf("list carts: %w", err)
	}
	if len(cartIDs) == 0 {
		return nil
	}
	if err := tx.Where("cart_id IN ?", cartIDs).Delete(&models.CartLine{}).Error; err != nil {
		return fmt.Errorf("delete cart lines: %w", err)
	}
	if err := tx.Where("id IN ?", cartIDs).Delete(&models.Cart{}).Error; err != nil {
		return fmt.Errorf("delete carts: %w", err)
	}
	return nil
}
