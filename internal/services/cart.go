package services

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/souqapp/souq/internal/models"
	"gorm.io/gorm"
)

// CartService manages a user's pre-purchase selection. No inventory is
// enforced here: availability warnings are advisory, the checkout
// engine's validation is the authority.
type CartService struct {
	DB    *gorm.DB
	Stock *StockService
}

func NewCartService(db *gorm.DB, stock *StockService) *CartService {
	return &CartService{DB: db, Stock: stock}
}

// ActiveCart returns the user's active cart with lines and products
// preloaded, or nil when the user has none.
func (s *CartService) ActiveCart(userID uint) (*models.Cart, error) {
	var cart models.Cart
	err := s.DB.Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("cart_lines.id asc") }).
		Preload("Lines.Product").
		Where("user_id = ? AND active = ?", userID, true).
		First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	return &cart, nil
}

func (s *CartService) getOrCreateActiveCart(userID uint) (*models.Cart, error) {
	var cart models.Cart
	err := s.DB.Where("user_id = ? AND active = ?", userID, true).First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		cart = models.Cart{UserID: userID, Active: true}
		if err := s.DB.Create(&cart).Error; err != nil {
			return nil, fmt.Errorf("create cart: %w", err)
		}
		return &cart, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	return &cart, nil
}

// AddLine puts qty of (product, size) into the user's active cart.
// Re-adding the same (product, size) increments the existing line. The
// returned warning, when non-nil, is a best-effort heads-up that the
// cart now asks for more than the ledger holds; the add still goes
// through and checkout will be the judge.
func (s *CartService) AddLine(userID, productID uint, size string, qty int) (*models.Cart, *InsufficientStockError, error) {
	if qty <= 0 {
		qty = 1
	}
	var product models.Product
	if err := s.DB.First(&product, productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrProductNotFound
		}
		return nil, nil, fmt.Errorf("load product: %w", err)
	}
	if size != "" && !product.HasSize(size) {
		return nil, nil, &ProductSizeMismatchError{ProductID: productID, Size: size}
	}
	if size == "" && product.Sized() {
		return nil, nil, &ProductSizeMismatchError{ProductID: productID, Size: size}
	}

	cart, err := s.getOrCreateActiveCart(userID)
	if err != nil {
		return nil, nil, err
	}
	var line models.CartLine
	err = s.DB.Where("cart_id = ? AND product_id = ? AND size = ?", cart.ID, productID, size).First(&line).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		line = models.CartLine{CartID: cart.ID, ProductID: productID, Size: size, Quantity: qty}
		if err := s.DB.Create(&line).Error; err != nil {
			return nil, nil, fmt.Errorf("create cart line: %w", err)
		}
	case err != nil:
		return nil, nil, fmt.Errorf("load cart line: %w", err)
	default:
		if err := s.DB.Model(&line).Update("quantity", gorm.Expr("quantity + ?", qty)).Error; err != nil {
			return nil, nil, fmt.Errorf("increment cart line: %w", err)
		}
	}

	warning, err := s.availabilityWarning(cart.ID, productID, size)
	if err != nil {
		return nil, nil, err
	}
	full, err := s.ActiveCart(userID)
	if err != nil {
		return nil, nil, err
	}
	return full, warning, nil
}

// ownedLine loads a cart line only when its cart belongs to userID.
// A foreign line reads as not found, the same as a missing one.
func (s *CartService) ownedLine(userID, lineID uint) (*models.CartLine, error) {
	var line models.CartLine
	err := s.DB.Select("cart_lines.*").
		Joins("JOIN carts ON carts.id = cart_lines.cart_id").
		Where("cart_lines.id = ? AND carts.user_id = ?", lineID, userID).
		First(&line).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCartLineNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load cart line: %w", err)
	}
	return &line, nil
}

// SetLineQuantity overwrites a line's quantity; zero or less deletes
// the line. The line must belong to userID's cart.
func (s *CartService) SetLineQuantity(userID, lineID uint, qty int) (*models.CartLine, *InsufficientStockError, error) {
	line, err := s.ownedLine(userID, lineID)
	if err != nil {
		return nil, nil, err
	}
	if qty <= 0 {
		if err := s.DB.Delete(line).Error; err != nil {
			return nil, nil, fmt.Errorf("delete cart line: %w", err)
		}
		return nil, nil, nil
	}
	if err := s.DB.Model(line).Update("quantity", qty).Error; err != nil {
		return nil, nil, fmt.Errorf("update cart line: %w", err)
	}
	line.Quantity = qty
	warning, err := s.availabilityWarning(line.CartID, line.ProductID, line.Size)
	if err != nil {
		return nil, nil, err
	}
	return line, warning, nil
}

// RemoveLine deletes a line from userID's cart.
func (s *CartService) RemoveLine(userID, lineID uint) error {
	line, err := s.ownedLine(userID, lineID)
	if err != nil {
		return err
	}
	if err := s.DB.Delete(line).Error; err != nil {
		return fmt.Errorf("delete cart line: %w", err)
	}
	return nil
}

// TotalPrice quotes the cart at current prices.
func (s *CartService) TotalPrice(cart *models.Cart) decimal.Decimal {
	if cart == nil {
		return decimal.Zero
	}
	return cart.TotalPrice()
}

// availabilityWarning compares what the whole cart holds for
// (product, size) against the ledger. Advisory only.
func (s *CartService) availabilityWarning(cartID, productID uint, size string) (*InsufficientStockError, error) {
	var held int
	err := s.DB.Model(&models.CartLine{}).
		Where("cart_id = ? AND product_id = ? AND size = ?", cartID, productID, size).
		Select("COALESCE(SUM(quantity), 0)").Scan(&held).Error
	if err != nil {
		return nil, fmt.Errorf("sum cart lines: %w", err)
	}
	avail, err := s.Stock.AvailableQuantity(productID, size)
	if err != nil {
		return nil, err
	}
	if held > avail {
		return &InsufficientStockError{ProductID: productID, Size: size, Requested: held, Available: avail}, nil
	}
	return nil, nil
}
