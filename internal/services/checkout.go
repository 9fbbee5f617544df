package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/souqapp/souq/internal/models"
	"gorm.io/gorm"
)

// CheckoutService turns an active cart into durable Sale records while
// debiting stock. Validation reads are advisory; the commit phase
// re-derives authority through the conditional decrement inside one
// transaction, so either every line's sale+debit lands or none do.
type CheckoutService struct {
	DB    *gorm.DB
	Stock *StockService
	Cart  *CartService
}

func NewCheckoutService(db *gorm.DB, stock *StockService, cart *CartService) *CheckoutService {
	return &CheckoutService{DB: db, Stock: stock, Cart: cart}
}

// Checkout purchases the whole active cart of userID.
//
// Returns (sales, nil, nil) on success; (nil, lineErrs, nil) when
// validation found problems (the cart is untouched and every offending
// line is reported, not just the first); (nil, nil, err) for
// ErrEmptyCart, ErrConcurrentStockConflict or an infrastructure error.
func (s *CheckoutService) Checkout(userID uint) ([]models.Sale, []LineError, error) {
	cart, err := s.Cart.ActiveCart(userID)
	if err != nil {
		return nil, nil, err
	}
	if cart == nil || len(cart.Lines) == 0 {
		return nil, nil, ErrEmptyCart
	}

	lineErrs, err := s.validate(cart)
	if err != nil {
		return nil, nil, err
	}
	if len(lineErrs) > 0 {
		return nil, lineErrs, nil
	}

	sales, err := s.commit(cart, userID)
	if err != nil {
		return nil, nil, err
	}
	return sales, nil, nil
}

// commit is the all-or-nothing half: every line's sale+debit lands or
// the transaction rolls back in full, stock included.
func (s *CheckoutService) commit(cart *models.Cart, userID uint) ([]models.Sale, error) {
	var sales []models.Sale
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		// Lines come back in insertion order from ActiveCart; keep
		// that order so concurrent checkouts contend deterministically.
		for _, line := range cart.Lines {
			sale := models.Sale{
				Reference: uuid.NewString(),
				StoreID:   line.Product.StoreID,
				ProductID: &line.ProductID,
				BuyerID:   userID,
				Size:      line.Size,
				Quantity:  line.Quantity,
				UnitPrice: line.Product.Price, // frozen here, for good
			}
			if err := tx.Create(&sale).Error; err != nil {
				return fmt.Errorf("create sale: %w", err)
			}
			if err := ReserveTx(tx, line.ProductID, line.Size, line.Quantity); err != nil {
				var ins *InsufficientStockError
				if errors.As(err, &ins) {
					// A concurrent checkout drained the stock between
					// our validation read and this decrement. Roll the
					// whole commit back and leave the cart for retry.
					return ErrConcurrentStockConflict
				}
				return err
			}
			sales = append(sales, sale)
		}
		if err := tx.Where("cart_id = ?", cart.ID).Delete(&models.CartLine{}).Error; err != nil {
			return fmt.Errorf("clear cart lines: %w", err)
		}
		if err := tx.Model(&models.Cart{}).Where("id = ?", cart.ID).Update("active", false).Error; err != nil {
			return fmt.Errorf("deactivate cart: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sales, nil
}

// validate walks every line and collects all problems: unsellable
// store, stale size reference, insufficient stock. Multiple lines of
// the same unsized product (or same size) are counted cumulatively so
// the cart as a whole cannot pass validation while overdrawing one
// counter.
func (s *CheckoutService) validate(cart *models.Cart) ([]LineError, error) {
	var errs []LineError
	type counterKey struct {
		productID uint
		size      string
	}
	claimed := map[counterKey]int{}

	for _, line := range cart.Lines {
		var store models.Store
		if err := s.DB.First(&store, line.Product.StoreID).Error; err != nil {
			return nil, fmt.Errorf("load store: %w", err)
		}
		if !store.Sellable() {
			errs = append(errs, LineError{LineID: line.ID, Err: &StoreNotSellableError{
				ProductID: line.ProductID, StoreID: store.ID, Status: store.ApprovalStatus,
			}})
			continue
		}
		if line.Size != "" && !line.Product.HasSize(line.Size) {
			errs = append(errs, LineError{LineID: line.ID, Err: &ProductSizeMismatchError{
				ProductID: line.ProductID, Size: line.Size,
			}})
			continue
		}
		avail, err := s.Stock.AvailableQuantity(line.ProductID, line.Size)
		if err != nil {
			return nil, err
		}
		key := counterKey{line.ProductID, line.Size}
		if line.Size == "" && line.Product.Sized() {
			// An unsized line on a sized product would debit the
			// aggregate and double-count against the size rows.
			errs = append(errs, LineError{LineID: line.ID, Err: &ProductSizeMismatchError{
				ProductID: line.ProductID, Size: "",
			}})
			continue
		}
		claimed[key] += line.Quantity
		if claimed[key] > avail {
			errs = append(errs, LineError{LineID: line.ID, Err: &InsufficientStockError{
				ProductID: line.ProductID, Size: line.Size, Requested: line.Quantity, Available: avail,
			}})
		}
	}
	return errs, nil
}
