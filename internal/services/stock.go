package services

import (
	"errors"
	"fmt"

	"github.com/souqapp/souq/internal/models"
	"gorm.io/gorm"
)

// StockService is the single source of truth for "how many of
// (product, size) remain". Reserve and Restock are the only writers of
// the stock counters; everything else reads.
type StockService struct{ DB *gorm.DB }

func NewStockService(db *gorm.DB) *StockService { return &StockService{DB: db} }

// AvailableQuantity returns the SizeStock quantity for size on a sized
// product, or the aggregate stock when size is empty. A size the
// product never stocked reads as zero. Never negative.
func (s *StockService) AvailableQuantity(productID uint, size string) (int, error) {
	return availableQuantity(s.DB, productID, size)
}

func availableQuantity(db *gorm.DB, productID uint, size string) (int, error) {
	if size != "" {
		var ss models.SizeStock
		err := db.Where("product_id = ? AND size = ?", productID, size).First(&ss).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		if err != nil {
			return 0, fmt.Errorf("read size stock: %w", err)
		}
		return ss.Quantity, nil
	}
	var p models.Product
	if err := db.Select("id", "stock").First(&p, productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrProductNotFound
		}
		return 0, fmt.Errorf("read product stock: %w", err)
	}
	return p.Stock, nil
}

// Reserve atomically debits qty from the relevant counter, failing with
// InsufficientStockError when the guard would go negative. Runs in its
// own transaction; checkout uses ReserveTx inside its commit
// transaction instead.
func (s *StockService) Reserve(productID uint, size string, qty int) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		return ReserveTx(tx, productID, size, qty)
	})
}

// ReserveTx performs the conditional decrement inside the caller's
// transaction. The availability check and the write are one UPDATE with
// a quantity guard, so concurrent reservations of the last units can
// never both pass: the loser matches zero rows.
func ReserveTx(tx *gorm.DB, productID uint, size string, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("reserve: quantity must be positive, got %d", qty)
	}
	if size != "" {
		res := tx.Model(&models.SizeStock{}).
			Where("product_id = ? AND size = ? AND quantity >= ?", productID, size, qty).
			Update("quantity", gorm.Expr("quantity - ?", qty))
		if res.Error != nil {
			return fmt.Errorf("reserve size stock: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			avail, err := availableQuantity(tx, productID, size)
			if err != nil {
				return err
			}
			return &InsufficientStockError{ProductID: productID, Size: size, Requested: qty, Available: avail}
		}
		// Keep the derived aggregate equal to the sum of the size rows.
		return syncAggregate(tx, productID)
	}
	res := tx.Model(&models.Product{}).
		Where("id = ? AND stock >= ?", productID, qty).
		Update("stock", gorm.Expr("stock - ?", qty))
	if res.Error != nil {
		return fmt.Errorf("reserve stock: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		avail, err := availableQuantity(tx, productID, "")
		if err != nil {
			return err
		}
		return &InsufficientStockError{ProductID: productID, Requested: qty, Available: avail}
	}
	return nil
}

func syncAggregate(tx *gorm.DB, productID uint) error {
	err := tx.Model(&models.Product{}).Where("id = ?", productID).
		Update("stock", gorm.Expr("(SELECT COALESCE(SUM(quantity), 0) FROM size_stocks WHERE product_id = ?)", productID)).Error
	if err != nil {
		return fmt.Errorf("sync aggregate stock: %w", err)
	}
	return nil
}

// Restock replaces the whole size map of a product and recomputes the
// aggregate as its sum; for an unsized product the aggregate is set
// directly from the "" key. This is the store owner's inventory edit,
// the only writer besides Reserve.
func (s *StockService) Restock(productID uint, quantities map[string]int) error {
	for size, q := range quantities {
		if q < 0 {
			return fmt.Errorf("restock: negative quantity %d for size %q", q, size)
		}
	}
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var p models.Product
		if err := tx.First(&p, productID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProductNotFound
			}
			return fmt.Errorf("load product: %w", err)
		}
		if !p.Sized() {
			// Rows left over from a since-cleared size set would
			// resurrect phantom per-size stock if sizes return.
			if err := tx.Where("product_id = ?", p.ID).Delete(&models.SizeStock{}).Error; err != nil {
				return fmt.Errorf("prune size stock: %w", err)
			}
			qty := quantities[""]
			if err := tx.Model(&p).Update("stock", qty).Error; err != nil {
				return fmt.Errorf("set stock: %w", err)
			}
			return nil
		}
		sizes := p.SizeList()
		// The submitted map is the complete new inventory: declared
		// sizes missing from it drop to zero, rows for sizes the
		// product no longer declares are removed.
		if err := tx.Where("product_id = ? AND size NOT IN ?", p.ID, sizes).
			Delete(&models.SizeStock{}).Error; err != nil {
			return fmt.Errorf("prune size stock: %w", err)
		}
		for _, size := range sizes {
			qty := quantities[size]
			var ss models.SizeStock
			err := tx.Where("product_id = ? AND size = ?", p.ID, size).First(&ss).Error
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				ss = models.SizeStock{ProductID: p.ID, Size: size, Quantity: qty}
				if err := tx.Create(&ss).Error; err != nil {
					return fmt.Errorf("create size stock: %w", err)
				}
			case err != nil:
				return fmt.Errorf("load size stock: %w", err)
			default:
				if err := tx.Model(&ss).Update("quantity", qty).Error; err != nil {
					return fmt.Errorf("update size stock: %w", err)
				}
			}
		}
		return syncAggregate(tx, p.ID)
	})
}
