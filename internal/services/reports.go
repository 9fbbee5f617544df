package services

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/souqapp/souq/internal/models"
	"gorm.io/gorm"
)

// ReportService is the read side over the immutable sales ledger.
// Grouped totals for a store, revenue-descending, optionally windowed.
type ReportService struct{ DB *gorm.DB }

func NewReportService(db *gorm.DB) *ReportService { return &ReportService{DB: db} }

// DateRange windows a report; zero bounds are open.
type DateRange struct {
	From time.Time
	To   time.Time
}

// SalesAggregate is one bucket of a grouped report.
type SalesAggregate struct {
	Key           string          `json:"key"` // product name, YYYY-MM, or buyer email
	ProductID     *uint           `json:"product_id,omitempty"`
	BuyerID       uint            `json:"buyer_id,omitempty"`
	TotalQuantity int64           `json:"total_quantity"`
	Revenue       decimal.Decimal `json:"revenue"`
	Count         int64           `json:"count"`
}

func (s *ReportService) scoped(storeID uint, r DateRange) *gorm.DB {
	q := s.DB.Model(&models.Sale{}).Where("store_id = ?", storeID)
	if !r.From.IsZero() {
		q = q.Where("created_at >= ?", r.From)
	}
	if !r.To.IsZero() {
		q = q.Where("created_at < ?", r.To)
	}
	return q
}

// ByProduct groups the store's sales per product. Sales whose product
// was deleted since are bucketed together under a nil product id.
func (s *ReportService) ByProduct(storeID uint, r DateRange) ([]SalesAggregate, error) {
	type row struct {
		ProductID     *uint
		TotalQuantity int64
		Revenue       decimal.Decimal
		Count         int64
	}
	var rows []row
	err := s.scoped(storeID, r).
		Select("product_id, SUM(quantity) AS total_quantity, SUM(quantity * unit_price) AS revenue, COUNT(*) AS count").
		Group("product_id").
		Order("revenue DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("aggregate sales by product: %w", err)
	}
	out := make([]SalesAggregate, 0, len(rows))
	for _, rw := range rows {
		agg := SalesAggregate{ProductID: rw.ProductID, TotalQuantity: rw.TotalQuantity, Revenue: rw.Revenue, Count: rw.Count}
		if rw.ProductID != nil {
			var p models.Product
			if err := s.DB.Select("name").First(&p, *rw.ProductID).Error; err == nil {
				agg.Key = p.Name
			}
		} else {
			agg.Key = "deleted product"
		}
		out = append(out, agg)
	}
	return out, nil
}

// ByBuyer groups the store's sales per buyer.
func (s *ReportService) ByBuyer(storeID uint, r DateRange) ([]SalesAggregate, error) {
	type row struct {
		BuyerID       uint
		TotalQuantity int64
		Revenue       decimal.Decimal
		Count         int64
	}
	var rows []row
	err := s.scoped(storeID, r).
		Select("buyer_id, SUM(quantity) AS total_quantity, SUM(quantity * unit_price) AS revenue, COUNT(*) AS count").
		Group("buyer_id").
		Order("revenue DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("aggregate sales by buyer: %w", err)
	}
	out := make([]SalesAggregate, 0, len(rows))
	for _, rw := range rows {
		agg := SalesAggregate{BuyerID: rw.BuyerID, TotalQuantity: rw.TotalQuantity, Revenue: rw.Revenue, Count: rw.Count}
		var u models.User
		if err := s.DB.Select("email").First(&u, rw.BuyerID).Error; err == nil {
			agg.Key = u.Email
		}
		out = append(out, agg)
	}
	return out, nil
}

// ByMonth buckets per calendar month. Bucketing happens in Go; date
// formatting functions differ between sqlite and postgres and this
// keeps the query portable across both drivers.
func (s *ReportService) ByMonth(storeID uint, r DateRange) ([]SalesAggregate, error) {
	var sales []models.Sale
	if err := s.scoped(storeID, r).Find(&sales).Error; err != nil {
		return nil, fmt.Errorf("load sales: %w", err)
	}
	buckets := map[string]*SalesAggregate{}
	for _, sale := range sales {
		key := sale.CreatedAt.Format("2006-01")
		b, ok := buckets[key]
		if !ok {
			b = &SalesAggregate{Key: key, Revenue: decimal.Zero}
			buckets[key] = b
		}
		b.TotalQuantity += int64(sale.Quantity)
		b.Revenue = b.Revenue.Add(sale.TotalPrice())
		b.Count++
	}
	out := make([]SalesAggregate, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Revenue.GreaterThan(out[j].Revenue) })
	return out, nil
}
