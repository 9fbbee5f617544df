package handlers

import (
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/souqapp/souq/auth"
	"github.com/souqapp/souq/httpx"
	"github.com/souqapp/souq/internal/models"
	"github.com/souqapp/souq/internal/policy"
	"github.com/souqapp/souq/internal/services"
	"github.com/souqapp/souq/validation"
	"gorm.io/gorm"
)

// ProductHandler covers the public listing plus the store owner's
// catalog and inventory operations.
type ProductHandler struct {
	DB      *gorm.DB
	Catalog *services.CatalogService
	Stock   *services.StockService
	Gate    *policy.Gate
}

func NewProductHandler(db *gorm.DB, catalog *services.CatalogService, stock *services.StockService, gate *policy.Gate) *ProductHandler {
	return &ProductHandler{DB: db, Catalog: catalog, Stock: stock, Gate: gate}
}

var unsafeQueryChars = regexp.MustCompile(`[^a-zA-Z0-9 \-_]`)

// List: GET /products. Public storefront, approved stores only.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	pageSize := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			pageSize = n
		}
	}
	offset := 0
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 1 {
			offset = (n - 1) * pageSize
		}
	}
	dbq := h.DB.Model(&models.Product{}).
		Joins("JOIN stores ON stores.id = products.store_id").
		Where("stores.approval_status = ? AND stores.active = ?", models.StoreStatusApproved, true)
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		like := "%" + strings.ToLower(unsafeQueryChars.ReplaceAllString(q, "")) + "%"
		dbq = dbq.Where("lower(products.name) LIKE ?", like)
	}
	if v := r.URL.Query().Get("category_id"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			dbq = dbq.Where("products.category_id = ?", n)
		}
	}
	if v := r.URL.Query().Get("store_id"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			dbq = dbq.Where("products.store_id = ?", n)
		}
	}
	var total int64
	dbq.Count(&total)
	var products []models.Product
	if err := dbq.Preload("SizeStocks").Order("products.id desc").Limit(pageSize).Offset(offset).Find(&products).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_products", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": products, "total": total, "limit": pageSize, "offset": offset})
}

// Create: POST /products. Owner adds a product to their store.
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	var input struct {
		StoreID     uint   `json:"store_id"`
		CategoryID  uint   `json:"category_id"`
		Name        string `json:"name"`
		Description string `json:"description"`
		Price       string `json:"price"`
		Sizes       string `json:"sizes"`
		Stock       int    `json:"stock"`
	}
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	v := validation.Violations{}
	validation.Required("name", input.Name, v)
	validation.Required("price", input.Price, v)
	validation.PositiveInt("store_id", int(input.StoreID), v)
	validation.NonNegativeInt("stock", input.Stock, v)
	price, perr := decimal.NewFromString(input.Price)
	if perr != nil || price.IsNegative() {
		v["price"] = "invalid_decimal"
	}
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	var store models.Store
	if err := h.DB.First(&store, input.StoreID).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "store_not_found", nil)
		return
	}
	if err := h.Gate.Authorize(r.Context(), uid, policy.ActionCreate, "product", &store); err != nil {
		httpx.JSONError(w, http.StatusForbidden, "forbidden", nil)
		return
	}
	p := models.Product{
		StoreID:     store.ID,
		CategoryID:  input.CategoryID,
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
		Price:       price,
		Sizes:       input.Sizes,
		Stock:       input.Stock,
	}
	if err := h.DB.Create(&p).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "product_create_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

// Update: POST /products/update. Name, price, category, sizes.
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	var input struct {
		ID          uint    `json:"id"`
		Name        *string `json:"name"`
		Description *string `json:"description"`
		Price       *string `json:"price"`
		CategoryID  *uint   `json:"category_id"`
		Sizes       *string `json:"sizes"`
	}
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	p, ok := h.loadOwned(w, r, uid, input.ID, policy.ActionUpdate)
	if !ok {
		return
	}
	if input.Name != nil {
		p.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		p.Description = *input.Description
	}
	if input.Price != nil {
		price, err := decimal.NewFromString(*input.Price)
		if err != nil || price.IsNegative() {
			httpx.JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string{"price": "invalid_decimal"})
			return
		}
		// Sales keep the price they were committed at; only future
		// carts see this.
		p.Price = price
	}
	if input.CategoryID != nil {
		p.CategoryID = *input.CategoryID
	}
	if input.Sizes != nil {
		p.Sizes = *input.Sizes
	}
	if err := h.DB.Save(p).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "update_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

// Delete: POST /products/delete. Cascades through the catalog service.
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	var input struct {
		ID uint `json:"id"`
	}
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if _, ok := h.loadOwned(w, r, uid, input.ID, policy.ActionDelete); !ok {
		return
	}
	if err := h.Catalog.DeleteProduct(input.ID); err != nil {
		if errors.Is(err, services.ErrProductNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "product_not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "delete_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": input.ID})
}

// Restock: POST /products/restock. The owner's inventory edit; the
// submitted map replaces the whole inventory of the product.
func (h *ProductHandler) Restock(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	var input struct {
		ID         uint           `json:"id"`
		Quantities map[string]int `json:"quantities"`
	}
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if _, ok := h.loadOwned(w, r, uid, input.ID, policy.ActionRestock); !ok {
		return
	}
	if err := h.Stock.Restock(input.ID, input.Quantities); err != nil {
		if errors.Is(err, services.ErrProductNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "product_not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusBadRequest, "restock_failed", nil)
		return
	}
	var p models.Product
	if err := h.DB.Preload("SizeStocks").First(&p, input.ID).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_product", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

// loadOwned fetches the product with its store and authorizes action
// against the ownership gate. Writes the error response itself.
func (h *ProductHandler) loadOwned(w http.ResponseWriter, r *http.Request, uid, id uint, action policy.Action) (*models.Product, bool) {
	if id == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return nil, false
	}
	var p models.Product
	if err := h.DB.Preload("Store").First(&p, id).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "product_not_found", nil)
		return nil, false
	}
	if err := h.Gate.Authorize(r.Context(), uid, action, "product", &p); err != nil {
		httpx.JSONError(w, http.StatusForbidden, "forbidden", nil)
		return nil, false
	}
	return &p, true
}
