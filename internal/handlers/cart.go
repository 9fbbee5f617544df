package handlers

import (
	"errors"
	"net/http"

	"github.com/souqapp/souq/auth"
	"github.com/souqapp/souq/httpx"
	"github.com/souqapp/souq/internal/models"
	"github.com/souqapp/souq/internal/services"
	"github.com/souqapp/souq/validation"
)

// CartHandler exposes the cart as JSON snapshots. Every mutating call
// answers with the updated cart plus an optional advisory stock
// warning; hard enforcement is the checkout's job.
type CartHandler struct {
	Cart *services.CartService
}

func NewCartHandler(cart *services.CartService) *CartHandler { return &CartHandler{Cart: cart} }

type cartLineView struct {
	ID        uint   `json:"id"`
	ProductID uint   `json:"product_id"`
	Product   string `json:"product"`
	Size      string `json:"size,omitempty"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
}

type cartView struct {
	ID         uint                            `json:"id"`
	Lines      []cartLineView                  `json:"lines"`
	TotalPrice string                          `json:"total_price"`
	Warning    *services.InsufficientStockError `json:"warning,omitempty"`
}

func renderCart(cart *models.Cart, warning *services.InsufficientStockError) cartView {
	view := cartView{Lines: []cartLineView{}, Warning: warning, TotalPrice: "0"}
	if cart == nil {
		return view
	}
	view.ID = cart.ID
	for _, l := range cart.Lines {
		view.Lines = append(view.Lines, cartLineView{
			ID:        l.ID,
			ProductID: l.ProductID,
			Product:   l.Product.Name,
			Size:      l.Size,
			Quantity:  l.Quantity,
			UnitPrice: l.Product.Price.StringFixed(2),
		})
	}
	view.TotalPrice = cart.TotalPrice().StringFixed(2)
	return view
}

// Show: GET /cart
func (h *CartHandler) Show(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	cart, err := h.Cart.ActiveCart(uid)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_cart", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, renderCart(cart, nil))
}

// Add: POST /cart/add
func (h *CartHandler) Add(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	var input struct {
		ProductID uint   `json:"product_id"`
		Size      string `json:"size"`
		Quantity  int    `json:"quantity"`
	}
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if input.Quantity == 0 {
		input.Quantity = 1
	}
	v := validation.Violations{}
	validation.PositiveInt("product_id", int(input.ProductID), v)
	validation.PositiveInt("quantity", input.Quantity, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	cart, warning, err := h.Cart.AddLine(uid, input.ProductID, input.Size, input.Quantity)
	if err != nil {
		writeCartError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, renderCart(cart, warning))
}

// Update: POST /cart/update
func (h *CartHandler) Update(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	var input struct {
		LineID   uint `json:"line_id"`
		Quantity int  `json:"quantity"`
	}
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if input.LineID == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string{"line_id": "required"})
		return
	}
	_, warning, err := h.Cart.SetLineQuantity(uid, input.LineID, input.Quantity)
	if err != nil {
		writeCartError(w, err)
		return
	}
	cart, err := h.Cart.ActiveCart(uid)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_cart", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, renderCart(cart, warning))
}

// Remove: POST /cart/remove
func (h *CartHandler) Remove(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	var input struct {
		LineID uint `json:"line_id"`
	}
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if err := h.Cart.RemoveLine(uid, input.LineID); err != nil {
		writeCartError(w, err)
		return
	}
	cart, err := h.Cart.ActiveCart(uid)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_cart", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, renderCart(cart, nil))
}

func writeCartError(w http.ResponseWriter, err error) {
	var mismatch *services.ProductSizeMismatchError
	switch {
	case errors.Is(err, services.ErrProductNotFound):
		httpx.JSONError(w, http.StatusNotFound, "product_not_found", nil)
	case errors.Is(err, services.ErrCartLineNotFound):
		httpx.JSONError(w, http.StatusNotFound, "cart_line_not_found", nil)
	case errors.As(err, &mismatch):
		httpx.JSONError(w, http.StatusBadRequest, "size_mismatch", mismatch)
	default:
		httpx.JSONError(w, http.StatusInternalServerError, "cart_operation_failed", nil)
	}
}
