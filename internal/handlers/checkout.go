package handlers

import (
	"errors"
	"net/http"

	"github.com/souqapp/souq/auth"
	"github.com/souqapp/souq/httpx"
	"github.com/souqapp/souq/internal/models"
	"github.com/souqapp/souq/internal/services"
)

type CheckoutHandler struct {
	Checkout *services.CheckoutService
}

func NewCheckoutHandler(svc *services.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{Checkout: svc}
}

type saleView struct {
	ID        uint   `json:"id"`
	Reference string `json:"reference"`
	StoreID   uint   `json:"store_id"`
	ProductID *uint  `json:"product_id"`
	Size      string `json:"size,omitempty"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	Total     string `json:"total"`
}

type lineErrorView struct {
	LineID    uint   `json:"line_id"`
	Error     string `json:"error"`
	ProductID uint   `json:"product_id,omitempty"`
	Size      string `json:"size,omitempty"`
	Requested int    `json:"requested,omitempty"`
	Available int    `json:"available,omitempty"`
}

func renderLineErrors(lineErrs []services.LineError) []lineErrorView {
	out := make([]lineErrorView, 0, len(lineErrs))
	for _, le := range lineErrs {
		v := lineErrorView{LineID: le.LineID}
		var ins *services.InsufficientStockError
		var mismatch *services.ProductSizeMismatchError
		var store *services.StoreNotSellableError
		switch {
		case errors.As(le.Err, &ins):
			v.Error = "insufficient_stock"
			v.ProductID = ins.ProductID
			v.Size = ins.Size
			v.Requested = ins.Requested
			v.Available = ins.Available
		case errors.As(le.Err, &mismatch):
			v.Error = "size_mismatch"
			v.ProductID = mismatch.ProductID
			v.Size = mismatch.Size
		case errors.As(le.Err, &store):
			v.Error = "store_not_approved"
			v.ProductID = store.ProductID
		default:
			v.Error = "invalid_line"
		}
		out = append(out, v)
	}
	return out
}

// Handle: POST /checkout. Success returns every created sale; a
// validation failure returns the full per-line error list so the UI
// can flag all problems at once.
func (h *CheckoutHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	uid, _ := auth.UserIDFromContext(r.Context())
	sales, lineErrs, err := h.Checkout.Checkout(uid)
	switch {
	case errors.Is(err, services.ErrEmptyCart):
		httpx.JSONError(w, http.StatusBadRequest, "empty_cart", nil)
		return
	case errors.Is(err, services.ErrConcurrentStockConflict):
		httpx.JSONError(w, http.StatusConflict, "stock_conflict", nil)
		return
	case err != nil:
		httpx.JSONError(w, http.StatusInternalServerError, "checkout_failed", nil)
		return
	}
	if len(lineErrs) > 0 {
		httpx.JSONError(w, http.StatusConflict, "checkout_rejected", renderLineErrors(lineErrs))
		return
	}
	views := make([]saleView, 0, len(sales))
	for _, s := range sales {
		views = append(views, renderSale(s))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"sales": views})
}

func renderSale(s models.Sale) saleView {
	return saleView{
		ID:        s.ID,
		Reference: s.Reference,
		StoreID:   s.StoreID,
		ProductID: s.ProductID,
		Size:      s.Size,
		Quantity:  s.Quantity,
		UnitPrice: s.UnitPrice.StringFixed(2),
		Total:     s.TotalPrice().StringFixed(2),
	}
}
