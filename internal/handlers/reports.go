package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/souqapp/souq/auth"
	"github.com/souqapp/souq/httpx"
	"github.com/souqapp/souq/internal/models"
	"github.com/souqapp/souq/internal/policy"
	"github.com/souqapp/souq/internal/services"
	"gorm.io/gorm"
)

// ReportHandler serves the store owner's sales aggregations.
type ReportHandler struct {
	DB      *gorm.DB
	Reports *services.ReportService
	Gate    *policy.Gate
}

func NewReportHandler(db *gorm.DB, reports *services.ReportService, gate *policy.Gate) *ReportHandler {
	return &ReportHandler{DB: db, Reports: reports, Gate: gate}
}

// Sales: GET /reports/sales?store_id=&group=product|month|buyer&from=&to=
func (h *ReportHandler) Sales(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	storeID, _ := strconv.Atoi(r.URL.Query().Get("store_id"))
	if storeID <= 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_store_id", nil)
		return
	}
	var store models.Store
	if err := h.DB.First(&store, storeID).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "store_not_found", nil)
		return
	}
	if err := h.Gate.Authorize(r.Context(), uid, policy.ActionView, "store", &store); err != nil {
		httpx.JSONError(w, http.StatusForbidden, "forbidden", nil)
		return
	}

	var dr services.DateRange
	if v := r.URL.Query().Get("from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_from_date", nil)
			return
		}
		dr.From = t
	}
	if v := r.URL.Query().Get("to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_to_date", nil)
			return
		}
		// Inclusive end date: window up to the following midnight.
		dr.To = t.AddDate(0, 0, 1)
	}

	group := r.URL.Query().Get("group")
	var (
		aggs []services.SalesAggregate
		err  error
	)
	switch group {
	case "", "product":
		aggs, err = h.Reports.ByProduct(store.ID, dr)
	case "month":
		aggs, err = h.Reports.ByMonth(store.ID, dr)
	case "buyer":
		aggs, err = h.Reports.ByBuyer(store.ID, dr)
	default:
		httpx.JSONError(w, http.StatusBadRequest, "invalid_group", nil)
		return
	}
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "report_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"group": groupOrDefault(group), "items": aggs})
}

func groupOrDefault(group string) string {
	if group == "" {
		return "product"
	}
	return group
}
