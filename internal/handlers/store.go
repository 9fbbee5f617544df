package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/souqapp/souq/auth"
	"github.com/souqapp/souq/httpx"
	"github.com/souqapp/souq/internal/models"
	"github.com/souqapp/souq/internal/policy"
	"github.com/souqapp/souq/validation"
	"gorm.io/gorm"
)

// StoreHandler covers the store application workflow: an owner applies,
// an admin approves or rejects. Only the approval status gates
// checkout; everything else here is plain CRUD.
type StoreHandler struct {
	DB   *gorm.DB
	Gate *policy.Gate
}

func NewStoreHandler(db *gorm.DB, gate *policy.Gate) *StoreHandler {
	return &StoreHandler{DB: db, Gate: gate}
}

// Apply: POST /stores/apply. A store owner submits a new store, which
// starts pending.
func (h *StoreHandler) Apply(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	var user models.User
	if err := h.DB.First(&user, uid).Error; err != nil {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	if !user.IsStoreOwner() {
		httpx.JSONError(w, http.StatusForbidden, "store_owner_account_required", nil)
		return
	}
	var input struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Address     string `json:"address"`
		Phone       string `json:"phone"`
		Email       string `json:"email"`
		Website     string `json:"website"`
	}
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	v := validation.Violations{}
	validation.Required("name", input.Name, v)
	validation.Required("email", input.Email, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	store := models.Store{
		OwnerID:        uid,
		Name:           strings.TrimSpace(input.Name),
		Description:    input.Description,
		Address:        input.Address,
		Phone:          input.Phone,
		Email:          input.Email,
		Website:        input.Website,
		ApprovalStatus: models.StoreStatusPending,
		Active:         true,
	}
	if err := h.DB.Create(&store).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "store_create_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, store)
}

// List: GET /stores. Approved stores for everyone; ?status= filters
// are admin-only.
func (h *StoreHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	status := r.URL.Query().Get("status")
	dbq := h.DB.Model(&models.Store{})
	if status != "" && h.Gate.Can(r.Context(), uid, policy.ActionApprove, "store", nil) {
		dbq = dbq.Where("approval_status = ?", status)
	} else {
		dbq = dbq.Where("approval_status = ? AND active = ?", models.StoreStatusApproved, true)
	}
	var stores []models.Store
	if err := dbq.Order("id desc").Find(&stores).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_stores", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": stores})
}

// Approve: POST /admin/stores/approve
func (h *StoreHandler) Approve(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	if err := h.Gate.Authorize(r.Context(), uid, policy.ActionApprove, "store", nil); err != nil {
		httpx.JSONError(w, http.StatusForbidden, "forbidden", nil)
		return
	}
	var input struct {
		StoreID uint `json:"store_id"`
	}
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	var store models.Store
	if err := h.DB.First(&store, input.StoreID).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "store_not_found", nil)
		return
	}
	now := time.Now()
	store.ApprovalStatus = models.StoreStatusApproved
	store.ApprovedByID = &uid
	store.ApprovalDate = &now
	store.RejectionReason = ""
	if err := h.DB.Save(&store).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "approve_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, store)
}

// Reject: POST /admin/stores/reject
func (h *StoreHandler) Reject(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	if err := h.Gate.Authorize(r.Context(), uid, policy.ActionApprove, "store", nil); err != nil {
		httpx.JSONError(w, http.StatusForbidden, "forbidden", nil)
		return
	}
	var input struct {
		StoreID uint   `json:"store_id"`
		Reason  string `json:"reason"`
	}
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	var store models.Store
	if err := h.DB.First(&store, input.StoreID).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "store_not_found", nil)
		return
	}
	store.ApprovalStatus = models.StoreStatusRejected
	store.ApprovedByID = nil
	store.ApprovalDate = nil
	store.RejectionReason = input.Reason
	if err := h.DB.Save(&store).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "reject_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, store)
}

// ToggleFavorite: POST /favorites/toggle
func (h *StoreHandler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	var input struct {
		StoreID uint `json:"store_id"`
	}
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	var store models.Store
	if err := h.DB.First(&store, input.StoreID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "store_not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "favorite_toggle_failed", nil)
		return
	}
	var existing models.FavoriteStore
	err := h.DB.Where("user_id = ? AND store_id = ?", uid, store.ID).First(&existing).Error
	switch {
	case err == nil:
		if err := h.DB.Delete(&existing).Error; err != nil {
			httpx.JSONError(w, http.StatusInternalServerError, "favorite_toggle_failed", nil)
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]any{"favorited": false})
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := h.DB.Create(&models.FavoriteStore{UserID: uid, StoreID: store.ID}).Error; err != nil {
			httpx.JSONError(w, http.StatusInternalServerError, "favorite_toggle_failed", nil)
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]any{"favorited": true})
	default:
		httpx.JSONError(w, http.StatusInternalServerError, "favorite_toggle_failed", nil)
	}
}

// ListFavorites: GET /favorites
func (h *StoreHandler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	var favs []models.FavoriteStore
	if err := h.DB.Preload("Store").Where("user_id = ?", uid).Order("id desc").Find(&favs).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_favorites", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": favs})
}
