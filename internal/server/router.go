package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/souqapp/souq/auth"
	"github.com/souqapp/souq/httpx"
	"github.com/souqapp/souq/internal/handlers"
	"github.com/souqapp/souq/internal/models"
	"github.com/souqapp/souq/internal/policy"
	"github.com/souqapp/souq/internal/services"
	"gorm.io/gorm"
)

// New constructs the root http.Handler with all routes and middlewares applied.
func New(db *gorm.DB) http.Handler {
	mux := http.NewServeMux()

	// RequireAuth double-checks that a session's user still exists.
	auth.SetUserVerifier(func(_ context.Context, uid uint) bool {
		var count int64
		if err := db.Model(&models.User{}).Where("id = ?", uid).Limit(1).Count(&count).Error; err != nil {
			return false
		}
		return count > 0
	})

	isAdmin := func(_ context.Context, uid uint) bool {
		var count int64
		if err := db.Model(&models.User{}).Where("id = ? AND type = ?", uid, models.UserTypeAdmin).Limit(1).Count(&count).Error; err != nil {
			return false
		}
		return count > 0
	}
	gate := policy.NewGate()
	gate.Register("store", policy.NewAdminBypassPolicy(policy.NewOwnershipPolicy(), isAdmin))
	gate.Register("product", policy.NewAdminBypassPolicy(policy.NewOwnershipPolicy(), isAdmin))

	stockSvc := services.NewStockService(db)
	cartSvc := services.NewCartService(db, stockSvc)
	checkoutSvc := services.NewCheckoutService(db, stockSvc, cartSvc)
	catalogSvc := services.NewCatalogService(db)
	reportSvc := services.NewReportService(db)

	// --- Health endpoints ---
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if err := db.Exec("SELECT 1").Error; err != nil {
			httpx.JSONError(w, http.StatusServiceUnavailable, "degraded", nil)
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Auth endpoints
	authHandler := handlers.NewAuthHandler(db)
	authHandler.Register(mux)

	secured := func(h http.HandlerFunc) http.Handler {
		return auth.RequireAuth(h)
	}

	// Cart + checkout
	ch := handlers.NewCartHandler(cartSvc)
	mux.Handle("/cart", secured(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", "GET")
			httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
			return
		}
		ch.Show(w, r)
	}))
	mux.Handle("/cart/add", secured(postOnly(ch.Add)))
	mux.Handle("/cart/update", secured(postOnly(ch.Update)))
	mux.Handle("/cart/remove", secured(postOnly(ch.Remove)))

	co := handlers.NewCheckoutHandler(checkoutSvc)
	mux.Handle("/checkout", secured(co.Handle))

	// Catalog: public listing, owner mutations
	ph := handlers.NewProductHandler(db, catalogSvc, stockSvc, gate)
	mux.Handle("/products", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			ph.List(w, r)
		case http.MethodPost:
			secured(ph.Create).ServeHTTP(w, r)
		default:
			w.Header().Set("Allow", "GET,POST")
			httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		}
	}))
	mux.Handle("/products/update", secured(postOnly(ph.Update)))
	mux.Handle("/products/delete", secured(postOnly(ph.Delete)))
	mux.Handle("/products/restock", secured(postOnly(ph.Restock)))

	// Stores + approval workflow + favorites
	sh := handlers.NewStoreHandler(db, gate)
	mux.Handle("/stores", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", "GET")
			httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
			return
		}
		sh.List(w, r)
	}))
	mux.Handle("/stores/apply", secured(postOnly(sh.Apply)))
	mux.Handle("/admin/stores/approve", secured(postOnly(sh.Approve)))
	mux.Handle("/admin/stores/reject", secured(postOnly(sh.Reject)))
	mux.Handle("/favorites/toggle", secured(postOnly(sh.ToggleFavorite)))
	mux.Handle("/favorites", secured(sh.ListFavorites))

	// Reporting
	rh := handlers.NewReportHandler(db, reportSvc, gate)
	mux.Handle("/reports/sales", secured(rh.Sales))

	return auth.Middleware(withRecover(withLogging(mux)))
}

func postOnly(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", "POST")
			httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
			return
		}
		h(w, r)
	}
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}

func withRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
