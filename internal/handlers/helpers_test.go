package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/souqapp/souq/auth"
	"github.com/souqapp/souq/internal/models"
	"github.com/souqapp/souq/internal/policy"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupHandlerDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	err = conn.AutoMigrate(
		&models.User{}, &models.Store{}, &models.FavoriteStore{},
		&models.Category{}, &models.Product{}, &models.SizeStock{},
		&models.Cart{}, &models.CartLine{}, &models.Sale{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

// testGate mirrors the router's gate wiring: ownership with admin
// bypass on both resource types.
func testGate(conn *gorm.DB) *policy.Gate {
	isAdmin := func(_ context.Context, uid uint) bool {
		var count int64
		conn.Model(&models.User{}).Where("id = ? AND type = ?", uid, models.UserTypeAdmin).Count(&count)
		return count > 0
	}
	g := policy.NewGate()
	g.Register("store", policy.NewAdminBypassPolicy(policy.NewOwnershipPolicy(), isAdmin))
	g.Register("product", policy.NewAdminBypassPolicy(policy.NewOwnershipPolicy(), isAdmin))
	return g
}

func createUser(t *testing.T, conn *gorm.DB, email, userType string) models.User {
	t.Helper()
	u := models.User{Email: email, Password: "x", Type: userType}
	if err := conn.Create(&u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func createApprovedStore(t *testing.T, conn *gorm.DB, ownerID uint) models.Store {
	t.Helper()
	s := models.Store{OwnerID: ownerID, Name: "Shop", Email: "shop@test", ApprovalStatus: models.StoreStatusApproved, Active: true}
	if err := conn.Create(&s).Error; err != nil {
		t.Fatalf("create store: %v", err)
	}
	return s
}

func createProduct(t *testing.T, conn *gorm.DB, storeID uint, price string, stock int, sizes string) models.Product {
	t.Helper()
	p := models.Product{StoreID: storeID, Name: "Widget", Price: decimal.RequireFromString(price), Stock: stock, Sizes: sizes}
	if err := conn.Create(&p).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	for _, size := range p.SizeList() {
		if err := conn.Create(&models.SizeStock{ProductID: p.ID, Size: size, Quantity: stock / len(p.SizeList())}).Error; err != nil {
			t.Fatalf("create size stock: %v", err)
		}
	}
	return p
}

// jsonRequest builds an authenticated request carrying body as JSON.
// userID 0 leaves the request anonymous.
func jsonRequest(t *testing.T, method, target string, body any, userID uint) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != 0 {
		req = req.WithContext(auth.WithUserID(req.Context(), userID))
	}
	return req
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func wantStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, want, rec.Body.String())
	}
}
