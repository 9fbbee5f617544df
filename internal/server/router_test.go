package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"

	"github.com/souqapp/souq/internal/db"
	"github.com/souqapp/souq/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestServer(t *testing.T) (*httptest.Server, *gorm.DB) {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatal(err)
	}
	for _, m := range db.AllModels {
		if err := conn.AutoMigrate(m); err != nil {
			t.Fatal(err)
		}
	}
	ts := httptest.NewServer(New(conn))
	t.Cleanup(ts.Close)
	return ts, conn
}

// client keeps its session cookie across calls, like a browser.
func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	return &http.Client{Jar: jar}
}

func do(t *testing.T, c *http.Client, method, url string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode %s %s: %v", method, url, err)
	}
	return resp.StatusCode, out
}

func seedAdmin(t *testing.T, conn *gorm.DB) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("adminpass"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	admin := models.User{Email: "admin@souq.local", Password: string(hash), Type: models.UserTypeAdmin}
	if err := conn.Create(&admin).Error; err != nil {
		t.Fatal(err)
	}
}

func TestHealthEndpoints(t *testing.T) {
	ts, _ := newTestServer(t)
	c := newClient(t)

	status, body := do(t, c, http.MethodGet, ts.URL+"/health", nil)
	if status != http.StatusOK || body["status"] != "ok" {
		t.Errorf("health = %d %v", status, body)
	}
	status, body = do(t, c, http.MethodGet, ts.URL+"/healthz", nil)
	if status != http.StatusOK || body["status"] != "ok" {
		t.Errorf("healthz = %d %v", status, body)
	}
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	ts, _ := newTestServer(t)
	c := newClient(t)

	for _, route := range []string{"/cart", "/favorites", "/reports/sales"} {
		status, _ := do(t, c, http.MethodGet, ts.URL+route, nil)
		if status != http.StatusUnauthorized {
			t.Errorf("GET %s = %d, want 401", route, status)
		}
	}
	status, _ := do(t, c, http.MethodPost, ts.URL+"/checkout", nil)
	if status != http.StatusUnauthorized {
		t.Errorf("POST /checkout = %d, want 401", status)
	}
}

// Full marketplace round trip: owner applies, admin approves, owner
// stocks a product, buyer purchases it, owner reads the report.
func TestMarketplaceFlow(t *testing.T) {
	ts, conn := newTestServer(t)
	seedAdmin(t, conn)

	owner := newClient(t)
	status, _ := do(t, owner, http.MethodPost, ts.URL+"/signup", map[string]any{
		"email": "owner@test.example", "password": "secret", "type": "store_owner",
	})
	if status != http.StatusCreated {
		t.Fatalf("owner signup = %d", status)
	}

	status, store := do(t, owner, http.MethodPost, ts.URL+"/stores/apply", map[string]any{
		"name": "Tea House", "email": "tea@test.example",
	})
	if status != http.StatusCreated {
		t.Fatalf("apply = %d %v", status, store)
	}
	storeID := uint(store["ID"].(float64))

	// Products of a pending store are invisible and unsellable.
	status, products := do(t, owner, http.MethodPost, ts.URL+"/products", map[string]any{
		"store_id": storeID, "name": "Green Tea", "price": "12.50", "sizes": "S,L",
	})
	if status != http.StatusCreated {
		t.Fatalf("create product = %d %v", status, products)
	}
	productID := uint(products["ID"].(float64))

	anon := newClient(t)
	_, listing := do(t, anon, http.MethodGet, ts.URL+"/products", nil)
	if listing["total"].(float64) != 0 {
		t.Errorf("pending store's product listed publicly: %v", listing)
	}

	admin := newClient(t)
	status, _ = do(t, admin, http.MethodPost, ts.URL+"/login", map[string]any{
		"email": "admin@souq.local", "password": "adminpass",
	})
	if status != http.StatusOK {
		t.Fatalf("admin login = %d", status)
	}
	status, _ = do(t, admin, http.MethodPost, ts.URL+"/admin/stores/approve", map[string]any{"store_id": storeID})
	if status != http.StatusOK {
		t.Fatalf("approve = %d", status)
	}

	status, _ = do(t, owner, http.MethodPost, ts.URL+"/products/restock", map[string]any{
		"id": productID, "quantities": map[string]int{"S": 4, "L": 2},
	})
	if status != http.StatusOK {
		t.Fatalf("restock = %d", status)
	}

	buyer := newClient(t)
	status, _ = do(t, buyer, http.MethodPost, ts.URL+"/signup", map[string]any{
		"email": "buyer@test.example", "password": "secret",
	})
	if status != http.StatusCreated {
		t.Fatalf("buyer signup = %d", status)
	}

	status, cart := do(t, buyer, http.MethodPost, ts.URL+"/cart/add", map[string]any{
		"product_id": productID, "size": "S", "quantity": 3,
	})
	if status != http.StatusOK {
		t.Fatalf("cart add = %d %v", status, cart)
	}
	if cart["total_price"] != "37.50" {
		t.Errorf("total_price = %v", cart["total_price"])
	}

	status, receipt := do(t, buyer, http.MethodPost, ts.URL+"/checkout", nil)
	if status != http.StatusOK {
		t.Fatalf("checkout = %d %v", status, receipt)
	}
	sales := receipt["sales"].([]any)
	if len(sales) != 1 {
		t.Fatalf("sales = %v", sales)
	}
	if sales[0].(map[string]any)["total"] != "37.50" {
		t.Errorf("sale = %v", sales[0])
	}

	// A second immediate checkout finds the cart already consumed.
	status, _ = do(t, buyer, http.MethodPost, ts.URL+"/checkout", nil)
	if status != http.StatusBadRequest {
		t.Errorf("second checkout = %d, want 400", status)
	}

	// Stock went down; the public listing now carries the product.
	_, listing = do(t, anon, http.MethodGet, ts.URL+"/products", nil)
	if listing["total"].(float64) != 1 {
		t.Errorf("listing = %v", listing)
	}
	item := listing["items"].([]any)[0].(map[string]any)
	if item["Stock"].(float64) != 3 {
		t.Errorf("stock = %v, want 3", item["Stock"])
	}

	status, report := do(t, owner, http.MethodGet, fmt.Sprintf("%s/reports/sales?store_id=%d", ts.URL, storeID), nil)
	if status != http.StatusOK {
		t.Fatalf("report = %d %v", status, report)
	}
	items := report["items"].([]any)
	if len(items) != 1 {
		t.Fatalf("report items = %v", items)
	}
	agg := items[0].(map[string]any)
	if agg["total_quantity"].(float64) != 3 || agg["revenue"] != "37.5" {
		t.Errorf("agg = %v", agg)
	}

	// The buyer cannot read the store's report.
	status, _ = do(t, buyer, http.MethodGet, fmt.Sprintf("%s/reports/sales?store_id=%d", ts.URL, storeID), nil)
	if status != http.StatusForbidden {
		t.Errorf("buyer report = %d, want 403", status)
	}
}
