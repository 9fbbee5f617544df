package httpx

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	JSON(rec, http.StatusTeapot, map[string]string{"k": "v"})
	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %s", ct)
	}
	if body := strings.TrimSpace(rec.Body.String()); body != `{"k":"v"}` {
		t.Errorf("body = %s", body)
	}

	rec = httptest.NewRecorder()
	JSON(rec, http.StatusNoContent, nil)
	if strings.TrimSpace(rec.Body.String()) != "null" {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestJSONError(t *testing.T) {
	rec := httptest.NewRecorder()
	JSONError(rec, http.StatusBadRequest, "validation_failed", map[string]string{"name": "required"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
	want := `{"error":"validation_failed","details":{"name":"required"}}`
	if body := strings.TrimSpace(rec.Body.String()); body != want {
		t.Errorf("body = %s, want %s", body, want)
	}

	// Details are omitted when nil.
	rec = httptest.NewRecorder()
	JSONError(rec, http.StatusNotFound, "not_found", nil)
	if body := strings.TrimSpace(rec.Body.String()); body != `{"error":"not_found"}` {
		t.Errorf("body = %s", body)
	}
}

func TestDecodeJSON(t *testing.T) {
	type input struct {
		Name string `json:"name"`
	}

	var dst input
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"ok"}`))
	if err := DecodeJSON(req, &dst); err != nil {
		t.Fatalf("DecodeJSON: %v", err)
	}
	if dst.Name != "ok" {
		t.Errorf("name = %s", dst.Name)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"bogus":1}`))
	if err := DecodeJSON(req, &input{}); err == nil {
		t.Error("unknown field accepted")
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"ok"} trailing`))
	if err := DecodeJSON(req, &input{}); err == nil {
		t.Error("trailing data accepted")
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`not json`))
	if err := DecodeJSON(req, &input{}); err == nil {
		t.Error("garbage accepted")
	}
}
