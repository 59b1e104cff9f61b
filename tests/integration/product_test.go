//go:build integration

package integration

import (
	"net/http"
	"testing"
)

func TestListProducts(t *testing.T) {
	resp := doGet(t, "/api/products")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	products := decodeJSON[[]productResponse](t, resp)
	if len(products) != 9 {
		t.Fatalf("expected 9 products, got %d", len(products))
	}
}

func TestListProducts_Fields(t *testing.T) {
	resp := doGet(t, "/api/products")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	products := decodeJSON[[]productResponse](t, resp)

	var waffle *productResponse
	for i := range products {
		if products[i].ID == "waffle-berries" {
			waffle = &products[i]
			break
		}
	}

	if waffle == nil {
		t.Fatal("product 'waffle-berries' not found")
	}
	if waffle.Name != "Waffle with Berries" {
		t.Errorf("name: got %q, want %q", waffle.Name, "Waffle with Berries")
	}
	if waffle.Price != 6.5 {
		t.Errorf("price: got %v, want 6.5", waffle.Price)
	}
	if waffle.Category != "Waffle" {
		t.Errorf("category: got %q, want %q", waffle.Category, "Waffle")
	}
	if !waffle.IsActive {
		t.Error("isActive: got false, want true")
	}
}

func TestGetProduct(t *testing.T) {
	resp := doGet(t, "/api/products/tiramisu")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	product := decodeJSON[productResponse](t, resp)
	if product.ID != "tiramisu" {
		t.Errorf("id: got %q, want %q", product.ID, "tiramisu")
	}
	if product.Name != "Classic Tiramisu" {
		t.Errorf("name: got %q, want %q", product.Name, "Classic Tiramisu")
	}
}

func TestGetProduct_NotFound(t *testing.T) {
	resp := doGet(t, "/api/products/no-such-product")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}

	errResp := decodeJSON[errorResponse](t, resp)
	if errResp.Code != "not_found" {
		t.Errorf("error code: got %q, want %q", errResp.Code, "not_found")
	}
}
