//go:build integration
// +build integration

// Integration tests against a live storefront.
// Run with: go test -tags=integration ./internal/storefront/... -v
//
// Required environment variables:
//
//	STOREFRONT_URL    - storefront base URL (e.g., https://shop.example.com)
//	STOREFRONT_HANDLE - handle of a product with at least one available variant
package storefront

import (
	"context"
	"os"
	"testing"
	"time"

	"quickadd/internal/model"
)

func loadIntegrationClient(t *testing.T) (*Client, string) {
	t.Helper()

	storeURL := os.Getenv("STOREFRONT_URL")
	handle := os.Getenv("STOREFRONT_HANDLE")
	if storeURL == "" || handle == "" {
		t.Skip("Skipping integration test: STOREFRONT_* env vars not set")
	}

	c, err := New(Config{StoreURL: storeURL, Timeout: 30 * time.Second})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c, handle
}

func TestIntegration_FetchAndAdd(t *testing.T) {
	c, handle := loadIntegrationClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	product, err := c.FetchProduct(ctx, handle)
	if err != nil {
		t.Fatalf("FetchProduct(%q) error = %v", handle, err)
	}
	t.Logf("product %q: %d options, %d variants", product.Title, len(product.Options), len(product.Variants))

	var variant model.ID
	for _, v := range product.Variants {
		if v.Available {
			variant = v.ID
			break
		}
	}
	if variant == "" {
		t.Skip("no available variant")
	}

	session, err := c.NewSession()
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}
	if err := session.AddToCart(ctx, variant, 1); err != nil {
		t.Fatalf("AddToCart() error = %v", err)
	}

	cart, err := session.Cart(ctx)
	if err != nil {
		t.Fatalf("Cart() error = %v", err)
	}
	if cart.ItemCount < 1 {
		t.Errorf("cart item count = %d, want >= 1", cart.ItemCount)
	}
}
