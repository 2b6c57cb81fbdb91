package storefront

import (
	"context"
	"sync"

	"quickadd/internal/model"
)

// Mock stands in for both the Client and a Session in tests.
// Each method can be configured via function fields; Adds records every
// successful cart add in order.
type Mock struct {
	FetchProductFunc func(ctx context.Context, handle string) (*model.Product, error)
	AddToCartFunc    func(ctx context.Context, id model.ID, quantity int) error
	CartFunc         func(ctx context.Context) (*Cart, error)

	mu   sync.Mutex
	adds []CartAddRequest
}

// FetchProduct calls the configured FetchProductFunc or returns a not found
// fetch error.
func (m *Mock) FetchProduct(ctx context.Context, handle string) (*model.Product, error) {
	if m.FetchProductFunc != nil {
		return m.FetchProductFunc(ctx, handle)
	}
	return nil, model.NewFetchError(handle, 404, nil)
}

// AddToCart calls the configured AddToCartFunc or succeeds.
func (m *Mock) AddToCart(ctx context.Context, id model.ID, quantity int) error {
	if m.AddToCartFunc != nil {
		if err := m.AddToCartFunc(ctx, id, quantity); err != nil {
			return err
		}
	}
	m.mu.Lock()
	m.adds = append(m.adds, CartAddRequest{ID: id, Quantity: quantity})
	m.mu.Unlock()
	return nil
}

// Cart calls the configured CartFunc or builds a cart from recorded adds.
func (m *Mock) Cart(ctx context.Context) (*Cart, error) {
	if m.CartFunc != nil {
		return m.CartFunc(ctx)
	}
	cart := &Cart{}
	for _, a := range m.Adds() {
		cart.ItemCount += a.Quantity
		cart.Items = append(cart.Items, CartLine{VariantID: a.ID, Quantity: a.Quantity})
	}
	return cart, nil
}

// Adds returns the successful cart adds so far.
func (m *Mock) Adds() []CartAddRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]CartAddRequest(nil), m.adds...)
}
