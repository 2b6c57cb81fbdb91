package quickadd

import (
	"context"
	"sync"

	"quickadd/internal/model"
	"quickadd/internal/money"
)

func str(s string) *string { return &s }

// sizeProduct has one dropdown option; S is available, M is sold out.
func sizeProduct() *model.Product {
	return &model.Product{
		ID:     "1",
		Handle: "tee",
		Title:  "Tee",
		Images: []string{"tee.jpg"},
		Options: []model.Option{
			{Name: "Size", Position: 1, Values: []string{"S", "M"}},
		},
		Variants: []model.Variant{
			{ID: "11", Values: []*string{str("S")}, Price: 1999, Available: true},
			{ID: "12", Values: []*string{str("M")}, Price: 2499, Available: false},
		},
	}
}

// apparelProduct has a color swatch option and a size dropdown.
func apparelProduct() *model.Product {
	return &model.Product{
		ID:     "2",
		Handle: "hoodie",
		Title:  "Hoodie",
		Images: []string{"hoodie.jpg"},
		Options: []model.Option{
			{Name: "Color", Position: 1, Values: []string{"Red", "Blue"}},
			{Name: "Size", Position: 2, Values: []string{"S", "M", "L"}},
		},
		Variants: []model.Variant{
			{ID: "21", Values: []*string{str("Red"), str("S")}, Price: 5000, Available: false, FeaturedImage: "red.jpg"},
			{ID: "22", Values: []*string{str("Red"), str("M")}, Price: 5000, Available: true, FeaturedImage: "red.jpg"},
			{ID: "23", Values: []*string{str("Blue"), str("M")}, Price: 5500, Available: true, FeaturedImage: "blue.jpg"},
			{ID: "24", Values: []*string{str("Blue"), str("L")}, Price: 5500, Available: true},
		},
	}
}

// staticProducts serves fixed products and counts lookups.
type staticProducts struct {
	mu       sync.Mutex
	products map[string]*model.Product
	calls    int
	gate     chan struct{}
}

func newStaticProducts(ps ...*model.Product) *staticProducts {
	s := &staticProducts{products: make(map[string]*model.Product)}
	for _, p := range ps {
		s.products[p.Handle] = p
	}
	return s
}

func (s *staticProducts) Get(ctx context.Context, handle string) (*model.Product, error) {
	s.mu.Lock()
	s.calls++
	gate := s.gate
	p, ok := s.products[handle]
	s.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if !ok {
		return nil, model.NewFetchError(handle, 404, nil)
	}
	return p, nil
}

var usd = money.Formatter{Currency: "USD"}
