package storefront

import "quickadd/internal/model"

// CartAddRequest is the body of POST /cart/add.js.
type CartAddRequest struct {
	ID       model.ID `json:"id"`
	Quantity int      `json:"quantity"`
}

// Cart is the subset of GET /cart.js the client reports back.
type Cart struct {
	Token      string           `json:"token"`
	ItemCount  int              `json:"item_count"`
	TotalPrice model.MinorUnits `json:"total_price"`
	Currency   string           `json:"currency"`
	Items      []CartLine       `json:"items"`
}

// CartLine is one line of the cart.
type CartLine struct {
	ID        model.ID         `json:"id"`
	VariantID model.ID         `json:"variant_id"`
	Title     string           `json:"title"`
	Quantity  int              `json:"quantity"`
	Price     model.MinorUnits `json:"price"`
	LinePrice model.MinorUnits `json:"line_price"`
}

// errorResponse is the storefront's JSON error shape, e.g. for a sold-out
// variant: {"status": 422, "message": "Cart Error", "description": "..."}.
type errorResponse struct {
	Status      any    `json:"status"`
	Message     string `json:"message"`
	Description string `json:"description"`
}
