package core

// CartItem is a product snapshot captured at add-time plus a quantity. It is
// intentionally not a live reference: later edits to the catalog copy of the
// product must not change lines already in the cart.
type CartItem struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// NewCartItem snapshots p into a cart line with quantity 1.
func NewCartItem(p *Product) CartItem {
	return CartItem{Product: *p.Clone(), Quantity: 1}
}
