package session

import (
	"strings"
	"sync"

	"storefront-complete/core"
)

// State is the view-state container for one storefront session: the current
// view, the selected product, the cart lines and the search term. It has no
// persistence of its own; the cart lives only in session memory and is
// cleared on checkout confirmation.
type State struct {
	mu       sync.RWMutex
	view     core.View
	selected *core.Product
	cart     []core.CartItem
	search   string
}

func NewState() *State {
	return &State{view: core.ViewHome}
}

func (s *State) View() core.View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view
}

func (s *State) SetView(v core.View) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view = v
}

// SelectedProduct returns the current selection, nil when there is none.
// Consumers receive it read-only; the container owns it.
func (s *State) SelectedProduct() *core.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}

func (s *State) Select(p *core.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = p
}

// AddToCart appends a snapshot copy of p with quantity 1. Adding the same
// product twice yields two lines; the quantity field exists but is never
// incremented.
func (s *State) AddToCart(p *core.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart = append(s.cart, core.NewCartItem(p))
}

// RemoveFromCart removes the line at index. The index is bounds-checked
// against the current cart length so a stale position cannot remove the
// wrong line.
func (s *State) RemoveFromCart(index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.cart) {
		return false
	}
	s.cart = append(s.cart[:index], s.cart[index+1:]...)
	return true
}

// ClearCart empties the cart. Used only on confirmed checkout.
func (s *State) ClearCart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart = nil
}

// Cart returns a copy of the cart lines.
func (s *State) Cart() []core.CartItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.CartItem(nil), s.cart...)
}

// CartCount sums the line quantities.
func (s *State) CartCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, item := range s.cart {
		count += item.Quantity
	}
	return count
}

// CartSubtotal sums the snapshot prices of the cart lines.
func (s *State) CartSubtotal() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0.0
	for _, item := range s.cart {
		total += item.Product.Price * float64(item.Quantity)
	}
	return total
}

func (s *State) SearchTerm() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.search
}

func (s *State) SetSearchTerm(term string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.search = term
}

// FilterProducts applies a case-insensitive substring match over product
// titles only. Recomputed from scratch on every call; no index is kept at
// this data scale.
func FilterProducts(products []*core.Product, term string) []*core.Product {
	needle := strings.ToLower(term)
	out := make([]*core.Product, 0, len(products))
	for _, p := range products {
		if p == nil || p.Title == "" {
			continue
		}
		if strings.Contains(strings.ToLower(p.Title), needle) {
			out = append(out, p)
		}
	}
	return out
}
