// Package nav keeps the navigable address and the in-memory view state from
// diverging: every navigation pushes exactly one address entry, and every
// address change (back/forward, reload, manual edit) is reflected by exactly
// one state update via SyncFromAddress.
package nav

import (
	"net/url"
	"strconv"

	"storefront-complete/core"
	"storefront-complete/session"
)

// History is the navigable address stack the synchronizer writes to and reads
// from. Addresses are raw query strings ("view=detail&product=7").
type History interface {
	// Push appends a new entry and makes it current. Navigation always pushes
	// rather than replaces, so each step is independently revisitable.
	Push(address string)

	// Current returns the address of the current entry.
	Current() string
}

// Resolver looks a product up in whatever product set is current at the time
// of the call, not the set that was current when navigation was requested.
type Resolver interface {
	Resolve(id int64) (*core.Product, bool)
	Loaded() bool
}

// MemoryHistory is a History that keeps the full entry stack, with back and
// forward movement. Pushing while back in the stack discards the forward
// entries, the way a browser does.
type MemoryHistory struct {
	entries []string
	pos     int
}

func NewMemoryHistory() *MemoryHistory {
	return &MemoryHistory{entries: []string{""}}
}

func (h *MemoryHistory) Push(address string) {
	h.entries = append(h.entries[:h.pos+1], address)
	h.pos = len(h.entries) - 1
}

func (h *MemoryHistory) Current() string {
	return h.entries[h.pos]
}

// Back moves one entry backwards. Returns false at the oldest entry.
func (h *MemoryHistory) Back() bool {
	if h.pos == 0 {
		return false
	}
	h.pos--
	return true
}

// Forward moves one entry forwards. Returns false at the newest entry.
func (h *MemoryHistory) Forward() bool {
	if h.pos == len(h.entries)-1 {
		return false
	}
	h.pos++
	return true
}

// EncodeAddress builds the query representation of a view plus an optional
// selected product. The product parameter is omitted when no identifier is
// given.
func EncodeAddress(view core.View, productID int64) string {
	q := url.Values{}
	q.Set("view", string(view))
	if productID != 0 {
		q.Set("product", strconv.FormatInt(productID, 10))
	}
	return q.Encode()
}

// DecodeAddress parses an address back into a view and product identifier.
// A missing or unrecognized view is home; a missing or non-numeric product
// parameter is 0.
func DecodeAddress(address string) (core.View, int64) {
	q, err := url.ParseQuery(address)
	if err != nil {
		return core.ViewHome, 0
	}
	view := core.ParseView(q.Get("view"))
	id, _ := strconv.ParseInt(q.Get("product"), 10, 64)
	return view, id
}

// Synchronizer maps {view, selected product} to and from the address,
// keeping back/forward navigation consistent with in-memory selection.
type Synchronizer struct {
	history  History
	state    *session.State
	resolver Resolver
}

func NewSynchronizer(history History, state *session.State, resolver Resolver) *Synchronizer {
	return &Synchronizer{history: history, state: state, resolver: resolver}
}

// NavigateTo switches the state container to view, resolves the optional
// product selection, and pushes a matching address entry. The state switch is
// synchronous; it does not wait for any history callback.
//
// A detail request whose product resolves selects it. One whose product does
// not resolve while a product set is loaded fail-resolves to home. When the
// product set has not loaded yet the navigation proceeds with no selection
// and reconciliation is left to a later SyncFromAddress.
func (s *Synchronizer) NavigateTo(view core.View, productID int64) {
	if view == core.ViewDetail {
		if p, ok := s.resolver.Resolve(productID); ok {
			s.state.Select(p)
		} else if s.resolver.Loaded() {
			view = core.ViewHome
			productID = 0
			s.state.Select(nil)
		} else {
			s.state.Select(nil)
		}
	} else if view == core.ViewHome {
		s.state.Select(nil)
	}
	s.state.SetView(view)
	s.history.Push(EncodeAddress(view, productID))
}

// SyncFromAddress reads the current address and updates the state container
// to match. Invoked on mount and on every history pop. Unrecognized views
// and unresolvable product identifiers (a bookmarked link to a deleted
// product, a list that has not loaded) fall back to home with no selection;
// that is a recoverable case, not an error. Calling it twice with no address
// change produces no observable state change.
func (s *Synchronizer) SyncFromAddress() {
	view, productID := DecodeAddress(s.history.Current())
	if view == core.ViewDetail {
		if p, ok := s.resolver.Resolve(productID); ok {
			s.state.Select(p)
		} else {
			view = core.ViewHome
			s.state.Select(nil)
		}
	} else if view == core.ViewHome {
		s.state.Select(nil)
	}
	s.state.SetView(view)
}
