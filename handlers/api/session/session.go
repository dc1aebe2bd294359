// Package session exposes the per-visitor storefront state over HTTP. Each
// visitor gets a cookie-keyed state container plus a server-held address
// history, so navigation, cart edits and back/forward all run through the
// same synchronizer the tests exercise.
package session

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"

	"storefront-complete/catalog"
	"storefront-complete/core"
	"storefront-complete/nav"
	"storefront-complete/session"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

const cookieName = "storefront_session"

type clientSession struct {
	state   *session.State
	history *nav.MemoryHistory
	sync    *nav.Synchronizer
}

// Manager owns the live sessions. Sessions exist only in memory: a restart
// clears every cart, the same way a page reload clears the original's.
type Manager struct {
	rec *catalog.Reconciler

	mu       sync.Mutex
	sessions map[string]*clientSession
}

func NewManager(rec *catalog.Reconciler) *Manager {
	return &Manager{rec: rec, sessions: make(map[string]*clientSession)}
}

func (m *Manager) session(w http.ResponseWriter, r *http.Request) *clientSession {
	var id string
	if cookie, err := r.Cookie(cookieName); err == nil && cookie.Value != "" {
		id = cookie.Value
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if cs, ok := m.sessions[id]; ok {
		return cs
	}

	id = ulid.Make().String()
	state := session.NewState()
	history := nav.NewMemoryHistory()
	cs := &clientSession{
		state:   state,
		history: history,
		sync:    nav.NewSynchronizer(history, state, m.rec),
	}
	m.sessions[id] = cs

	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	logrus.WithField("session_id", id).Debug("Session created")
	return cs
}

type stateResponse struct {
	View              core.View       `json:"view"`
	SelectedProductID int64           `json:"selected_product_id,omitempty"`
	SearchTerm        string          `json:"search_term,omitempty"`
	Cart              []core.CartItem `json:"cart"`
	CartCount         int             `json:"cart_count"`
	CartSubtotal      float64         `json:"cart_subtotal"`
	Address           string          `json:"address"`
}

func (m *Manager) respondState(w http.ResponseWriter, r *http.Request, cs *clientSession) {
	resp := stateResponse{
		View:         cs.state.View(),
		SearchTerm:   cs.state.SearchTerm(),
		Cart:         cs.state.Cart(),
		CartCount:    cs.state.CartCount(),
		CartSubtotal: cs.state.CartSubtotal(),
		Address:      cs.history.Current(),
	}
	if p := cs.state.SelectedProduct(); p != nil {
		resp.SelectedProductID = p.ID
	}
	if resp.Cart == nil {
		resp.Cart = []core.CartItem{}
	}
	render.JSON(w, r, resp)
}

// HandleState returns the session's current view state.
func (m *Manager) HandleState() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cs := m.session(w, r)
		m.mu.Lock()
		defer m.mu.Unlock()
		m.respondState(w, r, cs)
	}
}

// HandleNavigate performs a navigation and pushes a history entry.
func (m *Manager) HandleNavigate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			View    string `json:"view"`
			Product int64  `json:"product"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Invalid request body"})
			return
		}

		cs := m.session(w, r)
		m.mu.Lock()
		defer m.mu.Unlock()
		cs.sync.NavigateTo(core.ParseView(req.View), req.Product)
		m.respondState(w, r, cs)
	}
}

// HandleSync reconciles state from the current address without moving the
// history. Useful after a catalog reload, when a previously deferred product
// selection may now resolve.
func (m *Manager) HandleSync() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cs := m.session(w, r)
		m.mu.Lock()
		defer m.mu.Unlock()
		cs.sync.SyncFromAddress()
		m.respondState(w, r, cs)
	}
}

// HandleBack replays one history pop, then reconciles state from the address
// the way a popstate listener would.
func (m *Manager) HandleBack() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cs := m.session(w, r)
		m.mu.Lock()
		defer m.mu.Unlock()
		cs.history.Back()
		cs.sync.SyncFromAddress()
		m.respondState(w, r, cs)
	}
}

// HandleForward is the forward counterpart of HandleBack.
func (m *Manager) HandleForward() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cs := m.session(w, r)
		m.mu.Lock()
		defer m.mu.Unlock()
		cs.history.Forward()
		cs.sync.SyncFromAddress()
		m.respondState(w, r, cs)
	}
}

// HandleAddToCart snapshots the product into the cart. Unknown identifiers
// are rejected; the cart never holds lines the catalog cannot explain.
func (m *Manager) HandleAddToCart() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ProductID int64 `json:"product_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Invalid request body"})
			return
		}

		product, ok := m.rec.Resolve(req.ProductID)
		if !ok {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, map[string]string{"error": "Product not found"})
			return
		}

		cs := m.session(w, r)
		m.mu.Lock()
		defer m.mu.Unlock()
		cs.state.AddToCart(product)
		m.respondState(w, r, cs)
	}
}

// HandleRemoveFromCart removes a cart line by position.
func (m *Manager) HandleRemoveFromCart() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		index, err := strconv.Atoi(chi.URLParam(r, "index"))
		if err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Cart index must be numeric"})
			return
		}

		cs := m.session(w, r)
		m.mu.Lock()
		defer m.mu.Unlock()
		if !cs.state.RemoveFromCart(index) {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, map[string]string{"error": "No cart line at that position"})
			return
		}
		m.respondState(w, r, cs)
	}
}

// HandleCheckout clears the cart and returns to home. Requires the explicit
// confirmation gesture.
func (m *Manager) HandleCheckout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Confirm bool `json:"confirm"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Invalid request body"})
			return
		}
		if !req.Confirm {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Checkout requires confirmation"})
			return
		}

		cs := m.session(w, r)
		m.mu.Lock()
		defer m.mu.Unlock()
		if cs.state.CartCount() == 0 {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Cart is empty"})
			return
		}
		cs.state.ClearCart()
		cs.sync.NavigateTo(core.ViewHome, 0)
		m.respondState(w, r, cs)
	}
}

// HandleSearch updates the session's search term.
func (m *Manager) HandleSearch() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Term string `json:"term"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Invalid request body"})
			return
		}

		cs := m.session(w, r)
		m.mu.Lock()
		defer m.mu.Unlock()
		cs.state.SetSearchTerm(req.Term)
		m.respondState(w, r, cs)
	}
}
