package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"

	"storefront-complete/catalog"
	"storefront-complete/core"
	"storefront-complete/stores/memory"

	"github.com/go-chi/chi/v5"
)

type testClient struct {
	t      *testing.T
	srv    *httptest.Server
	client *http.Client
}

func newTestClient(t *testing.T, products ...*core.Product) *testClient {
	t.Helper()

	store := memory.NewStore()
	ctx := context.Background()
	for _, p := range products {
		if _, err := store.InsertProduct(ctx, p); err != nil {
			t.Fatalf("seeding product: %v", err)
		}
	}

	rec := catalog.New(store)
	if err := rec.Reload(ctx); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	m := NewManager(rec)
	r := chi.NewRouter()
	r.Get("/session/", m.HandleState())
	r.Post("/session/navigate", m.HandleNavigate())
	r.Post("/session/back", m.HandleBack())
	r.Post("/session/forward", m.HandleForward())
	r.Post("/session/cart", m.HandleAddToCart())
	r.Delete("/session/cart/{index}", m.HandleRemoveFromCart())
	r.Post("/session/checkout", m.HandleCheckout())
	r.Post("/session/search", m.HandleSearch())

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	return &testClient{t: t, srv: srv, client: &http.Client{Jar: jar}}
}

func (c *testClient) do(method, path, body string) (int, stateResponse) {
	c.t.Helper()

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, c.srv.URL+path, reader)
	if err != nil {
		c.t.Fatalf("%s %s: %v", method, path, err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var state stateResponse
	if resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
			c.t.Fatalf("decoding %s %s response: %v", method, path, err)
		}
	}
	return resp.StatusCode, state
}

func TestSession_NavigateAndBack(t *testing.T) {
	c := newTestClient(t, &core.Product{Title: "Phone", Price: 499})

	code, state := c.do(http.MethodPost, "/session/navigate", `{"view":"detail","product":1}`)
	if code != http.StatusOK {
		t.Fatalf("navigate status = %d", code)
	}
	if state.View != core.ViewDetail || state.SelectedProductID != 1 {
		t.Fatalf("after navigate: view %q selected %d", state.View, state.SelectedProductID)
	}

	code, state = c.do(http.MethodPost, "/session/back", "")
	if code != http.StatusOK {
		t.Fatalf("back status = %d", code)
	}
	if state.View != core.ViewHome || state.SelectedProductID != 0 {
		t.Errorf("after back: view %q selected %d, want home with no selection", state.View, state.SelectedProductID)
	}

	code, state = c.do(http.MethodPost, "/session/forward", "")
	if code != http.StatusOK {
		t.Fatalf("forward status = %d", code)
	}
	if state.View != core.ViewDetail || state.SelectedProductID != 1 {
		t.Errorf("after forward: view %q selected %d, want the detail entry back", state.View, state.SelectedProductID)
	}
}

func TestSession_NavigateToUnknownProductFallsBackToHome(t *testing.T) {
	c := newTestClient(t, &core.Product{Title: "Phone"})

	code, state := c.do(http.MethodPost, "/session/navigate", `{"view":"detail","product":99}`)
	if code != http.StatusOK {
		t.Fatalf("navigate status = %d", code)
	}
	if state.View != core.ViewHome || state.SelectedProductID != 0 {
		t.Errorf("view %q selected %d, want home fallback", state.View, state.SelectedProductID)
	}
}

func TestSession_CartFlow(t *testing.T) {
	c := newTestClient(t,
		&core.Product{Title: "Phone", Price: 499},
		&core.Product{Title: "Kettle", Price: 30},
	)

	code, _ := c.do(http.MethodPost, "/session/cart", `{"product_id":1}`)
	if code != http.StatusOK {
		t.Fatalf("add to cart status = %d", code)
	}
	code, state := c.do(http.MethodPost, "/session/cart", `{"product_id":1}`)
	if code != http.StatusOK {
		t.Fatalf("second add status = %d", code)
	}
	if state.CartCount != 2 || len(state.Cart) != 2 {
		t.Fatalf("cart count %d with %d lines, want two separate lines", state.CartCount, len(state.Cart))
	}
	if state.CartSubtotal != 998 {
		t.Errorf("subtotal = %v, want 998", state.CartSubtotal)
	}

	code, _ = c.do(http.MethodPost, "/session/cart", `{"product_id":404}`)
	if code != http.StatusNotFound {
		t.Errorf("adding an unknown product: status = %d, want 404", code)
	}

	code, state = c.do(http.MethodDelete, "/session/cart/0", "")
	if code != http.StatusOK {
		t.Fatalf("remove status = %d", code)
	}
	if state.CartCount != 1 {
		t.Errorf("cart count after remove = %d, want 1", state.CartCount)
	}

	code, _ = c.do(http.MethodDelete, "/session/cart/5", "")
	if code != http.StatusNotFound {
		t.Errorf("removing a stale index: status = %d, want 404", code)
	}
}

func TestSession_CheckoutRequiresConfirmation(t *testing.T) {
	c := newTestClient(t, &core.Product{Title: "Phone", Price: 499})

	c.do(http.MethodPost, "/session/cart", `{"product_id":1}`)

	code, _ := c.do(http.MethodPost, "/session/checkout", `{"confirm":false}`)
	if code != http.StatusBadRequest {
		t.Errorf("unconfirmed checkout: status = %d, want 400", code)
	}
	if _, state := c.do(http.MethodGet, "/session/", ""); state.CartCount != 1 {
		t.Fatal("unconfirmed checkout must leave the cart alone")
	}

	code, state := c.do(http.MethodPost, "/session/checkout", `{"confirm":true}`)
	if code != http.StatusOK {
		t.Fatalf("confirmed checkout: status = %d", code)
	}
	if state.CartCount != 0 || state.View != core.ViewHome {
		t.Errorf("after checkout: count %d view %q, want empty cart at home", state.CartCount, state.View)
	}

	code, _ = c.do(http.MethodPost, "/session/checkout", `{"confirm":true}`)
	if code != http.StatusBadRequest {
		t.Errorf("checkout with an empty cart: status = %d, want 400", code)
	}
}

func TestSession_CookieIsolation(t *testing.T) {
	c := newTestClient(t, &core.Product{Title: "Phone", Price: 499})

	c.do(http.MethodPost, "/session/cart", `{"product_id":1}`)

	// A second client carries no cookie and must see a fresh session.
	jar, _ := cookiejar.New(nil)
	other := &testClient{t: t, srv: c.srv, client: &http.Client{Jar: jar}}
	if _, state := other.do(http.MethodGet, "/session/", ""); state.CartCount != 0 {
		t.Errorf("new visitor sees %d cart lines, want 0", state.CartCount)
	}
	if _, state := c.do(http.MethodGet, "/session/", ""); state.CartCount != 1 {
		t.Errorf("original visitor lost their cart")
	}
}

func TestSession_SyncResolvesDeferredSelection(t *testing.T) {
	store := memory.NewStore()
	rec := catalog.New(store)

	m := NewManager(rec)
	r := chi.NewRouter()
	r.Post("/session/navigate", m.HandleNavigate())
	r.Post("/session/sync", m.HandleSync())
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	jar, _ := cookiejar.New(nil)
	c := &testClient{t: t, srv: srv, client: &http.Client{Jar: jar}}

	// The catalog has not loaded, so the selection is deferred.
	code, state := c.do(http.MethodPost, "/session/navigate", `{"view":"detail","product":1}`)
	if code != http.StatusOK {
		t.Fatalf("navigate status = %d", code)
	}
	if state.View != core.ViewDetail || state.SelectedProductID != 0 {
		t.Fatalf("before load: view %q selected %d, want detail with no selection yet", state.View, state.SelectedProductID)
	}

	if _, err := store.InsertProduct(context.Background(), &core.Product{Title: "Phone"}); err != nil {
		t.Fatalf("seeding product: %v", err)
	}
	if err := rec.Reload(context.Background()); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	code, state = c.do(http.MethodPost, "/session/sync", "")
	if code != http.StatusOK {
		t.Fatalf("sync status = %d", code)
	}
	if state.View != core.ViewDetail || state.SelectedProductID != 1 {
		t.Errorf("after sync: view %q selected %d, want detail/1", state.View, state.SelectedProductID)
	}
}

func TestSession_Search(t *testing.T) {
	c := newTestClient(t, &core.Product{Title: "Phone"})

	code, state := c.do(http.MethodPost, "/session/search", `{"term":"pho"}`)
	if code != http.StatusOK {
		t.Fatalf("search status = %d", code)
	}
	if state.SearchTerm != "pho" {
		t.Errorf("search term = %q, want %q", state.SearchTerm, "pho")
	}
}
