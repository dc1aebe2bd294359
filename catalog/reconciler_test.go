package catalog

import (
	"context"
	"errors"
	"testing"

	"storefront-complete/core"
)

// mockStore is a functional in-memory double with injectable errors and call
// recording.
type mockStore struct {
	products map[int64]*core.Product
	reviews  map[int64][]core.Review
	configs  map[string][]byte
	nextID   int64

	listErr    error
	insertErr  error
	updateErr  error
	deleteErr  error
	replaceErr error
	configErr  error

	listCalls    int
	insertedRows []*core.Product
	updatedRows  []*core.Product
	replaceCalls int
	deletedIDs   []int64
}

func newMockStore() *mockStore {
	return &mockStore{
		products: make(map[int64]*core.Product),
		reviews:  make(map[int64][]core.Review),
		configs:  make(map[string][]byte),
	}
}

func (m *mockStore) addProduct(p *core.Product) {
	if p.ID > m.nextID {
		m.nextID = p.ID
	}
	m.products[p.ID] = p
}

func (m *mockStore) ListProducts(ctx context.Context) ([]*core.Product, error) {
	m.listCalls++
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []*core.Product
	for id, p := range m.products {
		c := p.Clone()
		c.Reviews = m.reviews[id]
		out = append(out, c)
	}
	return out, nil
}

func (m *mockStore) InsertProduct(ctx context.Context, p *core.Product) (int64, error) {
	m.insertedRows = append(m.insertedRows, p.Clone())
	if m.insertErr != nil {
		return 0, m.insertErr
	}
	m.nextID++
	row := p.Clone()
	row.ID = m.nextID
	m.products[row.ID] = row
	return row.ID, nil
}

func (m *mockStore) UpdateProduct(ctx context.Context, p *core.Product) error {
	m.updatedRows = append(m.updatedRows, p.Clone())
	if m.updateErr != nil {
		return m.updateErr
	}
	m.products[p.ID] = p.Clone()
	return nil
}

func (m *mockStore) DeleteProduct(ctx context.Context, id int64) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deletedIDs = append(m.deletedIDs, id)
	delete(m.products, id)
	delete(m.reviews, id)
	return nil
}

func (m *mockStore) ReplaceReviews(ctx context.Context, productID int64, reviews []core.Review) error {
	m.replaceCalls++
	if m.replaceErr != nil {
		return m.replaceErr
	}
	m.reviews[productID] = reviews
	return nil
}

func (m *mockStore) GetConfig(ctx context.Context, key string) ([]byte, error) {
	if m.configErr != nil {
		return nil, m.configErr
	}
	value, ok := m.configs[key]
	if !ok {
		return nil, core.ErrConfigNotFound
	}
	return value, nil
}

func (m *mockStore) SetConfig(ctx context.Context, key string, value []byte) error {
	m.configs[key] = value
	return nil
}

func TestReload_PopulatesSnapshot(t *testing.T) {
	store := newMockStore()
	store.addProduct(&core.Product{ID: 1, Title: "Phone"})
	store.addProduct(&core.Product{ID: 2, Title: "Kettle"})
	store.reviews[1] = []core.Review{{ID: 10, ProductID: 1, Comment: "good"}}
	store.configs[core.ConfigKeyCategories] = []byte(`[{"title":"Electronics","items":[]}]`)

	rec := New(store)
	if err := rec.Reload(context.Background()); err != nil {
		t.Fatalf("Reload() failed: %v", err)
	}

	snap := rec.Snapshot()
	if len(snap.Products) != 2 {
		t.Fatalf("snapshot has %d products, want 2", len(snap.Products))
	}
	for _, p := range snap.Products {
		if p.Reviews == nil {
			t.Errorf("product %d has nil reviews, want empty slice", p.ID)
		}
	}
	if len(snap.Categories) != 1 || snap.Categories[0].Title != "Electronics" {
		t.Errorf("categories = %+v, want the stored card", snap.Categories)
	}
	if snap.Heroes == nil || len(snap.Heroes) != 0 {
		t.Errorf("heroes = %v, want empty slice for the missing key", snap.Heroes)
	}
}

func TestReload_FetchFailureKeepsPriorState(t *testing.T) {
	store := newMockStore()
	store.addProduct(&core.Product{ID: 1, Title: "Phone"})

	rec := New(store)
	if err := rec.Reload(context.Background()); err != nil {
		t.Fatalf("Reload() failed: %v", err)
	}

	store.listErr = errors.New("store unavailable")
	if err := rec.Reload(context.Background()); err == nil {
		t.Fatal("Reload() with a failing store must return an error")
	}

	snap := rec.Snapshot()
	if len(snap.Products) != 1 || snap.Products[0].Title != "Phone" {
		t.Errorf("prior snapshot was not retained after a failed reload: %+v", snap.Products)
	}
}

func TestReload_MalformedConfigDefaultsEmpty(t *testing.T) {
	store := newMockStore()
	store.configs[core.ConfigKeyCategories] = []byte(`"not an array"`)

	rec := New(store)
	if err := rec.Reload(context.Background()); err != nil {
		t.Fatalf("Reload() failed: %v", err)
	}
	if got := rec.Snapshot().Categories; len(got) != 0 {
		t.Errorf("categories = %+v, want empty for a malformed value", got)
	}
}

func TestSaveProduct_SentinelInsertStripsIdentifier(t *testing.T) {
	store := newMockStore()
	rec := New(store)

	p := &core.Product{
		ID:      core.NewProductID,
		Title:   "New Phone",
		Reviews: []core.Review{{Comment: "nice", Rating: 4}},
	}
	if err := rec.SaveProduct(context.Background(), p); err != nil {
		t.Fatalf("SaveProduct() failed: %v", err)
	}

	if len(store.insertedRows) != 1 {
		t.Fatalf("insert called %d times, want 1", len(store.insertedRows))
	}
	row := store.insertedRows[0]
	if row.ID != core.NewProductID {
		t.Errorf("insert payload carried identifier %d, must carry the sentinel", row.ID)
	}
	if row.Reviews != nil {
		t.Error("insert payload carried the nested review collection")
	}

	snap := rec.Snapshot()
	if len(snap.Products) != 1 || snap.Products[0].ID == core.NewProductID {
		t.Fatalf("snapshot after save = %+v, want one product with a store-assigned id", snap.Products)
	}
	if len(snap.Products[0].Reviews) != 1 {
		t.Errorf("reviews were not attached to the assigned product id")
	}
}

func TestSaveProduct_UpdateExcludesReviews(t *testing.T) {
	store := newMockStore()
	store.addProduct(&core.Product{ID: 5, Title: "Phone"})

	rec := New(store)
	p := &core.Product{ID: 5, Title: "Phone v2", Reviews: []core.Review{{Comment: "ok"}}}
	if err := rec.SaveProduct(context.Background(), p); err != nil {
		t.Fatalf("SaveProduct() failed: %v", err)
	}

	if len(store.updatedRows) != 1 {
		t.Fatalf("update called %d times, want 1", len(store.updatedRows))
	}
	if store.updatedRows[0].Reviews != nil {
		t.Error("update payload carried the nested review collection")
	}
}

func TestSaveProduct_ReviewReplacementFiltersAndDefaults(t *testing.T) {
	store := newMockStore()
	store.addProduct(&core.Product{ID: 3, Title: "Phone"})
	store.reviews[3] = []core.Review{{ID: 1, ProductID: 3, Comment: "stale"}}

	rec := New(store)
	p := &core.Product{
		ID: 3,
		Reviews: []core.Review{
			{Comment: "  "},                     // blank, dropped
			{Comment: "love it"},                // gets all defaults
			{Comment: "meh", UserName: "Ann", Rating: 2, Date: "2024-01-02"},
		},
	}
	if err := rec.SaveProduct(context.Background(), p); err != nil {
		t.Fatalf("SaveProduct() failed: %v", err)
	}

	stored := store.reviews[3]
	if len(stored) != 2 {
		t.Fatalf("stored %d reviews, want exactly the 2 non-blank submissions", len(stored))
	}
	if stored[0].UserName != DefaultReviewAuthor || stored[0].Rating != 5 || stored[0].Date == "" {
		t.Errorf("defaults not applied: %+v", stored[0])
	}
	if stored[1].UserName != "Ann" || stored[1].Rating != 2 || stored[1].Date != "2024-01-02" {
		t.Errorf("submitted fields were overwritten: %+v", stored[1])
	}
	for _, r := range stored {
		if r.ProductID != 3 {
			t.Errorf("review owner = %d, want 3", r.ProductID)
		}
	}
}

func TestSaveProduct_ParentFailureSkipsReviewPhase(t *testing.T) {
	store := newMockStore()
	store.addProduct(&core.Product{ID: 4, Title: "Phone"})
	store.updateErr = errors.New("write refused")

	rec := New(store)
	listCallsBefore := store.listCalls
	err := rec.SaveProduct(context.Background(), &core.Product{
		ID:      4,
		Reviews: []core.Review{{Comment: "never lands"}},
	})
	if err == nil {
		t.Fatal("SaveProduct() must surface the parent write failure")
	}
	if store.replaceCalls != 0 {
		t.Error("review replacement was attempted after the parent write failed")
	}
	if store.listCalls <= listCallsBefore {
		t.Error("a reload must still run after a failed save to resynchronize")
	}
}

func TestSaveProduct_NilReviewsLeaveStoredSetUntouched(t *testing.T) {
	store := newMockStore()
	store.addProduct(&core.Product{ID: 6, Title: "Phone"})
	store.reviews[6] = []core.Review{{ID: 1, ProductID: 6, Comment: "keep me"}}

	rec := New(store)
	if err := rec.SaveProduct(context.Background(), &core.Product{ID: 6, Title: "Phone v2"}); err != nil {
		t.Fatalf("SaveProduct() failed: %v", err)
	}
	if store.replaceCalls != 0 {
		t.Error("a nil review collection must not trigger replacement")
	}
	if len(store.reviews[6]) != 1 {
		t.Error("stored reviews changed without a submitted collection")
	}
}

func TestDeleteProduct_RequiresConfirmation(t *testing.T) {
	store := newMockStore()
	store.addProduct(&core.Product{ID: 7, Title: "Phone"})

	rec := New(store)
	err := rec.DeleteProduct(context.Background(), 7, false)
	if !errors.Is(err, ErrNotConfirmed) {
		t.Fatalf("DeleteProduct() without confirmation = %v, want ErrNotConfirmed", err)
	}
	if len(store.deletedIDs) != 0 {
		t.Error("delete was issued without confirmation")
	}
	if store.listCalls != 0 {
		t.Error("an unconfirmed delete must not trigger a reload")
	}
}

func TestDeleteProduct_ConfirmedRemovesAndReloads(t *testing.T) {
	store := newMockStore()
	store.addProduct(&core.Product{ID: 7, Title: "Phone"})
	store.addProduct(&core.Product{ID: 8, Title: "Kettle"})

	rec := New(store)
	if err := rec.Reload(context.Background()); err != nil {
		t.Fatalf("Reload() failed: %v", err)
	}
	if err := rec.DeleteProduct(context.Background(), 7, true); err != nil {
		t.Fatalf("DeleteProduct() failed: %v", err)
	}

	for _, p := range rec.Snapshot().Products {
		if p.ID == 7 {
			t.Error("snapshot still contains the deleted product")
		}
	}
	if _, ok := rec.Resolve(8); !ok {
		t.Error("unrelated product disappeared from the snapshot")
	}
}
