package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"storefront-complete/core"

	"github.com/sirupsen/logrus"
)

// memStore implements both CatalogStore and SiteConfigStore for in-memory
// storage. Everything is copied on the way in and out, so callers never share
// slices with the store.
type memStore struct {
	mu            sync.RWMutex
	products      map[int64]*core.Product
	reviews       map[int64][]core.Review // keyed by owning product id
	config        map[string][]byte
	nextProductID int64
	nextReviewID  int64
}

// NewStore creates a new in-memory store.
func NewStore() *memStore {
	return &memStore{
		products: make(map[int64]*core.Product),
		reviews:  make(map[int64][]core.Review),
		config:   make(map[string][]byte),
	}
}

// ListProducts returns all products ordered by descending identifier, reviews
// embedded. Part of the CatalogStore interface.
func (s *memStore) ListProducts(ctx context.Context) ([]*core.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]*core.Product, 0, len(s.products))
	for id, p := range s.products {
		out := p.Clone()
		out.Reviews = make([]core.Review, 0, len(s.reviews[id]))
		for _, r := range s.reviews[id] {
			rc := r
			rc.Images = append([]string(nil), r.Images...)
			out.Reviews = append(out.Reviews, rc)
		}
		products = append(products, out)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].ID > products[j].ID })

	logrus.Debugf("Listed %d products", len(products))
	return products, nil
}

// InsertProduct stores a new product row and assigns its identifier. Part of
// the CatalogStore interface.
func (s *memStore) InsertProduct(ctx context.Context, p *core.Product) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextProductID++
	id := s.nextProductID
	row := p.Clone()
	row.ID = id
	row.Reviews = nil
	s.products[id] = row

	logrus.WithField("product_id", id).Info("Product created successfully")
	return id, nil
}

// UpdateProduct updates the row matching p.ID. Part of the CatalogStore
// interface.
func (s *memStore) UpdateProduct(ctx context.Context, p *core.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[p.ID]; !ok {
		logrus.WithField("product_id", p.ID).Warn("Product not found for update")
		return fmt.Errorf("product with id %d not found", p.ID)
	}
	row := p.Clone()
	row.Reviews = nil
	s.products[p.ID] = row

	logrus.WithField("product_id", p.ID).Info("Product updated successfully")
	return nil
}

// DeleteProduct removes the row matching id. Reviews owned by the product are
// removed with it. Part of the CatalogStore interface.
func (s *memStore) DeleteProduct(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[id]; !ok {
		logrus.WithField("product_id", id).Warn("Product not found for deletion, considered successful")
		return nil
	}
	delete(s.products, id)
	delete(s.reviews, id)

	logrus.WithField("product_id", id).Info("Product deleted successfully")
	return nil
}

// ReplaceReviews deletes every review owned by productID and inserts the given
// ones in order. Part of the CatalogStore interface.
func (s *memStore) ReplaceReviews(ctx context.Context, productID int64, reviews []core.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]core.Review, 0, len(reviews))
	for _, r := range reviews {
		s.nextReviewID++
		r.ID = s.nextReviewID
		r.ProductID = productID
		r.Images = append([]string(nil), r.Images...)
		stored = append(stored, r)
	}
	s.reviews[productID] = stored

	logrus.WithFields(logrus.Fields{
		"product_id": productID,
		"reviews":    len(stored),
	}).Info("Reviews replaced successfully")
	return nil
}

// GetConfig returns the raw value stored under key. Part of the
// SiteConfigStore interface.
func (s *memStore) GetConfig(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.config[key]
	if !ok {
		return nil, core.ErrConfigNotFound
	}
	return append([]byte(nil), value...), nil
}

// SetConfig stores value under key. Part of the SiteConfigStore interface.
func (s *memStore) SetConfig(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.config[key] = append([]byte(nil), value...)
	logrus.WithField("key", key).Info("Site config saved successfully")
	return nil
}
