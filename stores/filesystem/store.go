package filesystem

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"storefront-complete/core"

	"github.com/sirupsen/logrus"
)

// fsStore keeps one JSON document per product (reviews embedded) under
// basePath/products and one JSON file per site config key under
// basePath/config. Identifier assignment goes through counter files so ids
// survive restarts.
type fsStore struct {
	basePath string
	mu       sync.Mutex // serializes id assignment and review replacement
}

// NewStore creates a new filesystem-based store.
func NewStore(basePath string) *fsStore {
	for _, dir := range []string{basePath, filepath.Join(basePath, "products"), filepath.Join(basePath, "config")} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("failed to create store directory: %v", err)
		}
	}
	return &fsStore{basePath: basePath}
}

func (s *fsStore) productPath(id int64) string {
	return filepath.Join(s.basePath, "products", fmt.Sprintf("%d.json", id))
}

func (s *fsStore) configPath(key string) (string, error) {
	// Config keys come from the URL; keep them from escaping the directory.
	if filepath.Base(key) != key || key == "" || strings.HasPrefix(key, ".") {
		return "", fmt.Errorf("invalid config key %q", key)
	}
	return filepath.Join(s.basePath, "config", key+".json"), nil
}

func (s *fsStore) nextID(counter string) (int64, error) {
	path := filepath.Join(s.basePath, counter)
	var next int64 = 1
	if data, err := os.ReadFile(path); err == nil {
		if n, perr := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64); perr == nil {
			next = n + 1
		}
	}
	if err := os.WriteFile(path, []byte(strconv.FormatInt(next, 10)), 0644); err != nil {
		return 0, err
	}
	return next, nil
}

func (s *fsStore) readProduct(id int64) (*core.Product, error) {
	data, err := os.ReadFile(s.productPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("product with id %d not found", id)
		}
		return nil, err
	}
	var p core.Product
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	if p.Reviews == nil {
		p.Reviews = []core.Review{}
	}
	if p.Images == nil {
		p.Images = []string{}
	}
	return &p, nil
}

func (s *fsStore) writeProduct(p *core.Product) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return os.WriteFile(s.productPath(p.ID), data, 0644)
}

// CatalogStore implementation
func (s *fsStore) ListProducts(ctx context.Context) ([]*core.Product, error) {
	dir := filepath.Join(s.basePath, "products")
	files, err := os.ReadDir(dir)
	if err != nil {
		logrus.WithError(err).WithField("path", dir).Error("Failed to read products directory")
		return nil, err
	}

	products := make([]*core.Product, 0, len(files))
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".json") {
			continue
		}
		id, err := strconv.ParseInt(strings.TrimSuffix(file.Name(), ".json"), 10, 64)
		if err != nil {
			continue
		}
		p, err := s.readProduct(id)
		if err != nil {
			logrus.WithError(err).Warnf("Failed to read product file %s, skipping", file.Name())
			continue
		}
		products = append(products, p)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].ID > products[j].ID })

	logrus.Debugf("Listed %d products", len(products))
	return products, nil
}

func (s *fsStore) InsertProduct(ctx context.Context, p *core.Product) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.nextID("next_product_id")
	if err != nil {
		logrus.WithError(err).Error("Failed to assign product id")
		return 0, err
	}
	row := p.Clone()
	row.ID = id
	row.Reviews = []core.Review{}
	if err := s.writeProduct(row); err != nil {
		logrus.WithError(err).WithField("product_id", id).Error("Failed to create product")
		return 0, err
	}
	logrus.WithField("product_id", id).Info("Product created successfully")
	return id, nil
}

func (s *fsStore) UpdateProduct(ctx context.Context, p *core.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.readProduct(p.ID)
	if err != nil {
		return err
	}
	row := p.Clone()
	// Flat column update: the stored review set is owned by ReplaceReviews.
	row.Reviews = existing.Reviews
	if err := s.writeProduct(row); err != nil {
		logrus.WithError(err).WithField("product_id", p.ID).Error("Failed to update product")
		return err
	}
	return nil
}

func (s *fsStore) DeleteProduct(ctx context.Context, id int64) error {
	err := os.Remove(s.productPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			logrus.WithField("product_id", id).Warn("Product file not found for deletion, considered successful")
			return nil
		}
		logrus.WithError(err).WithField("product_id", id).Error("Failed to delete product file")
		return err
	}
	logrus.WithField("product_id", id).Info("Product deleted successfully")
	return nil
}

func (s *fsStore) ReplaceReviews(ctx context.Context, productID int64, reviews []core.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.readProduct(productID)
	if err != nil {
		return err
	}
	stored := make([]core.Review, 0, len(reviews))
	for _, r := range reviews {
		id, err := s.nextID("next_review_id")
		if err != nil {
			return err
		}
		r.ID = id
		r.ProductID = productID
		if r.Images == nil {
			r.Images = []string{}
		}
		stored = append(stored, r)
	}
	p.Reviews = stored
	return s.writeProduct(p)
}

// SiteConfigStore implementation
func (s *fsStore) GetConfig(ctx context.Context, key string) ([]byte, error) {
	path, err := s.configPath(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, core.ErrConfigNotFound
		}
		logrus.WithError(err).WithField("key", key).Error("Failed to read site config file")
		return nil, err
	}
	return data, nil
}

func (s *fsStore) SetConfig(ctx context.Context, key string, value []byte) error {
	path, err := s.configPath(key)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, value, 0644); err != nil {
		logrus.WithError(err).WithField("key", key).Error("Failed to write site config file")
		return err
	}
	logrus.WithField("key", key).Info("Site config saved successfully")
	return nil
}
