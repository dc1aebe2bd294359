package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"

	"storefront-complete/core"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

type sqliteStore struct {
	db *sql.DB
}

// NewStore creates a new SQLite-based store.
func NewStore(dataSourceName string) *sqliteStore {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		log.Fatalf("failed to open sqlite database: %v", err)
	}

	productTableStmt := `
	CREATE TABLE IF NOT EXISTS products (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT,
		price REAL,
		rating REAL,
		reviews_count INTEGER,
		images TEXT,
		category TEXT,
		description TEXT,
		brand_info TEXT,
		product_info TEXT,
		features TEXT,
		buy_now_url TEXT
	);`
	if _, err = db.Exec(productTableStmt); err != nil {
		log.Fatalf("failed to create products table: %v", err)
	}

	reviewTableStmt := `
	CREATE TABLE IF NOT EXISTS reviews (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		product_id INTEGER NOT NULL,
		user_name TEXT,
		rating INTEGER,
		date TEXT,
		comment TEXT,
		images TEXT,
		verified INTEGER
	);`
	if _, err = db.Exec(reviewTableStmt); err != nil {
		log.Fatalf("failed to create reviews table: %v", err)
	}

	configTableStmt := `CREATE TABLE IF NOT EXISTS site_config (key TEXT PRIMARY KEY, value TEXT);`
	if _, err = db.Exec(configTableStmt); err != nil {
		log.Fatalf("failed to create site_config table: %v", err)
	}

	return &sqliteStore{db}
}

func encodeImages(images []string) string {
	if images == nil {
		images = []string{}
	}
	data, err := json.Marshal(images)
	if err != nil {
		return "[]"
	}
	return string(data)
}

func decodeImages(raw string) []string {
	var images []string
	if err := json.Unmarshal([]byte(raw), &images); err != nil || images == nil {
		return []string{}
	}
	return images
}

// CatalogStore implementation
func (s *sqliteStore) ListProducts(ctx context.Context) ([]*core.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, price, rating, reviews_count, images, category,
		       description, brand_info, product_info, features, buy_now_url
		FROM products ORDER BY id DESC`)
	if err != nil {
		logrus.WithError(err).Error("Failed to list products")
		return nil, err
	}
	defer rows.Close()

	var products []*core.Product
	byID := make(map[int64]*core.Product)
	for rows.Next() {
		var p core.Product
		var images string
		if err := rows.Scan(&p.ID, &p.Title, &p.Price, &p.Rating, &p.ReviewsCount, &images,
			&p.Category, &p.Description, &p.BrandInfo, &p.ProductInfo, &p.Features, &p.BuyNowURL); err != nil {
			return nil, err
		}
		p.Images = decodeImages(images)
		p.Reviews = []core.Review{}
		products = append(products, &p)
		byID[p.ID] = &p
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	reviewRows, err := s.db.QueryContext(ctx, `
		SELECT id, product_id, user_name, rating, date, comment, images, verified
		FROM reviews ORDER BY id`)
	if err != nil {
		logrus.WithError(err).Error("Failed to list reviews")
		return nil, err
	}
	defer reviewRows.Close()

	for reviewRows.Next() {
		var r core.Review
		var images string
		if err := reviewRows.Scan(&r.ID, &r.ProductID, &r.UserName, &r.Rating, &r.Date,
			&r.Comment, &images, &r.Verified); err != nil {
			return nil, err
		}
		r.Images = decodeImages(images)
		if p, ok := byID[r.ProductID]; ok {
			p.Reviews = append(p.Reviews, r)
		}
	}
	if err := reviewRows.Err(); err != nil {
		return nil, err
	}

	if products == nil {
		products = []*core.Product{}
	}
	return products, nil
}

func (s *sqliteStore) InsertProduct(ctx context.Context, p *core.Product) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO products (title, price, rating, reviews_count, images, category,
		                      description, brand_info, product_info, features, buy_now_url)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Title, p.Price, p.Rating, p.ReviewsCount, encodeImages(p.Images), p.Category,
		p.Description, p.BrandInfo, p.ProductInfo, p.Features, p.BuyNowURL)
	if err != nil {
		logrus.WithError(err).Error("Failed to insert product")
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	logrus.WithField("product_id", id).Info("Product created successfully")
	return id, nil
}

func (s *sqliteStore) UpdateProduct(ctx context.Context, p *core.Product) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE products SET title = ?, price = ?, rating = ?, reviews_count = ?, images = ?,
		       category = ?, description = ?, brand_info = ?, product_info = ?, features = ?,
		       buy_now_url = ?
		WHERE id = ?`,
		p.Title, p.Price, p.Rating, p.ReviewsCount, encodeImages(p.Images), p.Category,
		p.Description, p.BrandInfo, p.ProductInfo, p.Features, p.BuyNowURL, p.ID)
	if err != nil {
		logrus.WithError(err).WithField("product_id", p.ID).Error("Failed to update product")
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("product with id %d not found", p.ID)
	}
	return nil
}

func (s *sqliteStore) DeleteProduct(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM products WHERE id = ?", id)
	if err != nil {
		logrus.WithError(err).WithField("product_id", id).Error("Failed to delete product")
	}
	return err
}

// ReplaceReviews runs the delete and the reinserts in one transaction, so a
// concurrent reader on this backend never observes the empty in-between set.
func (s *sqliteStore) ReplaceReviews(ctx context.Context, productID int64, reviews []core.Review) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() // Rollback on any error

	if _, err := tx.ExecContext(ctx, "DELETE FROM reviews WHERE product_id = ?", productID); err != nil {
		return err
	}
	for _, r := range reviews {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO reviews (product_id, user_name, rating, date, comment, images, verified)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			productID, r.UserName, r.Rating, r.Date, r.Comment, encodeImages(r.Images), r.Verified); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// SiteConfigStore implementation
func (s *sqliteStore) GetConfig(ctx context.Context, key string) ([]byte, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM site_config WHERE key = ?", key).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, core.ErrConfigNotFound
		}
		logrus.WithError(err).WithField("key", key).Error("Failed to read site config")
		return nil, err
	}
	return []byte(value), nil
}

func (s *sqliteStore) SetConfig(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO site_config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, string(value))
	if err != nil {
		logrus.WithError(err).WithField("key", key).Error("Failed to save site config")
	}
	return err
}
