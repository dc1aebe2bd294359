package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"storefront-complete/core"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type productModel struct {
	ID           int64   `gorm:"column:id;primaryKey;autoIncrement"`
	Title        string  `gorm:"column:title"`
	Price        float64 `gorm:"column:price"`
	Rating       float64 `gorm:"column:rating"`
	ReviewsCount int     `gorm:"column:reviews_count"`
	Images       string  `gorm:"column:images;type:text"`
	Category     string  `gorm:"column:category"`
	Description  string  `gorm:"column:description;type:text"`
	BrandInfo    string  `gorm:"column:brand_info;type:text"`
	ProductInfo  string  `gorm:"column:product_info;type:text"`
	Features     string  `gorm:"column:features;type:text"`
	BuyNowURL    string  `gorm:"column:buy_now_url"`
}

func (productModel) TableName() string { return "products" }

type reviewModel struct {
	ID        int64  `gorm:"column:id;primaryKey;autoIncrement"`
	ProductID int64  `gorm:"column:product_id;index"`
	UserName  string `gorm:"column:user_name"`
	Rating    int    `gorm:"column:rating"`
	Date      string `gorm:"column:date"`
	Comment   string `gorm:"column:comment;type:text"`
	Images    string `gorm:"column:images;type:text"`
	Verified  bool   `gorm:"column:verified"`
}

func (reviewModel) TableName() string { return "reviews" }

type siteConfigModel struct {
	Key   string `gorm:"column:key;primaryKey"`
	Value string `gorm:"column:value;type:text"`
}

func (siteConfigModel) TableName() string { return "site_config" }

type pgStore struct {
	db *gorm.DB
}

// NewStore creates a new Postgres-based store.
func NewStore(databaseURL string) *pgStore {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to open postgres database: %v", err)
	}
	if err := db.AutoMigrate(&productModel{}, &reviewModel{}, &siteConfigModel{}); err != nil {
		log.Fatalf("failed to migrate postgres schema: %v", err)
	}
	return &pgStore{db: db}
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

func toProductModel(p *core.Product) productModel {
	return productModel{
		ID:           p.ID,
		Title:        p.Title,
		Price:        p.Price,
		Rating:       p.Rating,
		ReviewsCount: p.ReviewsCount,
		Images:       encodeImages(p.Images),
		Category:     p.Category,
		Description:  p.Description,
		BrandInfo:    p.BrandInfo,
		ProductInfo:  p.ProductInfo,
		Features:     p.Features,
		BuyNowURL:    p.BuyNowURL,
	}
}

func fromProductModel(m productModel) *core.Product {
	return &core.Product{
		ID:           m.ID,
		Title:        m.Title,
		Price:        m.Price,
		Rating:       m.Rating,
		ReviewsCount: m.ReviewsCount,
		Images:       decodeImages(m.Images),
		Category:     m.Category,
		Description:  m.Description,
		BrandInfo:    m.BrandInfo,
		ProductInfo:  m.ProductInfo,
		Features:     m.Features,
		BuyNowURL:    m.BuyNowURL,
		Reviews:      []core.Review{},
	}
}

// CatalogStore implementation
func (s *pgStore) ListProducts(ctx context.Context) ([]*core.Product, error) {
	var rows []productModel
	if err := s.db.WithContext(ctx).Order("id DESC").Find(&rows).Error; err != nil {
		logrus.WithError(err).Error("Failed to list products")
		return nil, err
	}

	products := make([]*core.Product, 0, len(rows))
	byID := make(map[int64]*core.Product, len(rows))
	for _, m := range rows {
		p := fromProductModel(m)
		products = append(products, p)
		byID[p.ID] = p
	}

	var reviewRows []reviewModel
	if err := s.db.WithContext(ctx).Order("id").Find(&reviewRows).Error; err != nil {
		logrus.WithError(err).Error("Failed to list reviews")
		return nil, err
	}
	for _, m := range reviewRows {
		p, ok := byID[m.ProductID]
		if !ok {
			continue
		}
		p.Reviews = append(p.Reviews, core.Review{
			ID:        m.ID,
			ProductID: m.ProductID,
			UserName:  m.UserName,
			Rating:    m.Rating,
			Date:      m.Date,
			Comment:   m.Comment,
			Images:    decodeImages(m.Images),
			Verified:  m.Verified,
		})
	}

	return products, nil
}

func (s *pgStore) InsertProduct(ctx context.Context, p *core.Product) (int64, error) {
	row := toProductModel(p)
	row.ID = 0 // let the store assign the identifier
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		logrus.WithError(err).Error("Failed to insert product")
		return 0, err
	}
	logrus.WithField("product_id", row.ID).Info("Product created successfully")
	return row.ID, nil
}

func (s *pgStore) UpdateProduct(ctx context.Context, p *core.Product) error {
	// Updates with a map, not the model struct: gorm's struct form skips
	// zero-valued fields, which would leave cleared columns (empty title,
	// price set back to 0) holding their old values.
	res := s.db.WithContext(ctx).Model(&productModel{}).Where("id = ?", p.ID).Updates(map[string]any{
		"title":         p.Title,
		"price":         p.Price,
		"rating":        p.Rating,
		"reviews_count": p.ReviewsCount,
		"images":        encodeImages(p.Images),
		"category":      p.Category,
		"description":   p.Description,
		"brand_info":    p.BrandInfo,
		"product_info":  p.ProductInfo,
		"features":      p.Features,
		"buy_now_url":   p.BuyNowURL,
	})
	if res.Error != nil {
		logrus.WithError(res.Error).WithField("product_id", p.ID).Error("Failed to update product")
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("product with id %d not found", p.ID)
	}
	return nil
}

func (s *pgStore) DeleteProduct(ctx context.Context, id int64) error {
	err := s.db.WithContext(ctx).Where("id = ?", id).Delete(&productModel{}).Error
	if err != nil {
		logrus.WithError(err).WithField("product_id", id).Error("Failed to delete product")
	}
	return err
}

// ReplaceReviews runs the delete and the reinserts in one transaction, so a
// concurrent reader on this backend never observes the empty in-between set.
func (s *pgStore) ReplaceReviews(ctx context.Context, productID int64, reviews []core.Review) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", productID).Delete(&reviewModel{}).Error; err != nil {
			return err
		}
		for _, r := range reviews {
			row := reviewModel{
				ProductID: productID,
				UserName:  r.UserName,
				Rating:    r.Rating,
				Date:      r.Date,
				Comment:   r.Comment,
				Images:    encodeImages(r.Images),
				Verified:  r.Verified,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// SiteConfigStore implementation
func (s *pgStore) GetConfig(ctx context.Context, key string) ([]byte, error) {
	var row siteConfigModel
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, core.ErrConfigNotFound
		}
		logrus.WithError(err).WithField("key", key).Error("Failed to read site config")
		return nil, err
	}
	return []byte(row.Value), nil
}

func (s *pgStore) SetConfig(ctx context.Context, key string, value []byte) error {
	row := siteConfigModel{Key: key, Value: string(value)}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&row).Error
	if err != nil {
		logrus.WithError(err).WithField("key", key).Error("Failed to save site config")
	}
	return err
}
