package aws

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"path"
	"sort"
	"strconv"
	"strings"

	"storefront-complete/core"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

const (
	productPrefix = "products/"
	configPrefix  = "config/"
)

// s3Store keeps one JSON object per product (reviews embedded) under the
// products/ prefix and one object per site config key under config/.
// Identifier assignment scans the existing keys; a single admin writer is
// assumed.
type s3Store struct {
	s3Client *s3.Client
	bucket   string
}

// NewStore creates a new S3-based store.
func NewStore(bucketName string) *s3Store {
	cfg, err := config.LoadDefaultConfig(context.TODO())
	if err != nil {
		log.Fatalf("unable to load SDK config, %v", err)
	}

	s3Client := s3.NewFromConfig(cfg)

	return &s3Store{
		s3Client: s3Client,
		bucket:   bucketName,
	}
}

func productKey(id int64) string {
	return fmt.Sprintf("%s%d.json", productPrefix, id)
}

func configKey(key string) (string, error) {
	// Config keys come from the URL; keep them from escaping the prefix.
	if path.Base(key) != key || key == "" || strings.HasPrefix(key, ".") {
		return "", fmt.Errorf("invalid config key %q", key)
	}
	return configPrefix + key + ".json", nil
}

func (s *s3Store) getObject(ctx context.Context, key string) ([]byte, error) {
	resp, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

func (s *s3Store) putProduct(ctx context.Context, p *core.Product) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal product: %v", err)
	}
	_, err = s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(productKey(p.ID)),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("failed to save product %d: %v", p.ID, err)
	}
	return nil
}

func (s *s3Store) getProduct(ctx context.Context, id int64) (*core.Product, error) {
	data, err := s.getObject(ctx, productKey(id))
	if err != nil {
		var nsk *s3types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("product with id %d not found", id)
		}
		return nil, fmt.Errorf("failed to get product %d: %v", id, err)
	}
	var p core.Product
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal product %d: %v", id, err)
	}
	if p.Reviews == nil {
		p.Reviews = []core.Review{}
	}
	if p.Images == nil {
		p.Images = []string{}
	}
	return &p, nil
}

// CatalogStore implementation
func (s *s3Store) ListProducts(ctx context.Context) ([]*core.Product, error) {
	output, err := s.s3Client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(productPrefix),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %v", err)
	}

	products := make([]*core.Product, 0, len(output.Contents))
	for _, object := range output.Contents {
		data, err := s.getObject(ctx, *object.Key)
		if err != nil {
			log.Printf("warn: failed to get object %s: %v", *object.Key, err)
			continue
		}
		var p core.Product
		if err := json.Unmarshal(data, &p); err != nil {
			log.Printf("warn: failed to unmarshal product %s: %v", *object.Key, err)
			continue
		}
		if p.Reviews == nil {
			p.Reviews = []core.Review{}
		}
		if p.Images == nil {
			p.Images = []string{}
		}
		products = append(products, &p)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].ID > products[j].ID })

	return products, nil
}

func (s *s3Store) InsertProduct(ctx context.Context, p *core.Product) (int64, error) {
	output, err := s.s3Client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(productPrefix),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to list products for id assignment: %v", err)
	}

	var maxID int64
	for _, object := range output.Contents {
		name := strings.TrimSuffix(strings.TrimPrefix(*object.Key, productPrefix), ".json")
		if id, err := strconv.ParseInt(name, 10, 64); err == nil && id > maxID {
			maxID = id
		}
	}

	row := p.Clone()
	row.ID = maxID + 1
	row.Reviews = []core.Review{}
	if err := s.putProduct(ctx, row); err != nil {
		return 0, err
	}
	return row.ID, nil
}

func (s *s3Store) UpdateProduct(ctx context.Context, p *core.Product) error {
	existing, err := s.getProduct(ctx, p.ID)
	if err != nil {
		return err
	}
	row := p.Clone()
	// Flat column update: the stored review set is owned by ReplaceReviews.
	row.Reviews = existing.Reviews
	return s.putProduct(ctx, row)
}

func (s *s3Store) DeleteProduct(ctx context.Context, id int64) error {
	_, err := s.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(productKey(id)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete product %d: %v", id, err)
	}
	return nil
}

func (s *s3Store) ReplaceReviews(ctx context.Context, productID int64, reviews []core.Review) error {
	p, err := s.getProduct(ctx, productID)
	if err != nil {
		return err
	}
	stored := make([]core.Review, 0, len(reviews))
	var nextID int64
	for _, r := range p.Reviews {
		if r.ID > nextID {
			nextID = r.ID
		}
	}
	for _, r := range reviews {
		nextID++
		r.ID = nextID
		r.ProductID = productID
		if r.Images == nil {
			r.Images = []string{}
		}
		stored = append(stored, r)
	}
	p.Reviews = stored
	return s.putProduct(ctx, p)
}

// SiteConfigStore implementation
func (s *s3Store) GetConfig(ctx context.Context, key string) ([]byte, error) {
	objectKey, err := configKey(key)
	if err != nil {
		return nil, err
	}
	data, err := s.getObject(ctx, objectKey)
	if err != nil {
		var nsk *s3types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, core.ErrConfigNotFound
		}
		return nil, fmt.Errorf("failed to get site config %s: %v", key, err)
	}
	return data, nil
}

func (s *s3Store) SetConfig(ctx context.Context, key string, value []byte) error {
	objectKey, err := configKey(key)
	if err != nil {
		return err
	}
	_, err = s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
		Body:   bytes.NewReader(value),
	})
	if err != nil {
		return fmt.Errorf("failed to save site config %s: %v", key, err)
	}
	return nil
}
