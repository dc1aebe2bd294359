package core

import (
	"context"
)

// NewProductID marks a product that has not been persisted yet. A product
// carrying it must never be written to storage as-is; inserts drop the
// identifier so the store assigns a real one.
const NewProductID int64 = 0

type (
	// Product is a catalog entry together with its customer reviews.
	Product struct {
		ID           int64    `json:"id"`
		Title        string   `json:"title"`
		Price        float64  `json:"price"`
		Rating       float64  `json:"rating"`
		ReviewsCount int      `json:"reviews_count"`
		Images       []string `json:"images"`
		Category     string   `json:"category"`
		Description  string   `json:"description"`
		BrandInfo    string   `json:"brand_info"`
		ProductInfo  string   `json:"product_info"`
		Features     string   `json:"features"`
		BuyNowURL    string   `json:"buy_now_url,omitempty"`
		Reviews      []Review `json:"reviews"`
	}

	// Review is a customer review owned by a product.
	Review struct {
		ID        int64    `json:"id"`
		ProductID int64    `json:"product_id"`
		UserName  string   `json:"user_name"`
		Rating    int      `json:"rating"`
		Date      string   `json:"date"`
		Comment   string   `json:"comment"`
		Images    []string `json:"images"`
		Verified  bool     `json:"verified"`
	}

	// CatalogStore defines the persistence layer for products and reviews.
	CatalogStore interface {
		// ListProducts returns every product ordered by descending identifier,
		// each with its reviews embedded. Products without reviews carry an
		// empty slice, never nil.
		ListProducts(ctx context.Context) ([]*Product, error)

		// InsertProduct stores a new product row and returns the identifier
		// the store assigned. The ID field of the argument is ignored and the
		// Reviews field must be nil: inserts are flat column writes.
		InsertProduct(ctx context.Context, p *Product) (int64, error)

		// UpdateProduct updates the row matching p.ID. Flat column write; the
		// Reviews field must be nil.
		UpdateProduct(ctx context.Context, p *Product) error

		// DeleteProduct removes the row matching id. Review cleanup is a
		// backend concern and is not guaranteed here.
		DeleteProduct(ctx context.Context, id int64) error

		// ReplaceReviews deletes every review owned by productID and inserts
		// the given ones in order.
		ReplaceReviews(ctx context.Context, productID int64, reviews []Review) error
	}
)

// Clone returns a deep copy of p, including its image and review slices.
func (p *Product) Clone() *Product {
	c := *p
	c.Images = append([]string(nil), p.Images...)
	if p.Reviews != nil {
		c.Reviews = make([]Review, len(p.Reviews))
		for i, r := range p.Reviews {
			c.Reviews[i] = r
			c.Reviews[i].Images = append([]string(nil), r.Images...)
		}
	}
	return &c
}

// Row returns a copy of p with the review collection stripped, suitable for a
// flat column write. Sending the nested collection to an insert or update is a
// store contract violation.
func (p *Product) Row() *Product {
	row := *p
	row.Reviews = nil
	return &row
}

// AverageRating computes the mean of the in-range (1-5) ratings. Out-of-range
// values are excluded from the computation, not clamped. Returns 0 when no
// rating qualifies.
func AverageRating(reviews []Review) float64 {
	sum, n := 0, 0
	for _, r := range reviews {
		if r.Rating >= 1 && r.Rating <= 5 {
			sum += r.Rating
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return float64(sum) / float64(n)
}
