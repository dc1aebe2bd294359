package postgres

import (
	"context"
	"os"
	"testing"

	"storefront-complete/core"
)

// Needs a live server; set TEST_DATABASE_URL to run.
func testStore(t *testing.T) *pgStore {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	return NewStore(dsn)
}

func findProduct(t *testing.T, s *pgStore, id int64) *core.Product {
	t.Helper()
	products, err := s.ListProducts(context.Background())
	if err != nil {
		t.Fatalf("ListProducts: %v", err)
	}
	for _, p := range products {
		if p.ID == id {
			return p
		}
	}
	t.Fatalf("product %d not found", id)
	return nil
}

func TestUpdateProduct_ClearsZeroValuedColumns(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	id, err := s.InsertProduct(ctx, &core.Product{
		Title:        "Phone",
		Price:        499,
		Rating:       4.5,
		ReviewsCount: 12,
		Description:  "A phone",
		BrandInfo:    "Acme",
		Features:     "5G",
		BuyNowURL:    "https://example.com/phone",
	})
	if err != nil {
		t.Fatalf("InsertProduct: %v", err)
	}
	t.Cleanup(func() { s.DeleteProduct(ctx, id) })

	// Every cleared column must reach the row, including the zero values.
	if err := s.UpdateProduct(ctx, &core.Product{ID: id, Title: "Phone"}); err != nil {
		t.Fatalf("UpdateProduct: %v", err)
	}

	got := findProduct(t, s, id)
	if got.Price != 0 || got.Rating != 0 || got.ReviewsCount != 0 {
		t.Errorf("numeric columns = %v/%v/%d, want all cleared to 0", got.Price, got.Rating, got.ReviewsCount)
	}
	if got.Description != "" || got.BrandInfo != "" || got.Features != "" || got.BuyNowURL != "" {
		t.Errorf("text columns survived the clearing update: %+v", got)
	}
	if got.Title != "Phone" {
		t.Errorf("title = %q, want %q", got.Title, "Phone")
	}
}

func TestUpdateProduct_MissingRowFails(t *testing.T) {
	s := testStore(t)
	if err := s.UpdateProduct(context.Background(), &core.Product{ID: -1, Title: "Ghost"}); err == nil {
		t.Fatal("updating a missing product must fail")
	}
}
