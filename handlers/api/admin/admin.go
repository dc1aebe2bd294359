package admin

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"storefront-complete/catalog"
	"storefront-complete/core"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
)

// flexFloat tolerates prices arriving as JSON strings or garbage; anything
// that does not parse becomes 0 rather than failing the request.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	var n float64
	if err := json.Unmarshal(b, &n); err == nil {
		*f = flexFloat(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if n, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			*f = flexFloat(n)
			return nil
		}
	}
	*f = 0
	return nil
}

type productPayload struct {
	ID           int64         `json:"id"`
	Title        string        `json:"title"`
	Price        flexFloat     `json:"price"`
	Rating       float64       `json:"rating"`
	ReviewsCount int           `json:"reviews_count"`
	Images       []string      `json:"images"`
	Category     string        `json:"category"`
	Description  string        `json:"description"`
	BrandInfo    string        `json:"brand_info"`
	ProductInfo  string        `json:"product_info"`
	Features     string        `json:"features"`
	BuyNowURL    string        `json:"buy_now_url"`
	Reviews      []core.Review `json:"reviews"`
}

func (p *productPayload) toProduct() *core.Product {
	price := float64(p.Price)
	if price < 0 {
		price = 0
	}
	return &core.Product{
		ID:           p.ID,
		Title:        p.Title,
		Price:        price,
		Rating:       p.Rating,
		ReviewsCount: p.ReviewsCount,
		Images:       p.Images,
		Category:     p.Category,
		Description:  p.Description,
		BrandInfo:    p.BrandInfo,
		ProductInfo:  p.ProductInfo,
		Features:     p.Features,
		BuyNowURL:    p.BuyNowURL,
		Reviews:      p.Reviews,
	}
}

// HandleSaveProduct inserts or updates a product through the reconciler. The
// response reflects the post-save snapshot, so the caller always renders
// storage truth rather than an assumed post-write shape.
func HandleSaveProduct(rec *catalog.Reconciler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload productPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Invalid product payload"})
			return
		}

		if err := rec.SaveProduct(r.Context(), payload.toProduct()); err != nil {
			logrus.WithError(err).WithField("product_id", payload.ID).Error("Failed to save product")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "The product could not be saved"})
			return
		}

		render.JSON(w, r, rec.Snapshot().Products)
	}
}

// HandleDeleteProduct deletes by identifier. The explicit confirmation
// gesture is the confirm=true query parameter; without it nothing is
// deleted.
func HandleDeleteProduct(rec *catalog.Reconciler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Product id must be numeric"})
			return
		}

		confirmed := r.URL.Query().Get("confirm") == "true"
		if err := rec.DeleteProduct(r.Context(), id, confirmed); err != nil {
			if errors.Is(err, catalog.ErrNotConfirmed) {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, map[string]string{"error": "Deletion requires confirm=true"})
				return
			}
			logrus.WithError(err).WithField("product_id", id).Error("Failed to delete product")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "The product could not be deleted"})
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, map[string]string{"status": "deleted"})
	}
}

// HandleSetSiteConfig stores a raw JSON value under a config key and reloads
// so the snapshot picks it up.
func HandleSetSiteConfig(store core.SiteConfigStore, rec *catalog.Reconciler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "key")
		if key == "" {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Config key is required"})
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "Failed to read request body"})
			return
		}
		defer r.Body.Close()

		if !json.Valid(body) {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Config value must be valid JSON"})
			return
		}

		if err := store.SetConfig(r.Context(), key, body); err != nil {
			logrus.WithError(err).WithField("key", key).Error("Failed to save site config")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "The config could not be saved"})
			return
		}

		if err := rec.Reload(r.Context()); err != nil {
			logrus.WithError(err).Warn("Reload after config save failed; serving previous snapshot")
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, map[string]string{"status": "saved"})
	}
}
