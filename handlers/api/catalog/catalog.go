package catalog

import (
	"errors"
	"net/http"
	"strconv"

	"storefront-complete/catalog"
	"storefront-complete/core"
	"storefront-complete/session"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
)

// HandleListProducts serves the current snapshot. An optional search query
// parameter applies the title substring filter.
func HandleListProducts(rec *catalog.Reconciler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		products := rec.Snapshot().Products
		if term := r.URL.Query().Get("search"); term != "" {
			products = session.FilterProducts(products, term)
		}
		render.JSON(w, r, products)
	}
}

func HandleGetProduct(rec *catalog.Reconciler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Product id must be numeric"})
			return
		}

		product, ok := rec.Resolve(id)
		if !ok {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, map[string]string{"error": "Product not found"})
			return
		}

		// The detail payload derives its rating from the reviews it carries,
		// excluding out-of-range values; the stored column stands in only for
		// products with no reviews.
		out := product.Clone()
		if len(out.Reviews) > 0 {
			out.Rating = core.AverageRating(out.Reviews)
		}
		render.JSON(w, r, out)
	}
}

// HandleGetSiteConfig returns the raw JSON value stored under a config key.
func HandleGetSiteConfig(store core.SiteConfigStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "key")
		if key == "" {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Config key is required"})
			return
		}

		value, err := store.GetConfig(r.Context(), key)
		if err != nil {
			if !errors.Is(err, core.ErrConfigNotFound) {
				logrus.WithError(err).WithField("key", key).Error("Failed to read site config")
			}
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, map[string]string{"error": "Config key not found"})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write(value)
	}
}
