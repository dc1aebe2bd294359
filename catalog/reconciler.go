package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"storefront-complete/core"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ErrNotConfirmed is returned when a destructive operation is requested
// without the explicit confirmation gesture.
var ErrNotConfirmed = errors.New("operation not confirmed")

// DefaultReviewAuthor is filled in for reinserted reviews without a name.
const DefaultReviewAuthor = "Customer"

// Store is everything the reconciler needs from the remote catalog store.
type Store interface {
	core.CatalogStore
	core.SiteConfigStore
}

// Snapshot is a point-in-time view of the remote store. Consumers treat it as
// read-only; a reload produces a fresh one rather than mutating it in place.
type Snapshot struct {
	Products   []*core.Product
	Categories []core.CategoryCard
	Heroes     []string
}

// Reconciler keeps the in-memory truth the UI renders from in sync with the
// remote store. The strategy is full refetch-and-replace: every mutation ends
// with a Reload, and the UI never sees a partially updated product list.
type Reconciler struct {
	store Store

	mu   sync.RWMutex
	snap Snapshot
}

func New(store Store) *Reconciler {
	return &Reconciler{
		store: store,
		snap: Snapshot{
			Products:   []*core.Product{},
			Categories: []core.CategoryCard{},
			Heroes:     []string{},
		},
	}
}

// Snapshot returns the current in-memory state.
func (r *Reconciler) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snap
}

// Resolve finds a product by identifier in the current snapshot.
func (r *Reconciler) Resolve(id int64) (*core.Product, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.snap.Products {
		if p.ID == id {
			return p, true
		}
	}
	return nil, false
}

// Loaded reports whether a non-empty product set has been loaded.
func (r *Reconciler) Loaded() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.snap.Products) > 0
}

// Reload refetches the full product set and the site configuration and swaps
// the in-memory snapshot in one step. On any read error the prior snapshot is
// kept untouched: stale but consistent beats a torn view. The error is
// returned so callers can clear loading indicators and surface the failure.
func (r *Reconciler) Reload(ctx context.Context) error {
	var (
		products   []*core.Product
		categories []core.CategoryCard
		heroes     []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		products, err = r.store.ListProducts(gctx)
		return err
	})
	g.Go(func() error {
		return r.loadConfig(gctx, core.ConfigKeyCategories, &categories)
	})
	g.Go(func() error {
		return r.loadConfig(gctx, core.ConfigKeyHeroes, &heroes)
	})

	if err := g.Wait(); err != nil {
		logrus.WithError(err).Error("Reload failed, keeping previous state")
		return err
	}

	if products == nil {
		products = []*core.Product{}
	}
	for _, p := range products {
		if p.Reviews == nil {
			p.Reviews = []core.Review{}
		}
	}
	if categories == nil {
		categories = []core.CategoryCard{}
	}
	if heroes == nil {
		heroes = []string{}
	}

	r.mu.Lock()
	r.snap = Snapshot{Products: products, Categories: categories, Heroes: heroes}
	r.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"products":   len(products),
		"categories": len(categories),
		"heroes":     len(heroes),
	}).Debug("Snapshot reloaded")
	return nil
}

// loadConfig decodes the value stored under key into out. A missing key or a
// value of the wrong shape leaves out empty; only a store read error fails
// the reload.
func (r *Reconciler) loadConfig(ctx context.Context, key string, out any) error {
	raw, err := r.store.GetConfig(ctx, key)
	if err != nil {
		if errors.Is(err, core.ErrConfigNotFound) {
			return nil
		}
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		logrus.WithError(err).WithField("key", key).Warn("Ignoring malformed site config value")
	}
	return nil
}

// SaveProduct writes p to the store and fully replaces its review set.
//
// A product carrying the new-product sentinel is inserted with the identifier
// stripped so the store assigns one; anything else is a flat update by
// identifier, with the nested review collection excluded from the payload.
// The review policy is delete-then-reinsert: callers submit the complete
// desired set each time, blank comments are dropped, and missing author,
// rating and date fields get defaults. A nil review collection leaves the
// stored reviews untouched; an empty one clears them.
//
// If the parent write fails no review replacement is attempted. A reload runs
// regardless of outcome so the UI state matches whatever storage ended up
// holding. The delete/reinsert window is not safe under concurrent admin
// writers; single-admin usage is assumed.
func (r *Reconciler) SaveProduct(ctx context.Context, p *core.Product) (err error) {
	defer func() {
		if rerr := r.Reload(ctx); rerr != nil {
			if err == nil {
				err = rerr
			} else {
				logrus.WithError(rerr).Error("Resync after failed save also failed")
			}
		}
	}()

	row := p.Row()
	id := p.ID
	if id == core.NewProductID {
		assigned, ierr := r.store.InsertProduct(ctx, row)
		if ierr != nil {
			return fmt.Errorf("insert product: %w", ierr)
		}
		id = assigned
	} else {
		if uerr := r.store.UpdateProduct(ctx, row); uerr != nil {
			return fmt.Errorf("update product %d: %w", id, uerr)
		}
	}

	if p.Reviews == nil {
		return nil
	}
	if rerr := r.store.ReplaceReviews(ctx, id, normalizeReviews(id, p.Reviews)); rerr != nil {
		return fmt.Errorf("replace reviews for product %d: %w", id, rerr)
	}
	return nil
}

// DeleteProduct removes the product by identifier. It refuses to act without
// the explicit confirmation gesture and always reloads afterwards. Review
// cleanup, if any, is a store concern.
func (r *Reconciler) DeleteProduct(ctx context.Context, id int64, confirmed bool) (err error) {
	if !confirmed {
		return ErrNotConfirmed
	}
	defer func() {
		if rerr := r.Reload(ctx); rerr != nil {
			if err == nil {
				err = rerr
			} else {
				logrus.WithError(rerr).Error("Resync after failed delete also failed")
			}
		}
	}()

	if derr := r.store.DeleteProduct(ctx, id); derr != nil {
		return fmt.Errorf("delete product %d: %w", id, derr)
	}
	return nil
}

// normalizeReviews filters out blank comments and applies insert defaults.
func normalizeReviews(productID int64, reviews []core.Review) []core.Review {
	out := make([]core.Review, 0, len(reviews))
	for _, r := range reviews {
		if strings.TrimSpace(r.Comment) == "" {
			continue
		}
		r.ID = 0 // reinserted rows get fresh identifiers
		r.ProductID = productID
		if r.UserName == "" {
			r.UserName = DefaultReviewAuthor
		}
		if r.Rating == 0 {
			r.Rating = 5
		}
		if r.Date == "" {
			r.Date = time.Now().Format("2006-01-02")
		}
		if r.Images == nil {
			r.Images = []string{}
		}
		out = append(out, r)
	}
	return out
}
