package core

import (
	"context"
	"errors"
)

// ErrConfigNotFound is returned when a site config key has no stored value.
var ErrConfigNotFound = errors.New("site config key not found")

// Recognized site_config keys.
const (
	ConfigKeyCategories = "categories"
	ConfigKeyHeroes     = "heroes"
)

type (
	// CategoryItem is one labeled image tile inside a CategoryCard.
	CategoryItem struct {
		Label string `json:"label"`
		Image string `json:"image"`
	}

	// CategoryCard is a titled grouping of image tiles shown on the home
	// screen. Purely presentational configuration; it is persisted as an
	// opaque JSON value under the "categories" config key and carries no
	// relational integrity with products beyond shared category labels.
	CategoryCard struct {
		ID    int64          `json:"id"`
		Title string         `json:"title"`
		Items []CategoryItem `json:"items"`
	}

	// SiteConfigStore is a generic two-column key/value table.
	SiteConfigStore interface {
		// GetConfig returns the raw JSON value stored under key, or
		// ErrConfigNotFound when the key has never been written.
		GetConfig(ctx context.Context, key string) ([]byte, error)

		// SetConfig stores value under key, replacing any previous value.
		SetConfig(ctx context.Context, key string, value []byte) error
	}
)
