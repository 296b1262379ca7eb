// Package category resolves opaque video category ids to display names.
//
// Go Pattern: The resolver accepts the one method it needs (Lister) instead
// of the whole ytapi.API, so callers can hand it anything that lists
// categories.
package category

import (
	"context"
	"log"
	"strings"

	"google.golang.org/api/youtube/v3"

	"github.com/Shimizu-Technology/placement-finder-api/internal/cache"
	"github.com/Shimizu-Technology/placement-finder-api/internal/models"
	"github.com/Shimizu-Technology/placement-finder-api/internal/services/quota"
)

// AllCategories is the label used when no inclusion category is selected.
const AllCategories = "All Categories"

// Lister is the slice of the remote API the resolver uses.
type Lister interface {
	Categories(ctx context.Context, regionCode string) ([]*youtube.VideoCategory, error)
}

// Resolver memoizes one category map per region for the process lifetime.
type Resolver struct {
	cache cache.Store
}

// NewResolver creates a resolver backed by store.
func NewResolver(store cache.Store) *Resolver {
	return &Resolver{cache: store}
}

// Resolve returns the id → name map for region and the quota units spent.
// The first caller per region pays one videoCategories.list call; later
// callers get the cached map for free. A remote failure yields an empty map
// that is not cached, so the next caller tries again.
func (r *Resolver) Resolve(ctx context.Context, api Lister, region string) (map[string]string, int) {
	region = strings.ToUpper(strings.TrimSpace(region))
	if region == "" {
		region = models.DefaultRegion
	}

	key := cache.Key("categories", region)
	var names map[string]string
	if r.cache.Get(ctx, key, &names) {
		return names, 0
	}

	items, err := api.Categories(ctx, region)
	if err != nil {
		log.Printf("⚠️  Categories: could not fetch %s categories: %v", region, err)
		return map[string]string{}, quota.CostCategoriesList
	}

	names = make(map[string]string, len(items))
	for _, item := range items {
		if item == nil || item.Id == "" || item.Snippet == nil {
			continue
		}
		names[item.Id] = item.Snippet.Title
	}

	r.cache.Set(ctx, key, names, cache.NoExpiry)
	log.Printf("✅ Categories: cached %d categories for %s", len(names), region)
	return names, quota.CostCategoriesList
}

// Name returns the display name for id, or "ID:<id>" when the map lacks it.
// An empty id means no category filter.
func Name(names map[string]string, id string) string {
	if id == "" {
		return AllCategories
	}
	if name, ok := names[id]; ok && name != "" {
		return name
	}
	return "ID:" + id
}

// IDsForNames translates display names back to ids, case-insensitively.
// Unknown names are returned separately. "All Categories" maps to nothing.
func IDsForNames(names map[string]string, selected []string) (ids []string, unknown []string) {
	byName := make(map[string]string, len(names))
	for id, name := range names {
		byName[strings.ToLower(name)] = id
	}

	for _, s := range selected {
		s = strings.TrimSpace(s)
		if s == "" || strings.EqualFold(s, AllCategories) {
			continue
		}
		if id, ok := byName[strings.ToLower(s)]; ok {
			ids = append(ids, id)
		} else {
			unknown = append(unknown, s)
		}
	}
	return ids, unknown
}
