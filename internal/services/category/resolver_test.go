// resolver_test.go covers memoization, failure handling and name lookups.
package category

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shimizu-Technology/placement-finder-api/internal/cache"
	"github.com/Shimizu-Technology/placement-finder-api/internal/services/ytapi/ytapitest"
)

func TestResolveMemoizesPerRegion(t *testing.T) {
	api := ytapitest.New()
	api.SetCategories("US", map[string]string{"10": "Music", "20": "Gaming"})
	api.SetCategories("JP", map[string]string{"10": "音楽"})
	r := NewResolver(cache.New(cache.Options{}))
	ctx := context.Background()

	names, cost := r.Resolve(ctx, api, "")
	assert.Equal(t, 1, cost, "first caller pays")
	assert.Equal(t, map[string]string{"10": "Music", "20": "Gaming"}, names)

	names, cost = r.Resolve(ctx, api, "us")
	assert.Equal(t, 0, cost, "cached region is free")
	assert.Equal(t, "Gaming", names["20"])

	names, cost = r.Resolve(ctx, api, "JP")
	assert.Equal(t, 1, cost)
	assert.Equal(t, "音楽", names["10"])

	assert.Equal(t, []string{"US", "JP"}, api.CategoryCalls)
}

func TestResolveFailureReturnsEmptyMap(t *testing.T) {
	api := ytapitest.New()
	api.SetCategories("US", map[string]string{"10": "Music"})
	api.CategoryErrs[1] = errors.New("quotaExceeded")
	r := NewResolver(cache.New(cache.Options{}))
	ctx := context.Background()

	names, cost := r.Resolve(ctx, api, "US")
	require.NotNil(t, names)
	assert.Empty(t, names)
	assert.Equal(t, 1, cost, "the failed call was still issued")

	names, _ = r.Resolve(ctx, api, "US")
	assert.Equal(t, "Music", names["10"], "failures are not cached")
	assert.Len(t, api.CategoryCalls, 2)
}

func TestName(t *testing.T) {
	names := map[string]string{"10": "Music"}

	tests := []struct {
		name string
		id   string
		want string
	}{
		{name: "known", id: "10", want: "Music"},
		{name: "unknown", id: "99", want: "ID:99"},
		{name: "empty means all", id: "", want: AllCategories},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Name(names, tt.id))
		})
	}
}

func TestIDsForNames(t *testing.T) {
	names := map[string]string{"10": "Music", "20": "Gaming", "22": "People & Blogs"}

	ids, unknown := IDsForNames(names, []string{"music", "People & Blogs", "All Categories", "Cooking", " "})
	assert.Equal(t, []string{"10", "22"}, ids)
	assert.Equal(t, []string{"Cooking"}, unknown)
}
