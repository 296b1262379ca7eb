// Package enrich looks up channel statistics for the channels that appear in
// a result set.
package enrich

import (
	"context"
	"log"
	"slices"
	"strings"
	"time"

	"google.golang.org/api/youtube/v3"

	"github.com/Shimizu-Technology/placement-finder-api/internal/cache"
	"github.com/Shimizu-Technology/placement-finder-api/internal/models"
	"github.com/Shimizu-Technology/placement-finder-api/internal/services/quota"
	"github.com/Shimizu-Technology/placement-finder-api/internal/services/ytapi"
)

// PlaceholderThumbnail is used when a channel or video has no thumbnails.
const PlaceholderThumbnail = "https://via.placeholder.com/88x88.png?text=No+Image"

// DefaultTTL is how long a channel lookup stays cached.
const DefaultTTL = time.Hour

// Lister is the slice of the remote API the enricher uses.
type Lister interface {
	ChannelDetails(ctx context.Context, ids []string) ([]*youtube.Channel, error)
}

// Enricher batches channel lookups and caches complete answers.
type Enricher struct {
	cache cache.Store
	ttl   time.Duration
}

// New creates an enricher. A non-positive ttl uses DefaultTTL.
func New(store cache.Store, ttl time.Duration) *Enricher {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Enricher{cache: store, ttl: ttl}
}

// FetchProfiles returns a profile per channel id and the quota units spent,
// one per batch issued. A failed batch is logged and skipped; its ids are
// simply absent from the map. Results are cached only when every batch
// succeeded, so a transient failure is not pinned for the TTL.
func (e *Enricher) FetchProfiles(ctx context.Context, api Lister, region string, ids []string) (map[string]models.ChannelProfile, int) {
	unique := uniqueIDs(ids)
	if len(unique) == 0 {
		return map[string]models.ChannelProfile{}, 0
	}

	key := cache.Key("channels", append([]string{strings.ToUpper(region)}, unique...)...)
	var cached map[string]models.ChannelProfile
	if e.cache.Get(ctx, key, &cached) {
		return cached, 0
	}

	profiles := make(map[string]models.ChannelProfile, len(unique))
	cost := 0
	failed := 0
	for i, batch := range ytapi.Chunk(unique, ytapi.MaxBatchSize) {
		cost += quota.CostChannelsList
		channels, err := api.ChannelDetails(ctx, batch)
		if err != nil {
			failed++
			log.Printf("⚠️  Channels: batch %d (%d ids) failed, skipping: %v", i+1, len(batch), err)
			continue
		}
		for _, ch := range channels {
			if ch == nil || ch.Id == "" {
				continue
			}
			profiles[ch.Id] = profileFromChannel(ch)
		}
	}

	log.Printf("📺 Channels: %d/%d profiles in %d batches", len(profiles), len(unique), cost)
	if failed == 0 {
		e.cache.Set(ctx, key, profiles, e.ttl)
	}
	return profiles, cost
}

// Unknown is the profile used for a channel the lookup did not return.
func Unknown(channelID string) models.ChannelProfile {
	return models.ChannelProfile{
		ChannelID:    channelID,
		Title:        "N/A",
		Subscribers:  models.SubscriberCount{Status: models.SubscribersUnavailable},
		Country:      "N/A",
		ThumbnailURL: PlaceholderThumbnail,
	}
}

func profileFromChannel(ch *youtube.Channel) models.ChannelProfile {
	p := models.ChannelProfile{
		ChannelID:   ch.Id,
		Subscribers: models.SubscriberCount{Status: models.SubscribersUnavailable},
	}

	if s := ch.Snippet; s != nil {
		p.Title = s.Title
		p.Country = s.Country
		p.DefaultLanguage = s.DefaultLanguage
		p.ThumbnailURL = ThumbnailURL(s.Thumbnails, "default", "medium", "high")
	} else {
		p.ThumbnailURL = PlaceholderThumbnail
	}

	if st := ch.Statistics; st != nil {
		p.TotalViews = int64(st.ViewCount)
		p.VideoCount = int64(st.VideoCount)
		if st.HiddenSubscriberCount {
			p.Subscribers = models.SubscriberCount{Status: models.SubscribersHidden}
		} else {
			p.Subscribers = models.SubscriberCount{Count: int64(st.SubscriberCount), Status: models.SubscribersVisible}
		}
	}

	if b := ch.BrandingSettings; b != nil && b.Channel != nil {
		p.Keywords = b.Channel.Keywords
		if p.Country == "" {
			p.Country = b.Channel.Country
		}
	}
	if t := ch.TopicDetails; t != nil {
		p.TopicCategories = append([]string(nil), t.TopicCategories...)
	}
	if st := ch.Status; st != nil {
		p.MadeForKids = st.MadeForKids
		p.PrivacyStatus = st.PrivacyStatus
	}

	if p.Title == "" {
		p.Title = "N/A"
	}
	if p.Country == "" {
		p.Country = "N/A"
	}
	if p.TopicCategories == nil {
		p.TopicCategories = []string{}
	}
	return p
}

// ThumbnailURL walks the preferred sizes in order and returns the first URL
// present, or the placeholder.
func ThumbnailURL(t *youtube.ThumbnailDetails, order ...string) string {
	if t == nil {
		return PlaceholderThumbnail
	}
	for _, size := range order {
		var th *youtube.Thumbnail
		switch size {
		case "default":
			th = t.Default
		case "medium":
			th = t.Medium
		case "high":
			th = t.High
		case "standard":
			th = t.Standard
		case "maxres":
			th = t.Maxres
		}
		if th != nil && th.Url != "" {
			return th.Url
		}
	}
	return PlaceholderThumbnail
}

func uniqueIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
