// Package record joins a detailed video with its channel profile and search
// context into the flat row that is displayed and exported.
//
// Go Pattern: Flatten is a pure function. It takes the clock as an argument
// instead of calling time.Now, so tests can pin "today" without any globals.
package record

import (
	"strings"
	"time"

	"google.golang.org/api/youtube/v3"

	"github.com/Shimizu-Technology/placement-finder-api/internal/models"
	"github.com/Shimizu-Technology/placement-finder-api/internal/services/duration"
	"github.com/Shimizu-Technology/placement-finder-api/internal/services/enrich"
)

// NotAvailable fills string fields the API did not supply.
const NotAvailable = "N/A"

// WatchURL is the public URL prefix for a video id.
const WatchURL = "https://www.youtube.com/watch?v="

// Context is the search that produced a video.
type Context struct {
	Rank         int
	Year         string
	CategoryName string
}

// Flatten builds one VideoRecord. It never fails: every absent field gets a
// default (0, "N/A", or an empty slice). Channels missing from the map are
// reported as unknown.
func Flatten(v *youtube.Video, sc Context, channels map[string]models.ChannelProfile, categories map[string]string, now time.Time) models.VideoRecord {
	r := models.VideoRecord{
		SearchYear:     orNA(sc.Year),
		SearchCategory: orNA(sc.CategoryName),
		Rank:           sc.Rank,
		VideoID:        v.Id,
		URL:            WatchURL + v.Id,
		Title:          NotAvailable,
		ThumbnailURL:   enrich.PlaceholderThumbnail,
		PublishedDate:  NotAvailable,
		Duration:       duration.Encode(0),
		CategoryName:   NotAvailable,
		Tags:           []string{},
		SpokenLanguage: NotAvailable,
		TextLanguage:   NotAvailable,
		ChannelTitle:   NotAvailable,
	}
	if v.Id == "" {
		r.URL = NotAvailable
	}

	if s := v.Snippet; s != nil {
		if s.Title != "" {
			r.Title = s.Title
		}
		r.ThumbnailURL = enrich.ThumbnailURL(s.Thumbnails, "high", "medium", "default")
		if t, err := time.Parse(time.RFC3339, s.PublishedAt); err == nil {
			r.PublishedAt = t.UTC()
			r.PublishedDate = r.PublishedAt.Format("2006-01-02")
		}
		r.CategoryID = s.CategoryId
		r.CategoryName = categoryName(categories, s.CategoryId)
		if len(s.Tags) > 0 {
			r.Tags = append([]string(nil), s.Tags...)
		}
		r.SpokenLanguage = orNA(s.DefaultAudioLanguage)
		r.TextLanguage = orNA(s.DefaultLanguage)
		r.ChannelID = s.ChannelId
		r.ChannelTitle = orNA(s.ChannelTitle)
	}

	if st := v.Statistics; st != nil {
		r.ViewCount = int64(st.ViewCount)
		r.LikeCount = int64(st.LikeCount)
		r.CommentCount = int64(st.CommentCount)
	}
	if cd := v.ContentDetails; cd != nil {
		r.DurationSeconds = duration.Decode(cd.Duration)
		r.Duration = duration.Encode(r.DurationSeconds)
	}

	r.AvgViewsPerDay = AvgViewsPerDay(r.ViewCount, r.PublishedAt, now)
	r.LikeToViewRatio = percentOf(r.LikeCount, r.ViewCount)
	r.CommentToViewRatio = percentOf(r.CommentCount, r.ViewCount)
	r.EngagementRate = percentOf(r.LikeCount+r.CommentCount, r.ViewCount)

	profile, ok := channels[r.ChannelID]
	if !ok {
		profile = enrich.Unknown(r.ChannelID)
	}
	r.ChannelKnown = ok
	r.ChannelSubscribers = profile.Subscribers
	r.ChannelVideoCount = profile.VideoCount
	r.ChannelTotalViews = profile.TotalViews
	r.ChannelCountry = orNA(profile.Country)
	r.MadeForKids = profile.MadeForKids
	if ok && r.ChannelTitle == NotAvailable && profile.Title != "" {
		r.ChannelTitle = profile.Title
	}
	return r
}

// AvgViewsPerDay divides views by whole days since publish. Videos less
// than a day old, or with an unknown publish time, report raw views.
func AvgViewsPerDay(views int64, publishedAt, now time.Time) float64 {
	if publishedAt.IsZero() {
		return float64(views)
	}
	days := int64(now.Sub(publishedAt) / (24 * time.Hour))
	if days <= 0 {
		return float64(views)
	}
	return float64(views) / float64(days)
}

func percentOf(part, views int64) float64 {
	if views <= 0 {
		return 0
	}
	return float64(part) / float64(views) * 100
}

func categoryName(categories map[string]string, id string) string {
	if id == "" {
		return NotAvailable
	}
	if name, ok := categories[id]; ok && name != "" {
		return name
	}
	return "ID:" + id
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return NotAvailable
	}
	return s
}
