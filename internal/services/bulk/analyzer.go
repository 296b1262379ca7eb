package bulk

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"google.golang.org/api/youtube/v3"

	"github.com/Shimizu-Technology/placement-finder-api/internal/models"
	"github.com/Shimizu-Technology/placement-finder-api/internal/services/enrich"
	"github.com/Shimizu-Technology/placement-finder-api/internal/services/quota"
	"github.com/Shimizu-Technology/placement-finder-api/internal/services/record"
	"github.com/Shimizu-Technology/placement-finder-api/internal/services/ytapi"
)

// MusicCategoryID and MusicCategoryName label videos the title heuristic
// reclassifies as music.
const (
	MusicCategoryID   = "10"
	MusicCategoryName = "Music"
)

// The platform often files music uploads under Entertainment or People &
// Blogs. A title containing one of these is treated as music regardless.
var musicKeywords = []string{
	"official music video",
	"official video",
	"music video",
	"lyric video",
	"lyrics",
	"official audio",
	"remix",
}

// creditMarkers only count as whole words: "Microsoft." is not a feature.
var creditMarkers = []string{"feat.", "ft."}

// LooksLikeMusic reports whether title carries a music keyword.
func LooksLikeMusic(title string) bool {
	t := strings.ToLower(title)
	for _, kw := range musicKeywords {
		if strings.Contains(t, kw) {
			return true
		}
	}
	padded := " " + t
	for _, m := range creditMarkers {
		for _, lead := range []string{" ", "(", "["} {
			if strings.Contains(padded, lead+m) {
				return true
			}
		}
	}
	return false
}

// Lister is the slice of the remote API the analyzer uses.
type Lister interface {
	enrich.Lister
	VideoDetails(ctx context.Context, ids []string) ([]*youtube.Video, error)
}

// Result is one analysis run.
type Result struct {
	Records      []models.VideoRecord
	Missing      []string // ids the details endpoint did not return
	DetailCalls  int
	ChannelCalls int
	QuotaCost    int
	Warnings     []string
}

// Analyzer runs the details and channel lookups for a fixed id list.
type Analyzer struct {
	enricher *enrich.Enricher
	now      func() time.Time
}

// NewAnalyzer creates an analyzer that enriches through e.
func NewAnalyzer(e *enrich.Enricher) *Analyzer {
	return &Analyzer{enricher: e, now: time.Now}
}

// SetClock overrides the time source used for view velocity.
func (a *Analyzer) SetClock(now func() time.Time) {
	a.now = now
}

// Analyze fetches details in batches of 50, enriches channels and flattens
// every video in input order. A failed batch is skipped with a warning; an
// error is returned only when no batch succeeded.
func (a *Analyzer) Analyze(ctx context.Context, api Lister, region string, ids []string, categories map[string]string) (*Result, error) {
	res := &Result{Records: []models.VideoRecord{}}
	if len(ids) == 0 {
		return res, ErrNoIdentifiers
	}

	byID := make(map[string]*youtube.Video, len(ids))
	var lastErr error
	failed := 0
	batches := ytapi.Chunk(ids, ytapi.MaxBatchSize)
	for i, batch := range batches {
		res.DetailCalls++
		res.QuotaCost += quota.CostVideosList
		videos, err := api.VideoDetails(ctx, batch)
		if err != nil {
			failed++
			lastErr = err
			log.Printf("⚠️  Bulk: details batch %d/%d failed, skipping: %v", i+1, len(batches), err)
			res.Warnings = append(res.Warnings, fmt.Sprintf("video details batch %d unavailable: %v", i+1, err))
			continue
		}
		for _, v := range videos {
			if v != nil && v.Id != "" {
				byID[v.Id] = v
			}
		}
	}
	if failed == len(batches) {
		return res, fmt.Errorf("videos.list: every batch failed: %w", lastErr)
	}

	ordered := make([]*youtube.Video, 0, len(byID))
	var channelIDs []string
	for _, id := range ids {
		v, ok := byID[id]
		if !ok {
			res.Missing = append(res.Missing, id)
			continue
		}
		ordered = append(ordered, v)
		if v.Snippet != nil {
			channelIDs = append(channelIDs, v.Snippet.ChannelId)
		}
	}

	profiles, cost := a.enricher.FetchProfiles(ctx, api, region, channelIDs)
	res.ChannelCalls = cost
	res.QuotaCost += cost

	now := a.now()
	for i, v := range ordered {
		r := record.Flatten(v, record.Context{Rank: i + 1}, profiles, categories, now)
		if LooksLikeMusic(r.Title) {
			r.CategoryID = MusicCategoryID
			r.CategoryName = MusicCategoryName
		}
		res.Records = append(res.Records, r)
	}

	log.Printf("✅ Bulk: analyzed %d/%d videos for %d units", len(res.Records), len(ids), res.QuotaCost)
	return res, nil
}
