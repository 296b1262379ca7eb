// Package search runs the bounded, quota-aware pagination over the search
// endpoint and joins every page against the video details endpoint.
//
// Go Pattern: The paginator is a plain loop over an explicit state (page
// number, continuation token, accumulator) rather than a recursive or
// channel-based design. Pages are strictly sequential because the token for
// page N+1 only exists once page N has answered.
package search

import (
	"context"
	"fmt"
	"log"
	"strings"

	"google.golang.org/api/youtube/v3"

	"github.com/Shimizu-Technology/placement-finder-api/internal/models"
	"github.com/Shimizu-Technology/placement-finder-api/internal/services/quota"
	"github.com/Shimizu-Technology/placement-finder-api/internal/services/ytapi"
)

// StopReason records why pagination ended.
type StopReason string

const (
	StopTargetReached StopReason = "target_reached"
	StopNoMorePages   StopReason = "no_more_pages"
	StopEmptyPage     StopReason = "empty_page"
	StopPageBudget    StopReason = "page_budget_spent"
	StopBelowMinViews StopReason = "below_min_views"
	StopRemoteError   StopReason = "remote_error"
)

// Lister is the slice of the remote API the paginator uses.
type Lister interface {
	SearchPage(ctx context.Context, req ytapi.SearchRequest) (*youtube.SearchListResponse, error)
	VideoDetails(ctx context.Context, ids []string) ([]*youtube.Video, error)
}

// Result is what a run accumulated, whatever the reason it stopped.
type Result struct {
	Videos       []*youtube.Video // detailed items in search order, at most TargetCount
	PagesFetched int
	SearchCalls  int
	DetailCalls  int
	QuotaCost    int
	Stop         StopReason
	Warnings     []string
}

// ChannelIDs returns the distinct channel ids in the result, in first-seen order.
func (r *Result) ChannelIDs() []string {
	seen := make(map[string]bool)
	var ids []string
	for _, v := range r.Videos {
		if v.Snippet == nil || v.Snippet.ChannelId == "" || seen[v.Snippet.ChannelId] {
			continue
		}
		seen[v.Snippet.ChannelId] = true
		ids = append(ids, v.Snippet.ChannelId)
	}
	return ids
}

// PagesToFetch is the page budget for a filter. Without client-side
// filtering it is the exact ceil(target/50). When results may be discarded
// after fetch it pads to target/5 + 5, which is an estimate: a very high
// discard rate can still end the run short of the target.
func PagesToFetch(f models.SearchFilter) int {
	if f.TargetCount <= 0 {
		return 0
	}
	if f.ClientFiltered() {
		return f.TargetCount/5 + 5
	}
	return (f.TargetCount + ytapi.PageSize - 1) / ytapi.PageSize
}

// PublishWindow returns the RFC 3339 bounds of one calendar year, [Jan 1, next Jan 1).
func PublishWindow(year int) (after, before string) {
	return fmt.Sprintf("%04d-01-01T00:00:00Z", year), fmt.Sprintf("%04d-01-01T00:00:00Z", year+1)
}

// Run paginates until the target is reached, the pages run out, the page
// budget is spent, the view floor is crossed (viewCount order only) or the
// search endpoint fails.
//
// The returned Result is never nil. A non-nil error is a *RemoteError:
// a search.list failure ends the run; a videos.list failure only skips that
// page and is reported once the run finishes.
func Run(ctx context.Context, api Lister, filter models.SearchFilter) (*Result, error) {
	f := filter.Normalize()
	res := &Result{}
	budget := PagesToFetch(f)
	base := baseRequest(f)
	g := newGate(f)

	var detailErr *RemoteError
	token := ""

	for page := 1; page <= budget; page++ {
		req := base
		req.PageToken = token

		res.SearchCalls++
		res.QuotaCost += quota.CostSearchList
		resp, err := api.SearchPage(ctx, req)
		if err != nil {
			res.Stop = StopRemoteError
			log.Printf("⚠️  Search: page %d failed after %d results: %v", page, len(res.Videos), err)
			return res, &RemoteError{Op: "search.list", Page: page, Partial: len(res.Videos) > 0, Err: err}
		}
		res.PagesFetched++

		ids := pageVideoIDs(resp)
		log.Printf("🔎 Search: page %d/%d returned %d ids", page, budget, len(ids))
		if len(ids) == 0 {
			res.Stop = StopEmptyPage
			return res, detailErr.orNil()
		}

		res.DetailCalls++
		res.QuotaCost += quota.CostVideosList
		details, err := api.VideoDetails(ctx, ids)
		if err != nil {
			log.Printf("⚠️  Search: details for page %d failed, skipping page: %v", page, err)
			res.Warnings = append(res.Warnings, fmt.Sprintf("video details for page %d unavailable: %v", page, err))
			if detailErr == nil {
				detailErr = &RemoteError{Op: "videos.list", Page: page, Err: err}
			}
		} else {
			byID := make(map[string]*youtube.Video, len(details))
			for _, v := range details {
				if v != nil {
					byID[v.Id] = v
				}
			}

			for _, id := range ids {
				v, ok := byID[id]
				if !ok {
					continue
				}
				if g.belowFloor(v) {
					if g.floorStops {
						res.Stop = StopBelowMinViews
						return res, detailErr.withPartial(len(res.Videos) > 0).orNil()
					}
					continue
				}
				if !g.admit(v) {
					continue
				}
				res.Videos = append(res.Videos, v)
				if len(res.Videos) >= f.TargetCount {
					res.Videos = res.Videos[:f.TargetCount]
					res.Stop = StopTargetReached
					return res, detailErr.withPartial(true).orNil()
				}
			}
		}

		token = resp.NextPageToken
		if token == "" {
			res.Stop = StopNoMorePages
			return res, detailErr.withPartial(len(res.Videos) > 0).orNil()
		}
	}

	res.Stop = StopPageBudget
	return res, detailErr.withPartial(len(res.Videos) > 0).orNil()
}

func baseRequest(f models.SearchFilter) ytapi.SearchRequest {
	req := ytapi.SearchRequest{
		Query:             f.Query,
		Order:             string(f.SortOrder),
		RegionCode:        f.RegionCode,
		RelevanceLanguage: f.RelevanceLanguage,
		MaxResults:        ytapi.PageSize,
	}
	if f.DurationBucket != models.DurationAny {
		req.VideoDuration = string(f.DurationBucket)
	}
	if f.VideoType != models.VideoTypeAny {
		req.VideoType = string(f.VideoType)
	}
	// The endpoint takes one category id; larger sets are filtered after fetch.
	if len(f.CategoryIDs) == 1 {
		req.VideoCategoryID = f.CategoryIDs[0]
	}
	if f.PublishYear != nil {
		req.PublishedAfter, req.PublishedBefore = PublishWindow(*f.PublishYear)
	}
	return req
}

func pageVideoIDs(resp *youtube.SearchListResponse) []string {
	if resp == nil {
		return nil
	}
	ids := make([]string, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item == nil || item.Id == nil || !ytapi.ValidVideoID(item.Id.VideoId) {
			continue
		}
		ids = append(ids, item.Id.VideoId)
	}
	return ids
}

// gate holds the post-fetch filters compiled from a normalized filter.
type gate struct {
	terms      []string
	excluded   map[string]bool
	included   map[string]bool // nil when the server already filtered or no set is given
	minViews   uint64
	floorStops bool
}

func newGate(f models.SearchFilter) *gate {
	g := &gate{excluded: toSet(f.ExcludeCategoryIDs)}
	for _, t := range f.ExcludeTerms {
		g.terms = append(g.terms, strings.ToLower(t))
	}
	if len(f.CategoryIDs) > 1 {
		g.included = toSet(f.CategoryIDs)
	}
	if f.MinViews > 0 {
		g.minViews = uint64(f.MinViews)
		g.floorStops = f.SortOrder == models.OrderViewCount
	}
	return g
}

func (g *gate) belowFloor(v *youtube.Video) bool {
	if g.minViews == 0 {
		return false
	}
	return viewCount(v) < g.minViews
}

// admit applies term exclusion, then category exclusion, then inclusion.
// Exclusion wins when a category is in both sets.
func (g *gate) admit(v *youtube.Video) bool {
	var title, description, categoryID string
	if s := v.Snippet; s != nil {
		title = strings.ToLower(s.Title)
		description = strings.ToLower(s.Description)
		categoryID = s.CategoryId
	}

	for _, t := range g.terms {
		if strings.Contains(title, t) || strings.Contains(description, t) {
			return false
		}
	}
	if g.excluded[categoryID] {
		return false
	}
	if g.included != nil && !g.included[categoryID] {
		return false
	}
	return true
}

func viewCount(v *youtube.Video) uint64 {
	if v.Statistics == nil {
		return 0
	}
	return v.Statistics.ViewCount
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
