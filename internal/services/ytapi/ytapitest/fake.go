// Package ytapitest provides a scripted, call-recording fake of ytapi.API.
package ytapitest

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/api/youtube/v3"

	"github.com/Shimizu-Technology/placement-finder-api/internal/services/ytapi"
)

// Fake serves canned responses and records every call it receives.
// Error maps are keyed by the 1-based call number of that endpoint.
type Fake struct {
	mu sync.Mutex

	Pages         map[string]*youtube.SearchListResponse // keyed by page token, "" is the first page
	Videos        map[string]*youtube.Video
	Channels      map[string]*youtube.Channel
	CategoryLists map[string][]*youtube.VideoCategory // keyed by region

	SearchErrs   map[int]error
	VideoErrs    map[int]error
	ChannelErrs  map[int]error
	CategoryErrs map[int]error

	SearchCalls   []ytapi.SearchRequest
	VideoCalls    [][]string
	ChannelCalls  [][]string
	CategoryCalls []string
}

// New returns an empty Fake.
func New() *Fake {
	return &Fake{
		Pages:         map[string]*youtube.SearchListResponse{},
		Videos:        map[string]*youtube.Video{},
		Channels:      map[string]*youtube.Channel{},
		CategoryLists: map[string][]*youtube.VideoCategory{},
		SearchErrs:    map[int]error{},
		VideoErrs:     map[int]error{},
		ChannelErrs:   map[int]error{},
		CategoryErrs:  map[int]error{},
	}
}

var _ ytapi.API = (*Fake)(nil)

// SearchPage serves the page registered under req.PageToken.
func (f *Fake) SearchPage(_ context.Context, req ytapi.SearchRequest) (*youtube.SearchListResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.SearchCalls = append(f.SearchCalls, req)
	if err := f.SearchErrs[len(f.SearchCalls)]; err != nil {
		return nil, err
	}
	page, ok := f.Pages[req.PageToken]
	if !ok {
		return &youtube.SearchListResponse{}, nil
	}
	return page, nil
}

// VideoDetails returns the registered videos among ids, in request order.
func (f *Fake) VideoDetails(_ context.Context, ids []string) ([]*youtube.Video, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.VideoCalls = append(f.VideoCalls, append([]string(nil), ids...))
	if len(ids) > ytapi.MaxBatchSize {
		return nil, fmt.Errorf("videos.list: %d ids exceeds batch limit", len(ids))
	}
	if err := f.VideoErrs[len(f.VideoCalls)]; err != nil {
		return nil, err
	}
	var out []*youtube.Video
	for _, id := range ids {
		if v, ok := f.Videos[id]; ok {
			out = append(out, v)
		}
	}
	return out, nil
}

// ChannelDetails returns the registered channels among ids.
func (f *Fake) ChannelDetails(_ context.Context, ids []string) ([]*youtube.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.ChannelCalls = append(f.ChannelCalls, append([]string(nil), ids...))
	if len(ids) > ytapi.MaxBatchSize {
		return nil, fmt.Errorf("channels.list: %d ids exceeds batch limit", len(ids))
	}
	if err := f.ChannelErrs[len(f.ChannelCalls)]; err != nil {
		return nil, err
	}
	var out []*youtube.Channel
	for _, id := range ids {
		if ch, ok := f.Channels[id]; ok {
			out = append(out, ch)
		}
	}
	return out, nil
}

// Categories returns the categories registered for region.
func (f *Fake) Categories(_ context.Context, region string) ([]*youtube.VideoCategory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.CategoryCalls = append(f.CategoryCalls, region)
	if err := f.CategoryErrs[len(f.CategoryCalls)]; err != nil {
		return nil, err
	}
	return f.CategoryLists[region], nil
}

// AddPages registers a chain of search pages. Page i links to page i+1 with
// token "page-<i+1>"; the last page has no continuation token.
func (f *Fake) AddPages(pages ...[]string) {
	for i, ids := range pages {
		token := ""
		if i > 0 {
			token = fmt.Sprintf("page-%d", i+1)
		}
		resp := &youtube.SearchListResponse{}
		if i < len(pages)-1 {
			resp.NextPageToken = fmt.Sprintf("page-%d", i+2)
		}
		for _, id := range ids {
			resp.Items = append(resp.Items, &youtube.SearchResult{Id: &youtube.ResourceId{Kind: "youtube#video", VideoId: id}})
		}
		f.Pages[token] = resp
	}
}

// AddVideos registers videos by id.
func (f *Fake) AddVideos(videos ...*youtube.Video) {
	for _, v := range videos {
		f.Videos[v.Id] = v
	}
}

// AddChannels registers channels by id.
func (f *Fake) AddChannels(channels ...*youtube.Channel) {
	for _, ch := range channels {
		f.Channels[ch.Id] = ch
	}
}

// SetCategories registers the category list for a region.
func (f *Fake) SetCategories(region string, names map[string]string) {
	var items []*youtube.VideoCategory
	for id, title := range names {
		items = append(items, &youtube.VideoCategory{Id: id, Snippet: &youtube.VideoCategorySnippet{Title: title}})
	}
	f.CategoryLists[region] = items
}

// Video builds a detailed video with the fields the pipeline reads.
func Video(id, channelID, title, categoryID string, views uint64) *youtube.Video {
	return &youtube.Video{
		Id: id,
		Snippet: &youtube.VideoSnippet{
			Title:        title,
			ChannelId:    channelID,
			ChannelTitle: "Channel " + channelID,
			CategoryId:   categoryID,
			PublishedAt:  "2024-01-01T00:00:00Z",
		},
		Statistics: &youtube.VideoStatistics{
			ViewCount:    views,
			LikeCount:    views / 10,
			CommentCount: views / 100,
		},
		ContentDetails: &youtube.VideoContentDetails{Duration: "PT4M13S"},
	}
}

// Channel builds a channel with a visible subscriber count.
func Channel(id, title string, subscribers uint64) *youtube.Channel {
	return &youtube.Channel{
		Id:      id,
		Snippet: &youtube.ChannelSnippet{Title: title, Country: "US"},
		Statistics: &youtube.ChannelStatistics{
			SubscriberCount: subscribers,
			VideoCount:      120,
			ViewCount:       subscribers * 40,
		},
	}
}

// VideoID returns a well-formed 11-character id derived from n.
func VideoID(n int) string {
	return fmt.Sprintf("vid%08d", n)
}
