// Package ytapi is the boundary to the YouTube Data API v3.
//
// The pipeline only ever needs four read endpoints, so API is a small
// interface over them. Client implements it with the official
// google.golang.org/api client; ytapitest provides a scripted fake.
package ytapi

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// PageSize is the search endpoint's maximum page size.
const PageSize = 50

// MaxBatchSize is the most ids videos.list and channels.list accept per call.
const MaxBatchSize = 50

// ErrMissingAPIKey is returned when no credential is configured or supplied.
var ErrMissingAPIKey = errors.New("youtube api key is required")

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// ValidVideoID reports whether id has the 11-character video id shape.
func ValidVideoID(id string) bool {
	return videoIDPattern.MatchString(id)
}

// SearchRequest is one search.list page request. Empty fields are not sent.
type SearchRequest struct {
	Query             string
	Order             string
	PageToken         string
	RegionCode        string
	RelevanceLanguage string
	VideoDuration     string
	VideoType         string
	VideoCategoryID   string
	PublishedAfter    string // RFC 3339
	PublishedBefore   string // RFC 3339
	MaxResults        int64
}

// API is the remote dependency contract.
type API interface {
	SearchPage(ctx context.Context, req SearchRequest) (*youtube.SearchListResponse, error)
	VideoDetails(ctx context.Context, ids []string) ([]*youtube.Video, error)
	ChannelDetails(ctx context.Context, ids []string) ([]*youtube.Channel, error)
	Categories(ctx context.Context, regionCode string) ([]*youtube.VideoCategory, error)
}

// Client calls the real API. Calls are paced by a token bucket so a long
// report cannot hammer the endpoint; nothing is retried.
type Client struct {
	svc     *youtube.Service
	limiter *rate.Limiter
	calls   metric.Int64Counter
}

// NewLimiter returns the pacing bucket shared by every Client a process
// creates. requestsPerSecond <= 0 disables pacing.
func NewLimiter(requestsPerSecond int) *rate.Limiter {
	if requestsPerSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
}

// NewClient builds a client keyed by apiKey. A nil limiter disables pacing.
func NewClient(ctx context.Context, apiKey string, limiter *rate.Limiter) (*Client, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	svc, err := youtube.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create youtube service: %w", err)
	}

	if limiter == nil {
		limiter = NewLimiter(0)
	}

	calls, err := otel.Meter("github.com/Shimizu-Technology/placement-finder-api/ytapi").
		Int64Counter("placement.youtube.calls", metric.WithDescription("YouTube Data API calls issued"))
	if err != nil {
		log.Printf("⚠️  YouTube: metric counter unavailable: %v", err)
	}

	return &Client{svc: svc, limiter: limiter, calls: calls}, nil
}

// SearchPage issues one search.list call.
func (c *Client) SearchPage(ctx context.Context, req SearchRequest) (*youtube.SearchListResponse, error) {
	if err := c.wait(ctx, "search.list"); err != nil {
		return nil, err
	}

	call := c.svc.Search.List([]string{"id"}).
		Q(req.Query).
		Type("video").
		MaxResults(req.MaxResults)
	if req.Order != "" {
		call = call.Order(req.Order)
	}
	if req.PageToken != "" {
		call = call.PageToken(req.PageToken)
	}
	if req.RegionCode != "" {
		call = call.RegionCode(req.RegionCode)
	}
	if req.RelevanceLanguage != "" {
		call = call.RelevanceLanguage(req.RelevanceLanguage)
	}
	if req.VideoDuration != "" {
		call = call.VideoDuration(req.VideoDuration)
	}
	if req.VideoType != "" {
		call = call.VideoType(req.VideoType)
	}
	if req.VideoCategoryID != "" {
		call = call.VideoCategoryId(req.VideoCategoryID)
	}
	if req.PublishedAfter != "" {
		call = call.PublishedAfter(req.PublishedAfter)
	}
	if req.PublishedBefore != "" {
		call = call.PublishedBefore(req.PublishedBefore)
	}

	resp, err := call.Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("search.list: %w", err)
	}
	return resp, nil
}

// VideoDetails issues one videos.list call for up to MaxBatchSize ids.
func (c *Client) VideoDetails(ctx context.Context, ids []string) ([]*youtube.Video, error) {
	if len(ids) > MaxBatchSize {
		return nil, fmt.Errorf("videos.list: %d ids exceeds batch limit of %d", len(ids), MaxBatchSize)
	}
	if err := c.wait(ctx, "videos.list"); err != nil {
		return nil, err
	}

	resp, err := c.svc.Videos.List([]string{"snippet", "statistics", "contentDetails"}).
		Id(ids...).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("videos.list: %w", err)
	}
	return resp.Items, nil
}

// ChannelDetails issues one channels.list call for up to MaxBatchSize ids.
func (c *Client) ChannelDetails(ctx context.Context, ids []string) ([]*youtube.Channel, error) {
	if len(ids) > MaxBatchSize {
		return nil, fmt.Errorf("channels.list: %d ids exceeds batch limit of %d", len(ids), MaxBatchSize)
	}
	if err := c.wait(ctx, "channels.list"); err != nil {
		return nil, err
	}

	resp, err := c.svc.Channels.List([]string{"snippet", "statistics", "brandingSettings", "topicDetails", "status"}).
		Id(ids...).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("channels.list: %w", err)
	}
	return resp.Items, nil
}

// Categories issues one videoCategories.list call for a region.
func (c *Client) Categories(ctx context.Context, regionCode string) ([]*youtube.VideoCategory, error) {
	if err := c.wait(ctx, "videoCategories.list"); err != nil {
		return nil, err
	}

	resp, err := c.svc.VideoCategories.List([]string{"snippet"}).
		RegionCode(regionCode).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("videoCategories.list: %w", err)
	}
	return resp.Items, nil
}

func (c *Client) wait(ctx context.Context, endpoint string) error {
	if c.calls != nil {
		c.calls.Add(ctx, 1, metric.WithAttributes(attribute.String("endpoint", endpoint)))
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s: %w", endpoint, err)
	}
	return nil
}

// Chunk splits ids into consecutive batches of at most size.
func Chunk(ids []string, size int) [][]string {
	if size <= 0 {
		size = MaxBatchSize
	}
	var batches [][]string
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		batches = append(batches, ids[start:end])
	}
	return batches
}

// Factory builds an API bound to a credential. Handlers use it so a request
// can bring its own key.
type Factory func(ctx context.Context, apiKey string) (API, error)

// NewFactory returns a Factory whose Clients share one pacing bucket, so
// concurrent requests with different keys still respect the process rate.
func NewFactory(requestsPerSecond int) Factory {
	limiter := NewLimiter(requestsPerSecond)
	return func(ctx context.Context, apiKey string) (API, error) {
		c, err := NewClient(ctx, apiKey, limiter)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}
