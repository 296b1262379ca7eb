// Package models defines the data structures used throughout the application.
//
// Go Pattern: Models are plain structs with JSON tags for serialization.
// The `db` tags work with sqlx for database column mapping, and `toml` tags
// let the CLI decode report plans straight into the same structs the HTTP
// API uses.
package models

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// SortOrder is the ordering requested from the search endpoint.
// Go Pattern: String constants instead of enums (Go doesn't have enums).
type SortOrder string

const (
	OrderRelevance SortOrder = "relevance"
	OrderViewCount SortOrder = "viewCount"
	OrderDate      SortOrder = "date"
	OrderRating    SortOrder = "rating"
	OrderTitle     SortOrder = "title"
)

// DurationBucket maps to the search endpoint's videoDuration parameter.
type DurationBucket string

const (
	DurationAny    DurationBucket = "any"
	DurationShort  DurationBucket = "short"  // under 4 minutes
	DurationMedium DurationBucket = "medium" // 4 to 20 minutes
	DurationLong   DurationBucket = "long"   // over 20 minutes
)

// VideoType maps to the search endpoint's videoType parameter.
type VideoType string

const (
	VideoTypeAny     VideoType = "any"
	VideoTypeMovie   VideoType = "movie"
	VideoTypeEpisode VideoType = "episode"
)

// DefaultRegion is used whenever a caller leaves the region empty.
const DefaultRegion = "US"

// MaxTargetCount caps a single search so one request cannot burn the whole
// daily budget by itself.
const MaxTargetCount = 500

var (
	ErrEmptyQuery    = errors.New("query must not be empty")
	ErrInvalidTarget = fmt.Errorf("target count must be between 1 and %d", MaxTargetCount)
)

// SearchFilter describes one placement search.
// Category and exclusion lists are sets; Normalize sorts and de-duplicates them.
type SearchFilter struct {
	Query              string         `json:"query" toml:"query" binding:"required"`
	CategoryIDs        []string       `json:"category_ids,omitempty" toml:"category_ids"`
	ExcludeCategoryIDs []string       `json:"exclude_category_ids,omitempty" toml:"exclude_category_ids"`
	ExcludeTerms       []string       `json:"exclude_terms,omitempty" toml:"exclude_terms"`
	PublishYear        *int           `json:"publish_year,omitempty" toml:"publish_year"`
	RegionCode         string         `json:"region_code,omitempty" toml:"region_code"`
	SortOrder          SortOrder      `json:"sort_order,omitempty" toml:"sort_order"`
	RelevanceLanguage  string         `json:"relevance_language,omitempty" toml:"relevance_language"`
	DurationBucket     DurationBucket `json:"duration_bucket,omitempty" toml:"duration_bucket"`
	VideoType          VideoType      `json:"video_type,omitempty" toml:"video_type"`
	TargetCount        int            `json:"target_count" toml:"target_count" binding:"required"`
	MinViews           int64          `json:"min_views,omitempty" toml:"min_views"`
}

// Normalize fills defaults and canonicalizes the set-valued fields so that
// two equivalent filters share a fingerprint. ExcludeTerms keep their order.
func (f SearchFilter) Normalize() SearchFilter {
	f.Query = strings.TrimSpace(f.Query)
	if f.RegionCode == "" {
		f.RegionCode = DefaultRegion
	}
	f.RegionCode = strings.ToUpper(f.RegionCode)
	if f.SortOrder == "" {
		f.SortOrder = OrderRelevance
	}
	if f.DurationBucket == "" {
		f.DurationBucket = DurationAny
	}
	if f.VideoType == "" {
		f.VideoType = VideoTypeAny
	}
	f.CategoryIDs = canonicalSet(f.CategoryIDs)
	f.ExcludeCategoryIDs = canonicalSet(f.ExcludeCategoryIDs)

	terms := make([]string, 0, len(f.ExcludeTerms))
	for _, t := range f.ExcludeTerms {
		if t = strings.TrimSpace(t); t != "" {
			terms = append(terms, t)
		}
	}
	f.ExcludeTerms = terms
	return f
}

// Validate checks a normalized filter.
func (f SearchFilter) Validate() error {
	if strings.TrimSpace(f.Query) == "" {
		return ErrEmptyQuery
	}
	if f.TargetCount < 1 || f.TargetCount > MaxTargetCount {
		return ErrInvalidTarget
	}
	if f.MinViews < 0 {
		return errors.New("min views must not be negative")
	}
	switch f.SortOrder {
	case OrderRelevance, OrderViewCount, OrderDate, OrderRating, OrderTitle:
	default:
		return fmt.Errorf("unsupported sort order %q", f.SortOrder)
	}
	switch f.DurationBucket {
	case DurationAny, DurationShort, DurationMedium, DurationLong:
	default:
		return fmt.Errorf("unsupported duration bucket %q", f.DurationBucket)
	}
	switch f.VideoType {
	case VideoTypeAny, VideoTypeMovie, VideoTypeEpisode:
	default:
		return fmt.Errorf("unsupported video type %q", f.VideoType)
	}
	if f.PublishYear != nil && (*f.PublishYear < 2005 || *f.PublishYear > 9998) {
		return fmt.Errorf("publish year %d is out of range", *f.PublishYear)
	}
	return nil
}

// ClientFiltered reports whether results may be discarded after they are
// fetched, which is what makes the paginator pad its page estimate.
func (f SearchFilter) ClientFiltered() bool {
	if len(f.ExcludeTerms) > 0 || len(f.ExcludeCategoryIDs) > 0 || len(f.CategoryIDs) > 1 {
		return true
	}
	// Outside viewCount order a view floor is a plain filter, not a stop signal.
	return f.MinViews > 0 && f.SortOrder != OrderViewCount
}

// Fingerprint hashes the normalized filter. It keys the result cache.
func (f SearchFilter) Fingerprint() string {
	data, _ := json.Marshal(f.Normalize())
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%x", sum[:12])
}

func canonicalSet(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// SubscriberStatus distinguishes a real count from the two "no number" cases.
type SubscriberStatus string

const (
	SubscribersVisible     SubscriberStatus = "visible"
	SubscribersHidden      SubscriberStatus = "hidden"
	SubscribersUnavailable SubscriberStatus = "unavailable"
)

// SubscriberCount is a tri-state: a number, hidden by the owner, or unknown
// because the channel lookup returned nothing.
type SubscriberCount struct {
	Count  int64            `json:"count"`
	Status SubscriberStatus `json:"status"`
}

// Display renders the count for tables: the number, "Hidden", or "N/A".
func (s SubscriberCount) Display() string {
	switch s.Status {
	case SubscribersVisible:
		return fmt.Sprintf("%d", s.Count)
	case SubscribersHidden:
		return "Hidden"
	default:
		return "N/A"
	}
}

// Value is the number to use in aggregations. Hidden and unknown both count as 0.
func (s SubscriberCount) Value() int64 {
	if s.Status != SubscribersVisible {
		return 0
	}
	return s.Count
}

// ChannelProfile holds the channel statistics used for placement decisions.
type ChannelProfile struct {
	ChannelID       string          `json:"channel_id"`
	Title           string          `json:"title"`
	Subscribers     SubscriberCount `json:"subscribers"`
	TotalViews      int64           `json:"total_views"`
	VideoCount      int64           `json:"video_count"`
	Country         string          `json:"country"`
	DefaultLanguage string          `json:"default_language"`
	Keywords        string          `json:"keywords"`
	TopicCategories []string        `json:"topic_categories"`
	MadeForKids     bool            `json:"made_for_kids"`
	PrivacyStatus   string          `json:"privacy_status"`
	ThumbnailURL    string          `json:"thumbnail_url"`
}

// VideoRecord is one flattened placement row: video fields, derived metrics,
// channel fields and the search context that produced it.
type VideoRecord struct {
	SearchYear     string `json:"search_year"`
	SearchCategory string `json:"search_category"`
	Rank           int    `json:"rank"`

	VideoID         string    `json:"video_id"`
	URL             string    `json:"url"`
	Title           string    `json:"title"`
	ThumbnailURL    string    `json:"thumbnail_url"`
	PublishedAt     time.Time `json:"published_at"`
	PublishedDate   string    `json:"published_date"`
	ViewCount       int64     `json:"view_count"`
	LikeCount       int64     `json:"like_count"`
	CommentCount    int64     `json:"comment_count"`
	DurationSeconds int       `json:"duration_seconds"`
	Duration        string    `json:"duration"`
	CategoryID      string    `json:"category_id"`
	CategoryName    string    `json:"category_name"`
	Tags            []string  `json:"tags"`
	SpokenLanguage  string    `json:"spoken_language"`
	TextLanguage    string    `json:"text_language"`

	AvgViewsPerDay     float64 `json:"avg_views_per_day"`
	LikeToViewRatio    float64 `json:"like_to_view_ratio"`
	CommentToViewRatio float64 `json:"comment_to_view_ratio"`
	EngagementRate     float64 `json:"engagement_rate"`

	ChannelID          string          `json:"channel_id"`
	ChannelTitle       string          `json:"channel_title"`
	ChannelKnown       bool            `json:"channel_known"`
	ChannelSubscribers SubscriberCount `json:"channel_subscribers"`
	ChannelVideoCount  int64           `json:"channel_video_count"`
	ChannelTotalViews  int64           `json:"channel_total_views"`
	ChannelCountry     string          `json:"channel_country"`
	MadeForKids        bool            `json:"made_for_kids"`
}

// ChannelShare is one channel's Share of Voice within a result set.
type ChannelShare struct {
	ChannelID    string  `json:"channel_id"`
	ChannelTitle string  `json:"channel_title"`
	Videos       int     `json:"videos"`
	Views        int64   `json:"views"`
	Share        float64 `json:"share"` // percent of the result set's views
}

// LedgerEntry is one row of the quota usage log.
type LedgerEntry struct {
	ID          int64     `json:"-" db:"id"`
	Timestamp   time.Time `json:"timestamp" db:"logged_at"`
	ActorID     string    `json:"actor_id" db:"actor_id"`
	Event       string    `json:"event" db:"event"`
	Query       string    `json:"query" db:"query"`
	Region      string    `json:"region" db:"region"`
	ResultCount int       `json:"result_count" db:"result_count"`
	Extra       string    `json:"extra" db:"extra"`
	Units       int       `json:"units" db:"units"`
}

// ReportPlan is the multi-year, multi-category batch export: every year is
// crossed with every category and each pair is searched separately.
type ReportPlan struct {
	Query        string    `json:"query" toml:"query" binding:"required"`
	Years        []int     `json:"years,omitempty" toml:"years"`
	CategoryIDs  []string  `json:"category_ids,omitempty" toml:"category_ids"`
	TargetCount  int       `json:"target_count" toml:"target_count" binding:"required"`
	MinViews     int64     `json:"min_views,omitempty" toml:"min_views"`
	RegionCode   string    `json:"region_code,omitempty" toml:"region_code"`
	SortOrder    SortOrder `json:"sort_order,omitempty" toml:"sort_order"`
	ExcludeTerms []string  `json:"exclude_terms,omitempty" toml:"exclude_terms"`
	Filename     string    `json:"filename,omitempty" toml:"filename"`
}

// JobStatus represents the processing state of a queued report.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// ReportJob tracks a report plan executed by the worker pool.
type ReportJob struct {
	ID           string     `json:"id"`
	ActorID      string     `json:"actor_id"`
	Status       JobStatus  `json:"status"`
	Plan         ReportPlan `json:"plan"`
	RowCount     int        `json:"row_count"`
	Batches      int        `json:"batches"`
	QuotaCost    int        `json:"quota_cost"`
	Warnings     []string   `json:"warnings,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	FilePath     string     `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// --- Request/Response DTOs ---

// SearchRequest is the JSON body for POST /api/v1/searches.
type SearchRequest struct {
	SearchFilter
	ExactPhrase bool `json:"exact_phrase,omitempty"`
}

// SearchResponse is returned by the search endpoints.
type SearchResponse struct {
	Fingerprint  string         `json:"fingerprint"`
	Filter       SearchFilter   `json:"filter"`
	Records      []VideoRecord  `json:"records"`
	TotalRecords int            `json:"total_records"`
	Channels     []ChannelShare `json:"channels"`
	Pages        int            `json:"pages"`
	StopReason   string         `json:"stop_reason"`
	QuotaCost    int            `json:"quota_cost"`
	Warnings     []string       `json:"warnings,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// AnalyzeRequest is the JSON body for POST /api/v1/analyses.
type AnalyzeRequest struct {
	Items      []string `json:"items" binding:"required,min=1"`
	RegionCode string   `json:"region_code,omitempty"`
}

// AnalyzeResponse is returned by the bulk analyzer endpoint.
type AnalyzeResponse struct {
	Records   []VideoRecord `json:"records"`
	Missing   []string      `json:"missing,omitempty"`
	Unparsed  int           `json:"unparsed"`
	QuotaCost int           `json:"quota_cost"`
	Warnings  []string      `json:"warnings,omitempty"`
}

// SessionResponse is returned by POST /api/v1/sessions.
type SessionResponse struct {
	ActorID   string    `json:"actor_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// QuotaResponse reports today's estimated usage against the daily budget.
type QuotaResponse struct {
	Fraction   float64 `json:"fraction"`
	UnitsUsed  int     `json:"units_used"`
	DailyLimit int     `json:"daily_limit"`
	Remaining  int     `json:"remaining"`
}

// ErrorResponse is a standard error format for all API errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// HealthResponse is returned by the health check endpoint.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Ledger  string `json:"ledger"`
	Cache   string `json:"cache"`
	Workers int    `json:"workers"`
}
