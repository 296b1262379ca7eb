// Package placement wires the pipeline together: resolve categories, page
// through search, enrich channels, flatten rows and log every stage's cost.
//
// Go Pattern: The Finder owns no remote client. Each call receives a
// ytapi.API, so the HTTP layer can build one per request from the caller's
// own key while the caches and the ledger stay shared.
package placement

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Shimizu-Technology/placement-finder-api/internal/cache"
	"github.com/Shimizu-Technology/placement-finder-api/internal/models"
	"github.com/Shimizu-Technology/placement-finder-api/internal/services/bulk"
	"github.com/Shimizu-Technology/placement-finder-api/internal/services/category"
	"github.com/Shimizu-Technology/placement-finder-api/internal/services/enrich"
	"github.com/Shimizu-Technology/placement-finder-api/internal/services/quota"
	"github.com/Shimizu-Technology/placement-finder-api/internal/services/record"
	"github.com/Shimizu-Technology/placement-finder-api/internal/services/search"
	"github.com/Shimizu-Technology/placement-finder-api/internal/services/ytapi"
)

// AllTime labels rows from a search without a publish year.
const AllTime = "All Time"

// DefaultResultTTL is how long a finished search can be re-read or exported.
const DefaultResultTTL = time.Hour

// Options tunes a Finder. When Usage is set, a run is refused once today's
// logged units reach DailyLimit.
type Options struct {
	ChannelTTL time.Duration
	ResultTTL  time.Duration
	Usage      quota.Reader
	DailyLimit int
}

// Finder runs searches, list analyses and report plans.
type Finder struct {
	store      cache.Store
	meter      quota.Recorder
	categories *category.Resolver
	enricher   *enrich.Enricher
	analyzer   *bulk.Analyzer
	resultTTL  time.Duration
	usage      quota.Reader
	dailyLimit int
	now        func() time.Time
}

// NewFinder creates a Finder. The same store backs the category, channel
// and result caches under separate key namespaces.
func NewFinder(store cache.Store, meter quota.Recorder, opts Options) *Finder {
	if opts.ResultTTL <= 0 {
		opts.ResultTTL = DefaultResultTTL
	}
	enricher := enrich.New(store, opts.ChannelTTL)
	return &Finder{
		store:      store,
		meter:      meter,
		categories: category.NewResolver(store),
		enricher:   enricher,
		analyzer:   bulk.NewAnalyzer(enricher),
		resultTTL:  opts.ResultTTL,
		usage:      opts.Usage,
		dailyLimit: opts.DailyLimit,
		now:        time.Now,
	}
}

// SetClock overrides the time source for view velocity and timestamps.
func (f *Finder) SetClock(now func() time.Time) {
	f.now = now
	f.analyzer.SetClock(now)
}

// Categories returns the region's category map, logging the lookup if it
// cost anything.
func (f *Finder) Categories(ctx context.Context, api ytapi.API, actorID, region string) map[string]string {
	names, _ := f.resolveCategories(ctx, api, actorID, region)
	return names
}

func (f *Finder) resolveCategories(ctx context.Context, api ytapi.API, actorID, region string) (map[string]string, int) {
	names, cost := f.categories.Resolve(ctx, api, region)
	if cost > 0 {
		f.meter.Record(ctx, actorID, quota.EventCategoryLookup, cost, quota.Metadata{Region: region, ResultCount: len(names)})
	}
	return names, cost
}

// checkBudget refuses new remote work once the ledger shows the day's
// budget spent.
func (f *Finder) checkBudget(ctx context.Context) error {
	return quota.CheckBudget(ctx, f.usage, f.dailyLimit)
}

// QuotePhrase wraps a query in double quotes for an exact-phrase search.
func QuotePhrase(query string) string {
	q := strings.Trim(strings.TrimSpace(query), `"`)
	if q == "" {
		return ""
	}
	return `"` + q + `"`
}

// Find runs one search end to end and caches the response under the
// filter's fingerprint for actorID. A new search replaces the actor's
// previous cached result.
//
// Validation errors are returned as is. A search that fails before
// producing anything returns the *search.RemoteError; a partial failure
// returns the response with the failure listed in Warnings. A spent daily
// budget returns quota.ErrBudgetExhausted before any call is made.
func (f *Finder) Find(ctx context.Context, api ytapi.API, actorID string, filter models.SearchFilter) (*models.SearchResponse, error) {
	filter = filter.Normalize()
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	if err := f.checkBudget(ctx); err != nil {
		return nil, err
	}

	categories, categoryCost := f.resolveCategories(ctx, api, actorID, filter.RegionCode)
	b, err := f.runBatch(ctx, api, actorID, filter, categories)
	if err != nil {
		return nil, err
	}

	resp := &models.SearchResponse{
		Fingerprint:  filter.Fingerprint(),
		Filter:       filter,
		Records:      b.records,
		TotalRecords: len(b.records),
		Channels:     record.ShareOfVoice(b.records),
		Pages:        b.pages,
		StopReason:   string(b.stop),
		QuotaCost:    categoryCost + b.cost,
		Warnings:     b.warnings,
		CreatedAt:    f.now(),
	}
	f.remember(ctx, actorID, resp)
	return resp, nil
}

// Cached returns a stored search response for actorID.
func (f *Finder) Cached(ctx context.Context, actorID, fingerprint string) (*models.SearchResponse, bool) {
	var resp models.SearchResponse
	if !f.store.Get(ctx, resultKey(actorID, fingerprint), &resp) {
		return nil, false
	}
	return &resp, true
}

func (f *Finder) remember(ctx context.Context, actorID string, resp *models.SearchResponse) {
	latest := latestKey(actorID)
	var previous string
	if f.store.Get(ctx, latest, &previous) && previous != resp.Fingerprint {
		f.store.Delete(ctx, resultKey(actorID, previous))
	}
	f.store.Set(ctx, resultKey(actorID, resp.Fingerprint), resp, f.resultTTL)
	f.store.Set(ctx, latest, resp.Fingerprint, f.resultTTL)
}

func resultKey(actorID, fingerprint string) string {
	return cache.Key("result", actorID, fingerprint)
}

func latestKey(actorID string) string {
	return cache.Key("latest", actorID)
}

// RecordExport logs a download of an already computed result. Exports cost
// no quota; the row only tracks usage.
func (f *Finder) RecordExport(ctx context.Context, actorID, query, region string, rows int, format string) {
	f.meter.Record(ctx, actorID, quota.EventExport, 0, quota.Metadata{Query: query, Region: region, ResultCount: rows, Extra: "format=" + format})
}

// Analyze extracts ids from raw tokens and runs the list analysis.
func (f *Finder) Analyze(ctx context.Context, api ytapi.API, actorID, region string, tokens []string) (*models.AnalyzeResponse, error) {
	if region = strings.ToUpper(strings.TrimSpace(region)); region == "" {
		region = models.DefaultRegion
	}
	ids, unparsed := bulk.ExtractIDs(tokens)
	if len(ids) == 0 {
		return nil, bulk.ErrNoIdentifiers
	}
	if err := f.checkBudget(ctx); err != nil {
		return nil, err
	}

	categories, categoryCost := f.resolveCategories(ctx, api, actorID, region)
	res, err := f.analyzer.Analyze(ctx, api, region, ids, categories)

	f.meter.Record(ctx, actorID, quota.EventBulkAnalysis, res.DetailCalls*quota.CostVideosList, quota.Metadata{
		Region:      region,
		ResultCount: len(res.Records),
		Extra:       fmt.Sprintf("ids=%d unparsed=%d missing=%d", len(ids), unparsed, len(res.Missing)),
	})
	if res.ChannelCalls > 0 {
		f.meter.Record(ctx, actorID, quota.EventChannelLookup, res.ChannelCalls, quota.Metadata{Region: region, ResultCount: len(res.Records)})
	}
	if err != nil {
		return nil, err
	}

	return &models.AnalyzeResponse{
		Records:   res.Records,
		Missing:   res.Missing,
		Unparsed:  unparsed,
		QuotaCost: categoryCost + res.QuotaCost,
		Warnings:  res.Warnings,
	}, nil
}

// batch is the flattened outcome of one paginator run.
type batch struct {
	records  []models.VideoRecord
	pages    int
	stop     search.StopReason
	cost     int
	warnings []string
}

// runBatch runs search, channel enrichment and flattening for one filter,
// recording a ledger row per stage. On a total failure the returned batch
// holds no records, only the units spent.
func (f *Finder) runBatch(ctx context.Context, api ytapi.API, actorID string, filter models.SearchFilter, categories map[string]string) (*batch, error) {
	res, err := search.Run(ctx, api, filter)
	f.meter.Record(ctx, actorID, quota.EventSearch, res.QuotaCost, quota.Metadata{
		Query:       filter.Query,
		Region:      filter.RegionCode,
		ResultCount: len(res.Videos),
		Extra:       fmt.Sprintf("pages=%d stop=%s", res.PagesFetched, res.Stop),
	})

	b := &batch{pages: res.PagesFetched, stop: res.Stop, cost: res.QuotaCost, records: []models.VideoRecord{}}
	b.warnings = append(b.warnings, res.Warnings...)
	if err != nil {
		var re *search.RemoteError
		if !errors.As(err, &re) || !re.Partial {
			// The batch carries the cost already spent.
			return b, err
		}
		// Details failures are already listed page by page.
		if re.Op == "search.list" {
			b.warnings = append(b.warnings, err.Error())
		}
	}

	profiles, cost := f.enricher.FetchProfiles(ctx, api, filter.RegionCode, res.ChannelIDs())
	b.cost += cost
	if cost > 0 {
		f.meter.Record(ctx, actorID, quota.EventChannelLookup, cost, quota.Metadata{
			Query:       filter.Query,
			Region:      filter.RegionCode,
			ResultCount: len(profiles),
		})
	}

	sc := record.Context{Year: yearLabel(filter.PublishYear), CategoryName: categoryLabel(categories, filter.CategoryIDs)}
	now := f.now()
	for i, v := range res.Videos {
		sc.Rank = i + 1
		b.records = append(b.records, record.Flatten(v, sc, profiles, categories, now))
	}
	return b, nil
}

func yearLabel(year *int) string {
	if year == nil {
		return AllTime
	}
	return strconv.Itoa(*year)
}

func categoryLabel(categories map[string]string, ids []string) string {
	if len(ids) == 0 {
		return category.AllCategories
	}
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = category.Name(categories, id)
	}
	return strings.Join(names, ", ")
}
