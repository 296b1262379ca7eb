package cli

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Shimizu-Technology/placement-finder-api/internal/models"
	"github.com/Shimizu-Technology/placement-finder-api/internal/services/category"
	"github.com/Shimizu-Technology/placement-finder-api/internal/services/placement"
	"github.com/Shimizu-Technology/placement-finder-api/internal/services/record"
)

type searchOptions struct {
	filter     models.SearchFilter
	year       int
	categories []string
	excluded   []string
	order      string
	duration   string
	videoType  string
	exact      bool
	out        string
	format     string
}

func newSearchCommand(app *App) *cobra.Command {
	opts := &searchOptions{}
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Run one placement search",
		Long: `Run one placement search and write the rows as CSV (or JSON).

Categories may be given as ids or display names:
  placements search "rome" --category 19 --category "Music"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.runSearch(cmd, args[0], opts)
		},
	}

	f := cmd.Flags()
	f.IntVarP(&opts.filter.TargetCount, "target", "n", 50, "Number of videos to collect")
	f.IntVar(&opts.year, "year", 0, "Only videos published in this year")
	f.StringArrayVarP(&opts.categories, "category", "c", nil, "Category id or name to include (repeatable)")
	f.StringArrayVar(&opts.excluded, "exclude-category", nil, "Category id or name to drop (repeatable)")
	f.StringArrayVarP(&opts.filter.ExcludeTerms, "exclude", "x", nil, "Drop videos whose title or description contains this term")
	f.StringVarP(&opts.filter.RegionCode, "region", "r", models.DefaultRegion, "Region code")
	f.StringVarP(&opts.order, "order", "o", string(models.OrderRelevance), "Order (relevance, viewCount, date, rating, title)")
	f.StringVar(&opts.filter.RelevanceLanguage, "language", "", "Relevance language (ISO 639-1)")
	f.StringVarP(&opts.duration, "duration", "d", string(models.DurationAny), "Duration bucket (any, short, medium, long)")
	f.StringVarP(&opts.videoType, "type", "t", string(models.VideoTypeAny), "Video type (any, movie, episode)")
	f.Int64Var(&opts.filter.MinViews, "min-views", 0, "Minimum view count")
	f.BoolVar(&opts.exact, "exact", false, "Search the query as an exact phrase")
	f.StringVar(&opts.out, "out", "", "Output file (default stdout)")
	f.StringVar(&opts.format, "format", "csv", "Output format (csv, json)")
	return cmd
}

func (a *App) runSearch(cmd *cobra.Command, query string, opts *searchOptions) error {
	if opts.format != "csv" && opts.format != "json" {
		return fmt.Errorf("unsupported format %q", opts.format)
	}
	ctx := cmd.Context()
	api, err := a.api(ctx)
	if err != nil {
		return err
	}

	filter := opts.filter
	filter.Query = query
	if opts.exact {
		filter.Query = placement.QuotePhrase(query)
	}
	filter.SortOrder = models.SortOrder(opts.order)
	filter.DurationBucket = models.DurationBucket(opts.duration)
	filter.VideoType = models.VideoType(opts.videoType)
	if opts.year != 0 {
		year := opts.year
		filter.PublishYear = &year
	}

	if len(opts.categories) > 0 || len(opts.excluded) > 0 {
		names := a.finder.Categories(ctx, api, a.actor, filter.RegionCode)
		if filter.CategoryIDs, err = categoryIDs(names, opts.categories); err != nil {
			return err
		}
		if filter.ExcludeCategoryIDs, err = categoryIDs(names, opts.excluded); err != nil {
			return err
		}
	}

	resp, err := a.finder.Find(ctx, api, a.actor, filter)
	if err != nil {
		return err
	}
	for _, w := range resp.Warnings {
		warn(cmd, "⚠️  %s", w)
	}

	w, closeOut, err := output(cmd, opts.out)
	if err != nil {
		return err
	}
	if opts.format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		err = enc.Encode(resp)
	} else {
		err = record.WriteCSV(w, resp.Records)
	}
	if cerr := closeOut(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}

	a.finder.RecordExport(ctx, a.actor, resp.Filter.Query, resp.Filter.RegionCode, len(resp.Records), opts.format)
	warn(cmd, "✅ %d videos from %d pages (%s), about %d quota units", resp.TotalRecords, resp.Pages, resp.StopReason, resp.QuotaCost)
	return nil
}

// categoryIDs accepts numeric ids as is and translates anything else as a
// display name.
func categoryIDs(names map[string]string, values []string) ([]string, error) {
	var ids, byName []string
	for _, v := range values {
		if _, err := strconv.Atoi(v); err == nil {
			ids = append(ids, v)
		} else {
			byName = append(byName, v)
		}
	}
	translated, unknown := category.IDsForNames(names, byName)
	if len(unknown) > 0 {
		return nil, fmt.Errorf("unknown categories: %v", unknown)
	}
	return append(ids, translated...), nil
}
