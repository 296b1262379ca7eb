package placement

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/Shimizu-Technology/placement-finder-api/internal/models"
	"github.com/Shimizu-Technology/placement-finder-api/internal/services/category"
	"github.com/Shimizu-Technology/placement-finder-api/internal/services/quota"
	"github.com/Shimizu-Technology/placement-finder-api/internal/services/search"
	"github.com/Shimizu-Technology/placement-finder-api/internal/services/ytapi"
)

// ErrEmptyPlan is returned for a plan without a query.
var ErrEmptyPlan = errors.New("report plan needs a query")

// PlanSummary describes a finished (or aborted) report plan.
type PlanSummary struct {
	Rows           int
	Batches        int
	SkippedBatches int
	QuotaCost      int
	Warnings       []string
}

// NormalizePlan fills plan defaults: viewCount order and the default region.
func NormalizePlan(p models.ReportPlan) models.ReportPlan {
	p.Query = strings.TrimSpace(p.Query)
	if p.SortOrder == "" {
		p.SortOrder = models.OrderViewCount
	}
	if p.RegionCode == "" {
		p.RegionCode = models.DefaultRegion
	}
	p.RegionCode = strings.ToUpper(p.RegionCode)
	return p
}

// ValidatePlan checks a plan by validating the filter of its first batch.
func ValidatePlan(p models.ReportPlan) error {
	p = NormalizePlan(p)
	if p.Query == "" {
		return ErrEmptyPlan
	}
	filters := planFilters(p)
	for _, f := range filters {
		if err := f.Normalize().Validate(); err != nil {
			return err
		}
	}
	return nil
}

// planFilters crosses years (outer) with categories (inner). An empty year
// list means one pass without a date window; an empty category list means
// one pass over all categories.
func planFilters(p models.ReportPlan) []models.SearchFilter {
	years := make([]*int, 0, len(p.Years))
	for _, y := range p.Years {
		years = append(years, &y)
	}
	if len(years) == 0 {
		years = []*int{nil}
	}
	categories := p.CategoryIDs
	if len(categories) == 0 {
		categories = []string{""}
	}

	filters := make([]models.SearchFilter, 0, len(years)*len(categories))
	for _, y := range years {
		for _, c := range categories {
			f := models.SearchFilter{
				Query:        p.Query,
				ExcludeTerms: p.ExcludeTerms,
				PublishYear:  y,
				RegionCode:   p.RegionCode,
				SortOrder:    p.SortOrder,
				TargetCount:  p.TargetCount,
				MinViews:     p.MinViews,
			}
			if c = strings.TrimSpace(c); c != "" {
				f.CategoryIDs = []string{c}
			}
			filters = append(filters, f)
		}
	}
	return filters
}

// RunPlan runs every year × category batch in order and hands each row to
// emit. Batches with no results are skipped, and so are batches whose search
// fails outright; the failure is listed in Warnings. Only cancellation, a
// spent daily budget or an emit error stop the plan, and the summary still
// covers what was emitted.
func (f *Finder) RunPlan(ctx context.Context, api ytapi.API, actorID string, plan models.ReportPlan, emit func(models.VideoRecord) error) (*PlanSummary, error) {
	plan = NormalizePlan(plan)
	if err := ValidatePlan(plan); err != nil {
		return nil, err
	}
	if err := f.checkBudget(ctx); err != nil {
		return nil, err
	}

	categories, categoryCost := f.resolveCategories(ctx, api, actorID, plan.RegionCode)
	filters := planFilters(plan)
	sum := &PlanSummary{QuotaCost: categoryCost}

	defer func() {
		f.meter.Record(ctx, actorID, quota.EventReport, 0, quota.Metadata{
			Query:       plan.Query,
			Region:      plan.RegionCode,
			ResultCount: sum.Rows,
			Extra:       fmt.Sprintf("batches=%d skipped=%d units=%d", sum.Batches, sum.SkippedBatches, sum.QuotaCost),
		})
	}()

	for i, filter := range filters {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		if i > 0 {
			if err := f.checkBudget(ctx); err != nil {
				return sum, err
			}
		}
		filter = filter.Normalize()
		label := fmt.Sprintf("%s/%s", yearLabel(filter.PublishYear), categoryLabel(categories, filter.CategoryIDs))
		log.Printf("📊 Report: batch %d/%d (%s)", i+1, len(filters), label)

		b, err := f.runBatch(ctx, api, actorID, filter, categories)
		sum.Batches++
		if err != nil {
			var re *search.RemoteError
			if ctx.Err() != nil || !errors.As(err, &re) {
				return sum, fmt.Errorf("batch %s: %w", label, err)
			}
			if b != nil {
				sum.QuotaCost += b.cost
			}
			sum.SkippedBatches++
			sum.Warnings = append(sum.Warnings, label+": "+err.Error())
			log.Printf("⚠️  Report: batch %s failed, skipping: %v", label, err)
			continue
		}
		sum.QuotaCost += b.cost
		for _, w := range b.warnings {
			sum.Warnings = append(sum.Warnings, label+": "+w)
		}
		if len(b.records) == 0 {
			sum.SkippedBatches++
			log.Printf("📊 Report: no results for %s, skipping", label)
			continue
		}

		for _, r := range b.records {
			if err := emit(r); err != nil {
				return sum, fmt.Errorf("failed to write report row: %w", err)
			}
			sum.Rows++
		}
	}

	log.Printf("✅ Report: %d rows from %d batches (%d units)", sum.Rows, sum.Batches, sum.QuotaCost)
	return sum, nil
}

// PlanCategoryNames lists the labels the plan's batches will carry. The CLI
// prints it before a run.
func PlanCategoryNames(categories map[string]string, plan models.ReportPlan) []string {
	if len(plan.CategoryIDs) == 0 {
		return []string{category.AllCategories}
	}
	names := make([]string, len(plan.CategoryIDs))
	for i, id := range plan.CategoryIDs {
		names[i] = category.Name(categories, id)
	}
	return names
}
