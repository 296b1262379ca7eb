package cli

import (
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/Shimizu-Technology/placement-finder-api/internal/models"
	"github.com/Shimizu-Technology/placement-finder-api/internal/services/placement"
	"github.com/Shimizu-Technology/placement-finder-api/internal/services/record"
)

// LoadPlan decodes a TOML report plan. Unknown keys are rejected so a typo
// does not silently widen a report.
func LoadPlan(path string) (models.ReportPlan, error) {
	var plan models.ReportPlan
	md, err := toml.DecodeFile(path, &plan)
	if err != nil {
		return plan, fmt.Errorf("failed to read plan %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return plan, fmt.Errorf("plan %s has unknown keys: %v", path, undecoded)
	}
	return plan, nil
}

func newReportCommand(app *App) *cobra.Command {
	var planPath, out string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Run a multi-year, multi-category report plan",
		Long: `Run every year × category batch of a plan and write one combined CSV.

Example plan (rome.toml):
  query        = "rome travel"
  years        = [2022, 2023, 2024]
  category_ids = ["19", "22"]
  target_count = 10
  min_views    = 10
  filename     = "Youtube_rome_combined_categories_report.csv"`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if planPath == "" {
				return fmt.Errorf("--plan is required")
			}
			plan, err := LoadPlan(planPath)
			if err != nil {
				return err
			}
			if err := placement.ValidatePlan(plan); err != nil {
				return err
			}
			plan = placement.NormalizePlan(plan)

			api, err := app.api(cmd.Context())
			if err != nil {
				return err
			}

			names := app.finder.Categories(cmd.Context(), api, app.actor, plan.RegionCode)
			warn(cmd, "📊 %q: years %v × categories [%s], %d videos per batch",
				plan.Query, plan.Years, strings.Join(placement.PlanCategoryNames(names, plan), ", "), plan.TargetCount)

			if out == "" {
				out = plan.Filename
			}
			if out == "" {
				out = fmt.Sprintf("Youtube_%s_combined_categories_report.csv", strings.ReplaceAll(plan.Query, " ", "_"))
			}
			dest, closeOut, err := output(cmd, out)
			if err != nil {
				return err
			}

			w := csv.NewWriter(dest)
			w.Write(record.Header())
			sum, runErr := app.finder.RunPlan(cmd.Context(), api, app.actor, plan, func(r models.VideoRecord) error {
				return w.Write(record.Row(r))
			})
			w.Flush()
			if err := w.Error(); err != nil && runErr == nil {
				runErr = err
			}
			if err := closeOut(); err != nil && runErr == nil {
				runErr = err
			}

			if sum != nil {
				for _, msg := range sum.Warnings {
					warn(cmd, "⚠️  %s", msg)
				}
				warn(cmd, "✅ %d rows from %d batches (%d skipped), about %d quota units -> %s",
					sum.Rows, sum.Batches, sum.SkippedBatches, sum.QuotaCost, out)
			}
			return runErr
		},
	}

	cmd.Flags().StringVar(&planPath, "plan", "", "TOML report plan")
	cmd.Flags().StringVar(&out, "out", "", "Output file (default: the plan's filename; - for stdout)")
	return cmd
}
