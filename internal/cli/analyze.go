package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Shimizu-Technology/placement-finder-api/internal/models"
	"github.com/Shimizu-Technology/placement-finder-api/internal/services/bulk"
	"github.com/Shimizu-Technology/placement-finder-api/internal/services/record"
)

func newAnalyzeCommand(app *App) *cobra.Command {
	var file, column, region, out string
	cmd := &cobra.Command{
		Use:   "analyze [url-or-id...]",
		Short: "Flatten a list of video URLs or ids",
		Long: `Flatten a list of video URLs or ids into placement rows.

The list comes from the arguments or from one column of a CSV file:
  placements analyze https://youtu.be/dQw4w9WgXcQ
  placements analyze --file links.csv --column URL --out report.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			tokens := args
			if file != "" {
				f, err := os.Open(file)
				if err != nil {
					return err
				}
				defer f.Close()
				col, err := bulk.ReadColumn(f, column)
				if err != nil {
					return err
				}
				tokens = append(tokens, col...)
			}
			if len(tokens) == 0 {
				return fmt.Errorf("pass video URLs or ids, or --file")
			}

			api, err := app.api(cmd.Context())
			if err != nil {
				return err
			}
			resp, err := app.finder.Analyze(cmd.Context(), api, app.actor, region, tokens)
			if err != nil {
				return err
			}
			return writeAnalysis(cmd, resp, out)
		},
	}

	f := cmd.Flags()
	f.StringVar(&file, "file", "", "CSV file with a header row")
	f.StringVar(&column, "column", "", "Column holding the links (default first column)")
	f.StringVarP(&region, "region", "r", models.DefaultRegion, "Region code for category names")
	f.StringVar(&out, "out", "", "Output file (default stdout)")
	return cmd
}

func writeAnalysis(cmd *cobra.Command, resp *models.AnalyzeResponse, out string) error {
	for _, w := range resp.Warnings {
		warn(cmd, "⚠️  %s", w)
	}
	if len(resp.Missing) > 0 {
		warn(cmd, "⚠️  %d ids not found: %v", len(resp.Missing), resp.Missing)
	}

	w, closeOut, err := output(cmd, out)
	if err != nil {
		return err
	}
	err = record.WriteCSV(w, resp.Records)
	if cerr := closeOut(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}
	warn(cmd, "✅ %d videos analyzed (%d unparsed), about %d quota units", len(resp.Records), resp.Unparsed, resp.QuotaCost)
	return nil
}
