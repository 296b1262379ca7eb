// Package cli implements the placements command-line tool.
//
// The CLI drives the same Finder the HTTP API uses, but synchronously and
// against the CSV usage ledger, which makes it the tool for long report
// plans run from a laptop or a cron job.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/user"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Shimizu-Technology/placement-finder-api/internal/cache"
	"github.com/Shimizu-Technology/placement-finder-api/internal/services/placement"
	"github.com/Shimizu-Technology/placement-finder-api/internal/services/quota"
	"github.com/Shimizu-Technology/placement-finder-api/internal/services/ytapi"
)

// App carries what the commands share. Tests swap NewAPI for a fake.
type App struct {
	NewAPI ytapi.Factory
	Now    func() time.Time

	actor      string
	apiKey     string
	usageLog   string
	redisURL   string
	dailyLimit int

	meter  *quota.Meter
	finder *placement.Finder
}

// NewApp returns an App talking to the real Data API.
func NewApp(requestsPerSecond int) *App {
	return &App{NewAPI: ytapi.NewFactory(requestsPerSecond), Now: time.Now}
}

// NewRootCommand builds the command tree.
func NewRootCommand(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "placements",
		Short: "Find YouTube videos worth buying placements on",
		Long: `placements searches YouTube through the Data API, enriches every video
with its channel's statistics and writes flat CSV placement sheets.

Examples:
  placements search "rome travel" --target 100 --year 2024 --order viewCount
  placements analyze --file links.csv --column URL
  placements report --plan rome.toml
  placements usage`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return app.init()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&app.actor, "actor", defaultActor(), "Actor id written to the usage log")
	flags.StringVar(&app.apiKey, "api-key", os.Getenv("YOUTUBE_API_KEY"), "YouTube Data API key (default $YOUTUBE_API_KEY)")
	flags.StringVar(&app.usageLog, "usage-log", envOr("USAGE_LOG_PATH", "usage_log.csv"), "Usage ledger CSV file")
	flags.StringVar(&app.redisURL, "redis-url", os.Getenv("REDIS_URL"), "Optional redis cache shared with the server")
	flags.IntVar(&app.dailyLimit, "daily-limit", quota.DefaultDailyLimit, "Daily quota budget in units")

	root.AddCommand(newSearchCommand(app), newAnalyzeCommand(app), newReportCommand(app), newUsageCommand(app))
	return root
}

// Execute runs the CLI and returns the process exit code.
func Execute(app *App) int {
	if err := NewRootCommand(app).Execute(); err != nil {
		return 1
	}
	return 0
}

func (a *App) init() error {
	if a.Now == nil {
		a.Now = time.Now
	}
	a.meter = quota.NewMeter(quota.NewFileStore(a.usageLog))
	a.meter.SetClock(a.Now)
	a.finder = placement.NewFinder(cache.New(cache.Options{RedisURL: a.redisURL}), a.meter, placement.Options{
		Usage:      a.meter,
		DailyLimit: a.dailyLimit,
	})
	a.finder.SetClock(a.Now)
	return nil
}

func (a *App) api(ctx context.Context) (ytapi.API, error) {
	if a.apiKey == "" {
		return nil, fmt.Errorf("%w: pass --api-key or set YOUTUBE_API_KEY", ytapi.ErrMissingAPIKey)
	}
	return a.NewAPI(ctx, a.apiKey)
}

// output opens path for writing, or returns stdout for "" and "-".
func output(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create %s: %w", path, err)
	}
	return f, f.Close, nil
}

// warn prints to stderr so stdout stays a clean CSV stream.
func warn(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.ErrOrStderr(), format+"\n", args...)
}

func defaultActor() string {
	if u, err := user.Current(); err == nil && strings.TrimSpace(u.Username) != "" {
		return u.Username
	}
	return "cli"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
