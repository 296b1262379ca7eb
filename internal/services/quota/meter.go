// Package quota estimates YouTube Data API usage against the daily budget.
//
// Every remote call has a fixed cost in quota units. The Meter appends one
// ledger row per pipeline stage and answers "how much of today's budget is
// gone?" by scanning the ledger. The ledger is advisory: the API enforces
// the real limit, we only estimate it for display and gating.
package quota

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/Shimizu-Technology/placement-finder-api/internal/models"
)

// Published Data API costs, in quota units.
const (
	CostSearchList     = 100 // per search.list page
	CostVideosList     = 1   // per videos.list batch
	CostChannelsList   = 1   // per channels.list batch
	CostCategoriesList = 1   // per videoCategories.list call

	DefaultDailyLimit = 10000
)

// EventKind labels a ledger row.
type EventKind string

const (
	EventSearch         EventKind = "search"
	EventChannelLookup  EventKind = "channel_lookup"
	EventCategoryLookup EventKind = "category_lookup"
	EventBulkAnalysis   EventKind = "bulk_analysis"
	EventExport         EventKind = "export"
	EventReport         EventKind = "report"
)

// Metadata is the descriptive part of a ledger row.
type Metadata struct {
	Query       string
	Region      string
	ResultCount int
	Extra       string
}

// Store persists ledger rows. The CSV FileStore and the postgres
// database.UsageStore both satisfy it.
type Store interface {
	Append(ctx context.Context, e models.LedgerEntry) error
	// Entries returns rows logged at or after since; a zero since returns all.
	Entries(ctx context.Context, since time.Time) ([]models.LedgerEntry, error)
}

// Recorder is the write side of the Meter, which is all the pipeline needs.
type Recorder interface {
	Record(ctx context.Context, actorID string, kind EventKind, units int, meta Metadata)
}

// Reader is the read side of the Meter: today's share of the budget.
type Reader interface {
	DailyUsageFraction(ctx context.Context, dailyLimit int) (float64, int)
}

// ErrBudgetExhausted means today's logged usage already reached the daily
// limit, so no further remote calls are started.
var ErrBudgetExhausted = errors.New("daily quota budget exhausted")

// CheckBudget returns ErrBudgetExhausted once today's total is at or over
// dailyLimit. A nil reader never gates.
func CheckBudget(ctx context.Context, r Reader, dailyLimit int) error {
	if r == nil {
		return nil
	}
	if dailyLimit <= 0 {
		dailyLimit = DefaultDailyLimit
	}
	if _, used := r.DailyUsageFraction(ctx, dailyLimit); used >= dailyLimit {
		return fmt.Errorf("%w: %d of %d units used today", ErrBudgetExhausted, used, dailyLimit)
	}
	return nil
}

// Meter records quota usage and reports the daily total.
type Meter struct {
	store Store
	now   func() time.Time
	units metric.Int64Counter
}

// NewMeter wraps a ledger store.
func NewMeter(store Store) *Meter {
	counter, err := otel.Meter("github.com/Shimizu-Technology/placement-finder-api/quota").
		Int64Counter("placement.quota.units", metric.WithDescription("Estimated YouTube Data API quota units spent"))
	if err != nil {
		log.Printf("⚠️  Quota: metric counter unavailable: %v", err)
	}
	return &Meter{store: store, now: time.Now, units: counter}
}

// SetClock overrides the time source. Tests use it to pin "today".
func (m *Meter) SetClock(now func() time.Time) {
	m.now = now
}

// Record appends one ledger row. It never fails: a persistence error is
// logged and dropped so usage tracking cannot interrupt a search.
func (m *Meter) Record(ctx context.Context, actorID string, kind EventKind, units int, meta Metadata) {
	if m.units != nil && units > 0 {
		m.units.Add(ctx, int64(units), metric.WithAttributes(attribute.String("event", string(kind))))
	}

	e := models.LedgerEntry{
		Timestamp:   m.now(),
		ActorID:     orDash(actorID),
		Event:       string(kind),
		Query:       orDash(meta.Query),
		Region:      orDash(meta.Region),
		ResultCount: meta.ResultCount,
		Extra:       orDash(meta.Extra),
		Units:       units,
	}
	if err := m.store.Append(ctx, e); err != nil {
		log.Printf("⚠️  Quota: could not log usage (%s, %d units): %v", kind, units, err)
	}
}

// DailyUsageFraction sums today's units (local server time) and returns the
// share of dailyLimit used, clamped to 1, plus the raw total. An unreadable
// ledger reports (0, 0). A non-positive limit falls back to DefaultDailyLimit.
func (m *Meter) DailyUsageFraction(ctx context.Context, dailyLimit int) (float64, int) {
	if dailyLimit <= 0 {
		dailyLimit = DefaultDailyLimit
	}

	now := m.now().In(time.Local)
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)

	entries, err := m.store.Entries(ctx, midnight)
	if err != nil {
		log.Printf("⚠️  Quota: could not read usage log: %v", err)
		return 0, 0
	}

	used := 0
	for _, e := range entries {
		if !sameDay(e.Timestamp.In(time.Local), now) || e.Units < 0 {
			continue
		}
		used += e.Units
	}

	fraction := float64(used) / float64(dailyLimit)
	if fraction > 1 {
		fraction = 1
	}
	return fraction, used
}

// Entries is the admin read-back of the whole ledger.
func (m *Meter) Entries(ctx context.Context) ([]models.LedgerEntry, error) {
	return m.store.Entries(ctx, time.Time{})
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
