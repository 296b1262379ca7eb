// usage.go stores the quota ledger in the usage_log table.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Shimizu-Technology/placement-finder-api/internal/models"
	"github.com/Shimizu-Technology/placement-finder-api/internal/services/quota"
)

// UsageStore is the postgres ledger backend. It satisfies quota.Store.
type UsageStore struct {
	db *sqlx.DB
}

// NewUsageStore wraps an open connection.
func NewUsageStore(db *DB) *UsageStore {
	return &UsageStore{db: db.DB}
}

// Append inserts one ledger row.
func (s *UsageStore) Append(ctx context.Context, e models.LedgerEntry) error {
	query := `
		INSERT INTO usage_log (logged_at, actor_id, event, query, region, result_count, extra, units)
		VALUES (:logged_at, :actor_id, :event, :query, :region, :result_count, :extra, :units)`

	// NamedExecContext binds :name placeholders from the struct's db tags.
	if _, err := s.db.NamedExecContext(ctx, query, e); err != nil {
		return fmt.Errorf("failed to insert usage row: %w", err)
	}
	return nil
}

// Entries returns rows logged at or after since, oldest first. A zero since
// returns the whole ledger.
func (s *UsageStore) Entries(ctx context.Context, since time.Time) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	var err error
	if since.IsZero() {
		err = s.db.SelectContext(ctx, &entries,
			`SELECT * FROM usage_log ORDER BY logged_at, id`)
	} else {
		err = s.db.SelectContext(ctx, &entries,
			`SELECT * FROM usage_log WHERE logged_at >= $1 ORDER BY logged_at, id`, since)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read usage log: %w", err)
	}
	return entries, nil
}

var _ quota.Store = (*UsageStore)(nil)
