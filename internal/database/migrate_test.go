package database

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	names, err := fs.Glob(migrationFiles, "migrations/*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, names)

	ups, downs := map[string]bool{}, map[string]bool{}
	for _, n := range names {
		switch {
		case strings.HasSuffix(n, ".up.sql"):
			ups[strings.TrimSuffix(n, ".up.sql")] = true
		case strings.HasSuffix(n, ".down.sql"):
			downs[strings.TrimSuffix(n, ".down.sql")] = true
		default:
			t.Errorf("migration %s is neither up nor down", n)
		}
	}
	assert.Equal(t, ups, downs, "every up migration needs a down")
}

func TestUsageLogColumnsMatchLedgerTags(t *testing.T) {
	up, err := migrationFiles.ReadFile("migrations/000001_create_usage_log.up.sql")
	require.NoError(t, err)

	for _, col := range []string{"logged_at", "actor_id", "event", "query", "region", "result_count", "extra", "units"} {
		assert.Contains(t, string(up), col)
	}
}
