package migration

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(embeddedMigrations, migrationsDir)
	require.NoError(t, err)

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		default:
			t.Fatalf("unexpected file %s", name)
		}
	}
	require.NotEmpty(t, ups)
	assert.Equal(t, ups, downs)
}

func TestActiveSubscriptionIndexIsPartial(t *testing.T) {
	body, err := fs.ReadFile(embeddedMigrations, migrationsDir+"/000002_one_active_subscription_per_type.up.sql")
	require.NoError(t, err)
	sql := string(body)
	assert.Contains(t, sql, "(member_id, type)")
	assert.Contains(t, sql, "WHERE status = 'Active'")
}

func TestAutoMigrateCreatesEveryTable(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(conn))

	for _, table := range []string{
		"members", "packages", "discount_types", "subscriptions", "subscription_suspensions",
		"discounts", "payments", "payment_gateway_events", "booking_requests", "schedules",
		"check_ins", "notifications",
	} {
		assert.True(t, conn.Migrator().HasTable(table), table)
	}
}
