package db

import (
	"testing"

	"github.com/smallbiznis/gymcore/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSN(t *testing.T) {
	base := config.Config{
		DBHost:     "db.internal",
		DBPort:     "5432",
		DBName:     "gymcore",
		DBUser:     "gym",
		DBPassword: "s3cret",
	}

	pg := base
	pg.DBType = "PostgreSQL"
	dsn, err := DSN(pg)
	require.NoError(t, err)
	assert.Equal(t, "host=db.internal port=5432 user=gym password=s3cret dbname=gymcore sslmode=disable TimeZone=UTC", dsn)

	my := base
	my.DBType = "mysql"
	my.DBPort = "3306"
	dsn, err = DSN(my)
	require.NoError(t, err)
	assert.Contains(t, dsn, "gym:s3cret@tcp(db.internal:3306)/gymcore?")
	assert.Contains(t, dsn, "parseTime=true")
	assert.Contains(t, dsn, "charset=utf8mb4")

	dsn, err = DSN(config.Config{DBType: "sqlite"})
	require.NoError(t, err)
	assert.Equal(t, "gymcore.db?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", dsn)

	_, err = DSN(config.Config{DBType: "oracle"})
	assert.EqualError(t, err, `unsupported database type "oracle"`)
}

func TestDialectName(t *testing.T) {
	d, err := Dialect(config.Config{DBType: "sqlite3", DBName: ":memory:"})
	require.NoError(t, err)
	assert.Equal(t, "sqlite", d.Name())

	d, err = Dialect(config.Config{DBType: "mysql", DBHost: "localhost", DBPort: "3306"})
	require.NoError(t, err)
	assert.Equal(t, "mysql", d.Name())
}
