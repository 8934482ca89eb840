package db

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/go-sql-driver/mysql"
	"github.com/smallbiznis/gymcore/internal/config"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const (
	defaultSQLiteFile = "gymcore.db"
	// Writers wait up to this long for the sqlite write lock.
	sqliteBusyTimeout = 5 * time.Second
)

// Dialect returns the gorm dialector for cfg.DBType. Every dialect stores and
// reads timestamps in UTC; gym-local time only exists at the edges.
func Dialect(cfg config.Config) (gorm.Dialector, error) {
	dsn, err := DSN(cfg)
	if err != nil {
		return nil, err
	}
	switch normalizeType(cfg.DBType) {
	case "mysql":
		return gormmysql.Open(dsn), nil
	case "postgres":
		return postgres.Open(dsn), nil
	default:
		return sqlite.Open(dsn), nil
	}
}

// DSN renders the connection string for the configured dialect.
func DSN(cfg config.Config) (string, error) {
	switch normalizeType(cfg.DBType) {
	case "mysql":
		my := mysql.NewConfig()
		my.User = cfg.DBUser
		my.Passwd = cfg.DBPassword
		my.Net = "tcp"
		my.Addr = net.JoinHostPort(cfg.DBHost, cfg.DBPort)
		my.DBName = cfg.DBName
		my.ParseTime = true
		my.Loc = time.UTC
		my.Params = map[string]string{"charset": "utf8mb4"}
		return my.FormatDSN(), nil
	case "postgres":
		sslMode := strings.TrimSpace(cfg.DBSSLMode)
		if sslMode == "" {
			sslMode = "disable"
		}
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
			cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, sslMode,
		), nil
	case "sqlite":
		name := strings.TrimSpace(cfg.DBName)
		if name == "" {
			name = defaultSQLiteFile
		}
		return fmt.Sprintf("%s?_pragma=busy_timeout(%d)&_pragma=foreign_keys(1)",
			name, sqliteBusyTimeout.Milliseconds(),
		), nil
	default:
		return "", fmt.Errorf("unsupported database type %q", cfg.DBType)
	}
}

func normalizeType(t string) string {
	switch t = strings.ToLower(strings.TrimSpace(t)); t {
	case "postgresql", "pg":
		return "postgres"
	case "sqlite3":
		return "sqlite"
	}
	return t
}
