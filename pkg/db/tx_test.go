package db

import (
	"context"
	"errors"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type counter struct {
	ID    int64 `gorm:"primaryKey"`
	Value int
}

func setupTestDB(t *testing.T) *gorm.DB {
	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, conn.AutoMigrate(&counter{}))
	require.NoError(t, conn.Create(&counter{ID: 1}).Error)
	return conn
}

func TestRunInTxRollsBackNestedWork(t *testing.T) {
	conn := setupTestDB(t)
	boom := errors.New("boom")

	err := RunInTx(context.Background(), conn, func(ctx context.Context, tx *gorm.DB) error {
		require.NoError(t, tx.Exec("UPDATE counters SET value = value + 1 WHERE id = 1").Error)
		return RunInTx(ctx, conn, func(ctx context.Context, inner *gorm.DB) error {
			assert.Same(t, tx, inner)
			require.NoError(t, Conn(ctx, conn).Exec("UPDATE counters SET value = value + 1 WHERE id = 1").Error)
			return boom
		})
	})
	assert.ErrorIs(t, err, boom)

	var c counter
	require.NoError(t, conn.First(&c, 1).Error)
	assert.Equal(t, 0, c.Value)
}

func TestConnFallsBackOutsideTx(t *testing.T) {
	conn := setupTestDB(t)
	_, ok := TxFromContext(context.Background())
	assert.False(t, ok)
	assert.NoError(t, Conn(context.Background(), conn).Exec("UPDATE counters SET value = 5 WHERE id = 1").Error)
}
