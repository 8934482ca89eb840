package repository

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	paymentdomain "github.com/smallbiznis/gymcore/internal/payment/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func TestInsertGatewayEventStoresEachCallbackOnce(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&paymentdomain.GatewayEvent{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	r := Provide()
	ctx := context.Background()
	receivedAt := time.Date(2025, 4, 10, 7, 30, 0, 0, time.UTC)
	paymentID := node.Generate()

	event := func(resultCode string) *paymentdomain.GatewayEvent {
		return &paymentdomain.GatewayEvent{
			ID:            node.Generate(),
			PaymentID:     paymentID,
			OrderID:       "INV-0001",
			TransactionID: "tx-1",
			ResultCode:    resultCode,
			Payload:       datatypes.JSON(`{"resultCode":"` + resultCode + `"}`),
			ReceivedAt:    receivedAt,
		}
	}

	inserted, err := r.InsertGatewayEvent(ctx, db, event("0"))
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = r.InsertGatewayEvent(ctx, db, event("0"))
	require.NoError(t, err)
	assert.False(t, inserted, "a replay must not be stored twice")

	inserted, err = r.InsertGatewayEvent(ctx, db, event("1006"))
	require.NoError(t, err)
	assert.True(t, inserted)

	var count int64
	require.NoError(t, db.Model(&paymentdomain.GatewayEvent{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}
