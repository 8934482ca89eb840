package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/gymcore/internal/authorization"
	"github.com/smallbiznis/gymcore/internal/booking"
	"github.com/smallbiznis/gymcore/internal/catalog"
	"github.com/smallbiznis/gymcore/internal/checkin"
	"github.com/smallbiznis/gymcore/internal/checkout"
	"github.com/smallbiznis/gymcore/internal/clock"
	"github.com/smallbiznis/gymcore/internal/config"
	"github.com/smallbiznis/gymcore/internal/discount"
	"github.com/smallbiznis/gymcore/internal/lock"
	"github.com/smallbiznis/gymcore/internal/migration"
	"github.com/smallbiznis/gymcore/internal/notification"
	"github.com/smallbiznis/gymcore/internal/observability"
	"github.com/smallbiznis/gymcore/internal/payment"
	"github.com/smallbiznis/gymcore/internal/receipt"
	"github.com/smallbiznis/gymcore/internal/reconciler"
	"github.com/smallbiznis/gymcore/internal/server"
	"github.com/smallbiznis/gymcore/internal/subscription"
	"github.com/smallbiznis/gymcore/pkg/db"
	"go.uber.org/fx"
)

// gymcore runs the HTTP API and the reconciler in one process.
func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		clock.Module,
		lock.Module,

		catalog.Module,
		subscription.Module,
		discount.Module,
		payment.Module,
		checkout.Module,
		booking.Module,
		checkin.Module,
		notification.Module,
		authorization.Module,
		receipt.Module,

		reconciler.Worker,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.SnowflakeNode)
}
