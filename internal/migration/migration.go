package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	bookingdomain "github.com/smallbiznis/gymcore/internal/booking/domain"
	catalogdomain "github.com/smallbiznis/gymcore/internal/catalog/domain"
	checkindomain "github.com/smallbiznis/gymcore/internal/checkin/domain"
	discountdomain "github.com/smallbiznis/gymcore/internal/discount/domain"
	"github.com/smallbiznis/gymcore/internal/notification"
	paymentdomain "github.com/smallbiznis/gymcore/internal/payment/domain"
	subscriptiondomain "github.com/smallbiznis/gymcore/internal/subscription/domain"
	"gorm.io/gorm"
)

//go:embed sql/*.sql
var embeddedMigrations embed.FS

const migrationsDir = "sql"

// RunMigrations applies the versioned Postgres schema, including the partial
// unique index that keeps one Active subscription per member and type.
func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Do not call migrator.Close here because it would close the shared *sql.DB.

	return nil
}

// Models lists every table the service owns, in dependency order.
func Models() []any {
	return []any{
		&catalogdomain.Member{},
		&catalogdomain.Package{},
		&catalogdomain.DiscountType{},
		&subscriptiondomain.Subscription{},
		&subscriptiondomain.SuspensionRecord{},
		&discountdomain.Discount{},
		&paymentdomain.Payment{},
		&paymentdomain.GatewayEvent{},
		&bookingdomain.BookingRequest{},
		&bookingdomain.Schedule{},
		&checkindomain.CheckIn{},
		&notification.Notification{},
	}
}

// AutoMigrate builds the schema from the models for the sqlite and mysql
// dialects, which the versioned migrations do not target. Partial indexes
// are emulated by the service layer checks on those dialects.
func AutoMigrate(conn *gorm.DB) error {
	if err := conn.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
