package migration

import (
	"github.com/smallbiznis/gymcore/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
		switch {
		case cfg.DBType == "postgres":
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
			log.Info("migration.applied", zap.String("dialect", cfg.DBType))
		case cfg.DBAutoMigrate:
			if err := AutoMigrate(conn); err != nil {
				return err
			}
			log.Info("migration.auto_migrated", zap.String("dialect", cfg.DBType))
		default:
			log.Warn("migration.skipped", zap.String("dialect", cfg.DBType))
		}
		return nil
	}),
)
