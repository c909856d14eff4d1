package store

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"lessonforge/internal/config"
)

// Open connects to the configured datastore and migrates the schema.
// SQLite is the default for local use; Postgres for deployments.
func Open(cfg config.StoreConfig, log *zap.Logger) (*gorm.DB, error) {
	gcfg := &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	}

	var (
		db  *gorm.DB
		err error
	)
	switch cfg.Driver {
	case "postgres":
		db, err = gorm.Open(postgres.Open(cfg.DSN), gcfg)
	case "sqlite":
		db, err = gorm.Open(sqlite.Open(cfg.DSN), gcfg)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", cfg.Driver, err)
	}

	if err := autoMigrate(db); err != nil {
		return nil, fmt.Errorf("migrating schema: %w", err)
	}

	log.Info("store ready", zap.String("driver", cfg.Driver))
	return db, nil
}

func autoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&LearningPathRecord{},
		&CourseOutline{},
		&UsageRecord{},
	)
}
