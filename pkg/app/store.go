package app

import (
	"context"
	"fmt"

	"github.com/shashiranjanraj/zepto/app/repositories"
	"github.com/shashiranjanraj/zepto/config"
	_ "github.com/shashiranjanraj/zepto/database/migrations"
	"github.com/shashiranjanraj/zepto/pkg/database"
	"github.com/shashiranjanraj/zepto/pkg/logger"
	"github.com/shashiranjanraj/zepto/pkg/migration"
	"gorm.io/gorm"
)

// OpenStore connects the backend DB_DRIVER names. SQL backends have their
// pending migrations applied first.
func OpenStore(ctx context.Context) (*repositories.Store, error) {
	switch driver := config.DatabaseDriver(); driver {
	case "memory":
		return repositories.NewMemoryStore(), nil
	case "mongo":
		client, err := database.OpenMongo(ctx)
		if err != nil {
			return nil, err
		}
		store, err := repositories.NewMongoStore(ctx, client, config.MongoDatabase())
		if err != nil {
			_ = client.Disconnect(context.Background())
			return nil, err
		}
		return store, nil
	default:
		db, err := database.OpenSQL()
		if err != nil {
			return nil, err
		}
		applied, err := migration.New(db).Run()
		if err != nil {
			closeSQL(db)
			return nil, err
		}
		if len(applied) > 0 {
			logger.Info("app: migrations applied", "driver", driver, "count", len(applied))
		}
		return repositories.NewGormStore(db), nil
	}
}

// openSQLOnly is for the migrate commands, which never touch the stores.
func openSQLOnly() (*gorm.DB, error) {
	if err := config.Load(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if !database.IsSQL(config.DatabaseDriver()) {
		return nil, fmt.Errorf("migrations apply to SQL drivers only (DB_DRIVER=%s)", config.DatabaseDriver())
	}
	return database.OpenSQL()
}

func closeSQL(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
