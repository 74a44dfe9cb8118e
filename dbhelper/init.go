package dbhelper

import (
	"fmt"
	"time"

	"wardrobeapi/config"
	"wardrobeapi/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func SetupDB(cfg config.DatabaseConfig) *gorm.DB {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	default:
		dsn := cfg.DSN
		if dsn == "" {
			dsn = fmt.Sprintf(
				"postgres://%s:%s@%s:%s/%s",
				cfg.Username,
				cfg.Password,
				cfg.Host,
				cfg.Port,
				cfg.Name,
			)
		}
		dialector = postgres.Open(dsn)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: NewZapGormLogger(logger.Warn, 500*time.Millisecond, true),
	})
	if err != nil {
		panic(err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		panic(err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(300)
	sqlDB.SetConnMaxLifetime(time.Minute * 5)
	if cfg.Driver == "sqlite" {
		// in-memory databases live as long as their single connection
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetConnMaxLifetime(0)
	}

	MigrateAll(db)
	return db
}

func MigrateAll(db *gorm.DB) {
	Migrate(db, &models.UserAccount{})
	Migrate(db, &models.UserPushToken{})
	Migrate(db, &models.StylePreference{})
	Migrate(db, &models.WardrobeItem{})
	Migrate(db, &models.Outfit{})
	Migrate(db, &models.OutfitItem{})
	Migrate(db, &models.OutfitLike{})
	Migrate(db, &models.OutfitFavorite{})
	Migrate(db, &models.OutfitGeneration{})
}

// SetupTestDB opens a private in-memory sqlite database, migrated like prod.
func SetupTestDB() *gorm.DB {
	return SetupDB(config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
	})
}
