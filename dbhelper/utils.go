package dbhelper

import (
	"fmt"

	"wardrobeapi/config"
	"wardrobeapi/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

func SetupCleaner(db *gorm.DB) func() {

	return func() {
		db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.OutfitGeneration{})
		db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.OutfitFavorite{})
		db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.OutfitLike{})
		db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.OutfitItem{})
		db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Outfit{})
		db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.WardrobeItem{})
		db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.StylePreference{})
		db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.UserPushToken{})
		db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.UserAccount{})
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}
}

func Migrate(db *gorm.DB, model interface{}) {
	err := db.AutoMigrate(model)
	if err != nil {
		config.Logger.Fatal("error while migrating", zap.String("model", fmt.Sprintf("%T", model)), zap.Error(err))
	}
}
