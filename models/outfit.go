package models

import "github.com/go-playground/validator"

type PositionType string

const (
	PositionTop       PositionType = "TOP"
	PositionBottom    PositionType = "BOTTOM"
	PositionAccessory PositionType = "ACCESSORY"
	PositionShoe      PositionType = "SHOE"
	PositionOuterwear PositionType = "OUTERWEAR"
)

func ValidatePosition(fl validator.FieldLevel) bool {
	switch PositionType(fl.Field().String()) {
	case PositionTop, PositionBottom, PositionAccessory, PositionShoe, PositionOuterwear:
		return true
	}
	return false
}

type Outfit struct {
	JsonModel
	UserAccountID  uint         `gorm:"index" json:"user_id"`
	UserAccount    UserAccount  `json:"-"`
	Name           string       `json:"name"`
	Description    *string      `gorm:"type:text" json:"description"`
	Occasion       *string      `json:"occasion"`
	Season         *string      `json:"season"`
	IsPublic       bool         `gorm:"default:false" json:"is_public"`
	LikesCount     int          `gorm:"default:0" json:"likes_count"`
	FavoritesCount int          `gorm:"default:0" json:"favorites_count"`
	Items          []OutfitItem `gorm:"constraint:OnDelete:CASCADE;" json:"items,omitempty"`
}

type OutfitItem struct {
	JsonModel
	OutfitID       uint         `gorm:"index" json:"outfit_id"`
	WardrobeItemID uint         `json:"wardrobe_item_id"`
	WardrobeItem   WardrobeItem `gorm:"constraint:OnDelete:CASCADE;" json:"wardrobe_item"`
	PositionType   PositionType `json:"position_type"`
}

type OutfitLike struct {
	JsonModel
	UserAccountID uint `gorm:"uniqueIndex:idx_outfit_like" json:"user_id"`
	OutfitID      uint `gorm:"uniqueIndex:idx_outfit_like" json:"outfit_id"`
}

type OutfitFavorite struct {
	JsonModel
	UserAccountID uint `gorm:"uniqueIndex:idx_outfit_favorite" json:"user_id"`
	OutfitID      uint `gorm:"uniqueIndex:idx_outfit_favorite" json:"outfit_id"`
}
