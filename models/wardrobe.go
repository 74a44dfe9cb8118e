package models

import (
	"github.com/go-playground/validator"
	"gorm.io/datatypes"
)

type Category string

const (
	CategoryTops        Category = "TOPS"
	CategoryBottoms     Category = "BOTTOMS"
	CategoryAccessories Category = "ACCESSORIES"
	CategoryShoes       Category = "SHOES"
	CategoryOuterwear   Category = "OUTERWEAR"
)

var categories = map[Category]bool{
	CategoryTops:        true,
	CategoryBottoms:     true,
	CategoryAccessories: true,
	CategoryShoes:       true,
	CategoryOuterwear:   true,
}

func (c Category) Valid() bool {
	return categories[c]
}

func ValidateCategory(fl validator.FieldLevel) bool {
	return Category(fl.Field().String()).Valid()
}

type WardrobeItem struct {
	JsonModel
	UserAccountID uint        `gorm:"index" json:"user_id"`
	UserAccount   UserAccount `json:"-"`
	Name          string      `json:"name"`
	Category      Category    `gorm:"index" json:"category"`
	Subcategory   *string     `json:"subcategory"`
	Color         *string     `json:"color"`
	Brand         *string     `json:"brand"`
	// ImageURL is what clients and generation providers read, ImagePath is the object key
	ImageURL   *string                     `json:"image_url"`
	ImagePath  *string                     `json:"image_path"`
	Tags       datatypes.JSONSlice[string] `json:"tags"`
	IsFavorite bool                        `gorm:"default:false" json:"is_favorite"`
}
