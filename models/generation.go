package models

const (
	GenerationPending   = "pending"
	GenerationCompleted = "completed"
	GenerationFailed    = "failed"
)

type OutfitGeneration struct {
	JsonModel
	TopItemID       *uint         `json:"top_item_id"`
	TopItem         *WardrobeItem `gorm:"constraint:OnDelete:SET NULL;" json:"top_item,omitempty"`
	BottomItemID    *uint         `json:"bottom_item_id"`
	BottomItem      *WardrobeItem `gorm:"constraint:OnDelete:SET NULL;" json:"bottom_item,omitempty"`
	AccessoryItemID *uint         `json:"accessory_item_id"`
	AccessoryItem   *WardrobeItem `gorm:"constraint:OnDelete:SET NULL;" json:"accessory_item,omitempty"`
	OutfitID        *uint         `json:"outfit_id"`
	UserAccountID   uint          `gorm:"index" json:"-"`
	UserAccount     UserAccount   `json:"-"`

	Prompt string `gorm:"type:text" json:"prompt"`
	// profile photo at the point of generation
	ProfileImageURL *string `json:"profile_image_url"`

	Provider               string   `json:"provider"`
	Status                 string   `json:"status"` // pending, completed, failed
	ImageURL               *string  `gorm:"type:text" json:"image_url"`
	ImagePath              *string  `json:"image_path"`
	Duration               *float64 `json:"duration"` // in seconds
	GenerationRetryTimes   int      `json:"generation_retry_times"`
	GenerationErrorMessage *string  `gorm:"type:text" json:"generation_error_message"`
}
