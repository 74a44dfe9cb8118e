package models

type ProfileOut struct {
	ID                   uint    `json:"id"`
	Email                string  `json:"email"`
	FullName             *string `json:"full_name"`
	AvatarURL            *string `json:"avatar_url"`
	Bio                  *string `json:"bio"`
	ReceiveNotifications bool    `json:"receive_notifications"`
}

type ProfileUpdateIn struct {
	FullName             *string `json:"full_name" validate:"omitempty,max=120"`
	Bio                  *string `json:"bio" validate:"omitempty,max=1000"`
	AvatarURL            *string `json:"avatar_url" validate:"omitempty,max=2000"`
	AvatarPath           *string `json:"avatar_path" validate:"omitempty,max=500"`
	ReceiveNotifications *bool   `json:"receive_notifications"`
}

type FileUploadIn struct {
	FileName    string `json:"file_name" validate:"required,max=200"`
	ContentType string `json:"content_type" validate:"omitempty,max=100"`
}

type FileUploadOut struct {
	Path      string `json:"path"`
	UploadURL string `json:"upload_url"`
	PublicURL string `json:"public_url"`
}

type WardrobeItemIn struct {
	Name        string   `json:"name" validate:"required,max=100"`
	Category    string   `json:"category" validate:"required,category"`
	Subcategory *string  `json:"subcategory" validate:"omitempty,max=100"`
	Color       *string  `json:"color" validate:"omitempty,max=50"`
	Brand       *string  `json:"brand" validate:"omitempty,max=100"`
	ImageURL    *string  `json:"image_url" validate:"omitempty,max=2000"`
	FileName    *string  `json:"file_name" validate:"omitempty,max=200"`
	Tags        []string `json:"tags" validate:"omitempty,max=20,dive,max=50"`
}

type WardrobeItemOut struct {
	WardrobeItem
	UploadURL *string `json:"upload_url,omitempty"`
}

type OutfitIn struct {
	Name        string         `json:"name" validate:"required,max=100"`
	Description *string        `json:"description" validate:"omitempty,max=1000"`
	Occasion    *string        `json:"occasion" validate:"omitempty,max=100"`
	Season      *string        `json:"season" validate:"omitempty,max=50"`
	IsPublic    bool           `json:"is_public"`
	Items       []OutfitItemIn `json:"items" validate:"omitempty,max=20,dive"`
}

type OutfitItemIn struct {
	WardrobeItemID uint   `json:"wardrobe_item_id" validate:"required"`
	PositionType   string `json:"position_type" validate:"required,position"`
}

type ToggleOut struct {
	Active bool `json:"active"`
	Count  int  `json:"count"`
}

type StylePreferenceIn struct {
	PreferenceName string `json:"preference_name" validate:"required,max=100"`
}

type GenerationIn struct {
	TopItemID       *uint `json:"top_item_id"`
	BottomItemID    *uint `json:"bottom_item_id"`
	AccessoryItemID *uint `json:"accessory_item_id"`
	OutfitID        *uint `json:"outfit_id"`
	// try-on against the profile photo when set
	UseProfilePhoto bool `json:"use_profile_photo"`
}

type GenerationOut struct {
	ID        uint    `json:"id,omitempty"`
	Status    string  `json:"status"`
	Provider  string  `json:"provider,omitempty"`
	ImageURL  *string `json:"image_url,omitempty"`
	ImagePath *string `json:"image_path,omitempty"`
	Error     *string `json:"error,omitempty"`
}
