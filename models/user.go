package models

// UserAccount is the profile row. Its ID is the JWT subject.
type UserAccount struct {
	JsonModel
	Email    string  `json:"email" gorm:"unique"`
	FullName *string `json:"full_name"`
	Banned   bool    `gorm:"default:false" json:"-"`
	// profile photo, used as the try-on base image
	AvatarURL  *string `json:"avatar_url"`
	AvatarPath *string `json:"-"`
	Bio        *string `gorm:"type:text" json:"bio"`

	ReceiveNotifications bool `gorm:"default:true" json:"receive_notifications"`
}

type UserPushToken struct {
	JsonModel
	UserAccountID uint
	UserAccount   UserAccount `json:"user_account"`
	Platform      Platform    `sql:"type:ENUM('ios', 'android', 'web')" json:"platform"`
	Token         string      `json:"token"`
	Active        bool        `gorm:"default:false" json:"-"`
}

type StylePreference struct {
	JsonModel
	UserAccountID  uint   `json:"user_id"`
	PreferenceName string `json:"preference_name"`
}
