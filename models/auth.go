package models

import "time"

type JsonModel struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type UserPushIn struct {
	Token    string `json:"token" validate:"required"`
	Platform string `json:"platform" validate:"required,platform"`
}
