package models

import (
	"time"
)

// User is the durable identity record. PasswordHash and RefreshToken never
// serialize into responses. RefreshToken holds the single refresh token that
// is currently valid for the user; nil means no live session.
type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string    `gorm:"uniqueIndex;not null"     json:"username"`
	Email        string    `gorm:"uniqueIndex;not null"     json:"email"`
	FullName     string    `gorm:"index;not null"           json:"fullName"`
	PasswordHash string    `gorm:"not null"                 json:"-"`
	Avatar       string    `gorm:"not null"                 json:"avatar"`
	CoverImage   string    `json:"coverImage,omitempty"`
	RefreshToken *string   `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
