package models

import (
	"time"

	"github.com/google/uuid"
)

// User is the login identity. Password hash is empty for Kakao-only accounts.
type User struct {
	ID           uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email        string     `gorm:"column:email;type:text;not null"`
	PasswordHash *string    `gorm:"column:password_hash"`
	KakaoSubject *string    `gorm:"column:kakao_subject"`
	Username     *string    `gorm:"column:username"`
	LastLoginAt  *time.Time `gorm:"column:last_login_at"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
