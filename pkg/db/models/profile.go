package models

import (
	"time"

	"github.com/angelmondragon/popspot-backend/pkg/enums"
	"github.com/google/uuid"
)

// Profile is the public face of a user; its id equals the user id.
type Profile struct {
	ID        uuid.UUID         `gorm:"type:uuid;primaryKey"`
	Username  string            `gorm:"column:username;not null"`
	AvatarURL *string           `gorm:"column:avatar_url"`
	Role      enums.ProfileRole `gorm:"column:role;type:profile_role;not null;default:'user'"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
