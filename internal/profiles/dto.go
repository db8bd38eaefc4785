package profiles

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/popspot-backend/pkg/db/models"
	"github.com/angelmondragon/popspot-backend/pkg/enums"
)

// ProfileDTO is the public profile payload.
type ProfileDTO struct {
	ID        uuid.UUID         `json:"id"`
	Username  string            `json:"username"`
	AvatarURL *string           `json:"avatar_url"`
	Role      enums.ProfileRole `json:"role"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// UpdateProfileInput is a partial update; nil fields are left untouched and an
// empty avatar clears it.
type UpdateProfileInput struct {
	Username  *string `json:"username" validate:"omitempty,max=50"`
	AvatarURL *string `json:"avatar_url" validate:"omitempty,url"`
}

// UpdateRoleInput changes another profile's role.
type UpdateRoleInput struct {
	Role string `json:"role" validate:"required,oneof=user seller admin"`
}

func FromModel(p *models.Profile) *ProfileDTO {
	if p == nil {
		return nil
	}
	return &ProfileDTO{
		ID:        p.ID,
		Username:  p.Username,
		AvatarURL: p.AvatarURL,
		Role:      p.Role,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}
