package users

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/popspot-backend/pkg/db/models"
)

// UserDTO is the transport shape that omits sensitive credentials.
type UserDTO struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	Username    *string    `json:"username,omitempty"`
	Kakao       bool       `json:"kakao_linked"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
// Username is sign-up metadata consumed later by profile provisioning.
type CreateUserDTO struct {
	Email        string
	PasswordHash string
	KakaoSubject string
	Username     string
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	return &UserDTO{
		ID:          u.ID,
		Email:       u.Email,
		Username:    u.Username,
		Kakao:       u.KakaoSubject != nil,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	return &models.User{
		Email:        strings.ToLower(strings.TrimSpace(c.Email)),
		PasswordHash: optional(c.PasswordHash),
		KakaoSubject: optional(c.KakaoSubject),
		Username:     optional(strings.TrimSpace(c.Username)),
	}
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
