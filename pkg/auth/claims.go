package auth

import (
	"github.com/angelmondragon/popspot-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the data available when minting a JWT.
// AccessID doubles as the jti and names the server-side session record.
type AccessTokenPayload struct {
	UserID   uuid.UUID
	Email    string
	Role     enums.ProfileRole
	AccessID string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	UserID uuid.UUID         `json:"user_id"`
	Email  string            `json:"email,omitempty"`
	Role   enums.ProfileRole `json:"role"`
	jwt.RegisteredClaims
}

// AccessID returns the session identifier embedded as jti.
func (c *AccessTokenClaims) AccessID() string {
	if c == nil {
		return ""
	}
	return c.ID
}
