package auth

import (
	"time"

	"github.com/angelmondragon/popspot-backend/pkg/auth/session"
	"github.com/angelmondragon/popspot-backend/pkg/enums"
	"github.com/google/uuid"
)

type SignUpRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Username string `json:"username" validate:"omitempty,max=50"`
}

type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type ResetPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type UpdatePasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// User is the identity carried by a session.
type User struct {
	ID       uuid.UUID         `json:"id"`
	Email    string            `json:"email"`
	Username *string           `json:"username,omitempty"`
	Role     enums.ProfileRole `json:"role"`
}

// Session is returned by every flow that issues tokens.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         User      `json:"user"`
}

// SessionState answers "who is signed in" for one access token.
type SessionState struct {
	State session.State `json:"state"`
	User  *User         `json:"user,omitempty"`
}

func anonymous() *SessionState {
	return &SessionState{State: session.StateAnonymous}
}
