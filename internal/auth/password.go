package auth

import (
	"context"
	"errors"
	"net/url"
	"strings"

	pkgerrors "github.com/angelmondragon/popspot-backend/pkg/errors"
	"github.com/angelmondragon/popspot-backend/pkg/mailer"
	"github.com/angelmondragon/popspot-backend/pkg/security"
	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const invalidResetMessage = "password reset link is invalid or has expired"

// ResetPassword emails a one-time reset link when the account exists. Unknown
// accounts and delivery failures report success too, so the endpoint cannot
// be used to probe for accounts.
func (s *service) ResetPassword(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validate.Var(email, "required,email"); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "a valid email is required")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logg.Info(ctx, "password reset requested for unknown email")
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}
	ctx = s.logg.WithUserID(ctx, user.ID.String())

	token, digest, err := security.NewResetToken()
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate reset token")
	}
	if err := s.resets.Set(ctx, s.resets.PasswordResetKey(digest), user.ID.String(), s.resetTTL); err != nil {
		s.logg.Error(ctx, "store reset token failed", err)
		return nil
	}

	link := s.frontendURL + "/reset-password?token=" + url.QueryEscape(token)
	msg := mailer.Message{
		To:      user.Email,
		Subject: "Reset your PopSpot password",
		Body: "We received a request to reset your password.\n\n" +
			"Open the link below within " + s.resetTTL.String() + " to choose a new one:\n\n" +
			link + "\n\nIf you did not ask for this, you can ignore this email.",
	}
	if err := s.mail.Send(ctx, msg); err != nil {
		s.logg.Error(ctx, "password reset email failed", err)
		return nil
	}
	s.logg.Info(ctx, "password reset email sent")
	return nil
}

// UpdatePassword consumes a reset token, stores the new hash and ends every
// session of the account.
func (s *service) UpdatePassword(ctx context.Context, req UpdatePasswordRequest) error {
	if strings.TrimSpace(req.Token) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, invalidResetMessage)
	}
	if err := security.ValidatePassword(req.Password, s.passwordCfg); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}

	raw, err := s.resets.GetDel(ctx, s.resets.PasswordResetKey(security.DigestResetToken(req.Token)))
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return pkgerrors.New(pkgerrors.CodeValidation, invalidResetMessage)
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "consume reset token")
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, invalidResetMessage)
	}
	ctx = s.logg.WithUserID(ctx, userID.String())

	hash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	if err := s.users.UpdatePasswordHash(ctx, userID, hash); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeValidation, invalidResetMessage)
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update password")
	}

	s.revokeAll(ctx, userID.String())
	s.logg.Info(ctx, "password updated")
	return nil
}
