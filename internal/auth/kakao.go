package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/popspot-backend/internal/users"
	"github.com/angelmondragon/popspot-backend/pkg/config"
	"github.com/angelmondragon/popspot-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/popspot-backend/pkg/errors"
	"github.com/angelmondragon/popspot-backend/pkg/sanitize"
	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

const stateBytes = 24

// KakaoIdentity is what a verified Kakao id_token tells us about the user.
type KakaoIdentity struct {
	Subject  string
	Email    string
	Nickname string
}

// KakaoProvider runs the OAuth code flow against Kakao.
type KakaoProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*KakaoIdentity, error)
}

type kakaoOIDC struct {
	oauth    *oauth2.Config
	verifier *oidc.IDTokenVerifier
}

// NewKakaoProvider discovers the Kakao OpenID configuration and builds the
// code exchanger and id_token verifier.
func NewKakaoProvider(ctx context.Context, cfg config.KakaoConfig) (KakaoProvider, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("kakao client id and redirect url are required")
	}
	provider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("discover kakao oidc provider: %w", err)
	}
	return &kakaoOIDC{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "account_email", "profile_nickname"},
		},
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
	}, nil
}

func (k *kakaoOIDC) AuthCodeURL(state string) string {
	return k.oauth.AuthCodeURL(state)
}

func (k *kakaoOIDC) Exchange(ctx context.Context, code string) (*KakaoIdentity, error) {
	token, err := k.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}
	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, errors.New("token response has no id_token")
	}
	idToken, err := k.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("verify id_token: %w", err)
	}
	var claims struct {
		Email    string `json:"email"`
		Nickname string `json:"nickname"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("decode id_token claims: %w", err)
	}
	return &KakaoIdentity{
		Subject:  idToken.Subject,
		Email:    strings.ToLower(strings.TrimSpace(claims.Email)),
		Nickname: claims.Nickname,
	}, nil
}

// KakaoAuthURL returns the provider URL and the state value the caller must
// keep (in a short-lived cookie) until the callback.
func (s *service) KakaoAuthURL(ctx context.Context) (string, string, error) {
	if s.kakao == nil {
		return "", "", pkgerrors.New(pkgerrors.CodeNotFound, "kakao login is not enabled")
	}
	buf := make([]byte, stateBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate oauth state")
	}
	state := base64.RawURLEncoding.EncodeToString(buf)
	return s.kakao.AuthCodeURL(state), state, nil
}

func (s *service) KakaoCallback(ctx context.Context, code, state, expectedState string) (*Session, error) {
	if s.kakao == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "kakao login is not enabled")
	}
	if state == "" || subtle.ConstantTimeCompare([]byte(state), []byte(expectedState)) != 1 {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid oauth state").
			WithHint("start the Kakao sign-in again from the login page")
	}
	if strings.TrimSpace(code) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing authorization code")
	}

	ident, err := s.kakao.Exchange(ctx, code)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "kakao exchange failed")
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "kakao sign-in failed")
	}
	user, err := s.kakaoUser(ctx, ident)
	if err != nil {
		return nil, err
	}
	return s.issue(ctx, user, flowKakao, s.callback)
}

// kakaoUser finds the account bound to the Kakao subject, links an existing
// account with the same email, or creates a new one.
func (s *service) kakaoUser(ctx context.Context, ident *KakaoIdentity) (*models.User, error) {
	user, err := s.users.FindByKakaoSubject(ctx, ident.Subject)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup kakao user")
	}
	if ident.Email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "kakao account did not share an email address").
			WithHint("allow the email consent item when signing in with Kakao")
	}

	user, err = s.users.FindByEmail(ctx, ident.Email)
	switch {
	case err == nil:
		if err := s.users.LinkKakao(ctx, user.ID, ident.Subject); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "link kakao account")
		}
		s.logg.Info(s.logg.WithUserID(ctx, user.ID.String()), "kakao account linked")
		return user, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}

	user, err = s.users.Create(ctx, users.CreateUserDTO{
		Email:        ident.Email,
		KakaoSubject: ident.Subject,
		Username:     sanitize.String(ident.Nickname, 50),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create kakao user")
	}
	s.logg.Info(s.logg.WithUserID(ctx, user.ID.String()), "user signed up with kakao")
	return user, nil
}
