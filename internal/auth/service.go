package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/popspot-backend/internal/users"
	pkgAuth "github.com/angelmondragon/popspot-backend/pkg/auth"
	"github.com/angelmondragon/popspot-backend/pkg/auth/session"
	"github.com/angelmondragon/popspot-backend/pkg/config"
	"github.com/angelmondragon/popspot-backend/pkg/db"
	"github.com/angelmondragon/popspot-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/popspot-backend/pkg/errors"
	"github.com/angelmondragon/popspot-backend/pkg/logger"
	"github.com/angelmondragon/popspot-backend/pkg/mailer"
	"github.com/angelmondragon/popspot-backend/pkg/metrics"
	"github.com/angelmondragon/popspot-backend/pkg/retry"
	"github.com/angelmondragon/popspot-backend/pkg/sanitize"
	"github.com/angelmondragon/popspot-backend/pkg/security"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	invalidCredentialsMessage = "invalid login credentials"
	unconfirmedMessage        = "could not confirm session"

	flowPassword = "password"
	flowKakao    = "kakao"
	flowRefresh  = "refresh"
)

var validate = validator.New()

// Service is the session store of the API: it issues, confirms, refreshes and
// revokes sessions.
type Service interface {
	SignUp(ctx context.Context, req SignUpRequest) (*User, error)
	SignIn(ctx context.Context, req SignInRequest) (*Session, error)
	SignOut(ctx context.Context, accessToken string) error
	Refresh(ctx context.Context, accessToken, refreshToken string) (*Session, error)
	Session(ctx context.Context, accessToken string) (*SessionState, error)
	KakaoAuthURL(ctx context.Context) (string, string, error)
	KakaoCallback(ctx context.Context, code, state, expectedState string) (*Session, error)
	ResetPassword(ctx context.Context, email string) error
	UpdatePassword(ctx context.Context, req UpdatePasswordRequest) error
}

type userRepository interface {
	Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByKakaoSubject(ctx context.Context, subject string) (*models.User, error)
	LinkKakao(ctx context.Context, id uuid.UUID, subject string) error
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

type profileProvisioner interface {
	Ensure(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
}

type sessionStore interface {
	Generate(ctx context.Context, userID, accessID string) (string, error)
	Rotate(ctx context.Context, userID, oldAccessID, provided string) (string, string, error)
	Revoke(ctx context.Context, userID, accessID string) error
	RevokeAll(ctx context.Context, userID string) (int, error)
	Purge(ctx context.Context, userID string) (int, error)
	Remaining(ctx context.Context, userID string) ([]string, error)
	HasSession(ctx context.Context, userID, accessID string) (bool, error)
}

type sessionTracker interface {
	Resolve(ctx context.Context, userID, accessID string) (session.Snapshot, error)
	Forget(userID, accessID string)
}

type resetStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	GetDel(ctx context.Context, key string) (string, error)
	PasswordResetKey(digest string) string
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	Users       userRepository
	Profiles    profileProvisioner
	Sessions    sessionStore
	Tracker     sessionTracker
	Resets      resetStore
	Mailer      mailer.Sender
	Kakao       KakaoProvider
	JWT         config.JWTConfig
	Password    config.PasswordConfig
	Session     config.SessionConfig
	FrontendURL string
	Metrics     *metrics.SessionMetrics
	Logger      *logger.Logger
	Clock       func() time.Time
}

type service struct {
	users       userRepository
	profiles    profileProvisioner
	sessions    sessionStore
	tracker     sessionTracker
	resets      resetStore
	mail        mailer.Sender
	kakao       KakaoProvider
	jwtCfg      config.JWTConfig
	passwordCfg config.PasswordConfig
	resetTTL    time.Duration
	frontendURL string
	confirm     retry.Policy
	callback    retry.Policy
	signOut     retry.Policy
	metrics     *metrics.SessionMetrics
	logg        *logger.Logger
	now         func() time.Time
}

// NewService constructs the auth service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Users == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.Profiles == nil {
		return nil, fmt.Errorf("profile provisioner is required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if params.Tracker == nil {
		return nil, fmt.Errorf("session tracker is required")
	}
	if params.Resets == nil {
		return nil, fmt.Errorf("reset token store is required")
	}
	if params.Mailer == nil {
		return nil, fmt.Errorf("mailer is required")
	}
	if params.Session.ConfirmAttempts < 1 {
		return nil, fmt.Errorf("session confirm attempts must be at least 1")
	}
	if params.Logger == nil {
		params.Logger = logger.Nop()
	}
	if params.Clock == nil {
		params.Clock = time.Now
	}
	resetTTL := params.Session.PasswordResetTTL
	if resetTTL <= 0 {
		resetTTL = 30 * time.Minute
	}
	return &service{
		users:       params.Users,
		profiles:    params.Profiles,
		sessions:    params.Sessions,
		tracker:     params.Tracker,
		resets:      params.Resets,
		mail:        params.Mailer,
		kakao:       params.Kakao,
		jwtCfg:      params.JWT,
		passwordCfg: params.Password,
		resetTTL:    resetTTL,
		frontendURL: strings.TrimRight(params.FrontendURL, "/"),
		confirm:     retry.Policy{Attempts: params.Session.ConfirmAttempts, Delay: params.Session.ConfirmDelay},
		callback:    retry.Policy{Attempts: params.Session.CallbackAttempts, Delay: params.Session.CallbackDelay},
		signOut:     retry.Policy{Attempts: params.Session.SignOutVerifyAttempts},
		metrics:     params.Metrics,
		logg:        params.Logger,
		now:         params.Clock,
	}, nil
}

func (s *service) SignUp(ctx context.Context, req SignUpRequest) (*User, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Username = sanitize.String(req.Username, 50)
	if err := validate.Struct(req); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "a valid email and password are required")
	}
	if err := security.ValidatePassword(req.Password, s.passwordCfg); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}

	if _, err := s.users.FindByEmail(ctx, req.Email); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "an account with this email already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}

	hash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	user, err := s.users.Create(ctx, users.CreateUserDTO{
		Email:        req.Email,
		PasswordHash: hash,
		Username:     req.Username,
	})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "an account with this email already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
	}

	ctx = s.logg.WithUserID(ctx, user.ID.String())
	profile, err := s.profiles.Ensure(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	s.logg.Info(ctx, "user signed up")
	return identity(user, profile), nil
}

func (s *service) SignIn(ctx context.Context, req SignInRequest) (*Session, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}
	if user.PasswordHash == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage).
			WithHint("this account signs in with Kakao")
	}
	valid, err := security.VerifyPassword(req.Password, *user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	return s.issue(ctx, user, flowPassword, s.confirm)
}

// issue mints an access token and refresh record, then waits under policy
// until the new session is observable in the session store.
func (s *service) issue(ctx context.Context, user *models.User, flow string, policy retry.Policy) (*Session, error) {
	ctx = s.logg.WithUserID(ctx, user.ID.String())
	profile, err := s.profiles.Ensure(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	accessID := session.NewAccessID()
	accessToken, err := pkgAuth.MintAccessToken(s.jwtCfg, now, pkgAuth.AccessTokenPayload{
		UserID:   user.ID,
		Email:    user.Email,
		Role:     profile.Role,
		AccessID: accessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	refreshToken, err := s.sessions.Generate(ctx, user.ID.String(), accessID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store session")
	}

	if err := s.confirmSession(s.logg.WithAccessID(ctx, accessID), flow, policy, user.ID.String(), accessID); err != nil {
		s.abandon(ctx, user.ID.String(), accessID)
		return nil, err
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "update last login failed")
	} else {
		user.LastLoginAt = &now
	}

	return &Session{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    now.Add(s.jwtCfg.AccessTokenTTL()),
		User:         *identity(user, profile),
	}, nil
}

func (s *service) confirmSession(ctx context.Context, flow string, policy retry.Policy, userID, accessID string) error {
	started := s.now()
	attempts, err := policy.Until(ctx, func(ctx context.Context) (bool, error) {
		return s.sessions.HasSession(ctx, userID, accessID)
	})
	s.metrics.ObserveConfirm(flow, attempts, s.now().Sub(started), err == nil)
	if err != nil {
		s.logg.Error(s.logg.WithFields(ctx, map[string]any{"flow": flow, "attempts": attempts}), "session confirmation failed", err)
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, unconfirmedMessage)
	}
	// warm the process cache; a miss here only costs a lookup later
	if _, err := s.tracker.Resolve(ctx, userID, accessID); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "session tracker warmup failed")
	}
	return nil
}

// abandon revokes a session the caller never received, so it cannot surface
// once the store catches up.
func (s *service) abandon(ctx context.Context, userID, accessID string) {
	s.tracker.Forget(userID, accessID)
	if err := s.sessions.Revoke(context.WithoutCancel(ctx), userID, accessID); err != nil {
		s.logg.Warn(s.logg.WithAccessID(s.logg.WithField(ctx, "error", err.Error()), accessID), "abandoned session revoke failed")
	}
}

// SignOut ends every session of the token's user. The calling access session
// is forgotten locally before any remote call, so this process rejects the
// token even when the store is slow to reflect the revocation.
func (s *service) SignOut(ctx context.Context, accessToken string) error {
	claims, err := pkgAuth.ParseAccessTokenAllowExpired(s.jwtCfg, accessToken)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid access token")
	}
	userID := claims.UserID.String()
	ctx = s.logg.WithAccessID(s.logg.WithUserID(ctx, userID), claims.AccessID())

	s.tracker.Forget(userID, claims.AccessID())

	var remaining []string
	attempts, err := s.signOut.Until(ctx, func(ctx context.Context) (bool, error) {
		s.revokeAll(ctx, userID)
		keys, err := s.sessions.Remaining(ctx, userID)
		if err != nil {
			return false, err
		}
		remaining = keys
		return len(keys) == 0, nil
	})

	switch {
	case err == nil && attempts <= 1:
		s.metrics.IncSignOut("clean")
	case err == nil:
		s.metrics.IncSignOut("retried")
		s.logg.Info(ctx, "sign-out needed a second revocation")
	case errors.Is(err, retry.ErrExhausted):
		s.metrics.IncSignOut("residual")
		s.logg.Warn(s.logg.WithField(ctx, "remaining", len(remaining)), "sessions remain after sign-out")
	default:
		s.metrics.IncSignOut("failed")
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "could not verify sign-out")
	}
	return nil
}

func (s *service) revokeAll(ctx context.Context, userID string) {
	if _, err := s.sessions.RevokeAll(ctx, userID); err != nil {
		s.logg.Error(ctx, "revoke sessions failed", err)
	}
	if _, err := s.sessions.Purge(ctx, userID); err != nil {
		s.logg.Error(ctx, "purge session namespace failed", err)
	}
}

func (s *service) Refresh(ctx context.Context, accessToken, refreshToken string) (*Session, error) {
	claims, err := pkgAuth.ParseAccessTokenAllowExpired(s.jwtCfg, accessToken)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid access token")
	}
	userID := claims.UserID.String()
	ctx = s.logg.WithUserID(ctx, userID)

	newAccessID, newRefresh, err := s.sessions.Rotate(ctx, userID, claims.AccessID(), refreshToken)
	if err != nil {
		if errors.Is(err, session.ErrInvalidRefreshToken) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rotate session")
	}
	s.tracker.Forget(userID, claims.AccessID())

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "account no longer exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}
	profile, err := s.profiles.Ensure(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	token, err := pkgAuth.MintAccessToken(s.jwtCfg, now, pkgAuth.AccessTokenPayload{
		UserID:   user.ID,
		Email:    user.Email,
		Role:     profile.Role,
		AccessID: newAccessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	if _, err := s.tracker.Resolve(ctx, userID, newAccessID); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "flow", flowRefresh), "session tracker warmup failed")
	}
	return &Session{
		AccessToken:  token,
		RefreshToken: newRefresh,
		ExpiresAt:    now.Add(s.jwtCfg.AccessTokenTTL()),
		User:         *identity(user, profile),
	}, nil
}

// Session resolves an access token to its current state. Invalid, expired or
// revoked tokens are anonymous, never an error.
func (s *service) Session(ctx context.Context, accessToken string) (*SessionState, error) {
	if strings.TrimSpace(accessToken) == "" {
		return anonymous(), nil
	}
	claims, err := pkgAuth.ParseAccessToken(s.jwtCfg, accessToken)
	if err != nil {
		return anonymous(), nil
	}
	userID := claims.UserID.String()
	ctx = s.logg.WithAccessID(s.logg.WithUserID(ctx, userID), claims.AccessID())

	snap, err := s.tracker.Resolve(ctx, userID, claims.AccessID())
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "session lookup failed")
		return anonymous(), nil
	}
	if !snap.Authenticated() {
		return anonymous(), nil
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return anonymous(), nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}
	profile, err := s.profiles.Ensure(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return &SessionState{State: session.StateAuthenticated, User: identity(user, profile)}, nil
}

func identity(user *models.User, profile *models.Profile) *User {
	out := &User{ID: user.ID, Email: user.Email}
	if profile != nil {
		username := profile.Username
		out.Username = &username
		out.Role = profile.Role
	} else if user.Username != nil {
		out.Username = user.Username
	}
	return out
}
